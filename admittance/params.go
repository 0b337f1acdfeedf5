// Package admittance 按子网构建导纳矩阵(交流)、B/H 矩阵(线性)、PTDF 以及树/回路矩阵。
//
// 所有矩阵的母线维度按 SubNetwork.BusesO 排序(第 0 行/列为平衡母线),
// 支路维度按 SubNetwork.Branches 排序。构建过程只读网络,结果为纯输出。
package admittance

import (
	"errors"
	"fmt"
	"math/cmplx"

	"powerflow/graph"
	"powerflow/network"
	"powerflow/types"
)

// 矩阵构建错误定义
var (
	ErrZeroImpedance = errors.New("admittance: branch has zero impedance")
	ErrSingular      = errors.New("admittance: singular matrix")
	ErrCarrier       = errors.New("admittance: unsupported carrier")
)

// Params 支路标幺参数(基准容量 1 MVA)
type Params struct {
	Kind       types.Kind
	Name       string
	Bus0, Bus1 int // BusesO 序号

	R, X, G, B float64 // π 模型参数,T 模型已等效变换
	REff, XEff float64 // 计入变比的串联电阻/电抗,线性潮流使用
	Tap        float64 // 变比
	TapSide    int     // 分接头侧
	PhaseShift float64 // 相移(度)
}

// BranchParams 计算子网全部支路的标幺参数。
// 电阻与电抗同时为零的支路逐条报告 ErrZeroImpedance,在任何矩阵组装之前返回。
func BranchParams(net *network.Network, sub *graph.SubNetwork) ([]Params, error) {
	idx := sub.BusIndex()
	out := make([]Params, 0, len(sub.Branches))
	var errs []error
	for _, ref := range sub.Branches {
		p := Params{Kind: ref.Kind, Name: ref.Name, Bus0: idx[ref.Bus0], Bus1: idx[ref.Bus1], Tap: 1}
		switch ref.Kind {
		case types.KindLine:
			l, _ := net.Lines.Get(ref.Name)
			bus, _ := net.Buses.Get(l.Bus0)
			v2 := bus.VNom * bus.VNom
			p.R, p.X = l.R/v2, l.X/v2
			p.G, p.B = l.G*v2, l.B*v2
		case types.KindTransformer:
			t, _ := net.Transformers.Get(ref.Name)
			p.R, p.X = t.R/t.SNom, t.X/t.SNom
			p.G, p.B = t.G*t.SNom, t.B*t.SNom
			if t.TapRatio != 0 {
				p.Tap = t.TapRatio
			}
			p.TapSide, p.PhaseShift = t.TapSide, t.PhaseShift
		default:
			return nil, fmt.Errorf("%s %q: not a passive branch", ref.Kind, ref.Name)
		}
		if p.R == 0 && p.X == 0 {
			errs = append(errs, fmt.Errorf("%s %q: %w", ref.Kind, ref.Name, ErrZeroImpedance))
			continue
		}
		p.REff, p.XEff = p.R*p.Tap, p.X*p.Tap
		if ref.Kind == types.KindTransformer {
			if t, _ := net.Transformers.Get(ref.Name); t.Model == "t" {
				p.applyTModel()
			}
		}
		out = append(out, p)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// applyTModel T 模型(串联阻抗两侧各半,励磁支路居中)经星-三角变换为等效 π 模型
func (p *Params) applyTModel() {
	ysh := complex(p.G, p.B)
	if ysh == 0 {
		return
	}
	z := complex(p.R, p.X)
	za, _, zc := wyeToDelta(z/2, z/2, 1/ysh)
	p.R, p.X = real(zc), imag(zc)
	p.G, p.B = real(2/za), imag(2/za)
}

// wyeToDelta 星形阻抗变换为三角形阻抗
func wyeToDelta(z1, z2, z3 complex128) (za, zb, zc complex128) {
	s := z1*z2 + z2*z3 + z3*z1
	return s / z2, s / z1, s / z3
}

// Series 串联导纳
func (p *Params) Series() complex128 { return 1 / complex(p.R, p.X) }

// Shunt 并联导纳
func (p *Params) Shunt() complex128 { return complex(p.G, p.B) }

// phase 相移因子 e^{jφ}
func (p *Params) phase() complex128 {
	return cmplx.Rect(1, p.PhaseShift*deg)
}
