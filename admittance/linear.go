package admittance

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"powerflow/graph"
	"powerflow/maths"
	"powerflow/types"
)

// Linear 线性潮流模型
//
//	K: 关联矩阵 |buses|x|branches|, bus0 处 +1, bus1 处 -1
//	H = diag(b)·Kᵗ, B = K·H
type Linear struct {
	Carrier      types.Carrier
	K, H, B      *mat.Dense
	Susceptance  []float64 // b = 1/x_eff (直流为 1/r_eff)
	Impedance    []float64 // 1/b
	PBranchShift []float64 // 相移引起的支路功率偏移
	PBusShift    []float64 // K·PBranchShift
	Params       []Params
}

// Buses 母线数量
func (lin *Linear) Buses() int { return len(lin.PBusShift) }

// Branches 支路数量
func (lin *Linear) Branches() int { return len(lin.Susceptance) }

// BuildLinear 构建线性模型,子网载体为直流时按电阻计算
func BuildLinear(sub *graph.SubNetwork, params []Params) (*Linear, error) {
	n, m := len(sub.BusesO), len(params)
	lin := &Linear{
		Carrier:      sub.Carrier,
		Susceptance:  make([]float64, m),
		Impedance:    make([]float64, m),
		PBranchShift: make([]float64, m),
		PBusShift:    make([]float64, n),
		Params:       params,
	}
	for k, p := range params {
		z := p.XEff
		if sub.Carrier == types.CarrierDC {
			z = p.REff
		}
		if z == 0 {
			return nil, fmt.Errorf("%s %q: %w", p.Kind, p.Name, ErrZeroImpedance)
		}
		lin.Impedance[k] = z
		lin.Susceptance[k] = 1 / z
		if sub.Carrier != types.CarrierDC {
			lin.PBranchShift[k] = -lin.Susceptance[k] * p.PhaseShift * deg
		}
	}
	if m == 0 {
		return lin, nil
	}
	lin.K = mat.NewDense(n, m, nil)
	for k, p := range params {
		lin.K.Set(p.Bus0, k, 1)
		lin.K.Set(p.Bus1, k, -1)
	}
	lin.H = mat.NewDense(m, n, nil)
	lin.H.Apply(func(k, j int, _ float64) float64 {
		return lin.Susceptance[k] * lin.K.At(j, k)
	}, lin.H)
	lin.B = mat.NewDense(n, n, nil)
	lin.B.Mul(lin.K, lin.H)
	lin.PBusShift = maths.MulVec(lin.K, lin.PBranchShift, n)
	return lin, nil
}
