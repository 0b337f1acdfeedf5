// Package lpf 线性(直流近似)潮流。
//
// 四种数值上不同的形式在同一网络上给出相同的支路潮流:
//
//	Angles    解 B[1:,1:]·θ = p - p_bus_shift,再由 H·θ 求潮流
//	PTDF      潮流 = PTDF·(p - p_bus_shift) + p_branch_shift,无需逐快照解方程
//	Cycles    树路径潮流 + 回路潮流修正
//	Kirchhoff 节点平衡与回路约束联立(约束行也供外部优化器使用)
package lpf

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"powerflow/admittance"
	"powerflow/maths"
)

// 线性潮流错误定义
var (
	ErrFormulation = errors.New("lpf: unknown formulation")
	ErrDimension   = errors.New("lpf: injection vector length mismatch")
)

// Formulation 线性潮流形式
type Formulation uint8

// 线性潮流形式常量
const (
	Angles Formulation = iota
	PTDF
	Cycles
	Kirchhoff
)

var formulationNames = [...]string{"angles", "ptdf", "cycles", "kirchhoff"}

// String 形式名称
func (f Formulation) String() string {
	if int(f) < len(formulationNames) {
		return formulationNames[f]
	}
	return fmt.Sprintf("Formulation(%d)", uint8(f))
}

// ParseFormulation 解析形式名称,不区分大小写
func ParseFormulation(s string) (Formulation, error) {
	for i, name := range formulationNames {
		if strings.EqualFold(s, name) {
			return Formulation(i), nil
		}
	}
	return Angles, fmt.Errorf("%q: %w", s, ErrFormulation)
}

// Want 该形式需要的矩阵
func (f Formulation) Want() admittance.Want {
	switch f {
	case PTDF:
		return admittance.WantPTDF
	case Cycles, Kirchhoff:
		return admittance.WantTree
	}
	return admittance.WantLinear
}

// Flow 单个快照的线性潮流结果
type Flow struct {
	P0     []float64 // 支路 bus0 侧有功(bus1 侧为其相反数)
	Theta  []float64 // 母线相角(直流载体为电压偏差),平衡母线为 0
	P      []float64 // 平衡后的母线注入,平衡母线为计算值
	SlackP float64   // 平衡母线计算注入
}

// Solve 按指定形式求解一个快照。p 按 BusesO 排序,平衡母线的值被计算值替换。
// 奇异矩阵为前置条件错误。
func Solve(m *admittance.Matrices, f Formulation, p []float64) (*Flow, error) {
	lin := m.Linear
	if lin == nil {
		return nil, fmt.Errorf("sub-network %s: linear model not built", m.Sub.Name)
	}
	n, nb := lin.Buses(), lin.Branches()
	if len(p) != n {
		return nil, fmt.Errorf("%d injections for %d buses: %w", len(p), n, ErrDimension)
	}
	flow := &Flow{P0: make([]float64, nb), Theta: make([]float64, n), P: append([]float64(nil), p...)}
	for _, v := range p[1:] {
		flow.SlackP -= v
	}
	flow.P[0] = flow.SlackP
	if nb == 0 {
		return flow, nil
	}

	var err error
	switch f {
	case Angles:
		err = solveAngles(m, flow)
	case PTDF:
		err = solvePTDF(m, flow)
	case Cycles:
		err = solveCycles(m, flow)
	case Kirchhoff:
		err = solveKirchhoff(m, flow)
	default:
		err = fmt.Errorf("%v: %w", f, ErrFormulation)
	}
	if err != nil {
		return nil, err
	}
	return flow, nil
}

// solveAngles θ[1:] = B[1:,1:]⁻¹(p - p_bus_shift)[1:], 潮流 = H·θ + p_branch_shift
func solveAngles(m *admittance.Matrices, flow *Flow) error {
	lin, n := m.Linear, m.Linear.Buses()
	if m.LU == nil {
		return fmt.Errorf("sub-network %s: B not factorized: %w", m.Sub.Name, admittance.ErrSingular)
	}
	rhs := make([]float64, n-1)
	for i := range rhs {
		rhs[i] = flow.P[i+1] - lin.PBusShift[i+1]
	}
	var theta mat.VecDense
	if err := m.LU.SolveVecTo(&theta, false, mat.NewVecDense(n-1, rhs)); err != nil {
		return fmt.Errorf("solve angles: %v: %w", err, admittance.ErrSingular)
	}
	for i := 1; i < n; i++ {
		flow.Theta[i] = theta.AtVec(i - 1)
	}
	flow.P0 = shifted(maths.MulVec(lin.H, flow.Theta, lin.Branches()), lin.PBranchShift)
	return nil
}

// solvePTDF 潮流 = PTDF·q + p_branch_shift, θ = B⁻¹·q, q = p - p_bus_shift
func solvePTDF(m *admittance.Matrices, flow *Flow) error {
	lin := m.Linear
	if m.PTDF == nil {
		return fmt.Errorf("sub-network %s: PTDF not built: %w", m.Sub.Name, admittance.ErrSingular)
	}
	q := shifted(flow.P, lin.PBusShift, -1)
	flow.P0 = shifted(maths.MulVec(m.PTDF, q, lin.Branches()), lin.PBranchShift)
	flow.Theta = maths.MulVec(m.InvB, q, lin.Buses())
	return nil
}

// shifted a + Σ sign·b,sign 缺省为 +1
func shifted(a, b []float64, sign ...float64) []float64 {
	s := 1.0
	if len(sign) > 0 {
		s = sign[0]
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + s*b[i]
	}
	return out
}

// anglesFromFlows 从平衡母线出发沿支路回推相角: θ1 = θ0 - z·(f - p_branch_shift)
func anglesFromFlows(lin *admittance.Linear, flow *Flow) {
	n := lin.Buses()
	adj := make([][]int, n)
	for k, p := range lin.Params {
		adj[p.Bus0] = append(adj[p.Bus0], k)
		adj[p.Bus1] = append(adj[p.Bus1], k)
	}
	done := make([]bool, n)
	done[0] = true
	queue := []int{0}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, k := range adj[u] {
			p := lin.Params[k]
			drop := lin.Impedance[k] * (flow.P0[k] - lin.PBranchShift[k])
			switch {
			case p.Bus0 == u && !done[p.Bus1]:
				flow.Theta[p.Bus1] = flow.Theta[u] - drop
				done[p.Bus1] = true
				queue = append(queue, p.Bus1)
			case p.Bus1 == u && !done[p.Bus0]:
				flow.Theta[p.Bus0] = flow.Theta[u] + drop
				done[p.Bus0] = true
				queue = append(queue, p.Bus0)
			}
		}
	}
}
