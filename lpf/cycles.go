package lpf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"powerflow/admittance"
	"powerflow/maths"
	"powerflow/types"
)

// Constraint 一个独立回路的基尔霍夫电压约束: Σ Coeffs[k]·f[k] = RHS
type Constraint struct {
	Cycle  int
	Coeffs []float64 // 按支路排序,C[k,c]·z[k]
	RHS    float64   // -Σ C[k,c]·φ[k]
}

// KirchhoffConstraints 每个独立回路上阻抗加权潮流之和为零(计入相移),
// 供外部优化器把支路潮流作为决策变量时使用
func KirchhoffConstraints(m *admittance.Matrices) ([]Constraint, error) {
	if m.Cycles == nil || m.Linear == nil {
		return nil, fmt.Errorf("sub-network %s: cycle matrix not built", m.Sub.Name)
	}
	lin := m.Linear
	out := make([]Constraint, m.Cycles.Count)
	for c := range out {
		con := Constraint{Cycle: c, Coeffs: make([]float64, lin.Branches())}
		for k := range con.Coeffs {
			ck := m.Cycles.C.At(k, c)
			if ck == 0 {
				continue
			}
			z := lin.Impedance[k]
			con.Coeffs[k] = ck * z
			// p_branch_shift = -φ/z
			con.RHS += ck * z * lin.PBranchShift[k]
		}
		out[c] = con
	}
	return out, nil
}

// solveCycles 潮流 = T·p + C·x,回路潮流 x 由 (CᵗZC)·x = -CᵗZ(T·p - p_branch_shift) 求得
func solveCycles(m *admittance.Matrices, flow *Flow) error {
	lin := m.Linear
	if m.Tree == nil || m.Cycles == nil {
		return fmt.Errorf("sub-network %s: tree not built", m.Sub.Name)
	}
	nb := lin.Branches()
	tree := maths.MulVec(m.Tree.T, flow.P, nb)
	flow.P0 = tree
	if nc := m.Cycles.Count; nc > 0 {
		c := m.Cycles.C
		zc := mat.NewDense(nb, nc, nil)
		zc.Apply(func(k, j int, v float64) float64 { return lin.Impedance[k] * v }, c)
		var a mat.Dense
		a.Mul(c.T(), zc)
		drop := make([]float64, nb)
		for k := range drop {
			drop[k] = tree[k] - lin.PBranchShift[k]
		}
		var rhs mat.VecDense
		rhs.MulVec(zc.T(), mat.NewVecDense(nb, drop))
		rhs.ScaleVec(-1, &rhs)
		x, err := solveSquare(&a, &rhs)
		if err != nil {
			return fmt.Errorf("cycle flows: %w", err)
		}
		flow.P0 = shifted(tree, maths.MulVec(c, x, nb))
	}
	anglesFromFlows(lin, flow)
	return nil
}

// solveKirchhoff 非平衡母线的节点平衡 K[1:]·f = p[1:] 与回路约束联立求解
func solveKirchhoff(m *admittance.Matrices, flow *Flow) error {
	lin := m.Linear
	cons, err := KirchhoffConstraints(m)
	if err != nil {
		return err
	}
	n, nb := lin.Buses(), lin.Branches()
	rows := n - 1 + len(cons)
	if rows != nb {
		return fmt.Errorf("sub-network %s: %d equations for %d branches: %w", m.Sub.Name, rows, nb, admittance.ErrSingular)
	}
	a := mat.NewDense(rows, nb, nil)
	b := mat.NewVecDense(rows, nil)
	for i := 1; i < n; i++ {
		for k := range nb {
			a.Set(i-1, k, lin.K.At(i, k))
		}
		b.SetVec(i-1, flow.P[i])
	}
	for c, con := range cons {
		a.SetRow(n-1+c, con.Coeffs)
		b.SetVec(n-1+c, con.RHS)
	}
	x, err := solveSquare(a, b)
	if err != nil {
		return fmt.Errorf("kirchhoff system: %w", err)
	}
	flow.P0 = x
	anglesFromFlows(lin, flow)
	return nil
}

// solveSquare 方阵 LU 求解,病态时返回 ErrSingular
func solveSquare(a mat.Matrix, b mat.Vector) ([]float64, error) {
	var lu mat.LU
	lu.Factorize(a)
	if c := lu.Cond(); math.IsInf(c, 1) || c > types.ConditionLimit {
		return nil, fmt.Errorf("condition %g: %w", c, admittance.ErrSingular)
	}
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("%v: %w", err, admittance.ErrSingular)
	}
	return x.RawVector().Data, nil
}
