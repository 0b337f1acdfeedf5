package admittance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"powerflow/types"
)

// FactorizeB 对去掉平衡母线行列后的 B[1:,1:] 做 LU 分解,奇异时返回 ErrSingular
func FactorizeB(lin *Linear) (*mat.LU, error) {
	n := lin.Buses()
	if n < 2 || lin.B == nil {
		return nil, nil
	}
	var lu mat.LU
	lu.Factorize(lin.B.Slice(1, n, 1, n))
	if c := lu.Cond(); math.IsInf(c, 1) || c > types.ConditionLimit {
		return nil, fmt.Errorf("B matrix condition %g: %w", c, ErrSingular)
	}
	return &lu, nil
}

// InverseB B[1:,1:] 的逆补零为 |buses|x|buses|,平衡母线行列为零
func InverseB(lin *Linear, lu *mat.LU) (*mat.Dense, error) {
	n := lin.Buses()
	if lu == nil {
		return nil, nil
	}
	eye := mat.NewDiagDense(n-1, nil)
	for i := range n - 1 {
		eye.SetDiag(i, 1)
	}
	var x mat.Dense
	if err := lu.SolveTo(&x, false, eye); err != nil {
		return nil, fmt.Errorf("invert B: %w", singular(err))
	}
	inv := mat.NewDense(n, n, nil)
	inv.Slice(1, n, 1, n).(*mat.Dense).Copy(&x)
	return inv, nil
}

// BuildPTDF PTDF = H·B⁻¹,|branches|x|buses|
func BuildPTDF(lin *Linear, inv *mat.Dense) *mat.Dense {
	if inv == nil || lin.H == nil {
		return nil
	}
	var ptdf mat.Dense
	ptdf.Mul(lin.H, inv)
	return &ptdf
}

// singular 把 gonum 的条件数错误归为 ErrSingular
func singular(err error) error {
	if _, ok := err.(mat.Condition); ok {
		return fmt.Errorf("%v: %w", err, ErrSingular)
	}
	return err
}
