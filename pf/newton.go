// Package pf 交流潮流:牛顿-拉夫逊法求解 V·conj(Y·V) = S。
//
// 每个 (快照, 子网) 独立求解,不共享迭代状态。不收敛与发散作为结果数据返回,
// 由调用方决定是否换初值或放宽容差重试。
package pf

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"powerflow/maths"
	"powerflow/types"
)

// State 求解状态
type State uint8

// 状态机: Initialized -> Iterating -> Converged | NotConverged | Diverged
const (
	Initialized State = iota
	Iterating
	Converged
	NotConverged // 达到迭代上限
	Diverged     // 残差为 NaN/Inf 或雅可比奇异
)

// String 状态名称
func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case NotConverged:
		return "not-converged"
	case Diverged:
		return "diverged"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Record 收敛记录
type Record struct {
	State      State
	Iterations int
	Error      float64 // 最终残差无穷范数
}

// Converged 是否收敛
func (r Record) Converged() bool { return r.State == Converged }

// Debug 调试接口,记录每次迭代的残差
type Debug interface {
	IsDebug() bool
	Update(name string, iter int, err float64)
	Render(w io.Writer) error
	Error(err error)
}

// Residual 残差函数 f(x)
type Residual func(x []float64) []float64

// Jacobian 雅可比矩阵 df/dx
type Jacobian func(x []float64) *mat.Dense

// Newton 牛顿迭代 x <- x - J⁻¹f(x),直到 ‖f(x)‖∞ < tol 或达到 maxIter。
// name 只用于调试记录。
func Newton(name string, f Residual, jac Jacobian, x0 []float64, tol float64, maxIter int, dbg Debug) ([]float64, Record) {
	x := append([]float64(nil), x0...)
	rec := Record{State: Initialized}
	fx := f(x)
	rec.Error = maths.NormInf(fx)
	rec.State = Iterating
	debugOn := dbg != nil && dbg.IsDebug()
	if debugOn {
		dbg.Update(name, 0, rec.Error)
	}
	for types.IsFinite(rec.Error) && rec.Error >= tol && rec.Iterations < maxIter {
		var lu mat.LU
		lu.Factorize(jac(x))
		if c := lu.Cond(); math.IsInf(c, 1) || math.IsNaN(c) {
			rec.State = Diverged
			if debugOn {
				dbg.Error(fmt.Errorf("%s: singular jacobian at iteration %d", name, rec.Iterations))
			}
			return x, rec
		}
		var dx mat.VecDense
		if err := lu.SolveVecTo(&dx, false, mat.NewVecDense(len(fx), fx)); err != nil {
			types.Debugf("%s: iteration %d: %v", name, rec.Iterations, err)
		}
		for i := range x {
			x[i] -= dx.AtVec(i)
		}
		fx = f(x)
		rec.Error = maths.NormInf(fx)
		rec.Iterations++
		if debugOn {
			dbg.Update(name, rec.Iterations, rec.Error)
		}
	}
	switch {
	case !types.IsFinite(rec.Error):
		rec.State = Diverged
	case rec.Error < tol:
		rec.State = Converged
	default:
		rec.State = NotConverged
	}
	return x, rec
}
