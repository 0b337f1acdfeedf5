package pf

import (
	"errors"
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"powerflow/admittance"
)

// ErrDimension 输入向量长度与子网母线数不符
var ErrDimension = errors.New("pf: input length mismatch")

// Input 单个快照的输入,按 BusesO 排序
type Input struct {
	P, Q []float64    // 母线净注入设定(PQ 母线有效,PV 母线只用 P)
	VMag []float64    // 电压幅值设定(平衡与 PV 母线有效)
	Seed []complex128 // 初值,nil 为平启动
}

// Options 迭代参数
type Options struct {
	Name          string // 调试记录名称
	Tolerance     float64
	MaxIterations int
	Debug         Debug
}

// Solution 单个快照的交流潮流结果
type Solution struct {
	V      []complex128 // 母线电压(标幺)
	S      []complex128 // 母线计算注入 V·conj(Y·V)
	S0, S1 []complex128 // 支路两端流入支路的功率
	Record
}

// model 一次求解的只读上下文
type model struct {
	ac       *admittance.AC
	n, npv   int
	in       Input
	nAng, nM int // 未知相角数,未知幅值数
}

// Solve 求解一个快照。npv 为 BusesO 中紧随平衡母线的 PV 母线数量。
// 不收敛/发散通过 Record 返回,只有输入维度不符时返回错误。
func Solve(ac *admittance.AC, npv int, in Input, opt Options) (*Solution, error) {
	n := ac.Y.Rows()
	if len(in.P) != n || len(in.Q) != n || len(in.VMag) != n || (in.Seed != nil && len(in.Seed) != n) {
		return nil, fmt.Errorf("%d buses: %w", n, ErrDimension)
	}
	if npv < 0 || npv > n-1 {
		return nil, fmt.Errorf("%d PV buses for %d buses: %w", npv, n, ErrDimension)
	}
	m := &model{ac: ac, n: n, npv: npv, in: in, nAng: n - 1, nM: n - 1 - npv}

	sol := &Solution{Record: Record{State: Converged}}
	if n == 1 {
		sol.V = []complex128{complex(in.VMag[0], 0)}
	} else {
		x, rec := Newton(opt.Name, m.residual, m.jacobian, m.initial(), opt.Tolerance, opt.MaxIterations, opt.Debug)
		sol.V, sol.Record = m.voltages(x), rec
	}
	sol.S = m.power(sol.V)
	i0, i1 := ac.Y0.MulVec(sol.V), ac.Y1.MulVec(sol.V)
	sol.S0 = make([]complex128, len(ac.Params))
	sol.S1 = make([]complex128, len(ac.Params))
	for k, p := range ac.Params {
		sol.S0[k] = sol.V[p.Bus0] * cmplx.Conj(i0[k])
		sol.S1[k] = sol.V[p.Bus1] * cmplx.Conj(i1[k])
	}
	return sol, nil
}

// initial 初值:平启动或种子
func (m *model) initial() []float64 {
	x := make([]float64, m.nAng+m.nM)
	for i := m.nAng; i < len(x); i++ {
		x[i] = 1
	}
	if m.in.Seed == nil {
		return x
	}
	for i := 1; i < m.n; i++ {
		x[i-1] = cmplx.Phase(m.in.Seed[i])
	}
	for i := 1 + m.npv; i < m.n; i++ {
		if a := cmplx.Abs(m.in.Seed[i]); a > 0 {
			x[m.nAng+i-1-m.npv] = a
		}
	}
	return x
}

// voltages 由未知量组装母线电压,平衡母线相角固定为 0
func (m *model) voltages(x []float64) []complex128 {
	v := make([]complex128, m.n)
	for i := range m.n {
		mag, ang := m.in.VMag[i], 0.0
		if i > 0 {
			ang = x[i-1]
		}
		if i > m.npv {
			mag = x[m.nAng+i-1-m.npv]
		}
		v[i] = cmplx.Rect(mag, ang)
	}
	return v
}

// power S = V·conj(Y·V)
func (m *model) power(v []complex128) []complex128 {
	i := m.ac.Y.MulVec(v)
	s := make([]complex128, m.n)
	for k := range s {
		s[k] = v[k] * cmplx.Conj(i[k])
	}
	return s
}

// residual f(x) = [Re(ΔS) 非平衡母线; Im(ΔS) PQ 母线]
func (m *model) residual(x []float64) []float64 {
	s := m.power(m.voltages(x))
	f := make([]float64, m.nAng+m.nM)
	for i := 1; i < m.n; i++ {
		f[i-1] = real(s[i]) - m.in.P[i]
	}
	for i := 1 + m.npv; i < m.n; i++ {
		f[m.nAng+i-1-m.npv] = imag(s[i]) - m.in.Q[i]
	}
	return f
}

// jacobian 由导纳矩阵计算复功率偏导:
//
//	dS/dθ   = jV·conj(I - Y·V)
//	dS/d|V| = V·conj(Y·V/|V|) + conj(I)·V/|V|
//
// 对角项带电流项,非对角只含导纳项。
func (m *model) jacobian(x []float64) *mat.Dense {
	v := m.voltages(x)
	cur := m.ac.Y.MulVec(v)
	vn := make([]complex128, m.n)
	for i, vi := range v {
		vn[i] = vi / complex(cmplx.Abs(vi), 0)
	}
	size := m.nAng + m.nM
	jac := mat.NewDense(size, size, nil)
	set := func(r, c int, da, dm complex128) {
		if c >= 1 {
			if r >= 1 {
				jac.Set(r-1, c-1, real(da))
			}
			if r > m.npv {
				jac.Set(m.nAng+r-1-m.npv, c-1, imag(da))
			}
		}
		if c > m.npv {
			col := m.nAng + c - 1 - m.npv
			if r >= 1 {
				jac.Set(r-1, col, real(dm))
			}
			if r > m.npv {
				jac.Set(m.nAng+r-1-m.npv, col, imag(dm))
			}
		}
	}
	for r := range m.n {
		cols, vals := m.ac.Y.Row(r)
		diag := false
		for k, c := range cols {
			y := vals[k]
			da := 1i * v[r] * cmplx.Conj(-y*v[c])
			dm := v[r] * cmplx.Conj(y*vn[c])
			if c == r {
				da += 1i * v[r] * cmplx.Conj(cur[r])
				dm += cmplx.Conj(cur[r]) * vn[r]
				diag = true
			}
			set(r, c, da, dm)
		}
		if !diag {
			set(r, r, 1i*v[r]*cmplx.Conj(cur[r]), cmplx.Conj(cur[r])*vn[r])
		}
	}
	return jac
}
