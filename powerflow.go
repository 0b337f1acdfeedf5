// Package powerflow 电力网络潮流计算入口。
//
// 一次计算依次完成:拓扑划分 -> 子网矩阵构建 -> (子网 × 快照) 并行求解 -> 合并与回写。
// 矩阵在求解阶段只读共享,每个求解任务只写自己的结果槽,回写在全部任务结束后进行。
package powerflow

import (
	"context"
	"errors"
	"fmt"
	"math/cmplx"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"powerflow/admittance"
	"powerflow/config"
	"powerflow/graph"
	"powerflow/lpf"
	"powerflow/network"
	"powerflow/pf"
	"powerflow/pf/debug"
	"powerflow/types"
)

// Mode 潮流类型
type Mode uint8

// 潮流类型常量
const (
	ModeLinear Mode = iota // 线性潮流
	ModeAC                 // 牛顿-拉夫逊交流潮流
)

// String 潮流类型名称
func (m Mode) String() string {
	if m == ModeAC {
		return "pf"
	}
	return "lpf"
}

// ParseMode 解析潮流类型
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "lpf", "linear":
		return ModeLinear, nil
	case "pf", "ac":
		return ModeAC, nil
	}
	return ModeLinear, fmt.Errorf("unknown power flow mode %q", s)
}

// Solver 潮流求解器
type Solver struct {
	Options config.Options
	Debug   pf.Debug // 迭代残差记录,nil 为关闭
}

// NewSolver 创建求解器。开启调试或指定曲线输出时记录每次迭代的残差。
func NewSolver(opts config.Options) (*Solver, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{Options: opts}
	if opts.Debug {
		types.SetDebug(true)
	}
	if opts.Debug || opts.ChartPath != "" {
		s.Debug = debug.NewCharts("power flow mismatch")
	}
	return s, nil
}

// LPF 线性潮流,snapshots 为 nil 时计算全部快照
func (s *Solver) LPF(ctx context.Context, net *network.Network, snapshots []string) (*Result, error) {
	return s.Run(ctx, net, snapshots, ModeLinear)
}

// PF 交流潮流,snapshots 为 nil 时计算全部快照
func (s *Solver) PF(ctx context.Context, net *network.Network, snapshots []string) (*Result, error) {
	return s.Run(ctx, net, snapshots, ModeAC)
}

// subRun 单个子网的求解上下文,结果槽按快照预分配
type subRun struct {
	sub    *graph.SubNetwork
	m      *admittance.Matrices
	busIdx []int           // BusesO -> 网络母线序号
	vmag   *network.Series // 电压设定(交流)
	seeds  [][]complex128  // 初值(交流)
	flows  []*lpf.Flow
	sols   []*pf.Solution
	errs   []error
}

// Run 执行潮流计算并把结果回写到网络时变数据。
// 结构错误(零阻抗、奇异矩阵、载体不符)只影响所在子网,记录在 Result.Errors 中。
// 只有网络数据错误、上下文取消与回写失败作为错误返回。
func (s *Solver) Run(ctx context.Context, net *network.Network, snapshots []string, mode Mode) (*Result, error) {
	snapshots, err := net.Select(snapshots)
	if err != nil {
		return nil, err
	}
	topo, err := graph.Determine(net)
	if err != nil {
		return nil, err
	}
	bal, err := net.NodalBalance(snapshots, mode == ModeLinear)
	if err != nil {
		return nil, err
	}
	res := newResult(net, topo, bal, snapshots, mode, s.Options.LinearFormulation())
	types.Debugf("run %s: %s over %d sub-networks and %d snapshots", res.RunID, mode, len(topo.SubNetworks), len(snapshots))

	runs, err := s.prepare(net, topo, snapshots, mode, res)
	if err != nil {
		return nil, err
	}
	if err := s.solve(ctx, bal, runs, mode); err != nil {
		return nil, err
	}
	for _, r := range runs {
		if mode == ModeAC {
			res.mergeAC(net, topo, bal, r)
		} else {
			res.mergeLinear(bal, r)
		}
		if err := errors.Join(r.errs...); err != nil {
			res.fail(net, r.sub.Name, err)
		}
	}
	return res, res.write(net)
}

// prepare 按子网构建矩阵,构建失败的子网记录错误后跳过
func (s *Solver) prepare(net *network.Network, topo *graph.Topology, snapshots []string, mode Mode, res *Result) ([]*subRun, error) {
	want := res.Formulation.Want()
	if mode == ModeAC {
		want = admittance.WantAC
	}
	var runs []*subRun
	for _, sub := range topo.SubNetworks {
		if !sub.Carrier.IsElectric() {
			types.Debugf("sub-network %s: carrier %q skipped", sub.Name, sub.Carrier)
			continue
		}
		m, err := admittance.Build(net, sub, want)
		if err != nil {
			res.fail(net, sub.Name, err)
			types.Warnf("sub-network %s: %v", sub.Name, err)
			continue
		}
		res.Matrices[sub.Name] = m
		r := &subRun{
			sub:    sub,
			m:      m,
			busIdx: make([]int, len(sub.BusesO)),
			flows:  make([]*lpf.Flow, len(snapshots)),
			sols:   make([]*pf.Solution, len(snapshots)),
			errs:   make([]error, len(snapshots)),
		}
		for k, b := range sub.BusesO {
			r.busIdx[k], _ = net.Buses.Index(b)
		}
		if mode == ModeAC {
			if r.vmag, err = net.SwitchableAsDense(types.KindBus, "v_mag_pu_set", snapshots, sub.BusesO); err != nil {
				return nil, err
			}
			r.seeds = make([][]complex128, len(snapshots))
			if s.Options.UseSeed {
				for i, snap := range snapshots {
					r.seeds[i] = seed(net, sub.BusesO, snap)
				}
			}
			res.Convergence[sub.Name] = make([]pf.Record, len(snapshots))
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// solve 以 (子网, 快照) 为单位并行求解
func (s *Solver) solve(ctx context.Context, bal *network.Balance, runs []*subRun, mode Mode) error {
	workers := s.Options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, r := range runs {
		for i := range bal.P.Snapshots {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if mode == ModeAC {
					r.errs[i] = s.solveAC(bal, r, i)
				} else {
					r.errs[i] = s.solveLinear(bal, r, i)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// injections 子网在某快照的母线注入,按 BusesO 排序
func injections(s *network.Series, r *subRun, i int) []float64 {
	out := make([]float64, len(r.busIdx))
	for k, b := range r.busIdx {
		out[k] = s.Values[i][b]
	}
	return out
}

func (s *Solver) solveLinear(bal *network.Balance, r *subRun, i int) error {
	flow, err := lpf.Solve(r.m, s.Options.LinearFormulation(), injections(bal.P, r, i))
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", bal.P.Snapshots[i], err)
	}
	r.flows[i] = flow
	return nil
}

func (s *Solver) solveAC(bal *network.Balance, r *subRun, i int) error {
	snap := bal.P.Snapshots[i]
	in := pf.Input{
		P:    injections(bal.P, r, i),
		Q:    injections(bal.Q, r, i),
		VMag: r.vmag.Values[i],
		Seed: r.seeds[i],
	}
	sol, err := pf.Solve(r.m.AC, len(r.sub.PVs), in, pf.Options{
		Name:          snap + "/" + r.sub.Name,
		Tolerance:     s.Options.Tolerance,
		MaxIterations: s.Options.MaxIterations,
		Debug:         s.Debug,
	})
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", snap, err)
	}
	if !sol.Converged() {
		types.Warnf("snapshot %s sub-network %s: %s after %d iterations, error %g", snap, r.sub.Name, sol.State, sol.Iterations, sol.Error)
	}
	r.sols[i] = sol
	return nil
}

// seed 上次回写的电压作为初值,任一母线缺值时平启动
func seed(net *network.Network, buses []string, snapshot string) []complex128 {
	mag, ok := net.LookupFrame(types.KindBus, "v_mag_pu")
	if !ok {
		return nil
	}
	ang, ok := net.LookupFrame(types.KindBus, "v_ang")
	if !ok {
		return nil
	}
	v := make([]complex128, len(buses))
	for k, b := range buses {
		m, okm := mag.Get(snapshot, b)
		a, oka := ang.Get(snapshot, b)
		if !okm || !oka {
			return nil
		}
		v[k] = cmplx.Rect(m, a)
	}
	return v
}
