package powerflow

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"github.com/google/uuid"

	"powerflow/admittance"
	"powerflow/graph"
	"powerflow/lpf"
	"powerflow/network"
	"powerflow/pf"
	"powerflow/types"
)

// BranchFlows 支路两端流入支路的功率,Q 在线性潮流中为 NaN
type BranchFlows struct {
	P0, Q0, P1, Q1 *network.Series
}

// Result 一次潮流计算的结果。未求解的值为 NaN,不回写;
// 失败子网的元件结果为 NaN,回写时覆盖上次计算的值。
type Result struct {
	RunID       uuid.UUID
	Mode        Mode
	Formulation lpf.Formulation
	Snapshots   []string
	Topology    *graph.Topology
	Matrices    map[string]*admittance.Matrices // 子网 -> 矩阵,供外部优化层复用

	// 母线结果,列顺序同网络母线表
	VMagPu, VAng, P, Q *network.Series

	Branches map[types.Kind]*BranchFlows    // 线路、变压器、链接
	OnePortP map[types.Kind]*network.Series // 单端口元件调度
	OnePortQ map[types.Kind]*network.Series

	Convergence map[string][]pf.Record // 子网 -> 每个快照的收敛记录(交流)
	Errors      map[string]error       // 子网 -> 结构错误

	stale map[types.Kind]map[string]bool // 失败子网的元件
}

func newResult(net *network.Network, topo *graph.Topology, bal *network.Balance, snapshots []string, mode Mode, f lpf.Formulation) *Result {
	nan := math.NaN()
	buses := net.Buses.Names()
	res := &Result{
		RunID:       uuid.New(),
		Mode:        mode,
		Formulation: f,
		Snapshots:   snapshots,
		Topology:    topo,
		Matrices:    map[string]*admittance.Matrices{},
		VMagPu:      network.NewSeries(snapshots, buses, nan),
		VAng:        network.NewSeries(snapshots, buses, nan),
		P:           network.NewSeries(snapshots, buses, nan),
		Q:           network.NewSeries(snapshots, buses, nan),
		Branches:    map[types.Kind]*BranchFlows{},
		OnePortP:    bal.OnePortP,
		OnePortQ:    bal.OnePortQ,
		Convergence: map[string][]pf.Record{},
		Errors:      map[string]error{},
		stale:       map[types.Kind]map[string]bool{},
	}
	for _, kind := range types.PassiveBranchKinds {
		names := net.Names(kind)
		res.Branches[kind] = &BranchFlows{
			P0: network.NewSeries(snapshots, names, nan),
			Q0: network.NewSeries(snapshots, names, nan),
			P1: network.NewSeries(snapshots, names, nan),
			Q1: network.NewSeries(snapshots, names, nan),
		}
	}
	res.Branches[types.KindLink] = &BranchFlows{P0: bal.LinkP0, P1: bal.LinkP1}
	if mode == ModeLinear {
		// 线性潮流不计算无功
		res.OnePortQ = map[types.Kind]*network.Series{}
	} else {
		shunts := net.ShuntImpedances.Names()
		res.OnePortP[types.KindShuntImpedance] = network.NewSeries(snapshots, shunts, nan)
		res.OnePortQ[types.KindShuntImpedance] = network.NewSeries(snapshots, shunts, nan)
	}
	return res
}

// Err 全部子网错误,按子网名称排序
func (r *Result) Err() error {
	names := make([]string, 0, len(r.Errors))
	for name := range r.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, len(names))
	for i, name := range names {
		errs[i] = r.Errors[name]
	}
	return errors.Join(errs...)
}

// fail 记录子网错误,并标记子网内母线、支路与单端口元件的结果失效
func (r *Result) fail(net *network.Network, name string, err error) {
	r.Errors[name] = err
	sub, ok := r.Topology.Sub(name)
	if !ok {
		return
	}
	mark := func(kind types.Kind, n string) {
		if r.stale[kind] == nil {
			r.stale[kind] = map[string]bool{}
		}
		r.stale[kind][n] = true
	}
	for _, b := range sub.Buses {
		mark(types.KindBus, b)
	}
	for _, br := range sub.Branches {
		mark(br.Kind, br.Name)
	}
	for _, kind := range types.OnePortKinds {
		for _, op := range net.OnePorts(kind) {
			if r.Topology.BusSub[op.BusName()] == name {
				mark(kind, op.ID())
			}
		}
	}
}

// Converged 全部交流求解是否收敛
func (r *Result) Converged() bool {
	for _, records := range r.Convergence {
		for _, rec := range records {
			if !rec.Converged() {
				return false
			}
		}
	}
	return true
}

// branchIndex 支路在结果表中的列
func (r *Result) branchIndex(kind types.Kind, name string) (*BranchFlows, int) {
	bf := r.Branches[kind]
	for j, n := range bf.P0.Names {
		if n == name {
			return bf, j
		}
	}
	return bf, -1
}

// addOnePort 单端口元件调度修正,退出运行的元件不在表中
func addOnePort(s *network.Series, i int, name string, v float64) {
	if s == nil {
		return
	}
	for j, n := range s.Names {
		if n == name {
			s.Values[i][j] += v
			return
		}
	}
}

// mergeLinear 合并线性潮流:平衡发电机承担不平衡功率,bus1 侧潮流为 bus0 侧的相反数
func (r *Result) mergeLinear(bal *network.Balance, run *subRun) {
	dc := run.sub.Carrier == types.CarrierDC
	for i, flow := range run.flows {
		if flow == nil {
			continue
		}
		for k, b := range run.busIdx {
			r.P.Values[i][b] = flow.P[k]
			if dc {
				r.VMagPu.Values[i][b] = 1 + flow.Theta[k]
				r.VAng.Values[i][b] = 0
			} else {
				r.VAng.Values[i][b] = flow.Theta[k]
			}
		}
		for k, p := range run.m.Params {
			bf, j := r.branchIndex(p.Kind, p.Name)
			if j < 0 {
				continue
			}
			bf.P0.Values[i][j] = flow.P0[k]
			bf.P1.Values[i][j] = -flow.P0[k]
		}
		if g := run.sub.SlackGenerator; g != types.SlackNone {
			residual := flow.SlackP - bal.P.Values[i][run.busIdx[0]]
			addOnePort(r.OnePortP[types.KindGenerator], i, g, residual)
		}
	}
}

// mergeAC 合并交流潮流:平衡发电机承担 p/q 残差,PV 发电机承担所在母线的 q 残差
func (r *Result) mergeAC(net *network.Network, topo *graph.Topology, bal *network.Balance, run *subRun) {
	sub := run.sub
	busO := sub.BusIndex()
	for i, sol := range run.sols {
		if sol == nil {
			continue
		}
		r.Convergence[sub.Name][i] = sol.Record
		for k, b := range run.busIdx {
			r.VMagPu.Values[i][b] = cmplx.Abs(sol.V[k])
			r.VAng.Values[i][b] = cmplx.Phase(sol.V[k])
			r.P.Values[i][b] = real(sol.S[k])
			r.Q.Values[i][b] = imag(sol.S[k])
		}
		for k, p := range run.m.Params {
			bf, j := r.branchIndex(p.Kind, p.Name)
			if j < 0 {
				continue
			}
			bf.P0.Values[i][j], bf.Q0.Values[i][j] = real(sol.S0[k]), imag(sol.S0[k])
			bf.P1.Values[i][j], bf.Q1.Values[i][j] = real(sol.S1[k]), imag(sol.S1[k])
		}
		gp, gq := r.OnePortP[types.KindGenerator], r.OnePortQ[types.KindGenerator]
		if g := sub.SlackGenerator; g != types.SlackNone {
			b := run.busIdx[0]
			addOnePort(gp, i, g, real(sol.S[0])-bal.P.Values[i][b])
			addOnePort(gq, i, g, imag(sol.S[0])-bal.Q.Values[i][b])
		}
		for k := 1; k <= len(sub.PVs); k++ {
			if g, ok := sub.BusGenerator[sub.BusesO[k]]; ok {
				addOnePort(gq, i, g, imag(sol.S[k])-bal.Q.Values[i][run.busIdx[k]])
			}
		}
		sp, sq := r.OnePortP[types.KindShuntImpedance], r.OnePortQ[types.KindShuntImpedance]
		for j, sh := range net.ShuntImpedances.All() {
			if topo.BusSub[sh.Bus] != sub.Name {
				continue
			}
			bus, _ := net.Buses.Get(sh.Bus)
			vm := cmplx.Abs(sol.V[busO[sh.Bus]]) * bus.VNom
			sp.Values[i][j] = vm * vm * sh.G
			sq.Values[i][j] = -vm * vm * sh.B
		}
	}
}

// write 回写结果。失效元件置 NaN 并覆盖旧值,其余 NaN 不回写。
func (r *Result) write(net *network.Network) error {
	var errs []error
	put := func(kind types.Kind, attr string, s *network.Series) {
		if s == nil {
			return
		}
		stale := r.stale[kind]
		for i, snap := range s.Snapshots {
			for j, name := range s.Names {
				if stale[name] {
					s.Values[i][j] = math.NaN()
				} else if math.IsNaN(s.Values[i][j]) {
					continue
				}
				errs = append(errs, net.Write(kind, attr, snap, name, s.Values[i][j]))
			}
		}
	}
	put(types.KindBus, "v_mag_pu", r.VMagPu)
	put(types.KindBus, "v_ang", r.VAng)
	put(types.KindBus, "p", r.P)
	put(types.KindBus, "q", r.Q)
	for _, kind := range []types.Kind{types.KindLine, types.KindTransformer, types.KindLink} {
		bf := r.Branches[kind]
		put(kind, "p0", bf.P0)
		put(kind, "q0", bf.Q0)
		put(kind, "p1", bf.P1)
		put(kind, "q1", bf.Q1)
	}
	for _, kind := range types.OnePortKinds {
		put(kind, "p", r.OnePortP[kind])
		put(kind, "q", r.OnePortQ[kind])
	}
	return errors.Join(errs...)
}
