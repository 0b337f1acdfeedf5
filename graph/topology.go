package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/topo"

	"powerflow/network"
	"powerflow/types"
)

// BranchRef 子网内的无源支路引用
type BranchRef struct {
	Kind       types.Kind
	Name       string
	Bus0, Bus1 string
}

// Key 支路唯一键
func (b BranchRef) Key() BranchKey { return BranchKey{Kind: b.Kind, Name: b.Name} }

// BranchKey 支路唯一键(类型+名称)
type BranchKey struct {
	Kind types.Kind
	Name string
}

// SubNetwork 同步孤岛:经无源支路连通的最大母线集合
type SubNetwork struct {
	Name    string
	Carrier types.Carrier

	Buses      []string    // 母线(输入顺序)
	Branches   []BranchRef // 支路,线路在前变压器在后
	Generators []string    // 投运发电机(输入顺序)

	// 控制方式,由 FindSlackBus/FindBusControls 填写
	SlackBus         string
	SlackGenerator   string
	BusesO           []string                 // 平衡节点 + PV + PQ
	PVs, PQs         []string                 // 电压控制/负荷节点
	BusControl       map[string]types.Control // 母线控制方式
	BusGenerator     map[string]string        // 母线的控制发电机
	GeneratorControl map[string]types.Control // 发电机生效的控制方式
}

// BusIndex BusesO 中的序号
func (sub *SubNetwork) BusIndex() map[string]int {
	idx := make(map[string]int, len(sub.BusesO))
	for i, b := range sub.BusesO {
		idx[b] = i
	}
	return idx
}

// Topology 子网划分结果
type Topology struct {
	SubNetworks []*SubNetwork
	BusSub      map[string]string    // 母线 -> 子网
	BranchSub   map[BranchKey]string // 支路 -> 子网
	Warnings    []string             // 诊断信息
}

// Sub 按名称获取子网
func (t *Topology) Sub(name string) (*SubNetwork, bool) {
	for _, s := range t.SubNetworks {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func (t *Topology) warn(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	t.Warnings = append(t.Warnings, msg)
	types.Warnf("%s", msg)
}

// Determine 划分同步孤岛并确定每个子网的母线控制方式。
// 只有投运的线路与变压器参与连通,链接不提供电气耦合。
// 子网按首条母线的输入顺序编号 "0","1",…,同一网络重复调用结果相同。
func Determine(net *network.Network) (*Topology, error) {
	if err := net.Validate(); err != nil {
		return nil, err
	}
	buses := net.Buses.All()
	var edges []Edge
	var refs []BranchRef
	for _, b := range net.PassiveBranches() {
		if !b.InService() {
			continue
		}
		bus0, bus1 := b.Terminals()
		i0, _ := net.Buses.Index(bus0)
		i1, _ := net.Buses.Index(bus1)
		edges = append(edges, Edge{Bus0: i0, Bus1: i1, Weight: 1})
		refs = append(refs, BranchRef{Kind: b.Kind(), Name: b.ID(), Bus0: bus0, Bus1: bus1})
	}
	g := NewBusGraph(len(buses), edges)

	// 连通分量,分量内按母线序号排序
	cc := topo.ConnectedComponents(g)
	comps := make([][]int, len(cc))
	for i, c := range cc {
		ids := make([]int, len(c))
		for j, n := range c {
			ids[j] = int(n.ID())
		}
		sort.Ints(ids)
		comps[i] = ids
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	compOf := make([]int, len(buses))
	for i, ids := range comps {
		for _, id := range ids {
			compOf[id] = i
		}
	}

	t := &Topology{
		BusSub:    make(map[string]string, len(buses)),
		BranchSub: make(map[BranchKey]string, len(refs)),
	}
	for i, ids := range comps {
		sub := &SubNetwork{Name: fmt.Sprint(i), Carrier: buses[ids[0]].Carrier}
		mixed := false
		for _, id := range ids {
			b := buses[id]
			sub.Buses = append(sub.Buses, b.Name)
			t.BusSub[b.Name] = sub.Name
			if b.Carrier != sub.Carrier {
				mixed = true
			}
		}
		if mixed {
			t.warn("sub-network %s contains buses with mixed carriers, power flow assumes %s", sub.Name, sub.Carrier)
		}
		if !sub.Carrier.IsElectric() && len(ids) > 1 {
			t.warn("sub-network %s has non-electric carrier %q and %d buses", sub.Name, sub.Carrier, len(ids))
		}
		t.SubNetworks = append(t.SubNetworks, sub)
	}
	// 支路按输入顺序归入子网
	for k, ref := range refs {
		sub := t.SubNetworks[compOf[edges[k].Bus0]]
		sub.Branches = append(sub.Branches, ref)
		t.BranchSub[ref.Key()] = sub.Name
	}
	for _, gen := range net.Generators.All() {
		if gen.OutOfService {
			continue
		}
		i, _ := net.Buses.Index(gen.Bus)
		sub := t.SubNetworks[compOf[i]]
		sub.Generators = append(sub.Generators, gen.Name)
	}
	for _, sub := range t.SubNetworks {
		for _, w := range FindSlackBus(net, sub) {
			t.warn("%s", w)
		}
		FindBusControls(net, sub)
	}
	return t, nil
}
