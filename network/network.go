// Package network 持有电力网络的元件表、快照与时变数据。
//
// 网络由导入例程填充,求解结果只通过 Write 回写到时变数据中;
// 矩阵构建与求解过程只读访问网络。
package network

import (
	"fmt"

	"powerflow/types"
)

// Network 电力网络
type Network struct {
	Buses           *Table[*Bus]
	Lines           *Table[*Line]
	Transformers    *Table[*Transformer]
	Links           *Table[*Link]
	Generators      *Table[*Generator]
	Loads           *Table[*Load]
	StorageUnits    *Table[*StorageUnit]
	Stores          *Table[*Store]
	ShuntImpedances *Table[*ShuntImpedance]

	snapshots     []string                         // 有序快照
	snapshotIndex map[string]int                   // 快照索引
	weightings    []float64                        // 快照权重
	varying       map[types.Kind]map[string]*Frame // 时变数据
}

// New 创建只有默认快照的空网络
func New() *Network {
	n := &Network{
		Buses:           NewTable[*Bus](),
		Lines:           NewTable[*Line](),
		Transformers:    NewTable[*Transformer](),
		Links:           NewTable[*Link](),
		Generators:      NewTable[*Generator](),
		Loads:           NewTable[*Load](),
		StorageUnits:    NewTable[*StorageUnit](),
		Stores:          NewTable[*Store](),
		ShuntImpedances: NewTable[*ShuntImpedance](),
		varying:         map[types.Kind]map[string]*Frame{},
	}
	n.snapshots = []string{types.DefaultSnapshot}
	n.snapshotIndex = map[string]int{types.DefaultSnapshot: 0}
	n.weightings = []float64{1}
	return n
}

// ------------------------------ 元件添加 ------------------------------

// AddBus 添加母线,额定电压与电压设定缺省为 1,载体缺省为 AC
func (n *Network) AddBus(b *Bus) error {
	if b.VNom == 0 {
		b.VNom = 1
	}
	if b.VMagPuSet == 0 {
		b.VMagPuSet = 1
	}
	if b.Carrier == "" {
		b.Carrier = types.CarrierAC
	}
	return n.Buses.Add(b)
}

// AddLine 添加线路,额定容量缺省为 1
func (n *Network) AddLine(l *Line) error {
	if l.SNom == 0 {
		l.SNom = 1
	}
	return n.Lines.Add(l)
}

// AddTransformer 添加变压器,变比缺省为 1,模型缺省为 t
func (n *Network) AddTransformer(t *Transformer) error {
	if t.SNom == 0 {
		t.SNom = 1
	}
	if t.TapRatio == 0 {
		t.TapRatio = 1
	}
	if t.Model == "" {
		t.Model = "t"
	}
	if t.Model != "t" && t.Model != "pi" {
		return fmt.Errorf("transformer %q: unknown model %q", t.Name, t.Model)
	}
	return n.Transformers.Add(t)
}

// AddLink 添加链接,效率缺省为 1
func (n *Network) AddLink(l *Link) error {
	if l.Efficiency == 0 {
		l.Efficiency = 1
	}
	return n.Links.Add(l)
}

// AddGenerator 添加发电机
func (n *Network) AddGenerator(g *Generator) error { return n.Generators.Add(g) }

// AddLoad 添加负荷
func (n *Network) AddLoad(l *Load) error { return n.Loads.Add(l) }

// AddStorageUnit 添加储能单元
func (n *Network) AddStorageUnit(s *StorageUnit) error { return n.StorageUnits.Add(s) }

// AddStore 添加能量存储
func (n *Network) AddStore(s *Store) error { return n.Stores.Add(s) }

// AddShuntImpedance 添加并联阻抗
func (n *Network) AddShuntImpedance(s *ShuntImpedance) error { return n.ShuntImpedances.Add(s) }

// ------------------------------ 按类型访问 ------------------------------

// table 按类型分派到元件表
func (n *Network) table(kind types.Kind) componentTable {
	switch kind {
	case types.KindBus:
		return n.Buses
	case types.KindLine:
		return n.Lines
	case types.KindTransformer:
		return n.Transformers
	case types.KindLink:
		return n.Links
	case types.KindGenerator:
		return n.Generators
	case types.KindLoad:
		return n.Loads
	case types.KindStorageUnit:
		return n.StorageUnits
	case types.KindStore:
		return n.Stores
	case types.KindShuntImpedance:
		return n.ShuntImpedances
	}
	return nil
}

// Component 按类型与名称获取元件
func (n *Network) Component(kind types.Kind, name string) (Component, bool) {
	t := n.table(kind)
	if t == nil {
		return nil, false
	}
	return t.lookup(name)
}

// Names 某类型全部元件名称
func (n *Network) Names(kind types.Kind) []string {
	t := n.table(kind)
	if t == nil {
		return nil
	}
	return t.Names()
}

// OnePorts 某类型全部单端口元件(按插入顺序)
func (n *Network) OnePorts(kind types.Kind) []OnePort {
	var out []OnePort
	switch kind {
	case types.KindGenerator:
		for _, c := range n.Generators.All() {
			out = append(out, c)
		}
	case types.KindLoad:
		for _, c := range n.Loads.All() {
			out = append(out, c)
		}
	case types.KindStorageUnit:
		for _, c := range n.StorageUnits.All() {
			out = append(out, c)
		}
	case types.KindStore:
		for _, c := range n.Stores.All() {
			out = append(out, c)
		}
	case types.KindShuntImpedance:
		for _, c := range n.ShuntImpedances.All() {
			out = append(out, c)
		}
	}
	return out
}

// PassiveBranches 全部无源支路,线路在前变压器在后
func (n *Network) PassiveBranches() []PassiveBranch {
	out := make([]PassiveBranch, 0, n.Lines.Len()+n.Transformers.Len())
	for _, l := range n.Lines.All() {
		out = append(out, l)
	}
	for _, t := range n.Transformers.All() {
		out = append(out, t)
	}
	return out
}

// ------------------------------ 快照 ------------------------------

// Snapshots 有序快照(副本)
func (n *Network) Snapshots() []string { return append([]string(nil), n.snapshots...) }

// SnapshotIndex 快照序号
func (n *Network) SnapshotIndex(s string) (int, bool) {
	i, ok := n.snapshotIndex[s]
	return i, ok
}

// Weighting 快照权重
func (n *Network) Weighting(s string) (float64, error) {
	i, ok := n.snapshotIndex[s]
	if !ok {
		return 0, fmt.Errorf("%q: %w", s, ErrUnknownSnapshot)
	}
	return n.weightings[i], nil
}

// SetWeighting 设置快照权重(时长/倍数)
func (n *Network) SetWeighting(s string, w float64) error {
	i, ok := n.snapshotIndex[s]
	if !ok {
		return fmt.Errorf("%q: %w", s, ErrUnknownSnapshot)
	}
	n.weightings[i] = w
	return nil
}

// SetSnapshots 设置快照序列,重复快照报错;保留快照的时变数据与权重沿用,新快照置空
func (n *Network) SetSnapshots(snapshots []string) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("network: empty snapshot list")
	}
	index := make(map[string]int, len(snapshots))
	for i, s := range snapshots {
		if _, ok := index[s]; ok {
			return fmt.Errorf("snapshot %q: %w", s, ErrDuplicate)
		}
		index[s] = i
	}
	weightings := make([]float64, len(snapshots))
	for i, s := range snapshots {
		weightings[i] = 1
		if j, ok := n.snapshotIndex[s]; ok {
			weightings[i] = n.weightings[j]
		}
	}
	for _, frames := range n.varying {
		for _, f := range frames {
			f.reindex(n.snapshots, snapshots)
		}
	}
	n.snapshots = append([]string(nil), snapshots...)
	n.snapshotIndex = index
	n.weightings = weightings
	return nil
}

// Select 解析快照选择,nil 表示全部快照
func (n *Network) Select(snapshots []string) ([]string, error) {
	if snapshots == nil {
		return n.Snapshots(), nil
	}
	for _, s := range snapshots {
		if _, ok := n.snapshotIndex[s]; !ok {
			return nil, fmt.Errorf("%q: %w", s, ErrUnknownSnapshot)
		}
	}
	return append([]string(nil), snapshots...), nil
}
