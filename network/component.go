package network

import "powerflow/types"

// Component 元件底层接口
type Component interface {
	Kind() types.Kind                   // 元件类型
	ID() string                         // 元件名称
	Static(attr string) (float64, bool) // 静态属性值
}

// Branch 双端口支路
type Branch interface {
	Component
	Terminals() (bus0, bus1 string) // 两端母线
}

// PassiveBranch 无源(阻抗)支路,参与拓扑划分
type PassiveBranch interface {
	Branch
	InService() bool // 是否投运
}

// OnePort 单端口元件
type OnePort interface {
	Component
	BusName() string // 连接母线
	Sign() float64   // 注入符号:发电 +1,负荷 -1
}

// Bus 母线
type Bus struct {
	Name      string
	VNom      float64       // 额定电压 kV
	Carrier   types.Carrier // 载体
	VMagPuSet float64       // 电压幅值设定 p.u.
}

func (b *Bus) Kind() types.Kind { return types.KindBus }
func (b *Bus) ID() string       { return b.Name }

// Static 静态属性值
func (b *Bus) Static(attr string) (float64, bool) {
	switch attr {
	case "v_nom":
		return b.VNom, true
	case "v_mag_pu_set":
		return b.VMagPuSet, true
	}
	return 0, false
}

// Line 线路,阻抗为欧姆值
type Line struct {
	Name         string
	Bus0, Bus1   string
	R, X         float64 // 串联电阻/电抗 Ohm
	G, B         float64 // 并联电导/电纳 Siemens
	SNom         float64 // 额定容量 MVA
	OutOfService bool
}

func (l *Line) Kind() types.Kind               { return types.KindLine }
func (l *Line) ID() string                     { return l.Name }
func (l *Line) Terminals() (bus0, bus1 string) { return l.Bus0, l.Bus1 }
func (l *Line) InService() bool                { return !l.OutOfService }

// Static 静态属性值
func (l *Line) Static(attr string) (float64, bool) {
	switch attr {
	case "r":
		return l.R, true
	case "x":
		return l.X, true
	case "g":
		return l.G, true
	case "b":
		return l.B, true
	case "s_nom":
		return l.SNom, true
	}
	return 0, false
}

// Transformer 变压器,阻抗为额定容量下的标幺值
type Transformer struct {
	Name         string
	Bus0, Bus1   string
	R, X         float64
	G, B         float64
	SNom         float64
	TapRatio     float64 // 变比,0 视为 1
	TapSide      int     // 0: 分接头在 bus0 侧, 1: 在 bus1 侧
	PhaseShift   float64 // 相移(度)
	Model        string  // "t" 或 "pi"
	OutOfService bool
}

func (t *Transformer) Kind() types.Kind               { return types.KindTransformer }
func (t *Transformer) ID() string                     { return t.Name }
func (t *Transformer) Terminals() (bus0, bus1 string) { return t.Bus0, t.Bus1 }
func (t *Transformer) InService() bool                { return !t.OutOfService }

// Static 静态属性值
func (t *Transformer) Static(attr string) (float64, bool) {
	switch attr {
	case "r":
		return t.R, true
	case "x":
		return t.X, true
	case "g":
		return t.G, true
	case "b":
		return t.B, true
	case "s_nom":
		return t.SNom, true
	case "tap_ratio":
		return t.TapRatio, true
	case "tap_side":
		return float64(t.TapSide), true
	case "phase_shift":
		return t.PhaseShift, true
	}
	return 0, false
}

// Link 可控直流/能量链接,不提供电气耦合
type Link struct {
	Name       string
	Bus0, Bus1 string
	Efficiency float64
	PSet       float64 // bus0 侧取用功率
}

func (l *Link) Kind() types.Kind               { return types.KindLink }
func (l *Link) ID() string                     { return l.Name }
func (l *Link) Terminals() (bus0, bus1 string) { return l.Bus0, l.Bus1 }

// Static 静态属性值
func (l *Link) Static(attr string) (float64, bool) {
	switch attr {
	case "p_set":
		return l.PSet, true
	case "efficiency":
		return l.Efficiency, true
	}
	return 0, false
}

// Generator 发电机
type Generator struct {
	Name         string
	Bus          string
	Control      types.Control
	PSet, QSet   float64
	OutOfService bool
}

func (g *Generator) Kind() types.Kind { return types.KindGenerator }
func (g *Generator) ID() string       { return g.Name }
func (g *Generator) BusName() string  { return g.Bus }
func (g *Generator) Sign() float64    { return 1 }

// Static 静态属性值
func (g *Generator) Static(attr string) (float64, bool) { return setpoint(attr, g.PSet, g.QSet) }

// Load 负荷
type Load struct {
	Name       string
	Bus        string
	PSet, QSet float64
}

func (l *Load) Kind() types.Kind                   { return types.KindLoad }
func (l *Load) ID() string                         { return l.Name }
func (l *Load) BusName() string                    { return l.Bus }
func (l *Load) Sign() float64                      { return -1 }
func (l *Load) Static(attr string) (float64, bool) { return setpoint(attr, l.PSet, l.QSet) }

// StorageUnit 储能单元
type StorageUnit struct {
	Name       string
	Bus        string
	PSet, QSet float64
}

func (s *StorageUnit) Kind() types.Kind                   { return types.KindStorageUnit }
func (s *StorageUnit) ID() string                         { return s.Name }
func (s *StorageUnit) BusName() string                    { return s.Bus }
func (s *StorageUnit) Sign() float64                      { return 1 }
func (s *StorageUnit) Static(attr string) (float64, bool) { return setpoint(attr, s.PSet, s.QSet) }

// Store 能量存储
type Store struct {
	Name       string
	Bus        string
	PSet, QSet float64
}

func (s *Store) Kind() types.Kind                   { return types.KindStore }
func (s *Store) ID() string                         { return s.Name }
func (s *Store) BusName() string                    { return s.Bus }
func (s *Store) Sign() float64                      { return 1 }
func (s *Store) Static(attr string) (float64, bool) { return setpoint(attr, s.PSet, s.QSet) }

// ShuntImpedance 并联阻抗,G/B 为 Siemens
type ShuntImpedance struct {
	Name string
	Bus  string
	G, B float64
}

func (s *ShuntImpedance) Kind() types.Kind { return types.KindShuntImpedance }
func (s *ShuntImpedance) ID() string       { return s.Name }
func (s *ShuntImpedance) BusName() string  { return s.Bus }
func (s *ShuntImpedance) Sign() float64    { return -1 }

// Static 静态属性值
func (s *ShuntImpedance) Static(attr string) (float64, bool) {
	switch attr {
	case "g":
		return s.G, true
	case "b":
		return s.B, true
	}
	return 0, false
}

func setpoint(attr string, p, q float64) (float64, bool) {
	switch attr {
	case "p_set":
		return p, true
	case "q_set":
		return q, true
	}
	return 0, false
}
