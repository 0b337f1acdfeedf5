package types

import "fmt"

// Kind 元件类型,封闭集合
type Kind uint8

// 元件类型常量定义
const (
	KindUnknown Kind = iota
	KindBus
	KindLine
	KindTransformer
	KindLink
	KindGenerator
	KindLoad
	KindStorageUnit
	KindStore
	KindShuntImpedance
)

// kindTable 元件映射
var kindTable = map[Kind]struct {
	Name    string
	Passive bool // 无源支路(参与拓扑)
	OnePort bool // 单端口元件
	Branch  bool // 双端口支路
}{
	KindUnknown:        {Name: "Unknown"},
	KindBus:            {Name: "Bus"},
	KindLine:           {Name: "Line", Passive: true, Branch: true},
	KindTransformer:    {Name: "Transformer", Passive: true, Branch: true},
	KindLink:           {Name: "Link", Branch: true},
	KindGenerator:      {Name: "Generator", OnePort: true},
	KindLoad:           {Name: "Load", OnePort: true},
	KindStorageUnit:    {Name: "StorageUnit", OnePort: true},
	KindStore:          {Name: "Store", OnePort: true},
	KindShuntImpedance: {Name: "ShuntImpedance", OnePort: true},
}

// PassiveBranchKinds 无源支路类型,顺序即支路排序
var PassiveBranchKinds = []Kind{KindLine, KindTransformer}

// OnePortKinds 单端口元件类型
var OnePortKinds = []Kind{KindGenerator, KindLoad, KindStorageUnit, KindStore, KindShuntImpedance}

// ControllableOnePortKinds 可按设定值调度的单端口元件
var ControllableOnePortKinds = []Kind{KindGenerator, KindLoad, KindStorageUnit, KindStore}

// String 返回元件类型的字符串表示
func (k Kind) String() string {
	if kt, ok := kindTable[k]; ok {
		return kt.Name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsPassiveBranch 是否无源支路
func (k Kind) IsPassiveBranch() bool { return kindTable[k].Passive }

// IsOnePort 是否单端口元件
func (k Kind) IsOnePort() bool { return kindTable[k].OnePort }

// IsBranch 是否双端口支路
func (k Kind) IsBranch() bool { return kindTable[k].Branch }

// ParseKind 通过名称获取类型
func ParseKind(name string) Kind {
	for k, kt := range kindTable {
		if kt.Name == name {
			return k
		}
	}
	return KindUnknown
}

// Carrier 能量载体
type Carrier string

// 常用载体
const (
	CarrierAC Carrier = "AC"
	CarrierDC Carrier = "DC"
)

// IsElectric 是否电气载体
func (c Carrier) IsElectric() bool { return c == CarrierAC || c == CarrierDC }

// Control 母线/发电机控制方式
type Control uint8

// 控制方式常量
const (
	ControlPQ    Control = iota // 负荷节点
	ControlPV                   // 电压控制节点
	ControlSlack                // 平衡节点
)

// String 控制方式名称
func (c Control) String() string {
	switch c {
	case ControlPV:
		return "PV"
	case ControlSlack:
		return "Slack"
	default:
		return "PQ"
	}
}

// ParseControl 解析控制方式,未知名称返回错误
func ParseControl(s string) (Control, error) {
	switch s {
	case "", "PQ":
		return ControlPQ, nil
	case "PV":
		return ControlPV, nil
	case "Slack":
		return ControlSlack, nil
	}
	return ControlPQ, fmt.Errorf("unknown control %q", s)
}
