package network

import (
	"fmt"
	"math"
	"slices"

	"powerflow/types"
)

// Frame 时变数据表,按 (快照, 元件名称) 索引;未写入的值为 NaN
type Frame struct {
	net   *Network
	names []string             // 列插入顺序
	cols  map[string][]float64 // 列数据,长度等于快照数量
}

// Frame 获取时变数据表,不存在时创建
func (n *Network) Frame(kind types.Kind, attr string) *Frame {
	frames, ok := n.varying[kind]
	if !ok {
		frames = map[string]*Frame{}
		n.varying[kind] = frames
	}
	f, ok := frames[attr]
	if !ok {
		f = &Frame{net: n, cols: map[string][]float64{}}
		frames[attr] = f
	}
	return f
}

// LookupFrame 获取已存在的时变数据表
func (n *Network) LookupFrame(kind types.Kind, attr string) (*Frame, bool) {
	f, ok := n.varying[kind][attr]
	return f, ok
}

// Write 回写求解结果,元件必须存在
func (n *Network) Write(kind types.Kind, attr, snapshot, name string, v float64) error {
	if _, ok := n.Component(kind, name); !ok {
		return fmt.Errorf("%s %q: %w", kind, name, ErrUnknownComponent)
	}
	return n.Frame(kind, attr).Set(snapshot, name, v)
}

// Names 列名称(按写入顺序)
func (f *Frame) Names() []string { return append([]string(nil), f.names...) }

// column 获取或创建列
func (f *Frame) column(name string) []float64 {
	col, ok := f.cols[name]
	if !ok {
		col = make([]float64, len(f.net.snapshots))
		for i := range col {
			col[i] = math.NaN()
		}
		f.cols[name] = col
		f.names = append(f.names, name)
	}
	return col
}

// Set 设置单个值
func (f *Frame) Set(snapshot, name string, v float64) error {
	i, ok := f.net.snapshotIndex[snapshot]
	if !ok {
		return fmt.Errorf("%q: %w", snapshot, ErrUnknownSnapshot)
	}
	f.column(name)[i] = v
	return nil
}

// SetColumn 设置整列,长度必须等于快照数量
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.net.snapshots) {
		return fmt.Errorf("frame column %q: %d values for %d snapshots", name, len(values), len(f.net.snapshots))
	}
	copy(f.column(name), values)
	return nil
}

// Get 获取单个值,列不存在或值未写入时返回 false
func (f *Frame) Get(snapshot, name string) (float64, bool) {
	i, ok := f.net.snapshotIndex[snapshot]
	if !ok {
		return 0, false
	}
	col, ok := f.cols[name]
	if !ok || math.IsNaN(col[i]) {
		return 0, false
	}
	return col[i], true
}

// Has 是否存在列
func (f *Frame) Has(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// reindex 快照变更后重排数据
func (f *Frame) reindex(old, snapshots []string) {
	pos := make(map[string]int, len(old))
	for i, s := range old {
		pos[s] = i
	}
	for name, col := range f.cols {
		next := make([]float64, len(snapshots))
		for i, s := range snapshots {
			if j, ok := pos[s]; ok {
				next[i] = col[j]
			} else {
				next[i] = math.NaN()
			}
		}
		f.cols[name] = next
	}
}

// Series 稠密时序数据,Values[快照][元件]
type Series struct {
	Snapshots []string
	Names     []string
	Values    [][]float64
}

// Column 某元件的时序值
func (s *Series) Column(j int) []float64 {
	out := make([]float64, len(s.Snapshots))
	for i := range s.Snapshots {
		out[i] = s.Values[i][j]
	}
	return out
}

// Get 按 (快照, 元件) 取值
func (s *Series) Get(snapshot, name string) (float64, bool) {
	i, j := slices.Index(s.Snapshots, snapshot), slices.Index(s.Names, name)
	if i < 0 || j < 0 {
		return 0, false
	}
	return s.Values[i][j], true
}

// NewSeries 创建以 fill 填充的时序数据
func NewSeries(snapshots, names []string, fill float64) *Series {
	s := newSeries(snapshots, names)
	if fill != 0 {
		for _, row := range s.Values {
			for j := range row {
				row[j] = fill
			}
		}
	}
	return s
}

// newSeries 创建零值时序数据
func newSeries(snapshots, names []string) *Series {
	s := &Series{Snapshots: snapshots, Names: names, Values: make([][]float64, len(snapshots))}
	for i := range s.Values {
		s.Values[i] = make([]float64, len(names))
	}
	return s
}

// SwitchableAsDense 把可能为静态值或时变列的属性统一解析为稠密时序数据。
// 有时变列的元件取时变列,否则静态值广播到全部快照。names 为 nil 时取该类型全部元件。
func (n *Network) SwitchableAsDense(kind types.Kind, attr string, snapshots, names []string) (*Series, error) {
	snapshots, err := n.Select(snapshots)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = n.Names(kind)
	}
	out := newSeries(snapshots, names)
	f, hasFrame := n.LookupFrame(kind, attr)
	for j, name := range names {
		c, ok := n.Component(kind, name)
		if !ok {
			return nil, fmt.Errorf("%s %q: %w", kind, name, ErrUnknownComponent)
		}
		if hasFrame && f.Has(name) {
			col := f.cols[name]
			for i, s := range snapshots {
				out.Values[i][j] = col[n.snapshotIndex[s]]
			}
			continue
		}
		v, ok := c.Static(attr)
		if !ok {
			return nil, fmt.Errorf("%s %q attribute %q: %w", kind, name, attr, ErrAttribute)
		}
		for i := range snapshots {
			out.Values[i][j] = v
		}
	}
	return out, nil
}
