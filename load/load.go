// Package load 从 YAML 算例加载电力网络。
package load

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"powerflow/network"
	"powerflow/types"
)

// Case 算例文件结构
type Case struct {
	Snapshots  []string           `yaml:"snapshots"`
	Weightings map[string]float64 `yaml:"weightings"`

	Buses           []Bus     `yaml:"buses"`
	Lines           []Branch  `yaml:"lines"`
	Transformers    []Branch  `yaml:"transformers"`
	Links           []Link    `yaml:"links"`
	Generators      []OnePort `yaml:"generators"`
	Loads           []OnePort `yaml:"loads"`
	StorageUnits    []OnePort `yaml:"storage_units"`
	Stores          []OnePort `yaml:"stores"`
	ShuntImpedances []OnePort `yaml:"shunt_impedances"`
	Series          []Varying `yaml:"series"`
}

// Bus 母线
type Bus struct {
	Name      string  `yaml:"name"`
	VNom      float64 `yaml:"v_nom"`
	Carrier   string  `yaml:"carrier"`
	VMagPuSet float64 `yaml:"v_mag_pu_set"`
}

// Branch 线路或变压器,变压器专有字段对线路无效
type Branch struct {
	Name         string  `yaml:"name"`
	Bus0         string  `yaml:"bus0"`
	Bus1         string  `yaml:"bus1"`
	R            float64 `yaml:"r"`
	X            float64 `yaml:"x"`
	G            float64 `yaml:"g"`
	B            float64 `yaml:"b"`
	SNom         float64 `yaml:"s_nom"`
	TapRatio     float64 `yaml:"tap_ratio"`
	TapSide      int     `yaml:"tap_side"`
	PhaseShift   float64 `yaml:"phase_shift"`
	Model        string  `yaml:"model"`
	OutOfService bool    `yaml:"out_of_service"`
}

// Link 链接
type Link struct {
	Name       string  `yaml:"name"`
	Bus0       string  `yaml:"bus0"`
	Bus1       string  `yaml:"bus1"`
	Efficiency float64 `yaml:"efficiency"`
	PSet       float64 `yaml:"p_set"`
}

// OnePort 单端口元件,G/B 只对并联阻抗有效,Control 只对发电机有效
type OnePort struct {
	Name         string  `yaml:"name"`
	Bus          string  `yaml:"bus"`
	Control      string  `yaml:"control"`
	PSet         float64 `yaml:"p_set"`
	QSet         float64 `yaml:"q_set"`
	G            float64 `yaml:"g"`
	B            float64 `yaml:"b"`
	OutOfService bool    `yaml:"out_of_service"`
}

// Varying 时变数据列,长度等于快照数量
type Varying struct {
	Component string    `yaml:"component"`
	Attr      string    `yaml:"attr"`
	Name      string    `yaml:"name"`
	Values    []float64 `yaml:"values"`
}

// LoadFile 加载算例文件
func LoadFile(path string) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	net, err := LoadNetwork(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return net, nil
}

// LoadString 加载算例文本
func LoadString(s string) (*network.Network, error) {
	return LoadNetwork(strings.NewReader(s))
}

// LoadNetwork 解码算例并建立网络。元件错误逐个收集后一起返回。
func LoadNetwork(r io.Reader) (*network.Network, error) {
	var c Case
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c.Network()
}

// Network 由算例建立网络
func (c *Case) Network() (*network.Network, error) {
	net := network.New()
	if len(c.Snapshots) > 0 {
		if err := net.SetSnapshots(c.Snapshots); err != nil {
			return nil, err
		}
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	for s, w := range c.Weightings {
		add(net.SetWeighting(s, w))
	}
	for _, b := range c.Buses {
		add(net.AddBus(&network.Bus{Name: b.Name, VNom: b.VNom, Carrier: types.Carrier(b.Carrier), VMagPuSet: b.VMagPuSet}))
	}
	for _, l := range c.Lines {
		add(net.AddLine(&network.Line{
			Name: l.Name, Bus0: l.Bus0, Bus1: l.Bus1,
			R: l.R, X: l.X, G: l.G, B: l.B, SNom: l.SNom, OutOfService: l.OutOfService,
		}))
	}
	for _, t := range c.Transformers {
		add(net.AddTransformer(&network.Transformer{
			Name: t.Name, Bus0: t.Bus0, Bus1: t.Bus1,
			R: t.R, X: t.X, G: t.G, B: t.B, SNom: t.SNom,
			TapRatio: t.TapRatio, TapSide: t.TapSide, PhaseShift: t.PhaseShift, Model: t.Model,
			OutOfService: t.OutOfService,
		}))
	}
	for _, l := range c.Links {
		add(net.AddLink(&network.Link{Name: l.Name, Bus0: l.Bus0, Bus1: l.Bus1, Efficiency: l.Efficiency, PSet: l.PSet}))
	}
	for _, g := range c.Generators {
		control, err := types.ParseControl(g.Control)
		if err != nil {
			add(fmt.Errorf("generator %q: %w", g.Name, err))
			continue
		}
		add(net.AddGenerator(&network.Generator{Name: g.Name, Bus: g.Bus, Control: control, PSet: g.PSet, QSet: g.QSet, OutOfService: g.OutOfService}))
	}
	for _, l := range c.Loads {
		add(net.AddLoad(&network.Load{Name: l.Name, Bus: l.Bus, PSet: l.PSet, QSet: l.QSet}))
	}
	for _, s := range c.StorageUnits {
		add(net.AddStorageUnit(&network.StorageUnit{Name: s.Name, Bus: s.Bus, PSet: s.PSet, QSet: s.QSet}))
	}
	for _, s := range c.Stores {
		add(net.AddStore(&network.Store{Name: s.Name, Bus: s.Bus, PSet: s.PSet, QSet: s.QSet}))
	}
	for _, s := range c.ShuntImpedances {
		add(net.AddShuntImpedance(&network.ShuntImpedance{Name: s.Name, Bus: s.Bus, G: s.G, B: s.B}))
	}
	for _, v := range c.Series {
		kind := types.ParseKind(v.Component)
		if _, ok := net.Component(kind, v.Name); !ok {
			add(fmt.Errorf("series %s %q: %w", v.Component, v.Name, network.ErrUnknownComponent))
			continue
		}
		add(net.Frame(kind, v.Attr).SetColumn(v.Name, v.Values))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return net, nil
}
