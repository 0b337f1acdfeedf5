package network

import (
	"errors"
	"fmt"

	"powerflow/types"
)

// Validate 检查拓扑一致性:每个引用了不存在母线的元件各报告一次,
// 无源支路两端相同也视为错误。返回 errors.Join 合并后的错误。
func (n *Network) Validate() error {
	var errs []error
	check := func(c Component, end, bus string) {
		if _, ok := n.Buses.Get(bus); !ok {
			errs = append(errs, fmt.Errorf("%s %q %s %q: %w", c.Kind(), c.ID(), end, bus, ErrUnknownBus))
		}
	}
	for _, b := range n.PassiveBranches() {
		bus0, bus1 := b.Terminals()
		check(b, "bus0", bus0)
		check(b, "bus1", bus1)
		if bus0 == bus1 {
			errs = append(errs, fmt.Errorf("%s %q: %w", b.Kind(), b.ID(), ErrSelfLoop))
		}
	}
	for _, l := range n.Links.All() {
		check(l, "bus0", l.Bus0)
		check(l, "bus1", l.Bus1)
	}
	for _, kind := range types.OnePortKinds {
		for _, c := range n.OnePorts(kind) {
			check(c, "bus", c.BusName())
		}
	}
	return errors.Join(errs...)
}
