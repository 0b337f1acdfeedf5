package graph

import (
	"fmt"

	"powerflow/network"
	"powerflow/types"
)

// FindSlackBus 确定子网的平衡发电机与平衡母线。
//
//	多台标记为 Slack 的发电机:取输入顺序第一台,其余降为 PV
//	没有 Slack 发电机:第一台发电机升为 Slack
//	没有发电机:第一条母线作为平衡母线,功率可能无法平衡
//
// 只写子网结构,不修改网络元件表。返回需要上报的警告。
func FindSlackBus(net *network.Network, sub *SubNetwork) (warnings []string) {
	sub.GeneratorControl = make(map[string]types.Control, len(sub.Generators))
	sub.SlackGenerator = types.SlackNone
	for _, name := range sub.Generators {
		g, _ := net.Generators.Get(name)
		control := g.Control
		if control == types.ControlSlack {
			if sub.SlackGenerator == types.SlackNone {
				sub.SlackGenerator = name
			} else {
				types.Debugf("sub-network %s: generator %s demoted from Slack to PV, slack is %s", sub.Name, name, sub.SlackGenerator)
				control = types.ControlPV
			}
		}
		sub.GeneratorControl[name] = control
	}
	if len(sub.Generators) == 0 {
		sub.SlackBus = sub.Buses[0]
		if len(sub.Buses) > 1 {
			warnings = append(warnings, fmt.Sprintf("sub-network %s has no generators, bus %s is slack and the network may not balance", sub.Name, sub.SlackBus))
		}
		return warnings
	}
	if sub.SlackGenerator == types.SlackNone {
		sub.SlackGenerator = sub.Generators[0]
		sub.GeneratorControl[sub.SlackGenerator] = types.ControlSlack
		types.Debugf("sub-network %s: no slack generator, %s promoted to Slack", sub.Name, sub.SlackGenerator)
	}
	g, _ := net.Generators.Get(sub.SlackGenerator)
	sub.SlackBus = g.Bus
	return warnings
}

// FindBusControls 按生效的发电机控制方式划分母线,
// 生成 BusesO = [平衡母线] + PV 母线 + PQ 母线,各组保持输入顺序。
// 必须在 FindSlackBus 之后调用。
func FindBusControls(net *network.Network, sub *SubNetwork) {
	sub.BusControl = make(map[string]types.Control, len(sub.Buses))
	sub.BusGenerator = map[string]string{}
	for _, name := range sub.Generators {
		if sub.GeneratorControl[name] != types.ControlPV {
			continue
		}
		g, _ := net.Generators.Get(name)
		if _, ok := sub.BusGenerator[g.Bus]; !ok && g.Bus != sub.SlackBus {
			sub.BusGenerator[g.Bus] = name
		}
	}
	if sub.SlackGenerator != types.SlackNone {
		sub.BusGenerator[sub.SlackBus] = sub.SlackGenerator
	}
	sub.PVs, sub.PQs = nil, nil
	for _, bus := range sub.Buses {
		switch _, pv := sub.BusGenerator[bus]; {
		case bus == sub.SlackBus:
			sub.BusControl[bus] = types.ControlSlack
		case pv:
			sub.BusControl[bus] = types.ControlPV
			sub.PVs = append(sub.PVs, bus)
		default:
			sub.BusControl[bus] = types.ControlPQ
			sub.PQs = append(sub.PQs, bus)
		}
	}
	sub.BusesO = make([]string, 0, len(sub.Buses))
	sub.BusesO = append(sub.BusesO, sub.SlackBus)
	sub.BusesO = append(sub.BusesO, sub.PVs...)
	sub.BusesO = append(sub.BusesO, sub.PQs...)
}
