package network

import "powerflow/types"

// Balance 节点功率平衡:母线净注入及各元件的设定调度
type Balance struct {
	P, Q     *Series                // 母线净注入(按 Buses 顺序)
	OnePortP map[types.Kind]*Series // 单端口元件有功
	OnePortQ map[types.Kind]*Series // 单端口元件无功
	LinkP0   *Series                // 链接 bus0 侧取用功率
	LinkP1   *Series                // 链接 bus1 侧取用功率(负值为送出)
}

// NodalBalance 计算各母线净注入 p/q = Σ符号·设定值 - Σ链接端口功率。
// withShunts 为真时并联阻抗按额定电压(1 p.u.)计入有功,供线性潮流使用;
// 交流潮流中并联阻抗进入导纳矩阵,不计入注入。
func (n *Network) NodalBalance(snapshots []string, withShunts bool) (*Balance, error) {
	snapshots, err := n.Select(snapshots)
	if err != nil {
		return nil, err
	}
	buses := n.Buses.Names()
	bal := &Balance{
		P:        newSeries(snapshots, buses),
		Q:        newSeries(snapshots, buses),
		OnePortP: map[types.Kind]*Series{},
		OnePortQ: map[types.Kind]*Series{},
	}
	for _, kind := range types.ControllableOnePortKinds {
		ports := n.OnePorts(kind)
		names := make([]string, 0, len(ports))
		active := make([]OnePort, 0, len(ports))
		for _, c := range ports {
			if g, ok := c.(*Generator); ok && g.OutOfService {
				continue
			}
			names = append(names, c.ID())
			active = append(active, c)
		}
		p, err := n.SwitchableAsDense(kind, "p_set", snapshots, names)
		if err != nil {
			return nil, err
		}
		q, err := n.SwitchableAsDense(kind, "q_set", snapshots, names)
		if err != nil {
			return nil, err
		}
		bal.OnePortP[kind], bal.OnePortQ[kind] = p, q
		for j, c := range active {
			b, ok := n.Buses.Index(c.BusName())
			if !ok {
				continue
			}
			for i := range snapshots {
				bal.P.Values[i][b] += c.Sign() * p.Values[i][j]
				bal.Q.Values[i][b] += c.Sign() * q.Values[i][j]
			}
		}
	}
	if withShunts {
		shunts := n.ShuntImpedances.All()
		p := newSeries(snapshots, n.ShuntImpedances.Names())
		q := newSeries(snapshots, n.ShuntImpedances.Names())
		for j, s := range shunts {
			bus, ok := n.Buses.Get(s.Bus)
			if !ok {
				continue
			}
			b, _ := n.Buses.Index(s.Bus)
			g := s.G * bus.VNom * bus.VNom
			for i := range snapshots {
				p.Values[i][j] = g
				q.Values[i][j] = s.B * bus.VNom * bus.VNom
				bal.P.Values[i][b] += s.Sign() * g
			}
		}
		bal.OnePortP[types.KindShuntImpedance], bal.OnePortQ[types.KindShuntImpedance] = p, q
	}
	links := n.Links.Names()
	pset, err := n.SwitchableAsDense(types.KindLink, "p_set", snapshots, links)
	if err != nil {
		return nil, err
	}
	eff, err := n.SwitchableAsDense(types.KindLink, "efficiency", snapshots, links)
	if err != nil {
		return nil, err
	}
	bal.LinkP0, bal.LinkP1 = newSeries(snapshots, links), newSeries(snapshots, links)
	for j, l := range n.Links.All() {
		b0, ok0 := n.Buses.Index(l.Bus0)
		b1, ok1 := n.Buses.Index(l.Bus1)
		for i := range snapshots {
			p0 := pset.Values[i][j]
			p1 := -eff.Values[i][j] * p0
			bal.LinkP0.Values[i][j], bal.LinkP1.Values[i][j] = p0, p1
			if ok0 {
				bal.P.Values[i][b0] -= p0
			}
			if ok1 {
				bal.P.Values[i][b1] -= p1
			}
		}
	}
	return bal, nil
}
