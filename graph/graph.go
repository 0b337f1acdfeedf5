// Package graph 电气拓扑:母线图、子网划分、母线控制方式与生成树/回路基。
package graph

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// Edge 支路端点(母线序号)与权重
type Edge struct {
	Bus0, Bus1 int
	Weight     float64
}

// Pair 一对母线之间的全部并联支路
type Pair struct {
	U, V     int64   // 端点,U < V
	Branches []int   // 支路序号(输入顺序)
	Rep      int     // 代表支路:权重最小者,相同时取第一条
	Weight   float64 // 代表支路权重
}

// BusGraph 确定性无向图。节点与邻接按输入顺序迭代,
// 并联支路合并为一条简单边,原始支路记录在 Pair 中。
type BusGraph struct {
	nodes []graph.Node
	adj   [][]graph.Node
	pairs map[[2]int64]*Pair
	order []*Pair
	edges []Edge
}

var _ graph.WeightedUndirected = (*BusGraph)(nil)

// NewBusGraph 由母线数量与支路列表创建图,自环支路被忽略
func NewBusGraph(nodes int, edges []Edge) *BusGraph {
	g := &BusGraph{
		nodes: make([]graph.Node, nodes),
		adj:   make([][]graph.Node, nodes),
		pairs: map[[2]int64]*Pair{},
		edges: edges,
	}
	for i := range nodes {
		g.nodes[i] = simple.Node(i)
	}
	for k, e := range edges {
		if e.Bus0 == e.Bus1 {
			continue
		}
		key := pairKey(int64(e.Bus0), int64(e.Bus1))
		p, ok := g.pairs[key]
		if !ok {
			p = &Pair{U: key[0], V: key[1], Rep: k, Weight: e.Weight}
			g.pairs[key] = p
			g.order = append(g.order, p)
			g.adj[e.Bus0] = append(g.adj[e.Bus0], simple.Node(e.Bus1))
			g.adj[e.Bus1] = append(g.adj[e.Bus1], simple.Node(e.Bus0))
		} else if e.Weight < p.Weight {
			p.Rep, p.Weight = k, e.Weight
		}
		p.Branches = append(p.Branches, k)
	}
	return g
}

func pairKey(x, y int64) [2]int64 {
	if x > y {
		x, y = y, x
	}
	return [2]int64{x, y}
}

// Pairs 全部母线对(首次出现顺序)
func (g *BusGraph) Pairs() []*Pair { return g.order }

// PairBetween 获取母线对
func (g *BusGraph) PairBetween(x, y int64) (*Pair, bool) {
	p, ok := g.pairs[pairKey(x, y)]
	return p, ok
}

// Branch 第 k 条支路
func (g *BusGraph) Branch(k int) Edge { return g.edges[k] }

// Degree 节点的简单图度数
func (g *BusGraph) Degree(id int64) int { return len(g.adj[id]) }

func (g *BusGraph) has(id int64) bool { return id >= 0 && id < int64(len(g.nodes)) }

// ------------------------------ gonum 接口 ------------------------------

// Node 按编号获取节点
func (g *BusGraph) Node(id int64) graph.Node {
	if !g.has(id) {
		return nil
	}
	return g.nodes[id]
}

// Nodes 全部节点(编号顺序)
func (g *BusGraph) Nodes() graph.Nodes { return iterator.NewOrderedNodes(g.nodes) }

// From 相邻节点(连接顺序)
func (g *BusGraph) From(id int64) graph.Nodes {
	if !g.has(id) {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(g.adj[id])
}

// HasEdgeBetween 两节点间是否有边
func (g *BusGraph) HasEdgeBetween(xid, yid int64) bool {
	_, ok := g.pairs[pairKey(xid, yid)]
	return ok
}

// Edge 有向视角下的边
func (g *BusGraph) Edge(uid, vid int64) graph.Edge { return g.WeightedEdge(uid, vid) }

// EdgeBetween 无向边
func (g *BusGraph) EdgeBetween(xid, yid int64) graph.Edge { return g.WeightedEdge(xid, yid) }

// WeightedEdgeBetween 无向带权边
func (g *BusGraph) WeightedEdgeBetween(xid, yid int64) graph.WeightedEdge {
	return g.WeightedEdge(xid, yid)
}

// WeightedEdge 带权边,权重取并联支路的最小值
func (g *BusGraph) WeightedEdge(uid, vid int64) graph.WeightedEdge {
	p, ok := g.pairs[pairKey(uid, vid)]
	if !ok {
		return nil
	}
	return simple.WeightedEdge{F: g.nodes[uid], T: g.nodes[vid], W: p.Weight}
}

// Weight 边权重,自身为 0,无边为 +Inf
func (g *BusGraph) Weight(xid, yid int64) (w float64, ok bool) {
	if xid == yid {
		return 0, true
	}
	if p, ok := g.pairs[pairKey(xid, yid)]; ok {
		return p.Weight, true
	}
	return math.Inf(1), false
}

// WeightedEdges 全部带权边(母线对顺序)
func (g *BusGraph) WeightedEdges() graph.WeightedEdges {
	edges := make([]graph.WeightedEdge, len(g.order))
	for i, p := range g.order {
		edges[i] = simple.WeightedEdge{F: g.nodes[p.U], T: g.nodes[p.V], W: p.Weight}
	}
	return iterator.NewOrderedWeightedEdges(edges)
}
