package graph

import (
	"math"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Step 沿支路的一次遍历,Sign 为 +1 表示从 Bus0 走向 Bus1
type Step struct {
	Branch int
	Sign   float64
}

// step 从节点 u 经支路 k 走出的方向
func (g *BusGraph) step(k int, u int64) Step {
	if int64(g.edges[k].Bus0) == u {
		return Step{Branch: k, Sign: 1}
	}
	return Step{Branch: k, Sign: -1}
}

// Tree 最小生成树
type Tree struct {
	Root     int64
	Branches []int    // 树支路(母线对顺序)
	Paths    [][]Step // 每个节点到根的路径
}

// SpanningTree 按支路权重求最小生成树(Kruskal),并联支路以权重最小者代表。
// 根取树中度数最大的节点,相同时取编号最小者。图必须连通。
func SpanningTree(g *BusGraph) *Tree {
	n := len(g.nodes)
	t := &Tree{Paths: make([][]Step, n)}
	if n == 0 {
		return t
	}
	mst := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(mst, g)

	// 按母线对顺序提取树边,保证遍历确定
	adj := make([][]int, n) // 节点 -> 树支路
	degree := make([]int, n)
	for _, p := range g.order {
		if !mst.HasEdgeBetween(p.U, p.V) {
			continue
		}
		t.Branches = append(t.Branches, p.Rep)
		adj[p.U] = append(adj[p.U], p.Rep)
		adj[p.V] = append(adj[p.V], p.Rep)
		degree[p.U]++
		degree[p.V]++
	}
	for i := 1; i < n; i++ {
		if degree[i] > degree[t.Root] {
			t.Root = int64(i)
		}
	}

	// 广度优先,记录到根的路径
	visited := make([]bool, n)
	visited[t.Root] = true
	t.Paths[t.Root] = []Step{}
	queue := []int64{t.Root}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, k := range adj[u] {
			e := g.edges[k]
			v := int64(e.Bus0)
			if v == u {
				v = int64(e.Bus1)
			}
			if visited[v] {
				continue
			}
			visited[v] = true
			p := make([]Step, 0, len(t.Paths[u])+1)
			p = append(p, g.step(k, v))
			p = append(p, t.Paths[u]...)
			t.Paths[v] = p
			queue = append(queue, v)
		}
	}
	return t
}

// CycleBasis 回路基:简单图上的独立回路,再为每条多余的并联支路补充一个二边回路。
// 每个回路为有向遍历序列。
func CycleBasis(g *BusGraph) [][]Step {
	var cycles [][]Step
	for _, c := range topo.UndirectedCyclesIn(g) {
		// gonum 返回的回路首尾节点相同
		if len(c) > 1 && c[0].ID() == c[len(c)-1].ID() {
			c = c[:len(c)-1]
		}
		if len(c) < 3 {
			continue
		}
		cycle := make([]Step, len(c))
		for i := range c {
			u, v := c[i].ID(), c[(i+1)%len(c)].ID()
			p, _ := g.PairBetween(u, v)
			cycle[i] = g.step(p.Rep, u)
		}
		cycles = append(cycles, cycle)
	}
	for _, p := range g.order {
		for _, k := range p.Branches {
			if k == p.Rep {
				continue
			}
			cycles = append(cycles, []Step{g.step(p.Rep, p.U), g.step(k, p.V)})
		}
	}
	return cycles
}
