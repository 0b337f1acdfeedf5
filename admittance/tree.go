package admittance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"powerflow/graph"
	"powerflow/maths"
)

// Tree 生成树矩阵
//
//	T: |branches|x|buses|, 列 j 为母线 j 到根的树路径,支路从 bus0 进入为 +1
type Tree struct {
	T        *mat.Dense
	Root     int   // 根母线(BusesO 序号)
	Branches []int // 树支路
}

// Cycles 回路矩阵
//
//	C: |branches|x|cycles|, 回路沿 bus0->bus1 方向经过支路为 +1
type Cycles struct {
	C     *mat.Dense
	Count int
}

// busGraph 以线性模型阻抗为权重的子网图
func busGraph(lin *Linear) (*graph.BusGraph, error) {
	edges := make([]graph.Edge, len(lin.Params))
	for k, p := range lin.Params {
		w := math.Abs(lin.Impedance[k])
		if w == 0 {
			return nil, fmt.Errorf("%s %q: %w", p.Kind, p.Name, ErrZeroImpedance)
		}
		edges[k] = graph.Edge{Bus0: p.Bus0, Bus1: p.Bus1, Weight: w}
	}
	return graph.NewBusGraph(lin.Buses(), edges), nil
}

// BuildTree 最小生成树矩阵
func BuildTree(lin *Linear) (*Tree, error) {
	g, err := busGraph(lin)
	if err != nil {
		return nil, err
	}
	st := graph.SpanningTree(g)
	t := &Tree{Root: int(st.Root), Branches: st.Branches}
	t.T = maths.NewDense(lin.Branches(), lin.Buses())
	if t.T == nil {
		return t, nil
	}
	for j, path := range st.Paths {
		if path == nil {
			return nil, fmt.Errorf("bus %d not reached by spanning tree: %w", j, ErrSingular)
		}
		for _, s := range path {
			t.T.Set(s.Branch, j, s.Sign)
		}
	}
	return t, nil
}

// BuildCycles 回路基矩阵,含并联支路构成的二边回路
func BuildCycles(lin *Linear) (*Cycles, error) {
	g, err := busGraph(lin)
	if err != nil {
		return nil, err
	}
	cycles := graph.CycleBasis(g)
	c := &Cycles{Count: len(cycles), C: maths.NewDense(lin.Branches(), len(cycles))}
	for j, cycle := range cycles {
		for _, s := range cycle {
			c.C.Set(s.Branch, j, c.C.At(s.Branch, j)+s.Sign)
		}
	}
	return c, nil
}
