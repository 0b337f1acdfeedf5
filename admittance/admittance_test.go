package admittance

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"powerflow/graph"
	"powerflow/network"
	"powerflow/types"
)

const tol = 1e-9

// triangle b0(平衡)-b1-b2 三角形,b0-b1 双回
func triangle(t *testing.T) (*network.Network, *graph.SubNetwork) {
	t.Helper()
	n := network.New()
	for _, b := range []string{"b0", "b1", "b2"} {
		require.NoError(t, n.AddBus(&network.Bus{Name: b}))
	}
	lines := []*network.Line{
		{Name: "l0", Bus0: "b0", Bus1: "b1", X: 0.1},
		{Name: "l1", Bus0: "b1", Bus1: "b2", X: 0.2},
		{Name: "l2", Bus0: "b0", Bus1: "b2", X: 0.3},
		{Name: "l3", Bus0: "b1", Bus1: "b0", X: 0.1},
	}
	for _, l := range lines {
		require.NoError(t, n.AddLine(l))
	}
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "g", Bus: "b0", Control: types.ControlSlack}))
	topo, err := graph.Determine(n)
	require.NoError(t, err)
	return n, topo.SubNetworks[0]
}

func TestBranchParams(t *testing.T) {
	n := network.New()
	require.NoError(t, n.AddBus(&network.Bus{Name: "hv", VNom: 10}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "lv", VNom: 0.4}))
	require.NoError(t, n.AddLine(&network.Line{Name: "l", Bus0: "hv", Bus1: "lv", R: 1, X: 2, B: 1e-4}))
	require.NoError(t, n.AddTransformer(&network.Transformer{Name: "t", Bus0: "hv", Bus1: "lv", R: 0.01, X: 0.1, SNom: 2, TapRatio: 1.05, Model: "pi"}))
	topo, err := graph.Determine(n)
	require.NoError(t, err)

	params, err := BranchParams(n, topo.SubNetworks[0])
	require.NoError(t, err)
	require.Len(t, params, 2)
	l, tr := params[0], params[1]
	assert.InDelta(t, 0.01, l.R, tol)
	assert.InDelta(t, 0.02, l.X, tol)
	assert.InDelta(t, 0.01, l.B, tol)
	assert.Equal(t, 1.0, l.Tap)
	assert.InDelta(t, 0.005, tr.R, tol)
	assert.InDelta(t, 0.05, tr.X, tol)
	assert.InDelta(t, 0.0525, tr.XEff, tol)
	assert.InDelta(t, 0.00525, tr.REff, tol)
}

func TestZeroImpedance(t *testing.T) {
	n, _ := triangle(t)
	require.NoError(t, n.AddLine(&network.Line{Name: "z0", Bus0: "b0", Bus1: "b2"}))
	require.NoError(t, n.AddLine(&network.Line{Name: "z1", Bus0: "b1", Bus1: "b2"}))
	topo, err := graph.Determine(n)
	require.NoError(t, err)

	_, err = Build(n, topo.SubNetworks[0], WantLinear)
	require.ErrorIs(t, err, ErrZeroImpedance)
	assert.Contains(t, err.Error(), "z0")
	assert.Contains(t, err.Error(), "z1")

	// 纯电阻支路在交流子网的线性模型中电抗为零
	n, _ = triangle(t)
	require.NoError(t, n.AddLine(&network.Line{Name: "r", Bus0: "b0", Bus1: "b2", R: 0.1}))
	topo, err = graph.Determine(n)
	require.NoError(t, err)
	_, err = Build(n, topo.SubNetworks[0], WantAC)
	require.NoError(t, err, "交流模型可以处理纯电阻支路")
	_, err = Build(n, topo.SubNetworks[0], WantLinear)
	assert.ErrorIs(t, err, ErrZeroImpedance)
}

func TestBuildAC(t *testing.T) {
	n, sub := triangle(t)
	require.NoError(t, n.AddShuntImpedance(&network.ShuntImpedance{Name: "sh", Bus: "b2", B: 0.5}))
	m, err := Build(n, sub, WantAC)
	require.NoError(t, err)
	y := m.AC.Y

	// 对角元 = 相连支路串联导纳之和 + 并联导纳
	assert.InDelta(t, 0, cmplx.Abs(y.Get(0, 0)-(-10i-3.333333333333333i-10i)), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(y.Get(2, 2)-(-5i-3.333333333333333i+0.5i)), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(y.Get(0, 1)-20i), 1e-9)
	assert.Equal(t, y.Get(1, 2), y.Get(2, 1))
	assert.Equal(t, 0.5i, m.AC.Shunt[2])

	// 行和为零(无并联)
	for i := range 2 {
		var s complex128
		for j := range 3 {
			s += y.Get(i, j)
		}
		assert.InDelta(t, 0, cmplx.Abs(s), 1e-9)
	}

	dc := network.New()
	require.NoError(t, dc.AddBus(&network.Bus{Name: "a", Carrier: types.CarrierDC}))
	topo, err := graph.Determine(dc)
	require.NoError(t, err)
	_, err = Build(dc, topo.SubNetworks[0], WantAC)
	assert.ErrorIs(t, err, ErrCarrier)
}

func TestPhaseShiftAsymmetry(t *testing.T) {
	n := network.New()
	require.NoError(t, n.AddBus(&network.Bus{Name: "a"}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "b"}))
	require.NoError(t, n.AddTransformer(&network.Transformer{Name: "t", Bus0: "a", Bus1: "b", X: 0.1, PhaseShift: 30, TapRatio: 1.1}))
	topo, err := graph.Determine(n)
	require.NoError(t, err)
	m, err := Build(n, topo.SubNetworks[0], WantAC|WantLinear)
	require.NoError(t, err)

	yse := 1 / complex(0, 0.1)
	phase := cmplx.Rect(1, math.Pi/6)
	assert.InDelta(t, 0, cmplx.Abs(m.AC.Y.Get(0, 0)-yse/1.21), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(m.AC.Y.Get(1, 1)-yse), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(m.AC.Y.Get(0, 1)-(-yse/(1.1*cmplx.Conj(phase)))), 1e-9)
	assert.InDelta(t, 0, cmplx.Abs(m.AC.Y.Get(1, 0)-(-yse/(1.1*phase))), 1e-9)

	b := 1 / 0.11
	assert.InDelta(t, -b*math.Pi/6, m.Linear.PBranchShift[0], 1e-9)
	assert.InDelta(t, -b*math.Pi/6, m.Linear.PBusShift[0], 1e-9)
	assert.InDelta(t, b*math.Pi/6, m.Linear.PBusShift[1], 1e-9)
}

func TestTapSide(t *testing.T) {
	yse := 1 / complex(0, 0.1)
	half := yse + complex(0, 0.02)/2
	for side, want := range map[int][2]complex128{
		0: {half / 1.21, half},
		1: {half, half / 1.21},
	} {
		n := network.New()
		require.NoError(t, n.AddBus(&network.Bus{Name: "a"}))
		require.NoError(t, n.AddBus(&network.Bus{Name: "b"}))
		require.NoError(t, n.AddTransformer(&network.Transformer{Name: "t", Bus0: "a", Bus1: "b", X: 0.1, B: 0.02, TapRatio: 1.1, TapSide: side, Model: "pi"}))
		topo, err := graph.Determine(n)
		require.NoError(t, err)
		m, err := Build(n, topo.SubNetworks[0], WantAC)
		require.NoError(t, err)

		y := m.AC.Y
		assert.InDelta(t, 0, cmplx.Abs(y.Get(0, 0)-want[0]), 1e-9, "tap side %d", side)
		assert.InDelta(t, 0, cmplx.Abs(y.Get(1, 1)-want[1]), 1e-9, "tap side %d", side)
		assert.InDelta(t, 0, cmplx.Abs(y.Get(0, 1)-(-yse/1.1)), 1e-9, "tap side %d", side)
		assert.InDelta(t, 0, cmplx.Abs(y.Get(1, 0)-(-yse/1.1)), 1e-9, "tap side %d", side)
		assert.Equal(t, y.Get(0, 0), m.AC.Y0.Get(0, 0))
		assert.Equal(t, y.Get(1, 1), m.AC.Y1.Get(0, 1))
	}
}

func TestTModel(t *testing.T) {
	p := Params{X: 0.2, B: 0.1}
	p.applyTModel()
	assert.InDelta(t, 0, p.R, 1e-12)
	assert.InDelta(t, 0.199, p.X, 1e-12)
	assert.InDelta(t, 0, p.G, 1e-12)
	assert.InDelta(t, 2/19.9, p.B, 1e-12)

	q := Params{X: 0.2}
	q.applyTModel()
	assert.Equal(t, 0.2, q.X, "无励磁支路时不变换")
}

func TestLinearAndPTDF(t *testing.T) {
	n, sub := triangle(t)
	m, err := Build(n, sub, WantPTDF|WantTree)
	require.NoError(t, err)
	lin := m.Linear

	// B 为拉普拉斯矩阵:对称且行和为零
	require.NotNil(t, lin.B)
	assert.True(t, mat.Equal(lin.B, lin.B.T()))
	for i := range 3 {
		assert.InDelta(t, 0, mat.Sum(lin.B.RowView(i)), 1e-9)
	}
	assert.InDelta(t, 10+10+1/0.3, lin.B.At(0, 0), 1e-9)

	// 平衡母线列为零
	for k := range 4 {
		assert.Equal(t, 0.0, m.PTDF.At(k, 0))
	}
	// 任意注入: K·PTDF·p 在全网求和为零,非平衡母线上等于注入
	p := []float64{0, 30, -70}
	var flow, net mat.VecDense
	flow.MulVec(m.PTDF, mat.NewVecDense(3, p))
	net.MulVec(lin.K, &flow)
	assert.InDelta(t, 0, mat.Sum(&net), 1e-9)
	assert.InDelta(t, 30, net.AtVec(1), 1e-9)
	assert.InDelta(t, -70, net.AtVec(2), 1e-9)
}

func TestTreeAndCycleMatrices(t *testing.T) {
	n, sub := triangle(t)
	m, err := Build(n, sub, WantTree)
	require.NoError(t, err)
	lin := m.Linear

	assert.Equal(t, 2, m.Cycles.Count, "支路 4 - 母线 3 + 1")
	// 回路流不改变节点平衡: K·C = 0
	var kc mat.Dense
	kc.Mul(lin.K, m.Cycles.C)
	assert.True(t, mat.EqualApprox(&kc, mat.NewDense(3, 2, nil), 1e-12))

	// 平衡注入经树路径送至根: K·T·p = p
	p := []float64{40, 30, -70}
	var f, back mat.VecDense
	f.MulVec(m.Tree.T, mat.NewVecDense(3, p))
	back.MulVec(lin.K, &f)
	for i := range p {
		assert.InDelta(t, p[i], back.AtVec(i), 1e-9)
	}
	assert.Len(t, m.Tree.Branches, 2)
}

func TestSingleBus(t *testing.T) {
	n := network.New()
	require.NoError(t, n.AddBus(&network.Bus{Name: "a"}))
	topo, err := graph.Determine(n)
	require.NoError(t, err)
	m, err := Build(n, topo.SubNetworks[0], WantAC|WantPTDF|WantTree)
	require.NoError(t, err)
	assert.Nil(t, m.Linear.B)
	assert.Nil(t, m.LU)
	assert.Nil(t, m.PTDF)
	assert.Nil(t, m.Tree.T)
	assert.Equal(t, 0, m.Cycles.Count)
	assert.Equal(t, 1, m.AC.Y.Rows())
}
