package powerflow

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerflow/admittance"
	"powerflow/config"
	"powerflow/lpf"
	"powerflow/network"
	"powerflow/pf/debug"
	"powerflow/types"
)

func solver(t *testing.T, edit func(*config.Options)) *Solver {
	t.Helper()
	opts := config.Default()
	opts.Workers = 2
	if edit != nil {
		edit(&opts)
	}
	s, err := NewSolver(opts)
	require.NoError(t, err)
	return s
}

// threeBus bus0 平衡,bus1 发电 p,bus2 负荷 p
func threeBus(t *testing.T, p float64) *network.Network {
	t.Helper()
	n := network.New()
	for _, b := range []string{"bus0", "bus1", "bus2"} {
		require.NoError(t, n.AddBus(&network.Bus{Name: b}))
	}
	require.NoError(t, n.AddLine(&network.Line{Name: "line0", Bus0: "bus0", Bus1: "bus1", X: 0.1}))
	require.NoError(t, n.AddLine(&network.Line{Name: "line1", Bus0: "bus1", Bus1: "bus2", X: 0.2}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "slack", Bus: "bus0", Control: types.ControlSlack}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "g1", Bus: "bus1", PSet: p}))
	require.NoError(t, n.AddLoad(&network.Load{Name: "d2", Bus: "bus2", PSet: p}))
	return n
}

func get(t *testing.T, s *network.Series, snapshot, name string) float64 {
	t.Helper()
	v, ok := s.Get(snapshot, name)
	require.True(t, ok, "%s/%s", snapshot, name)
	return v
}

func TestLPFThreeBus(t *testing.T) {
	for _, f := range []lpf.Formulation{lpf.Angles, lpf.PTDF, lpf.Cycles, lpf.Kirchhoff} {
		t.Run(f.String(), func(t *testing.T) {
			n := threeBus(t, 50)
			res, err := solver(t, func(o *config.Options) { o.Formulation = f.String() }).LPF(context.Background(), n, nil)
			require.NoError(t, err)
			require.NoError(t, res.Err())
			assert.Equal(t, f, res.Formulation)
			assert.NotEqual(t, uuid.Nil, res.RunID)

			lines := res.Branches[types.KindLine]
			assert.InDelta(t, 0, get(t, lines.P0, "now", "line0"), 1e-9)
			assert.InDelta(t, 50, get(t, lines.P0, "now", "line1"), 1e-9)
			assert.InDelta(t, -50, get(t, lines.P1, "now", "line1"), 1e-9)
			assert.True(t, math.IsNaN(get(t, lines.Q0, "now", "line1")), "线性潮流不计算无功")
			assert.InDelta(t, 0, get(t, res.OnePortP[types.KindGenerator], "now", "slack"), 1e-9)

			// 回写
			v, ok := n.Frame(types.KindLine, "p1").Get("now", "line1")
			require.True(t, ok)
			assert.InDelta(t, -50, v, 1e-9)
			ang, ok := n.Frame(types.KindBus, "v_ang").Get("now", "bus2")
			require.True(t, ok)
			assert.InDelta(t, -10, ang, 1e-9)
			_, ok = n.Frame(types.KindBus, "v_mag_pu").Get("now", "bus2")
			assert.False(t, ok, "交流载体线性潮流只写相角")
			assert.Contains(t, res.Matrices, "0")
		})
	}
}

func TestLPFSnapshotsAndIslands(t *testing.T) {
	n := threeBus(t, 50)
	require.NoError(t, n.AddBus(&network.Bus{Name: "dc0", Carrier: types.CarrierDC}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "dc1", Carrier: types.CarrierDC}))
	require.NoError(t, n.AddLine(&network.Line{Name: "dcline", Bus0: "dc0", Bus1: "dc1", R: 0.01}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "dcgen", Bus: "dc0"}))
	require.NoError(t, n.AddLoad(&network.Load{Name: "dcload", Bus: "dc1", PSet: 2}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "heat", Carrier: "heat"}))
	require.NoError(t, n.SetSnapshots([]string{"t0", "t1", "t2"}))
	require.NoError(t, n.Frame(types.KindLoad, "p_set").SetColumn("d2", []float64{50, 60, 80}))

	res, err := solver(t, nil).LPF(context.Background(), n, nil)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Topology.SubNetworks, 3)
	assert.NotContains(t, res.Matrices, "2", "非电气载体不求解")

	gens := res.OnePortP[types.KindGenerator]
	lines := res.Branches[types.KindLine]
	for i, load := range []float64{50, 60, 80} {
		snap := res.Snapshots[i]
		assert.InDelta(t, load-50, get(t, gens, snap, "slack"), 1e-9, snap)
		assert.InDelta(t, load-50, get(t, lines.P0, snap, "line0"), 1e-9, snap)
		assert.InDelta(t, load, get(t, lines.P0, snap, "line1"), 1e-9, snap)

		assert.InDelta(t, 2, get(t, gens, snap, "dcgen"), 1e-9)
		assert.InDelta(t, 2, get(t, lines.P0, snap, "dcline"), 1e-9)
		vm := get(t, res.VMagPu, snap, "dc1")
		assert.InDelta(t, 1-0.02, vm, 1e-9, "直流载体以电压偏差表示")
		assert.Equal(t, 0.0, get(t, res.VAng, snap, "dc1"))
	}
	assert.True(t, math.IsNaN(get(t, res.P, "t0", "heat")))
}

func TestFailedSubNetworkDoesNotBlockOthers(t *testing.T) {
	n := threeBus(t, 0.5)
	require.NoError(t, n.AddBus(&network.Bus{Name: "x0"}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "x1"}))
	require.NoError(t, n.AddLine(&network.Line{Name: "short", Bus0: "x0", Bus1: "x1"}))

	for _, mode := range []Mode{ModeLinear, ModeAC} {
		res, err := solver(t, nil).Run(context.Background(), n, nil, mode)
		require.NoError(t, err, mode.String())
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors["1"], admittance.ErrZeroImpedance)
		assert.ErrorIs(t, res.Err(), admittance.ErrZeroImpedance)
		assert.NotContains(t, res.Matrices, "1")
		assert.Contains(t, res.Matrices, "0")
		assert.False(t, math.IsNaN(get(t, res.Branches[types.KindLine].P0, "now", "line1")))
		assert.True(t, math.IsNaN(get(t, res.Branches[types.KindLine].P0, "now", "short")))
	}
}

func TestFailedRerunClearsPreviousResults(t *testing.T) {
	for _, mode := range []Mode{ModeLinear, ModeAC} {
		t.Run(mode.String(), func(t *testing.T) {
			n := network.New()
			require.NoError(t, n.AddBus(&network.Bus{Name: "a"}))
			require.NoError(t, n.AddBus(&network.Bus{Name: "b"}))
			require.NoError(t, n.AddLine(&network.Line{Name: "l", Bus0: "a", Bus1: "b", X: 0.1}))
			require.NoError(t, n.AddGenerator(&network.Generator{Name: "g", Bus: "a", Control: types.ControlSlack}))
			require.NoError(t, n.AddLoad(&network.Load{Name: "load", Bus: "b", PSet: 0.4}))
			s := solver(t, func(o *config.Options) { o.UseSeed = true })

			res, err := s.Run(context.Background(), n, nil, mode)
			require.NoError(t, err)
			require.NoError(t, res.Err())
			p0, ok := n.Frame(types.KindLine, "p0").Get("now", "l")
			require.True(t, ok)
			assert.InDelta(t, 0.4, p0, 1e-6)

			l, ok := n.Lines.Get("l")
			require.True(t, ok)
			l.X = 0
			res, err = s.Run(context.Background(), n, nil, mode)
			require.NoError(t, err)
			assert.ErrorIs(t, res.Errors["0"], admittance.ErrZeroImpedance)
			assert.True(t, math.IsNaN(get(t, res.OnePortP[types.KindGenerator], "now", "g")))

			for _, c := range []struct {
				kind       types.Kind
				attr, name string
			}{
				{types.KindLine, "p0", "l"},
				{types.KindLine, "p1", "l"},
				{types.KindBus, "v_ang", "b"},
				{types.KindBus, "p", "a"},
				{types.KindGenerator, "p", "g"},
				{types.KindLoad, "p", "load"},
			} {
				_, ok := n.Frame(c.kind, c.attr).Get("now", c.name)
				assert.False(t, ok, "%s %s.%s 仍保留上次结果", c.kind, c.name, c.attr)
			}
			if mode == ModeAC {
				_, ok := n.Frame(types.KindBus, "v_mag_pu").Get("now", "b")
				assert.False(t, ok, "失败后不能作为初值")
			}
		})
	}
}

func TestPFSlackAndLoad(t *testing.T) {
	n := network.New()
	require.NoError(t, n.AddBus(&network.Bus{Name: "s"}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "d"}))
	require.NoError(t, n.AddLine(&network.Line{Name: "l", Bus0: "s", Bus1: "d", X: 0.1}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "g", Bus: "s", Control: types.ControlSlack}))
	require.NoError(t, n.AddLoad(&network.Load{Name: "load", Bus: "d", PSet: 0.5, QSet: 0.2}))
	require.NoError(t, n.AddShuntImpedance(&network.ShuntImpedance{Name: "sh", Bus: "d", B: 0.01}))

	s := solver(t, func(o *config.Options) { o.ChartPath = "mismatch.png" })
	res, err := s.PF(context.Background(), n, nil)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.True(t, res.Converged())
	first := res.Convergence["0"][0]
	assert.LessOrEqual(t, first.Iterations, s.Options.MaxIterations)

	assert.InDelta(t, 0.5, get(t, res.OnePortP[types.KindGenerator], "now", "g"), 1e-6, "无损线路平衡机有功等于负荷")
	assert.Greater(t, get(t, res.OnePortQ[types.KindGenerator], "now", "g"), 0.0)
	assert.Greater(t, get(t, res.Branches[types.KindLine].Q0, "now", "l"), 0.0)
	vd := get(t, res.VMagPu, "now", "d")
	assert.InDelta(t, 0.01*vd*vd, -get(t, res.OnePortQ[types.KindShuntImpedance], "now", "sh"), 1e-12)
	assert.InDelta(t, 1, get(t, res.VMagPu, "now", "s"), 1e-12)

	charts, ok := s.Debug.(*debug.Charts)
	require.True(t, ok)
	assert.NotEmpty(t, charts.History("now/0"))

	// 以回写电压为初值再次计算
	seeded := solver(t, func(o *config.Options) { o.UseSeed = true })
	again, err := seeded.PF(context.Background(), n, nil)
	require.NoError(t, err)
	require.True(t, again.Converged())
	assert.Less(t, again.Convergence["0"][0].Iterations, first.Iterations)
	assert.InDelta(t, vd, get(t, again.VMagPu, "now", "d"), 1e-6)
}

func TestPFSkipsDCSubNetwork(t *testing.T) {
	n := threeBus(t, 0.5)
	require.NoError(t, n.AddBus(&network.Bus{Name: "dc0", Carrier: types.CarrierDC}))
	require.NoError(t, n.AddBus(&network.Bus{Name: "dc1", Carrier: types.CarrierDC}))
	require.NoError(t, n.AddLine(&network.Line{Name: "dcline", Bus0: "dc0", Bus1: "dc1", R: 0.01}))

	res, err := solver(t, nil).PF(context.Background(), n, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, res.Errors["1"], admittance.ErrCarrier)
	assert.True(t, res.Converged())
	assert.NotContains(t, res.Convergence, "1")
}

func TestLinkCouplesIslands(t *testing.T) {
	n := network.New()
	for _, b := range []string{"a", "b"} {
		require.NoError(t, n.AddBus(&network.Bus{Name: b}))
	}
	require.NoError(t, n.AddLink(&network.Link{Name: "hvdc", Bus0: "a", Bus1: "b", PSet: 10, Efficiency: 0.9}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "ga", Bus: "a"}))
	require.NoError(t, n.AddGenerator(&network.Generator{Name: "gb", Bus: "b"}))
	require.NoError(t, n.AddLoad(&network.Load{Name: "lb", Bus: "b", PSet: 9}))

	res, err := solver(t, nil).LPF(context.Background(), n, nil)
	require.NoError(t, err)
	require.Len(t, res.Topology.SubNetworks, 2, "链接不提供电气耦合")
	gens := res.OnePortP[types.KindGenerator]
	assert.InDelta(t, 10, get(t, gens, "now", "ga"), 1e-9)
	assert.InDelta(t, 0, get(t, gens, "now", "gb"), 1e-9)
	p1, ok := n.Frame(types.KindLink, "p1").Get("now", "hvdc")
	require.True(t, ok)
	assert.InDelta(t, -9, p1, 1e-12)
}

func TestRunErrors(t *testing.T) {
	n := threeBus(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := solver(t, nil).LPF(ctx, n, nil)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = solver(t, nil).LPF(context.Background(), n, []string{"missing"})
	assert.ErrorIs(t, err, network.ErrUnknownSnapshot)

	require.NoError(t, n.AddLine(&network.Line{Name: "bad", Bus0: "bus0", Bus1: "nowhere", X: 1}))
	_, err = solver(t, nil).PF(context.Background(), n, nil)
	assert.ErrorIs(t, err, network.ErrUnknownBus)

	_, err = NewSolver(config.Options{})
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestParseMode(t *testing.T) {
	for s, want := range map[string]Mode{"lpf": ModeLinear, "PF": ModeAC, "ac": ModeAC, "linear": ModeLinear} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err := ParseMode("dc")
	assert.Error(t, err)
}
