package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerflow"
	"powerflow/config"
	"powerflow/load"
)

func TestReport(t *testing.T) {
	net, err := load.LoadFile("../../load/testdata/three_bus.yaml")
	require.NoError(t, err)
	solver, err := powerflow.NewSolver(config.Default())
	require.NoError(t, err)

	for _, mode := range []powerflow.Mode{powerflow.ModeLinear, powerflow.ModeAC} {
		res, err := solver.Run(context.Background(), net, nil, mode)
		require.NoError(t, err)
		var buf bytes.Buffer
		report(&buf, res)
		out := buf.String()
		assert.Contains(t, out, res.RunID.String())
		assert.Contains(t, out, "line1")
		assert.Contains(t, out, "tr0")
		if mode == powerflow.ModeAC {
			assert.Contains(t, out, "iterations")
		} else {
			assert.NotContains(t, out, "iterations")
		}
	}
}
