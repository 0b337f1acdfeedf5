package debug

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	r := NewRecord()
	r.Update("now/0", 0, 1)
	r.Update("now/0", 1, 1e-3)
	r.Update("now/1", 0, 2)
	// 同名重新开始
	r.Update("now/1", 0, 4)

	assert.Equal(t, []float64{1, 1e-3}, r.History("now/0"))
	assert.Equal(t, []float64{4}, r.History("now/1"))
	assert.Equal(t, []string{"now/0", "now/1"}, r.Names)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	var out struct {
		Names  []string
		Errors map[string][]float64
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, r.Names, out.Names)
}

func TestChartsPNG(t *testing.T) {
	c := NewCharts("convergence")
	c.Update("a", 0, 0.5)
	c.Update("a", 1, 1e-4)
	c.Update("a", 2, 0)
	c.Update("b", 0, math.NaN())

	var buf bytes.Buffer
	require.NoError(t, c.Render(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	require.NoError(t, NewCharts("empty").Render(&buf))
	assert.NotZero(t, buf.Len())
}
