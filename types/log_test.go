package types

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(log.New(&buf, "", 0))
	t.Cleanup(func() {
		SetLogger(nil)
		SetDebug(false)
	})

	Warnf("bus %q", "b1")
	Debugf("hidden")
	assert.Equal(t, "WARN bus \"b1\"\n", buf.String())

	buf.Reset()
	SetDebug(true)
	assert.True(t, IsDebug())
	Debugf("iteration %d", 3)
	assert.Equal(t, "DEBUG iteration 3\n", buf.String())

	buf.Reset()
	SetLogger(nil)
	Warnf("default")
	assert.Empty(t, buf.String(), "nil 恢复默认输出")
}
