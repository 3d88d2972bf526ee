package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, false, false)

	log.Debugw("hidden", "k", 1)
	log.Infow("rendered", "blocks", 2)
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "info rendered")
	assert.Contains(t, out, `"blocks": 2`)
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, true, false)

	log.Debug("plugin ran")
	require.NoError(t, log.Sync())

	assert.Contains(t, buf.String(), "debug plugin ran")
}

func TestNew_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(buf, false, true)

	log.Infow("rendered", "insts", 6)
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rendered", entry["msg"])
	assert.Equal(t, float64(6), entry["insts"])
	assert.NotContains(t, entry, "ts")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	log := Nop()
	assert.Same(t, log, OrNop(log))
}
