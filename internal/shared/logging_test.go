package shared

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "json", "warn")
	log.Info("hidden")
	log.Warn("shown", "path", "a.py")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "a.py", rec["path"])
	assert.Equal(t, "realitycheck", rec["service"])

	buf.Reset()
	NewLogger(&buf, "TEXT", "debug").Debug("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
