package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Warn)
	l.Info("dropped")
	l.Warn("kept", "n", 3)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "warn", rec["level"])
	assert.Equal(t, "kept", rec["msg"])
	assert.EqualValues(t, 3, rec["n"])
}

func TestWithFieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Debug).With(map[string]string{"component": "builder"})
	l.Error("failed", "err", errors.New("boom"))
	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "builder", rec["component"])
	assert.Equal(t, "boom", rec["err"])
}

func TestMaskContact(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, Debug)
	l.Info("download", "user_agent", "RuWikiSearch/1.0.0 (someone@example.org)", "contact_email", "someone@example.org")
	out := buf.String()
	assert.NotContains(t, out, "someone@example.org")
	assert.Contains(t, out, "RuWikiSearch/1.0.0")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, Debug, l)
	l, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, Info, l)
}
