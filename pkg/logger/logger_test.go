package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" error "))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestLogger_LevelFiltering(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut)
	l.SetLevel(LevelWarn)

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("slow consumer %s", "abc")
	l.Error("boom")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "WARN: ")
	assert.Contains(t, errOut.String(), "slow consumer abc")
	assert.Contains(t, errOut.String(), "ERROR: ")
	assert.Contains(t, errOut.String(), "boom")
}

func TestSprintf_WithoutArgsKeepsPercent(t *testing.T) {
	var none []interface{}
	assert.Equal(t, "100% done", sprintf("100% done", none...))
	assert.Equal(t, "50% of 4", sprintf("50%% of %d", 4))
}
