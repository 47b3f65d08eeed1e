package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug": LevelDebug, "INFO": LevelInfo, "": LevelInfo,
		"warning": LevelWarn, "error": LevelError, " fatal ": LevelFatal,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "warn", LevelWarn.String())
	assert.Equal(t, "level(42)", Level(42).String())
}

func TestLoggerFieldsAndLevel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap(zap.New(core), LevelInfo)

	l.Debug("hidden")
	l.With(String("component", "universe")).Info("step",
		Int("bodies", 2),
		Float64("dt", 0.5),
		Uint64("frame", 7),
		Duration("took", time.Millisecond),
		Bool("parallel", false),
		Error(errors.New("bad")),
		Error(nil),
		Any("extra", []int{1}),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "step", entries[0].Message)
	assert.Equal(t, "universe", ctx["component"])
	assert.Equal(t, int64(2), ctx["bodies"])
	assert.Equal(t, 0.5, ctx["dt"])
	assert.Equal(t, uint64(7), ctx["frame"])
	assert.Equal(t, "bad", ctx["error"])
	assert.NotContains(t, ctx, "")

	l.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, l.GetLevel())
	l.Debug("visible")
	assert.Equal(t, 2, logs.Len())
}

func TestNewWithConfigConsole(t *testing.T) {
	l, err := NewWithConfig(Config{Level: LevelWarn, Encoding: "console"})
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l.GetLevel())

	_, err = NewWithConfig(Config{Encoding: "xml"})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	l := NewNop()
	l.Info("nothing")
	assert.NotNil(t, l.With(String("a", "b")))
}
