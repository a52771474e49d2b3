package log

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsReachZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(String("sensor", "s1")).Named("perception")

	l.Debug("tick",
		Uint64("seq", 7),
		Int("candidates", 3),
		Float64("visibility", 82.5),
		Bool("scanning", true),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")),
		Any("extra", []int{1}),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "tick", e.Message)
	assert.Equal(t, "perception", e.LoggerName)

	ctx := e.ContextMap()
	assert.Equal(t, "s1", ctx["sensor"])
	assert.Equal(t, uint64(7), ctx["seq"])
	assert.Equal(t, int64(3), ctx["candidates"])
	assert.Equal(t, 82.5, ctx["visibility"])
	assert.Equal(t, true, ctx["scanning"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestLevels(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLevel("nope"))

	l := Nop()
	l.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, l.GetLevel())
	assert.NotNil(t, Provide())
}

func TestProvideReturnsFirstBuiltLogger(t *testing.T) {
	first := New(LevelDebug)
	second := New(LevelWarn)
	assert.Same(t, first, Provide())
	assert.NotSame(t, second, Provide())
	assert.Equal(t, LevelDebug, Provide().GetLevel())
}
