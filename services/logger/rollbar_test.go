package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KrossV2/progresspace-app-sub001/core"
)

func newObservedLogger(lvl zapcore.Level) (RollbarLogger, *observer.ObservedLogs) {
	rollbar.SetEnabled(false)
	zc, logs := observer.New(lvl)
	return RollbarLogger{zl: zap.New(zc)}, logs
}

func TestRollbarLogger_fields(t *testing.T) {
	l, logs := newObservedLogger(zapcore.DebugLevel)

	l.Error("saving entry", errors.New("disk full"), map[string]interface{}{"entry_id": int64(7)}, "monday")
	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, "saving entry", e.Message)
	assert.Equal(t, zapcore.ErrorLevel, e.Level)

	fields := e.ContextMap()
	assert.Equal(t, "disk full", fields["error"])
	assert.Equal(t, int64(7), fields["entry_id"])
	assert.Equal(t, "monday", fields["arg2"])
}

func TestRollbarLogger_levels(t *testing.T) {
	l, logs := newObservedLogger(zapcore.InfoLevel)

	l.Debug("hidden")
	l.Info("info")
	l.Warn("warn")
	assert.Equal(t, []string{"info", "warn"}, messages(logs))
}

func messages(logs *observer.ObservedLogs) []string {
	var out []string
	for _, e := range logs.All() {
		out = append(out, e.Message)
	}
	return out
}

func TestNewZap(t *testing.T) {
	zl, err := NewZap(&core.Config{Env: "TEST", Build: "abc", LogLevel: "warn"}, "API")
	require.NoError(t, err)
	assert.False(t, zl.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, zl.Core().Enabled(zapcore.WarnLevel))

	zl, err = NewZap(&core.Config{Debug: true}, "API")
	require.NoError(t, err)
	assert.True(t, zl.Core().Enabled(zapcore.DebugLevel))

	_, err = NewZap(&core.Config{LogLevel: "loud"}, "API")
	assert.Error(t, err)
}
