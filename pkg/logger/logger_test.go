package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit_RejectsUnknownLevel(t *testing.T) {
	require.Error(t, Init("loud", false))
}

func TestInit_Production(t *testing.T) {
	defer Set(zap.NewNop())
	require.NoError(t, Init("debug", false))
	assert.True(t, L().Core().Enabled(zapcore.DebugLevel))
}

func TestHelpersWriteThroughGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	Debug("hidden")
	Info("entry appended", EntryID(7), RequestID("req-1"))
	Error("list failed", Err(errors.New("disk gone")))

	require.Equal(t, 2, logs.Len())
	first := logs.All()[0]
	assert.Equal(t, "entry appended", first.Message)
	assert.Equal(t, uint64(7), first.ContextMap()["entry_id"])
	assert.Equal(t, "req-1", first.ContextMap()["request_id"])
	assert.Equal(t, "disk gone", logs.All()[1].ContextMap()["error"])
}
