package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewBuildsLogger(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true})
	require.NoError(t, err)
	require.NotNil(t, logger.Logger)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewDefaultsToInfo(t *testing.T) {
	logger, err := New(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "launcher.log")}})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestComponentOnNilLogger(t *testing.T) {
	var l *Logger
	assert.NotNil(t, l.Component("launcher").Logger)
	assert.NotNil(t, (&Logger{}).Component("launcher").Logger)
}

func TestParseLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		_, err := parseLevel(lvl)
		assert.NoError(t, err, lvl)
	}
}
