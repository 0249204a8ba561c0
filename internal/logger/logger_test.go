package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readLog(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ""
	}
	require.NoError(t, err)

	return string(data)
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name      string
		debug     bool
		wantTrace bool
	}{
		{name: "default", debug: false, wantTrace: false},
		{name: "debug", debug: true, wantTrace: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tracePath := filepath.Join(dir, "trace.log")
			outPath := filepath.Join(dir, "ma.log")

			log, err := NewLogger(LoggerConfig{
				Name:            "ma",
				IsDebug:         tt.debug,
				TraceOutputPath: tracePath,
				OutputPath:      outPath,
				InitialFields:   []zap.Field{zap.String("app", "ma")},
			})
			require.NoError(t, err)

			log.Debug("map", zap.String("start", "0x00001000"))
			log.Warn("out of bounds", zap.String("op", "rb"))
			_ = log.Sync()

			trace := readLog(t, tracePath)
			out := readLog(t, outPath)

			assert.Contains(t, out, "out of bounds")
			assert.Contains(t, out, `"app"`)
			assert.NotContains(t, out, "0x00001000", "debug entries stay off the diagnostics output")
			assert.NotContains(t, trace, "out of bounds", "warnings stay off the trace output")

			if tt.wantTrace {
				assert.Contains(t, trace, "0x00001000")
				assert.Contains(t, trace, `"app"`)
			} else {
				assert.Empty(t, trace)
			}
		})
	}
}

func TestNewLoggerBadOutput(t *testing.T) {
	_, err := NewLogger(LoggerConfig{OutputPath: filepath.Join(t.TempDir(), "missing", "ma.log")})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{TraceOutputPath: filepath.Join(t.TempDir(), "missing", "trace.log")})
	assert.Error(t, err)
}
