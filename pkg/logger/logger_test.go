package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"GreenNest/config"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := optionsFromConfig(config.Config{
		LoggerLevel:  "WARN",
		LoggerFormat: "json",
		Environment:  "production",
		ServiceName:  "greennest",
	})
	assert.Equal(t, zapcore.WarnLevel, opts.level)
	assert.False(t, opts.text)

	opts = optionsFromConfig(config.Config{LoggerLevel: "verbose", Environment: "development"})
	assert.Equal(t, zapcore.InfoLevel, opts.level)
	assert.True(t, opts.text)
}

func TestWizardID_Truncates(t *testing.T) {
	assert.Equal(t, zap.String("wizard", "4f1c9a2e…"), WizardID("4f1c9a2e-5d7b-4c1e-9a0f-1b2c3d4e5f60"))
	assert.Equal(t, zap.String("wizard", "w1"), WizardID("w1"))
}

func TestHlogLevel(t *testing.T) {
	assert.Equal(t, hlog.LevelDebug, hlogLevel(zapcore.DebugLevel))
	assert.Equal(t, hlog.LevelWarn, hlogLevel(zapcore.WarnLevel))
	assert.Equal(t, hlog.LevelError, hlogLevel(zapcore.FatalLevel))
}

func TestInit_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	prev, prevLogger := config.Cfg, Logger
	t.Cleanup(func() {
		config.Cfg = prev
		Logger = prevLogger
		logClose = nil
	})
	config.Cfg = config.Config{
		LoggerLevel:      "INFO",
		LoggerFormat:     "json",
		LoggerOutputPath: path,
		Environment:      "production",
		ServiceName:      "greennest-test",
	}

	Init()
	Logger.Info("Wizard advanced", WizardID("4f1c9a2e-5d7b"))
	Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	last := lines[len(lines)-1]
	assert.Contains(t, last, `"service":"greennest-test"`)
	assert.Contains(t, last, `"wizard":"4f1c9a2e…"`)
	assert.NotContains(t, last, "5d7b")
}
