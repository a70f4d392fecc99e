package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/config"
)

func TestNewSugaredLogger(t *testing.T) {
	tests := []struct {
		name          string
		loggingConfig string
		expectError   bool
	}{
		{
			name: "info level json encoding",
			loggingConfig: `
logging:
  level: info
  development: false
  encoding: json
  outputPaths:
    - stderr
`,
			expectError: false,
		},
		{
			name: "debug level console encoding",
			loggingConfig: `
logging:
  level: debug
  development: true
  encoding: console
  outputPaths:
    - stderr
`,
			expectError: false,
		},
		{
			name: "error level default encoding",
			loggingConfig: `
logging:
  level: error
  development: false
  outputPaths:
    - stderr
`,
			expectError: false,
		},
		{
			name: "invalid level",
			loggingConfig: `
logging:
  level: invalid
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := config.NewYAML(
				config.Source(strings.NewReader(tt.loggingConfig)),
			)
			require.NoError(t, err)

			sugared, err := NewSugaredLogger(provider)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger := NewLogger(sugared)
			require.NotNil(t, logger)
			logger.Info("test message")
		})
	}
}

func TestLoggingConfigPopulate(t *testing.T) {
	configYAML := strings.NewReader(`
logging:
  level: warn
  development: true
  encoding: console
  outputPaths:
    - stderr
    - stdout
`)

	provider, err := config.NewYAML(config.Source(configYAML))
	require.NoError(t, err)

	var loggingConfig LoggingConfig
	err = provider.Get("logging").Populate(&loggingConfig)
	require.NoError(t, err)

	assert.Equal(t, "warn", loggingConfig.Level)
	assert.True(t, loggingConfig.Development)
	assert.Equal(t, "console", loggingConfig.Encoding)
	assert.Equal(t, []string{"stderr", "stdout"}, loggingConfig.OutputPaths)
}

func TestLogToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "lspmux.log")
	configYAML := strings.NewReader(`
logging:
  level: debug
  encoding: json
  outputPaths:
    - ` + logFile + `
`)

	provider, err := config.NewYAML(config.Source(configYAML))
	require.NoError(t, err)

	logger, err := NewSugaredLogger(provider)
	require.NoError(t, err)

	logger.Infow("structured message", "key1", "value1", "key2", 42)
	logger.Sync()

	contents, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "structured message")
	assert.Contains(t, string(contents), "value1")
}
