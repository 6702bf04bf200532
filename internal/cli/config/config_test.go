package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/pkg/core"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "sidebar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.String("data", "", "")
	flags.BoolP("verbose", "v", false, "")
	flags.StringP("output", "o", "", "")
	flags.Int("port", 0, "")
	flags.String("webhook", "", "")
	return flags
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SIDEBAR_TEST_ONE", "value_one")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no vars", "plain", "plain"},
		{"single var", "${SIDEBAR_TEST_ONE}", "value_one"},
		{"embedded", "https://${SIDEBAR_TEST_ONE}/hook", "https://value_one/hook"},
		{"missing var kept", "${SIDEBAR_TEST_MISSING}", "${SIDEBAR_TEST_MISSING}"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer ResetConfig()
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(cfg.ProjectRoot, DefaultStateFile), cfg.StatePath)
	assert.Empty(t, cfg.DataFile)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.False(t, cfg.Verbose)

	ui := cfg.GetUIConfig()
	assert.Equal(t, DefaultPort, ui.Port)
	assert.True(t, ui.AutoOpen)
	assert.True(t, ui.Watch)
	assert.Equal(t, DefaultMaxViewers, ui.MaxViewers)

	assert.Equal(t, DefaultWebhookTimeout, cfg.GetHostConfig().Timeout)
	assert.Equal(t, DefaultMaxHistory, cfg.MaxHistory())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	defer ResetConfig()
	dir := t.TempDir()
	t.Setenv("SIDEBAR_TEST_SECRET", "s3cret")
	path := writeConfig(t, dir, `
state_path: state/sidebar.db
data_file: sidebar.json
output: json
ui:
  port: 9001
  auto_open: false
  session_secret: ${SIDEBAR_TEST_SECRET}
host:
  webhook_url: http://localhost:7000/messages
  timeout: 2s
history:
  max: 10
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, filepath.Join(dir, "state", "sidebar.db"), cfg.StatePath)
	assert.Equal(t, filepath.Join(dir, "sidebar.json"), cfg.DataFile)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 9001, cfg.GetUIConfig().Port)
	assert.False(t, cfg.GetUIConfig().AutoOpen)
	assert.Equal(t, "s3cret", cfg.GetUIConfig().SessionSecret)
	assert.Equal(t, "http://localhost:7000/messages", cfg.GetHostConfig().WebhookURL)
	assert.Equal(t, 2*time.Second, cfg.GetHostConfig().Timeout)
	assert.Equal(t, 10, cfg.MaxHistory())
}

func TestLoadConfig_Catalog(t *testing.T) {
	defer ResetConfig()
	path := writeConfig(t, t.TempDir(), `
catalog:
  providers:
    - id: kubernetes
      label: Kubernetes
      icon: codicon-cloud
      description: Cluster operations
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Catalog)
	assert.Nil(t, cfg.Catalog.Context)
	assert.Equal(t, []core.CatalogItem{{
		ID:          "kubernetes",
		Label:       "Kubernetes",
		Icon:        "codicon-cloud",
		Description: "Cluster operations",
	}}, cfg.Catalog.Providers)
}

func TestLoadConfig_DiscoversUpward(t *testing.T) {
	defer ResetConfig()
	root := t.TempDir()
	writeConfig(t, root, "output: markdown\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o750))
	t.Chdir(nested)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(cfg.ProjectRoot)
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
	assert.Equal(t, "markdown", cfg.OutputFormat)
}

func TestLoadConfig_Precedence(t *testing.T) {
	defer ResetConfig()
	dir := t.TempDir()
	path := writeConfig(t, dir, "output: markdown\nui:\n  port: 9001\n")

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv("SIDEBAR_OUTPUT", "text")
		t.Setenv("SIDEBAR_UI__PORT", "9002")

		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, "text", cfg.OutputFormat)
		assert.Equal(t, 9002, cfg.GetUIConfig().Port)
	})

	t.Run("flags override env", func(t *testing.T) {
		t.Setenv("SIDEBAR_OUTPUT", "text")
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"-o", "json", "--port", "9003", "-v"}))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, 9003, cfg.GetUIConfig().Port)
		assert.True(t, cfg.Verbose)
	})

	t.Run("unset flags keep file values", func(t *testing.T) {
		cfg, err := LoadConfig(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "markdown", cfg.OutputFormat)
		assert.Equal(t, 9001, cfg.GetUIConfig().Port)
	})

	t.Run("state and data flags resolve against cwd", func(t *testing.T) {
		cwd := t.TempDir()
		t.Chdir(cwd)
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--state", "x.db", "--data", "d.json"}))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)

		abs, err := filepath.Abs("x.db")
		require.NoError(t, err)
		assert.Equal(t, abs, cfg.StatePath)
		assert.Equal(t, filepath.Join(filepath.Dir(abs), "d.json"), cfg.DataFile)
	})

	t.Run("memory state path is kept", func(t *testing.T) {
		flags := testFlags()
		require.NoError(t, flags.Parse([]string{"--state", ":memory:"}))

		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, ":memory:", cfg.StatePath)
	})
}

func TestLoadConfig_Invalid(t *testing.T) {
	defer ResetConfig()
	dir := t.TempDir()

	tests := []struct {
		name      string
		body      string
		errSubstr string
	}{
		{"bad output", "output: xml\n", "invalid output format"},
		{"bad port", "ui:\n  port: 70000\n", "ui.port"},
		{"negative history", "history:\n  max: -1\n", "history.max"},
		{"bad webhook scheme", "host:\n  webhook_url: ftp://example.com\n", "http or https"},
		{"webhook without host", "host:\n  webhook_url: http://\n", "no host"},
		{"broken yaml", "ui: [\n", "error reading config file"},
		{"catalog without id", "catalog:\n  providers:\n    - label: HTTP\n", "id is required"},
		{"catalog duplicate", "catalog:\n  context:\n    - {id: a, label: A}\n    - {id: a, label: B}\n", "duplicate id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, tt.body)
			_, err := LoadConfig(path, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_path is required")

	cfg.StatePath = ":memory:"
	assert.NoError(t, cfg.Validate())
}

func TestGetUIConfig_FillsZeroValues(t *testing.T) {
	cfg := &Config{UI: &UIConfig{Watch: true}}
	ui := cfg.GetUIConfig()
	assert.Equal(t, DefaultPort, ui.Port)
	assert.Equal(t, DefaultMaxViewers, ui.MaxViewers)
	assert.True(t, ui.Watch)
	assert.Equal(t, 0, cfg.UI.Port, "source config must not change")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))

	ctx = context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
