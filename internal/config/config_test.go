package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func TestLoadArgsDefaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:9944", cfg.App.Daemon.URL)
	require.Equal(t, 30*time.Second, cfg.App.Daemon.CallTimeout)
	require.Equal(t, 3, cfg.App.Daemon.MaxRetries)
	require.Equal(t, "info", cfg.Logging.Level)
	require.False(t, cfg.Logging.Trace)
	require.Empty(t, cfg.App.SetupStates)
	require.NoError(t, Validate(cfg))
}

func TestLoadArgsFlags(t *testing.T) {
	isolate(t)
	cfg, err := LoadArgs([]string{
		"--daemon-url", "wss://daemon.local:9944",
		"--call-timeout", "5s",
		"--width", "100",
		"--footer",
		"--trace",
		"--setup-states", "Initiated,Negotiating",
		"--feedback-prompt", "survey-2024",
	})
	require.NoError(t, err)
	require.Equal(t, "wss://daemon.local:9944", cfg.App.Daemon.URL)
	require.Equal(t, 5*time.Second, cfg.App.Daemon.CallTimeout)
	require.Equal(t, 100, cfg.App.Width)
	require.True(t, cfg.App.ShowFooter)
	require.True(t, cfg.Logging.Trace)
	require.Equal(t, []string{"Initiated", "Negotiating"}, cfg.App.SetupStates)
	require.Equal(t, "survey-2024", cfg.App.FeedbackPromptID)
	require.Equal(t, "100", cfg.Flags["width"])
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("SWAP_CONTROL_DAEMON_URL", "ws://10.0.0.2:1234")
	t.Setenv("SWAP_CONTROL_UI_VERBOSE", "true")
	t.Setenv("SWAP_CONTROL_SWAPS_SETUP_STATES", "Handshake, Offer")

	cfg, err := LoadArgs(nil)
	require.NoError(t, err)
	require.Equal(t, "ws://10.0.0.2:1234", cfg.App.Daemon.URL)
	require.True(t, cfg.App.Verbose)
	require.Equal(t, []string{"Handshake", "Offer"}, cfg.App.SetupStates)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("SWAP_CONTROL_UI_WIDTH", "60")
	cfg, err := LoadArgs([]string{"--width", "90"})
	require.NoError(t, err)
	require.Equal(t, 90, cfg.App.Width)
}

func TestConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "swap.toml")
	content := "[daemon]\nurl = \"ws://file.local:1\"\n\n[log]\nlevel = \"debug\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadArgs([]string{"--config", path})
	require.NoError(t, err)
	require.Equal(t, "ws://file.local:1", cfg.App.Daemon.URL)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, path, cfg.Flags["config"])
}

func TestMissingExplicitConfigFileFails(t *testing.T) {
	isolate(t)
	_, err := LoadArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.toml")})
	require.Error(t, err)
}

func TestUnknownFlagFails(t *testing.T) {
	isolate(t)
	_, err := LoadArgs([]string{"--bogus"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	cfg, err := LoadArgs(nil)
	require.NoError(t, err)

	bad := cfg
	bad.App.Width = -1
	require.Error(t, Validate(bad))

	bad = cfg
	bad.App.Daemon.URL = "http://127.0.0.1:9944"
	require.Error(t, Validate(bad))

	bad = cfg
	bad.App.Daemon.CallTimeout = 0
	require.Error(t, Validate(bad))

	bad = cfg
	bad.App.Daemon.MaxRetries = -2
	require.Error(t, Validate(bad))
}
