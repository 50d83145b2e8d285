package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atomicstack/swap-control/internal/app"
	"github.com/atomicstack/swap-control/internal/daemon"
)

// Config captures runtime configuration for the application.
type Config struct {
	App     app.Config
	Logging Logging
	Flags   map[string]string
	Args    []string
}

type Logging struct {
	FilePath string
	Level    string
	Trace    bool
}

const envPrefix = "SWAP_CONTROL"

const (
	keyDaemonURL      = "daemon.url"
	keyCallTimeout    = "daemon.call_timeout"
	keyMaxRetries     = "daemon.max_retries"
	keyDataDir        = "data_dir"
	keyLogFile        = "log.file"
	keyLogLevel       = "log.level"
	keyTrace          = "log.trace"
	keyWidth          = "ui.width"
	keyHeight         = "ui.height"
	keyFooter         = "ui.footer"
	keyVerbose        = "ui.verbose"
	keySetupStates    = "swaps.setup_states"
	keyFeedbackPrompt = "feedback.prompt_id"
)

// Load parses configuration from CLI arguments, SWAP_CONTROL_* environment
// variables and an optional config file.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs allows tests to supply specific args.
func LoadArgs(args []string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	fs := pflag.NewFlagSet("swap-control", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "", "path to a config file (toml, yaml or json)")
	fs.String("daemon-url", "", "websocket url of the swap daemon")
	fs.Duration("call-timeout", 0, "timeout for a single daemon call")
	fs.Int("max-retries", 0, "write retries while the daemon connection is re-established")
	fs.String("data-dir", "", "directory for local state")
	fs.String("log-file", "", "path to the log file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("trace", false, "enable verbose JSON trace logging")
	fs.Int("width", 0, "desired viewport width in cells (0 uses terminal width)")
	fs.Int("height", 0, "desired viewport height in rows (0 uses terminal height)")
	fs.Bool("footer", false, "enable footer hint row")
	fs.Bool("verbose", false, "print success messages for actions")
	fs.StringSlice("setup-states", nil, "swap states treated as initial negotiation")
	fs.String("feedback-prompt", "", "id of the feedback prompt to offer")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	bindings := map[string]string{
		"daemon-url":      keyDaemonURL,
		"call-timeout":    keyCallTimeout,
		"max-retries":     keyMaxRetries,
		"data-dir":        keyDataDir,
		"log-file":        keyLogFile,
		"log-level":       keyLogLevel,
		"trace":           keyTrace,
		"width":           keyWidth,
		"height":          keyHeight,
		"footer":          keyFooter,
		"verbose":         keyVerbose,
		"setup-states":    keySetupStates,
		"feedback-prompt": keyFeedbackPrompt,
	}
	for flagName, key := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return Config{}, fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := readConfigFile(v, *configFile); err != nil {
		return Config{}, err
	}

	daemonCfg := daemon.DefaultConfig()
	daemonCfg.URL = v.GetString(keyDaemonURL)
	daemonCfg.CallTimeout = v.GetDuration(keyCallTimeout)
	daemonCfg.MaxRetries = v.GetInt(keyMaxRetries)

	cfg := Config{
		App: app.Config{
			Daemon:           daemonCfg,
			DataDir:          v.GetString(keyDataDir),
			Width:            v.GetInt(keyWidth),
			Height:           v.GetInt(keyHeight),
			ShowFooter:       v.GetBool(keyFooter),
			Verbose:          v.GetBool(keyVerbose),
			SetupStates:      splitList(v.GetStringSlice(keySetupStates)),
			FeedbackPromptID: v.GetString(keyFeedbackPrompt),
		},
		Logging: Logging{
			FilePath: v.GetString(keyLogFile),
			Level:    v.GetString(keyLogLevel),
			Trace:    v.GetBool(keyTrace),
		},
		Args: append([]string(nil), args...),
	}
	cfg.Flags = map[string]string{
		"daemonUrl":   cfg.App.Daemon.URL,
		"callTimeout": cfg.App.Daemon.CallTimeout.String(),
		"maxRetries":  strconv.Itoa(cfg.App.Daemon.MaxRetries),
		"dataDir":     cfg.App.DataDir,
		"width":       strconv.Itoa(cfg.App.Width),
		"height":      strconv.Itoa(cfg.App.Height),
		"footer":      strconv.FormatBool(cfg.App.ShowFooter),
		"verbose":     strconv.FormatBool(cfg.App.Verbose),
		"logLevel":    cfg.Logging.Level,
		"config":      v.ConfigFileUsed(),
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := daemon.DefaultConfig()
	v.SetDefault(keyDaemonURL, defaults.URL)
	v.SetDefault(keyCallTimeout, defaults.CallTimeout)
	v.SetDefault(keyMaxRetries, defaults.MaxRetries)
	v.SetDefault(keyDataDir, defaultDataDir())
	v.SetDefault(keyLogFile, "")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyTrace, false)
	v.SetDefault(keyWidth, 0)
	v.SetDefault(keyHeight, 0)
	v.SetDefault(keyFooter, false)
	v.SetDefault(keyVerbose, false)
	v.SetDefault(keySetupStates, []string{})
	v.SetDefault(keyFeedbackPrompt, "")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "swap-control")
}

// readConfigFile loads an explicit file, or the first config.* found in
// $HOME/.config/swap-control. Only an explicit file is required to exist.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "swap-control"))
	}
	v.SetConfigName("config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// splitList accepts both repeated values and comma separated ones, as the
// environment only carries a single string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate ensures required minimum configuration is present.
func Validate(cfg Config) error {
	if cfg.App.Width < 0 {
		return fmt.Errorf("width must be >= 0 (got %d)", cfg.App.Width)
	}
	if cfg.App.Height < 0 {
		return fmt.Errorf("height must be >= 0 (got %d)", cfg.App.Height)
	}
	u, err := url.Parse(cfg.App.Daemon.URL)
	if err != nil {
		return fmt.Errorf("daemon url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("daemon url must use ws or wss (got %q)", cfg.App.Daemon.URL)
	}
	if cfg.App.Daemon.CallTimeout <= 0 || cfg.App.Daemon.CallTimeout > 10*time.Minute {
		return fmt.Errorf("call timeout must be within (0, 10m] (got %s)", cfg.App.Daemon.CallTimeout)
	}
	if cfg.App.Daemon.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0 (got %d)", cfg.App.Daemon.MaxRetries)
	}
	return nil
}
