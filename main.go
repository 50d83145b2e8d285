package main

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/atomicstack/swap-control/internal/app"
	"github.com/atomicstack/swap-control/internal/config"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
)

func main() {
	cfg := config.MustLoad()
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	logging.Configure(cfg.Logging.FilePath, cfg.Logging.Level)
	logging.SetTraceEnabled(cfg.Logging.Trace)
	events.App.Start(startupTracePayload(cfg))

	err := app.Run(cfg.App)
	if err != nil {
		logging.Error(err)
	}
	logging.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// startupTracePayload records what the process was started with, so a trace
// log can be matched to a session.
func startupTracePayload(cfg config.Config) map[string]interface{} {
	flags := make(map[string]interface{}, len(cfg.Flags)+3)
	for k, v := range cfg.Flags {
		flags[k] = v
	}
	flags["trace"] = cfg.Logging.Trace
	flags["logFile"] = cfg.Logging.FilePath
	flags["setupStates"] = cfg.App.SetupStates

	payload := map[string]interface{}{
		"argv":   cfg.Args,
		"flags":  flags,
		"config": cfg,
		"daemon": cfg.App.Daemon.URL,
		"tty":    collectTTYDetails(),
	}
	if exe, err := os.Executable(); err == nil {
		payload["executable"] = exe
	}
	if cwd, err := os.Getwd(); err == nil {
		payload["cwd"] = cwd
	}
	return payload
}

type ttyDetails struct {
	Detected    *ttyDescriptor  `json:"detected,omitempty"`
	Descriptors []ttyDescriptor `json:"descriptors"`
}

type ttyDescriptor struct {
	Name       string `json:"name"`
	IsTerminal bool   `json:"is_terminal"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Error      string `json:"error,omitempty"`
}

// collectTTYDetails reports which standard descriptors are terminals. The
// first one with a readable size is marked as detected.
func collectTTYDetails() ttyDetails {
	files := []*os.File{os.Stdin, os.Stdout, os.Stderr}
	names := []string{"stdin", "stdout", "stderr"}

	details := ttyDetails{Descriptors: make([]ttyDescriptor, 0, len(files))}
	for i, f := range files {
		desc := ttyDescriptor{Name: names[i]}
		fd := int(f.Fd())
		if fd >= 0 && term.IsTerminal(fd) {
			desc.IsTerminal = true
			width, height, err := term.GetSize(fd)
			if err != nil {
				desc.Error = err.Error()
			} else {
				desc.Width, desc.Height = width, height
				if details.Detected == nil {
					detected := desc
					details.Detected = &detected
				}
			}
		}
		details.Descriptors = append(details.Descriptors, desc)
	}
	return details
}
