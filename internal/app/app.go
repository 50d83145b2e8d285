package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sourcegraph/conc"

	"github.com/atomicstack/swap-control/internal/ackstore"
	"github.com/atomicstack/swap-control/internal/approval"
	"github.com/atomicstack/swap-control/internal/backend"
	"github.com/atomicstack/swap-control/internal/bootstrap"
	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/logging"
	"github.com/atomicstack/swap-control/internal/logging/events"
	"github.com/atomicstack/swap-control/internal/swaps"
	"github.com/atomicstack/swap-control/internal/tracker"
	"github.com/atomicstack/swap-control/internal/ui"
)

// Config describes user-provided application options.
type Config struct {
	Daemon           daemon.Config
	DataDir          string
	Width            int
	Height           int
	ShowFooter       bool
	Verbose          bool
	SetupStates      []string
	FeedbackPromptID string
}

// Run connects to the daemon and executes the Bubble Tea program until the
// user quits.
func Run(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var acksDir string
	if cfg.DataDir != "" {
		acksDir = filepath.Join(cfg.DataDir, "acks")
	}
	acks, err := ackstore.Open(acksDir, logging.Logger())
	if err != nil {
		return err
	}
	defer acks.Close()

	client, err := daemon.Dial(ctx, cfg.Daemon)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	watcher := backend.NewWatcher(client)
	defer watcher.Stop()

	contexts := tracker.New()
	reporter := ui.NewReporter()
	sequencer := bootstrap.New(contexts, client, reporter)

	model := ui.NewModel(ui.Options{
		Width:            cfg.Width,
		Height:           cfg.Height,
		ShowFooter:       cfg.ShowFooter,
		Verbose:          cfg.Verbose,
		Watcher:          watcher,
		Tracker:          contexts,
		Approvals:        approval.NewCorrelator(client),
		Controller:       client,
		Refresher:        sequencer,
		Acks:             acks,
		Classifier:       swaps.NewClassifier(cfg.SetupStates),
		FeedbackPromptID: cfg.FeedbackPromptID,
		ActionTimeout:    cfg.Daemon.CallTimeout,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	reporter.Attach(program.Send)

	var wg conc.WaitGroup
	wg.Go(func() { sequencer.Run(ctx) })

	_, err = program.Run()
	cancel()
	wg.Wait()

	reason := "quit"
	if err != nil {
		reason = err.Error()
	}
	events.App.Stop(reason)
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
