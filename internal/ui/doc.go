// Package ui contains the Bubble Tea program that renders the swap control
// panel. The Model type focuses on message orchestration, while dedicated
// helpers own key handling, rendering and daemon-facing actions.
//
// Message flow:
//   - Bubble Tea invokes Model.Update with incoming messages, which are routed
//     through a typed handler registry so each tea.Msg is handled by a
//     focused function.
//   - A backend.Watcher streams daemon notifications. Each one goes through
//     the dispatcher, which publishes context transitions on the tracker and
//     feeds approval requests into the correlator.
//   - Bootstrap results arrive from the sequencer through Reporter, which
//     posts them into the running program.
//   - While a wallet form (buy or withdraw) is open it receives key messages
//     ahead of the registry.
//
// State ownership:
//   - Swap history, balance and progress stores from internal/state are only
//     touched on the Update goroutine.
//   - Pending approvals live in the approval.Correlator. Decisions run as
//     commands on the internal/ui/command bus, so the correlator may drop a
//     request between two renders; the view resyncs cursors before drawing.
package ui
