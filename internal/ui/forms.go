package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/atomicstack/swap-control/internal/daemon"
	"github.com/atomicstack/swap-control/internal/logging/events"
)

const (
	formBuy      = "wallet:buy"
	formWithdraw = "wallet:withdraw"
)

type promptField struct {
	label    string
	optional bool
	input    textinput.Model
}

// promptForm collects the arguments of a wallet action. Enter moves to the
// next field and submits from the last one; esc cancels.
type promptForm struct {
	action string
	title  string
	fields []promptField
	active int
}

func newPromptField(label, placeholder string, optional bool) promptField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = 128
	ti.Cursor.SetMode(cursor.CursorStatic)
	return promptField{label: label, optional: optional, input: ti}
}

func newPromptForm(action, title string, fields ...promptField) *promptForm {
	f := &promptForm{action: action, title: title, fields: fields}
	f.fields[0].input.Focus()
	return f
}

func newBuyForm() *promptForm {
	return newPromptForm(formBuy, "Buy XMR",
		newPromptField("Monero receive address", "4…", false),
		newPromptField("Bitcoin change address", "internal wallet", true),
	)
}

func newWithdrawForm() *promptForm {
	return newPromptForm(formWithdraw, "Withdraw BTC",
		newPromptField("Bitcoin address", "bc1…", false),
		newPromptField("Amount in BTC", "whole balance", true),
	)
}

func (f *promptForm) Value(i int) string {
	return strings.TrimSpace(f.fields[i].input.Value())
}

func (f *promptForm) focus(i int) {
	f.fields[f.active].input.Blur()
	f.active = i
	f.fields[f.active].input.Focus()
}

func (f *promptForm) firstMissing() int {
	for i, field := range f.fields {
		if !field.optional && f.Value(i) == "" {
			return i
		}
	}
	return -1
}

// Update feeds msg to the focused field. It reports whether the form was
// submitted or cancelled.
func (f *promptForm) Update(msg tea.Msg) (tea.Cmd, bool, bool) {
	if key, ok := msg.(tea.KeyMsg); ok {
		field := &f.fields[f.active]
		switch key.String() {
		case "ctrl+u":
			if field.input.Value() != "" {
				field.input.SetValue("")
				field.input.CursorStart()
			}
			return nil, false, false
		case "tab", "down":
			f.focus((f.active + 1) % len(f.fields))
			return nil, false, false
		case "shift+tab", "up":
			f.focus((f.active + len(f.fields) - 1) % len(f.fields))
			return nil, false, false
		}
		switch key.Type {
		case tea.KeyEsc:
			events.UI.Form(f.action, "cancel")
			return nil, false, true
		case tea.KeyEnter:
			if f.active < len(f.fields)-1 {
				f.focus(f.active + 1)
				return nil, false, false
			}
			if missing := f.firstMissing(); missing >= 0 {
				f.focus(missing)
				return nil, false, false
			}
			events.UI.Form(f.action, "submit")
			return nil, true, false
		}
	}
	var cmd tea.Cmd
	f.fields[f.active].input, cmd = f.fields[f.active].input.Update(msg)
	return cmd, false, false
}

func (f *promptForm) lines() []string {
	lines := []string{styled(styles.Section, f.title)}
	for i, field := range f.fields {
		label := field.label
		if field.optional {
			label += " (optional)"
		}
		marker := styled(styles.ItemIndicator, " ")
		if i == f.active {
			marker = styled(styles.SelectedItemIndicator, "▌")
		}
		lines = append(lines, marker+" "+label+": "+field.input.View())
	}
	return append(lines, styled(styles.Muted, "  enter next · tab switch field · esc cancel"))
}

// openForm starts a wallet prompt. Both actions need a running daemon.
func (m *Model) openForm(form *promptForm) tea.Cmd {
	if !m.tracker.Current().IsAvailable() {
		m.setError(fmt.Sprintf("%s: daemon is not available", strings.ToLower(form.title)))
		return nil
	}
	m.form = form
	events.UI.Form(form.action, "open")
	return nil
}

// handlePromptForm routes keys to the open form ahead of the handler
// registry. Other messages only reach the form when nothing else claims them.
func (m *Model) handlePromptForm(msg tea.Msg) (bool, tea.Cmd) {
	if m.form == nil {
		return false, nil
	}
	key, isKey := msg.(tea.KeyMsg)
	if !isKey && m.handlerFor(msg) != nil {
		return false, nil
	}
	if isKey && key.String() == "ctrl+c" {
		return true, tea.Quit
	}
	cmd, done, cancel := m.form.Update(msg)
	if cancel {
		m.form = nil
		return true, cmd
	}
	if done {
		form := m.form
		m.form = nil
		return true, m.submitForm(form)
	}
	return true, cmd
}

func (m *Model) submitForm(form *promptForm) tea.Cmd {
	switch form.action {
	case formBuy:
		return m.buyCmd(daemon.BuyRequest{
			MoneroReceiveAddress: form.Value(0),
			BitcoinChangeAddress: form.Value(1),
		})
	case formWithdraw:
		req := daemon.WithdrawRequest{Address: form.Value(0)}
		if raw := form.Value(1); raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				m.setError(fmt.Sprintf("withdraw: invalid amount %q", raw))
				return nil
			}
			req.Amount = &amount
		}
		return m.withdrawCmd(req)
	}
	return nil
}
