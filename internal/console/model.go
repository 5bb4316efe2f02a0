// Package console is an interactive terminal front end. Typed lines stand in
// for recognised speech and replies are shown instead of spoken.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/payvo/payvo/internal/guard"
	"github.com/payvo/payvo/internal/identity"
	"github.com/payvo/payvo/internal/ledger"
	"github.com/payvo/payvo/internal/logging"
	"github.com/payvo/payvo/internal/money"
	"github.com/payvo/payvo/internal/session"
	"github.com/payvo/payvo/internal/voiceprint"
)

type stage int

const (
	stageLogin stage = iota
	stageRegister
	stageCommand
)

const (
	renamePrefix  = "/name "
	maxTranscript = 50
)

// Deps are the services the console drives.
type Deps struct {
	Identity *identity.Service
	Sessions *session.Manager
	Logger   *slog.Logger
}

type line struct {
	speaker string
	text    string
	status  session.Status
}

type loggedInMsg struct {
	session *session.Session
	account ledger.Account
	topped  bool
}

type resultMsg struct {
	utterance string
	result    session.Result
}

type renamedMsg struct {
	account ledger.Account
	changed bool
}

type errMsg struct{ err error }

// Model is the root bubbletea model.
type Model struct {
	deps   Deps
	stage  stage
	width  int
	height int

	fields []textinput.Model
	focus  int

	command    textinput.Model
	session    *session.Session
	name       string
	transcript []line
	pending    *guard.PendingTransaction
	alert      string
	err        string
}

// New returns a console showing the sign-in form.
func New(deps Deps) Model {
	cmd := textinput.New()
	cmd.Placeholder = "say something, e.g. split 60 dollars with alice"
	cmd.Prompt = "🎤 "
	cmd.CharLimit = 200
	cmd.Width = 60

	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	m := Model{deps: deps, command: cmd}
	m.setStage(stageLogin)
	return m
}

func (m *Model) setStage(s stage) {
	m.stage = s
	m.err = ""
	m.focus = 0
	switch s {
	case stageLogin:
		m.fields = []textinput.Model{
			field("email", false),
			field("voice passphrase", true),
		}
	case stageRegister:
		m.fields = []textinput.Model{
			field("email", false),
			field("name (leave blank to take it from your introduction)", false),
			field("phone number", false),
			field("voice passphrase", true),
			field("introduce yourself, e.g. my name is sam", false),
		}
	case stageCommand:
		m.fields = nil
		m.command.Reset()
		m.command.Focus()
		return
	}
	m.fields[0].Focus()
}

func field(placeholder string, secret bool) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 120
	in.Width = 50
	if secret {
		in.EchoMode = textinput.EchoPassword
		in.EchoCharacter = '•'
	}
	return in
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.session != nil {
				m.deps.Sessions.Close(context.Background(), m.session.ID)
			}
			return m, tea.Quit
		}
		if m.pending != nil {
			return m.updateModal(msg)
		}
		if m.stage == stageCommand {
			return m.updateCommand(msg)
		}
		return m.updateForm(msg)

	case loggedInMsg:
		m.session = msg.session
		m.name = msg.account.Name
		m.transcript = nil
		m.pending = nil
		m.setStage(stageCommand)
		greeting := fmt.Sprintf("Welcome, %s. Your balance is %s.", msg.account.Name, money.Format(msg.account.Balance))
		if msg.topped {
			greeting += " Your account was topped up."
		}
		m.push(line{speaker: "PayVo", text: greeting, status: session.StatusInfo})
		return m, nil

	case resultMsg:
		m.deps.Logger.Debug("console command", "utterance", msg.utterance, "status", msg.result.Status)
		m.push(line{speaker: "PayVo", text: msg.result.Message, status: msg.result.Status})
		m.pending = msg.result.Pending
		m.alert = msg.result.Alert
		return m, nil

	case renamedMsg:
		if msg.changed {
			m.name = msg.account.Name
			m.push(line{speaker: "PayVo", text: "Nice to meet you, " + msg.account.Name + ".", status: session.StatusSuccess})
		} else {
			m.push(line{speaker: "PayVo", text: "I didn't catch a new name.", status: session.StatusGuidance})
		}
		return m, nil

	case errMsg:
		m.deps.Logger.Warn("console action failed", "err", msg.err)
		m.err = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	if m.stage == stageCommand {
		m.command, cmd = m.command.Update(msg)
	} else if len(m.fields) > 0 {
		m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	}
	return m, cmd
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y", "enter":
		m.push(line{speaker: "You", text: "confirm"})
		return m, m.confirm()
	case "n", "esc":
		m.push(line{speaker: "You", text: "cancel"})
		return m, m.cancel()
	}
	return m, nil
}

func (m Model) updateCommand(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.deps.Sessions.Close(context.Background(), m.session.ID)
		m.session = nil
		m.setStage(stageLogin)
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.command.Value())
		m.command.Reset()
		if text == "" {
			return m, nil
		}
		m.err = ""
		m.push(line{speaker: "You", text: text})
		if strings.HasPrefix(text, renamePrefix) {
			return m, m.rename(strings.TrimPrefix(text, renamePrefix))
		}
		return m, m.process(text)
	}
	var cmd tea.Cmd
	m.command, cmd = m.command.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+r":
		if m.stage == stageLogin {
			m.setStage(stageRegister)
		} else {
			m.setStage(stageLogin)
		}
		return m, nil
	case "tab", "down":
		m.moveFocus(1)
		return m, nil
	case "shift+tab", "up":
		m.moveFocus(-1)
		return m, nil
	case "enter":
		if m.focus < len(m.fields)-1 {
			m.moveFocus(1)
			return m, nil
		}
		m.err = ""
		if m.stage == stageLogin {
			return m, m.login(m.value(0), m.value(1))
		}
		return m, m.register()
	}
	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) moveFocus(delta int) {
	m.fields[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].Focus()
}

func (m Model) value(i int) string {
	return strings.TrimSpace(m.fields[i].Value())
}

func (m *Model) push(l line) {
	m.transcript = append(m.transcript, l)
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
}

func (m Model) login(email, passphrase string) tea.Cmd {
	ids, sessions := m.deps.Identity, m.deps.Sessions
	return func() tea.Msg {
		ctx := context.Background()
		sample := voiceprint.Simulate(passphrase)
		acct, topped, err := ids.Authenticate(ctx, email, passphrase, &sample)
		if err != nil {
			return errMsg{err}
		}
		s, err := sessions.Open(acct.Email)
		if err != nil {
			return errMsg{err}
		}
		return loggedInMsg{session: s, account: acct, topped: topped}
	}
}

func (m Model) register() tea.Cmd {
	reg := identity.Registration{
		Email:       m.value(0),
		Name:        m.value(1),
		PhoneNumber: m.value(2),
		Passphrase:  m.value(3),
	}
	intro := m.value(4)
	ids := m.deps.Identity
	login := m.login(reg.Email, reg.Passphrase)
	return func() tea.Msg {
		sample := voiceprint.Simulate(reg.Passphrase)
		reg.VoiceSample = &sample
		if reg.Name == "" && intro != "" {
			reg.Name = identity.ExtractName(intro)
		}
		if _, err := ids.Register(context.Background(), reg); err != nil {
			return errMsg{err}
		}
		return login()
	}
}

func (m Model) process(text string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return resultMsg{utterance: text, result: s.Process(context.Background(), text)}
	}
}

func (m Model) confirm() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return resultMsg{utterance: "confirm", result: s.Confirm(context.Background())}
	}
}

func (m Model) cancel() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return resultMsg{utterance: "cancel", result: s.Cancel(context.Background())}
	}
}

func (m Model) rename(intro string) tea.Cmd {
	ids, email := m.deps.Identity, m.session.Email()
	return func() tea.Msg {
		acct, changed, err := ids.UpdateNameFromVoice(context.Background(), email, intro)
		if err != nil {
			return errMsg{err}
		}
		return renamedMsg{account: acct, changed: changed}
	}
}
