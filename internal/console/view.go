package console

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/payvo/payvo/internal/session"
)

var registerLabels = []string{"Email", "Name", "Phone", "Voice passphrase", "Introduction"}

func (m Model) View() string {
	var content strings.Builder

	switch m.stage {
	case stageLogin, stageRegister:
		content.WriteString(m.renderForm())
	case stageCommand:
		content.WriteString(m.renderSession())
	}

	if m.err != "" {
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render("✗ " + m.err))
	}

	result := containerStyle.Render(content.String())
	if m.pending != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			lipgloss.JoinVertical(lipgloss.Center, result, m.renderModal()))
	}
	return result
}

func (m Model) renderForm() string {
	var content strings.Builder
	labels := []string{"Email", "Voice passphrase"}
	title := "PayVo · Sign in"
	help := "enter: next / submit • tab: move • ctrl+r: create an account • ctrl+c: quit"
	if m.stage == stageRegister {
		labels = registerLabels
		title = "PayVo · Create account"
		help = "enter: next / submit • tab: move • ctrl+r: back to sign in • ctrl+c: quit"
	}

	content.WriteString(titleStyle.Render(title))
	content.WriteString("\n\n")
	for i, f := range m.fields {
		content.WriteString(labelStyle.Render(labels[i] + ":"))
		content.WriteString("\n")
		content.WriteString(f.View())
		content.WriteString("\n\n")
	}
	content.WriteString(helpStyle.Render(help))
	return content.String()
}

func (m Model) renderSession() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("PayVo · " + m.name))
	content.WriteString("\n\n")

	for _, l := range m.transcript {
		content.WriteString(speakerStyle.Render(l.speaker + ": "))
		if l.status != "" {
			content.WriteString(statusStyle(l.status).Render(l.text))
		} else {
			content.WriteString(l.text)
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(m.command.View())
	content.WriteString("\n\n")
	content.WriteString(helpStyle.Render("enter: speak • /name <introduction>: change your name • esc: sign out • ctrl+c: quit"))
	return content.String()
}

func (m Model) renderModal() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("Confirm transaction"))
	content.WriteString("\n\n")
	content.WriteString(statusStyle(session.StatusPending).Render(m.alert))
	content.WriteString("\n\n")
	content.WriteString(labelStyle.Render(string(m.pending.Kind)+" "+m.pending.Amount.StringFixed(2)+" · "+m.pending.ContactName))
	content.WriteString("\n\n")
	content.WriteString(helpStyle.Render("y: proceed • n: cancel"))
	return modalStyle.Render(content.String())
}
