package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mez0/TempBox/internal/models"
)

const accountsPaneWidth = 32

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Padding(0, 1)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("205"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	unseenStyle = lipgloss.NewStyle().Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	advisoryStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)
)

// connectionGlyph maps a connection state to its pane marker.
func connectionGlyph(state models.ConnectionState) string {
	switch state {
	case models.ConnectionOpened:
		return "●"
	case models.ConnectionConnecting:
		return "◌"
	case models.ConnectionErrored:
		return "✗"
	default:
		return "○"
	}
}

func (m *Model) bodyWidth() int {
	w := m.width - accountsPaneWidth - 8
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) bodyHeight() int {
	h := m.height/2 - 4
	if h < 5 {
		h = 5
	}
	return h
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.advisory != nil {
		return m.viewAdvisory()
	}

	left := m.viewAccounts()
	right := lipgloss.JoinVertical(lipgloss.Left, m.viewMessages(), m.viewBody())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	help := helpStyle.Render("j/k move · tab pane · enter open · esc back · r refresh · a archive · D delete · q quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("TempBox"),
		panes,
		help,
	)
}

func (m *Model) viewAdvisory() string {
	content := fmt.Sprintf("%s\n\n%s\n\n%s",
		lipgloss.NewStyle().Bold(true).Render(m.advisory.title),
		m.advisory.message,
		dimStyle.Render("press any key to dismiss"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		advisoryStyle.Render(content))
}

func (m *Model) viewAccounts() string {
	accounts := m.controller.ActiveAccounts()

	var b strings.Builder
	b.WriteString(unseenStyle.Render("Accounts"))
	b.WriteString("\n\n")

	if len(accounts) == 0 {
		b.WriteString(dimStyle.Render("no active accounts"))
	}
	for i, account := range accounts {
		glyph := connectionGlyph(m.controller.ConnectionState(account.ID))
		line := fmt.Sprintf("%s %s", glyph, truncate(account.Address, accountsPaneWidth-6))
		if i == m.accountIndex {
			line = cursorStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := paneStyle
	if m.focus == paneAccounts {
		style = focusedPaneStyle
	}
	return style.Width(accountsPaneWidth).Render(b.String())
}

func (m *Model) viewMessages() string {
	var b strings.Builder
	b.WriteString(unseenStyle.Render("Messages"))
	b.WriteString("\n\n")

	store, ok := m.currentStore()
	switch {
	case !ok:
		b.WriteString(dimStyle.Render("select an account"))
	case store.IsFetching:
		b.WriteString(m.spinner.View())
		b.WriteString(" fetching…")
	case store.Err != nil:
		b.WriteString(dimStyle.Render("fetch failed: " + store.Err.Error()))
	case len(store.Messages) == 0:
		b.WriteString(dimStyle.Render("inbox empty"))
	default:
		for i, message := range store.Messages {
			b.WriteString(m.renderMessageLine(i, message))
			b.WriteString("\n")
		}
	}

	style := paneStyle
	if m.focus == paneMessages {
		style = focusedPaneStyle
	}
	return style.Width(m.bodyWidth() + 4).Render(b.String())
}

func (m *Model) renderMessageLine(i int, message models.Message) string {
	marker := " "
	if !message.Seen {
		marker = "*"
	}
	line := fmt.Sprintf("%s %s — %s", marker,
		truncate(message.From.Display(), 24),
		truncate(message.Subject, m.bodyWidth()-30))
	if !message.Seen {
		line = unseenStyle.Render(line)
	}
	if i == m.messageIndex && m.focus == paneMessages {
		line = cursorStyle.Render(">") + line
	} else {
		line = " " + line
	}
	return line
}

func (m *Model) viewBody() string {
	message, ok := m.controller.SelectedMessage()
	if !ok {
		return paneStyle.Width(m.bodyWidth() + 4).Render(dimStyle.Render("no message selected"))
	}

	header := unseenStyle.Render(message.Subject)
	meta := dimStyle.Render(message.From.Display())
	if !message.IsComplete {
		meta += dimStyle.Render("  (loading full message…)")
	}

	return paneStyle.Width(m.bodyWidth() + 4).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, meta, "", m.body.View()))
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
