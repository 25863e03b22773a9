// Package tui is the terminal presentation layer. It renders the
// controller's state and translates key presses into controller
// commands; all mailbox state stays inside the controller.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mez0/TempBox/internal/controller"
	"github.com/Mez0/TempBox/internal/events"
	"github.com/Mez0/TempBox/internal/models"
)

// stateChangedMsg tells the model to re-read the controller queries.
type stateChangedMsg struct{}

// advisoryMsg carries a user-facing error notice.
type advisoryMsg struct {
	title   string
	message string
}

// keyMap defines the inbox key bindings.
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	NextPane  key.Binding
	Open      key.Binding
	Back      key.Binding
	Refresh   key.Binding
	Archive   key.Binding
	Delete    key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		NextPane: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Archive:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		Delete:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// pane identifies the focused column.
type pane int

const (
	paneAccounts pane = iota
	paneMessages
)

// Model is the root bubbletea model.
type Model struct {
	controller *controller.Controller
	publisher  events.Publisher

	keys    keyMap
	spinner spinner.Model
	body    viewport.Model

	updates chan tea.Msg

	focus        pane
	accountIndex int
	messageIndex int
	width        int
	height       int
	advisory     *advisoryMsg
	quitting     bool
}

// New creates the root model and subscribes it to controller events.
func New(ctrl *controller.Controller, publisher events.Publisher) (*Model, error) {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		controller: ctrl,
		publisher:  publisher,
		keys:       defaultKeyMap(),
		spinner:    sp,
		body:       viewport.New(0, 0),
		updates:    make(chan tea.Msg, 64),
	}

	err := publisher.Subscribe("tui", events.Filter{}, func(event *models.Event) {
		if event.Type == models.EventTypeAdvisory {
			m.push(advisoryMsg{
				title:   event.Metadata["title"],
				message: event.Metadata["message"],
			})
			return
		}
		m.push(stateChangedMsg{})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// push enqueues a message without blocking the controller loop.
func (m *Model) push(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
	}
}

// waitForUpdate returns a command that delivers the next pushed message.
func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.body.Width = m.bodyWidth()
		m.body.Height = m.bodyHeight()
		return m, nil

	case stateChangedMsg:
		m.clampCursors()
		m.syncBody()
		return m, m.waitForUpdate()

	case advisoryMsg:
		m.advisory = &msg
		return m, m.waitForUpdate()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.advisory != nil {
		// Any key dismisses the advisory.
		m.advisory = nil
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextPane):
		if m.focus == paneAccounts {
			m.focus = paneMessages
		} else {
			m.focus = paneAccounts
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil

	case key.Matches(msg, m.keys.Open):
		return m, m.open()

	case key.Matches(msg, m.keys.Back):
		m.controller.ClearSelection()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if account, ok := m.currentAccount(); ok {
			m.controller.RefreshAccount(account)
		}
		return m, nil

	case key.Matches(msg, m.keys.Archive):
		if account, ok := m.currentAccount(); ok {
			m.controller.ArchiveAccount(account)
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if account, ok := m.currentAccount(); ok {
			m.controller.DeleteAccount(account)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.body, cmd = m.body.Update(msg)
	return m, cmd
}

func (m *Model) move(delta int) {
	if m.focus == paneAccounts {
		n := len(m.controller.ActiveAccounts())
		m.accountIndex = clamp(m.accountIndex+delta, n)
		m.messageIndex = 0
		if account, ok := m.currentAccount(); ok {
			m.controller.SelectAccount(account.ID)
		}
		return
	}

	store, ok := m.currentStore()
	if !ok {
		return
	}
	m.messageIndex = clamp(m.messageIndex+delta, len(store.Messages))
}

// open selects the message under the cursor, which triggers the
// mark-seen and full-fetch pipeline in the controller.
func (m *Model) open() tea.Cmd {
	account, ok := m.currentAccount()
	if !ok {
		return nil
	}
	store, ok := m.currentStore()
	if !ok || m.messageIndex >= len(store.Messages) {
		return nil
	}

	m.focus = paneMessages
	m.controller.SelectMessage(account.ID, store.Messages[m.messageIndex].ID)
	return nil
}

func (m *Model) currentAccount() (models.Account, bool) {
	accounts := m.controller.ActiveAccounts()
	if m.accountIndex >= len(accounts) {
		return models.Account{}, false
	}
	return accounts[m.accountIndex], true
}

func (m *Model) currentStore() (models.MessageStore, bool) {
	account, ok := m.currentAccount()
	if !ok {
		return models.MessageStore{}, false
	}
	return m.controller.Store(account.ID)
}

func (m *Model) clampCursors() {
	m.accountIndex = clamp(m.accountIndex, len(m.controller.ActiveAccounts()))
	if store, ok := m.currentStore(); ok {
		m.messageIndex = clamp(m.messageIndex, len(store.Messages))
	} else {
		m.messageIndex = 0
	}
}

// syncBody mirrors the selected message into the body viewport.
func (m *Model) syncBody() {
	message, ok := m.controller.SelectedMessage()
	if !ok {
		m.body.SetContent("")
		return
	}
	content := message.Text
	if content == "" {
		content = message.Intro
	}
	m.body.SetContent(content)
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
