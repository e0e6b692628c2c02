package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"feedbackexplorer/internal/domain"
	"feedbackexplorer/internal/service"
	"feedbackexplorer/internal/session"
)

type screen int

const (
	screenConnecting screen = iota
	screenUnavailable
	screenMain
)

type focus int

const (
	focusPath focus = iota
	focusBatch
	focusChat
)

// startedMsg carries the result of the initial status fetch.
type startedMsg struct{ err error }

// uploadDoneMsg is sent when an ingest submission reaches a terminal state.
type uploadDoneMsg struct {
	job domain.UploadJob
	err error
}

// turnMsg carries the assistant or error turn that resolved a question.
type turnMsg struct{ turn domain.Turn }

// refreshMsg is sent when the status tracker finished a manual refresh.
type refreshMsg struct{ err error }

// changedMsg is sent by component observers when state changed outside Update.
type changedMsg struct{}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	explorer *service.Explorer
	styles   *Styles

	screen  screen
	focus   focus
	connErr error

	pathInput  textinput.Model
	batchInput textinput.Model
	chatInput  textinput.Model
	chat       viewport.Model
	sources    viewport.Model
	spinner    spinner.Model

	showSources bool
	// selected is the assistant turn whose sources ctrl+o opens; -1 means
	// the latest result set.
	selected int
	notice   string

	width  int
	height int
	ready  bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, explorer *service.Explorer) Model {
	styles := DefaultStyles()

	path := textinput.New()
	path.Prompt = "File: "
	path.Placeholder = "path/to/reviews.csv"
	path.CharLimit = 0

	batch := textinput.New()
	batch.Prompt = "Batch size: "
	batch.SetValue(strconv.Itoa(explorer.Ingest.BatchSize()))
	batch.CharLimit = 6
	batch.Width = 6

	chat := textinput.New()
	chat.Prompt = "> "
	chat.Placeholder = "Ask about your customer feedback and press Enter"
	chat.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		ctx:        ctx,
		explorer:   explorer,
		styles:     styles,
		pathInput:  path,
		batchInput: batch,
		chatInput:  chat,
		chat:       viewport.New(0, 0),
		sources:    viewport.New(0, 0),
		spinner:    sp,
		selected:   -1,
	}
}

// Init starts the initial status fetch and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start())
}

func (m Model) start() tea.Cmd {
	ctx, explorer := m.ctx, m.explorer
	return func() tea.Msg { return startedMsg{err: explorer.Start(ctx)} }
}

func (m Model) upload() tea.Cmd {
	ctx, ingest := m.ctx, m.explorer.Ingest
	return func() tea.Msg {
		job, err := ingest.Submit(ctx)
		return uploadDoneMsg{job: job, err: err}
	}
}

func (m Model) refreshStatus() tea.Cmd {
	ctx, tracker := m.ctx, m.explorer.Tracker
	return func() tea.Msg {
		_, err := tracker.Refresh(ctx)
		return refreshMsg{err: err}
	}
}

func waitTurn(ch <-chan domain.Turn) tea.Cmd {
	return func() tea.Msg { return turnMsg{turn: <-ch} }
}

// Update handles key, window and completion events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		return m, nil
	case startedMsg:
		if msg.err != nil {
			m.screen = screenUnavailable
			m.connErr = msg.err
			return m, nil
		}
		m.screen = screenMain
		m.connErr = nil
		if m.explorer.DataLoaded() {
			m.setFocus(focusChat)
		} else {
			m.setFocus(focusPath)
		}
		m.refreshChat()
		return m, textinput.Blink
	case uploadDoneMsg:
		if msg.err == nil && m.explorer.DataLoaded() {
			m.setFocus(focusChat)
		}
		return m, nil
	case turnMsg:
		m.selected = -1
		m.refreshChat()
		m.chat.GotoBottom()
		if m.showSources {
			m.openSources()
		}
		return m, nil
	case refreshMsg:
		if msg.err != nil {
			m.notice = domain.Detail(msg.err)
		} else {
			m.notice = ""
		}
		return m, nil
	case changedMsg:
		m.refreshChat()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.explorer.Session.InFlight() {
			m.refreshChat()
		}
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.updateFocused(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.screen != screenMain {
		switch key {
		case "q", "esc":
			return m, tea.Quit
		case "r":
			if m.screen == screenUnavailable {
				m.screen = screenConnecting
				return m, m.start()
			}
		}
		return m, nil
	}

	if m.showSources {
		switch key {
		case "esc", "q", "ctrl+o":
			m.showSources = false
			return m, nil
		}
		var cmd tea.Cmd
		m.sources, cmd = m.sources.Update(msg)
		return m, cmd
	}

	switch key {
	case "esc":
		return m, tea.Quit
	case "tab":
		m.cycleFocus(1)
		return m, nil
	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil
	case "ctrl+s":
		on := !m.explorer.Session.GenerateSummary()
		if !m.explorer.Session.SetGenerateSummary(on) {
			m.notice = "Summary setting is locked while a question is being answered."
		}
		return m, nil
	case "ctrl+o":
		m.openSources()
		return m, nil
	case "ctrl+p":
		m.moveSelection(-1)
		return m, nil
	case "ctrl+n":
		m.moveSelection(1)
		return m, nil
	case "ctrl+r":
		return m, m.refreshStatus()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	case "enter":
		if m.focus == focusChat {
			return m.submitQuestion()
		}
		return m.submitUpload()
	}
	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and mirrors its value into
// the owning component.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusPath:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case focusBatch:
		before := m.batchInput.Value()
		m.batchInput, cmd = m.batchInput.Update(msg)
		// Invalid edits are ignored and the previous size stays in effect.
		if value := m.batchInput.Value(); value != before {
			m.explorer.Ingest.SetBatchSize(value)
		}
	case focusChat:
		m.chatInput, cmd = m.chatInput.Update(msg)
		m.explorer.Session.SetInput(m.chatInput.Value())
	}
	return m, cmd
}

func (m Model) submitUpload() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.pathInput.Value())
	if path == "" {
		m.notice = "Choose a CSV file to upload."
		return m, nil
	}
	file, err := domain.FileFromPath(expandHome(path))
	if err != nil {
		m.notice = "Cannot open " + path + "."
		return m, nil
	}
	if err := m.explorer.Ingest.SelectFile(file); err != nil {
		m.notice = domain.Detail(err)
		return m, nil
	}
	m.notice = ""
	// Resync in case the last edit was rejected.
	m.batchInput.SetValue(strconv.Itoa(m.explorer.Ingest.BatchSize()))
	return m, m.upload()
}

func (m Model) submitQuestion() (tea.Model, tea.Cmd) {
	ch, err := m.explorer.Session.SubmitInput(m.ctx)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyQuery):
			m.notice = "Type a question first."
		case errors.Is(err, session.ErrQueryInFlight):
			m.notice = "Still answering the previous question."
		case errors.Is(err, session.ErrDataNotLoaded):
			m.notice = "Upload feedback data before asking questions."
		default:
			m.notice = domain.Detail(err)
		}
		return m, nil
	}
	m.notice = ""
	m.chatInput.Reset()
	m.refreshChat()
	m.chat.GotoBottom()
	return m, waitTurn(ch)
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	m.pathInput.Blur()
	m.batchInput.Blur()
	m.chatInput.Blur()
	switch f {
	case focusPath:
		m.pathInput.Focus()
	case focusBatch:
		m.batchInput.Focus()
	case focusChat:
		m.chatInput.Focus()
	}
}

// cycleFocus moves between the inputs. The question box is skipped until
// data has been loaded.
func (m *Model) cycleFocus(step int) {
	n := 3
	if !m.explorer.DataLoaded() {
		n = 2
	}
	next := (int(m.focus) + step + n) % n
	if int(m.focus) >= n {
		next = 0
	}
	m.setFocus(focus(next))
}

// moveSelection steps the highlighted assistant turn, stopping at either end.
func (m *Model) moveSelection(step int) {
	var assistant []int
	for i, t := range m.explorer.Session.Turns() {
		if t.Kind == domain.TurnAssistant {
			assistant = append(assistant, i)
		}
	}
	if len(assistant) == 0 {
		return
	}
	pos := len(assistant) - 1
	for i, idx := range assistant {
		if idx == m.selected {
			pos = i
		}
	}
	if m.selected >= 0 {
		pos += step
	} else if step > 0 {
		return
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(assistant) {
		m.selected = -1
	} else {
		m.selected = assistant[pos]
	}
	m.refreshChat()
}

// openSources shows every source of the selected turn, or of the latest
// result set when nothing is selected. It never issues a query.
func (m *Model) openSources() {
	var (
		title   string
		summary string
		results []domain.FeedbackResult
		query   string
	)
	if m.selected >= 0 {
		src, ok := m.explorer.Session.Sources(m.selected)
		if !ok {
			m.selected = -1
			m.openSources()
			return
		}
		results = src
		query = m.questionFor(m.selected)
		title = "Sources for: " + query
	} else {
		rs := m.explorer.Session.Results()
		results, summary = rs.Results, rs.Summary
		query = m.questionFor(m.explorer.Session.LastAssistant())
		title = "Source feedback"
	}
	if len(results) == 0 {
		m.notice = "No sources to show yet."
		return
	}
	m.notice = ""
	m.showSources = true
	m.sources.SetContent(m.renderSources(title, summary, results, query))
	m.sources.GotoTop()
}

// questionFor returns the user question preceding turn i.
func (m Model) questionFor(i int) string {
	for j := i - 1; j >= 0; j-- {
		if t, ok := m.explorer.Session.Turn(j); ok && t.Kind == domain.TurnUser {
			return t.Text
		}
	}
	return ""
}

func (m *Model) layout() {
	w := max(20, m.width-4)
	// header, upload panel, question box, footer
	reserved := 1 + 4 + 3 + 2
	h := max(3, m.height-reserved-2)
	m.chat.Width, m.chat.Height = w, h
	m.sources.Width, m.sources.Height = w, h
	m.pathInput.Width = max(10, m.width/2)
	m.chatInput.Width = max(10, w-4)
	m.refreshChat()
}

func (m *Model) refreshChat() {
	m.chat.SetContent(m.renderChat())
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
