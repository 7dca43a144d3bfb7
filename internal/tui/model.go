// Package tui is the interactive shell around the dispatcher.
//
// The model owns every piece of UI state and only ever changes on the
// bubbletea event loop: the dispatcher's ui worker hands mutations to the
// Sink, and Update drains them one at a time through a re-issued listen
// command. Nothing in this package touches model state from another
// goroutine.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/volley/internal/app"
	"github.com/billie-coop/volley/internal/collection"
	"github.com/billie-coop/volley/internal/dispatch"
	"github.com/billie-coop/volley/internal/exchange"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	entryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("239")).
			Italic(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)
)

// listWidth is the outer width of the request pane on the left.
const listWidth = 32

// Model drives the two-pane request runner: collection entries on the
// left, the response viewport on the right, one status line underneath.
type Model struct {
	app  *app.App
	sink *Sink
	col  *collection.Collection

	viewport viewport.Model
	spinner  spinner.Model

	width  int
	height int

	selected    int
	inFlight    bool
	requestID   string
	requestName string
	response    string

	status      string
	statusLevel dispatch.NoticeLevel
}

// New builds the model around an already wired app. Start the dispatcher
// after the program is running so the first mutation finds a listener.
func New(a *app.App, sink *Sink, col *collection.Collection) *Model {
	return &Model{
		app:         a,
		sink:        sink,
		col:         col,
		viewport:    viewport.New(),
		spinner:     newStyledSpinner(),
		status:      "ready",
		statusLevel: dispatch.NoticeInfo,
	}
}

// Init starts the mutation listener.
func (m *Model) Init() tea.Cmd {
	return m.listenForMutations()
}

// listenForMutations blocks on the sink until the dispatcher applies the
// next mutation. Update re-issues it after every delivery, so exactly one
// listener is pending at a time.
func (m *Model) listenForMutations() tea.Cmd {
	return func() tea.Msg {
		mut, ok := <-m.sink.Mutations()
		if !ok {
			return nil
		}
		return mut
	}
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			m.moveSelection(-1)
			return m, nil
		case "down", "j":
			m.moveSelection(1)
			return m, nil
		case "enter":
			return m, m.sendSelected()
		case "x":
			m.cancelInFlight()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.inFlight {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dispatch.Mutation:
		m.applyMutation(msg)
		return m, m.listenForMutations()
	}

	// Everything else (page keys, mouse wheel) scrolls the viewport.
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// applyMutation folds one dispatcher mutation into the model. Mutations
// for a request that is no longer current, such as tail chunks from a
// cancelled send still draining the queue, are dropped.
func (m *Model) applyMutation(mut dispatch.Mutation) {
	switch mut := mut.(type) {
	case dispatch.ResponseStarted:
		if mut.RequestID != m.requestID {
			return
		}
		m.response = mut.Header
		m.viewport.SetContent(m.response)
		m.viewport.GotoBottom()
		m.setStatus(dispatch.NoticeInfo, mut.Name+": receiving body")

	case dispatch.ResponseChunk:
		if mut.RequestID != m.requestID {
			return
		}
		m.response += mut.Text
		m.viewport.SetContent(m.response)
		m.viewport.GotoBottom()

	case dispatch.ResponseFinished:
		if mut.RequestID != m.requestID {
			return
		}
		m.inFlight = false
		m.requestID = ""
		m.response = mut.Result.FullText
		m.viewport.SetContent(m.response)
		m.viewport.GotoBottom()
		level := dispatch.NoticeInfo
		if mut.Result.StatusCode >= 400 {
			level = dispatch.NoticeWarning
		}
		m.setStatus(level, fmt.Sprintf("%s • %s • %s • %s",
			m.requestName, mut.Result.Status,
			mut.Result.Elapsed.Round(time.Millisecond),
			exchange.HumanBytes(mut.Result.ByteSize)))

	case dispatch.RequestFailed:
		if mut.RequestID != m.requestID {
			return
		}
		m.inFlight = false
		m.requestID = ""
		if mut.Result.FullText != "" {
			m.response = mut.Result.FullText
			m.viewport.SetContent(m.response)
			m.viewport.GotoBottom()
		}
		m.setStatus(dispatch.NoticeError, mut.Name+": "+mut.Result.Err.Error())

	case dispatch.Notice:
		m.setStatus(mut.Level, mut.Message)
	}
}

// sendSelected queues the highlighted entry. The entry wins over config
// where it speaks: timeout and JSON formatting fall back to config only
// when the entry leaves them unset.
func (m *Model) sendSelected() tea.Cmd {
	if m.inFlight {
		m.setStatus(dispatch.NoticeWarning, "request in flight, press x to cancel first")
		return nil
	}
	if len(m.col.Entries) == 0 {
		m.setStatus(dispatch.NoticeWarning, "collection has no requests")
		return nil
	}

	spec := *m.col.Entries[m.selected]
	if spec.Timeout == 0 {
		spec.Timeout = m.app.Config.Timeout
	}
	if m.app.Config.FormatJSON {
		spec.FormatJSON = true
	}

	id, err := m.app.Dispatcher.QueueHTTPRequest(&spec)
	if err != nil {
		m.setStatus(dispatch.NoticeError, "queue: "+err.Error())
		return nil
	}

	m.inFlight = true
	m.requestID = id
	m.requestName = spec.DisplayName()
	m.response = ""
	m.viewport.SetContent("")
	m.setStatus(dispatch.NoticeInfo, "sending "+m.requestName)
	return m.spinner.Tick
}

func (m *Model) cancelInFlight() {
	if !m.inFlight || m.requestID == "" {
		return
	}
	if m.app.Dispatcher.CancelRequest(m.requestID) {
		m.setStatus(dispatch.NoticeWarning, "cancelling "+m.requestName)
	}
}

func (m *Model) moveSelection(delta int) {
	next := m.selected + delta
	if next < 0 || next >= len(m.col.Entries) {
		return
	}
	m.selected = next
}

func (m *Model) setStatus(level dispatch.NoticeLevel, msg string) {
	m.status = msg
	m.statusLevel = level
}

func (m *Model) bodyWidth() int {
	w := m.width - listWidth - 1
	if w < 20 {
		w = 20
	}
	return w
}

// bodyHeight leaves one row each for the title, status, and help lines.
func (m *Model) bodyHeight() int {
	h := m.height - 3
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) resizeViewport() {
	m.viewport = viewport.New(
		viewport.WithWidth(m.bodyWidth()),
		viewport.WithHeight(m.bodyHeight()),
	)
	m.viewport.MouseWheelEnabled = true
	m.viewport.SetContent(m.response)
	m.viewport.GotoBottom()
}

// View renders the UI.
func (m *Model) View() tea.View {
	// No window size yet.
	if m.width == 0 || m.height == 0 {
		return tea.NewView("starting...")
	}

	title := titleStyle.Render("volley") + labelStyle.Render(" • "+m.col.Name)

	body := lipgloss.NewStyle().
		Width(m.bodyWidth()).
		Height(m.bodyHeight()).
		Render(m.viewport.View())

	main := lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(), " ", body)

	help := helpStyle.Render("Enter: send • X: cancel • ↑/↓: select • PgUp/PgDn: scroll • Q: quit")

	return tea.NewView(lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		main,
		m.renderStatus(),
		help,
	))
}

func (m *Model) renderList() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("requests"))
	b.WriteString("\n\n")

	if len(m.col.Entries) == 0 {
		b.WriteString(faintStyle.Render("(empty collection)"))
	}
	for i, spec := range m.col.Entries {
		line := clip(fmt.Sprintf("%-7s %s", spec.NormalizedMethod(), spec.DisplayName()), listWidth-6)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(entryStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	// Width is the content box; the border adds the last two columns.
	return lipgloss.NewStyle().
		Width(listWidth - 2).
		Height(m.bodyHeight()).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("86")).
		Padding(0, 1).
		Render(b.String())
}

func (m *Model) renderStatus() string {
	if m.inFlight {
		return m.spinner.View() + " " + labelStyle.Render(m.status)
	}
	switch m.statusLevel {
	case dispatch.NoticeError:
		return errorStyle.Render(m.status)
	case dispatch.NoticeWarning:
		return warnStyle.Render(m.status)
	default:
		return entryStyle.Render(m.status)
	}
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
