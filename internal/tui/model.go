package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/mt4110/segcut/internal/store"
	"github.com/mt4110/segcut/internal/watcher"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))
)

const maxHistory = 50

type tickMsg time.Time

type sweptMsg store.SweepResult

type Model struct {
	addr  string
	inbox string

	queue   []string
	paths   []string // parallel to queue
	history []string
	cursor  int

	sweep func() store.SweepResult
	sub   <-chan any
	now   time.Time
}

// NewModel shows events from sub. sweep runs when the user presses "c".
func NewModel(addr, inbox string, sub <-chan any, sweep func() store.SweepResult) Model {
	return Model{addr: addr, inbox: inbox, sub: sub, sweep: sweep, now: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		waitForActivity(m.sub),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.queue)-1 {
				m.cursor++
			}
		case "c":
			if m.sweep != nil {
				sweep := m.sweep
				return m, func() tea.Msg { return sweptMsg(sweep()) }
			}
		}
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case sweptMsg:
		m.pushHistory(fmt.Sprintf("🧹 Cleaned %d files (%s free)", msg.FilesRemoved, humanize.IBytes(msg.FreeSpaceBytes)))

	case watcher.FileFoundEvent:
		m.queue = append(m.queue, msg.Name)
		m.paths = append(m.paths, msg.Path)
		return m, waitForActivity(m.sub)

	case watcher.ImportedEvent:
		m.dequeue(msg.Path)
		m.pushHistory("📥 Imported: " + msg.VideoID)
		return m, waitForActivity(m.sub)

	case watcher.CutEvent:
		m.pushHistory(fmt.Sprintf("✂️  %s: %d segments (%s)", msg.VideoID, msg.Segments, msg.StopReason))
		return m, waitForActivity(m.sub)

	case watcher.FailureEvent:
		m.dequeue(msg.Path)
		m.pushHistory(fmt.Sprintf("❌ Failed: %s (%v)", msg.Path, msg.Err))
		return m, waitForActivity(m.sub)
	}
	return m, nil
}

func (m *Model) dequeue(path string) {
	for i, p := range m.paths {
		if p != path {
			continue
		}
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		m.paths = append(m.paths[:i], m.paths[i+1:]...)
		if m.cursor >= len(m.queue) && m.cursor > 0 {
			m.cursor--
		}
		return
	}
}

func (m *Model) pushHistory(line string) {
	m.history = append([]string{line}, m.history...)
	if len(m.history) > maxHistory {
		m.history = m.history[:maxHistory]
	}
}

func (m Model) View() string {
	s := titleStyle.Render("✂️  segcut") + "  " + statusStyle.Render(m.now.Format("15:04:05")) + "\n\n"

	s += "API: http://" + m.addr + "\n"
	if m.inbox != "" {
		s += "Inbox: " + m.inbox + "\n"
	}

	s += "\nPending:\n"
	if len(m.queue) == 0 {
		s += statusStyle.Render("  (empty)") + "\n"
	}
	for i, q := range m.queue {
		cursor := "  "
		if m.cursor == i {
			cursor = "> "
		}
		s += fmt.Sprintf("%s%s\n", cursor, q)
	}

	s += "\nRecent:\n"
	if len(m.history) == 0 {
		s += statusStyle.Render("  (nothing yet)") + "\n"
	}
	for _, h := range m.history {
		s += fmt.Sprintf("  %s\n", h)
	}

	s += "\nKeys: [q] quit  [↑/↓] select  [c] cleanup\n"
	return s
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForActivity(sub <-chan any) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}
