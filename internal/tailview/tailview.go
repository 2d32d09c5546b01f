// Package tailview renders a recorded or live mirror file in the
// terminal, for operators debugging a packaged image locally.
package tailview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"trainops-supervisor/internal/telemetry"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	seqStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// pollInterval is how often the follow loop re-reads the mirror file.
const pollInterval = 250 * time.Millisecond

// chunksMsg carries newly read chunks from the mirror file.
type chunksMsg struct{ chunks []telemetry.Chunk }

// statusMsg carries the final run status once it appears in the file,
// along with any chunks read in the same poll.
type statusMsg struct {
	chunks []telemetry.Chunk
	status telemetry.RunStatus
}

// tickMsg triggers the next poll of the file.
type tickMsg struct{}

// Model is the bubbletea model for the tail view.
type Model struct {
	path    string
	follow  bool
	showSeq bool

	file   *os.File
	offset int64
	vp     viewport.Model
	spin   spinner.Model
	lines  []string
	status *telemetry.RunStatus
	err    error
	ready  bool
}

// New creates a tail view over the mirror file at path. With follow set,
// the view keeps polling for new chunks until the status record appears.
func New(path string, follow bool, showSeq bool) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{path: path, follow: follow, showSeq: showSeq, spin: sp}
}

// Run starts the bubbletea program and blocks until it exits.
func (m *Model) Run() error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	if m.file != nil {
		m.file.Close()
	}
	if err != nil {
		return err
	}
	return m.err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.readMore())
}

// readMore parses the complete JSONL records that have appeared in the
// file since the last poll. The offset only advances past full lines, so
// a record the supervisor is mid-write stays for the next poll.
func (m *Model) readMore() tea.Cmd {
	return func() tea.Msg {
		if m.file == nil {
			f, err := os.Open(m.path)
			if err != nil {
				return err
			}
			m.file = f
		}
		if _, err := m.file.Seek(m.offset, io.SeekStart); err != nil {
			return err
		}

		data, err := io.ReadAll(m.file)
		if err != nil {
			return err
		}
		end := bytes.LastIndexByte(data, '\n')
		if end < 0 {
			return chunksMsg{}
		}
		m.offset += int64(end) + 1

		var chunks []telemetry.Chunk
		for _, line := range bytes.Split(data[:end], []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			var c telemetry.Chunk
			if err := json.Unmarshal(line, &c); err != nil {
				return err
			}
			if c.Seq == 0 {
				// The trailing record in a mirror file is the run status.
				var st telemetry.RunStatus
				if err := json.Unmarshal(line, &st); err != nil {
					return err
				}
				return statusMsg{chunks: chunks, status: st}
			}
			chunks = append(chunks, c)
		}
		return chunksMsg{chunks: chunks}
	}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		headerHeight := 3
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerHeight
		}
		m.refresh()
	case chunksMsg:
		for _, c := range msg.chunks {
			m.lines = append(m.lines, m.render(c))
		}
		if len(msg.chunks) > 0 {
			m.refresh()
		}
		if m.follow && m.status == nil {
			return m, tick()
		}
		if !m.follow {
			return m, nil
		}
	case statusMsg:
		for _, c := range msg.chunks {
			m.lines = append(m.lines, m.render(c))
		}
		m.status = &msg.status
		m.refresh()
		return m, nil
	case tickMsg:
		return m, m.readMore()
	case error:
		m.err = msg
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) render(c telemetry.Chunk) string {
	ts := timeStyle.Render(c.Timestamp.Format("15:04:05.000"))
	if m.showSeq {
		return fmt.Sprintf("%s %s %s", seqStyle.Render(fmt.Sprintf("%6d", c.Seq)), ts, c.Text)
	}
	return fmt.Sprintf("%s %s", ts, c.Text)
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	var wrapped []string
	for _, l := range m.lines {
		wrapped = append(wrapped, wordwrap.String(l, m.vp.Width))
	}
	atBottom := m.vp.AtBottom()
	m.vp.SetContent(joinLines(wrapped))
	if atBottom {
		m.vp.GotoBottom()
	}
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	header := headerStyle.Render("trainops tail") + "  " + m.path
	if m.status != nil {
		header += "  " + doneStyle.Render("run finished")
	} else if m.follow {
		header += "  " + m.spin.View() + "following"
	}
	return frameStyle.Render(header) + "\n" + m.vp.View()
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
