// Package preview renders engine frames inside the terminal. It exists
// for development on machines without the desktop overlay: the frame is
// downsampled into half-block cells and shown through a Bubble Tea
// program, and terminal focus events feed back into the engine.
package preview

import (
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Focuser receives terminal focus changes.
type Focuser interface {
	SetFocus(focused bool)
}

type frameMsg struct {
	view string
}

type keyMap struct {
	Quit key.Binding
}

var defaultKeyMap = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

var footerStyle = lipgloss.NewStyle().Faint(true)

// Sink is a display sink backed by a terminal UI. Present may be called
// from the render goroutine at any rate; frames are downsampled and
// forwarded to the program at most once per frameGap.
type Sink struct {
	focuser Focuser
	log     *log.Logger

	mu       sync.Mutex
	prog     *tea.Program
	cols     int
	rows     int
	lastSent time.Time
	frameGap time.Duration
}

// New returns a Sink that reports focus changes to focuser.
func New(focuser Focuser, logger *log.Logger) *Sink {
	return &Sink{
		focuser:  focuser,
		log:      logger,
		frameGap: time.Second / 30,
	}
}

// Run blocks until the user quits the preview.
func (s *Sink) Run() error {
	m := model{sink: s, keys: defaultKeyMap}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())

	s.mu.Lock()
	s.prog = p
	s.mu.Unlock()

	_, err := p.Run()

	s.mu.Lock()
	s.prog = nil
	s.mu.Unlock()
	return err
}

// Present implements display.Sink.
func (s *Sink) Present(frame *image.RGBA) {
	s.mu.Lock()
	prog := s.prog
	cols, rows := s.cols, s.rows
	now := time.Now()
	if prog == nil || cols <= 0 || rows <= 0 || now.Sub(s.lastSent) < s.frameGap {
		s.mu.Unlock()
		return
	}
	s.lastSent = now
	s.mu.Unlock()

	prog.Send(frameMsg{view: downsample(frame, cols, rows)})
}

func (s *Sink) setViewport(cols, rows int) {
	s.mu.Lock()
	s.cols = cols
	s.rows = rows
	s.mu.Unlock()
}

// downsample maps the frame onto a cols x rows cell grid. Each cell is
// an upper half block whose foreground carries the top pixel and whose
// background carries the bottom one, doubling the vertical resolution.
func downsample(frame *image.RGBA, cols, rows int) string {
	bounds := frame.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return ""
	}

	var b strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			topY := (2 * row) * h / (2 * rows)
			botY := (2*row + 1) * h / (2 * rows)
			x := col * w / cols
			style := lipgloss.NewStyle().
				Foreground(cellColor(frame, bounds.Min.X+x, bounds.Min.Y+topY)).
				Background(cellColor(frame, bounds.Min.X+x, bounds.Min.Y+botY))
			b.WriteString(style.Render("▀"))
		}
		if row < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func cellColor(frame *image.RGBA, x, y int) lipgloss.Color {
	c := frame.RGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

type model struct {
	sink *Sink
	keys keyMap

	width  int
	height int
	view   string
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// One line stays reserved for the footer.
		m.sink.setViewport(msg.Width, msg.Height-1)
	case tea.FocusMsg:
		m.sink.focuser.SetFocus(true)
	case tea.BlurMsg:
		m.sink.focuser.SetFocus(false)
	case frameMsg:
		m.view = msg.view
	}
	return m, nil
}

func (m model) View() string {
	if m.view == "" {
		return footerStyle.Render("waiting for frames...")
	}
	footer := footerStyle.Render(fmt.Sprintf("%s • %s",
		m.keys.Quit.Help().Key+" "+m.keys.Quit.Help().Desc,
		"stimulus preview"))
	return m.view + "\n" + footer
}
