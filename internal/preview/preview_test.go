package preview

import (
	"image"
	"image/color"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type recordingFocuser struct {
	states []bool
}

func (r *recordingFocuser) SetFocus(focused bool) {
	r.states = append(r.states, focused)
}

func TestDownsampleGridShape(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 40, 40))
	out := downsample(frame, 10, 5)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("rows = %d, want 5", len(lines))
	}
	for i, line := range lines {
		if n := strings.Count(line, "▀"); n != 10 {
			t.Fatalf("row %d has %d cells, want 10", i, n)
		}
	}
}

func TestDownsampleDegenerate(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if out := downsample(frame, 10, 5); out != "" {
		t.Fatalf("empty frame should yield empty view, got %q", out)
	}
}

func TestDownsamplePicksPixelColors(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 2, 2))
	frame.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	out := downsample(frame, 1, 1)
	if !strings.Contains(out, "▀") {
		t.Fatal("cell glyph missing")
	}
}

func TestFocusEventsReachEngine(t *testing.T) {
	f := &recordingFocuser{}
	s := New(f, log.New(io.Discard))
	m := model{sink: s, keys: defaultKeyMap}

	next, _ := m.Update(tea.BlurMsg{})
	next, _ = next.Update(tea.FocusMsg{})

	if len(f.states) != 2 || f.states[0] || !f.states[1] {
		t.Fatalf("focus sequence = %v, want [false true]", f.states)
	}
	_ = next
}

func TestPresentBeforeRunIsDropped(t *testing.T) {
	s := New(&recordingFocuser{}, log.New(io.Discard))
	// No program attached and no viewport yet; must not panic.
	s.Present(image.NewRGBA(image.Rect(0, 0, 8, 8)))
}

func TestViewportReservesFooterLine(t *testing.T) {
	s := New(&recordingFocuser{}, log.New(io.Discard))
	m := model{sink: s, keys: defaultKeyMap}
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cols != 80 || s.rows != 23 {
		t.Fatalf("viewport = %dx%d, want 80x23", s.cols, s.rows)
	}
}
