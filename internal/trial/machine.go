// Package trial advances the SSVEP input protocol once per trial interval.
package trial

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/listenzcc/BCI-engine/internal/appdispatch"
	"github.com/listenzcc/BCI-engine/internal/layout"
	"github.com/listenzcc/BCI-engine/internal/model"
	"github.com/listenzcc/BCI-engine/internal/wordbag"
)

// Stage is the current input protocol stage. Exactly one is active.
type Stage int

const (
	// StageDefault is the idle stage before the first trial.
	StageDefault Stage = iota
	// StageCueInput shows a cue character the user must select.
	StageCueInput
	// StageFreeInput shows a layout with no cue (free spelling).
	StageFreeInput
	// StageAwaitEnter waits for the Enter slot to confirm the prompt.
	StageAwaitEnter
	// StageAwaitApp shows candidate window titles to pick a target.
	StageAwaitApp
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageDefault:
		return "default"
	case StageCueInput:
		return "cue-input"
	case StageFreeInput:
		return "free-input"
	case StageAwaitEnter:
		return "await-enter"
	case StageAwaitApp:
		return "await-app"
	}
	return "unknown"
}

// Observer receives trial and dispatch events, e.g. for the history store.
type Observer interface {
	TrialStarted(rec model.TrialRecord)
	Dispatched(rec model.DispatchRecord)
}

// Option configures the machine.
type Option func(*Machine)

// WithObserver attaches an event observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// Machine drives the per-trial protocol: consume the cue selection,
// recompute the stage, regenerate the layout, and dispatch the prompt to
// the chosen application when the protocol completes. Machine is not safe
// for concurrent use; the render loop serializes calls.
type Machine struct {
	bag      *wordbag.Bag
	gen      *layout.Generator
	windows  appdispatch.WindowLister
	typist   appdispatch.Typist
	log      *log.Logger
	observer Observer

	stage    Stage
	cueIndex int
	patches  []model.Patch
	stalled  bool
}

// New returns a Machine in StageDefault.
func New(bag *wordbag.Bag, gen *layout.Generator, windows appdispatch.WindowLister, typist appdispatch.Typist, logger *log.Logger, opts ...Option) *Machine {
	m := &Machine{
		bag:      bag,
		gen:      gen,
		windows:  windows,
		typist:   typist,
		log:      logger,
		cueIndex: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stage returns the active stage.
func (m *Machine) Stage() Stage { return m.stage }

// CueIndex returns the cue patch index, or -1 when no cue is live.
func (m *Machine) CueIndex() int { return m.cueIndex }

// Patches returns the current trial's layout.
func (m *Machine) Patches() []model.Patch { return m.patches }

// Stalled reports whether await-app found no candidate windows and is
// parked until one appears.
func (m *Machine) Stalled() bool { return m.stalled }

// Reset clears the machine back to StageDefault with no layout.
func (m *Machine) Reset() {
	m.stage = StageDefault
	m.cueIndex = -1
	m.patches = nil
	m.stalled = false
}

// NextStage is the pure stage transition: previous stage plus the
// emptiness of the cue queue and prompt buffer fully determine the next
// stage.
func NextStage(prev Stage, cueEmpty, promptEmpty bool) Stage {
	switch {
	case prev == StageAwaitEnter:
		return StageAwaitApp
	case prev == StageAwaitApp:
		// Only a stalled await-app reaches here; a completed dispatch
		// resets to StageDefault before the transition reapplies.
		return StageAwaitApp
	case cueEmpty && !promptEmpty:
		return StageAwaitEnter
	case cueEmpty && promptEmpty:
		return StageFreeInput
	default:
		return StageCueInput
	}
}

// Advance runs one trial boundary. Completing await-app resets to default
// and applies the transition once more so the next trial's layout is ready
// without a blank idle frame; the loop is bounded instead of recursive.
func (m *Machine) Advance() {
	for i := 0; i < 2; i++ {
		if !m.advanceOnce() {
			return
		}
	}
}

// advanceOnce applies one transition and reports whether an immediate
// re-advance is required.
func (m *Machine) advanceOnce() bool {
	// A correct selection is modeled by consuming the character shown at
	// the cue patch; a mismatch leaves the queue waiting.
	if m.stage == StageCueInput && m.cueIndex >= 0 && m.cueIndex < len(m.patches) {
		if v, ok := m.bag.Consume(m.patches[m.cueIndex].Char); ok {
			m.bag.AppendPrompt(v)
			m.log.Debug("consumed cue", "char", v, "prompt", m.bag.PromptLen())
		}
	}

	m.stage = NextStage(m.stage, m.bag.CueLen() == 0, m.bag.PromptLen() == 0)
	m.stalled = false

	switch m.stage {
	case StageAwaitApp:
		return m.enterAwaitApp()
	case StageAwaitEnter:
		m.patches, _ = m.gen.Compute(m.bag, m.standardFixed())
		// No natural cue exists here; force the Enter slot.
		m.cueIndex = len(m.patches) - 1
	default:
		m.patches, m.cueIndex = m.gen.Compute(m.bag, m.standardFixed())
	}

	m.notifyTrial()
	return false
}

// enterAwaitApp builds the window-title layout and dispatches the prompt
// to the chosen target. Returns true when the dispatch completed and the
// next stage's layout must be computed immediately.
func (m *Machine) enterAwaitApp() bool {
	windows, err := m.windows.List()
	if err != nil {
		m.log.Warn("window enumeration failed", "err", err)
		windows = nil
	}
	if len(windows) == 0 {
		// Known open edge case: no forward progress until a window
		// appears or the operator intervenes. Park, do not dispatch.
		m.patches, _ = m.gen.Compute(m.bag, m.standardFixed())
		m.cueIndex = -1
		m.stalled = true
		m.log.Warn("await-app stalled: no candidate windows")
		m.notifyTrial()
		return false
	}

	_, _, count := m.gen.Grid()
	fixed := make(map[int]string, len(windows))
	target := -1
	for i, w := range windows {
		if i >= count {
			break
		}
		fixed[i] = w.Title
		if target < 0 && !w.IsCurrent {
			target = i
		}
	}
	if target < 0 {
		target = 0
	}

	m.patches, _ = m.gen.Compute(m.bag, fixed)
	m.cueIndex = target
	m.notifyTrial()

	if m.cueIndex >= len(m.patches) {
		m.cueIndex = -1
		m.stalled = true
		return false
	}

	title := m.patches[m.cueIndex].Char
	if title == "" {
		// Never dispatch to an empty target, whatever the lister returned.
		m.cueIndex = -1
		m.stalled = true
		m.log.Warn("await-app stalled: empty target title")
		return false
	}
	text := strings.Join(m.bag.FlushPrompt(), "")
	rec := model.DispatchRecord{At: time.Now(), Target: title, Text: text, OK: true}
	if err := m.typist.SendText(title, text); err != nil {
		// The prompt is already flushed; the dispatch is forfeit.
		rec.OK = false
		rec.Error = err.Error()
		m.log.Error("keystroke dispatch failed", "target", title, "err", err)
	} else {
		m.log.Info("dispatched prompt", "target", title, "chars", len(text))
	}
	if m.observer != nil {
		m.observer.Dispatched(rec)
	}

	m.stage = StageDefault
	m.cueIndex = -1
	return true
}

// standardFixed pins Back/Space/Enter to the trailing patch slots.
func (m *Machine) standardFixed() map[int]string {
	_, _, count := m.gen.Grid()
	if count < 3 {
		return nil
	}
	return map[int]string{
		count - 3: "Back",
		count - 2: "Space",
		count - 1: "Enter",
	}
}

func (m *Machine) notifyTrial() {
	if m.observer == nil {
		return
	}
	cueChar := ""
	if m.cueIndex >= 0 && m.cueIndex < len(m.patches) {
		cueChar = m.patches[m.cueIndex].Char
	}
	m.observer.TrialStarted(model.TrialRecord{
		StartedAt: time.Now(),
		Stage:     m.stage.String(),
		CueChar:   cueChar,
		CueIndex:  m.cueIndex,
		Columns:   m.gen.Columns(),
		Patches:   len(m.patches),
	})
}
