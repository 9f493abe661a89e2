// Package engine runs the render/trial tick loop.
package engine

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/listenzcc/BCI-engine/internal/display"
	"github.com/listenzcc/BCI-engine/internal/layout"
	"github.com/listenzcc/BCI-engine/internal/render"
	"github.com/listenzcc/BCI-engine/internal/trial"
	"github.com/listenzcc/BCI-engine/internal/wordbag"
)

// Option configures the engine.
type Option func(*Engine)

// WithPollInterval sets the tick sleep; the loop is effectively
// screen-refresh bound, the poll just yields the CPU.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) { e.poll = d }
}

// WithSpeedFactor scales elapsed time before sampling the noise field; a
// lower factor flickers slower.
func WithSpeedFactor(f float64) Option {
	return func(e *Engine) { e.speedFactor = f }
}

// Engine owns the dedicated render goroutine. One mutex shields the
// drawing surface and the word bag / layout state from the command
// thread; every hold is a short in-memory mutation, presentation happens
// outside the lock.
type Engine struct {
	mu      sync.Mutex
	bag     *wordbag.Bag
	gen     *layout.Generator
	machine *trial.Machine
	painter *render.Painter

	sink display.Sink
	log  *log.Logger

	trialLength float64
	speedFactor float64
	poll        time.Duration

	rt       *RunningTimer
	wg       sync.WaitGroup
	runMu    sync.Mutex
	running  bool
	hasFocus atomic.Bool
}

// New wires the tick loop. trialSeconds is the fixed trial length.
func New(bag *wordbag.Bag, gen *layout.Generator, machine *trial.Machine, painter *render.Painter, sink display.Sink, trialSeconds float64, logger *log.Logger, opts ...Option) *Engine {
	e := &Engine{
		bag:         bag,
		gen:         gen,
		machine:     machine,
		painter:     painter,
		sink:        sink,
		log:         logger,
		trialLength: trialSeconds,
		speedFactor: 1.0,
		poll:        time.Millisecond,
		rt:          NewRunningTimer(),
	}
	e.hasFocus.Store(true)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the render loop. Starting a running engine is refused.
func (e *Engine) Start() error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		e.log.Warn("render loop already running, start refused")
		return fmt.Errorf("render loop already running")
	}

	e.mu.Lock()
	e.machine.Reset()
	e.painter.Clear()
	e.mu.Unlock()

	e.rt.Reset()
	e.running = true
	e.wg.Add(1)
	go e.loop()
	e.log.Info("render loop started", "trial_seconds", e.trialLength)
	return nil
}

// Stop halts the loop and joins it with no timeout: an in-flight tick
// (including a synchronous app-switch dispatch) finishes first. Stopping
// a stopped engine is a warning, not an error.
func (e *Engine) Stop() {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if !e.running {
		e.log.Warn("render loop is not running, nothing to stop")
		return
	}
	e.rt.Halt()
	e.wg.Wait()
	e.running = false
	e.log.Info("render loop stopped")
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// SetFocus records whether the display surface holds input focus.
func (e *Engine) SetFocus(focused bool) {
	e.hasFocus.Store(focused)
}

// loop is the per-tick driver.
func (e *Engine) loop() {
	defer e.wg.Done()
	next := e.trialLength
	for e.rt.Running() {
		passed := e.rt.Passed()
		if passed > next {
			next += e.trialLength
			e.mu.Lock()
			e.machine.Advance()
			e.painter.Clear()
			e.mu.Unlock()
		}

		ratio := TrialRatio(next, passed, e.trialLength)

		e.mu.Lock()
		patches := e.machine.Patches()
		if len(patches) > 0 {
			// An empty layout is a no-draw frame, not an error.
			e.painter.DrawFrame(render.FrameState{
				Patches:    patches,
				CueIndex:   e.machine.CueIndex(),
				Prompt:     strings.Join(e.bag.Prompt(), ""),
				TrialRatio: ratio,
				HasFocus:   e.hasFocus.Load(),
				Z:          passed * e.speedFactor,
			})
		}
		frame := e.painter.Frame()
		e.mu.Unlock()

		e.sink.Present(frame)
		time.Sleep(e.poll)
	}
}

// TrialRatio is the remaining fraction of the current trial, decreasing
// linearly 1 -> 0 and clamped so it never goes negative before the
// boundary fires.
func TrialRatio(nextBoundary, passed, trialLength float64) float64 {
	if trialLength <= 0 {
		return 0
	}
	r := (nextBoundary - passed) / trialLength
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// PassedSeconds reports elapsed session seconds (command channel query).
func (e *Engine) PassedSeconds() float64 {
	return e.rt.Passed()
}

// ChangeColumns reconfigures the layout grid and clears the surface; the
// next trial boundary regenerates the patches.
func (e *Engine) ChangeColumns(columns int) error {
	if columns <= 0 {
		return fmt.Errorf("columns must be positive, got %d", columns)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen.ResetColumns(columns)
	e.painter.Clear()
	e.log.Info("changed columns", "columns", columns)
	return nil
}

// AppendCue queues cue characters for the upcoming trials.
func (e *Engine) AppendCue(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bag.AppendCue(text)
	e.log.Info("appended cue sequence", "chars", len([]rune(text)))
}
