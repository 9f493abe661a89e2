package engine

import (
	"image"
	"io"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/listenzcc/BCI-engine/internal/appdispatch"
	"github.com/listenzcc/BCI-engine/internal/display"
	"github.com/listenzcc/BCI-engine/internal/layout"
	"github.com/listenzcc/BCI-engine/internal/render"
	"github.com/listenzcc/BCI-engine/internal/trial"
	"github.com/listenzcc/BCI-engine/internal/wordbag"
)

func flatField(x, y, z float64) float64 { return 0 }

func newTestEngine(sink display.Sink, trialSeconds float64) (*Engine, *wordbag.Bag) {
	logger := log.New(io.Discard)
	bag := wordbag.NewWithRand("abcdef", rand.New(rand.NewSource(3)))
	gen := layout.New(layout.Box{W: 0, N: 100, E: 300, S: 400}, 3, 0.2)
	fake := appdispatch.NewFake()
	machine := trial.New(bag, gen, fake, fake, logger)
	painter := render.NewWithRand(300, 400, flatField, rand.New(rand.NewSource(4)))
	return New(bag, gen, machine, painter, sink, trialSeconds, logger,
		WithPollInterval(time.Millisecond)), bag
}

func TestStartRefusedWhenRunning(t *testing.T) {
	e, _ := newTestEngine(display.Null{}, 10)
	if err := e.Start(); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer e.Stop()
	if err := e.Start(); err == nil {
		t.Fatalf("second start must be refused")
	}
}

func TestStopWhenNotRunningIsWarning(t *testing.T) {
	e, _ := newTestEngine(display.Null{}, 10)
	// Must not panic or block.
	e.Stop()
	if e.IsRunning() {
		t.Fatalf("engine reports running after no-op stop")
	}
}

func TestLoopPresentsFramesAndAdvancesTrials(t *testing.T) {
	var presents atomic.Int64
	sink := display.Func(func(frame *image.RGBA) {
		if frame == nil {
			t.Error("presented nil frame")
			return
		}
		presents.Add(1)
	})
	e, _ := newTestEngine(sink, 0.02)
	if err := e.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(120 * time.Millisecond)
	e.Stop()
	if e.IsRunning() {
		t.Fatalf("engine still running after stop")
	}
	if presents.Load() == 0 {
		t.Fatalf("no frames presented")
	}
	if got := e.PassedSeconds(); got <= 0 {
		t.Fatalf("passed seconds not advancing: %f", got)
	}
}

func TestChangeColumnsValidation(t *testing.T) {
	e, _ := newTestEngine(display.Null{}, 10)
	if err := e.ChangeColumns(0); err == nil {
		t.Fatalf("zero columns must be rejected")
	}
	if err := e.ChangeColumns(-3); err == nil {
		t.Fatalf("negative columns must be rejected")
	}
	if err := e.ChangeColumns(8); err != nil {
		t.Fatalf("valid columns rejected: %v", err)
	}
}

func TestAppendCueReachesBag(t *testing.T) {
	e, bag := newTestEngine(display.Null{}, 10)
	e.AppendCue("abc")
	if bag.CueLen() != 3 {
		t.Fatalf("expected 3 queued cues, got %d", bag.CueLen())
	}
}

func TestTrialRatio(t *testing.T) {
	cases := []struct {
		boundary, passed, length float64
		want                     float64
	}{
		{5, 0, 5, 1},
		{5, 2.5, 5, 0.5},
		{5, 5, 5, 0},
		{5, 6, 5, 0},
		{5, -1, 5, 1},
		{5, 1, 0, 0},
	}
	for _, tc := range cases {
		if got := TrialRatio(tc.boundary, tc.passed, tc.length); got != tc.want {
			t.Errorf("TrialRatio(%v, %v, %v) = %v, want %v", tc.boundary, tc.passed, tc.length, got, tc.want)
		}
	}
}

func TestTrialRatioMonotoneAcrossTrial(t *testing.T) {
	prev := 1.1
	for passed := 0.0; passed <= 5.0; passed += 0.25 {
		r := TrialRatio(5, passed, 5)
		if r > prev {
			t.Fatalf("ratio increased at passed=%v: %v > %v", passed, r, prev)
		}
		if r < 0 {
			t.Fatalf("ratio negative at passed=%v", passed)
		}
		prev = r
	}
}
