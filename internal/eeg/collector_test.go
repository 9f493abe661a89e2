package eeg

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func newTestCollector(opts ...Option) *Collector {
	base := []Option{
		WithChannels(4),
		WithPackageSize(4),
		WithSamplingUnit(time.Millisecond),
	}
	return New(log.New(io.Discard), append(base, opts...)...)
}

func TestCollectorStartStop(t *testing.T) {
	c := newTestCollector()
	if c.Status() != StatusIdle {
		t.Fatalf("fresh collector status = %v", c.Status())
	}
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if c.Status() != StatusCollecting {
		t.Fatalf("status after start = %v", c.Status())
	}
	time.Sleep(30 * time.Millisecond)
	c.Stop()
	if c.Status() != StatusIdle {
		t.Fatalf("status after stop = %v", c.Status())
	}
	if c.Count() == 0 {
		t.Fatal("no samples collected")
	}
	if c.Count()%4 != 0 {
		t.Fatalf("sample count %d is not a whole number of packages", c.Count())
	}
}

func TestCollectorDoubleStartRefused(t *testing.T) {
	c := newTestCollector()
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer c.Stop()
	if err := c.Start(); err == nil {
		t.Fatal("second start should fail while collecting")
	}
}

func TestCollectorStopWhenIdleIsHarmless(t *testing.T) {
	c := newTestCollector()
	c.Stop()
	if c.Status() != StatusIdle {
		t.Fatalf("status = %v", c.Status())
	}
}

func TestCollectorTimestampsBackfilled(t *testing.T) {
	c := newTestCollector()
	before := time.Now().UnixMilli()
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.data) < 4 {
		t.Fatalf("want at least one package, got %d samples", len(c.data))
	}
	for i := 1; i < 4; i++ {
		if c.data[i].Ms < c.data[i-1].Ms {
			t.Fatalf("timestamps not monotone within package: %d then %d", c.data[i-1].Ms, c.data[i].Ms)
		}
	}
	if c.data[0].Ms < before-100 {
		t.Fatalf("back-filled timestamp %d far before start %d", c.data[0].Ms, before)
	}
	if len(c.data[0].Values) != 4 {
		t.Fatalf("channel count = %d", len(c.data[0].Values))
	}
}

func TestCollectorRestartClearsBuffer(t *testing.T) {
	c := newTestCollector()
	if err := c.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	c.Stop()
	first := c.Count()
	if first == 0 {
		t.Fatal("no samples in first run")
	}

	if err := c.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	c.Stop()
	if c.Count() >= first+first {
		// A restart begins from an empty buffer, it does not accumulate.
		t.Fatalf("restart did not clear buffer: %d samples", c.Count())
	}
}
