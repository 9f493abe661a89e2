// Package eeg provides the pseudo-random data-package collector. Real
// signal acquisition is out of scope; this generator keeps the data path
// exercised end to end.
package eeg

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status of the collector loop.
type Status int

const (
	// StatusIdle means the collector is stopped.
	StatusIdle Status = iota
	// StatusCollecting means the loop is appending packages.
	StatusCollecting
	// StatusError marks a failed loop.
	StatusError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCollecting:
		return "collecting"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Sample is one multi-channel time point.
type Sample struct {
	Ms     int64
	Values []float64
}

// Option configures the collector.
type Option func(*Collector)

// WithChannels sets the channel count.
func WithChannels(n int) Option {
	return func(c *Collector) { c.channels = n }
}

// WithPackageSize sets samples per package.
func WithPackageSize(n int) Option {
	return func(c *Collector) { c.packageSize = n }
}

// WithSamplingUnit sets the per-sample period.
func WithSamplingUnit(d time.Duration) Option {
	return func(c *Collector) { c.samplingUnit = d }
}

// WithCheckpointEvery sets how often progress is logged.
func WithCheckpointEvery(d time.Duration) Option {
	return func(c *Collector) { c.checkpointEvery = d }
}

// Collector buffers pseudo-random data packages on a background loop.
type Collector struct {
	channels        int
	packageSize     int
	samplingUnit    time.Duration
	checkpointEvery time.Duration
	log             *log.Logger
	rnd             *rand.Rand

	mu     sync.Mutex
	status Status
	data   []Sample

	wg sync.WaitGroup
}

// New returns an idle Collector with the original defaults: 256 channels,
// 40-sample packages at 1 ms per sample.
func New(logger *log.Logger, opts ...Option) *Collector {
	c := &Collector{
		channels:        256,
		packageSize:     40,
		samplingUnit:    time.Millisecond,
		checkpointEvery: 10 * time.Second,
		log:             logger,
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the current loop status.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Count returns how many samples are buffered.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Start launches the collect loop. Only an idle collector can start.
func (c *Collector) Start() error {
	c.mu.Lock()
	if c.status != StatusIdle {
		status := c.status
		c.mu.Unlock()
		c.log.Error("cannot start collect loop", "status", status)
		return fmt.Errorf("collector is %s, not idle", status)
	}
	c.status = StatusCollecting
	c.data = nil
	c.mu.Unlock()

	c.wg.Add(1)
	go c.loop()
	c.log.Debug("collect loop started", "channels", c.channels, "package_size", c.packageSize)
	return nil
}

// Stop halts the loop and waits for it. Stopping a non-collecting
// collector is a warning, not an error.
func (c *Collector) Stop() {
	c.mu.Lock()
	if c.status != StatusCollecting {
		status := c.status
		c.mu.Unlock()
		c.log.Warn("cannot stop collect loop", "status", status)
		return
	}
	c.status = StatusIdle
	c.mu.Unlock()

	c.wg.Wait()
	c.log.Debug("collect loop stopped", "samples", c.Count())
}

func (c *Collector) loop() {
	defer c.wg.Done()
	tic := time.Now()
	nextCheckpoint := c.checkpointEvery
	for {
		c.mu.Lock()
		if c.status != StatusCollecting {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.collect()

		if elapsed := time.Since(tic); elapsed > nextCheckpoint {
			nextCheckpoint += c.checkpointEvery
			c.log.Debug("collected", "samples", c.Count(), "elapsed", elapsed.Round(time.Millisecond))
		}
	}
}

// collect sleeps one package length, then back-fills the package's
// samples across the receive interval: the receive time stamps the last
// sample, earlier ones step back by the sampling unit.
func (c *Collector) collect() {
	time.Sleep(time.Duration(c.packageSize) * c.samplingUnit)
	receivedMs := time.Now().UnixMilli()
	unitMs := c.samplingUnit.Milliseconds()
	if unitMs <= 0 {
		unitMs = 1
	}

	package_ := make([]Sample, c.packageSize)
	for i := range package_ {
		values := make([]float64, c.channels)
		for j := range values {
			values[j] = c.rnd.NormFloat64()
		}
		package_[i] = Sample{
			Ms:     receivedMs - int64(c.packageSize-1-i)*unitMs,
			Values: values,
		}
	}

	c.mu.Lock()
	c.data = append(c.data, package_...)
	c.mu.Unlock()
}
