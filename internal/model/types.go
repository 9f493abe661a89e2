// Package model defines shared data structures.
package model

import "time"

// Patch is one flicker stimulus square. Patches are recreated every trial
// and are read-only while the trial runs; IDs are row-major.
type Patch struct {
	ID   int
	X    int
	Y    int
	Size int
	Char string
}

// Config defines display session settings.
type Config struct {
	Columns      int
	PaddingRatio float64
	TrialSeconds float64
	SpeedFactor  float64
	Width        int
	Height       int
	Charset      string
	ServerAddr   string
	Dispatch     bool
}

// TrialRecord captures one trial boundary for the history log.
type TrialRecord struct {
	StartedAt time.Time
	Stage     string
	CueChar   string
	CueIndex  int
	Columns   int
	Patches   int
}

// DispatchRecord captures one keystroke dispatch attempt.
type DispatchRecord struct {
	At     time.Time
	Target string
	Text   string
	OK     bool
	Error  string
}
