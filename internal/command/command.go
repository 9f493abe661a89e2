// Package command implements the structured command channel that mutates
// the display session from outside the render loop.
package command

import (
	"encoding/json"
	"math"
	"time"

	"github.com/charmbracelet/log"
)

// Kind is the closed set of recognized commands. Anything outside the set
// maps to KindUnknown and yields the explicit failure response.
type Kind int

const (
	// KindUnknown covers every unrecognized command string.
	KindUnknown Kind = iota
	// KindEcho echoes the request back with a success status.
	KindEcho
	// KindQueryPassedSeconds reports elapsed display seconds.
	KindQueryPassedSeconds
	// KindChangeColumns reconfigures the layout column count.
	KindChangeColumns
	// KindAppendCueSequence queues cue characters.
	KindAppendCueSequence
)

// Wire command names.
const (
	CmdEcho               = "echo"
	CmdQueryPassedSeconds = "query passed seconds"
	CmdChangeColumns      = "change columns"
	CmdAppendCueSequence  = "append cue sequence"
)

// Response statuses.
const (
	StatusSuccess = "Success"
	StatusFail    = "Fail"
)

// ParseKind maps a wire command name onto the closed Kind set.
func ParseKind(cmd string) Kind {
	switch cmd {
	case CmdEcho:
		return KindEcho
	case CmdQueryPassedSeconds:
		return KindQueryPassedSeconds
	case CmdChangeColumns:
		return KindChangeColumns
	case CmdAppendCueSequence:
		return KindAppendCueSequence
	}
	return KindUnknown
}

// Controller is the narrow engine surface the command channel may touch.
type Controller interface {
	PassedSeconds() float64
	ChangeColumns(columns int) error
	AppendCue(text string)
}

// Dispatcher applies one command message and builds the response. The
// response echoes the request fields and adds status plus a timestamp.
type Dispatcher struct {
	ctrl Controller
	log  *log.Logger
	now  func() time.Time
}

// NewDispatcher returns a Dispatcher over the given controller.
func NewDispatcher(ctrl Controller, logger *log.Logger) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, log: logger, now: time.Now}
}

// Handle processes one raw JSON message and returns the JSON response.
// Failures are reported to the caller in-band, never as transport errors.
func (d *Dispatcher) Handle(raw []byte) []byte {
	msg := map[string]any{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.log.Warn("undecodable command message", "err", err)
		msg = map[string]any{"status": StatusFail, "error": "invalid json"}
		return d.seal(msg)
	}

	cmd, _ := msg["cmd"].(string)
	switch ParseKind(cmd) {
	case KindEcho:
		msg["status"] = StatusSuccess

	case KindQueryPassedSeconds:
		msg["status"] = StatusSuccess
		msg["passed"] = d.ctrl.PassedSeconds()

	case KindChangeColumns:
		columns, ok := msg["columns"].(float64)
		if !ok {
			msg["status"] = StatusFail
			msg["error"] = "missing columns"
			break
		}
		if columns != math.Trunc(columns) {
			msg["status"] = StatusFail
			msg["error"] = "columns must be an integer"
			break
		}
		if err := d.ctrl.ChangeColumns(int(columns)); err != nil {
			msg["status"] = StatusFail
			msg["error"] = err.Error()
			break
		}
		msg["status"] = StatusSuccess

	case KindAppendCueSequence:
		text, ok := msg["text"].(string)
		if !ok || text == "" {
			msg["status"] = StatusFail
			msg["error"] = "missing text"
			break
		}
		d.ctrl.AppendCue(text)
		msg["status"] = StatusSuccess

	default:
		msg["status"] = StatusFail
		msg["error"] = "Unknown command"
		d.log.Warn("unknown command", "cmd", cmd)
	}

	return d.seal(msg)
}

// seal timestamps the response and marshals it.
func (d *Dispatcher) seal(msg map[string]any) []byte {
	msg["timestamp"] = float64(d.now().UnixNano()) / float64(time.Second)
	out, err := json.Marshal(msg)
	if err != nil {
		d.log.Error("marshaling response", "err", err)
		return []byte(`{"status":"Fail","error":"marshal failure"}`)
	}
	return out
}
