package appdispatch

import "sync"

// Fake is an in-memory dispatcher used in tests and on platforms without
// keystroke injection. It records every send.
type Fake struct {
	mu      sync.Mutex
	windows []Window
	sends   []Send
	fail    error
}

// Send is one recorded SendText call.
type Send struct {
	Target string
	Text   string
}

// NewFake returns a Fake exposing the given windows.
func NewFake(windows ...Window) *Fake {
	return &Fake{windows: windows}
}

// SetWindows replaces the window list.
func (f *Fake) SetWindows(windows ...Window) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.windows = windows
}

// FailWith makes subsequent SendText calls return err.
func (f *Fake) FailWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

// List implements WindowLister.
func (f *Fake) List() ([]Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Window, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

// SendText implements Typist.
func (f *Fake) SendText(title, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sends = append(f.sends, Send{Target: title, Text: text})
	return nil
}

// Sends returns the recorded sends.
func (f *Fake) Sends() []Send {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Send, len(f.sends))
	copy(out, f.sends)
	return out
}
