// Package appdispatch forwards recognized input to external applications.
// The OS-specific window switching and keystroke synthesis live behind
// narrow interfaces so the trial machine stays testable off-Windows.
package appdispatch

// Window describes one candidate target window.
type Window struct {
	Title     string
	IsCurrent bool
}

// WindowLister enumerates candidate target windows.
type WindowLister interface {
	List() ([]Window, error)
}

// Typist switches focus to the window matching title, types text, and
// submits it. Fire-and-forget: nothing is restored afterwards.
type Typist interface {
	SendText(title, text string) error
}
