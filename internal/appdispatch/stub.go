//go:build !windows

package appdispatch

import "errors"

// ErrUnsupported reports that OS-level dispatch is only built on Windows.
var ErrUnsupported = errors.New("appdispatch: OS window dispatch requires windows")

// OS is a placeholder on non-Windows builds.
type OS struct{}

// NewOS returns the unsupported stub.
func NewOS() *OS { return &OS{} }

// List implements WindowLister.
func (o *OS) List() ([]Window, error) { return nil, ErrUnsupported }

// SendText implements Typist.
func (o *OS) SendText(title, text string) error { return ErrUnsupported }
