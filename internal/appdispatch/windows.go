//go:build windows

package appdispatch

import (
	"fmt"
	"strings"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                   = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procIsWindowVisible      = user32.NewProc("IsWindowVisible")
	procGetWindowTextW       = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
	procGetForegroundWindow  = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow  = user32.NewProc("SetForegroundWindow")
	procSendInput            = user32.NewProc("SendInput")
)

const (
	keyEventfKeyUp   = 0x0002
	keyEventfUnicode = 0x0004
	vkReturn         = 0x0D
	inputKeyboard    = 1
)

type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// input mirrors the Win32 INPUT struct; the trailing pad covers the rest
// of the MOUSEINPUT union arm on 64-bit builds.
type input struct {
	Type uint32
	_    uint32
	Ki   keybdInput
	_    [8]byte
}

// OS enumerates top-level windows and injects keystrokes through user32.
// The zero value is ready to use.
type OS struct {
	// SwitchDelay is the pause after focusing the target before typing.
	SwitchDelay time.Duration
	// KeyDelay is the pause between synthesized keystrokes.
	KeyDelay time.Duration
}

// NewOS returns an OS dispatcher with the short fixed delays the display
// loop tolerates.
func NewOS() *OS {
	return &OS{SwitchDelay: 200 * time.Millisecond, KeyDelay: 5 * time.Millisecond}
}

// List implements WindowLister with visible, titled top-level windows.
func (o *OS) List() ([]Window, error) {
	foreground, _, _ := procGetForegroundWindow.Call()
	var out []Window
	cb := windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1
		}
		title := windowTitle(hwnd)
		if title == "" {
			return 1
		}
		out = append(out, Window{Title: title, IsCurrent: hwnd == foreground})
		return 1
	})
	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("enumerating windows: %w", err)
	}
	return out, nil
}

// SendText implements Typist: focus the first window whose title contains
// title, type text, and press Enter.
func (o *OS) SendText(title, text string) error {
	hwnd, err := o.findWindow(title)
	if err != nil {
		return err
	}
	ret, _, callErr := procSetForegroundWindow.Call(hwnd)
	if ret == 0 {
		return fmt.Errorf("focusing %q: %w", title, callErr)
	}
	time.Sleep(o.SwitchDelay)

	for _, r := range text {
		if err := sendUnicode(uint16(r)); err != nil {
			return fmt.Errorf("typing %q: %w", text, err)
		}
		time.Sleep(o.KeyDelay)
	}
	if err := sendVirtualKey(vkReturn); err != nil {
		return fmt.Errorf("submitting to %q: %w", title, err)
	}
	return nil
}

func (o *OS) findWindow(title string) (uintptr, error) {
	windowsList, err := o.List()
	if err != nil {
		return 0, err
	}
	var found uintptr
	cb := windows.NewCallback(func(hwnd, _ uintptr) uintptr {
		if strings.Contains(windowTitle(hwnd), title) {
			found = hwnd
			return 0
		}
		return 1
	})
	// EnumWindows reports failure when the callback stops it early.
	procEnumWindows.Call(cb, 0)
	if found == 0 {
		return 0, fmt.Errorf("window %q not found among %d windows", title, len(windowsList))
	}
	return found, nil
}

func windowTitle(hwnd uintptr) string {
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return ""
	}
	buf := make([]uint16, length+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), length+1)
	return windows.UTF16ToString(buf)
}

func sendUnicode(scan uint16) error {
	down := input{Type: inputKeyboard, Ki: keybdInput{Scan: scan, Flags: keyEventfUnicode}}
	up := input{Type: inputKeyboard, Ki: keybdInput{Scan: scan, Flags: keyEventfUnicode | keyEventfKeyUp}}
	return sendInputs(down, up)
}

func sendVirtualKey(vk uint16) error {
	down := input{Type: inputKeyboard, Ki: keybdInput{Vk: vk}}
	up := input{Type: inputKeyboard, Ki: keybdInput{Vk: vk, Flags: keyEventfKeyUp}}
	return sendInputs(down, up)
}

func sendInputs(inputs ...input) error {
	n, _, err := procSendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if int(n) != len(inputs) {
		return fmt.Errorf("sent %d of %d inputs: %w", n, len(inputs), err)
	}
	return nil
}
