// Package display abstracts the compositor that puts frames on screen.
package display

import "image"

// Sink accepts finished frames. Present must not retain the frame past
// the call; the render loop reuses the surface.
type Sink interface {
	Present(frame *image.RGBA)
}

// Null discards frames. Used when no preview or compositor is attached.
type Null struct{}

// Present implements Sink.
func (Null) Present(*image.RGBA) {}

// Func adapts a function to the Sink interface.
type Func func(frame *image.RGBA)

// Present implements Sink.
func (f Func) Present(frame *image.RGBA) { f(frame) }
