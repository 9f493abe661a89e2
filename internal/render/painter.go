// Package render draws the flicker stimulus frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"

	"github.com/listenzcc/BCI-engine/internal/model"
)

// Field is a 3-D coherent noise function returning values in [-1,1],
// deterministic and continuous in all three arguments.
type Field func(x, y, z float64) float64

// maxCharWidth is the display-cell budget for a patch label; window
// titles get a middle ellipsis beyond it.
const maxCharWidth = 12

// HeaderHeight is the strip reserved for the prompt and progress bar;
// patch layout starts below it.
const HeaderHeight = 100

// FrameState is everything one frame needs.
type FrameState struct {
	Patches    []model.Patch
	CueIndex   int
	Prompt     string
	TrialRatio float64
	HasFocus   bool
	Z          float64
}

// Painter renders frames onto an RGBA surface. Not safe for concurrent
// use; the render loop draws under the shared state lock.
type Painter struct {
	width  int
	height int
	img    *image.RGBA
	noise  Field
	rnd    *rand.Rand
	small  font.Face
	large  font.Face
}

// New returns a Painter with a transparent surface.
func New(width, height int, noise Field) *Painter {
	return NewWithRand(width, height, noise, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand injects the random source used for the focus-lost flash.
func NewWithRand(width, height int, noise Field, rnd *rand.Rand) *Painter {
	p := &Painter{
		width:  width,
		height: height,
		noise:  noise,
		rnd:    rnd,
		small:  inconsolata.Regular8x16,
		large:  inconsolata.Bold8x16,
	}
	p.Clear()
	return p
}

// Clear resets the surface to fully transparent.
func (p *Painter) Clear() {
	p.img = image.NewRGBA(image.Rect(0, 0, p.width, p.height))
}

// Frame returns the current surface. The caller must not retain it across
// the next draw.
func (p *Painter) Frame() *image.RGBA {
	return p.img
}

// Size returns the surface dimensions.
func (p *Painter) Size() (int, int) {
	return p.width, p.height
}

// DrawFrame paints one tick: flicker patches, cue flag, labels, header
// strip, and the focus-lost indicator.
func (p *Painter) DrawFrame(st FrameState) {
	for i, patch := range st.Patches {
		p.drawPatch(patch, st.Z)
		if i == st.CueIndex {
			p.drawCueFlag(patch)
		}
		p.drawLabels(patch)
	}
	p.drawHeader(st.Prompt, st.TrialRatio)
	if !st.HasFocus {
		p.drawFocusFlash()
	}
}

// drawPatch fills the flicker square. The gray level is a pure function
// of (x, y, z): distinct patches flicker quasi-independently because each
// samples the noise field at its own spatial coordinates.
func (p *Painter) drawPatch(patch model.Patch, z float64) {
	v := (p.noise(float64(patch.X), float64(patch.Y), z) + 1) * 0.5
	c := grayLevel(v)
	p.fillRect(patch.X, patch.Y, patch.X+patch.Size, patch.Y+patch.Size,
		color.RGBA{R: c, G: c, B: c, A: c})
}

// grayLevel maps a normalized intensity in [0,1] to an 8-bit gray.
func grayLevel(v float64) uint8 {
	c := int(v * 256)
	if c > 255 {
		c = 255
	}
	if c < 0 {
		c = 0
	}
	return uint8(c)
}

const cueFlagSize = 10

func (p *Painter) drawCueFlag(patch model.Patch) {
	p.fillRect(patch.X, patch.Y, patch.X+cueFlagSize, patch.Y+cueFlagSize,
		color.RGBA{R: 255, A: 255})
}

func (p *Painter) drawLabels(patch model.Patch) {
	p.drawText(p.small, fmt.Sprintf("%d", patch.ID), patch.X+2, patch.Y+14, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	label := MiddleEllipsis(patch.Char, maxCharWidth)
	w := font.MeasureString(p.large, label).Ceil()
	x := patch.X + patch.Size/2 - w/2
	y := patch.Y + patch.Size/2 + 6
	p.drawText(p.large, label, x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
}

func (p *Painter) drawHeader(prompt string, ratio float64) {
	if prompt != "" {
		p.drawText(p.large, prompt, 10, 30, color.RGBA{G: 255, B: 128, A: 255})
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	barWidth := int(ratio * float64(p.width))
	p.fillRect(0, HeaderHeight-12, barWidth, HeaderHeight-4,
		color.RGBA{R: 64, G: 160, B: 255, A: 200})
}

const focusFlashSize = 50

// drawFocusFlash blinks a random color in the top-right corner while the
// overlay window has lost input focus.
func (p *Painter) drawFocusFlash() {
	c := color.RGBA{
		R: uint8(p.rnd.Intn(256)),
		G: uint8(p.rnd.Intn(256)),
		B: uint8(p.rnd.Intn(256)),
		A: 255,
	}
	p.fillRect(p.width-focusFlashSize, 0, p.width, focusFlashSize, c)
}

func (p *Painter) fillRect(x0, y0, x1, y1 int, c color.Color) {
	draw.Draw(p.img, image.Rect(x0, y0, x1, y1), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func (p *Painter) drawText(face font.Face, s string, x, y int, c color.Color) {
	if strings.TrimSpace(s) == "" {
		return
	}
	d := font.Drawer{
		Dst:  p.img,
		Src:  &image.Uniform{C: c},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
