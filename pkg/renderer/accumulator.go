package renderer

import (
	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Accumulator keeps the running per-pixel mean of every completed pass.
// Pixels are stored as flat RGBA; row 0 is the bottom of the image.
type Accumulator struct {
	width, height int
	pix           []float64
	samples       int // Completed passes
}

// NewAccumulator allocates a cleared buffer
func NewAccumulator(width, height int) *Accumulator {
	return &Accumulator{
		width:  width,
		height: height,
		pix:    make([]float64, width*height*4),
	}
}

// Width returns the buffer width in pixels
func (a *Accumulator) Width() int { return a.width }

// Height returns the buffer height in pixels
func (a *Accumulator) Height() int { return a.height }

// Samples returns the number of completed passes
func (a *Accumulator) Samples() int { return a.samples }

// Pix exposes the flat RGBA buffer. Alpha is 1 for every written pixel.
func (a *Accumulator) Pix() []float64 { return a.pix }

// Accumulate folds a new sample into the pixel mean. The first pass stores the
// sample directly; later passes apply p += (s - p) / (n + 1).
func (a *Accumulator) Accumulate(x, y int, sample core.Vec3) {
	i := (y*a.width + x) * 4
	if a.samples == 0 {
		a.pix[i+0] = sample.X
		a.pix[i+1] = sample.Y
		a.pix[i+2] = sample.Z
		a.pix[i+3] = 1
		return
	}

	n := float64(a.samples + 1)
	a.pix[i+0] += (sample.X - a.pix[i+0]) / n
	a.pix[i+1] += (sample.Y - a.pix[i+1]) / n
	a.pix[i+2] += (sample.Z - a.pix[i+2]) / n
}

// CompletePass records that every pixel received one more sample
func (a *Accumulator) CompletePass() {
	a.samples++
}

// At returns the current mean of a pixel
func (a *Accumulator) At(x, y int) core.Vec3 {
	i := (y*a.width + x) * 4
	return core.NewVec3(a.pix[i], a.pix[i+1], a.pix[i+2])
}

// Reset zeroes every pixel and the pass counter
func (a *Accumulator) Reset() {
	clear(a.pix)
	a.samples = 0
}

// Resize reallocates the buffer when the dimensions change and reports whether
// it did. Same-size calls keep the accumulated image.
func (a *Accumulator) Resize(width, height int) bool {
	if width == a.width && height == a.height {
		return false
	}
	a.width = width
	a.height = height
	a.pix = make([]float64, width*height*4)
	a.samples = 0
	return true
}
