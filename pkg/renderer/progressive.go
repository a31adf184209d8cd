package renderer

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Status reports why Advance returned
type Status int

const (
	// Suspended means the time budget ran out mid-pass, or rendering is paused
	Suspended Status = iota
	// PassComplete means a pass finished during the slice and was counted
	PassComplete
)

func (s Status) String() string {
	if s == PassComplete {
		return "pass-complete"
	}
	return "suspended"
}

// AntialiasWidth is the sub-pixel grid the antialias offsets are expressed in
const AntialiasWidth = 16

// AntialiasOffsets is the standard 16-sample pattern, one offset per pass
var AntialiasOffsets = [16][2]float64{
	{1, 1}, {-1, -3}, {-3, 2}, {4, -1},
	{-5, -2}, {2, 5}, {5, 3}, {3, -5},
	{-2, 6}, {0, -7}, {-4, -6}, {-6, 4},
	{-8, 0}, {7, -4}, {6, 7}, {-7, -8},
}

// Tracer computes the radiance along a camera ray
type Tracer interface {
	Trace(ray core.Ray, sampler core.Sampler) core.Vec3
}

// RayGenerator maps normalized device coordinates to camera rays
type RayGenerator interface {
	RayAt(ndcX, ndcY float64) core.Ray
}

// ProgressiveConfig contains configuration for progressive rendering
type ProgressiveConfig struct {
	Antialiasing bool  // Jitter each pass by the next antialias offset
	Seed         int64 // Sampler seed (0 = time based)
}

// ProgressiveRenderer is a time-sliced path tracing scheduler. Each call to
// Advance traces pixels until the budget is spent or the pass ends, and the
// next call resumes from the stored row and column.
type ProgressiveRenderer struct {
	accum   *Accumulator
	tracer  Tracer
	camera  RayGenerator
	sampler core.Sampler
	config  ProgressiveConfig
	logger  *zap.Logger
	now     func() time.Time

	// pass state
	inPass           bool
	row, col         int
	aaIndex          int
	offsetX, offsetY float64
	scanLinePercent  float64
	paused           bool

	// timing
	renderStart     time.Time
	passStart       time.Time
	computationTime time.Duration
	generation      string
}

// NewProgressiveRenderer creates a scheduler with a cleared accumulator
func NewProgressiveRenderer(width, height int, tracer Tracer, camera RayGenerator, config ProgressiveConfig, logger *zap.Logger) *ProgressiveRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	pr := &ProgressiveRenderer{
		accum:   NewAccumulator(width, height),
		tracer:  tracer,
		camera:  camera,
		sampler: core.NewRandomSampler(rand.New(rand.NewSource(seed))),
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
	pr.Reset()
	return pr
}

// Advance traces pixels until budget has elapsed or the current pass ends.
// The elapsed time is checked after each pixel, so every call makes progress.
func (pr *ProgressiveRenderer) Advance(budget time.Duration) Status {
	if pr.paused || pr.tracer == nil || pr.camera == nil {
		return Suspended
	}

	start := pr.now()
	if !pr.inPass {
		pr.beginPass()
	}

	width, height := pr.accum.Width(), pr.accum.Height()
	for pr.row >= 0 {
		for pr.col < width {
			y := pr.row
			pr.tracePixel(pr.col, y)
			pr.col++

			elapsed := pr.now().Sub(start)
			if elapsed > budget {
				pr.computationTime += elapsed
				pr.scanLinePercent = 100 * float64(y) / float64(height)
				if pr.col < width || pr.row > 0 {
					return Suspended
				}
				// the slice ran out exactly on the final pixel
				pr.completePass()
				return PassComplete
			}
		}
		pr.col = 0
		pr.row--
	}

	pr.computationTime += pr.now().Sub(start)
	pr.completePass()
	return PassComplete
}

// beginPass picks the jitter for the new pass and starts at the top row
func (pr *ProgressiveRenderer) beginPass() {
	pr.offsetX, pr.offsetY = 0, 0
	if pr.config.Antialiasing {
		offset := AntialiasOffsets[pr.aaIndex]
		pr.offsetX = offset[0] / AntialiasWidth / float64(pr.accum.Width())
		pr.offsetY = offset[1] / AntialiasWidth / float64(pr.accum.Height())
	}
	pr.aaIndex = (pr.aaIndex + 1) % len(AntialiasOffsets)

	pr.row = pr.accum.Height() - 1
	pr.col = 0
	pr.inPass = true
	pr.passStart = pr.now()
}

func (pr *ProgressiveRenderer) completePass() {
	pr.accum.CompletePass()
	pr.inPass = false
	pr.row, pr.col = 0, 0

	pr.logger.Debug("pass complete",
		zap.String("generation", pr.generation),
		zap.Int("samples", pr.accum.Samples()),
		zap.Duration("pass_time", pr.now().Sub(pr.passStart)),
		zap.Duration("computation_time", pr.computationTime),
	)
}

// tracePixel casts one jittered primary ray and folds it into the accumulator
func (pr *ProgressiveRenderer) tracePixel(x, y int) {
	ndcX, ndcY := PixelNDC(x, y, pr.accum.Width(), pr.accum.Height(), pr.offsetX, pr.offsetY)
	ray := pr.camera.RayAt(ndcX, ndcY)
	pr.accum.Accumulate(x, y, pr.tracer.Trace(ray, pr.sampler))
}

// PixelNDC maps buffer pixel (x, y), row 0 at the bottom, plus a screen-space
// jitter to normalized device coordinates
func PixelNDC(x, y, width, height int, offsetX, offsetY float64) (float64, float64) {
	sx := offsetX + screenRatio(x, width)
	sy := offsetY + screenRatio(y, height)
	return sx*2 - 1, sy*2 - 1
}

// screenRatio maps a pixel index to [0, 1]; a single pixel maps to the centre
func screenRatio(i, n int) float64 {
	if n <= 1 {
		return 0.5
	}
	return float64(i) / float64(n-1)
}

// Reset discards the in-flight pass, clears the accumulator, restarts the
// antialias pattern and timing, and starts a new generation
func (pr *ProgressiveRenderer) Reset() {
	pr.accum.Reset()
	pr.inPass = false
	pr.row, pr.col = 0, 0
	pr.aaIndex = 0
	pr.offsetX, pr.offsetY = 0, 0
	pr.scanLinePercent = 100
	pr.computationTime = 0
	pr.renderStart = pr.now()
	pr.generation = uuid.NewString()

	pr.logger.Info("render reset",
		zap.String("generation", pr.generation),
		zap.Int("width", pr.accum.Width()),
		zap.Int("height", pr.accum.Height()),
	)
}

// SetTracer swaps the integrator and resets
func (pr *ProgressiveRenderer) SetTracer(tracer Tracer) {
	pr.tracer = tracer
	pr.Reset()
}

// SetCamera swaps the ray generator and resets
func (pr *ProgressiveRenderer) SetCamera(camera RayGenerator) {
	pr.camera = camera
	pr.Reset()
}

// SetAntialiasing toggles per-pass jitter and resets
func (pr *ProgressiveRenderer) SetAntialiasing(enabled bool) {
	pr.config.Antialiasing = enabled
	pr.Reset()
}

// Resize reallocates the accumulator and resets when the dimensions change
func (pr *ProgressiveRenderer) Resize(width, height int) bool {
	if !pr.accum.Resize(width, height) {
		return false
	}
	pr.Reset()
	return true
}

// Configure applies a new size, integrator, camera and antialias setting
// together with a single reset
func (pr *ProgressiveRenderer) Configure(width, height int, tracer Tracer, camera RayGenerator, antialiasing bool) {
	pr.accum.Resize(width, height)
	pr.tracer = tracer
	pr.camera = camera
	pr.config.Antialiasing = antialiasing
	pr.Reset()
}

// SetPaused stops Advance from tracing until unpaused
func (pr *ProgressiveRenderer) SetPaused(paused bool) {
	pr.paused = paused
}

// Accumulator returns the image buffer
func (pr *ProgressiveRenderer) Accumulator() *Accumulator {
	return pr.accum
}

// Generation returns the identifier of the current reset epoch
func (pr *ProgressiveRenderer) Generation() string {
	return pr.generation
}

// Progress returns the fraction of the in-flight pass that has been traced
func (pr *ProgressiveRenderer) Progress() float64 {
	if !pr.inPass {
		return 0
	}
	width, height := pr.accum.Width(), pr.accum.Height()
	total := width * height
	if total == 0 {
		return 0
	}
	done := (height-1-pr.row)*width + pr.col
	return float64(done) / float64(total)
}

// ScanLinePercent returns 100 * y / height of the row where the last slice
// was suspended, or 100 after a reset
func (pr *ProgressiveRenderer) ScanLinePercent() float64 {
	return pr.scanLinePercent
}

// Stats returns a snapshot of the render statistics
func (pr *ProgressiveRenderer) Stats() RenderStats {
	return RenderStats{
		Generation:      pr.generation,
		Width:           pr.accum.Width(),
		Height:          pr.accum.Height(),
		Samples:         pr.accum.Samples(),
		Progress:        pr.Progress(),
		ScanLinePercent: pr.scanLinePercent,
		ComputationTime: pr.computationTime,
		ElapsedTime:     pr.now().Sub(pr.renderStart),
		Paused:          pr.paused,
	}
}

// ErrNotReady is returned when a blocking render cannot make progress
var ErrNotReady = errors.New("renderer is paused or has no tracer")

// RenderOptions controls a blocking progressive render
type RenderOptions struct {
	MaxPasses   int           // Stop after this many completed passes
	SliceBudget time.Duration // Budget handed to each Advance call
}

// PassResult is sent once per completed pass
type PassResult struct {
	Stats  RenderStats
	IsLast bool
}

// RenderProgressive drives Advance until MaxPasses passes are complete or the
// context is cancelled. The renderer must not be used by anything else until
// the pass channel is closed.
func (pr *ProgressiveRenderer) RenderProgressive(ctx context.Context, options RenderOptions) (<-chan PassResult, <-chan error) {
	passChan := make(chan PassResult, 1)
	errChan := make(chan error, 1)

	go func() {
		defer close(passChan)
		defer close(errChan)

		if pr.paused || pr.tracer == nil || pr.camera == nil {
			errChan <- ErrNotReady
			return
		}

		for pr.accum.Samples() < options.MaxPasses {
			select {
			case <-ctx.Done():
				pr.logger.Info("render cancelled", zap.Int("samples", pr.accum.Samples()))
				errChan <- ctx.Err()
				return
			default:
			}

			if pr.Advance(options.SliceBudget) != PassComplete {
				continue
			}

			result := PassResult{
				Stats:  pr.Stats(),
				IsLast: pr.accum.Samples() >= options.MaxPasses,
			}
			select {
			case passChan <- result:
			case <-ctx.Done():
				errChan <- ctx.Err()
				return
			}
		}
	}()

	return passChan, errChan
}
