package renderer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// ndcCamera encodes the requested NDC point in the ray origin
type ndcCamera struct{}

func (ndcCamera) RayAt(ndcX, ndcY float64) core.Ray {
	return core.NewRay(core.NewVec3(ndcX, ndcY, 0), core.NewVec3(0, 0, -1))
}

// recordingTracer returns a fixed color and remembers every primary ray
type recordingTracer struct {
	color core.Vec3
	rays  []core.Ray
}

func (r *recordingTracer) Trace(ray core.Ray, sampler core.Sampler) core.Vec3 {
	r.rays = append(r.rays, ray)
	return r.color
}

// fakeClock advances by step every time it is read
type fakeClock struct {
	current time.Time
	step    time.Duration
}

func (c *fakeClock) now() time.Time {
	c.current = c.current.Add(c.step)
	return c.current
}

func newTestRenderer(width, height int, tracer Tracer, antialias bool, step time.Duration) *ProgressiveRenderer {
	pr := NewProgressiveRenderer(width, height, tracer, ndcCamera{}, ProgressiveConfig{Antialiasing: antialias, Seed: 1}, nil)
	clock := &fakeClock{current: time.Unix(0, 0), step: step}
	pr.now = clock.now
	pr.Reset()
	return pr
}

func TestProgressive_RasterOrderTopRowFirst(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(1)}
	pr := newTestRenderer(3, 2, tracer, false, 0)

	status := pr.Advance(time.Hour)
	require.Equal(t, PassComplete, status)
	require.Len(t, tracer.rays, 6)

	expected := [][2]float64{
		{-1, 1}, {0, 1}, {1, 1},
		{-1, -1}, {0, -1}, {1, -1},
	}
	for i, want := range expected {
		got := tracer.rays[i].Origin
		assert.InDelta(t, want[0], got.X, 1e-12, "ray %d x", i)
		assert.InDelta(t, want[1], got.Y, 1e-12, "ray %d y", i)
	}
	assert.Equal(t, 1, pr.Accumulator().Samples())
	assert.Equal(t, 0.0, pr.Progress())
}

func TestProgressive_SinglePixelDimensionMapsToCenter(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(1, 1, tracer, false, 0)

	pr.Advance(time.Hour)
	require.Len(t, tracer.rays, 1)
	assert.Equal(t, 0.0, tracer.rays[0].Origin.X)
	assert.Equal(t, 0.0, tracer.rays[0].Origin.Y)
}

func TestProgressive_ZeroBudgetTracesOnePixelPerSlice(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(0.5)}
	pr := newTestRenderer(2, 2, tracer, false, time.Millisecond)

	for i := 1; i <= 3; i++ {
		status := pr.Advance(0)
		assert.Equal(t, Suspended, status, "slice %d", i)
		assert.Len(t, tracer.rays, i)
		assert.Equal(t, 0, pr.Accumulator().Samples(), "pass must not be counted mid-way")
		assert.InDelta(t, float64(i)/4, pr.Progress(), 1e-12)
	}

	assert.Equal(t, PassComplete, pr.Advance(0))
	assert.Len(t, tracer.rays, 4)
	assert.Equal(t, 1, pr.Accumulator().Samples())
}

func TestProgressive_ScanLinePercent(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(1, 4, tracer, false, time.Millisecond)
	assert.Equal(t, 100.0, pr.ScanLinePercent())

	pr.Advance(0) // traces row 3
	assert.Equal(t, 75.0, pr.ScanLinePercent())
	pr.Advance(0) // traces row 2
	assert.Equal(t, 50.0, pr.ScanLinePercent())

	pr.Reset()
	assert.Equal(t, 100.0, pr.ScanLinePercent())
}

func TestProgressive_ResetMidPass(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(1)}
	pr := newTestRenderer(2, 2, tracer, false, time.Millisecond)
	generation := pr.Generation()

	pr.Advance(0)
	pr.Advance(0)
	require.Greater(t, pr.Progress(), 0.0)

	pr.Reset()
	assert.NotEqual(t, generation, pr.Generation())
	assert.Equal(t, 0.0, pr.Progress())
	assert.Equal(t, 0, pr.Accumulator().Samples())
	assert.Equal(t, core.Vec3{}, pr.Accumulator().At(0, 1))

	// The next slice restarts from the top-left pixel
	tracer.rays = nil
	pr.Advance(0)
	require.Len(t, tracer.rays, 1)
	assert.Equal(t, -1.0, tracer.rays[0].Origin.X)
	assert.Equal(t, 1.0, tracer.rays[0].Origin.Y)
}

func TestProgressive_ResetIdempotent(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(1)}
	pr := newTestRenderer(2, 3, tracer, true, time.Millisecond)

	pr.Advance(0)
	pr.Advance(0)
	pr.Advance(0)
	require.Greater(t, pr.Progress(), 0.0)

	pr.Reset()
	pix := append([]float64(nil), pr.Accumulator().Pix()...)
	samples := pr.Accumulator().Samples()
	progress := pr.Progress()
	scanLine := pr.ScanLinePercent()

	pr.Reset()
	assert.Equal(t, pix, pr.Accumulator().Pix())
	assert.Equal(t, samples, pr.Accumulator().Samples())
	assert.Equal(t, progress, pr.Progress())
	assert.Equal(t, scanLine, pr.ScanLinePercent())

	assert.Equal(t, make([]float64, len(pix)), pix)
	assert.Equal(t, 0, samples)
	assert.Equal(t, 0.0, progress)
	assert.Equal(t, 100.0, scanLine)

	// a second reset still restarts at the first pixel and first offset
	tracer.rays = nil
	pr.Advance(0)
	require.Len(t, tracer.rays, 1)
	assert.InDelta(t, -1+AntialiasOffsets[0][0]/AntialiasWidth, tracer.rays[0].Origin.X, 1e-12)
}

func TestProgressive_ConfigureResetsOnce(t *testing.T) {
	observed, logs := observer.New(zap.InfoLevel)
	pr := NewProgressiveRenderer(2, 2, &recordingTracer{}, ndcCamera{}, ProgressiveConfig{Seed: 1}, zap.New(observed))
	pr.Advance(time.Hour)
	generation := pr.Generation()
	before := logs.FilterMessage("render reset").Len()

	tracer := &recordingTracer{}
	pr.Configure(4, 3, tracer, ndcCamera{}, true)

	assert.Equal(t, before+1, logs.FilterMessage("render reset").Len())
	assert.NotEqual(t, generation, pr.Generation())
	assert.Equal(t, 4, pr.Accumulator().Width())
	assert.Equal(t, 3, pr.Accumulator().Height())
	assert.Equal(t, 0, pr.Accumulator().Samples())

	require.Equal(t, PassComplete, pr.Advance(time.Hour))
	require.Len(t, tracer.rays, 12)
	// x = offset / 16 / width, ndc = 2x - 1 at column 0
	assert.InDelta(t, 2*AntialiasOffsets[0][0]/AntialiasWidth/4-1, tracer.rays[0].Origin.X, 1e-12)
}

func TestProgressive_AntialiasOffsetsCycle(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(1, 1, tracer, true, 0)

	passes := len(AntialiasOffsets) + 2
	for i := 0; i < passes; i++ {
		require.Equal(t, PassComplete, pr.Advance(time.Hour))
	}
	require.Len(t, tracer.rays, passes)

	for i, ray := range tracer.rays {
		offset := AntialiasOffsets[i%len(AntialiasOffsets)]
		// For a single pixel, ndc = 2 * (offset / 16 + 0.5) - 1 = offset / 8
		assert.InDelta(t, offset[0]/8, ray.Origin.X, 1e-12, "pass %d", i)
		assert.InDelta(t, offset[1]/8, ray.Origin.Y, 1e-12, "pass %d", i)
	}

	// Reset restarts the pattern
	tracer.rays = nil
	pr.Reset()
	pr.Advance(time.Hour)
	assert.InDelta(t, AntialiasOffsets[0][0]/8, tracer.rays[0].Origin.X, 1e-12)
}

func TestProgressive_SetAntialiasing(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(1)}
	pr := newTestRenderer(1, 1, tracer, false, 0)
	pr.Advance(time.Hour)
	assert.Equal(t, 0.0, tracer.rays[0].Origin.X)

	pr.SetAntialiasing(true)
	assert.Equal(t, 0, pr.Accumulator().Samples())

	// the pattern restarts at the first offset
	pr.Advance(time.Hour)
	require.Len(t, tracer.rays, 2)
	assert.InDelta(t, AntialiasOffsets[0][0]/8, tracer.rays[1].Origin.X, 1e-12)
	assert.InDelta(t, AntialiasOffsets[0][1]/8, tracer.rays[1].Origin.Y, 1e-12)
}

func TestProgressive_AccumulatesMeanAcrossPasses(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(1)}
	pr := newTestRenderer(2, 2, tracer, true, 0)

	pr.Advance(time.Hour)
	tracer.color = core.Splat(0)
	pr.Advance(time.Hour)

	assert.Equal(t, 2, pr.Accumulator().Samples())
	assert.InDelta(t, 0.5, pr.Accumulator().At(1, 1).X, 1e-12)
}

func TestProgressive_Paused(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(2, 2, tracer, false, 0)

	pr.SetPaused(true)
	assert.True(t, pr.Stats().Paused)
	assert.Equal(t, Suspended, pr.Advance(time.Hour))
	assert.Empty(t, tracer.rays)

	pr.SetPaused(false)
	assert.Equal(t, PassComplete, pr.Advance(time.Hour))
}

func TestProgressive_NoTracerSuspends(t *testing.T) {
	pr := newTestRenderer(2, 2, nil, false, 0)
	assert.Equal(t, Suspended, pr.Advance(time.Hour))

	tracer := &recordingTracer{}
	pr.SetTracer(tracer)
	assert.Equal(t, PassComplete, pr.Advance(time.Hour))
	assert.Len(t, tracer.rays, 4)
}

func TestProgressive_Resize(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(2, 2, tracer, false, 0)
	pr.Advance(time.Hour)
	generation := pr.Generation()

	assert.False(t, pr.Resize(2, 2))
	assert.Equal(t, generation, pr.Generation())
	assert.Equal(t, 1, pr.Accumulator().Samples())

	assert.True(t, pr.Resize(4, 3))
	assert.NotEqual(t, generation, pr.Generation())
	assert.Equal(t, 0, pr.Accumulator().Samples())

	stats := pr.Stats()
	assert.Equal(t, 4, stats.Width)
	assert.Equal(t, 3, stats.Height)
}

func TestProgressive_Stats(t *testing.T) {
	tracer := &recordingTracer{}
	pr := newTestRenderer(2, 1, tracer, false, time.Millisecond)

	pr.Advance(time.Hour)
	stats := pr.Stats()

	assert.Equal(t, pr.Generation(), stats.Generation)
	assert.Equal(t, 1, stats.Samples)
	assert.Greater(t, stats.ComputationTime, time.Duration(0))
	assert.GreaterOrEqual(t, stats.ElapsedTime, stats.ComputationTime)
	assert.False(t, stats.Paused)
}

func TestRenderProgressive(t *testing.T) {
	tracer := &recordingTracer{color: core.Splat(0.25)}
	pr := newTestRenderer(3, 3, tracer, true, 0)

	passChan, errChan := pr.RenderProgressive(context.Background(), RenderOptions{
		MaxPasses:   3,
		SliceBudget: time.Hour,
	})

	var results []PassResult
	for result := range passChan {
		results = append(results, result)
	}
	for err := range errChan {
		t.Fatalf("Unexpected error: %v", err)
	}

	require.Len(t, results, 3)
	for i, result := range results {
		assert.Equal(t, i+1, result.Stats.Samples)
		assert.Equal(t, i == 2, result.IsLast)
	}
	assert.Len(t, tracer.rays, 27)
}

func TestRenderProgressive_Cancelled(t *testing.T) {
	pr := newTestRenderer(2, 2, &recordingTracer{}, false, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	passChan, errChan := pr.RenderProgressive(ctx, RenderOptions{MaxPasses: 5, SliceBudget: time.Hour})
	for range passChan {
	}
	err := <-errChan
	assert.True(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
}

func TestRenderProgressive_NotReady(t *testing.T) {
	pr := newTestRenderer(2, 2, &recordingTracer{}, false, 0)
	pr.SetPaused(true)

	passChan, errChan := pr.RenderProgressive(context.Background(), RenderOptions{MaxPasses: 1})
	for range passChan {
	}
	assert.ErrorIs(t, <-errChan, ErrNotReady)
}

func TestPixelNDC(t *testing.T) {
	x, y := PixelNDC(0, 0, 5, 3, 0, 0)
	assert.Equal(t, -1.0, x)
	assert.Equal(t, -1.0, y)

	x, y = PixelNDC(4, 1, 5, 3, 0, 0)
	assert.Equal(t, 1.0, x)
	assert.Equal(t, 0.0, y)

	x, y = PixelNDC(0, 0, 1, 1, 0.25, -0.25)
	assert.Equal(t, 0.5, x)
	assert.Equal(t, -0.5, y)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "suspended", Suspended.String())
	assert.Equal(t, "pass-complete", PassComplete.String())
}
