package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/integrator"
	"github.com/df07/go-progressive-pathtracer/pkg/renderer"
	"github.com/df07/go-progressive-pathtracer/pkg/scene"
)

// ErrOutOfBounds is returned when an inspected pixel lies outside the image
var ErrOutOfBounds = errors.New("pixel out of bounds")

// Session owns the interactive render. A background loop advances the
// renderer one time slice per tick; every other method takes the same lock,
// so settings changes always land between slices.
type Session struct {
	mu       sync.Mutex
	settings *config.Settings
	scene    *scene.Scene
	tracer   *integrator.PathTracer
	camera   *renderer.Camera
	renderer *renderer.ProgressiveRenderer
	logger   *zap.Logger
}

// NewSession validates settings and builds the scene, tracer and renderer
func NewSession(settings *config.Settings, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settings = settings.Clone()
	sc, tracer, camera, err := scene.Build(settings, logger)
	if err != nil {
		return nil, err
	}

	width, height := settings.RenderSize()
	pr := renderer.NewProgressiveRenderer(width, height, tracer, camera, renderer.ProgressiveConfig{
		Antialiasing: settings.Antialiasing,
		Seed:         settings.Seed,
	}, logger)
	pr.SetPaused(settings.Pause)

	return &Session{
		settings: settings,
		scene:    sc,
		tracer:   tracer,
		camera:   camera,
		renderer: pr,
		logger:   logger,
	}, nil
}

// Run advances the renderer every interval until ctx is done
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("render loop started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("render loop stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs one time slice with the configured budget
func (s *Session) Step() renderer.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Advance(s.settings.SliceBudget)
}

// Settings returns a copy of the active settings
func (s *Session) Settings() *config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Clone()
}

// UpdateSettings validates and applies next. Any accepted change discards the
// accumulated image; a rejected change leaves the session untouched.
func (s *Session) UpdateSettings(next *config.Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	next = next.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Apply mutates the shared light and floor objects, so it runs under the
	// lock while no slice is tracing
	tracer, err := s.scene.Tracer(next)
	if err != nil {
		// restore the previous transforms
		if _, restoreErr := s.scene.Tracer(s.settings); restoreErr != nil {
			s.logger.Error("failed to restore scene", zap.Error(restoreErr))
		}
		return fmt.Errorf("failed to apply settings: %w", err)
	}

	width, height := next.RenderSize()
	camera := renderer.NewCamera(scene.CameraConfig(next, float64(width)/float64(height)))

	s.renderer.Configure(width, height, tracer, camera, next.Antialiasing)
	s.renderer.SetPaused(next.Pause)

	s.settings = next
	s.tracer = tracer
	s.camera = camera

	s.logger.Info("settings applied",
		zap.String("model", next.Model),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("paused", next.Pause),
	)
	return nil
}

// Reset discards the accumulated image
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer.Reset()
}

// Stats returns the current render statistics
func (s *Session) Stats() renderer.RenderStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderer.Stats()
}

// Frame returns the current image at output size
func (s *Session) Frame() image.Image {
	img, _ := s.Snapshot()
	return img
}

// Snapshot returns the image at output size together with the statistics
// of the same generation and pass
func (s *Session) Snapshot() (image.Image, renderer.RenderStats) {
	s.mu.Lock()
	img := renderer.ToImage(s.renderer.Accumulator())
	stats := s.renderer.Stats()
	outW, outH := s.settings.OutputSize()
	smooth := s.settings.Resolution.SmoothScaling
	s.mu.Unlock()

	if b := img.Bounds(); b.Dx() != outW || b.Dy() != outH {
		return renderer.Upscale(img, outW, outH, smooth), stats
	}
	return img, stats
}

// Inspect casts an unjittered ray through output pixel (x, y), measured from
// the top-left corner, and describes the first surface it hits
func (s *Session) Inspect(x, y int) (InspectResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outW, outH := s.settings.OutputSize()
	if x < 0 || y < 0 || x >= outW || y >= outH {
		return InspectResponse{}, fmt.Errorf("%w: (%d, %d) outside %dx%d", ErrOutOfBounds, x, y, outW, outH)
	}

	// output pixel to render pixel, then flip to bottom-up rows
	width, height := s.settings.RenderSize()
	rx := x * width / outW
	ry := height - 1 - y*height/outH

	ndcX, ndcY := renderer.PixelNDC(rx, ry, width, height, 0, 0)
	ray := s.camera.RayAt(ndcX, ndcY)

	response := InspectResponse{
		Pixel:        [2]int{x, y},
		Ray:          vecArray(ray.Direction),
		Environment:  s.settings.Environment.SkyMode,
		RenderPixel:  [2]int{rx, ry},
		RenderWidth:  width,
		RenderHeight: height,
	}

	rec, obj, ok := s.tracer.Inspect(ray)
	if !ok {
		return response, nil
	}

	response.Hit = true
	response.Object = obj.Name
	response.Point = vecArray(rec.Point)
	response.Normal = vecArray(rec.Normal)
	response.Distance = rec.Distance
	response.FrontFace = rec.FrontFace
	if s.tracer.IsLight(obj) {
		response.Light = true
		return response, nil
	}
	response.Material = newMaterialInfo(rec.Material)
	return response, nil
}

func vecArray(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}
