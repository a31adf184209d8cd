package config

import (
	"errors"
	"fmt"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/sky"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Validate checks the settings for values the renderer cannot use.
func (s *Settings) Validate() error {
	if s.Bounces < 1 {
		return fmt.Errorf("%w: bounces must be at least 1, got %d", ErrInvalidSettings, s.Bounces)
	}
	if s.SliceBudget < 0 {
		return fmt.Errorf("%w: slice_budget must not be negative", ErrInvalidSettings)
	}
	if s.Model == "" {
		return fmt.Errorf("%w: model must not be empty", ErrInvalidSettings)
	}

	if _, err := sky.ParseMode(s.Environment.SkyMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	intensities := map[string]float64{
		"environment.sky_intensity":   s.Environment.SkyIntensity,
		"light.intensity":             s.Light.Intensity,
		"material.emissive_intensity": s.Material.EmissiveIntensity,
	}
	for name, value := range intensities {
		if value < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidSettings, name, value)
		}
	}

	fractions := map[string]float64{
		"material.roughness":    s.Material.Roughness,
		"material.metalness":    s.Material.Metalness,
		"material.transmission": s.Material.Transmission,
		"floor.roughness":       s.Floor.Roughness,
		"floor.metalness":       s.Floor.Metalness,
	}
	for name, value := range fractions {
		if value < 0 || value > 1 {
			return fmt.Errorf("%w: %s must be in [0, 1], got %g", ErrInvalidSettings, name, value)
		}
	}
	if s.Material.IOR <= 0 {
		return fmt.Errorf("%w: material.ior must be positive, got %g", ErrInvalidSettings, s.Material.IOR)
	}

	colors := map[string]string{
		"light.color":       s.Light.Color,
		"floor.color":       s.Floor.Color,
		"material.color":    s.Material.Color,
		"material.emissive": s.Material.Emissive,
	}
	for name, value := range colors {
		if _, err := core.ParseHexColor(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidSettings, name, err)
		}
	}

	if s.Resolution.Width <= 0 || s.Resolution.Height <= 0 {
		return fmt.Errorf("%w: resolution must be positive, got %dx%d", ErrInvalidSettings, s.Resolution.Width, s.Resolution.Height)
	}
	if s.Resolution.Scale < 1 {
		return fmt.Errorf("%w: resolution.scale must be at least 1, got %d", ErrInvalidSettings, s.Resolution.Scale)
	}
	if s.Light.Width <= 0 || s.Light.Height <= 0 {
		return fmt.Errorf("%w: light size must be positive", ErrInvalidSettings)
	}
	if s.Camera.FOV <= 0 || s.Camera.FOV >= 180 {
		return fmt.Errorf("%w: camera.fov must be in (0, 180), got %g", ErrInvalidSettings, s.Camera.FOV)
	}
	if s.Camera.Position == s.Camera.Target {
		return fmt.Errorf("%w: camera position and target must differ", ErrInvalidSettings)
	}
	return nil
}
