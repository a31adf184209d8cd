// Package sky implements the procedural environments seen by rays that leave
// the scene.
package sky

import (
	"fmt"
	"math"
	"strings"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// Mode selects a procedural environment
type Mode int

const (
	// Sky is a vertical white to blue gradient
	Sky Mode = iota
	// Sun is a dark gradient with a bright disc towards (1, 1, 1)
	Sun
	// Checkerboard is a black and white pattern in spherical coordinates
	Checkerboard
)

var (
	horizonColor = core.NewVec3(1, 1, 1)
	zenithColor  = core.NewVec3(0.5, 0.7, 1.0)
	nightColor   = core.NewVec3(0.01, 0.01, 0.01)
	sunColor     = core.NewVec3(10, 10, 10)
	sunDirection = core.NewVec3(1, 1, 1).Normalize()
)

const (
	sunThreshold      = 0.95
	checkerStep       = math.Pi / 10
	checkerBrightness = 1.5
)

// String returns the settings name of the mode
func (m Mode) String() string {
	switch m {
	case Sun:
		return "sun"
	case Checkerboard:
		return "checkerboard"
	default:
		return "sky"
	}
}

// ParseMode converts a settings name into a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sky", "":
		return Sky, nil
	case "sun":
		return Sun, nil
	case "checkerboard":
		return Checkerboard, nil
	default:
		return Sky, fmt.Errorf("unknown sky mode %q", s)
	}
}

// Sample returns the environment radiance in the unit direction dir
func Sample(dir core.Vec3, mode Mode, intensity float64) core.Vec3 {
	switch mode {
	case Checkerboard:
		return checkerboard(dir).Multiply(intensity)
	case Sun:
		return sun(dir).Multiply(intensity)
	default:
		return gradient(dir).Multiply(intensity)
	}
}

func gradient(dir core.Vec3) core.Vec3 {
	v := (dir.Y + 0.5) / 2
	return core.LerpVec(horizonColor, zenithColor, v)
}

func sun(dir core.Vec3) core.Vec3 {
	v := math.Max(0, dir.Dot(sunDirection)+1) / 2
	v *= v

	// inside the disc the glow replaces the gradient
	if v > sunThreshold {
		v2 := (v - sunThreshold) / (1 - sunThreshold)
		v2 *= v2
		return core.LerpVec(zenithColor, sunColor, v2)
	}
	return core.LerpVec(nightColor, zenithColor, v)
}

func checkerboard(dir core.Vec3) core.Vec3 {
	theta := math.Atan2(dir.X, dir.Z)
	phi := math.Acos(max(-1, min(1, dir.Y)))

	thetaEven := int(math.Floor(theta/checkerStep))%2 == 0
	phiEven := int(math.Floor(phi/checkerStep))%2 == 0
	if thetaEven == phiEven {
		return core.Vec3{}
	}
	return core.Splat(checkerBrightness)
}
