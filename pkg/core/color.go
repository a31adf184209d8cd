package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseHexColor parses "#rrggbb" or "rrggbb" into a color with components in [0, 1]
func ParseHexColor(s string) (Vec3, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Vec3{}, fmt.Errorf("invalid hex color %q: expected 6 hex digits", s)
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Vec3{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}

	return NewVec3(
		float64((value>>16)&0xff)/255.0,
		float64((value>>8)&0xff)/255.0,
		float64(value&0xff)/255.0,
	), nil
}

// SRGBToLinear converts an sRGB-encoded color to linear
func SRGBToLinear(c Vec3) Vec3 {
	return Vec3{srgbToLinear(c.X), srgbToLinear(c.Y), srgbToLinear(c.Z)}
}

// LinearToSRGB converts a linear color to sRGB encoding
func LinearToSRGB(c Vec3) Vec3 {
	return Vec3{linearToSRGB(c.X), linearToSRGB(c.Y), linearToSRGB(c.Z)}
}

func srgbToLinear(c float64) float64 {
	if c < 0.04045 {
		return c * 0.0773993808
	}
	return math.Pow(c*0.9478672986+0.0521327014, 2.4)
}

func linearToSRGB(c float64) float64 {
	if c < 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 0.41666) - 0.055
}
