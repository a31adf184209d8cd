package renderer

import (
	"fmt"
	"image"
	"time"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
)

// RenderStats contains statistics about the rendering process
type RenderStats struct {
	Generation      string        // Identifier of the current reset epoch
	Width, Height   int           // Accumulator size in pixels
	Samples         int           // Completed passes (samples per pixel)
	Progress        float64       // Fraction of the in-flight pass traced
	ScanLinePercent float64       // Position of the last suspension, 100 when idle
	ComputationTime time.Duration // Time spent tracing inside Advance
	ElapsedTime     time.Duration // Wall time since the last reset
	Paused          bool
}

// FormatDuration renders a duration as "MMm SS.mmms"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := (d - time.Duration(minutes)*time.Minute).Seconds()
	return fmt.Sprintf("%02dm %06.3fs", minutes, seconds)
}

// CalculateAverageLuminance returns the mean Rec. 709 luminance of an image
// with components scaled to [0, 1]
func CalculateAverageLuminance(img image.Image) float64 {
	bounds := img.Bounds()
	count := bounds.Dx() * bounds.Dy()
	if count == 0 {
		return 0
	}

	total := 0.0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			total += core.NewVec3(float64(r), float64(g), float64(b)).Multiply(1.0 / 0xffff).Luminance()
		}
	}
	return total / float64(count)
}
