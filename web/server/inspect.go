package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/df07/go-progressive-pathtracer/pkg/core"
	"github.com/df07/go-progressive-pathtracer/pkg/material"
)

// InspectResponse represents the JSON response for surface inspection
type InspectResponse struct {
	Hit          bool          `json:"hit"`
	Pixel        [2]int        `json:"pixel"`       // Output pixel, top-left origin
	RenderPixel  [2]int        `json:"renderPixel"` // Accumulator pixel, bottom-left origin
	RenderWidth  int           `json:"renderWidth"`
	RenderHeight int           `json:"renderHeight"`
	Ray          [3]float64    `json:"ray"` // World-space primary ray direction
	Environment  string        `json:"environment"`
	Object       string        `json:"object,omitempty"` // Model name, "floor" or "light"
	Light        bool          `json:"light"`
	Point        [3]float64    `json:"point"`
	Normal       [3]float64    `json:"normal"`
	Distance     float64       `json:"distance"`
	FrontFace    bool          `json:"frontFace"`
	Material     *MaterialInfo `json:"material,omitempty"`
}

// MaterialInfo describes the material at an inspected surface
type MaterialInfo struct {
	Color             string     `json:"color"` // sRGB hex
	Linear            [3]float64 `json:"linear"`
	Emissive          [3]float64 `json:"emissive"`
	EmissiveIntensity float64    `json:"emissiveIntensity"`
	Roughness         float64    `json:"roughness"` // GGX alpha
	Metalness         float64    `json:"metalness"`
	IOR               float64    `json:"ior"`
	Transmission      float64    `json:"transmission"`
}

func newMaterialInfo(mat *material.Material) *MaterialInfo {
	if mat == nil {
		return nil
	}
	return &MaterialInfo{
		Color:             hexColor(core.LinearToSRGB(mat.Color.Clamp(0, 1))),
		Linear:            vecArray(mat.Color),
		Emissive:          vecArray(mat.Emissive),
		EmissiveIntensity: mat.EmissiveIntensity,
		Roughness:         mat.Roughness,
		Metalness:         mat.Metalness,
		IOR:               mat.IOR,
		Transmission:      mat.Transmission,
	}
}

func hexColor(c core.Vec3) string {
	return fmt.Sprintf("#%02x%02x%02x",
		int(core.Clamp01(c.X)*255+0.5), int(core.Clamp01(c.Y)*255+0.5), int(core.Clamp01(c.Z)*255+0.5))
}

// handleInspect describes the surface under an output pixel
func (s *Server) handleInspect(c echo.Context) error {
	x, err := strconv.Atoi(c.QueryParam("x"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("invalid x: %q", c.QueryParam("x")))
	}
	y, err := strconv.Atoi(c.QueryParam("y"))
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("invalid y: %q", c.QueryParam("y")))
	}

	response, err := s.session.Inspect(x, y)
	if errors.Is(err, ErrOutOfBounds) {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, response)
}
