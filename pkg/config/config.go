// Package config holds the render settings and their YAML persistence.
package config

import "time"

// Settings holds every user-facing parameter of a render.
type Settings struct {
	Model               string              `yaml:"model" json:"model"`
	Bounces             int                 `yaml:"bounces" json:"bounces"`
	Antialiasing        bool                `yaml:"antialiasing" json:"antialiasing"`
	SmoothNormals       bool                `yaml:"smooth_normals" json:"smooth_normals"`
	DirectLightSampling bool                `yaml:"direct_light_sampling" json:"direct_light_sampling"`
	Pause               bool                `yaml:"pause" json:"pause"`
	SliceBudget         time.Duration       `yaml:"slice_budget" json:"slice_budget"`
	Seed                int64               `yaml:"seed" json:"seed"`
	Environment         EnvironmentSettings `yaml:"environment" json:"environment"`
	Light               LightSettings       `yaml:"light" json:"light"`
	Floor               FloorSettings       `yaml:"floor" json:"floor"`
	Material            MaterialSettings    `yaml:"material" json:"material"`
	Resolution          ResolutionSettings  `yaml:"resolution" json:"resolution"`
	Camera              CameraSettings      `yaml:"camera" json:"camera"`
	Logging             LoggingSettings     `yaml:"logging" json:"logging"`
}

// EnvironmentSettings selects the sky model.
type EnvironmentSettings struct {
	SkyMode      string  `yaml:"sky_mode" json:"sky_mode"`
	SkyIntensity float64 `yaml:"sky_intensity" json:"sky_intensity"`
}

// LightSettings describes the rectangular light proxy.
type LightSettings struct {
	Enable    bool    `yaml:"enable" json:"enable"`
	Color     string  `yaml:"color" json:"color"`
	Intensity float64 `yaml:"intensity" json:"intensity"`
	Width     float64 `yaml:"width" json:"width"`
	Height    float64 `yaml:"height" json:"height"`
}

// FloorSettings describes the ground plane.
type FloorSettings struct {
	Enable    bool    `yaml:"enable" json:"enable"`
	Color     string  `yaml:"color" json:"color"`
	Roughness float64 `yaml:"roughness" json:"roughness"`
	Metalness float64 `yaml:"metalness" json:"metalness"`
}

// MaterialSettings drives the model's primary material.
// Roughness is perceptual and squared before use.
type MaterialSettings struct {
	Color             string  `yaml:"color" json:"color"`
	Emissive          string  `yaml:"emissive" json:"emissive"`
	EmissiveIntensity float64 `yaml:"emissive_intensity" json:"emissive_intensity"`
	Roughness         float64 `yaml:"roughness" json:"roughness"`
	Metalness         float64 `yaml:"metalness" json:"metalness"`
	IOR               float64 `yaml:"ior" json:"ior"`
	Transmission      float64 `yaml:"transmission" json:"transmission"`
}

// ResolutionSettings controls the output size and resolution scaling.
type ResolutionSettings struct {
	Width         int  `yaml:"width" json:"width"`
	Height        int  `yaml:"height" json:"height"`
	Scale         int  `yaml:"scale" json:"scale"`
	Stretch       bool `yaml:"stretch" json:"stretch"`
	SmoothScaling bool `yaml:"smooth_scaling" json:"smooth_scaling"`
}

// CameraSettings holds the viewpoint.
type CameraSettings struct {
	Position [3]float64 `yaml:"position" json:"position"`
	Target   [3]float64 `yaml:"target" json:"target"`
	FOV      float64    `yaml:"fov" json:"fov"`
}

// LoggingSettings holds logging settings.
type LoggingSettings struct {
	Level   string `yaml:"level" json:"level"`
	LogFile string `yaml:"log_file" json:"log_file"`
}

// Default returns Settings with the standard demo values.
func Default() *Settings {
	return &Settings{
		Model:               "sphere",
		Bounces:             5,
		Antialiasing:        true,
		SmoothNormals:       true,
		DirectLightSampling: true,
		Pause:               false,
		SliceBudget:         16 * time.Millisecond,
		Environment: EnvironmentSettings{
			SkyMode:      "sky",
			SkyIntensity: 1.0,
		},
		Light: LightSettings{
			Enable:    true,
			Color:     "#ffffff",
			Intensity: 5.0,
			Width:     1,
			Height:    1,
		},
		Floor: FloorSettings{
			Enable:    true,
			Color:     "#7f7f7f",
			Roughness: 0.5,
			Metalness: 0.5,
		},
		Material: MaterialSettings{
			Color:             "#0099ff",
			Emissive:          "#000000",
			EmissiveIntensity: 1,
			Roughness:         0.1,
			Metalness:         0.1,
			IOR:               1.8,
			Transmission:      0.0,
		},
		Resolution: ResolutionSettings{
			Width:         800,
			Height:        600,
			Scale:         2,
			Stretch:       true,
			SmoothScaling: false,
		},
		Camera: CameraSettings{
			Position: [3]float64{-2.5, 1.5, 2.5},
			Target:   [3]float64{0, 0, 0},
			FOV:      75,
		},
		Logging: LoggingSettings{
			Level:   "info",
			LogFile: "",
		},
	}
}

// RenderSize returns the accumulator dimensions after resolution scaling.
// Each scale step above 1 halves both axes; the result is at least 1x1.
func (s *Settings) RenderSize() (int, int) {
	divisor := 1 << max(s.Resolution.Scale-1, 0)
	return max(s.Resolution.Width/divisor, 1), max(s.Resolution.Height/divisor, 1)
}

// OutputSize returns the size of the delivered image. With stretching the
// render is scaled back up to the full resolution.
func (s *Settings) OutputSize() (int, int) {
	if s.Resolution.Stretch {
		return s.Resolution.Width, s.Resolution.Height
	}
	return s.RenderSize()
}
