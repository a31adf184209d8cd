package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Bounces != 5 {
		t.Errorf("expected 5 bounces, got %d", cfg.Bounces)
	}
	if !cfg.Antialiasing || !cfg.SmoothNormals || !cfg.DirectLightSampling {
		t.Error("expected antialiasing, smooth normals and direct light sampling on by default")
	}
	if cfg.Pause {
		t.Error("expected pause to be false by default")
	}

	// Material defaults
	if cfg.Material.Color != "#0099ff" {
		t.Errorf("expected material color #0099ff, got %s", cfg.Material.Color)
	}
	if cfg.Material.Roughness != 0.1 || cfg.Material.Metalness != 0.1 {
		t.Errorf("expected roughness/metalness 0.1, got %f/%f", cfg.Material.Roughness, cfg.Material.Metalness)
	}
	if cfg.Material.IOR != 1.8 {
		t.Errorf("expected ior 1.8, got %f", cfg.Material.IOR)
	}

	// Lighting defaults
	if !cfg.Light.Enable || cfg.Light.Intensity != 5 {
		t.Errorf("expected enabled light with intensity 5, got %+v", cfg.Light)
	}
	if !cfg.Floor.Enable || cfg.Floor.Color != "#7f7f7f" {
		t.Errorf("expected enabled grey floor, got %+v", cfg.Floor)
	}
	if cfg.Environment.SkyMode != "sky" || cfg.Environment.SkyIntensity != 1 {
		t.Errorf("unexpected environment defaults: %+v", cfg.Environment)
	}

	// Resolution defaults
	if cfg.Resolution.Scale != 2 || !cfg.Resolution.Stretch || cfg.Resolution.SmoothScaling {
		t.Errorf("unexpected resolution defaults: %+v", cfg.Resolution)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestRenderSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		scale         int
		stretch       bool
		renderW       int
		renderH       int
		outputW       int
		outputH       int
	}{
		{"full resolution", 800, 600, 1, true, 800, 600, 800, 600},
		{"half resolution stretched", 800, 600, 2, true, 400, 300, 800, 600},
		{"quarter resolution unstretched", 800, 600, 3, false, 200, 150, 200, 150},
		{"never below one pixel", 4, 4, 5, false, 1, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Resolution.Width = tt.width
			cfg.Resolution.Height = tt.height
			cfg.Resolution.Scale = tt.scale
			cfg.Resolution.Stretch = tt.stretch

			w, h := cfg.RenderSize()
			if w != tt.renderW || h != tt.renderH {
				t.Errorf("render size: expected %dx%d, got %dx%d", tt.renderW, tt.renderH, w, h)
			}
			w, h = cfg.OutputSize()
			if w != tt.outputW || h != tt.outputH {
				t.Errorf("output size: expected %dx%d, got %dx%d", tt.outputW, tt.outputH, w, h)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pathtracer.yaml")

	yamlContent := `
model: torus
bounces: 8
antialiasing: false
slice_budget: 50ms

environment:
  sky_mode: checkerboard
  sky_intensity: 2.5

material:
  color: "#ff0000"
  transmission: 1

camera:
  position: [0, 1, 5]
  fov: 60
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Model != "torus" {
		t.Errorf("expected model torus, got %s", cfg.Model)
	}
	if cfg.Bounces != 8 {
		t.Errorf("expected 8 bounces, got %d", cfg.Bounces)
	}
	if cfg.Antialiasing {
		t.Error("expected antialiasing false")
	}
	if cfg.SliceBudget != 50*time.Millisecond {
		t.Errorf("expected 50ms slice budget, got %v", cfg.SliceBudget)
	}
	if cfg.Environment.SkyMode != "checkerboard" || cfg.Environment.SkyIntensity != 2.5 {
		t.Errorf("unexpected environment: %+v", cfg.Environment)
	}
	if cfg.Material.Color != "#ff0000" || cfg.Material.Transmission != 1 {
		t.Errorf("unexpected material: %+v", cfg.Material)
	}
	if cfg.Camera.Position != [3]float64{0, 1, 5} || cfg.Camera.FOV != 60 {
		t.Errorf("unexpected camera: %+v", cfg.Camera)
	}

	// Values not in the file keep their defaults
	if !cfg.SmoothNormals {
		t.Error("expected smooth normals to keep its default")
	}
	if cfg.Material.IOR != 1.8 {
		t.Errorf("expected default ior 1.8, got %f", cfg.Material.IOR)
	}
	if cfg.Light.Intensity != 5 {
		t.Errorf("expected default light intensity 5, got %f", cfg.Light.Intensity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configPath, []byte("bounces: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	_, err := Load(configPath)
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero bounces", func(s *Settings) { s.Bounces = 0 }},
		{"negative slice budget", func(s *Settings) { s.SliceBudget = -time.Millisecond }},
		{"empty model", func(s *Settings) { s.Model = "" }},
		{"unknown sky mode", func(s *Settings) { s.Environment.SkyMode = "aurora" }},
		{"negative sky intensity", func(s *Settings) { s.Environment.SkyIntensity = -1 }},
		{"negative light intensity", func(s *Settings) { s.Light.Intensity = -0.1 }},
		{"negative emissive intensity", func(s *Settings) { s.Material.EmissiveIntensity = -2 }},
		{"negative metalness", func(s *Settings) { s.Material.Metalness = -0.5 }},
		{"metalness above one", func(s *Settings) { s.Material.Metalness = 1.01 }},
		{"transmission above one", func(s *Settings) { s.Material.Transmission = 1.5 }},
		{"negative roughness", func(s *Settings) { s.Material.Roughness = -0.1 }},
		{"floor roughness above one", func(s *Settings) { s.Floor.Roughness = 2 }},
		{"negative floor metalness", func(s *Settings) { s.Floor.Metalness = -1 }},
		{"zero ior", func(s *Settings) { s.Material.IOR = 0 }},
		{"negative ior", func(s *Settings) { s.Material.IOR = -1.5 }},
		{"malformed light color", func(s *Settings) { s.Light.Color = "white" }},
		{"malformed floor color", func(s *Settings) { s.Floor.Color = "#12345" }},
		{"malformed material color", func(s *Settings) { s.Material.Color = "#gggggg" }},
		{"malformed emissive color", func(s *Settings) { s.Material.Emissive = "" }},
		{"zero width", func(s *Settings) { s.Resolution.Width = 0 }},
		{"negative height", func(s *Settings) { s.Resolution.Height = -10 }},
		{"zero scale", func(s *Settings) { s.Resolution.Scale = 0 }},
		{"flat light", func(s *Settings) { s.Light.Width = 0 }},
		{"zero fov", func(s *Settings) { s.Camera.FOV = 0 }},
		{"camera at target", func(s *Settings) { s.Camera.Target = s.Camera.Position }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "pathtracer.yaml")

	cfg := Default()
	cfg.Model = "cubes"
	cfg.Floor.Enable = false
	cfg.SliceBudget = 40 * time.Millisecond

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("reloaded settings differ:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Camera.Position[0] = 42
	clone.Material.Color = "#ffffff"

	if cfg.Camera.Position[0] == 42 || cfg.Material.Color == "#ffffff" {
		t.Error("clone must not share state with its source")
	}
}
