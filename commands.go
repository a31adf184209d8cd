package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/logger"
	"github.com/df07/go-progressive-pathtracer/pkg/renderer"
	"github.com/df07/go-progressive-pathtracer/pkg/scene"
)

// loadSettings applies command line overrides on top of the settings file
func loadSettings(ctx *cli.Context) (*config.Settings, error) {
	settings, err := config.Load(ctx.String("config"))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet("model") {
		settings.Model = ctx.String("model")
	}
	if ctx.IsSet("width") {
		settings.Resolution.Width = ctx.Int("width")
	}
	if ctx.IsSet("height") {
		settings.Resolution.Height = ctx.Int("height")
	}
	if ctx.IsSet("scale") {
		settings.Resolution.Scale = ctx.Int("scale")
	}
	if ctx.IsSet("bounces") {
		settings.Bounces = ctx.Int("bounces")
	}
	if ctx.IsSet("sky") {
		settings.Environment.SkyMode = ctx.String("sky")
	}
	if ctx.IsSet("seed") {
		settings.Seed = ctx.Int64("seed")
	}
	if ctx.IsSet("log-level") {
		settings.Logging.Level = ctx.String("log-level")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func renderCommand(ctx *cli.Context) error {
	settings, err := loadSettings(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	log := logger.New(settings.Logging.Level, settings.Logging.LogFile)
	defer func() { _ = log.Sync() }()

	if path := ctx.String("save-config"); path != "" {
		if err := settings.SaveTo(path); err != nil {
			return cli.NewExitError(fmt.Sprintf("failed to save settings: %v", err), 1)
		}
		log.Info("settings saved", zap.String("path", path))
	}

	out := ctx.String("out")
	if out == "" {
		out = filepath.Join("output", fmt.Sprintf("render_%s.png", time.Now().Format("20060102_150405")))
	}
	if _, err := renderer.FormatFromPath(out); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	stats, luminance, err := renderToFile(settings, ctx.Int("passes"), out, log)
	if err != nil {
		log.Error("render failed", zap.Error(err))
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Print(formatRenderStats(stats, luminance))
	log.Info("render saved", zap.String("path", out))
	return nil
}

// renderToFile runs passes progressive passes and writes the image to out
func renderToFile(settings *config.Settings, passes int, out string, log *zap.Logger) (renderer.RenderStats, float64, error) {
	_, tracer, camera, err := scene.Build(settings, log)
	if err != nil {
		return renderer.RenderStats{}, 0, err
	}

	width, height := settings.RenderSize()
	pr := renderer.NewProgressiveRenderer(width, height, tracer, camera, renderer.ProgressiveConfig{
		Antialiasing: settings.Antialiasing,
		Seed:         settings.Seed,
	}, log)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("rendering",
		zap.String("model", settings.Model),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("passes", passes),
	)

	passChan, errChan := pr.RenderProgressive(runCtx, renderer.RenderOptions{
		MaxPasses:   passes,
		SliceBudget: settings.SliceBudget,
	})
	for result := range passChan {
		log.Info("pass complete",
			zap.Int("samples", result.Stats.Samples),
			zap.String("elapsed", renderer.FormatDuration(result.Stats.ElapsedTime)),
		)
	}
	if err := <-errChan; err != nil {
		if !errors.Is(err, context.Canceled) {
			return renderer.RenderStats{}, 0, err
		}
		log.Warn("render interrupted, saving partial result", zap.Int("samples", pr.Accumulator().Samples()))
	}

	img := renderer.ToImage(pr.Accumulator())
	if outW, outH := settings.OutputSize(); outW != width || outH != height {
		img = renderer.Upscale(img, outW, outH, settings.Resolution.SmoothScaling)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return renderer.RenderStats{}, 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := renderer.SaveImage(out, img); err != nil {
		return renderer.RenderStats{}, 0, err
	}

	return pr.Stats(), renderer.CalculateAverageLuminance(img), nil
}

func formatRenderStats(stats renderer.RenderStats, luminance float64) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Resolution", "Samples", "Computation", "Elapsed", "Avg luminance"})
	table.Append([]string{
		fmt.Sprintf("%dx%d", stats.Width, stats.Height),
		fmt.Sprintf("%d", stats.Samples),
		renderer.FormatDuration(stats.ComputationTime),
		renderer.FormatDuration(stats.ElapsedTime),
		fmt.Sprintf("%.4f", luminance),
	})
	table.Render()
	return buf.String()
}

func infoCommand(ctx *cli.Context) error {
	settings, err := loadSettings(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	log := logger.New(settings.Logging.Level, settings.Logging.LogFile)
	defer func() { _ = log.Sync() }()

	model, err := scene.New(log).Model(settings.Model)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Print(formatModelInfo(settings.Model, model))
	return nil
}

func formatModelInfo(name string, model *scene.Model) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Property", "Value"})

	if model == nil {
		table.Append([]string{"Model", name + " (environment only)"})
		table.Render()
		return buf.String()
	}

	mesh := model.Object.Mesh
	stats := model.Object.BVH.Stats()
	bounds := model.Object.WorldBounds()
	table.AppendBulk([][]string{
		{"Model", name},
		{"Vertices", fmt.Sprintf("%d", len(mesh.Positions))},
		{"Triangles", fmt.Sprintf("%d", mesh.FaceCount())},
		{"Materials", fmt.Sprintf("%d", len(model.Materials))},
		{"Bounds min", fmt.Sprintf("%.3f %.3f %.3f", bounds.Min.X, bounds.Min.Y, bounds.Min.Z)},
		{"Bounds max", fmt.Sprintf("%.3f %.3f %.3f", bounds.Max.X, bounds.Max.Y, bounds.Max.Z)},
		{"Floor height", fmt.Sprintf("%.3f", model.FloorHeight)},
		{"BVH nodes", fmt.Sprintf("%d", stats.Nodes)},
		{"BVH leaves", fmt.Sprintf("%d", stats.Leaves)},
		{"BVH depth", fmt.Sprintf("%d", stats.MaxDepth)},
	})
	table.Render()
	return buf.String()
}

func modelsCommand(ctx *cli.Context) error {
	response, err := scene.ListAllModels(ctx.String("dir"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Group", "Model", "Name", "Description"})
	for _, group := range response.Groups {
		for _, model := range group.Models {
			table.Append([]string{group.Name, model.ID, model.DisplayName, model.Description})
		}
	}
	table.Render()
	fmt.Print(buf.String())
	return nil
}
