package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "progressive CPU path tracer"
	app.Version = "0.1.0"

	settingsFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML settings file (defaults to ./pathtracer.yaml when present)",
		},
		cli.StringFlag{
			Name:  "model, m",
			Usage: "model to render: sphere, cubes, torus, none or a .ply path",
		},
		cli.IntFlag{
			Name:  "width",
			Usage: "output width in pixels",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "output height in pixels",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "resolution scale; each step above 1 halves the render size",
		},
		cli.IntFlag{
			Name:  "bounces",
			Usage: "maximum path segments per camera ray",
		},
		cli.StringFlag{
			Name:  "sky",
			Usage: "environment: sky, sun or checkerboard",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "sampler seed (0 = time based)",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a still image",
			Description: `
Render the configured scene progressively for a fixed number of passes and write
the result to a PNG, BMP or TIFF file chosen by the output extension.`,
			Flags: append(settingsFlags,
				cli.IntFlag{
					Name:  "passes, p",
					Value: 16,
					Usage: "number of progressive passes (samples per pixel)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Usage: "output image (default output/render_<timestamp>.png)",
				},
				cli.StringFlag{
					Name:  "save-config",
					Usage: "write the effective settings to this YAML file",
				},
			),
			Action: renderCommand,
		},
		{
			Name:   "info",
			Usage:  "print model and acceleration structure statistics",
			Flags:  settingsFlags,
			Action: infoCommand,
		},
		{
			Name:  "models",
			Usage: "list built-in models and the PLY files in a directory",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "dir",
					Value: "models",
					Usage: "directory to scan for .ply files",
				},
			},
			Action: modelsCommand,
		},
	}

	return app
}
