package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/logger"
	"github.com/df07/go-progressive-pathtracer/web/server"
)

func main() {
	app := cli.NewApp()
	app.Name = "pathtracer-web"
	app.Usage = "interactive progressive path tracer served over HTTP"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "port",
			Value: 8080,
			Usage: "port to serve on",
		},
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML settings file (defaults to ./pathtracer.yaml when present)",
		},
		cli.StringFlag{
			Name:  "models",
			Value: "models",
			Usage: "directory scanned for .ply models",
		},
		cli.StringFlag{
			Name:  "static",
			Value: "static",
			Usage: "directory of front-end files served at /",
		},
		cli.DurationFlag{
			Name:  "tick",
			Value: 16 * time.Millisecond,
			Usage: "interval between render slices",
		},
	}
	app.Action = serve

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func serve(ctx *cli.Context) error {
	settings, err := config.Load(ctx.String("config"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	// log entries also stream to connected browsers
	console := server.NewConsole()
	base := logger.New(settings.Logging.Level, settings.Logging.LogFile)
	log := base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, console.Core(logger.ParseLevel(settings.Logging.Level)))
	}))
	defer func() { _ = log.Sync() }()

	session, err := server.NewSession(settings, log)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	options := server.DefaultOptions()
	options.ModelsDir = ctx.String("models")
	options.StaticDir = ctx.String("static")
	srv := server.NewServer(session, console, options, log)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go session.Run(runCtx, ctx.Duration("tick"))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(fmt.Sprintf(":%d", ctx.Int("port")))
	}()
	log.Info("visit the renderer", zap.String("url", fmt.Sprintf("http://localhost:%d", ctx.Int("port"))))

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("server stopped", zap.Error(err))
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	case <-runCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
