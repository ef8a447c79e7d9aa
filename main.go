package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/icebucket/config"
	"github.com/danthegoodman1/icebucket/gologger"
	"github.com/danthegoodman1/icebucket/http_server"
	"github.com/danthegoodman1/icebucket/runner"
	"github.com/danthegoodman1/icebucket/utils"
	"github.com/rs/zerolog"
)

// the report owns stdout
var logger = gologger.NewLoggerTo(os.Stderr)

func main() {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runConfigPath := runCmd.String("config", "", "path to a yaml config file, overlaid on the environment")

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	serveConfigPath := serveCmd.String("config", "", "path to a yaml config file, overlaid on the environment")

	if len(os.Args) < 2 {
		fmt.Println("expected `run` or `serve` subcommands")
		os.Exit(1)
	}

	ctx := logger.WithContext(context.Background())

	switch os.Args[1] {
	case "run":
		runCmd.Parse(os.Args[2:])
		os.Exit(run(ctx, *runConfigPath))
	case "serve":
		serveCmd.Parse(os.Args[2:])
		os.Exit(serve(ctx, *serveConfigPath))
	default:
		fmt.Println("expected `run` or `serve` subcommands")
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("invalid config")
		return 1
	}

	pub, err := runner.OpenPublisher(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("error opening report publisher")
		return 1
	}
	if pub != nil {
		defer pub.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := runner.Execute(ctx, cfg, pub)
	if err != nil {
		logger.Error().Err(err).Bool("configError", utils.IsConfigError(err)).Bool("collaboratorError", utils.IsCollaboratorError(err)).Msg("run failed")
		return 1
	}
	if err := r.WriteText(os.Stdout); err != nil {
		logger.Error().Err(err).Msg("error writing report")
		return 1
	}
	return 0
}

func serve(ctx context.Context, configPath string) int {
	logger.Debug().Msg("starting icebucket server")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("invalid config")
		return 1
	}

	wh, err := runner.OpenWarehouse(ctx, cfg.Store)
	if err != nil {
		logger.Error().Err(err).Msg("error opening warehouse")
		return 1
	}
	pub, err := runner.OpenPublisher(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("error opening report publisher")
		wh.Shutdown(ctx)
		return 1
	}

	httpServer, err := http_server.StartHTTPServer(cfg.HTTPPort, wh, cfg.Run, pub)
	if err != nil {
		logger.Error().Err(err).Msg("error starting HTTP server")
		wh.Shutdown(ctx)
		return 1
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()
	code := 0
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
		code = 1
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close report publisher")
		}
	}
	if err := wh.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to shutdown warehouse")
		code = 1
	}
	return code
}
