package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xackery/talktranslate/client"
	"github.com/xackery/talktranslate/config"
	"github.com/xackery/talktranslate/telemetry"
)

// Version is the build version
var Version string

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := run()
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
	log.Info().Msg("exited safely")
}

func run() (err error) {
	if Version == "" {
		Version = "1.x.x EXPERIMENTAL"
	}
	log.Info().Msgf("starting talktranslate %s", Version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "config")
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, "talktranslate", Version)
	if err != nil {
		return errors.Wrap(err, "tracing")
	}
	defer shutdownTracing()

	c, err := client.New(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "new client")
	}

	err = c.Connect(ctx)
	if err != nil {
		return errors.Wrap(err, "connect")
	}

	select {
	case <-ctx.Done():
	case sig := <-signalChan:
		log.Info().Msgf("exiting, %s signal sent", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		err = c.Disconnect(shutdownCtx)
		if err != nil {
			return errors.Wrap(err, "signal disconnect")
		}
	}
	return
}
