package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/WebDesk/internal/domain/stack"
	"github.com/GriffinCanCode/WebDesk/internal/domain/supervisor"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/server"
	"github.com/GriffinCanCode/WebDesk/internal/shared/id"
)

func main() {
	os.Exit(run())
}

// run is the real main. Keeping it separate lets deferred cleanup fire
// before the process exit code is set.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "webdesk: %v\n", err)
		return supervisor.ExitConfig
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "webdesk: invalid log config: %v\n", err)
		return supervisor.ExitConfig
	}
	defer logger.Sync()

	logger = logger.WithRun(id.NewRunID().String())

	logger.Info("starting webdesk",
		zap.String("display", cfg.DisplayID()),
		zap.String("resolution", cfg.Display.Resolution),
		zap.Int("bridge_port", cfg.Bridge.Port),
		zap.String("app", cfg.App.Command),
	)

	topo, err := stack.FromConfig(cfg)
	if err != nil {
		logger.Error("invalid stack definition", zap.Error(err))
		return supervisor.ExitConfig
	}

	metrics := monitoring.NewMetrics()

	sup, err := supervisor.New(topo, supervisor.Options{
		Logger:       logger,
		Metrics:      metrics,
		ReadyTimeout: cfg.Stack.ReadyTimeout,
		GracePeriod:  cfg.Stack.GracePeriod,
	})
	if err != nil {
		logger.Error("invalid topology", zap.Error(err))
		return supervisor.ExitConfig
	}

	// SIGINT or SIGTERM cancels the context; the supervisor answers with
	// a graceful reverse-order teardown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Status.Enabled {
		srv := server.New(cfg, sup, metrics, logger)
		srv.Start()
		defer srv.Close()
	}

	outcome := sup.Run(ctx)
	return outcome.ExitCode()
}
