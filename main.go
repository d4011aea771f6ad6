package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Shah-2024/industrial-iot-opcua-monitor/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	conf, err := config.LoadConfigurations()
	if err != nil {
		logger.Error("cannot load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	app, err := Run(ctx, conf, logger)
	if err != nil {
		logger.Error("gateway failed to start", "error", err)
		os.Exit(1)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigs
	logger.Info("shutting down", "signal", sig.String())
	app.Close()
}
