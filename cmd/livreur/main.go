// Package main запускает консоль курьера: команды терминала и локальный HTTP-сервер.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mmeshcher/livreur-console/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, args, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		return 2
	}

	logger, err := newLogger(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, os.Stdout)
	if err != nil {
		logger.Error("initialization error", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.close()

	if err := a.run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// newLogger создаёт production-логгер. Команды терминала пишут в журнал
// только предупреждения, чтобы не смешивать его с выводом.
func newLogger(args []string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if len(args) == 0 || args[0] != "serve" {
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zcfg.Build()
}
