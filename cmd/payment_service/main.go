package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tumbleweedd/food_ordering_system/internal/app"
	"github.com/tumbleweedd/food_ordering_system/internal/config"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

func main() {
	cfg := config.InitConfig()

	log := logger.SetupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.NewPaymentApp(ctx, log, &cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create app: %v", err))
	}

	log.Info("payment service started", logger.String("env", cfg.Env))

	runErr := application.Run(ctx)

	if err = application.Stop(); err != nil {
		log.Error("failed to stop app", logger.String("error", err.Error()))
	}

	if runErr != nil {
		panic(fmt.Sprintf("payment service stopped with error: %v", runErr))
	}

	log.Info("application stopped")
}
