package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/tumbleweedd/food_ordering_system/internal/app"
	"github.com/tumbleweedd/food_ordering_system/internal/config"
	"github.com/tumbleweedd/food_ordering_system/internal/domain/models"
	"github.com/tumbleweedd/food_ordering_system/pkg/logger"
)

var outbound = map[string][]models.MessageType{
	"order":      app.OrderOutbound,
	"payment":    app.PaymentOutbound,
	"restaurant": app.RestaurantOutbound,
}

func main() {
	var service string
	flag.StringVar(&service, "service", "order", "service whose outbox is drained: order, payment or restaurant")

	cfg := config.InitConfig()

	log := logger.SetupLogger(cfg.Env)

	messageTypes, ok := outbound[service]
	if !ok {
		panic(fmt.Sprintf("unknown service %q", service))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	relay, err := app.NewRelayApp(ctx, log, &cfg, messageTypes)
	if err != nil {
		panic(fmt.Sprintf("failed to create relay: %v", err))
	}

	sendErr := relay.Relay.Send(ctx)

	if err = relay.Stop(); err != nil {
		log.Error("failed to stop relay", logger.String("error", err.Error()))
	}

	if sendErr != nil {
		panic(fmt.Sprintf("produce messages error: %v", sendErr))
	}

	log.Info("messages were successfully sent to their topics", logger.String("service", service))
}
