package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/ecw74/coffe-tech-demo/internal/app"
	"github.com/ecw74/coffe-tech-demo/internal/config"
	"github.com/ecw74/coffe-tech-demo/internal/httpapi"
	"github.com/ecw74/coffe-tech-demo/internal/order"
	"github.com/ecw74/coffe-tech-demo/internal/queue"
)

const serviceName = "order-service"

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	container, err := app.NewContainer(ctx, serviceName, 8080)
	if err != nil {
		return err
	}
	defer container.Shutdown(context.Background())

	cfg := container.Config()

	producer := queue.NewKafkaProducer(cfg.KafkaBroker, config.OrderPlacedTopic)
	container.AddCloser(producer)
	depth := queue.NewKafkaDepth(cfg.KafkaBroker, config.OrderPlacedTopic, config.ConsumerGroupID)

	intake := order.NewIntake(producer, depth, container.Logger())

	api := httpapi.NewApp()
	orders := &httpapi.OrderHandlers{Intake: intake, Log: container.Logger()}
	orders.Register(api)

	errCh := make(chan error, 1)
	go func() {
		container.Logger().Info("Listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- api.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		return api.ShutdownWithContext(context.Background())
	case err := <-errCh:
		return err
	}
}
