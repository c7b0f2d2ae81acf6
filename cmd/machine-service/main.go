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
	"github.com/ecw74/coffe-tech-demo/internal/ledger"
	"github.com/ecw74/coffe-tech-demo/internal/machine"
	"github.com/ecw74/coffe-tech-demo/internal/queue"
	"github.com/ecw74/coffe-tech-demo/internal/status"
)

const serviceName = "machine-service"

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	container, err := app.NewContainer(ctx, serviceName, 8082)
	if err != nil {
		return err
	}
	defer container.Shutdown(context.Background())

	cfg := container.Config()
	log := container.Logger()

	consumer := queue.NewKafkaConsumer(cfg.KafkaBroker, config.OrderPlacedTopic, config.ConsumerGroupID)
	container.AddCloser(consumer)

	var failures queue.Producer
	if cfg.PublishFailures {
		p := queue.NewKafkaProducer(cfg.KafkaBroker, config.OrderFailedTopic)
		container.AddCloser(p)
		failures = p
	}

	tracker := status.NewTracker()
	inventory := ledger.NewClient(cfg.InventoryURL)
	m := machine.New(inventory, tracker, failures, cfg.PreparationDelay, log)
	loop := machine.NewConsumer(consumer, m, log)

	api := httpapi.NewApp()
	statusAPI := &httpapi.StatusHandlers{Tracker: tracker}
	statusAPI.Register(api)

	errCh := make(chan error, 2)
	go func() {
		errCh <- loop.Run(ctx)
	}()
	go func() {
		log.Info("Listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- api.Listen(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		return api.ShutdownWithContext(context.Background())
	case err := <-errCh:
		return err
	}
}
