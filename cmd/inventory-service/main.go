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
)

const serviceName = "inventory-service"

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("Application failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	container, err := app.NewContainer(ctx, serviceName, 8081)
	if err != nil {
		return err
	}
	defer container.Shutdown(context.Background())

	stock := ledger.New(ledger.Snapshot{
		"beans": config.InitialBeans,
		"milk":  config.InitialMilk,
	})

	api := httpapi.NewApp()
	inventory := &httpapi.InventoryHandlers{Ledger: stock, Log: container.Logger()}
	inventory.Register(api)

	errCh := make(chan error, 1)
	go func() {
		container.Logger().Info("Listening", zap.String("addr", container.Config().HTTPAddr))
		errCh <- api.Listen(container.Config().HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		return api.ShutdownWithContext(context.Background())
	case err := <-errCh:
		return err
	}
}
