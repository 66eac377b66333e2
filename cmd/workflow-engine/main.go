package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lyzr/workflow-engine/cmd/workflow-engine/httpapi"
	"github.com/lyzr/workflow-engine/common/bootstrap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := bootstrap.Setup(ctx, "workflow-engine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	components.Logger.Info("workflow-engine starting")

	eng, err := NewEngine(ctx, components)
	if err != nil {
		components.Logger.Error("failed to wire engine", "error", err)
		os.Exit(1)
	}
	defer eng.Close()

	server := httpapi.New(eng.DataAccess(), eng, components.Logger, components.Config.Service.Port)

	errChan := make(chan error, 1)
	go func() {
		components.Logger.Info("starting introspection server", "port", components.Config.Service.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("httpapi error: %w", err)
		}
	}()

	components.Logger.Info("workflow-engine started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		components.Logger.Error("component failed", "error", err)
		os.Exit(1)
	case sig := <-sigChan:
		components.Logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}

	if err := server.Shutdown(context.Background()); err != nil {
		components.Logger.Warn("introspection server shutdown error", "error", err)
	}

	components.Logger.Info("workflow-engine shutting down gracefully")
}
