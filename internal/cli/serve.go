package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/vacation-distri/internal/async"
	"github.com/joseph-ayodele/vacation-distri/internal/export"
	"github.com/joseph-ayodele/vacation-distri/internal/repository"
	"github.com/joseph-ayodele/vacation-distri/internal/server"
)

const (
	shutdownTimeout = 30 * time.Second
	healthInterval  = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the gRPC health service and the worker pool",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close(logger)
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		return err
	}
	tasks := repository.NewTaskRepository(db, logger)

	comp, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}

	queue := async.NewProcessorQueue(comp.processor, tasks, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
	)

	api := server.NewAPI(server.APIConfig{
		Status:         comp.processor,
		Tasks:          tasks,
		Queue:          queue,
		Exporter:       export.NewService(comp.anonymizer.Mapper(), logger),
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Logger:         logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	health := server.NewHealthServer(comp.processor, logger)
	grpcServer := server.NewGRPCServer(health)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}
	go health.Run(ctx, healthInterval)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		logger.Info("http api listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
		logger.Error("server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	health.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("server stopped")
	return serveErr
}
