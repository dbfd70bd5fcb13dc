package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Johnm75/Tienda/internal/config"
	"github.com/Johnm75/Tienda/internal/payment/sim"
	"github.com/Johnm75/Tienda/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadPaymentSim()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var status sim.StatusSource = sim.RandomStatus{}
	if cfg.AlwaysApprove {
		status = sim.FixedStatus{Approved: true}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      sim.NewServer(status, log).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("payment simulator starting", zap.String("port", cfg.HTTPPort), zap.Bool("always_approve", cfg.AlwaysApprove))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down payment simulator...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	log.Info("payment simulator exited")
}
