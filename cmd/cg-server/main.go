// Command cg-server runs the order-intake HTTP service: persistent status
// store, LIMS gateway, payload archive and the submission API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cg/internal/adapters/orders"
	"cg/internal/archive"
	"cg/internal/core"
	"cg/internal/lims"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}

	var gateway lims.Gateway
	if base := os.Getenv("CG_LIMS_URL"); base != "" {
		gateway = lims.NewRESTGateway(base, os.Getenv("CG_LIMS_TOKEN"), nil)
	} else {
		logger.Warn("CG_LIMS_URL unset, using in-memory LIMS gateway")
		gateway = lims.NewMemoryGateway()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	payloads, err := archive.OpenFromEnv(ctx)
	if err != nil {
		logger.Error("open payload archive", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	metrics := core.NewPrometheusMetrics(registry)

	service := core.NewService(store, gateway,
		core.WithArchive(payloads),
		core.WithMetrics(metrics),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/orders/", orders.NewHandler(service))
	mux.Handle("/api/v1/orders/types", orders.NewHandler(service))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", *addr, "archive", payloads.Driver())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", "error", err)
		os.Exit(1)
	}
}
