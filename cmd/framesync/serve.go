package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aretw0/framesync"
	"github.com/aretw0/framesync/internal/cli"
	"github.com/aretw0/framesync/internal/config"
	httpAdapter "github.com/aretw0/framesync/pkg/adapters/http"
	"github.com/aretw0/framesync/pkg/adapters/memory"
	"github.com/aretw0/framesync/pkg/adapters/redis"
	"github.com/aretw0/framesync/pkg/observability"
	"github.com/aretw0/framesync/pkg/ports"
	"github.com/aretw0/framesync/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session HTTP server",
	Long: `Starts framesync in server mode: every session is a host page with an
embedded mini-app, driven over a JSON API, with diffs streamed over SSE and a
websocket endpoint for remote mini-apps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		app, err := cli.LoadApp(cfg.App.Manifest)
		if err != nil {
			return err
		}

		store, locker, closeStore, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()

		hooks := observability.LoggingHooks(logger)
		var gatherer prometheus.Gatherer
		if cfg.Server.Metrics {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return fmt.Errorf("metrics: %w", err)
			}
			hooks = hooks.Merge(metrics.Hooks())
			gatherer = reg
		}

		streams := httpAdapter.NewStreamManager()
		mgrOpts := []session.Option{
			session.WithLogger(logger),
			session.WithPageOptions(
				framesync.WithLifecycleHooks(hooks),
				framesync.WithReadyTimeout(cfg.Host.ReadyTimeout),
			),
			session.WithChangeListener(streams.Publish),
		}
		if locker != nil {
			mgrOpts = append(mgrOpts, session.WithLocker(locker))
		}
		mgr := session.NewManager(app, store, mgrOpts...)
		defer mgr.Close()

		handlerOpts := []httpAdapter.Option{
			httpAdapter.WithLogger(logger),
			httpAdapter.WithStreams(streams),
			httpAdapter.WithHostOptions(hooks, cfg.Host.ReadyTimeout),
		}
		if gatherer != nil {
			handlerOpts = append(handlerOpts, httpAdapter.WithMetrics(gatherer))
		}

		srv := &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Server.Port),
			Handler:           httpAdapter.NewHandler(mgr, handlerOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting framesync server", "addr", srv.Addr, "app", app.Name, "version", framesync.Version)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("killing server: %w", err)
				}
			}
			logger.Info("framesync server stopped gracefully")
			return nil
		}
	},
}

// openStore picks Redis when a URL is configured, memory otherwise.
func openStore(cfg config.Config, logger *slog.Logger) (ports.StateStore, ports.DistributedLocker, func() error, error) {
	if cfg.Redis.URL == "" {
		logger.Debug("using in-memory session store")
		return memory.NewStore(), nil, func() error { return nil }, nil
	}
	store, err := redis.New(cfg.Redis.URL, redis.WithTTL(cfg.Redis.TTL))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("redis: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	sealed, err := cli.SealStore(store, cfg.Redis.EncryptionKey, cfg.Redis.FallbackKeys)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	logger.Info("using redis session store", "ttl", cfg.Redis.TTL, "encrypted", cfg.Redis.EncryptionKey != "")
	return sealed, redis.NewLocker(store.Client(), store.Prefix()), store.Close, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")
	mustBind(settings, "server.port", serveCmd.Flags().Lookup("port"))
	mustBind(settings, "server.metrics", serveCmd.Flags().Lookup("metrics"))
}
