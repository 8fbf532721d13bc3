package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/meeting-room-reservation/internal/config"
	"github.com/example/meeting-room-reservation/internal/metrics"
	"github.com/example/meeting-room-reservation/internal/notify"
)

func notifyWorkerCmd(envFile *string) *cobra.Command {
	var (
		prefetch    int
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "notify-worker",
		Short: "Consume queued reservation events and send notification mail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(*envFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := checkWorkerConfig(cfg); err != nil {
				return err
			}
			return runWorker(cmd.Context(), cfg, logger, prefetch, metricsAddr)
		},
	}
	cmd.Flags().IntVar(&prefetch, "prefetch", 10, "unacknowledged deliveries held at once")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address when set")
	return cmd
}

// checkWorkerConfig reports settings the worker needs regardless of
// RESERVATION_NOTIFY_TRANSPORT.
func checkWorkerConfig(cfg config.Config) error {
	var missing []string
	for key, value := range map[string]string{
		config.Prefix + "_AMQP_URL":  cfg.AMQPURL,
		config.Prefix + "_SMTP_ADDR": cfg.SMTPAddr,
		config.Prefix + "_SMTP_FROM": cfg.SMTPFrom,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("notify-worker: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func runWorker(ctx context.Context, cfg config.Config, logger *slog.Logger, prefetch int, metricsAddr string) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Addr:     cfg.SMTPAddr,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		return err
	}
	transport := notify.NewMailTransport(newRecipientSourceAdapter(store.Users), sender, cfg.AppURL, logger)

	session, err := notify.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer session.Close()

	deliveries, err := session.Consume("reservations-notify-worker", prefetch)
	if err != nil {
		return err
	}

	var observer notify.Observer
	if metricsAddr != "" {
		registry := metrics.New()
		observer = registry
		stop := serveMetrics(metricsAddr, registry.Handler(), logger)
		defer stop()
	}

	logger.Info("notification worker consuming", "queue", cfg.AMQPQueue, "prefetch", prefetch)
	err = notify.NewConsumer(transport, observer, logger).Run(ctx, deliveries)
	if errors.Is(err, notify.ErrDeliveriesClosed) {
		return fmt.Errorf("notify-worker: %w", err)
	}
	return err
}

func serveMetrics(addr string, handler http.Handler, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
