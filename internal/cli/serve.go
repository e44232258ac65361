package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rxdesk/rxdesk/internal/api"
	"github.com/rxdesk/rxdesk/internal/audit"
	"github.com/rxdesk/rxdesk/internal/bus"
	"github.com/rxdesk/rxdesk/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console API server",
	RunE:  runServe,
}

var serveSignalNotify = signal.Notify
var serveSignalStop = signal.Stop

func runServe(cmd *cobra.Command, args []string) error {
	printHeader("🌐 RxDesk Server")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(a.cfg.Telemetry.ServiceName, a.logger)
		if err != nil {
			slog.Warn("Tracing disabled", "error", err)
		} else {
			defer func() {
				sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer scancel()
				_ = shutdown(sctx)
			}()
		}
	}

	stopAudit := audit.Attach(a.bus, a.db)
	defer stopAudit()

	if a.cfg.Events.KafkaBrokers != "" {
		writer := bus.NewKafkaWriter(a.cfg.Events.KafkaBrokers, a.cfg.Events.Topic)
		mirror := bus.NewKafkaMirror(a.bus, writer)
		go func() {
			if err := mirror.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("Kafka mirror stopped", "error", err)
			}
		}()
		defer mirror.Close()
		slog.Info("Mirroring bus events to Kafka", "brokers", a.cfg.Events.KafkaBrokers, "topic", a.cfg.Events.Topic)
	}

	if err := a.controller.Boot(ctx); err != nil {
		slog.Warn("Stored credentials could not be restored", "error", err)
	}

	router := api.NewRouter(api.Deps{
		Logger:         a.logger,
		Connection:     a.controller,
		Stats:          a.client,
		Chats:          a.chats,
		Feed:           a.feed,
		Notifier:       a.notifier,
		Timeline:       a.db,
		Bus:            a.bus,
		AllowedOrigins: a.cfg.Gateway.AllowedOrigins,
		Version:        version,
	})

	addr := a.cfg.Gateway.Addr()
	server := &http.Server{
		Addr:              addr,
		Handler:           telemetry.WrapHandler(router, "rxdesk.api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("📡 API Server listening on http://%s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	serveSignalNotify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer serveSignalStop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	}

	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	return server.Shutdown(sctx)
}
