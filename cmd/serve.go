package cmd

import (
	"context"
	"fmt"
	"time"

	"blocklucky/api"
	"blocklucky/events"
	"blocklucky/infrastructure"
	"blocklucky/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ServeCmd runs the HTTP API
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the lottery over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context())
		},
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := loadConfig()
	log.WithField("environment", cfg.Environment).Info("Starting blocklucky...")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Metrics and NATS only see events after their unit of work commits
	registry := infrastructure.NewMetricsRegistry()
	infrastructure.NewLotteryMetrics(registry).Attach(a.bus)

	if servers := cfg.NATSServerList(); len(servers) > 0 {
		natsClient := infrastructure.NewNATSClient(servers)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := natsClient.Connect(connectCtx)
		cancel()
		if err != nil {
			return err
		}
		defer natsClient.Close()

		mapper := infrastructure.NewEventSubjectMapper()
		if err := natsClient.EnsureStream(infrastructure.EventStreamName, mapper.GetAllSubjects()); err != nil {
			return err
		}
		infrastructure.NewNATSEventPublisher(natsClient, mapper).Attach(a.bus)
	}

	a.bus.SubscribeAll(func(ctx context.Context, e events.Event) {
		log.WithFields(log.Fields{
			"eventType": e.Type(),
			"lotteryID": e.Ref().LotteryID,
			"round":     e.Ref().Round,
		}).Debug("Lottery event")
	})

	if err := a.ensureLottery(ctx); err != nil {
		return err
	}
	lottery, err := a.lotteryService()
	if err != nil {
		return err
	}
	accounts := service.NewAccountService(a.factory)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHTTPHandler(lottery, accounts, cfg.LotteryID)
	server := api.NewServer(cfg.HTTPAddr, api.NewRouter(handler, registry, a.health))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.WithFields(log.Fields{
		"lotteryID": cfg.LotteryID,
		"addr":      cfg.HTTPAddr,
	}).Info("Lottery is open")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}

	log.Info("Shutdown completed")
	return nil
}
