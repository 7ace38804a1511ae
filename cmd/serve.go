package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"gamecredits/application"
	"gamecredits/config"
	"gamecredits/database"
	"gamecredits/events"
	"gamecredits/infrastructure"
	"gamecredits/infrastructure/observability"
	"gamecredits/repository"
	"gamecredits/service"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the stipend and loan workers and forward committed events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return Run(ctx, config.Get())
		},
	}
}

// Run initializes and starts the application
func Run(ctx context.Context, cfg *config.Config) error {
	log.WithField("environment", cfg.Environment).Info("Starting gamecredits...")

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics provider")
		}
	}()
	metrics.Subscribe(eventBus)

	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := natsClient.Connect(connectCtx)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Error("Error closing NATS connection")
			}
		}()
		infrastructure.NewNATSForwarder(natsClient, cfg.NATSSubjectPrefix, metrics).Subscribe(eventBus)
	} else {
		log.Info("NATS_SERVERS not set, event forwarding disabled")
	}

	if cfg.HasDiscordWebhook() {
		notifier, err := infrastructure.NewDiscordNotifier(cfg.DiscordWebhookID, cfg.DiscordWebhookToken)
		if err != nil {
			return err
		}
		notifier.Subscribe(eventBus)
		log.Info("Discord announcements enabled")
	}

	stipendService := service.NewStipendService(uowFactory, cfg.StipendAmount, cfg.StipendInterval)
	loanService := service.NewLoanService(uowFactory, cfg.MaxLoanDays)

	stopStipends := application.NewStipendWorker(stipendService, cfg.StipendCheckInterval).Start(ctx)
	defer stopStipends()
	stopLoans := application.NewLoanDefaultWorker(loanService, cfg.LoanSweepInterval).Start(ctx)
	defer stopLoans()

	log.Info("gamecredits is running")
	<-ctx.Done()
	log.Info("Received shutdown signal, shutting down gracefully...")

	return nil
}
