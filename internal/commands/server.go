package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trogers1052/market-returns/internal/api"
	"github.com/trogers1052/market-returns/internal/catalog"
	"github.com/trogers1052/market-returns/internal/kafka"
)

var (
	serverPort string
	serverHost string
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the returns API server",
	Long: `Start the HTTP API serving return summaries, performance series and monthly
pivots.

When KAFKA_ENABLED is set the server also:
• Consumes PRICE_BAR events into price_data_daily
• Publishes a RETURNS_COMPUTED event for every summary served

Examples:
  returns server                    # Start with environment settings
  returns server --port 9090        # Start on custom port
  returns server --log-level debug  # Enable debug logging`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&serverPort, "port", "p", "", "Server port (default: SERVER_PORT)")
	serverCmd.Flags().StringVarP(&serverHost, "host", "H", "", "Server host (default: SERVER_HOST)")
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != "" {
		cfg.Server.Port = serverPort
	}

	log.Info("Starting market returns server")

	cat, err := catalog.LoadFile(cfg.MarketData.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	svc, err := newServices(cfg, log, cfg.Kafka.Enabled)
	if err != nil {
		return err
	}
	defer svc.Close()

	var publisher api.EventPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.PricesTopic, cfg.Kafka.GroupID, svc.db, log)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.WithError(err).Error("Kafka consumer stopped")
			}
		}()
		log.WithField("brokers", cfg.Kafka.Brokers).Info("Kafka enabled")
	}

	handler := api.NewHandler(svc.source, cat, publisher, log)
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(handler, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
		return err
	}

	log.Info("Server stopped")
	return nil
}
