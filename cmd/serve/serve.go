// Package serve implements the gateway server command.
package serve

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	api "github.com/mkarvala/sidekick-go/internal/api/v2"
	"github.com/mkarvala/sidekick-go/internal/conf"
	"github.com/mkarvala/sidekick-go/internal/logging"
	"github.com/mkarvala/sidekick-go/internal/notification"
	"github.com/mkarvala/sidekick-go/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command which runs the gateway until
// interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant gateway server",
		Long:  "Start the HTTP API, the notification SSE stream and the metrics endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Host, "host", viper.GetString("webserver.host"), "Listen address for the gateway")
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Listen port for the gateway")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

func runServer(settings *conf.Settings) error {
	logger := logging.ForService("server")

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	serviceConfig := notification.DefaultServiceConfig()
	serviceConfig.Debug = settings.Notification.Debug
	if settings.Notification.MaxNotifications > 0 {
		serviceConfig.MaxNotifications = settings.Notification.MaxNotifications
	}
	if settings.Notification.CleanupInterval > 0 {
		serviceConfig.CleanupInterval = settings.Notification.CleanupInterval
	}
	if settings.Notification.Toast.MaxVisible > 0 {
		serviceConfig.MaxVisibleToasts = settings.Notification.Toast.MaxVisible
	}
	if settings.Notification.Toast.DefaultDuration > 0 {
		serviceConfig.DefaultToastDuration = settings.Notification.Toast.DefaultDuration
	}
	if settings.Notification.Toast.DedupWindow > 0 {
		serviceConfig.ToastDedupWindow = settings.Notification.Toast.DedupWindow
	}

	notification.Initialize(serviceConfig)
	service := notification.GetService()
	service.SetMetrics(metrics.Notification)
	defer service.Stop()

	e := echo.New()
	e.HideBanner = true

	controller := api.New(e, settings, service, metrics)
	defer controller.Shutdown()

	quitChan := make(chan struct{})
	var wg sync.WaitGroup

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, metrics)
		if err != nil {
			return fmt.Errorf("failed to create telemetry endpoint: %w", err)
		}
		endpoint.Start(&wg, quitChan)
	}

	addr := net.JoinHostPort(settings.WebServer.Host, settings.WebServer.Port)
	errChan := make(chan error, 1)
	go func() {
		logger.Info("gateway server starting", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		close(quitChan)
		wg.Wait()
		return fmt.Errorf("gateway server failed: %w", err)
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
	}

	close(quitChan)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	wg.Wait()

	return nil
}
