package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"rankview/internal/controllers"
	"rankview/internal/providers"
	"rankview/internal/structures"
	"rankview/internal/warmup/interfaces"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	WebServer *http.Server
}

// NewHandler assembles the HTTP surface: infrastructure endpoints plus the
// instrumented leaderboard routes.
func NewHandler(healthController *controllers.HealthController, conf *structures.Config, router providers.RouterProviderInterface, metrics providers.MetricsProviderInterface) http.Handler {
	instrumentedAPI := providers.MetricsMiddleware(metrics, router.Handler())

	// Outer mux: infrastructure + instrumented API
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthController.Health)
	if conf.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.Handler())
	}
	mux.Handle("/", instrumentedAPI)
	return mux
}

func NewApp(handler http.Handler, scheduler interfaces.SchedulerInterface, conf *structures.Config, logger providers.Logger) (*App, error) {
	logger.Infof(providers.TypeApp, "Starting %s", conf.AppName)
	if conf.Warmup.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Warmup.Interval)
		if err := scheduler.WarmUp(ctx); err != nil {
			logger.Errorf(providers.TypeApp, "Initial warm-up error: %s", err)
		}
		cancel()
	}

	app := &App{
		WebServer: &http.Server{
			Addr:         conf.WebServer.Host + ":" + strconv.Itoa(conf.WebServer.Port),
			Handler:      handler,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	scheduler.Init()

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof(providers.TypeApp, "Listening HTTP clients on %s:%d", conf.WebServer.Host, conf.WebServer.Port)
		if err := app.WebServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Infof(providers.TypeApp, "Shutdown signal received")
	case err := <-serverErr:
		return nil, fmt.Errorf("server error: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.WebServer.Shutdown(ctx); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeApp, "gracefully stopped")
	return app, nil
}
