package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sony/gobreaker"

	"hydrowangi-backend/config"
	"hydrowangi-backend/internal/actuator"
	"hydrowangi-backend/internal/alert"
	"hydrowangi-backend/internal/api"
	"hydrowangi-backend/internal/db"
	"hydrowangi-backend/internal/ingest"
	"hydrowangi-backend/internal/metrics"
	"hydrowangi-backend/internal/notification"
	"hydrowangi-backend/internal/store"
	"hydrowangi-backend/internal/threshold"
	"hydrowangi-backend/internal/weather"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "hydrowangi ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.DeviceSecret == "" {
		logger.Println("Warning: no device secret configured; device endpoints will reject every request")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Println("Warning: no JWT secret configured; dashboard endpoints will reject every request")
	}

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	gormDB, err := db.Init(ctx, &cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	m := metrics.New()

	// Alert channels
	var notifiers notification.Multi
	var webpushOptions *webpush.Options
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions)
		pool.Start(ctx)
		notifiers = append(notifiers, pool)
		logger.Printf("push alerts enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys are not configured; push alerts disabled")
	}
	if cfg.Alert.Email.Enabled() {
		notifiers = append(notifiers, notification.NewEmailNotifier(cfg.Alert.Email))
		logger.Printf("email alerts enabled for %d recipients", len(cfg.Alert.Email.To))
	} else {
		logger.Println("email recipients are not configured; email alerts disabled")
	}

	monitor := alert.NewMonitor(alert.Config{
		Cooldown:      cfg.Alert.Cooldown,
		DebounceCount: cfg.Alert.DebounceCount,
	}, notifiers)

	// Humidity lookup
	var humidity *weather.HumidityCache
	if cfg.Weather.Enabled {
		client := weather.NewClient(cfg.Weather, weather.WithStateListener(func(to gobreaker.State) {
			logger.Printf("weather circuit breaker is now %s", to)
			m.BreakerState("open-meteo", to)
		}))
		humidity = weather.NewHumidityCache(client, cfg.Weather.Refresh)
	}

	low, high := cfg.Telemetry.FallbackBand()
	band := threshold.Band{Low: low, High: high}
	ingestSvc := ingest.NewService(appStore, ingest.Options{
		DeviceID: cfg.Telemetry.DeviceID,
		Evaluator: threshold.Evaluator{
			PHDelta:       cfg.Telemetry.PHDelta,
			PPMDelta:      cfg.Telemetry.PPMDelta,
			TempDelta:     cfg.Telemetry.TempDelta,
			BandHalfWidth: cfg.Telemetry.BandHalfWidth,
			DefaultBand:   band,
		},
		Monitor:  monitor,
		Humidity: humidity,
		Metrics:  m,
	})

	controller := actuator.NewController(appStore, actuator.Options{
		DeviceID: cfg.Telemetry.DeviceID,
		Durations: map[actuator.Name]time.Duration{
			actuator.Nutrient:  cfg.Actuator.NutrientDuration,
			actuator.Pesticide: cfg.Actuator.PesticideDuration,
		},
		RejectOverlapping: cfg.Actuator.RejectOverlapping,
	})
	// A previous process may have exited between the ON and OFF writes.
	if err := controller.SwitchOff(ctx); err != nil {
		logger.Printf("Warning: failed to reset actuator state: %v", err)
	}

	// Initialize router
	handler := api.NewHandler(api.Deps{
		Store:     appStore,
		Ingest:    ingestSvc,
		Actuators: controller,
		Metrics:   m,
		WebPush:   webpushOptions,
		PageLimit: cfg.Telemetry.PageLimit,
	})
	router := api.NewRouter(ctx, handler, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	// Running activations outlive their dropped requests; let them reach
	// the OFF write. A second signal forces the actuators off instead.
	drainCtx, drainCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer drainCancel()
	logger.Println("waiting for running actuators to switch off...")
	if err := controller.Wait(drainCtx); err != nil {
		logger.Printf("Warning: actuator drain interrupted: %v", err)
		offCtx, offCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := controller.SwitchOff(offCtx); err != nil {
			logger.Printf("failed to switch actuators off: %v", err)
		}
		offCancel()
	}
	cancel()

	logger.Println("Server gracefully stopped")
}
