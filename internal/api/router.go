package api

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hydrowangi-backend/config"
	"hydrowangi-backend/internal/actuator"
	"hydrowangi-backend/internal/mw"
)

// limiterIdle is how long a client's rate limiter is kept without traffic.
const limiterIdle = 10 * time.Minute

// NewRouter creates and configures a new Gin router. Background upkeep
// stops when ctx is done.
func NewRouter(ctx context.Context, h *Handler, cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(h.metrics.Middleware())

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go pruneLimiter(ctx, limiter)
	rateLimited := mw.RateLimiter(limiter)

	ttl := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)

	device := mw.DeviceSecret(cfg.Auth.DeviceSecret)
	bearer := mw.Bearer(mw.BearerConfig{
		Secret:   cfg.Auth.JWTSecret,
		Audience: cfg.Auth.JWTAudience,
		Issuer:   cfg.Auth.JWTIssuer,
		MaxAge:   cfg.Auth.TokenMaxAge,
	})

	r.GET("/", h.Health)
	r.GET("/metrics", h.metrics.Handler())

	// Device endpoints
	r.POST("/telemetry", device, h.PostTelemetry)
	r.GET("/ppm", device, h.GetPPM)
	r.GET("/pesticide", h.ActuatorStatus(actuator.Pesticide))
	r.GET("/nutrition-pump", h.ActuatorStatus(actuator.Nutrient))

	// Dashboard endpoints
	user := r.Group("/", rateLimited)
	{
		user.GET("/telemetry/latest", bearer, h.GetLatestTelemetry)
		user.GET("/telemetries", bearer, h.ListTelemetries)
		user.GET("/telemetries/download", bearer, h.DownloadTelemetries)
		user.DELETE("/telemetries", bearer, h.DeleteTelemetries)

		user.POST("/pesticide", bearer, h.Activate(actuator.Pesticide))
		user.POST("/nutrition-pump", bearer, h.Activate(actuator.Nutrient))
		user.POST("/pump-duration", h.SetPumpDuration)

		user.POST("/planted", bearer, h.CreatePlanted)
		user.GET("/planted", bearer, h.GetPlanted)
		user.GET("/planted/slot/:slot", bearer, h.GetPlantedBySlot)
		user.GET("/planted/:id", bearer, h.GetPlantedByID)
		user.PUT("/planted/:id", bearer, h.UpdatePlanted)
		user.DELETE("/planted/:id", bearer, h.DeletePlanted)
		user.POST("/harvest", bearer, h.Harvest)
		user.POST("/harvest/:slot", bearer, h.Harvest)
	}

	api := r.Group("/api", rateLimited)
	{
		plants := api.Group("/plants", mw.Invalidate(cacheStore))
		plants.GET("", mw.Cache(cacheStore, ttl), h.GetPlants)
		plants.GET("/:id", mw.Cache(cacheStore, ttl), h.GetPlant)
		plants.POST("", bearer, h.CreatePlant)
		plants.PUT("/:id", bearer, h.UpdatePlant)
		plants.DELETE("", bearer, h.DeletePlant)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}

func pruneLimiter(ctx context.Context, l *mw.IPRateLimiter) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := l.Prune(limiterIdle); n > 0 {
				log.Printf("Pruned %d idle rate limiters", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
