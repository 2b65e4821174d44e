package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/GoSim-25-26J-441/research-hub/internal/api/http"
	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/routes"
)

const serviceName = "research-hub"

// BuildRouter mounts health, metrics and the v1 API on a new engine.
func BuildRouter(app *App) *gin.Engine {
	cfg := app.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(app.Log))
	r.Use(middleware.MetricsMiddleware(app.Metrics))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	var pinger httpapi.Pinger
	if app.DB != nil {
		pinger = app.DB
	}
	httpapi.NewHealthHandler(serviceName, cfg.App.Version, cfg.Remote.Backend, pinger).RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	routes.RegisterV1(r, routes.V1Deps{
		Auth:        app.Auth,
		Projects:    app.Projects,
		Limiter:     middleware.NewRateLimiter(cfg.Server.AuthRatePerMin, cfg.Server.AuthBurst),
		CallTimeout: cfg.Remote.CallTimeout,
	})

	return r
}
