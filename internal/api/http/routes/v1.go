package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/GoSim-25-26J-441/research-hub/internal/api/http"
	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/middleware"
	authhttp "github.com/GoSim-25-26J-441/research-hub/internal/auth/http"
	projecthttp "github.com/GoSim-25-26J-441/research-hub/internal/projects/http"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

type V1Deps struct {
	Auth     *store.AuthStore
	Projects *store.ProjectStore
	// Limiter throttles sign-in and sign-up; nil disables throttling.
	Limiter *middleware.RateLimiter
	// CallTimeout bounds auth and project requests. The event stream is
	// long-lived and not bounded.
	CallTimeout time.Duration
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	var throttle gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if dep.Limiter != nil {
		throttle = dep.Limiter.Middleware()
	}
	authhttp.New(dep.Auth).Register(api.Group("/auth", middleware.Timeout(dep.CallTimeout)), throttle)
	projecthttp.New(dep.Projects).Register(api.Group("/projects", middleware.Timeout(dep.CallTimeout)))

	api.GET("/events", httpapi.NewEventsHandler(dep.Auth, dep.Projects).Stream)
	api.GET("/dashboard", httpapi.NewDashboardHandler(dep.Auth, dep.Projects).Get)
}
