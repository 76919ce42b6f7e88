package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/courtlink/playerfinder/internal/app"
	iauth "github.com/courtlink/playerfinder/internal/auth"
	"github.com/courtlink/playerfinder/internal/handlers"
	"github.com/courtlink/playerfinder/internal/middleware"
	"github.com/courtlink/playerfinder/internal/tracker"
	appErrors "github.com/courtlink/playerfinder/pkg/errors"
	"github.com/courtlink/playerfinder/pkg/response"
)

// NewRouter builds the Gin engine, wires middleware and registers the
// tracker routes. Reads and capability links are public; creating,
// cancelling and withdrawing require a bearer token.
func NewRouter(db *gorm.DB, store *tracker.Store, jwt *iauth.JWTService, cfg *app.Config) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if store == nil {
		return nil, fmt.Errorf("tracker store must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	if cfg.Server.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Server.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Server.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	handler := handlers.NewTrackerHandler(store)

	// Read endpoints and capability links carry their own authority.
	r.GET("/tracker/request", handler.GetRequest)
	r.GET("/invitations", handler.Incoming)
	r.GET("/invitations-sent", handler.Sent)
	r.GET("/tracker/accept", handler.Accept)
	r.GET("/tracker/decline", handler.Decline)

	requireAuth := middleware.Auth(jwt)
	authed := r.Group("/tracker")
	authed.Use(requireAuth)
	{
		authed.POST("/request", handler.CreateRequest)
		authed.POST("/cancel", handler.Cancel)
		authed.POST("/withdraw", handler.Withdraw)
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.ErrNotFound.WithMessage(fmt.Sprintf("route %s not found", c.Request.URL.Path)))
	})

	return r, nil
}
