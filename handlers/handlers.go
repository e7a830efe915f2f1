package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"uptimeworker/config"
	"uptimeworker/middleware"
	"uptimeworker/services"
)

type Runner interface {
	RunBatch(ctx context.Context) (services.BatchResult, error)
	RunSingle(ctx context.Context, siteID, ownerID string) (services.SiteOutcome, error)
}

type Mailer interface {
	TestEmail(ctx context.Context, to string) error
}

type Handler struct {
	runner Runner
	mailer Mailer
	cfg    config.Config
	log    zerolog.Logger
}

func New(cfg config.Config, runner Runner, mailer Mailer, log zerolog.Logger) *Handler {
	return &Handler{
		runner: runner,
		mailer: mailer,
		cfg:    cfg,
		log:    log.With().Str("component", "http").Logger(),
	}
}

// Router builds the gin engine with every route the worker serves.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger(), middleware.CORS())

	r.GET("/", h.Root)
	if h.cfg.Features.TriggerEndpointEnabled {
		r.GET("/trigger-check", h.TriggerCheck)
	}

	auth := r.Group("/", middleware.AuthRequired(h.cfg))
	{
		auth.POST("/check-site", h.CheckSite)
		if h.cfg.Features.TestEmailEnabled {
			auth.POST("/test-email", h.TestEmail)
		}
	}
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		h.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("request")
	}
}
