package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/redis"
)

// HealthChecker is a dependency reported by /health.
type HealthChecker func(ctx context.Context) error

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Conversations *ConversationHandler
	ReadStates    *ReadStateHandler
	Messages      *MessageHandler
	Uploads       *UploadHandler // nil when object storage is not configured
	Gateway       echo.HandlerFunc
	Metrics       http.Handler

	TokenService *auth.TokenService
	Redis        *redis.Client
	Health       map[string]HealthChecker
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	// Health check
	e.GET("/health", healthHandler(deps.Health))

	if deps.Metrics == nil {
		deps.Metrics = promhttp.Handler()
	}
	e.GET("/metrics", echo.WrapHandler(deps.Metrics))

	// WebSocket gateway
	e.GET("/gateway", deps.Gateway)

	// Protected routes: JWT auth + general rate limit
	authMw := deps.TokenService.Middleware()
	v1 := e.Group("/api/v1", authMw,
		RateLimitMiddleware(deps.Redis, 60, time.Minute),
	)

	if deps.Uploads != nil {
		v1.POST("/uploads", deps.Uploads.Upload,
			RateLimitMiddleware(deps.Redis, 10, time.Minute),
		)
	}

	// The caller's own thread
	v1.GET("/conversations/@me", deps.Conversations.GetMine)
	v1.POST("/conversations/@me/messages", deps.Messages.SendMine)

	// Operator console
	admin := v1.Group("/admin", auth.RequireOperator())
	admin.GET("/conversations", deps.Conversations.List)
	admin.DELETE("/conversations", deps.Conversations.Purge)
	admin.GET("/conversations/:owner", deps.Conversations.Get)
	admin.DELETE("/conversations/:owner", deps.Conversations.Delete)
	admin.PUT("/conversations/:owner/read", deps.ReadStates.MarkRead)
	admin.POST("/conversations/:owner/messages", deps.Messages.SendToOwner)
	admin.GET("/conversations/:owner/presence", deps.Conversations.Presence)
}

func healthHandler(checks map[string]HealthChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				status["status"] = "degraded"
				code = http.StatusServiceUnavailable
			} else {
				status[name] = "ok"
			}
		}
		return c.JSON(code, status)
	}
}
