package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"task-manager-api/internal/core/auth"
	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/server"
	mdw "task-manager-api/internal/transport/http/middleware"
	resp "task-manager-api/internal/transport/http/response"
)

// Deps is what both engines need besides their modules.
type Deps struct {
	Log    *zap.Logger
	JWT    *auth.JWTer
	Limits config.Limits
	// Health reports storage reachability; nil means always healthy.
	Health func(ctx context.Context) error
}

func newEngine(name string, d Deps) *gin.Engine {
	r := server.NewRouter()
	timeout := time.Duration(d.Limits.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	chain := []gin.HandlerFunc{
		mdw.RequestID(),
		mdw.Recovery(d.Log),
		mdw.Metrics(name),
		mdw.AccessLog(d.Log),
	}
	if d.Limits.RPS > 0 {
		chain = append(chain, mdw.RateLimit(rate.Limit(d.Limits.RPS), d.Limits.Burst))
	}
	if d.Limits.Concurrency > 0 {
		chain = append(chain, mdw.ConcurrencyLimit(d.Limits.Concurrency))
	}
	if d.Limits.MaxBodyBytes > 0 {
		chain = append(chain, mdw.MaxBodyBytes(d.Limits.MaxBodyBytes))
	}
	chain = append(chain, mdw.Timeout(timeout))
	r.Use(chain...)

	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c); err != nil {
				d.Log.Warn("health check failed", zap.Error(err))
				c.JSON(http.StatusOK, resp.Error(resp.CodeServerError, "unhealthy"))
				return
			}
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"ok": 1}))
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
