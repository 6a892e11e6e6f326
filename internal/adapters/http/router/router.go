package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/adapters/http/handler"
	"github.com/ogurasousui/construction-api/internal/adapters/http/middleware"
	"github.com/ogurasousui/construction-api/internal/platform/config"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Config はルーター構築に必要な依存関係です。
type Config struct {
	Health    *handler.HealthHandler
	Employees *handler.EmployeeHandler
	Projects  *handler.ProjectHandler
	Materials *handler.MaterialHandler
	Auth      *middleware.Authenticator
	CORS      config.CORSConfig
	Tracing   config.TracingConfig
	Logger    *logger.Logger
}

// New は gin.Engine を構築します。/api 以下は認証が必要です。
func New(cfg Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if cfg.Logger != nil {
			cfg.Logger.Error("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, handler.ErrorResponse{Detail: "Internal server error", Code: handler.CodeInternal})
	}))
	if cfg.Tracing.Enabled {
		engine.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	engine.Use(
		middleware.RequestID(),
		middleware.RequestLogger(cfg.Logger),
		middleware.CORS(cfg.CORS),
	)

	if cfg.Health != nil {
		cfg.Health.Register(engine)
	}

	api := engine.Group("/api")
	api.Use(cfg.Auth.RequireAuth())
	if cfg.Employees != nil {
		cfg.Employees.Register(api)
	}
	if cfg.Projects != nil {
		cfg.Projects.Register(api)
	}
	if cfg.Materials != nil {
		cfg.Materials.Register(api)
	}

	return engine
}
