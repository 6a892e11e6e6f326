package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ogurasousui/construction-api/internal/platform/logger"
)

const healthcheckTimeout = 2 * time.Second

// Pinger はデータベースの疎通確認に利用します。
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler は認証不要のルートとヘルスチェックを提供します。
type HealthHandler struct {
	db  Pinger
	log *logger.Logger
}

// NewHealthHandler は HealthHandler を生成します。db が nil の場合は疎通確認を省略します。
func NewHealthHandler(db Pinger, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &HealthHandler{db: db, log: log}
}

// Register はルートを登録します。
func (h *HealthHandler) Register(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.GET("/healthcheck", h.Check)
}

// Root は API 名を返します。
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, messageResponse{Message: "Construction Management API"})
}

// Check はデータベースへ到達できるかを返します。
func (h *HealthHandler) Check(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthcheckTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn("healthcheck failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
