package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/config"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

// RegisterRoutes mounts the liveness probe. It takes no auth.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.check)
}

// GET /health
func (h *Handler) check(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"version":   config.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
