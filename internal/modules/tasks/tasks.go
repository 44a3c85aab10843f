package tasks

import (
	"github.com/gin-gonic/gin"

	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/taskqueue"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

type Handler struct {
	svc *taskqueue.Service
}

func NewHandler(svc *taskqueue.Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/tasks/:id", h.get)
}

// GET /api/tasks/:id
func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid task id")
		return
	}
	task, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c, "task not found")
		return
	}
	response.OK(c, task)
}
