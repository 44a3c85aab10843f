package contradiction

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) ListByCase(caseID string) ([]models.ContradictionModel, error) {
	var items []models.ContradictionModel
	err := s.db.Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// GetOwned loads a contradiction only when its case belongs to userID.
func (s *Service) GetOwned(id, userID string) (*models.ContradictionModel, error) {
	var m models.ContradictionModel
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var owner models.CaseModel
	err = s.db.Select("id").First(&owner, "id = ? AND user_id = ?", m.CaseID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type Handler struct {
	svc      *Service
	ownsCase func(caseID, userID string) (bool, error)
}

func NewHandler(svc *Service, ownsCase func(caseID, userID string) (bool, error)) *Handler {
	return &Handler{svc: svc, ownsCase: ownsCase}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/contradictions")
	g.GET("/case/:caseId", h.listByCase)
	g.GET("/:id", h.get)
}

// GET /api/contradictions/case/:caseId
func (h *Handler) listByCase(c *gin.Context) {
	caseID := c.Param("caseId")
	if !validate.UUID(caseID) {
		response.BadRequest(c, "invalid case id")
		return
	}
	owns, err := h.ownsCase(caseID, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !owns {
		response.NotFound(c, "case not found")
		return
	}

	items, err := h.svc.ListByCase(caseID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

// GET /api/contradictions/:id
func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid contradiction id")
		return
	}
	m, err := h.svc.GetOwned(id, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "contradiction not found")
		return
	}
	response.OK(c, m)
}
