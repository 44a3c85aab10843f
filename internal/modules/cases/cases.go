package cases

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/modules/audit"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

type CreateCaseDTO struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateCaseDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type caseResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	UserID         string     `json:"user_id"`
	CacheID        *string    `json:"cache_id,omitempty"`
	CacheExpiresAt *time.Time `json:"cache_expires_at,omitempty"`
	EvidenceCount  int64      `json:"evidence_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toResponse(m *models.CaseModel, evidenceCount int64) caseResponse {
	return caseResponse{
		ID:             m.ID,
		Name:           m.Name,
		Description:    m.Description,
		UserID:         m.UserID,
		CacheID:        m.CacheID,
		CacheExpiresAt: m.CacheExpiresAt,
		EvidenceCount:  evidenceCount,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

type Service struct {
	db    *gorm.DB
	store *objectstore.Store
	log   *zap.Logger
}

func NewService(db *gorm.DB, store *objectstore.Store, log *zap.Logger) *Service {
	return &Service{db: db, store: store, log: log}
}

// GetOwned loads a case only when it belongs to userID. Missing cases and
// cases owned by someone else are both reported as nil.
func (s *Service) GetOwned(id, userID string) (*models.CaseModel, error) {
	var m models.CaseModel
	err := s.db.First(&m, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOwnedWithEvidence loads an owned case with its evidence preloaded.
func (s *Service) GetOwnedWithEvidence(id, userID string) (*models.CaseModel, error) {
	var m models.CaseModel
	err := s.db.Preload("Evidence").First(&m, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Owns reports whether the case exists and belongs to the user.
func (s *Service) Owns(caseID, userID string) (bool, error) {
	m, err := s.GetOwned(caseID, userID)
	return m != nil, err
}

func (s *Service) List(userID string) ([]models.CaseModel, error) {
	var items []models.CaseModel
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (s *Service) Create(userID string, dto *CreateCaseDTO) (*models.CaseModel, error) {
	m := models.CaseModel{
		Name:        dto.Name,
		Description: dto.Description,
		UserID:      userID,
	}
	return &m, s.db.Create(&m).Error
}

func (s *Service) Update(id, userID string, dto *UpdateCaseDTO) (*models.CaseModel, error) {
	m, err := s.GetOwned(id, userID)
	if err != nil || m == nil {
		return m, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = *dto.Name
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if len(updates) == 0 {
		return m, nil
	}
	return m, s.db.Model(m).Updates(updates).Error
}

// Delete removes a case, its dependent rows, and its stored evidence
// objects. Storage cleanup is best effort.
func (s *Service) Delete(ctx context.Context, id, userID string) (bool, error) {
	m, err := s.GetOwned(id, userID)
	if err != nil || m == nil {
		return false, err
	}

	var evidence []models.EvidenceModel
	if err := s.db.Where("case_id = ?", id).Find(&evidence).Error; err != nil {
		return false, err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", id).Delete(&models.ContradictionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.AnalysisModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.EvidenceModel{}).Error; err != nil {
			return err
		}
		return tx.Delete(m).Error
	}); err != nil {
		return false, err
	}

	for _, ev := range evidence {
		if err := s.store.Delete(ctx, ev.FilePath); err != nil {
			s.log.Warn("evidence object cleanup failed",
				zap.String("case_id", id),
				zap.String("key", ev.FilePath),
				zap.Error(err),
			)
		}
	}
	return true, nil
}

type evidenceCountRow struct {
	CaseID string
	N      int64
}

// evidenceCountQuery groups evidence rows by case so a whole listing
// costs one query.
func (s *Service) evidenceCountQuery(caseIDs []string) *gorm.DB {
	return s.db.Model(&models.EvidenceModel{}).
		Select("case_id, COUNT(*) AS n").
		Where("case_id IN ?", caseIDs).
		Group("case_id")
}

func (s *Service) evidenceCounts(caseIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(caseIDs))
	if len(caseIDs) == 0 {
		return counts, nil
	}
	var rows []evidenceCountRow
	if err := s.evidenceCountQuery(caseIDs).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.CaseID] = r.N
	}
	return counts, nil
}

type Handler struct {
	svc   *Service
	audit *audit.Service
}

func NewHandler(svc *Service, auditSvc *audit.Service) *Handler {
	return &Handler{svc: svc, audit: auditSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/cases")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// GET /api/cases
func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	ids := make([]string, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	counts, err := h.svc.evidenceCounts(ids)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]caseResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i], counts[items[i].ID]))
	}
	response.OK(c, out)
}

// POST /api/cases
func (h *Handler) create(c *gin.Context) {
	var dto CreateCaseDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "name is required")
		return
	}
	userID := middleware.CurrentUserID(c)

	m, err := h.svc.Create(userID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.audit.Record(m.ID, userID, audit.ActionCaseCreated, map[string]interface{}{
		"name": m.Name,
	})
	response.Created(c, toResponse(m, 0))
}

// GET /api/cases/:id
func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid case id")
		return
	}
	m, err := h.svc.GetOwnedWithEvidence(id, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "case not found")
		return
	}
	detail := struct {
		caseResponse
		Evidence []models.EvidenceModel `json:"evidence"`
	}{
		caseResponse: toResponse(m, int64(len(m.Evidence))),
		Evidence:     m.Evidence,
	}
	if detail.Evidence == nil {
		detail.Evidence = []models.EvidenceModel{}
	}
	response.OK(c, detail)
}

// PUT /api/cases/:id
func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid case id")
		return
	}
	var dto UpdateCaseDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	userID := middleware.CurrentUserID(c)

	m, err := h.svc.Update(id, userID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "case not found")
		return
	}
	h.audit.Record(m.ID, userID, audit.ActionCaseUpdated, nil)
	counts, err := h.svc.evidenceCounts([]string{m.ID})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(m, counts[m.ID]))
}

// DELETE /api/cases/:id
func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid case id")
		return
	}
	userID := middleware.CurrentUserID(c)

	deleted, err := h.svc.Delete(c.Request.Context(), id, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !deleted {
		response.NotFound(c, "case not found")
		return
	}
	h.audit.Record(id, userID, audit.ActionCaseDeleted, nil)
	response.NoContent(c)
}
