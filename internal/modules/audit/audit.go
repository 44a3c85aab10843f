package audit

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

// Actions recorded in the audit trail.
const (
	ActionCaseCreated       = "case_created"
	ActionCaseUpdated       = "case_updated"
	ActionCaseDeleted       = "case_deleted"
	ActionEvidenceUpload    = "evidence_upload"
	ActionEvidenceProcessed = "evidence_processed"
	ActionAnalysisRun       = "analysis_run"
	ActionCacheCreated      = "cache_created"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{db: db, log: log}
}

// Record appends an entry to the audit trail. Failures are logged and
// swallowed so auditing never blocks the action it describes.
func (s *Service) Record(caseID, userID, action string, details map[string]interface{}) {
	entry := models.AuditLogModel{
		CaseID:  caseID,
		UserID:  userID,
		Action:  action,
		Details: datatypes.JSONMap(details),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		s.log.Warn("audit record failed",
			zap.String("case_id", caseID),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// ListByCase returns the audit trail for one case, newest first.
func (s *Service) ListByCase(caseID string) ([]models.AuditLogModel, error) {
	var entries []models.AuditLogModel
	err := s.db.Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// CaseOwnership reports whether the case exists and belongs to the user.
type CaseOwnership func(caseID, userID string) (bool, error)

type Handler struct {
	svc      *Service
	ownsCase CaseOwnership
}

func NewHandler(svc *Service, ownsCase CaseOwnership) *Handler {
	return &Handler{svc: svc, ownsCase: ownsCase}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit/case/:caseId", h.listByCase)
}

type entryResponse struct {
	ID        string                 `json:"id"`
	CaseID    string                 `json:"case_id"`
	UserID    string                 `json:"user_id"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details"`
	CreatedAt string                 `json:"created_at"`
}

// GET /api/audit/case/:caseId
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

	entries, err := h.svc.ListByCase(caseID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:        e.ID,
			CaseID:    e.CaseID,
			UserID:    e.UserID,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.OK(c, out)
}
