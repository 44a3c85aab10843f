// Package evidence manages case evidence: upload into object storage,
// magic-byte validation, and metadata extraction through the task queue.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/config"
	"github.com/CJCR07/veridicus/internal/middleware"
	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/modules/audit"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

var (
	errFileTooLarge = errors.New("file too large")
	errUnsupported  = errors.New("unsupported or unrecognized file type")
)

type evidenceResponse struct {
	ID         string                 `json:"id"`
	CaseID     string                 `json:"case_id"`
	FilePath   string                 `json:"file_path"`
	FileType   string                 `json:"file_type"`
	MimeType   string                 `json:"mime_type"`
	FileSize   int64                  `json:"file_size"`
	TokenCount *int                   `json:"token_count,omitempty"`
	Metadata   map[string]interface{} `json:"metadata"`
	Status     models.EvidenceStatus  `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func toResponse(m *models.EvidenceModel) evidenceResponse {
	meta := map[string]interface{}(m.Metadata)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	return evidenceResponse{
		ID:         m.ID,
		CaseID:     m.CaseID,
		FilePath:   m.FilePath,
		FileType:   m.FileType,
		MimeType:   m.MimeType,
		FileSize:   m.FileSize,
		TokenCount: m.TokenCount,
		Metadata:   meta,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

type Service struct {
	db       *gorm.DB
	store    *objectstore.Store
	sniffing bool
	log      *zap.Logger
}

func NewService(db *gorm.DB, store *objectstore.Store, sniffing bool, log *zap.Logger) *Service {
	return &Service{db: db, store: store, sniffing: sniffing, log: log}
}

func (s *Service) ListByCase(caseID string) ([]models.EvidenceModel, error) {
	var items []models.EvidenceModel
	err := s.db.Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (s *Service) GetByID(id string) (*models.EvidenceModel, error) {
	var m models.EvidenceModel
	err := s.db.First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetOwned loads evidence only when its parent case belongs to userID.
// Missing rows and foreign rows are both reported as nil.
func (s *Service) GetOwned(id, userID string) (*models.EvidenceModel, error) {
	m, err := s.GetByID(id)
	if err != nil || m == nil {
		return m, err
	}
	var owner models.CaseModel
	err = s.db.Select("id").First(&owner, "id = ? AND user_id = ?", m.CaseID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Upload stores the file and creates the evidence record in pending state
// with `{originalName, processed:false}` metadata.
func (s *Service) Upload(ctx context.Context, caseID string, fh *multipart.FileHeader) (*models.EvidenceModel, error) {
	if fh.Size > config.MaxFileSizeBytes {
		return nil, errFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, config.MaxFileSizeBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > config.MaxFileSizeBytes {
		return nil, errFileTooLarge
	}

	declared := normalizeMIME(fh.Header.Get("Content-Type"))
	if declared == "" {
		declared = "application/octet-stream"
	}
	if s.sniffing {
		head := payload
		if len(head) > sniffLen {
			head = head[:sniffLen]
		}
		if !contentAllowed(declared, head) {
			return nil, errUnsupported
		}
	}

	key := fmt.Sprintf("%s/%d-%s", caseID, time.Now().UnixMilli(), sanitizeFilename(fh.Filename))
	if _, err := s.store.Upload(ctx, key, payload, declared); err != nil {
		return nil, fmt.Errorf("store evidence: %w", err)
	}

	m := models.EvidenceModel{
		CaseID:   caseID,
		FilePath: key,
		FileType: fileTypeOf(declared),
		MimeType: declared,
		FileSize: int64(len(payload)),
		Metadata: datatypes.JSONMap{
			"originalName": fh.Filename,
			"processed":    false,
		},
		Status: models.EvidencePending,
	}
	if err := s.db.Create(&m).Error; err != nil {
		if delErr := s.store.Delete(context.Background(), key); delErr != nil {
			s.log.Warn("orphan evidence object left in storage",
				zap.String("key", key), zap.Error(delErr))
		}
		return nil, err
	}
	return &m, nil
}

// fileTypeOf buckets a MIME type into the coarse evidence categories.
func fileTypeOf(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case mime == "application/pdf",
		strings.HasPrefix(mime, "text/"),
		strings.HasPrefix(mime, "application/vnd.openxmlformats-officedocument."):
		return "document"
	default:
		return "other"
	}
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}

type Handler struct {
	svc      *Service
	worker   *Worker
	audit    *audit.Service
	ownsCase func(caseID, userID string) (bool, error)
}

func NewHandler(svc *Service, worker *Worker, auditSvc *audit.Service, ownsCase func(caseID, userID string) (bool, error)) *Handler {
	return &Handler{svc: svc, worker: worker, audit: auditSvc, ownsCase: ownsCase}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/evidence")
	g.GET("/case/:caseId", h.listByCase)
	g.POST("/upload", h.upload)
	g.GET("/:id", h.get)
	g.POST("/:id/process", h.process)
}

func (h *Handler) checkCase(c *gin.Context, caseID string) bool {
	if !validate.UUID(caseID) {
		response.BadRequest(c, "invalid case id")
		return false
	}
	owns, err := h.ownsCase(caseID, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return false
	}
	if !owns {
		response.NotFound(c, "case not found")
		return false
	}
	return true
}

// GET /api/evidence/case/:caseId
func (h *Handler) listByCase(c *gin.Context) {
	caseID := c.Param("caseId")
	if !h.checkCase(c, caseID) {
		return
	}
	items, err := h.svc.ListByCase(caseID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]evidenceResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	response.OK(c, out)
}

// POST /api/evidence/upload?caseId=
func (h *Handler) upload(c *gin.Context) {
	caseID := strings.TrimSpace(c.Query("caseId"))
	if caseID == "" {
		response.BadRequest(c, "caseId is required")
		return
	}
	if !h.checkCase(c, caseID) {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	m, err := h.svc.Upload(c.Request.Context(), caseID, fh)
	switch {
	case errors.Is(err, errFileTooLarge):
		response.BadRequest(c, fmt.Sprintf("file exceeds the %d MB limit", config.MaxFileSizeMB))
		return
	case errors.Is(err, errUnsupported):
		response.UnsupportedMediaType(c, err.Error())
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}

	userID := middleware.CurrentUserID(c)
	h.audit.Record(caseID, userID, audit.ActionEvidenceUpload, map[string]interface{}{
		"evidence_id": m.ID,
		"filename":    m.Metadata["originalName"],
		"file_size":   m.FileSize,
		"mime_type":   m.MimeType,
	})

	// Extraction runs in the background; the row is returned while still
	// pending and clients poll the evidence row or the task for completion.
	if _, err := h.worker.EnqueueExtraction(c.Request.Context(), m.ID); err != nil {
		h.svc.log.Warn("extraction enqueue failed",
			zap.String("evidence_id", m.ID), zap.Error(err))
	}
	response.Created(c, toResponse(m))
}

// GET /api/evidence/:id
func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid evidence id")
		return
	}
	m, err := h.svc.GetOwned(id, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "evidence not found")
		return
	}
	response.OK(c, toResponse(m))
}

// POST /api/evidence/:id/process
func (h *Handler) process(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid evidence id")
		return
	}
	m, err := h.svc.GetOwned(id, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "evidence not found")
		return
	}

	meta, err := h.worker.ProcessNow(c.Request.Context(), m.ID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, meta)
}
