// Package analysis runs the reasoning orchestrator: free-text queries are
// answered by the deep-reasoning model, either against a pre-built
// provider context cache (with forensic tool calling) or through a direct
// thinking call, and the results are persisted with any detected
// contradictions.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	"github.com/CJCR07/veridicus/internal/pkg/response"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

const systemInstruction = `You are a forensic analyst assisting an investigator. Ground every statement in the case evidence available to you. When you detect inconsistencies between evidence items, report them in a fenced json block at the end of your answer:

` + "```json" + `
{
  "summary": "one-paragraph answer summary",
  "contradictions": [
    {
      "description": "what conflicts and why",
      "severity": "low|medium|high|critical",
      "evidence_a_id": "uuid",
      "evidence_b_id": "uuid",
      "timestamps": {}
    }
  ]
}
` + "```" + `

Omit the block entirely when there is nothing structured to report.`

// cacheTTL is how long a provider context cache built from case evidence
// stays valid.
const cacheTTL = time.Hour

var errCaseNotFound = errors.New("case not found")

// ModelClient is the slice of the generative API the orchestrator needs.
// *genai.Client satisfies it.
type ModelClient interface {
	GenerateContent(ctx context.Context, model string, req *genai.GenerateRequest) (*genai.GenerateResponse, error)
	CreateCachedContent(ctx context.Context, model string, contents []genai.Content, systemInstr *genai.Content, ttl time.Duration) (*genai.CachedContent, error)
}

type QueryDTO struct {
	CaseID string `json:"caseId"`
	Query  string `json:"query"`
}

type CacheDTO struct {
	CaseID string `json:"caseId"`
}

type queryResult struct {
	Analysis       *models.AnalysisModel
	Contradictions []models.ContradictionModel
}

// MarshalJSON spreads the analysis fields at the top level with the
// detected contradictions alongside, matching the wire shape clients
// consume.
func (r queryResult) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(r.Analysis)
	if err != nil {
		return nil, err
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}
	flat["contradictions"] = r.Contradictions
	return json.Marshal(flat)
}

type Service struct {
	db    *gorm.DB
	ai    ModelClient
	store *objectstore.Store
	audit *audit.Service
	log   *zap.Logger
}

func NewService(db *gorm.DB, ai ModelClient, store *objectstore.Store, auditSvc *audit.Service, log *zap.Logger) *Service {
	return &Service{db: db, ai: ai, store: store, audit: auditSvc, log: log}
}

func (s *Service) loadOwnedCase(caseID, userID string) (*models.CaseModel, error) {
	var m models.CaseModel
	err := s.db.First(&m, "id = ? AND user_id = ?", caseID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errCaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RunQuery executes one reasoning query against a case and persists the
// outcome.
func (s *Service) RunQuery(ctx context.Context, userID string, dto *QueryDTO) (*queryResult, error) {
	if !validate.UUID(dto.CaseID) {
		return nil, errors.New("caseId must be a valid uuid")
	}
	query := strings.TrimSpace(dto.Query)
	if query == "" {
		return nil, errors.New("query must be a non-empty string")
	}

	if s.ai == nil {
		return nil, errors.New("model API not configured")
	}

	caseRow, err := s.loadOwnedCase(dto.CaseID, userID)
	if err != nil {
		return nil, err
	}

	var (
		final    *genai.GenerateResponse
		thoughts []string
		usage    genai.UsageMetadata
	)
	if caseRow.HasValidCache(time.Now()) {
		final, thoughts, usage, err = s.runCachedLoop(ctx, caseRow, query)
	} else {
		final, thoughts, usage, err = s.runDirect(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	text, contradictions := parseStructured(final.Text())

	analysis := models.AnalysisModel{
		CaseID:           caseRow.ID,
		Query:            query,
		ThoughtSignature: "",
		Thoughts:         models.StringArray(thoughts),
		Result: datatypes.JSONMap{
			"text":          text,
			"input_tokens":  usage.PromptTokenCount,
			"output_tokens": usage.CandidatesTokenCount,
		},
		Citations: datatypes.JSON([]byte("[]")),
	}
	if err := s.db.Create(&analysis).Error; err != nil {
		return nil, err
	}

	if len(contradictions) > 0 {
		for i := range contradictions {
			contradictions[i].AnalysisID = analysis.ID
			contradictions[i].CaseID = caseRow.ID
		}
		if err := s.db.Create(&contradictions).Error; err != nil {
			return nil, err
		}
	} else {
		contradictions = []models.ContradictionModel{}
	}

	s.audit.Record(caseRow.ID, userID, audit.ActionAnalysisRun, map[string]interface{}{
		"analysis_id":    analysis.ID,
		"contradictions": len(contradictions),
	})
	return &queryResult{Analysis: &analysis, Contradictions: contradictions}, nil
}

// runCachedLoop issues a generation call against the case's context cache
// with forensic tools attached and drives the bounded tool loop. Hitting
// the turn cap with calls still pending is accepted silently; the last
// response is used as final.
func (s *Service) runCachedLoop(ctx context.Context, caseRow *models.CaseModel, query string) (*genai.GenerateResponse, []string, genai.UsageMetadata, error) {
	temp := 0.3
	executor := &toolExecutor{db: s.db, caseID: caseRow.ID}
	conversation := []genai.Content{genai.UserText(query)}

	var (
		resp     *genai.GenerateResponse
		thoughts []string
		usage    genai.UsageMetadata
		err      error
	)
	for turn := 0; turn < config.MaxToolTurns; turn++ {
		resp, err = s.ai.GenerateContent(ctx, genai.ModelPro, &genai.GenerateRequest{
			Contents:      conversation,
			CachedContent: *caseRow.CacheID,
			Tools:         forensicTools(),
			ToolConfig: &genai.ToolConfig{
				FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: "AUTO"},
			},
			GenerationConfig: &genai.GenerationConfig{
				Temperature: &temp,
				ThinkingConfig: &genai.ThinkingConfig{
					IncludeThoughts: true,
				},
			},
		})
		if err != nil {
			return nil, nil, usage, err
		}
		thoughts = append(thoughts, resp.Thoughts()...)
		addUsage(&usage, resp.Usage())

		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			return resp, thoughts, usage, nil
		}

		conversation = append(conversation, resp.ModelTurn())
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, genai.Part{FunctionResponse: &genai.FunctionResponse{
				Name:     call.Name,
				Response: executor.Execute(call),
			}})
		}
		conversation = append(conversation, genai.Content{Role: "user", Parts: parts})
	}

	s.log.Warn("tool loop hit the turn cap with calls still pending",
		zap.String("case_id", caseRow.ID),
		zap.Int("turns", config.MaxToolTurns),
	)
	return resp, thoughts, usage, nil
}

// runDirect is the fallback path when no context cache exists: one
// thinking call with no tools.
func (s *Service) runDirect(ctx context.Context, query string) (*genai.GenerateResponse, []string, genai.UsageMetadata, error) {
	temp := 0.7
	resp, err := s.ai.GenerateContent(ctx, genai.ModelPro, &genai.GenerateRequest{
		Contents:          []genai.Content{genai.UserText(query)},
		SystemInstruction: &genai.Content{Parts: []genai.Part{genai.TextPart(systemInstruction)}},
		GenerationConfig: &genai.GenerationConfig{
			Temperature: &temp,
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingLevel:   genai.ThinkingHigh,
				IncludeThoughts: true,
			},
		},
	})
	if err != nil {
		return nil, nil, genai.UsageMetadata{}, err
	}
	return resp, resp.Thoughts(), resp.Usage(), nil
}

func addUsage(total *genai.UsageMetadata, u genai.UsageMetadata) {
	total.PromptTokenCount += u.PromptTokenCount
	total.CandidatesTokenCount += u.CandidatesTokenCount
	total.TotalTokenCount += u.TotalTokenCount
}

// BuildCache uploads the case evidence corpus into a provider context
// cache and stores its handle on the case.
func (s *Service) BuildCache(ctx context.Context, userID, caseID string) (*models.CaseModel, error) {
	if !validate.UUID(caseID) {
		return nil, errors.New("caseId must be a valid uuid")
	}
	if s.ai == nil {
		return nil, errors.New("model API not configured")
	}
	caseRow, err := s.loadOwnedCase(caseID, userID)
	if err != nil {
		return nil, err
	}

	var evidence []models.EvidenceModel
	if err := s.db.Where("case_id = ?", caseID).Order("created_at ASC").Find(&evidence).Error; err != nil {
		return nil, err
	}
	if len(evidence) == 0 {
		return nil, errors.New("case has no evidence to cache")
	}

	parts := make([]genai.Part, 0, len(evidence)+1)
	parts = append(parts, genai.TextPart(fmt.Sprintf("Evidence corpus for case %q.", caseRow.Name)))
	for i := range evidence {
		blob, err := s.store.Download(ctx, evidence[i].FilePath)
		if err != nil {
			return nil, fmt.Errorf("download evidence %s: %w", evidence[i].ID, err)
		}
		if strings.HasPrefix(evidence[i].MimeType, "text/") || evidence[i].MimeType == "application/json" {
			parts = append(parts, genai.TextPart(fmt.Sprintf("Evidence %s:\n%s", evidence[i].ID, blob)))
			continue
		}
		parts = append(parts, genai.Part{InlineData: &genai.Blob{
			MIMEType: evidence[i].MimeType,
			Data:     base64.StdEncoding.EncodeToString(blob),
		}})
	}

	cache, err := s.ai.CreateCachedContent(ctx, genai.ModelPro,
		[]genai.Content{{Role: "user", Parts: parts}},
		&genai.Content{Parts: []genai.Part{genai.TextPart(systemInstruction)}},
		cacheTTL,
	)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(cacheTTL)
	if t, err := time.Parse(time.RFC3339, cache.ExpireTime); err == nil {
		expiresAt = t
	}
	if err := s.db.Model(caseRow).Updates(map[string]interface{}{
		"cache_id":         cache.Name,
		"cache_expires_at": expiresAt,
	}).Error; err != nil {
		return nil, err
	}
	caseRow.CacheID = &cache.Name
	caseRow.CacheExpiresAt = &expiresAt

	s.audit.Record(caseID, userID, audit.ActionCacheCreated, map[string]interface{}{
		"cache_id":   cache.Name,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
	return caseRow, nil
}

func (s *Service) ListByCase(caseID string) ([]models.AnalysisModel, error) {
	var items []models.AnalysisModel
	err := s.db.Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

// GetOwned loads an analysis only when its case belongs to userID.
func (s *Service) GetOwned(id, userID string) (*models.AnalysisModel, error) {
	var m models.AnalysisModel
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
	rg.POST("/analysis/query", h.query)
	rg.POST("/analysis/cache", h.buildCache)
	rg.GET("/analyses/case/:caseId", h.listByCase)
	rg.GET("/analyses/:id", h.get)
}

// POST /api/analysis/query
//
// Every failure, client or upstream, collapses to 400 with the error
// message.
func (h *Handler) query(c *gin.Context) {
	var dto QueryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "caseId and query are required")
		return
	}

	result, err := h.svc.RunQuery(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, result)
}

// POST /api/analysis/cache
func (h *Handler) buildCache(c *gin.Context) {
	var dto CacheDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "caseId is required")
		return
	}

	caseRow, err := h.svc.BuildCache(c.Request.Context(), middleware.CurrentUserID(c), dto.CaseID)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.OK(c, gin.H{
		"case_id":          caseRow.ID,
		"cache_id":         caseRow.CacheID,
		"cache_expires_at": caseRow.CacheExpiresAt,
	})
}

// GET /api/analyses/case/:caseId
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

// GET /api/analyses/:id
func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	if !validate.UUID(id) {
		response.BadRequest(c, "invalid analysis id")
		return
	}
	m, err := h.svc.GetOwned(id, middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if m == nil {
		response.NotFound(c, "analysis not found")
		return
	}
	response.OK(c, m)
}
