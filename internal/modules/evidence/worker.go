package evidence

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/modules/audit"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/objectstore"
	"github.com/CJCR07/veridicus/internal/pkg/taskqueue"
)

const TaskTypeExtract = "evidence:extract"

// maxExtractAttempts allows one automatic retry for transient failures.
const maxExtractAttempts = 2

var errModelUnavailable = errors.New("model API not configured")

// Files above this size are not sent inline for extraction.
const maxInlineExtractBytes = 20 << 20

const extractionPromptFmt = `You are a forensic evidence analyst working on the case %q. Examine the attached evidence file and extract structured metadata.

Respond with a single JSON object and nothing else:
{
  "summary": "concise factual summary of the evidence content",
  "entities": ["people, organizations, and locations mentioned"],
  "findings": ["notable facts or anomalies relevant to an investigation"],
  "dates": ["dates and times referenced, ISO 8601 where possible"],
  "confidence": 0.0
}

confidence is your overall confidence in the extraction, between 0 and 1. Report only what the evidence supports.`

type ExtractionPayload struct {
	EvidenceID string `json:"evidence_id"`
}

// Worker runs metadata extraction against the deep-reasoning model,
// driven by the Redis task queue.
type Worker struct {
	db      *gorm.DB
	store   *objectstore.Store
	taskSvc *taskqueue.Service
	ai      *genai.Client
	audit   *audit.Service
	log     *zap.Logger
}

func NewWorker(db *gorm.DB, store *objectstore.Store, taskSvc *taskqueue.Service, ai *genai.Client, auditSvc *audit.Service, log *zap.Logger) *Worker {
	return &Worker{db: db, store: store, taskSvc: taskSvc, ai: ai, audit: auditSvc, log: log}
}

// EnqueueExtraction creates an extraction task for the evidence (or returns
// the in-flight dedup task) and starts it in a goroutine.
func (w *Worker) EnqueueExtraction(ctx context.Context, evidenceID string) (*taskqueue.Task, error) {
	payload := ExtractionPayload{EvidenceID: evidenceID}
	task, err := w.taskSvc.Enqueue(ctx, TaskTypeExtract, payload, evidenceID)
	if err != nil {
		return nil, err
	}

	if task.Status == taskqueue.TaskPending {
		go w.execute(context.Background(), task.ID, payload)
	}
	return task, nil
}

// ProcessNow runs extraction synchronously and returns the merged
// metadata. Used by the re-process endpoint.
func (w *Worker) ProcessNow(ctx context.Context, evidenceID string) (map[string]interface{}, error) {
	w.setStatus(evidenceID, models.EvidenceProcessing)

	result, tokens, err := w.extract(ctx, evidenceID)
	if err != nil {
		w.recordFailure(evidenceID, err)
		return nil, err
	}
	return w.recordSuccess(evidenceID, result, tokens)
}

func (w *Worker) execute(ctx context.Context, taskID string, payload ExtractionPayload) {
	w.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")
	w.setStatus(payload.EvidenceID, models.EvidenceProcessing)

	var (
		result map[string]interface{}
		tokens int
		err    error
	)
	for attempt := 1; attempt <= maxExtractAttempts; attempt++ {
		result, tokens, err = w.extract(ctx, payload.EvidenceID)
		if err == nil {
			break
		}
		w.log.Warn("evidence extraction attempt failed",
			zap.String("evidence_id", payload.EvidenceID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if !shouldRetryExtraction(err, attempt) {
			break
		}
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}

	if err != nil {
		w.recordFailure(payload.EvidenceID, err)
		w.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}

	if _, err := w.recordSuccess(payload.EvidenceID, result, tokens); err != nil {
		w.log.Error("evidence extraction persist failed",
			zap.String("evidence_id", payload.EvidenceID), zap.Error(err))
		w.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, nil, err.Error())
		return
	}
	w.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, result, "")
}

// extract downloads the blob and asks the deep-reasoning model for the
// forensic metadata object. When the reply is not parseable JSON the raw
// text is wrapped as {raw_output} instead of failing the run.
func (w *Worker) extract(ctx context.Context, evidenceID string) (map[string]interface{}, int, error) {
	if w.ai == nil {
		return nil, 0, errModelUnavailable
	}

	var ev models.EvidenceModel
	if err := w.db.First(&ev, "id = ?", evidenceID).Error; err != nil {
		return nil, 0, fmt.Errorf("load evidence: %w", err)
	}
	var parent models.CaseModel
	if err := w.db.Select("id", "name", "user_id").First(&parent, "id = ?", ev.CaseID).Error; err != nil {
		return nil, 0, fmt.Errorf("load case: %w", err)
	}
	if ev.FileSize > maxInlineExtractBytes {
		return nil, 0, fmt.Errorf("file too large for extraction (%d bytes)", ev.FileSize)
	}

	payload, err := w.store.Download(ctx, ev.FilePath)
	if err != nil {
		return nil, 0, fmt.Errorf("download evidence: %w", err)
	}

	prompt := fmt.Sprintf(extractionPromptFmt, parent.Name)
	parts := []genai.Part{genai.TextPart(prompt)}
	if strings.HasPrefix(ev.MimeType, "text/") || ev.MimeType == "application/json" {
		parts = append(parts, genai.TextPart(string(payload)))
	} else {
		parts = append(parts, genai.Part{InlineData: &genai.Blob{
			MIMEType: ev.MimeType,
			Data:     base64.StdEncoding.EncodeToString(payload),
		}})
	}

	resp, err := w.ai.GenerateContent(ctx, genai.ModelPro, &genai.GenerateRequest{
		Contents: []genai.Content{{Role: "user", Parts: parts}},
	})
	if err != nil {
		return nil, 0, err
	}

	text := resp.Text()
	var forensic map[string]interface{}
	if err := genai.UnmarshalModelJSON(text, &forensic); err != nil {
		forensic = map[string]interface{}{"raw_output": text}
	}
	return forensic, resp.Usage().TotalTokenCount, nil
}

// shouldRetryExtraction reports whether a failed attempt is worth
// repeating. A missing model client is permanent; everything else gets
// the one retry.
func shouldRetryExtraction(err error, attempt int) bool {
	return attempt < maxExtractAttempts && !errors.Is(err, errModelUnavailable)
}

func (w *Worker) recordSuccess(evidenceID string, forensic map[string]interface{}, tokens int) (map[string]interface{}, error) {
	var ev models.EvidenceModel
	if err := w.db.First(&ev, "id = ?", evidenceID).Error; err != nil {
		return nil, err
	}

	meta := mergeMetadata(ev.Metadata, map[string]interface{}{
		"forensic":    forensic,
		"analysis_at": time.Now().UTC().Format(time.RFC3339),
		"processed":   true,
	})
	delete(meta, "processing_error")

	updates := map[string]interface{}{
		"metadata": datatypes.JSONMap(meta),
		"status":   models.EvidenceDone,
	}
	if tokens > 0 {
		updates["token_count"] = tokens
	}
	if err := w.db.Model(&ev).Updates(updates).Error; err != nil {
		return nil, err
	}

	w.audit.Record(ev.CaseID, "system", audit.ActionEvidenceProcessed, map[string]interface{}{
		"evidence_id": ev.ID,
		"token_count": tokens,
	})
	return meta, nil
}

func (w *Worker) recordFailure(evidenceID string, cause error) {
	var ev models.EvidenceModel
	if err := w.db.First(&ev, "id = ?", evidenceID).Error; err != nil {
		w.log.Error("evidence load failed while recording extraction error",
			zap.String("evidence_id", evidenceID), zap.Error(err))
		return
	}

	meta := mergeMetadata(ev.Metadata, map[string]interface{}{
		"processing_error": cause.Error(),
		"processed":        false,
	})
	if err := w.db.Model(&ev).Updates(map[string]interface{}{
		"metadata": datatypes.JSONMap(meta),
		"status":   models.EvidenceFailed,
	}).Error; err != nil {
		w.log.Error("evidence failure persist failed",
			zap.String("evidence_id", evidenceID), zap.Error(err))
	}
}

func (w *Worker) setStatus(evidenceID string, status models.EvidenceStatus) {
	if err := w.db.Model(&models.EvidenceModel{}).
		Where("id = ?", evidenceID).
		Update("status", status).Error; err != nil {
		w.log.Warn("evidence status update failed",
			zap.String("evidence_id", evidenceID), zap.Error(err))
	}
}

// mergeMetadata overlays updates onto existing metadata without dropping
// keys written by earlier runs (originalName in particular).
func mergeMetadata(existing datatypes.JSONMap, updates map[string]interface{}) map[string]interface{} {
	merged := map[string]interface{}{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}
