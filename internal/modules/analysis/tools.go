package analysis

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/CJCR07/veridicus/internal/models"
	"github.com/CJCR07/veridicus/internal/pkg/genai"
	"github.com/CJCR07/veridicus/internal/pkg/validate"
)

const (
	toolSearchEvidence      = "search_evidence"
	toolGetEvidenceMetadata = "get_evidence_metadata"

	maxSearchResults = 5
)

// forensicTools declares the functions offered to the model during the
// cached-context reasoning path.
func forensicTools() []genai.Tool {
	return []genai.Tool{{
		FunctionDeclarations: []genai.FunctionDeclaration{
			{
				Name:        toolSearchEvidence,
				Description: "Keyword search over the case evidence metadata. Returns up to 5 matches.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "Keywords to search for",
						},
						"fileType": map[string]interface{}{
							"type":        "string",
							"description": "Optional file category filter (document, image, audio, video)",
						},
					},
					"required": []string{"query"},
				},
			},
			{
				Name:        toolGetEvidenceMetadata,
				Description: "Fetch the full metadata of one evidence item by its id.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"evidenceId": map[string]interface{}{
							"type":        "string",
							"description": "Evidence UUID",
						},
					},
					"required": []string{"evidenceId"},
				},
			},
		},
	}}
}

// toolExecutor runs model-requested tools scoped to one case.
type toolExecutor struct {
	db     *gorm.DB
	caseID string
}

type searchArgs struct {
	Query    string `json:"query"`
	FileType string `json:"fileType"`
}

type metadataArgs struct {
	EvidenceID string `json:"evidenceId"`
}

type searchHit struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Summary  string `json:"summary"`
}

// Execute dispatches one function call and returns a JSON-serializable
// result. Tool failures are reported in-band so the model can recover.
func (e *toolExecutor) Execute(call genai.FunctionCall) interface{} {
	switch call.Name {
	case toolSearchEvidence:
		var args searchArgs
		if err := json.Unmarshal(call.Args, &args); err != nil || strings.TrimSpace(args.Query) == "" {
			return map[string]interface{}{"error": "query is required"}
		}
		hits, err := e.search(args.Query, args.FileType)
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		return map[string]interface{}{"matches": hits}

	case toolGetEvidenceMetadata:
		var args metadataArgs
		if err := json.Unmarshal(call.Args, &args); err != nil || !validate.UUID(args.EvidenceID) {
			return map[string]interface{}{"error": "a valid evidenceId is required"}
		}
		row, err := e.metadata(args.EvidenceID)
		if err != nil {
			return map[string]interface{}{"error": err.Error()}
		}
		if row == nil {
			return map[string]interface{}{"error": "evidence not found in this case"}
		}
		return row

	default:
		return map[string]interface{}{"error": "unknown tool: " + call.Name}
	}
}

// search does a case-scoped, case-insensitive substring match over each
// evidence row's serialized metadata.
func (e *toolExecutor) search(query, fileType string) ([]searchHit, error) {
	tx := e.db.Where("case_id = ?", e.caseID).Order("created_at DESC")
	if ft := strings.TrimSpace(fileType); ft != "" {
		tx = tx.Where("file_type = ?", ft)
	}
	var rows []models.EvidenceModel
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	hits := make([]searchHit, 0, maxSearchResults)
	for i := range rows {
		serialized, err := json.Marshal(rows[i].Metadata)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(string(serialized)), needle) {
			continue
		}
		hits = append(hits, searchHit{
			ID:       rows[i].ID,
			FilePath: rows[i].FilePath,
			Summary:  metadataSummary(rows[i].Metadata),
		})
		if len(hits) == maxSearchResults {
			break
		}
	}
	return hits, nil
}

func (e *toolExecutor) metadata(evidenceID string) (*models.EvidenceModel, error) {
	var row models.EvidenceModel
	err := e.db.First(&row, "id = ? AND case_id = ?", evidenceID, e.caseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func metadataSummary(meta map[string]interface{}) string {
	if forensic, ok := meta["forensic"].(map[string]interface{}); ok {
		if s, ok := forensic["summary"].(string); ok {
			return s
		}
	}
	if s, ok := meta["summary"].(string); ok {
		return s
	}
	return ""
}
