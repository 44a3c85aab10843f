package analysis

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"

	"github.com/CJCR07/veridicus/internal/models"
)

// parsedContradiction is the shape the model is asked to emit inside the
// fenced JSON block.
type parsedContradiction struct {
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"`
	EvidenceAID string                 `json:"evidence_a_id"`
	EvidenceBID string                 `json:"evidence_b_id"`
	Timestamps  map[string]interface{} `json:"timestamps"`
}

type structuredBlock struct {
	Summary        string                `json:"summary"`
	Contradictions []parsedContradiction `json:"contradictions"`
}

// parseStructured scans visible model text for a fenced ```json block.
// When present, contradictions are mapped to rows (severity defaulting to
// medium, timestamps to {}) and a summary not already present verbatim in
// the text is prepended. Parse failures are swallowed: the text comes
// back untouched with no contradictions. AnalysisID and CaseID are filled
// in by the caller once the parent analysis row exists.
func parseStructured(text string) (string, []models.ContradictionModel) {
	block, ok := fencedJSONBlock(text)
	if !ok {
		return text, nil
	}

	var parsed structuredBlock
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return text, nil
	}

	out := make([]models.ContradictionModel, 0, len(parsed.Contradictions))
	for _, c := range parsed.Contradictions {
		severity := models.SeverityMedium
		if models.IsValidSeverity(c.Severity) {
			severity = models.Severity(c.Severity)
		}
		timestamps := c.Timestamps
		if timestamps == nil {
			timestamps = map[string]interface{}{}
		}
		out = append(out, models.ContradictionModel{
			Description: c.Description,
			Severity:    severity,
			EvidenceAID: c.EvidenceAID,
			EvidenceBID: c.EvidenceBID,
			Timestamps:  datatypes.JSONMap(timestamps),
		})
	}

	if summary := strings.TrimSpace(parsed.Summary); summary != "" && !strings.Contains(text, summary) {
		text = summary + "\n\n" + text
	}
	return text, out
}

// fencedJSONBlock extracts the contents of the first ```json fence.
func fencedJSONBlock(text string) (string, bool) {
	const open = "```json"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}
