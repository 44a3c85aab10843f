package models

import "gorm.io/datatypes"

// Severity rates how serious a detected contradiction is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsValidSeverity reports whether s is one of the known severity levels.
func IsValidSeverity(s string) bool {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ContradictionModel records a detected inconsistency between two evidence
// items. Created in a batch right after its parent analysis; immutable.
type ContradictionModel struct {
	Base
	AnalysisID  string            `json:"analysis_id"   gorm:"type:uuid;index;not null"`
	CaseID      string            `json:"case_id"       gorm:"type:uuid;index;not null"`
	Description string            `json:"description"   gorm:"type:text"`
	Severity    Severity          `json:"severity"      gorm:"default:'medium'"`
	EvidenceAID string            `json:"evidence_a_id" gorm:"type:uuid"`
	EvidenceBID string            `json:"evidence_b_id" gorm:"type:uuid"`
	Timestamps  datatypes.JSONMap `json:"timestamps"    gorm:"type:jsonb"`
}

func (ContradictionModel) TableName() string { return "contradictions" }
