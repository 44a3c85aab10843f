package models

import "gorm.io/datatypes"

// AnalysisModel is one persisted reasoning query-and-answer cycle.
// Immutable after creation.
type AnalysisModel struct {
	Base
	CaseID           string            `json:"case_id"           gorm:"type:uuid;index;not null"`
	Query            string            `json:"query"             gorm:"type:text;not null"`
	ThoughtSignature string            `json:"thought_signature"`
	Thoughts         StringArray       `json:"thoughts"          gorm:"type:jsonb;serializer:json"`
	Result           datatypes.JSONMap `json:"result"            gorm:"type:jsonb"`
	Citations        datatypes.JSON    `json:"citations"         gorm:"type:jsonb"`
}

func (AnalysisModel) TableName() string { return "analyses" }
