package models

import "gorm.io/datatypes"

// AuditLogModel is an append-only record of ingestion and processing events.
type AuditLogModel struct {
	Base
	CaseID  string            `json:"case_id" gorm:"type:uuid;index;not null"`
	UserID  string            `json:"user_id" gorm:"not null"`
	Action  string            `json:"action"  gorm:"index;not null"`
	Details datatypes.JSONMap `json:"details" gorm:"type:jsonb"`
}

func (AuditLogModel) TableName() string { return "audit_logs" }
