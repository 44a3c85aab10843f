package models

import "gorm.io/datatypes"

// EvidenceStatus is the extraction lifecycle state of an evidence row.
type EvidenceStatus string

const (
	EvidencePending    EvidenceStatus = "pending"
	EvidenceProcessing EvidenceStatus = "processing"
	EvidenceDone       EvidenceStatus = "done"
	EvidenceFailed     EvidenceStatus = "failed"
)

// EvidenceModel is one uploaded file plus its extracted metadata.
// Metadata holds originalName, processed, the forensic findings sub-object
// and an optional processing_error; the worker merges into it rather than
// replacing it.
type EvidenceModel struct {
	Base
	CaseID     string            `json:"case_id"     gorm:"type:uuid;index;not null"`
	FilePath   string            `json:"file_path"   gorm:"not null"`
	FileType   string            `json:"file_type"` // top-level MIME category
	MimeType   string            `json:"mime_type"`
	FileSize   int64             `json:"file_size"`
	TokenCount *int              `json:"token_count"`
	Metadata   datatypes.JSONMap `json:"metadata"    gorm:"type:jsonb"`
	Status     EvidenceStatus    `json:"status"      gorm:"default:'pending';index"`
}

func (EvidenceModel) TableName() string { return "evidence" }
