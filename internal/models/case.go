package models

import "time"

// CaseModel is a top-level investigation container. A case is owned by
// exactly one user; deleting it cascades to its evidence, analyses and
// contradictions.
type CaseModel struct {
	Base
	Name        string `json:"name"        gorm:"not null"`
	Description string `json:"description"`
	UserID      string `json:"user_id"     gorm:"type:uuid;index;not null"`

	// CacheID / CacheExpiresAt reference a provider-side context cache
	// pre-loaded with the case evidence corpus.
	CacheID        *string    `json:"cache_id"`
	CacheExpiresAt *time.Time `json:"cache_expires_at"`

	Evidence       []EvidenceModel      `json:"evidence,omitempty"       gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE"`
	Analyses       []AnalysisModel      `json:"-"                        gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE"`
	Contradictions []ContradictionModel `json:"-"                        gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE"`
}

func (CaseModel) TableName() string { return "cases" }

// HasValidCache reports whether the case carries an unexpired context cache.
func (c *CaseModel) HasValidCache(now time.Time) bool {
	return c.CacheID != nil && *c.CacheID != "" &&
		c.CacheExpiresAt != nil && c.CacheExpiresAt.After(now)
}
