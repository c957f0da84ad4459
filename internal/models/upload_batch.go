package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type UploadBatch struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Filename         string    `json:"filename"`
	Status           string    `gorm:"index" json:"status"`
	RecordCount      int       `json:"record_count"`
	ApprovedCount    int       `json:"approved_count"`
	ErrorCount       int       `json:"error_count"`
	Version          int64     `gorm:"not null;default:0" json:"version"`
	LastReconciledAt *time.Time
	// Latest reconciliation report only; each run replaces the previous one.
	ReconciliationReport datatypes.JSON `json:"reconciliation_report,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}
