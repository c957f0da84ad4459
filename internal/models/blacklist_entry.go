package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BlacklistCreatedByManual = "manual"
	BlacklistCreatedBySystem = "system-auto-blacklist"
)

// BlacklistEntry bars a bank account from future submission. The normalized
// account number is the dedupe key: inserts are conditional creates and an
// existing entry is never overwritten.
type BlacklistEntry struct {
	ID                      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountNumberNormalized string    `gorm:"uniqueIndex" json:"-"`
	AccountNumberMasked     string    `json:"account_number_masked"`
	Name                    string    `json:"name,omitempty"`
	Email                   string    `json:"email,omitempty"`
	Reason                  string    `json:"reason"`
	CreatedBy               string    `json:"created_by"`
	CreatedAt               time.Time `json:"created_at"`
}
