package models

import (
	"time"

	"github.com/google/uuid"
)

// Chargeback is an adverse outcome reported by the gateway after initial
// processing. OriginalTransactionUniqueID refers to the gateway id the
// disputed record was submitted under; the account number and customer
// metadata are resolved by following that reference, not stored here.
type Chargeback struct {
	ID                          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReasonCode                  string    `gorm:"index" json:"reason_code"`
	ReasonDescription           string    `json:"reason_description"`
	OriginalTransactionUniqueID string    `gorm:"index" json:"original_transaction_unique_id"`
	AmountMinor                 int64     `json:"amount_minor"`
	ProcessedAt                 *time.Time `json:"processed_at,omitempty"`
	CreatedAt                   time.Time  `json:"created_at"`
}
