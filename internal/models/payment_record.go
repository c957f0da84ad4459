package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Row lifecycle states. A record is created as pending, moves to submitted
// when the gateway accepts it, and lands on approved or error after
// reconciliation.
const (
	RecordStatusPending   = "pending"
	RecordStatusSubmitted = "submitted"
	RecordStatusApproved  = "approved"
	RecordStatusError     = "error"
)

// PaymentRecord is one instruction row of an upload batch. RowIndex is the
// stable position within the batch; it is only re-sequenced by the blacklist
// filter, which rewrites all surviving rows in one transaction.
type PaymentRecord struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID           uuid.UUID `gorm:"type:uuid;index" json:"batch_id"`
	RowIndex          int       `gorm:"index" json:"row_index"`
	TransactionID     string    `gorm:"index" json:"transaction_id"`
	AmountMinor       int64     `json:"amount_minor"`
	BankAccountNumber string    `json:"bank_account_number"`
	CustomerName      string    `json:"customer_name"`
	CustomerEmail     string    `json:"customer_email"`
	SourceFields      datatypes.JSON `json:"source_fields,omitempty"`

	Status          string     `gorm:"index" json:"status"`
	Attempts        int        `json:"attempts"`
	GatewayUniqueID string     `gorm:"index" json:"gateway_unique_id"`
	GatewayStatus   string     `json:"gateway_status"`
	GatewayError    string     `json:"gateway_error"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
