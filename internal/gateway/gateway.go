// Package gateway is the outbound port to the EMP payment gateway. The
// reconciliation engine and the submission flow only depend on the Client
// interface; the resty implementation lives in emp.go.
package gateway

import (
	"context"
	"strings"
	"time"
)

// SubmitRequest carries one payment instruction to the gateway.
type SubmitRequest struct {
	TransactionID     string
	AmountMinor       int64
	BankAccountNumber string
	CustomerName      string
	CustomerEmail     string
}

// SubmitResult is the gateway's synchronous answer to a submission.
type SubmitResult struct {
	UniqueID string
	Status   string
	Message  string
}

// RemoteTx is a transaction as reported by the gateway's reporting API.
type RemoteTx struct {
	UniqueID               string    `json:"unique_id"`
	ReferenceTransactionID string    `json:"transaction_id"`
	Status                 string    `json:"status"`
	ReasonCode             string    `json:"reason_code,omitempty"`
	Message                string    `json:"message,omitempty"`
	Timestamp              time.Time `json:"timestamp"`
}

// VoidResult reports the outcome of a void call.
type VoidResult struct {
	UniqueID string
	Status   string
}

// Client exposes the three gateway operations the engine consumes. A zero
// time range on ListTransactions means full available history.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	ListTransactions(ctx context.Context, from, to time.Time) ([]RemoteTx, error)
	Void(ctx context.Context, uniqueID, referenceID string) (*VoidResult, error)
}

// Gateway status vocabulary. The reporting API uses lowercase words; the
// helpers below normalize before comparing.
const (
	StatusApproved     = "approved"
	StatusDeclined     = "declined"
	StatusError        = "error"
	StatusChargebacked = "chargebacked"
	StatusPending      = "pending"
	StatusPendingAsync = "pending_async"
	StatusVoided       = "voided"
)

func IsApprovedStatus(status string) bool {
	return normalizeStatus(status) == StatusApproved
}

func IsFailureStatus(status string) bool {
	switch normalizeStatus(status) {
	case StatusDeclined, StatusError, StatusChargebacked, StatusVoided:
		return true
	}
	return false
}

func IsPendingStatus(status string) bool {
	switch normalizeStatus(status) {
	case StatusPending, StatusPendingAsync:
		return true
	}
	return false
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
