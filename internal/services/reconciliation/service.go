package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gateway-reconciliation-backend/internal/gateway"
	"gateway-reconciliation-backend/internal/models"
	"gateway-reconciliation-backend/internal/repository"
)

const defaultMissingMessage = "Transaction not found in payment gateway"

// Stragglers can land in the gateway's ledger after the last local
// submission timestamp, so the fetch window is padded.
const windowPadding = 24 * time.Hour

// BatchStore is the persistence the engine needs: load a batch snapshot and
// write one run back atomically.
type BatchStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]models.PaymentRecord, error)
	ApplyReconciliation(ctx context.Context, params repository.ApplyReconciliationParams) error
}

// Locker serializes mutating operations per batch.
type Locker interface {
	Acquire(ctx context.Context, batchID string) (string, error)
	Release(ctx context.Context, batchID, token string) error
}

// Service correlates a locally held batch against the gateway's
// authoritative transaction state. Each Reconcile call re-derives every
// row's status from a single remote snapshot; calling it repeatedly with an
// unchanged remote set yields the same classification every time.
type Service struct {
	batches BatchStore
	gateway gateway.Client
	lock    Locker
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(batches BatchStore, gw gateway.Client, lock Locker, logger *zap.Logger) *Service {
	return &Service{
		batches: batches,
		gateway: gw,
		lock:    lock,
		logger:  logger,
		now:     time.Now,
	}
}

// Reconcile fetches gateway-side truth for the batch and merges it into the
// local row state. If the remote fetch fails, no row is touched and no
// report is persisted.
func (s *Service) Reconcile(ctx context.Context, batchID uuid.UUID) (*Report, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	token, err := s.lock.Acquire(ctx, batchID.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx), batchID.String(), token); releaseErr != nil {
			s.logger.Warn("failed to release batch lock",
				zap.String("batch_id", batchID.String()),
				zap.Error(releaseErr))
		}
	}()

	records, err := s.batches.ListRecords(ctx, batchID)
	if err != nil {
		return nil, err
	}

	from, to := fetchWindow(records)
	remote, err := s.gateway.ListTransactions(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gateway transactions: %w", err)
	}

	// One snapshot for the whole pass. Duplicate uniqueIds in the feed
	// resolve to the first by fetch order.
	lookup := make(map[string]gateway.RemoteTx, len(remote))
	for _, tx := range remote {
		if _, seen := lookup[tx.UniqueID]; !seen {
			lookup[tx.UniqueID] = tx
		}
	}

	report := &Report{
		Processed:    len(records),
		Details:      make([]RowDetail, 0, len(records)),
		ReconciledAt: s.now().UTC(),
	}

	changed := make([]models.PaymentRecord, 0, len(records))
	approvedTotal, errorTotal := 0, 0

	for i := range records {
		rec := &records[i]
		detail, rewrite := classify(rec, lookup)
		report.Details = append(report.Details, detail)

		if detail.UniqueID != "" {
			if _, ok := lookup[detail.UniqueID]; ok {
				report.Matched++
			}
		}

		switch detail.Status {
		case ClassApproved:
			report.ApprovedCount++
		case ClassError:
			report.ErrorCount++
		case ClassMissingInEMP:
			report.MissingCount++
		}

		if rewrite {
			changed = append(changed, *rec)
		}

		// Batch counters reflect the post-write state of every row, not
		// just the ones this run rewrote.
		switch rec.Status {
		case models.RecordStatusApproved:
			approvedTotal++
		case models.RecordStatusError:
			errorTotal++
		}
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reconciliation report: %w", err)
	}

	err = s.batches.ApplyReconciliation(ctx, repository.ApplyReconciliationParams{
		BatchID:         batchID,
		ExpectedVersion: batch.Version,
		Records:         changed,
		ApprovedCount:   approvedTotal,
		ErrorCount:      errorTotal,
		Report:          datatypes.JSON(reportJSON),
		ReconciledAt:    report.ReconciledAt,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch reconciled",
		zap.String("batch_id", batchID.String()),
		zap.Int("processed", report.Processed),
		zap.Int("matched", report.Matched),
		zap.Int("approved", report.ApprovedCount),
		zap.Int("errors", report.ErrorCount),
		zap.Int("missing", report.MissingCount))

	return report, nil
}

// classify applies the precedence order to one row against the remote
// snapshot, mutating the record in place when the classification is one
// that gets written back. The returned bool reports whether it was.
func classify(rec *models.PaymentRecord, lookup map[string]gateway.RemoteTx) (RowDetail, bool) {
	detail := RowDetail{
		RowIndex:      rec.RowIndex,
		TransactionID: rec.TransactionID,
		UniqueID:      rec.GatewayUniqueID,
	}

	// Never submitted: not yet eligible for gateway-side truth.
	if rec.GatewayUniqueID == "" {
		detail.Status = ClassNotSubmitted
		return detail, false
	}

	remote, found := lookup[rec.GatewayUniqueID]
	if !found {
		detail.Status = ClassMissingInEMP
		detail.Message = rec.GatewayError
		if detail.Message == "" {
			detail.Message = defaultMissingMessage
		}
		rec.Status = models.RecordStatusError
		rec.GatewayError = detail.Message
		return detail, true
	}

	detail.EMPStatus = remote.Status

	switch {
	case gateway.IsApprovedStatus(remote.Status):
		detail.Status = ClassApproved
		detail.Message = remote.Message
		rec.Status = models.RecordStatusApproved
		rec.GatewayStatus = remote.Status
		rec.GatewayError = ""
		return detail, true

	case gateway.IsFailureStatus(remote.Status):
		detail.Status = ClassError
		detail.Message = failureMessage(remote)
		rec.Status = models.RecordStatusError
		rec.GatewayStatus = remote.Status
		rec.GatewayError = detail.Message
		return detail, true

	case gateway.IsPendingStatus(remote.Status):
		// Informational only: an in-flight remote state never rewrites a
		// row, in particular never downgrades one that is already approved.
		detail.Status = ClassPending
		detail.Message = remote.Message
		return detail, false

	default:
		// Malformed remote record: recorded as this row's error without
		// aborting the batch.
		detail.Status = ClassError
		detail.Message = fmt.Sprintf("unrecognized gateway status %q", remote.Status)
		rec.Status = models.RecordStatusError
		rec.GatewayStatus = remote.Status
		rec.GatewayError = detail.Message
		return detail, true
	}
}

func failureMessage(remote gateway.RemoteTx) string {
	if remote.Message != "" {
		return remote.Message
	}
	if remote.ReasonCode != "" {
		return fmt.Sprintf("Transaction %s with reason code %s", remote.Status, remote.ReasonCode)
	}
	return fmt.Sprintf("Transaction %s", remote.Status)
}

// fetchWindow derives the remote query range from the batch's submission
// timestamps. Without any, the engine asks for full available history.
func fetchWindow(records []models.PaymentRecord) (time.Time, time.Time) {
	var earliest time.Time
	for i := range records {
		at := records[i].SubmittedAt
		if at == nil {
			continue
		}
		if earliest.IsZero() || at.Before(earliest) {
			earliest = *at
		}
	}

	if earliest.IsZero() {
		return time.Time{}, time.Time{}
	}
	// Open-ended upper bound: stragglers can settle any time up to now.
	return earliest.Add(-windowPadding), time.Time{}
}
