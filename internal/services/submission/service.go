// Package submission owns the gateway-facing row operations: creating
// batches from uploaded rows, submitting pending rows and voiding
// transactions.
package submission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/account"
	"gateway-reconciliation-backend/internal/gateway"
	"gateway-reconciliation-backend/internal/models"
)

const blacklistedMessage = "Bank account is blacklisted"

// BatchStore is the persistence the submission flow needs.
type BatchStore interface {
	Create(ctx context.Context, batch *models.UploadBatch, records []models.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]models.PaymentRecord, error)
	SaveRecord(ctx context.Context, record *models.PaymentRecord) error
	UpdateCounters(ctx context.Context, batchID uuid.UUID, expectedVersion int64) error
	FindRecordByGatewayUniqueID(ctx context.Context, uniqueID string) (*models.PaymentRecord, error)
}

// BlacklistChecker answers which of the given raw account numbers are
// blocked, as normalized identifiers.
type BlacklistChecker interface {
	Check(ctx context.Context, accountNumbers []string) ([]string, error)
}

// Locker serializes mutating operations per batch.
type Locker interface {
	Acquire(ctx context.Context, batchID string) (string, error)
	Release(ctx context.Context, batchID, token string) error
}

type Service struct {
	batches   BatchStore
	gateway   gateway.Client
	blacklist BlacklistChecker
	lock      Locker
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(batches BatchStore, gw gateway.Client, blacklist BlacklistChecker, lock Locker, logger *zap.Logger) *Service {
	return &Service{
		batches:   batches,
		gateway:   gw,
		blacklist: blacklist,
		lock:      lock,
		logger:    logger,
		now:       time.Now,
	}
}

// RowInput is one parsed instruction row from an uploaded file.
type RowInput struct {
	TransactionID     string
	AmountMinor       int64
	BankAccountNumber string
	CustomerName      string
	CustomerEmail     string
}

// CreateBatch persists a new batch with one pending record per row, row
// indexes assigned from file order. Rows without a local transaction id get
// one synthesized from the batch id and index.
func (s *Service) CreateBatch(ctx context.Context, filename string, rows []RowInput) (*models.UploadBatch, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: batch has no rows", models.ErrValidation)
	}

	now := s.now().UTC()
	batch := &models.UploadBatch{
		ID:          uuid.New(),
		Filename:    filename,
		Status:      "created",
		RecordCount: len(rows),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	records := make([]models.PaymentRecord, 0, len(rows))
	for i, row := range rows {
		transactionID := row.TransactionID
		if transactionID == "" {
			transactionID = fmt.Sprintf("%s-%d", batch.ID, i)
		}
		records = append(records, models.PaymentRecord{
			ID:                uuid.New(),
			BatchID:           batch.ID,
			RowIndex:          i,
			TransactionID:     transactionID,
			AmountMinor:       row.AmountMinor,
			BankAccountNumber: row.BankAccountNumber,
			CustomerName:      row.CustomerName,
			CustomerEmail:     row.CustomerEmail,
			Status:            models.RecordStatusPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	if err := s.batches.Create(ctx, batch, records); err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("filename", filename),
		zap.Int("records", len(records)))

	return batch, nil
}

// Summary accounts for every pending row a submit run considered.
type Summary struct {
	Submitted int `json:"submitted"`
	Blocked   int `json:"blocked"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SubmitBatch submits every pending row to the gateway, consulting the
// blacklist first. Blocked rows are marked as errors without ever reaching
// the gateway; a gateway failure on one row does not stop the rest.
func (s *Service) SubmitBatch(ctx context.Context, batchID uuid.UUID) (*Summary, error) {
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

	numbers := make([]string, 0, len(records))
	for i := range records {
		if records[i].Status == models.RecordStatusPending {
			numbers = append(numbers, records[i].BankAccountNumber)
		}
	}
	matches, err := s.blacklist.Check(ctx, numbers)
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]bool, len(matches))
	for _, m := range matches {
		blocked[m] = true
	}

	summary := &Summary{}
	for i := range records {
		rec := &records[i]
		if rec.Status != models.RecordStatusPending {
			summary.Skipped++
			continue
		}

		if blocked[account.Normalize(rec.BankAccountNumber)] {
			rec.Status = models.RecordStatusError
			rec.GatewayError = blacklistedMessage
			if err := s.batches.SaveRecord(ctx, rec); err != nil {
				return nil, err
			}
			summary.Blocked++
			continue
		}

		s.submitOne(ctx, rec, summary)
		if err := s.batches.SaveRecord(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := s.batches.UpdateCounters(ctx, batchID, batch.Version); err != nil {
		return nil, err
	}

	s.logger.Info("batch submitted",
		zap.String("batch_id", batchID.String()),
		zap.Int("submitted", summary.Submitted),
		zap.Int("blocked", summary.Blocked),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (s *Service) submitOne(ctx context.Context, rec *models.PaymentRecord, summary *Summary) {
	rec.Attempts++

	result, err := s.gateway.Submit(ctx, gateway.SubmitRequest{
		TransactionID:     rec.TransactionID,
		AmountMinor:       rec.AmountMinor,
		BankAccountNumber: rec.BankAccountNumber,
		CustomerName:      rec.CustomerName,
		CustomerEmail:     rec.CustomerEmail,
	})
	if err != nil {
		rec.Status = models.RecordStatusError
		rec.GatewayError = err.Error()
		summary.Failed++
		return
	}

	submittedAt := s.now().UTC()
	rec.Status = models.RecordStatusSubmitted
	rec.GatewayUniqueID = result.UniqueID
	rec.GatewayStatus = result.Status
	rec.GatewayError = ""
	rec.SubmittedAt = &submittedAt
	summary.Submitted++
}

// Void voids a gateway transaction and records the outcome on its row.
func (s *Service) Void(ctx context.Context, uniqueID string) (*models.PaymentRecord, error) {
	record, err := s.batches.FindRecordByGatewayUniqueID(ctx, uniqueID)
	if err != nil {
		return nil, err
	}

	token, err := s.lock.Acquire(ctx, record.BatchID.String())
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lock.Release(context.WithoutCancel(ctx), record.BatchID.String(), token); releaseErr != nil {
			s.logger.Warn("failed to release batch lock",
				zap.String("batch_id", record.BatchID.String()),
				zap.Error(releaseErr))
		}
	}()

	result, err := s.gateway.Void(ctx, uniqueID, record.TransactionID)
	if err != nil {
		return nil, err
	}

	record.Status = models.RecordStatusError
	record.GatewayStatus = result.Status
	record.GatewayError = "Transaction voided"
	if err := s.batches.SaveRecord(ctx, record); err != nil {
		return nil, err
	}

	batch, err := s.batches.GetByID(ctx, record.BatchID)
	if err != nil {
		return nil, err
	}
	if err := s.batches.UpdateCounters(ctx, record.BatchID, batch.Version); err != nil {
		return nil, err
	}

	return record, nil
}
