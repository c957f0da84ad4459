package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gateway-reconciliation-backend/internal/models"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create persists a new batch together with its records.
func (r *BatchRepository) Create(ctx context.Context, batch *models.UploadBatch, records []models.PaymentRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batch).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(&records, 100).Error
	})
}

func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error) {
	var batch models.UploadBatch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: batch %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListRecords returns the batch's records in row order.
func (r *BatchRepository) ListRecords(ctx context.Context, batchID uuid.UUID) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("row_index ASC").
		Find(&records).Error
	return records, err
}

func (r *BatchRepository) FindRecordByGatewayUniqueID(ctx context.Context, uniqueID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("gateway_unique_id = ?", uniqueID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no record submitted under gateway id %s", models.ErrNotFound, uniqueID)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *BatchRepository) SaveRecord(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// ApplyReconciliationParams is the single write-back unit of a reconcile
// run: the changed records, the recomputed batch counters and the report,
// applied atomically against the expected batch version.
type ApplyReconciliationParams struct {
	BatchID         uuid.UUID
	ExpectedVersion int64
	Records         []models.PaymentRecord
	ApprovedCount   int
	ErrorCount      int
	Report          datatypes.JSON
	ReconciledAt    time.Time
}

// ApplyReconciliation writes a reconcile run back in one transaction. A
// stale ExpectedVersion aborts the whole write with models.ErrConflict.
func (r *BatchRepository) ApplyReconciliation(ctx context.Context, params ApplyReconciliationParams) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.UploadBatch{}).
			Where("id = ? AND version = ?", params.BatchID, params.ExpectedVersion).
			Updates(map[string]interface{}{
				"approved_count":        params.ApprovedCount,
				"error_count":           params.ErrorCount,
				"reconciliation_report": params.Report,
				"last_reconciled_at":    params.ReconciledAt,
				"version":               params.ExpectedVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: batch %s version %d is stale", models.ErrConflict, params.BatchID, params.ExpectedVersion)
		}

		for i := range params.Records {
			rec := &params.Records[i]
			err := tx.Model(&models.PaymentRecord{}).
				Where("id = ?", rec.ID).
				Updates(map[string]interface{}{
					"status":         rec.Status,
					"gateway_status": rec.GatewayStatus,
					"gateway_error":  rec.GatewayError,
				}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// UpdateCounters recomputes and stores the batch aggregate counters after a
// status-affecting operation, bumping the version.
func (r *BatchRepository) UpdateCounters(ctx context.Context, batchID uuid.UUID, expectedVersion int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var approved, errored int64
		if err := tx.Model(&models.PaymentRecord{}).
			Where("batch_id = ? AND status = ?", batchID, models.RecordStatusApproved).
			Count(&approved).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.PaymentRecord{}).
			Where("batch_id = ? AND status = ?", batchID, models.RecordStatusError).
			Count(&errored).Error; err != nil {
			return err
		}

		result := tx.Model(&models.UploadBatch{}).
			Where("id = ? AND version = ?", batchID, expectedVersion).
			Updates(map[string]interface{}{
				"approved_count": approved,
				"error_count":    errored,
				"version":        expectedVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: batch %s version %d is stale", models.ErrConflict, batchID, expectedVersion)
		}
		return nil
	})
}

type rowIndexUpdate struct {
	id       uuid.UUID
	rowIndex int
}

// reindexUpdates computes the row_index rewrites that close the gaps a
// removal left behind: survivors keep their relative order and end up
// numbered 0..n-1. Rows already in place produce no update.
func reindexUpdates(survivors []models.PaymentRecord) []rowIndexUpdate {
	updates := make([]rowIndexUpdate, 0)
	for i := range survivors {
		if survivors[i].RowIndex == i {
			continue
		}
		updates = append(updates, rowIndexUpdate{id: survivors[i].ID, rowIndex: i})
	}
	return updates
}

// RemoveRecords deletes the given records and re-sequences the survivors'
// row indexes from zero with no gaps, all in one transaction. Returns how
// many records remain.
func (r *BatchRepository) RemoveRecords(ctx context.Context, batchID uuid.UUID, ids []uuid.UUID, expectedVersion int64) (int, error) {
	remaining := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			err := tx.Where("batch_id = ? AND id IN ?", batchID, ids).
				Delete(&models.PaymentRecord{}).Error
			if err != nil {
				return err
			}
		}

		var survivors []models.PaymentRecord
		err := tx.Where("batch_id = ?", batchID).
			Order("row_index ASC").
			Find(&survivors).Error
		if err != nil {
			return err
		}

		for _, update := range reindexUpdates(survivors) {
			err := tx.Model(&models.PaymentRecord{}).
				Where("id = ?", update.id).
				Update("row_index", update.rowIndex).Error
			if err != nil {
				return err
			}
		}

		remaining = len(survivors)

		result := tx.Model(&models.UploadBatch{}).
			Where("id = ? AND version = ?", batchID, expectedVersion).
			Updates(map[string]interface{}{
				"record_count": remaining,
				"version":      expectedVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: batch %s version %d is stale", models.ErrConflict, batchID, expectedVersion)
		}
		return nil
	})
	return remaining, err
}
