package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"gateway-reconciliation-backend/internal/models"
)

type ChargebackRepository struct {
	db *gorm.DB
}

func NewChargebackRepository(db *gorm.DB) *ChargebackRepository {
	return &ChargebackRepository{db: db}
}

// ListByReasonCodes returns the not-yet-processed chargebacks carrying any
// of the given reason codes, oldest first. Rows with a processed_at stamp
// are skipped, so a rerun only picks up new arrivals.
func (r *ChargebackRepository) ListByReasonCodes(ctx context.Context, codes []string) ([]models.Chargeback, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	var chargebacks []models.Chargeback
	err := r.db.WithContext(ctx).
		Where("reason_code IN ? AND processed_at IS NULL", codes).
		Order("created_at ASC").
		Find(&chargebacks).Error
	return chargebacks, err
}

func (r *ChargebackRepository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Chargeback{}).
		Where("id = ?", id).
		Update("processed_at", at).Error
}
