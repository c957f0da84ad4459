package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gateway-reconciliation-backend/internal/models"
)

type BlacklistRepository struct {
	db *gorm.DB
}

func NewBlacklistRepository(db *gorm.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Insert is a conditional create on the normalized account number. The
// unique index does the dedupe, so concurrent adds of the same identifier
// cannot both land. Returns false when an entry already existed; the
// existing entry is never touched.
func (r *BlacklistRepository) Insert(ctx context.Context, entry *models.BlacklistEntry) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_number_normalized"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByNormalized returns the stored entries matching any of the given
// normalized account numbers.
func (r *BlacklistRepository) FindByNormalized(ctx context.Context, normalized []string) ([]models.BlacklistEntry, error) {
	if len(normalized) == 0 {
		return nil, nil
	}

	var entries []models.BlacklistEntry
	err := r.db.WithContext(ctx).
		Where("account_number_normalized IN ?", normalized).
		Find(&entries).Error
	return entries, err
}
