package repository

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway-reconciliation-backend/internal/models"
)

func recordsAt(indexes ...int) []models.PaymentRecord {
	records := make([]models.PaymentRecord, 0, len(indexes))
	for _, idx := range indexes {
		records = append(records, models.PaymentRecord{ID: uuid.New(), RowIndex: idx})
	}
	return records
}

// applyUpdates mirrors what RemoveRecords persists: every survivor keeps its
// index unless an update rewrites it.
func applyUpdates(survivors []models.PaymentRecord, updates []rowIndexUpdate) []int {
	byID := make(map[uuid.UUID]int, len(updates))
	for _, u := range updates {
		byID[u.id] = u.rowIndex
	}
	out := make([]int, 0, len(survivors))
	for i := range survivors {
		if idx, ok := byID[survivors[i].ID]; ok {
			out = append(out, idx)
			continue
		}
		out = append(out, survivors[i].RowIndex)
	}
	return out
}

func TestReindexUpdates(t *testing.T) {
	tests := []struct {
		name        string
		survivors   []models.PaymentRecord
		wantRewrite int
	}{
		{"empty batch", recordsAt(), 0},
		{"single row already in place", recordsAt(0), 0},
		{"single survivor of a removal", recordsAt(4), 1},
		{"middle row removed", recordsAt(0, 2, 3), 2},
		{"first row removed", recordsAt(1, 2, 3), 3},
		{"multiple gaps", recordsAt(1, 4, 7, 9), 4},
		{"nothing removed", recordsAt(0, 1, 2, 3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates := reindexUpdates(tt.survivors)
			assert.Len(t, updates, tt.wantRewrite)

			// Survivors end up numbered 0..n-1 in their original order,
			// no gaps.
			final := applyUpdates(tt.survivors, updates)
			require.Len(t, final, len(tt.survivors))
			for i, idx := range final {
				assert.Equal(t, i, idx)
			}
		})
	}
}

func TestReindexUpdatesOnlyTouchesMovedRows(t *testing.T) {
	survivors := recordsAt(0, 1, 5)
	updates := reindexUpdates(survivors)

	require.Len(t, updates, 1)
	assert.Equal(t, survivors[2].ID, updates[0].id)
	assert.Equal(t, 2, updates[0].rowIndex)
}
