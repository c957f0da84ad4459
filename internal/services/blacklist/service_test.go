package blacklist

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/account"
	"gateway-reconciliation-backend/internal/models"
)

// fakeStore mimics the unique-index contract: first writer wins.
type fakeStore struct {
	entries map[string]models.BlacklistEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]models.BlacklistEntry)}
}

func (f *fakeStore) Insert(ctx context.Context, entry *models.BlacklistEntry) (bool, error) {
	if _, ok := f.entries[entry.AccountNumberNormalized]; ok {
		return false, nil
	}
	f.entries[entry.AccountNumberNormalized] = *entry
	return true, nil
}

func (f *fakeStore) FindByNormalized(ctx context.Context, normalized []string) ([]models.BlacklistEntry, error) {
	var out []models.BlacklistEntry
	for _, n := range normalized {
		if e, ok := f.entries[n]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeBatchStore struct {
	batch    *models.UploadBatch
	records  []models.PaymentRecord
	removeFn func(ctx context.Context, batchID uuid.UUID, ids []uuid.UUID, expectedVersion int64) (int, error)
}

func (f *fakeBatchStore) GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error) {
	return f.batch, nil
}

func (f *fakeBatchStore) ListRecords(ctx context.Context, batchID uuid.UUID) ([]models.PaymentRecord, error) {
	return f.records, nil
}

func (f *fakeBatchStore) RemoveRecords(ctx context.Context, batchID uuid.UUID, ids []uuid.UUID, expectedVersion int64) (int, error) {
	return f.removeFn(ctx, batchID, ids, expectedVersion)
}

type fakeLocker struct{}

func (f *fakeLocker) Acquire(ctx context.Context, batchID string) (string, error) { return "t", nil }
func (f *fakeLocker) Release(ctx context.Context, batchID, token string) error    { return nil }

func newTestService(store Store, batches BatchStore) *Service {
	return NewService(store, batches, &fakeLocker{}, zap.NewNop())
}

func TestAddNormalizesAndDedupes(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.Add(ctx, AddInput{AccountNumber: " de89 3704 0044 0532 0130 00 "})
	require.NoError(t, err)
	assert.True(t, first.Added)
	assert.Equal(t, "DE89****3000", first.AccountNumberMasked)

	// Same identifier in a different format is the same entry.
	second, err := svc.Add(ctx, AddInput{AccountNumber: "DE89370400440532013000", Reason: "other reason"})
	require.NoError(t, err)
	assert.False(t, second.Added)

	require.Len(t, store.entries, 1)
	entry := store.entries["DE89370400440532013000"]
	// First writer wins: the duplicate attempt never rewrites metadata.
	assert.Equal(t, "Manually blacklisted", entry.Reason)
	assert.Equal(t, models.BlacklistCreatedByManual, entry.CreatedBy)
}

func TestAddRequiresAccountNumber(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Add(context.Background(), AddInput{AccountNumber: "   "})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestAddReasonDefaults(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{AccountNumber: "ACCT0001", ChargebackCode: "14"})
	require.NoError(t, err)
	assert.Equal(t, "Chargeback 14: Account closed", store.entries["ACCT0001"].Reason)

	_, err = svc.Add(ctx, AddInput{AccountNumber: "ACCT0002", ChargebackCode: "99"})
	require.NoError(t, err)
	assert.Equal(t, "Chargeback 99: Chargeback received", store.entries["ACCT0002"].Reason)
}

func TestCheckMatchesMixedFormats(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{AccountNumber: "NL91ABNA0417164300"})
	require.NoError(t, err)

	matches, err := svc.Check(ctx, []string{
		"nl91 abna 0417 1643 00", // stored, different format
		"GB29NWBK60161331926819", // not stored
		"NL91ABNA0417164300",     // duplicate input
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"NL91ABNA0417164300"}, matches)
}

func TestFilterBatchRemovesBlacklistedRows(t *testing.T) {
	store := newFakeStore()
	batchID := uuid.New()
	blockedID := uuid.New()

	batches := &fakeBatchStore{
		batch: &models.UploadBatch{ID: batchID, Version: 7},
		records: []models.PaymentRecord{
			{ID: blockedID, RowIndex: 0, BankAccountNumber: "acct 1111 2222"},
			{ID: uuid.New(), RowIndex: 1, BankAccountNumber: "ACCT33334444"},
			{ID: uuid.New(), RowIndex: 2, BankAccountNumber: "ACCT55556666"},
		},
	}

	var gotIDs []uuid.UUID
	var gotVersion int64
	batches.removeFn = func(ctx context.Context, id uuid.UUID, ids []uuid.UUID, expectedVersion int64) (int, error) {
		gotIDs = ids
		gotVersion = expectedVersion
		return 2, nil
	}

	svc := newTestService(store, batches)
	ctx := context.Background()

	_, err := svc.Add(ctx, AddInput{AccountNumber: "ACCT11112222"})
	require.NoError(t, err)

	result, err := svc.FilterBatch(ctx, batchID)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, result.RemovedIndexes)
	assert.Equal(t, 1, result.Removed)
	assert.Equal(t, 2, result.Remaining)
	assert.Equal(t, []uuid.UUID{blockedID}, gotIDs)
	assert.Equal(t, int64(7), gotVersion)
}

func TestFilterBatchNoMatchesIsReadOnly(t *testing.T) {
	batches := &fakeBatchStore{
		batch: &models.UploadBatch{ID: uuid.New()},
		records: []models.PaymentRecord{
			{ID: uuid.New(), RowIndex: 0, BankAccountNumber: "ACCT11112222"},
		},
		removeFn: func(ctx context.Context, id uuid.UUID, ids []uuid.UUID, v int64) (int, error) {
			t.Fatal("no removal may happen when nothing matches")
			return 0, nil
		},
	}

	svc := newTestService(newFakeStore(), batches)
	result, err := svc.FilterBatch(context.Background(), batches.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Removed)
	assert.Equal(t, 1, result.Remaining)
}

func TestMaskRoundTripThroughService(t *testing.T) {
	// Short identifiers surface unmasked, matching the account helpers.
	store := newFakeStore()
	svc := newTestService(store, nil)

	result, err := svc.Add(context.Background(), AddInput{AccountNumber: "1234567"})
	require.NoError(t, err)
	assert.Equal(t, account.Mask("1234567"), result.AccountNumberMasked)
	assert.Equal(t, "1234567", result.AccountNumberMasked)
}
