// Package blacklist maintains the deduplicated set of bank accounts barred
// from submission and applies it to upload batches.
package blacklist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/account"
	"gateway-reconciliation-backend/internal/models"
)

// Store is the persistence port: conditional insert and lookup by
// normalized key.
type Store interface {
	Insert(ctx context.Context, entry *models.BlacklistEntry) (bool, error)
	FindByNormalized(ctx context.Context, normalized []string) ([]models.BlacklistEntry, error)
}

// BatchStore is the slice of batch persistence the filter operation needs.
type BatchStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]models.PaymentRecord, error)
	RemoveRecords(ctx context.Context, batchID uuid.UUID, ids []uuid.UUID, expectedVersion int64) (int, error)
}

// Locker serializes mutating operations per batch.
type Locker interface {
	Acquire(ctx context.Context, batchID string) (string, error)
	Release(ctx context.Context, batchID, token string) error
}

// Reason-code descriptions for the codes the EMP taxonomy currently uses in
// chargebacks. Unknown codes fall back to a generic label.
var reasonCodeDescriptions = map[string]string{
	"04": "Invalid account number",
	"14": "Account closed",
}

const manualEntryReason = "Manually blacklisted"

type Service struct {
	store   Store
	batches BatchStore
	lock    Locker
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(store Store, batches BatchStore, lock Locker, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		batches: batches,
		lock:    lock,
		logger:  logger,
		now:     time.Now,
	}
}

// AddInput is one blacklist entry request. Only the account number is
// required; the reason defaults from the chargeback code when one is given,
// else to a manual-entry label.
type AddInput struct {
	AccountNumber  string
	Name           string
	Email          string
	Reason         string
	ChargebackCode string
	CreatedBy      string
}

// AddResult distinguishes a fresh insert from an already-present entry;
// the latter is an informational outcome, not an error.
type AddResult struct {
	Added               bool
	AccountNumberMasked string
}

func (s *Service) Add(ctx context.Context, input AddInput) (*AddResult, error) {
	normalized := account.Normalize(input.AccountNumber)
	if normalized == "" {
		return nil, fmt.Errorf("%w: account number is required", models.ErrValidation)
	}

	createdBy := input.CreatedBy
	if createdBy == "" {
		createdBy = models.BlacklistCreatedByManual
	}

	entry := &models.BlacklistEntry{
		ID:                      uuid.New(),
		AccountNumberNormalized: normalized,
		AccountNumberMasked:     account.Mask(normalized),
		Name:                    input.Name,
		Email:                   input.Email,
		Reason:                  resolveReason(input),
		CreatedBy:               createdBy,
		CreatedAt:               s.now().UTC(),
	}

	added, err := s.store.Insert(ctx, entry)
	if err != nil {
		return nil, err
	}

	if added {
		s.logger.Info("account blacklisted",
			zap.String("account", entry.AccountNumberMasked),
			zap.String("created_by", entry.CreatedBy))
	}

	return &AddResult{Added: added, AccountNumberMasked: entry.AccountNumberMasked}, nil
}

// ReasonForCode builds the canonical chargeback-derived reason string.
func ReasonForCode(code, description string) string {
	if description == "" {
		description = reasonCodeDescriptions[code]
	}
	if description == "" {
		description = "Chargeback received"
	}
	return fmt.Sprintf("Chargeback %s: %s", code, description)
}

func resolveReason(input AddInput) string {
	if input.Reason != "" {
		return input.Reason
	}
	if input.ChargebackCode != "" {
		return ReasonForCode(input.ChargebackCode, "")
	}
	return manualEntryReason
}

// Check returns the normalized forms of the given raw identifiers that are
// blacklisted. Normalization is applied symmetrically, so case and
// whitespace variants of a stored account still match.
func (s *Service) Check(ctx context.Context, accountNumbers []string) ([]string, error) {
	normalized := make([]string, 0, len(accountNumbers))
	seen := make(map[string]bool, len(accountNumbers))
	for _, raw := range accountNumbers {
		n := account.Normalize(raw)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
	}

	entries, err := s.store.FindByNormalized(ctx, normalized)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, e.AccountNumberNormalized)
	}
	sort.Strings(matches)
	return matches, nil
}

// FilterResult reports a destructive batch clean: which row indexes were
// removed and how many records remain.
type FilterResult struct {
	RemovedIndexes []int `json:"removed_indexes"`
	Removed        int   `json:"removed"`
	Remaining      int   `json:"remaining"`
}

// FilterBatch removes every record whose bank account is blacklisted,
// preserving relative order and re-sequencing the remainder from zero.
// This is one-way; the caller owns keeping the source file if recovery is
// ever needed.
func (s *Service) FilterBatch(ctx context.Context, batchID uuid.UUID) (*FilterResult, error) {
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
		numbers = append(numbers, records[i].BankAccountNumber)
	}

	matches, err := s.Check(ctx, numbers)
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]bool, len(matches))
	for _, m := range matches {
		blocked[m] = true
	}

	result := &FilterResult{RemovedIndexes: make([]int, 0)}
	removeIDs := make([]uuid.UUID, 0)
	for i := range records {
		if blocked[account.Normalize(records[i].BankAccountNumber)] {
			result.RemovedIndexes = append(result.RemovedIndexes, records[i].RowIndex)
			removeIDs = append(removeIDs, records[i].ID)
		}
	}
	result.Removed = len(removeIDs)

	if len(removeIDs) == 0 {
		result.Remaining = len(records)
		return result, nil
	}

	remaining, err := s.batches.RemoveRecords(ctx, batchID, removeIDs, batch.Version)
	if err != nil {
		return nil, err
	}
	result.Remaining = remaining

	s.logger.Info("batch filtered against blacklist",
		zap.String("batch_id", batchID.String()),
		zap.Int("removed", result.Removed),
		zap.Int("remaining", result.Remaining))

	return result, nil
}
