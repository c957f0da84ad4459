// Package chargeback grows the blacklist from adverse gateway outcomes:
// every chargeback carrying a trigger reason code is resolved back to the
// bank account it originated from and inserted exactly once.
package chargeback

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/account"
	"gateway-reconciliation-backend/internal/models"
	"gateway-reconciliation-backend/internal/services/blacklist"
)

// Store lists the recorded chargebacks; they are persisted by an external
// import flow before this pipeline runs. ListByReasonCodes only returns
// rows MarkProcessed has not stamped yet.
type Store interface {
	ListByReasonCodes(ctx context.Context, codes []string) ([]models.Chargeback, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RecordResolver follows a chargeback's gateway reference to the record it
// was submitted under.
type RecordResolver interface {
	FindRecordByGatewayUniqueID(ctx context.Context, uniqueID string) (*models.PaymentRecord, error)
}

// Blacklister is the blacklist add port.
type Blacklister interface {
	Add(ctx context.Context, input blacklist.AddInput) (*blacklist.AddResult, error)
}

// Item outcomes.
const (
	OutcomeAdded              = "added"
	OutcomeAlreadyBlacklisted = "already_blacklisted"
	OutcomeUnresolved         = "unresolved"
	OutcomeError              = "error"
)

// ItemResult is one chargeback's outcome in a pipeline run.
type ItemResult struct {
	ChargebackID        string `json:"chargeback_id"`
	ReasonCode          string `json:"reason_code"`
	AccountNumberMasked string `json:"account_number_masked,omitempty"`
	Outcome             string `json:"outcome"`
	Message             string `json:"message,omitempty"`
}

// BatchResult accounts for every chargeback the run selected.
type BatchResult struct {
	Processed int          `json:"processed"`
	Added     int          `json:"added"`
	Skipped   int          `json:"skipped"`
	Errors    int          `json:"errors"`
	Items     []ItemResult `json:"items"`
}

type Pipeline struct {
	store        Store
	records      RecordResolver
	blacklister  Blacklister
	triggerCodes map[string]bool
	logger       *zap.Logger
	now          func() time.Time
}

func NewPipeline(store Store, records RecordResolver, blacklister Blacklister, triggerCodes map[string]bool, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		store:        store,
		records:      records,
		blacklister:  blacklister,
		triggerCodes: triggerCodes,
		logger:       logger,
		now:          time.Now,
	}
}

// RunBatch processes every chargeback whose reason code is in the trigger
// set. This is a best-effort batch job: one item's failure never aborts the
// rest, and the call itself only fails if the chargeback set cannot be
// loaded.
func (p *Pipeline) RunBatch(ctx context.Context) (*BatchResult, error) {
	codes := make([]string, 0, len(p.triggerCodes))
	for code := range p.triggerCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	chargebacks, err := p.store.ListByReasonCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		Processed: len(chargebacks),
		Items:     make([]ItemResult, 0, len(chargebacks)),
	}

	for i := range chargebacks {
		item := p.processOne(ctx, &chargebacks[i])
		result.Items = append(result.Items, item)

		switch item.Outcome {
		case OutcomeAdded:
			result.Added++
		case OutcomeAlreadyBlacklisted, OutcomeUnresolved:
			result.Skipped++
		case OutcomeError:
			result.Errors++
		}
	}

	p.logger.Info("chargeback pipeline finished",
		zap.Int("processed", result.Processed),
		zap.Int("added", result.Added),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", result.Errors))

	return result, nil
}

// processOne is the explicit two-step resolve: follow the chargeback's
// gateway reference to its originating record, then conditionally insert
// that record's bank account.
func (p *Pipeline) processOne(ctx context.Context, cb *models.Chargeback) ItemResult {
	item := ItemResult{
		ChargebackID: cb.ID.String(),
		ReasonCode:   cb.ReasonCode,
	}

	record, err := p.resolveRecord(ctx, cb)
	if err != nil {
		item.Outcome = OutcomeUnresolved
		item.Message = err.Error()
		return item
	}

	added, err := p.blacklister.Add(ctx, blacklist.AddInput{
		AccountNumber: record.BankAccountNumber,
		Name:          record.CustomerName,
		Email:         record.CustomerEmail,
		Reason:        blacklist.ReasonForCode(cb.ReasonCode, cb.ReasonDescription),
		CreatedBy:     models.BlacklistCreatedBySystem,
	})
	if err != nil {
		item.Outcome = OutcomeError
		item.Message = err.Error()
		item.AccountNumberMasked = account.Mask(account.Normalize(record.BankAccountNumber))
		return item
	}

	item.AccountNumberMasked = added.AccountNumberMasked
	if added.Added {
		item.Outcome = OutcomeAdded
	} else {
		item.Outcome = OutcomeAlreadyBlacklisted
	}

	if err := p.store.MarkProcessed(ctx, cb.ID, p.now().UTC()); err != nil {
		// Bookkeeping only; the blacklist insert already landed and a rerun
		// is a no-op thanks to the dedupe key.
		p.logger.Warn("failed to mark chargeback processed",
			zap.String("chargeback_id", cb.ID.String()),
			zap.Error(err))
	}

	return item
}

func (p *Pipeline) resolveRecord(ctx context.Context, cb *models.Chargeback) (*models.PaymentRecord, error) {
	record, err := p.records.FindRecordByGatewayUniqueID(ctx, cb.OriginalTransactionUniqueID)
	if err != nil {
		return nil, err
	}
	if account.Normalize(record.BankAccountNumber) == "" {
		return nil, errEmptyAccount
	}
	return record, nil
}

var errEmptyAccount = errors.New("originating record has no bank account number")
