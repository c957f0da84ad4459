package handler

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/models"
	"gateway-reconciliation-backend/internal/repository"
	"gateway-reconciliation-backend/internal/services/blacklist"
	"gateway-reconciliation-backend/internal/services/reconciliation"
	"gateway-reconciliation-backend/internal/services/submission"
)

type BatchHandler struct {
	batches    *repository.BatchRepository
	submission *submission.Service
	recon      *reconciliation.Service
	blacklist  *blacklist.Service
	logger     *zap.Logger
}

func NewBatchHandler(
	batches *repository.BatchRepository,
	submissionSvc *submission.Service,
	reconSvc *reconciliation.Service,
	blacklistSvc *blacklist.Service,
	logger *zap.Logger,
) *BatchHandler {
	return &BatchHandler{
		batches:    batches,
		submission: submissionSvc,
		recon:      reconSvc,
		blacklist:  blacklistSvc,
		logger:     logger,
	}
}

// Upload ingests a CSV of payment instruction rows into a new batch.
// Expected header: transaction_id, amount, bank_account_number,
// customer_name, customer_email (order free, extra columns ignored).
func (h *BatchHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return
	}
	defer file.Close()

	rows, err := parseInstructionRows(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.submission.CreateBatch(c.Request.Context(), header.Filename, rows)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "batch created", "batch": batch})
}

func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	batch, err := h.batches.GetByID(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	records, err := h.batches.ListRecords(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch, "records": records})
}

func (h *BatchHandler) SubmitBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	summary, err := h.submission.SubmitBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "batch submitted", "summary": summary})
}

func (h *BatchHandler) ReconcileBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	report, err := h.recon.Reconcile(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "batch reconciled", "report": report})
}

func (h *BatchHandler) FilterBlacklisted(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch ID"})
		return
	}

	result, err := h.blacklist.FilterBatch(c.Request.Context(), batchID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "batch filtered", "result": result})
}

func (h *BatchHandler) VoidTransaction(c *gin.Context) {
	uniqueID := c.Param("uniqueId")
	if strings.TrimSpace(uniqueID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unique ID required"})
		return
	}

	record, err := h.submission.Void(c.Request.Context(), uniqueID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction voided", "record": record})
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseInstructionRows(file io.Reader) ([]submission.RowInput, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		return nil, errors.New("cannot read CSV header")
	}

	columns := make(map[string]int, len(headerRow))
	for i, name := range headerRow {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	accountCol := colIndex(columns, "bank_account_number")
	if accountCol < 0 {
		return nil, errors.New("missing bank_account_number column")
	}
	amountCol := colIndex(columns, "amount")
	if amountCol < 0 {
		return nil, errors.New("missing amount column")
	}

	var rows []submission.RowInput
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		amountMinor, err := parseAmountMinor(field(record, amountCol))
		if err != nil {
			return nil, err
		}

		rows = append(rows, submission.RowInput{
			TransactionID:     field(record, colIndex(columns, "transaction_id")),
			AmountMinor:       amountMinor,
			BankAccountNumber: field(record, accountCol),
			CustomerName:      field(record, colIndex(columns, "customer_name")),
			CustomerEmail:     field(record, colIndex(columns, "customer_email")),
		})
	}

	return rows, nil
}

func colIndex(columns map[string]int, name string) int {
	if idx, ok := columns[name]; ok {
		return idx
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
