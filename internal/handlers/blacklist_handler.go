package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gateway-reconciliation-backend/internal/services/blacklist"
	"gateway-reconciliation-backend/internal/services/chargeback"
)

type BlacklistHandler struct {
	blacklist *blacklist.Service
	pipeline  *chargeback.Pipeline
	logger    *zap.Logger
}

func NewBlacklistHandler(blacklistSvc *blacklist.Service, pipeline *chargeback.Pipeline, logger *zap.Logger) *BlacklistHandler {
	return &BlacklistHandler{
		blacklist: blacklistSvc,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// Add inserts one account into the block-list. An identifier that is
// already present is not an error; the response distinguishes the two
// outcomes.
func (h *BlacklistHandler) Add(c *gin.Context) {
	var payload struct {
		AccountNumber  string `json:"account_number"`
		Name           string `json:"name"`
		Email          string `json:"email"`
		Reason         string `json:"reason"`
		ChargebackCode string `json:"chargeback_code"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	result, err := h.blacklist.Add(c.Request.Context(), blacklist.AddInput{
		AccountNumber:  payload.AccountNumber,
		Name:           payload.Name,
		Email:          payload.Email,
		Reason:         payload.Reason,
		ChargebackCode: payload.ChargebackCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if !result.Added {
		c.JSON(http.StatusConflict, gin.H{
			"added":   false,
			"message": "account is already blacklisted",
			"account": result.AccountNumberMasked,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"added":   true,
		"account": result.AccountNumberMasked,
	})
}

// Check answers which of the given identifiers are blacklisted, as
// normalized identifiers.
func (h *BlacklistHandler) Check(c *gin.Context) {
	var payload struct {
		AccountNumbers []string `json:"account_numbers"`
	}
	if err := c.BindJSON(&payload); err != nil || payload.AccountNumbers == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "account_numbers array required"})
		return
	}

	matches, err := h.blacklist.Check(c.Request.Context(), payload.AccountNumbers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blacklisted": matches})
}

// ProcessChargebacks runs the chargeback-to-blacklist pipeline over the
// configured trigger codes.
func (h *BlacklistHandler) ProcessChargebacks(c *gin.Context) {
	result, err := h.pipeline.RunBatch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "chargebacks processed", "result": result})
}
