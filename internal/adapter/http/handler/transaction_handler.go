package handler

import (
	"balance-ledger/internal/adapter/http/dto"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"
	"balance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles balance use, cancel and lookup.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// UseBalance handles POST /api/v1/transactions/use.
func (h *TransactionHandler) UseBalance(c *gin.Context) {
	var req dto.UseBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.txSvc.UseBalance(c.Request.Context(), ports.UseBalanceRequest{
		UserID:        req.UserID,
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(result))
}

// CancelBalance handles POST /api/v1/transactions/cancel.
func (h *TransactionHandler) CancelBalance(c *gin.Context) {
	var req dto.CancelBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.txSvc.CancelBalance(c.Request.Context(), ports.CancelBalanceRequest{
		TransactionID: req.TransactionID,
		AccountNumber: req.AccountNumber,
		Amount:        req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewTransactionResponse(result))
}

// QueryTransaction handles GET /api/v1/transactions/:transaction_id.
func (h *TransactionHandler) QueryTransaction(c *gin.Context) {
	var p dto.TransactionIDParam
	if err := c.ShouldBindUri(&p); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.txSvc.QueryTransaction(c.Request.Context(), p.TransactionID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionResponse(result))
}
