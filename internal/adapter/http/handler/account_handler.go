package handler

import (
	"balance-ledger/internal/adapter/http/dto"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"
	"balance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles owner and account registration endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

// CreateUser handles POST /api/v1/users.
func (h *AccountHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.accountSvc.CreateUser(c.Request.Context(), req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// CreateAccount handles POST /api/v1/accounts.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.accountSvc.CreateAccount(c.Request.Context(), ports.CreateAccountRequest{
		UserID:         req.UserID,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewAccountResponse(account))
}

// DeleteAccount handles DELETE /api/v1/accounts.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	var req dto.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	account, err := h.accountSvc.DeleteAccount(c.Request.Context(), ports.DeleteAccountRequest{
		UserID:        req.UserID,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountResponse(account))
}

// ListAccounts handles GET /api/v1/accounts?user_id=.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var q dto.ListAccountsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	accounts, err := h.accountSvc.ListAccounts(c.Request.Context(), q.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewAccountListResponse(accounts))
}
