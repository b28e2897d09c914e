package handler

import (
	"balance-ledger/internal/adapter/http/middleware"
	"balance-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	TransactionSvc ports.TransactionService
	AccountSvc     ports.AccountService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies every storage backend)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	accountHandler := NewAccountHandler(deps.AccountSvc)
	v1.POST("/users", rl(middleware.GroupAccounts), accountHandler.CreateUser)

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", rl(middleware.GroupAccounts), accountHandler.CreateAccount)
		accounts.DELETE("", rl(middleware.GroupAccounts), accountHandler.DeleteAccount)
		accounts.GET("", rl(middleware.GroupQueries), accountHandler.ListAccounts)
	}

	txHandler := NewTransactionHandler(deps.TransactionSvc)
	transactions := v1.Group("/transactions")
	{
		transactions.POST("/use", rl(middleware.GroupTransactions), txHandler.UseBalance)
		transactions.POST("/cancel", rl(middleware.GroupTransactions), txHandler.CancelBalance)
		transactions.GET("/:transaction_id", rl(middleware.GroupQueries), txHandler.QueryTransaction)
	}

	return r
}
