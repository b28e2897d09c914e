package middleware

import (
	"fmt"
	"strconv"
	"time"

	"balance-ledger/config"
	"balance-ledger/internal/core/ports"
	"balance-ledger/pkg/apperror"
	"balance-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
}

// Endpoint groups with their own counters.
const (
	GroupTransactions = "transactions"
	GroupQueries      = "queries"
	GroupAccounts     = "accounts"
)

// DefaultRateLimitRules returns the per-group limits used when nothing is configured.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupTransactions: {Limit: 100, Window: time.Minute},
		GroupQueries:      {Limit: 300, Window: time.Minute},
		GroupAccounts:     {Limit: 30, Window: time.Minute},
	}
}

// RateLimitRulesFromConfig applies the configured limit to the balance-changing group.
func RateLimitRulesFromConfig(cfg config.RateLimitConfig) map[string]RateLimitRule {
	rules := DefaultRateLimitRules()
	if cfg.Limit > 0 && cfg.Window > 0 {
		rules[GroupTransactions] = RateLimitRule{Limit: cfg.Limit, Window: cfg.Window}
	}
	return rules
}

// RateLimiter creates a rate-limiting middleware for a given endpoint group.
// Store errors let the request through.
func RateLimiter(store ports.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Abort(c, apperror.ErrRateLimitExceeded())
			return
		}

		c.Next()
	}
}
