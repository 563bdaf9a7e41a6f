package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AccessTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	RefreshTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_issued_total",
			Help: "Total number of refresh tokens issued",
		},
	)

	RefreshTokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refresh_tokens_revoked_total",
			Help: "Total number of refresh tokens revoked",
		},
	)

	ResetTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reset_tokens_issued_total",
			Help: "Total number of password reset tokens issued",
		},
	)

	ResetTokensConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reset_tokens_consumed_total",
			Help: "Total number of password reset tokens consumed",
		},
	)

	TokenVerificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_verification_failures_total",
			Help: "Total number of token verification failures by kind",
		},
		[]string{"token_type", "kind"},
	)

	TokensCleanupDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_cleanup_deleted_total",
			Help: "Total number of expired token rows deleted by the cleanup sweeps",
		},
		[]string{"store"},
	)
)
