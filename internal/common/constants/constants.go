package constants

import "time"

const (
	NameMinLength      = 3
	NameMaxLength      = 30
	PasswordMinLength  = 3
	PasswordMaxLength  = 30
	TokenSecretMinSize = 32
	ResetTokenRandSize = 24

	MaxAvatarSizeBytes    = 5 * 1024 * 1024
	DefaultMaxRequestSize = 1 << 20

	MaxUsersFetchLimit     = 100
	DefaultUsersFetchLimit = 100

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second
	DBQueryTimeout        = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	TokenCleanupInterval = time.Hour

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 5 * time.Second

	DefaultAccessTokenExpMinutes   = 30
	DefaultRefreshTokenExpDays     = 7
	DefaultResetPasswordExpMinutes = 30

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
