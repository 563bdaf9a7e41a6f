package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/useraccounts/backend/internal/common/constants"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrTokenSecretTooWeak = errors.New("token secret must be at least 32 bytes")
	ErrIdenticalSecrets   = errors.New("access and refresh token secrets must differ")
)

type S3Config struct {
	Region        string
	Bucket        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

type KafkaConfig struct {
	Brokers    []string
	ResetTopic string
}

type Config struct {
	HTTPPort    string
	DatabaseURL string

	AccessTokenSecret  string
	AccessTokenTTL     time.Duration
	RefreshTokenSecret string
	RefreshTokenTTL    time.Duration
	ResetTokenTTL      time.Duration

	S3    S3Config
	Kafka KafkaConfig

	RequestTimeout time.Duration
}

func Load() (Config, error) {
	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}

	accessSecret, err := mustEnv("JWT_ACCESS_SECRET")
	if err != nil {
		return Config{}, err
	}
	refreshSecret, err := mustEnv("JWT_REFRESH_SECRET")
	if err != nil {
		return Config{}, err
	}
	if err := validateSecrets(accessSecret, refreshSecret); err != nil {
		return Config{}, err
	}

	return Config{
		HTTPPort:    getEnv("ACCOUNT_HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL: databaseURL,

		AccessTokenSecret:  accessSecret,
		AccessTokenTTL:     minutes(getIntEnv("JWT_ACCESS_EXP_MINUTES", constants.DefaultAccessTokenExpMinutes)),
		RefreshTokenSecret: refreshSecret,
		RefreshTokenTTL:    days(getIntEnv("JWT_REFRESH_EXP_DAYS", constants.DefaultRefreshTokenExpDays)),
		ResetTokenTTL:      minutes(getIntEnv("RESET_PASSWORD_EXP_MINUTES", constants.DefaultResetPasswordExpMinutes)),

		S3: S3Config{
			Region:        getEnv("S3_REGION", "us-east-1"),
			Bucket:        getEnv("S3_BUCKET", "avatars"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			AccessKey:     getEnv("S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("S3_SECRET_KEY", ""),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			ResetTopic: getEnv("KAFKA_RESET_PASSWORD_TOPIC", "account.password-reset"),
		},

		RequestTimeout: getDurationEnv("ACCOUNT_REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
	}, nil
}

// validateSecrets rejects weak secrets and a shared key space for the two
// token classes: leaking one secret must not allow forging the other class.
func validateSecrets(access, refresh string) error {
	if len(access) < constants.TokenSecretMinSize {
		return fmt.Errorf("%w: JWT_ACCESS_SECRET is %d bytes", ErrTokenSecretTooWeak, len(access))
	}
	if len(refresh) < constants.TokenSecretMinSize {
		return fmt.Errorf("%w: JWT_REFRESH_SECRET is %d bytes", ErrTokenSecretTooWeak, len(refresh))
	}
	if access == refresh {
		return ErrIdenticalSecrets
	}
	return nil
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
