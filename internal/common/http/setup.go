package http

import (
	"net/http"

	"github.com/useraccounts/backend/internal/common/constants"
	"github.com/useraccounts/backend/internal/common/logger"
)

// BuildBaseHandler wraps the service mux with the shared middleware chain.
func BuildBaseHandler(log *logger.Logger, handler http.Handler) http.Handler {
	recovery := RecoveryMiddleware(log)
	maxRequestSize := MaxRequestSizeMiddleware(constants.MaxAvatarSizeBytes)

	return SecurityHeadersMiddleware(recovery(TraceIDMiddleware(maxRequestSize(MetricsMiddleware(handler)))))
}
