package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"plp-bookstore/internal/utils"
)

// JWTAuth rejects requests without a valid bearer token and stores the
// token's user id for utils.UserIDFrom. Rejections are logged at debug level
// with the request id.
func JWTAuth(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
				logger.Debug("missing bearer token",
					zap.String("path", r.URL.Path),
					zap.String("requestID", w.Header().Get("X-Request-ID")))
				utils.JSONError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := utils.ParseJWT(token)
			if err != nil {
				logger.Debug("rejected token",
					zap.String("path", r.URL.Path),
					zap.String("requestID", w.Header().Get("X-Request-ID")),
					zap.Error(err))
				utils.JSONError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(utils.WithUserID(r.Context(), claims.UserID)))
		})
	}
}
