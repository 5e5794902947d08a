package web

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"
)

// auth guards a handler behind the x-api-key header: a missing key is
// 401, a wrong one 403.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("x-api-key")
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing api key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			s.logger.Warn("rejected request with wrong api key",
				zap.String("path", r.URL.Path), zap.String("remote", r.RemoteAddr))
			writeError(w, http.StatusForbidden, "invalid api key")
			return
		}
		next(w, r)
	}
}
