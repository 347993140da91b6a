package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/models"
	"github.com/yorukot/apikeys/internal/obs"
	"github.com/yorukot/apikeys/internal/storage"
)

// KeyParam is the route parameter holding the API key
const KeyParam = "key"

var (
	errMalformedKey  = errors.New("api key is not 10 digit no.")
	errMissingBearer = errors.New("bearer token required")
)

// APIKeyAuth resolves the key in the URL path to its credential and attaches it to the
// request context. Any non-empty bearer token is accepted; the key itself is the secret.
func APIKeyAuth(store storage.Store, logger *zap.Logger, metrics *obs.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.With(zap.String("request_id", chimw.GetReqID(r.Context())))

			key, err := parseKey(chi.URLParam(r, KeyParam))
			if err != nil {
				metrics.AuthResults.WithLabelValues(obs.AuthMalformedKey).Inc()
				log.Debug("rejected malformed api key")
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}

			if _, ok := bearerToken(r.Header.Get("Authorization")); !ok {
				metrics.AuthResults.WithLabelValues(obs.AuthMissingBearer).Inc()
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, errMissingBearer.Error(), http.StatusUnauthorized)
				return
			}

			cred, err := store.Lookup(r.Context(), key)
			if err != nil {
				reason := obs.AuthStoreError
				switch {
				case errors.Is(err, storage.ErrNotFound):
					reason = obs.AuthUnknownKey
					log.Warn("api key rejected", zap.String("reason", reason))
				case errors.Is(err, storage.ErrCorrupt):
					reason = obs.AuthCorruptRecord
					log.Error("api key rejected", zap.String("reason", reason), zap.Error(err))
				default:
					log.Error("api key rejected", zap.String("reason", reason), zap.Error(err))
				}
				metrics.AuthResults.WithLabelValues(reason).Inc()
				writeError(w, "api key is invalid", http.StatusUnauthorized)
				return
			}

			metrics.AuthResults.WithLabelValues(obs.AuthVerified).Inc()
			next.ServeHTTP(w, r.WithContext(models.WithCredential(r.Context(), cred)))
		})
	}
}

// parseKey accepts only a bare base-10 integer inside the issued key range
func parseKey(raw string) (int64, error) {
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !models.InKeyRange(key) {
		return 0, errMalformedKey
	}
	return key, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message})
}
