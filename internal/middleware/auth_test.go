package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/models"
	"github.com/yorukot/apikeys/internal/obs"
	"github.com/yorukot/apikeys/internal/storage"
)

type lookupStore struct {
	creds   map[int64]models.Credential
	err     error
	lookups int
}

func (s *lookupStore) Exists(context.Context, int64) (bool, error) { return false, nil }

func (s *lookupStore) Lookup(_ context.Context, key int64) (models.Credential, error) {
	s.lookups++
	if s.err != nil {
		return models.Credential{}, s.err
	}
	cred, ok := s.creds[key]
	if !ok {
		return models.Credential{}, storage.ErrNotFound
	}
	return cred, nil
}

func (s *lookupStore) Create(context.Context, int64, models.Credential) error { return nil }
func (s *lookupStore) Ping(context.Context) error                            { return nil }
func (s *lookupStore) Close() error                                          { return nil }

func newAuthRouter(store storage.Store, metrics *obs.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/{key}", func(r chi.Router) {
		r.Use(APIKeyAuth(store, zap.NewNop(), metrics))
		r.Get("/details", func(w http.ResponseWriter, r *http.Request) {
			cred, ok := models.CredentialFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(cred.Org))
		})
	})
	return r
}

func doRequest(h http.Handler, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPIKeyAuthVerified(t *testing.T) {
	store := &lookupStore{creds: map[int64]models.Credential{1234567890: {Org: "acme", AuthLevel: 3}}}
	metrics := obs.NewMetrics()

	rr := doRequest(newAuthRouter(store, metrics), "/api/1234567890/details", "Bearer anything")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "acme", rr.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthResults.WithLabelValues(obs.AuthVerified)))
}

func TestAPIKeyAuthMalformedKey(t *testing.T) {
	for _, key := range []string{"abc", "12.5", "%20123%20", "%201234567890", "123", "-1234567890", "9999999999", "99999999999999999999"} {
		t.Run(key, func(t *testing.T) {
			store := &lookupStore{}
			rr := doRequest(newAuthRouter(store, obs.NewMetrics()), "/api/"+key+"/details", "Bearer token")

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), "api key is not 10 digit no.")
			assert.Zero(t, store.lookups)
		})
	}
}

func TestAPIKeyAuthRequiresBearer(t *testing.T) {
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer    "} {
		store := &lookupStore{creds: map[int64]models.Credential{1234567890: {Org: "acme"}}}
		rr := doRequest(newAuthRouter(store, obs.NewMetrics()), "/api/1234567890/details", header)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, "header %q", header)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
		assert.Zero(t, store.lookups, "store must not be touched without a bearer token")
	}
}

func TestAPIKeyAuthRejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{name: "unknown key", reason: obs.AuthUnknownKey},
		{name: "corrupt record", err: storage.ErrCorrupt, reason: obs.AuthCorruptRecord},
		{name: "store down", err: errors.New("dial tcp: connection refused"), reason: obs.AuthStoreError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &lookupStore{creds: map[int64]models.Credential{}, err: tt.err}
			metrics := obs.NewMetrics()

			rr := doRequest(newAuthRouter(store, metrics), "/api/1234567890/details", "Bearer token")

			require.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"api key is invalid"}`, rr.Body.String())
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AuthResults.WithLabelValues(tt.reason)))
		})
	}
}
