package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/models"
	"github.com/yorukot/apikeys/internal/services"
)

const maxBodyBytes = 1 << 20

// APIHandler handles API requests
type APIHandler struct {
	keyService *services.KeyService
	logger     *zap.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(keyService *services.KeyService, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		keyService: keyService,
		logger:     logger,
	}
}

// CreateRequest represents the key issuance payload
type CreateRequest struct {
	Org       *string `json:"org"`
	AuthLevel *uint64 `json:"auth_level"`
}

// CreateResponse carries the newly issued key
type CreateResponse struct {
	APIKey int64 `json:"api_key"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Index serves the help text
func (h *APIHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("goto /create to create a api key"))
}

// CreateKey issues a new API key for the submitted credential
func (h *APIHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req CreateRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	// the body must hold exactly one JSON value
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Org == nil || req.AuthLevel == nil {
		respondError(w, "org and auth_level are required", http.StatusBadRequest)
		return
	}
	// the level must fit the signed 64-bit column of the sqlite backend
	if *req.AuthLevel > math.MaxInt64 {
		respondError(w, "auth_level is out of range", http.StatusBadRequest)
		return
	}

	key, err := h.keyService.Issue(r.Context(), models.Credential{
		Org:       *req.Org,
		AuthLevel: *req.AuthLevel,
	})
	if err != nil {
		h.logger.Error("failed to issue api key",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
		// store errors are reported verbatim on issuance
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, CreateResponse{APIKey: key}, http.StatusOK)
}

// Details returns the credential resolved by the auth middleware
func (h *APIHandler) Details(w http.ResponseWriter, r *http.Request) {
	cred, ok := models.CredentialFromContext(r.Context())
	if !ok {
		h.logger.Error("details reached without a resolved credential",
			zap.String("request_id", chimw.GetReqID(r.Context())))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, cred, http.StatusOK)
}

// Helper functions

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{Error: message}, status)
}
