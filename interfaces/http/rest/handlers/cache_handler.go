package handlers

import (
	"encoding/json"
	"net/http"

	"ixp-grapher/application/services"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// InvalidateCacheRequest is the optional body of POST /cache/invalidate
type InvalidateCacheRequest struct {
	Reason string `json:"reason"`
}

// CacheHandler exposes render cache administration
type CacheHandler struct {
	responder
	admin *services.CacheAdmin
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(admin *services.CacheAdmin, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *CacheHandler {
	return &CacheHandler{responder: responder{errs: errs, logger: logger}, admin: admin}
}

// Invalidate handles POST /cache/invalidate
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, r, pkgerrors.NewValidationError("invalid request body"))
			return
		}
	}

	if err := h.admin.Invalidate(r.Context(), auth.PrincipalFromContext(r.Context()), req.Reason); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
