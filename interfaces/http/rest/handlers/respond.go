package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// MemberPath is where a soft denial sends the member for the notice.
const MemberPath = "/api/v1/statistics/member/"

type responder struct {
	errs   *pkgerrors.ErrorHandler
	logger *zap.Logger
}

func (h responder) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respondError sends err. A soft denial naming its customer is redirected to
// that member's overview.
func (h responder) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pkgerrors.ErrCapabilityNotEnabled) {
		de := pkgerrors.GetDomainError(err)
		if id, ok := de.Details["customer_id"].(int); ok && id > 0 {
			de.WithDetail(pkgerrors.DetailLocation, MemberPath+strconv.Itoa(id))
		}
	}
	h.errs.Handle(w, r, err)
}
