package handlers

import (
	"net/http"
	"strconv"

	"ixp-grapher/application/queries"
	querybus "ixp-grapher/application/queries/bus"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// GraphHandler serves rendered graphs
type GraphHandler struct {
	responder
	queryBus      *querybus.QueryBus
	strict        bool
	defaultPeriod vo.Period
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(
	queryBus *querybus.QueryBus,
	strictParameters bool,
	defaultPeriod vo.Period,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *GraphHandler {
	return &GraphHandler{
		responder:     responder{errs: errs, logger: logger},
		queryBus:      queryBus,
		strict:        strictParameters,
		defaultPeriod: defaultPeriod,
	}
}

// RenderGraph handles GET /graph/{kind}/{id}
func (h *GraphHandler) RenderGraph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := queries.RenderGraphQuery{
		Kind:          chi.URLParam(r, "kind"),
		ID:            chi.URLParam(r, "id"),
		Destination:   q.Get("dst"),
		Side:          q.Get("side"),
		Category:      q.Get("category"),
		Protocol:      q.Get("protocol"),
		Period:        q.Get("period"),
		Type:          q.Get("type"),
		Strict:        strict(r, h.strict),
		Principal:     auth.PrincipalFromContext(r.Context()),
		DefaultPeriod: h.defaultPeriod,
	}

	result, err := querybus.Ask[*queries.RenderGraphResult](r.Context(), h.queryBus, query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	artifact := result.Artifact
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.Header().Set("X-Graph-Backend", string(artifact.Backend))
	w.Header().Set("X-Graph-Target", result.Request.Target.Identity())
	if !artifact.RenderedAt.IsZero() {
		w.Header().Set("Last-Modified", artifact.RenderedAt.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.Debug("Failed to write graph", zap.Error(err))
	}
}
