package handlers

import (
	"net/http"

	"ixp-grapher/application/queries"
	querybus "ixp-grapher/application/queries/bus"
	"ixp-grapher/domain/core/targets"
	"ixp-grapher/interfaces/http/rest/middleware"
	"ixp-grapher/pkg/auth"
	pkgerrors "ixp-grapher/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatisticsHandler serves the statistics views
type StatisticsHandler struct {
	responder
	queryBus *querybus.QueryBus
	strict   bool
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(queryBus *querybus.QueryBus, strictParameters bool, errs *pkgerrors.ErrorHandler, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		responder: responder{errs: errs, logger: logger},
		queryBus:  queryBus,
		strict:    strictParameters,
	}
}

// Listing returns the handler of one listing view: overall, infrastructure,
// vlan, switch or trunk.
func (h *StatisticsHandler) Listing(kind targets.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ask(h.responder, w, r, h.queryBus, queries.ListTargetsQuery{
			Kind:      kind,
			ID:        chi.URLParam(r, "id"),
			Category:  q.Get("category"),
			Protocol:  q.Get("protocol"),
			Period:    q.Get("period"),
			Strict:    strict(r, h.strict),
			Principal: auth.PrincipalFromContext(r.Context()),
		})
	}
}

// Members handles GET /members
func (h *StatisticsHandler) Members(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.MembersQuery{
		Infrastructure: q.Get("infra"),
		Vlan:           q.Get("vlan"),
		Category:       q.Get("category"),
		Protocol:       q.Get("protocol"),
		Period:         q.Get("period"),
		Principal:      auth.PrincipalFromContext(r.Context()),
	})
}

// Member handles GET /member/{id}
func (h *StatisticsHandler) Member(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.MemberQuery{
		CustomerID: chi.URLParam(r, "id"),
		Category:   q.Get("category"),
		Period:     q.Get("period"),
		Principal:  auth.PrincipalFromContext(r.Context()),
	})
}

// MemberDrilldown handles GET /member-drilldown/{type}/{id}
func (h *StatisticsHandler) MemberDrilldown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.MemberDrilldownQuery{
		Type:      chi.URLParam(r, "type"),
		ID:        chi.URLParam(r, "id"),
		Category:  q.Get("category"),
		Protocol:  q.Get("protocol"),
		Principal: auth.PrincipalFromContext(r.Context()),
	})
}

// Latency handles GET /latency/{vliID}/{protocol}
func (h *StatisticsHandler) Latency(w http.ResponseWriter, r *http.Request) {
	protocol := chi.URLParam(r, "protocol")
	if protocol == "" {
		protocol = r.URL.Query().Get("protocol")
	}
	ask(h.responder, w, r, h.queryBus, queries.LatencyQuery{
		VlanInterfaceID: chi.URLParam(r, "vliID"),
		Protocol:        protocol,
		Principal:       auth.PrincipalFromContext(r.Context()),
	})
}

// PeerToPeer handles GET /p2p/{customerID}
func (h *StatisticsHandler) PeerToPeer(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.PeerToPeerQuery{
		CustomerID:  chi.URLParam(r, "customerID"),
		Source:      q.Get("svli"),
		Destination: q.Get("dvli"),
		Category:    q.Get("category"),
		Protocol:    q.Get("protocol"),
		Period:      q.Get("period"),
		Principal:   auth.PrincipalFromContext(r.Context()),
	})
}

// CoreBundle handles GET /core-bundle/{id}
func (h *StatisticsHandler) CoreBundle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.CoreBundleQuery{
		ID:        chi.URLParam(r, "id"),
		Side:      q.Get("side"),
		Category:  q.Get("category"),
		Principal: auth.PrincipalFromContext(r.Context()),
	})
}

// SwitchConfiguration handles GET /switch-configuration
func (h *StatisticsHandler) SwitchConfiguration(w http.ResponseWriter, r *http.Request) {
	ask(h.responder, w, r, h.queryBus, queries.SwitchConfigurationQuery{
		Switch:         optional(r, "switch"),
		Infrastructure: optional(r, "infra"),
		Speed:          optional(r, "speed"),
		Session:        middleware.SessionFromContext(r.Context()),
		Principal:      auth.PrincipalFromContext(r.Context()),
	})
}

// Utilisation handles GET /utilisation
func (h *StatisticsHandler) Utilisation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.UtilisationQuery{
		Metric:    q.Get("metric"),
		Day:       q.Get("day"),
		Vlan:      q.Get("vlan"),
		Category:  q.Get("category"),
		Period:    q.Get("period"),
		Strict:    strict(r, h.strict),
		Principal: auth.PrincipalFromContext(r.Context()),
	})
}

// LeagueTable handles GET /league-table
func (h *StatisticsHandler) LeagueTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ask(h.responder, w, r, h.queryBus, queries.LeagueTableQuery{
		Metric:    q.Get("metric"),
		Day:       q.Get("day"),
		Category:  q.Get("category"),
		Strict:    strict(r, h.strict),
		Principal: auth.PrincipalFromContext(r.Context()),
	})
}

func ask(h responder, w http.ResponseWriter, r *http.Request, b *querybus.QueryBus, query querybus.Query) {
	result, err := b.Ask(r.Context(), query)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}
