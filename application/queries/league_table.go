package queries

import (
	"context"
	"sort"
	"strings"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// LeagueTableQuery asks for every member's daily traffic ranked by metric
type LeagueTableQuery struct {
	Metric    string       `json:"metric"`
	Day       string       `json:"day"`
	Category  string       `json:"category"`
	Strict    bool         `json:"strict"`
	Principal vo.Principal `json:"-"`
}

// Validate validates the query
func (q LeagueTableQuery) Validate() error {
	return nil
}

// InOutDTO is one direction pair of a metric
type InOutDTO struct {
	In  int64 `json:"in"`
	Out int64 `json:"out"`
}

// LeagueRowDTO is one member of the league table
type LeagueRowDTO struct {
	CustomerID   int                    `json:"customer_id"`
	CustomerName string                 `json:"customer_name"`
	Periods      map[vo.Period]InOutDTO `json:"periods"`
}

// LeagueTableResult ranks members by the day period, busiest first.
type LeagueTableResult struct {
	Metric     vo.TrafficMetric `json:"metric"`
	Metrics    []ChoiceDTO      `json:"metrics"`
	Day        string           `json:"day"`
	Category   vo.Category      `json:"category"`
	Categories []ChoiceDTO      `json:"categories"`
	Rows       []LeagueRowDTO   `json:"rows"`
}

// LeagueTableHandler handles the LeagueTableQuery
type LeagueTableHandler struct {
	repo ports.ExchangeRepository
	now  func() time.Time
}

// NewLeagueTableHandler creates a new handler instance
func NewLeagueTableHandler(repo ports.ExchangeRepository) *LeagueTableHandler {
	return &LeagueTableHandler{repo: repo, now: time.Now}
}

// Handle loads the table for the requested day, today when the day is
// missing or malformed.
func (h *LeagueTableHandler) Handle(ctx context.Context, query LeagueTableQuery) (*LeagueTableResult, error) {
	metric, err := parseMetric(query.Metric, vo.MetricTotal, query.Strict)
	if err != nil {
		return nil, err
	}

	raw := strings.TrimSpace(query.Day)
	day, ok := entities.ParseDay(raw)
	if !ok {
		if query.Strict && raw != "" {
			return nil, pkgerrors.NewInvalidParameter("day", query.Day)
		}
		day = h.now().Format(entities.DayLayout)
	}

	if query.Strict {
		if err := vo.ValidateStrict(query.Category, "", "", ""); err != nil {
			return nil, err
		}
	}
	params := vo.Normalize(query.Category, "", "", "",
		targets.NormalizeContext(targets.KindCustomer, query.Principal, ""))

	summaries, err := h.repo.MemberTraffic(ctx, day, params.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load member traffic")
	}

	rows := []LeagueRowDTO{}
	for _, s := range summaries {
		c, err := h.repo.Customer(ctx, s.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to load customer")
		}
		if c == nil {
			continue
		}
		row := LeagueRowDTO{CustomerID: c.ID, CustomerName: c.Name, Periods: make(map[vo.Period]InOutDTO, len(vo.AllPeriods))}
		for _, p := range vo.AllPeriods {
			in, out := s.Periods[p].Pick(metric)
			row.Periods[p] = InOutDTO{In: in, Out: out}
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Periods[vo.PeriodDay], rows[j].Periods[vo.PeriodDay]
		if a.In+a.Out != b.In+b.Out {
			return a.In+a.Out > b.In+b.Out
		}
		return rows[i].CustomerName < rows[j].CustomerName
	})

	return &LeagueTableResult{
		Metric:     metric,
		Metrics:    metricChoices(),
		Day:        day,
		Category:   params.Category,
		Categories: categoryChoices(targets.KindCustomer, query.Principal),
		Rows:       rows,
	}, nil
}
