package backends

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"

	"go.uber.org/zap"
)

// Mrtg serves graphs from an MRTG working directory: one PNG per period and
// one .log file per target and category.
type Mrtg struct {
	fetch *fetcher
	caps  services.Capabilities
	now   func() time.Time
}

// NewMrtg creates the MRTG backend. location is a base URL or a directory.
func NewMrtg(location string, timeout time.Duration, logger *zap.Logger) (*Mrtg, error) {
	f, err := newFetcher(services.BackendMrtg, location, timeout, logger)
	if err != nil {
		return nil, err
	}
	return &Mrtg{
		fetch: f,
		caps:  services.DefaultCapabilities[services.BackendMrtg],
		now:   time.Now,
	}, nil
}

func (m *Mrtg) ID() services.BackendID { return services.BackendMrtg }

// Supports additionally requires that the graphed port is one MRTG polls.
func (m *Mrtg) Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool {
	if !m.caps.Allows(target.Kind(), category, protocol) {
		return false
	}
	if pi, ok := target.(targets.PhysicalInterface); ok {
		return pi.Interface.Graphable()
	}
	return true
}

func (m *Mrtg) Render(ctx context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	base, err := mrtgPath(query.Target, query.Params.Category)
	if err != nil {
		return nil, err
	}

	if query.Params.Type != vo.OutputRawData {
		data, err := m.fetch.get(ctx, fmt.Sprintf("%s-%s.png", base, query.Params.Period), nil)
		if err != nil {
			return nil, err
		}
		return &ports.Artifact{Data: data, ContentType: query.Params.Type.ContentType(), Backend: m.ID()}, nil
	}

	raw, err := m.fetch.get(ctx, base+".log", nil)
	if err != nil {
		return nil, err
	}
	points, err := parseMrtgLog(raw, m.now().Add(-periodWindow(query.Params.Period)))
	if err != nil {
		return nil, err
	}
	if query.Params.Category == vo.CategoryBits {
		for i := range points {
			points[i].scale(8)
		}
	}

	data, err := json.Marshal(series{
		Target:   query.Target.Identity(),
		Category: query.Params.Category,
		Protocol: query.Params.Protocol,
		Period:   query.Params.Period,
		Points:   points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mrtg series: %w", err)
	}
	return &ports.Artifact{Data: data, ContentType: query.Params.Type.ContentType(), Backend: m.ID()}, nil
}

// mrtgPath is the file stem of a target's graph, without period or suffix.
func mrtgPath(target targets.GraphTarget, category vo.Category) (string, error) {
	cat := string(category)
	switch t := target.(type) {
	case targets.Overall:
		return fmt.Sprintf("ixp/ixp-aggregate-%s", cat), nil
	case targets.Infrastructure:
		return fmt.Sprintf("infras/%03d/infra-%03d-aggregate-%s", t.Infrastructure.ID, t.Infrastructure.ID, cat), nil
	case targets.Switch:
		return fmt.Sprintf("switches/%03d/switch-aggregate-%05d-%s", t.Switch.ID, t.Switch.ID, cat), nil
	case targets.Trunk:
		return fmt.Sprintf("trunks/%s-%s", t.Trunk.Name, cat), nil
	case targets.Customer:
		return fmt.Sprintf("members/%05d/aggregate-%s", t.Customer.ID, cat), nil
	case targets.VirtualInterface:
		return fmt.Sprintf("members/%05d/lag-viid-%05d-%s", t.Owner.ID, t.Interface.ID, cat), nil
	case targets.PhysicalInterface:
		return fmt.Sprintf("members/%05d/ixp-pi-%05d-%s", t.Owner.ID, t.Interface.ID, cat), nil
	case targets.CoreBundleSide:
		return fmt.Sprintf("corebundles/%05d/cb-aggregate-%05d-side%s-%s", t.Bundle.ID, t.Bundle.ID, t.Side, cat), nil
	default:
		return "", fmt.Errorf("mrtg cannot graph %s targets", target.Kind())
	}
}

// Point is one sample of a traffic series. Rates are per second.
type Point struct {
	Time   int64   `json:"ts"`
	AvgIn  float64 `json:"avg_in"`
	AvgOut float64 `json:"avg_out"`
	MaxIn  float64 `json:"max_in"`
	MaxOut float64 `json:"max_out"`
}

func (p *Point) scale(f float64) {
	p.AvgIn *= f
	p.AvgOut *= f
	p.MaxIn *= f
	p.MaxOut *= f
}

// series is the raw data document every backend emits.
type series struct {
	Target   string      `json:"target"`
	Category vo.Category `json:"category"`
	Protocol vo.Protocol `json:"protocol"`
	Period   vo.Period   `json:"period"`
	Points   []Point     `json:"points"`
}

// parseMrtgLog reads an MRTG log. The first line holds the running counters
// and is skipped; the rest are "ts avgin avgout maxin maxout", newest first.
// Samples older than since are dropped and the result is oldest first.
func parseMrtgLog(raw []byte, since time.Time) ([]Point, error) {
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	cutoff := since.Unix()
	points := make([]Point, 0, 600)

	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 5 {
			return nil, fmt.Errorf("mrtg log line %d: expected 5 fields, got %d", line, len(fields))
		}

		var values [5]float64
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("mrtg log line %d: %w", line, err)
			}
			values[i] = v
		}

		ts := int64(values[0])
		if ts < cutoff {
			continue
		}
		points = append(points, Point{
			Time:   ts,
			AvgIn:  values[1],
			AvgOut: values[2],
			MaxIn:  values[3],
			MaxOut: values[4],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mrtg log: %w", err)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Time < points[j].Time })
	return points, nil
}

var _ ports.Backend = (*Mrtg)(nil)
