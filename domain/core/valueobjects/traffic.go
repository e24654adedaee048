package valueobjects

import "strings"

// TrafficMetric is the daily statistic a traffic report ranks by.
type TrafficMetric string

const (
	MetricMax     TrafficMetric = "max"
	MetricTotal   TrafficMetric = "data"
	MetricAverage TrafficMetric = "average"
)

// TrafficMetrics lists every metric in display order.
var TrafficMetrics = []TrafficMetric{MetricMax, MetricTotal, MetricAverage}

// ParseTrafficMetric matches raw case-insensitively. "total" is accepted for
// the data metric.
func ParseTrafficMetric(raw string) (TrafficMetric, bool) {
	switch m := TrafficMetric(strings.ToLower(strings.TrimSpace(raw))); m {
	case MetricMax, MetricTotal, MetricAverage:
		return m, true
	case "total":
		return MetricTotal, true
	default:
		return "", false
	}
}

// Description returns the human readable name.
func (m TrafficMetric) Description() string {
	switch m {
	case MetricMax:
		return "Max"
	case MetricTotal:
		return "Total"
	case MetricAverage:
		return "Average"
	default:
		return ""
	}
}

// IsRate reports whether the metric is a per second figure that can be set
// against a port's speed.
func (m TrafficMetric) IsRate() bool {
	return m == MetricMax || m == MetricAverage
}
