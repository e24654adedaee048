package entities

import (
	"time"

	vo "ixp-grapher/domain/core/valueobjects"
)

// DayLayout is the format of traffic summary days.
const DayLayout = "2006-01-02"

// TrafficFigures are the in and out statistics of one period. Totals are
// volumes; max and average are per second.
type TrafficFigures struct {
	TotalIn    int64 `yaml:"total_in" json:"total_in"`
	TotalOut   int64 `yaml:"total_out" json:"total_out"`
	MaxIn      int64 `yaml:"max_in" json:"max_in"`
	MaxOut     int64 `yaml:"max_out" json:"max_out"`
	AverageIn  int64 `yaml:"average_in" json:"average_in"`
	AverageOut int64 `yaml:"average_out" json:"average_out"`
}

// Pick returns the in and out values of metric.
func (f TrafficFigures) Pick(metric vo.TrafficMetric) (in, out int64) {
	switch metric {
	case vo.MetricMax:
		return f.MaxIn, f.MaxOut
	case vo.MetricAverage:
		return f.AverageIn, f.AverageOut
	default:
		return f.TotalIn, f.TotalOut
	}
}

// PortTraffic is the daily summary of one physical interface.
type PortTraffic struct {
	Day                 string                       `yaml:"day" json:"day"`
	PhysicalInterfaceID int                          `yaml:"physical_interface" json:"physical_interface_id"`
	Category            vo.Category                  `yaml:"category" json:"category"`
	Periods             map[vo.Period]TrafficFigures `yaml:"periods" json:"periods"`
}

// MemberTraffic is the daily summary of one customer.
type MemberTraffic struct {
	Day        string                       `yaml:"day" json:"day"`
	CustomerID int                          `yaml:"customer" json:"customer_id"`
	Category   vo.Category                  `yaml:"category" json:"category"`
	Periods    map[vo.Period]TrafficFigures `yaml:"periods" json:"periods"`
}

// ParseDay reports whether raw is a well formed summary day.
func ParseDay(raw string) (string, bool) {
	d, err := time.Parse(DayLayout, raw)
	if err != nil {
		return "", false
	}
	return d.Format(DayLayout), true
}
