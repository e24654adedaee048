package valueobjects

import (
	"strings"

	pkgerrors "ixp-grapher/pkg/errors"
)

// Category is the measurement dimension of a graph.
type Category string

const (
	CategoryBits       Category = "bits"
	CategoryPackets    Category = "pkts"
	CategoryErrors     Category = "errs"
	CategoryDiscards   Category = "discs"
	CategoryBroadcasts Category = "bcasts"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{CategoryBits, CategoryPackets, CategoryErrors, CategoryDiscards, CategoryBroadcasts}

// BitsPacketsCategories is the subset every principal may request.
var BitsPacketsCategories = []Category{CategoryBits, CategoryPackets}

var categoryDescriptions = map[Category]string{
	CategoryBits:       "Bits",
	CategoryPackets:    "Packets",
	CategoryErrors:     "Errors",
	CategoryDiscards:   "Discards",
	CategoryBroadcasts: "Broadcasts",
}

var categoryAliases = map[string]Category{
	"packets":    CategoryPackets,
	"errors":     CategoryErrors,
	"discards":   CategoryDiscards,
	"broadcasts": CategoryBroadcasts,
}

// ParseCategory matches raw case-insensitively against the enumeration and
// its long-form aliases.
func ParseCategory(raw string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	c := Category(key)
	_, ok := categoryDescriptions[c]
	return c, ok
}

// Description returns the human readable name.
func (c Category) Description() string {
	return categoryDescriptions[c]
}

// Protocol is the IP protocol scope of a graph.
type Protocol string

const (
	ProtocolAll  Protocol = "all"
	ProtocolIPv4 Protocol = "ipv4"
	ProtocolIPv6 Protocol = "ipv6"
)

// RealProtocols excludes the aggregate "all" scope.
var RealProtocols = []Protocol{ProtocolIPv4, ProtocolIPv6}

// ParseProtocol matches raw case-insensitively against the enumeration.
func ParseProtocol(raw string) (Protocol, bool) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(raw))); p {
	case ProtocolAll, ProtocolIPv4, ProtocolIPv6:
		return p, true
	default:
		return "", false
	}
}

// IsReal reports whether p names a single IP version.
func (p Protocol) IsReal() bool {
	return p == ProtocolIPv4 || p == ProtocolIPv6
}

// Description returns the human readable name.
func (p Protocol) Description() string {
	switch p {
	case ProtocolIPv4:
		return "IPv4"
	case ProtocolIPv6:
		return "IPv6"
	default:
		return "All"
	}
}

// Period is the time window of a graph.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// AllPeriods lists every period from shortest to longest.
var AllPeriods = []Period{PeriodDay, PeriodWeek, PeriodMonth, PeriodYear}

// ParsePeriod matches raw case-insensitively against the enumeration.
func ParsePeriod(raw string) (Period, bool) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return p, true
	default:
		return "", false
	}
}

// OutputType selects between a rendered image and the raw series.
type OutputType string

const (
	OutputImage   OutputType = "png"
	OutputRawData OutputType = "json"
)

// ParseOutputType accepts the canonical names plus image, raw and rawdata.
func ParseOutputType(raw string) (OutputType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "png", "image":
		return OutputImage, true
	case "json", "raw", "rawdata":
		return OutputRawData, true
	default:
		return "", false
	}
}

// ContentType is the MIME type backends produce for this output.
func (t OutputType) ContentType() string {
	if t == OutputRawData {
		return "application/json"
	}
	return "image/png"
}

// GraphParams are the normalized parameters of a graph request.
type GraphParams struct {
	Category Category   `json:"category"`
	Protocol Protocol   `json:"protocol"`
	Period   Period     `json:"period"`
	Type     OutputType `json:"type"`
}

// NormalizeContext carries the call-site rules the normalizer applies.
type NormalizeContext struct {
	// RequiresRealProtocol coerces "all" to ipv4.
	RequiresRealProtocol bool

	// DefaultPeriod replaces day as the fallback period when set.
	DefaultPeriod Period

	// AllowedCategories restricts the category; nil means bits and packets.
	AllowedCategories []Category
}

// Normalize coerces raw request strings into GraphParams. It never fails:
// unknown or disallowed values fall back to their defaults.
func Normalize(rawCategory, rawProtocol, rawPeriod, rawType string, nctx NormalizeContext) GraphParams {
	allowed := nctx.AllowedCategories
	if allowed == nil {
		allowed = BitsPacketsCategories
	}

	category, ok := ParseCategory(rawCategory)
	if !ok || !containsCategory(allowed, category) {
		category = CategoryBits
	}

	protocol, ok := ParseProtocol(rawProtocol)
	if !ok {
		protocol = ProtocolAll
	}
	if nctx.RequiresRealProtocol && !protocol.IsReal() {
		protocol = ProtocolIPv4
	}

	period, ok := ParsePeriod(rawPeriod)
	if !ok {
		period = PeriodDay
		if nctx.DefaultPeriod != "" {
			period = nctx.DefaultPeriod
		}
	}

	outputType, ok := ParseOutputType(rawType)
	if !ok {
		outputType = OutputImage
	}

	return GraphParams{
		Category: category,
		Protocol: protocol,
		Period:   period,
		Type:     outputType,
	}
}

// ValidateStrict rejects supplied values that are not in their enumeration.
// Empty values are accepted; Normalize will default them.
func ValidateStrict(rawCategory, rawProtocol, rawPeriod, rawType string) error {
	if rawCategory != "" {
		if _, ok := ParseCategory(rawCategory); !ok {
			return pkgerrors.NewInvalidParameter("category", rawCategory)
		}
	}
	if rawProtocol != "" {
		if _, ok := ParseProtocol(rawProtocol); !ok {
			return pkgerrors.NewInvalidParameter("protocol", rawProtocol)
		}
	}
	if rawPeriod != "" {
		if _, ok := ParsePeriod(rawPeriod); !ok {
			return pkgerrors.NewInvalidParameter("period", rawPeriod)
		}
	}
	if rawType != "" {
		if _, ok := ParseOutputType(rawType); !ok {
			return pkgerrors.NewInvalidParameter("type", rawType)
		}
	}
	return nil
}

func containsCategory(set []Category, c Category) bool {
	for _, candidate := range set {
		if candidate == c {
			return true
		}
	}
	return false
}
