package backends

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"
	"ixp-grapher/infrastructure/config"
	"ixp-grapher/pkg/observability"
	"ixp-grapher/tests/mocks"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	peeringLan = entities.Vlan{ID: 10, Name: "Peering LAN", Number: 10, InfrastructureID: 1}
	xnet       = entities.Customer{ID: 1, Name: "X Networks"}
	ynet       = entities.Customer{ID: 2, Name: "Y Telecom"}

	xVli = targets.VlanInterface{
		Interface: entities.VlanInterface{ID: 11, VlanID: 10, IPv4Address: "192.0.2.11", IPv6Address: "2001:db8::11",
			IPv4Enabled: true, IPv6Enabled: true, IPv4CanPing: true},
		Vlan:  peeringLan,
		Owner: xnet,
	}
	yVli = targets.VlanInterface{
		Interface: entities.VlanInterface{ID: 22, VlanID: 10, IPv4Address: "192.0.2.22", IPv4Enabled: true},
		Vlan:      peeringLan,
		Owner:     ynet,
	}
)

func params(cat vo.Category, proto vo.Protocol, period vo.Period, typ vo.OutputType) vo.GraphParams {
	return vo.GraphParams{Category: cat, Protocol: proto, Period: period, Type: typ}
}

func TestMrtg_RendersImageFromDirectory(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "switches", "001"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "switches", "001", "switch-aggregate-00001-bits-week.png"), []byte("PNG"), 0o600))

	m, err := NewMrtg(dir, time.Second, zap.NewNop())
	require.NoError(t, err)

	// Act
	artifact, err := m.Render(context.Background(), ports.BackendQuery{
		Target: targets.Switch{Switch: entities.Switch{ID: 1, Name: "swi1-core", Active: true}},
		Params: params(vo.CategoryBits, vo.ProtocolAll, vo.PeriodWeek, vo.OutputImage),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte("PNG"), artifact.Data)
	assert.Equal(t, "image/png", artifact.ContentType)
	assert.Equal(t, services.BackendMrtg, artifact.Backend)
}

func TestMrtg_MissingFileIsNotFound(t *testing.T) {
	m, err := NewMrtg(t.TempDir(), time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = m.Render(context.Background(), ports.BackendQuery{
		Target: targets.Overall{},
		Params: params(vo.CategoryBits, vo.ProtocolAll, vo.PeriodDay, vo.OutputImage),
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.NotFound())
}

func TestMrtg_RawDataFromLog(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	now := time.Unix(1_700_000_000, 0)
	log := fmtLog(now,
		[]int64{now.Unix() - 300, now.Unix() - 600, now.Unix() - 3*24*3600},
	)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "members", "00001"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "members", "00001", "aggregate-bits.log"), []byte(log), 0o600))

	m, err := NewMrtg(dir, time.Second, zap.NewNop())
	require.NoError(t, err)
	m.now = func() time.Time { return now }

	// Act
	artifact, err := m.Render(context.Background(), ports.BackendQuery{
		Target: targets.Customer{Customer: xnet},
		Params: params(vo.CategoryBits, vo.ProtocolAll, vo.PeriodDay, vo.OutputRawData),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "application/json", artifact.ContentType)

	var doc series
	require.NoError(t, json.Unmarshal(artifact.Data, &doc))
	assert.Equal(t, "customer:1", doc.Target)
	require.Len(t, doc.Points, 2, "samples outside the day window are dropped")
	assert.Equal(t, now.Unix()-600, doc.Points[0].Time, "oldest first")
	assert.Equal(t, float64(800), doc.Points[0].AvgIn, "bytes are reported as bits")
}

// fmtLog writes an MRTG log with one 100/200/150/250 byte sample per stamp.
func fmtLog(now time.Time, stamps []int64) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d 123456789 987654321\n", now.Unix())
	for _, ts := range stamps {
		fmt.Fprintf(&buf, "%d 100 200 150 250\n", ts)
	}
	return buf.String()
}

func TestParseMrtgLog_RejectsMalformedLine(t *testing.T) {
	_, err := parseMrtgLog([]byte("1 2 3\n1700000000 1 2\n"), time.Unix(0, 0))

	assert.ErrorContains(t, err, "expected 5 fields")
}

func TestSflow_RequestsProtocolPath(t *testing.T) {
	// Arrange
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("sflow-png"))
	}))
	defer server.Close()

	s, err := NewSflow(server.URL+"/grapher", time.Second, zap.NewNop())
	require.NoError(t, err)

	// Act
	artifact, err := s.Render(context.Background(), ports.BackendQuery{
		Target: targets.PeerPair{Source: xVli, Destination: yVli},
		Params: params(vo.CategoryPackets, vo.ProtocolIPv6, vo.PeriodMonth, vo.OutputImage),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "/grapher/p2p/11/22/ipv6/pkts/month.png", gotPath)
	assert.Equal(t, []byte("sflow-png"), artifact.Data)
}

func TestSflow_ServerErrorIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rrd locked", http.StatusInternalServerError)
	}))
	defer server.Close()

	s, err := NewSflow(server.URL, time.Second, zap.NewNop())
	require.NoError(t, err)

	_, err = s.Render(context.Background(), ports.BackendQuery{
		Target: targets.Vlan{Vlan: peeringLan},
		Params: params(vo.CategoryBits, vo.ProtocolIPv4, vo.PeriodDay, vo.OutputImage),
	})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.False(t, statusErr.NotFound())
}

func TestSflow_Supports(t *testing.T) {
	s, err := NewSflow("http://sflow.example", time.Second, zap.NewNop())
	require.NoError(t, err)

	otherLan := yVli
	otherLan.Vlan = entities.Vlan{ID: 20, Number: 20}

	tests := []struct {
		name     string
		target   targets.GraphTarget
		protocol vo.Protocol
		want     bool
	}{
		{"vlan ipv4", targets.Vlan{Vlan: peeringLan}, vo.ProtocolIPv4, true},
		{"vlan all", targets.Vlan{Vlan: peeringLan}, vo.ProtocolAll, false},
		{"switch", targets.Switch{}, vo.ProtocolIPv4, false},
		{"interface without ipv6", yVli, vo.ProtocolIPv6, false},
		{"interface with ipv6", xVli, vo.ProtocolIPv6, true},
		{"pair on one vlan", targets.PeerPair{Source: xVli, Destination: yVli}, vo.ProtocolIPv4, true},
		{"pair across vlans", targets.PeerPair{Source: xVli, Destination: otherLan}, vo.ProtocolIPv4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Supports(tt.target, vo.CategoryBits, tt.protocol))
		})
	}
}

func TestSmokeping_RendersLatencyGraph(t *testing.T) {
	// Arrange
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"path":        r.URL.Path,
			"target":      r.URL.Query().Get("target"),
			"start":       r.URL.Query().Get("start"),
			"displaymode": r.URL.Query().Get("displaymode"),
		}
		w.Write([]byte("latency-png"))
	}))
	defer server.Close()

	s, err := NewSmokeping(server.URL+"/smokeping.cgi", time.Second, zap.NewNop())
	require.NoError(t, err)
	target := targets.Latency{VlanInterface: xVli, Protocol: vo.ProtocolIPv4}

	// Act
	artifact, err := s.Render(context.Background(), ports.BackendQuery{
		Target: target,
		Params: params(vo.CategoryBits, vo.ProtocolIPv4, vo.PeriodWeek, vo.OutputImage),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []byte("latency-png"), artifact.Data)
	assert.Equal(t, map[string]string{
		"path":        "/smokeping.cgi",
		"target":      "infra_1.vlan_10.vlanint_11_ipv4",
		"start":       "now-1w",
		"displaymode": "a",
	}, got)
}

func TestSmokeping_Supports(t *testing.T) {
	s, err := NewSmokeping("http://smokeping.example/smokeping.cgi", time.Second, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Supports(targets.Latency{VlanInterface: xVli, Protocol: vo.ProtocolIPv4}, vo.CategoryBits, vo.ProtocolIPv4))
	assert.False(t, s.Supports(targets.Latency{VlanInterface: xVli, Protocol: vo.ProtocolIPv6}, vo.CategoryBits, vo.ProtocolIPv6))
	assert.False(t, s.Supports(xVli, vo.CategoryBits, vo.ProtocolIPv4))
}

func TestSmokeping_RequiresURL(t *testing.T) {
	_, err := NewSmokeping("/var/lib/smokeping", time.Second, zap.NewNop())

	assert.Error(t, err)
}

func TestDummy_RendersDecodablePNG(t *testing.T) {
	d := NewDummy()
	query := ports.BackendQuery{
		Target: targets.Overall{},
		Params: params(vo.CategoryBits, vo.ProtocolAll, vo.PeriodDay, vo.OutputImage),
	}

	first, err := d.Render(context.Background(), query)
	require.NoError(t, err)
	second, err := d.Render(context.Background(), query)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(first.Data))
	require.NoError(t, err)
	assert.Equal(t, dummyWidth, img.Bounds().Dx())
	assert.Equal(t, first.Data, second.Data, "placeholders are stable")
	assert.True(t, d.Supports(targets.Latency{}, vo.CategoryBits, vo.ProtocolIPv6))
}

func TestDummy_RawSeries(t *testing.T) {
	d := NewDummy()

	artifact, err := d.Render(context.Background(), ports.BackendQuery{
		Target: targets.Vlan{Vlan: peeringLan},
		Params: params(vo.CategoryPackets, vo.ProtocolIPv4, vo.PeriodYear, vo.OutputRawData),
	})

	require.NoError(t, err)
	var doc series
	require.NoError(t, json.Unmarshal(artifact.Data, &doc))
	assert.Len(t, doc.Points, 48)
	assert.Equal(t, vo.PeriodYear, doc.Period)
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	// Arrange
	inner := mocks.NewMockBackend(services.BackendSflow)
	inner.On("Render", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	metrics := observability.NewCollector("test")

	b := WithBreaker(inner, BreakerConfig{
		MaxRequests:      1,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      2,
	}, metrics, zap.NewNop())
	query := ports.BackendQuery{Target: targets.Overall{}, Params: params(vo.CategoryBits, vo.ProtocolIPv4, vo.PeriodDay, vo.OutputImage)}

	// Act
	_, err1 := b.Render(context.Background(), query)
	_, err2 := b.Render(context.Background(), query)
	_, err3 := b.Render(context.Background(), query)

	// Assert
	assert.ErrorContains(t, err1, "connection refused")
	assert.ErrorContains(t, err2, "connection refused")
	assert.ErrorIs(t, err3, ErrBreakerOpen)
	inner.AssertNumberOfCalls(t, "Render", 2)
	assert.Equal(t, gobreaker.StateOpen, State(b))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.BreakerState.WithLabelValues("sflow")))
}

func TestWithBreaker_MissingDataDoesNotTrip(t *testing.T) {
	inner := mocks.NewMockBackend(services.BackendMrtg)
	inner.On("Render", mock.Anything, mock.Anything).
		Return(nil, &StatusError{Backend: services.BackendMrtg, StatusCode: http.StatusNotFound})

	b := WithBreaker(inner, BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 0.5, MinRequests: 1}, nil, zap.NewNop())
	query := ports.BackendQuery{Target: targets.Overall{}, Params: params(vo.CategoryBits, vo.ProtocolAll, vo.PeriodDay, vo.OutputImage)}

	for i := 0; i < 3; i++ {
		_, err := b.Render(context.Background(), query)
		assert.Error(t, err)
	}

	inner.AssertNumberOfCalls(t, "Render", 3)
	assert.Equal(t, gobreaker.StateClosed, State(b))
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	inner := mocks.NewMockBackend(services.BackendMrtg)
	inner.On("Supports", mock.Anything, mock.Anything, mock.Anything).Return(true)
	inner.On("Render", mock.Anything, mock.Anything).Return(mocks.PNG(services.BackendMrtg), nil)

	b := WithBreaker(inner, DefaultBreakerConfig(), nil, zap.NewNop())

	artifact, err := b.Render(context.Background(), ports.BackendQuery{Target: targets.Overall{}})

	require.NoError(t, err)
	assert.Equal(t, services.BackendMrtg, artifact.Backend)
	assert.Equal(t, services.BackendMrtg, b.ID())
	assert.True(t, b.Supports(targets.Overall{}, vo.CategoryBits, vo.ProtocolAll))
}

func TestNewRegistry(t *testing.T) {
	cfg := config.GrapherConfig{
		Backends:  []string{"sflow", "dummy", "mrtg"},
		Mrtg:      config.BackendConfig{Location: t.TempDir(), Timeout: time.Second},
		Sflow:     config.BackendConfig{Location: "http://sflow.example", Timeout: time.Second},
		Smokeping: config.BackendConfig{Location: "http://smokeping.example", Timeout: time.Second},
	}

	reg, err := NewRegistry(cfg, nil, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, []services.BackendID{services.BackendSflow, services.BackendDummy, services.BackendMrtg}, reg.Order)
	require.Len(t, reg.Backends, 3)
	assert.Equal(t, services.BackendDummy, reg.Backends[1].ID())
}

func TestNewRegistry_RejectsUnknownBackend(t *testing.T) {
	_, err := NewRegistry(config.GrapherConfig{Backends: []string{"cacti"}}, nil, zap.NewNop())

	assert.ErrorContains(t, err, "unknown graph backend")
}
