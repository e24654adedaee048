package queries

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/application/queries/bus"
	"ixp-grapher/application/services"
	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	domainservices "ixp-grapher/domain/services"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/tests/fixtures"
	"ixp-grapher/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	bus    *bus.QueryBus
	graphs *services.GraphService
	mrtg   *mocks.MockBackend
}

func newTestEnv(t *testing.T, b *fixtures.ExchangeBuilder) testEnv {
	t.Helper()

	backends := make([]ports.Backend, 0, 3)
	var mrtg *mocks.MockBackend
	for _, id := range []domainservices.BackendID{domainservices.BackendMrtg, domainservices.BackendSflow, domainservices.BackendSmokeping} {
		m := mocks.NewMockBackend(id)
		m.On("Supports", mock.Anything, mock.Anything, mock.Anything).Return(true).Maybe()
		if id == domainservices.BackendMrtg {
			mrtg = m
		}
		backends = append(backends, m)
	}

	repo := b.Repository()
	order := []domainservices.BackendID{domainservices.BackendMrtg, domainservices.BackendSflow, domainservices.BackendSmokeping}
	dispatcher := services.NewDispatcher(domainservices.NewCapabilityMatrix(order, nil), backends, nil, nil, zap.NewNop())
	resolver := services.NewTargetResolver(repo, fixtures.Trunks(), zap.NewNop())
	graphs := services.NewGraphService(resolver, domainservices.NewAuthorizationGate(), dispatcher, zap.NewNop())

	qb := bus.NewQueryBus()
	require.NoError(t, Register(qb, graphs, repo, zap.NewNop()))
	return testEnv{bus: qb, graphs: graphs, mrtg: mrtg}
}

func ask[R any](t *testing.T, env testEnv, q bus.Query) (R, error) {
	t.Helper()
	return bus.Ask[R](context.Background(), env.bus, q)
}

func TestRenderGraph_RendersThroughEngine(t *testing.T) {
	// Arrange
	env := newTestEnv(t, fixtures.NewExchangeBuilder())
	env.mrtg.On("Render", mock.Anything, mock.MatchedBy(func(q ports.BackendQuery) bool {
		return q.Target.Identity() == "customer:1"
	})).Return(mocks.PNG(domainservices.BackendMrtg), nil).Once()

	// Act
	result, err := ask[*RenderGraphResult](t, env, RenderGraphQuery{
		Kind:      "customer",
		ID:        "1",
		Principal: fixtures.Member(fixtures.CustomerX),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, domainservices.BackendMrtg, result.Artifact.Backend)
	assert.Equal(t, targets.KindCustomer, result.Request.Target.Kind())
	env.mrtg.AssertExpectations(t)
}

func TestRenderGraph_RejectsUnknownKind(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	_, err := ask[*RenderGraphResult](t, env, RenderGraphQuery{Kind: "spaceship", Principal: fixtures.Superuser})

	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidParameter))
}

func TestListTargets_VlanFallsBackAndListsOptions(t *testing.T) {
	// Arrange
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	// Act
	result, err := ask[*ListTargetsResult](t, env, ListTargetsQuery{
		Kind:      targets.KindVlan,
		ID:        "999",
		Protocol:  "ipv6",
		Principal: fixtures.Anonymous,
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(fixtures.VlanPeering), result.Target.ID)
	assert.Len(t, result.Options, 2, "private VLANs are not offered")
	assert.Equal(t, vo.ProtocolIPv6, result.Params.Protocol)
	assert.True(t, strings.HasPrefix(result.Graph.Href, GraphBasePath+"/vlan/10?"))
	assert.Len(t, result.Periods, len(vo.AllPeriods))
}

func TestListTargets_RejectsNonListingKinds(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	_, err := ask[*ListTargetsResult](t, env, ListTargetsQuery{Kind: targets.KindCustomer, Principal: fixtures.Superuser})

	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidParameter))
}

func TestListTargets_StrictRejectsUnknownValues(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	_, err := ask[*ListTargetsResult](t, env, ListTargetsQuery{
		Kind:      targets.KindSwitch,
		Period:    "fortnight",
		Strict:    true,
		Principal: fixtures.Anonymous,
	})

	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidParameter))
}

func TestMembers(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	tests := []struct {
		name      string
		query     MembersQuery
		wantKind  targets.Kind
		wantIDs   []string
		wantProto vo.Protocol
	}{
		{
			name:      "infrastructure lists virtual interfaces",
			query:     MembersQuery{Infrastructure: "1"},
			wantKind:  targets.KindVirtualInterface,
			wantIDs:   []string{"100", "201", "300"},
			wantProto: vo.ProtocolAll,
		},
		{
			name:      "unknown infrastructure lists member aggregates",
			query:     MembersQuery{Infrastructure: "lan9"},
			wantKind:  targets.KindCustomer,
			wantIDs:   []string{"1", "2", "3"},
			wantProto: vo.ProtocolAll,
		},
		{
			name:      "vlan lists vlan interfaces",
			query:     MembersQuery{Vlan: "10", Protocol: "ipv6"},
			wantKind:  targets.KindVlanInterface,
			wantIDs:   []string{"11", "22", "31"},
			wantProto: vo.ProtocolIPv6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			q := tt.query
			q.Principal = fixtures.Superuser

			// Act
			result, err := ask[*MembersResult](t, env, q)

			// Assert
			require.NoError(t, err)
			var ids []string
			for _, g := range result.Graphs {
				assert.Equal(t, tt.wantKind, g.Kind)
				ids = append(ids, g.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantProto, result.Params.Protocol)
			assert.Len(t, result.Infrastructures, 2)
			assert.Len(t, result.Vlans, 2)
		})
	}
}

func TestMembers_RefusedForCustomerUsers(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	_, err := ask[*MembersResult](t, env, MembersQuery{Infrastructure: "1", Principal: fixtures.Member(fixtures.CustomerX)})

	assert.True(t, errors.Is(err, pkgerrors.ErrAuthorizationDenied))
}

func TestMember_DefaultsToOwnCustomer(t *testing.T) {
	// Arrange
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	// Act
	result, err := ask[*MemberResult](t, env, MemberQuery{Principal: fixtures.Member(fixtures.CustomerX)})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, fixtures.CustomerX, result.Customer.ID)
	assert.Empty(t, result.Notice)
	require.Len(t, result.Interfaces, 1)

	vi := result.Interfaces[0]
	assert.Equal(t, "ae100", vi.Name)
	require.Len(t, vi.Ports, 1)
	assert.Equal(t, "1000", vi.Ports[0].ID)
	require.Len(t, vi.VlanInterfaces, 1)
	assert.Equal(t, vo.ProtocolIPv4, vi.VlanInterfaces[0].Graph.Params.Protocol)

	// IPv6 is enabled but not pingable
	require.Len(t, vi.VlanInterfaces[0].Latency, 1)
	assert.Equal(t, vo.ProtocolIPv4, vi.VlanInterfaces[0].Latency[0].Protocol)
	assert.Equal(t, LatencyBasePath+"/11/ipv4", vi.VlanInterfaces[0].Latency[0].Href)
	assert.Len(t, result.Categories, len(vo.BitsPacketsCategories))
}

func TestMember_NoGraphableInterfaces(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	result, err := ask[*MemberResult](t, env, MemberQuery{
		CustomerID: strconv.Itoa(fixtures.CustomerNoVlan),
		Principal:  fixtures.Superuser,
	})

	require.NoError(t, err)
	assert.Equal(t, NoticeNoGraphableInterfaces, result.Notice)
	assert.Empty(t, result.Interfaces)
	assert.Len(t, result.Categories, len(vo.AllCategories))
}

func TestMember_OtherCustomerIsDenied(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	_, err := ask[*MemberResult](t, env, MemberQuery{
		CustomerID: strconv.Itoa(fixtures.CustomerY),
		Principal:  fixtures.Member(fixtures.CustomerX),
	})

	assert.True(t, errors.Is(err, pkgerrors.ErrAuthorizationDenied))
}

func TestMemberDrilldown(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	t.Run("resolves the typed target", func(t *testing.T) {
		result, err := ask[*MemberDrilldownResult](t, env, MemberDrilldownQuery{
			Type:      "pi",
			ID:        "2000",
			Principal: fixtures.Member(fixtures.CustomerY),
		})

		require.NoError(t, err)
		assert.Equal(t, fixtures.CustomerY, result.Customer.ID)
		assert.Equal(t, targets.KindPhysicalInterface, result.Target.Kind)
		assert.Len(t, result.Periods, len(vo.AllPeriods))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := ask[*MemberDrilldownResult](t, env, MemberDrilldownQuery{Type: "trunk", ID: "1", Principal: fixtures.Superuser})

		assert.True(t, errors.Is(err, pkgerrors.ErrTargetNotFound))
	})

	t.Run("missing interface of another member is hidden", func(t *testing.T) {
		_, err := ask[*MemberDrilldownResult](t, env, MemberDrilldownQuery{Type: "vi", ID: "9999", Principal: fixtures.Member(fixtures.CustomerX)})

		assert.True(t, errors.Is(err, pkgerrors.ErrAuthorizationDenied))
	})
}

func TestLatency(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	t.Run("defaults to the principal's interface", func(t *testing.T) {
		result, err := ask[*LatencyResult](t, env, LatencyQuery{Principal: fixtures.Member(fixtures.CustomerX)})

		require.NoError(t, err)
		assert.Equal(t, fixtures.VliX10, result.VlanInterface.ID)
		assert.Equal(t, "192.0.2.11", result.Address)
		assert.Equal(t, vo.ProtocolIPv4, result.Protocol)
	})

	t.Run("protocol without pings is not enabled", func(t *testing.T) {
		_, err := ask[*LatencyResult](t, env, LatencyQuery{
			VlanInterfaceID: strconv.Itoa(fixtures.VliX10),
			Protocol:        "ipv6",
			Principal:       fixtures.Member(fixtures.CustomerX),
		})

		require.True(t, errors.Is(err, pkgerrors.ErrCapabilityNotEnabled))
		assert.Equal(t, fixtures.CustomerX, pkgerrors.GetDomainError(err).Details["customer_id"])
	})

	t.Run("anonymous without an interface", func(t *testing.T) {
		_, err := ask[*LatencyResult](t, env, LatencyQuery{Principal: fixtures.Anonymous})

		assert.True(t, errors.Is(err, pkgerrors.ErrTargetNotFound))
	})
}

func TestPeerToPeer(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	t.Run("lists every peer when no destination is named", func(t *testing.T) {
		// Act
		result, err := ask[*PeerToPeerResult](t, env, PeerToPeerQuery{Principal: fixtures.Superuser, CustomerID: "1"})

		// Assert
		require.NoError(t, err)
		assert.False(t, result.DestinationExplicit)
		assert.Equal(t, fixtures.VliX10, result.Source.ID)
		require.Len(t, result.Graphs, 2)
		assert.Equal(t, targets.KindPeerPair, result.Graphs[0].Kind)
		assert.Contains(t, result.Graphs[0].Href, "dst=22")
		assert.Contains(t, result.Graphs[1].Href, "dst=31")
	})

	t.Run("retargets a destination on another vlan", func(t *testing.T) {
		result, err := ask[*PeerToPeerResult](t, env, PeerToPeerQuery{
			CustomerID:  "1",
			Destination: strconv.Itoa(fixtures.VliY20),
			Principal:   fixtures.Superuser,
		})

		require.NoError(t, err)
		assert.True(t, result.DestinationExplicit)
		assert.True(t, result.Retargeted)
		assert.Equal(t, fixtures.VliY10, result.Destination.ID)
		assert.Len(t, result.Graphs, len(vo.AllPeriods))
	})

	t.Run("customer users only see pairs with visible peers", func(t *testing.T) {
		_, err := ask[*PeerToPeerResult](t, env, PeerToPeerQuery{Principal: fixtures.Member(fixtures.CustomerX)})

		assert.True(t, errors.Is(err, pkgerrors.ErrAuthorizationDenied))
	})
}

func TestCoreBundle(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	tests := []struct {
		name        string
		query       CoreBundleQuery
		wantSides   []entities.CoreBundleSide
		wantBundles int
		wantErr     error
	}{
		{
			name:        "superuser sees both sides and the active bundles",
			query:       CoreBundleQuery{ID: "1", Principal: fixtures.Superuser},
			wantSides:   []entities.CoreBundleSide{entities.SideA, entities.SideB},
			wantBundles: 2,
		},
		{
			name:      "owner sees their own side only",
			query:     CoreBundleQuery{ID: "3", Side: "b", Principal: fixtures.Member(fixtures.CustomerX)},
			wantSides: []entities.CoreBundleSide{entities.SideB},
		},
		{
			name:      "side is matched case-insensitively",
			query:     CoreBundleQuery{ID: "3", Side: " B ", Principal: fixtures.Member(fixtures.CustomerX)},
			wantSides: []entities.CoreBundleSide{entities.SideB},
		},
		{
			name:    "owner may not request the exchange side",
			query:   CoreBundleQuery{ID: "3", Side: "a", Principal: fixtures.Member(fixtures.CustomerX)},
			wantErr: pkgerrors.ErrAuthorizationDenied,
		},
		{
			name:    "disabled bundle",
			query:   CoreBundleQuery{ID: "2", Principal: fixtures.Superuser},
			wantErr: pkgerrors.ErrTargetNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ask[*CoreBundleResult](t, env, tt.query)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			var sides []entities.CoreBundleSide
			for _, s := range result.Sides {
				sides = append(sides, s.Side)
				assert.Len(t, s.Periods, len(vo.AllPeriods))
			}
			assert.Equal(t, tt.wantSides, sides)
			assert.Len(t, result.Bundles, tt.wantBundles)
		})
	}
}

type mapSession map[string]string

func (m mapSession) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapSession) Put(key, value string) { m[key] = value }
func (m mapSession) Remove(key string)     { delete(m, key) }

func TestSwitchConfiguration(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())
	str := func(s string) *string { return &s }

	t.Run("filters stick to the session", func(t *testing.T) {
		// Arrange
		session := mapSession{}

		// Act
		first, err := ask[*SwitchConfigurationResult](t, env, SwitchConfigurationQuery{
			Speed:     str("10000"),
			Session:   session,
			Principal: fixtures.Superuser,
		})
		require.NoError(t, err)
		second, err := ask[*SwitchConfigurationResult](t, env, SwitchConfigurationQuery{
			Session:   session,
			Principal: fixtures.Superuser,
		})
		require.NoError(t, err)

		// Assert
		for _, result := range []*SwitchConfigurationResult{first, second} {
			assert.Equal(t, 10000, result.Summary.Speed)
			require.Len(t, result.Ports, 2)
			assert.Equal(t, "xe-0/0/1", result.Ports[0].Port)
			assert.Equal(t, "xe-0/0/2", result.Ports[1].Port)
		}
		assert.Equal(t, []int{1000, 10000, 100000}, first.Speeds)
		assert.Len(t, first.Switches, 2, "retired switches are not offered")
	})

	t.Run("invalid filter clears the stored value", func(t *testing.T) {
		session := mapSession{services.SessionKeyConfigSwitch: strconv.Itoa(fixtures.SwitchCore)}

		result, err := ask[*SwitchConfigurationResult](t, env, SwitchConfigurationQuery{
			Switch:    str("nope"),
			Session:   session,
			Principal: fixtures.Superuser,
		})

		require.NoError(t, err)
		assert.Empty(t, result.Summary.Switch)
		assert.Len(t, result.Ports, 4)
		_, stored := session[services.SessionKeyConfigSwitch]
		assert.False(t, stored)
	})

	t.Run("customer users are refused", func(t *testing.T) {
		_, err := ask[*SwitchConfigurationResult](t, env, SwitchConfigurationQuery{Principal: fixtures.Member(fixtures.CustomerX)})

		appErr := pkgerrors.GetAppError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, pkgerrors.ErrorTypeForbidden, appErr.Type)
	})
}

func TestUtilisation(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder())

	ports := func(r *UtilisationResult) []string {
		var out []string
		for _, p := range r.Ports {
			out = append(out, p.Port)
		}
		return out
	}

	t.Run("defaults to max over the month on the newest day", func(t *testing.T) {
		// Act
		result, err := ask[*UtilisationResult](t, env, UtilisationQuery{Principal: fixtures.Superuser})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, vo.MetricMax, result.Metric)
		assert.Equal(t, vo.PeriodMonth, result.Params.Period)
		assert.Equal(t, vo.CategoryBits, result.Params.Category)
		assert.Equal(t, fixtures.TrafficDay, result.Day)
		assert.Equal(t, []string{fixtures.TrafficDay, fixtures.TrafficDayEarlier}, result.Days)
		assert.Equal(t, []string{"ge-0/0/3", "xe-0/0/1", "et-0/0/1", "xe-0/0/2"}, ports(result))
		assert.InDelta(t, 90.0, result.Ports[0].Utilisation, 0.001)
		assert.Equal(t, "Z Hosting", result.Ports[0].CustomerName)
		assert.Equal(t, "swi1-core", result.Ports[0].Switch)
		assert.Contains(t, result.Ports[0].Graph.Href, "/graph/pi/3000")
		assert.Contains(t, result.Ports[0].Graph.Href, "period=month")
		assert.Len(t, result.Metrics, 3)
	})

	tests := []struct {
		name      string
		query     UtilisationQuery
		wantDay   string
		wantPorts []string
		wantVlan  int
	}{
		{
			name:      "public vlan filter",
			query:     UtilisationQuery{Vlan: strconv.Itoa(fixtures.VlanPeering2)},
			wantDay:   fixtures.TrafficDay,
			wantPorts: []string{"et-0/0/1"},
			wantVlan:  fixtures.VlanPeering2,
		},
		{
			name:      "private vlan is ignored",
			query:     UtilisationQuery{Vlan: strconv.Itoa(fixtures.VlanPrivate)},
			wantDay:   fixtures.TrafficDay,
			wantPorts: []string{"ge-0/0/3", "xe-0/0/1", "et-0/0/1", "xe-0/0/2"},
		},
		{
			name:      "known earlier day",
			query:     UtilisationQuery{Day: fixtures.TrafficDayEarlier},
			wantDay:   fixtures.TrafficDayEarlier,
			wantPorts: []string{"xe-0/0/1"},
		},
		{
			name:      "unknown day falls back",
			query:     UtilisationQuery{Day: "1999-01-01"},
			wantDay:   fixtures.TrafficDay,
			wantPorts: []string{"ge-0/0/3", "xe-0/0/1", "et-0/0/1", "xe-0/0/2"},
		},
		{
			name:      "unknown metric falls back to max",
			query:     UtilisationQuery{Metric: "median"},
			wantDay:   fixtures.TrafficDay,
			wantPorts: []string{"ge-0/0/3", "xe-0/0/1", "et-0/0/1", "xe-0/0/2"},
		},
		{
			name:      "total ranks by volume",
			query:     UtilisationQuery{Metric: "total"},
			wantDay:   fixtures.TrafficDay,
			wantPorts: []string{"et-0/0/1", "xe-0/0/1", "xe-0/0/2", "ge-0/0/3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.Principal = fixtures.Superuser

			result, err := ask[*UtilisationResult](t, env, tt.query)

			require.NoError(t, err)
			assert.Equal(t, tt.wantDay, result.Day)
			assert.Equal(t, tt.wantPorts, ports(result))
			if tt.wantVlan == 0 {
				assert.Nil(t, result.Vlan)
			} else {
				require.NotNil(t, result.Vlan)
				assert.Equal(t, tt.wantVlan, result.Vlan.ID)
			}
		})
	}

	t.Run("total has no utilisation", func(t *testing.T) {
		result, err := ask[*UtilisationResult](t, env, UtilisationQuery{Metric: "data", Principal: fixtures.Superuser})

		require.NoError(t, err)
		for _, p := range result.Ports {
			assert.Zero(t, p.Utilisation)
		}
	})

	t.Run("vlan options are public only", func(t *testing.T) {
		result, err := ask[*UtilisationResult](t, env, UtilisationQuery{Principal: fixtures.Superuser})

		require.NoError(t, err)
		assert.Equal(t, []services.Option{
			{ID: strconv.Itoa(fixtures.VlanPeering), Name: "Peering LAN"},
			{ID: strconv.Itoa(fixtures.VlanPeering2), Name: "Peering LAN 2"},
		}, result.Vlans)
	})

	t.Run("strict rejects unknown values", func(t *testing.T) {
		for _, q := range []UtilisationQuery{
			{Metric: "median", Strict: true},
			{Vlan: strconv.Itoa(fixtures.VlanPrivate), Strict: true},
			{Vlan: "999", Strict: true},
			{Period: "fortnight", Strict: true},
		} {
			q.Principal = fixtures.Superuser
			_, err := ask[*UtilisationResult](t, env, q)

			assert.True(t, errors.Is(err, pkgerrors.ErrInvalidParameter), "query %+v", q)
		}
	})

	t.Run("members may not see it", func(t *testing.T) {
		for _, p := range []vo.Principal{fixtures.Anonymous, fixtures.Member(fixtures.CustomerX)} {
			_, err := ask[*UtilisationResult](t, env, UtilisationQuery{Principal: p})

			assert.True(t, errors.Is(err, pkgerrors.ErrAuthorizationDenied))
		}
	})
}

func TestUtilisation_NoSummariesYet(t *testing.T) {
	env := newTestEnv(t, fixtures.NewExchangeBuilder().WithoutTraffic())

	result, err := ask[*UtilisationResult](t, env, UtilisationQuery{Principal: fixtures.Superuser})

	require.NoError(t, err)
	assert.Empty(t, result.Day)
	assert.Empty(t, result.Days)
	assert.Empty(t, result.Ports)
	assert.Equal(t, vo.PeriodMonth, result.Params.Period)
}

func TestLeagueTable(t *testing.T) {
	repo := fixtures.NewExchangeBuilder().Repository()
	handler := NewLeagueTableHandler(repo)
	handler.now = func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	names := func(r *LeagueTableResult) []string {
		var out []string
		for _, row := range r.Rows {
			out = append(out, row.CustomerName)
		}
		return out
	}

	tests := []struct {
		name       string
		query      LeagueTableQuery
		wantMetric vo.TrafficMetric
		wantDay    string
		wantNames  []string
		wantErr    error
	}{
		{
			name:       "defaults to today and total",
			query:      LeagueTableQuery{Principal: fixtures.Anonymous},
			wantMetric: vo.MetricTotal,
			wantDay:    fixtures.TrafficDay,
			wantNames:  []string{"Y Telecom", "X Networks", "Z Hosting"},
		},
		{
			name:       "malformed day is today",
			query:      LeagueTableQuery{Day: "15/10/2026", Principal: fixtures.Anonymous},
			wantMetric: vo.MetricTotal,
			wantDay:    fixtures.TrafficDay,
			wantNames:  []string{"Y Telecom", "X Networks", "Z Hosting"},
		},
		{
			name:       "day without summaries",
			query:      LeagueTableQuery{Day: fixtures.TrafficDayEarlier, Metric: "max", Principal: fixtures.Anonymous},
			wantMetric: vo.MetricMax,
			wantDay:    fixtures.TrafficDayEarlier,
		},
		{
			name:       "packets",
			query:      LeagueTableQuery{Category: "packets", Principal: fixtures.Anonymous},
			wantMetric: vo.MetricTotal,
			wantDay:    fixtures.TrafficDay,
			wantNames:  []string{"X Networks"},
		},
		{
			name:    "strict rejects a malformed day",
			query:   LeagueTableQuery{Day: "yesterday", Strict: true},
			wantErr: pkgerrors.ErrInvalidParameter,
		},
		{
			name:    "strict rejects an unknown metric",
			query:   LeagueTableQuery{Metric: "p95", Strict: true},
			wantErr: pkgerrors.ErrInvalidParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.Handle(ctx, tt.query)

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMetric, result.Metric)
			assert.Equal(t, tt.wantDay, result.Day)
			assert.Equal(t, tt.wantNames, names(result))
		})
	}

	t.Run("periods follow the metric", func(t *testing.T) {
		result, err := handler.Handle(ctx, LeagueTableQuery{Principal: fixtures.Anonymous})

		require.NoError(t, err)
		y := result.Rows[0]
		assert.Equal(t, InOutDTO{In: 300, Out: 100}, y.Periods[vo.PeriodDay])
		assert.Equal(t, InOutDTO{In: 2100, Out: 700}, y.Periods[vo.PeriodWeek])
		assert.Equal(t, InOutDTO{}, y.Periods[vo.PeriodYear])
	})

	t.Run("errors stay with superusers", func(t *testing.T) {
		result, err := handler.Handle(ctx, LeagueTableQuery{Category: "errors", Principal: fixtures.Member(fixtures.CustomerX)})

		require.NoError(t, err)
		assert.Equal(t, vo.CategoryBits, result.Category)
	})
}
