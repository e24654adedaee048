package queries

import (
	"ixp-grapher/application/ports"
	"ixp-grapher/application/queries/bus"
	"ixp-grapher/application/services"

	"go.uber.org/zap"
)

// Register wires every statistics query onto b.
func Register(b *bus.QueryBus, graphs *services.GraphService, repo ports.ExchangeRepository, logger *zap.Logger) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{RenderGraphQuery{}, bus.Typed(NewRenderGraphHandler(graphs).Handle)},
		{ListTargetsQuery{}, bus.Typed(NewListTargetsHandler(graphs).Handle)},
		{MembersQuery{}, bus.Typed(NewMembersHandler(graphs, repo, logger).Handle)},
		{MemberQuery{}, bus.Typed(NewMemberHandler(graphs).Handle)},
		{MemberDrilldownQuery{}, bus.Typed(NewMemberDrilldownHandler(graphs).Handle)},
		{LatencyQuery{}, bus.Typed(NewLatencyHandler(graphs).Handle)},
		{PeerToPeerQuery{}, bus.Typed(NewPeerToPeerHandler(graphs).Handle)},
		{CoreBundleQuery{}, bus.Typed(NewCoreBundleHandler(graphs, repo).Handle)},
		{SwitchConfigurationQuery{}, bus.Typed(NewSwitchConfigurationHandler(graphs, repo).Handle)},
		{UtilisationQuery{}, bus.Typed(NewUtilisationHandler(graphs, repo, logger).Handle)},
		{LeagueTableQuery{}, bus.Typed(NewLeagueTableHandler(repo).Handle)},
	}

	for _, r := range registrations {
		if err := b.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}
