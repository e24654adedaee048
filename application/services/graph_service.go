package services

import (
	"context"
	"errors"
	"strconv"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	domainservices "ixp-grapher/domain/services"
	pkgerrors "ixp-grapher/pkg/errors"
	"ixp-grapher/pkg/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GraphInput is a raw graph request as it arrives from a caller.
type GraphInput struct {
	Kind        targets.Kind
	RawID       string
	Destination string
	Side        string

	RawCategory string
	RawProtocol string
	RawPeriod   string
	RawType     string

	// DefaultPeriod applies when RawPeriod is absent or unknown
	DefaultPeriod vo.Period

	// Strict rejects unknown parameter values instead of defaulting them
	Strict bool

	Principal vo.Principal
}

// GraphService runs the full request pipeline: normalize, resolve,
// authorize, dispatch.
type GraphService struct {
	resolver   *TargetResolver
	gate       *domainservices.AuthorizationGate
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewGraphService creates the graph engine
func NewGraphService(
	resolver *TargetResolver,
	gate *domainservices.AuthorizationGate,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		resolver:   resolver,
		gate:       gate,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Prepare normalizes, resolves and authorizes a request without rendering.
func (s *GraphService) Prepare(ctx context.Context, in GraphInput) (req *targets.GraphRequest, err error) {
	ctx, span := observability.Tracer().Start(ctx, "graph.prepare")
	span.SetAttributes(attribute.String("graph.kind", string(in.Kind)))
	defer func() { observability.EndSpan(span, err) }()

	if in.Strict {
		if err := vo.ValidateStrict(in.RawCategory, in.RawProtocol, in.RawPeriod, in.RawType); err != nil {
			return nil, err
		}
	}

	params := vo.Normalize(in.RawCategory, in.RawProtocol, in.RawPeriod, in.RawType,
		targets.NormalizeContext(in.Kind, in.Principal, in.DefaultPeriod))

	if in.Kind == targets.KindPeerPair {
		if err := s.authorizePeerSource(ctx, in); err != nil {
			return nil, err
		}
	}

	target, err := s.resolver.Resolve(ctx, ResolveInput{
		Kind:        in.Kind,
		RawID:       in.RawID,
		Destination: in.Destination,
		Side:        in.Side,
		Protocol:    params.Protocol,
		Principal:   in.Principal,
	})
	if err != nil {
		return nil, s.hideExistence(in, err)
	}

	if err := s.Authorize(in.Principal, target); err != nil {
		return nil, err
	}
	if pair, ok := target.(targets.PeerPair); ok {
		if err := CheckPeerPairProtocol(pair, params.Protocol); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.String("graph.target", target.Identity()))
	return &targets.GraphRequest{Target: target, Params: params}, nil
}

// Render runs the pipeline and returns the artifact with the request that
// produced it.
func (s *GraphService) Render(ctx context.Context, in GraphInput) (*ports.Artifact, *targets.GraphRequest, error) {
	req, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	artifact, err := s.dispatcher.Dispatch(ctx, *req)
	if err != nil {
		return nil, req, err
	}
	return artifact, req, nil
}

// Authorize applies the authorization gate to an already resolved target.
func (s *GraphService) Authorize(principal vo.Principal, target targets.GraphTarget) error {
	decision := s.gate.Authorize(principal, target)
	if decision.Verdict == domainservices.Granted {
		return nil
	}

	s.logger.Info("Graph request refused",
		zap.String("target", target.Identity()),
		zap.String("verdict", decision.Verdict.String()),
		zap.String("user_id", principal.UserID),
		zap.String("cause", "not_authorized"))

	err := decision.Err()
	if de := pkgerrors.GetDomainError(err); de != nil && decision.Verdict == domainservices.NotEnabled {
		if owners := targets.OwnerCustomerIDs(target); len(owners) > 0 {
			de.WithDetail("customer_id", owners[0])
		}
	}
	return err
}

// PreparePeerPair resolves a member's peer pair selection and applies the
// same existence hiding, protocol check and authorization as graph requests.
func (s *GraphService) PreparePeerPair(ctx context.Context, in PeerPairInput, protocol vo.Protocol) (sel *PeerPairSelection, err error) {
	ctx, span := observability.Tracer().Start(ctx, "graph.prepare_peer_pair")
	defer func() { observability.EndSpan(span, err) }()

	hidden := GraphInput{Kind: targets.KindPeerPair, RawID: strconv.Itoa(in.CustomerID), Principal: in.Principal}
	ownerID := in.CustomerID
	if ownerID <= 0 {
		ownerID = in.Principal.CustomerID
	}
	if ownerID <= 0 {
		return nil, s.hideExistence(hidden, pkgerrors.NewTargetNotFound("customer", ""))
	}
	if err := s.authorizeOwner(in.Principal, ownerID, hidden.RawID); err != nil {
		return nil, err
	}

	sel, err = s.resolver.ResolvePeerPair(ctx, in)
	if err != nil {
		return nil, s.hideExistence(hidden, err)
	}
	if err := s.Authorize(in.Principal, sel.Pair); err != nil {
		return nil, err
	}
	if err := CheckPeerPairProtocol(sel.Pair, protocol); err != nil {
		return nil, err
	}
	return sel, nil
}

// AuthorizedForAllCustomers reports whether principal may list every
// member's graphs at once.
func (s *GraphService) AuthorizedForAllCustomers(principal vo.Principal) bool {
	return s.gate.AuthorizedForAllCustomers(principal)
}

// Servable reports whether some backend can render req.
func (s *GraphService) Servable(req targets.GraphRequest) bool {
	return s.dispatcher.Servable(req)
}

// Resolver exposes the target resolver to the query handlers.
func (s *GraphService) Resolver() *TargetResolver {
	return s.resolver
}

// authorizePeerSource applies the customer rule to the owner of the named
// source interface before a pair is selected. Selection errors only reach
// principals who may see the source.
func (s *GraphService) authorizePeerSource(ctx context.Context, in GraphInput) error {
	src, err := s.resolver.Resolve(ctx, ResolveInput{
		Kind:      targets.KindVlanInterface,
		RawID:     in.RawID,
		Principal: in.Principal,
	})
	if err != nil {
		return s.hideExistence(in, err)
	}
	vli, ok := src.(targets.VlanInterface)
	if !ok {
		return s.hideExistence(in, pkgerrors.NewTargetNotFound("vlan interface", in.RawID))
	}
	return s.authorizeOwner(in.Principal, vli.Owner.ID, in.RawID)
}

func (s *GraphService) authorizeOwner(principal vo.Principal, customerID int, rawID string) error {
	decision := s.gate.AuthorizeCustomer(principal, customerID)
	if decision.Verdict == domainservices.Granted {
		return nil
	}

	s.logger.Info("Graph request refused",
		zap.String("kind", string(targets.KindPeerPair)),
		zap.String("id", rawID),
		zap.String("user_id", principal.UserID),
		zap.String("cause", "source_owner"))

	return pkgerrors.NewAuthorizationDenied(domainservices.ReasonPeerPair)
}

// hideExistence turns a missing customer-owned target into a denial for
// anyone who could not see it anyway.
func (s *GraphService) hideExistence(in GraphInput, err error) error {
	if !in.Kind.CustomerOwned() || in.Principal.IsSuperUser() || !errors.Is(err, pkgerrors.ErrTargetNotFound) {
		return err
	}

	s.logger.Info("Graph request refused",
		zap.String("kind", string(in.Kind)),
		zap.String("id", in.RawID),
		zap.String("user_id", in.Principal.UserID),
		zap.String("cause", "not_found"))

	return pkgerrors.NewAuthorizationDenied(domainservices.ReasonCustomer)
}
