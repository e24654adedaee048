package services

import (
	"fmt"

	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	pkgerrors "ixp-grapher/pkg/errors"
)

// Verdict is the outcome of an authorization check.
type Verdict int

const (
	Granted Verdict = iota
	Denied
	NotEnabled
)

func (v Verdict) String() string {
	switch v {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case NotEnabled:
		return "not_enabled"
	default:
		return "unknown"
	}
}

// User facing denial reasons. None of them mention ids.
const (
	ReasonCustomer   = "You are not authorised to view this member's graphs."
	ReasonVlan       = "The graphs of this VLAN are not public."
	ReasonCoreBundle = "Only administrators may view the graphs of this core bundle."
	ReasonPeerPair   = "You are not authorised to view graphs between these members."
)

// Decision is a verdict with its user facing reason.
type Decision struct {
	Verdict Verdict
	Reason  string
}

// Err converts a non-granted decision into its typed error.
func (d Decision) Err() error {
	switch d.Verdict {
	case Granted:
		return nil
	case NotEnabled:
		return pkgerrors.NewCapabilityNotEnabled(d.Reason)
	default:
		return pkgerrors.NewAuthorizationDenied(d.Reason)
	}
}

func granted() Decision { return Decision{Verdict: Granted} }

func denied(reason string) Decision { return Decision{Verdict: Denied, Reason: reason} }

// AuthorizationGate evaluates the per-kind visibility rules. It reads only
// metadata already carried by the target and holds no state.
type AuthorizationGate struct{}

// NewAuthorizationGate creates the gate
func NewAuthorizationGate() *AuthorizationGate {
	return &AuthorizationGate{}
}

// Authorize decides whether principal may see target.
func (g *AuthorizationGate) Authorize(principal vo.Principal, target targets.GraphTarget) Decision {
	switch t := target.(type) {
	case targets.Overall, targets.Infrastructure, targets.Switch, targets.Trunk:
		return granted()

	case targets.Vlan:
		if t.Vlan.PubliclyGraphable() || principal.IsSuperUser() {
			return granted()
		}
		return denied(ReasonVlan)

	case targets.Customer:
		return customerRule(principal, t.Customer.ID)

	case targets.VirtualInterface:
		return customerRule(principal, t.Owner.ID)

	case targets.PhysicalInterface:
		return customerRule(principal, t.Owner.ID)

	case targets.VlanInterface:
		return customerRule(principal, t.Owner.ID)

	case targets.CoreBundleSide:
		owner := t.Owner()
		if owner == 0 {
			if principal.IsSuperUser() {
				return granted()
			}
			return denied(ReasonCoreBundle)
		}
		return customerRule(principal, owner)

	case targets.PeerPair:
		if !principal.CanSeeCustomer(t.Source.Owner.ID) || !principal.CanSeeCustomer(t.Destination.Owner.ID) {
			return denied(ReasonPeerPair)
		}
		return granted()

	case targets.Latency:
		if d := customerRule(principal, t.Owner.ID); d.Verdict != Granted {
			return d
		}
		if !t.ProtocolEnabled(t.Protocol) || !t.ProtocolCanPing(t.Protocol) {
			return Decision{
				Verdict: NotEnabled,
				Reason: fmt.Sprintf("%s is not enabled or not ping-capable on this interface, so there are no latency graphs for it.",
					t.Protocol.Description()),
			}
		}
		return granted()

	default:
		// unknown variants are never visible
		return denied(ReasonCustomer)
	}
}

// AuthorizeCustomer applies the customer rule on its own, for callers that
// must check an owner before the full target is known.
func (g *AuthorizationGate) AuthorizeCustomer(principal vo.Principal, customerID int) Decision {
	return customerRule(principal, customerID)
}

// AuthorizedForAllCustomers reports whether principal may list every
// member's graphs at once.
func (g *AuthorizationGate) AuthorizedForAllCustomers(principal vo.Principal) bool {
	return principal.IsSuperUser()
}

func customerRule(principal vo.Principal, customerID int) Decision {
	if principal.CanSeeCustomer(customerID) {
		return granted()
	}
	return denied(ReasonCustomer)
}
