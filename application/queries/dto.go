package queries

import (
	"net/url"
	"strconv"

	"ixp-grapher/domain/core/entities"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
)

// GraphBasePath is where rendered graphs are served.
const GraphBasePath = "/api/v1/statistics/graph"

// TargetDTO identifies a resolved target
type TargetDTO struct {
	Kind  targets.Kind `json:"kind"`
	ID    string       `json:"id,omitempty"`
	Title string       `json:"title"`
}

// GraphLink points at one renderable graph
type GraphLink struct {
	TargetDTO
	Params vo.GraphParams `json:"params"`
	Href   string         `json:"href"`
}

// ChoiceDTO is one value of a parameter selector
type ChoiceDTO struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// NewTargetDTO describes a target
func NewTargetDTO(t targets.GraphTarget) TargetDTO {
	id, _ := targetRef(t)
	return TargetDTO{Kind: t.Kind(), ID: id, Title: t.Title()}
}

// NewGraphLink builds the link to render t with params.
func NewGraphLink(t targets.GraphTarget, params vo.GraphParams) GraphLink {
	id, extra := targetRef(t)

	path := GraphBasePath + "/" + string(t.Kind())
	if id != "" {
		path += "/" + url.PathEscape(id)
	}

	q := url.Values{}
	q.Set("category", string(params.Category))
	q.Set("protocol", string(params.Protocol))
	q.Set("period", string(params.Period))
	q.Set("type", string(params.Type))
	for k, v := range extra {
		q[k] = v
	}

	return GraphLink{
		TargetDTO: TargetDTO{Kind: t.Kind(), ID: id, Title: t.Title()},
		Params:    params,
		Href:      path + "?" + q.Encode(),
	}
}

// periodLinks links t once per period, day first.
func periodLinks(t targets.GraphTarget, params vo.GraphParams) []GraphLink {
	links := make([]GraphLink, 0, len(vo.AllPeriods))
	for _, p := range vo.AllPeriods {
		pp := params
		pp.Period = p
		links = append(links, NewGraphLink(t, pp))
	}
	return links
}

func categoryChoices(kind targets.Kind, principal vo.Principal) []ChoiceDTO {
	allowed := targets.AllowedCategories(kind, principal.IsSuperUser())
	out := make([]ChoiceDTO, 0, len(allowed))
	for _, c := range allowed {
		out = append(out, ChoiceDTO{Value: string(c), Description: c.Description()})
	}
	return out
}

// targetRef returns the path id of a target plus any extra query values
// needed to address it.
func targetRef(t targets.GraphTarget) (string, url.Values) {
	switch v := t.(type) {
	case targets.Overall:
		return "", nil
	case targets.Infrastructure:
		return strconv.Itoa(v.Infrastructure.ID), nil
	case targets.Vlan:
		return strconv.Itoa(v.Vlan.ID), nil
	case targets.Switch:
		return strconv.Itoa(v.Switch.ID), nil
	case targets.Trunk:
		return v.Trunk.Name, nil
	case targets.Customer:
		return strconv.Itoa(v.Customer.ID), nil
	case targets.VirtualInterface:
		return strconv.Itoa(v.Interface.ID), nil
	case targets.PhysicalInterface:
		return strconv.Itoa(v.Interface.ID), nil
	case targets.VlanInterface:
		return strconv.Itoa(v.Interface.ID), nil
	case targets.CoreBundleSide:
		return strconv.Itoa(v.Bundle.ID), url.Values{"side": {string(v.Side)}}
	case targets.PeerPair:
		return strconv.Itoa(v.Source.Interface.ID), url.Values{"dst": {strconv.Itoa(v.Destination.Interface.ID)}}
	case targets.Latency:
		return strconv.Itoa(v.Interface.ID), nil
	default:
		return "", nil
	}
}

// ownerOf returns the customer a customer-owned target belongs to.
func ownerOf(t targets.GraphTarget) (entities.Customer, bool) {
	switch v := t.(type) {
	case targets.Customer:
		return v.Customer, true
	case targets.VirtualInterface:
		return v.Owner, true
	case targets.PhysicalInterface:
		return v.Owner, true
	case targets.VlanInterface:
		return v.Owner, true
	case targets.Latency:
		return v.Owner, true
	case targets.PeerPair:
		return v.Source.Owner, true
	default:
		return entities.Customer{}, false
	}
}
