package services

import (
	"context"
	"sort"
	"strconv"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/entities"
	pkgerrors "ixp-grapher/pkg/errors"

	"go.uber.org/zap"
)

// Session keys for the switch configuration filters.
const (
	SessionKeyConfigSwitch         = "switch-configuration-switch"
	SessionKeyConfigInfrastructure = "switch-configuration-infra"
	SessionKeyConfigSpeed          = "switch-configuration-speed"
)

// SwitchConfigurationInput carries the raw filter values. A nil field means
// the parameter was absent and the stored value applies.
type SwitchConfigurationInput struct {
	Switch         *string
	Infrastructure *string
	Speed          *string
}

// SwitchConfigurationFilters are the effective filters; zero values mean
// unfiltered.
type SwitchConfigurationFilters struct {
	Switch         *entities.Switch
	Infrastructure *entities.Infrastructure
	Speed          int
	Speeds         []int
}

// ResolveSwitchConfigurationFilters applies sticky session semantics: an
// explicit valid value is stored, an explicit invalid value clears the key,
// and an absent value falls back to a stored one if it still resolves.
func (r *TargetResolver) ResolveSwitchConfigurationFilters(
	ctx context.Context,
	in SwitchConfigurationInput,
	session ports.SessionStore,
) (*SwitchConfigurationFilters, error) {
	if session == nil {
		session = nopSession{}
	}

	out := &SwitchConfigurationFilters{}

	raw, err := r.sticky(session, SessionKeyConfigSwitch, in.Switch, func(v string) (bool, error) {
		id, ok := parseID(v)
		if !ok {
			return false, nil
		}
		sw, err := r.repo.Switch(ctx, id)
		if err != nil {
			return false, pkgerrors.Wrap(err, "failed to load switch")
		}
		out.Switch = sw
		return sw != nil, nil
	})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		out.Switch = nil
	}

	raw, err = r.sticky(session, SessionKeyConfigInfrastructure, in.Infrastructure, func(v string) (bool, error) {
		id, ok := parseID(v)
		if !ok {
			return false, nil
		}
		infra, err := r.repo.Infrastructure(ctx, id)
		if err != nil {
			return false, pkgerrors.Wrap(err, "failed to load infrastructure")
		}
		out.Infrastructure = infra
		return infra != nil, nil
	})
	if err != nil {
		return nil, err
	}
	if raw == "" {
		out.Infrastructure = nil
	}

	speeds, err := r.PortSpeeds(ctx)
	if err != nil {
		return nil, err
	}
	out.Speeds = speeds

	raw, err = r.sticky(session, SessionKeyConfigSpeed, in.Speed, func(v string) (bool, error) {
		speed, ok := parseID(v)
		if !ok {
			return false, nil
		}
		for _, s := range speeds {
			if s == speed {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if raw != "" {
		out.Speed, _ = strconv.Atoi(raw)
	}

	return out, nil
}

// sticky returns the effective value of one filter, or "" when unfiltered.
func (r *TargetResolver) sticky(session ports.SessionStore, key string, explicit *string, valid func(string) (bool, error)) (string, error) {
	if explicit != nil {
		ok, err := valid(*explicit)
		if err != nil {
			return "", err
		}
		if ok {
			session.Put(key, *explicit)
			return *explicit, nil
		}
		session.Remove(key)
		return "", nil
	}

	stored, found := session.Get(key)
	if !found {
		return "", nil
	}
	ok, err := valid(stored)
	if err != nil {
		return "", err
	}
	if !ok {
		r.logger.Debug("Dropping stale sticky filter", zap.String("key", key), zap.String("value", stored))
		session.Remove(key)
		return "", nil
	}
	return stored, nil
}

// PortSpeeds lists the distinct port speeds in use, ascending.
func (r *TargetResolver) PortSpeeds(ctx context.Context) ([]int, error) {
	switches, err := r.repo.Switches(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list switches")
	}
	seen := make(map[int]bool)
	var speeds []int
	for _, sw := range switches {
		pis, err := r.repo.PhysicalInterfacesForSwitch(ctx, sw.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, "failed to list switch ports")
		}
		for _, p := range pis {
			if p.Speed > 0 && !seen[p.Speed] {
				seen[p.Speed] = true
				speeds = append(speeds, p.Speed)
			}
		}
	}
	sort.Ints(speeds)
	return speeds, nil
}

type nopSession struct{}

func (nopSession) Get(string) (string, bool) { return "", false }
func (nopSession) Put(string, string)        {}
func (nopSession) Remove(string)             {}
