package services

import (
	"context"
	"testing"

	"ixp-grapher/tests/fixtures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSession map[string]string

func (s mapSession) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}
func (s mapSession) Put(key, value string) { s[key] = value }
func (s mapSession) Remove(key string)     { delete(s, key) }

func ptr(s string) *string { return &s }

func TestSwitchConfigurationFilters_ExplicitValueIsStored(t *testing.T) {
	// Arrange
	ctx := context.Background()
	resolver := newResolver(fixtures.NewExchangeBuilder())
	session := mapSession{}

	// Act
	filters, err := resolver.ResolveSwitchConfigurationFilters(ctx, SwitchConfigurationInput{
		Switch: ptr("2"),
		Speed:  ptr("10000"),
	}, session)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, filters.Switch)
	assert.Equal(t, fixtures.SwitchEdge, filters.Switch.ID)
	assert.Equal(t, 10000, filters.Speed)
	assert.Nil(t, filters.Infrastructure)
	assert.Equal(t, "2", session[SessionKeyConfigSwitch])
	assert.Equal(t, "10000", session[SessionKeyConfigSpeed])
}

func TestSwitchConfigurationFilters_AbsentValueUsesStored(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(fixtures.NewExchangeBuilder())
	session := mapSession{
		SessionKeyConfigSwitch:         "1",
		SessionKeyConfigInfrastructure: "2",
	}

	filters, err := resolver.ResolveSwitchConfigurationFilters(ctx, SwitchConfigurationInput{}, session)

	require.NoError(t, err)
	require.NotNil(t, filters.Switch)
	require.NotNil(t, filters.Infrastructure)
	assert.Equal(t, fixtures.SwitchCore, filters.Switch.ID)
	assert.Equal(t, fixtures.InfraBackup, filters.Infrastructure.ID)
	assert.Zero(t, filters.Speed)
}

func TestSwitchConfigurationFilters_InvalidExplicitValueClears(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(fixtures.NewExchangeBuilder())
	session := mapSession{
		SessionKeyConfigSwitch: "1",
		SessionKeyConfigSpeed:  "10000",
	}

	filters, err := resolver.ResolveSwitchConfigurationFilters(ctx, SwitchConfigurationInput{
		Switch: ptr("999"),
		Speed:  ptr("123"),
	}, session)

	require.NoError(t, err)
	assert.Nil(t, filters.Switch)
	assert.Zero(t, filters.Speed)
	assert.NotContains(t, session, SessionKeyConfigSwitch)
	assert.NotContains(t, session, SessionKeyConfigSpeed)
}

func TestSwitchConfigurationFilters_StaleStoredValueIsDropped(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(fixtures.NewExchangeBuilder())
	session := mapSession{SessionKeyConfigInfrastructure: "42"}

	filters, err := resolver.ResolveSwitchConfigurationFilters(ctx, SwitchConfigurationInput{}, session)

	require.NoError(t, err)
	assert.Nil(t, filters.Infrastructure)
	assert.Empty(t, session)
}

func TestSwitchConfigurationFilters_NilSession(t *testing.T) {
	ctx := context.Background()
	resolver := newResolver(fixtures.NewExchangeBuilder())

	filters, err := resolver.ResolveSwitchConfigurationFilters(ctx, SwitchConfigurationInput{Switch: ptr("1")}, nil)

	require.NoError(t, err)
	require.NotNil(t, filters.Switch)
	assert.Equal(t, []int{1000, 10000, 100000}, filters.Speeds)
}
