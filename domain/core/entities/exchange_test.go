package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCoreBundleSide(t *testing.T) {
	tests := []struct {
		raw  string
		want CoreBundleSide
	}{
		{"b", SideB},
		{"B", SideB},
		{" b ", SideB},
		{"\tB\n", SideB},
		{"a", SideA},
		{"A", SideA},
		{"", SideA},
		{"c", SideA},
		{"bb", SideA},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCoreBundleSide(tt.raw))
		})
	}
}

func TestVlan_PubliclyGraphable(t *testing.T) {
	assert.True(t, Vlan{PeeringMatrix: true, PeeringManager: true}.PubliclyGraphable())
	assert.False(t, Vlan{PeeringMatrix: true, PeeringManager: true, Private: true}.PubliclyGraphable())
	assert.False(t, Vlan{PeeringMatrix: true}.PubliclyGraphable())
}
