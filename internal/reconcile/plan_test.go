package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nerrad567/assetsync/internal/asset"
)

var testSettings = Settings{
	RegistryGatewayID: 14,
	FixtureGatewayID:  14,
	DeviceTypeID:      1,
	SwitchGroups:      map[string]int{"A": 301, "B": 302},
}

func normalized(serial, previous, switchType string) asset.Normalized {
	return asset.Normalize(asset.ChangeEvent{
		FeatureID:         417,
		RawSerial:         serial,
		RawPreviousSerial: previous,
		Latitude:          32.0232,
		Longitude:         34.8567,
		SwitchType:        switchType,
	})
}

func TestPlanNetwork(t *testing.T) {
	tests := []struct {
		name          string
		n             asset.Normalized
		wantAssociate bool
		wantGroup     int
		wantRetire    string
	}{
		{"plain", normalized("103441045", "", ""), false, 0, ""},
		{"mapped switch", normalized("103441045", "", "B"), true, 302, ""},
		{"unmapped switch", normalized("103441045", "", "Z"), false, 0, ""},
		{"replacement", normalized("103441045", "103000001", ""), false, 0, "103000001"},
		{"same previous", normalized("103441045", "SN103441045", ""), false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := planNetwork(tt.n, testSettings)
			assert.Equal(t, "103441045", p.device.Serial)
			assert.Equal(t, "103441045", p.device.Pole)
			assert.Equal(t, 14, p.device.GatewayID)
			assert.Equal(t, 1, p.device.TypeID)
			assert.InDelta(t, 32.0232, p.device.Latitude, 1e-9)
			assert.Equal(t, tt.wantAssociate, p.associate)
			assert.Equal(t, tt.wantGroup, p.groupID)
			assert.Equal(t, tt.wantRetire, p.retire)
		})
	}
}

func TestPlanGateway(t *testing.T) {
	p := planGateway(normalized("402198765", "402000001", "A"), testSettings)

	assert.Equal(t, "402198765", p.row.Name)
	assert.Equal(t, 14, p.row.GatewayID)
	assert.InDelta(t, 34.8567, p.row.Longitude, 1e-9)
	assert.Empty(t, p.row.ZoneIdent, "zone is resolved during apply")
	assert.Equal(t, "402198765", p.device.Serial)
	assert.Equal(t, "402000001", p.retire)
}

func TestDecideFixtureWrite(t *testing.T) {
	assert.Equal(t, fixtureWrite{OpFixtureUpdate, OpRegistryUpdate}, decideFixtureWrite(true))
	assert.Equal(t, fixtureWrite{OpFixtureInsert, OpRegistryCreate}, decideFixtureWrite(false))
}
