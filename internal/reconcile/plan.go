package reconcile

import (
	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/registry"
)

// Settings are the fixed deployment values the planners need.
type Settings struct {
	// RegistryGatewayID is the gateway network-attached devices report through.
	RegistryGatewayID int
	// FixtureGatewayID is stored on fixture rows and their registry mirrors.
	FixtureGatewayID int
	// DeviceTypeID is the registry device type for new devices.
	DeviceTypeID int
	// SwitchGroups maps a crew-reported switch type to a relay group.
	SwitchGroups map[string]int
}

type networkPlan struct {
	device    registry.Device
	associate bool
	groupID   int
	retire    string
}

type gatewayPlan struct {
	row    fixture.Row
	device registry.Device
	retire string
}

// fixtureWrite is what to do given whether the fixture already exists.
type fixtureWrite struct {
	fixtureOp  Operation
	registryOp Operation
}

func planNetwork(n asset.Normalized, s Settings) networkPlan {
	p := networkPlan{
		device: deviceFor(n, s.RegistryGatewayID, s.DeviceTypeID),
	}
	if n.Event.SwitchType != "" {
		p.groupID, p.associate = s.SwitchGroups[n.Event.SwitchType]
	}
	if n.RetiresPrevious() {
		p.retire = n.PreviousSerial
	}
	return p
}

func planGateway(n asset.Normalized, s Settings) gatewayPlan {
	p := gatewayPlan{
		row: fixture.Row{
			Name:      n.Serial,
			Latitude:  n.Event.Latitude,
			Longitude: n.Event.Longitude,
			GatewayID: s.FixtureGatewayID,
		},
		device: deviceFor(n, s.FixtureGatewayID, s.DeviceTypeID),
	}
	if n.RetiresPrevious() {
		p.retire = n.PreviousSerial
	}
	return p
}

// decideFixtureWrite picks update or insert from the live existence check.
func decideFixtureWrite(exists bool) fixtureWrite {
	if exists {
		return fixtureWrite{fixtureOp: OpFixtureUpdate, registryOp: OpRegistryUpdate}
	}
	return fixtureWrite{fixtureOp: OpFixtureInsert, registryOp: OpRegistryCreate}
}

func deviceFor(n asset.Normalized, gatewayID, typeID int) registry.Device {
	return registry.Device{
		Serial:    n.Serial,
		Pole:      n.Serial,
		Latitude:  n.Event.Latitude,
		Longitude: n.Event.Longitude,
		GatewayID: gatewayID,
		TypeID:    typeID,
	}
}
