package asset

import "time"

// ChangeEvent is one asset change reported by the GIS layer.
// Optional text fields use the empty string for "absent".
type ChangeEvent struct {
	FeatureID         int64
	RawSerial         string
	RawPreviousSerial string
	Latitude          float64
	Longitude         float64
	Timestamp         time.Time
	PictureRef        string
	Notes             string
	SwitchType        string
	LampType          string
	StatusReason      string
}

// DeviceClass decides which downstream systems an asset lives in.
type DeviceClass string

const (
	// ClassNetworkAttached devices talk to the registry directly.
	ClassNetworkAttached DeviceClass = "network_attached"

	// ClassGatewayRouted devices sit behind a gateway and are tracked in the
	// fixture store, mirrored into the registry.
	ClassGatewayRouted DeviceClass = "gateway_routed"

	// ClassUnknown is any serial that matches no prefix rule.
	ClassUnknown DeviceClass = "unknown"
)

// Normalized is a ChangeEvent with its serials canonicalised and classified.
type Normalized struct {
	Event          ChangeEvent
	Serial         string
	PreviousSerial string
	Class          DeviceClass
}

// Normalize applies NormalizeSerial to both serials and classifies the result.
func Normalize(ev ChangeEvent) Normalized {
	n := Normalized{
		Event:  ev,
		Serial: NormalizeSerial(ev.RawSerial),
	}
	if ev.RawPreviousSerial != "" {
		n.PreviousSerial = NormalizeSerial(ev.RawPreviousSerial)
	}
	n.Class = Classify(n.Serial)
	return n
}

// RetiresPrevious reports whether a different previous serial must be retired
// once the new serial is established.
func (n Normalized) RetiresPrevious() bool {
	return n.PreviousSerial != "" && n.PreviousSerial != n.Serial
}
