package mqtt

import "strings"

const (
	// TopicPrefix is the root of every topic this service publishes.
	TopicPrefix = "assetsync"

	// TopicPrefixSystem is the base for service status topics.
	TopicPrefixSystem = TopicPrefix + "/system"

	// TopicPrefixReconcile is the base for reconciliation reports.
	TopicPrefixReconcile = TopicPrefix + "/reconcile"
)

// Topics provides builders for assetsync topics.
//
//	topic := mqtt.Topics{}.Reconcile("gateway_routed", "402198765")
//	// Returns: "assetsync/reconcile/gateway_routed/402198765"
type Topics struct{}

// SystemStatus is the retained online/offline status topic.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Reconcile returns the report topic for one asset.
func (Topics) Reconcile(class, serial string) string {
	return TopicPrefixReconcile + "/" + segment(class) + "/" + segment(serial)
}

// segment makes s safe as a single topic level. Serials come from free text,
// so separators and wildcards are replaced.
func segment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
}
