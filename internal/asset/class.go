package asset

import "strings"

// networkAttachedPrefixes identifies devices with their own uplink.
var networkAttachedPrefixes = []string{"103"}

// gatewayRoutedPrefixes identifies devices reached through a gateway.
var gatewayRoutedPrefixes = []string{"402", "750", "220", "470", "200", "400", "120"}

// Classify maps a normalized serial to its DeviceClass by prefix.
func Classify(serial string) DeviceClass {
	if serial == "" {
		return ClassUnknown
	}
	if hasAnyPrefix(serial, networkAttachedPrefixes) {
		return ClassNetworkAttached
	}
	if hasAnyPrefix(serial, gatewayRoutedPrefixes) {
		return ClassGatewayRouted
	}
	return ClassUnknown
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
