// Package zone resolves a coordinate to the gateway zone that covers it.
//
// Zones are polygons loaded from a YAML file:
//
//	zones:
//	  - id: 1
//	    ident: "0621.1003"
//	    polygon:            # [longitude, latitude] pairs
//	      - [34.850, 32.020]
//	      - [34.860, 32.020]
//	      - [34.860, 32.030]
//
// The first zone containing the point wins. When none does, the configured
// fallback ident is returned, or ErrNoZone if there is none.
package zone
