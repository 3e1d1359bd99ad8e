package zone

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Resolver maps a coordinate to a zone ident.
type Resolver interface {
	Resolve(lon, lat float64) (string, error)
}

// Zone is one gateway coverage polygon.
type Zone struct {
	ID    int          `yaml:"id"`
	Ident string       `yaml:"ident"`
	Ring  [][2]float64 `yaml:"polygon"`

	minLon, minLat, maxLon, maxLat float64
}

type zoneFile struct {
	Zones []Zone `yaml:"zones"`
}

// PolygonLookup is a Resolver over a fixed set of polygons.
type PolygonLookup struct {
	zones    []Zone
	fallback string
}

var _ Resolver = (*PolygonLookup)(nil)

// LoadFile reads a zone file.
func LoadFile(path, fallback string) (*PolygonLookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading zone file: %w", err)
	}
	return Parse(data, fallback)
}

// Parse builds a lookup from zone file contents.
func Parse(data []byte, fallback string) (*PolygonLookup, error) {
	var f zoneFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing zone file: %w", err)
	}
	return New(f.Zones, fallback)
}

// New validates zones and builds a lookup.
func New(zones []Zone, fallback string) (*PolygonLookup, error) {
	out := make([]Zone, 0, len(zones))
	for i, z := range zones {
		if z.Ident == "" {
			return nil, fmt.Errorf("%w: zone %d has no ident", ErrInvalidZone, i)
		}
		if len(z.Ring) < 3 {
			return nil, fmt.Errorf("%w: zone %s needs at least 3 vertices", ErrInvalidZone, z.Ident)
		}
		z.minLon, z.minLat = z.Ring[0][0], z.Ring[0][1]
		z.maxLon, z.maxLat = z.minLon, z.minLat
		for _, p := range z.Ring[1:] {
			z.minLon = min(z.minLon, p[0])
			z.maxLon = max(z.maxLon, p[0])
			z.minLat = min(z.minLat, p[1])
			z.maxLat = max(z.maxLat, p[1])
		}
		out = append(out, z)
	}
	return &PolygonLookup{zones: out, fallback: fallback}, nil
}

// Len reports how many zones are loaded.
func (l *PolygonLookup) Len() int {
	return len(l.zones)
}

// Resolve returns the ident of the first zone containing (lon, lat).
func (l *PolygonLookup) Resolve(lon, lat float64) (string, error) {
	for i := range l.zones {
		if l.zones[i].contains(lon, lat) {
			return l.zones[i].Ident, nil
		}
	}
	if l.fallback != "" {
		return l.fallback, nil
	}
	return "", fmt.Errorf("%w: (%g, %g)", ErrNoZone, lon, lat)
}

// contains is an even-odd ray cast. The ring may be open or closed.
func (z *Zone) contains(lon, lat float64) bool {
	if lon < z.minLon || lon > z.maxLon || lat < z.minLat || lat > z.maxLat {
		return false
	}

	inside := false
	n := len(z.Ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := z.Ring[i][0], z.Ring[i][1]
		xj, yj := z.Ring[j][0], z.Ring[j][1]
		if (yi > lat) != (yj > lat) && lon < (xj-xi)*(lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
