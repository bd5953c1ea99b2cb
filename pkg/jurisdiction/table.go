package jurisdiction

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Region is one bounding box in the jurisdiction table. The table is
// configuration, not logic: boxes are chosen non-overlapping by design, and
// deployments may replace or extend the built-in set via LoadTable.
type Region struct {
	Code   Code    `yaml:"code" json:"code"`
	Name   string  `yaml:"name" json:"name"`
	MinLat float64 `yaml:"min_lat" json:"min_lat"`
	MaxLat float64 `yaml:"max_lat" json:"max_lat"`
	MinLon float64 `yaml:"min_lon" json:"min_lon"`
	MaxLon float64 `yaml:"max_lon" json:"max_lon"`
}

// Contains reports whether the point lies inside the region's bounding box.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// DefaultRegions returns the built-in jurisdiction table.
func DefaultRegions() []Region {
	return []Region{
		{Code: "UAE", Name: "United Arab Emirates", MinLat: 22.6, MaxLat: 26.1, MinLon: 51.5, MaxLon: 56.4},
		{Code: "ZA", Name: "South Africa", MinLat: -35.0, MaxLat: -22.1, MinLon: 16.4, MaxLon: 33.0},
		{Code: "UK", Name: "United Kingdom", MinLat: 49.9, MaxLat: 60.9, MinLon: -8.2, MaxLon: 1.8},
		{Code: "US", Name: "United States (contiguous)", MinLat: 24.5, MaxLat: 49.4, MinLon: -124.8, MaxLon: -66.9},
		{Code: "AU", Name: "Australia", MinLat: -43.7, MaxLat: -10.7, MinLon: 113.2, MaxLon: 153.6},
		{Code: "IN", Name: "India", MinLat: 8.0, MaxLat: 35.5, MinLon: 68.7, MaxLon: 97.4},
	}
}

type tableFile struct {
	Regions []Region `yaml:"regions"`
}

// LoadTable reads a region table from a YAML file and validates it.
func LoadTable(path string) ([]Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jurisdiction table: %w", err)
	}

	var tf tableFile
	if err := yaml.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("parse jurisdiction table: %w", err)
	}
	if len(tf.Regions) == 0 {
		return nil, fmt.Errorf("jurisdiction table %s defines no regions", path)
	}

	for i, r := range tf.Regions {
		if r.Code == "" || r.Code == CodeUnknown {
			return nil, fmt.Errorf("region %d: code %q is reserved or empty", i, r.Code)
		}
		if r.MinLat > r.MaxLat || r.MinLon > r.MaxLon {
			return nil, fmt.Errorf("region %s: inverted bounding box", r.Code)
		}
		if r.MinLat < -90 || r.MaxLat > 90 || r.MinLon < -180 || r.MaxLon > 180 {
			return nil, fmt.Errorf("region %s: bounding box outside WGS84", r.Code)
		}
	}
	return tf.Regions, nil
}
