// Package stationfile serves station descriptors from a local YAML file,
// for observatories whose FDSN metadata is missing or incomplete.
//
//	source: Geological Survey of Canada (GSC)
//	stations:
//	  - network: C2
//	    code: OTT
//	    name: Ottawa
//	    latitude: 45.403
//	    longitude: 284.448 # or -75.552; stored as degrees east
//	    elevation: 75
package stationfile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

type document struct {
	Source   string  `yaml:"source"`
	Stations []entry `yaml:"stations"`
}

type entry struct {
	Network        string `yaml:"network"`
	Code           string `yaml:"code"`
	domain.Station `yaml:",inline"`
}

// File is a domain.StationSource backed by a YAML document. Stations it does
// not list are looked up in the fallback source, when one is set.
type File struct {
	stations map[string]domain.Station
	fallback domain.StationSource
}

// Load reads the station file at path. fallback may be nil.
func Load(path string, fallback domain.StationSource) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read station file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.fallback = fallback
	return f, nil
}

// Parse decodes a station document.
func Parse(data []byte) (*File, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse station file: %w", err)
	}
	f := &File{stations: make(map[string]domain.Station, len(doc.Stations))}
	for i, e := range doc.Stations {
		if e.Network == "" || e.Code == "" {
			return nil, fmt.Errorf("station %d: network and code are required", i)
		}
		st := e.Station
		st.Longitude = domain.EastLongitude(st.Longitude)
		if st.Source == "" {
			st.Source = doc.Source
		}
		f.stations[key(e.Network, e.Code)] = st
	}
	return f, nil
}

// Station returns the listed descriptor, falling back when unlisted.
func (f *File) Station(ctx context.Context, network, station string) (*domain.Station, error) {
	if st, ok := f.stations[key(network, station)]; ok {
		return &st, nil
	}
	if f.fallback == nil {
		return nil, nil
	}
	return f.fallback.Station(ctx, network, station)
}

// Len returns the number of listed stations.
func (f *File) Len() int { return len(f.stations) }

func key(network, station string) string {
	return strings.ToUpper(network) + "." + strings.ToUpper(station)
}
