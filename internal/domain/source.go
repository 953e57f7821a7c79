package domain

import (
	"context"
	"time"
)

// WaveformQuery selects traces by SEED identity over a time window. Location
// and channel codes may carry ? and * wildcards.
type WaveformQuery struct {
	Network   string
	Station   string
	Locations []string
	Channels  []string
	Start     time.Time
	End       time.Time
}

// WaveformSource fetches traces matching a query. An empty stream with a nil
// error means no data.
type WaveformSource interface {
	Waveforms(ctx context.Context, q WaveformQuery) (Stream, error)
}

// StationSource looks up station descriptors. It returns nil, nil when the
// station is unknown.
type StationSource interface {
	Station(ctx context.Context, network, station string) (*Station, error)
}
