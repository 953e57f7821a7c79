package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/google/uuid"
)

// Request defaults.
const DefaultNetwork = "C2"

var (
	DefaultLocations = []string{"R?"}
	DefaultChannels  = []string{"UFX", "UFY", "UFZ", "UFF"}
)

// ErrInvalidRequest wraps request validation failures.
var ErrInvalidRequest = errors.New("invalid conversion request")

// Request asks for one day of a station (or, with wildcards, several) in one
// format. It is the payload of the request topic.
type Request struct {
	ID        string        `json:"id,omitempty"`
	Network   string        `json:"network,omitempty"`
	Station   string        `json:"station"`
	Locations []string      `json:"locations,omitempty"`
	Channels  []string      `json:"channels,omitempty"`
	Date      string        `json:"date,omitempty"` // YYYY-MM-DD, UTC; empty means today
	Format    format.Format `json:"format"`

	// LocationOrder lists locations from lowest to highest precedence for the
	// merge. Empty ranks by ascending location code.
	LocationOrder []string `json:"location_order,omitempty"`
}

// WithDefaults fills unset fields: a fresh ID, network C2, locations R?,
// channels UFX..UFF, and today's date.
func (r Request) WithDefaults() Request {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Network == "" {
		r.Network = DefaultNetwork
	}
	if len(r.Locations) == 0 {
		r.Locations = append([]string(nil), DefaultLocations...)
	}
	if len(r.Channels) == 0 {
		r.Channels = append([]string(nil), DefaultChannels...)
	}
	if r.Date == "" {
		r.Date = clock.Now().UTC().Format(time.DateOnly)
	}
	return r
}

// Validate checks a defaulted request.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Station) == "" {
		return fmt.Errorf("%w: station is required", ErrInvalidRequest)
	}
	if _, err := r.Day(); err != nil {
		return err
	}
	if _, err := r.Format.MarshalText(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// Day returns the requested UTC day start.
func (r Request) Day() (time.Time, error) {
	d, err := time.Parse(time.DateOnly, r.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", ErrInvalidRequest, r.Date, err)
	}
	return d.UTC(), nil
}

// Window returns the request's [start, end] query window: the whole day to
// the last microsecond.
func (r Request) Window() (time.Time, time.Time, error) {
	day, err := r.Day()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return day, day.Add(24*time.Hour - time.Microsecond), nil
}
