package domain

import "time"

// Product is one encoded file ready for delivery: a station-day in one
// format, named by that format's convention.
type Product struct {
	RequestID string
	Filename  string
	Format    string
	Network   string
	Station   string
	Date      time.Time
	Data      []byte
}

// Key identifies the product independently of its contents.
func (p Product) Key() string {
	return p.Network + "." + p.Station + "." + p.Format + "." + p.Date.UTC().Format(time.DateOnly)
}
