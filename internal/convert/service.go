// Package convert turns conversion requests into encoded products: fetch a
// day of traces, merge competing locations, trim to the day, and encode each
// station with its descriptor.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/couchcryptid/geomag-etl/internal/observability"
)

// ErrNoData means the waveform source returned nothing for a request.
var ErrNoData = errors.New("no data found")

// Service converts requests. The station source is optional.
type Service struct {
	waveforms domain.WaveformSource
	stations  domain.StationSource
	opts      format.Options
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService creates a converter. stations may be nil, in which case headers
// carry blank station fields.
func NewService(waveforms domain.WaveformSource, stations domain.StationSource, opts format.Options, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		waveforms: waveforms,
		stations:  stations,
		opts:      opts,
		metrics:   metrics,
		logger:    logger,
	}
}

// Convert fetches and encodes req. Products of stations that encoded are
// returned even when others failed; the failures are joined into the error.
func (s *Service) Convert(ctx context.Context, req Request) ([]domain.Product, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start, end, _ := req.Window()

	s.logger.Info("requesting waveforms",
		"request_id", req.ID,
		"id", fmt.Sprintf("%s.%s.%s.%s", req.Network, req.Station, strings.Join(req.Locations, ","), strings.Join(req.Channels, ",")),
		"start", start, "end", end)
	stream, err := s.waveforms.Waveforms(ctx, domain.WaveformQuery{
		Network:   req.Network,
		Station:   req.Station,
		Locations: req.Locations,
		Channels:  req.Channels,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch waveforms: %w", err)
	}
	if len(stream) == 0 {
		return nil, fmt.Errorf("%w for %s.%s on %s", ErrNoData, req.Network, req.Station, req.Date)
	}
	return s.Encode(ctx, req, stream)
}

// Encode merges, trims and encodes an already loaded stream for req's day.
func (s *Service) Encode(ctx context.Context, req Request, stream domain.Stream) ([]domain.Product, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	day, _ := req.Day()
	start, end, _ := req.Window()

	merged := domain.MergeByLocation(stream, domain.MergeOptions{
		Order:       req.LocationOrder,
		Placeholder: domain.LocationPattern(stream),
	}).Trim(start, end)
	if len(merged) == 0 {
		return nil, fmt.Errorf("%w for %s.%s on %s", ErrNoData, req.Network, req.Station, req.Date)
	}

	var products []domain.Product
	var errs []error
	for _, code := range merged.Stations() {
		p, err := s.encodeStation(ctx, req, day, merged.SelectStation(code))
		if err != nil {
			errs = append(errs, fmt.Errorf("station %s: %w", code, err))
			continue
		}
		products = append(products, p)
	}
	return products, errors.Join(errs...)
}

func (s *Service) encodeStation(ctx context.Context, req Request, day time.Time, st domain.Stream) (domain.Product, error) {
	code := st[0].Station
	desc := s.station(ctx, st[0].Network, code)

	var buf bytes.Buffer
	if err := format.Write(&buf, req.Format, st, desc, s.opts); err != nil {
		return domain.Product{}, err
	}

	name, err := req.Format.Filename(st[0])
	if errors.Is(err, format.ErrUnsupportedFormat) {
		name = fmt.Sprintf("%s%s.txt", strings.ToLower(code), day.Format("20060102"))
	}

	s.metrics.EncodedSamples.WithLabelValues(req.Format.String()).Add(float64(st.SampleCount()))
	s.metrics.EncodedBytes.WithLabelValues(req.Format.String()).Add(float64(buf.Len()))
	s.logger.Info("product encoded", "request_id", req.ID, "station", code, "format", req.Format, "filename", name, "bytes", buf.Len())

	return domain.Product{
		RequestID: req.ID,
		Filename:  name,
		Format:    req.Format.String(),
		Network:   st[0].Network,
		Station:   code,
		Date:      day,
		Data:      buf.Bytes(),
	}, nil
}

// station looks up a descriptor. Lookup failures degrade to a blank header
// rather than failing the product.
func (s *Service) station(ctx context.Context, network, code string) *domain.Station {
	if s.stations == nil {
		return nil
	}
	desc, err := s.stations.Station(ctx, network, code)
	if err != nil {
		s.logger.Warn("station lookup failed", "network", network, "station", code, "error", err)
		return nil
	}
	if desc == nil {
		s.logger.Warn("station not found", "network", network, "station", code)
	}
	return desc
}

// Reason classifies a conversion error for metrics labels.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, format.ErrUnsupportedFormat):
		return "invalid"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, domain.ErrInconsistentStream),
		errors.Is(err, domain.ErrAmbiguousComponent),
		errors.Is(err, domain.ErrMissingComponent),
		errors.Is(err, domain.ErrUnsupportedInterval),
		errors.Is(err, domain.ErrDayRange),
		errors.Is(err, domain.ErrIncompleteDay),
		errors.Is(err, domain.ErrOffGrid),
		errors.Is(err, domain.ErrEmptyStream):
		return "encode"
	default:
		return "fetch"
	}
}
