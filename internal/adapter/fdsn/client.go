// Package fdsn queries FDSN web services for geomagnetic waveforms
// (dataselect, miniSEED) and station descriptors (station, text format).
package fdsn

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/mseed"
	"github.com/couchcryptid/geomag-etl/internal/observability"
)

const (
	serviceDataselect = "dataselect"
	serviceStation    = "station"
	queryTimeLayout   = "2006-01-02T15:04:05.000000"
)

// Client implements domain.WaveformSource and domain.StationSource over HTTP.
type Client struct {
	baseURL     string
	institution string
	httpClient  *http.Client
	maxElapsed  time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewClient creates an FDSN client rooted at baseURL, e.g.
// http://fdsn.seismo.nrcan.gc.ca. institution becomes the Source of every
// station descriptor the client returns.
func NewClient(baseURL, institution string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		institution: institution,
		httpClient:  &http.Client{Timeout: timeout},
		maxElapsed:  time.Minute,
		metrics:     metrics,
		logger:      logger,
	}
}

// Waveforms fetches miniSEED for q from the dataselect service.
func (c *Client) Waveforms(ctx context.Context, q domain.WaveformQuery) (domain.Stream, error) {
	params := url.Values{
		"network":   {q.Network},
		"station":   {q.Station},
		"location":  {strings.Join(q.Locations, ",")},
		"channel":   {strings.Join(q.Channels, ",")},
		"starttime": {q.Start.UTC().Format(queryTimeLayout)},
		"endtime":   {q.End.UTC().Format(queryTimeLayout)},
	}
	u := c.baseURL + "/fdsnws/dataselect/1/query?" + params.Encode()

	body, err := c.get(ctx, serviceDataselect, u)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	s, err := mseed.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode dataselect response: %w", err)
	}
	c.logger.Debug("waveforms fetched", "network", q.Network, "station", q.Station, "traces", len(s), "samples", s.SampleCount())
	return s, nil
}

// Station fetches the descriptor of one station from the station service.
func (c *Client) Station(ctx context.Context, network, station string) (*domain.Station, error) {
	params := url.Values{
		"network": {network},
		"station": {station},
		"level":   {"station"},
		"format":  {"text"},
	}
	u := c.baseURL + "/fdsnws/station/1/query?" + params.Encode()

	body, err := c.get(ctx, serviceStation, u)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}
	st, err := parseStationText(body, station)
	if err != nil {
		return nil, err
	}
	if st != nil {
		st.Source = c.institution
	}
	return st, nil
}

// get performs a GET with retries on 429 and 5xx. A 204 or 404 response
// yields a nil body and nil error.
func (c *Client) get(ctx context.Context, service, fullURL string) ([]byte, error) {
	start := time.Now()
	defer func() {
		c.metrics.FDSNDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", service, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
			body = nil
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%s: status %d", service, resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("fdsn %s error: status %d: %s", service, resp.StatusCode, bytes.TrimSpace(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read %s body: %w", service, err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.maxElapsed
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("fdsn request retry", "service", service, "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		c.metrics.FDSNRequests.WithLabelValues(service, "error").Inc()
		return nil, err
	}
	if body == nil {
		c.metrics.FDSNRequests.WithLabelValues(service, "empty").Inc()
		return nil, nil
	}
	c.metrics.FDSNRequests.WithLabelValues(service, "success").Inc()
	return body, nil
}

// parseStationText reads the pipe-delimited station listing:
//
//	#Network|Station|Latitude|Longitude|Elevation|SiteName|StartTime|EndTime
//	C2|OTT|45.403|-75.552|75.0|Ottawa|1968-01-01T00:00:00|
//
// It returns the first row for station, with longitude mapped to 0..360 east.
func parseStationText(body []byte, station string) (*domain.Station, error) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) < 6 {
			return nil, fmt.Errorf("parse station line %q: %d fields", line, len(fields))
		}
		if !strings.EqualFold(strings.TrimSpace(fields[1]), station) {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse latitude: %w", err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse longitude: %w", err)
		}
		elev, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse elevation: %w", err)
		}
		return &domain.Station{
			Name:      strings.TrimSpace(fields[5]),
			Latitude:  lat,
			Longitude: domain.EastLongitude(lon),
			Elevation: elev,
		}, nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan station text: %w", err)
	}
	return nil, nil
}

