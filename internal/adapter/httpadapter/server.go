package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Converter produces products for a request. *convert.Service satisfies it.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) ([]domain.Product, error)
}

// Server exposes health, readiness, metrics, and on-demand conversion
// endpoints.
type Server struct {
	httpServer *http.Server
	converter  Converter
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, and /metrics
// routes. GET /products is added when converter is non-nil.
func NewServer(addr string, ready sharedobs.ReadinessChecker, converter Converter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		converter: converter,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	if converter != nil {
		mux.HandleFunc("GET /products", s.handleProducts)
	}

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleProducts converts one station-day and returns the encoded file:
//
//	GET /products?station=OTT&date=2019-01-02&format=iaga2002&location=R0,R1
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := convert.Request{
		Network:       q.Get("network"),
		Station:       q.Get("station"),
		Locations:     splitList(q.Get("location")),
		Channels:      splitList(q.Get("channel")),
		Date:          q.Get("date"),
		LocationOrder: splitList(q.Get("location_order")),
	}
	if f := q.Get("format"); f != "" {
		parsed, err := format.Parse(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Format = parsed
	}
	if strings.ContainsAny(req.Station, "*?") {
		writeError(w, http.StatusBadRequest, errors.New("station wildcards are not supported here"))
		return
	}

	products, err := s.converter.Convert(r.Context(), req)
	if err != nil {
		s.logger.Warn("conversion failed", "error", err, "station", req.Station, "date", req.Date)
		writeError(w, statusFor(err), err)
		return
	}

	if len(products) == 0 {
		writeError(w, http.StatusNotFound, convert.ErrNoData)
		return
	}
	p := products[0]
	w.Header().Set("Content-Type", "text/plain; charset=us-ascii")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(p.Data) //nolint:errcheck // client went away
}

func statusFor(err error) int {
	switch convert.Reason(err) {
	case "invalid":
		return http.StatusBadRequest
	case "no_data":
		return http.StatusNotFound
	case "encode":
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
