package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// ErrDecode marks request payloads that are not valid JSON requests.
var ErrDecode = errors.New("decode conversion request")

// Converter is the interface of convert.Service the transformer needs.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) ([]domain.Product, error)
}

// RequestTransformer implements Transformer by decoding a JSON
// convert.Request and running the conversion.
type RequestTransformer struct {
	converter Converter
	logger    *slog.Logger
}

// NewTransformer creates a RequestTransformer.
func NewTransformer(converter Converter, logger *slog.Logger) *RequestTransformer {
	return &RequestTransformer{
		converter: converter,
		logger:    logger,
	}
}

func (t *RequestTransformer) Transform(ctx context.Context, msg domain.Message) ([]domain.Product, error) {
	req, err := ParseRequest(msg)
	if err != nil {
		return nil, err
	}
	return t.converter.Convert(ctx, req)
}

// ParseRequest decodes a message payload. The message key becomes the request
// ID when the payload carries none.
func ParseRequest(msg domain.Message) (convert.Request, error) {
	var req convert.Request
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return convert.Request{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if req.ID == "" && len(msg.Key) > 0 {
		req.ID = string(msg.Key)
	}
	return req, nil
}

func reason(err error) string {
	if errors.Is(err, ErrDecode) {
		return "decode"
	}
	return convert.Reason(err)
}
