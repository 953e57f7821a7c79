package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/geomag-etl/internal/domain"
)

// Fanout delivers every batch to each loader in turn and stops at the first
// failure. Loaders must tolerate redelivery since a retried batch reaches the
// loaders that already succeeded again.
type Fanout []BatchLoader

func (f Fanout) LoadBatch(ctx context.Context, products []domain.Product) error {
	for i, l := range f {
		if err := l.LoadBatch(ctx, products); err != nil {
			return fmt.Errorf("loader %d: %w", i, err)
		}
	}
	return nil
}
