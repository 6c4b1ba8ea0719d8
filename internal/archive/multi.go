package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/cheese-solo-chess/internal/domain"
)

// Multi records into every store; one failing store does not stop the rest.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, game *domain.SoloGame) error {
	var errs []error
	for i, rec := range m {
		if rec == nil {
			continue
		}
		if err := rec.Record(ctx, game); err != nil {
			errs = append(errs, fmt.Errorf("recorder %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
