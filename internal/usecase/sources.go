package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	domrepo "github.com/antonbeski0/Predflux/internal/domain/repository"
)

// ChainSource asks each source in turn and returns the first non-empty
// series. Typically ClickHouse candles first, then the live buffers.
type ChainSource []domrepo.SeriesSource

func (c ChainSource) LatestValues(ctx context.Context, symbol string, n int) ([]float64, error) {
	var errs []error
	for _, src := range c {
		if src == nil {
			continue
		}
		vals, err := src.LatestValues(ctx, symbol, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(vals) > 0 {
			return vals, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("series %s: %w", symbol, errors.Join(errs...))
	}
	return nil, fmt.Errorf("series %s: no data: %w", symbol, models.ErrInsufficientData)
}
