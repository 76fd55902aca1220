package features

import (
	"fmt"
	"io"

	"github.com/antonbeski0/Predflux/internal/domain/models"
	"github.com/antonbeski0/Predflux/pkg/util"
)

// ReadValues reads every numeric cell from r in row order. Headers and other
// non-numeric cells are skipped. The values are returned unnormalized.
func ReadValues(r io.Reader) ([]float64, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	raw := util.ParseFloats(string(b))
	if len(raw) == 0 {
		return nil, fmt.Errorf("input has no numeric values: %w", models.ErrInvalidSeries)
	}
	return raw, nil
}
