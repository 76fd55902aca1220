package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// Digitize turns points traced over a chart into a normalized series.
// Points are ordered left to right; canvas y grows downward so it is inverted.
func Digitize(points []models.Point) ([]float64, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no points traced: %w", models.ErrDegenerateSeries)
	}
	sorted := make([]models.Point, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range sorted {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	if maxY == minY {
		return nil, fmt.Errorf("flat trace at y=%g: %w", minY, models.ErrDegenerateSeries)
	}
	out := make([]float64, len(sorted))
	for i, p := range sorted {
		out[i] = 1 - (p.Y-minY)/(maxY-minY)
	}
	return out, nil
}
