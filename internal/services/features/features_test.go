package features

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

func TestNormalizeRangeAndOrder(t *testing.T) {
	raw := []float64{10, 30, 20, 50, 40}
	got, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, got, len(raw))
	assert.Equal(t, []float64{0, 0.5, 0.25, 1, 0.75}, got)
	for i := range raw {
		for j := range raw {
			if raw[i] < raw[j] {
				assert.Less(t, got[i], got[j])
			}
		}
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	_, err := Normalize([]float64{3, 3, 3})
	require.ErrorIs(t, err, models.ErrDegenerateSeries)

	_, err = Normalize(nil)
	require.ErrorIs(t, err, models.ErrDegenerateSeries)
}

func TestNormalizeRejectsNaN(t *testing.T) {
	_, err := Normalize([]float64{1, math.NaN(), 2})
	require.ErrorIs(t, err, models.ErrInvalidSeries)
}

func TestScalerInverse(t *testing.T) {
	s, err := NewScaler([]float64{100, 200})
	require.NoError(t, err)
	assert.InDelta(t, 150, s.Inverse(0.5), 1e-12)
	assert.Equal(t, []float64{100, 200}, s.InverseAll([]float64{0, 1}))
}

func TestBuildWindows(t *testing.T) {
	series := []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	ds, err := Build(series, 8)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, 1, ds.Features)

	assert.Equal(t, 0.8, ds.Windows[0].Target)
	assert.Equal(t, 0.9, ds.Windows[1].Target)
	require.Len(t, ds.Windows[0].Input, 8)
	assert.Equal(t, []float64{0}, ds.Windows[0].Input[0])
	assert.Equal(t, []float64{0.8}, ds.Windows[1].Input[7])
}

func TestBuildCountProperty(t *testing.T) {
	for n := 2; n < 30; n++ {
		series := make([]float64, n)
		for lookback := 1; lookback < n; lookback++ {
			ds, err := Build(series, lookback)
			require.NoError(t, err)
			assert.Equal(t, n-lookback, ds.Len())
		}
	}
}

func TestBuildInsufficient(t *testing.T) {
	_, err := Build(make([]float64, 8), 8)
	require.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = Build(make([]float64, 8), 0)
	require.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestBuildWithSentiment(t *testing.T) {
	series := []float64{0.1, 0.2, 0.3, 0.4}
	ds, err := BuildWithSentiment(series, Mean([]float64{2, -1, 5}), 2)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, 2, ds.Features)
	for _, w := range ds.Windows {
		for _, step := range w.Input {
			require.Len(t, step, 2)
			assert.Equal(t, 2.0, step[1])
		}
	}
	assert.Equal(t, []float64{0.2, 2}, ds.Windows[1].Input[0])
	assert.Equal(t, 0.4, ds.Windows[1].Target)
}

func TestMeanEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
}

func TestDigitizeSortsAndInverts(t *testing.T) {
	pts := []models.Point{{X: 30, Y: 0}, {X: 10, Y: 100}, {X: 20, Y: 50}}
	got, err := Digitize(pts)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.5, 1}, got)
}

func TestDigitizeFlat(t *testing.T) {
	_, err := Digitize([]models.Point{{X: 1, Y: 5}, {X: 2, Y: 5}})
	require.ErrorIs(t, err, models.ErrDegenerateSeries)
}

func TestReadValues(t *testing.T) {
	got, err := ReadValues(strings.NewReader("close\n101.5\n102\n,99\n"))
	require.NoError(t, err)
	assert.Equal(t, []float64{101.5, 102, 99}, got)

	_, err = ReadValues(strings.NewReader("a,b\nc"))
	require.ErrorIs(t, err, models.ErrInvalidSeries)
}
