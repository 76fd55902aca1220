package nn

import (
	"fmt"

	"github.com/antonbeski0/Predflux/internal/domain/models"
)

// Default layer widths.
const (
	DefaultUnits     = 32
	DefaultHeadUnits = 64
)

// SingleAssetArchitecture is one recurrent layer over [lookback, 1] with a
// linear Dense(1) head.
func SingleAssetArchitecture(lookback, units int) models.Architecture {
	return models.Architecture{
		Branches: 1,
		Lookback: lookback,
		InputDim: 1,
		Units:    units,
		Head:     []models.DenseSpec{{Units: 1, Activation: models.ActivationLinear}},
	}
}

// MultiAssetArchitecture has one recurrent branch per asset over
// [lookback, 2] inputs (price, sentiment), concatenated into
// Dense(headUnits, relu) and Dense(1).
func MultiAssetArchitecture(assets, lookback, units, headUnits int) models.Architecture {
	return models.Architecture{
		Branches: assets,
		Lookback: lookback,
		InputDim: 2,
		Units:    units,
		Head: []models.DenseSpec{
			{Units: headUnits, Activation: models.ActivationReLU},
			{Units: 1, Activation: models.ActivationLinear},
		},
	}
}

// Validate checks a descriptor is buildable and ends in a scalar output.
func Validate(a models.Architecture) error {
	switch {
	case a.Branches < 1:
		return fmt.Errorf("architecture: branches %d < 1", a.Branches)
	case a.Lookback < 1:
		return fmt.Errorf("architecture: lookback %d < 1", a.Lookback)
	case a.InputDim < 1:
		return fmt.Errorf("architecture: input dim %d < 1", a.InputDim)
	case a.Units < 1:
		return fmt.Errorf("architecture: units %d < 1", a.Units)
	case len(a.Head) == 0:
		return fmt.Errorf("architecture: empty head")
	}
	for i, d := range a.Head {
		if d.Units < 1 {
			return fmt.Errorf("architecture: head layer %d has %d units", i, d.Units)
		}
		if d.Activation != models.ActivationLinear && d.Activation != models.ActivationReLU {
			return fmt.Errorf("architecture: head layer %d activation %q", i, d.Activation)
		}
	}
	if last := a.Head[len(a.Head)-1]; last.Units != 1 {
		return fmt.Errorf("architecture: output layer has %d units, want 1", last.Units)
	}
	return nil
}
