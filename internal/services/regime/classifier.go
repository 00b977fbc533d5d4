package regime

import (
	"fmt"

	"TrendPull/internal/domain/models"
	"TrendPull/internal/services/features"
)

// Inputs are the per-bar values the classifier reads.
type Inputs struct {
	CUSUMHi  float64
	CUSUMLo  float64
	Hurst    float64
	FDI      float64
	RollingH float64
}

// Classifier labels each bar bullish, bearish or no-trend.
type Classifier struct {
	params models.RegimeParams
}

func NewClassifier(params models.RegimeParams) *Classifier {
	return &Classifier{params: params}
}

// Label applies the thresholds to one bar. Bullish is tested first and wins when both
// accumulators clear the threshold. Any missing input fails every comparison.
func (c *Classifier) Label(in Inputs) models.Regime {
	trending := in.Hurst > c.params.HurstThreshold && in.FDI < c.params.FDIThreshold
	switch {
	case trending && in.CUSUMHi > in.RollingH:
		return models.RegimeBullish
	case trending && in.CUSUMLo > in.RollingH:
		return models.RegimeBearish
	default:
		return models.RegimeNoTrend
	}
}

// Classify writes rolling_h and the regime column onto a frame that already carries
// the CUSUM, Hurst and FDI columns.
func (c *Classifier) Classify(f *models.Frame) error {
	for _, name := range []string{models.ColCUSUMHi, models.ColCUSUMLo, models.ColHurst, models.ColFDI} {
		if _, ok := f.Column(name); !ok {
			return fmt.Errorf("classify regime: column %s not computed", name)
		}
	}
	std := features.RollingStd(f.PrevClose, c.params.Window, c.params.Window)
	rollingH := make([]float64, len(std))
	for i, s := range std {
		rollingH[i] = c.params.HFactor * s
	}
	if err := f.SetColumn(models.ColRollingH, rollingH); err != nil {
		return err
	}

	hi, _ := f.Column(models.ColCUSUMHi)
	lo, _ := f.Column(models.ColCUSUMLo)
	hurst, _ := f.Column(models.ColHurst)
	fdi, _ := f.Column(models.ColFDI)
	f.Regime = make([]models.Regime, f.Len())
	for i := range f.Regime {
		f.Regime[i] = c.Label(Inputs{
			CUSUMHi:  hi[i],
			CUSUMLo:  lo[i],
			Hurst:    hurst[i],
			FDI:      fdi[i],
			RollingH: rollingH[i],
		})
	}
	return nil
}
