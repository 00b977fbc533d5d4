package accounting

import "TrendPull/internal/domain/models"

// CumulativeReturns replays signals against the raw close and returns the running
// equity curve starting at p.Base. By default only short closes compound; long round
// trips are tracked but leave the curve flat unless p.Symmetric is set. Rows with a
// missing close (a synthetic tail) keep the previous value and do not trade.
func CumulativeReturns(signals []int, closes []float64, p models.AccountingParams) []float64 {
	out := make([]float64, len(signals))
	side := models.SideFlat
	entry := models.Missing
	equity := p.Base

	for i, s := range signals {
		price := models.Missing
		if i < len(closes) {
			price = closes[i]
		}
		if models.IsMissing(price) {
			out[i] = equity
			continue
		}
		switch side {
		case models.SideFlat:
			switch s {
			case models.SignalBuy:
				side, entry = models.SideLong, price
			case models.SignalSell:
				side, entry = models.SideShort, price
			}
		case models.SideLong:
			if s == models.SignalSell {
				if p.Symmetric && entry != 0 {
					equity *= 1 + (price-entry)/entry
				}
				side, entry = models.SideFlat, models.Missing
			}
		case models.SideShort:
			if s == models.SignalBuy {
				if entry != 0 {
					equity *= 1 + (entry-price)/entry
				}
				side, entry = models.SideFlat, models.Missing
			}
		}
		out[i] = equity
	}
	return out
}

// Apply writes the cumulative_returns column onto f when accounting is enabled.
func Apply(f *models.Frame, p models.AccountingParams) {
	if !p.Enabled {
		return
	}
	f.CumReturns = CumulativeReturns(f.Signal, f.Close, p)
}
