package indicator

import (
	"strconv"

	"intraday-enginev1/internal/model"
)

// ATR calculates the Average True Range, the volatility measure used for
// stop placement and position sizing.
//
// TR = max(high-low, |high-prevClose|, |low-prevClose|)
// ATR = Wilder's moving average (RMA) of TR over period candles.
// Values are in paise.
type ATR struct {
	period    int
	prevClose int64
	sum       float64
	current   float64
	count     int
}

// NewATR creates a new ATR indicator with the given period.
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() string { return "ATR_" + strconv.Itoa(a.period) }

func (a *ATR) Update(candle model.Candle) {
	tr := float64(candle.High - candle.Low)
	if a.count > 0 {
		hc := abs64(candle.High - a.prevClose)
		lc := abs64(candle.Low - a.prevClose)
		if float64(hc) > tr {
			tr = float64(hc)
		}
		if float64(lc) > tr {
			tr = float64(lc)
		}
	}
	a.prevClose = candle.Close
	a.count++

	if a.count <= a.period {
		a.sum += tr
		if a.count == a.period {
			a.current = a.sum / float64(a.period)
		}
		return
	}

	// Wilder's RMA: alpha = 1/period
	n := float64(a.period)
	a.current = (a.current*(n-1) + tr) / n
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count >= a.period }

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
