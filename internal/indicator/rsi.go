package indicator

import (
	"strconv"

	"intraday-enginev1/internal/model"
)

// RSI calculates the Relative Strength Index using Wilder's smoothing.
// First average gain/loss is a plain mean over the initial period; after
// that avg = (prev*(period-1) + current) / period.
type RSI struct {
	period    int
	avgGain   float64
	avgLoss   float64
	prevClose int64
	count     int
	value     float64
}

// NewRSI creates a new RSI indicator with the given period.
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string { return "RSI_" + strconv.Itoa(r.period) }

func (r *RSI) Update(candle model.Candle) {
	price := candle.Close
	if r.count == 0 {
		r.prevClose = price
		r.count++
		return
	}

	change := float64(price - r.prevClose)
	r.prevClose = price
	r.count++

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	n := float64(r.period)
	if r.count-1 <= r.period {
		// Accumulate for initial averages
		r.avgGain += gain
		r.avgLoss += loss
		if r.count-1 == r.period {
			r.avgGain /= n
			r.avgLoss /= n
			r.recompute()
		}
		return
	}

	r.avgGain = (r.avgGain*(n-1) + gain) / n
	r.avgLoss = (r.avgLoss*(n-1) + loss) / n
	r.recompute()
}

func (r *RSI) recompute() {
	if r.avgLoss == 0 {
		r.value = 100
		return
	}
	rs := r.avgGain / r.avgLoss
	r.value = 100 - (100 / (1 + rs))
}

func (r *RSI) Value() float64 { return r.value }
func (r *RSI) Ready() bool    { return r.count-1 >= r.period }
