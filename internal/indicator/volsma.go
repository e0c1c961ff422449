package indicator

import (
	"strconv"

	"intraday-enginev1/internal/model"
)

// VolumeSMA tracks the simple moving average of candle volume over a
// ring buffer. Used for relative-volume confirmation: current volume
// divided by this average.
type VolumeSMA struct {
	period int
	buf    []int64
	idx    int
	sum    int64
	count  int
	last   int64
}

// NewVolumeSMA creates a volume SMA with the given period.
func NewVolumeSMA(period int) *VolumeSMA {
	return &VolumeSMA{
		period: period,
		buf:    make([]int64, period),
	}
}

func (v *VolumeSMA) Name() string { return "VOL_SMA_" + strconv.Itoa(v.period) }

func (v *VolumeSMA) Update(candle model.Candle) {
	v.sum -= v.buf[v.idx]
	v.buf[v.idx] = candle.Volume
	v.sum += candle.Volume
	v.idx = (v.idx + 1) % v.period
	v.count++
	v.last = candle.Volume
}

func (v *VolumeSMA) Value() float64 {
	if v.count == 0 {
		return 0
	}
	n := v.count
	if n > v.period {
		n = v.period
	}
	return float64(v.sum) / float64(n)
}

func (v *VolumeSMA) Ready() bool { return v.count >= v.period }

// Relative returns the last candle's volume divided by the average
// (RVOL). Returns 0 until ready.
func (v *VolumeSMA) Relative() float64 {
	avg := v.Value()
	if !v.Ready() || avg == 0 {
		return 0
	}
	return float64(v.last) / avg
}
