// Package validate holds the pure closed-candle predicate applied before
// a candle may drive a decision. Validation never raises: it answers
// "is this candle real and structurally correct?" with a tagged reason
// the orchestrator logs and converts into an explicit NO_TRADE.
package validate

import (
	"time"

	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
)

// Rejection reasons.
const (
	ReasonNotClosed        = "CANDLE_NOT_CLOSED"
	ReasonInvalidTimeRange = "INVALID_TIME_RANGE"
	ReasonDurationTooShort = "DURATION_TOO_SHORT"
	ReasonFutureTimestamp  = "TIMESTAMP_IN_FUTURE"
	ReasonOutsideHours     = "MARKET_HOURS_VIOLATION"
	ReasonNonPositivePrice = "NON_POSITIVE_PRICE"
	ReasonInvalidOHLC      = "INVALID_OHLC"
	ReasonVolumeBelowMin   = "VOLUME_BELOW_MINIMUM"
)

// MinDuration is the minimum interval coverage a closed candle must span
// to be usable. Boundary-sealed candles span the full 15 minutes; only
// force-sealed partials fall short.
const MinDuration = 12 * time.Minute

// futureTolerance allows for small broker clock skew.
const futureTolerance = 60 * time.Second

// Candle reports whether c is usable by the pipeline. On rejection the
// second return value carries the tagged reason.
func Candle(c model.Candle, minVolume int64, now time.Time) (bool, string) {
	if !c.Closed {
		return false, ReasonNotClosed
	}

	if !c.IntervalStart.Before(c.IntervalEnd) {
		return false, ReasonInvalidTimeRange
	}
	if c.Duration() < MinDuration {
		return false, ReasonDurationTooShort
	}
	if c.IntervalStart.After(now.Add(futureTolerance)) {
		return false, ReasonFutureTimestamp
	}

	// Candle must lie inside the session: start at or after 09:15 and
	// end by 15:30 IST.
	start := c.IntervalStart.In(markethours.IST)
	end := c.IntervalEnd.In(markethours.IST)
	if start.Before(markethours.SessionOpen(start)) || end.After(markethours.SessionClose(start)) {
		return false, ReasonOutsideHours
	}

	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false, ReasonNonPositivePrice
	}

	// OHLC structural consistency.
	if c.High < c.Low ||
		c.High < c.Open || c.High < c.Close ||
		c.Low > c.Open || c.Low > c.Close {
		return false, ReasonInvalidOHLC
	}

	if c.Volume < minVolume {
		return false, ReasonVolumeBelowMin
	}

	return true, ""
}
