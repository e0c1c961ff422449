// Package markethours resolves wall-clock time to the NSE trading session:
// IST conversion, open/closed state, holiday exclusion, and membership of
// the 15-minute candle intervals the decision pipeline runs on.
package markethours

import (
	"fmt"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30). All internal time
// handling happens in IST.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Market hours in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// Interval is the fixed candle timeframe of the decision pipeline.
const Interval = 15 * time.Minute

// Clock supplies the current time. The pipeline and candle builder take a
// Clock so tests can drive sealing deterministically without real time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now in IST.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().In(IST) }

// IsMarketOpen returns true if t falls within NSE trading hours
// (9:15 AM – 3:30 PM IST, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	ist := t.In(IST)
	if !IsTradingDay(ist) {
		return false
	}
	hm := ist.Hour()*60 + ist.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsWeekday returns true if t is Mon–Fri in IST.
func IsWeekday(t time.Time) bool {
	wd := t.In(IST).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	return IsWeekday(ist) && !IsHoliday(ist)
}

// IntervalStart aligns t to the start of its 15-minute interval.
// 09:17:42 → 09:15:00, 09:42:05 → 09:30:00. Market open (09:15) sits on
// a quarter-hour boundary, so plain quarter alignment matches the session
// grid exactly.
func IntervalStart(t time.Time) time.Time {
	ist := t.In(IST)
	aligned := (ist.Minute() / 15) * 15
	return time.Date(ist.Year(), ist.Month(), ist.Day(), ist.Hour(), aligned, 0, 0, IST)
}

// IntervalEnd returns the boundary that closes the interval containing t.
func IntervalEnd(t time.Time) time.Time {
	return IntervalStart(t).Add(Interval)
}

// SessionOpen returns the market open time (9:15 IST) for t's date.
func SessionOpen(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), OpenHour, OpenMinute, 0, 0, IST)
}

// SessionClose returns the market close time (15:30 IST) for t's date.
func SessionClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// ClosingGrace is how long after the session close a candle may still be
// evaluated. The final 15:15 interval seals at or just after 15:30, so
// without this window it would always gate as market-closed.
const ClosingGrace = time.Minute

// InClosingGrace returns true if t falls within ClosingGrace after the
// session close on a trading day.
func InClosingGrace(t time.Time) bool {
	ist := t.In(IST)
	if !IsTradingDay(ist) {
		return false
	}
	close := SessionClose(ist)
	return !ist.Before(close) && ist.Before(close.Add(ClosingGrace))
}

// NextOpen returns the next market open time (9:15 AM IST on the next
// trading day). If t is before today's open on a trading day, returns
// today's open.
func NextOpen(t time.Time) time.Time {
	ist := t.In(IST)

	todayOpen := SessionOpen(ist)
	if ist.Before(todayOpen) && IsTradingDay(ist) {
		return todayOpen
	}

	d := ist.AddDate(0, 0, 1)
	for i := 0; i < 10; i++ { // max 10 days ahead (holidays + weekends)
		if IsTradingDay(d) {
			return SessionOpen(d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return SessionOpen(ist.AddDate(0, 0, 1))
}

// TimeUntilClose returns the duration until today's close.
// Returns 0 if market is already closed.
func TimeUntilClose(t time.Time) time.Duration {
	d := SessionClose(t).Sub(t.In(IST))
	if d < 0 {
		return 0
	}
	return d
}

// StatusString returns a human-readable market status for logs.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		return fmt.Sprintf("Market Open, closes in %s", fmtDur(TimeUntilClose(t)))
	}
	next := NextOpen(t)
	ist := next.In(IST)
	return fmt.Sprintf("Market Closed, opens %s %s (%s)",
		ist.Weekday().String()[:3], ist.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
