package validate

import (
	"testing"
	"time"

	"intraday-enginev1/internal/markethours"
	"intraday-enginev1/internal/model"
)

func goodCandle() model.Candle {
	start := time.Date(2026, time.August, 27, 9, 30, 0, 0, markethours.IST)
	return model.Candle{
		Symbol:        "SBIN-EQ",
		IntervalStart: start,
		IntervalEnd:   start.Add(15 * time.Minute),
		Open:          50000,
		High:          50500,
		Low:           49800,
		Close:         50200,
		Volume:        1000,
		Ticks:         42,
		Closed:        true,
	}
}

func TestCandle_Valid(t *testing.T) {
	c := goodCandle()
	now := c.IntervalEnd.Add(time.Second)
	if ok, reason := Candle(c, 100, now); !ok {
		t.Fatalf("valid candle rejected: %s", reason)
	}
}

func TestCandle_Rejections(t *testing.T) {
	base := goodCandle()
	now := base.IntervalEnd.Add(time.Second)

	cases := []struct {
		name   string
		mutate func(c *model.Candle)
		want   string
	}{
		{"not closed", func(c *model.Candle) { c.Closed = false }, ReasonNotClosed},
		{"inverted range", func(c *model.Candle) { c.IntervalEnd = c.IntervalStart.Add(-time.Minute) }, ReasonInvalidTimeRange},
		{"zero range", func(c *model.Candle) { c.IntervalEnd = c.IntervalStart }, ReasonInvalidTimeRange},
		{"too short", func(c *model.Candle) { c.IntervalEnd = c.IntervalStart.Add(5 * time.Minute) }, ReasonDurationTooShort},
		{"before open", func(c *model.Candle) {
			c.IntervalStart = time.Date(2026, time.August, 27, 9, 0, 0, 0, markethours.IST)
			c.IntervalEnd = c.IntervalStart.Add(15 * time.Minute)
		}, ReasonOutsideHours},
		{"past close", func(c *model.Candle) {
			c.IntervalStart = time.Date(2026, time.August, 27, 15, 30, 0, 0, markethours.IST)
			c.IntervalEnd = c.IntervalStart.Add(15 * time.Minute)
		}, ReasonOutsideHours},
		{"zero price", func(c *model.Candle) { c.Low = 0 }, ReasonNonPositivePrice},
		{"negative price", func(c *model.Candle) { c.Open = -1 }, ReasonNonPositivePrice},
		{"high below low", func(c *model.Candle) { c.High = 49000 }, ReasonInvalidOHLC},
		{"high below close", func(c *model.Candle) { c.Close = 60000 }, ReasonInvalidOHLC},
		{"low above open", func(c *model.Candle) { c.Low = 50100 }, ReasonInvalidOHLC},
		{"thin volume", func(c *model.Candle) { c.Volume = 50 }, ReasonVolumeBelowMin},
	}

	for _, tc := range cases {
		c := goodCandle()
		tc.mutate(&c)
		ok, reason := Candle(c, 100, now)
		if ok {
			t.Errorf("%s: candle accepted, want rejection %s", tc.name, tc.want)
			continue
		}
		if reason != tc.want {
			t.Errorf("%s: reason = %s, want %s", tc.name, reason, tc.want)
		}
	}
}

func TestCandle_FutureTimestamp(t *testing.T) {
	c := goodCandle()
	// Evaluate "now" well before the candle's own interval.
	now := c.IntervalStart.Add(-10 * time.Minute)
	ok, reason := Candle(c, 0, now)
	if ok || reason != ReasonFutureTimestamp {
		t.Errorf("got ok=%v reason=%s, want %s", ok, reason, ReasonFutureTimestamp)
	}
}

func TestCandle_ClockSkewTolerated(t *testing.T) {
	c := goodCandle()
	// 30s behind the candle's start is within broker skew tolerance.
	now := c.IntervalStart.Add(-30 * time.Second)
	// Duration and hours checks still pass; skew alone must not reject.
	if ok, reason := Candle(c, 0, now); !ok {
		t.Errorf("candle rejected for tolerable skew: %s", reason)
	}
}

func TestCandle_ForceSealedPartialRejected(t *testing.T) {
	c := goodCandle()
	// A partial sealed 6 minutes in carries its actual coverage.
	c.IntervalEnd = c.IntervalStart.Add(6 * time.Minute)
	ok, reason := Candle(c, 0, c.IntervalEnd.Add(time.Second))
	if ok || reason != ReasonDurationTooShort {
		t.Errorf("got ok=%v reason=%s, want %s", ok, reason, ReasonDurationTooShort)
	}
}

func TestCandle_ZeroMinVolumeAcceptsAnyVolume(t *testing.T) {
	c := goodCandle()
	c.Volume = 0
	if ok, reason := Candle(c, 0, c.IntervalEnd.Add(time.Second)); !ok {
		t.Errorf("zero-volume candle rejected with floor 0: %s", reason)
	}
}
