package markethours

import (
	"testing"
	"time"
)

// tradingDay is a regular Thursday with no holiday.
func tradingDay(hour, min int) time.Time {
	return time.Date(2026, time.August, 27, hour, min, 0, 0, IST)
}

func TestIsMarketOpen_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"before open", tradingDay(9, 14), false},
		{"at open", tradingDay(9, 15), true},
		{"mid session", tradingDay(12, 0), true},
		{"last minute", tradingDay(15, 29), true},
		{"at close", tradingDay(15, 30), false},
		{"after close", tradingDay(16, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: IsMarketOpen(%v) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}
}

func TestIsMarketOpen_WeekendAndHoliday(t *testing.T) {
	saturday := time.Date(2026, time.August, 29, 11, 0, 0, 0, IST)
	if IsMarketOpen(saturday) {
		t.Error("saturday should be closed")
	}

	// Independence Day 2026.
	holiday := time.Date(2026, time.August, 15, 11, 0, 0, 0, IST)
	if IsMarketOpen(holiday) {
		t.Error("holiday should be closed")
	}
}

func TestIntervalStart_Alignment(t *testing.T) {
	cases := []struct {
		in       time.Time
		wantMin  int
		wantHour int
	}{
		{tradingDay(9, 17), 15, 9},
		{tradingDay(9, 29), 15, 9},
		{tradingDay(9, 30), 30, 9},
		{tradingDay(9, 42), 30, 9},
		{tradingDay(15, 16), 15, 15},
	}
	for _, tc := range cases {
		got := IntervalStart(tc.in)
		if got.Hour() != tc.wantHour || got.Minute() != tc.wantMin {
			t.Errorf("IntervalStart(%v) = %v, want %02d:%02d", tc.in, got, tc.wantHour, tc.wantMin)
		}
		if got.Second() != 0 || got.Nanosecond() != 0 {
			t.Errorf("IntervalStart(%v) not aligned to minute boundary: %v", tc.in, got)
		}
	}
}

func TestIntervalEnd(t *testing.T) {
	end := IntervalEnd(tradingDay(9, 17))
	want := tradingDay(9, 30)
	if !end.Equal(want) {
		t.Errorf("IntervalEnd = %v, want %v", end, want)
	}
}

func TestSessionOpenClose(t *testing.T) {
	day := tradingDay(12, 0)
	if open := SessionOpen(day); open.Hour() != 9 || open.Minute() != 15 {
		t.Errorf("SessionOpen = %v", open)
	}
	if close := SessionClose(day); close.Hour() != 15 || close.Minute() != 30 {
		t.Errorf("SessionClose = %v", close)
	}
}

func TestNextOpen_SkipsWeekend(t *testing.T) {
	// Friday 2026-08-28 after close: next open is Monday 2026-08-31.
	friday := time.Date(2026, time.August, 28, 16, 0, 0, 0, IST)
	next := NextOpen(friday)
	if next.Weekday() != time.Monday || next.Day() != 31 {
		t.Errorf("NextOpen(friday evening) = %v, want Monday 31st", next)
	}
	if next.Hour() != 9 || next.Minute() != 15 {
		t.Errorf("NextOpen should land on 09:15, got %v", next)
	}
}

func TestNextOpen_SameDayBeforeOpen(t *testing.T) {
	early := tradingDay(8, 0)
	next := NextOpen(early)
	if next.Day() != 27 || next.Hour() != 9 || next.Minute() != 15 {
		t.Errorf("NextOpen(before open) = %v, want same-day 09:15", next)
	}
}

func TestTimeUntilClose(t *testing.T) {
	if d := TimeUntilClose(tradingDay(15, 0)); d != 30*time.Minute {
		t.Errorf("TimeUntilClose(15:00) = %v, want 30m", d)
	}
	if d := TimeUntilClose(tradingDay(16, 0)); d != 0 {
		t.Errorf("TimeUntilClose(after close) = %v, want 0", d)
	}
}

func TestInClosingGrace(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"at close", tradingDay(15, 30), true},
		{"within grace", tradingDay(15, 30).Add(59 * time.Second), true},
		{"grace expired", tradingDay(15, 31), false},
		{"market still open", tradingDay(15, 29), false},
		{"weekend", time.Date(2026, time.August, 29, 15, 30, 0, 0, IST), false},
	}
	for _, tc := range cases {
		if got := InClosingGrace(tc.t); got != tc.want {
			t.Errorf("%s: InClosingGrace = %v, want %v", tc.name, got, tc.want)
		}
	}
}
