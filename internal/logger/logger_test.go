package logger

import (
	"fmt"
	"testing"
	"time"
)

func TestDecisionTraceID(t *testing.T) {
	ts := time.Date(2026, time.August, 27, 10, 0, 0, 0, time.UTC)
	got := DecisionTraceID("SBIN-EQ", ts)
	want := fmt.Sprintf("SBIN-EQ-%d", ts.UnixNano())
	if got != want {
		t.Errorf("trace id = %q, want %q", got, want)
	}
}

func TestDecisionTraceID_UniquePerCandle(t *testing.T) {
	ts := time.Date(2026, time.August, 27, 10, 0, 0, 0, time.UTC)
	a := DecisionTraceID("SBIN-EQ", ts)
	b := DecisionTraceID("SBIN-EQ", ts.Add(15*time.Minute))
	c := DecisionTraceID("TCS-EQ", ts)
	if a == b || a == c {
		t.Errorf("trace ids collide: %q %q %q", a, b, c)
	}
}
