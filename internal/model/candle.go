package model

import (
	"encoding/json"
	"time"
)

// Candle represents a 15-minute OHLC candle for a single symbol.
// All prices are in paise (int64) to avoid floating-point drift.
//
// A candle is owned by the candle builder until it is sealed
// (Closed=true); downstream components only ever receive sealed
// value copies and must never mutate them.
type Candle struct {
	Symbol        string    `json:"symbol"`
	IntervalStart time.Time `json:"interval_start"` // bucket start (IST, 15m-aligned)
	IntervalEnd   time.Time `json:"interval_end"`   // close time of record
	Open          int64     `json:"open"`           // paise
	High          int64     `json:"high"`           // paise
	Low           int64     `json:"low"`            // paise
	Close         int64     `json:"close"`          // paise
	Volume        int64     `json:"volume"`         // cumulative quantity
	Ticks         int       `json:"ticks"`          // number of ticks aggregated
	Closed        bool      `json:"closed"`
}

// Duration returns the elapsed interval this candle covers.
func (c *Candle) Duration() time.Duration {
	return c.IntervalEnd.Sub(c.IntervalStart)
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}
