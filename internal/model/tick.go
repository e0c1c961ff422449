package model

import "time"

// Tick represents a single market data tick from the broker WebSocket.
// Price is stored as int64 in paise (1 INR = 100 paise) to avoid float drift.
// Ticks are ephemeral: the candle builder consumes them immediately and
// nothing downstream of it ever sees a raw tick.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  int64     `json:"price"` // paise (LTP)
	Qty    int64     `json:"qty"`   // last traded quantity
	TickTS time.Time `json:"tick_ts"`
}
