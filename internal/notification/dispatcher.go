package notification

import (
	"context"
	"log/slog"
	"time"

	"intraday-enginev1/internal/model"
)

const sendTimeout = 15 * time.Second

// Dispatcher consumes outcomes from its own buffered queue and delivers
// them through a Notifier. Enqueue never blocks: if the queue is full the
// alert is dropped with a log line, because delivery is best-effort while
// the outcome log and stores are the system of record.
type Dispatcher struct {
	notifier Notifier
	queue    chan model.Outcome
}

// NewDispatcher creates a dispatcher with the given queue depth.
func NewDispatcher(n Notifier, depth int) *Dispatcher {
	if depth <= 0 {
		depth = 256
	}
	return &Dispatcher{notifier: n, queue: make(chan model.Outcome, depth)}
}

// Enqueue hands an outcome to the dispatcher without blocking.
func (d *Dispatcher) Enqueue(o model.Outcome) {
	select {
	case d.queue <- o:
	default:
		slog.Warn("notification queue full, dropping alert",
			slog.String("symbol", o.Symbol),
			slog.Time("candle_time", o.CandleTime))
	}
}

// Run delivers queued alerts until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-d.queue:
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := d.notifier.Send(sendCtx, FormatOutcome(o)); err != nil {
				slog.Warn("notification delivery failed",
					slog.String("symbol", o.Symbol),
					slog.String("error", err.Error()))
			}
			cancel()
		}
	}
}
