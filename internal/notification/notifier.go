// Package notification delivers decision outcomes to external channels
// (Telegram, logs). Delivery is fire-and-forget from the pipeline's point
// of view: a slow or failing channel never stalls the decision path.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"intraday-enginev1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts through slog (default backend when no
// Telegram credentials are configured).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("notify",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message))
	return nil
}

// FormatOutcome renders a decision outcome as an alert.
func FormatOutcome(o model.Outcome) Alert {
	when := o.CandleTime.Format("15:04")

	if o.Result == model.ResultTradePlan && o.Plan != nil {
		p := o.Plan
		return Alert{
			Level: AlertInfo,
			Title: fmt.Sprintf("%s %s @ %s", p.Direction, p.Symbol, when),
			Message: fmt.Sprintf(
				"entry ₹%.2f | size %d | stop ₹%.2f | target ₹%.2f\n%s",
				paise(p.EntryPrice), p.PositionSize, paise(p.StopLoss), paise(p.Target), o.Reason),
		}
	}

	level := AlertInfo
	if o.Critical {
		level = AlertCritical
	}
	msg := o.Reason
	if o.Detail != "" {
		msg += ": " + o.Detail
	}
	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("NO_TRADE %s @ %s [%s]", o.Symbol, when, o.Stage),
		Message: msg,
	}
}

func paise(p int64) float64 { return float64(p) / 100.0 }
