package smartconnect

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	streamURI         = "wss://smartapisocket.angelone.in/smart-stream"
	heartBeatMessage  = "ping"
	heartBeatInterval = 10 * time.Second
)

// Subscription modes.
const (
	ModeLTP       = 1
	ModeQuote     = 2
	ModeSnapQuote = 3
)

// Exchange type codes on the stream.
const (
	ExchangeNSECM = 1
	ExchangeNSEFO = 2
	ExchangeBSECM = 3
)

// TokenListEntry groups token subscriptions per exchange type.
type TokenListEntry struct {
	ExchangeType int      `json:"exchangeType"`
	Tokens       []string `json:"tokens"`
}

// TickMessage is a parsed binary frame from the market stream. Prices
// come off the wire already in paise.
type TickMessage struct {
	SubscriptionMode  int
	ExchangeType      int
	Token             string
	SequenceNumber    int64
	ExchangeTimestamp time.Time
	LastTradedPrice   int64 // paise
	LastTradedQty     int64 // quote/snap-quote modes only
	VolumeTradedToday int64 // quote/snap-quote modes only
}

// Stream is the Angel One market data WebSocket. It maintains the
// subscription set across reconnects and pushes parsed ticks to the
// OnTick callback from its read goroutine.
type Stream struct {
	authToken  string
	apiKey     string
	clientCode string
	feedToken  string

	mu   sync.Mutex
	conn *websocket.Conn
	subs map[int][]TokenListEntry // mode -> entries, replayed on reconnect

	maxRetries int
	retryDelay time.Duration

	// Callbacks. OnTick is required; the rest are optional.
	OnTick      func(t TickMessage)
	OnConnect   func()
	OnReconnect func()
	OnError     func(err error)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewStream creates a market data stream. Call Connect to start it.
func NewStream(authToken, apiKey, clientCode, feedToken string) (*Stream, error) {
	if authToken == "" || apiKey == "" || clientCode == "" || feedToken == "" {
		return nil, errors.New("smartconnect: stream requires auth, api key, client code and feed token")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Stream{
		authToken:  authToken,
		apiKey:     apiKey,
		clientCode: clientCode,
		feedToken:  feedToken,
		subs:       make(map[int][]TokenListEntry),
		maxRetries: 5,
		retryDelay: 5 * time.Second,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Connect dials the stream and starts the read and heartbeat loops.
func (s *Stream) Connect() error {
	header := http.Header{}
	header.Add("Authorization", s.authToken)
	header.Add("x-api-key", s.apiKey)
	header.Add("x-client-code", s.clientCode)
	header.Add("x-feed-token", s.feedToken)

	conn, resp, err := websocket.DefaultDialer.Dial(streamURI, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("smartconnect: dial %s: %w", resp.Status, err)
		}
		return fmt.Errorf("smartconnect: dial: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.SetPongHandler(func(string) error { return nil })

	go s.readLoop(conn)
	go s.heartbeatLoop(conn)

	if s.OnConnect != nil {
		s.OnConnect()
	}
	return nil
}

// Close terminates the stream.
func (s *Stream) Close() {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
}

// Subscribe sends a subscription request and records it for replay
// after a reconnect.
func (s *Stream) Subscribe(correlationID string, mode int, tokenList []TokenListEntry) error {
	req := map[string]interface{}{
		"correlationID": correlationID,
		"action":        1,
		"params": map[string]interface{}{
			"mode":      mode,
			"tokenList": tokenList,
		},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[mode] = append(s.subs[mode], tokenList...)
	if s.conn == nil {
		return errors.New("smartconnect: stream not connected")
	}
	return s.conn.WriteJSON(req)
}

func (s *Stream) resubscribe(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mode, entries := range s.subs {
		req := map[string]interface{}{
			"action": 1,
			"params": map[string]interface{}{
				"mode":      mode,
				"tokenList": entries,
			},
		}
		if err := conn.WriteJSON(req); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		mt, message, err := conn.ReadMessage()
		if err != nil {
			s.reconnect()
			return
		}

		switch mt {
		case websocket.BinaryMessage:
			tick, perr := parseBinaryTick(message)
			if perr != nil {
				slog.Warn("stream frame parse failed", slog.String("error", perr.Error()))
				continue
			}
			if s.OnTick != nil {
				s.OnTick(tick)
			}
		case websocket.TextMessage:
			// Text frames are pong replies and error notices; neither
			// carries tick data.
			if string(message) != "pong" {
				slog.Debug("stream text frame", slog.String("body", string(message)))
			}
		}
	}
}

// reconnect redials with linear backoff and replays the subscription
// set. Gives up after maxRetries and reports through OnError.
func (s *Stream) reconnect() {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.retryDelay * time.Duration(attempt)):
		}

		if s.OnReconnect != nil {
			s.OnReconnect()
		}
		if err := s.Connect(); err != nil {
			slog.Warn("stream reconnect failed",
				slog.Int("attempt", attempt), slog.String("error", err.Error()))
			continue
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if err := s.resubscribe(conn); err != nil {
			slog.Warn("stream resubscribe failed", slog.String("error", err.Error()))
			continue
		}
		return
	}

	if s.OnError != nil {
		s.OnError(errors.New("smartconnect: stream reconnect attempts exhausted"))
	}
}

func (s *Stream) heartbeatLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(heartBeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(heartBeatMessage)); err != nil {
				return
			}
		}
	}
}

// parseBinaryTick decodes the little-endian wire layout:
// mode(1) exchange(1) token(25, NUL-padded) seq(8) exchange_ts_ms(8)
// ltp(8), then for quote modes ltq(8) atp(8) volume(8).
func parseBinaryTick(b []byte) (TickMessage, error) {
	if len(b) < 51 {
		return TickMessage{}, fmt.Errorf("frame too short: %d bytes", len(b))
	}

	t := TickMessage{
		SubscriptionMode: int(b[0]),
		ExchangeType:     int(b[1]),
		Token:            tokenString(b[2:27]),
		SequenceNumber:   int64(binary.LittleEndian.Uint64(b[27:35])),
		LastTradedPrice:  int64(binary.LittleEndian.Uint64(b[43:51])),
	}

	exTsMs := int64(binary.LittleEndian.Uint64(b[35:43]))
	if exTsMs > 0 {
		t.ExchangeTimestamp = time.UnixMilli(exTsMs)
	}

	if (t.SubscriptionMode == ModeQuote || t.SubscriptionMode == ModeSnapQuote) && len(b) >= 75 {
		t.LastTradedQty = int64(binary.LittleEndian.Uint64(b[51:59]))
		t.VolumeTradedToday = int64(binary.LittleEndian.Uint64(b[67:75]))
	}

	return t, nil
}

func tokenString(b []byte) string {
	for i := range b {
		if b[i] == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
