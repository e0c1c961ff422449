// Package smartconnect is a minimal Angel One SmartAPI client covering
// what the decision engine needs: session login with TOTP, historical
// candle data, and the market data WebSocket feed.
package smartconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.token":        "/rest/auth/angelbroking/jwt/v1/generateTokens",
	"api.user.profile": "/rest/secure/angelbroking/user/v1/getProfile",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
}

// Config configures the SmartAPI client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string // base32 secret; the client generates codes itself

	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s
}

// Session holds the tokens returned by a successful login.
type Session struct {
	AccessToken  string
	RefreshToken string
	FeedToken    string
	ClientCode   string
}

// Client is an authenticated SmartAPI HTTP client.
type Client struct {
	cfg        Config
	rootURL    string
	httpClient *http.Client

	session Session

	localIP string
	mac     string
}

// NewClient creates a SmartAPI client. No network calls happen until
// Login.
func NewClient(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		localIP:    localIP(),
		mac:        macAddress(),
	}
}

// Session returns the current session tokens.
func (c *Client) Session() Session { return c.session }

// FeedToken returns the WebSocket feed token from the current session.
func (c *Client) FeedToken() string { return c.session.FeedToken }

// Login authenticates with clientcode + password + a freshly generated
// TOTP code and stores the session tokens on the client.
func (c *Client) Login(ctx context.Context) (Session, error) {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return Session{}, fmt.Errorf("smartconnect: totp generate: %w", err)
	}

	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
		Data    struct {
			JWTToken     string `json:"jwtToken"`
			RefreshToken string `json:"refreshToken"`
			FeedToken    string `json:"feedToken"`
		} `json:"data"`
	}
	err = c.post(ctx, "api.login", map[string]string{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	}, &resp)
	if err != nil {
		return Session{}, err
	}
	if !resp.Status {
		return Session{}, fmt.Errorf("smartconnect: login failed: %s", resp.Message)
	}

	c.session = Session{
		AccessToken:  resp.Data.JWTToken,
		RefreshToken: resp.Data.RefreshToken,
		FeedToken:    resp.Data.FeedToken,
		ClientCode:   c.cfg.ClientCode,
	}
	return c.session, nil
}

// Logout terminates the broker session.
func (c *Client) Logout(ctx context.Context) error {
	var resp struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	err := c.post(ctx, "api.logout", map[string]string{"clientcode": c.cfg.ClientCode}, &resp)
	if err != nil {
		return err
	}
	if !resp.Status {
		return fmt.Errorf("smartconnect: logout failed: %s", resp.Message)
	}
	return nil
}

// CandleRow is one raw historical candle: [timestamp, open, high, low,
// close, volume] with rupee float prices as the API returns them.
type CandleRow struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// CandleParams identifies a historical candle request. Dates are
// inclusive and interpreted by the API in IST.
type CandleParams struct {
	Exchange    string // e.g. "NSE"
	SymbolToken string
	Interval    string // e.g. "FIFTEEN_MINUTE"
	FromDate    time.Time
	ToDate      time.Time
}

// GetCandleData fetches one chunk of historical candles. Callers must
// respect the per-interval max-days limits; see FetchHistory in the
// marketdata package for chunked fetching.
func (c *Client) GetCandleData(ctx context.Context, p CandleParams) ([]CandleRow, error) {
	if c.session.AccessToken == "" {
		return nil, errors.New("smartconnect: not logged in")
	}

	var resp struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    [][]interface{} `json:"data"`
	}
	err := c.post(ctx, "api.candle.data", map[string]string{
		"exchange":    p.Exchange,
		"symboltoken": p.SymbolToken,
		"interval":    p.Interval,
		"fromdate":    p.FromDate.Format("2006-01-02 15:04"),
		"todate":      p.ToDate.Format("2006-01-02 15:04"),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, fmt.Errorf("smartconnect: candle data failed: %s", resp.Message)
	}

	rows := make([]CandleRow, 0, len(resp.Data))
	for _, raw := range resp.Data {
		row, err := parseCandleRow(raw)
		if err != nil {
			return nil, fmt.Errorf("smartconnect: candle row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCandleRow(raw []interface{}) (CandleRow, error) {
	if len(raw) < 6 {
		return CandleRow{}, fmt.Errorf("short row: %d fields", len(raw))
	}
	ts, ok := raw[0].(string)
	if !ok {
		return CandleRow{}, errors.New("timestamp not a string")
	}
	t, err := time.Parse("2006-01-02T15:04:05-07:00", ts)
	if err != nil {
		return CandleRow{}, err
	}

	nums := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		f, ok := raw[i].(float64)
		if !ok {
			return CandleRow{}, fmt.Errorf("field %d not numeric", i)
		}
		nums[i-1] = f
	}
	return CandleRow{
		Timestamp: t,
		Open:      nums[0],
		High:      nums[1],
		Low:       nums[2],
		Close:     nums[3],
		Volume:    int64(nums[4]),
	}, nil
}

// post sends a JSON request with the SmartAPI header set and decodes
// the response into out.
func (c *Client) post(ctx context.Context, route string, params interface{}, out interface{}) error {
	uri, ok := routes[route]
	if !ok {
		return fmt.Errorf("smartconnect: unknown route %s", route)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	c.setHeaders(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("smartconnect: %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("smartconnect: %s: bad response (%d): %w", route, resp.StatusCode, err)
	}
	return nil
}

func (c *Client) setHeaders(h http.Header) {
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.localIP)
	h.Set("X-ClientPublicIP", c.localIP)
	h.Set("X-MACAddress", c.mac)
	h.Set("X-PrivateKey", c.cfg.APIKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if c.session.AccessToken != "" {
		h.Set("Authorization", "Bearer "+c.session.AccessToken)
	}
}

func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipNet, ok := a.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
				return ipNet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}

func macAddress() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}
