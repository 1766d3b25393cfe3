package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"algotradingv1/internal/model"
)

const (
	defaultRootURL = "https://apiconnect.angelone.in"
	loginRoute     = "/rest/auth/angelbroking/user/v1/loginByPassword"
	candleRoute    = "/rest/secure/angelbroking/historical/v1/getCandleData"
)

// AngelConfig holds broker API credentials. The TOTP secret generates the
// one-time code at login, replacing a human-entered authenticator value.
type AngelConfig struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	RootURL    string // default: https://apiconnect.angelone.in
	Timeout    time.Duration
}

// AngelClient fetches historical daily candles from the Angel One
// SmartAPI. It logs in lazily and reuses the session token until a
// request comes back unauthorized.
type AngelClient struct {
	cfg    AngelConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
}

// NewAngelClient creates a client. Credentials are validated at first use,
// not here.
func NewAngelClient(cfg AngelConfig) *AngelClient {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRootURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &AngelClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Daily implements Provider. Candle timestamps come back in exchange
// local time; dates are normalized to UTC midnight.
func (a *AngelClient) Daily(ctx context.Context, ticker string, from, to time.Time) ([]model.PriceBar, error) {
	token, err := a.session(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: login: %v", ErrDataUnavailable, ticker, err)
	}

	reqBody, _ := json.Marshal(map[string]string{
		"exchange":    "NSE",
		"symboltoken": ticker,
		"interval":    "ONE_DAY",
		"fromdate":    from.Format("2006-01-02 09:15"),
		"todate":      to.Format("2006-01-02 15:30"),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RootURL+candleRoute, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("candle request: %w", err)
	}
	a.setHeaders(req, token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: fetch: %v", ErrDataUnavailable, ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Session expired — drop the token so the next call re-logs-in
		a.mu.Lock()
		a.accessToken = ""
		a.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: session expired (status %d)", ErrDataUnavailable, ticker, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: candle data status %d", ErrDataUnavailable, ticker, resp.StatusCode)
	}

	var body struct {
		Status bool            `json:"status"`
		Msg    string          `json:"message"`
		Data   [][]json.Number `json:"data"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %v", ErrDataUnavailable, ticker, err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %v", ErrDataUnavailable, ticker, err)
	}
	if !body.Status {
		return nil, fmt.Errorf("%w: %s: api error: %s", ErrDataUnavailable, ticker, body.Msg)
	}

	bars := make([]model.PriceBar, 0, len(body.Data))
	for i, row := range body.Data {
		if len(row) < 6 {
			return nil, fmt.Errorf("%w: %s: malformed candle row %d", ErrDataUnavailable, ticker, i)
		}
		ts, err := time.Parse("2006-01-02T15:04:05-07:00", row[0].String())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: candle row %d timestamp: %v", ErrDataUnavailable, ticker, i, err)
		}
		open, _ := row[1].Float64()
		high, _ := row[2].Float64()
		low, _ := row[3].Float64()
		cls, _ := row[4].Float64()
		vol, _ := row[5].Int64()

		day := ts.UTC()
		bars = append(bars, model.PriceBar{
			Ticker: ticker,
			Date:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cls,
			Volume: vol,
		})
	}
	return bars, nil
}

// session returns a valid access token, logging in with a fresh TOTP code
// if needed.
func (a *AngelClient) session(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.accessToken != "" {
		return a.accessToken, nil
	}

	code, err := totp.GenerateCode(a.cfg.TOTPSecret, time.Now())
	if err != nil {
		return "", fmt.Errorf("totp: %w", err)
	}

	reqBody, _ := json.Marshal(map[string]string{
		"clientcode": a.cfg.ClientCode,
		"password":   a.cfg.Password,
		"totp":       code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RootURL+loginRoute, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	a.setHeaders(req, "")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login status %d", resp.StatusCode)
	}

	var body struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			JWTToken string `json:"jwtToken"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("login decode: %w", err)
	}
	if !body.Status || body.Data.JWTToken == "" {
		return "", fmt.Errorf("login rejected: %s", body.Msg)
	}

	a.accessToken = body.Data.JWTToken
	log.Printf("[marketdata] broker session established for %s", a.cfg.ClientCode)
	return a.accessToken, nil
}

func (a *AngelClient) setHeaders(req *http.Request, token string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-UserType", "USER")
	req.Header.Set("X-SourceID", "WEB")
	req.Header.Set("X-PrivateKey", a.cfg.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
