package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	twelveDataQuotePath  = "/quote"
	defaultTwelveDataURL = "https://api.twelvedata.com"
	maxErrorBodyLen      = 200
)

// TwelveDataOptions parameterise the Twelve Data quote fetcher.
type TwelveDataOptions struct {
	BaseURL           string
	APIKey            string
	Exchange          string
	Timeout           time.Duration
	UserAgent         string
	RequestsPerMinute int
}

// TwelveData fetches quotes from the Twelve Data REST API.
type TwelveData struct {
	opts    TwelveDataOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

// NewTwelveData constructs a quote fetcher. A positive RequestsPerMinute spaces
// requests evenly; zero leaves them unpaced.
func NewTwelveData(opts TwelveDataOptions, logger zerolog.Logger) *TwelveData {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultTwelveDataURL
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	return &TwelveData{
		opts:    opts,
		logger:  logger.With().Str("component", "quote_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: limiter,
	}
}

// FetchQuote returns the raw /quote body for symbol. The body is not inspected
// for the upstream error marker; that is left to the caller.
func (t *TwelveData) FetchQuote(ctx context.Context, symbol string) (string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for request slot: %w", err)
		}
	}

	endpoint := t.baseURL + twelveDataQuotePath + "?" + t.query(symbol).Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("create quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(t.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "topflow/1.0")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send quote request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read quote body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", parseHTTPError(resp.StatusCode, payload)
	}
	if len(strings.TrimSpace(string(payload))) == 0 {
		return "", ErrEmptyResponse
	}

	t.logger.Debug().Str("symbol", symbol).Int("bytes", len(payload)).Msg("quote fetched")
	return string(payload), nil
}

func (t *TwelveData) query(symbol string) url.Values {
	q := url.Values{}
	q.Set("symbol", symbol)
	if t.opts.Exchange != "" {
		q.Set("exchange", t.opts.Exchange)
	}
	q.Set("apikey", t.opts.APIKey)
	return q
}

func parseHTTPError(status int, payload []byte) error {
	body := strings.TrimSpace(string(payload))
	if body == "" {
		return fmt.Errorf("twelve data api error (%d)", status)
	}
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen]
	}
	return fmt.Errorf("twelve data api error (%d): %s", status, body)
}

var _ QuoteFetcher = (*TwelveData)(nil)
