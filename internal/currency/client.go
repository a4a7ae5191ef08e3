// Package currency converts amounts between currencies using a live rate
// feed with a static fallback table.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// DefaultTimeout bounds a single rate request.
const DefaultTimeout = 10 * time.Second

// maxResponseSize caps how much of a rate response is read.
const maxResponseSize = 1 << 20

// Kind classifies a rate fetch failure.
type Kind int

// Fetch failure kinds.
const (
	KindNetwork Kind = iota
	KindDecode
	KindInvalidResponse
)

// Sentinels matched by FetchError through errors.Is.
var (
	ErrNetwork         = errors.New("rate provider unreachable")
	ErrDecode          = errors.New("rate response could not be decoded")
	ErrInvalidResponse = errors.New("rate response has no conversion rates")
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindDecode:
		return ErrDecode
	case KindInvalidResponse:
		return ErrInvalidResponse
	default:
		return ErrNetwork
	}
}

// FetchError is returned by Client.FetchRates.
type FetchError struct {
	Err        error
	Kind       Kind
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Kind.sentinel(), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *FetchError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// rateResponse is the ExchangeRate-API v6 "latest" payload.
type rateResponse struct {
	ConversionRates map[string]decimal.Decimal `json:"conversion_rates"`
	Result          string                     `json:"result"`
	BaseCode        string                     `json:"base_code"`
	ErrorType       string                     `json:"error-type"`
}

// Client fetches the latest rates from an ExchangeRate-API compatible endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	base       string
}

var _ service.RateFetcher = (*Client)(nil)

// NewClient creates a rate client. A zero timeout uses DefaultTimeout.
func NewClient(baseURL, apiKey, base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base = model.NormalizeCurrency(base)
	if base == "" {
		base = BaseCurrency
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		base:    base,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, c.base)
}

// FetchRates requests the latest table relative to the client's base currency.
func (c *Client) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close rate response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			Kind:       KindNetwork,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var payload rateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Kind: KindDecode, Err: err}
	}

	if payload.Result != "" && payload.Result != "success" {
		return nil, &FetchError{Kind: KindInvalidResponse, Err: fmt.Errorf("provider reported %q: %s", payload.Result, payload.ErrorType)}
	}
	if len(payload.ConversionRates) == 0 {
		return nil, &FetchError{Kind: KindInvalidResponse, Err: errors.New("missing conversion_rates")}
	}

	rates := make(map[string]decimal.Decimal, len(payload.ConversionRates))
	for code, rate := range payload.ConversionRates {
		rates[model.NormalizeCurrency(code)] = rate
	}

	slog.Debug("fetched exchange rates",
		"base", c.base,
		"count", len(rates),
		"duration", time.Since(start))
	return rates, nil
}
