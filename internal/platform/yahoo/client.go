// Package yahoo is a client for the Yahoo Finance v7 quote and option
// chain endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/optionscalc/internal/domain"
)

// DefaultBaseURL is the public v7 API root.
const DefaultBaseURL = "https://query1.finance.yahoo.com/v7/finance"

const userAgent = "Mozilla/5.0 (compatible; optionscalc/1.0)"

// Client implements domain.QuoteProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL uses DefaultBaseURL and a
// zero timeout uses 30s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Quote returns the latest quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("symbols", symbol)

	body, err := c.doGet(ctx, "/quote?"+params.Encode())
	if err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s: %w", symbol, err)
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: decode quote: %w", err)
	}
	if e := resp.QuoteResponse.Error; e != nil {
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s: %w: %s", symbol, domain.ErrProviderFailure, e.Description)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return domain.Quote{}, fmt.Errorf("yahoo: quote %s: %w", symbol, domain.ErrNotFound)
	}
	return resp.QuoteResponse.Result[0].ToDomain(), nil
}

// OptionMeta returns the strikes and expirations listed for symbol.
func (c *Client) OptionMeta(ctx context.Context, symbol string) (domain.OptionMeta, error) {
	chain, err := c.optionChain(ctx, symbol, 0)
	if err != nil {
		return domain.OptionMeta{}, fmt.Errorf("yahoo: option meta %s: %w", symbol, err)
	}
	return chain.Meta(), nil
}

// Options returns the chain of one expiration.
func (c *Client) Options(ctx context.Context, symbol string, expiration int64) (domain.OptionChain, error) {
	res, err := c.optionChain(ctx, symbol, expiration)
	if err != nil {
		return domain.OptionChain{}, fmt.Errorf("yahoo: options %s@%d: %w", symbol, expiration, err)
	}
	chain, ok := res.Chain()
	if !ok {
		return domain.OptionChain{}, fmt.Errorf("yahoo: options %s@%d: %w", symbol, expiration, domain.ErrNotFound)
	}
	return chain, nil
}

func (c *Client) optionChain(ctx context.Context, symbol string, expiration int64) (APIOptionChain, error) {
	path := "/options/" + url.PathEscape(symbol)
	if expiration > 0 {
		path += "?date=" + strconv.FormatInt(expiration, 10)
	}

	body, err := c.doGet(ctx, path)
	if err != nil {
		return APIOptionChain{}, err
	}

	var resp optionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return APIOptionChain{}, fmt.Errorf("decode option chain: %w", err)
	}
	if e := resp.OptionChain.Error; e != nil {
		return APIOptionChain{}, fmt.Errorf("%w: %s", domain.ErrProviderFailure, e.Description)
	}
	if len(resp.OptionChain.Result) == 0 {
		return APIOptionChain{}, domain.ErrNotFound
	}
	return resp.OptionChain.Result[0], nil
}

// doGet performs a GET request and returns the response body.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx responses to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrProviderFailure, statusCode, bodyStr)
	}
}
