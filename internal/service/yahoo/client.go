package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"TrendLens/internal/domain/models"
	drepo "TrendLens/internal/domain/repository"
	xhttp "TrendLens/pkg/http"
	applogger "TrendLens/pkg/logger"
	"TrendLens/pkg/util"

	"golang.org/x/net/publicsuffix"
)

const (
	DefaultBaseURL   = "https://query2.finance.yahoo.com"
	DefaultCookieURL = "https://fc.yahoo.com"
	userAgent        = "Mozilla/5.0 (compatible; trendlens/1.0)"
	maxCrumb         = 256
)

// summaryModules are flattened into TickerMeta in this order; later modules win on key clashes.
var summaryModules = []string{"quoteType", "summaryDetail", "price"}

// Client implements a MarketDataSource backed by the Yahoo Finance chart and quoteSummary APIs.
// quoteSummary requires a session cookie and the crumb bound to it; both are fetched lazily and
// refreshed once when the provider rejects the crumb.
type Client struct {
	baseURL   string
	cookieURL string
	http      *xhttp.Client
	l         *applogger.Logger
	now       func() time.Time

	mu    sync.Mutex
	crumb string
}

// Option configures Client.
type Option func(*Client)

// WithCookieURL sets the page that issues the session cookie. Empty keeps DefaultCookieURL.
func WithCookieURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.cookieURL = u
		}
	}
}

// New creates a Yahoo client. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, timeout time.Duration, l *applogger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	hc := xhttp.NewClient(
		xhttp.WithTimeout(timeout),
		xhttp.WithHeader("User-Agent", userAgent),
		xhttp.WithHeader("Accept", "application/json"),
		xhttp.WithCookieJar(jar),
	)
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		cookieURL: DefaultCookieURL,
		http:      hc,
		l:         l,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int    `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *apiError) Error() string { return e.Code + ": " + e.Description }

type summaryResponse struct {
	QuoteSummary struct {
		Result []map[string]map[string]json.RawMessage `json:"result"`
		Error  *apiError                               `json:"error"`
	} `json:"quoteSummary"`
	// Auth failures use a different envelope.
	Finance struct {
		Error *apiError `json:"error"`
	} `json:"finance"`
}

func (r *summaryResponse) apiErr() *apiError {
	if r.QuoteSummary.Error != nil {
		return r.QuoteSummary.Error
	}
	return r.Finance.Error
}

// History returns daily bars between from and to. Zero bounds fetch the full listing history.
func (c *Client) History(ctx context.Context, ticker string, from, to time.Time) ([]models.PriceBar, error) {
	q := url.Values{"interval": {"1d"}, "events": {"history"}}
	if from.IsZero() && to.IsZero() {
		q.Set("range", "max")
	} else {
		if to.IsZero() {
			to = c.now()
		}
		q.Set("period1", strconv.FormatInt(max(from.Unix(), 0), 10))
		q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	}

	var resp chartResponse
	status, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp)
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: status %d: %w", ticker, status, resp.Chart.Error)
	}
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", ticker, err)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result", ticker)
	}
	return barsFrom(resp.Chart.Result[0]), nil
}

// barsFrom converts a chart result into trading-day bars ordered by date. Rows with a missing OHLC value
// are skipped; a repeated trading day keeps its latest row.
func barsFrom(r chartResult) []models.PriceBar {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	byDay := make(map[time.Time]models.PriceBar, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, okO := at(q.Open, i)
		h, okH := at(q.High, i)
		lo, okL := at(q.Low, i)
		cl, okC := at(q.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		vol, _ := at(q.Volume, i)
		day := util.TradingDay(time.Unix(ts, 0), r.Meta.GMTOffset)
		byDay[day] = models.PriceBar{Date: day, Open: o, High: h, Low: lo, Close: cl, Volume: vol}
	}

	bars := make([]models.PriceBar, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// Metadata returns the flattened quoteSummary fields for ticker. An unknown symbol yields empty metadata
// rather than an error so it fails field validation.
func (c *Client) Metadata(ctx context.Context, ticker string) (models.TickerMeta, error) {
	for attempt := 0; ; attempt++ {
		crumb, err := c.sessionCrumb(ctx)
		if err != nil {
			return nil, fmt.Errorf("yahoo quoteSummary %s: %w", ticker, err)
		}
		q := url.Values{"modules": {strings.Join(summaryModules, ",")}, "crumb": {crumb}}
		var resp summaryResponse
		status, err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), q, &resp)
		if status == http.StatusUnauthorized && attempt == 0 {
			c.dropCrumb(crumb)
			continue
		}
		return c.metadataFrom(ticker, status, err, &resp)
	}
}

func (c *Client) metadataFrom(ticker string, status int, err error, resp *summaryResponse) (models.TickerMeta, error) {
	if status == http.StatusNotFound {
		if c.l != nil {
			c.l.Debug("yahoo quote not found", applogger.String("ticker", ticker))
		}
		return models.TickerMeta{}, nil
	}
	if apiErr := resp.apiErr(); apiErr != nil {
		return nil, fmt.Errorf("yahoo quoteSummary %s: status %d: %w", ticker, status, apiErr)
	}
	if err != nil {
		return nil, fmt.Errorf("yahoo quoteSummary %s: %w", ticker, err)
	}

	meta := models.TickerMeta{}
	if len(resp.QuoteSummary.Result) == 0 {
		return meta, nil
	}
	res := resp.QuoteSummary.Result[0]
	for _, module := range summaryModules {
		for k, raw := range res[module] {
			if v, ok := unwrap(raw); ok {
				meta[k] = v
			}
		}
	}
	return meta, nil
}

// sessionCrumb returns the cached crumb, performing the cookie and crumb handshake on first use.
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	// The cookie page answers with an error status but still sets the session cookie.
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: c.cookieURL})
	if err != nil {
		return "", fmt.Errorf("session cookie: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	resp, err = c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/v1/test/getcrumb",
		Headers: map[string]string{"Accept": "text/plain"},
	})
	if err != nil {
		return "", fmt.Errorf("crumb: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrumb))
	if err != nil {
		return "", fmt.Errorf("read crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "<{ ") {
		return "", fmt.Errorf("crumb unavailable: status %d", resp.StatusCode)
	}
	c.crumb = crumb
	if c.l != nil {
		c.l.Debug("yahoo session established")
	}
	return crumb, nil
}

// dropCrumb forgets stale unless another caller already replaced it.
func (c *Client) dropCrumb(stale string) {
	c.mu.Lock()
	if c.crumb == stale {
		c.crumb = ""
	}
	c.mu.Unlock()
}

// unwrap decodes a quoteSummary value. Numeric fields arrive as {"raw": x, "fmt": "..."}; an empty object
// means the field is absent.
func unwrap(raw json.RawMessage) (interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	obj, isObj := v.(map[string]interface{})
	if !isObj {
		return v, true
	}
	if r, ok := obj["raw"]; ok {
		return r, r != nil
	}
	if f, ok := obj["fmt"]; ok {
		return f, f != nil
	}
	return nil, false
}

// get issues a GET and decodes the JSON body into dest, also for error statuses that carry an API error.
func (c *Client) get(ctx context.Context, path string, q url.Values, dest interface{}) (int, error) {
	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: q,
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	decodeErr := json.Unmarshal(body, dest)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if decodeErr != nil {
			return resp.StatusCode, errors.Join(statusErr, errors.New(strings.TrimSpace(string(body))))
		}
		return resp.StatusCode, statusErr
	}
	if decodeErr != nil {
		return resp.StatusCode, fmt.Errorf("decode json: %w", decodeErr)
	}
	return resp.StatusCode, nil
}

var _ drepo.MarketDataSource = (*Client)(nil)
