package finnhub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"StockHolo/internal/domain/models"
	drepo "StockHolo/internal/domain/repository"
	"StockHolo/internal/service/ratelimit"
	xhttp "StockHolo/pkg/http"

	"github.com/sony/gobreaker"
)

const DefaultBaseURL = "https://finnhub.io/api/v1"

// Client implements MarketDataSource and NewsSource over the Finnhub REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	breaker *gobreaker.CircuitBreaker
	now     func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL         string
	timeout         time.Duration
	rps             float64
	burst           int
	breakerFailures uint32
	breakerCooldown time.Duration
}

// WithBaseURL overrides the API root.
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit caps requests per endpoint.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *clientConfig) {
		if rps > 0 {
			c.rps = rps
		}
		if burst > 0 {
			c.burst = burst
		}
	}
}

// WithBreaker opens the circuit after n consecutive failures for cooldown.
func WithBreaker(n uint32, cooldown time.Duration) ClientOption {
	return func(c *clientConfig) {
		if n > 0 {
			c.breakerFailures = n
		}
		if cooldown > 0 {
			c.breakerCooldown = cooldown
		}
	}
}

// NewClient creates a Finnhub REST client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	cfg := &clientConfig{
		baseURL:         DefaultBaseURL,
		timeout:         10 * time.Second,
		rps:             1,
		burst:           5,
		breakerFailures: 3,
		breakerCooldown: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	failures := cfg.breakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "finnhub",
		Timeout: cfg.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, models.ErrMalformedQuote)
		},
	})

	return &Client{
		apiKey:  apiKey,
		baseURL: cfg.baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.timeout)),
		limiter: ratelimit.New(cfg.rps, cfg.burst),
		breaker: breaker,
		now:     time.Now,
	}
}

var (
	_ drepo.MarketDataSource = (*Client)(nil)
	_ drepo.NewsSource       = (*Client)(nil)
)

type quoteResponse struct {
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	DP float64 `json:"dp"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
	T  int64   `json:"t"`
}

type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

type newsItem struct {
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// FetchQuote returns the latest quote. Finnhub answers unknown symbols with
// an all-zero body, which is reported as ErrMalformedQuote.
func (c *Client) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	var r quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &r); err != nil {
		return models.Quote{}, err
	}
	if r.C == 0 && r.T == 0 {
		return models.Quote{}, fmt.Errorf("%w: no data for %s", models.ErrMalformedQuote, symbol)
	}
	q := models.Quote{
		Symbol:        symbol,
		Price:         r.C,
		ChangePercent: r.DP,
		High:          r.H,
		Low:           r.L,
		Open:          r.O,
		PrevClose:     r.PC,
		Timestamp:     time.Unix(r.T, 0).UTC(),
	}
	if q.Open <= 0 {
		// pre-market quotes can carry no open yet
		q.Open = q.PrevClose
	}
	return q, nil
}

// SearchSymbol looks up tickers matching query.
func (c *Client) SearchSymbol(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	var r searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {strings.TrimSpace(query)}}, &r); err != nil {
		return nil, err
	}
	out := make([]models.SymbolMatch, 0, len(r.Result))
	for _, m := range r.Result {
		out = append(out, models.SymbolMatch{
			Symbol:        m.Symbol,
			DisplaySymbol: m.DisplaySymbol,
			Description:   m.Description,
			Type:          m.Type,
		})
	}
	return out, nil
}

// CompanyNews returns unscored articles published between from and to.
func (c *Client) CompanyNews(ctx context.Context, symbol string, from, to time.Time) ([]models.Article, error) {
	var items []newsItem
	params := url.Values{
		"symbol": {models.NormalizeSymbol(symbol)},
		"from":   {from.Format("2006-01-02")},
		"to":     {to.Format("2006-01-02")},
	}
	if err := c.get(ctx, "/company-news", params, &items); err != nil {
		return nil, err
	}
	out := make([]models.Article, 0, len(items))
	for _, it := range items {
		out = append(out, models.Article{
			Title:       it.Headline,
			Description: it.Summary,
			URL:         it.URL,
			Source:      it.Source,
			PublishedAt: time.Unix(it.Datetime, 0).UTC(),
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("%w: finnhub %s rate limit: %v", models.ErrDataSourceUnavailable, endpoint, err)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + endpoint,
			Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
			QueryParams: params,
		}, dest)
	})
	if err != nil {
		return fmt.Errorf("%w: finnhub %s: %v", models.ErrDataSourceUnavailable, endpoint, err)
	}
	return nil
}

// BreakerState reports the circuit state: closed, half-open or open.
func (c *Client) BreakerState() string { return c.breaker.State().String() }
