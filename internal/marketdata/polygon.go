package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"orion-brain/internal/config"
	"orion-brain/internal/models"
	"orion-brain/pkg/ratelimit"
	"orion-brain/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PolygonClient - клиент совместимого с Polygon.io REST API
// (aggregates v2 и forex last quote v1)
type PolygonClient struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	limiter  *ratelimit.RateLimiter
	pageSize int
	maxPages int
	logger   *utils.Logger
}

// NewPolygonClient создает клиент поставщика данных
func NewPolygonClient(cfg config.PolygonConfig, logger *utils.Logger) *PolygonClient {
	httpCfg := DefaultHTTPClientConfig()
	if cfg.Timeout > 0 {
		httpCfg.TotalTimeout = cfg.Timeout
	}

	return &PolygonClient{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		client:   NewHTTPClient(httpCfg),
		limiter:  ratelimit.NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		pageSize: cfg.PageSize,
		maxPages: cfg.MaxPages,
		logger:   logger.WithComponent("polygon"),
	}
}

// aggsResponse - ответ aggregates v2
type aggsResponse struct {
	Ticker       string     `json:"ticker"`
	ResultsCount int        `json:"resultsCount"`
	Results      []aggsBar  `json:"results"`
	Status       string     `json:"status"`
	NextURL      string     `json:"next_url"`
}

type aggsBar struct {
	T int64   `json:"t"` // время открытия бара, мс Unix
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

type lastQuoteResponse struct {
	Status string `json:"status"`
	Last   struct {
		Ask       float64 `json:"ask"`
		Bid       float64 `json:"bid"`
		Timestamp int64   `json:"timestamp"` // мс Unix
	} `json:"last"`
}

// ticker возвращает тикер пары в нотации forex: EURUSD -> C:EURUSD
func ticker(pair string) string {
	return "C:" + strings.ToUpper(pair)
}

// rangeSegment возвращает multiplier/timespan для таймфрейма
func rangeSegment(tf models.Timeframe) string {
	switch tf {
	case models.Timeframe1h:
		return "1/hour"
	default:
		return "15/minute"
	}
}

// FetchBars загружает бары пары за интервал [from, to], проходя по
// страницам через next_url. Порядок - по возрастанию времени.
func (c *PolygonClient) FetchBars(ctx context.Context, pair string, tf models.Timeframe, from, to time.Time) ([]RawBar, error) {
	reqURL := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%s/%d/%d?adjusted=true&sort=asc&limit=%d",
		c.baseURL, ticker(pair), rangeSegment(tf), from.UnixMilli(), to.UnixMilli(), c.pageSize)

	var bars []RawBar
	pages := 0

	for reqURL != "" {
		pages++
		if pages > c.maxPages {
			c.logger.Warn("aggregates pagination cut off",
				utils.Pair(pair), utils.Tf(string(tf)), utils.Int("pages", pages-1))
			break
		}

		page, err := c.fetchPage(ctx, reqURL)
		if err != nil {
			return nil, err
		}

		for _, b := range page.Results {
			bars = append(bars, RawBar{
				OpenTimeMs: b.T,
				Open:       b.O,
				High:       b.H,
				Low:        b.L,
				Close:      b.C,
				Volume:     b.V,
			})
		}

		reqURL = page.NextURL
	}

	c.logger.Debug("bars fetched",
		utils.Pair(pair), utils.Tf(string(tf)),
		utils.Int("bars", len(bars)), utils.Int("pages", pages))

	return bars, nil
}

// fetchPage выполняет один постраничный запрос с упреждающей дозировкой
func (c *PolygonClient) fetchPage(ctx context.Context, reqURL string) (*aggsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var page aggsResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode aggregates response: %w", err)
	}

	return &page, nil
}

// LastQuote возвращает последнюю котировку пары
func (c *PolygonClient) LastQuote(ctx context.Context, pair string) (*Quote, error) {
	if len(pair) != 6 {
		return nil, fmt.Errorf("invalid pair symbol: %q", pair)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/last_quote/currencies/%s/%s",
		c.baseURL, strings.ToUpper(pair[:3]), strings.ToUpper(pair[3:]))

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var resp lastQuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode last quote response: %w", err)
	}

	if resp.Last.Bid == 0 && resp.Last.Ask == 0 {
		return nil, ErrNoData
	}

	return &Quote{
		Pair:      strings.ToUpper(pair),
		Bid:       resp.Last.Bid,
		Ask:       resp.Last.Ask,
		Mid:       (resp.Last.Bid + resp.Last.Ask) / 2,
		Timestamp: time.UnixMilli(resp.Last.Timestamp).UTC(),
	}, nil
}

// get выполняет GET запрос с подстановкой apiKey и маппингом статусов
// на ошибки домена
func (c *PolygonClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}

	// next_url приходит без ключа
	q := u.Query()
	if q.Get("apiKey") == "" {
		q.Set("apiKey", c.apiKey)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrForbidden
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
