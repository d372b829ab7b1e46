// Package service - внешние сервисы: стратегический движок и уведомления.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"orion-brain/internal/config"
	"orion-brain/internal/marketdata"
	"orion-brain/internal/models"
	"orion-brain/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const trendEnginePath = "/v1/trend_engine"

// StrategyClient запрашивает входной сигнал у внешнего стратегического
// сервиса.
//
// Контракт ответа: {"signal": null} либо {"signal": {...}}. Любой сбой -
// таймаут, HTTP ошибка, кривой JSON, неполный сигнал - трактуется как
// отсутствие сигнала: прогон по остальным парам не прерывается.
type StrategyClient struct {
	baseURL string
	client  *http.Client
	logger  *utils.Logger
}

// NewStrategyClient создает клиент стратегического сервиса
func NewStrategyClient(cfg config.StrategyConfig, logger *utils.Logger) *StrategyClient {
	httpCfg := marketdata.DefaultHTTPClientConfig()
	if cfg.Timeout > 0 {
		httpCfg.TotalTimeout = cfg.Timeout
		httpCfg.ReadTimeout = cfg.Timeout
	}
	return &StrategyClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  marketdata.NewHTTPClient(httpCfg),
		logger:  logger.WithComponent("strategy"),
	}
}

// candlePayload - свеча в том виде, в котором ее ждет стратегический сервис
type candlePayload struct {
	TS    int64   `json:"ts"` // unix ms закрытия
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type trendEngineRequest struct {
	Pair       string          `json:"pair"` // с префиксом поставщика: C:EURUSD
	Candles15m []candlePayload `json:"candles_15m"`
	Candles1h  []candlePayload `json:"candles_1h"`
}

type trendEngineResponse struct {
	Signal *models.EntrySignal `json:"signal"`
}

// RequestSignal запрашивает сигнал для пары по двум свечным окнам.
// Возвращает nil без ошибки, когда сигнала нет или сервис недоступен.
func (c *StrategyClient) RequestSignal(ctx context.Context, pair string, bars15m, bars1h []models.Candle) (*models.EntrySignal, error) {
	reqBody := trendEngineRequest{
		Pair:       "C:" + pair,
		Candles15m: toPayload(bars15m),
		Candles1h:  toPayload(bars1h),
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		c.logger.Error("trend engine request encode failed", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}

	url := c.baseURL + trendEnginePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("trend engine request build failed", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("trend engine call",
		utils.Pair(pair),
		utils.Int("bars_15m", len(bars15m)),
		utils.Int("bars_1h", len(bars1h)))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("trend engine unreachable", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.logger.Error("trend engine response read failed", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("trend engine HTTP error",
			utils.Pair(pair), utils.Int("status", resp.StatusCode))
		return nil, nil
	}

	var parsed trendEngineResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.Error("trend engine returned malformed JSON", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}

	if parsed.Signal == nil {
		return nil, nil
	}

	// неполный сигнал отбрасывается здесь же, до движка
	if err := parsed.Signal.Validate(); err != nil {
		c.logger.Warn("trend engine signal malformed", utils.Pair(pair), utils.Err(err))
		return nil, nil
	}

	if parsed.Signal.SignalID == "" {
		// сервис без дедупликации: синтетический id по паре и последнему бару
		if n := len(bars15m); n > 0 {
			parsed.Signal.SignalID = fmt.Sprintf("%s-%d", pair, bars15m[n-1].TS.Unix())
		}
	}

	return parsed.Signal, nil
}

func toPayload(bars []models.Candle) []candlePayload {
	out := make([]candlePayload, 0, len(bars))
	for _, b := range bars {
		out = append(out, candlePayload{
			TS:    b.TS.UnixMilli(),
			Open:  b.Open,
			High:  b.High,
			Low:   b.Low,
			Close: b.Close,
		})
	}
	return out
}
