package exchange

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

// Candles возвращает закрытые свечи по паре.
// Формат klines Binance: массив массивов со смешанными типами.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	params.Set("limit", strconv.Itoa(limit))

	data, err := c.doPublic(ctx, "/api/v3/klines", params)
	if err != nil {
		return nil, errors.Wrap(err, "klines")
	}

	var raw [][]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode klines")
	}

	out := make([]models.Candle, 0, len(raw))
	for _, k := range raw {
		if len(k) < 6 {
			return nil, errors.Errorf("short kline row: %d fields", len(k))
		}
		openMs, ok := k[0].(float64)
		if !ok {
			return nil, errors.Errorf("bad kline open time: %v", k[0])
		}
		var vals [5]float64
		for i := 1; i <= 5; i++ {
			s, ok := k[i].(string)
			if !ok {
				return nil, errors.Errorf("bad kline field %d: %v", i, k[i])
			}
			v, err := parseF("kline", s)
			if err != nil {
				return nil, err
			}
			vals[i-1] = v
		}
		out = append(out, models.Candle{
			OpenTime: time.UnixMilli(int64(openMs)).UTC(),
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}
	return out, nil
}

func (c *Client) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	data, err := c.doPublic(ctx, "/api/v3/ticker/24hr", params)
	if err != nil {
		return models.Ticker{}, errors.Wrap(err, "ticker")
	}

	var raw struct {
		Symbol      string `json:"symbol"`
		LastPrice   string `json:"lastPrice"`
		QuoteVolume string `json:"quoteVolume"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return models.Ticker{}, errors.Wrap(err, "decode ticker")
	}

	price, err := parseF("lastPrice", raw.LastPrice)
	if err != nil {
		return models.Ticker{}, err
	}
	qv, err := parseF("quoteVolume", raw.QuoteVolume)
	if err != nil {
		return models.Ticker{}, err
	}

	return models.Ticker{Symbol: raw.Symbol, Price: price, QuoteVolume24h: qv}, nil
}

// Tickers возвращает 24h-статистику по всем парам одним запросом,
// сканер фильтрует по ней юниверс без запроса на каждую пару.
func (c *Client) Tickers(ctx context.Context) ([]models.Ticker, error) {
	data, err := c.doPublic(ctx, "/api/v3/ticker/24hr", nil)
	if err != nil {
		return nil, errors.Wrap(err, "tickers")
	}

	var raw []struct {
		Symbol      string `json:"symbol"`
		LastPrice   string `json:"lastPrice"`
		QuoteVolume string `json:"quoteVolume"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode tickers")
	}

	out := make([]models.Ticker, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.LastPrice, 64)
		qv, _ := strconv.ParseFloat(r.QuoteVolume, 64)
		out = append(out, models.Ticker{Symbol: r.Symbol, Price: price, QuoteVolume24h: qv})
	}
	return out, nil
}

// Instruments возвращает пары с фильтрами лота/цены из exchangeInfo.
// Суточный оборот сюда не входит — его сканер добирает тикером.
func (c *Client) Instruments(ctx context.Context) ([]models.Instrument, error) {
	data, err := c.doPublic(ctx, "/api/v3/exchangeInfo", nil)
	if err != nil {
		return nil, errors.Wrap(err, "exchange info")
	}

	var raw struct {
		Symbols []struct {
			Symbol     string `json:"symbol"`
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
			Filters    []struct {
				FilterType  string `json:"filterType"`
				MinPrice    string `json:"minPrice"`
				TickSize    string `json:"tickSize"`
				MinQty      string `json:"minQty"`
				StepSize    string `json:"stepSize"`
				MinNotional string `json:"minNotional"`
			} `json:"filters"`
		} `json:"symbols"`
	}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode exchange info")
	}

	out := make([]models.Instrument, 0, len(raw.Symbols))
	for _, s := range raw.Symbols {
		inst := models.Instrument{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Active:     s.Status == "TRADING",
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				inst.MinPrice, _ = strconv.ParseFloat(f.MinPrice, 64)
				inst.TickSize, _ = strconv.ParseFloat(f.TickSize, 64)
			case "LOT_SIZE":
				inst.MinQty, _ = strconv.ParseFloat(f.MinQty, 64)
				inst.StepSize, _ = strconv.ParseFloat(f.StepSize, 64)
			case "MIN_NOTIONAL", "NOTIONAL":
				inst.MinNotional, _ = strconv.ParseFloat(f.MinNotional, 64)
			}
		}
		out = append(out, inst)
	}
	return out, nil
}
