package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"github.com/Anhbaza/Bot-Binance/internal/models"
)

type orderResponse struct {
	Symbol   string `json:"symbol"`
	OrderID  int64  `json:"orderId"`
	Price    string `json:"price"`
	OrigQty  string `json:"origQty"`
	Status   string `json:"status"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	ListID   int64  `json:"orderListId"`
	ExecQty  string `json:"executedQty"`
	TimeInFc string `json:"timeInForce"`
}

func formatQty(q float64) string   { return strconv.FormatFloat(q, 'f', -1, 64) }
func formatPrice(p float64) string { return strconv.FormatFloat(p, 'f', -1, 64) }

func (c *Client) PlaceOrder(
	ctx context.Context,
	symbol string,
	side models.OrderSide,
	typ models.OrderType,
	qty, price float64,
) (models.Order, error) {
	if qty <= 0 {
		return models.Order{}, errors.New("PlaceOrder: qty <= 0")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("type", string(typ))
	params.Set("quantity", formatQty(qty))
	if typ == models.OrderLimit {
		if price <= 0 {
			return models.Order{}, errors.New("PlaceOrder: limit price <= 0")
		}
		params.Set("price", formatPrice(price))
		params.Set("timeInForce", "GTC")
	}

	data, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return models.Order{}, errors.Wrap(err, "place order")
	}

	var r orderResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Order{}, errors.Wrap(err, "decode order")
	}
	if r.OrderID == 0 {
		return models.Order{}, errors.Errorf("place order: empty orderId RAW=%s", string(data))
	}

	return models.Order{
		OrderID:  strconv.FormatInt(r.OrderID, 10),
		Symbol:   symbol,
		Side:     side,
		Type:     typ,
		Price:    price,
		Quantity: qty,
		Status:   models.OrderStatus(r.Status),
	}, nil
}

// PlaceBracket ставит OCO-выход: лимитный тейк и стоп, исполнение одной
// ноги снимает вторую на стороне биржи.
func (c *Client) PlaceBracket(
	ctx context.Context,
	symbol string,
	side models.OrderSide,
	qty, takeProfit, stopPrice float64,
) (models.Order, error) {
	if qty <= 0 {
		return models.Order{}, errors.New("PlaceBracket: qty <= 0")
	}
	if takeProfit <= 0 || stopPrice <= 0 {
		return models.Order{}, errors.New("PlaceBracket: bad trigger prices")
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", string(side))
	params.Set("quantity", formatQty(qty))
	params.Set("price", formatPrice(takeProfit))
	params.Set("stopPrice", formatPrice(stopPrice))
	params.Set("stopLimitPrice", formatPrice(stopPrice))
	params.Set("stopLimitTimeInForce", "GTC")

	data, err := c.doSigned(ctx, http.MethodPost, "/api/v3/order/oco", params)
	if err != nil {
		return models.Order{}, errors.Wrap(err, "place bracket")
	}

	var r struct {
		OrderListID int64 `json:"orderListId"`
		Orders      []struct {
			OrderID int64 `json:"orderId"`
		} `json:"orders"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Order{}, errors.Wrap(err, "decode bracket")
	}
	if r.OrderListID == 0 {
		return models.Order{}, errors.Errorf("place bracket: empty orderListId RAW=%s", string(data))
	}

	ord := models.Order{
		OrderID:  strconv.FormatInt(r.OrderListID, 10),
		Symbol:   symbol,
		Side:     side,
		Type:     models.OrderOCO,
		Price:    takeProfit,
		Quantity: qty,
		Status:   models.OrderNew,
	}
	if len(r.Orders) > 1 {
		ord.LinkedBracketID = strconv.FormatInt(r.Orders[1].OrderID, 10)
	}
	return ord, nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	if _, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/order", params); err != nil {
		return errors.Wrapf(err, "cancel order %s", orderID)
	}
	return nil
}

// CancelAll снимает все открытые ордера; пустой symbol — по всем парам.
func (c *Client) CancelAll(ctx context.Context, symbol string) error {
	if symbol != "" {
		params := url.Values{}
		params.Set("symbol", symbol)
		if _, err := c.doSigned(ctx, http.MethodDelete, "/api/v3/openOrders", params); err != nil {
			return errors.Wrapf(err, "cancel all %s", symbol)
		}
		return nil
	}

	data, err := c.doSigned(ctx, http.MethodGet, "/api/v3/openOrders", nil)
	if err != nil {
		return errors.Wrap(err, "list open orders")
	}
	var open []orderResponse
	if err := sonic.Unmarshal(data, &open); err != nil {
		return errors.Wrap(err, "decode open orders")
	}

	seen := map[string]bool{}
	for _, o := range open {
		if seen[o.Symbol] {
			continue
		}
		seen[o.Symbol] = true
		if err := c.CancelAll(ctx, o.Symbol); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) OrderStatus(ctx context.Context, symbol, orderID string) (models.Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)

	data, err := c.doSigned(ctx, http.MethodGet, "/api/v3/order", params)
	if err != nil {
		return models.Order{}, errors.Wrapf(err, "order status %s", orderID)
	}

	var r orderResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Order{}, errors.Wrap(err, "decode order status")
	}

	price, _ := strconv.ParseFloat(r.Price, 64)
	qty, _ := strconv.ParseFloat(r.OrigQty, 64)
	return models.Order{
		OrderID:  orderID,
		Symbol:   r.Symbol,
		Side:     models.OrderSide(r.Side),
		Type:     models.OrderType(r.Type),
		Price:    price,
		Quantity: qty,
		Status:   models.OrderStatus(r.Status),
	}, nil
}

func (c *Client) Balance(ctx context.Context, asset string) (float64, error) {
	data, err := c.doSigned(ctx, http.MethodGet, "/api/v3/account", nil)
	if err != nil {
		return 0, errors.Wrap(err, "account")
	}

	var r struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := sonic.Unmarshal(data, &r); err != nil {
		return 0, errors.Wrap(err, "decode account")
	}

	for _, b := range r.Balances {
		if b.Asset == asset {
			return parseF("free", b.Free)
		}
	}
	return 0, nil
}
