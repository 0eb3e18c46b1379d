package models

type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
	OrderOCO    OrderType = "OCO"
)

type OrderStatus string

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// Order принадлежит движку; наружу отдаётся только OrderID.
type Order struct {
	OrderID  string
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Price    float64
	Quantity float64
	Status   OrderStatus

	// для OCO: связанная нога (filling one cancels the other)
	LinkedBracketID string
}

// EntrySide — сторона входного ордера по направлению сигнала.
func EntrySide(d Direction) OrderSide {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// ExitSide — сторона закрывающего ордера (зеркало входа).
func ExitSide(d Direction) OrderSide {
	if d == DirectionShort {
		return SideBuy
	}
	return SideSell
}
