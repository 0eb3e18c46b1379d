package models

// Instrument — метаданные торговой пары с биржи: фильтры цены/лота
// и суточный оборот для отбора пар.
type Instrument struct {
	Symbol         string
	BaseAsset      string
	QuoteAsset     string
	MinPrice       float64
	MinQty         float64
	StepSize       float64
	TickSize       float64
	MinNotional    float64
	QuoteVolume24h float64
	Active         bool
}
