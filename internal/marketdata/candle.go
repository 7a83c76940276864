package marketdata

import "context"

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime int64   `json:"open_time"` // milliseconds since epoch
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Provider supplies candles and last prices for a symbol.
type Provider interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
