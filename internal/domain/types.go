// Package domain holds the core data types shared across the rotor
// platform: assets, markets, categories, and daily bars.
package domain

import "time"

// Market identifies the exchange venue an asset trades on.
type Market string

const (
	MarketCN Market = "cn"
	MarketUS Market = "us"
)

// Category classifies an asset by the kind of exposure it provides.
type Category string

const (
	CategoryEquity Category = "equity" // equity index tracker
	CategoryBond   Category = "bond"
	CategoryGold   Category = "gold"
	CategoryCash   Category = "cash" // money-market / cash-equivalent ETF
)

// Asset is one tradable instrument in the rotation universe. Loaded once
// from configuration and treated as immutable.
type Asset struct {
	Symbol   string   // exchange code, e.g. "588000"
	Name     string   // human-readable name
	Category Category
	Market   Market
}

// Bar is one daily OHLCV bar for a single asset.
type Bar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}
