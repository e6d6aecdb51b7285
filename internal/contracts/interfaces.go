package contracts

import "context"

// ⭐ SSOT: 컴포넌트 간 경계는 여기 인터페이스로만 정의

// MarketData is the market-data Source Client.
// Every method degrades to an empty value instead of returning an error.
type MarketData interface {
	CryptoETFList(ctx context.Context) []Listing
	Quote(ctx context.Context, symbol string) *Quote
	Holdings(ctx context.Context, symbol string) []Holding
	Info(ctx context.Context, symbol string) *Info
	CountryWeightings(ctx context.Context, symbol string) []CountryWeight
	SectorWeightings(ctx context.Context, symbol string) []SectorWeight
	News(ctx context.Context, symbol string, limit int) []NewsItem
	HistoricalPrices(ctx context.Context, symbol string, days int) []PricePoint
	CUSIPBySymbol(ctx context.Context, symbol string) CUSIP
}

// HoldingsFeed is the Bitcoin-holdings feed, keyed by uppercase ticker
type HoldingsFeed interface {
	BTCHoldings(ctx context.Context) map[string]BTCHolding
}

// CUSIPDirectory is an optional external ticker to CUSIP map
type CUSIPDirectory interface {
	CUSIPs(ctx context.Context) map[string]CUSIP
}

// SnapshotStore holds the single snapshot slot.
// Load returns EmptySnapshot when nothing was written yet.
type SnapshotStore interface {
	Load(ctx context.Context) (Snapshot, error)
	Replace(ctx context.Context, s Snapshot) error
}

// DetailCache is the short-TTL cache in front of the detail path
type DetailCache interface {
	Get(ctx context.Context, ticker string, extended bool) (Detail, bool)
	Set(ctx context.Context, ticker string, extended bool, d Detail)
}

// Entitlements answers whether a bearer token belongs to a paying user
type Entitlements interface {
	IsPro(ctx context.Context, bearer string) bool
}
