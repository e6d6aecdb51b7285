package contracts

import (
	"encoding/json"
	"strings"
	"time"
)

// Display conventions shared by every component
const (
	// Unknown is the display sentinel for an unknown CUSIP or exposure
	Unknown = "—"

	// DefaultRegion is used when neither sources nor knowledge name a region
	DefaultRegion = "United States"

	// DigitalAssetThreshold is the crypto weight (%) above which a fund is flagged
	DigitalAssetThreshold = 0.1

	// SpotBitcoinWeight is assigned to funds present in the Bitcoin-holdings feed
	SpotBitcoinWeight = 99.5
)

// Exposure labels
const (
	ExposureBTC        = "BTC"
	ExposureETH        = "ETH"
	ExposureVarious    = "Various"
	ExposureBlockchain = "Blockchain equities"
)

// Record is the canonical reconciled row for one ETF
// ⭐ SSOT: 스냅샷과 상세 응답의 공통 레코드
type Record struct {
	Ticker                string   `json:"ticker"`
	Name                  string   `json:"name"`
	Region                string   `json:"region"`
	CryptoWeight          float64  `json:"cryptoWeight"`   // [0,100], 0 when unknown
	CryptoExposure        string   `json:"cryptoExposure"` // "—" when none
	CUSIP                 CUSIP    `json:"cusip"`
	DigitalAssetIndicator bool     `json:"digitalAssetIndicator"`
	SponsoredBy           string   `json:"sponsoredBy,omitempty"`
	SponsoredBadge        string   `json:"sponsoredBadge,omitempty"`
	BTCHoldings           *float64 `json:"btcHoldings,omitempty"` // only from the holdings feed
}

// Snapshot is the full reconciled universe written by one sync run
type Snapshot struct {
	ETFs     []Record   `json:"etfs"`
	SyncedAt *time.Time `json:"syncedAt"`
	Count    int        `json:"count"`
}

// EmptySnapshot is what readers see before the first sync
func EmptySnapshot() Snapshot {
	return Snapshot{ETFs: []Record{}}
}

// NewSnapshot builds a snapshot from already sorted records
func NewSnapshot(records []Record, syncedAt time.Time) Snapshot {
	if records == nil {
		records = []Record{}
	}
	at := syncedAt.UTC()
	return Snapshot{ETFs: records, SyncedAt: &at, Count: len(records)}
}

// IsEmpty reports whether the snapshot carries no records
func (s Snapshot) IsEmpty() bool {
	return len(s.ETFs) == 0
}

// Find returns the row for ticker (case-insensitive)
func (s Snapshot) Find(ticker string) (Record, bool) {
	ticker = NormalizeTicker(ticker)
	for _, r := range s.ETFs {
		if r.Ticker == ticker {
			return r, true
		}
	}
	return Record{}, false
}

// MarshalJSON keeps "etfs" an array even for a zero Snapshot
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	if s.ETFs == nil {
		s.ETFs = []Record{}
	}
	return json.Marshal(alias(s))
}

// NormalizeTicker trims and uppercases a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// DetailCore is the basic on-demand view of one ETF
type DetailCore struct {
	Symbol                string    `json:"symbol"`
	Name                  string    `json:"name"`
	Region                string    `json:"region"`
	Quote                 *Quote    `json:"quote"`
	Holdings              []Holding `json:"holdings"`
	CryptoWeight          float64   `json:"cryptoWeight"`
	CryptoExposure        string    `json:"cryptoExposure"`
	CUSIP                 CUSIP     `json:"cusip"`
	DigitalAssetIndicator bool      `json:"digitalAssetIndicator"`
	BTCHoldings           *float64  `json:"btcHoldings,omitempty"`
	SponsoredBy           string    `json:"sponsoredBy,omitempty"`
	SponsoredBadge        string    `json:"sponsoredBadge,omitempty"`
	Error                 string    `json:"error,omitempty"`
}

// DetailExtras are the fields added by ?extended=1
type DetailExtras struct {
	Info              *Info           `json:"info"`
	CountryWeightings []CountryWeight `json:"countryWeightings"`
	SectorWeightings  []SectorWeight  `json:"sectorWeightings"`
	Chart             []PricePoint    `json:"chart"`
	News              []NewsItem      `json:"news"`
}

// Detail is the payload of GET /api/etf/{symbol}.
// Extended is nil on the basic view.
type Detail struct {
	DetailCore
	Extended *DetailExtras
}

// MarshalJSON flattens the extras into the top-level object
func (d Detail) MarshalJSON() ([]byte, error) {
	core := d.DetailCore
	if core.Holdings == nil {
		core.Holdings = []Holding{}
	}
	if d.Extended == nil {
		return json.Marshal(core)
	}
	extras := *d.Extended
	if extras.CountryWeightings == nil {
		extras.CountryWeightings = []CountryWeight{}
	}
	if extras.SectorWeightings == nil {
		extras.SectorWeightings = []SectorWeight{}
	}
	if extras.Chart == nil {
		extras.Chart = []PricePoint{}
	}
	if extras.News == nil {
		extras.News = []NewsItem{}
	}
	return json.Marshal(struct {
		DetailCore
		DetailExtras
	}{core, extras})
}

// UnmarshalJSON restores Extended when extended keys are present
func (d *Detail) UnmarshalJSON(data []byte) error {
	var core DetailCore
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	d.DetailCore = core
	d.Extended = nil
	if _, ok := keys["countryWeightings"]; ok {
		var extras DetailExtras
		if err := json.Unmarshal(data, &extras); err != nil {
			return err
		}
		d.Extended = &extras
	}
	return nil
}
