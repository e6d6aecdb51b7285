package contracts

// Listing is one entry of the market-data ETF universe search
type Listing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Quote is a market-data price quote
type Quote struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name,omitempty"`
	Price            float64 `json:"price"`
	Change           float64 `json:"change"`
	ChangePercentage float64 `json:"changePercentage"`
	Volume           float64 `json:"volume"`
	DayLow           float64 `json:"dayLow"`
	DayHigh          float64 `json:"dayHigh"`
	YearLow          float64 `json:"yearLow"`
	YearHigh         float64 `json:"yearHigh"`
	MarketCap        float64 `json:"marketCap"`
	PriceAvg50       float64 `json:"priceAvg50"`
	PriceAvg200      float64 `json:"priceAvg200"`
	Open             float64 `json:"open"`
	PreviousClose    float64 `json:"previousClose"`
	Exchange         string  `json:"exchange,omitempty"`
	Timestamp        int64   `json:"timestamp,omitempty"`
}

// Info is the fund profile from the market-data provider
type Info struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	CUSIP             CUSIP   `json:"cusip"`
	ISIN              string  `json:"isin,omitempty"`
	Currency          string  `json:"currency,omitempty"`
	Exchange          string  `json:"exchange,omitempty"`
	AssetClass        string  `json:"assetClass,omitempty"`
	ExpenseRatio      float64 `json:"expenseRatio,omitempty"`
	AssetsUnderMgmt   float64 `json:"assetsUnderManagement,omitempty"`
	InceptionDate     string  `json:"inceptionDate,omitempty"`
	Description       string  `json:"description,omitempty"`
	Website           string  `json:"website,omitempty"`
	IsActivelyManaged bool    `json:"isActivelyManaged,omitempty"`
}

// Holding is one normalized constituent of a fund
type Holding struct {
	Asset            string  `json:"asset"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	WeightPercentage float64 `json:"weightPercentage"`
}

// CountryWeight is one normalized country allocation
type CountryWeight struct {
	Country          string  `json:"country"`
	WeightPercentage float64 `json:"weightPercentage"`
}

// SectorWeight is one normalized sector allocation
type SectorWeight struct {
	Sector           string  `json:"sector"`
	WeightPercentage float64 `json:"weightPercentage"`
}

// NewsItem is one headline for the detail view
type NewsItem struct {
	Title         string `json:"title"`
	PublishedDate string `json:"publishedDate"`
	URL           string `json:"url"`
	Site          string `json:"site"`
	Text          string `json:"text,omitempty"`
}

// PricePoint is one end-of-day close
type PricePoint struct {
	Date   string  `json:"date"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// BTCHolding is one entry of the Bitcoin-holdings feed
type BTCHolding struct {
	Ticker   string  `json:"ticker"`
	Date     string  `json:"dt"`
	Holdings float64 `json:"holdings"`
	Change   float64 `json:"change"`
	UpdateTS string  `json:"update_ts"`
	Error    bool    `json:"error"`
}

// Usable reports whether the feed vouches for this entry
func (h BTCHolding) Usable() bool {
	return !h.Error
}
