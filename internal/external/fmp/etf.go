package fmp

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/normalize"
)

// Quote returns the latest quote, trying the batch ETF endpoint first
func (c *Client) Quote(ctx context.Context, symbol string) *contracts.Quote {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "quote",
		ep("/stable/batch-etf-quotes", "symbols", symbol),
		ep("/stable/quote", "symbol", symbol),
	)
	row, ok := matchSymbol(rows, symbol)
	if !ok {
		return nil
	}
	return mapQuote(row)
}

// Info returns the fund profile, falling back to the legacy company profile
func (c *Client) Info(ctx context.Context, symbol string) *contracts.Info {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "info",
		ep("/stable/etf/info", "symbol", symbol),
		ep("/api/v3/profile/"+url.PathEscape(symbol)),
	)
	if len(rows) == 0 {
		return nil
	}
	return mapInfo(rows[0])
}

// Holdings returns the normalized constituents of a fund
func (c *Client) Holdings(ctx context.Context, symbol string) []contracts.Holding {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "holdings",
		ep("/api/v3/etf-holder/"+url.PathEscape(symbol)),
		ep("/stable/etf/holdings", "symbol", symbol),
	)
	return normalize.MapHoldings(toArray(rows))
}

// CountryWeightings returns country allocations
func (c *Client) CountryWeightings(ctx context.Context, symbol string) []contracts.CountryWeight {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "countries",
		ep("/api/v4/etf-country-weightings", "symbol", symbol),
		ep("/stable/etf/country-weightings", "symbol", symbol),
	)
	return normalize.MapCountryWeights(toArray(rows))
}

// SectorWeightings returns sector allocations
func (c *Client) SectorWeightings(ctx context.Context, symbol string) []contracts.SectorWeight {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "sectors",
		ep("/stable/etf/sector-weightings", "symbol", symbol),
	)
	return normalize.MapSectorWeights(toArray(rows))
}

// toArray re-wraps rows so the normalize mappers can take them as a payload
func toArray(rows []map[string]interface{}) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

// matchSymbol picks the row for symbol, or the first row when none carries it
func matchSymbol(rows []map[string]interface{}, symbol string) (map[string]interface{}, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	if row, ok := lo.Find(rows, func(r map[string]interface{}) bool {
		return strings.EqualFold(normalize.String(r, "symbol"), symbol)
	}); ok {
		return row, true
	}
	return rows[0], true
}

func mapQuote(r map[string]interface{}) *contracts.Quote {
	return &contracts.Quote{
		Symbol:           contracts.NormalizeTicker(normalize.String(r, "symbol")),
		Name:             normalize.String(r, "name"),
		Price:            normalize.Number(r, "price"),
		Change:           normalize.Number(r, "change"),
		ChangePercentage: normalize.Number(r, "changePercentage", "changesPercentage"),
		Volume:           normalize.Number(r, "volume"),
		DayLow:           normalize.Number(r, "dayLow"),
		DayHigh:          normalize.Number(r, "dayHigh"),
		YearLow:          normalize.Number(r, "yearLow"),
		YearHigh:         normalize.Number(r, "yearHigh"),
		MarketCap:        normalize.Number(r, "marketCap"),
		PriceAvg50:       normalize.Number(r, "priceAvg50"),
		PriceAvg200:      normalize.Number(r, "priceAvg200"),
		Open:             normalize.Number(r, "open"),
		PreviousClose:    normalize.Number(r, "previousClose"),
		Exchange:         normalize.String(r, "exchange"),
		Timestamp:        int64(normalize.Number(r, "timestamp")),
	}
}

func mapInfo(r map[string]interface{}) *contracts.Info {
	return &contracts.Info{
		Symbol:            contracts.NormalizeTicker(normalize.String(r, "symbol")),
		Name:              normalize.String(r, "name", "companyName"),
		CUSIP:             contracts.ParseCUSIP(normalize.String(r, "cusip")),
		ISIN:              normalize.String(r, "isin"),
		Currency:          normalize.String(r, "currency"),
		Exchange:          normalize.String(r, "exchange", "exchangeShortName"),
		AssetClass:        normalize.String(r, "assetClass"),
		ExpenseRatio:      normalize.Number(r, "expenseRatio"),
		AssetsUnderMgmt:   normalize.Number(r, "assetsUnderManagement", "mktCap"),
		InceptionDate:     normalize.String(r, "inceptionDate", "ipoDate"),
		Description:       normalize.String(r, "description"),
		Website:           normalize.String(r, "website"),
		IsActivelyManaged: normalize.Bool(r, "isActivelyManaged"),
	}
}

// sortByDate orders price points ascending by ISO date
func sortByDate(points []contracts.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
}
