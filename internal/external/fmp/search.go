package fmp

import (
	"context"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/normalize"
)

// cryptoKeywords select crypto funds out of the ETF search results
var cryptoKeywords = []string{"bitcoin", "btc", "crypto", "ethereum", "eth", "digital", "blockchain"}

// unfilteredCap bounds the raw list kept when no keyword matches
const unfilteredCap = 50

// CryptoETFList returns the crypto ETF universe: keyword-filtered search
// results unioned with the known tickers. On failure the known list alone.
func (c *Client) CryptoETFList(ctx context.Context) []contracts.Listing {
	known := lo.Map(c.kb.KnownTickers(), func(t string, _ int) contracts.Listing {
		return contracts.Listing{Symbol: t, Name: t}
	})

	payload, err := c.fetch(ctx, ep("/stable/etf-list", "query", "bitcoin"))
	if err != nil {
		c.record("universe", "error")
		return known
	}

	list := lo.FilterMap(normalize.ExtractArray(payload), func(r map[string]interface{}, _ int) (contracts.Listing, bool) {
		sym := contracts.NormalizeTicker(normalize.String(r, "symbol"))
		return contracts.Listing{Symbol: sym, Name: normalize.String(r, "name")}, sym != ""
	})

	result := lo.Filter(list, func(l contracts.Listing, _ int) bool {
		text := strings.ToLower(l.Name + " " + l.Symbol)
		return lo.ContainsBy(cryptoKeywords, func(k string) bool {
			return strings.Contains(text, k)
		})
	})
	if len(result) == 0 {
		result = lo.Subset(list, 0, unfilteredCap)
	}

	outcome := "ok"
	if len(result) == 0 {
		outcome = "empty"
	}
	c.record("universe", outcome)

	return lo.UniqBy(append(result, known...), func(l contracts.Listing) string {
		return l.Symbol
	})
}

// CUSIPBySymbol looks up a CUSIP through symbol search: exact symbol match,
// its cusip field, else the CUSIP embedded in a US ISIN
func (c *Client) CUSIPBySymbol(ctx context.Context, symbol string) contracts.CUSIP {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "cusip", ep("/stable/search-symbol", "query", symbol))

	match, ok := lo.Find(rows, func(r map[string]interface{}) bool {
		return contracts.NormalizeTicker(normalize.String(r, "symbol")) == symbol
	})
	if !ok {
		return contracts.CUSIP{}
	}
	return contracts.FirstCUSIP(
		contracts.ParseCUSIP(normalize.String(match, "cusip")),
		contracts.CUSIPFromISIN(normalize.String(match, "isin")),
	)
}

// News returns the latest headlines for symbol
func (c *Client) News(ctx context.Context, symbol string, limit int) []contracts.NewsItem {
	symbol = contracts.NormalizeTicker(symbol)
	rows := c.firstRows(ctx, "news",
		ep("/stable/news/stock", "symbols", symbol, "page", "0", "limit", strconv.Itoa(limit)),
	)
	items := lo.Map(rows, func(r map[string]interface{}, _ int) contracts.NewsItem {
		return contracts.NewsItem{
			Title:         normalize.String(r, "title"),
			PublishedDate: normalize.String(r, "publishedDate"),
			URL:           normalize.String(r, "url"),
			Site:          normalize.String(r, "site", "publisher"),
			Text:          normalize.String(r, "text"),
		}
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// HistoricalPrices returns end-of-day closes for the last days, oldest first
func (c *Client) HistoricalPrices(ctx context.Context, symbol string, days int) []contracts.PricePoint {
	symbol = contracts.NormalizeTicker(symbol)
	to := c.now().UTC()
	from := to.AddDate(0, 0, -days)

	rows := c.firstRows(ctx, "history",
		ep("/stable/historical-price-eod/light",
			"symbol", symbol,
			"from", from.Format("2006-01-02"),
			"to", to.Format("2006-01-02"),
		),
	)
	points := lo.Map(rows, func(r map[string]interface{}, _ int) contracts.PricePoint {
		return contracts.PricePoint{
			Date:   normalize.String(r, "date"),
			Close:  normalize.Number(r, "close", "price"),
			Volume: normalize.Number(r, "volume"),
		}
	})
	sortByDate(points)
	return points
}
