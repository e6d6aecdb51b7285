package reconcile

import (
	"context"
	"fmt"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/knowledge"
)

const (
	// ChartDays is the price history window of the extended detail view
	ChartDays = 60

	// NewsLimit is the number of headlines in the extended detail view
	NewsLimit = 5

	noMarketDataMessage = "No market data available; showing reference values"
)

// Detail builds the on-demand view for symbol.
// prior is the row from the current snapshot, when the symbol is in it.
// Never fails: a panic degrades to FallbackDetail with an error string.
func (e *Engine) Detail(ctx context.Context, symbol string, extended bool, prior *contracts.Record) (d contracts.Detail) {
	symbol = contracts.NormalizeTicker(symbol)

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprint(r)
			e.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"panic":  msg,
			}).Warn("detail reconciliation failed, using reference values")
			d = e.FallbackDetail(symbol, extended, prior)
			d.Error = msg
		}
	}()

	var (
		quote    *contracts.Quote
		holdings []contracts.Holding
		info     *contracts.Info
		lookup   contracts.CUSIP
	)
	e.settle(symbol,
		func() { quote = e.market.Quote(ctx, symbol) },
		func() { holdings = e.market.Holdings(ctx, symbol) },
		func() { info = e.market.Info(ctx, symbol) },
		func() { lookup = e.market.CUSIPBySymbol(ctx, symbol) },
	)

	entry, known := e.kb.Lookup(symbol)

	var quoteName, infoName string
	if quote != nil {
		quoteName = quote.Name
	}
	if info != nil {
		infoName = info.Name
	}
	var priorName string
	if prior != nil {
		priorName = prior.Name
	}
	displayName := firstSome(symbol,
		str(quoteName),
		str(infoName),
		str(priorName),
		always(entry.Name, known && entry.Name != ""),
	)

	var cachedWeight option[float64] = func() (float64, bool) { return 0, false }
	var cachedCUSIP contracts.CUSIP
	if prior != nil {
		cachedWeight = always(prior.CryptoWeight, true)
		cachedCUSIP = prior.CUSIP
	}

	d.Symbol = symbol
	d.Quote = quote
	d.Holdings = holdings
	d.CryptoWeight = clampWeight(firstSome(0,
		cachedWeight,
		positive(CryptoWeightFromHoldings(holdings)),
		always(entry.CryptoWeight, known),
	))
	d.CryptoExposure = e.resolveExposure(displayName, prior, entry, known)
	d.CUSIP = e.resolveCUSIP(symbol, cachedCUSIP, info, lookup, nil)
	applyDetailRecord(&d, displayName, prior, entry, known)
	e.applyDetailSponsor(&d, prior)

	if quote == nil && len(holdings) == 0 && info == nil {
		d.Error = noMarketDataMessage
	}

	if !extended {
		return d
	}

	extras := &contracts.DetailExtras{Info: info}
	e.settle(symbol,
		func() { extras.CountryWeightings = e.market.CountryWeightings(ctx, symbol) },
		func() { extras.SectorWeightings = e.market.SectorWeightings(ctx, symbol) },
		func() { extras.Chart = e.market.HistoricalPrices(ctx, symbol, ChartDays) },
		func() { extras.News = e.market.News(ctx, symbol, NewsLimit) },
	)
	d.Extended = extras
	return d
}

// FallbackDetail answers from the snapshot row and the knowledge base only
func (e *Engine) FallbackDetail(symbol string, extended bool, prior *contracts.Record) contracts.Detail {
	symbol = contracts.NormalizeTicker(symbol)
	entry, known := e.kb.Lookup(symbol)

	var cachedWeight option[float64] = func() (float64, bool) { return 0, false }
	var cachedCUSIP contracts.CUSIP
	var priorName string
	if prior != nil {
		cachedWeight = always(prior.CryptoWeight, true)
		cachedCUSIP = prior.CUSIP
		priorName = prior.Name
	}
	name := firstSome(symbol, str(priorName), always(entry.Name, known && entry.Name != ""))

	d := contracts.Detail{
		DetailCore: contracts.DetailCore{
			Symbol:   symbol,
			Holdings: []contracts.Holding{},
			CryptoWeight: clampWeight(firstSome(0,
				cachedWeight,
				always(entry.CryptoWeight, known),
			)),
			CryptoExposure: e.resolveExposure(name, prior, entry, known),
			CUSIP:          e.resolveCUSIP(symbol, cachedCUSIP, nil, contracts.CUSIP{}, nil),
		},
	}
	applyDetailRecord(&d, name, prior, entry, known)
	e.applyDetailSponsor(&d, prior)
	if extended {
		d.Extended = &contracts.DetailExtras{}
	}
	return d
}

// applyDetailRecord fills the list-row fields of the detail view.
// Region: snapshot row > knowledge > default. BTC holdings only come from the row.
func applyDetailRecord(d *contracts.Detail, name string, prior *contracts.Record, entry knowledge.Entry, known bool) {
	var priorRegion string
	var priorFlag bool
	if prior != nil {
		priorRegion = prior.Region
		priorFlag = prior.DigitalAssetIndicator
		if prior.BTCHoldings != nil {
			holdings := *prior.BTCHoldings
			d.BTCHoldings = &holdings
		}
	}

	d.Name = name
	d.Region = firstSome(contracts.DefaultRegion,
		str(priorRegion),
		always(entry.Region, known && entry.Region != ""),
	)
	d.DigitalAssetIndicator = priorFlag ||
		d.CryptoWeight > contracts.DigitalAssetThreshold ||
		(known && entry.DigitalAssetIndicator) ||
		NameSuggestsDigitalAsset(name)
}

// applyDetailSponsor: snapshot row > knowledge
func (e *Engine) applyDetailSponsor(d *contracts.Detail, prior *contracts.Record) {
	if prior != nil && prior.SponsoredBy != "" {
		d.SponsoredBy = prior.SponsoredBy
		d.SponsoredBadge = prior.SponsoredBadge
		return
	}
	if s, ok := e.kb.Sponsor(d.Symbol); ok {
		d.SponsoredBy = s.SponsoredBy
		d.SponsoredBadge = s.Badge
	}
}
