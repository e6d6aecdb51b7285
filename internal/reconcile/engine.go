// Package reconcile merges market data, the Bitcoin-holdings feed and the
// knowledge base into one canonical record per ticker.
package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
	"github.com/wonny/cryptoetf/backend/internal/knowledge"
	"github.com/wonny/cryptoetf/backend/pkg/logger"
)

// Inputs are the run-wide sources fetched once per sync
type Inputs struct {
	BTCFeed        map[string]contracts.BTCHolding
	ExternalCUSIPs map[string]contracts.CUSIP
}

// Engine produces canonical records
// ⭐ SSOT: 필드 우선순위 병합은 여기서만
type Engine struct {
	market contracts.MarketData
	kb     *knowledge.Base
	logger *logger.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(market contracts.MarketData, kb *knowledge.Base, log *logger.Logger) *Engine {
	return &Engine{
		market: market,
		kb:     kb,
		logger: log.Module("reconcile"),
	}
}

// Reconcile builds the record for one listing on the sync path.
// A panic anywhere in the merge degrades to the knowledge-only record.
func (e *Engine) Reconcile(ctx context.Context, listing contracts.Listing, in Inputs) (rec contracts.Record) {
	ticker := contracts.NormalizeTicker(listing.Symbol)
	listing.Symbol = ticker

	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"panic":  fmt.Sprint(r),
			}).Error("reconciliation failed, using knowledge fallback")
			rec = e.Fallback(listing, in)
		}
	}()

	if entry, ok := in.BTCFeed[ticker]; ok && entry.Usable() {
		return e.reconcileSpotBitcoin(ctx, listing, entry, in)
	}
	return e.reconcileHoldings(ctx, listing, in)
}

// reconcileSpotBitcoin handles funds vouched for by the holdings feed:
// weight, exposure and flag are fixed, holdings come from the feed
func (e *Engine) reconcileSpotBitcoin(ctx context.Context, listing contracts.Listing, feed contracts.BTCHolding, in Inputs) contracts.Record {
	ticker := listing.Symbol

	var (
		info   *contracts.Info
		lookup contracts.CUSIP
	)
	e.settle(ticker,
		func() { info = e.market.Info(ctx, ticker) },
		func() { lookup = e.market.CUSIPBySymbol(ctx, ticker) },
	)

	entry, known := e.kb.Lookup(ticker)
	holdings := round2(feed.Holdings)

	rec := contracts.Record{
		Ticker:                ticker,
		Name:                  e.resolveName(info, entry, known, listing),
		Region:                firstSome(contracts.DefaultRegion, always(entry.Region, known && entry.Region != "")),
		CryptoWeight:          contracts.SpotBitcoinWeight,
		CryptoExposure:        contracts.ExposureBTC,
		CUSIP:                 e.resolveCUSIP(ticker, contracts.CUSIP{}, info, lookup, in.ExternalCUSIPs),
		DigitalAssetIndicator: true,
		BTCHoldings:           &holdings,
	}
	e.applySponsor(&rec)
	return rec
}

// reconcileHoldings computes weight from holdings for every other fund
func (e *Engine) reconcileHoldings(ctx context.Context, listing contracts.Listing, in Inputs) contracts.Record {
	ticker := listing.Symbol

	var (
		info      *contracts.Info
		holdings  []contracts.Holding
		countries []contracts.CountryWeight
		lookup    contracts.CUSIP
	)
	e.settle(ticker,
		func() { info = e.market.Info(ctx, ticker) },
		func() { holdings = e.market.Holdings(ctx, ticker) },
		func() { countries = e.market.CountryWeightings(ctx, ticker) },
		func() { lookup = e.market.CUSIPBySymbol(ctx, ticker) },
	)

	entry, known := e.kb.Lookup(ticker)
	name := e.resolveName(info, entry, known, listing)

	weight := clampWeight(firstSome(0,
		positive(CryptoWeightFromHoldings(holdings)),
		always(entry.CryptoWeight, known),
	))

	region := firstSome(contracts.DefaultRegion,
		func() (string, bool) { return topCountry(countries) },
		always(entry.Region, known && entry.Region != ""),
	)

	rec := contracts.Record{
		Ticker:         ticker,
		Name:           name,
		Region:         region,
		CryptoWeight:   weight,
		CryptoExposure: e.resolveExposure(name, nil, entry, known),
		CUSIP:          e.resolveCUSIP(ticker, contracts.CUSIP{}, info, lookup, in.ExternalCUSIPs),
		DigitalAssetIndicator: weight > contracts.DigitalAssetThreshold ||
			(known && entry.DigitalAssetIndicator) ||
			NameSuggestsDigitalAsset(listing.Name),
	}
	e.applySponsor(&rec)
	return rec
}

// Fallback is the knowledge-only record used when reconciliation fails outright.
// Feed-vouched funds keep their fixed spot Bitcoin values.
func (e *Engine) Fallback(listing contracts.Listing, in Inputs) contracts.Record {
	ticker := contracts.NormalizeTicker(listing.Symbol)
	entry, known := e.kb.Lookup(ticker)

	name := firstSome(ticker, always(entry.Name, known && entry.Name != ""), str(listing.Name))
	rec := contracts.Record{
		Ticker:         ticker,
		Name:           name,
		Region:         firstSome(contracts.DefaultRegion, always(entry.Region, known && entry.Region != "")),
		CryptoWeight:   clampWeight(firstSome(0, always(entry.CryptoWeight, known))),
		CryptoExposure: e.resolveExposure(name, nil, entry, known),
		CUSIP:          e.resolveCUSIP(ticker, contracts.CUSIP{}, nil, contracts.CUSIP{}, in.ExternalCUSIPs),
		DigitalAssetIndicator: (known && entry.DigitalAssetIndicator) ||
			NameSuggestsDigitalAsset(listing.Name),
	}

	if feed, ok := in.BTCFeed[ticker]; ok && feed.Usable() {
		holdings := round2(feed.Holdings)
		rec.CryptoWeight = contracts.SpotBitcoinWeight
		rec.CryptoExposure = contracts.ExposureBTC
		rec.DigitalAssetIndicator = true
		rec.BTCHoldings = &holdings
	}
	e.applySponsor(&rec)
	return rec
}

// resolveName: info > knowledge > listing > ticker
func (e *Engine) resolveName(info *contracts.Info, entry knowledge.Entry, known bool, listing contracts.Listing) string {
	var infoName string
	if info != nil {
		infoName = info.Name
	}
	return firstSome(listing.Symbol,
		str(infoName),
		always(entry.Name, known && entry.Name != ""),
		str(listing.Name),
	)
}

// resolveExposure: cached > knowledge > inferred from the display name
func (e *Engine) resolveExposure(displayName string, prior *contracts.Record, entry knowledge.Entry, known bool) string {
	var cached option[string] = func() (string, bool) { return "", false }
	if prior != nil {
		cached = str(prior.CryptoExposure)
	}
	return firstSome(contracts.Unknown,
		cached,
		always(entry.CryptoExposure, known && entry.CryptoExposure != ""),
		func() (string, bool) { return InferExposure(displayName), true },
	)
}

// resolveCUSIP: cached > info > symbol lookup > knowledge > override > external map > unknown
func (e *Engine) resolveCUSIP(ticker string, cached contracts.CUSIP, info *contracts.Info, lookup contracts.CUSIP, external map[string]contracts.CUSIP) contracts.CUSIP {
	var fromInfo contracts.CUSIP
	if info != nil {
		fromInfo = info.CUSIP
	}
	entry, _ := e.kb.Lookup(ticker)
	return firstSome(contracts.CUSIP{},
		cusip(cached),
		cusip(fromInfo),
		cusip(lookup),
		cusip(entry.CUSIP),
		func() (contracts.CUSIP, bool) { return e.kb.Override(ticker) },
		cusipFrom(external, ticker),
	)
}

func (e *Engine) applySponsor(rec *contracts.Record) {
	if s, ok := e.kb.Sponsor(rec.Ticker); ok {
		rec.SponsoredBy = s.SponsoredBy
		rec.SponsoredBadge = s.Badge
	}
}

// settle runs every fetch concurrently and waits for all of them.
// A panicking fetch leaves its result at the zero value; siblings are unaffected.
func (e *Engine) settle(ticker string, fetches ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fetches))
	for _, fetch := range fetches {
		go func(fetch func()) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					e.logger.WithFields(map[string]interface{}{
						"ticker": ticker,
						"panic":  fmt.Sprint(r),
					}).Warn("source fetch panicked")
				}
			}()
			fetch()
		}(fetch)
	}
	wg.Wait()
}
