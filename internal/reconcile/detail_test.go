package reconcile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

func TestDetailBasic(t *testing.T) {
	m := &fakeMarket{
		quotes: map[string]*contracts.Quote{"IBIT": {Symbol: "IBIT", Name: "iShares Bitcoin Trust ETF", Price: 55.1}},
		holdings: map[string][]contracts.Holding{
			"IBIT": {{Name: "Bitcoin", Symbol: "BTC", WeightPercentage: 100}},
		},
	}
	e := newTestEngine(m)

	d := e.Detail(context.Background(), "ibit", false, nil)

	assert.Equal(t, "IBIT", d.Symbol)
	require.NotNil(t, d.Quote)
	assert.Equal(t, 55.1, d.Quote.Price)
	assert.Len(t, d.Holdings, 1)
	assert.Equal(t, 100.0, d.CryptoWeight)
	assert.Equal(t, "BTC", d.CryptoExposure)
	assert.Equal(t, "46438F101", d.CUSIP.String())
	assert.Equal(t, "iShares Bitcoin Trust ETF", d.Name)
	assert.Equal(t, "United States", d.Region)
	assert.True(t, d.DigitalAssetIndicator)
	assert.Nil(t, d.BTCHoldings)
	assert.Nil(t, d.Extended)
	assert.Empty(t, d.Error)
}

func TestDetailCarriesRecordFields(t *testing.T) {
	holdings := 2890.5
	prior := &contracts.Record{
		Ticker:                "ZZBT",
		Name:                  "Z Spot Trust",
		Region:                "Canada",
		CryptoWeight:          0,
		CryptoExposure:        "BTC",
		DigitalAssetIndicator: true,
		BTCHoldings:           &holdings,
	}

	tests := []struct {
		name  string
		build func(e *Engine) contracts.Detail
	}{
		{"live", func(e *Engine) contracts.Detail {
			return e.Detail(context.Background(), "ZZBT", false, prior)
		}},
		{"fallback", func(e *Engine) contracts.Detail {
			return e.FallbackDetail("ZZBT", false, prior)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := tt.build(newTestEngine(&fakeMarket{}))

			assert.Equal(t, "Z Spot Trust", d.Name)
			assert.Equal(t, "Canada", d.Region)
			assert.True(t, d.DigitalAssetIndicator)
			require.NotNil(t, d.BTCHoldings)
			assert.Equal(t, 2890.5, *d.BTCHoldings)
			assert.NotSame(t, prior.BTCHoldings, d.BTCHoldings)

			b, err := json.Marshal(d)
			require.NoError(t, err)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(b, &body))
			assert.Equal(t, "Z Spot Trust", body["name"])
			assert.Equal(t, "Canada", body["region"])
			assert.Equal(t, true, body["digitalAssetIndicator"])
			assert.Equal(t, 2890.5, body["btcHoldings"])
		})
	}
}

func TestDetailUnknownSymbolDefaults(t *testing.T) {
	e := newTestEngine(&fakeMarket{})

	d := e.Detail(context.Background(), "QQQQ", false, nil)

	assert.Equal(t, "QQQQ", d.Name)
	assert.Equal(t, contracts.DefaultRegion, d.Region)
	assert.False(t, d.DigitalAssetIndicator)
	assert.Nil(t, d.BTCHoldings)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "btcHoldings")
}

func TestDetailPriorRowWins(t *testing.T) {
	m := &fakeMarket{
		holdings: map[string][]contracts.Holding{"ZZBT": {{Name: "Bitcoin", WeightPercentage: 40}}},
		infos:    map[string]*contracts.Info{"ZZBT": {Name: "Z Trust", CUSIP: contracts.ParseCUSIP("111111111")}},
	}
	e := newTestEngine(m)
	prior := &contracts.Record{
		Ticker:         "ZZBT",
		CryptoWeight:   99.5,
		CryptoExposure: "BTC",
		CUSIP:          contracts.ParseCUSIP("999999999"),
		SponsoredBy:    "Acme",
	}

	d := e.Detail(context.Background(), "ZZBT", false, prior)

	assert.Equal(t, 99.5, d.CryptoWeight)
	assert.Equal(t, "BTC", d.CryptoExposure)
	assert.Equal(t, "999999999", d.CUSIP.String())
	assert.Equal(t, "Acme", d.SponsoredBy)
}

func TestDetailPriorZeroWeightIsKept(t *testing.T) {
	m := &fakeMarket{holdings: map[string][]contracts.Holding{"QQQQ": {{Name: "Bitcoin", WeightPercentage: 40}}}}
	e := newTestEngine(m)

	d := e.Detail(context.Background(), "QQQQ", false, &contracts.Record{Ticker: "QQQQ"})

	assert.Equal(t, 0.0, d.CryptoWeight)
}

func TestDetailNoMarketData(t *testing.T) {
	e := newTestEngine(&fakeMarket{})

	d := e.Detail(context.Background(), "QQQQ", false, nil)

	assert.Equal(t, "QQQQ", d.Symbol)
	assert.Nil(t, d.Quote)
	assert.Equal(t, 0.0, d.CryptoWeight)
	assert.Equal(t, contracts.Unknown, d.CryptoExposure)
	assert.Equal(t, contracts.Unknown, d.CUSIP.String())
	assert.NotEmpty(t, d.Error)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"holdings":[]`)
	assert.Contains(t, string(b), `"quote":null`)
}

func TestDetailExtended(t *testing.T) {
	m := &fakeMarket{
		infos: map[string]*contracts.Info{"BITQ": {Name: "Bitwise Crypto Industry Innovators ETF"}},
		countries: map[string][]contracts.CountryWeight{
			"BITQ": {{Country: "United States", WeightPercentage: 80}},
		},
	}
	e := newTestEngine(m)

	d := e.Detail(context.Background(), "BITQ", true, nil)

	require.NotNil(t, d.Extended)
	assert.NotNil(t, d.Extended.Info)
	assert.Len(t, d.Extended.CountryWeightings, 1)
	assert.Len(t, d.Extended.SectorWeightings, 1)
	assert.Len(t, d.Extended.Chart, 1)
	assert.Equal(t, "BITQ headline", d.Extended.News[0].Title)
}

func TestDetailSurvivesBrokenSource(t *testing.T) {
	e := newTestEngine(nil)
	prior := &contracts.Record{Ticker: "BLOK", CryptoWeight: 22.2, CryptoExposure: "Blockchain equities"}

	d := e.Detail(context.Background(), "BLOK", true, prior)

	assert.NotEmpty(t, d.Error)
	assert.Equal(t, 22.2, d.CryptoWeight)
	assert.Equal(t, "03208U303", d.CUSIP.String())
	require.NotNil(t, d.Extended)
	assert.Empty(t, d.Holdings)
}

func TestFallbackDetailUsesKnowledge(t *testing.T) {
	e := newTestEngine(&fakeMarket{})

	d := e.FallbackDetail("fbtc", false, nil)

	assert.Equal(t, "FBTC", d.Symbol)
	assert.Equal(t, 99.5, d.CryptoWeight)
	assert.Equal(t, "BTC", d.CryptoExposure)
	assert.Equal(t, "31608A504", d.CUSIP.String())
	assert.Equal(t, "Fidelity Wise Origin Bitcoin Fund", d.Name)
	assert.Equal(t, "United States", d.Region)
	assert.True(t, d.DigitalAssetIndicator)
	assert.Nil(t, d.Extended)
}
