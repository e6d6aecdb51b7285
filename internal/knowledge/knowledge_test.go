package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTables(t *testing.T) {
	kb := Default()
	require.NotNil(t, kb)
	assert.Equal(t, 20, kb.Len())
	assert.Len(t, kb.KnownTickers(), 20)
	assert.Len(t, kb.CUSIPProbeSymbols(), 54)

	for _, ticker := range kb.KnownTickers() {
		_, ok := kb.Lookup(ticker)
		assert.True(t, ok, "known ticker %s has no entry", ticker)
	}
}

func TestLookup(t *testing.T) {
	kb := Default()

	tests := []struct {
		ticker   string
		name     string
		weight   float64
		exposure string
		region   string
		cusip    string
	}{
		{"IBIT", "iShares Bitcoin Trust", 99.5, "BTC", "United States", "46438F101"},
		{"bito", "ProShares Bitcoin Strategy ETF", 95, "BTC (futures)", "United States", "74322R309"},
		{"BLOK", "Amplify Transformational Data Sharing ETF", 25, "Blockchain equities", "United States", "03208U303"},
		{"GBTC", "Grayscale Bitcoin Trust", 99.5, "BTC", "United States", "389375104"},
		{"BTCC", "Purpose Bitcoin ETF", 99.5, "BTC", "Canada", "—"},
		{"DEFI", "Simplify Definity Digital Economy ETF", 30, "BTC, ETH, Various", "United States", "—"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			e, ok := kb.Lookup(tt.ticker)
			require.True(t, ok)
			assert.Equal(t, tt.name, e.Name)
			assert.Equal(t, tt.weight, e.CryptoWeight)
			assert.Equal(t, tt.exposure, e.CryptoExposure)
			assert.Equal(t, tt.region, e.Region)
			assert.Equal(t, tt.cusip, e.CUSIP.String())
			assert.True(t, e.DigitalAssetIndicator)
		})
	}

	_, ok := kb.Lookup("SPY")
	assert.False(t, ok)
}

func TestOverrides(t *testing.T) {
	kb := Default()

	c, ok := kb.Override("arkb")
	require.True(t, ok)
	assert.Equal(t, "040919102", c.String())

	c, ok = kb.Override("BTC")
	require.True(t, ok)
	assert.Equal(t, "389930207", c.String())

	_, ok = kb.Override("DEFI")
	assert.False(t, ok)
}

func TestSponsoredEmptyByDefault(t *testing.T) {
	_, ok := Default().Sponsor("IBIT")
	assert.False(t, ok)
}

func TestKnownTickersIsACopy(t *testing.T) {
	kb := Default()
	list := kb.KnownTickers()
	list[0] = "MUTATED"
	assert.Equal(t, "IBIT", kb.KnownTickers()[0])
}

func TestParse(t *testing.T) {
	doc := []byte(`
entries:
  abcd: { name: Test Fund, cryptoWeight: 12, cryptoExposure: ETH, region: Canada, cusip: "—", digitalAssetIndicator: false }
overrides:
  abcd: 12345A678
  bad: "12"
sponsored:
  abcd: { sponsoredBy: Issuer, badge: Featured }
knownTickers: [abcd]
cusipProbeSymbols: []
`)
	kb, err := Parse(doc)
	require.NoError(t, err)

	e, ok := kb.Lookup("ABCD")
	require.True(t, ok)
	assert.False(t, e.CUSIP.Known())

	c, ok := kb.Override("ABCD")
	require.True(t, ok)
	assert.Equal(t, "12345A678", c.String())

	_, ok = kb.Override("BAD")
	assert.False(t, ok, "malformed override must be dropped")

	s, ok := kb.Sponsor("abcd")
	require.True(t, ok)
	assert.Equal(t, "Issuer", s.SponsoredBy)
	assert.Equal(t, []string{"ABCD"}, kb.KnownTickers())
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"weight out of range": `
entries:
  X: { name: X, cryptoWeight: 140, cryptoExposure: BTC, region: US }
knownTickers: [X]`,
		"missing name": `
entries:
  X: { cryptoWeight: 1, cryptoExposure: BTC, region: US }
knownTickers: [X]`,
		"no known tickers": `
entries: {}
knownTickers: []`,
		"not yaml": `entries: [`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
