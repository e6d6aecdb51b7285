// Package knowledge holds the static, read-only reference tables used as the
// fallback of last resort: curated fund entries, CUSIP overrides, sponsored
// placements and the fixed ticker universe.
package knowledge

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

//go:embed knowledge.yaml
var embedded []byte

// Entry is the curated data for one ticker
type Entry struct {
	Name                  string          `yaml:"name" validate:"required"`
	CryptoWeight          float64         `yaml:"cryptoWeight" validate:"gte=0,lte=100"`
	CryptoExposure        string          `yaml:"cryptoExposure" validate:"required"`
	Region                string          `yaml:"region" validate:"required"`
	CUSIP                 contracts.CUSIP `yaml:"cusip"`
	DigitalAssetIndicator bool            `yaml:"digitalAssetIndicator"`
}

// Sponsor is display metadata for a paid placement
type Sponsor struct {
	SponsoredBy string `yaml:"sponsoredBy" validate:"required"`
	Badge       string `yaml:"badge"`
}

type document struct {
	Entries           map[string]Entry           `yaml:"entries" validate:"dive"`
	Overrides         map[string]contracts.CUSIP `yaml:"overrides"`
	Sponsored         map[string]Sponsor         `yaml:"sponsored" validate:"dive"`
	KnownTickers      []string                   `yaml:"knownTickers" validate:"min=1,dive,required"`
	CUSIPProbeSymbols []string                   `yaml:"cusipProbeSymbols" validate:"dive,required"`
}

// Base is an immutable view over the reference tables
// ⭐ SSOT: 정적 참조 데이터는 여기서만 로드
type Base struct {
	entries   map[string]Entry
	overrides map[string]contracts.CUSIP
	sponsored map[string]Sponsor
	known     []string
	probe     []string
}

var (
	defaultOnce sync.Once
	defaultBase *Base
)

// Default returns the tables compiled into the binary
func Default() *Base {
	defaultOnce.Do(func() {
		b, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("knowledge: embedded tables invalid: %v", err))
		}
		defaultBase = b
	})
	return defaultBase
}

// Parse loads tables from YAML, normalizing every ticker key
func Parse(data []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge tables: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid knowledge tables: %w", err)
	}

	b := &Base{
		entries:   make(map[string]Entry, len(doc.Entries)),
		overrides: make(map[string]contracts.CUSIP, len(doc.Overrides)),
		sponsored: make(map[string]Sponsor, len(doc.Sponsored)),
		known:     make([]string, 0, len(doc.KnownTickers)),
		probe:     make([]string, 0, len(doc.CUSIPProbeSymbols)),
	}
	for k, v := range doc.Entries {
		b.entries[contracts.NormalizeTicker(k)] = v
	}
	for k, v := range doc.Overrides {
		if v.Known() {
			b.overrides[contracts.NormalizeTicker(k)] = v
		}
	}
	for k, v := range doc.Sponsored {
		b.sponsored[contracts.NormalizeTicker(k)] = v
	}
	for _, t := range doc.KnownTickers {
		b.known = append(b.known, contracts.NormalizeTicker(t))
	}
	for _, t := range doc.CUSIPProbeSymbols {
		b.probe = append(b.probe, contracts.NormalizeTicker(t))
	}
	return b, nil
}

// Lookup returns the curated entry for ticker
func (b *Base) Lookup(ticker string) (Entry, bool) {
	e, ok := b.entries[contracts.NormalizeTicker(ticker)]
	return e, ok
}

// Override returns the static override CUSIP for ticker
func (b *Base) Override(ticker string) (contracts.CUSIP, bool) {
	c, ok := b.overrides[contracts.NormalizeTicker(ticker)]
	return c, ok
}

// Sponsor returns placement metadata for ticker
func (b *Base) Sponsor(ticker string) (Sponsor, bool) {
	s, ok := b.sponsored[contracts.NormalizeTicker(ticker)]
	return s, ok
}

// KnownTickers is the fixed universe appended to every search result
func (b *Base) KnownTickers() []string {
	return append([]string(nil), b.known...)
}

// CUSIPProbeSymbols are the symbols the CUSIP discovery command walks
func (b *Base) CUSIPProbeSymbols() []string {
	return append([]string(nil), b.probe...)
}

// Len is the number of curated entries
func (b *Base) Len() int {
	return len(b.entries)
}
