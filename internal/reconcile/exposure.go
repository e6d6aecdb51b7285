package reconcile

import (
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

// cryptoAssetIndicators mark a holding as crypto-related when found anywhere
// in its lowercased "name symbol" text
var cryptoAssetIndicators = []string{
	"bitcoin", "btc", "ethereum", "eth", "crypto",
	"coinbase", "coin", "grayscale", "microstrategy", "mstr",
	"block", "sq", "marathon", "riot", "cleanspark", "clsk",
	"bitfarms", "bitf", "hut", "hut8", "cipher", "cifr",
	"bitdeer", "btdr", "irm", "iris", "argo", "arqb",
}

// digitalAssetName flags a fund by its listing name alone
var digitalAssetName = regexp.MustCompile(`(?i)bitcoin|btc|crypto|eth|ethereum`)

// IsCryptoHolding reports whether a holding matches any crypto indicator
func IsCryptoHolding(h contracts.Holding) bool {
	name := h.Name
	if name == "" {
		name = h.Asset
	}
	text := strings.ToLower(name + " " + h.Symbol)
	return lo.ContainsBy(cryptoAssetIndicators, func(ind string) bool {
		return strings.Contains(text, ind)
	})
}

// CryptoWeightFromHoldings sums the weight of crypto-related holdings.
// Non-finite or negative weights count as 0, so the result is never negative.
func CryptoWeightFromHoldings(holdings []contracts.Holding) float64 {
	total := lo.Reduce(lo.Filter(holdings, func(h contracts.Holding, _ int) bool {
		return IsCryptoHolding(h)
	}), func(acc decimal.Decimal, h contracts.Holding, _ int) decimal.Decimal {
		if !(h.WeightPercentage > 0) || h.WeightPercentage > 1e12 {
			return acc
		}
		return acc.Add(decimal.NewFromFloat(h.WeightPercentage))
	}, decimal.Zero)
	return total.InexactFloat64()
}

// InferExposure labels a fund from its display name.
// Bitcoin and ethereum may both match; blockchain only counts alone.
func InferExposure(name string) string {
	n := strings.ToLower(name)
	var exposures []string
	if strings.Contains(n, "bitcoin") || strings.Contains(n, "btc") {
		exposures = append(exposures, contracts.ExposureBTC)
	}
	if strings.Contains(n, "ethereum") || strings.Contains(n, "eth") {
		exposures = append(exposures, contracts.ExposureETH)
	}
	if strings.Contains(n, "crypto") || strings.Contains(n, "digital asset") {
		exposures = append(exposures, contracts.ExposureVarious)
	}
	if strings.Contains(n, "blockchain") && len(exposures) == 0 {
		exposures = append(exposures, contracts.ExposureBlockchain)
	}
	if len(exposures) == 0 {
		return contracts.Unknown
	}
	return strings.Join(exposures, ", ")
}

// NameSuggestsDigitalAsset applies the listing-name regex
func NameSuggestsDigitalAsset(name string) bool {
	return digitalAssetName.MatchString(name)
}

// round2 rounds to two decimals
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// clampWeight rounds a percentage and keeps it finite within [0,100]
func clampWeight(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 100 {
		return 100
	}
	return round2(v)
}
