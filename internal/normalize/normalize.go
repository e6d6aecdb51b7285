// Package normalize coerces loosely-shaped market-data JSON into canonical values.
// Nothing in this package returns an error: malformed input degrades to "" or 0.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/wonny/cryptoetf/backend/internal/contracts"
)

// WrapperPaths are the object keys an upstream may wrap an array under, in lookup order
var WrapperPaths = []string{
	"$.data",
	"$.holdings",
	"$.countryWeightings",
	"$.sectorWeightings",
}

// Decode parses raw JSON into a generic value; invalid JSON yields nil
func Decode(raw []byte) interface{} {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// ExtractArray returns the objects of payload when it is a bare array or an
// object wrapping one under a known key. Any other shape yields an empty slice.
func ExtractArray(payload interface{}) []map[string]interface{} {
	if arr, ok := payload.([]interface{}); ok {
		return objects(arr)
	}
	if _, ok := payload.(map[string]interface{}); !ok {
		return []map[string]interface{}{}
	}
	for _, path := range WrapperPaths {
		v, err := jsonpath.Get(path, payload)
		if err != nil {
			continue
		}
		if arr, ok := v.([]interface{}); ok {
			return objects(arr)
		}
	}
	return []map[string]interface{}{}
}

func objects(arr []interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

// ParsePercent accepts a number, a numeric string or a "%"-suffixed string.
// Unparseable input returns NaN, which callers must treat as unknown.
func ParsePercent(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
		if s == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// NormalizeWeight maps a raw weight onto the 0-100 percent scale.
// Fractions in (0,1] are scaled by 100; NaN, infinities and negatives become 0.
func NormalizeWeight(raw interface{}) float64 {
	w := ParsePercent(raw)
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	if w > 0 && w <= 1 {
		return w * 100
	}
	return w
}

// String returns the first non-empty string (or number rendered as string) among keys
func String(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Number returns the first finite numeric value among keys, or 0
func Number(m map[string]interface{}, keys ...string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if f := ParsePercent(v); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

// Bool returns m[key] when it is a JSON boolean
func Bool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// weightKeys are the alternate names upstreams use for a percentage weight
var weightKeys = []string{"weightPercentage", "pctVal", "weight"}

// fractionSumLimit is the largest total a payload of bare fractions can reach,
// with room for rounding drift in upstream data
const fractionSumLimit = 1.0001

// rawWeight is one row's weight before the payload-wide scale is known
type rawWeight struct {
	value   float64
	percent bool // written with an explicit "%" suffix
}

func readWeight(m map[string]interface{}) rawWeight {
	for _, k := range weightKeys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		w := ParsePercent(v)
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return rawWeight{}
		}
		s, isString := v.(string)
		return rawWeight{value: w, percent: isString && strings.HasSuffix(strings.TrimSpace(s), "%")}
	}
	return rawWeight{}
}

// percentScale is 100 when the whole payload is written as fractions of 1,
// otherwise 1. Weights are already percent unless every row is a bare fraction.
func percentScale(weights []rawWeight) float64 {
	sum := 0.0
	for _, w := range weights {
		if w.percent {
			return 1
		}
		sum += w.value
	}
	if sum > 0 && sum <= fractionSumLimit {
		return 100
	}
	return 1
}

func scaledWeights(rows []map[string]interface{}) []float64 {
	raw := make([]rawWeight, len(rows))
	for i, r := range rows {
		raw[i] = readWeight(r)
	}
	scale := percentScale(raw)
	out := make([]float64, len(raw))
	for i, w := range raw {
		out[i] = w.value * scale
	}
	return out
}

// MapHolding builds a Holding from any of the known field spellings.
// The weight is taken as written; MapHoldings decides the scale for a whole payload.
func MapHolding(raw map[string]interface{}) contracts.Holding {
	return contracts.Holding{
		Asset:            String(raw, "asset", "title", "name"),
		Name:             String(raw, "name", "title", "asset"),
		Symbol:           String(raw, "symbol"),
		WeightPercentage: readWeight(raw).value,
	}
}

// MapHoldings maps every element of ExtractArray(payload)
func MapHoldings(payload interface{}) []contracts.Holding {
	rows := ExtractArray(payload)
	weights := scaledWeights(rows)
	out := make([]contracts.Holding, 0, len(rows))
	for i, r := range rows {
		h := MapHolding(r)
		h.WeightPercentage = weights[i]
		out = append(out, h)
	}
	return out
}

// MapCountryWeights normalizes a country-weighting payload
func MapCountryWeights(payload interface{}) []contracts.CountryWeight {
	rows := ExtractArray(payload)
	weights := scaledWeights(rows)
	out := make([]contracts.CountryWeight, 0, len(rows))
	for i, r := range rows {
		out = append(out, contracts.CountryWeight{
			Country:          String(r, "country", "name"),
			WeightPercentage: weights[i],
		})
	}
	return out
}

// MapSectorWeights normalizes a sector-weighting payload
func MapSectorWeights(payload interface{}) []contracts.SectorWeight {
	rows := ExtractArray(payload)
	weights := scaledWeights(rows)
	out := make([]contracts.SectorWeight, 0, len(rows))
	for i, r := range rows {
		out = append(out, contracts.SectorWeight{
			Sector:           String(r, "sector", "name"),
			WeightPercentage: weights[i],
		})
	}
	return out
}
