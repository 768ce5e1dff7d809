package shopee

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// PriceDivisor converts raw API prices (integer micro-units) to currency units.
const PriceDivisor = 100000

var priceScale = decimal.NewFromInt(PriceDivisor)

const unknownName = "Unknown"

// rawItem is the subset of the item payload shared by the JSON endpoints.
// Fields stay raw so that type drift degrades to zero values instead of a
// decode failure.
type rawItem struct {
	Name  json.RawMessage `json:"name"`
	Stock json.RawMessage `json:"stock"`
	Price json.RawMessage `json:"price"`
}

func (r *rawItem) snapshot() domain.Snapshot {
	return domain.NewSnapshot(parseName(r.Name), ParseStock(r.Stock), ParsePrice(r.Price))
}

// ParsePrice converts a raw micro-unit price to canonical units
// (raw / 100000). Absent, null, non-numeric, zero and negative values all
// yield zero.
func ParsePrice(raw json.RawMessage) decimal.Decimal {
	d, ok := parseDecimal(raw)
	if !ok || !d.IsPositive() {
		return decimal.Zero
	}
	return d.Div(priceScale)
}

// ParseStock converts a raw stock value to a non-negative count. Absent,
// null and non-numeric values yield zero; fractions are truncated.
func ParseStock(raw json.RawMessage) int64 {
	s, ok := scalarText(raw)
	if !ok {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(f)
}

func parseName(raw json.RawMessage) string {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return unknownName
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return unknownName
	}
	return name
}

func parseDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	s, ok := scalarText(raw)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// scalarText returns the text of a JSON number or string. Objects, arrays,
// booleans and null are rejected.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), true
	default:
		return "", false
	}
}
