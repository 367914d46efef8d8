package kaiko

import (
	"fmt"
	"math"
	"regexp"

	"github.com/cockroachdb/apd/v3"

	"kaiko/internal/timestamp"
	"kaiko/pkg/core"
	"kaiko/pkg/table"
)

// MidPriceColumn is the reference price of order-book metrics.
const MidPriceColumn = "mid_price"

// volumeColumn matches depth columns such as bid_volume_0_5, ask_volume1 or bid_volume0_1.
// Groups: side, suffix, integral part, fractional part.
var volumeColumn = regexp.MustCompile(`^(bid|ask)_volume(_?(\d{1,2})(?:_(\d{1,2}))?)$`)

var decimalContext = apd.BaseContext.WithPrecision(34)

// Format converts raw records into a frame indexed by the descriptor's index column.
// Order-book products get derived price columns.
func (d *Descriptor) Format(records []core.Record) (*table.Frame, error) {
	frame, err := table.FromRecords(records, d.IndexColumn, timestamp.FromEpochMillis)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", d.Product, err)
	}
	if d.PriceLevels {
		if err := AddPriceLevels(frame); err != nil {
			return nil, fmt.Errorf("format %s: %w", d.Product, err)
		}
	}
	return frame, nil
}

// priceLevel is a depth column and the price column derived from it.
type priceLevel struct {
	volume string
	price  string
	bid    bool
	// percent is the distance from the mid price, e.g. 0.5 for 0.5%.
	percent *apd.Decimal
}

// parseVolumeColumn recognizes a depth column name. ok is false for any other column.
func parseVolumeColumn(name string) (priceLevel, bool) {
	m := volumeColumn.FindStringSubmatch(name)
	if m == nil {
		return priceLevel{}, false
	}
	literal := m[3]
	if m[4] != "" {
		literal += "." + m[4]
	}
	percent, _, err := apd.NewFromString(literal)
	if err != nil {
		return priceLevel{}, false
	}
	return priceLevel{
		volume:  name,
		price:   m[1] + "_price" + m[2],
		bid:     m[1] == "bid",
		percent: percent,
	}, true
}

// factor returns 1 - percent/100 for bids and 1 + percent/100 for asks.
func (l priceLevel) factor() (*apd.Decimal, error) {
	ratio := new(apd.Decimal)
	if _, err := decimalContext.Quo(ratio, l.percent, apd.New(100, 0)); err != nil {
		return nil, err
	}
	out := new(apd.Decimal)
	var err error
	if l.bid {
		_, err = decimalContext.Sub(out, apd.New(1, 0), ratio)
	} else {
		_, err = decimalContext.Add(out, apd.New(1, 0), ratio)
	}
	return out, err
}

// AddPriceLevels adds a {side}_price{suffix} column for every {side}_volume{suffix}
// column, priced at mid_price shifted by the level percentage. An empty frame is
// left untouched.
func AddPriceLevels(f *table.Frame) error {
	if f.Empty() {
		return nil
	}

	var levels []priceLevel
	for _, name := range f.Columns() {
		if l, ok := parseVolumeColumn(name); ok {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return nil
	}

	mids, ok := f.Float(MidPriceColumn)
	if !ok {
		return fmt.Errorf("price levels: %d volume columns but no numeric %s column", len(levels), MidPriceColumn)
	}

	for _, l := range levels {
		factor, err := l.factor()
		if err != nil {
			return fmt.Errorf("price levels: %s: %w", l.volume, err)
		}
		prices := make([]float64, len(mids))
		for i, mid := range mids {
			prices[i], err = shift(mid, factor)
			if err != nil {
				return fmt.Errorf("price levels: %s row %d: %w", l.volume, i, err)
			}
		}
		if err := f.AddFloat(l.price, prices); err != nil {
			return err
		}
	}
	return nil
}

func shift(mid float64, factor *apd.Decimal) (float64, error) {
	if math.IsNaN(mid) || math.IsInf(mid, 0) {
		return math.NaN(), nil
	}
	m := new(apd.Decimal)
	if _, err := m.SetFloat64(mid); err != nil {
		return 0, err
	}
	price := new(apd.Decimal)
	if _, err := decimalContext.Mul(price, m, factor); err != nil {
		return 0, err
	}
	return price.Float64()
}
