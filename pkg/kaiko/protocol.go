package kaiko

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"slices"

	"kaiko/pkg/core"
)

// DataVersion is the dataset version requested by default.
const DataVersion = "latest"

// Commodities served by the market-data endpoints.
const (
	CommodityTrades             = "trades"
	CommodityOrderBookSnapshots = "order_book_snapshots"
)

// Default page sizes per commodity.
const (
	DefaultTradesPageSize    = 100000
	DefaultOrderBookPageSize = 100
)

// Index columns of the provider records.
const (
	IndexTimestamp     = "timestamp"
	IndexPollTimestamp = "poll_timestamp"
)

// OrderBookNotice is attached to empty order-book results.
const OrderBookNotice = "order book data is only available for the past month, make sure the requested range is recent enough"

// RequiredParams are the URL path parameters, in template order.
var RequiredParams = []string{"commodity", "data_version", "exchange", "instrument_class", "instrument"}

const commonTemplate = "v1/data/{commodity}.{data_version}/exchanges/{exchange}/{instrument_class}/{instrument}"

var commonOptional = []string{"start_time", "end_time", "page_size", "continuation_token"}

// Descriptor is the static description of a product: where it lives and which
// parameters it accepts.
type Descriptor struct {
	Product   core.Product
	Template  string
	Commodity string
	// Required lists the path parameters in template order.
	Required []string
	// Optional is the whitelist of query parameters.
	Optional map[string]bool
	// Defaults are the optional parameters applied when the caller gives none.
	Defaults    core.Params
	IndexColumn string
	// PriceLevels enables synthesis of order-book price columns.
	PriceLevels bool
	// EmptyNotice is appended to empty-result warnings.
	EmptyNotice string
}

var descriptors = map[core.Product]*Descriptor{
	core.ProductTrades: {
		Product:     core.ProductTrades,
		Template:    commonTemplate + "/trades",
		Commodity:   CommodityTrades,
		Required:    RequiredParams,
		Optional:    whitelist(),
		Defaults:    core.Params{"page_size": DefaultTradesPageSize},
		IndexColumn: IndexTimestamp,
	},
	core.ProductCandles: {
		Product:     core.ProductCandles,
		Template:    commonTemplate + "/aggregations/count_ohlcv_vwap",
		Commodity:   CommodityTrades,
		Required:    RequiredParams,
		Optional:    whitelist("interval", "sort"),
		Defaults:    core.Params{"page_size": DefaultTradesPageSize},
		IndexColumn: IndexTimestamp,
	},
	core.ProductOrderBookSnapshots: {
		Product:     core.ProductOrderBookSnapshots,
		Template:    commonTemplate + "/snapshots/full",
		Commodity:   CommodityOrderBookSnapshots,
		Required:    RequiredParams,
		Optional:    whitelist("slippage", "slippage_ref", "orders", "limit_orders"),
		Defaults:    core.Params{"page_size": DefaultOrderBookPageSize},
		IndexColumn: IndexPollTimestamp,
		PriceLevels: true,
		EmptyNotice: OrderBookNotice,
	},
	core.ProductOrderBookAggregations: {
		Product:     core.ProductOrderBookAggregations,
		Template:    commonTemplate + "/ob_aggregations/full",
		Commodity:   CommodityOrderBookSnapshots,
		Required:    RequiredParams,
		Optional:    whitelist("slippage", "slippage_ref", "interval"),
		Defaults:    core.Params{"page_size": DefaultOrderBookPageSize},
		IndexColumn: IndexPollTimestamp,
		PriceLevels: true,
		EmptyNotice: OrderBookNotice,
	},
}

func whitelist(extra ...string) map[string]bool {
	out := make(map[string]bool, len(commonOptional)+len(extra))
	for _, name := range commonOptional {
		out[name] = true
	}
	for _, name := range extra {
		out[name] = true
	}
	return out
}

// DescriptorFor returns a copy of the descriptor of p.
func DescriptorFor(p core.Product) (*Descriptor, error) {
	d, ok := descriptors[p]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported product %s", core.ErrConfiguration, p)
	}
	return &Descriptor{
		Product:     d.Product,
		Template:    d.Template,
		Commodity:   d.Commodity,
		Required:    slices.Clone(d.Required),
		Optional:    maps.Clone(d.Optional),
		Defaults:    d.Defaults.Clone(),
		IndexColumn: d.IndexColumn,
		PriceLevels: d.PriceLevels,
		EmptyNotice: d.EmptyNotice,
	}, nil
}

// OptionalNames returns the query whitelist sorted by name.
func (d *Descriptor) OptionalNames() []string {
	return slices.Sorted(maps.Keys(d.Optional))
}

// IsRequired reports whether name is a path parameter.
func (d *Descriptor) IsRequired(name string) bool {
	return slices.Contains(d.Required, name)
}

// Classify routes args to the required set, the optional set, or the dropped list.
// Dropped names are returned sorted.
func (d *Descriptor) Classify(args core.Params) (required, optional core.Params, dropped []string) {
	required = make(core.Params)
	optional = make(core.Params)
	for _, name := range args.Keys() {
		switch {
		case d.IsRequired(name):
			required[name] = args[name]
		case d.Optional[name]:
			optional[name] = args[name]
		default:
			dropped = append(dropped, name)
		}
	}
	return required, optional, dropped
}

// RequiredDefaults returns the path parameters for exchange and instrument with the
// descriptor's commodity, the latest data version and the given instrument class.
func (d *Descriptor) RequiredDefaults(exchange, instrument string, class core.InstrumentClass) core.Params {
	return core.Params{
		"commodity":        d.Commodity,
		"data_version":     DataVersion,
		"exchange":         exchange,
		"instrument_class": class.String(),
		"instrument":       instrument,
	}
}

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// ResolveURL substitutes every {name} placeholder of template with the path-escaped
// value from required. An absent, nil or empty value yields a MissingParameterError.
func ResolveURL(template string, required core.Params) (string, error) {
	var missing error
	resolved := placeholder.ReplaceAllStringFunc(template, func(m string) string {
		if missing != nil {
			return m
		}
		name := m[1 : len(m)-1]
		value := core.FormatValue(required[name])
		if value == "" {
			missing = &core.MissingParameterError{Name: name, Template: template}
			return m
		}
		return url.PathEscape(value)
	})
	if missing != nil {
		return "", missing
	}
	return resolved, nil
}
