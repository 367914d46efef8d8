package core

import "fmt"

// Product identifies one of the market-data shapes served by the provider.
type Product int

// Product constants define the supported data products.
const (
	// ProductTrades is tick-by-tick trade data.
	ProductTrades Product = iota
	// ProductCandles is count/OHLCV/VWAP aggregations over fixed intervals.
	ProductCandles
	// ProductOrderBookSnapshots is full order-book snapshots with slippage and depth metrics.
	ProductOrderBookSnapshots
	// ProductOrderBookAggregations is order-book statistics averaged over an interval.
	ProductOrderBookAggregations
)

var productNames = [...]string{
	"trades",
	"candles",
	"order_book_snapshots",
	"order_book_aggregations",
}

// String returns the snake_case name of the product.
func (p Product) String() string {
	if p < 0 || int(p) >= len(productNames) {
		return fmt.Sprintf("product(%d)", int(p))
	}
	return productNames[p]
}

// Valid reports whether p is one of the defined products.
func (p Product) Valid() bool {
	return p >= 0 && int(p) < len(productNames)
}

// Products returns every supported product in declaration order.
func Products() []Product {
	return []Product{
		ProductTrades,
		ProductCandles,
		ProductOrderBookSnapshots,
		ProductOrderBookAggregations,
	}
}

// ParseProduct maps a product name back to its constant.
func ParseProduct(name string) (Product, error) {
	for i, n := range productNames {
		if n == name {
			return Product(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown product %q", ErrConfiguration, name)
}
