package kaiko

import (
	"context"
	"fmt"
	"slices"

	"kaiko/internal/metrics"
	"kaiko/internal/timestamp"
	"kaiko/pkg/core"
	"kaiko/pkg/table"
)

// DataRequest is a loaded query for one product on one exchange/instrument pair.
// It is immutable: accessors return copies.
type DataRequest struct {
	product  core.Product
	url      string
	required core.Params
	params   core.Params
	query    core.Params
	queryAPI core.Params
	frame    *table.Frame
	pages    int
	dropped  []string
	warning  *core.EmptyResultWarning
}

// NewDataRequest assembles the parameters of product, resolves the endpoint,
// fetches every page and formats the records. Relative time expressions are
// resolved once, against the option clock.
//
// Unknown argument names are dropped and reported by Dropped. An empty result is
// not an error; it is reported by Warning.
func NewDataRequest(ctx context.Context, client *Client, product core.Product, exchange, instrument string, opts ...Option) (*DataRequest, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: nil client", core.ErrConfiguration)
	}
	options := ApplyOptions(opts...)

	d, err := DescriptorFor(product)
	if err != nil {
		return nil, err
	}

	params := d.Defaults
	if options.Params != nil {
		params = options.Params
	}
	pathArgs, optional, dropped := d.Classify(params.Merge(options.Args))
	required := d.RequiredDefaults(exchange, instrument, options.InstrumentClass).Merge(pathArgs)

	optional, err = timestamp.NormalizeParams(optional, options.Now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", product, err)
	}

	path, err := ResolveURL(d.Template, required)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", product, err)
	}

	r := &DataRequest{
		product:  product,
		url:      joinURL(client.BaseURL(), path),
		required: required,
		params:   optional,
		query:    required.Merge(optional),
		dropped:  dropped,
	}

	logger := client.Logger().With().Str("product", product.String()).Logger()
	if len(dropped) > 0 {
		logger.Debug().Strs("dropped", dropped).Msg("ignoring parameters not accepted by the endpoint")
	}
	logger.Info().
		Str("url", r.url).
		Stringer("query", r.query).
		Msg("data request")

	pagination := client.Pagination()
	if options.Pagination != nil {
		pagination = *options.Pagination
	}
	req := core.NewFetchRequest(product.String(), r.url).
		SetQueryParams(optional).
		SetPagination(pagination)

	payload, err := client.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch: %w", product, err)
	}
	if payload == nil {
		payload = &core.Payload{}
	}
	r.pages = payload.Pages
	r.queryAPI = payload.Query.Clone()

	r.frame, err = d.Format(payload.Data)
	if err != nil {
		return nil, err
	}

	if payload.Len() == 0 {
		r.warning = &core.EmptyResultWarning{
			Product: product,
			URL:     r.url,
			Query:   r.query.Merge(payload.Query),
			Notice:  d.EmptyNotice,
		}
		metrics.IncEmptyResult(product.String())
		logger.Warn().
			Str("url", r.url).
			Stringer("query", r.warning.Query).
			Str("notice", d.EmptyNotice).
			Msg("no data was found for the time range selected")
	}

	return r, nil
}

// NewTrades loads tick-by-tick trades.
func NewTrades(ctx context.Context, client *Client, exchange, instrument string, opts ...Option) (*DataRequest, error) {
	return NewDataRequest(ctx, client, core.ProductTrades, exchange, instrument, opts...)
}

// NewCandles loads count/OHLCV/VWAP aggregations. Use WithInterval to pick the bar size.
func NewCandles(ctx context.Context, client *Client, exchange, instrument string, opts ...Option) (*DataRequest, error) {
	return NewDataRequest(ctx, client, core.ProductCandles, exchange, instrument, opts...)
}

// NewOrderBookSnapshots loads full order-book snapshots with derived price levels.
func NewOrderBookSnapshots(ctx context.Context, client *Client, exchange, instrument string, opts ...Option) (*DataRequest, error) {
	return NewDataRequest(ctx, client, core.ProductOrderBookSnapshots, exchange, instrument, opts...)
}

// NewOrderBookAggregations loads order-book statistics averaged over an interval.
func NewOrderBookAggregations(ctx context.Context, client *Client, exchange, instrument string, opts ...Option) (*DataRequest, error) {
	return NewDataRequest(ctx, client, core.ProductOrderBookAggregations, exchange, instrument, opts...)
}

// Product returns the data product this request loaded.
func (r *DataRequest) Product() core.Product {
	return r.product
}

// URL returns the resolved endpoint, without query string.
func (r *DataRequest) URL() string {
	return r.url
}

// Query returns the path and query parameters of the request.
func (r *DataRequest) Query() core.Params {
	return r.query.Clone()
}

// RequiredParams returns the path parameters used to resolve the URL.
func (r *DataRequest) RequiredParams() core.Params {
	return r.required.Clone()
}

// Params returns the query-string parameters, with times in wire layout.
func (r *DataRequest) Params() core.Params {
	return r.params.Clone()
}

// QueryAPI returns the query string sent with the last page request.
func (r *DataRequest) QueryAPI() core.Params {
	return r.queryAPI.Clone()
}

// Table returns a copy of the formatted records.
func (r *DataRequest) Table() *table.Frame {
	return r.frame.Clone()
}

// Len returns the number of rows loaded.
func (r *DataRequest) Len() int {
	return r.frame.Len()
}

// Pages returns the number of pages fetched.
func (r *DataRequest) Pages() int {
	return r.pages
}

// Dropped returns the argument names that were ignored.
func (r *DataRequest) Dropped() []string {
	return slices.Clone(r.dropped)
}

// Warning returns the empty-result warning, or nil when records were found.
func (r *DataRequest) Warning() *core.EmptyResultWarning {
	if r.warning == nil {
		return nil
	}
	w := *r.warning
	w.Query = r.warning.Query.Clone()
	return &w
}

// String renders a short summary of the request.
func (r *DataRequest) String() string {
	return fmt.Sprintf("kaiko.DataRequest{product: %s, url: %s, query: %s, rows: %d}",
		r.product, r.url, r.query, r.frame.Len())
}
