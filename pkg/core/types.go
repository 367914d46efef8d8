package core

import "context"

// Record is one raw provider row as decoded from JSON.
type Record map[string]any

// Payload is the concatenation of every page returned for a FetchRequest.
type Payload struct {
	// Data holds the records of all pages, in page order then in-page order.
	Data []Record `json:"data"`
	// Query is the exact query string sent with the last page request.
	Query Params `json:"query"`
	// Pages is the number of HTTP requests issued.
	Pages int `json:"pages"`
}

// Len returns the number of records.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// Fetcher retrieves a full, possibly paginated, result set.
// Implementations own transport concerns such as timeouts and retries.
type Fetcher interface {
	Fetch(ctx context.Context, req *FetchRequest) (*Payload, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, req *FetchRequest) (*Payload, error)

// Fetch calls f(ctx, req).
func (f FetcherFunc) Fetch(ctx context.Context, req *FetchRequest) (*Payload, error) {
	return f(ctx, req)
}
