package core

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Params holds request parameters keyed by their wire name.
type Params map[string]any

// Clone returns a shallow copy of p. A nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Keys returns the parameter names in lexical order.
func (p Params) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Has reports whether name is present.
func (p Params) Has(name string) bool {
	_, ok := p[name]
	return ok
}

// Merge returns a new map holding p overlaid with every entry of others, in order.
func (p Params) Merge(others ...Params) Params {
	out := p.Clone()
	for _, o := range others {
		maps.Copy(out, o)
	}
	return out
}

// StringMap renders every value with FormatValue.
func (p Params) StringMap() map[string]string {
	result := make(map[string]string, len(p))
	for k, v := range p {
		result[k] = FormatValue(v)
	}
	return result
}

// String renders the parameters sorted by name, e.g. "{end_time: x, exchange: cbse}".
func (p Params) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(FormatValue(p[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// FormatValue renders a parameter value the way it is sent on the wire.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FetchRequest describes one logical GET against the provider, possibly spanning pages.
type FetchRequest struct {
	// URL is the fully resolved endpoint.
	URL string `json:"url"`
	// Query is sent as the query string of the first page.
	Query Params `json:"query,omitempty"`
	// Headers are added to every page request.
	Headers map[string]string `json:"headers,omitempty"`
	// Pagination enables following continuation tokens.
	Pagination bool `json:"pagination"`
	// Endpoint labels logs and metrics, e.g. "candles" or "instruments".
	Endpoint string `json:"endpoint"`
	// Timeout overrides the client timeout for each page when positive.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// NewFetchRequest returns a paginated request for url.
func NewFetchRequest(endpoint, url string) *FetchRequest {
	return &FetchRequest{
		URL:        url,
		Query:      make(Params),
		Headers:    make(map[string]string),
		Pagination: true,
		Endpoint:   endpoint,
	}
}

func (r *FetchRequest) SetQuery(key string, value any) *FetchRequest {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

func (r *FetchRequest) SetQueryParams(params Params) *FetchRequest {
	if r.Query == nil {
		r.Query = make(Params)
	}
	maps.Copy(r.Query, params)
	return r
}

func (r *FetchRequest) SetHeader(key, value string) *FetchRequest {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *FetchRequest) SetHeaders(headers map[string]string) *FetchRequest {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	maps.Copy(r.Headers, headers)
	return r
}

func (r *FetchRequest) SetPagination(enabled bool) *FetchRequest {
	r.Pagination = enabled
	return r
}
