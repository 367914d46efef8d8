// Package paging retrieves complete result sets from the provider by following
// continuation tokens.
package paging

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"kaiko/internal/http"
	"kaiko/internal/metrics"
	"kaiko/pkg/core"
)

// TokenParam is the query parameter carrying the continuation token.
const TokenParam = "continuation_token"

const resultError = "error"

// page is the envelope shared by every provider endpoint.
type page struct {
	Result            string        `json:"result"`
	Message           string        `json:"message"`
	Data              []core.Record `json:"data"`
	ContinuationToken string        `json:"continuation_token"`
	NextURL           string        `json:"next_url"`
}

// Fetcher implements core.Fetcher over the HTTP client.
type Fetcher struct {
	client *http.Client
	logger zerolog.Logger
}

var _ core.Fetcher = (*Fetcher)(nil)

// New returns a fetcher issuing requests through client.
func New(client *http.Client, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger.With().Str("component", "paging").Logger(),
	}
}

// Fetch issues the first request with req.Query and, when pagination is enabled,
// keeps requesting with the returned continuation token until none is returned.
// Records are concatenated in page order. The returned Payload.Query is the query
// of the last request.
func (f *Fetcher) Fetch(ctx context.Context, req *core.FetchRequest) (*core.Payload, error) {
	query := req.Query.Clone()
	data := make([]core.Record, 0)
	seen := make(map[string]bool)
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, core.NewNetworkError(req.URL, err)
		}

		p, err := f.fetchPage(ctx, req, query)
		pages++
		if err != nil {
			return nil, err
		}
		data = append(data, p.Data...)

		f.logger.Debug().
			Str("endpoint", req.Endpoint).
			Int("page", pages).
			Int("records", len(p.Data)).
			Bool("has_next", p.ContinuationToken != "").
			Msg("page fetched")

		token := p.ContinuationToken
		if !req.Pagination || token == "" {
			break
		}
		if seen[token] {
			f.logger.Warn().
				Str("endpoint", req.Endpoint).
				Str("token", token).
				Msg("continuation token repeated, stopping")
			break
		}
		seen[token] = true

		query = query.Clone()
		query[TokenParam] = token
	}

	metrics.AddRecords(req.Endpoint, len(data))

	return &core.Payload{
		Data:  data,
		Query: query,
		Pages: pages,
	}, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, req *core.FetchRequest, query core.Params) (*page, error) {
	start := time.Now()
	resp, err := f.client.Get(ctx, req.URL,
		http.WithHeaders(req.Headers),
		http.WithQueryParams(query.StringMap()),
		http.WithTimeout(req.Timeout),
	)
	metrics.ObserveDuration(metrics.RequestDuration, start, req.Endpoint)

	if resp == nil || resp.RawResponse == nil {
		metrics.IncRequest(req.Endpoint, "error")
		if err == nil {
			err = core.ErrTransport
		}
		return nil, core.NewNetworkError(req.URL, err)
	}

	status := resp.StatusCode()
	metrics.IncRequest(req.Endpoint, strconv.Itoa(status))

	body := resp.Bytes()
	if status < 200 || status >= 300 {
		return nil, core.NewAPIError(req.URL, status, errorMessage(body, resp.Status()))
	}
	if err != nil {
		return nil, core.NewNetworkError(req.URL, err)
	}

	var p page
	if err := sonic.Unmarshal(body, &p); err != nil {
		apiErr := core.NewAPIError(req.URL, status, "decode response: "+err.Error())
		apiErr.Type = core.ErrorTypeServerError
		apiErr.Err = err
		return nil, apiErr.WithCode(core.ErrCodeDecode)
	}
	if strings.EqualFold(p.Result, resultError) {
		apiErr := core.NewAPIError(req.URL, status, p.Message)
		apiErr.Type = core.ErrorTypeBadRequest
		return nil, apiErr.WithCode(core.ErrCodeResultError)
	}
	return &p, nil
}

// errorMessage extracts the provider message from an error body, falling back to
// the raw body and then to the HTTP status line.
func errorMessage(body []byte, status string) string {
	var p page
	if err := sonic.Unmarshal(body, &p); err == nil && p.Message != "" {
		return p.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return status
}
