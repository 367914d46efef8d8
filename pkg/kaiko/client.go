package kaiko

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"kaiko/internal/apikey"
	httpClient "kaiko/internal/http"
	"kaiko/internal/paging"
	"kaiko/pkg/core"
)

// HeaderAPIKey carries the API key on every request.
const HeaderAPIKey = "X-Api-Key"

// Client holds the connection settings shared by data requests: base URL, API key
// and request headers. It is safe for concurrent use.
type Client struct {
	mu      sync.RWMutex
	config  *core.Config
	keys    *apikey.Holder
	headers map[string]string
	http    *httpClient.Client
	fetcher core.Fetcher
	logger  zerolog.Logger
	closed  bool
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*ClientOptions)

// ClientOptions holds configuration options for the Client.
type ClientOptions struct {
	Logger    zerolog.Logger
	Fetcher   core.Fetcher
	KeyLookup apikey.LookupFunc
}

// WithLogger returns an option that sets the logger for the client and its requests.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(o *ClientOptions) {
		o.Logger = l
	}
}

// WithFetcher replaces the HTTP paged fetcher, e.g. with a recorded one.
func WithFetcher(f core.Fetcher) ClientOption {
	return func(o *ClientOptions) {
		o.Fetcher = f
	}
}

// WithKeyLookup replaces the environment lookup used to find the API key.
func WithKeyLookup(lookup apikey.LookupFunc) ClientOption {
	return func(o *ClientOptions) {
		o.KeyLookup = lookup
	}
}

// NewClient creates a client from config. A nil config means DefaultConfig.
// When config.LogLevel is set it becomes the global zerolog level.
func NewClient(config *core.Config, opts ...ClientOption) (*Client, error) {
	if config == nil {
		config = core.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	options := &ClientOptions{
		Logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if config.LogLevel != "" {
		level, err := zerolog.ParseLevel(config.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: log level: %w", core.ErrConfiguration, err)
		}
		zerolog.SetGlobalLevel(level)
	}

	cfg := *config
	c := &Client{
		config: &cfg,
		keys:   apikey.New(cfg.APIKey, cfg.APIKeyEnv),
		logger: options.Logger,
	}
	if options.KeyLookup != nil {
		c.keys.WithLookup(options.KeyLookup)
	}

	c.fetcher = options.Fetcher
	if c.fetcher == nil {
		hc, err := httpClient.NewClient(httpClient.FromCoreConfig(&cfg, options.Logger))
		if err != nil {
			return nil, fmt.Errorf("create http client: %w", err)
		}
		c.http = hc
		c.fetcher = paging.New(hc, options.Logger)
	}
	c.headers = c.buildHeaders()

	return c, nil
}

func (c *Client) buildHeaders() map[string]string {
	headers := map[string]string{
		"Accept":          "application/json",
		"Accept-Encoding": "gzip",
	}
	if key := c.keys.Key(); key != "" {
		headers[HeaderAPIKey] = key
	}
	return headers
}

// Config returns a copy of the client configuration.
func (c *Client) Config() core.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return *c.config
}

// BaseURL returns the market-data base URL.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.URL()
}

// ReferenceDataURL returns the catalog base URL.
func (c *Client) ReferenceDataURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.ReferenceDataURL
}

// APIKey returns the effective key: the explicit input, or the environment value.
func (c *Client) APIKey() string {
	return c.keys.Key()
}

// APIKeyInput returns the explicit key, possibly empty.
func (c *Client) APIKeyInput() string {
	return c.keys.Input()
}

// SetAPIKeyInput replaces the explicit key and recomputes the request headers.
func (c *Client) SetAPIKeyInput(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys.SetInput(key)
	c.headers = c.buildHeaders()
}

// Headers returns a copy of the headers sent with every request.
func (c *Client) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.headers)
}

// Pagination reports whether requests follow continuation tokens by default.
func (c *Client) Pagination() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config.Pagination
}

// Logger returns the client logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// String renders the client with the API key masked.
func (c *Client) String() string {
	return fmt.Sprintf("kaiko.Client{base_url: %s, api_key: %s}", c.BaseURL(), c.keys)
}

// Fetch runs req through the client's fetcher with the client headers and timeout.
func (c *Client) Fetch(ctx context.Context, req *core.FetchRequest) (*core.Payload, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, core.ErrClientClosed
	}
	headers := maps.Clone(c.headers)
	timeout := c.config.Timeout
	fetcher := c.fetcher
	c.mu.RUnlock()

	out := *req
	out.Query = req.Query.Clone()
	out.Headers = headers
	maps.Copy(out.Headers, req.Headers)
	if out.Timeout <= 0 {
		out.Timeout = timeout
	}
	return fetcher.Fetch(ctx, &out)
}

// Close releases the underlying HTTP client. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.http != nil {
		return c.http.Close()
	}
	return nil
}

// joinURL appends path to base with exactly one slash between them.
func joinURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
