package kaiko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaiko/pkg/core"
)

var fixedNow = time.Date(2020, 8, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := core.DefaultConfig().
		WithBaseURL(server.URL).
		WithAPIKey("test-api-key").
		WithRetry(0, 0, 0)
	config.ReferenceDataURL = server.URL + "/reference/v1/"

	client, err := NewClient(config, WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func recordingClient(t *testing.T, payload *core.Payload) (*Client, *[]*core.FetchRequest) {
	t.Helper()
	var calls []*core.FetchRequest
	fetcher := core.FetcherFunc(func(_ context.Context, req *core.FetchRequest) (*core.Payload, error) {
		calls = append(calls, req)
		out := *payload
		if out.Query == nil {
			out.Query = req.Query.Clone()
		}
		return &out, nil
	})
	client, err := NewClient(core.DefaultConfig().WithAPIKey("k"), WithFetcher(fetcher))
	require.NoError(t, err)
	return client, &calls
}

func TestNewCandles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/data/trades.latest/exchanges/cbse/spot/eth-usd/aggregations/count_ohlcv_vwap", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2020-08-06T00:00:00.000Z", q.Get("start_time"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "100000", q.Get("page_size"))
		assert.False(t, q.Has("exchange"), "path parameters must not be sent as query")
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":"success","data":[
			{"timestamp":1596672000000,"open":"391.2","high":"400.1","low":"380.0","close":"395.0","volume":"1000.5","count":42},
			{"timestamp":1596758400000,"open":"395.0","high":"401.0","low":"390.0","close":"398.3","volume":"900","count":40}
		]}`)
	})

	req, err := NewCandles(context.Background(), client, "cbse", "eth-usd",
		WithStartTime("2020-08-06"),
		WithInterval("1d"),
	)
	require.NoError(t, err)

	assert.Equal(t, core.ProductCandles, req.Product())
	assert.Equal(t, client.BaseURL()+"/v1/data/trades.latest/exchanges/cbse/spot/eth-usd/aggregations/count_ohlcv_vwap", req.URL())
	assert.Nil(t, req.Warning())
	assert.Equal(t, 1, req.Pages())

	frame := req.Table()
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, IndexTimestamp, frame.IndexName())
	assert.Equal(t, time.Date(2020, 8, 6, 0, 0, 0, 0, time.UTC), frame.Index()[0])
	assert.Equal(t, time.Date(2020, 8, 7, 0, 0, 0, 0, time.UTC), frame.Index()[1])

	closes, ok := frame.Float("close")
	require.True(t, ok)
	assert.Equal(t, []float64{395.0, 398.3}, closes)

	query := req.Query()
	assert.Equal(t, "cbse", query["exchange"])
	assert.Equal(t, "trades", query["commodity"])
	assert.Equal(t, "latest", query["data_version"])
	assert.Equal(t, "spot", query["instrument_class"])
	assert.Equal(t, "eth-usd", query["instrument"])
	assert.Equal(t, "1d", query["interval"])
	assert.Equal(t, "2020-08-06T00:00:00.000Z", query["start_time"])
}

func TestNewOrderBookSnapshots_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/data/order_book_snapshots.latest/exchanges/cbse/spot/btc-usd/snapshots/full", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		fmt.Fprint(w, `{"result":"success","data":[]}`)
	})

	req, err := NewOrderBookSnapshots(context.Background(), client, "cbse", "btc-usd",
		WithTimeRange("2019-01-01", "2019-01-02"),
	)
	require.NoError(t, err)

	assert.True(t, req.Table().Empty())
	assert.Equal(t, 0, req.Len())

	warning := req.Warning()
	require.NotNil(t, warning)
	assert.Equal(t, core.ProductOrderBookSnapshots, warning.Product)
	assert.Equal(t, OrderBookNotice, warning.Notice)
	assert.Equal(t, "2019-01-01T00:00:00.000Z", warning.Query["start_time"])
	assert.Equal(t, "2019-01-02T00:00:00.000Z", warning.Query["end_time"])
	assert.Equal(t, req.Query(), warning.Query)
	assert.Contains(t, warning.Error(), "start_time: 2019-01-01T00:00:00.000Z")
	assert.Contains(t, warning.Error(), "exchange: cbse")
	assert.Contains(t, warning.Error(), "instrument: btc-usd")
	assert.Contains(t, warning.Error(), "commodity: order_book_snapshots")
	assert.Contains(t, warning.Error(), "/exchanges/cbse/spot/btc-usd/snapshots/full")
	assert.Contains(t, warning.Error(), "past month")
}

func TestNewOrderBookSnapshots_PriceLevels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":"success","data":[
			{"poll_timestamp":1596672000000,"mid_price":"100","bid_volume0_1":"5","ask_volume0_1":"6","bid_volume1":"7","ask_volume1":"8"}
		]}`)
	})

	req, err := NewOrderBookSnapshots(context.Background(), client, "cbse", "btc-usd")
	require.NoError(t, err)

	frame := req.Table()
	tests := []struct {
		column string
		want   float64
	}{
		{"bid_price0_1", 99.9},
		{"ask_price0_1", 100.1},
		{"bid_price1", 99},
		{"ask_price1", 101},
	}
	for _, tt := range tests {
		values, ok := frame.Float(tt.column)
		require.True(t, ok, tt.column)
		assert.InDelta(t, tt.want, values[0], 1e-9, tt.column)
	}
	assert.Equal(t, IndexPollTimestamp, frame.IndexName())
}

func TestNewDataRequest_Pagination(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("continuation_token") == "" {
			fmt.Fprint(w, `{"result":"success","data":[{"timestamp":1000,"price":"1"}],"continuation_token":"next"}`)
			return
		}
		fmt.Fprint(w, `{"result":"success","data":[{"timestamp":2000,"price":"2"}]}`)
	})

	req, err := NewTrades(context.Background(), client, "krkn", "btc-usd")
	require.NoError(t, err)
	assert.Equal(t, 2, req.Pages())
	assert.Equal(t, 2, req.Len())
	assert.Equal(t, "next", req.QueryAPI()["continuation_token"])
	assert.NotContains(t, req.Query(), "continuation_token")

	calls.Store(0)
	req, err = NewTrades(context.Background(), client, "krkn", "btc-usd", WithPagination(false))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, req.Len())
}

func TestNewDataRequest_DropsUnknownArgs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("foo"))
		fmt.Fprint(w, `{"result":"success","data":[{"timestamp":1000,"open":"1"}]}`)
	})

	req, err := NewCandles(context.Background(), client, "cbse", "eth-usd",
		WithArg("foo", "bar"),
		WithArg("slippage", 5),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"foo", "slippage"}, req.Dropped())
	assert.NotContains(t, req.Query(), "foo")
	assert.NotContains(t, req.Params(), "slippage")
}

func TestNewDataRequest_MissingExchange(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{})

	_, err := NewCandles(context.Background(), client, "", "eth-usd")
	require.Error(t, err)

	var missing *core.MissingParameterError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "exchange", missing.Name)
	assert.True(t, core.IsConfigurationError(err))
	assert.False(t, core.IsTransportError(err))
	assert.Empty(t, *calls)
}

func TestNewDataRequest_InvalidTime(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{})

	_, err := NewTrades(context.Background(), client, "cbse", "btc-usd", WithStartTime("someday"))
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Empty(t, *calls)
}

func TestNewDataRequest_RelativeTimesResolvedOnce(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{Data: []core.Record{{"timestamp": float64(0)}}})

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd",
		WithTimeRange("2 days ago", "now"),
		WithClock(clock),
	)
	require.NoError(t, err)

	assert.Equal(t, "2020-08-08T12:00:00.000Z", req.Params()["start_time"])
	assert.Equal(t, "2020-08-10T12:00:00.000Z", req.Params()["end_time"])
	require.Len(t, *calls, 1)
	assert.Equal(t, req.Params(), (*calls)[0].Query)
	assert.Equal(t, req.Query(), req.Query())
}

func TestNewDataRequest_WithParamsReplacesDefaults(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{})

	req, err := NewOrderBookAggregations(context.Background(), client, "cbse", "btc-usd",
		WithParams(core.Params{"slippage": 10, "orders": 1}),
		WithInstrumentClass(core.InstrumentClassPerpetualFuture),
		WithPageSize(10),
	)
	require.NoError(t, err)

	assert.Equal(t, core.Params{"slippage": 10, "page_size": 10}, req.Params())
	assert.Equal(t, []string{"orders"}, req.Dropped())
	assert.Equal(t, "perpetual-future", req.RequiredParams()["instrument_class"])
	assert.Contains(t, (*calls)[0].URL, "/perpetual-future/btc-usd/ob_aggregations/full")
	require.NotNil(t, req.Warning())
	assert.Equal(t, OrderBookNotice, req.Warning().Notice)
}

func TestNewDataRequest_ArgOverridesRequired(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{})

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd", WithArg("data_version", "v1"))
	require.NoError(t, err)

	assert.Equal(t, "v1", req.RequiredParams()["data_version"])
	assert.Contains(t, (*calls)[0].URL, "/v1/data/trades.v1/exchanges/cbse/")
	assert.NotContains(t, req.Params(), "data_version")
}

func TestNewDataRequest_TradesEmptyHasNoNotice(t *testing.T) {
	client, _ := recordingClient(t, &core.Payload{})

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd")
	require.NoError(t, err)

	require.NotNil(t, req.Warning())
	assert.Empty(t, req.Warning().Notice)
	assert.NotContains(t, req.Warning().Error(), "(")
}

func TestNewDataRequest_NilPayload(t *testing.T) {
	fetcher := core.FetcherFunc(func(context.Context, *core.FetchRequest) (*core.Payload, error) {
		return nil, nil
	})
	client, err := NewClient(core.DefaultConfig().WithAPIKey("k"), WithFetcher(fetcher))
	require.NoError(t, err)

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd")
	require.NoError(t, err)

	assert.Equal(t, 0, req.Len())
	assert.Equal(t, 0, req.Pages())
	require.NotNil(t, req.Warning())
	assert.Equal(t, "cbse", req.Warning().Query["exchange"])
}

func TestNewDataRequest_NilClockIgnored(t *testing.T) {
	client, calls := recordingClient(t, &core.Payload{})

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd",
		WithClock(clock),
		WithClock(nil),
		WithStartTime("1 day ago"),
	)
	require.NoError(t, err)

	assert.Equal(t, "2020-08-09T12:00:00.000Z", req.Params()["start_time"])
	assert.Len(t, *calls, 1)
}

func TestNewDataRequest_TransportError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"result":"error","message":"invalid api key"}`)
	})

	_, err := NewTrades(context.Background(), client, "cbse", "btc-usd")
	require.Error(t, err)
	assert.True(t, core.IsTransportError(err))
	assert.True(t, core.IsAuthenticationError(err))
	assert.False(t, core.IsConfigurationError(err))
}

func TestNewDataRequest_NilClient(t *testing.T) {
	_, err := NewTrades(context.Background(), nil, "cbse", "btc-usd")
	assert.True(t, core.IsConfigurationError(err))
}

func TestDataRequest_AccessorsReturnCopies(t *testing.T) {
	client, _ := recordingClient(t, &core.Payload{Data: []core.Record{{"timestamp": float64(0), "price": "1"}}})

	req, err := NewTrades(context.Background(), client, "cbse", "btc-usd", WithArg("foo", 1))
	require.NoError(t, err)

	req.Query()["exchange"] = "changed"
	req.Params()["page_size"] = 1
	req.Dropped()[0] = "changed"
	require.NoError(t, req.Table().AddFloat("extra", []float64{1}))

	assert.Equal(t, "cbse", req.Query()["exchange"])
	assert.Equal(t, DefaultTradesPageSize, req.Params()["page_size"])
	assert.Equal(t, []string{"foo"}, req.Dropped())
	assert.False(t, req.Table().Has("extra"))
	assert.Contains(t, req.String(), "product: trades")
	assert.Contains(t, req.String(), "rows: 1")
}
