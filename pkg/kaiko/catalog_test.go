package kaiko

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kaiko/pkg/core"
)

func catalogHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("continuation_token"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/reference/v1/instruments":
			fmt.Fprint(w, `{"result":"success","data":[
				{"code":"btc-usd","exchange_code":"cbse","class":"spot","trade_end_time":null},
				{"code":"eth-usd","exchange_code":"cbse","class":"spot","trade_end_time":"2021-01-01T00:00:00Z"},
				{"code":"btc-usd","exchange_code":"krkn","class":"spot"}
			],"continuation_token":"ignored"}`)
		case "/reference/v1/exchanges":
			fmt.Fprint(w, `{"result":"success","data":[{"code":"cbse","name":"Coinbase"},{"code":"krkn","name":"Kraken"}]}`)
		case "/reference/v1/assets":
			fmt.Fprint(w, `{"result":"success","data":[{"code":"btc","name":"Bitcoin","asset_class":"cryptocurrency"}]}`)
		default:
			http.NotFound(w, r)
		}
	}
}

func TestLoadCatalogs(t *testing.T) {
	client := newTestClient(t, catalogHandler(t))

	catalogs, err := client.LoadCatalogs(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, catalogs.Instruments.Len())
	assert.Equal(t, 2, catalogs.Exchanges.Len())
	assert.Equal(t, 1, catalogs.Assets.Len())
	assert.Equal(t, CatalogInstruments, catalogs.Instruments.Name)

	assert.Equal(t, TradeEndOngoing, catalogs.Instruments.Records[0]["trade_end_time"])
	assert.Equal(t, "2021-01-01T00:00:00Z", catalogs.Instruments.Records[1]["trade_end_time"])
	assert.Equal(t, TradeEndOngoing, catalogs.Instruments.Records[2]["trade_end_time"])

	assert.Len(t, catalogs.Instrument("cbse", "btc-usd"), 1)
	assert.Empty(t, catalogs.Instrument("bnce", "btc-usd"))
	assert.Len(t, catalogs.Exchanges.Filter("name", "Kraken"), 1)

	frame := catalogs.Instruments.Table()
	assert.True(t, frame.Positional())
	assert.Equal(t, 3, frame.Len())
	assert.Equal(t, []string{"class", "code", "exchange_code", "trade_end_time"}, frame.Columns())
	ends, ok := frame.Strings("trade_end_time")
	require.True(t, ok)
	assert.Equal(t, []string{TradeEndOngoing, "2021-01-01T00:00:00Z", TradeEndOngoing}, ends)
}

func TestLoadCatalogs_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/reference/v1/assets" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"result":"success","data":[]}`)
	})

	_, err := client.LoadCatalogs(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsTransportError(err))
	assert.Contains(t, err.Error(), "catalog assets")
}

func TestLoadCatalog_Single(t *testing.T) {
	client := newTestClient(t, catalogHandler(t))

	catalog, err := client.LoadCatalog(context.Background(), CatalogExchanges)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.Len())
}
