package kaiko

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"kaiko/pkg/core"
	"kaiko/pkg/table"
)

// Reference-data catalog names.
const (
	CatalogInstruments = "instruments"
	CatalogExchanges   = "exchanges"
	CatalogAssets      = "assets"
)

// TradeEndOngoing replaces a missing trade_end_time of instruments still trading.
const TradeEndOngoing = "ongoing"

// Catalog is one reference-data list.
type Catalog struct {
	Name    string
	Records []core.Record
}

func (c *Catalog) Len() int {
	return len(c.Records)
}

// Table renders the list as a frame indexed by row position.
func (c *Catalog) Table() *table.Frame {
	return table.FromRows(c.Records)
}

// Filter returns the records whose field equals value.
func (c *Catalog) Filter(field string, value any) []core.Record {
	want := core.FormatValue(value)
	var out []core.Record
	for _, rec := range c.Records {
		if v, ok := rec[field]; ok && core.FormatValue(v) == want {
			out = append(out, rec)
		}
	}
	return out
}

// Catalogs groups the reference-data lists.
type Catalogs struct {
	Instruments *Catalog
	Exchanges   *Catalog
	Assets      *Catalog
}

// Instrument returns the instruments listed for an exchange/code pair.
func (c *Catalogs) Instrument(exchange, code string) []core.Record {
	var out []core.Record
	for _, rec := range c.Instruments.Filter("exchange_code", exchange) {
		if core.FormatValue(rec["code"]) == code {
			out = append(out, rec)
		}
	}
	return out
}

// LoadCatalog downloads a single reference-data list.
func (c *Client) LoadCatalog(ctx context.Context, name string) (*Catalog, error) {
	req := core.NewFetchRequest(name, joinURL(c.ReferenceDataURL(), name)).
		SetPagination(false)

	payload, err := c.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", name, err)
	}

	records := payload.Data
	if name == CatalogInstruments {
		for _, rec := range records {
			if v, ok := rec["trade_end_time"]; !ok || v == nil || v == "" {
				rec["trade_end_time"] = TradeEndOngoing
			}
		}
	}
	c.logger.Debug().Str("catalog", name).Int("records", len(records)).Msg("catalog loaded")

	return &Catalog{Name: name, Records: records}, nil
}

// LoadCatalogs downloads the instruments, exchanges and assets lists concurrently.
func (c *Client) LoadCatalogs(ctx context.Context) (*Catalogs, error) {
	var out Catalogs
	g, ctx := errgroup.WithContext(ctx)

	targets := map[string]**Catalog{
		CatalogInstruments: &out.Instruments,
		CatalogExchanges:   &out.Exchanges,
		CatalogAssets:      &out.Assets,
	}
	for name, dst := range targets {
		g.Go(func() error {
			catalog, err := c.LoadCatalog(ctx, name)
			if err != nil {
				return err
			}
			*dst = catalog
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	c.logger.Info().
		Int("instruments", out.Instruments.Len()).
		Int("exchanges", out.Exchanges.Len()).
		Int("assets", out.Assets.Len()).
		Msg("catalogs loaded")
	return &out, nil
}
