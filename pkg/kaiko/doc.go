// Package kaiko retrieves Kaiko market data as time-indexed tables.
// It supports trades, candles (count/OHLCV/VWAP), order-book snapshots and
// order-book aggregations, plus the reference-data catalogs.
//
// A DataRequest is built and loaded in a single call:
//
//	client, _ := kaiko.NewClient(core.DefaultConfig().WithAPIKey(key))
//	candles, err := kaiko.NewCandles(ctx, client, "cbse", "eth-usd",
//		kaiko.WithStartTime("2020-08-06"),
//		kaiko.WithInterval("1d"))
//
// Kaiko API Documentation: https://docs.kaiko.com/
package kaiko
