package core

// InstrumentClass is the provider's instrument class path segment.
// Values outside the predefined constants are passed through as-is.
type InstrumentClass string

// Instrument classes known to the provider.
const (
	// InstrumentClassSpot is spot trading where assets are exchanged immediately.
	InstrumentClassSpot InstrumentClass = "spot"
	// InstrumentClassFuture is dated futures contracts.
	InstrumentClassFuture InstrumentClass = "future"
	// InstrumentClassPerpetualFuture is perpetual swaps.
	InstrumentClassPerpetualFuture InstrumentClass = "perpetual-future"
	// InstrumentClassOption is options contracts.
	InstrumentClassOption InstrumentClass = "option"
)

// String returns the path segment for the class.
func (c InstrumentClass) String() string {
	return string(c)
}
