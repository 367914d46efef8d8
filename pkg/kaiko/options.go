package kaiko

import (
	"time"

	"kaiko/pkg/core"
)

type Option func(*Options)

// Options collects the per-request settings of a DataRequest.
type Options struct {
	InstrumentClass core.InstrumentClass
	// Params replaces the product's default query parameters when non-nil.
	Params core.Params
	// Args are keyword overrides routed to the path or the query by name.
	Args core.Params
	// Pagination overrides the client setting when non-nil.
	Pagination *bool
	Now        func() time.Time
}

func WithInstrumentClass(class core.InstrumentClass) Option {
	return func(o *Options) {
		o.InstrumentClass = class
	}
}

func WithParams(params core.Params) Option {
	return func(o *Options) {
		o.Params = params.Clone()
	}
}

func WithArgs(args core.Params) Option {
	return func(o *Options) {
		for k, v := range args {
			o.setArg(k, v)
		}
	}
}

func WithArg(name string, value any) Option {
	return func(o *Options) {
		o.setArg(name, value)
	}
}

// WithTimeRange sets start_time and end_time. Values may be time.Time, epoch
// milliseconds, dates or relative expressions such as "2 days ago".
func WithTimeRange(start, end any) Option {
	return func(o *Options) {
		o.setArg("start_time", start)
		o.setArg("end_time", end)
	}
}

func WithStartTime(start any) Option {
	return WithArg("start_time", start)
}

func WithEndTime(end any) Option {
	return WithArg("end_time", end)
}

// WithInterval sets the aggregation interval, e.g. "1m", "1h" or "1d".
func WithInterval(interval string) Option {
	return WithArg("interval", interval)
}

func WithPageSize(size int) Option {
	return WithArg("page_size", size)
}

func WithPagination(enabled bool) Option {
	return func(o *Options) {
		o.Pagination = &enabled
	}
}

// WithClock sets the reference time for relative expressions. A nil clock is ignored.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

func (o *Options) setArg(name string, value any) {
	if o.Args == nil {
		o.Args = make(core.Params)
	}
	o.Args[name] = value
}

func ApplyOptions(opts ...Option) *Options {
	o := &Options{
		InstrumentClass: core.InstrumentClassSpot,
		Now:             time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
