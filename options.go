package xlmap

import "go.uber.org/zap"

// Statuses shown to the user.
const (
	StatusDone        = "Готово!"
	statusErrorPrefix = "Ошибка: "
)

// DefaultRoundingPrecision is the number of decimals kept for geocoded
// coordinates.
const DefaultRoundingPrecision = 4

// Options holds configuration for the Processor.
type Options struct {
	reporter  Reporter
	store     TaskStore
	taskLog   TaskLogger
	geocoder  Geocoder
	columns   ColumnResolver
	logger    *zap.Logger
	rounding  int
	visibleOn *bool
}

func defaultOptions() *Options {
	return &Options{
		reporter: nopReporter{},
		store:    nopStore{},
		taskLog:  nopLogger{},
		columns:  labelResolver{},
		logger:   zap.NewNop(),
		rounding: DefaultRoundingPrecision,
	}
}

// Option configures the Processor.
type Option func(*Options)

// WithReporter sets the status sink.
func WithReporter(r Reporter) Option {
	return func(o *Options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithTaskStore sets the task registry.
func WithTaskStore(s TaskStore) Option {
	return func(o *Options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithTaskLogger sets the persistent task log.
func WithTaskLogger(l TaskLogger) Option {
	return func(o *Options) {
		if l != nil {
			o.taskLog = l
		}
	}
}

// WithGeocoder sets the address index used by post-processing. Without
// one, geocoding matches nothing.
func WithGeocoder(g Geocoder) Option {
	return func(o *Options) { o.geocoder = g }
}

// WithColumnResolver sets the header lookup used by post-processing
// (default: exact label match, case and whitespace insensitive).
func WithColumnResolver(r ColumnResolver) Option {
	return func(o *Options) {
		if r != nil {
			o.columns = r
		}
	}
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRoundingPrecision sets the decimals kept for geocoded coordinates (default: 4).
func WithRoundingPrecision(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.rounding = n
		}
	}
}

// WithVisibleRowsOnly overrides the bundle's visible_rows_only flag.
func WithVisibleRowsOnly(v bool) Option {
	return func(o *Options) { o.visibleOn = &v }
}
