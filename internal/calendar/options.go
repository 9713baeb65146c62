package calendar

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// TTLDisabled keeps fetched holidays forever
	TTLDisabled time.Duration = -1

	defaultCacheTTL         = 24 * time.Hour
	defaultHTTPTimeout      = 10 * time.Second
	defaultDecisionCapacity = 1000
	defaultRetryBackoff     = time.Second
)

type options struct {
	businessWeekends bool
	ttl              time.Duration
	now              func() time.Time
	httpClient       *http.Client
	logger           *zap.Logger
	decisionCapacity int
	overridesFile    string
	fetchAttempts    int
	retryBackoff     time.Duration
}

// Option configures a BusinessCalendar at construction
type Option func(*options)

// WithBusinessWeekends treats Saturday and Sunday as ordinary business days
func WithBusinessWeekends(enabled bool) Option {
	return func(o *options) {
		o.businessWeekends = enabled
	}
}

// WithTTL sets how long fetched remote holidays stay valid.
// Zero re-fetches on every lookup; TTLDisabled never expires.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithClock replaces time.Now for TTL checks
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHTTPClient sets the client used by remote sources
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDecisionCacheCapacity bounds the number of memoized business-day answers
func WithDecisionCacheCapacity(capacity int) Option {
	return func(o *options) {
		if capacity > 0 {
			o.decisionCapacity = capacity
		}
	}
}

// WithOverridesFile layers a local holiday/workday file over the source
func WithOverridesFile(path string) Option {
	return func(o *options) {
		o.overridesFile = path
	}
}

// WithFetchRetries retries failed remote requests up to attempts times in total
func WithFetchRetries(attempts int, backoff time.Duration) Option {
	return func(o *options) {
		o.fetchAttempts = attempts
		o.retryBackoff = backoff
	}
}

func buildOptions(opts []Option) options {
	o := options{
		ttl: defaultCacheTTL,
		now: time.Now,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
		logger:           zap.NewNop(),
		decisionCapacity: defaultDecisionCapacity,
		fetchAttempts:    1,
		retryBackoff:     defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
