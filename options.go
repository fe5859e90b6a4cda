package solrq

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	solrURL    string
	core       string
	timeout    time.Duration
	rps        float64
	burst      int
	gzip       bool
	httpClient *http.Client

	redisAddrs []string
	password   string
	keyPrefix  string

	perPage int
	logger  *zap.Logger
}

// WithSolr sets the Solr base URL (e.g. http://localhost:8983/solr) and core.
func WithSolr(url, core string) Option {
	return func(c *clientConfig) {
		c.solrURL = url
		c.core = core
	}
}

// WithTimeout bounds every Solr request.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRateLimit caps outgoing Solr requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *clientConfig) {
		c.rps = rps
		c.burst = burst
	}
}

// WithGzip asks Solr for compressed responses.
func WithGzip() Option {
	return func(c *clientConfig) { c.gzip = true }
}

// WithHTTPClient replaces the HTTP client used for Solr.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithRedis stores indexed items as Redis hashes so searches can return
// them. Without it, items are rebuilt from stored fields or loaded with
// WithLoader.
func WithRedis(addr, password string) Option {
	return func(c *clientConfig) {
		c.redisAddrs = append(c.redisAddrs, addr)
		c.password = password
	}
}

// WithKeyPrefix sets the Redis key prefix (default "solrq:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithDefaultPerPage sets the page size of searches that do not paginate.
func WithDefaultPerPage(n int) Option {
	return func(c *clientConfig) { c.perPage = n }
}

// WithLogger sets the logger for searches and transport.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// Loader loads items by primary key. Missing keys are omitted.
type Loader[T any] func(ctx context.Context, ids []string) ([]T, error)

// IndexOption configures a TypedIndex.
type IndexOption[T any] func(*indexConfig[T])

type indexConfig[T any] struct {
	loader Loader[T]
}

// WithLoader makes searches return items from fn, typically the
// application's primary database.
func WithLoader[T any](fn Loader[T]) IndexOption[T] {
	return func(c *indexConfig[T]) { c.loader = fn }
}
