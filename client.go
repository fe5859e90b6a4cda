// Package solrq indexes tagged Go structs in Solr and searches them with a
// typed restriction, facet and pagination DSL.
package solrq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
	"github.com/kailas-cloud/solrq/internal/repository/redisload"
	"github.com/kailas-cloud/solrq/internal/transport/solr"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "solrq:"
)

// Client is the solrq SDK entry point. Indexes created from one client
// share its class registry, so searches can span several of them.
type Client struct {
	solr     *solr.Client
	redis    *redisload.Store
	registry *setup.Registry
	search   *searchuc.Service
	logger   *zap.Logger
}

// New creates a Client. With WithRedis it also connects to Redis and waits
// until it answers.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: defaultKeyPrefix}
	for _, o := range opts {
		o(cfg)
	}

	if cfg.solrURL == "" || cfg.core == "" {
		return nil, errors.New("solrq: solr url and core required (use WithSolr)")
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	sc, err := solr.New(solr.Config{
		URL:               cfg.solrURL,
		Core:              cfg.core,
		Timeout:           cfg.timeout,
		RequestsPerSecond: cfg.rps,
		Burst:             cfg.burst,
		Gzip:              cfg.gzip,
		HTTPClient:        cfg.httpClient,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("solrq: %w", err)
	}

	c := &Client{solr: sc, registry: setup.NewRegistry(), logger: logger}
	c.search = searchuc.New(sc, c.registry)
	if cfg.perPage > 0 {
		c.search = c.search.WithDefaultPerPage(cfg.perPage)
	}

	if len(cfg.redisAddrs) > 0 {
		store, err := redisload.NewStore(redisload.Config{
			Addrs:     cfg.redisAddrs,
			Password:  cfg.password,
			KeyPrefix: cfg.keyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("solrq: create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("solrq: redis not ready: %w", err)
		}
		c.redis = store
	}
	return c, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.redis != nil {
		c.redis.Close()
	}
}

// Ping checks that Solr, and Redis when configured, answer.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.solr.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	if c.redis != nil {
		if err := c.redis.Ping(ctx); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
	}
	return nil
}

// Commit makes indexed and removed documents visible to searches.
func (c *Client) Commit(ctx context.Context) error {
	if err := c.solr.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Classes returns the names of the registered indexes.
func (c *Client) Classes() []string { return c.registry.Classes() }
