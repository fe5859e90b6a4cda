// Package redisload loads class instances stored as Redis hashes, one hash
// per instance under "<prefix><Class>:<id>".
package redisload

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/solrq/internal/domain/setup"
)

// Compile-time check: Accessor implements setup.DataAccessor.
var _ setup.DataAccessor = (*Accessor)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
}

// Store holds the shared rueidis client.
type Store struct {
	client rueidis.Client
	prefix string
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, prefix: cfg.KeyPrefix}, nil
}

// NewStoreForTest wraps an existing client, typically a rueidis mock.
func NewStoreForTest(c rueidis.Client, prefix string) *Store {
	return &Store{client: c, prefix: prefix}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Key returns the hash key of one instance.
func (s *Store) Key(className, id string) string {
	return s.prefix + className + ":" + id
}

// Save stores records as hashes in a single DoMulti round-trip. Field
// values are written in their string form.
func (s *Store) Save(ctx context.Context, records ...*setup.Record) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(records))
	for _, r := range records {
		cmd := s.client.B().Hset().Key(s.Key(r.Class, r.ID)).FieldValue().FieldValue(setup.KeyID, r.ID)
		for k, v := range r.Fields {
			cmd = cmd.FieldValue(k, fmt.Sprint(v))
		}
		cmds = append(cmds, cmd.Build())
	}

	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			r := records[i]
			return fmt.Errorf("save %s: %w", s.Key(r.Class, r.ID), err)
		}
	}
	return nil
}

// Delete removes the hashes of ids in one command.
func (s *Store) Delete(ctx context.Context, className string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.Key(className, id)
	}
	cmd := s.client.B().Del().Key(keys...).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("delete %s: %w", className, err)
	}
	return nil
}

// Accessor returns the data accessor of className.
func (s *Store) Accessor(className string) *Accessor {
	return &Accessor{store: s, class: className}
}

// Accessor loads the instances of one class.
type Accessor struct {
	store *Store
	class string
}

// LoadAll fetches the hashes of ids in one round-trip. Ids without a hash
// are omitted; each instance is a *setup.Record with string field values.
func (a *Accessor) LoadAll(ctx context.Context, ids []string) ([]any, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(ids))
	for i, id := range ids {
		cmds[i] = a.store.client.B().Hgetall().Key(a.store.Key(a.class, id)).Build()
	}

	out := make([]any, 0, len(ids))
	for i, res := range a.store.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", a.store.Key(a.class, ids[i]), err)
		}
		if len(m) == 0 {
			continue
		}
		fields := make(map[string]any, len(m))
		for k, v := range m {
			if k == setup.KeyID {
				continue
			}
			fields[k] = v
		}
		out = append(out, &setup.Record{Class: a.class, ID: ids[i], Fields: fields})
	}
	return out, nil
}
