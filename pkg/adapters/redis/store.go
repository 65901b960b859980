package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/stepgraph/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// noExpiry is the index score used when no TTL is configured (2100-01-01).
const noExpiry = 4102444800

// Store implements ports.GraphStore and ports.RunStore using Redis.
// Records are JSON blobs; a sorted set per kind indexes them by expiry.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL sets the expiration for run records. Graphs never expire.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the time source used to score the index.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "stepgraph:",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Graphs returns a view of the store satisfying ports.GraphStore.
func (s *Store) Graphs() *GraphStore {
	return &GraphStore{store: s}
}

// Runs returns a view of the store satisfying ports.RunStore.
func (s *Store) Runs() *RunStore {
	return &RunStore{store: s}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(kind, id string) string {
	return s.prefix + kind + ":" + id
}

func (s *Store) indexKey(kind string) string {
	return s.prefix + kind + ":index"
}

func (s *Store) put(ctx context.Context, kind, id string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", kind, err)
	}

	score := float64(s.now().Add(ttl).Unix())
	if ttl == 0 {
		score = noExpiry
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(kind, id), data, ttl)
	pipe.ZAdd(ctx, s.indexKey(kind), backend.Z{Score: score, Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save %s to redis: %w", kind, err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, kind, id string, v any, notFound error) error {
	val, err := s.client.Get(ctx, s.key(kind, id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return notFound
		}
		return fmt.Errorf("failed to get %s from redis: %w", kind, err)
	}
	if err := json.Unmarshal(val, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", kind, err)
	}
	return nil
}

// list prunes expired members from the index before reading it. The index is
// scored by expiry, so ids are sorted here.
func (s *Store) list(ctx context.Context, kind string) ([]string, error) {
	now := float64(s.now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(kind), "-inf", fmt.Sprintf("(%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired %s: %w", kind, err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	slices.Sort(ids)
	return ids, nil
}

// GraphStore is the graph view of a Store.
type GraphStore struct {
	store *Store
}

func (g *GraphStore) Save(ctx context.Context, graph *domain.Graph) error {
	return g.store.put(ctx, "graph", graph.ID, graph, 0)
}

func (g *GraphStore) Get(ctx context.Context, id string) (*domain.Graph, error) {
	var graph domain.Graph
	if err := g.store.get(ctx, "graph", id, &graph, domain.ErrGraphNotFound); err != nil {
		return nil, err
	}
	return &graph, nil
}

func (g *GraphStore) List(ctx context.Context) ([]string, error) {
	return g.store.list(ctx, "graph")
}

// RunStore is the run view of a Store.
type RunStore struct {
	store *Store
}

func (r *RunStore) Save(ctx context.Context, run *domain.Run) error {
	return r.store.put(ctx, "run", run.ID, run, r.store.ttl)
}

func (r *RunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	if err := r.store.get(ctx, "run", id, &run, domain.ErrRunNotFound); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunStore) List(ctx context.Context) ([]string, error) {
	return r.store.list(ctx, "run")
}

// Delete removes the run and its index entry.
func (r *RunStore) Delete(ctx context.Context, id string) error {
	pipe := r.store.client.Pipeline()
	pipe.Del(ctx, r.store.key("run", id))
	pipe.ZRem(ctx, r.store.indexKey("run"), id)
	_, err := pipe.Exec(ctx)
	return err
}
