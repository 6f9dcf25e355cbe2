package factsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Client is the main interface for interacting with the fact cache.
type Client struct {
	store   *Store
	engine  *Engine
	creator *Creator
	source  FactSource
	config  Config
	logger  *Logger
	ownLog  bool
	started time.Time

	// mu serializes pagination so concurrent callers share one cursor.
	mu     sync.Mutex
	closed bool
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	source FactSource
	logger *Logger
	now    func() time.Time
}

// WithSource sets the remote fact source. Without one the client is offline.
func WithSource(source FactSource) Option {
	return func(o *clientOptions) { o.source = source }
}

// WithLogger makes the client log through logger instead of creating its own
// from Config. The caller keeps ownership and closes it.
func WithLogger(logger *Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithClock replaces the wall clock used for ordering ranks.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New creates a new factsync client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}

	logger, ownLog := o.logger, false
	if logger == nil {
		level, _ := ParseLogLevel(cfg.LogLevel)
		l, err := NewLogger(level, cfg.LogPath)
		if err != nil {
			return nil, fmt.Errorf("client: %w", err)
		}
		logger, ownLog = l, true
	}

	store, err := NewStore(cfg.LocalPath)
	if err != nil {
		if ownLog {
			logger.Close()
		}
		return nil, fmt.Errorf("client: %w", err)
	}
	store.WithLogger(logger.Channel("database"))

	c := &Client{
		store:   store,
		source:  o.source,
		config:  cfg,
		logger:  logger,
		ownLog:  ownLog,
		started: o.now(),
	}

	c.engine = NewEngine(cfg.BaseURL, o.source, store).
		WithLogger(logger.Channel("sync")).
		WithClock(o.now)
	c.creator = NewCreator(cfg.BaseURL, o.source, store).
		WithLogger(logger.Channel("creator")).
		WithClock(o.now)

	if c.Offline() {
		logger.Channel("sync").Info("no fact source configured; running offline")
	}

	return c, nil
}

// Config returns the resolved configuration.
func (c *Client) Config() Config {
	return c.config
}

// Logger returns the client's logger.
func (c *Client) Logger() *Logger {
	return c.logger
}

// Offline reports whether remote operations are unavailable.
func (c *Client) Offline() bool {
	return c.source == nil
}

// FetchFirstPage fetches and stores the first page of the remote feed.
// pageSize <= 0 uses the configured page size.
func (c *Client) FetchFirstPage(ctx context.Context, pageSize int) ([]Fact, error) {
	if c.source == nil {
		return nil, ErrOffline
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.FetchFirstPage(ctx, c.pageSize(pageSize))
}

// FetchNextPage fetches and stores the next page of the remote feed.
// Returns an empty batch when there is nothing more to load, offline or not.
func (c *Client) FetchNextPage(ctx context.Context, pageSize int) ([]Fact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.FetchNextPage(ctx, c.pageSize(pageSize))
}

// HasMore reports whether another page can be loaded.
func (c *Client) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.HasMore()
}

// Cursor returns the current pagination state.
func (c *Client) Cursor() (CursorState, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.Cursor()
}

// LiveFeed subscribes to the cached facts, newest first.
func (c *Client) LiveFeed(ctx context.Context, limit int) (*Subscription, error) {
	return c.engine.LiveFeed(ctx, limit)
}

// CreateOne fetches one random fact and adds it to the cache.
func (c *Client) CreateOne(ctx context.Context) (*Fact, error) {
	if c.source == nil {
		return nil, ErrOffline
	}
	return c.creator.CreateOne(ctx)
}

// Facts returns the cached facts, newest first.
func (c *Client) Facts(ctx context.Context, limit int) ([]Fact, error) {
	return c.store.ReadAll(ctx, FeedQuery(limit))
}

// Query runs an arbitrary query against the cache.
func (c *Client) Query(ctx context.Context, q Query) ([]Fact, error) {
	return c.store.ReadAll(ctx, q)
}

// Get returns one cached fact.
func (c *Client) Get(ctx context.Context, id string) (*Fact, error) {
	return c.store.Get(ctx, id)
}

// Delete removes cached facts by id.
func (c *Client) Delete(ctx context.Context, ids ...string) (int, error) {
	return c.store.Delete(ctx, ids)
}

// Clear removes every cached fact.
func (c *Client) Clear(ctx context.Context) (int, error) {
	return c.store.DeleteAll(ctx)
}

// Stats returns store statistics and pagination state.
func (c *Client) Stats(ctx context.Context) (*ClientStats, error) {
	storeStats, err := c.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	cursor, _ := c.engine.Cursor()
	c.mu.Unlock()

	return &ClientStats{
		Store:   *storeStats,
		Cursor:  cursor,
		Offline: c.Offline(),
		Uptime:  c.engine.now().Sub(c.started),
	}, nil
}

// Close closes the store, ending all live feeds, and the client-owned logger.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.store.Close()
	if c.ownLog {
		err = errors.Join(err, c.logger.Close())
	}
	return err
}

func (c *Client) pageSize(n int) int {
	if n > 0 {
		return n
	}
	return c.config.PageSize
}
