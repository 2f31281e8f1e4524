package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connection establishment limits. Cold start against a managed cluster can
// take several seconds; steady-state lookups are sub-second.
const (
	connectTimeout         = 10 * time.Second
	serverSelectionTimeout = 10 * time.Second
	maxPoolSize            = 10
)

// DialFunc establishes a client connection. Injectable for tests.
type DialFunc func(ctx context.Context) (*mongo.Client, error)

// Handle is a live link to one logical database, shared across concurrent
// requests.
type Handle struct {
	client *mongo.Client
	dbName string
}

// Database returns the wrapped database view for this handle.
func (h *Handle) Database() Database {
	return WrapDatabase(h.client.Database(h.dbName))
}

// Client exposes the underlying driver client (health checks, index setup).
func (h *Handle) Client() *mongo.Client {
	return h.client
}

type connEntry struct {
	done   chan struct{}
	client *mongo.Client
	err    error
}

// ConnectionCache lazily establishes and memoizes one client connection per
// logical database name. The in-flight attempt itself is memoized, so N
// concurrent first callers for the same name collapse into a single dial.
// Construct one cache at process start and pass it by reference; tests build
// isolated instances.
type ConnectionCache struct {
	dial DialFunc
	log  *logrus.Entry

	mu    sync.Mutex
	conns map[string]*connEntry
}

// NewConnectionCache creates a cache dialing the given document-store URL.
func NewConnectionCache(mongoURL string) *ConnectionCache {
	dial := func(ctx context.Context) (*mongo.Client, error) {
		opts := options.Client().
			ApplyURI(mongoURL).
			SetMaxPoolSize(maxPoolSize).
			SetConnectTimeout(connectTimeout).
			SetServerSelectionTimeout(serverSelectionTimeout)
		return mongo.Connect(ctx, opts)
	}
	return NewConnectionCacheWithDialer(dial)
}

// NewConnectionCacheWithDialer creates a cache with a custom dialer.
func NewConnectionCacheWithDialer(dial DialFunc) *ConnectionCache {
	return &ConnectionCache{
		dial:  dial,
		log:   logrus.WithField("component", "connection_cache"),
		conns: make(map[string]*connEntry),
	}
}

// Get returns the handle for a database name, establishing the connection on
// first use. Connection errors are returned to every waiter and are not
// cached; a later call retries.
func (c *ConnectionCache) Get(ctx context.Context, dbName string) (*Handle, error) {
	if dbName == "" {
		return nil, fmt.Errorf("database name is required")
	}

	c.mu.Lock()
	entry, found := c.conns[dbName]
	if !found {
		entry = &connEntry{done: make(chan struct{})}
		c.conns[dbName] = entry
	}
	c.mu.Unlock()

	if !found {
		client, err := c.dial(ctx)
		entry.client, entry.err = client, err
		close(entry.done)
		if err != nil {
			// Evict so the next caller retries.
			c.mu.Lock()
			if c.conns[dbName] == entry {
				delete(c.conns, dbName)
			}
			c.mu.Unlock()
			return nil, fmt.Errorf("connect %s: %w", dbName, err)
		}
		c.log.WithField("db", dbName).Info("connected")
		return &Handle{client: client, dbName: dbName}, nil
	}

	select {
	case <-entry.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if entry.err != nil {
		return nil, fmt.Errorf("connect %s: %w", dbName, entry.err)
	}
	return &Handle{client: entry.client, dbName: dbName}, nil
}

// ResetAll closes all cached connections and empties the cache. Intended for
// test teardown and orderly shutdown.
func (c *ConnectionCache) ResetAll(ctx context.Context) error {
	c.mu.Lock()
	entries := c.conns
	c.conns = make(map[string]*connEntry)
	c.mu.Unlock()

	var firstErr error
	for name, entry := range entries {
		select {
		case <-entry.done:
		case <-ctx.Done():
			return ctx.Err()
		}
		if entry.err != nil || entry.client == nil {
			continue
		}
		if err := entry.client.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("disconnect %s: %w", name, err)
		}
	}
	return firstErr
}
