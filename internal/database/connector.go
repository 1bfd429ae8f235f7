package database

import (
	"context"
	"fmt"
	"sync"

	"heritageblade/internal/domain"
)

// OpenFunc establishes a new store connection.
type OpenFunc func(ctx context.Context) (domain.Store, error)

// Connector opens the store on first Acquire and hands the same instance to
// every later caller. A failed open is not remembered, so the next Acquire
// retries. Tests build their own Connector instead of sharing a global one.
type Connector struct {
	open  OpenFunc
	mu    sync.Mutex
	store domain.Store
}

func NewConnector(open OpenFunc) *Connector {
	return &Connector{open: open}
}

// Static returns a connector that always yields the given store.
func Static(store domain.Store) *Connector {
	return &Connector{store: store}
}

func (c *Connector) Acquire(ctx context.Context) (domain.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		return c.store, nil
	}
	if c.open == nil {
		return nil, fmt.Errorf("database connector has no open function")
	}

	store, err := c.open(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	c.store = store
	return store, nil
}

// Ping acquires the store and checks it is reachable.
func (c *Connector) Ping(ctx context.Context) error {
	store, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// Close releases the store if one was opened.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
