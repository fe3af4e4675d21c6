// Package cache holds the client-side view of the borrowing cart with
// optimistic mutations: every cart operation publishes its local effect
// immediately, then reconciles with the server-confirmed state or rolls
// back to the snapshot taken when the mutation started.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/broadcast"
	"github.com/libridge/shelfsync/internal/models"
	"github.com/libridge/shelfsync/internal/queue"
)

// Namespace is the pending-mutation queue namespace for cart writes.
const Namespace = "cart"

// DefaultTTL is the staleness window for a fetched snapshot.
const DefaultTTL = 30 * time.Second

// CartAPI is the remote surface the cache depends on.
type CartAPI interface {
	FetchCart(ctx context.Context) (*models.CartSnapshot, error)
	AddCartItem(ctx context.Context, bookID int64, quantity int) (*models.CartSnapshot, error)
	UpdateCartItem(ctx context.Context, bookID int64, quantity int) (*models.CartSnapshot, error)
	RemoveCartItem(ctx context.Context, bookID int64) (*models.CartSnapshot, error)
	Online(ctx context.Context) bool
}

// CartCache is the optimistic read-through cache. It is an explicit
// object, not process state: construct one per session and pass it to
// whoever needs cart reads.
//
// Rollback restores the state captured when the failing mutation
// started, not the state after all earlier mutations settled; with
// concurrent mutations on the same cache an out-of-order failure can
// clobber a sibling's optimistic update. Acceptable for a cart view.
type CartCache struct {
	api   CartAPI
	queue *queue.Queue
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time

	mu            sync.Mutex
	snap          *models.CartSnapshot
	fetchedAt     time.Time
	refetchCancel context.CancelFunc
}

// New builds a CartCache. ttl <= 0 means DefaultTTL.
func New(api CartAPI, q *queue.Queue, ttl time.Duration, log *zap.Logger) *CartCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CartCache{api: api, queue: q, ttl: ttl, log: log, now: time.Now}
}

// Get returns the cached snapshot if it is within the staleness window,
// otherwise refetches from the server. Callers receive a copy.
func (c *CartCache) Get(ctx context.Context) (*models.CartSnapshot, error) {
	c.mu.Lock()
	if c.snap != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		snap := c.snap.Clone()
		c.mu.Unlock()
		return snap, nil
	}

	// register the refetch so a mutation can cancel it before racing a
	// stale response over its optimistic write
	fetchCtx, cancel := context.WithCancel(ctx)
	c.refetchCancel = cancel
	c.mu.Unlock()

	snap, err := c.api.FetchCart(fetchCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.refetchCancel = nil
	if err != nil {
		if fetchCtx.Err() != nil && c.snap != nil {
			// refetch lost to an optimistic write; serve the newer local state
			return c.snap.Clone(), nil
		}
		return nil, fmt.Errorf("fetch cart: %w", err)
	}
	c.snap = snap
	c.fetchedAt = c.now()
	return c.snap.Clone(), nil
}

// Invalidate drops the cached snapshot so the next Get refetches.
func (c *CartCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
	c.fetchedAt = time.Time{}
}

// ListenSyncEvents invalidates the snapshot every time the sync worker
// reports a completed cycle, until ctx is cancelled. Run it on its own
// goroutine.
func (c *CartCache) ListenSyncEvents(ctx context.Context, hub *broadcast.Hub) {
	msgs, cancel := hub.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, open := <-msgs:
			if !open {
				return
			}
			if msg.Type == broadcast.TypeSyncComplete {
				c.log.Debug("sync complete, invalidating cart snapshot",
					zap.Int("succeeded", msg.Succeeded),
					zap.Int("failed", msg.Failed))
				c.Invalidate()
			}
		}
	}
}

// AddItem optimistically adds item to the cart (merging quantities for a
// book already present), then confirms with the server or, when
// offline, queues an ADD_TO_CART mutation for the sync worker.
func (c *CartCache) AddItem(ctx context.Context, item models.CartItem) error {
	return c.mutate(ctx,
		func(snap *models.CartSnapshot) {
			for i := range snap.Items {
				if snap.Items[i].BookID == item.BookID {
					snap.Items[i].Quantity += item.Quantity
					return
				}
			}
			snap.Items = append(snap.Items, item)
		},
		func(ctx context.Context) (*models.CartSnapshot, error) {
			return c.api.AddCartItem(ctx, item.BookID, item.Quantity)
		},
		models.ActionAddToCart,
		cartData{BookID: item.BookID, Quantity: item.Quantity},
	)
}

// UpdateQuantity optimistically sets the requested quantity for a book.
func (c *CartCache) UpdateQuantity(ctx context.Context, bookID int64, quantity int) error {
	return c.mutate(ctx,
		func(snap *models.CartSnapshot) {
			for i := range snap.Items {
				if snap.Items[i].BookID == bookID {
					snap.Items[i].Quantity = quantity
					return
				}
			}
		},
		func(ctx context.Context) (*models.CartSnapshot, error) {
			return c.api.UpdateCartItem(ctx, bookID, quantity)
		},
		// offline quantity updates ride the ADD_TO_CART action; the
		// endpoint upserts the requested quantity for an existing item
		models.ActionAddToCart,
		cartData{BookID: bookID, Quantity: quantity},
	)
}

// RemoveItem optimistically drops a book from the cart.
func (c *CartCache) RemoveItem(ctx context.Context, bookID int64) error {
	return c.mutate(ctx,
		func(snap *models.CartSnapshot) {
			kept := snap.Items[:0]
			for _, it := range snap.Items {
				if it.BookID != bookID {
					kept = append(kept, it)
				}
			}
			snap.Items = kept
		},
		func(ctx context.Context) (*models.CartSnapshot, error) {
			return c.api.RemoveCartItem(ctx, bookID)
		},
		models.ActionRemoveFromCart,
		cartData{BookID: bookID},
	)
}

// cartData is the queued payload for offline cart mutations.
type cartData struct {
	BookID   int64 `json:"book_id"`
	Quantity int   `json:"quantity,omitempty"`
}

// mutate runs the shared optimistic flow: cancel any in-flight refetch,
// snapshot for rollback, publish the local effect, then either call the
// server (reconcile or roll back) or queue the mutation when offline.
func (c *CartCache) mutate(
	ctx context.Context,
	apply func(*models.CartSnapshot),
	call func(context.Context) (*models.CartSnapshot, error),
	action models.Action,
	data cartData,
) error {
	c.mu.Lock()
	if c.refetchCancel != nil {
		c.refetchCancel()
		c.refetchCancel = nil
	}
	if c.snap == nil {
		c.snap = &models.CartSnapshot{}
	}
	before := c.snap.Clone()

	apply(c.snap)
	c.snap.Recompute()
	c.mu.Unlock()

	if !c.api.Online(ctx) {
		return c.enqueueOffline(ctx, action, data, before)
	}

	confirmed, err := call(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.snap = before
		return fmt.Errorf("cart %s: %w", action, err)
	}
	c.snap = confirmed
	c.fetchedAt = c.now()
	return nil
}

// enqueueOffline records the mutation for the sync worker and keeps the
// optimistic state; the SYNC_COMPLETE invalidation reconciles it later.
func (c *CartCache) enqueueOffline(ctx context.Context, action models.Action, data cartData, before *models.CartSnapshot) error {
	if c.queue == nil {
		c.mu.Lock()
		c.snap = before
		c.mu.Unlock()
		return fmt.Errorf("cart %s: offline and no queue configured", action)
	}
	buf, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode mutation: %w", err)
	}
	m := models.PendingMutation{ID: uuid.NewString(), Action: action, Data: buf}
	if err := c.queue.Enqueue(ctx, Namespace, m); err != nil {
		c.mu.Lock()
		c.snap = before
		c.mu.Unlock()
		return fmt.Errorf("queue mutation: %w", err)
	}
	c.log.Info("queued offline cart mutation",
		zap.String("id", m.ID),
		zap.String("action", string(action)))
	return nil
}
