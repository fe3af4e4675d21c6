// Package syncworker implements the background process that replays the
// pending-mutation queue against the remote library API when a sync
// signal fires, then broadcasts the aggregate outcome.
package syncworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/broadcast"
	"github.com/libridge/shelfsync/internal/models"
	"github.com/libridge/shelfsync/internal/queue"
)

// Transport sends one replayed mutation to the remote API. Success is
// nil; any error (network or non-2xx) counts the mutation as failed.
type Transport interface {
	Do(ctx context.Context, method, path string, body json.RawMessage) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, method, path string, body json.RawMessage) error

func (f TransportFunc) Do(ctx context.Context, method, path string, body json.RawMessage) error {
	return f(ctx, method, path, body)
}

// endpoint maps an action onto its HTTP call.
type endpoint struct {
	method string
	path   string
}

// endpoints is the action dispatch table. Unknown actions fail that
// entry's replay without touching its siblings.
var endpoints = map[models.Action]endpoint{
	models.ActionAddToCart:      {http.MethodPost, "/api/borrow-carts/items"},
	models.ActionRemoveFromCart: {http.MethodDelete, "/api/borrow-carts/items"},
	models.ActionBorrow:         {http.MethodPost, "/api/borrows"},
	models.ActionFavorite:       {http.MethodPost, "/api/favourites"},
	models.ActionUnfavorite:     {http.MethodDelete, "/api/favourites"},
}

// Worker states.
const (
	stateIdle int32 = iota
	stateDraining
)

// ErrDrainInProgress is returned when a sync signal arrives while a
// drain cycle is already running.
var ErrDrainInProgress = errors.New("syncworker: drain already in progress")

// Worker drains the pending-mutation queue. It holds no queue state of
// its own: every cycle re-reads the store, so it can run with no other
// component alive.
type Worker struct {
	queue       *queue.Queue
	transport   Transport
	hub         *broadcast.Hub
	log         *zap.Logger
	callTimeout time.Duration

	state atomic.Int32
}

// New wires a Worker. callTimeout bounds each replayed call; zero means
// 15 seconds.
func New(q *queue.Queue, t Transport, hub *broadcast.Hub, log *zap.Logger, callTimeout time.Duration) *Worker {
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{queue: q, transport: t, hub: hub, log: log, callTimeout: callTimeout}
}

// Draining reports whether a drain cycle is currently running.
func (w *Worker) Draining() bool {
	return w.state.Load() == stateDraining
}

// HandleSyncSignal runs one Idle→Draining→Idle cycle: enumerate every
// namespace, replay each list in insertion order (namespaces drain
// concurrently, entries within one namespace sequentially), remove each
// mutation immediately after its call succeeds, keep failed ones for the
// next signal, then publish SYNC_COMPLETE with the settled counts.
func (w *Worker) HandleSyncSignal(ctx context.Context) (models.SyncResult, error) {
	if !w.state.CompareAndSwap(stateIdle, stateDraining) {
		return models.SyncResult{}, ErrDrainInProgress
	}
	defer w.state.Store(stateIdle)

	namespaces, err := w.queue.Namespaces(ctx)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("enumerate queues: %w", err)
	}

	var (
		succeeded atomic.Int64
		failed    atomic.Int64
		wg        sync.WaitGroup
	)
	for _, ns := range namespaces {
		wg.Add(1)
		go func(ns string) {
			defer wg.Done()
			ok, bad := w.drainNamespace(ctx, ns)
			succeeded.Add(int64(ok))
			failed.Add(int64(bad))
		}(ns)
	}
	wg.Wait()

	result := models.SyncResult{
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}

	drainsTotal.Inc()
	mutationsSyncedTotal.Add(float64(result.Succeeded))
	mutationsFailedTotal.Add(float64(result.Failed))
	if left, err := w.queue.Pending(ctx); err == nil {
		pendingMutations.Set(float64(left))
	}

	w.log.Info("sync cycle complete",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	if w.hub != nil {
		w.hub.Publish(broadcast.Message{
			Type:      broadcast.TypeSyncComplete,
			Succeeded: result.Succeeded,
			Failed:    result.Failed,
		})
	}
	return result, nil
}

// drainNamespace replays one list front to back. A successfully
// replayed entry is removed from the queue before the next entry is
// attempted, so a crash or re-signal cannot replay it twice. Failed
// entries stay queued.
func (w *Worker) drainNamespace(ctx context.Context, ns string) (succeeded, failed int) {
	list, err := w.queue.List(ctx, ns)
	if err != nil {
		w.log.Error("cannot read pending mutations", zap.String("namespace", ns), zap.Error(err))
		return 0, 0
	}
	for _, m := range list {
		if err := w.replay(ctx, m); err != nil {
			w.log.Warn("mutation replay failed",
				zap.String("namespace", ns),
				zap.String("id", m.ID),
				zap.String("action", string(m.Action)),
				zap.Error(err))
			failed++
			continue
		}
		if err := w.queue.RemoveByID(ctx, ns, m.ID); err != nil {
			// replayed but not pruned; next cycle re-delivers, which the
			// idempotent endpoints tolerate
			w.log.Error("cannot remove replayed mutation",
				zap.String("namespace", ns),
				zap.String("id", m.ID),
				zap.Error(err))
		}
		succeeded++
	}
	return succeeded, failed
}

// replay dispatches one mutation through the endpoint table.
func (w *Worker) replay(ctx context.Context, m models.PendingMutation) error {
	ep, ok := endpoints[m.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", m.Action)
	}
	callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
	defer cancel()
	return w.transport.Do(callCtx, ep.method, ep.path, m.Data)
}

// Run keeps the worker alive: it drains on every tick of interval and
// on every SKIP_WAITING message from the hub, until ctx is cancelled.
// A signal that lands mid-drain is dropped; the entries it meant to
// flush are still queued for the next one.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	var msgs <-chan broadcast.Message
	if w.hub != nil {
		ch, cancel := w.hub.Subscribe()
		defer cancel()
		msgs = ch
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.signal(ctx)
		case msg, open := <-msgs:
			if !open {
				msgs = nil
				continue
			}
			if msg.Type == broadcast.TypeSkipWaiting {
				w.signal(ctx)
			}
		}
	}
}

func (w *Worker) signal(ctx context.Context) {
	if _, err := w.HandleSyncSignal(ctx); err != nil && err != ErrDrainInProgress {
		w.log.Error("sync cycle failed", zap.Error(err))
	}
}
