// Package queue implements the pending-mutation queue: per-namespace
// JSON arrays of not-yet-synchronized write operations layered over the
// generic key-value store.
//
// Within one namespace the array preserves insertion order and that is
// the replay order. Across namespaces no global ordering exists; ListAll
// concatenates lists in key-enumeration order only.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/libridge/shelfsync/internal/models"
	"github.com/libridge/shelfsync/internal/store"
)

// Prefix marks the storage keys that hold pending-mutation lists.
const Prefix = "pending_mutations:"

// Key returns the storage key for a namespace's mutation list.
func Key(namespace string) string {
	return Prefix + namespace
}

// Queue manages pending mutations on top of a Store. All list updates
// are whole-array read-modify-writes guarded by a process-local mutex;
// concurrent writers from other processes are not arbitrated (shared
// stores should use the Postgres or Redis backend with a single agent
// draining them).
type Queue struct {
	mu    sync.Mutex
	store store.Store
}

// New returns a Queue over s.
func New(s store.Store) *Queue {
	return &Queue{store: s}
}

// Enqueue appends m to the namespace's list and persists it before
// returning, so the mutation survives an immediate process exit.
func (q *Queue) Enqueue(ctx context.Context, namespace string, m models.PendingMutation) error {
	if !m.Action.Valid() {
		return fmt.Errorf("enqueue: unknown action %q", m.Action)
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx, namespace)
	if err != nil {
		return err
	}
	list = append(list, m)
	return q.save(ctx, namespace, list)
}

// List returns the namespace's mutations in insertion order.
func (q *Queue) List(ctx context.Context, namespace string) ([]models.PendingMutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load(ctx, namespace)
}

// Namespaces returns every namespace that currently has a stored list,
// including empty ones not yet deleted.
func (q *Queue) Namespaces(ctx context.Context) ([]string, error) {
	keys, err := q.store.Keys(ctx, Prefix)
	if err != nil {
		return nil, fmt.Errorf("list queue keys: %w", err)
	}
	namespaces := make([]string, 0, len(keys))
	for _, k := range keys {
		namespaces = append(namespaces, strings.TrimPrefix(k, Prefix))
	}
	return namespaces, nil
}

// ListAll concatenates every namespace's list in key-enumeration order.
// Only the order within a single namespace is meaningful.
func (q *Queue) ListAll(ctx context.Context) ([]models.PendingMutation, error) {
	namespaces, err := q.Namespaces(ctx)
	if err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	var all []models.PendingMutation
	for _, ns := range namespaces {
		list, err := q.load(ctx, ns)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	return all, nil
}

// RemoveByID deletes the mutation with the given id from the namespace's
// list, writing the whole array back in one step. Removing an absent id
// is not an error. An emptied list is deleted from the store.
func (q *Queue) RemoveByID(ctx context.Context, namespace, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	list, err := q.load(ctx, namespace)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, m := range list {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	if len(kept) == 0 {
		return q.store.Delete(ctx, Key(namespace))
	}
	return q.save(ctx, namespace, kept)
}

// Pending returns the total number of queued mutations across all
// namespaces.
func (q *Queue) Pending(ctx context.Context) (int, error) {
	all, err := q.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// load reads and decodes one namespace's list. Caller holds mu.
func (q *Queue) load(ctx context.Context, namespace string) ([]models.PendingMutation, error) {
	raw, err := q.store.Get(ctx, Key(namespace))
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue %s: %w", namespace, err)
	}
	var list []models.PendingMutation
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("decode queue %s: %w", namespace, err)
	}
	return list, nil
}

// save encodes and writes one namespace's list. Caller holds mu.
func (q *Queue) save(ctx context.Context, namespace string, list []models.PendingMutation) error {
	buf, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode queue %s: %w", namespace, err)
	}
	if err := q.store.Set(ctx, Key(namespace), string(buf)); err != nil {
		return fmt.Errorf("save queue %s: %w", namespace, err)
	}
	return nil
}
