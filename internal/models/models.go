// Package models defines the core data structures for pending mutations
// and the borrowing cart.
package models

import "encoding/json"

// Action identifies the kind of write operation a pending mutation carries.
type Action string

const (
	// ActionAddToCart adds a book to the borrowing cart.
	ActionAddToCart Action = "ADD_TO_CART"
	// ActionRemoveFromCart removes a book from the borrowing cart.
	ActionRemoveFromCart Action = "REMOVE_FROM_CART"
	// ActionBorrow turns the cart (or a single book) into a borrow record.
	ActionBorrow Action = "BORROW"
	// ActionFavorite marks a book as a favourite.
	ActionFavorite Action = "FAVORITE"
	// ActionUnfavorite removes a book from favourites.
	ActionUnfavorite Action = "UNFAVORITE"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionAddToCart, ActionRemoveFromCart, ActionBorrow, ActionFavorite, ActionUnfavorite:
		return true
	}
	return false
}

// PendingMutation is a write operation recorded locally but not yet
// confirmed by the remote API. It stays in its queue until the sync
// worker replays it successfully.
type PendingMutation struct {
	// ID is a client-generated unique identifier, used for dedup and
	// for correlating sync results back to the caller.
	ID string `json:"id"`
	// Action selects the remote endpoint the mutation is replayed against.
	Action Action `json:"action"`
	// Data is the action-specific payload, sent verbatim as the request body.
	Data json.RawMessage `json:"data"`
}

// CartItem is one entry of the borrowing cart, keyed by BookID.
type CartItem struct {
	BookID         int64    `json:"book_id"`
	Title          string   `json:"title"`
	Quantity       int      `json:"quantity"`
	AvailableCount int      `json:"available_count"`
	ThumbnailURL   string   `json:"thumbnail_url"`
	AuthorNames    []string `json:"author_names"`
}

// CartSnapshot is the client-side view of the borrowing cart.
//
// TotalBooks counts distinct titles (len(Items)); TotalCopies counts
// requested copies (sum of Quantity). Both are derived and must be
// recomputed after every local mutation.
type CartSnapshot struct {
	Items       []CartItem `json:"items"`
	TotalBooks  int        `json:"total_books"`
	TotalCopies int        `json:"total_copies"`
}

// Recompute refreshes the derived aggregates from Items.
func (s *CartSnapshot) Recompute() {
	s.TotalBooks = len(s.Items)
	s.TotalCopies = 0
	for _, it := range s.Items {
		s.TotalCopies += it.Quantity
	}
}

// Clone returns a deep copy of the snapshot, safe to keep as a rollback
// point while the original keeps changing.
func (s *CartSnapshot) Clone() *CartSnapshot {
	if s == nil {
		return nil
	}
	out := &CartSnapshot{
		Items:       make([]CartItem, len(s.Items)),
		TotalBooks:  s.TotalBooks,
		TotalCopies: s.TotalCopies,
	}
	copy(out.Items, s.Items)
	for i, it := range s.Items {
		if it.AuthorNames != nil {
			out.Items[i].AuthorNames = append([]string(nil), it.AuthorNames...)
		}
	}
	return out
}

// SyncResult is the aggregate outcome of one drain cycle of the sync
// worker. Per-mutation detail is deliberately not carried; consumers
// only ever see the counts.
type SyncResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
