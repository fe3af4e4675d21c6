package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDo_SendsJSONBody(t *testing.T) {
	var (
		gotMethod      string
		gotPath        string
		gotContentType string
		gotBody        map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 0, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	err = c.Do(context.Background(), http.MethodPost, "/api/favourites", json.RawMessage(`{"book_id":42}`))
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/api/favourites" {
		t.Errorf("request = %s %s; want POST /api/favourites", gotMethod, gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["book_id"] != float64(42) {
		t.Errorf("body = %v", gotBody)
	}
}

func TestDo_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient stock", http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 0, nil)
	err := c.Do(context.Background(), http.MethodPost, "/api/borrows", json.RawMessage(`{}`))

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v; want *StatusError", err)
	}
	if statusErr.Code != http.StatusForbidden || statusErr.Body != "insufficient stock" {
		t.Errorf("StatusError = %+v", statusErr)
	}
}

func TestFetchCart_MapsWireShapeAndRecomputes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/borrow-carts" {
			t.Errorf("path = %s", r.URL.Path)
		}
		// server-sent totals are deliberately wrong; the client recomputes
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"items": [
				{"book_id":1,"title":"Dune","quantity":2,"available_count":5,"author_names":["Frank Herbert"]},
				{"book_id":2,"title":"Solaris","quantity":1,"available_count":3,"author_names":["Stanislaw Lem"]}
			],
			"total_books": 99,
			"total_copies": 99
		}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 0, nil)
	snap, err := c.FetchCart(context.Background())
	if err != nil {
		t.Fatalf("FetchCart failed: %v", err)
	}
	if len(snap.Items) != 2 {
		t.Fatalf("items = %d; want 2", len(snap.Items))
	}
	if snap.TotalBooks != 2 || snap.TotalCopies != 3 {
		t.Errorf("aggregates = (%d, %d); want (2, 3)", snap.TotalBooks, snap.TotalCopies)
	}
	if snap.Items[0].Title != "Dune" || snap.Items[0].AuthorNames[0] != "Frank Herbert" {
		t.Errorf("unexpected first item: %+v", snap.Items[0])
	}
}

func TestRemoveCartItem_SendsDeleteWithBody(t *testing.T) {
	var gotMethod string
	var gotBody cartPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, 0, nil)
	snap, err := c.RemoveCartItem(context.Background(), 7)
	if err != nil {
		t.Fatalf("RemoveCartItem failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotBody.BookID != 7 {
		t.Errorf("request = %s %+v; want DELETE book_id=7", gotMethod, gotBody)
	}
	if snap.TotalBooks != 0 || snap.TotalCopies != 0 {
		t.Errorf("empty cart aggregates = (%d, %d)", snap.TotalBooks, snap.TotalCopies)
	}
}

func TestOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	c, _ := NewClient(srv.URL, 0, nil)
	if !c.Online(context.Background()) {
		t.Error("Online = false against a live server")
	}

	srv.Close()
	if c.Online(context.Background()) {
		t.Error("Online = true against a closed server")
	}
}
