package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/libridge/shelfsync/internal/broadcast"
	"github.com/libridge/shelfsync/internal/models"
	handler "github.com/libridge/shelfsync/internal/server/handler/http"
)

// fakeQueue serves canned queue contents.
type fakeQueue struct {
	list []models.PendingMutation
	err  error
}

func (f *fakeQueue) Pending(context.Context) (int, error) {
	return len(f.list), f.err
}

func (f *fakeQueue) ListAll(context.Context) ([]models.PendingMutation, error) {
	return f.list, f.err
}

type fakeWorker struct{ draining bool }

func (f *fakeWorker) Draining() bool { return f.draining }

func newTestRouter(q *fakeQueue, w *fakeWorker, hub *broadcast.Hub) http.Handler {
	return handler.NewRouter(&handler.ControlHandler{Queue: q, Worker: w, Hub: hub}, zap.NewNop())
}

func TestStatus(t *testing.T) {
	q := &fakeQueue{list: []models.PendingMutation{{ID: "a", Action: models.ActionBorrow}}}
	router := newTestRouter(q, &fakeWorker{draining: true}, broadcast.New())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", w.Code)
	}
	var body struct {
		Draining    bool `json:"draining"`
		Pending     int  `json:"pending"`
		Subscribers int  `json:"subscribers"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Draining || body.Pending != 1 {
		t.Errorf("body = %+v", body)
	}
}

func TestStatus_QueueError(t *testing.T) {
	q := &fakeQueue{err: errors.New("store gone")}
	router := newTestRouter(q, &fakeWorker{}, broadcast.New())

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d; want 500", w.Code)
	}
}

func TestPending_EmptyIsJSONArray(t *testing.T) {
	router := newTestRouter(&fakeQueue{}, &fakeWorker{}, broadcast.New())

	req := httptest.NewRequest(http.MethodGet, "/api/pending", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q; want empty JSON array", got)
	}
}

func TestTriggerSync_PublishesSkipWaiting(t *testing.T) {
	hub := broadcast.New()
	msgs, cancel := hub.Subscribe()
	defer cancel()

	router := newTestRouter(&fakeQueue{}, &fakeWorker{}, hub)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d; want 202", w.Code)
	}
	select {
	case msg := <-msgs:
		if msg.Type != broadcast.TypeSkipWaiting {
			t.Errorf("message type = %q", msg.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no SKIP_WAITING published")
	}
}

func TestMetricsEndpointMounted(t *testing.T) {
	router := newTestRouter(&fakeQueue{}, &fakeWorker{}, broadcast.New())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d; want 200", w.Code)
	}
}
