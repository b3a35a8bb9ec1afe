package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"

	"github.com/digikart/digikart-backend/pkg/logger"
)

type memoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: make(map[string]string)}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value.(string)
	return nil
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:idempotency:" + scope + ":" + id
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func idempotencyRouter(store *memoryStore, calls *int, status int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, testLogger()))
	r.Post("/api/v1/checkout", func(w http.ResponseWriter, req *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"success":true,"data":{"orderId":"abc"}}`))
	})
	r.Get("/api/v1/cart", func(w http.ResponseWriter, req *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func postCheckout(t *testing.T, router http.Handler, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusOK)

	first := postCheckout(t, router, "key-1", `{"couponCode":"SAVE10"}`)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d", first.Code)
	}
	second := postCheckout(t, router, "key-1", `{"couponCode":"SAVE10"}`)
	if second.Code != http.StatusOK {
		t.Fatalf("replay status = %d", second.Code)
	}
	if second.Header().Get(replayHeader) != "true" {
		t.Fatal("replay header missing")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body = %q, want %q", second.Body.String(), first.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusOK)

	postCheckout(t, router, "key-1", `{"couponCode":"SAVE10"}`)
	rec := postCheckout(t, router, "key-1", `{"couponCode":"FLAT40"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func TestIdempotencyRequiresKeyOnMatchedRoute(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusOK)

	rec := postCheckout(t, router, "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler calls = %d, want 0", calls)
	}
}

func TestIdempotencyIgnoresUnmatchedRoutes(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if len(store.values) != 0 {
		t.Fatalf("store should stay empty, has %d keys", len(store.values))
	}
}

func TestIdempotencyEngagesInsideNestedRouters(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, testLogger()))
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", func(w http.ResponseWriter, req *http.Request) {
				calls++
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"success":true}`))
			})
		})
	})

	rec := postCheckout(t, r, "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing key status = %d, want 400", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler calls = %d, want 0", calls)
	}

	first := postCheckout(t, r, "key-1", `{}`)
	second := postCheckout(t, r, "key-1", `{}`)
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if second.Header().Get(replayHeader) != "true" {
		t.Fatal("replay header missing")
	}
	if second.Code != first.Code {
		t.Fatalf("replay status = %d, want %d", second.Code, first.Code)
	}
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusInternalServerError)

	postCheckout(t, router, "key-1", `{}`)
	postCheckout(t, router, "key-1", `{}`)
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2 (failures must be retryable)", calls)
	}
}

func TestIdempotencyCachesClientErrors(t *testing.T) {
	store := newMemoryStore()
	calls := 0
	router := idempotencyRouter(store, &calls, http.StatusUnprocessableEntity)

	first := postCheckout(t, router, "key-1", `{}`)
	second := postCheckout(t, router, "key-1", `{}`)
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if second.Code != first.Code {
		t.Fatalf("replay status = %d, want %d", second.Code, first.Code)
	}
}
