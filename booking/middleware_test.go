package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"opd-booking/booking/application"
	"opd-booking/booking/domain"
	"opd-booking/booking/infra"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func TestConcurrencyMiddleware_TimesOutWhenNoSlot(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	secondDone := make(chan struct{})
	var startedOnce sync.Once

	// handler que segura a vaga até liberarmos.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	})

	pool := infra.NewChanPool(1)
	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		RejectStatus:   http.StatusServiceUnavailable,
		AcquireTimeout: 25 * time.Millisecond,
	})(next)

	var wg sync.WaitGroup
	wg.Add(2)

	// request 1: ocupa o semáforo e fica pendurado
	go func() {
		defer wg.Done()
		r1 := httptest.NewRequest(http.MethodPost, "http://example/book", nil)
		w1 := httptest.NewRecorder()
		h.ServeHTTP(w1, r1)
		if w1.Code != http.StatusOK {
			t.Errorf("expected first request 200, got %d", w1.Code)
		}
	}()

	select {
	case <-started:
	case <-time.After(200 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting first request to start")
	}
	if got := pool.InFlight(); got != 1 {
		t.Errorf("expected 1 request in flight, got %d", got)
	}

	// request 2: deve falhar por timeout ao tentar adquirir
	go func() {
		defer wg.Done()
		r2 := httptest.NewRequest(http.MethodPost, "http://example/book", nil)
		w2 := httptest.NewRecorder()
		h.ServeHTTP(w2, r2)
		if w2.Code != http.StatusServiceUnavailable {
			t.Errorf("expected second request 503, got %d", w2.Code)
		}
		if !strings.Contains(w2.Body.String(), `"detail"`) {
			t.Errorf("expected detail body, got %q", w2.Body.String())
		}
		close(secondDone)
	}()

	select {
	case <-secondDone:
	case <-time.After(500 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting second request to finish")
	}

	close(release)
	wg.Wait()
	if got := pool.InFlight(); got != 0 {
		t.Fatalf("expected pool drained, got %d in flight", got)
	}
}

func TestConcurrencyMiddleware_SkipBypassesPool(t *testing.T) {
	pool := infra.NewChanPool(1)
	hold, cancel := context.WithCancel(context.Background())
	defer cancel()
	if _, ok := pool.Acquire(hold); !ok {
		t.Fatalf("expected to fill the pool")
	}

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		AcquireTimeout: 10 * time.Millisecond,
		Skip:           func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/ws/") },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/ws/dr1/9am", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("skipped path: expected 204, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/status/dr1/9am", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("full pool: expected 503, got %d", w.Code)
	}
}

func TestConcurrencyMiddleware_NilPoolIsPassthrough(t *testing.T) {
	called := false
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "http://example/", nil))
	if !called {
		t.Fatalf("expected next handler to be called")
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest(http.MethodGet, "http://example/health", nil)
	r.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected client request id echoed, got %q", got)
	}
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected status passthrough, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/health", nil))
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated uuid, got %q: %v", w.Header().Get(requestIDHeader), err)
	}
}

func TestRouter_WebsocketReceivesSlotEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := infra.NewHub()
	go hub.Run(ctx)

	svc := &application.BookingService{
		Registry: infra.NewMemoryRegistry(infra.NewAtomicSequence()),
		Events:   hub,
		Now:      func() time.Time { return t0 },
	}
	h := RequestLogger(NewRouter(RouterOptions{Service: svc, Events: hub}))
	srv := httptest.NewServer(h)
	defer srv.Close()

	createDoctor(t, h, "dr1", `{"9am":1}`)

	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, resp, err := websocket.DefaultDialer.Dial(base+"/ws/dr1/noon", nil); err == nil {
		t.Fatalf("expected dial to unknown slot to fail")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slot, got %v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/dr1/9am", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Subscribers("dr1", "9am") != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for subscriber")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if w := do(t, h, http.MethodPost, "/book?doctor_id=dr1&slot_id=9am&source=PAID", ""); w.Code != http.StatusOK {
		t.Fatalf("book: expected 200, got %d", w.Code)
	}

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if ev.Type != domain.EventAdmitted || ev.Priority != domain.PriorityPaid || ev.Slot != "9am" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
