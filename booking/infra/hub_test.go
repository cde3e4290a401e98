package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"opd-booking/booking/domain"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		hub.ServeWS(w, r, domain.DoctorID(parts[0]), domain.SlotID(parts[1]))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, hub *Hub, doctor domain.DoctorID, slot domain.SlotID, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers(doctor, slot) != n {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %d subscribers on %s/%s, have %d", n, doctor, slot, hub.Subscribers(doctor, slot))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_DeliversEventsOnlyToSlotSubscribers(t *testing.T) {
	hub, srv := startHub(t)

	mine := dial(t, srv, "/dr1/9am")
	other := dial(t, srv, "/dr1/10am")
	waitSubscribers(t, hub, "dr1", "9am", 1)
	waitSubscribers(t, hub, "dr1", "10am", 1)

	hub.Publish(domain.Event{
		Type:     domain.EventEvicted,
		Doctor:   "dr1",
		Slot:     "9am",
		EntryID:  7,
		Priority: domain.PriorityWalkIn,
		At:       fixedTime,
	})

	_ = mine.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := mine.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got domain.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if got.Type != domain.EventEvicted || got.EntryID != 7 || got.Priority != domain.PriorityWalkIn {
		t.Fatalf("unexpected event: %+v", got)
	}

	_ = other.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("subscriber of another slot must not receive the event")
	}
}

func TestHub_UnregistersOnClientClose(t *testing.T) {
	hub, srv := startHub(t)

	conn := dial(t, srv, "/dr1/9am")
	waitSubscribers(t, hub, "dr1", "9am", 1)

	_ = conn.Close()
	waitSubscribers(t, hub, "dr1", "9am", 0)
}

func TestHub_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(domain.Event{Type: domain.EventAdmitted, Doctor: "d", Slot: "s", Priority: domain.PriorityPaid})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked without a running hub")
	}
}
