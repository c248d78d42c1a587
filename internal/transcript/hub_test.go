package transcript

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d subscribers, have %d", n, h.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	c1 := dialHub(t, srv)
	defer c1.Close()
	c2 := dialHub(t, srv)
	defer c2.Close()
	waitSubscribers(t, hub, 2)

	rec := Record{UtteranceID: "u-1", SourceLang: "en", TargetLang: "fr", SourceText: "hello", TargetText: "bonjour"}
	if err := hub.Append(rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	for _, c := range []*websocket.Conn{c1, c2} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got Record
		if err := c.ReadJSON(&got); err != nil {
			t.Fatalf("read: %v", err)
		}
		if got.UtteranceID != "u-1" || got.TargetText != "bonjour" {
			t.Errorf("Unexpected record %+v", got)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	c := dialHub(t, srv)
	waitSubscribers(t, hub, 1)

	c.Close()
	waitSubscribers(t, hub, 0)

	if err := hub.Append(Record{SourceText: "nobody listening"}); err != nil {
		t.Errorf("Append with no subscribers: %v", err)
	}
}
