package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/qvu3/bb-chatbot/internal/chat"
	"github.com/qvu3/bb-chatbot/internal/identity"
)

func newSocketServer(t *testing.T, turns TurnHandler, conns *ConnManager, origins []string) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(identity.Middleware)
	r.Get("/ws/chat", NewChatSocketHandler(turns, conns, origins).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialSocket(t *testing.T, ctx context.Context, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func TestChatSocketAsk(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	turns := &fakeTurns{reply: chat.Reply{Answer: "A1", URLs: []string{"https://example.com"}}}
	srv := newSocketServer(t, turns, NewConnManager(), []string{"*"})
	conn := dialSocket(t, ctx, srv, "?session_id=ws-1")

	if err := wsjson.Write(ctx, conn, wsMessage{Type: "ask", Query: "refund"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got wsReply
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "answer" || got.Answer != "A1" || len(got.URLs) != 1 {
		t.Fatalf("unexpected reply %+v", got)
	}
	if call := turns.lastCall(); call.sessionID != "ws-1" || call.text != "refund" {
		t.Fatalf("unexpected turn %+v", call)
	}

	if err := wsjson.Write(ctx, conn, wsMessage{Type: "ask", Query: "again", SessionID: "override"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := wsjson.Read(ctx, conn, &got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if call := turns.lastCall(); call.sessionID != "override" {
		t.Fatalf("expected frame session id to win, got %q", call.sessionID)
	}
}

func TestChatSocketPingAndErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := newSocketServer(t, &fakeTurns{}, NewConnManager(), []string{"*"})
	conn := dialSocket(t, ctx, srv, "")

	exchange := func(frame string) wsReply {
		t.Helper()
		if err := conn.Write(ctx, websocket.MessageText, []byte(frame)); err != nil {
			t.Fatalf("write: %v", err)
		}
		var got wsReply
		if err := wsjson.Read(ctx, conn, &got); err != nil {
			t.Fatalf("read: %v", err)
		}
		return got
	}

	if got := exchange(`{"type":"ping"}`); got.Type != "pong" {
		t.Fatalf("expected pong, got %+v", got)
	}
	if got := exchange(`{"type":"ask","query":""}`); got.Type != "error" || got.Error != NoQueryMessage {
		t.Fatalf("expected no-query error, got %+v", got)
	}
	if got := exchange(`{"type":"resize"}`); got.Error != "unknown_message_type" {
		t.Fatalf("expected unknown type error, got %+v", got)
	}
	if got := exchange(`garbage`); got.Error != "invalid_message" {
		t.Fatalf("expected invalid message error, got %+v", got)
	}
}

func TestChatSocketRejectsOrigin(t *testing.T) {
	srv := newSocketServer(t, &fakeTurns{}, NewConnManager(), []string{"https://blackbeltprep.com"})

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/ws/chat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestChatSocketNewConnectionReplacesOld(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conns := NewConnManager()
	srv := newSocketServer(t, &fakeTurns{}, conns, []string{"*"})

	first := dialSocket(t, ctx, srv, "?session_id=dup")
	waitFor(t, func() bool { return conns.Len() == 1 })
	second := dialSocket(t, ctx, srv, "?session_id=dup")

	// The replaced connection is closed by the server.
	if _, _, err := first.Read(ctx); websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure on replaced socket, got %v", err)
	}

	if err := wsjson.Write(ctx, second, wsMessage{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got wsReply
	if err := wsjson.Read(ctx, second, &got); err != nil || got.Type != "pong" {
		t.Fatalf("second connection not usable: %+v %v", got, err)
	}
	if conns.Len() != 1 {
		t.Fatalf("expected one live connection, got %d", conns.Len())
	}
}

func TestConnManagerRegister(t *testing.T) {
	m := NewConnManager()
	conn := &websocket.Conn{}

	m.Register("tab-1", conn)

	if active := m.lookup("tab-1"); active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
}

func TestConnManagerUnregisterStale(t *testing.T) {
	m := NewConnManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	m.Register("tab-1", conn1)
	m.Register("tab-2", conn2)
	m.Unregister("tab-1", conn1)
	m.Unregister("tab-2", conn1)

	if active := m.lookup("tab-1"); active != nil {
		t.Errorf("Expected nil connection, got %v", active)
	}
	if active := m.lookup("tab-2"); active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
}

func TestConnManagerConcurrentAccess(t *testing.T) {
	m := NewConnManager()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			m.Register("tab-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()
	for i := 0; i < 1000; i++ {
		m.lookup("tab-" + strconv.Itoa(i))
	}
	<-done

	if m.Len() != 1000 {
		t.Fatalf("expected 1000 connections, got %d", m.Len())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
