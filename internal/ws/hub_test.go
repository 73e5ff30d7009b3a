package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rehab-service/internal/ws"
	"rehab-service/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func newServer(t *testing.T) (*ws.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := ws.NewHub(nil, "")
	r := gin.New()
	r.GET("/ws", ws.NewHandler(hub).HandleWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) types.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg types.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestJoinAndRefresh(t *testing.T) {
	hub, url := newServer(t)

	a := dial(t, url)
	if err := a.WriteJSON(types.WSMessage{Type: types.WSJoin, GameID: 7}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(t, a); msg.Type != types.WSJoined || msg.GameID != 7 {
		t.Fatalf("unexpected join reply: %+v", msg)
	}

	b := dial(t, url+"?gameId=8")
	if msg := read(t, b); msg.Type != types.WSJoined || msg.GameID != 8 {
		t.Fatalf("unexpected join reply: %+v", msg)
	}

	hub.NotifyRefresh(context.Background(), 7)
	if msg := read(t, a); msg.Type != types.WSRefresh || msg.GameID != 7 {
		t.Fatalf("unexpected refresh: %+v", msg)
	}

	b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray types.WSMessage
	if err := b.ReadJSON(&stray); err == nil {
		t.Fatalf("client in another room got %+v", stray)
	}
}

func TestRejoinMovesRoom(t *testing.T) {
	hub, url := newServer(t)

	c := dial(t, url)
	for _, id := range []int64{1, 2} {
		if err := c.WriteJSON(types.WSMessage{Type: types.WSJoin, GameID: id}); err != nil {
			t.Fatalf("write: %v", err)
		}
		read(t, c)
	}
	if hub.RoomSize(1) != 0 || hub.RoomSize(2) != 1 {
		t.Fatalf("room sizes: game1=%d game2=%d", hub.RoomSize(1), hub.RoomSize(2))
	}
}

func TestInvalidFrames(t *testing.T) {
	_, url := newServer(t)
	c := dial(t, url)

	if err := c.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(t, c); msg.Type != types.WSError {
		t.Fatalf("expected error frame, got %+v", msg)
	}

	if err := c.WriteJSON(types.WSMessage{Type: types.WSJoin}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := read(t, c); msg.Type != types.WSError || msg.Message != "invalid game id" {
		t.Fatalf("expected invalid game id, got %+v", msg)
	}
}

func TestLeaveOnClose(t *testing.T) {
	hub, url := newServer(t)
	c := dial(t, url+"?gameId=3")
	read(t, c)
	c.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(3) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client still in room after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
