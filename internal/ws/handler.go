package ws

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	pkgAuth "rehab-service/pkg/auth"
	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit  = 4 << 10
	pongWait   = 60 * time.Second
	pingEvery  = 25 * time.Second
	writeWait  = 5 * time.Second
	outboxSize = 8
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // boards are served from other origins
	},
}

// HandleWS upgrades /ws. Anyone may watch a game; a token, when present, is
// only used to tag the connection in logs. A gameId query parameter joins
// that room right away.
func (h *Handler) HandleWS(c *gin.Context) {
	var userID int64
	if token := getTokenFromRequest(c); token != "" {
		if claims, err := pkgAuth.ParseUserToken(token); err == nil {
			userID = claims.SubjectID
		}
	}

	var initial int64
	if raw := strings.TrimSpace(c.Query("gameId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid game id"})
			return
		}
		initial = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	cl := newClient(h.hub, conn, userID)
	logger.Log.Info("New WebSocket connection",
		zap.String("connID", cl.id),
		zap.Int64("userID", userID),
	)
	if initial != 0 {
		cl.joinGame(initial)
	}
	cl.run()
}

func getTokenFromRequest(c *gin.Context) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

type client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	userID int64
	send   chan types.WSMessage
	done   chan struct{}

	// gameID is guarded by hub.mu.
	gameID int64
}

func newClient(hub *Hub, conn *websocket.Conn, userID int64) *client {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &client{
		id:     uuid.NewString(),
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan types.WSMessage, outboxSize),
		done:   make(chan struct{}),
	}
}

func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) joinGame(gameID int64) {
	c.hub.join(c, gameID)
	c.enqueue(types.WSMessage{Type: types.WSJoined, GameID: gameID})
}

func (c *client) enqueue(msg types.WSMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.hub.leave(c)
		c.conn.Close()
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.String("connID", c.id))
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming types.WSMessage
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.enqueue(types.WSMessage{Type: types.WSError, Message: "invalid payload"})
			continue
		}
		switch incoming.Type {
		case types.WSJoin:
			if incoming.GameID <= 0 {
				c.enqueue(types.WSMessage{Type: types.WSError, Message: "invalid game id"})
				continue
			}
			c.joinGame(incoming.GameID)
		case "":
		default:
			c.enqueue(types.WSMessage{Type: types.WSError, Message: "unknown type"})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.String("connID", c.id))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
