package ws

import (
	"context"
	"encoding/json"
	"sync"

	"rehab-service/pkg/logger"
	"rehab-service/pkg/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub groups websocket clients into one room per game and fans refresh
// signals out to them. With redis configured, signals go through a pub/sub
// topic so every server instance delivers them to its own clients.
type Hub struct {
	rdb   *redis.Client
	topic string

	mu    sync.RWMutex
	rooms map[int64]map[*client]struct{}
}

func NewHub(rdb *redis.Client, topic string) *Hub {
	if topic == "" {
		topic = "live:refresh"
	}
	return &Hub{
		rdb:   rdb,
		topic: topic,
		rooms: make(map[int64]map[*client]struct{}),
	}
}

// NotifyRefresh announces that gameID changed.
func (h *Hub) NotifyRefresh(ctx context.Context, gameID int64) {
	if h.rdb != nil {
		payload, _ := json.Marshal(types.WSMessage{Type: types.WSRefresh, GameID: gameID})
		err := h.rdb.Publish(context.WithoutCancel(ctx), h.topic, payload).Err()
		if err == nil {
			return
		}
		logger.Log.Warn("refresh publish failed, delivering locally",
			zap.Int64("gameID", gameID),
			zap.Error(err),
		)
	}
	h.Broadcast(gameID)
}

// Broadcast sends a refresh frame to every local client in the game's room.
// Clients with a full outbox are skipped; they will pick the change up on
// their next poll.
func (h *Hub) Broadcast(gameID int64) int {
	msg := types.WSMessage{Type: types.WSRefresh, GameID: gameID}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.rooms[gameID] {
		select {
		case c.send <- msg:
			sent++
		default:
			logger.Log.Debug("ws outbox full, refresh dropped",
				zap.String("connID", c.id),
				zap.Int64("gameID", gameID),
			)
		}
	}
	return sent
}

// Run relays refresh signals from redis until ctx is done. Without redis it
// only waits for ctx.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}

	sub := h.rdb.Subscribe(ctx, h.topic)
	defer sub.Close()

	logger.Log.Info("ws hub relay started", zap.String("topic", h.topic))
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("ws hub relay stopped")
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var msg types.WSMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil || msg.GameID == 0 {
				logger.Log.Warn("invalid refresh payload", zap.String("payload", m.Payload))
				continue
			}
			h.Broadcast(msg.GameID)
		}
	}
}

// RoomSize reports how many local clients watch gameID.
func (h *Hub) RoomSize(gameID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

func (h *Hub) join(c *client, gameID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.gameID != 0 && c.gameID != gameID {
		h.removeLocked(c)
	}
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[gameID] = room
	}
	room[c] = struct{}{}
	c.gameID = gameID
}

func (h *Hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	room, ok := h.rooms[c.gameID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.gameID)
	}
	c.gameID = 0
}
