package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stagelive/queue-service/internal/cache"
	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/hub"
	"github.com/stagelive/queue-service/internal/service"
	"github.com/stagelive/queue-service/pkg/log"
)

// WSHandler upgrades subscriber connections and serves queue snapshots.
type WSHandler struct {
	hub          *hub.Hub
	queueService service.QueueService
	snapshots    cache.SnapshotCache
	upgrader     websocket.Upgrader
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, queueService service.QueueService, snapshots cache.SnapshotCache) *WSHandler {
	return &WSHandler{
		hub:          h,
		queueService: queueService,
		snapshots:    snapshots,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for now
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	l := log.Ctx(c.Request.Context())

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &hub.Client{
		ID:   uuid.New().String(),
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
	}
	client.SetDisconnectHandler(func(dc *hub.Client) {
		l.Debug().Str("client_id", dc.ID).Msg("subscriber disconnected")
	})

	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(func(c *hub.Client, message []byte) {
		h.handleMessage(c, message)
	})
}

func (h *WSHandler) handleMessage(c *hub.Client, message []byte) {
	ctx := context.Background()

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		c.SendMessage(domain.NewErrorMessage("invalid message format"))
		return
	}

	switch base.Type {
	case domain.MsgTypeSubscribe:
		var msg domain.SubscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("invalid subscribe message"))
			return
		}
		h.handleSubscribe(ctx, c, msg.RoomType)

	case domain.MsgTypeUnsubscribe:
		var msg domain.SubscribeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.SendMessage(domain.NewErrorMessage("invalid unsubscribe message"))
			return
		}
		roomType, err := domain.ParseRoomType(msg.RoomType)
		if err != nil {
			c.SendMessage(domain.NewErrorMessage(err.Error()))
			return
		}
		if room, roomErr := h.queueService.Room(roomType); roomErr == nil {
			h.hub.LeaveRoom(c, room.ID)
		}

	default:
		c.SendMessage(domain.NewErrorMessage("unknown message type: " + base.Type))
	}
}

// handleSubscribe joins the client to the room and primes it with the current
// snapshot: from the cache when warm, otherwise straight from the store.
func (h *WSHandler) handleSubscribe(ctx context.Context, c *hub.Client, roomTypeStr string) {
	l := log.L()

	roomType, err := domain.ParseRoomType(roomTypeStr)
	if err != nil {
		c.SendMessage(domain.NewErrorMessage(err.Error()))
		return
	}

	room, err := h.queueService.Room(roomType)
	if err != nil {
		c.SendMessage(domain.NewErrorMessage("unknown room"))
		return
	}

	h.hub.JoinRoom(c, room.ID)

	var snap *domain.Snapshot
	if h.snapshots != nil {
		if cached, cacheErr := h.snapshots.Get(ctx, room.ID); cacheErr == nil {
			snap = cached
		} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
			l.Warn().Err(cacheErr).Str(log.FieldRoomID, room.ID).Msg("snapshot cache read failed")
		}
	}
	if snap == nil {
		snap, err = h.queueService.Snapshot(ctx, room.ID)
		if err != nil {
			l.Error().Err(err).Str(log.FieldRoomID, room.ID).Msg("failed to compute initial snapshot")
			c.SendMessage(domain.NewErrorMessage("failed to load queue state"))
			return
		}
	}

	c.SendMessage(domain.NewSnapshotMessage(snap))
}
