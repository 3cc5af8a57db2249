package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

// Server event types
const (
	EventTyping       = "typing"
	EventMessage      = "message"
	EventMessagePatch = "message_patch"
	EventUnread       = "unread"
	EventToast        = "toast"
	EventPong         = "pong"
	EventError        = "error"
)

// Client event types
const (
	ClientViewRoom = "view_room"
	ClientPing     = "ping"
)

// Event is the envelope of every frame in both directions
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type typingPayload struct {
	RoomID      string `json:"roomId"`
	CharacterID uint   `json:"characterId"`
	Typing      bool   `json:"typing"`
}

type patchPayload struct {
	RoomID    string              `json:"roomId"`
	MessageID string              `json:"messageId"`
	Patch     models.MessagePatch `json:"patch"`
}

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type toastPayload struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// ViewFunc is called when a client starts looking at a room
type ViewFunc func(ctx context.Context, roomID string) error

// Hub fans chat events out to every connected client and remembers which
// room the user is looking at
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	onView     ViewFunc
	log        *logger.Logger

	mu         sync.RWMutex
	activeRoom string
	activeBy   *Client
}

func NewHub(onView ViewFunc, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Discard()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		onView:     onView,
		log:        log,
	}
}

// Run serves registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.log.Debug("websocket client registered", "client_id", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.forget(client)
				h.log.Debug("websocket client unregistered", "client_id", client.id)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
					h.forget(client)
					h.log.Warn("websocket client dropped, send buffer full", "client_id", client.id)
				}
			}
		}
	}
}

// attach hands a new client to Run. It reports false once the hub has stopped.
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ActiveRoomID returns the room the user is currently viewing
func (h *Hub) ActiveRoomID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.activeRoom
}

func (h *Hub) view(ctx context.Context, c *Client, roomID string) {
	h.mu.Lock()
	h.activeRoom = roomID
	h.activeBy = c
	h.mu.Unlock()

	if roomID == "" || h.onView == nil {
		return
	}
	if err := h.onView(ctx, roomID); err != nil {
		h.log.WithRoom(roomID).LogError(err, "reset unread failed")
		return
	}
	h.publish(EventUnread, map[string]any{"roomId": roomID, "unreadCount": 0})
}

// forget clears the active room when the client that set it goes away
func (h *Hub) forget(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.activeBy == c {
		h.activeRoom = ""
		h.activeBy = nil
	}
}

func (h *Hub) PublishTyping(roomID string, characterID uint, typing bool) {
	h.publish(EventTyping, typingPayload{RoomID: roomID, CharacterID: characterID, Typing: typing})
}

// PublishMessage announces a committed message. Character messages outside
// the viewed room also raise an unread event.
func (h *Hub) PublishMessage(msg *models.Message) {
	h.publish(EventMessage, msg)
	if !msg.IsFromPersona() && msg.RoomID != h.ActiveRoomID() {
		h.publish(EventUnread, roomPayload{RoomID: msg.RoomID})
	}
}

func (h *Hub) PublishMessagePatch(roomID, messageID string, patch models.MessagePatch) {
	h.publish(EventMessagePatch, patchPayload{RoomID: roomID, MessageID: messageID, Patch: patch})
}

func (h *Hub) PublishToast(roomID, text string) {
	h.publish(EventToast, toastPayload{RoomID: roomID, Text: text})
}

func (h *Hub) publish(eventType string, payload any) {
	data, err := encode(eventType, payload)
	if err != nil {
		h.log.LogError(err, "encode websocket event failed", "type", eventType)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("websocket broadcast queue full, event dropped", "type", eventType)
	}
}

func encode(eventType string, payload any) ([]byte, error) {
	ev := Event{Type: eventType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		ev.Payload = raw
	}
	return json.Marshal(ev)
}
