package domain

import "fmt"

// RoomType names a broadcast context. Each room type owns exactly one queue
// and at most one live slot.
type RoomType string

const (
	RoomTypeAudition RoomType = "audition"
	RoomTypeMainShow RoomType = "main_show"
)

// ParseRoomType validates a room type string.
func ParseRoomType(s string) (RoomType, error) {
	switch RoomType(s) {
	case RoomTypeAudition, RoomTypeMainShow:
		return RoomType(s), nil
	}
	return "", fmt.Errorf("unknown room type: %q", s)
}

// Room is a registered broadcast room.
type Room struct {
	ID   string   `json:"id"`
	Type RoomType `json:"type"`
	Name string   `json:"name"`
}

// Registry holds the valid room instances. Room IDs come from configuration;
// there is exactly one room per type.
type Registry struct {
	byType map[RoomType]Room
	byID   map[string]Room
}

// NewRegistry creates a registry from the configured rooms.
func NewRegistry(rooms []Room) *Registry {
	r := &Registry{
		byType: make(map[RoomType]Room, len(rooms)),
		byID:   make(map[string]Room, len(rooms)),
	}
	for _, room := range rooms {
		r.byType[room.Type] = room
		r.byID[room.ID] = room
	}
	return r
}

// Get returns the room for a type.
func (r *Registry) Get(t RoomType) (Room, bool) {
	room, ok := r.byType[t]
	return room, ok
}

// GetByID returns the room for a room ID.
func (r *Registry) GetByID(id string) (Room, bool) {
	room, ok := r.byID[id]
	return room, ok
}

// Rooms returns all registered rooms.
func (r *Registry) Rooms() []Room {
	rooms := make([]Room, 0, len(r.byType))
	for _, room := range r.byType {
		rooms = append(rooms, room)
	}
	return rooms
}
