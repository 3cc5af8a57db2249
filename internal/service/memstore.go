package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// MemoryStore keeps everything in process memory. It backs the server when
// no database is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	rooms      map[string]models.Room
	characters map[uint]models.Character
	personas   map[string]models.Persona
	messages   map[string][]models.Message
	settings   models.Settings
	nextCharID uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:      make(map[string]models.Room),
		characters: make(map[uint]models.Character),
		personas:   make(map[string]models.Persona),
		messages:   make(map[string][]models.Message),
		settings:   models.Settings{ID: settingsRowID},
	}
}

func (s *MemoryStore) GetRoom(_ context.Context, id string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("ROOM_NOT_FOUND", fmt.Sprintf("room %s not found", id))
	}
	room.MemberIDs = slices.Clone(room.MemberIDs)
	room.Memories = slices.Clone(room.Memories)
	return &room, nil
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt) })
	return rooms, nil
}

func (s *MemoryStore) SaveRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	return nil
}

func (s *MemoryStore) GetCharacters(_ context.Context, ids []uint) ([]*models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Character, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.characters[id]; ok {
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListCharacters(_ context.Context) ([]models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Character, 0, len(s.characters))
	for _, c := range s.characters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveCharacter assigns the next free id to characters without one
func (s *MemoryStore) SaveCharacter(_ context.Context, character *models.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if character.ID == 0 {
		s.nextCharID++
		for s.characters[s.nextCharID].ID != 0 {
			s.nextCharID++
		}
		character.ID = s.nextCharID
	}
	s.characters[character.ID] = *character
	return nil
}

func (s *MemoryStore) GetPersona(_ context.Context, id string) (*models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("PERSONA_NOT_FOUND", fmt.Sprintf("persona %s not found", id))
	}
	return &p, nil
}

func (s *MemoryStore) SavePersona(_ context.Context, persona *models.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[persona.ID] = *persona
	return nil
}

func (s *MemoryStore) GetSettings(_ context.Context) (*models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.settings
	return &settings, nil
}

func (s *MemoryStore) SaveSettings(_ context.Context, settings *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings.ID = settingsRowID
	s.settings = *settings
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, roomID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[roomID]), nil
}

func (s *MemoryStore) UpsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.messages[msg.RoomID]
	for i := range list {
		if list[i].ID == msg.ID {
			list[i] = *msg
			return nil
		}
	}
	list = append(list, *msg)
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	s.messages[msg.RoomID] = list
	return nil
}

// UpdateMessage patches a message wherever it lives; unknown ids are ignored
func (s *MemoryStore) UpdateMessage(_ context.Context, id string, patch models.MessagePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for roomID, list := range s.messages {
		for i := range list {
			if list[i].ID != id {
				continue
			}
			if patch.Content != nil {
				list[i].Content = *patch.Content
			}
			if patch.File != nil {
				list[i].File = patch.File
			}
			s.messages[roomID] = list
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) AddRoomMemory(_ context.Context, roomID, memory string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return apperrors.NewNotFoundError("ROOM_NOT_FOUND", fmt.Sprintf("room %s not found", roomID))
	}
	room.Memories = append(slices.Clone(room.Memories), memory)
	s.rooms[roomID] = room
	return nil
}

func (s *MemoryStore) IncrementUnread(_ context.Context, msg *models.Message, activeRoomID string) error {
	if msg.IsFromPersona() || msg.RoomID == activeRoomID {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[msg.RoomID]; ok {
		room.UnreadCount++
		s.rooms[msg.RoomID] = room
	}
	return nil
}

func (s *MemoryStore) ResetUnread(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		room.UnreadCount = 0
		s.rooms[roomID] = room
	}
	return nil
}
