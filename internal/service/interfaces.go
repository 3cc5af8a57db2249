package service

import (
	"context"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

// Store is the persistence surface the chat pipeline reads and dispatches to
type Store interface {
	GetRoom(ctx context.Context, id string) (*models.Room, error)
	GetCharacters(ctx context.Context, ids []uint) ([]*models.Character, error)
	GetPersona(ctx context.Context, id string) (*models.Persona, error)
	GetSettings(ctx context.Context) (*models.Settings, error)
	// ListMessages returns the room history ordered by creation time
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	UpsertMessage(ctx context.Context, msg *models.Message) error
	UpdateMessage(ctx context.Context, id string, patch models.MessagePatch) error
	AddRoomMemory(ctx context.Context, roomID, memory string) error
	// IncrementUnread bumps the unread counter of msg's room unless it is the active one
	IncrementUnread(ctx context.Context, msg *models.Message, activeRoomID string) error
}

// ChatCaller produces one generation for one responder
type ChatCaller interface {
	CallAPI(ctx context.Context, req ai.CallRequest) (*ai.ChatResponse, error)
}

// ImageTask is a pending image generation
type ImageTask interface {
	// Await blocks until the picture is ready and returns it as a data URL
	Await(ctx context.Context) (string, error)
}

// GeneratedImage is either an inline picture or a task that delivers one later
type GeneratedImage struct {
	// DataURL is set when the backend answered synchronously
	DataURL string
	Task    ImageTask
}

// ImageGenerator draws the pictures requested by structured replies
type ImageGenerator interface {
	Generate(ctx context.Context, setting models.ImageGenerationSetting, character *models.Character) (*GeneratedImage, error)
}

// EventPublisher pushes chat events to connected clients
type EventPublisher interface {
	PublishTyping(roomID string, characterID uint, typing bool)
	PublishMessage(msg *models.Message)
	PublishMessagePatch(roomID, messageID string, patch models.MessagePatch)
	PublishToast(roomID, text string)
	// ActiveRoomID is the room the user is currently looking at, empty when none
	ActiveRoomID() string
}

// RoomLocker allows at most one running orchestration per room
type RoomLocker interface {
	// Acquire returns a ROOM_BUSY error when the room is already responding
	Acquire(ctx context.Context, roomID string) (release func(), err error)
}

// Translator renders user-facing strings
type Translator interface {
	T(key string, vars map[string]string) string
}

// Repository adds the management operations used by the HTTP layer
type Repository interface {
	Store
	ListRooms(ctx context.Context) ([]models.Room, error)
	SaveRoom(ctx context.Context, room *models.Room) error
	ListCharacters(ctx context.Context) ([]models.Character, error)
	SaveCharacter(ctx context.Context, character *models.Character) error
	SavePersona(ctx context.Context, persona *models.Persona) error
	SaveSettings(ctx context.Context, settings *models.Settings) error
	ResetUnread(ctx context.Context, roomID string) error
}

var (
	_ Repository = (*GormStore)(nil)
	_ Repository = (*MemoryStore)(nil)
)
