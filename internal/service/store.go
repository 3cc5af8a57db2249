package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

const settingsRowID = 1

// GormStore persists rooms, characters, personas, messages and settings in Postgres
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the tables
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Room{},
		&models.Character{},
		&models.Persona{},
		&models.Message{},
		&models.Settings{},
	)
}

func (s *GormStore) GetRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "ROOM_NOT_FOUND", "room "+id)
	}
	return &room, nil
}

func (s *GormStore) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := s.db.WithContext(ctx).Order("updated_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *GormStore) SaveRoom(ctx context.Context, room *models.Room) error {
	return s.db.WithContext(ctx).Save(room).Error
}

// GetCharacters returns the characters in the order of ids, skipping unknown ids
func (s *GormStore) GetCharacters(ctx context.Context, ids []uint) ([]*models.Character, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*models.Character
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Character, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]*models.Character, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *GormStore) ListCharacters(ctx context.Context) ([]models.Character, error) {
	var characters []models.Character
	if err := s.db.WithContext(ctx).Order("id").Find(&characters).Error; err != nil {
		return nil, err
	}
	return characters, nil
}

func (s *GormStore) SaveCharacter(ctx context.Context, character *models.Character) error {
	return s.db.WithContext(ctx).Save(character).Error
}

func (s *GormStore) GetPersona(ctx context.Context, id string) (*models.Persona, error) {
	var persona models.Persona
	if err := s.db.WithContext(ctx).First(&persona, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "PERSONA_NOT_FOUND", "persona "+id)
	}
	return &persona, nil
}

func (s *GormStore) SavePersona(ctx context.Context, persona *models.Persona) error {
	return s.db.WithContext(ctx).Save(persona).Error
}

// GetSettings returns the settings row, or an empty one before the first save
func (s *GormStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := s.db.WithContext(ctx).First(&settings, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Settings{ID: settingsRowID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *GormStore) SaveSettings(ctx context.Context, settings *models.Settings) error {
	settings.ID = settingsRowID
	return s.db.WithContext(ctx).Save(settings).Error
}

func (s *GormStore) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormStore) UpsertMessage(ctx context.Context, msg *models.Message) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(msg).Error
}

// UpdateMessage applies a patch by id. A message deleted in the meantime is not an error.
func (s *GormStore) UpdateMessage(ctx context.Context, id string, patch models.MessagePatch) error {
	var (
		fields []string
		values models.Message
	)
	if patch.Content != nil {
		fields = append(fields, "Content")
		values.Content = *patch.Content
	}
	if patch.File != nil {
		fields = append(fields, "File")
		values.File = patch.File
	}
	if len(fields) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.Message{ID: id}).Select(fields).Updates(&values).Error
}

func (s *GormStore) AddRoomMemory(ctx context.Context, roomID, memory string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&room, "id = ?", roomID).Error; err != nil {
			return notFound(err, "ROOM_NOT_FOUND", "room "+roomID)
		}
		room.Memories = append(room.Memories, memory)
		return tx.Model(&room).Select("Memories").Updates(&models.Room{Memories: room.Memories}).Error
	})
}

func (s *GormStore) IncrementUnread(ctx context.Context, msg *models.Message, activeRoomID string) error {
	if msg.IsFromPersona() || msg.RoomID == activeRoomID {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", msg.RoomID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

// ResetUnread clears the unread counter when the user opens a room
func (s *GormStore) ResetUnread(ctx context.Context, roomID string) error {
	return s.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		UpdateColumn("unread_count", 0).Error
}

func notFound(err error, code, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NewNotFoundError(code, fmt.Sprintf("%s not found", what))
	}
	return err
}
