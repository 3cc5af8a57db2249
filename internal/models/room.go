package models

import (
	"slices"
	"time"
)

type RoomType string

const (
	RoomTypeDirect RoomType = "Direct"
	RoomTypeGroup  RoomType = "Group"
	RoomTypeOpen   RoomType = "Open"
)

// ParticipantSetting tunes how a single member behaves in a group room.
// Nil fields fall back to the room defaults.
type ParticipantSetting struct {
	IsActive            *bool    `json:"isActive,omitempty"`
	ResponseProbability *float64 `json:"responseProbability,omitempty"`
}

// GroupSettings controls fan-out in multi-character rooms
type GroupSettings struct {
	ResponseFrequency       float64                     `json:"responseFrequency"`
	MaxRespondingCharacters int                         `json:"maxRespondingCharacters"`
	ResponseDelay           int                         `json:"responseDelay"` // milliseconds
	ParticipantSettings     map[uint]ParticipantSetting `json:"participantSettings,omitempty"`
}

// DefaultGroupSettings is used when a group room has no explicit settings
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		ResponseFrequency:       1,
		MaxRespondingCharacters: 3,
		ResponseDelay:           1000,
	}
}

// Room is a conversation between the persona and one or more characters
type Room struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	Name          string         `json:"name"`
	MemberIDs     []uint         `json:"memberIds" gorm:"serializer:json"`
	Type          RoomType       `json:"type" gorm:"not null"`
	Memories      []string       `json:"memories" gorm:"serializer:json"`
	Lorebook      []Lore         `json:"lorebook" gorm:"serializer:json"`
	AuthorNote    string         `json:"authorNote,omitempty"`
	GroupSettings *GroupSettings `json:"groupSettings,omitempty" gorm:"serializer:json"`
	UnreadCount   int            `json:"unreadCount"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// HasMember reports whether the character belongs to the room
func (r *Room) HasMember(id uint) bool {
	return slices.Contains(r.MemberIDs, id)
}

// EffectiveGroupSettings returns the room's group settings or the defaults
func (r *Room) EffectiveGroupSettings() GroupSettings {
	if r.GroupSettings == nil {
		return DefaultGroupSettings()
	}
	return *r.GroupSettings
}
