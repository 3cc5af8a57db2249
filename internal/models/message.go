package models

import (
	"time"
)

// MessageType distinguishes how a message is rendered and sent to providers
type MessageType string

const (
	MessageTypeText    MessageType = "TEXT"
	MessageTypeImage   MessageType = "IMAGE"
	MessageTypeSticker MessageType = "STICKER"
	MessageTypeSystem  MessageType = "SYSTEM"
)

// PersonaAuthorID is the author id used for messages written by the human persona
const PersonaAuthorID uint = 0

// FileAttachment is an inline file carried by a message, stored as a data URL
type FileAttachment struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
}

// ImageGenerationSetting asks the image collaborator to draw a picture for a reply
type ImageGenerationSetting struct {
	Prompt   string `json:"prompt"`
	IsSelfie bool   `json:"isSelfie"`
}

// Message represents a chat message inside a room
type Message struct {
	ID                     string                  `json:"id" gorm:"primaryKey"`
	RoomID                 string                  `json:"roomId" gorm:"index;not null"`
	AuthorID               uint                    `json:"authorId"`
	Content                string                  `json:"content,omitempty"`
	Type                   MessageType             `json:"type" gorm:"not null"`
	CreatedAt              time.Time               `json:"createdAt" gorm:"index"`
	Sticker                *Sticker                `json:"sticker,omitempty" gorm:"serializer:json"`
	File                   *FileAttachment         `json:"file,omitempty" gorm:"serializer:json"`
	ImageGenerationSetting *ImageGenerationSetting `json:"imageGenerationSetting,omitempty" gorm:"serializer:json"`
}

// IsFromPersona reports whether the human persona wrote the message
func (m *Message) IsFromPersona() bool {
	return m.AuthorID == PersonaAuthorID
}

// MessagePatch holds the fields that may change after a message is committed
type MessagePatch struct {
	Content *string         `json:"content,omitempty"`
	File    *FileAttachment `json:"file,omitempty"`
}

// SendMessageRequest is the body of a human message posted to a room
type SendMessageRequest struct {
	Content string          `json:"content"`
	File    *FileAttachment `json:"file,omitempty"`
}
