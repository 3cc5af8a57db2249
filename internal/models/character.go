package models

import (
	"time"
)

// Sticker is an image a character can send in place of text
type Sticker struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	DataURL string `json:"dataUrl,omitempty"`
}

// Lore is a conditionally activated knowledge snippet
type Lore struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	Order          int      `json:"order"`
	AlwaysActive   bool     `json:"alwaysActive"`
	ActivationKeys []string `json:"activationKeys"`
	MultiKey       bool     `json:"multiKey"`
	Content        string   `json:"content"`
}

type Character struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"not null"`
	Prompt       string    `json:"prompt"`
	Avatar       string    `json:"avatar,omitempty"`
	ResponseTime string    `json:"responseTime,omitempty"`
	ThinkingTime string    `json:"thinkingTime,omitempty"`
	Reactivity   string    `json:"reactivity,omitempty"`
	Tone         string    `json:"tone,omitempty"`
	Lorebook     []Lore    `json:"lorebook" gorm:"serializer:json"`
	Stickers     []Sticker `json:"stickers" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FindSticker returns the sticker whose id or name matches ref
func (c *Character) FindSticker(ref string) (*Sticker, bool) {
	if ref == "" {
		return nil, false
	}
	for i := range c.Stickers {
		if c.Stickers[i].ID == ref || c.Stickers[i].Name == ref {
			return &c.Stickers[i], true
		}
	}
	return nil, false
}

// StickerNames lists the names of every sticker the character owns
func (c *Character) StickerNames() []string {
	names := make([]string, 0, len(c.Stickers))
	for _, s := range c.Stickers {
		if s.Name != "" {
			names = append(names, s.Name)
		}
	}
	return names
}

// Persona stands in for the human user in generated prompts
type Persona struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
