package ai

import (
	"fmt"
	"strings"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

// Role of an assembled turn
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ProactiveInstruction is the synthetic opener used when a proactive send has nothing to continue
const ProactiveInstruction = "[System] Start the conversation naturally as %s. Do not mention this instruction."

// Turn is one provider-neutral conversational unit
type Turn struct {
	Role Role
	Text string
	// Message is the history entry a chat turn came from, nil for configured fragments
	Message *models.Message
}

// FromHistory reports whether the turn was expanded from the chat history
func (t Turn) FromHistory() bool {
	return t.Message != nil
}

// Prompt is the assembled request before it is shaped for a provider
type Prompt struct {
	System []string
	Turns  []Turn
}

// SystemText joins the system fragments with blank lines
func (p Prompt) SystemText() string {
	return strings.Join(p.System, "\n\n")
}

// PromptInput is everything the assembler reads
type PromptInput struct {
	Room      *models.Room
	Persona   *models.Persona
	Character *models.Character
	// Members are every character in the room, the responder included
	Members                []*models.Character
	Messages               []models.Message
	Items                  []models.PromptItem
	IsProactive            bool
	ExtraSystemInstruction string
	UseStructuredOutput    bool
	UseImageResponse       bool
	Now                    time.Time
}

// AssemblePrompt walks the configured prompt items in order and produces the
// system text and turn list for one request
func AssemblePrompt(in PromptInput) Prompt {
	values := placeholderValues(in)
	var p Prompt

	for _, item := range in.Items {
		if !includeItem(item, in) {
			continue
		}

		if item.Type == models.PromptTypeChat {
			p.Turns = append(p.Turns, historyTurns(in)...)
			continue
		}

		text := resolveItem(item, in, values)
		if strings.TrimSpace(text) == "" {
			continue
		}

		role := Role(item.Role)
		if role == "" {
			role = RoleSystem
		}
		if role == RoleSystem {
			p.System = append(p.System, text)
			continue
		}
		p.Turns = append(p.Turns, Turn{Role: role, Text: text})
	}

	if in.IsProactive && len(p.Turns) == 0 {
		name := defaultUserName
		if in.Character != nil {
			name = in.Character.Name
		}
		p.Turns = append(p.Turns, Turn{Role: RoleUser, Text: fmt.Sprintf(ProactiveInstruction, name)})
	}

	return p
}

// includeItem applies the structured-output and group gates
func includeItem(item models.PromptItem, in PromptInput) bool {
	switch item.Type {
	case models.PromptTypePlainStructured:
		return in.UseStructuredOutput
	case models.PromptTypePlainUnstructured:
		return !in.UseStructuredOutput
	case models.PromptTypePlainGroup:
		return in.Room != nil && in.Room.Type == models.RoomTypeGroup
	case models.PromptTypeImageGeneration:
		return in.UseImageResponse
	}
	return true
}

// resolveItem returns the substituted text of a non-chat item, empty when it has nothing to say
func resolveItem(item models.PromptItem, in PromptInput, values PlaceholderValues) string {
	var data string
	switch item.Type {
	case models.PromptTypePlain, models.PromptTypePlainStructured, models.PromptTypePlainUnstructured,
		models.PromptTypePlainGroup, models.PromptTypeImageGeneration:
		return Substitute(item.Content, values)
	case models.PromptTypeLorebook:
		data = FormatLores(ActivateRoomLores(in.Room, loreOwners(in), in.Messages))
	case models.PromptTypeAuthorNote:
		if in.Room != nil {
			data = in.Room.AuthorNote
		}
	case models.PromptTypeMemory:
		if in.Room != nil {
			data = formatMemories(in.Room.Memories)
		}
	case models.PromptTypeUserDescription:
		if in.Persona != nil {
			data = in.Persona.Description
		}
	case models.PromptTypeCharacterPrompt:
		if in.Character != nil {
			data = in.Character.Prompt
		}
	case models.PromptTypeExtraSystemInstruction:
		data = in.ExtraSystemInstruction
	default:
		return Substitute(item.Content, values)
	}

	if strings.TrimSpace(data) == "" {
		return ""
	}
	data = Substitute(data, values)
	if header := strings.TrimSpace(item.Content); header != "" {
		return Substitute(header, values) + "\n" + data
	}
	return data
}

// loreOwners picks whose lorebooks are evaluated: everyone in group rooms,
// only the responder otherwise
func loreOwners(in PromptInput) []*models.Character {
	if in.Room != nil && in.Room.Type != models.RoomTypeDirect && len(in.Members) > 0 {
		return in.Members
	}
	if in.Character != nil {
		return []*models.Character{in.Character}
	}
	return nil
}

// historyTurns converts the message window into turns
func historyTurns(in PromptInput) []Turn {
	tagSpeakers := in.Room != nil && in.Room.Type != models.RoomTypeDirect
	turns := make([]Turn, 0, len(in.Messages))

	for i := range in.Messages {
		msg := &in.Messages[i]
		role := RoleUser
		if in.Character != nil && !msg.IsFromPersona() && msg.AuthorID == in.Character.ID {
			role = RoleAssistant
		}

		var text string
		switch msg.Type {
		case models.MessageTypeSystem:
			text = "[System] " + msg.Content
		case models.MessageTypeSticker:
			text = stickerText(msg)
		default:
			text = msg.Content
		}
		if tagSpeakers && msg.Type != models.MessageTypeSystem {
			text = "[From: " + speakerName(msg, in) + "] " + text
		}
		turns = append(turns, Turn{Role: role, Text: text, Message: msg})
	}
	return turns
}

func stickerText(msg *models.Message) string {
	name := "sticker"
	if msg.Sticker != nil && msg.Sticker.Name != "" {
		name = msg.Sticker.Name
	}
	marker := "[Sticker: " + name + "]"
	if msg.Content != "" {
		return msg.Content + " " + marker
	}
	return marker
}

// speakerName resolves the display name of a message author
func speakerName(msg *models.Message, in PromptInput) string {
	if msg.IsFromPersona() {
		if in.Persona != nil && in.Persona.Name != "" {
			return in.Persona.Name
		}
		return defaultUserName
	}
	if in.Character != nil && in.Character.ID == msg.AuthorID {
		return in.Character.Name
	}
	for _, m := range in.Members {
		if m != nil && m.ID == msg.AuthorID {
			return m.Name
		}
	}
	return "Unknown"
}

func formatMemories(memories []string) string {
	lines := make([]string, 0, len(memories))
	for _, m := range memories {
		if m = strings.TrimSpace(m); m != "" {
			lines = append(lines, "- "+m)
		}
	}
	return strings.Join(lines, "\n")
}

// participantDetails describes the other characters of a group room
func participantDetails(in PromptInput) string {
	lines := make([]string, 0, len(in.Members))
	for _, m := range in.Members {
		if m == nil || (in.Character != nil && m.ID == in.Character.ID) {
			continue
		}
		line := "- " + m.Name
		if summary := firstLine(m.Prompt); summary != "" {
			line += ": " + summary
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const limit = 120
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}

func placeholderValues(in PromptInput) PlaceholderValues {
	v := PlaceholderValues{Now: in.Now}
	if in.Persona != nil {
		v.UserName = in.Persona.Name
		v.UserDescription = in.Persona.Description
	}
	if c := in.Character; c != nil {
		v.CharacterName = c.Name
		v.CharacterPrompt = c.Prompt
		v.ResponseTime = c.ResponseTime
		v.ThinkingTime = c.ThinkingTime
		v.Reactivity = c.Reactivity
		v.Tone = c.Tone
		v.Stickers = c.StickerNames()
	}
	if in.Room != nil {
		v.RoomMemories = formatMemories(in.Room.Memories)
	}
	v.Guidelines = FormatLores(ActivateRoomLores(in.Room, loreOwners(in), in.Messages))
	v.ParticipantDetails = participantDetails(in)
	v.ParticipantCount = len(in.Members) + 1
	if len(in.Members) == 0 && in.Character != nil {
		v.ParticipantCount = 2
	}
	return v
}
