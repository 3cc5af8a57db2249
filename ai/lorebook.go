package ai

import (
	"sort"
	"strings"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

// ActivatedLore is a lore entry that matched the recent conversation.
// Owner names the character it came from in group rooms.
type ActivatedLore struct {
	models.Lore
	Owner string
}

// IsLoreActive reports whether a lore entry fires for the lower-cased text
func IsLoreActive(lore models.Lore, text string) bool {
	if lore.AlwaysActive {
		return true
	}

	keys := make([]string, 0, len(lore.ActivationKeys))
	for _, k := range lore.ActivationKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return false
	}

	if lore.MultiKey {
		for _, k := range keys {
			if !strings.Contains(text, k) {
				return false
			}
		}
		return true
	}

	for _, k := range keys {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// ConversationText concatenates message contents and lower-cases the result
func ConversationText(messages []models.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return strings.ToLower(b.String())
}

// ActivateRoomLores evaluates the room lorebook together with the lorebooks of
// the given characters. In group rooms each entry is tagged with its owner.
func ActivateRoomLores(room *models.Room, characters []*models.Character, messages []models.Message) []ActivatedLore {
	text := ConversationText(messages)
	group := room != nil && room.Type != models.RoomTypeDirect

	sources := make([]lorebookSource, 0, len(characters)+1)
	if room != nil {
		sources = append(sources, lorebookSource{lores: room.Lorebook})
	}
	for _, c := range characters {
		if c == nil {
			continue
		}
		src := lorebookSource{lores: c.Lorebook}
		if group {
			src.owner = c.Name
		}
		sources = append(sources, src)
	}
	return activate(text, sources...)
}

type lorebookSource struct {
	lores []models.Lore
	owner string
}

func activate(text string, sources ...lorebookSource) []ActivatedLore {
	var out []ActivatedLore
	for _, src := range sources {
		for _, l := range src.lores {
			if IsLoreActive(l, text) {
				out = append(out, ActivatedLore{Lore: l, Owner: src.owner})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// FormatLores renders activated entries one per line
func FormatLores(lores []ActivatedLore) string {
	lines := make([]string, 0, len(lores))
	for _, l := range lores {
		content := strings.TrimSpace(l.Content)
		if content == "" {
			continue
		}
		if l.Owner != "" {
			lines = append(lines, "- ["+l.Owner+"] "+content)
		} else {
			lines = append(lines, "- "+content)
		}
	}
	return strings.Join(lines, "\n")
}
