package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

var (
	testNow = time.Date(2024, 3, 4, 21, 5, 0, 0, time.UTC)
	haru    = &models.Character{ID: 1, Name: "Haru", Prompt: "Barista.", Stickers: []models.Sticker{{ID: "s1", Name: "wave"}}}
	sora    = &models.Character{ID: 2, Name: "Sora", Prompt: "Painter.\nQuiet."}
	mina    = &models.Persona{ID: "p1", Name: "Mina", Description: "a nurse"}
)

func groupItems() []models.PromptItem {
	return []models.PromptItem{
		{Type: models.PromptTypePlain, Role: models.PromptRoleSystem, Content: "You are {{char}}."},
		{Type: models.PromptTypePlainStructured, Role: models.PromptRoleSystem, Content: "JSON"},
		{Type: models.PromptTypePlainUnstructured, Role: models.PromptRoleSystem, Content: "lines"},
		{Type: models.PromptTypePlainGroup, Role: models.PromptRoleSystem, Content: "Group of {participantCount}: {participantDetails}"},
		{Type: models.PromptTypeMemory, Role: models.PromptRoleSystem, Content: "# Memories"},
		{Type: models.PromptTypeAuthorNote, Role: models.PromptRoleSystem, Content: "# Note"},
		{Type: models.PromptTypeChat},
		{Type: models.PromptTypeUserDescription, Role: models.PromptRoleUser},
	}
}

func TestAssemblePromptGroup(t *testing.T) {
	room := &models.Room{ID: "r1", Type: models.RoomTypeGroup, Memories: []string{"likes jazz", " "}}
	messages := []models.Message{
		{AuthorID: 0, Content: "hi all"},
		{AuthorID: 2, Content: "hello"},
		{AuthorID: 1, Content: "hey"},
		{AuthorID: 0, Type: models.MessageTypeSystem, Content: "Sora joined"},
	}

	p := AssemblePrompt(PromptInput{
		Room: room, Persona: mina, Character: haru,
		Members:  []*models.Character{haru, sora},
		Messages: messages,
		Items:    groupItems(),
		Now:      testNow,
	})

	assert.Equal(t, []string{
		"You are Haru.",
		"lines",
		"Group of 3: - Sora: Painter.",
		"# Memories\n- likes jazz",
	}, p.System)

	require.Len(t, p.Turns, 5)
	assert.Equal(t, Turn{Role: RoleUser, Text: "[From: Mina] hi all", Message: &messages[0]}, p.Turns[0])
	assert.Equal(t, "[From: Sora] hello", p.Turns[1].Text)
	assert.Equal(t, RoleAssistant, p.Turns[2].Role)
	assert.Equal(t, "[From: Haru] hey", p.Turns[2].Text)
	assert.Equal(t, "[System] Sora joined", p.Turns[3].Text)
	assert.Equal(t, Turn{Role: RoleUser, Text: "a nurse"}, p.Turns[4])
}

func TestAssemblePromptDirectStructured(t *testing.T) {
	room := &models.Room{ID: "r2", Type: models.RoomTypeDirect, AuthorNote: "Keep it short, {{user}}."}
	messages := []models.Message{
		{AuthorID: 0, Content: "hi"},
		{AuthorID: 1, Type: models.MessageTypeSticker, Sticker: &models.Sticker{Name: "wave"}},
	}

	p := AssemblePrompt(PromptInput{
		Room: room, Persona: mina, Character: haru,
		Messages:            messages,
		Items:               groupItems(),
		UseStructuredOutput: true,
		Now:                 testNow,
	})

	assert.Equal(t, []string{"You are Haru.", "JSON", "# Note\nKeep it short, Mina."}, p.System)
	require.Len(t, p.Turns, 3)
	assert.Equal(t, "hi", p.Turns[0].Text)
	assert.Equal(t, "[Sticker: wave]", p.Turns[1].Text)
	assert.Equal(t, RoleAssistant, p.Turns[1].Role)
}

func TestAssemblePromptLorebookFollowsWindow(t *testing.T) {
	c := &models.Character{ID: 1, Name: "Haru", Lorebook: []models.Lore{{ActivationKeys: []string{"rain"}, Content: "Haru hates rain."}}}
	items := []models.PromptItem{
		{Type: models.PromptTypeLorebook, Role: models.PromptRoleSystem, Content: "# Lore"},
		{Type: models.PromptTypeChat},
	}
	room := &models.Room{Type: models.RoomTypeDirect}

	withRain := AssemblePrompt(PromptInput{Room: room, Character: c, Items: items, Messages: []models.Message{{Content: "It will rain"}, {Content: "ok"}}})
	withoutRain := AssemblePrompt(PromptInput{Room: room, Character: c, Items: items, Messages: []models.Message{{Content: "ok"}}})

	assert.Equal(t, []string{"# Lore\n- Haru hates rain."}, withRain.System)
	assert.Empty(t, withoutRain.System)
}

func TestAssemblePromptImageGenerationGate(t *testing.T) {
	items := []models.PromptItem{{Type: models.PromptTypeImageGeneration, Content: "You can send pictures."}}

	off := AssemblePrompt(PromptInput{Character: haru, Items: items})
	on := AssemblePrompt(PromptInput{Character: haru, Items: items, UseImageResponse: true})

	assert.Empty(t, off.System)
	assert.Equal(t, []string{"You can send pictures."}, on.System)
}

func TestAssemblePromptProactive(t *testing.T) {
	items := []models.PromptItem{
		{Type: models.PromptTypePlain, Role: models.PromptRoleSystem, Content: "You are {{char}}."},
		{Type: models.PromptTypeChat},
	}

	p := AssemblePrompt(PromptInput{Room: &models.Room{Type: models.RoomTypeDirect}, Character: haru, Items: items, IsProactive: true})

	require.Len(t, p.Turns, 1)
	assert.Equal(t, RoleUser, p.Turns[0].Role)
	assert.Contains(t, p.Turns[0].Text, "as Haru")
	assert.False(t, p.Turns[0].FromHistory())

	notProactive := AssemblePrompt(PromptInput{Room: &models.Room{Type: models.RoomTypeDirect}, Character: haru, Items: items})
	assert.Empty(t, notProactive.Turns)
}

func TestAssemblePromptExtraInstruction(t *testing.T) {
	items := []models.PromptItem{{Type: models.PromptTypeExtraSystemInstruction, Role: models.PromptRoleSystem}}

	p := AssemblePrompt(PromptInput{Character: haru, Items: items, ExtraSystemInstruction: "Do not repeat."})
	empty := AssemblePrompt(PromptInput{Character: haru, Items: items})

	assert.Equal(t, "Do not repeat.", p.SystemText())
	assert.Empty(t, empty.System)
}

func TestDefaultPromptsContainChat(t *testing.T) {
	var chat int
	for _, it := range DefaultPrompts() {
		if it.Type == models.PromptTypeChat {
			chat++
		}
	}
	assert.Equal(t, 1, chat)
}
