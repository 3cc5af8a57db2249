package ai

import "github.com/YEJIN-DEV/yejingram-sub001/internal/models"

// DefaultPrompts returns the prompt layout new installations start with
func DefaultPrompts() []models.PromptItem {
	return []models.PromptItem{
		{
			Name: "Main",
			Type: models.PromptTypePlain,
			Role: models.PromptRoleSystem,
			Content: "You are {{char}}, chatting with {{user}} in a messenger app. " +
				"Stay in character at all times and write the way a real person texts: short bubbles, casual tone, no narration.\n" +
				"Current time: {timeContext}",
		},
		{
			Name:    "Character",
			Type:    models.PromptTypeCharacterPrompt,
			Role:    models.PromptRoleSystem,
			Content: "# Character profile of {{char}}",
		},
		{
			Name: "Personality",
			Type: models.PromptTypePlain,
			Role: models.PromptRoleSystem,
			Content: "Response time: {responseTime}/10, thinking time: {thinkingTime}/10, " +
				"reactivity: {reactivity}/10, tone: {tone}/10.",
		},
		{
			Name:    "User",
			Type:    models.PromptTypeUserDescription,
			Role:    models.PromptRoleSystem,
			Content: "# About {{user}}",
		},
		{
			Name:    "Lorebook",
			Type:    models.PromptTypeLorebook,
			Role:    models.PromptRoleSystem,
			Content: "# Background knowledge",
		},
		{
			Name:    "Memories",
			Type:    models.PromptTypeMemory,
			Role:    models.PromptRoleSystem,
			Content: "# What {{char}} remembers about this chat",
		},
		{
			Name: "Group",
			Type: models.PromptTypePlainGroup,
			Role: models.PromptRoleSystem,
			Content: "This is a group chat with {participantCount} participants. Other characters:\n{participantDetails}\n" +
				"Only speak as {{char}}. Never write lines for anyone else and never repeat what others just said.",
		},
		{
			Name: "Structured output",
			Type: models.PromptTypePlainStructured,
			Role: models.PromptRoleSystem,
			Content: "Reply with JSON only. Split your reply into one or more messages, each with a typing delay in milliseconds. " +
				"Available stickers: {availableStickers}. Put a new long-term fact in newMemory, or leave it empty.",
		},
		{
			Name:    "Plain output",
			Type:    models.PromptTypePlainUnstructured,
			Role:    models.PromptRoleSystem,
			Content: "Write each chat bubble on its own line. Do not prefix lines with names or tags.",
		},
		{
			Name: "Images",
			Type: models.PromptTypeImageGeneration,
			Role: models.PromptRoleSystem,
			Content: "You may send a picture by filling imageGenerationSetting with an English tag prompt. " +
				"Set isSelfie when the picture shows {{char}}. Send pictures rarely.",
		},
		{
			Name: "Chat history",
			Type: models.PromptTypeChat,
		},
		{
			Name:    "Author's note",
			Type:    models.PromptTypeAuthorNote,
			Role:    models.PromptRoleSystem,
			Content: "# Author's note",
		},
		{
			Name: "Extra instruction",
			Type: models.PromptTypeExtraSystemInstruction,
			Role: models.PromptRoleSystem,
		},
	}
}
