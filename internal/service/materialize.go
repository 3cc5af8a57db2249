package service

import (
	"context"
	"strings"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// HandleAPIResponse commits a reply: it records a new memory, waits out the
// reaction delay, shows the typing indicator and then realizes every part in
// order with its own delay. Parts already committed stay when a later part fails.
func (s *ChatService) HandleAPIResponse(ctx context.Context, res *ai.ChatResponse, room *models.Room, character *models.Character) error {
	if res == nil {
		return apperrors.NewProviderParseError("empty response")
	}

	if err := s.rememberMemory(ctx, room, res.NewMemory); err != nil {
		return err
	}

	log := s.log.WithRoom(room.ID)
	log.Debug("reacting", "character_id", character.ID, "delay", ai.FormatDelay(res.ReactionDelay), "parts", len(res.Messages))
	if err := s.sleep(ctx, millis(res.ReactionDelay)); err != nil {
		return err
	}
	s.events.PublishTyping(room.ID, character.ID, true)

	for i, part := range res.Messages {
		if i > 0 {
			log.Debug("typing next part", "character_id", character.ID, "part", i, "delay", ai.FormatDelay(part.Delay))
			if err := s.sleep(ctx, millis(part.Delay)); err != nil {
				return err
			}
		}
		if err := s.realizePart(ctx, room, character, part); err != nil {
			return err
		}
	}
	return nil
}

// rememberMemory appends a memory unless the room already knows it
func (s *ChatService) rememberMemory(ctx context.Context, room *models.Room, memory string) error {
	memory = strings.TrimSpace(memory)
	if memory == "" {
		return nil
	}
	for _, m := range room.Memories {
		if strings.EqualFold(strings.TrimSpace(m), memory) {
			return nil
		}
	}
	if err := s.store.AddRoomMemory(ctx, room.ID, memory); err != nil {
		return err
	}
	room.Memories = append(room.Memories, memory)
	s.events.PublishToast(room.ID, s.tr.T(KeyMemoryAdded, map[string]string{"memory": memory}))
	return nil
}

func (s *ChatService) realizePart(ctx context.Context, room *models.Room, character *models.Character, part ai.MessagePart) error {
	if content := strings.TrimSpace(part.Content); content != "" {
		if err := s.commit(ctx, s.newMessage(room, character, models.MessageTypeText, content)); err != nil {
			return err
		}
	}

	if part.Sticker != "" {
		if sticker, ok := character.FindSticker(part.Sticker); ok {
			msg := s.newMessage(room, character, models.MessageTypeSticker, "")
			st := *sticker
			msg.Sticker = &st
			if err := s.commit(ctx, msg); err != nil {
				return err
			}
		} else {
			s.log.WithRoom(room.ID).Debug("dropping unknown sticker", "character_id", character.ID, "sticker", part.Sticker)
		}
	}

	if part.ImageGenerationSetting != nil {
		return s.realizeImage(ctx, room, character, *part.ImageGenerationSetting)
	}
	return nil
}

func (s *ChatService) realizeImage(ctx context.Context, room *models.Room, character *models.Character, setting models.ImageGenerationSetting) error {
	if s.images == nil {
		return apperrors.NewConfigurationError("image generation is not configured")
	}
	img, err := s.images.Generate(ctx, setting, character)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrImageGeneration) {
			return err
		}
		return apperrors.NewImageGenerationError(err.Error())
	}

	msg := s.newMessage(room, character, models.MessageTypeImage, "")
	msg.ImageGenerationSetting = &setting

	switch {
	case img != nil && img.DataURL != "":
		file, ok := imageFile(img.DataURL)
		if !ok {
			return apperrors.NewImageGenerationError("image backend returned an invalid data URL")
		}
		msg.File = file
		return s.commit(ctx, msg)

	case img != nil && img.Task != nil:
		msg.Content = s.tr.T(KeyImagePending, nil)
		if err := s.commit(ctx, msg); err != nil {
			return err
		}
		s.awaitImage(room.ID, msg.ID, img.Task)
		return nil
	}
	return apperrors.NewImageGenerationError("image backend returned no image data")
}

// awaitImage patches the placeholder message by id once the task finishes
func (s *ChatService) awaitImage(roomID, messageID string, task ImageTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.imageTimeout)
		defer cancel()

		log := s.log.WithRoom(roomID)
		empty := ""
		patch := models.MessagePatch{Content: &empty}

		dataURL, err := task.Await(ctx)
		file, ok := imageFile(dataURL)
		if err != nil || !ok {
			log.LogError(err, "image task failed", "message_id", messageID)
			failed := s.tr.T(KeyImageFailed, nil)
			patch.Content = &failed
		} else {
			patch.File = file
		}

		if err := s.store.UpdateMessage(context.WithoutCancel(ctx), messageID, patch); err != nil {
			log.LogError(err, "patch image message failed", "message_id", messageID)
			return
		}
		s.events.PublishMessagePatch(roomID, messageID, patch)
	}()
}

func (s *ChatService) newMessage(room *models.Room, character *models.Character, typ models.MessageType, content string) *models.Message {
	return &models.Message{
		ID:       s.newID(),
		RoomID:   room.ID,
		AuthorID: character.ID,
		Type:     typ,
		Content:  content,
	}
}

func imageFile(dataURL string) (*models.FileAttachment, bool) {
	mime, _, ok := ai.ParseDataURL(dataURL)
	if !ok {
		return nil, false
	}
	return &models.FileAttachment{Name: "generated", MimeType: mime, DataURL: dataURL}, true
}
