package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service/mocks"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

func TestUnknownStickerIsDropped(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru

	err := f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{
			{Sticker: "dance"},
			{Content: "hi", Sticker: "wave"},
		},
	}, room, &character)
	require.NoError(t, err)

	msgs := f.messages(t, "r1")
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageTypeText, msgs[0].Type)
	assert.Equal(t, models.MessageTypeSticker, msgs[1].Type)
	require.NotNil(t, msgs[1].Sticker)
	assert.Equal(t, "s1", msgs[1].Sticker.ID)
}

func TestMemoryIsDeduplicated(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}, Memories: []string{"Likes tea"}})
	character := haru

	for _, memory := range []string{" likes TEA ", "   "} {
		require.NoError(t, f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{NewMemory: memory}, room, &character))
	}

	stored, err := f.store.GetRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Likes tea"}, stored.Memories)
	assert.Empty(t, f.events.toasts)
}

func TestSynchronousImage(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	f := newFixture(t, service.WithImageGenerator(images))
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru
	setting := models.ImageGenerationSetting{Prompt: "latte art", IsSelfie: false}

	images.On("Generate", mock.Anything, setting, &character).
		Return(&service.GeneratedImage{DataURL: "data:image/png;base64,iVBORw0"}, nil).Once()

	err := f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{{Content: "look", ImageGenerationSetting: &setting}},
	}, room, &character)
	require.NoError(t, err)

	msgs := f.messages(t, "r1")
	require.Len(t, msgs, 2)
	assert.Equal(t, models.MessageTypeImage, msgs[1].Type)
	require.NotNil(t, msgs[1].File)
	assert.Equal(t, "image/png", msgs[1].File.MimeType)
	assert.Equal(t, &setting, msgs[1].ImageGenerationSetting)
}

func TestAsynchronousImagePatchesMessage(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	f := newFixture(t, service.WithImageGenerator(images))
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru

	task := &mocks.MockImageTask{}
	task.On("Await", mock.Anything).Return("data:image/webp;base64,UklGR", nil).Once()
	images.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&service.GeneratedImage{Task: task}, nil).Once()

	err := f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{{ImageGenerationSetting: &models.ImageGenerationSetting{Prompt: "selfie", IsSelfie: true}}},
	}, room, &character)
	require.NoError(t, err)

	pending := f.messages(t, "r1")
	require.Len(t, pending, 1)
	id := pending[0].ID

	f.svc.Wait()
	task.AssertExpectations(t)

	done := f.messages(t, "r1")
	require.Len(t, done, 1)
	assert.Equal(t, id, done[0].ID)
	assert.Empty(t, done[0].Content)
	require.NotNil(t, done[0].File)
	assert.Equal(t, "image/webp", done[0].File.MimeType)
	assert.Equal(t, []string{id}, f.events.patches)
}

func TestAsynchronousImageFailure(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	f := newFixture(t, service.WithImageGenerator(images))
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru

	task := &mocks.MockImageTask{}
	task.On("Await", mock.Anything).Return("", errors.New("gpu on fire")).Once()
	images.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&service.GeneratedImage{Task: task}, nil).Once()

	require.NoError(t, f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{{ImageGenerationSetting: &models.ImageGenerationSetting{Prompt: "cat"}}},
	}, room, &character))
	f.svc.Wait()

	msgs := f.messages(t, "r1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "image.failed", msgs[0].Content)
	assert.Nil(t, msgs[0].File)
}

func TestImageWithoutDataFailsPart(t *testing.T) {
	images := mocks.NewMockImageGenerator(t)
	f := newFixture(t, service.WithImageGenerator(images))
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru

	images.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(&service.GeneratedImage{}, nil).Once()

	err := f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{
			{Content: "one sec"},
			{Delay: 500, ImageGenerationSetting: &models.ImageGenerationSetting{Prompt: "cat"}},
			{Content: "never sent"},
		},
	}, room, &character)
	assert.True(t, apperrors.Is(err, apperrors.ErrImageGeneration))
	assert.Equal(t, []string{"one sec"}, contents(f.messages(t, "r1")))
}

func TestImageWithoutGenerator(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	character := haru

	err := f.svc.HandleAPIResponse(context.Background(), &ai.ChatResponse{
		Messages: []ai.MessagePart{{ImageGenerationSetting: &models.ImageGenerationSetting{Prompt: "cat"}}},
	}, room, &character)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}

func TestImageWithoutGeneratorIsSilent(t *testing.T) {
	f := newFixture(t)
	f.room(t, models.Room{ID: "r1", Type: models.RoomTypeDirect, MemberIDs: []uint{1}})
	settings, err := f.store.GetSettings(context.Background())
	require.NoError(t, err)
	settings.UseImageResponse = true
	require.NoError(t, f.store.SaveSettings(context.Background(), settings))

	f.caller.On("CallAPI", mock.Anything, mock.MatchedBy(func(r ai.CallRequest) bool {
		return !r.Settings.UseImageResponse
	})).Return(&ai.ChatResponse{
		Messages: []ai.MessagePart{{Content: "look", ImageGenerationSetting: &models.ImageGenerationSetting{Prompt: "cat"}}},
	}, nil).Once()

	_, _, err = f.svc.SendUserMessage(context.Background(), "r1", models.SendMessageRequest{Content: "draw me a cat"})
	require.NoError(t, err)
	f.svc.Wait()

	assert.Equal(t, []string{"draw me a cat", "look"}, contents(f.messages(t, "r1")))

	stored, err := f.store.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.UseImageResponse)
}
