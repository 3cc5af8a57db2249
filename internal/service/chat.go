package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/YEJIN-DEV/yejingram-sub001/ai"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
)

// Translation keys used by the chat pipeline
const (
	KeyResponseFailed = "chat.response_failed"
	KeyEchoFallback   = "chat.echo_fallback"
	KeyMemoryAdded    = "toast.memory_added"
	KeyImagePending   = "image.generating"
	KeyImageFailed    = "image.failed"
)

const defaultImageTimeout = 5 * time.Minute

// ChatService turns room state into provider calls and provider replies into messages
type ChatService struct {
	store  Store
	caller ChatCaller
	images ImageGenerator
	events EventPublisher
	locker RoomLocker
	tr     Translator
	log    *logger.Logger

	echo         ai.EchoGuard
	imageTimeout time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	random       func() float64
	shuffle      func(n int, swap func(i, j int))
	now          func() time.Time
	newID        func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a ChatService
type Option func(*ChatService)

// WithEchoGuard overrides the anti-echo tunables
func WithEchoGuard(g ai.EchoGuard) Option {
	return func(s *ChatService) { s.echo = g }
}

// WithImageGenerator enables picture replies
func WithImageGenerator(g ImageGenerator) Option {
	return func(s *ChatService) { s.images = g }
}

// WithImageTimeout bounds how long an asynchronous image task may run
func WithImageTimeout(d time.Duration) Option {
	return func(s *ChatService) {
		if d > 0 {
			s.imageTimeout = d
		}
	}
}

// WithSleep replaces the delay function, mostly for tests
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *ChatService) { s.sleep = sleep }
}

// WithRandom replaces the random source used by group gating and jitter
func WithRandom(random func() float64, shuffle func(n int, swap func(i, j int))) Option {
	return func(s *ChatService) {
		s.random = random
		s.shuffle = shuffle
	}
}

// WithClock replaces the clock used for message timestamps
func WithClock(now func() time.Time) Option {
	return func(s *ChatService) { s.now = now }
}

// WithIDGenerator replaces the message id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *ChatService) { s.newID = newID }
}

// NewChatService wires the chat pipeline
func NewChatService(store Store, caller ChatCaller, events EventPublisher, locker RoomLocker, tr Translator, log *logger.Logger, opts ...Option) *ChatService {
	if log == nil {
		log = logger.Discard()
	}
	if locker == nil {
		locker = NewMemoryRoomLocker()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &ChatService{
		store:        store,
		caller:       caller,
		events:       events,
		locker:       locker,
		tr:           tr,
		log:          log,
		echo:         ai.DefaultEchoGuard(),
		imageTimeout: defaultImageTimeout,
		sleep:        sleepContext,
		random:       rand.Float64,
		shuffle:      rand.Shuffle,
		now:          time.Now,
		newID:        uuid.NewString,
		baseCtx:      ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendUserMessage commits a message written by the persona and starts the
// room's response in the background. responding is false when another
// response is already running in the room.
func (s *ChatService) SendUserMessage(ctx context.Context, roomID string, req models.SendMessageRequest) (msg *models.Message, responding bool, err error) {
	if strings.TrimSpace(req.Content) == "" && req.File == nil {
		return nil, false, apperrors.NewBadRequestError("EMPTY_MESSAGE", "message needs content or a file")
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	msg = &models.Message{
		ID:       s.newID(),
		RoomID:   room.ID,
		AuthorID: models.PersonaAuthorID,
		Content:  req.Content,
		Type:     models.MessageTypeText,
		File:     req.File,
	}
	if req.File != nil && strings.HasPrefix(req.File.MimeType, "image/") {
		msg.Type = models.MessageTypeImage
	}
	if err := s.commit(ctx, msg); err != nil {
		return nil, false, err
	}

	if err := s.TriggerResponse(ctx, room.ID); err != nil {
		if apperrors.Is(err, apperrors.ErrRoomBusy) {
			return msg, false, nil
		}
		return msg, false, err
	}
	return msg, true, nil
}

// TriggerResponse locks the room and answers its latest state in the background
func (s *ChatService) TriggerResponse(ctx context.Context, roomID string) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	return s.runLocked(ctx, room.ID, func(ctx context.Context) {
		s.respond(ctx, room)
	})
}

// TriggerProactive lets one member of the room start talking on its own
func (s *ChatService) TriggerProactive(ctx context.Context, roomID string, characterID uint) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if characterID == 0 {
		if len(room.MemberIDs) == 0 {
			return apperrors.NewBadRequestError("NO_MEMBERS", "room has no characters")
		}
		characterID = room.MemberIDs[0]
	}
	if !room.HasMember(characterID) {
		return apperrors.NewBadRequestError("NOT_A_MEMBER", "character is not a member of the room")
	}
	chars, err := s.store.GetCharacters(ctx, []uint{characterID})
	if err != nil {
		return err
	}
	if len(chars) == 0 {
		return apperrors.NewNotFoundError("CHARACTER_NOT_FOUND", "character not found")
	}

	return s.runLocked(ctx, room.ID, func(ctx context.Context) {
		if err := s.SendMessage(ctx, room, chars[0], true); err != nil {
			s.log.WithRoom(room.ID).LogError(err, "proactive send failed")
		}
	})
}

// runLocked takes the room lock synchronously and runs fn on a tracked goroutine
func (s *ChatService) runLocked(ctx context.Context, roomID string, fn func(ctx context.Context)) error {
	release, err := s.locker.Acquire(ctx, roomID)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		fn(s.baseCtx)
	}()
	return nil
}

func (s *ChatService) respond(ctx context.Context, room *models.Room) {
	log := s.log.WithRoom(room.ID)
	if room.Type == models.RoomTypeDirect {
		chars, err := s.store.GetCharacters(ctx, room.MemberIDs)
		if err != nil || len(chars) == 0 {
			log.LogError(err, "direct room has no character")
			return
		}
		if err := s.SendMessage(ctx, room, chars[0], false); err != nil {
			log.LogError(err, "send failed")
		}
		return
	}
	if err := s.SendGroupChatMessage(ctx, room); err != nil {
		log.LogError(err, "group send failed")
	}
}

// SendMessage runs the whole pipeline for one responder. Generation failures
// are committed as a visible message from the character; configuration
// problems abort silently. The returned error only reports store failures.
func (s *ChatService) SendMessage(ctx context.Context, room *models.Room, character *models.Character, isProactive bool) error {
	log := s.log.WithRoom(room.ID)
	defer s.events.PublishTyping(room.ID, character.ID, false)

	req, err := s.callRequest(ctx, room, character, isProactive)
	if err == nil {
		var res *ai.ChatResponse
		res, err = s.generate(ctx, room, character, req)
		if err == nil {
			err = s.HandleAPIResponse(ctx, res, room, character)
		}
	}
	if err == nil {
		return nil
	}

	if apperrors.Is(err, apperrors.ErrConfiguration) {
		log.Warn("send skipped", "character_id", character.ID, "reason", err.Error())
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.LogError(err, "response failed", "character_id", character.ID)
	return s.commitFailure(ctx, room, character, err)
}

func (s *ChatService) callRequest(ctx context.Context, room *models.Room, character *models.Character, isProactive bool) (ai.CallRequest, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return ai.CallRequest{}, err
	}
	if settings.UseImageResponse && s.images == nil {
		// no backend to realize images, so the model is never offered the field
		cp := *settings
		cp.UseImageResponse = false
		settings = &cp
	}
	if settings.SelectedPersonaID == "" {
		return ai.CallRequest{}, apperrors.NewConfigurationError("no persona selected")
	}
	persona, err := s.store.GetPersona(ctx, settings.SelectedPersonaID)
	if err != nil || persona == nil {
		return ai.CallRequest{}, apperrors.NewConfigurationError("selected persona not found")
	}
	members, err := s.store.GetCharacters(ctx, room.MemberIDs)
	if err != nil {
		return ai.CallRequest{}, err
	}
	messages, err := s.store.ListMessages(ctx, room.ID)
	if err != nil {
		return ai.CallRequest{}, err
	}
	return ai.CallRequest{
		Settings:    settings,
		Room:        room,
		Persona:     persona,
		Character:   character,
		Members:     members,
		Messages:    messages,
		IsProactive: isProactive,
	}, nil
}

// generate calls the provider, guarding against echoes outside direct rooms
func (s *ChatService) generate(ctx context.Context, room *models.Room, character *models.Character, req ai.CallRequest) (*ai.ChatResponse, error) {
	call := func(ctx context.Context, extra string) (*ai.ChatResponse, error) {
		r := req
		r.ExtraSystemInstruction = extra
		return s.caller.CallAPI(ctx, r)
	}
	if room.Type == models.RoomTypeDirect {
		return call(ctx, "")
	}

	refs := s.echo.References(req.Messages, character.ID)
	fallback := func() *ai.ChatResponse {
		s.log.WithRoom(room.ID).Info("echo retries exhausted, sending fallback", "character_id", character.ID)
		return &ai.ChatResponse{Messages: []ai.MessagePart{{Content: s.tr.T(KeyEchoFallback, nil)}}}
	}
	res, _, err := s.echo.Run(ctx, refs, "", call, fallback)
	return res, err
}

func (s *ChatService) commitFailure(ctx context.Context, room *models.Room, character *models.Character, cause error) error {
	reason := cause.Error()
	if appErr, ok := apperrors.As(cause); ok {
		reason = appErr.Message
	}
	return s.commit(ctx, &models.Message{
		ID:       s.newID(),
		RoomID:   room.ID,
		AuthorID: character.ID,
		Type:     models.MessageTypeText,
		Content:  s.tr.T(KeyResponseFailed, map[string]string{"reason": reason}),
	})
}

// commit stores a new message, announces it and bumps the unread counter
func (s *ChatService) commit(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	if err := s.store.UpsertMessage(ctx, msg); err != nil {
		return err
	}
	s.events.PublishMessage(msg)
	if err := s.store.IncrementUnread(ctx, msg, s.events.ActiveRoomID()); err != nil {
		s.log.WithRoom(msg.RoomID).LogError(err, "increment unread failed")
	}
	return nil
}

// Wait blocks until background responses and image tasks have finished
func (s *ChatService) Wait() {
	s.wg.Wait()
}

// Close cancels background work and waits for it
func (s *ChatService) Close() {
	s.cancel()
	s.wg.Wait()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
