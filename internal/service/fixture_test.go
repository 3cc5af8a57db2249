package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service/mocks"
)

var (
	haru = models.Character{ID: 1, Name: "Haru", Stickers: []models.Sticker{{ID: "s1", Name: "wave", DataURL: "data:image/png;base64,AAAA"}}}
	sora = models.Character{ID: 2, Name: "Sora"}
)

type recordedEvents struct {
	mu       sync.Mutex
	active   string
	typing   []string
	messages []models.Message
	patches  []string
	toasts   []string
}

func (e *recordedEvents) PublishTyping(roomID string, characterID uint, typing bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.typing = append(e.typing, fmt.Sprintf("%s/%d/%t", roomID, characterID, typing))
}

func (e *recordedEvents) PublishMessage(msg *models.Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.messages = append(e.messages, *msg)
}

func (e *recordedEvents) PublishMessagePatch(_, messageID string, _ models.MessagePatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.patches = append(e.patches, messageID)
}

func (e *recordedEvents) PublishToast(_, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.toasts = append(e.toasts, text)
}

func (e *recordedEvents) ActiveRoomID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// keyTranslator renders a key followed by its variables so tests can match on both
type keyTranslator struct{}

func (keyTranslator) T(key string, vars map[string]string) string {
	if len(vars) == 0 {
		return key
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{key}
	for _, k := range keys {
		parts = append(parts, k+"="+vars[k])
	}
	return strings.Join(parts, " ")
}

type fixture struct {
	store  *service.MemoryStore
	caller *mocks.MockChatCaller
	events *recordedEvents
	locker *service.MemoryRoomLocker
	svc    *service.ChatService

	mu     sync.Mutex
	sleeps []time.Duration
}

func newFixture(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	f := &fixture{
		store:  service.NewMemoryStore(),
		caller: mocks.NewMockChatCaller(t),
		events: &recordedEvents{},
		locker: service.NewMemoryRoomLocker(),
	}

	var (
		idMu sync.Mutex
		seq  int
	)
	base := time.Date(2024, 3, 4, 21, 0, 0, 0, time.UTC)
	tick := func() int {
		idMu.Lock()
		defer idMu.Unlock()
		seq++
		return seq
	}

	defaults := []service.Option{
		service.WithSleep(func(ctx context.Context, d time.Duration) error {
			f.mu.Lock()
			f.sleeps = append(f.sleeps, d)
			f.mu.Unlock()
			return ctx.Err()
		}),
		service.WithRandom(func() float64 { return 0 }, func(int, func(i, j int)) {}),
		service.WithClock(func() time.Time { return base.Add(time.Duration(tick()) * time.Second) }),
		service.WithIDGenerator(func() string { return fmt.Sprintf("m%d", tick()) }),
	}
	f.svc = service.NewChatService(f.store, f.caller, f.events, f.locker, keyTranslator{}, nil, append(defaults, opts...)...)
	t.Cleanup(f.svc.Close)

	ctx := context.Background()
	require.NoError(t, f.store.SavePersona(ctx, &models.Persona{ID: "p1", Name: "Mina"}))
	require.NoError(t, f.store.SaveSettings(ctx, &models.Settings{SelectedPersonaID: "p1", APIProvider: models.ProviderClaude}))
	for _, c := range []models.Character{haru, sora} {
		c := c
		require.NoError(t, f.store.SaveCharacter(ctx, &c))
	}
	return f
}

func (f *fixture) room(t *testing.T, room models.Room) *models.Room {
	t.Helper()
	require.NoError(t, f.store.SaveRoom(context.Background(), &room))
	return &room
}

func (f *fixture) messages(t *testing.T, roomID string) []models.Message {
	t.Helper()
	msgs, err := f.store.ListMessages(context.Background(), roomID)
	require.NoError(t, err)
	return msgs
}

func (f *fixture) recordedSleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

func contents(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
