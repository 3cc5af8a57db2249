package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

func TestIsLoreActive(t *testing.T) {
	anyKey := models.Lore{ActivationKeys: []string{"a", "b"}}
	allKeys := models.Lore{ActivationKeys: []string{"a", "b"}, MultiKey: true}
	always := models.Lore{AlwaysActive: true}

	assert.True(t, IsLoreActive(anyKey, "only a here"))
	assert.False(t, IsLoreActive(allKeys, "xyz a"))
	assert.True(t, IsLoreActive(allKeys, "a and b"))
	assert.True(t, IsLoreActive(always, ""))
	assert.False(t, IsLoreActive(models.Lore{ActivationKeys: []string{" ", ""}}, "anything"))
}

func TestActivateLoresIsCaseInsensitiveAndOrdered(t *testing.T) {
	lorebook := []models.Lore{
		{ID: "late", Order: 5, ActivationKeys: []string{"Coffee"}, Content: "Haru roasts beans."},
		{ID: "early", Order: 1, AlwaysActive: true, Content: "Haru is 24."},
		{ID: "off", Order: 0, ActivationKeys: []string{"tea"}, Content: "never"},
	}
	messages := []models.Message{{Content: "Want some COFFEE?"}}

	got := ActivateRoomLores(&models.Room{Type: models.RoomTypeDirect}, []*models.Character{{Name: "Haru", Lorebook: lorebook}}, messages)

	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, "late", got[1].ID)
}

func TestActivateRoomLoresTagsOwnersInGroups(t *testing.T) {
	room := &models.Room{
		Type:     models.RoomTypeGroup,
		Lorebook: []models.Lore{{ID: "room", Order: 2, AlwaysActive: true, Content: "The cafe closes at ten."}},
	}
	haru := &models.Character{ID: 1, Name: "Haru", Lorebook: []models.Lore{{ID: "haru", Order: 3, AlwaysActive: true, Content: "Barista."}}}
	sora := &models.Character{ID: 2, Name: "Sora", Lorebook: []models.Lore{{ID: "sora", Order: 1, ActivationKeys: []string{"paint"}, Content: "Painter."}}}

	got := ActivateRoomLores(room, []*models.Character{haru, sora}, []models.Message{{Content: "I paint on sundays"}})

	require.Len(t, got, 3)
	assert.Equal(t, "sora", got[0].ID)
	assert.Equal(t, "Sora", got[0].Owner)
	assert.Equal(t, "", got[1].Owner)
	assert.Equal(t, "- [Sora] Painter.\n- The cafe closes at ten.\n- [Haru] Barista.", FormatLores(got))
}

func TestActivateRoomLoresDirectHasNoOwner(t *testing.T) {
	room := &models.Room{Type: models.RoomTypeDirect}
	haru := &models.Character{Name: "Haru", Lorebook: []models.Lore{{AlwaysActive: true, Content: "Barista."}}}

	got := ActivateRoomLores(room, []*models.Character{haru}, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "- Barista.", FormatLores(got))
}
