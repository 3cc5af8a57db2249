package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// LocaleSetter is told about locale changes in the settings
type LocaleSetter interface {
	SetLocale(locale string)
}

// ResourceHandler upserts rooms, characters, personas and settings
type ResourceHandler struct {
	repo   service.Repository
	locale LocaleSetter
}

func NewResourceHandler(repo service.Repository, locale LocaleSetter) *ResourceHandler {
	return &ResourceHandler{repo: repo, locale: locale}
}

func (h *ResourceHandler) ListRooms(c *gin.Context) {
	rooms, err := h.repo.ListRooms(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *ResourceHandler) PutRoom(c *gin.Context) {
	var room models.Room
	if err := c.ShouldBindJSON(&room); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	room.ID = c.Param("roomId")

	switch room.Type {
	case models.RoomTypeDirect:
		if len(room.MemberIDs) != 1 {
			c.Error(errors.NewBadRequestError("INVALID_ROOM", "a direct room has exactly one character"))
			return
		}
	case models.RoomTypeGroup, models.RoomTypeOpen:
	default:
		c.Error(errors.NewBadRequestError("INVALID_ROOM", "unknown room type "+string(room.Type)))
		return
	}
	if room.GroupSettings != nil && (room.GroupSettings.ResponseFrequency < 0 || room.GroupSettings.ResponseFrequency > 1) {
		c.Error(errors.NewBadRequestError("INVALID_ROOM", "responseFrequency must be between 0 and 1"))
		return
	}

	// Unread counts belong to the server
	if existing, err := h.repo.GetRoom(c.Request.Context(), room.ID); err == nil {
		room.UnreadCount = existing.UnreadCount
		room.CreatedAt = existing.CreatedAt
	}

	if err := h.repo.SaveRoom(c.Request.Context(), &room); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *ResourceHandler) ListCharacters(c *gin.Context) {
	characters, err := h.repo.ListCharacters(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": characters})
}

func (h *ResourceHandler) PutCharacter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("characterId"), 10, 32)
	if err != nil || id == 0 {
		c.Error(errors.NewBadRequestError("INVALID_CHARACTER_ID", "character id must be a positive integer"))
		return
	}
	var character models.Character
	if err := c.ShouldBindJSON(&character); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	character.ID = uint(id)
	if character.Name == "" {
		c.Error(errors.NewBadRequestError("INVALID_CHARACTER", "name is required"))
		return
	}

	if err := h.repo.SaveCharacter(c.Request.Context(), &character); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *ResourceHandler) PutPersona(c *gin.Context) {
	var persona models.Persona
	if err := c.ShouldBindJSON(&persona); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	persona.ID = c.Param("personaId")
	if persona.Name == "" {
		c.Error(errors.NewBadRequestError("INVALID_PERSONA", "name is required"))
		return
	}

	if err := h.repo.SavePersona(c.Request.Context(), &persona); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, persona)
}

func (h *ResourceHandler) GetSettings(c *gin.Context) {
	settings, err := h.repo.GetSettings(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *ResourceHandler) PutSettings(c *gin.Context) {
	var settings models.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.Error(errors.NewBadRequestError("INVALID_REQUEST", err.Error()))
		return
	}
	if err := h.repo.SaveSettings(c.Request.Context(), &settings); err != nil {
		c.Error(err)
		return
	}
	if h.locale != nil && settings.Locale != "" {
		h.locale.SetLocale(settings.Locale)
	}
	c.JSON(http.StatusOK, settings)
}

func (h *ResourceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms", h.ListRooms)
	rg.PUT("/rooms/:roomId", h.PutRoom)
	rg.GET("/characters", h.ListCharacters)
	rg.PUT("/characters/:characterId", h.PutCharacter)
	rg.PUT("/personas/:personaId", h.PutPersona)
	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.PutSettings)
}
