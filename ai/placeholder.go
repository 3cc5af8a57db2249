package ai

import (
	"strconv"
	"strings"
	"time"
)

// Defaults used when a placeholder has no value
const (
	defaultUserName     = "User"
	defaultEmptyValue   = "(none)"
	noStickersValue     = "none"
	noParticipantsValue = "(no other participants)"
	timeContextLayout   = "Monday, January 2, 2006 15:04 MST"
)

// PlaceholderValues are the resolved values substituted into prompt fragments
type PlaceholderValues struct {
	UserName           string
	UserDescription    string
	CharacterName      string
	CharacterPrompt    string
	RoomMemories       string
	ResponseTime       string
	ThinkingTime       string
	Reactivity         string
	Tone               string
	Guidelines         string
	ParticipantDetails string
	ParticipantCount   int
	Stickers           []string
	Now                time.Time
}

// Substitute replaces every known placeholder in template. Missing values
// resolve to a fixed default so the output never contains a raw token.
func Substitute(template string, v PlaceholderValues) string {
	if !strings.ContainsAny(template, "{<") {
		return template
	}

	userName := orDefault(v.UserName, defaultUserName)
	charName := orDefault(v.CharacterName, defaultEmptyValue)

	stickers := noStickersValue
	if len(v.Stickers) > 0 {
		stickers = strings.Join(v.Stickers, ", ")
	}

	now := v.Now
	if now.IsZero() {
		now = time.Now()
	}

	r := strings.NewReplacer(
		"{{user}}", userName,
		"<user>", userName,
		"{{char}}", charName,
		"<char>", charName,
		"{userName}", userName,
		"{userDescription}", orDefault(v.UserDescription, defaultEmptyValue),
		"{characterPrompt}", orDefault(v.CharacterPrompt, defaultEmptyValue),
		"{roomMemories}", orDefault(v.RoomMemories, defaultEmptyValue),
		"{responseTime}", orDefault(v.ResponseTime, defaultEmptyValue),
		"{thinkingTime}", orDefault(v.ThinkingTime, defaultEmptyValue),
		"{reactivity}", orDefault(v.Reactivity, defaultEmptyValue),
		"{tone}", orDefault(v.Tone, defaultEmptyValue),
		"{guidelines}", orDefault(v.Guidelines, defaultEmptyValue),
		"{participantDetails}", orDefault(v.ParticipantDetails, noParticipantsValue),
		"{participantCount}", strconv.Itoa(v.ParticipantCount),
		"{availableStickers}", stickers,
		"{timeContext}", now.Format(timeContextLayout),
	)
	return r.Replace(template)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
