package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

func TestStripSpeakerTags(t *testing.T) {
	cases := map[string]string{
		"[From: Alice] hi":                 "hi",
		"[From: A][Name: B] hey":           "hey",
		"[name : Haru]: hello":             "hello",
		"Haru: [Name: Haru] - hello":       "Haru: hello",
		"line one\n[From: Sora] line two":  "line one\nline two",
		"nothing to strip [but brackets]":  "nothing to strip [but brackets]",
		"[From: X] [From: X] [From: X] ok": "ok",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripSpeakerTags(in), in)
	}
}

func TestStripSpeakerTagsIsIdempotent(t *testing.T) {
	inputs := []string{
		"[From: A] [Name: B]: x",
		"  [FROM:Haru]—  hey there  ",
		"a\n\n[from: b] c\n",
		"[From: [nested] odd",
	}
	for _, in := range inputs {
		once := StripSpeakerTags(in)
		assert.Equal(t, once, StripSpeakerTags(once), in)
	}
}

func TestParseStructuredResponse(t *testing.T) {
	res, err := ParseChatResponse(`{"reactionDelay":1500,"messages":[{"delay":800,"content":"hi"}]}`, ParseOptions{Structured: true})

	require.NoError(t, err)
	assert.Equal(t, &ChatResponse{
		ReactionDelay: 1500,
		Messages:      []MessagePart{{Delay: 800, Content: "hi"}},
	}, res)
}

func TestParseStructuredResponseLeniency(t *testing.T) {
	text := "```json\n" +
		`{"reactionDelay":-20,"messages":[{"delay":-1,"content":"[From: Haru] yo","sticker":12},` +
		`{"delay":300,"imageGenerationSetting":{"prompt":"","isSelfie":true}}],"newMemory":"  likes cats "}` +
		"\n```"

	res, err := ParseChatResponse(text, ParseOptions{Structured: true})

	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ReactionDelay)
	assert.Equal(t, "likes cats", res.NewMemory)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, 0.0, res.Messages[0].Delay)
	assert.Equal(t, "yo", res.Messages[0].Content)
	assert.Equal(t, "12", res.Messages[0].Sticker)
	assert.Nil(t, res.Messages[1].ImageGenerationSetting)
}

func TestParseStructuredResponseInvalid(t *testing.T) {
	_, err := ParseChatResponse("sorry, I can't do JSON", ParseOptions{Structured: true})

	assert.True(t, apperrors.Is(err, apperrors.ErrProviderParse))
}

func TestParseUnstructuredSplitsLines(t *testing.T) {
	res, err := ParseChatResponse("Hello\n\nHow are you?", ParseOptions{InChars: 12, Delay: DelayModel{Device: DeviceMobile}})

	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "Hello", res.Messages[0].Content)
	assert.Equal(t, "How are you?", res.Messages[1].Content)
	assert.Greater(t, res.Messages[0].Delay, 0.0)
	assert.Greater(t, res.Messages[1].Delay, res.Messages[0].Delay)
	assert.Equal(t, 0.0, res.ReactionDelay)
}

func TestChatResponseText(t *testing.T) {
	res := &ChatResponse{Messages: []MessagePart{{Content: " a "}, {Sticker: "wave"}, {Content: "b"}}}

	assert.Equal(t, "a\nb", res.Text())
	assert.Equal(t, "", (*ChatResponse)(nil).Text())
}

func TestFormatDelay(t *testing.T) {
	assert.Equal(t, "1.50s", FormatDelay(1500))
}
