package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

func TestNormalizeForEcho(t *testing.T) {
	assert.Equal(t, "hello there friend", NormalizeForEcho("  Hello,\tTHERE   friend!! "))
	assert.Equal(t, "", NormalizeForEcho("?!…"))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard("a b c", "c b a"), 1e-9)
	assert.InDelta(t, 4.0/6.0, Jaccard("a b c d e", "a b c d f"), 1e-9)
	assert.Equal(t, 0.0, Jaccard("", ""))
}

func TestIsEcho(t *testing.T) {
	g := DefaultEchoGuard()

	assert.True(t, g.IsEcho("Hello there!", []string{"hello there"}))
	assert.True(t, g.IsEcho("the cafe opens at nine", []string{"The cafe opens at nine today."}))
	assert.True(t, g.IsEcho("one two three four five six seven eight nine ten", []string{"ten nine eight seven six five four three two one"}))
	assert.False(t, g.IsEcho("I love painting", []string{"the weather is nice"}))
	assert.False(t, g.IsEcho("a b c d e", []string{"a b c d f"}))
	assert.False(t, g.IsEcho("...", []string{"anything"}))
	assert.False(t, g.IsEcho("anything", nil))
}

func TestEchoReferences(t *testing.T) {
	messages := []models.Message{
		{AuthorID: 0, Content: "oldest"},
		{AuthorID: 2, Content: "sora one"},
		{AuthorID: 1, Content: "mine"},
		{AuthorID: 0, Type: models.MessageTypeSystem, Content: "joined"},
		{AuthorID: 3, Content: "   "},
		{AuthorID: 0, Content: "user latest"},
		{AuthorID: 2, Content: "sora latest"},
	}

	refs := DefaultEchoGuard().References(messages, 1)

	assert.Equal(t, []string{"sora latest", "user latest", "sora one"}, refs)
}

func TestEchoInstructionQuotesAtMost200Runes(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "가"
	}
	ins := EchoInstruction(long)

	assert.Contains(t, ins, "\""+long[:200*3]+"\"")
	assert.NotContains(t, ins, long[:201*3])
}

func TestEchoRunRetriesThenAccepts(t *testing.T) {
	replies := []string{"hello there", "Hello there!", "something new"}
	var extras []string
	call := func(_ context.Context, extra string) (*ChatResponse, error) {
		extras = append(extras, extra)
		return &ChatResponse{Messages: []MessagePart{{Content: replies[len(extras)-1]}}}, nil
	}

	res, attempts, err := DefaultEchoGuard().Run(context.Background(), []string{"hello there"}, "base", call, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "something new", res.Text())
	assert.Equal(t, "base", extras[0])
	assert.Contains(t, extras[1], "base")
	assert.Contains(t, extras[1], "\"hello there\"")
}

func TestEchoRunFallsBackAfterThreeCalls(t *testing.T) {
	calls := 0
	call := func(_ context.Context, _ string) (*ChatResponse, error) {
		calls++
		return &ChatResponse{Messages: []MessagePart{{Content: "same words"}}}, nil
	}
	fallback := &ChatResponse{Messages: []MessagePart{{Content: "Hmm, what do you think?"}}}

	res, attempts, err := DefaultEchoGuard().Run(context.Background(), []string{"same words"}, "", call, func() *ChatResponse { return fallback })

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)
	assert.Same(t, fallback, res)
}

func TestEchoRunWithoutReferencesCallsOnce(t *testing.T) {
	calls := 0
	call := func(_ context.Context, _ string) (*ChatResponse, error) {
		calls++
		return &ChatResponse{Messages: []MessagePart{{Content: "hi"}}}, nil
	}

	_, _, err := EchoGuard{}.Run(context.Background(), nil, "", call, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
