package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
)

// Anti-echo defaults
const (
	DefaultEchoThreshold   = 0.8
	DefaultEchoWindow      = 3
	DefaultEchoMaxAttempts = 3
	echoQuoteLimit         = 200
)

// EchoGuard detects replies that repeat another participant and retries them
type EchoGuard struct {
	Threshold   float64
	Window      int
	MaxAttempts int
}

// DefaultEchoGuard returns the guard with default tunables
func DefaultEchoGuard() EchoGuard {
	return EchoGuard{
		Threshold:   DefaultEchoThreshold,
		Window:      DefaultEchoWindow,
		MaxAttempts: DefaultEchoMaxAttempts,
	}
}

func (g EchoGuard) withDefaults() EchoGuard {
	if g.Threshold <= 0 {
		g.Threshold = DefaultEchoThreshold
	}
	if g.Window <= 0 {
		g.Window = DefaultEchoWindow
	}
	if g.MaxAttempts <= 0 {
		g.MaxAttempts = DefaultEchoMaxAttempts
	}
	return g
}

// NormalizeForEcho lower-cases s, drops punctuation and symbols and collapses whitespace
func NormalizeForEcho(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Jaccard computes token-set similarity of two normalized strings
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// IsEcho reports whether candidate repeats any reference
func (g EchoGuard) IsEcho(candidate string, references []string) bool {
	g = g.withDefaults()
	c := NormalizeForEcho(candidate)
	if c == "" {
		return false
	}
	for _, ref := range references {
		r := NormalizeForEcho(ref)
		if r == "" {
			continue
		}
		if strings.Contains(c, r) || strings.Contains(r, c) {
			return true
		}
		if Jaccard(c, r) >= g.Threshold {
			return true
		}
	}
	return false
}

// References collects the text of the latest messages not written by selfID,
// most recent first, skipping SYSTEM and empty messages
func (g EchoGuard) References(messages []models.Message, selfID uint) []string {
	g = g.withDefaults()
	refs := make([]string, 0, g.Window)
	for i := len(messages) - 1; i >= 0 && len(refs) < g.Window; i-- {
		m := messages[i]
		if m.Type == models.MessageTypeSystem || m.AuthorID == selfID {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		refs = append(refs, m.Content)
	}
	return refs
}

// EchoInstruction builds the extra system instruction used on retries
func EchoInstruction(reference string) string {
	quote := strings.TrimSpace(reference)
	if utf8.RuneCountInString(quote) > echoQuoteLimit {
		quote = string([]rune(quote)[:echoQuoteLimit])
	}
	return fmt.Sprintf(
		"Your previous draft repeated what another participant just said: \"%s\". "+
			"Do not repeat, quote or paraphrase that message. Reply with your own distinct reaction, opinion or question.",
		quote,
	)
}

// CallFunc performs one provider call with the given extra system instruction
type CallFunc func(ctx context.Context, extraSystemInstruction string) (*ChatResponse, error)

// Run calls the provider and retries while the reply echoes the references.
// When every attempt echoes, fallback is returned instead.
func (g EchoGuard) Run(ctx context.Context, references []string, baseInstruction string, call CallFunc, fallback func() *ChatResponse) (*ChatResponse, int, error) {
	g = g.withDefaults()

	extra := baseInstruction
	res, attempts, err := Attempt(ctx, g.MaxAttempts, func(ctx context.Context, attempt int) (*ChatResponse, bool, error) {
		res, err := call(ctx, extra)
		if err != nil {
			return nil, false, err
		}
		if len(references) == 0 || !g.IsEcho(res.Text(), references) {
			return res, true, nil
		}
		echoRetries.Inc()
		extra = joinInstructions(baseInstruction, EchoInstruction(references[0]))
		return res, false, nil
	})
	if err == nil {
		return res, attempts, nil
	}
	if IsAttemptsExhausted(err) {
		return fallback(), attempts, nil
	}
	return nil, attempts, err
}

func joinInstructions(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}
