package ai

import (
	"context"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/models"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

// BuildFunc assembles a payload from the messages that are still in the window
type BuildFunc[P any] func(messages []models.Message) (P, error)

// CountFunc returns the token count of a payload; failures must report 0
type CountFunc[P any] func(ctx context.Context, payload P) int

// TrimResult is the payload that fit and the window it was built from
type TrimResult[P any] struct {
	Payload  P
	Messages []models.Message
	Tokens   int
	Evicted  int
}

// TrimToBudget rebuilds the payload from scratch after every eviction, since
// lore activation and group context depend on which messages remain. The
// oldest message is dropped until the count fits maxTokens. A maxTokens of 0
// or less disables the budget.
func TrimToBudget[P any](ctx context.Context, messages []models.Message, maxTokens int, build BuildFunc[P], count CountFunc[P]) (TrimResult[P], error) {
	window := messages
	attempts := len(messages)
	if attempts < 1 {
		attempts = 1
	}

	res, _, err := Attempt(ctx, attempts, func(ctx context.Context, _ int) (TrimResult[P], bool, error) {
		payload, err := build(window)
		if err != nil {
			return TrimResult[P]{}, false, err
		}
		result := TrimResult[P]{
			Payload:  payload,
			Messages: window,
			Evicted:  len(messages) - len(window),
		}
		if maxTokens <= 0 {
			return result, true, nil
		}

		result.Tokens = count(ctx, payload)
		if result.Tokens <= maxTokens {
			return result, true, nil
		}
		if len(window) <= 1 {
			return result, false, apperrors.NewTokenLimitExceededError(result.Tokens, maxTokens)
		}
		window = window[1:]
		return result, false, nil
	})
	if err != nil {
		return TrimResult[P]{}, err
	}
	return res, nil
}
