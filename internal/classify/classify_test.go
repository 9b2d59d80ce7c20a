package classify

import (
	"context"
	"encoding/json"
	"log/slog"
)

var discard = slog.New(slog.DiscardHandler)

// fakeCapability is a Capability with a fixed backend or load error.
type fakeCapability[T any] struct {
	value T
	err   error
}

func (f fakeCapability[T]) Get() (T, error) { return f.value, f.err }

func (f fakeCapability[T]) Status() string {
	if f.err != nil {
		return "failed"
	}
	return "ready"
}

type scorerFunc func(ctx context.Context, text string) (json.RawMessage, error)

func (f scorerFunc) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	return f(ctx, text)
}

type generatorFunc func(ctx context.Context, system, text string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, system, text string) (string, error) {
	return f(ctx, system, text)
}

func fixedScores(raw string) Capability[ScoreClassifier] {
	return fakeCapability[ScoreClassifier]{value: scorerFunc(func(context.Context, string) (json.RawMessage, error) {
		return json.RawMessage(raw), nil
	})}
}

func fixedText(text string, err error) Capability[Generator] {
	return fakeCapability[Generator]{value: generatorFunc(func(context.Context, string, string) (string, error) {
		return text, err
	})}
}
