package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrClassifierUnavailable means the score classifier failed to load or
	// is not configured. It is the only decision-layer error callers see.
	ErrClassifierUnavailable = errors.New("classifier unavailable")

	// ErrInference wraps a runtime failure of a loaded score classifier.
	ErrInference = errors.New("inference failed")
)

// Decision modes selectable by deployment configuration.
const (
	ModeScore = "score"
	ModeRules = "rules"
)

// ScoreClassifier returns a (label, score) distribution for text as raw JSON,
// typically [{"label":..., "score":...}, ...] or a batch of such lists.
type ScoreClassifier interface {
	Classify(ctx context.Context, text string) (json.RawMessage, error)
}

// Generator returns free-form text for a system prompt and user input.
type Generator interface {
	Generate(ctx context.Context, system, text string) (string, error)
}

// Capability hands out a lazily initialized classifier backend. Status is
// one of "uninitialized", "ready" or "failed".
type Capability[T any] interface {
	Get() (T, error)
	Status() string
}

// Decider turns one log text into one Verdict.
type Decider interface {
	Decide(ctx context.Context, text string) (*Verdict, error)
	Mode() string
	Status() string
}

// ScoreDecider runs the score-based path: classify, select, decide, normalize.
type ScoreDecider struct {
	source   Capability[ScoreClassifier]
	selector *Selector
	norm     Normalizer
	logger   *slog.Logger
}

// NewScoreDecider creates a ScoreDecider reporting modelName in verdicts.
func NewScoreDecider(source Capability[ScoreClassifier], selector *Selector, modelName string, logger *slog.Logger) *ScoreDecider {
	return &ScoreDecider{
		source:   source,
		selector: selector,
		norm:     Normalizer{ModelName: modelName, Threshold: selector.Threshold},
		logger:   logger,
	}
}

// Decide classifies text. The selector is never reached when the classifier
// is unavailable; the caller gets ErrClassifierUnavailable instead.
func (d *ScoreDecider) Decide(ctx context.Context, text string) (*Verdict, error) {
	clf, err := d.source.Get()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassifierUnavailable, err)
	}

	raw, err := clf.Classify(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	candidates := ParseCandidates(raw)
	top := Select(candidates)
	suspicious := d.selector.IsSuspicious(top)
	d.logger.Debug("score decision",
		"candidates", len(candidates),
		"label", top.Label,
		"score", top.Score,
		"suspicious", suspicious,
	)
	return d.norm.FromScore(top, suspicious, raw), nil
}

// Mode implements Decider.
func (d *ScoreDecider) Mode() string { return ModeScore }

// Status implements Decider.
func (d *ScoreDecider) Status() string { return d.source.Status() }

// RuleDecider runs the rule-grounded path. It never returns an error.
type RuleDecider struct {
	source     Capability[Generator]
	classifier *RuleClassifier
	norm       Normalizer
}

// NewRuleDecider creates a RuleDecider reporting modelName in verdicts.
func NewRuleDecider(classifier *RuleClassifier, modelName string) *RuleDecider {
	return &RuleDecider{
		source:     classifier.source,
		classifier: classifier,
		norm:       Normalizer{ModelName: modelName},
	}
}

// Decide classifies text.
func (d *RuleDecider) Decide(ctx context.Context, text string) (*Verdict, error) {
	return d.norm.FromOutcome(d.classifier.Generate(ctx, text)), nil
}

// Mode implements Decider.
func (d *RuleDecider) Mode() string { return ModeRules }

// Status implements Decider.
func (d *RuleDecider) Status() string { return d.source.Status() }
