package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
	"github.com/dorzhavian/hardwareexpress-logai/internal/config"
	"github.com/dorzhavian/hardwareexpress-logai/internal/model"
)

// service is the configured decision layer plus hooks to warm and release
// its classifier.
type service struct {
	decider classify.Decider
	warm    func() error
	close   func()
}

// newService builds the Decider selected by cfg. No model is loaded here;
// the handle loads on first use or on warm.
func newService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*service, error) {
	switch cfg.Decision.Mode {
	case config.ModeScore:
		handle, err := scoreHandle(cfg)
		if err != nil {
			return nil, err
		}
		selector := classify.NewSelector(cfg.Decision.Threshold, cfg.Decision.SuspiciousLabels)
		return &service{
			decider: classify.NewScoreDecider(handle, selector, cfg.ModelIdentity(), logger),
			warm:    warmer(handle),
			close:   closer(handle, logger),
		}, nil

	case config.ModeRules:
		handle, err := generatorHandle(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rc := classify.NewRuleClassifier(handle, cfg.Generator.Timeout, logger)
		return &service{
			decider: classify.NewRuleDecider(rc, cfg.ModelIdentity()),
			warm:    warmer(handle),
			close:   closer(handle, logger),
		}, nil

	default:
		return nil, fmt.Errorf("unknown decision mode %q", cfg.Decision.Mode)
	}
}

func scoreHandle(cfg config.Config) (*model.Handle[classify.ScoreClassifier], error) {
	switch cfg.Score.Backend {
	case config.BackendHF:
		return model.NewHandle(config.BackendHF, func() (classify.ScoreClassifier, error) {
			s, err := model.NewHFScorer(model.HFConfig{
				BaseURL: cfg.Score.HFAPIURL,
				Model:   cfg.Decision.ModelName,
				Token:   cfg.Score.HFToken,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil
	case config.BackendONNX:
		return model.NewHandle(config.BackendONNX, func() (classify.ScoreClassifier, error) {
			s, err := model.NewONNXScorer(model.ONNXConfig{
				ModelPath:   cfg.Score.ONNXModelPath,
				VocabPath:   cfg.Score.ONNXVocabPath,
				LibraryPath: cfg.Score.ONNXLibraryPath,
				Labels:      cfg.Score.ONNXLabels,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown score backend %q", cfg.Score.Backend)
	}
}

func generatorHandle(ctx context.Context, cfg config.Config) (*model.Handle[classify.Generator], error) {
	switch cfg.Generator.Kind {
	case config.GeneratorLiteral:
		return model.NewHandle(config.GeneratorLiteral, func() (classify.Generator, error) {
			return model.LiteralGenerator{}, nil
		}), nil
	case config.GeneratorAnthropic, config.GeneratorBedrock:
		bedrock := cfg.Generator.Kind == config.GeneratorBedrock
		return model.NewHandle(cfg.Generator.Kind, func() (classify.Generator, error) {
			g, err := model.NewAnthropicGenerator(ctx, model.AnthropicConfig{
				APIKey:     cfg.Generator.AnthropicAPIKey,
				Model:      cfg.ModelIdentity(),
				UseBedrock: bedrock,
				Region:     cfg.Generator.AWSRegion,
			})
			if err != nil {
				return nil, err
			}
			return g, nil
		}), nil
	default:
		return nil, fmt.Errorf("unknown generator %q", cfg.Generator.Kind)
	}
}

func warmer[T any](h *model.Handle[T]) func() error {
	return func() error {
		_, err := h.Get()
		return err
	}
}

// closer releases a loaded backend that holds native resources.
func closer[T any](h *model.Handle[T], logger *slog.Logger) func() {
	return func() {
		if h.State() != model.Ready {
			return
		}
		v, _ := h.Get()
		if c, ok := any(v).(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("close classifier", "backend", h.Name(), "err", err)
			}
		}
	}
}
