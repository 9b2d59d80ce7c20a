package model

import (
	"context"
	"strings"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
)

// LiteralGenerator answers the rules prompt without a hosted model by
// evaluating the literal indicators directly. Its output has the same shape
// an instruction-following model is asked for, plus the matched indicators.
type LiteralGenerator struct{}

// Generate ignores the system prompt; the rules it would carry are built in.
func (LiteralGenerator) Generate(ctx context.Context, _ string, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	found := classify.DetectIndicators(text)
	if len(found) == 0 {
		return string(classify.Normal), nil
	}
	names := make([]string, len(found))
	for i, ind := range found {
		names[i] = string(ind)
	}
	return string(classify.Anomalous) + " (" + strings.Join(names, ", ") + ")", nil
}
