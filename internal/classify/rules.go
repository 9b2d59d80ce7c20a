package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrGeneration marks every way the rule-grounded generator can fail to
// produce a usable verdict.
var ErrGeneration = errors.New("generation failed")

// RulesPrompt primes the generator with the literal detection rules. The rule
// set, not the model answering it, defines the contract.
const RulesPrompt = `You are a security log analyst. Classify the log entry using ONLY these rules:

1. SQL injection: the log contains any of the literal strings ' OR , UNION SELECT , 1=1 , --
2. Cross-site scripting: the log contains <script> , javascript: or alert(
3. Suspicious time: the log timestamp is between 23:00 and 05:00 (23:00 inclusive, 05:00 exclusive)
4. Brute force: the log contains the phrase "Too many failed attempts" (any letter case)

If ANY rule matches, the answer is ANOMALOUS. If NO rule matches, the answer is NORMAL,
even when other fields (for example an admin role) look risky. Do not apply any other judgement.

Respond with exactly one word: ANOMALOUS or NORMAL.`

// extractionRule maps a keyword found in generated text to a verdict.
type extractionRule struct {
	Keyword string
	Verdict Classification
}

// ExtractionRules are tried in order against the upper-cased generated text;
// the first keyword found decides. ANOMALOUS is checked before NORMAL, so text
// mentioning both resolves to ANOMALOUS.
var ExtractionRules = []extractionRule{
	{Keyword: "ANOMALOUS", Verdict: Anomalous},
	{Keyword: "NORMAL", Verdict: Normal},
}

// ExtractVerdict searches generated text for a verdict keyword,
// case-insensitively. ok is false when no keyword is present.
func ExtractVerdict(text string) (c Classification, ok bool) {
	upper := strings.ToUpper(text)
	for _, rule := range ExtractionRules {
		if strings.Contains(upper, rule.Keyword) {
			return rule.Verdict, true
		}
	}
	return "", false
}

// Outcome is the result of one generation: either a classification with the
// text it was read from, or the reason generation failed.
type Outcome struct {
	Classification Classification
	Text           string
	Err            error
}

// Resolve turns the outcome into a classification. A failed generation
// resolves to NORMAL: under ambiguity the rule path under-reports rather than
// erroring the caller.
func (o Outcome) Resolve() Classification {
	if o.Err != nil {
		return Normal
	}
	return o.Classification
}

// RuleClassifier asks a generator primed with RulesPrompt for a verdict.
type RuleClassifier struct {
	source  Capability[Generator]
	timeout time.Duration
	logger  *slog.Logger
}

// NewRuleClassifier creates a RuleClassifier. A non-positive timeout disables
// the deadline.
func NewRuleClassifier(source Capability[Generator], timeout time.Duration, logger *slog.Logger) *RuleClassifier {
	return &RuleClassifier{source: source, timeout: timeout, logger: logger}
}

// Classify returns ANOMALOUS or NORMAL for logText. It never fails.
func (rc *RuleClassifier) Classify(ctx context.Context, logText string) Classification {
	return rc.Generate(ctx, logText).Resolve()
}

// Generate runs the generator and reads a verdict from its output.
func (rc *RuleClassifier) Generate(ctx context.Context, logText string) Outcome {
	gen, err := rc.source.Get()
	if err != nil {
		return rc.failed(fmt.Errorf("%w: generator unavailable: %w", ErrGeneration, err))
	}

	if rc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.timeout)
		defer cancel()
	}

	text, err := generate(ctx, gen, logText)
	switch {
	case err != nil:
		return rc.failed(fmt.Errorf("%w: %w", ErrGeneration, err))
	case !utf8.ValidString(text):
		return rc.failed(fmt.Errorf("%w: output is not valid UTF-8", ErrGeneration))
	case strings.TrimSpace(text) == "":
		return rc.failed(fmt.Errorf("%w: empty output", ErrGeneration))
	}

	verdict, ok := ExtractVerdict(text)
	if !ok {
		return rc.failed(fmt.Errorf("%w: no verdict keyword in output", ErrGeneration))
	}
	return Outcome{Classification: verdict, Text: text}
}

func (rc *RuleClassifier) failed(err error) Outcome {
	rc.logger.Warn("rule classifier fell back to NORMAL", "err", err)
	return Outcome{Err: err}
}

// generate calls gen on its own goroutine so the deadline holds even for a
// generator that ignores ctx, and so a panicking generator counts as a
// failure instead of taking the request down.
func generate(ctx context.Context, gen Generator, logText string) (string, error) {
	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("generator panicked: %v", r)}
			}
		}()
		text, err := gen.Generate(ctx, RulesPrompt, logText)
		ch <- reply{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		return r.text, r.err
	}
}
