package classify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sst2Output = `[[{"label":"NEGATIVE","score":0.95},{"label":"POSITIVE","score":0.05}]]`

func TestScoreDeciderVerdict(t *testing.T) {
	d := NewScoreDecider(fixedScores(sst2Output), NewSelector(0.8, nil), "distilbert-sst2", discard)

	v, err := d.Decide(context.Background(), "failed password for root")
	require.NoError(t, err)

	assert.Equal(t, "distilbert-sst2", v.ModelName)
	assert.Equal(t, "NEGATIVE", v.Label)
	require.NotNil(t, v.Score)
	require.NotNil(t, v.Threshold)
	assert.InDelta(t, 0.95, *v.Score, 1e-9)
	assert.InDelta(t, 0.8, *v.Threshold, 1e-9)
	assert.True(t, v.IsSuspicious)
	assert.Equal(t, "label=NEGATIVE, score=0.950", v.Summary)
	assert.JSONEq(t, sst2Output, string(v.Raw))
	assert.Empty(t, v.Classification)
	assert.Equal(t, ModeScore, d.Mode())
	assert.Equal(t, "ready", d.Status())
}

func TestScoreDeciderAllowList(t *testing.T) {
	raw := `[{"label":"POSITIVE","score":0.99},{"label":"NEGATIVE","score":0.01}]`
	d := NewScoreDecider(fixedScores(raw), NewSelector(0.8, []string{"NEGATIVE"}), "m", discard)

	v, err := d.Decide(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "POSITIVE", v.Label)
	assert.False(t, v.IsSuspicious)
}

func TestScoreDeciderEmptyOutput(t *testing.T) {
	d := NewScoreDecider(fixedScores(`[]`), NewSelector(0.8, nil), "m", discard)

	v, err := d.Decide(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "unknown", v.Label)
	assert.Equal(t, 0.0, *v.Score)
	assert.False(t, v.IsSuspicious)
	assert.Equal(t, "label=unknown, score=0.000", v.Summary)
}

func TestScoreDeciderUnavailable(t *testing.T) {
	src := fakeCapability[ScoreClassifier]{err: errors.New("model weights not found")}
	d := NewScoreDecider(src, NewSelector(0.8, nil), "m", discard)

	v, err := d.Decide(context.Background(), "x")
	assert.Nil(t, v)
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.Contains(t, err.Error(), "model weights not found")
	assert.Equal(t, "failed", d.Status())
}

func TestScoreDeciderInferenceError(t *testing.T) {
	src := fakeCapability[ScoreClassifier]{value: scorerFunc(func(context.Context, string) (json.RawMessage, error) {
		return nil, errors.New("upstream 500")
	})}
	d := NewScoreDecider(src, NewSelector(0.8, nil), "m", discard)

	_, err := d.Decide(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInference)
	assert.NotErrorIs(t, err, ErrClassifierUnavailable)
}

func TestScoreDeciderIdempotent(t *testing.T) {
	d := NewScoreDecider(fixedScores(sst2Output), NewSelector(0.8, []string{"NEGATIVE"}), "m", discard)

	first, err := d.Decide(context.Background(), "same text")
	require.NoError(t, err)
	second, err := d.Decide(context.Background(), "same text")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRuleDeciderVerdict(t *testing.T) {
	rc := NewRuleClassifier(fixedText("Answer: ANOMALOUS", nil), time.Second, discard)
	d := NewRuleDecider(rc, "claude")

	v, err := d.Decide(context.Background(), "x' OR 1=1 --")
	require.NoError(t, err)
	assert.Equal(t, Anomalous, v.Classification)
	assert.Equal(t, "ANOMALOUS", v.Label)
	assert.Equal(t, "ANOMALOUS", v.Summary)
	assert.True(t, v.IsSuspicious)
	assert.Nil(t, v.Score)
	assert.Nil(t, v.Threshold)
	assert.JSONEq(t, `"Answer: ANOMALOUS"`, string(v.Raw))
	assert.Equal(t, ModeRules, d.Mode())

	body, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"score"`)
	assert.NotContains(t, string(body), `"threshold"`)
}

func TestRuleDeciderFailureIsNormal(t *testing.T) {
	rc := NewRuleClassifier(fixedText("", errors.New("timeout")), time.Second, discard)
	d := NewRuleDecider(rc, "claude")

	v, err := d.Decide(context.Background(), "Too many failed attempts")
	require.NoError(t, err)
	assert.Equal(t, Normal, v.Classification)
	assert.False(t, v.IsSuspicious)
	assert.Contains(t, v.Reason, "generation failed")
	assert.Nil(t, v.Raw)
}

func TestRuleDeciderIdempotent(t *testing.T) {
	rc := NewRuleClassifier(fixedText("normal", nil), time.Second, discard)
	d := NewRuleDecider(rc, "m")

	first, _ := d.Decide(context.Background(), "same")
	second, _ := d.Decide(context.Background(), "same")
	assert.Equal(t, first, second)
}

func TestNormalizerQuotesInvalidRaw(t *testing.T) {
	v := Normalizer{ModelName: "m", Threshold: 0.5}.FromScore(Candidate{Label: "A", Score: 0.6}, true, json.RawMessage("not json"))
	assert.JSONEq(t, `"not json"`, string(v.Raw))
}
