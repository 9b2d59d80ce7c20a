package classify

import (
	"encoding/json"
	"fmt"
)

// Normalizer maps either strategy's raw result onto a Verdict.
type Normalizer struct {
	ModelName string
	Threshold float64
}

// FromScore builds the verdict for the score-based path. raw is the
// unmodified classifier output, kept for audit.
func (n Normalizer) FromScore(top Candidate, suspicious bool, raw json.RawMessage) *Verdict {
	score, threshold := top.Score, n.Threshold
	return &Verdict{
		ModelName:    n.ModelName,
		Label:        top.Label,
		Score:        &score,
		Threshold:    &threshold,
		IsSuspicious: suspicious,
		Summary:      fmt.Sprintf("label=%s, score=%.3f", top.Label, top.Score),
		Raw:          auditRaw(raw),
	}
}

// FromOutcome builds the verdict for the rule-grounded path. Score and
// threshold stay nil; the summary is the classification word.
func (n Normalizer) FromOutcome(o Outcome) *Verdict {
	c := o.Resolve()
	v := &Verdict{
		ModelName:      n.ModelName,
		Label:          string(c),
		IsSuspicious:   c == Anomalous,
		Classification: c,
		Summary:        string(c),
	}
	if o.Err != nil {
		v.Reason = o.Err.Error()
		return v
	}
	if text, err := json.Marshal(o.Text); err == nil {
		v.Raw = text
	}
	return v
}

// auditRaw keeps raw output that is valid JSON and quotes anything else so
// the verdict always serializes.
func auditRaw(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return raw
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}
