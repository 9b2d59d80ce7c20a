package classify

import "encoding/json"

// Classification is the binary outcome of the rule-grounded path.
type Classification string

const (
	Normal    Classification = "NORMAL"
	Anomalous Classification = "ANOMALOUS"
)

// UnknownLabel is reported when the classifier yields no usable candidate.
const UnknownLabel = "unknown"

// Candidate is one (label, score) pair emitted by a score-based classifier.
type Candidate struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Verdict is the decision layer's only externally visible result. Score and
// Threshold are nil on the rule-grounded path, where the generator provides
// no meaningful numbers.
type Verdict struct {
	ModelName      string          `json:"model_name"`
	Label          string          `json:"label"`
	Score          *float64        `json:"score,omitempty"`
	Threshold      *float64        `json:"threshold,omitempty"`
	IsSuspicious   bool            `json:"is_suspicious"`
	Classification Classification  `json:"classification,omitempty"`
	Summary        string          `json:"ai_summary"`
	Reason         string          `json:"reason,omitempty"`
	Raw            json.RawMessage `json:"raw,omitempty"`
}
