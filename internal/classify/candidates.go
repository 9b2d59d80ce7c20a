package classify

import "github.com/tidwall/gjson"

// ParseCandidates extracts the candidate set for a single input from raw
// classifier output. A batch-shaped result ([[...], ...]) yields the first
// input's candidates. Anything that is not a JSON list yields an empty set.
//
// Entries are read leniently: a missing or non-string label becomes
// UnknownLabel and a missing or non-numeric score becomes 0.
func ParseCandidates(raw []byte) []Candidate {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil
	}

	items := root.Array()
	if len(items) > 0 && items[0].IsArray() {
		items = items[0].Array()
	}

	out := make([]Candidate, 0, len(items))
	for _, item := range items {
		out = append(out, candidateFrom(item))
	}
	return out
}

func candidateFrom(item gjson.Result) Candidate {
	c := Candidate{Label: UnknownLabel}
	if !item.IsObject() {
		return c
	}
	if label := item.Get("label"); label.Type == gjson.String {
		c.Label = label.String()
	}
	if score := item.Get("score"); score.Type == gjson.Number {
		c.Score = score.Float()
	}
	return c
}
