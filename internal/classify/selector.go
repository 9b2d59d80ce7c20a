package classify

import "strings"

// Selector decides suspicion for the top-scoring candidate of a score-based
// classifier.
type Selector struct {
	Threshold float64

	// suspicious is the optional allow-list; empty means the threshold alone
	// decides.
	suspicious map[string]struct{}
}

// NewSelector creates a Selector. Blank entries in labels are ignored.
func NewSelector(threshold float64, labels []string) *Selector {
	s := &Selector{Threshold: threshold, suspicious: make(map[string]struct{}, len(labels))}
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			s.suspicious[l] = struct{}{}
		}
	}
	return s
}

// Select returns the candidate with the highest score. The first candidate
// wins an exact tie. An empty set yields {unknown, 0}.
func Select(candidates []Candidate) Candidate {
	if len(candidates) == 0 {
		return Candidate{Label: UnknownLabel}
	}

	top := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > top.Score {
			top = c
		}
	}
	if top.Label == "" {
		top.Label = UnknownLabel
	}
	return top
}

// IsSuspicious reports whether c crosses the threshold (inclusive) and, when
// an allow-list is configured, carries one of the listed labels.
func (s *Selector) IsSuspicious(c Candidate) bool {
	// Written as a negated >= so a NaN score is never suspicious.
	if !(c.Score >= s.Threshold) {
		return false
	}
	if len(s.suspicious) == 0 {
		return true
	}
	_, ok := s.suspicious[c.Label]
	return ok
}

// SuspiciousLabels returns the configured allow-list in no particular order.
func (s *Selector) SuspiciousLabels() []string {
	out := make([]string, 0, len(s.suspicious))
	for l := range s.suspicious {
		out = append(out, l)
	}
	return out
}
