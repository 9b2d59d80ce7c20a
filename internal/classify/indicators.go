package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// Indicator names one of the literal detection rules.
type Indicator string

const (
	IndicatorSQLInjection Indicator = "sql_injection"
	IndicatorXSS          Indicator = "xss"
	IndicatorOddHour      Indicator = "suspicious_time"
	IndicatorBruteForce   Indicator = "brute_force"
)

// indicatorRule pairs an indicator with its matcher.
type indicatorRule struct {
	Indicator Indicator
	Match     func(text string) bool
}

// indicatorRules are evaluated in order. Code-like markers match
// case-sensitively; the brute-force phrase is natural language and matches
// case-insensitively.
var indicatorRules = []indicatorRule{
	{IndicatorSQLInjection, containsAny(false, "' OR", "UNION SELECT", "1=1", "--")},
	{IndicatorXSS, containsAny(false, "<script>", "javascript:", "alert(")},
	{IndicatorOddHour, inOddHours},
	{IndicatorBruteForce, containsAny(true, "Too many failed attempts")},
}

func containsAny(foldCase bool, markers ...string) func(string) bool {
	if foldCase {
		for i, m := range markers {
			markers[i] = strings.ToLower(m)
		}
	}
	return func(text string) bool {
		if foldCase {
			text = strings.ToLower(text)
		}
		for _, m := range markers {
			if strings.Contains(text, m) {
				return true
			}
		}
		return false
	}
}

// DetectIndicators returns the indicators present in text, in rule order.
// Privilege context (admin roles and the like) is not a rule.
func DetectIndicators(text string) []Indicator {
	var found []Indicator
	for _, rule := range indicatorRules {
		if rule.Match(text) {
			found = append(found, rule.Indicator)
		}
	}
	return found
}

// clockRE finds HH:MM times, including those inside ISO-8601 timestamps such
// as 2024-05-01T23:14:02Z. Whether a match is really a clock time is decided
// by isClockTime.
var clockRE = regexp.MustCompile(`([0-9]{1,2}):([0-9]{2})`)

const (
	oddHourStart = 23 * 60 // inclusive
	oddHourEnd   = 5 * 60  // exclusive
)

// durationWords mark a following HH:MM[:SS] as a length of time.
var durationWords = []string{"elapsed", "duration", "took", "uptime", "runtime"}

// inOddHours reports whether any clock time in text falls in [23:00, 05:00).
func inOddHours(text string) bool {
	for _, idx := range clockRE.FindAllStringSubmatchIndex(text, -1) {
		if !isClockTime(text, idx[0], idx[1]) {
			continue
		}
		h, _ := strconv.Atoi(text[idx[2]:idx[3]])
		m, _ := strconv.Atoi(text[idx[4]:idx[5]])
		if h > 23 || m > 59 {
			continue
		}
		if t := h*60 + m; t >= oddHourStart || t < oddHourEnd {
			return true
		}
	}
	return false
}

// isClockTime rejects H:MM matches that belong to something else: IPv6 and
// MAC groups, version numbers, UTC offsets and durations.
func isClockTime(text string, start, end int) bool {
	if start > 0 {
		switch b := text[start-1]; {
		case isHex(b), b == ':', b == '.', b == '+', b == '-':
			return false
		}
	}

	rest := text[end:]
	if len(rest) > 0 && isHex(rest[0]) {
		return false
	}
	if len(rest) > 1 && rest[0] == ':' {
		if !isDigit(rest[1]) {
			if isHex(rest[1]) {
				return false
			}
		} else if len(rest) < 3 || !isDigit(rest[2]) {
			return false
		} else if len(rest) > 3 && (isHex(rest[3]) || rest[3] == ':') {
			return false
		}
	}

	before := strings.ToLower(strings.TrimRight(text[:start], " \t=:"))
	for _, w := range durationWords {
		if strings.HasSuffix(before, w) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
