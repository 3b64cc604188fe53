package quizgen

import (
	"encoding/json"
	"regexp"
	"strings"

	"pdf-quiz/internal/domain"
)

var (
	thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)
	// Greedy span from the first '{' to the last '}'.
	braceSpanPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseResponse recovers the "mcqs" list from free-form model output.
// The result always carries a non-nil Questions slice.
func ParseResponse(raw string) *domain.GenerationResult {
	res := &domain.GenerationResult{Questions: []domain.MCQ{}}

	cleaned := strings.TrimSpace(thinkBlockPattern.ReplaceAllString(raw, ""))

	candidates := jsonCandidates(cleaned)
	if len(candidates) == 0 {
		res.Status = domain.ParseNoJSON
		return res
	}

	// The first candidate that decodes as an object is the document.
	var records []domain.MCQ
	decoded := false
	for _, candidate := range candidates {
		r, ok, err := decodeMCQs(candidate)
		if !ok {
			continue
		}
		if err != nil {
			res.Status = domain.ParseInvalidJSON
			return res
		}
		records, decoded = r, true
		break
	}
	if !decoded {
		res.Status = domain.ParseInvalidJSON
		return res
	}

	res.Status = domain.ParseOK
	for _, q := range records {
		if err := q.Validate(); err != nil {
			res.Dropped++
			continue
		}
		res.Questions = append(res.Questions, q)
	}
	return res
}

// jsonCandidates returns the balanced object starting at the first '{' followed by
// the greedy first-'{'-to-last-'}' span. It is empty when no '{' precedes a '}'.
func jsonCandidates(s string) []string {
	greedy := braceSpanPattern.FindString(s)
	if greedy == "" {
		return nil
	}
	var candidates []string
	if obj := balancedObjectAt(s, strings.IndexByte(s, '{')); obj != "" && obj != greedy {
		candidates = append(candidates, obj)
	}
	return append(candidates, greedy)
}

// balancedObjectAt returns the text from s[start] ('{') up to its matching '}'.
// Braces inside JSON strings are ignored. Returns "" when the object never closes.
func balancedObjectAt(s string, start int) string {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// decodeMCQs reports whether candidate is a JSON object. err is set when the
// object carries an "mcqs" value that is not a list of question records.
func decodeMCQs(candidate string) (records []domain.MCQ, ok bool, err error) {
	var fields map[string]json.RawMessage
	if json.Unmarshal([]byte(candidate), &fields) != nil {
		return nil, false, nil
	}
	raw, hasKey := fields["mcqs"]
	if !hasKey || string(raw) == "null" {
		return nil, true, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, true, err
	}
	return records, true, nil
}
