package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"etsy-edge/models"
)

const (
	maxTagLen = 20
	maxTags   = 13
)

// ParseError reports AI output that could not be turned into a typed result:
// no locatable JSON, or a required array/object missing. Malformed content
// inside optional fields coerces to defaults instead.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse ai response: " + e.Reason
}

// ParseOptimization turns raw provider text into a validated AiOptimization.
// Providers wrap JSON in markdown fences and chat preamble more often than
// not, so the object is located by balanced-bracket scanning rather than
// trusting the payload to be bare JSON.
func ParseOptimization(content string) (*models.AiOptimization, error) {
	raw, err := extractJSON(stripFences(content), '{', '}')
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON object: %v", err)}
	}

	out := &models.AiOptimization{
		OptimizedTitle:   asString(fields["optimizedTitle"]),
		TitleExplanation: asString(fields["titleExplanation"]),
		Tags:             coerceTags(fields["tags"]),
		Diagnosis:        coerceDiagnosis(fields["diagnosis"]),
		ProjectedGrade:   asString(fields["projectedGrade"]),
		ProjectedScore:   asNumber(fields["projectedScore"]),
	}
	if out.ProjectedGrade == "" {
		out.ProjectedGrade = "B"
	}
	return out, nil
}

// ParseTagSuggestions handles the tag-only variant, where the provider
// returns a bare JSON array. Elements may be {tag, reason} objects or plain
// strings.
func ParseTagSuggestions(content string) ([]models.TagSuggestion, error) {
	raw, err := extractJSON(stripFences(content), '[', ']')
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON array: %v", err)}
	}

	return coerceTagItems(items), nil
}

// FitTag normalizes a tag to Etsy's 20-character limit: lower-case, trimmed,
// and cut at the last word boundary before the limit. A tag with no boundary
// in its first 20 characters falls back to a hard slice so the result is
// never empty and never dropped.
func FitTag(raw string) string {
	tag := strings.ToLower(strings.TrimSpace(raw))
	runes := []rune(tag)
	if len(runes) <= maxTagLen {
		return tag
	}
	head := string(runes[:maxTagLen])
	if i := strings.LastIndex(head, " "); i > 0 {
		return head[:i]
	}
	return head
}

// stripFences removes markdown code-fence markers, with or without a
// language hint, leaving the fenced payload in place.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractJSON returns the first balanced open..close region of s. The scan
// is string-aware: brackets inside JSON string literals, including escaped
// quotes, do not count toward the balance. A naive greedy regex truncates on
// nested braces, which is exactly what provider output produces.
func extractJSON(s string, open, close byte) (string, error) {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return "", &ParseError{Reason: fmt.Sprintf("no %q found in response", string(open))}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", &ParseError{Reason: fmt.Sprintf("unbalanced %q in response", string(open))}
}

func coerceTags(raw json.RawMessage) []models.TagSuggestion {
	var items []json.RawMessage
	if raw == nil || json.Unmarshal(raw, &items) != nil {
		return []models.TagSuggestion{}
	}
	return coerceTagItems(items)
}

func coerceTagItems(items []json.RawMessage) []models.TagSuggestion {
	if len(items) > maxTags {
		items = items[:maxTags]
	}
	out := make([]models.TagSuggestion, 0, len(items))
	for _, item := range items {
		var obj struct {
			Tag    json.RawMessage `json:"tag"`
			Reason json.RawMessage `json:"reason"`
		}
		if err := json.Unmarshal(item, &obj); err == nil && obj.Tag != nil {
			out = append(out, models.TagSuggestion{
				Tag:    FitTag(asString(obj.Tag)),
				Reason: asString(obj.Reason),
			})
			continue
		}
		// Plain-string element.
		if s := asString(item); s != "" {
			out = append(out, models.TagSuggestion{Tag: FitTag(s)})
		}
	}
	return out
}

func coerceDiagnosis(raw json.RawMessage) []models.DiagnosisItem {
	var items []struct {
		Metric json.RawMessage `json:"metric"`
		Issue  json.RawMessage `json:"issue"`
		Fix    json.RawMessage `json:"fix"`
	}
	if raw == nil || json.Unmarshal(raw, &items) != nil {
		return []models.DiagnosisItem{}
	}
	out := make([]models.DiagnosisItem, 0, len(items))
	for _, d := range items {
		out = append(out, models.DiagnosisItem{
			Metric: asString(d.Metric),
			Issue:  asString(d.Issue),
			Fix:    asString(d.Fix),
		})
	}
	return out
}

// asString coerces a raw JSON value to a string: string literals decode,
// numbers and booleans render via their JSON text, null and absent become "".
func asString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	return text
}

func asNumber(raw json.RawMessage) *float64 {
	if raw == nil {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil
	}
	return &n
}
