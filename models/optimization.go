package models

// TagSuggestion is one AI-suggested tag with its rationale. Tags are
// normalized to at most 20 characters, trimmed at a word boundary.
type TagSuggestion struct {
	Tag    string `json:"tag"`
	Reason string `json:"reason"`
}

// DiagnosisItem explains one weak metric and how the suggestions address it.
type DiagnosisItem struct {
	Metric string `json:"metric"`
	Issue  string `json:"issue"`
	Fix    string `json:"fix"`
}

// AiOptimization is the validated, fully populated result of an AI
// optimize-listing call. Tags holds at most 13 entries.
type AiOptimization struct {
	OptimizedTitle   string          `json:"optimizedTitle"`
	TitleExplanation string          `json:"titleExplanation"`
	Tags             []TagSuggestion `json:"tags"`
	Diagnosis        []DiagnosisItem `json:"diagnosis"`
	ProjectedGrade   string          `json:"projectedGrade"`
	ProjectedScore   *float64        `json:"projectedScore,omitempty"`
}
