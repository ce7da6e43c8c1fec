package models

// MetricResult is one scored factor of a listing audit.
// Score is always within [0, Max].
type MetricResult struct {
	Score  int    `bson:"score" json:"score"`
	Max    int    `bson:"max" json:"max"`
	Detail string `bson:"detail" json:"detail"`
	Label  string `bson:"label" json:"label"`
}

// ScoreBreakdown lists every metric in evaluation order. The field order is
// part of the API contract: recommendations follow the same order.
type ScoreBreakdown struct {
	TitleLength        MetricResult `bson:"title_length" json:"titleLength"`
	TitleFrontload     MetricResult `bson:"title_frontload" json:"titleFrontload"`
	TitleLongTail      MetricResult `bson:"title_long_tail" json:"titleLongTail"`
	SearchAlignment    MetricResult `bson:"search_alignment" json:"searchAlignment"`
	KeywordDiversity   MetricResult `bson:"keyword_diversity" json:"keywordDiversity"`
	DescriptionQuality MetricResult `bson:"description_quality" json:"descriptionQuality"`
}

// Metrics returns the breakdown in evaluation order.
func (b ScoreBreakdown) Metrics() []MetricResult {
	return []MetricResult{
		b.TitleLength,
		b.TitleFrontload,
		b.TitleLongTail,
		b.SearchAlignment,
		b.KeywordDiversity,
		b.DescriptionQuality,
	}
}

// SeoScore is the full audit result for a listing. It is recomputed from the
// source text on every request and never persisted.
type SeoScore struct {
	Grade           string         `bson:"grade" json:"grade"`
	Score           int            `bson:"score" json:"score"`
	Breakdown       ScoreBreakdown `bson:"breakdown" json:"breakdown"`
	Recommendations []string       `bson:"recommendations" json:"recommendations"`
}
