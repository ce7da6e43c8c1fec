package analyzer_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etsy-edge/analyzer"
)

var sampleSearches = []string{
	"personalized cutting board", "custom charcuterie board", "engraved serving board",
	"wedding gift for couple", "housewarming gift", "walnut cutting board",
	"kitchen decor rustic", "anniversary gift wood", "monogram cheese board",
	"bridal shower gift", "custom kitchen gift", "chopping board engraved",
	"gift for mom kitchen", "realtor closing gift", "personalized wedding gift",
}

const goodTitle = "Personalized Walnut Cutting Board, Custom Charcuterie Board Engraved Wedding Gift for Couple, Housewarming Kitchen Gift"

func TestScoreDeterministic(t *testing.T) {
	in := analyzer.ScoringInput{
		Title:           goodTitle,
		Description:     strings.Repeat("Personalized walnut cutting board, engraved by hand. ", 12),
		RelatedSearches: sampleSearches,
	}
	first := analyzer.Score(in)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, analyzer.Score(in))
	}
}

func TestScoreBounds(t *testing.T) {
	inputs := []analyzer.ScoringInput{
		{},
		{Title: "Box"},
		{Title: goodTitle, RelatedSearches: sampleSearches},
		{Title: strings.Repeat("handmade gift ", 30), Description: strings.Repeat("word ", 200)},
		{Title: "Beautiful Handmade Wooden Box"},
		{Description: strings.Repeat("a", 600)},
	}
	for i, in := range inputs {
		got := analyzer.Score(in)
		assert.GreaterOrEqual(t, got.Score, 0, "input %d", i)
		assert.LessOrEqual(t, got.Score, 100, "input %d", i)
		totalMax := 0
		for _, m := range got.Breakdown.Metrics() {
			assert.GreaterOrEqual(t, m.Score, 0, "input %d metric %s", i, m.Label)
			assert.LessOrEqual(t, m.Score, m.Max, "input %d metric %s", i, m.Label)
			totalMax += m.Max
		}
		assert.Equal(t, 100, totalMax)
	}
}

func TestScoreEmptyInputDoesNotPanic(t *testing.T) {
	got := analyzer.Score(analyzer.ScoringInput{})
	assert.Equal(t, "F", got.Grade)
	assert.Zero(t, got.Breakdown.DescriptionQuality.Score)
	for _, m := range got.Breakdown.Metrics() {
		assert.NotEmpty(t, m.Detail)
	}
}

func TestWeakListingGradesLow(t *testing.T) {
	// Short title opening with a filler adjective, no description, no search
	// data: everything should bottom out.
	got := analyzer.Score(analyzer.ScoringInput{Title: "Beautiful Handmade Wooden Box"})

	assert.Contains(t, []string{"D", "F"}, got.Grade)
	assert.Less(t, got.Breakdown.TitleLength.Score, got.Breakdown.TitleLength.Max/2)
	assert.Less(t, got.Breakdown.TitleFrontload.Score, got.Breakdown.TitleFrontload.Max/2)
	assert.Zero(t, got.Breakdown.DescriptionQuality.Score)
	// Floor values, not zero: absence of search data is not the seller's fault.
	assert.Greater(t, got.Breakdown.SearchAlignment.Score, 0)
	assert.Greater(t, got.Breakdown.KeywordDiversity.Score, 0)
}

func TestSearchAlignmentExactMatches(t *testing.T) {
	title := "Sterling Silver Moon Pendant Necklace Celestial Jewelry Gift"
	searches := []string{
		"silver moon", "pendant necklace", "celestial jewelry",
		"gold hoop earrings", "leather wallet mens", "ceramic coffee mug",
		"boho wall tapestry", "vintage brass lamp", "wool baby blanket",
		"oak picture frame", "resin flower coaster", "macrame plant hanger",
		"linen table runner", "copper wind chime", "felt cat toy",
	}

	got := analyzer.Score(analyzer.ScoringInput{Title: title, RelatedSearches: searches})

	// 3 verbatim matches at weight 5, normalized against the ceiling of 23:
	// round(25 * 15/23) == 16.
	assert.Equal(t, 16, got.Breakdown.SearchAlignment.Score)
}

func TestRecommendationPerWeakMetric(t *testing.T) {
	inputs := []analyzer.ScoringInput{
		{},
		{Title: "Beautiful Handmade Wooden Box"},
		{Title: goodTitle, Description: strings.Repeat("Personalized walnut cutting board engraved for weddings. ", 12), RelatedSearches: sampleSearches},
		{Title: "mug"},
	}
	for i, in := range inputs {
		got := analyzer.Score(in)
		weak := 0
		for _, m := range got.Breakdown.Metrics() {
			if float64(m.Score) < 0.8*float64(m.Max) {
				weak++
			}
		}
		assert.Len(t, got.Recommendations, weak, "input %d: one recommendation per weak metric", i)
	}
}

func TestStrongListingScoresWell(t *testing.T) {
	desc := "Personalized walnut cutting board, custom engraved for weddings and housewarmings. " +
		strings.Repeat("Each charcuterie board is cut, sanded and finished by hand in our shop. ", 8)
	got := analyzer.Score(analyzer.ScoringInput{
		Title:           goodTitle,
		Description:     desc,
		RelatedSearches: sampleSearches,
	})

	require.NotEmpty(t, got.Grade)
	assert.GreaterOrEqual(t, got.Score, 60, "well-aligned listing should land C or better")
	assert.Equal(t, got.Breakdown.TitleLength.Max, got.Breakdown.TitleLength.Score)
}

func TestGradeMonotonicOverScore(t *testing.T) {
	rank := map[string]int{"F": 0, "D": 1, "C": 2, "B": 3, "A": 4}

	// Sweep a ladder of increasingly complete listings; score and grade rank
	// must move together.
	ladder := []analyzer.ScoringInput{
		{},
		{Title: "Beautiful Handmade Wooden Box"},
		{Title: goodTitle},
		{Title: goodTitle, RelatedSearches: sampleSearches},
		{
			Title:           goodTitle,
			RelatedSearches: sampleSearches,
			Description: "Personalized walnut cutting board, custom engraved charcuterie board for wedding gifts. " +
				strings.Repeat("Hand finished walnut serving board for your kitchen. ", 10),
		},
	}

	prevScore, prevRank := -1, -1
	for i, in := range ladder {
		got := analyzer.Score(in)
		if got.Score >= prevScore {
			assert.GreaterOrEqual(t, rank[got.Grade], prevRank, "step %d", i)
		}
		prevScore, prevRank = got.Score, rank[got.Grade]
	}
}

func TestScoreAggregationInvariant(t *testing.T) {
	for i, in := range []analyzer.ScoringInput{
		{},
		{Title: goodTitle, RelatedSearches: sampleSearches},
		{Title: "Beautiful Handmade Wooden Box"},
	} {
		got := analyzer.Score(in)
		total, max := 0, 0
		for _, m := range got.Breakdown.Metrics() {
			total += m.Score
			max += m.Max
		}
		want := int(float64(total)/float64(max)*100 + 0.5)
		assert.Equal(t, want, got.Score, "input %d", i)
	}
}

func ExampleScore() {
	result := analyzer.Score(analyzer.ScoringInput{
		Title: "Beautiful Handmade Wooden Box",
	})
	fmt.Println(result.Grade == "F" || result.Grade == "D")
	// Output: true
}
