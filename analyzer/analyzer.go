package analyzer

import (
	"fmt"
	"math"
	"strings"

	"etsy-edge/models"
)

// ScoringInput is the observable listing data the scorer works from.
// RelatedSearches are Etsy-generated phrases in relevance order; earlier
// entries are treated as the stronger tag proxies.
type ScoringInput struct {
	Title           string
	Description     string
	RelatedSearches []string
}

const (
	maxTitleLength    = 15
	maxFrontload      = 20
	maxLongTail       = 20
	maxAlignment      = 25
	maxDiversity      = 10
	maxDescription    = 10
	frontloadWindow   = 40
	topSearchesUsed   = 15
	topSearchesStems  = 13
	alignmentCeiling  = 23.0
	recommendCutoff   = 0.8
)

// Score audits a listing and returns grade, 0-100 score, per-metric breakdown
// and prioritized recommendations. Pure and deterministic: same input, same
// output, no I/O. Empty inputs are valid and bottom out the metrics.
func Score(in ScoringInput) models.SeoScore {
	breakdown := models.ScoreBreakdown{
		TitleLength:        scoreTitleLength(in.Title),
		TitleFrontload:     scoreTitleFrontload(in.Title),
		TitleLongTail:      scoreTitleLongTail(in.Title),
		SearchAlignment:    scoreSearchAlignment(in.Title, in.RelatedSearches),
		KeywordDiversity:   scoreKeywordDiversity(in.Title, in.RelatedSearches),
		DescriptionQuality: scoreDescriptionQuality(in.Description, in.Title),
	}

	total, max := 0, 0
	for _, m := range breakdown.Metrics() {
		total += m.Score
		max += m.Max
	}
	pct := int(math.Round(100 * float64(total) / float64(max)))

	return models.SeoScore{
		Grade:           gradeFor(pct),
		Score:           pct,
		Breakdown:       breakdown,
		Recommendations: recommendations(in, breakdown),
	}
}

// gradeFor maps a 0-100 score to a letter grade. Monotonic by construction.
func gradeFor(pct int) string {
	switch {
	case pct >= 90:
		return "A"
	case pct >= 75:
		return "B"
	case pct >= 60:
		return "C"
	case pct >= 40:
		return "D"
	default:
		return "F"
	}
}

func scoreTitleLength(title string) models.MetricResult {
	n := len([]rune(title))
	var score int
	switch {
	case n == 0:
		score = 0
	case n >= 100 && n <= 140:
		score = maxTitleLength
	case n >= 80 && n < 100:
		score = round(maxTitleLength * 0.8)
	case n >= 60 && n < 80:
		score = round(maxTitleLength * 0.6)
	case n >= 40 && n < 60:
		score = round(maxTitleLength * 0.35)
	case n > 140 && n <= 160:
		score = round(maxTitleLength * 0.7)
	case n > 160 && n <= 180:
		score = round(maxTitleLength * 0.5)
	case n > 180:
		score = round(maxTitleLength * 0.4)
	default: // 1..39, too short to carry enough phrases
		score = round(maxTitleLength * 0.1)
	}
	return models.MetricResult{
		Score:  score,
		Max:    maxTitleLength,
		Detail: fmt.Sprintf("Title: %d chars (ideal: 100-140)", n),
		Label:  "Title length",
	}
}

// scoreTitleFrontload rewards concrete keywords inside the first 40
// characters and penalizes filler adjectives, hardest when the title opens
// with one.
func scoreTitleFrontload(title string) models.MetricResult {
	runes := []rune(title)
	window := string(runes[:minInt(frontloadWindow, len(runes))])
	tokens := SplitTokens(window)
	if len(tokens) == 0 {
		return models.MetricResult{
			Score:  0,
			Max:    maxFrontload,
			Detail: "No title text to analyze",
			Label:  "Title front-loading",
		}
	}

	meaningful, wasted := 0, 0
	for _, t := range tokens {
		if IsMeaningful(t) {
			meaningful++
		} else {
			wasted++
		}
	}

	score := round(maxFrontload * float64(meaningful) / float64(len(tokens)))
	if IsFiller(tokens[0]) {
		// Opening with "beautiful"/"cute" burns the most valuable slot.
		score -= 6
	}
	score -= 2 * wasted
	score = clamp(score, 0, maxFrontload)

	return models.MetricResult{
		Score:  score,
		Max:    maxFrontload,
		Detail: fmt.Sprintf("%d of %d words in the first 40 chars are searchable keywords", meaningful, len(tokens)),
		Label:  "Title front-loading",
	}
}

// scoreTitleLongTail is a composite of average token length, stem diversity
// and token count. Longer, varied, structured titles read as long-tail
// phrases; short generic ones do not.
func scoreTitleLongTail(title string) models.MetricResult {
	keywords := Keywords(title)
	if len(keywords) == 0 {
		return models.MetricResult{
			Score:  0,
			Max:    maxLongTail,
			Detail: "No meaningful title keywords",
			Label:  "Long-tail specificity",
		}
	}

	totalLen := 0
	for _, k := range keywords {
		totalLen += len(k)
	}
	avgLen := float64(totalLen) / float64(len(keywords))

	diversity := float64(len(StemSet(keywords))) / float64(len(keywords))

	var lenPts int
	switch {
	case avgLen >= 7:
		lenPts = 7
	case avgLen >= 6:
		lenPts = 5
	case avgLen >= 5:
		lenPts = 4
	case avgLen >= 4:
		lenPts = 2
	default:
		lenPts = 1
	}

	var divPts int
	switch {
	case diversity >= 0.9:
		divPts = 7
	case diversity >= 0.75:
		divPts = 5
	case diversity >= 0.5:
		divPts = 3
	default:
		divPts = 1
	}

	var countPts int
	switch {
	case len(keywords) >= 12:
		countPts = 6
	case len(keywords) >= 8:
		countPts = 5
	case len(keywords) >= 5:
		countPts = 3
	case len(keywords) >= 3:
		countPts = 2
	default:
		countPts = 1
	}

	score := clamp(lenPts+divPts+countPts, 0, maxLongTail)
	return models.MetricResult{
		Score:  score,
		Max:    maxLongTail,
		Detail: fmt.Sprintf("avg word length %.1f, stem diversity %.0f%%, %d keywords", avgLen, diversity*100, len(keywords)),
		Label:  "Long-tail specificity",
	}
}

// scoreSearchAlignment weighs how strongly the title matches the top related
// searches: a verbatim phrase match counts 5, a 3+ word overlap 2, a 2 word
// overlap 0.5. The weighted sum is normalized against an empirical ceiling.
func scoreSearchAlignment(title string, searches []string) models.MetricResult {
	if len(searches) == 0 {
		return models.MetricResult{
			Score:  round(maxAlignment * 0.2),
			Max:    maxAlignment,
			Detail: "No search data available for this listing",
			Label:  "Search alignment",
		}
	}

	top := searches
	if len(top) > topSearchesUsed {
		top = top[:topSearchesUsed]
	}

	lowerTitle := strings.ToLower(title)
	titleWords := TokenSet(SplitTokens(title))

	weighted := 0.0
	exact := 0
	for _, phrase := range top {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" {
			continue
		}
		if strings.Contains(lowerTitle, p) {
			weighted += 5
			exact++
			continue
		}
		overlap := 0
		for _, w := range strings.Fields(p) {
			if titleWords[w] {
				overlap++
			}
		}
		switch {
		case overlap >= 3:
			weighted += 2
		case overlap == 2:
			weighted += 0.5
		}
	}

	score := round(maxAlignment * math.Min(1, weighted/alignmentCeiling))
	return models.MetricResult{
		Score:  score,
		Max:    maxAlignment,
		Detail: fmt.Sprintf("Title matches %d of %d top searches verbatim (weighted %.1f)", exact, len(top), weighted),
		Label:  "Search alignment",
	}
}

// scoreKeywordDiversity checks what share of the title's keyword stems also
// appear among the stems of the top related searches.
func scoreKeywordDiversity(title string, searches []string) models.MetricResult {
	titleStems := StemSet(Keywords(title))
	if len(titleStems) == 0 {
		return models.MetricResult{
			Score:  0,
			Max:    maxDiversity,
			Detail: "No meaningful title keywords",
			Label:  "Keyword diversity",
		}
	}
	if len(searches) == 0 {
		return models.MetricResult{
			Score:  round(maxDiversity * 0.2),
			Max:    maxDiversity,
			Detail: "No search data available for this listing",
			Label:  "Keyword diversity",
		}
	}

	top := searches
	if len(top) > topSearchesStems {
		top = top[:topSearchesStems]
	}
	searchStems := StemSet(Keywords(strings.Join(top, " ")))

	covered := 0
	for stem := range titleStems {
		if searchStems[stem] {
			covered++
		}
	}
	frac := float64(covered) / float64(len(titleStems))

	var score int
	switch {
	case frac >= 0.8:
		score = maxDiversity
	case frac >= 0.6:
		score = 8
	case frac >= 0.4:
		score = 6
	case frac >= 0.2:
		score = 4
	default:
		score = 2
	}

	return models.MetricResult{
		Score:  score,
		Max:    maxDiversity,
		Detail: fmt.Sprintf("%d of %d title keyword stems appear in top searches", covered, len(titleStems)),
		Label:  "Keyword diversity",
	}
}

// scoreDescriptionQuality measures whether the description reinforces the
// title keywords, weighting the first 160 characters (the part search
// indexes hardest) at 70%.
func scoreDescriptionQuality(desc, title string) models.MetricResult {
	if len([]rune(desc)) < 50 {
		return models.MetricResult{
			Score:  0,
			Max:    maxDescription,
			Detail: "Description too short to analyze",
			Label:  "Description quality",
		}
	}

	titleKeywords := make([]string, 0)
	for _, k := range Keywords(title) {
		if len(k) > 3 {
			titleKeywords = append(titleKeywords, k)
		}
	}
	if len(titleKeywords) == 0 {
		// No signal to check against; don't punish the description for it.
		return models.MetricResult{
			Score:  maxDescription,
			Max:    maxDescription,
			Detail: "No title keywords to cross-check",
			Label:  "Description quality",
		}
	}

	lowerDesc := strings.ToLower(desc)
	descRunes := []rune(lowerDesc)
	first160 := string(descRunes[:minInt(160, len(descRunes))])

	inFirst, inFull := 0, 0
	for _, k := range titleKeywords {
		if strings.Contains(first160, k) {
			inFirst++
		}
		if strings.Contains(lowerDesc, k) {
			inFull++
		}
	}

	base := 0.7*float64(inFirst)/float64(len(titleKeywords)) +
		0.3*float64(inFull)/float64(len(titleKeywords))

	n := len([]rune(desc))
	if n >= 300 {
		base += 0.05
	}
	if n >= 500 {
		base += 0.05
	}

	score := round(maxDescription * math.Min(1, base))
	return models.MetricResult{
		Score:  score,
		Max:    maxDescription,
		Detail: fmt.Sprintf("%d of %d title keywords in first 160 chars, %d overall", inFirst, len(titleKeywords), inFull),
		Label:  "Description quality",
	}
}

// recommendations emits exactly one metric-specific suggestion for every
// metric scoring under 80% of its max, in breakdown order.
func recommendations(in ScoringInput, b models.ScoreBreakdown) []string {
	recs := []string{}
	below := func(m models.MetricResult) bool {
		return float64(m.Score) < recommendCutoff*float64(m.Max)
	}

	if below(b.TitleLength) {
		n := len([]rune(in.Title))
		switch {
		case n < 40:
			recs = append(recs, fmt.Sprintf("Title is too short (%d chars). Aim for 100-140 characters packed with searchable phrases.", n))
		case n > 140:
			recs = append(recs, fmt.Sprintf("Title is very long (%d chars). Trim to 140 characters and keep the strongest keywords up front.", n))
		default:
			recs = append(recs, fmt.Sprintf("Title is %d chars. Push toward the 100-140 character range to fit more searchable phrases.", n))
		}
	}
	if below(b.TitleFrontload) {
		recs = append(recs, "Front-load the first 40 characters with concrete keywords. Etsy weighs them most heavily, and filler words like \"beautiful\" waste that space.")
	}
	if below(b.TitleLongTail) {
		recs = append(recs, "Swap broad words for specific long-tail phrases (material, style, occasion). Specific multi-word phrases face far less competition.")
	}
	if below(b.SearchAlignment) {
		recs = append(recs, "Title barely overlaps with the searches Etsy shows for this listing. Work the top related searches into the title verbatim.")
	}
	if below(b.KeywordDiversity) {
		recs = append(recs, "Title keywords cover few of the search themes shoppers use. Vary word stems instead of repeating the same root.")
	}
	if below(b.DescriptionQuality) {
		if len([]rune(in.Description)) < 300 {
			recs = append(recs, "Description is too short. Write 300+ characters and repeat your title keywords within the first 160.")
		} else {
			recs = append(recs, "Repeat your main title keywords naturally in the description, especially in the first 160 characters.")
		}
	}
	return recs
}

func round(f float64) int {
	return int(math.Round(f))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
