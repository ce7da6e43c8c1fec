package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"etsy-edge/analyzer"
)

func TestSplitTokensSeparators(t *testing.T) {
	got := analyzer.SplitTokens("Walnut Board | Custom-Engraved, Gift/Present (13x9)")
	assert.Equal(t, []string{"walnut", "board", "custom", "engraved", "gift", "present", "13x9"}, got)
}

func TestKeywordsDropsShortAndStopWords(t *testing.T) {
	got := analyzer.Keywords("The Gift for You and Me on Etsy")
	assert.Equal(t, []string{"gift"}, got)
}

func TestKeywordsEmptyInput(t *testing.T) {
	assert.Empty(t, analyzer.Keywords(""))
	assert.Empty(t, analyzer.Keywords("  ,|/  "))
}

func TestStemSharedPrefix(t *testing.T) {
	assert.Equal(t, analyzer.Stem("wooden"), analyzer.Stem("woodland"))
	assert.Equal(t, "box", analyzer.Stem("box"))
}

func TestIsMeaningfulRejectsFillers(t *testing.T) {
	assert.False(t, analyzer.IsMeaningful("beautiful"))
	assert.False(t, analyzer.IsMeaningful("the"))
	assert.False(t, analyzer.IsMeaningful("of"))
	assert.True(t, analyzer.IsMeaningful("walnut"))
}

func TestStemSetDiversity(t *testing.T) {
	set := analyzer.StemSet([]string{"wooden", "woodland", "box", "boxes"})
	// wooden/woodland collapse to one stem, box/boxes stay distinct
	// ("box" vs "boxe").
	assert.Len(t, set, 3)
}
