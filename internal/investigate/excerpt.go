package investigate

import (
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/nexusflow/signals/pkg/logger"
	"go.uber.org/zap"
)

// bestExcerpt picks the corpus sentence that best overlaps the insight
// content, giving the report a verbatim quote from the logs to back the
// LLM's one-line summary. Empty when nothing overlaps.
func bestExcerpt(window, content string) string {
	terms := significantTerms(content)
	if len(terms) == 0 {
		return ""
	}

	doc, err := prose.NewDocument(window,
		prose.WithExtraction(false),
		prose.WithTagging(false),
	)
	if err != nil {
		logger.Debug("corpus segmentation failed", zap.Error(err))
		return ""
	}

	best := ""
	bestScore := 0
	for _, sent := range doc.Sentences() {
		text := strings.TrimSpace(sent.Text)
		if len(text) < 20 {
			continue
		}
		lower := strings.ToLower(text)
		score := 0
		for term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = text
		}
	}

	if bestScore < 2 {
		return ""
	}
	if len(best) > 300 {
		best = best[:300]
	}
	return best
}

func significantTerms(content string) map[string]bool {
	terms := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(content)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) > 3 {
			terms[word] = true
		}
	}
	return terms
}
