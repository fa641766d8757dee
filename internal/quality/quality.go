// Package quality scores the structural and semantic quality of LLM
// output without any ground truth, purely from text heuristics.
package quality

// #region imports
import (
	"regexp"
	"strings"

	"github.com/agentcredit/go-credit/internal/trajectory"
)

// #endregion

// #region xml-validation

var (
	// decisionEntry must not match the <decisions> wrapper itself, only
	// an inner entry tag.
	decisionEntry = regexp.MustCompile(`<decision[\s/>]`)

	tickerAttr = regexp.MustCompile(`ticker="[^"]+"|ticker='[^']+'`)
	marketAttr = regexp.MustCompile(`marketId="[^"]+"|marketId='[^']+'`)
	amountAttr = regexp.MustCompile(`amount="[^"]+"|amount='[^']+'`)
)

// ValidateDecisionXML checks a response for well-formed decision markup.
//
//	+0.5  wrapper, decision entries and required attributes all present
//	-0.2  entries present but ticker/marketId or amount missing
//	-0.5  wrapper present but no decision entry
//	-1.0  empty response or missing wrapper tags
func ValidateDecisionXML(response string) float64 {
	if response == "" {
		return -1.0
	}
	if !strings.Contains(response, "<decisions>") || !strings.Contains(response, "</decisions>") {
		return -1.0
	}
	if !decisionEntry.MatchString(response) {
		return -0.5
	}

	hasMarket := tickerAttr.MatchString(response) || marketAttr.MatchString(response)
	hasAmount := amountAttr.MatchString(response)
	if !hasMarket || !hasAmount {
		return -0.2 // partial hallucination: tags without usable arguments
	}
	return 0.5
}

// #endregion xml-validation

// #region alignment-keywords

var bullishWords = []string{"bullish", "buy", "long", "upward", "positive", "opportunity", "moon"}
var bearishWords = []string{"bearish", "sell", "short", "downward", "negative", "avoid", "dump"}
var waitWords = []string{"wait", "hold", "unclear", "uncertain", "need more data", "observing"}

var buyActionTypes = map[string]bool{
	"buy": true, "buy_prediction": true, "open_perp": true, "long": true,
}
var sellActionTypes = map[string]bool{
	"sell": true, "sell_prediction": true, "close_perp": true, "short": true,
}
var waitActionTypes = map[string]bool{
	"wait": true, "hold": true,
}

// #endregion alignment-keywords

// #region alignment

// AlignmentScore checks whether the reasoning text supports the action
// that was actually taken. Neutral 0.5 when either input is missing.
// Reasoning that argues the opposite direction of the trade scores 0:
// the agent hallucinated a justification.
func AlignmentScore(reasoningText string, action *trajectory.Action) float64 {
	if action == nil || reasoningText == "" {
		return 0.5
	}

	lower := strings.ToLower(reasoningText)
	actionType := strings.ToLower(action.ActionType)

	score := 0.5

	// Financial literacy bonus: the reasoning engages with position state.
	literacy := 0.0
	if strings.Contains(lower, "exposure") {
		literacy += 0.15
	}
	if strings.Contains(lower, "pnl") || strings.Contains(lower, "profit") || strings.Contains(lower, "loss") {
		literacy += 0.15
	}

	bullish := countHits(lower, bullishWords)
	bearish := countHits(lower, bearishWords)
	waiting := countHits(lower, waitWords)

	switch {
	case buyActionTypes[actionType]:
		switch {
		case bullish > bearish:
			score = 0.7
		case bearish > bullish:
			score = 0.0
		default:
			score = 0.4
		}
	case sellActionTypes[actionType]:
		switch {
		case bearish > bullish:
			score = 0.7
		case bullish > bearish:
			score = 0.0
		default:
			score = 0.4
		}
	case waitActionTypes[actionType]:
		if waiting > 0 {
			score = 0.7
		} else {
			score = 0.5
		}
	}

	return min(1.0, score+literacy)
}

func countHits(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// #endregion alignment

// #region coherence

var listStructure = regexp.MustCompile(`(\d+[.\):]|-|\*|•)`)
var numericPattern = regexp.MustCompile(`\$?\d+(?:\.\d+)?(?:%|k|K|M)?`)

var conclusionMarkers = []string{
	"therefore", "conclusion", "decision", "recommend", "suggest",
	"final", "result", "action:", "execute",
}

// CoherenceScore rates the structure of a reasoning text in [0, 1] with
// additive heuristics: enumeration, conclusion markers, sentence count,
// vocabulary diversity, quantitative content.
func CoherenceScore(text string) float64 {
	if len(text) < 20 {
		return 0.1
	}

	score := 0.0
	lower := strings.ToLower(text)

	if listStructure.MatchString(text) {
		score += 0.25
	}

	for _, m := range conclusionMarkers {
		if strings.Contains(lower, m) {
			score += 0.25
			break
		}
	}

	sentences := strings.Split(text, ". ")
	switch {
	case len(sentences) >= 2 && len(sentences) <= 10:
		score += 0.2
	case len(sentences) > 10:
		score += 0.1 // too verbose
	}

	words := strings.Fields(lower)
	if len(words) > 10 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		if float64(len(unique))/float64(len(words)) > 0.4 {
			score += 0.15
		} else {
			score -= 0.1 // repetitive
		}
	} else {
		score += 0.1
	}

	if numericPattern.MatchString(text) {
		score += 0.15
	}

	return clamp01(score)
}

// #endregion coherence

// #region helpers

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// #endregion helpers
