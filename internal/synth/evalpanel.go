// Quality Panel for the `eval` CLI command: a deterministic, non-LLM
// token-overlap scorer on a 0-10 scale, adapted from
// pkg/evaluation/metrics.go's calculateContextMetrics (keyword-overlap
// based) rather than that file's LLM-backed calculateAnswerRelevance/
// calculateFaithfulness.
package synth

import "strings"

// TestCase is one entry of the eval suite file.
type TestCase struct {
	Question    string `json:"question"`
	IdealAnswer string `json:"ideal_answer"`
}

// ScoredCase is one test case's outcome.
type ScoredCase struct {
	Question     string  `json:"question"`
	IdealAnswer  string  `json:"ideal_answer"`
	ActualAnswer string  `json:"actual_answer"`
	OverlapScore float64 `json:"overlap_score"`
}

// Report is the eval command's JSON output.
type Report struct {
	Cases        []ScoredCase `json:"cases"`
	AverageScore float64      `json:"average_score"`
}

// ScoreOverlap computes a deterministic 0-10 token-overlap score
// between the actual and ideal answers: the fraction of ideal-answer
// tokens present in the actual answer, scaled to 0-10.
func ScoreOverlap(actual, ideal string) float64 {
	idealTokens := tokenSet(ideal)
	if len(idealTokens) == 0 {
		return 0
	}
	actualTokens := tokenSet(actual)

	matched := 0
	for tok := range idealTokens {
		if actualTokens[tok] {
			matched++
		}
	}
	return 10 * float64(matched) / float64(len(idealTokens))
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[strings.Trim(t, ".,!?;:\"'()")] = true
	}
	delete(set, "")
	return set
}

// BuildReport scores a batch of test cases against their actual
// answers and computes the average score.
func BuildReport(cases []ScoredCase) Report {
	if len(cases) == 0 {
		return Report{}
	}
	var sum float64
	for _, c := range cases {
		sum += c.OverlapScore
	}
	return Report{Cases: cases, AverageScore: sum / float64(len(cases))}
}
