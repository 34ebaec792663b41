package match

// Aggregate folds per-requirement evaluations into the final result. An
// evaluation counts as a match only on an exact MATCH verdict; PARTIAL,
// MISSING, ERROR and UNPARSED all count as missing. An empty batch yields a
// 0/0 result with a 0% rate.
func Aggregate(jobText string, requirements []JobRequirement, evaluations []RequirementEvaluation) *JobMatchResult {
	matches := 0
	for _, eval := range evaluations {
		if eval.Verdict.IsMatch() {
			matches++
		}
	}

	total := len(evaluations)
	rate := 0.0
	if total > 0 {
		rate = float64(matches) / float64(total) * 100
	}

	return &JobMatchResult{
		JobText:      jobText,
		Requirements: requirements,
		Evaluations:  evaluations,
		MatchCount:   matches,
		MissingCount: total - matches,
		MatchRate:    rate,
	}
}
