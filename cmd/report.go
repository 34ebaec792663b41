package cmd

import (
	"fmt"
	"strings"

	"github.com/spigell/cvmatch/internal/match"
	"github.com/spigell/cvmatch/internal/utils"
)

const citationSnippetLen = 160

var verdictMarks = map[match.Verdict]string{
	match.VerdictMatch:    "[+]",
	match.VerdictPartial:  "[~]",
	match.VerdictMissing:  "[-]",
	match.VerdictError:    "[!]",
	match.VerdictUnparsed: "[?]",
}

// renderReport formats the match result as a plain-text report.
func renderReport(result *match.JobMatchResult) string {
	var b strings.Builder

	b.WriteString("Job match report\n")
	b.WriteString("================\n\n")
	fmt.Fprintf(&b, "Requirements: %d\n", len(result.Evaluations))
	fmt.Fprintf(&b, "Matched:      %d\n", result.MatchCount)
	fmt.Fprintf(&b, "Missing:      %d\n", result.MissingCount)
	fmt.Fprintf(&b, "Match rate:   %.1f%%\n", result.MatchRate)

	if len(result.Evaluations) == 0 {
		b.WriteString("\nNo requirements could be extracted from the job posting.\n")
		return b.String()
	}

	b.WriteString("\n")
	for _, eval := range result.Evaluations {
		mark := verdictMarks[eval.Verdict]
		if mark == "" {
			mark = "[?]"
		}

		fmt.Fprintf(&b, "%s %s (%s)\n", mark, eval.Requirement.Name, eval.Requirement.Category)
		fmt.Fprintf(&b, "    verdict: %s\n", eval.Verdict)
		if eval.Reasoning != "" {
			fmt.Fprintf(&b, "    reason: %s\n", eval.Reasoning)
		}
		fmt.Fprintf(&b, "    evidence chunks: %d", eval.RetrievedChunksCount)
		if len(eval.Citations) > 0 {
			labels := make([]string, 0, len(eval.Citations))
			for _, c := range eval.Citations {
				labels = append(labels, fmt.Sprintf("[%d]", c.Label))
			}
			fmt.Fprintf(&b, ", citations: %s", strings.Join(labels, " "))
		}
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderCitations formats the evidence behind every evaluation.
func renderCitations(result *match.JobMatchResult) string {
	var b strings.Builder

	for _, eval := range result.Evaluations {
		if len(eval.Citations) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s:\n", eval.Requirement.Name)
		for _, c := range eval.Citations {
			fmt.Fprintf(&b, "  [%d] %s (score %.3f)", c.Label, c.DocType, c.Score)
			if c.Title != "" {
				fmt.Fprintf(&b, " %s", c.Title)
			}
			if c.Company != "" {
				fmt.Fprintf(&b, " @ %s", c.Company)
			}
			b.WriteString("\n")
			fmt.Fprintf(&b, "      %s\n", utils.TruncateForLog(c.Content, citationSnippetLen))
		}
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return "No citations collected.\n"
	}

	return b.String()
}
