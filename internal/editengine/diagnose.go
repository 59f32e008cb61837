package editengine

import "strings"

// TierDiagnostics reports the raw candidates one normalisation tier found
// for a target, with short snippets for rendering.
type TierDiagnostics struct {
	Level      NormalizationLevel `json:"level"`
	Matches    int                `json:"matches"`
	Candidates []CandidateSnippet `json:"candidates,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// CandidateSnippet is one raw candidate location, trimmed for display.
type CandidateSnippet struct {
	LineNumber int    `json:"lineNumber"`
	Snippet    string `json:"snippet"`
}

// DiagnosticsReport is the result of the non-throwing diagnostics pass.
type DiagnosticsReport struct {
	Target       string            `json:"target"`
	Tiers        []TierDiagnostics `json:"tiers"`
	SimilarLines []SimilarLine     `json:"similarLines,omitempty"`
}

// GetDiagnostics probes how a target matches under every tolerance tier
// without selecting or applying anything. Unlike Resolve, every tier runs
// unconditionally, so a caller debugging a failed match sees which tiers
// would have found the target and where. Tier failures are reported inline
// rather than aborting the report.
func (m *Matcher) GetDiagnostics(content, target string) DiagnosticsReport {
	report := DiagnosticsReport{Target: target}

	for _, level := range []NormalizationLevel{NormalizationExact, NormalizationWhitespace, NormalizationStructural} {
		tier := TierDiagnostics{Level: level}
		pattern, fail := m.buildLevelPattern(target, level)
		if fail != nil {
			tier.Error = fail.Message
			report.Tiers = append(report.Tiers, tier)
			continue
		}
		re, err := m.compile(level, pattern)
		if err != nil {
			tier.Error = err.Error()
			report.Tiers = append(report.Tiers, tier)
			continue
		}
		found := m.collectMatches(content, re, "", matchTypeForLevel(level))
		tier.Matches = len(found)
		shown := len(found)
		if shown > maxRenderedCandidates {
			shown = maxRenderedCandidates
		}
		for _, match := range found[:shown] {
			tier.Candidates = append(tier.Candidates, CandidateSnippet{
				LineNumber: match.LineNumber,
				Snippet:    snippetOf(match.Original),
			})
		}
		report.Tiers = append(report.Tiers, tier)
	}

	matched := false
	for _, tier := range report.Tiers {
		if tier.Matches > 0 {
			matched = true
			break
		}
	}
	if !matched {
		report.SimilarLines = similarLines(content, target)
	}
	return report
}

// snippetOf flattens and truncates matched text for display.
func snippetOf(s string) string {
	const max = 120
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
