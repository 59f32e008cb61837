package editengine

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// maxRenderedCandidates caps how many ambiguous candidates are rendered in
// error messages and diagnostics.
const maxRenderedCandidates = 5

// maxSimilarLines caps the best-effort "did you mean" lines attached to a
// no-match diagnostic.
const maxSimilarLines = 3

// Resolve runs the full match pipeline for one edit: find raw candidates,
// apply line-range and context constraints, score confidence, and reduce to
// a single outcome. The three domain outcomes are returned by value; the
// error return is reserved for budget and invalid-target failures.
func (m *Matcher) Resolve(content string, edit Edit) (MatchOutcome, *EditError) {
	raw, attempts, fail := m.FindCandidates(content, edit)
	if fail != nil {
		return MatchOutcome{}, fail
	}

	filtered := filterByLineRange(raw, edit.LineRange)
	filtered = filterByContext(content, filtered, edit)

	if len(filtered) == 0 {
		return MatchOutcome{
			Kind: OutcomeNotFound,
			Diagnostics: &NoMatchDiagnostics{
				Attempts:     attempts,
				SimilarLines: similarLines(content, edit.TargetString),
			},
		}, nil
	}

	for i := range filtered {
		filtered[i].Confidence = scoreConfidence(edit, filtered[i])
	}

	if len(filtered) == 1 {
		return MatchOutcome{Kind: OutcomeFound, Match: filtered[0]}, nil
	}

	ranked := make([]Match, len(filtered))
	copy(ranked, filtered)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Start < ranked[j].Start
	})
	return MatchOutcome{Kind: OutcomeAmbiguous, Candidates: ranked}, nil
}

// filterByLineRange keeps matches whose line falls inside the inclusive
// range. A nil range keeps everything.
func filterByLineRange(matches []Match, lr *LineRange) []Match {
	if lr == nil {
		return matches
	}
	kept := matches[:0:0]
	for _, m := range matches {
		if m.LineNumber >= lr.Start && m.LineNumber <= lr.End {
			kept = append(kept, m)
		}
	}
	return kept
}

// filterByContext keeps matches whose surrounding content contains the
// requested before/after context. The search window is bounded by
// anchorSearchRange characters on each side when set, otherwise the full
// remaining content. Whitespace-fuzzy edits compare under whitespace
// normalisation so context matching tolerates the same drift the target
// match did.
func filterByContext(content string, matches []Match, edit Edit) []Match {
	if edit.BeforeContext == "" && edit.AfterContext == "" {
		return matches
	}
	normalise := edit.FuzzyMode == FuzzyWhitespace
	kept := matches[:0:0]
	for _, m := range matches {
		if edit.BeforeContext != "" {
			lo := 0
			if edit.AnchorSearchRange > 0 {
				lo = m.Start - edit.AnchorSearchRange
				if lo < 0 {
					lo = 0
				}
			}
			if !containsContext(content[lo:m.Start], edit.BeforeContext, normalise) {
				continue
			}
		}
		if edit.AfterContext != "" {
			hi := len(content)
			if edit.AnchorSearchRange > 0 {
				hi = m.End + edit.AnchorSearchRange
				if hi > len(content) {
					hi = len(content)
				}
			}
			if !containsContext(content[m.End:hi], edit.AfterContext, normalise) {
				continue
			}
		}
		kept = append(kept, m)
	}
	return kept
}

func containsContext(window, context string, normalise bool) bool {
	if normalise {
		return strings.Contains(normalizeWhitespace(window), normalizeWhitespace(context))
	}
	return strings.Contains(window, context)
}

// scoreConfidence assigns a 0-1 score to a match: the base depends on the
// strategy that produced it, and supplied constraints raise it because they
// carry caller intent.
func scoreConfidence(edit Edit, m Match) float64 {
	var score float64
	switch m.Type {
	case MatchExact:
		score = 1.0
	case MatchNormalization:
		score = 0.9
	case MatchWhitespaceFuzzy:
		score = 0.8
	case MatchLevenshtein:
		n := len([]rune(edit.TargetString))
		denom := n * 3 / 10
		if denom < 1 {
			denom = 1
		}
		score = 0.5 + 0.5*(1.0-float64(m.Distance)/float64(denom))
	}
	if edit.BeforeContext != "" || edit.AfterContext != "" {
		score += 0.15
	}
	if edit.LineRange != nil {
		score += 0.10
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// similarLines finds up to three lines sharing vocabulary with a target
// that failed to match, ranked by the fraction of the target's words each
// line contains. When no line shares a whole word, a fuzzy subsequence
// ranking is used instead so short or mangled targets still get a pointer.
func similarLines(content, target string) []SimilarLine {
	targetWords := wordSet(target)
	lines := strings.Split(content, "\n")

	var scored []SimilarLine
	if len(targetWords) > 0 {
		for i, line := range lines {
			shared := 0
			for _, w := range strings.Fields(strings.ToLower(line)) {
				if _, ok := targetWords[w]; ok {
					shared++
				}
			}
			if shared == 0 {
				continue
			}
			scored = append(scored, SimilarLine{
				LineNumber: i + 1,
				Text:       line,
				Similarity: float64(shared) / float64(len(targetWords)),
			})
		}
	}

	if len(scored) == 0 {
		return fuzzySimilarLines(lines, target)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].LineNumber < scored[j].LineNumber
	})
	if len(scored) > maxSimilarLines {
		scored = scored[:maxSimilarLines]
	}
	return scored
}

// fuzzySimilarLines ranks lines by fuzzy subsequence match against the
// target's first line. Scores are normalised into (0,1] only for ordering;
// they are not comparable with word-overlap similarities.
func fuzzySimilarLines(lines []string, target string) []SimilarLine {
	query := strings.TrimSpace(target)
	if i := strings.IndexByte(query, '\n'); i >= 0 {
		query = strings.TrimSpace(query[:i])
	}
	if query == "" {
		return nil
	}
	ranked := fuzzy.Find(query, lines)
	if len(ranked) > maxSimilarLines {
		ranked = ranked[:maxSimilarLines]
	}
	out := make([]SimilarLine, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, SimilarLine{
			LineNumber: r.Index + 1,
			Text:       lines[r.Index],
			Similarity: 1.0 / float64(1+len(out)),
		})
	}
	return out
}

// wordSet lowercases and splits text into its unique words.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
