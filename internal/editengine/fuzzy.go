package editengine

import (
	"sort"
	"time"

	"github.com/agnivade/levenshtein"
)

const (
	// lineScreenSimilarity is the minimum trigram Jaccard similarity for a
	// line to be considered a candidate vicinity for fuzzy search.
	lineScreenSimilarity = 0.3
	// lineScreenLimit caps how many candidate lines are searched.
	lineScreenLimit = 50
	// substringPrecheckSimilarity gates the edit-distance computation for an
	// individual candidate substring.
	substringPrecheckSimilarity = 0.2
)

// fuzzyTolerance returns the maximum accepted edit distance for a target of
// n runes: a fifth of the length (at least 1) for short targets, a less
// forgiving three tenths beyond ten runes.
func fuzzyTolerance(n int) int {
	if n <= 10 {
		t := n / 5
		if t < 1 {
			t = 1
		}
		return t
	}
	return n * 3 / 10
}

// searchBudget bounds a fuzzy search by evaluation count and wall time.
// Breaching either bound aborts the search with a reported error rather
// than silently truncating results.
type searchBudget struct {
	evaluations    int
	maxEvaluations int
	started        time.Time
	maxDuration    time.Duration
}

func newSearchBudget(limits Limits) *searchBudget {
	return &searchBudget{
		maxEvaluations: limits.MaxDistanceEvaluations,
		started:        time.Now(),
		maxDuration:    limits.MaxSearchDuration,
	}
}

// spend accounts for one upcoming distance evaluation.
func (b *searchBudget) spend() *EditError {
	b.evaluations++
	if b.evaluations > b.maxEvaluations {
		return errBudgetExceeded(b.evaluations, time.Since(b.started).Milliseconds())
	}
	if elapsed := time.Since(b.started); elapsed > b.maxDuration {
		return errBudgetExceeded(b.evaluations, elapsed.Milliseconds())
	}
	return nil
}

// fuzzyLine is one content line prepared for candidate screening.
type fuzzyLine struct {
	number     int // 1-based
	startRune  int
	similarity float64
}

// findLevenshtein searches content for substrings within edit distance
// tolerance of the target. The expensive distance computation is guarded
// three ways: lines are screened by trigram similarity, candidate
// substrings start only at word boundaries with lengths near the target's,
// and a cheap trigram pre-check gates each distance call.
func (m *Matcher) findLevenshtein(content string, edit Edit) ([]Match, *EditError) {
	target := edit.TargetString
	targetRunes := []rune(target)
	n := len(targetRunes)
	if n == 0 {
		return nil, errInvalidTarget("targetString is empty", "provide the text to replace, or use insertMode for pure insertions")
	}
	if n >= m.limits.MaxFuzzyTargetChars {
		return nil, errInvalidTarget(
			"target is too long for Levenshtein search",
			`narrow the target to under 256 characters, or use fuzzyMode:"whitespace" for long passages`,
		)
	}

	runes := []rune(content)
	byteOff := runeByteOffsets(content, len(runes))

	lines := screenLines(runes, target, edit.LineRange)
	if len(lines) == 0 {
		return nil, nil
	}

	tolerance := fuzzyTolerance(n)
	maxLen := n + tolerance
	minLen := n - tolerance
	if minLen < 1 {
		minLen = 1
	}
	targetGrams := trigramsOf(target)
	budget := newSearchBudget(m.limits)
	visited := make(map[int64]struct{})

	var found []Match
	for _, line := range lines {
		lo := line.startRune - 2*maxLen
		if lo < 0 {
			lo = 0
		}
		hi := line.startRune + 2*maxLen
		if hi > len(runes) {
			hi = len(runes)
		}
		for start := lo; start < hi; start++ {
			if !isWordStart(runes, start) {
				continue
			}
			for length := minLen; length <= maxLen; length++ {
				end := start + length
				if end > len(runes) {
					break
				}
				key := int64(start)<<32 | int64(length)
				if _, seen := visited[key]; seen {
					continue
				}
				visited[key] = struct{}{}

				candidate := string(runes[start:end])
				if jaccard(trigramsOf(candidate), targetGrams) < substringPrecheckSimilarity {
					continue
				}
				if fail := budget.spend(); fail != nil {
					return nil, fail
				}
				distance := levenshtein.ComputeDistance(target, candidate)
				if distance > tolerance {
					continue
				}
				found = append(found, Match{
					Start:       byteOff[start],
					End:         byteOff[end],
					Replacement: edit.ReplacementString,
					Original:    candidate,
					LineNumber:  lineNumberAt(content, byteOff[start]),
					Type:        MatchLevenshtein,
					Distance:    distance,
				})
			}
		}
	}

	if m.logger != nil {
		m.logger.WithField("evaluations", budget.evaluations).Debug("fuzzy search complete")
	}
	return dedupeOverlapping(found), nil
}

// runeByteOffsets maps rune indexes to byte offsets; the extra final entry
// is the content length so slices can address the end.
func runeByteOffsets(content string, runeCount int) []int {
	offsets := make([]int, 0, runeCount+1)
	for i := range content {
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(content))
	return offsets
}

// screenLines ranks content lines by trigram similarity to the target and
// keeps the plausible vicinities: lines at or above the screening
// threshold, or every line when none qualifies, capped at the screening
// limit, best first. A line range restricts the scan before screening.
func screenLines(runes []rune, target string, lineRange *LineRange) []fuzzyLine {
	targetGrams := trigramsOf(target)

	var all []fuzzyLine
	lineNumber := 1
	lineStart := 0
	flush := func(end int) {
		if lineRange == nil || (lineNumber >= lineRange.Start && lineNumber <= lineRange.End) {
			text := string(runes[lineStart:end])
			all = append(all, fuzzyLine{
				number:     lineNumber,
				startRune:  lineStart,
				similarity: jaccard(trigramsOf(text), targetGrams),
			})
		}
	}
	for i, r := range runes {
		if r == '\n' {
			flush(i)
			lineNumber++
			lineStart = i + 1
		}
	}
	if lineStart < len(runes) {
		flush(len(runes))
	}

	qualified := make([]fuzzyLine, 0, len(all))
	for _, line := range all {
		if line.similarity >= lineScreenSimilarity {
			qualified = append(qualified, line)
		}
	}
	if len(qualified) == 0 {
		qualified = all
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].similarity > qualified[j].similarity
	})
	if len(qualified) > lineScreenLimit {
		qualified = qualified[:lineScreenLimit]
	}
	return qualified
}

// isWordStart reports whether a candidate substring may begin at rune index
// p: the rune is not whitespace and sits at a token edge, either following
// whitespace or at a word/non-word transition.
func isWordStart(runes []rune, p int) bool {
	if p >= len(runes) {
		return false
	}
	r := runes[p]
	if isSpaceRune(r) {
		return false
	}
	if p == 0 {
		return true
	}
	prev := runes[p-1]
	if isSpaceRune(prev) {
		return true
	}
	return isWordRune(r) != isWordRune(prev)
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// dedupeOverlapping collapses overlapping candidates, keeping the lowest
// distance and breaking ties by earliest start. The result is ordered by
// start offset.
func dedupeOverlapping(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}
	ranked := make([]Match, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].Start < ranked[j].Start
	})

	var kept []Match
	for _, candidate := range ranked {
		overlaps := false
		for _, existing := range kept {
			if candidate.Start < existing.End && existing.Start < candidate.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, candidate)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}
