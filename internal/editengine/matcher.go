package editengine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Matcher locates candidate byte ranges for edit targets. It owns a bounded
// cache of compiled patterns and a capability flag for lookaround support,
// both resolved at construction rather than per call.
type Matcher struct {
	patterns           *patternCache
	supportsLookaround bool
	limits             Limits
	logger             logrus.FieldLogger
}

// NewMatcher builds a matcher with the given search limits. The lookaround
// capability is probed once here: RE2 rejects lookbehind, so word-boundary
// assertions fall back to \b, but the probe keeps the pattern builder
// honest should the engine ever change.
func NewMatcher(logger logrus.FieldLogger, limits Limits) *Matcher {
	return &Matcher{
		patterns:           newPatternCache(defaultPatternCacheSize),
		supportsLookaround: probeLookaround(),
		limits:             limits.withDefaults(),
		logger:             logger,
	}
}

func probeLookaround() bool {
	_, err := regexp.Compile(`(?<![\w])x`)
	return err == nil
}

// FindCandidates returns every raw candidate range for the edit's target in
// content, before line-range and context filtering. The strategy is chosen
// by the edit: Levenshtein search, whitespace-fuzzy pattern, or the
// normalisation ladder. Attempts records raw hit counts per ladder level
// for no-match diagnostics.
func (m *Matcher) FindCandidates(content string, edit Edit) (matches []Match, attempts []LevelAttempt, fail *EditError) {
	switch edit.FuzzyMode {
	case FuzzyLevenshtein:
		matches, fail = m.findLevenshtein(content, edit)
		return matches, nil, fail
	case FuzzyWhitespace:
		matches, fail = m.findWhitespaceFuzzy(content, edit)
		return matches, nil, fail
	default:
		return m.findByLadder(content, edit)
	}
}

// findByLadder tries each normalisation level in order and stops at the
// first that yields at least one raw match.
func (m *Matcher) findByLadder(content string, edit Edit) ([]Match, []LevelAttempt, *EditError) {
	if edit.TargetString == "" {
		return nil, nil, errInvalidTarget("targetString is empty", "provide the text to replace, or use insertMode for pure insertions")
	}
	levels := NormalizationAttempts(edit.Normalization)
	attempts := make([]LevelAttempt, 0, len(levels))
	for _, level := range levels {
		pattern, buildErr := m.buildLevelPattern(edit.TargetString, level)
		if buildErr != nil {
			return nil, attempts, buildErr
		}
		re, err := m.compile(level, pattern)
		if err != nil {
			return nil, attempts, errInvalidTarget(
				fmt.Sprintf("target cannot be compiled into a %s pattern: %v", level, err),
				"simplify the target text",
			)
		}
		found := m.collectMatches(content, re, edit.ReplacementString, matchTypeForLevel(level))
		attempts = append(attempts, LevelAttempt{Level: level, Matches: len(found)})
		if len(found) > 0 {
			return found, attempts, nil
		}
	}
	return nil, attempts, nil
}

// findWhitespaceFuzzy matches the target's words in order with arbitrary
// whitespace between them.
func (m *Matcher) findWhitespaceFuzzy(content string, edit Edit) ([]Match, *EditError) {
	pattern, fail := m.buildWhitespaceFuzzyPattern(edit.TargetString)
	if fail != nil {
		return nil, fail
	}
	re, err := m.compile("whitespace-fuzzy", pattern)
	if err != nil {
		return nil, errInvalidTarget(
			fmt.Sprintf("target cannot be compiled into a whitespace-fuzzy pattern: %v", err),
			"simplify the target text",
		)
	}
	return m.collectMatches(content, re, edit.ReplacementString, MatchWhitespaceFuzzy), nil
}

func matchTypeForLevel(level NormalizationLevel) MatchType {
	if level == NormalizationExact || level == "" {
		return MatchExact
	}
	return MatchNormalization
}

// collectMatches enumerates all pattern occurrences as Match values with
// offsets into the original content.
func (m *Matcher) collectMatches(content string, re *regexp.Regexp, replacement string, matchType MatchType) []Match {
	locs := re.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, Match{
			Start:       loc[0],
			End:         loc[1],
			Replacement: replacement,
			Original:    content[loc[0]:loc[1]],
			LineNumber:  lineNumberAt(content, loc[0]),
			Type:        matchType,
		})
	}
	return matches
}

// buildLevelPattern escapes the (possibly normalised) target as a literal
// pattern and widens its whitespace according to the level:
//   - exact: pure literal.
//   - whitespace: line breaks tolerate indentation and line-ending drift,
//     and runs of spaces or tabs within a line match any such run.
//   - structural: every whitespace run matches any whitespace run, so line
//     structure itself may differ.
func (m *Matcher) buildLevelPattern(target string, level NormalizationLevel) (string, *EditError) {
	switch level {
	case NormalizationWhitespace:
		quoted := regexp.QuoteMeta(normalizeWhitespace(target))
		quoted = newlinePattern.ReplaceAllString(quoted, `\s*\r?\n\s*`)
		return horizontalRunPattern.ReplaceAllString(quoted, `[ \t]+`), nil
	case NormalizationStructural:
		normalized := normalizeStructural(target)
		if normalized == "" {
			return "", errInvalidTarget("target is empty after structural normalisation", "provide a target containing non-whitespace text")
		}
		quoted := regexp.QuoteMeta(normalized)
		return anyWhitespaceRunPattern.ReplaceAllString(quoted, `\s+`), nil
	default:
		return regexp.QuoteMeta(target), nil
	}
}

var (
	newlinePattern          = regexp.MustCompile(`\n`)
	horizontalRunPattern    = regexp.MustCompile(`[ \t]+`)
	anyWhitespaceRunPattern = regexp.MustCompile(`[ \n\t]+`)
)

// buildWhitespaceFuzzyPattern splits the target into words and joins them
// with \s+. Boundary assertions are added when the target starts or ends
// with a word character so that "x = 1" does not match inside "max = 12".
func (m *Matcher) buildWhitespaceFuzzyPattern(target string) (string, *EditError) {
	words := strings.Fields(target)
	if len(words) == 0 {
		return "", errInvalidTarget("target contains no words", "provide a target with non-whitespace text")
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(w)
	}
	pattern := strings.Join(escaped, `\s+`)

	runes := []rune(target)
	first, last := firstNonSpace(runes), lastNonSpace(runes)
	if first != 0 && isWordRune(first) {
		if m.supportsLookaround {
			pattern = `(?<![\w])` + pattern
		} else {
			pattern = `\b` + pattern
		}
	}
	if last != 0 && isWordRune(last) {
		if m.supportsLookaround {
			pattern += `(?![\w])`
		} else {
			pattern += `\b`
		}
	}
	return pattern, nil
}

func firstNonSpace(runes []rune) rune {
	for _, r := range runes {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return r
		}
	}
	return 0
}

func lastNonSpace(runes []rune) rune {
	for i := len(runes) - 1; i >= 0; i-- {
		r := runes[i]
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return r
		}
	}
	return 0
}

func isWordRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// compile fetches a compiled pattern from the bounded cache, compiling and
// storing it on a miss.
func (m *Matcher) compile(level NormalizationLevel, pattern string) (*regexp.Regexp, error) {
	key := m.patterns.key(level, pattern)
	if re, ok := m.patterns.get(key); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	m.patterns.put(key, re)
	return re, nil
}

// lineNumberAt returns the 1-based line number containing the byte offset.
func lineNumberAt(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	return 1 + strings.Count(content[:offset], "\n")
}

// lineStartOffsets returns the byte offset of the start of each line.
func lineStartOffsets(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return starts
}
