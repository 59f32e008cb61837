package editengine

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizationAttempts returns the escalation ladder up to and including
// the requested level: exact, then whitespace, then structural. The matcher
// tries each in order and stops at the first level that yields a raw match.
func NormalizationAttempts(level NormalizationLevel) []NormalizationLevel {
	switch level {
	case NormalizationStructural:
		return []NormalizationLevel{NormalizationExact, NormalizationWhitespace, NormalizationStructural}
	case NormalizationWhitespace:
		return []NormalizationLevel{NormalizationExact, NormalizationWhitespace}
	default:
		return []NormalizationLevel{NormalizationExact}
	}
}

// NormalizeContent canonicalises text at the given level. Offsets into the
// result do not correspond to offsets into the input; match location always
// happens via patterns over the original content, this function only
// prepares targets and diagnostic comparisons.
func NormalizeContent(s string, level NormalizationLevel) string {
	switch level {
	case NormalizationWhitespace:
		return normalizeWhitespace(s)
	case NormalizationStructural:
		return normalizeStructural(s)
	default:
		return s
	}
}

// normalizeWhitespace converts CRLF to LF and right-trims every line.
func normalizeWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

// normalizeStructural additionally left-trims every line, drops blank
// lines, and collapses runs of whitespace within a line to a single space.
// Text is first canonicalised to NFC with zero-width characters stripped,
// so visually identical targets compare equal. File content is assumed to
// already be NFC, which holds for source code in practice.
func normalizeStructural(s string) string {
	s = normalizeUnicode(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, collapseWhitespace(line))
	}
	return strings.Join(out, "\n")
}

// normalizeUnicode applies Unicode normalisation (NFC) and strips
// zero-width characters that can make identical-looking text compare
// unequal.
func normalizeUnicode(s string) string {
	s = norm.NFC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
}

// collapseWhitespace reduces every run of spaces and tabs to one space.
func collapseWhitespace(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	inRun := false
	for _, r := range line {
		if r == ' ' || r == '\t' {
			inRun = true
			continue
		}
		if inRun && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}
