package editengine

import (
	"fmt"
	"strings"
)

// Error codes surfaced on EditResult. Stable strings; callers branch on them.
const (
	CodeNoMatch          = "NO_MATCH"
	CodeAmbiguousMatch   = "AMBIGUOUS_MATCH"
	CodeHashMismatch     = "HASH_MISMATCH"
	CodeContentMismatch  = "CONTENT_MISMATCH"
	CodeIndexOutOfBounds = "INDEX_OUT_OF_BOUNDS"
	CodeOverlapConflict  = "OVERLAP_CONFLICT"
	CodeBudgetExceeded   = "COMPUTE_BUDGET_EXCEEDED"
	CodeInvalidTarget    = "INVALID_TARGET"
)

// EditError is a recoverable domain failure. The coordinator converts it
// into EditResult{success:false, errorCode, message, suggestion}; it never
// escapes to callers as a raw error. Real I/O failures use plain errors.
type EditError struct {
	Code       string
	Message    string
	Suggestion string
	File       string // offending file, set by the batch coordinator
	Lines      []int  // conflicting line numbers for AMBIGUOUS_MATCH
}

func (e *EditError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.File != "" {
		fmt.Fprintf(&b, " (file: %s)", e.File)
	}
	return b.String()
}

// forFile returns a copy of the error tagged with the offending file.
func (e *EditError) forFile(file string) *EditError {
	dup := *e
	dup.File = file
	return &dup
}

func errNoMatch(target string, diags *NoMatchDiagnostics) *EditError {
	msg := fmt.Sprintf("no match found for target %s", truncateTarget(target))
	if diags != nil {
		var parts []string
		for _, a := range diags.Attempts {
			parts = append(parts, fmt.Sprintf("%s=%d", a.Level, a.Matches))
		}
		if len(parts) > 0 {
			msg += fmt.Sprintf(" (raw matches per level: %s)", strings.Join(parts, ", "))
		}
		for _, s := range diags.SimilarLines {
			msg += fmt.Sprintf("\n  similar line %d: %s", s.LineNumber, strings.TrimSpace(s.Text))
		}
	}
	return &EditError{
		Code:       CodeNoMatch,
		Message:    msg,
		Suggestion: `re-read the file and copy the target exactly, or retry with normalization:"whitespace" or fuzzyMode:"levenshtein"`,
	}
}

func errAmbiguousMatch(target string, candidates []Match) *EditError {
	lines := make([]int, len(candidates))
	for i, m := range candidates {
		lines[i] = m.LineNumber
	}
	shown := len(candidates)
	if shown > maxRenderedCandidates {
		shown = maxRenderedCandidates
	}
	var b strings.Builder
	fmt.Fprintf(&b, "target %s matches %d locations (lines %s)", truncateTarget(target), len(candidates), joinInts(lines))
	for _, m := range candidates[:shown] {
		fmt.Fprintf(&b, "\n  line %d (confidence %.2f): %s", m.LineNumber, m.Confidence, truncateTarget(m.Original))
	}
	best := candidates[0]
	return &EditError{
		Code:       CodeAmbiguousMatch,
		Message:    b.String(),
		Suggestion: fmt.Sprintf(`disambiguate with lineRange:{"start":%d,"end":%d} for the most likely match, or supply beforeContext/afterContext`, best.LineNumber, best.LineNumber),
		Lines:      lines,
	}
}

func errHashMismatch(expected, actual string) *EditError {
	return &EditError{
		Code:       CodeHashMismatch,
		Message:    fmt.Sprintf("content hash precondition failed: expected %s, found %s", expected, actual),
		Suggestion: "the file changed since it was read; re-read it and recompute expectedHash",
	}
}

func errContentMismatch(expected, actual string, r IndexRange) *EditError {
	return &EditError{
		Code:       CodeContentMismatch,
		Message:    fmt.Sprintf("content at bytes [%d,%d) is %s, not the expected %s", r.Start, r.End, truncateTarget(actual), truncateTarget(expected)),
		Suggestion: "re-read the file; indexRange edits require the exact current bytes at the range",
	}
}

func errIndexOutOfBounds(r IndexRange, contentLen int) *EditError {
	return &EditError{
		Code:       CodeIndexOutOfBounds,
		Message:    fmt.Sprintf("indexRange [%d,%d) is outside content of %d bytes", r.Start, r.End, contentLen),
		Suggestion: "re-read the file to obtain current offsets",
	}
}

func errOverlapConflict(a, b Match) *EditError {
	return &EditError{
		Code:       CodeOverlapConflict,
		Message:    fmt.Sprintf("planned edits overlap: bytes [%d,%d) and [%d,%d)", a.Start, a.End, b.Start, b.End),
		Suggestion: "merge the overlapping edits into one, or apply them in separate calls",
	}
}

func errBudgetExceeded(evaluations int, elapsedMS int64) *EditError {
	return &EditError{
		Code:       CodeBudgetExceeded,
		Message:    fmt.Sprintf("fuzzy search stopped after %d distance evaluations in %dms", evaluations, elapsedMS),
		Suggestion: `narrow the search with lineRange, shorten the target, or use fuzzyMode:"whitespace" instead`,
	}
}

func errInvalidTarget(msg, suggestion string) *EditError {
	return &EditError{Code: CodeInvalidTarget, Message: msg, Suggestion: suggestion}
}

// truncateTarget keeps error messages readable when targets are long.
func truncateTarget(s string) string {
	const max = 80
	s = strings.ReplaceAll(s, "\n", "\\n")
	if len(s) <= max {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%q...", s[:max])
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
