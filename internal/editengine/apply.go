package editengine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ApplyEngine turns a list of edits against one file's content into new
// content plus the inverse edits that undo it, and commits the result to
// disk with a backup of the pre-edit bytes.
type ApplyEngine struct {
	matcher *Matcher
	backups *BackupStore
	logger  logrus.FieldLogger
}

// NewApplyEngine builds an apply engine. A nil backup store disables
// pre-write backups.
func NewApplyEngine(logger logrus.FieldLogger, matcher *Matcher, backups *BackupStore) *ApplyEngine {
	return &ApplyEngine{matcher: matcher, backups: backups, logger: logger}
}

// PlannedApply is the resolved, validated form of one apply call: matches
// sorted by start offset with no overlaps, the rebuilt content, and the
// inverse edits addressing the rebuilt content by exact byte range.
type PlannedApply struct {
	Matches      []Match
	NewContent   string
	InverseEdits []Edit
}

// Plan resolves every edit against the original content and composes the
// new content. Any edit failing to resolve fails the whole call; nothing is
// written here.
func (e *ApplyEngine) Plan(content string, edits []Edit) (*PlannedApply, *EditError) {
	if len(edits) == 0 {
		return nil, errInvalidTarget("no edits supplied", "provide at least one edit")
	}

	matches := make([]Match, 0, len(edits))
	for i, edit := range edits {
		match, fail := e.resolveEdit(content, edit)
		if fail != nil {
			fail.Message = fmt.Sprintf("edit %d: %s", i+1, fail.Message)
			return nil, fail
		}
		matches = append(matches, match)
	}

	sortMatchesByStart(matches)
	for i := 1; i < len(matches); i++ {
		if matches[i-1].End > matches[i].Start {
			return nil, errOverlapConflict(matches[i-1], matches[i])
		}
	}

	newContent, inverse := rebuild(content, matches)
	return &PlannedApply{Matches: matches, NewContent: newContent, InverseEdits: inverse}, nil
}

// resolveEdit maps one edit onto a concrete match by whichever location
// mechanism the edit carries: byte-exact index range, pure insertion, or
// target matching.
func (e *ApplyEngine) resolveEdit(content string, edit Edit) (Match, *EditError) {
	switch {
	case edit.IndexRange != nil:
		return resolveIndexEdit(content, edit)
	case edit.InsertMode != InsertNone:
		return resolveInsertEdit(content, edit)
	default:
		outcome, fail := e.matcher.Resolve(content, edit)
		if fail != nil {
			return Match{}, fail
		}
		switch outcome.Kind {
		case OutcomeFound:
			if fail := verifyExpectedHash(edit.ExpectedHash, outcome.Match.Original); fail != nil {
				return Match{}, fail
			}
			return outcome.Match, nil
		case OutcomeAmbiguous:
			return Match{}, errAmbiguousMatch(edit.TargetString, outcome.Candidates)
		default:
			return Match{}, errNoMatch(edit.TargetString, outcome.Diagnostics)
		}
	}
}

// resolveIndexEdit verifies a byte-exact edit: the range must be in bounds,
// the bytes there must equal the target exactly, and the optional hash
// precondition must hold.
func resolveIndexEdit(content string, edit Edit) (Match, *EditError) {
	r := *edit.IndexRange
	if r.Start < 0 || r.End < r.Start || r.End > len(content) {
		return Match{}, errIndexOutOfBounds(r, len(content))
	}
	actual := content[r.Start:r.End]
	if actual != edit.TargetString {
		return Match{}, errContentMismatch(edit.TargetString, actual, r)
	}
	if fail := verifyExpectedHash(edit.ExpectedHash, actual); fail != nil {
		return Match{}, fail
	}
	return Match{
		Start:       r.Start,
		End:         r.End,
		Replacement: edit.ReplacementString,
		Original:    actual,
		LineNumber:  lineNumberAt(content, r.Start),
		Confidence:  1.0,
		Type:        MatchExact,
	}, nil
}

// resolveInsertEdit turns a pure insertion into a zero-width match anchored
// before or after the insert line range. An insert edit's hash precondition
// covers the whole file, since there is no target range to hash.
func resolveInsertEdit(content string, edit Edit) (Match, *EditError) {
	if edit.InsertLineRange == nil {
		return Match{}, errInvalidTarget("insertMode requires insertLineRange", "supply insertLineRange with the anchor line")
	}
	if edit.InsertMode != InsertBefore && edit.InsertMode != InsertAfter {
		return Match{}, errInvalidTarget(
			fmt.Sprintf("unknown insertMode %q", edit.InsertMode),
			`use insertMode:"before" or insertMode:"after"`,
		)
	}
	if fail := verifyExpectedHash(edit.ExpectedHash, content); fail != nil {
		return Match{}, fail
	}

	starts := lineStartOffsets(content)
	lr := *edit.InsertLineRange
	if lr.Start < 1 || lr.End < lr.Start || lr.Start > len(starts) {
		return Match{}, errInvalidTarget(
			fmt.Sprintf("insertLineRange [%d,%d] is outside a file of %d lines", lr.Start, lr.End, len(starts)),
			"re-read the file to confirm its line count",
		)
	}

	var offset int
	if edit.InsertMode == InsertBefore {
		offset = starts[lr.Start-1]
	} else {
		if lr.End >= len(starts) {
			offset = len(content)
		} else {
			offset = starts[lr.End]
		}
	}
	return Match{
		Start:       offset,
		End:         offset,
		Replacement: edit.ReplacementString,
		Original:    "",
		LineNumber:  lineNumberAt(content, offset),
		Confidence:  1.0,
		Type:        MatchExact,
	}, nil
}

// rebuild concatenates the unchanged spans and replacements into the new
// content, emitting for each replacement an inverse edit whose index range
// addresses the replacement's position in the new content. Undo therefore
// replays by exact offset, never by search.
func rebuild(content string, matches []Match) (string, []Edit) {
	var b strings.Builder
	b.Grow(len(content))
	inverse := make([]Edit, 0, len(matches))

	pos := 0
	newOffset := 0
	for _, m := range matches {
		b.WriteString(content[pos:m.Start])
		newOffset += m.Start - pos
		b.WriteString(m.Replacement)
		inverse = append(inverse, Edit{
			TargetString:      m.Replacement,
			ReplacementString: m.Original,
			IndexRange:        &IndexRange{Start: newOffset, End: newOffset + len(m.Replacement)},
		})
		newOffset += len(m.Replacement)
		pos = m.End
	}
	b.WriteString(content[pos:])
	return b.String(), inverse
}

// Commit writes the planned content to disk, taking a backup of the
// pre-edit bytes first, and returns the operation record for History.
// filePath addresses the file for I/O; relPath is the root-relative form
// stored on the operation.
func (e *ApplyEngine) Commit(fs FileSystem, filePath, relPath string, original string, plan *PlannedApply, edits []Edit, description string) (EditOperation, error) {
	if e.backups != nil {
		if err := e.backups.Create(fs, relPath, original); err != nil {
			return EditOperation{}, fmt.Errorf("backup failed for %s: %w", relPath, err)
		}
	}
	if err := fs.WriteFile(filePath, plan.NewContent); err != nil {
		return EditOperation{}, fmt.Errorf("write failed for %s: %w", relPath, err)
	}
	if e.logger != nil {
		e.logger.WithFields(logrus.Fields{
			"file":  relPath,
			"edits": len(edits),
		}).Debug("Applied edits")
	}
	return EditOperation{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		Description:  description,
		Edits:        edits,
		InverseEdits: plan.InverseEdits,
		FilePath:     relPath,
	}, nil
}

func sortMatchesByStart(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Start < matches[j].Start })
}
