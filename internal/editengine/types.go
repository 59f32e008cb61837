// Package editengine implements the fuzzy-match text edit engine: target
// location under escalating tolerance strategies, ambiguity resolution with
// confidence scoring, atomic single and multi-file application with derived
// inverse edits, and snapshot-based batch rollback.
package editengine

import (
	"time"
)

// NormalizationLevel selects how much formatting drift is tolerated when
// comparing a target against file content.
type NormalizationLevel string

const (
	NormalizationExact      NormalizationLevel = "exact"
	NormalizationWhitespace NormalizationLevel = "whitespace"
	NormalizationStructural NormalizationLevel = "structural"
)

// FuzzyMode selects the matching strategy for a single edit. The zero value
// means regex matching under the edit's normalisation level.
type FuzzyMode string

const (
	FuzzyNone        FuzzyMode = "none"
	FuzzyWhitespace  FuzzyMode = "whitespace"
	FuzzyLevenshtein FuzzyMode = "levenshtein"
)

// InsertMode turns an edit into a pure insertion anchored to a line range
// instead of a replacement of matched text.
type InsertMode string

const (
	InsertNone   InsertMode = ""
	InsertBefore InsertMode = "before"
	InsertAfter  InsertMode = "after"
)

// IndexRange is a half-open byte range [Start, End) into file content.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// LineRange is an inclusive 1-based line range.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ExpectedHash is an optimistic-concurrency precondition: the hash of the
// bytes the caller believes it is replacing. Algorithm is "xxhash64" or
// "sha256".
type ExpectedHash struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Edit is a single requested change against one file. Immutable once
// submitted; the engine never mutates a caller's Edit.
//
// Exactly one location mechanism applies per edit: IndexRange (byte-exact,
// bypasses matching), InsertMode+InsertLineRange (pure insertion), or target
// matching under Normalization/FuzzyMode.
type Edit struct {
	TargetString      string             `json:"targetString"`
	ReplacementString string             `json:"replacementString"`
	IndexRange        *IndexRange        `json:"indexRange,omitempty"`
	LineRange         *LineRange         `json:"lineRange,omitempty"`
	BeforeContext     string             `json:"beforeContext,omitempty"`
	AfterContext      string             `json:"afterContext,omitempty"`
	AnchorSearchRange int                `json:"anchorSearchRange,omitempty"` // chars; 0 means unbounded
	Normalization     NormalizationLevel `json:"normalization,omitempty"`
	FuzzyMode         FuzzyMode          `json:"fuzzyMode,omitempty"`
	ExpectedHash      *ExpectedHash      `json:"expectedHash,omitempty"`
	InsertMode        InsertMode         `json:"insertMode,omitempty"`
	InsertLineRange   *LineRange         `json:"insertLineRange,omitempty"`
}

// MatchType records which strategy produced a match.
type MatchType string

const (
	MatchExact           MatchType = "exact"
	MatchNormalization   MatchType = "normalization"
	MatchWhitespaceFuzzy MatchType = "whitespace-fuzzy"
	MatchLevenshtein     MatchType = "levenshtein"
)

// Match is a resolved candidate location for one edit. Offsets are bytes
// into the original content the match was found in.
type Match struct {
	Start       int
	End         int
	Replacement string
	Original    string
	LineNumber  int // 1-based line of Start
	Confidence  float64
	Type        MatchType
	Distance    int // Levenshtein distance; 0 for other match types
}

// OutcomeKind discriminates a MatchOutcome.
type OutcomeKind int

const (
	OutcomeFound OutcomeKind = iota
	OutcomeAmbiguous
	OutcomeNotFound
)

// MatchOutcome is the value-returned result of resolving one edit's target:
// exactly one match, several conflicting candidates, or nothing plus a
// diagnostic report. Matching never uses error returns for these three
// cases; errors are reserved for I/O and budget failures.
type MatchOutcome struct {
	Kind        OutcomeKind
	Match       Match               // valid when Kind == OutcomeFound
	Candidates  []Match             // valid when Kind == OutcomeAmbiguous, sorted by confidence
	Diagnostics *NoMatchDiagnostics // valid when Kind == OutcomeNotFound
}

// LevelAttempt records how many raw matches one normalisation level produced
// before filtering.
type LevelAttempt struct {
	Level   NormalizationLevel `json:"level"`
	Matches int                `json:"matches"`
}

// SimilarLine is a best-effort pointer at file content that shares
// vocabulary with a target that failed to match.
type SimilarLine struct {
	LineNumber int     `json:"lineNumber"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"` // fraction of target words present in the line
}

// NoMatchDiagnostics explains a failed match: which levels were attempted
// with how many raw hits, and up to three lines that look related.
type NoMatchDiagnostics struct {
	Attempts     []LevelAttempt `json:"attempts"`
	SimilarLines []SimilarLine  `json:"similarLines,omitempty"`
}

// EditOperation is the persisted record of one successful file apply. The
// inverse edits carry byte-exact index ranges into the file content as it
// was after the apply, so undo replays them without re-running any search.
type EditOperation struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Description  string    `json:"description"`
	Edits        []Edit    `json:"edits"`
	InverseEdits []Edit    `json:"inverseEdits"`
	FilePath     string    `json:"filePath,omitempty"` // workspace-relative
}

// BatchOperation groups the per-file operations of one logical multi-file
// change. Undo reverts members in reverse order, redo replays them in the
// original order.
type BatchOperation struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Description string          `json:"description"`
	Operations  []EditOperation `json:"operations"`
}

// HistoryItem is one undo/redo stack entry: either a single-file operation
// or a batch. Exactly one field is non-nil.
type HistoryItem struct {
	Operation *EditOperation  `json:"operation,omitempty"`
	Batch     *BatchOperation `json:"batch,omitempty"`
}

// ID returns the identifier of whichever operation kind the item holds.
func (h HistoryItem) ID() string {
	if h.Batch != nil {
		return h.Batch.ID
	}
	if h.Operation != nil {
		return h.Operation.ID
	}
	return ""
}

// Description returns the human description of the held operation.
func (h HistoryItem) Description() string {
	if h.Batch != nil {
		return h.Batch.Description
	}
	if h.Operation != nil {
		return h.Operation.Description
	}
	return ""
}

// Files returns the workspace-relative paths the item touches, batch members
// in their stored order.
func (h HistoryItem) Files() []string {
	if h.Batch != nil {
		files := make([]string, 0, len(h.Batch.Operations))
		for _, op := range h.Batch.Operations {
			files = append(files, op.FilePath)
		}
		return files
	}
	if h.Operation != nil && h.Operation.FilePath != "" {
		return []string{h.Operation.FilePath}
	}
	return nil
}

// TransactionSnapshot captures one file's exact bytes and hash before a
// batch touches it, and the post-apply bytes once the batch succeeds.
type TransactionSnapshot struct {
	FilePath        string `json:"filePath"`
	OriginalContent string `json:"originalContent"`
	OriginalHash    string `json:"originalHash"`
	NewContent      string `json:"newContent,omitempty"`
	NewHash         string `json:"newHash,omitempty"`
}

// RollbackReport states what a batch rollback actually achieved, so callers
// can see partial-rollback risk instead of it disappearing into logs.
type RollbackReport struct {
	Restored   bool     `json:"restored"`             // every file was written back
	Mismatches []string `json:"mismatches,omitempty"` // files whose post-restore hash differs from the snapshot
	Failures   []string `json:"failures,omitempty"`   // files that could not be restored at all
}

// StructuredDiff is the machine-readable form of a rendered diff.
type StructuredDiff struct {
	Added   int        `json:"added"`
	Removed int        `json:"removed"`
	Hunks   []DiffHunk `json:"hunks,omitempty"`
}

// DiffHunk is one contiguous region of change with surrounding context
// lines. Lines carry a leading " ", "+" or "-" marker.
type DiffHunk struct {
	OldStart int      `json:"oldStart"`
	OldCount int      `json:"oldCount"`
	NewStart int      `json:"newStart"`
	NewCount int      `json:"newCount"`
	Lines    []string `json:"lines"`
}

// EditResult is the single caller-facing result shape for apply, batch,
// undo and redo. Domain failures set Success=false with an ErrorCode and a
// concrete Suggestion; they are never surfaced as raw errors.
type EditResult struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	Diff            string          `json:"diff,omitempty"`
	StructuredDiff  *StructuredDiff `json:"structuredDiff,omitempty"`
	SemanticSummary string          `json:"semanticSummary,omitempty"`
	Operation       *HistoryItem    `json:"operation,omitempty"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	Suggestion      string          `json:"suggestion,omitempty"`
	ImpactPreview   string          `json:"impactPreview,omitempty"`
	Rollback        *RollbackReport `json:"rollback,omitempty"`
}

// DiffMode selects the preview diff algorithm.
type DiffMode string

const (
	DiffMyers    DiffMode = "myers"
	DiffSemantic DiffMode = "semantic"
)

// LineDiffResult is a rendered unified diff plus its line counts.
type LineDiffResult struct {
	Unified string
	Added   int
	Removed int
}

// FileSystem is the file access surface the engine depends on. Content is
// byte-exact UTF-8 text; WriteFile must be atomic with respect to crashes.
type FileSystem interface {
	Exists(path string) bool
	ReadFile(path string) (string, error)
	WriteFile(path string, content string) error
	CreateDir(path string) error
	ReadDir(path string) ([]string, error)
	DeleteFile(path string) error
}

// History is the undo/redo collaborator. Implementations synchronise
// internally; the engine treats it as append-only apart from the pending
// batch placeholder protocol (push, then replace or remove).
type History interface {
	PushOperation(item HistoryItem)
	Undo() (HistoryItem, bool)
	Redo() (HistoryItem, bool)
	ReplaceOperation(id string, item HistoryItem)
	RemoveOperation(id string)
}

// TransactionLog is the durable journal collaborator that makes batch
// application atomic. A nil TransactionLog puts the coordinator into
// degraded sequential mode.
type TransactionLog interface {
	Begin(id, description string, snapshots []TransactionSnapshot) error
	Commit(id string, snapshots []TransactionSnapshot) error
	Rollback(id string) error
}

// DiffRenderer produces the human-readable previews attached to dry-run
// results. The engine never inspects the renderer's internals.
type DiffRenderer interface {
	// LineDiff renders a unified line diff (Myers).
	LineDiff(original, updated string) LineDiffResult
	// SemanticDiff renders a cleaned-up diff as hunks with three lines of
	// context, plus a short textual summary.
	SemanticDiff(original, updated string) (*StructuredDiff, string, error)
}

// ImpactAnalyzer optionally previews the blast radius of a set of edits;
// its output is attached to dry-run results verbatim.
type ImpactAnalyzer interface {
	Preview(filePath string, edits []Edit) (string, error)
}

// FileEdits pairs one file with the edits to apply to it within a batch.
// The wire key is "file", matching the single-file apply parameter.
type FileEdits struct {
	FilePath string `json:"file"`
	Edits    []Edit `json:"edits"`
}

// Options controls a single apply or batch call.
type Options struct {
	DryRun      bool
	DiffMode    DiffMode // DiffMyers when empty
	Description string   // human description stored on the operation
	Atomic      bool     // batch only: false forces degraded sequential mode
}
