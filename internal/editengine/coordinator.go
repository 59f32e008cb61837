package editengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/UpRoot-Company/mcp-textedit/internal/telemetry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Coordinator orchestrates single-file and multi-file application on top of
// the apply engine, owning the History and TransactionLog protocols. Batch
// application is atomic when a transaction log is available and degrades to
// best-effort sequential rollback when it is not.
type Coordinator struct {
	fs      FileSystem
	engine  *ApplyEngine
	matcher *Matcher
	history History
	txlog   TransactionLog
	differ  DiffRenderer
	impact  ImpactAnalyzer
	root    string
	logger  logrus.FieldLogger
}

// Deps carries the coordinator's collaborators. TxLog and Impact may be
// nil; a nil TxLog forces degraded sequential batch mode.
type Deps struct {
	FS      FileSystem
	Engine  *ApplyEngine
	Matcher *Matcher
	History History
	TxLog   TransactionLog
	Differ  DiffRenderer
	Impact  ImpactAnalyzer
	Root    string
}

// NewCoordinator builds a coordinator over the given collaborators.
func NewCoordinator(logger logrus.FieldLogger, deps Deps) *Coordinator {
	return &Coordinator{
		fs:      deps.FS,
		engine:  deps.Engine,
		matcher: deps.Matcher,
		history: deps.History,
		txlog:   deps.TxLog,
		differ:  deps.Differ,
		impact:  deps.Impact,
		root:    deps.Root,
		logger:  logger,
	}
}

// Matcher exposes the coordinator's matcher for the diagnostics surface.
func (c *Coordinator) Matcher() *Matcher {
	return c.matcher
}

// ApplyEdits applies one file's edits. Domain failures come back inside the
// EditResult; the error return is reserved for I/O failures.
func (c *Coordinator) ApplyEdits(ctx context.Context, filePath string, edits []Edit, opts Options) (EditResult, error) {
	absPath := c.abs(filePath)
	relPath := c.rel(filePath)

	content, err := c.fs.ReadFile(absPath)
	if err != nil {
		return EditResult{}, fmt.Errorf("failed to read %s: %w", relPath, err)
	}

	started := time.Now()
	plan, fail := c.engine.Plan(content, edits)
	telemetry.RecordMatchDuration(ctx, strategyOf(edits), float64(time.Since(started).Milliseconds()))
	if fail != nil {
		return c.failure(ctx, fail.forFile(relPath)), nil
	}

	result := EditResult{Success: true}
	c.attachDiff(&result, content, plan.NewContent, opts.DiffMode)

	if opts.DryRun {
		result.Message = fmt.Sprintf("Dry run: %d edit(s) would apply to %s (%s)", len(edits), relPath, result.diffSummary())
		if c.impact != nil {
			preview, err := c.impact.Preview(relPath, edits)
			if err != nil {
				c.logger.WithError(err).Debug("Impact preview unavailable")
			} else {
				result.ImpactPreview = preview
			}
		}
		telemetry.RecordEditApplied(ctx, "single", true, len(edits))
		return result, nil
	}

	op, err := c.engine.Commit(c.fs, absPath, relPath, content, plan, edits, describeEdits(relPath, edits, opts.Description))
	if err != nil {
		return EditResult{}, err
	}
	c.history.PushOperation(HistoryItem{Operation: &op})
	telemetry.RecordEditApplied(ctx, "single", false, len(edits))

	result.Message = fmt.Sprintf("Applied %d edit(s) to %s (%s)", len(edits), relPath, result.diffSummary())
	result.Operation = &HistoryItem{Operation: &op}
	return result, nil
}

// ApplyBatchEdits applies edits across several files as one logical change.
// With a transaction log the batch is atomic: on any failure every file is
// restored to its pre-batch bytes and nothing reaches History. Without one
// the coordinator falls back to sequential application with best-effort
// inverse-edit rollback.
func (c *Coordinator) ApplyBatchEdits(ctx context.Context, files []FileEdits, opts Options) (EditResult, error) {
	if len(files) == 0 {
		return c.failure(ctx, errInvalidTarget("no files supplied", "provide at least one file with edits")), nil
	}

	if opts.DryRun {
		return c.dryRunBatch(ctx, files, opts)
	}
	if opts.Atomic && c.txlog != nil {
		return c.applyBatchAtomic(ctx, files, opts)
	}
	return c.applyBatchSequential(ctx, files, opts)
}

// dryRunBatch plans every file without touching the filesystem or History.
func (c *Coordinator) dryRunBatch(ctx context.Context, files []FileEdits, opts Options) (EditResult, error) {
	var diffs []string
	totalEdits := 0
	for _, fe := range files {
		relPath := c.rel(fe.FilePath)
		content, err := c.fs.ReadFile(c.abs(fe.FilePath))
		if err != nil {
			return EditResult{}, fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		plan, fail := c.engine.Plan(content, fe.Edits)
		if fail != nil {
			return c.failure(ctx, fail.forFile(relPath)), nil
		}
		fileResult := EditResult{}
		c.attachDiff(&fileResult, content, plan.NewContent, opts.DiffMode)
		diffs = append(diffs, fmt.Sprintf("--- %s (%s)\n%s", relPath, fileResult.diffSummary(), fileResult.Diff))
		totalEdits += len(fe.Edits)
	}
	telemetry.RecordEditApplied(ctx, "batch", true, totalEdits)
	return EditResult{
		Success: true,
		Message: fmt.Sprintf("Dry run: %d edit(s) would apply across %d file(s)", totalEdits, len(files)),
		Diff:    strings.Join(diffs, "\n"),
	}, nil
}

// applyBatchAtomic is the preferred path: snapshot, journal, apply, and
// either commit or restore every snapshot verbatim.
func (c *Coordinator) applyBatchAtomic(ctx context.Context, files []FileEdits, opts Options) (EditResult, error) {
	snapshots := make([]TransactionSnapshot, len(files))
	for i, fe := range files {
		relPath := c.rel(fe.FilePath)
		content, err := c.fs.ReadFile(c.abs(fe.FilePath))
		if err != nil {
			return EditResult{}, fmt.Errorf("failed to snapshot %s: %w", relPath, err)
		}
		snapshots[i] = TransactionSnapshot{
			FilePath:        relPath,
			OriginalContent: content,
			OriginalHash:    ContentHash(content),
		}
	}

	batchID := uuid.New().String()
	description := describeBatch(files, opts.Description)
	pending := BatchOperation{ID: batchID, Timestamp: time.Now(), Description: description}
	c.history.PushOperation(HistoryItem{Batch: &pending})

	if err := c.txlog.Begin(batchID, description, snapshots); err != nil {
		c.history.RemoveOperation(batchID)
		return EditResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}

	ops := make([]EditOperation, 0, len(files))
	totalEdits := 0
	for i, fe := range files {
		relPath := snapshots[i].FilePath
		plan, fail := c.engine.Plan(snapshots[i].OriginalContent, fe.Edits)
		if fail != nil {
			report := c.restoreSnapshots(ctx, snapshots[:i+1])
			c.abortAtomic(ctx, batchID)
			result := c.failure(ctx, fail.forFile(relPath))
			result.Message = "batch failed; all files restored to pre-batch state: " + result.Message
			result.Rollback = &report
			return result, nil
		}
		op, err := c.engine.Commit(c.fs, c.abs(fe.FilePath), relPath, snapshots[i].OriginalContent, plan, fe.Edits, describeEdits(relPath, fe.Edits, opts.Description))
		if err != nil {
			report := c.restoreSnapshots(ctx, snapshots[:i+1])
			c.abortAtomic(ctx, batchID)
			return EditResult{
				Success:    false,
				Message:    fmt.Sprintf("batch failed writing %s; all files restored to pre-batch state: %v", relPath, err),
				Suggestion: "check filesystem permissions and retry",
				Rollback:   &report,
			}, nil
		}
		ops = append(ops, op)
		totalEdits += len(fe.Edits)
	}

	for i, fe := range files {
		newContent, err := c.fs.ReadFile(c.abs(fe.FilePath))
		if err != nil {
			report := c.restoreSnapshots(ctx, snapshots)
			c.abortAtomic(ctx, batchID)
			result := EditResult{
				Success:  false,
				Message:  fmt.Sprintf("batch failed verifying %s; all files restored to pre-batch state: %v", snapshots[i].FilePath, err),
				Rollback: &report,
			}
			return result, nil
		}
		snapshots[i].NewContent = newContent
		snapshots[i].NewHash = ContentHash(newContent)
	}

	if err := c.txlog.Commit(batchID, snapshots); err != nil {
		// The writes are already on disk and consistent; losing the journal
		// entry costs crash recovery hints, not correctness.
		c.logger.WithError(err).Warn("Failed to commit transaction log")
	}
	completed := BatchOperation{ID: batchID, Timestamp: pending.Timestamp, Description: description, Operations: ops}
	c.history.ReplaceOperation(batchID, HistoryItem{Batch: &completed})
	telemetry.RecordEditApplied(ctx, "batch", false, totalEdits)

	return EditResult{
		Success:   true,
		Message:   fmt.Sprintf("Applied %d edit(s) across %d file(s) atomically", totalEdits, len(files)),
		Operation: &HistoryItem{Batch: &completed},
	}, nil
}

// abortAtomic rolls back the journal and removes the pending History entry.
func (c *Coordinator) abortAtomic(ctx context.Context, batchID string) {
	if err := c.txlog.Rollback(batchID); err != nil {
		c.logger.WithError(err).Warn("Failed to roll back transaction log")
	}
	c.history.RemoveOperation(batchID)
	telemetry.RecordBatchRollback(ctx, "atomic")
}

// restoreSnapshots writes every snapshot's original bytes back, re-hashes
// each file after the write, and reports what was actually restored.
func (c *Coordinator) restoreSnapshots(ctx context.Context, snapshots []TransactionSnapshot) RollbackReport {
	report := RollbackReport{Restored: true}
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		absPath := c.abs(snap.FilePath)
		if err := c.fs.WriteFile(absPath, snap.OriginalContent); err != nil {
			c.logger.WithError(err).WithField("file", snap.FilePath).Error("Failed to restore snapshot")
			report.Restored = false
			report.Failures = append(report.Failures, snap.FilePath)
			continue
		}
		restored, err := c.fs.ReadFile(absPath)
		if err != nil || ContentHash(restored) != snap.OriginalHash {
			c.logger.WithField("file", snap.FilePath).Error("Restored content hash mismatch")
			report.Mismatches = append(report.Mismatches, snap.FilePath)
			telemetry.RecordRestoreMismatch(ctx, 1)
		}
	}
	return report
}

// applyBatchSequential is the degraded path: files are applied in order and
// rolled back via inverse edits on the first failure. Individual rollback
// failures are reported but do not halt the remaining rollbacks.
func (c *Coordinator) applyBatchSequential(ctx context.Context, files []FileEdits, opts Options) (EditResult, error) {
	applied := make([]EditOperation, 0, len(files))
	totalEdits := 0
	for _, fe := range files {
		relPath := c.rel(fe.FilePath)
		content, err := c.fs.ReadFile(c.abs(fe.FilePath))

		var fail *EditError
		var plan *PlannedApply
		if err == nil {
			plan, fail = c.engine.Plan(content, fe.Edits)
		}

		var op EditOperation
		if err == nil && fail == nil {
			op, err = c.engine.Commit(c.fs, c.abs(fe.FilePath), relPath, content, plan, fe.Edits, describeEdits(relPath, fe.Edits, opts.Description))
		}

		if err != nil || fail != nil {
			report := c.rollbackSequential(applied)
			telemetry.RecordBatchRollback(ctx, "sequential")
			var result EditResult
			if fail != nil {
				result = c.failure(ctx, fail.forFile(relPath))
			} else {
				result = EditResult{Success: false, Message: fmt.Sprintf("batch failed at %s: %v", relPath, err)}
			}
			result.Message = fmt.Sprintf("%s; rolled back %d previously applied file(s) best-effort", result.Message, len(applied))
			result.Rollback = &report
			return result, nil
		}
		applied = append(applied, op)
		totalEdits += len(fe.Edits)
	}

	batch := BatchOperation{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Description: describeBatch(files, opts.Description),
		Operations:  applied,
	}
	c.history.PushOperation(HistoryItem{Batch: &batch})
	telemetry.RecordEditApplied(ctx, "batch", false, totalEdits)

	return EditResult{
		Success:   true,
		Message:   fmt.Sprintf("Applied %d edit(s) across %d file(s) sequentially (no transaction log)", totalEdits, len(files)),
		Operation: &HistoryItem{Batch: &batch},
	}, nil
}

// rollbackSequential replays inverse edits of already-applied files in
// reverse order.
func (c *Coordinator) rollbackSequential(applied []EditOperation) RollbackReport {
	report := RollbackReport{Restored: true}
	for i := len(applied) - 1; i >= 0; i-- {
		if err := c.replayEdits(applied[i].FilePath, applied[i].InverseEdits); err != nil {
			c.logger.WithError(err).WithField("file", applied[i].FilePath).Error("Best-effort rollback failed")
			report.Restored = false
			report.Failures = append(report.Failures, applied[i].FilePath)
		}
	}
	return report
}

// replayEdits applies a stored edit list to a file's current content
// without recording history or taking backups. Used by rollback, undo, and
// redo.
func (c *Coordinator) replayEdits(relPath string, edits []Edit) error {
	absPath := c.abs(relPath)
	content, err := c.fs.ReadFile(absPath)
	if err != nil {
		return err
	}
	plan, fail := c.engine.Plan(content, edits)
	if fail != nil {
		return fail
	}
	return c.fs.WriteFile(absPath, plan.NewContent)
}

// attachDiff renders the requested preview diff onto the result. Diff
// rendering failures degrade to no diff; the apply itself is unaffected.
func (c *Coordinator) attachDiff(result *EditResult, original, updated string, mode DiffMode) {
	if c.differ == nil {
		return
	}
	line := c.differ.LineDiff(original, updated)
	result.Diff = line.Unified
	result.StructuredDiff = &StructuredDiff{Added: line.Added, Removed: line.Removed}
	if mode == DiffSemantic {
		structured, summary, err := c.differ.SemanticDiff(original, updated)
		if err != nil {
			c.logger.WithError(err).Debug("Semantic diff unavailable")
			return
		}
		structured.Added = line.Added
		structured.Removed = line.Removed
		result.StructuredDiff = structured
		result.SemanticSummary = summary
	}
}

// failure converts a domain error into a failed result, counting budget
// breaches as they pass through.
func (c *Coordinator) failure(ctx context.Context, fail *EditError) EditResult {
	if fail.Code == CodeBudgetExceeded {
		telemetry.RecordBudgetExceeded(ctx, "levenshtein")
	}
	message := fail.Message
	if fail.File != "" {
		message = fmt.Sprintf("%s: %s", fail.File, message)
	}
	return EditResult{
		Success:    false,
		Message:    message,
		ErrorCode:  fail.Code,
		Suggestion: fail.Suggestion,
	}
}

// abs resolves a stored or caller-supplied path against the workspace
// root, falling back to the current working directory when no root is
// configured.
func (c *Coordinator) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	root := c.root
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		}
	}
	return filepath.Join(root, path)
}

// rel converts a path to its root-relative form for storage on operations.
func (c *Coordinator) rel(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	root := c.root
	if root == "" {
		if cwd, err := os.Getwd(); err == nil {
			root = cwd
		}
	}
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// diffSummary summarises a result's structured diff counts for messages.
func (r *EditResult) diffSummary() string {
	if r.StructuredDiff == nil {
		return "no diff"
	}
	return fmt.Sprintf("+%d/-%d lines", r.StructuredDiff.Added, r.StructuredDiff.Removed)
}

// strategyOf names the dominant match strategy of an edit list for the
// match-duration metric.
func strategyOf(edits []Edit) string {
	for _, e := range edits {
		switch {
		case e.FuzzyMode == FuzzyLevenshtein:
			return "levenshtein"
		case e.FuzzyMode == FuzzyWhitespace:
			return "whitespace-fuzzy"
		case e.IndexRange != nil:
			continue
		case e.Normalization != "" && e.Normalization != NormalizationExact:
			return "normalization"
		}
	}
	return "exact"
}

// describeEdits builds the stored description for a single-file operation.
func describeEdits(relPath string, edits []Edit, custom string) string {
	if custom != "" {
		return custom
	}
	return fmt.Sprintf("%d edit(s) to %s", len(edits), relPath)
}

// describeBatch builds the stored description for a batch.
func describeBatch(files []FileEdits, custom string) string {
	if custom != "" {
		return custom
	}
	names := make([]string, 0, len(files))
	for _, fe := range files {
		names = append(names, filepath.ToSlash(fe.FilePath))
	}
	return fmt.Sprintf("batch edit of %s", strings.Join(names, ", "))
}
