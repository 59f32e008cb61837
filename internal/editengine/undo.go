package editengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel conditions for the undo/redo surface.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Undo reverts the most recent History item. Batch members are reverted in
// reverse order; the first file that cannot be reverted aborts the undo,
// leaving earlier reverts in place and reporting exactly which files were
// touched. Single operations resolve their stored root-relative path and
// replay their inverse edits, which address exact byte ranges and so never
// re-run a search.
func (c *Coordinator) Undo(ctx context.Context) (EditResult, error) {
	item, ok := c.history.Undo()
	if !ok {
		return EditResult{Success: false, Message: ErrNothingToUndo.Error()}, nil
	}

	if item.Batch != nil {
		reverted := make([]string, 0, len(item.Batch.Operations))
		for i := len(item.Batch.Operations) - 1; i >= 0; i-- {
			op := item.Batch.Operations[i]
			if err := c.replayEdits(op.FilePath, op.InverseEdits); err != nil {
				return EditResult{
					Success: false,
					Message: fmt.Sprintf("undo aborted at %s: %v; reverted: [%s], not reverted: [%s]",
						op.FilePath, err,
						strings.Join(reverted, ", "),
						strings.Join(batchFilesBefore(item.Batch, i), ", ")),
					Suggestion: "restore the unreverted files from their backups, then retry",
				}, nil
			}
			reverted = append(reverted, op.FilePath)
		}
		return EditResult{
			Success:   true,
			Message:   fmt.Sprintf("Undid %q across %d file(s)", item.Batch.Description, len(item.Batch.Operations)),
			Operation: &item,
		}, nil
	}

	op := item.Operation
	if err := c.replayEdits(op.FilePath, op.InverseEdits); err != nil {
		return EditResult{
			Success:    false,
			Message:    fmt.Sprintf("undo failed for %s: %v", op.FilePath, err),
			Suggestion: "the file may have changed since the operation; restore it from a backup",
		}, nil
	}
	return EditResult{
		Success:   true,
		Message:   fmt.Sprintf("Undid %q on %s", op.Description, op.FilePath),
		Operation: &item,
	}, nil
}

// Redo re-applies the most recently undone History item: batch members in
// their original order, forward edits throughout.
func (c *Coordinator) Redo(ctx context.Context) (EditResult, error) {
	item, ok := c.history.Redo()
	if !ok {
		return EditResult{Success: false, Message: ErrNothingToRedo.Error()}, nil
	}

	if item.Batch != nil {
		for _, op := range item.Batch.Operations {
			if err := c.replayEdits(op.FilePath, op.Edits); err != nil {
				return EditResult{
					Success:    false,
					Message:    fmt.Sprintf("redo aborted at %s: %v", op.FilePath, err),
					Suggestion: "the file may have changed since the undo; re-apply the edits manually",
				}, nil
			}
		}
		return EditResult{
			Success:   true,
			Message:   fmt.Sprintf("Redid %q across %d file(s)", item.Batch.Description, len(item.Batch.Operations)),
			Operation: &item,
		}, nil
	}

	op := item.Operation
	if err := c.replayEdits(op.FilePath, op.Edits); err != nil {
		return EditResult{
			Success:    false,
			Message:    fmt.Sprintf("redo failed for %s: %v", op.FilePath, err),
			Suggestion: "the file may have changed since the undo; re-apply the edits manually",
		}, nil
	}
	return EditResult{
		Success:   true,
		Message:   fmt.Sprintf("Redid %q on %s", op.Description, op.FilePath),
		Operation: &item,
	}, nil
}

// batchFilesBefore lists the member files that had not yet been reverted
// when an undo aborted at member index i (members revert in reverse order).
func batchFilesBefore(batch *BatchOperation, i int) []string {
	files := make([]string, 0, i+1)
	for _, op := range batch.Operations[:i+1] {
		files = append(files, op.FilePath)
	}
	return files
}
