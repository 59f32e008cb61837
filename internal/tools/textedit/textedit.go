// Package textedit exposes the edit engine as the text_edit MCP tool:
// fuzzy-match apply with dry-run diffs, transactional multi-file batches,
// undo/redo, match diagnostics, and backup listing/restore.
package textedit

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/UpRoot-Company/mcp-textedit/internal/config"
	"github.com/UpRoot-Company/mcp-textedit/internal/diff"
	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/UpRoot-Company/mcp-textedit/internal/editengine/history"
	"github.com/UpRoot-Company/mcp-textedit/internal/editengine/txlog"
	"github.com/UpRoot-Company/mcp-textedit/internal/registry"
	"github.com/UpRoot-Company/mcp-textedit/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// WorkspaceRootEnvVar overrides the workspace root (default: cwd).
const WorkspaceRootEnvVar = "TEXTEDIT_WORKSPACE_ROOT"

// DisableTxLogEnvVar forces degraded sequential batch mode when "true".
const DisableTxLogEnvVar = "TEXTEDIT_DISABLE_TXLOG"

// TextEditTool implements the text_edit tool. The engine is assembled
// lazily on first use so registration never touches the filesystem.
type TextEditTool struct {
	once    sync.Once
	initErr error

	ws      *workspace.Workspace
	coord   *editengine.Coordinator
	history *history.Stack
	backups *editengine.BackupStore
}

// init registers the text_edit tool
func init() {
	registry.Register(&TextEditTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *TextEditTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"text_edit",
		mcp.WithDescription(`Fuzzy-match text editing with transactional multi-file batches, undo/redo, and backups.

Functions and their required parameters:

• apply: file (required), edits (required), dry_run (optional), diff_mode (optional: myers|semantic), description (optional)
• apply_batch: files (required: array of {file, edits}), dry_run (optional), atomic (optional, default true), description (optional)
• undo: (no parameters) - revert the most recent operation or batch
• redo: (no parameters) - re-apply the most recently undone operation
• diagnose: file (required), target (required) - report how a target matches under each tolerance tier
• history: (no parameters) - list recent operations on the undo stack
• list_backups: file (required) - list backups for a workspace-relative path, newest first
• restore_backup: file (required), backup (required) - restore a named backup (a fresh backup of the current content is taken first)

Each edit locates its target by exact text, escalating through whitespace and structural normalisation, optional whitespace-fuzzy or Levenshtein matching, a byte-exact indexRange, or a line-anchored insertion. Ambiguous targets fail with candidate locations rather than guessing. All paths are workspace-relative.`),
		mcp.WithString("function",
			mcp.Required(),
			mcp.Description("Function to execute"),
			mcp.Enum("apply", "apply_batch", "undo", "redo", "diagnose", "history", "list_backups", "restore_backup"),
		),
		mcp.WithString("file",
			mcp.Description("Workspace-relative file path (apply, diagnose, list_backups, restore_backup)"),
		),
		mcp.WithArray("edits",
			mcp.Description("Array of edit objects: {targetString, replacementString, normalization?, fuzzyMode?, lineRange?, beforeContext?, afterContext?, anchorSearchRange?, indexRange?, expectedHash?, insertMode?, insertLineRange?}"),
		),
		mcp.WithArray("files",
			mcp.Description("apply_batch only: array of {file, edits} objects"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview changes with a diff without writing (default: false)"),
		),
		mcp.WithBoolean("atomic",
			mcp.Description("apply_batch only: all-or-nothing application via the transaction journal (default: true)"),
		),
		mcp.WithString("diff_mode",
			mcp.Description("Diff algorithm for previews: myers (default) or semantic"),
			mcp.Enum("myers", "semantic"),
		),
		mcp.WithString("description",
			mcp.Description("Human description stored on the operation for history listings"),
		),
		mcp.WithString("target",
			mcp.Description("diagnose only: the target text to probe"),
		),
		mcp.WithString("backup",
			mcp.Description("restore_backup only: a backup filename returned by list_backups"),
		),
	)
}

// Execute executes the text_edit tool
func (t *TextEditTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error) {
	function, ok := args["function"].(string)
	if !ok || function == "" {
		return nil, fmt.Errorf("missing required parameter: function")
	}
	if registry.IsFunctionDisabled(function) {
		return nil, fmt.Errorf("function %s is disabled via DISABLED_FUNCTIONS", function)
	}

	if err := t.ensureEngine(logger); err != nil {
		return nil, fmt.Errorf("failed to initialise edit engine: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"tool":     "text_edit",
		"function": function,
	}).Debug("Executing text_edit function")

	switch function {
	case "apply":
		return t.executeApply(ctx, args)
	case "apply_batch":
		return t.executeApplyBatch(ctx, args)
	case "undo":
		result, err := t.coord.Undo(ctx)
		if err != nil {
			return nil, err
		}
		return resultFor(result), nil
	case "redo":
		result, err := t.coord.Redo(ctx)
		if err != nil {
			return nil, err
		}
		return resultFor(result), nil
	case "diagnose":
		return t.executeDiagnose(args)
	case "history":
		return t.executeHistory()
	case "list_backups":
		return t.executeListBackups(args)
	case "restore_backup":
		return t.executeRestoreBackup(ctx, args)
	default:
		return nil, fmt.Errorf("unknown function: %s", function)
	}
}

// ensureEngine assembles the workspace, matcher, coordinator, and their
// collaborators on first use.
func (t *TextEditTool) ensureEngine(logger *logrus.Logger) error {
	t.once.Do(func() {
		t.initErr = t.buildEngine(logger)
	})
	return t.initErr
}

func (t *TextEditTool) buildEngine(logger *logrus.Logger) error {
	if err := config.EnsureStateDirs(); err != nil {
		return fmt.Errorf("failed to create state directories: %w", err)
	}
	limitsStore, err := config.NewLimitsStore(config.LimitsPath(), logger)
	if err != nil {
		return err
	}
	limits := limitsStore.Current()

	root := os.Getenv(WorkspaceRootEnvVar)
	ws, err := workspace.New(root, limits.MaxFileSizeBytes, logger, config.StateDir())
	if err != nil {
		return err
	}
	t.ws = ws

	matcher := editengine.NewMatcher(logger, editengine.Limits{
		MaxDistanceEvaluations: limits.MaxDistanceEvaluations,
		MaxSearchDuration:      limits.MaxSearchDuration(),
		MaxFuzzyTargetChars:    limits.MaxFuzzyTargetChars,
	})
	t.backups = editengine.NewBackupStore(config.BackupsDir(), limits.BackupRetention, logger)
	t.history = history.New(0)

	var journal editengine.TransactionLog
	if strings.ToLower(os.Getenv(DisableTxLogEnvVar)) == "true" {
		logger.Info("Transaction log disabled via environment; batches run in degraded sequential mode")
	} else {
		log, err := txlog.New(config.TxLogDir(), logger)
		if err != nil {
			logger.WithError(err).Warn("Transaction log unavailable; batches run in degraded sequential mode")
		} else {
			journal = log
		}
	}

	t.coord = editengine.NewCoordinator(logger, editengine.Deps{
		FS:      ws,
		Engine:  editengine.NewApplyEngine(logger, matcher, t.backups),
		Matcher: matcher,
		History: t.history,
		TxLog:   journal,
		Differ:  diff.New(),
		Root:    ws.Root(),
	})

	logger.WithFields(logrus.Fields{
		"workspace": ws.Root(),
		"state_dir": config.StateDir(),
		"atomic":    journal != nil,
	}).Debug("Edit engine initialised")
	return nil
}

func (t *TextEditTool) executeApply(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	file, err := requireString(args, "file")
	if err != nil {
		return nil, err
	}
	edits, err := parseEdits(args["edits"])
	if err != nil {
		return nil, err
	}
	opts, err := parseOptions(args)
	if err != nil {
		return nil, err
	}

	result, err := t.coord.ApplyEdits(ctx, file, edits, opts)
	if err != nil {
		return nil, err
	}
	return resultFor(result), nil
}

func (t *TextEditTool) executeApplyBatch(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	files, err := parseFileEdits(args["files"])
	if err != nil {
		return nil, err
	}
	opts, err := parseOptions(args)
	if err != nil {
		return nil, err
	}
	opts.Atomic = true
	if atomic, ok := args["atomic"].(bool); ok {
		opts.Atomic = atomic
	}

	result, err := t.coord.ApplyBatchEdits(ctx, files, opts)
	if err != nil {
		return nil, err
	}
	return resultFor(result), nil
}

func (t *TextEditTool) executeDiagnose(args map[string]interface{}) (*mcp.CallToolResult, error) {
	file, err := requireString(args, "file")
	if err != nil {
		return nil, err
	}
	target, err := requireString(args, "target")
	if err != nil {
		return nil, err
	}
	content, err := t.ws.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	report := t.coord.Matcher().GetDiagnostics(content, target)
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(renderDiagnostics(file, report))},
		StructuredContent: report,
	}, nil
}

func (t *TextEditTool) executeHistory() (*mcp.CallToolResult, error) {
	entries := t.history.Entries()
	type entry struct {
		ID          string   `json:"id"`
		Timestamp   string   `json:"timestamp"`
		Description string   `json:"description"`
		Files       []string `json:"files"`
		Batch       bool     `json:"batch"`
	}
	listing := make([]entry, 0, len(entries))
	var b strings.Builder
	fmt.Fprintf(&b, "%d operation(s) on the undo stack (most recent first)", len(entries))
	if t.history.CanRedo() {
		b.WriteString("; redo available")
	}
	b.WriteByte('\n')
	for _, item := range entries {
		e := entry{
			ID:          item.ID(),
			Description: item.Description(),
			Files:       item.Files(),
			Batch:       item.Batch != nil,
		}
		if item.Batch != nil {
			e.Timestamp = item.Batch.Timestamp.Format("2006-01-02 15:04:05")
		} else if item.Operation != nil {
			e.Timestamp = item.Operation.Timestamp.Format("2006-01-02 15:04:05")
		}
		listing = append(listing, e)
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", e.Timestamp, e.Description, strings.Join(e.Files, ", "))
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(b.String())},
		StructuredContent: listing,
	}, nil
}

func (t *TextEditTool) executeListBackups(args map[string]interface{}) (*mcp.CallToolResult, error) {
	file, err := requireString(args, "file")
	if err != nil {
		return nil, err
	}
	names, err := t.backups.List(t.ws, file)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	if len(names) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No backups found for %s", file)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d backup(s) for %s (newest first):\n", len(names), file)
	for _, name := range names {
		b.WriteString("- " + name + "\n")
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(b.String())},
		StructuredContent: names,
	}, nil
}

// executeRestoreBackup writes a named backup's content over the file. The
// current content is backed up first, so a restore is itself reversible.
func (t *TextEditTool) executeRestoreBackup(ctx context.Context, args map[string]interface{}) (*mcp.CallToolResult, error) {
	file, err := requireString(args, "file")
	if err != nil {
		return nil, err
	}
	backupName, err := requireString(args, "backup")
	if err != nil {
		return nil, err
	}

	restored, err := t.backups.Read(t.ws, backupName)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", backupName, err)
	}
	if t.ws.Exists(file) {
		current, err := t.ws.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := t.backups.Create(t.ws, file, current); err != nil {
			return nil, fmt.Errorf("failed to back up current content of %s: %w", file, err)
		}
	}
	if err := t.ws.WriteFile(file, restored); err != nil {
		return nil, fmt.Errorf("failed to restore %s: %w", file, err)
	}
	return mcp.NewToolResultText(fmt.Sprintf("Restored %s from backup %s (%d bytes); previous content backed up", file, backupName, len(restored))), nil
}

// resultFor wraps an EditResult as text summary plus structured content.
func resultFor(result editengine.EditResult) *mcp.CallToolResult {
	var b strings.Builder
	b.WriteString(result.Message)
	if result.ErrorCode != "" {
		fmt.Fprintf(&b, "\nerror code: %s", result.ErrorCode)
	}
	if result.Suggestion != "" {
		fmt.Fprintf(&b, "\nsuggestion: %s", result.Suggestion)
	}
	if result.Diff != "" {
		b.WriteString("\n\n" + result.Diff)
	}
	if result.SemanticSummary != "" {
		b.WriteString("\n" + result.SemanticSummary)
	}
	return &mcp.CallToolResult{
		Content:           []mcp.Content{mcp.NewTextContent(b.String())},
		StructuredContent: result,
		IsError:           !result.Success,
	}
}

// renderDiagnostics formats a diagnostics report for the text summary.
func renderDiagnostics(file string, report editengine.DiagnosticsReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Match diagnostics for %s:\n", file)
	for _, tier := range report.Tiers {
		if tier.Error != "" {
			fmt.Fprintf(&b, "- %s: error: %s\n", tier.Level, tier.Error)
			continue
		}
		fmt.Fprintf(&b, "- %s: %d match(es)\n", tier.Level, tier.Matches)
		for _, cand := range tier.Candidates {
			fmt.Fprintf(&b, "    line %d: %s\n", cand.LineNumber, cand.Snippet)
		}
	}
	if len(report.SimilarLines) > 0 {
		b.WriteString("No tier matched; similar lines:\n")
		for _, s := range report.SimilarLines {
			fmt.Fprintf(&b, "    line %d (%.0f%%): %s\n", s.LineNumber, s.Similarity*100, strings.TrimSpace(s.Text))
		}
	}
	return b.String()
}
