package textedit

import "github.com/UpRoot-Company/mcp-textedit/internal/tools"

// ProvideExtendedInfo implements the ExtendedHelpProvider interface
func (t *TextEditTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		WhenToUse:    "Editing files where the target text may have drifted in formatting since you last read it, multi-file refactors that must apply all-or-nothing, or any edit you may need to undo.",
		WhenNotToUse: "Creating new files from scratch or bulk binary operations; use a plain write for those.",
		Examples: []tools.ToolExample{
			{
				Description: "Replace a statement, tolerating whitespace drift",
				Arguments: map[string]interface{}{
					"function": "apply",
					"file":     "src/server.ts",
					"edits": []interface{}{
						map[string]interface{}{
							"targetString":      "const port = 8080;",
							"replacementString": "const port = Number(process.env.PORT) || 8080;",
							"normalization":     "whitespace",
						},
					},
				},
				ExpectedResult: "Applies the single edit and returns a unified diff plus the recorded operation with its inverse edits",
			},
			{
				Description: "Preview a rename across two files atomically",
				Arguments: map[string]interface{}{
					"function": "apply_batch",
					"dry_run":  true,
					"files": []interface{}{
						map[string]interface{}{
							"file": "src/api.ts",
							"edits": []interface{}{
								map[string]interface{}{"targetString": "fetchUser", "replacementString": "loadUser"},
							},
						},
						map[string]interface{}{
							"file": "src/api.test.ts",
							"edits": []interface{}{
								map[string]interface{}{"targetString": "fetchUser", "replacementString": "loadUser"},
							},
						},
					},
				},
				ExpectedResult: "Returns per-file diffs without writing anything; re-run without dry_run to apply",
			},
			{
				Description: "Work out why a target is not matching",
				Arguments: map[string]interface{}{
					"function": "diagnose",
					"file":     "src/config.py",
					"target":   "DEFAULT_TIMEOUT = 30",
				},
				ExpectedResult: "Reports raw candidate counts per tolerance tier with line-numbered snippets, plus similar lines when nothing matched",
			},
			{
				Description: "Disambiguate a repeated target with surrounding context",
				Arguments: map[string]interface{}{
					"function": "apply",
					"file":     "src/handlers.go",
					"edits": []interface{}{
						map[string]interface{}{
							"targetString":      "return nil",
							"replacementString": "return errors.New(\"not implemented\")",
							"beforeContext":     "func (h *Handler) Delete(",
						},
					},
				},
				ExpectedResult: "Only the occurrence following the context anchor is edited; without the anchor the call fails with AMBIGUOUS_MATCH and candidate line numbers",
			},
		},
		CommonPatterns: []string{
			"Run apply with dry_run:true first, inspect the diff, then re-run without dry_run",
			"On AMBIGUOUS_MATCH, add beforeContext/afterContext or a lineRange instead of widening fuzzyMode",
			"On NO_MATCH, run diagnose to see which tolerance tier would find the target",
			"Use expectedHash when editing a file another process may also be writing",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "AMBIGUOUS_MATCH with several candidate lines",
				Solution: "Narrow the edit with beforeContext/afterContext, a lineRange, or a longer targetString; the engine never guesses between equally confident candidates",
			},
			{
				Problem:  "NO_MATCH for text copied from an old read of the file",
				Solution: "Re-read the file and copy the target exactly, or set normalization:\"whitespace\" (or \"structural\") to tolerate formatting drift",
			},
			{
				Problem:  "COMPUTE_BUDGET_EXCEEDED on a Levenshtein search",
				Solution: "Shorten the target below the configured character cap or narrow the search with a lineRange; budgets are tunable in limits.yaml under the state directory",
			},
			{
				Problem:  "Batch reports degraded sequential mode",
				Solution: "The transaction journal directory is unavailable (read-only state dir or TEXTEDIT_DISABLE_TXLOG=true); fix the state dir to restore all-or-nothing batches",
			},
		},
		ParameterDetails: map[string]string{
			"edits":     "Each edit uses exactly one location mechanism: target matching (default), byte-exact indexRange, or insertMode+insertLineRange. Unknown fields are rejected.",
			"diff_mode": "myers renders a plain unified diff; semantic groups cleaned-up changes into hunks with three context lines and a summary",
			"atomic":    "Default true. When false (or when the journal is unavailable) files apply in order and roll back best-effort via inverse edits on failure",
			"backup":    "Backup filenames encode the original path and a timestamp; take them verbatim from list_backups",
		},
	}
}
