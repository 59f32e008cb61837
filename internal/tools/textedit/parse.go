package textedit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
)

// requireString extracts a required non-empty string argument.
func requireString(args map[string]interface{}, name string) (string, error) {
	value, ok := args[name].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("missing required parameter: %s", name)
	}
	return value, nil
}

// parseOptions extracts the shared apply options.
func parseOptions(args map[string]interface{}) (editengine.Options, error) {
	opts := editengine.Options{}
	if dryRun, ok := args["dry_run"].(bool); ok {
		opts.DryRun = dryRun
	}
	if description, ok := args["description"].(string); ok {
		opts.Description = description
	}
	if mode, ok := args["diff_mode"].(string); ok && mode != "" {
		switch editengine.DiffMode(mode) {
		case editengine.DiffMyers, editengine.DiffSemantic:
			opts.DiffMode = editengine.DiffMode(mode)
		default:
			return opts, fmt.Errorf("invalid diff_mode %q: must be myers or semantic", mode)
		}
	}
	return opts, nil
}

// parseEdits decodes the edits argument strictly: unknown fields are
// rejected so a typo fails loudly instead of silently degrading an edit to
// an exact match.
func parseEdits(raw interface{}) ([]editengine.Edit, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing required parameter: edits")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid edits parameter: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var edits []editengine.Edit
	if err := decoder.Decode(&edits); err != nil {
		return nil, fmt.Errorf("invalid edits parameter: %w", err)
	}
	if len(edits) == 0 {
		return nil, fmt.Errorf("edits must contain at least one edit")
	}
	for i := range edits {
		if err := validateEdit(edits[i]); err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
	}
	return edits, nil
}

// parseFileEdits decodes the apply_batch files argument.
func parseFileEdits(raw interface{}) ([]editengine.FileEdits, error) {
	if raw == nil {
		return nil, fmt.Errorf("missing required parameter: files")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid files parameter: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var files []editengine.FileEdits
	if err := decoder.Decode(&files); err != nil {
		return nil, fmt.Errorf("invalid files parameter: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("files must contain at least one entry")
	}
	for i, fe := range files {
		if fe.FilePath == "" {
			return nil, fmt.Errorf("files[%d]: missing file path", i)
		}
		if len(fe.Edits) == 0 {
			return nil, fmt.Errorf("files[%d] (%s): edits must contain at least one edit", i, fe.FilePath)
		}
		for j := range fe.Edits {
			if err := validateEdit(fe.Edits[j]); err != nil {
				return nil, fmt.Errorf("files[%d] (%s) edit %d: %w", i, fe.FilePath, j, err)
			}
		}
	}
	return files, nil
}

// validateEdit enforces the edit shape: exactly one location mechanism per
// edit, and only fields that mechanism understands.
func validateEdit(edit editengine.Edit) error {
	if edit.IndexRange != nil {
		if edit.InsertMode != editengine.InsertNone {
			return fmt.Errorf("indexRange and insertMode are mutually exclusive")
		}
		if edit.FuzzyMode != "" && edit.FuzzyMode != editengine.FuzzyNone {
			return fmt.Errorf("indexRange bypasses matching; fuzzyMode is not applicable")
		}
		if edit.Normalization != "" && edit.Normalization != editengine.NormalizationExact {
			return fmt.Errorf("indexRange bypasses matching; normalization is not applicable")
		}
		if edit.IndexRange.Start < 0 || edit.IndexRange.End < edit.IndexRange.Start {
			return fmt.Errorf("indexRange must satisfy 0 <= start <= end")
		}
	}

	switch edit.InsertMode {
	case editengine.InsertNone:
		if edit.InsertLineRange != nil {
			return fmt.Errorf("insertLineRange requires insertMode")
		}
		if edit.IndexRange == nil && edit.TargetString == "" {
			return fmt.Errorf("targetString is required unless indexRange or insertMode is used")
		}
	case editengine.InsertBefore, editengine.InsertAfter:
		if edit.InsertLineRange == nil {
			return fmt.Errorf("insertMode requires insertLineRange")
		}
		if edit.TargetString != "" {
			return fmt.Errorf("insertions do not match a target; targetString is not applicable")
		}
		if edit.FuzzyMode != "" && edit.FuzzyMode != editengine.FuzzyNone {
			return fmt.Errorf("insertions do not match a target; fuzzyMode is not applicable")
		}
		if edit.InsertLineRange.Start < 1 || edit.InsertLineRange.End < edit.InsertLineRange.Start {
			return fmt.Errorf("insertLineRange must satisfy 1 <= start <= end")
		}
	default:
		return fmt.Errorf("invalid insertMode %q: must be before or after", edit.InsertMode)
	}

	switch edit.Normalization {
	case "", editengine.NormalizationExact, editengine.NormalizationWhitespace, editengine.NormalizationStructural:
	default:
		return fmt.Errorf("invalid normalization %q", edit.Normalization)
	}
	switch edit.FuzzyMode {
	case "", editengine.FuzzyNone, editengine.FuzzyWhitespace, editengine.FuzzyLevenshtein:
	default:
		return fmt.Errorf("invalid fuzzyMode %q", edit.FuzzyMode)
	}

	if edit.LineRange != nil && (edit.LineRange.Start < 1 || edit.LineRange.End < edit.LineRange.Start) {
		return fmt.Errorf("lineRange must satisfy 1 <= start <= end")
	}
	if edit.AnchorSearchRange < 0 {
		return fmt.Errorf("anchorSearchRange must not be negative")
	}
	if edit.ExpectedHash != nil {
		switch edit.ExpectedHash.Algorithm {
		case "xxhash64", "sha256":
		default:
			return fmt.Errorf("invalid expectedHash algorithm %q: must be xxhash64 or sha256", edit.ExpectedHash.Algorithm)
		}
		if edit.ExpectedHash.Value == "" {
			return fmt.Errorf("expectedHash value must not be empty")
		}
	}
	return nil
}
