package textedit

import (
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEdits_Valid(t *testing.T) {
	edits, err := parseEdits([]interface{}{
		map[string]interface{}{
			"targetString":      "const x = 1;",
			"replacementString": "const x = 2;",
			"normalization":     "whitespace",
		},
	})
	require.NoError(t, err)
	require.Len(t, edits, 1)
	assert.Equal(t, "const x = 1;", edits[0].TargetString)
	assert.Equal(t, editengine.NormalizationWhitespace, edits[0].Normalization)
}

func TestParseEdits_RejectsUnknownFields(t *testing.T) {
	// A typo must fail loudly, not silently degrade to an exact match.
	_, err := parseEdits([]interface{}{
		map[string]interface{}{
			"targetString":      "x",
			"replacementString": "y",
			"normalisation":     "whitespace",
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid edits parameter")
}

func TestParseEdits_MissingOrEmpty(t *testing.T) {
	_, err := parseEdits(nil)
	assert.Error(t, err)

	_, err = parseEdits([]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one edit")
}

func TestParseEdits_RequiresTargetOrLocation(t *testing.T) {
	_, err := parseEdits([]interface{}{
		map[string]interface{}{"replacementString": "y"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "targetString is required")
}

func TestValidateEdit_IndexRangeExclusions(t *testing.T) {
	base := editengine.Edit{
		TargetString:      "abc",
		ReplacementString: "xyz",
		IndexRange:        &editengine.IndexRange{Start: 0, End: 3},
	}
	assert.NoError(t, validateEdit(base))

	withInsert := base
	withInsert.InsertMode = editengine.InsertBefore
	assert.Error(t, validateEdit(withInsert))

	withFuzzy := base
	withFuzzy.FuzzyMode = editengine.FuzzyLevenshtein
	assert.Error(t, validateEdit(withFuzzy))

	withNorm := base
	withNorm.Normalization = editengine.NormalizationWhitespace
	assert.Error(t, validateEdit(withNorm))

	negative := base
	negative.IndexRange = &editengine.IndexRange{Start: -1, End: 3}
	assert.Error(t, validateEdit(negative))

	inverted := base
	inverted.IndexRange = &editengine.IndexRange{Start: 5, End: 3}
	assert.Error(t, validateEdit(inverted))
}

func TestValidateEdit_InsertModeRules(t *testing.T) {
	valid := editengine.Edit{
		ReplacementString: "X\n",
		InsertMode:        editengine.InsertAfter,
		InsertLineRange:   &editengine.LineRange{Start: 2, End: 2},
	}
	assert.NoError(t, validateEdit(valid))

	missingRange := valid
	missingRange.InsertLineRange = nil
	assert.Error(t, validateEdit(missingRange))

	withTarget := valid
	withTarget.TargetString = "abc"
	assert.Error(t, validateEdit(withTarget))

	badMode := valid
	badMode.InsertMode = "sideways"
	assert.Error(t, validateEdit(badMode))

	zeroLine := valid
	zeroLine.InsertLineRange = &editengine.LineRange{Start: 0, End: 2}
	assert.Error(t, validateEdit(zeroLine))

	// insertLineRange without insertMode is also rejected.
	orphanRange := editengine.Edit{
		TargetString:    "abc",
		InsertLineRange: &editengine.LineRange{Start: 1, End: 1},
	}
	assert.Error(t, validateEdit(orphanRange))
}

func TestValidateEdit_EnumAndRangeChecks(t *testing.T) {
	badNorm := editengine.Edit{TargetString: "x", Normalization: "aggressive"}
	assert.Error(t, validateEdit(badNorm))

	badFuzzy := editengine.Edit{TargetString: "x", FuzzyMode: "soundex"}
	assert.Error(t, validateEdit(badFuzzy))

	badLineRange := editengine.Edit{TargetString: "x", LineRange: &editengine.LineRange{Start: 3, End: 1}}
	assert.Error(t, validateEdit(badLineRange))

	badAnchor := editengine.Edit{TargetString: "x", AnchorSearchRange: -1}
	assert.Error(t, validateEdit(badAnchor))
}

func TestValidateEdit_ExpectedHash(t *testing.T) {
	good := editengine.Edit{
		TargetString: "x",
		ExpectedHash: &editengine.ExpectedHash{Algorithm: "sha256", Value: "abc"},
	}
	assert.NoError(t, validateEdit(good))

	badAlgo := good
	badAlgo.ExpectedHash = &editengine.ExpectedHash{Algorithm: "md5", Value: "abc"}
	assert.Error(t, validateEdit(badAlgo))

	emptyValue := good
	emptyValue.ExpectedHash = &editengine.ExpectedHash{Algorithm: "sha256", Value: ""}
	assert.Error(t, validateEdit(emptyValue))
}

func TestParseFileEdits(t *testing.T) {
	files, err := parseFileEdits([]interface{}{
		map[string]interface{}{
			"file": "src/a.ts",
			"edits": []interface{}{
				map[string]interface{}{"targetString": "a", "replacementString": "b"},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/a.ts", files[0].FilePath)
	require.Len(t, files[0].Edits, 1)

	_, err = parseFileEdits(nil)
	assert.Error(t, err)

	_, err = parseFileEdits([]interface{}{
		map[string]interface{}{"file": "", "edits": []interface{}{}},
	})
	assert.Error(t, err)

	// An invalid edit is reported with its file for context.
	_, err = parseFileEdits([]interface{}{
		map[string]interface{}{
			"file": "src/a.ts",
			"edits": []interface{}{
				map[string]interface{}{"replacementString": "b"},
			},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "src/a.ts")
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions(map[string]interface{}{
		"dry_run":     true,
		"description": "rename pass",
		"diff_mode":   "semantic",
	})
	require.NoError(t, err)
	assert.True(t, opts.DryRun)
	assert.Equal(t, "rename pass", opts.Description)
	assert.Equal(t, editengine.DiffSemantic, opts.DiffMode)

	_, err = parseOptions(map[string]interface{}{"diff_mode": "patience"})
	assert.Error(t, err)

	opts, err = parseOptions(map[string]interface{}{})
	require.NoError(t, err)
	assert.False(t, opts.DryRun)
	assert.Equal(t, editengine.DiffMode(""), opts.DiffMode)
}

func TestRequireString(t *testing.T) {
	v, err := requireString(map[string]interface{}{"file": "a.txt"}, "file")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", v)

	_, err = requireString(map[string]interface{}{}, "file")
	assert.Error(t, err)

	_, err = requireString(map[string]interface{}{"file": ""}, "file")
	assert.Error(t, err)

	_, err = requireString(map[string]interface{}{"file": 42}, "file")
	assert.Error(t, err)
}
