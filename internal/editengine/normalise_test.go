package editengine_test

import (
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/editengine"
	"github.com/stretchr/testify/assert"
)

func TestNormalizationAttempts(t *testing.T) {
	assert.Equal(t,
		[]editengine.NormalizationLevel{editengine.NormalizationExact},
		editengine.NormalizationAttempts(editengine.NormalizationExact))
	assert.Equal(t,
		[]editengine.NormalizationLevel{editengine.NormalizationExact},
		editengine.NormalizationAttempts(""))
	assert.Equal(t,
		[]editengine.NormalizationLevel{editengine.NormalizationExact, editengine.NormalizationWhitespace},
		editengine.NormalizationAttempts(editengine.NormalizationWhitespace))
	assert.Equal(t,
		[]editengine.NormalizationLevel{editengine.NormalizationExact, editengine.NormalizationWhitespace, editengine.NormalizationStructural},
		editengine.NormalizationAttempts(editengine.NormalizationStructural))
}

func TestNormalizeContent_Exact(t *testing.T) {
	s := "a \r\n b \n"
	assert.Equal(t, s, editengine.NormalizeContent(s, editengine.NormalizationExact))
}

func TestNormalizeContent_Whitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"crlf to lf", "a\r\nb", "a\nb"},
		{"trailing spaces trimmed", "a   \nb\t\n", "a\nb\n"},
		{"leading whitespace kept", "  indented\n", "  indented\n"},
		{"inner spaces kept", "a  b\n", "a  b\n"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, editengine.NormalizeContent(test.input, editengine.NormalizationWhitespace))
		})
	}
}

func TestNormalizeContent_Structural(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"indentation stripped", "  foo\n\tbar\n", "foo\nbar"},
		{"blank lines dropped", "a\n\n\nb\n", "a\nb"},
		{"whitespace runs collapsed", "a \t b", "a b"},
		{"zero width space stripped", "fo\u200bo", "foo"},
		{"zero width joiners and bom stripped", "a\u200cb\u200dc\ufeffd", "abcd"},
		{"crlf handled", "a\r\nb", "a\nb"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, editengine.NormalizeContent(test.input, editengine.NormalizationStructural))
		})
	}
}

func TestNormalizeContent_StructuralAppliesNFC(t *testing.T) {
	// "é" as a combining sequence normalises to its precomposed form.
	decomposed := "cafe\u0301"
	precomposed := "caf\u00e9"
	assert.Equal(t, precomposed, editengine.NormalizeContent(decomposed, editengine.NormalizationStructural))
}
