package textedit

import (
	"testing"

	"github.com/UpRoot-Company/mcp-textedit/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideExtendedInfo_PopulatesEverySection(t *testing.T) {
	var provider tools.ExtendedHelpProvider = &TextEditTool{}

	help := provider.ProvideExtendedInfo()
	require.NotNil(t, help)

	assert.NotEmpty(t, help.WhenToUse)
	assert.NotEmpty(t, help.WhenNotToUse)
	assert.NotEmpty(t, help.CommonPatterns)
	assert.NotEmpty(t, help.ParameterDetails)

	require.NotEmpty(t, help.Examples)
	for _, example := range help.Examples {
		assert.NotEmpty(t, example.Description)
		// Every example is a complete invocation, so it names its function.
		assert.Contains(t, example.Arguments, "function")
	}

	require.NotEmpty(t, help.Troubleshooting)
	for _, tip := range help.Troubleshooting {
		assert.NotEmpty(t, tip.Problem)
		assert.NotEmpty(t, tip.Solution)
	}
}
