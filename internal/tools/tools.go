// Package tools defines the contract between the registry and tool
// implementations. mcp-textedit ships a single tool (text_edit), but the
// registry stays tool-agnostic so function-level enablement and the CLI
// runner work against this interface rather than the concrete tool.
package tools

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// Tool is implemented by every registered tool.
type Tool interface {
	// Definition returns the MCP tool definition, including the full
	// parameter schema the CLI runner uses for flag coercion.
	Definition() mcp.Tool

	// Execute runs one tool call. The logger and cache are the shared
	// instances owned by the registry; tools use the cache to keep lazily
	// built state (the edit engine) across calls. Args are the raw MCP
	// arguments; tools own their validation.
	Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]interface{}) (*mcp.CallToolResult, error)
}

// ExtendedHelpProvider is an optional interface for tools that carry worked
// examples and troubleshooting guidance beyond their parameter schema.
// text_edit implements it; agents should consult it before reaching for
// looser fuzzy modes.
type ExtendedHelpProvider interface {
	ProvideExtendedInfo() *ExtendedHelp
}

// ExtendedHelp is structured usage guidance for one tool.
type ExtendedHelp struct {
	Examples         []ToolExample        `json:"examples,omitempty"`
	CommonPatterns   []string             `json:"common_patterns,omitempty"`
	Troubleshooting  []TroubleshootingTip `json:"troubleshooting,omitempty"`
	ParameterDetails map[string]string    `json:"parameter_details,omitempty"`
	WhenToUse        string               `json:"when_to_use,omitempty"`
	WhenNotToUse     string               `json:"when_not_to_use,omitempty"`
}

// ToolExample is one complete worked invocation: the arguments as an agent
// would send them, and what the call returns.
type ToolExample struct {
	Description    string                 `json:"description"`
	Arguments      map[string]interface{} `json:"arguments"`
	ExpectedResult string                 `json:"expected_result,omitempty"`
}

// TroubleshootingTip pairs a failure an agent will actually see (an error
// code, a degraded-mode message) with the concrete way out.
type TroubleshootingTip struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
}
