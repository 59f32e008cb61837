package registry

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/UpRoot-Company/mcp-textedit/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	// toolRegistry is a map of tool names to tool implementations
	toolRegistry = make(map[string]tools.Tool)

	// disabledTools is a set of tool names to disable
	disabledTools = make(map[string]bool)

	// disabledFunctions is a set of individual tool function names to
	// disable, e.g. "restore_backup"
	disabledFunctions = make(map[string]bool)

	// logger is the shared logger instance
	logger *logrus.Logger

	// cache is the shared cache instance
	cache *sync.Map
)

// Init initialises the registry and shared resources
func Init(l *logrus.Logger) {
	logger = l
	cache = &sync.Map{}

	disabledTools = parseNameSet("DISABLED_TOOLS")
	disabledFunctions = parseNameSet("DISABLED_FUNCTIONS")

	if logger != nil && len(disabledFunctions) > 0 {
		logger.WithField("count", len(disabledFunctions)).Debug("Parsed disabled functions from environment")
	}
}

// parseNameSet parses a comma-separated environment variable into a set of
// normalised names.
func parseNameSet(envVar string) map[string]bool {
	set := make(map[string]bool)
	value := os.Getenv(envVar)
	if value == "" {
		return set
	}

	names := strings.SplitSeq(value, ",")
	for name := range names {
		name = normaliseName(name)
		if name != "" {
			set[name] = true
			if logger != nil {
				logger.WithField("name", name).WithField("source", envVar).Debug("Disabled via environment")
			}
		}
	}
	return set
}

// normaliseName lowercases and unifies underscore/hyphen spelling.
func normaliseName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
}

// Register adds a tool implementation to the registry unless it has been
// disabled via DISABLED_TOOLS
func Register(tool tools.Tool) {
	if toolRegistry == nil {
		toolRegistry = make(map[string]tools.Tool)
	}

	toolName := tool.Definition().Name
	if disabledTools[normaliseName(toolName)] {
		if logger != nil {
			logger.WithField("tool", toolName).Debug("Tool not registered (disabled via environment variable)")
		}
		return
	}

	toolRegistry[toolName] = tool
	if logger != nil {
		logger.WithField("tool", toolName).Debug("Tool successfully registered")
	}
}

// GetTool retrieves a tool by name, returns false if disabled
func GetTool(name string) (tools.Tool, bool) {
	if disabledTools[normaliseName(name)] {
		return nil, false
	}
	tool, ok := toolRegistry[name]
	return tool, ok
}

// GetEnabledTools returns all tools that are enabled for MCP server registration
func GetEnabledTools() map[string]tools.Tool {
	filteredTools := make(map[string]tools.Tool)
	for name, tool := range toolRegistry {
		if disabledTools[normaliseName(name)] {
			continue
		}
		filteredTools[name] = tool
	}
	return filteredTools
}

// IsFunctionDisabled reports whether an individual tool function (e.g. a
// text_edit operation) was disabled via DISABLED_FUNCTIONS
func IsFunctionDisabled(functionName string) bool {
	return disabledFunctions[normaliseName(functionName)]
}

// GetLogger returns the shared logger instance
func GetLogger() *logrus.Logger {
	return logger
}

// GetCache returns the shared cache instance
func GetCache() *sync.Map {
	return cache
}

// GetEnabledToolNames returns a sorted list of enabled tool names
func GetEnabledToolNames() []string {
	var names []string
	for name := range toolRegistry {
		if disabledTools[normaliseName(name)] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetToolNamesWithExtendedHelp returns a sorted list of enabled tool names that provide extended help
func GetToolNamesWithExtendedHelp() []string {
	var names []string
	for name, tool := range toolRegistry {
		if disabledTools[normaliseName(name)] {
			continue
		}
		if _, ok := tool.(tools.ExtendedHelpProvider); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
