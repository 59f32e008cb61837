// Package cli provides a direct command-line interface to mcp-textedit tools,
// bypassing the MCP server entirely. Tools are invoked in-process via the
// existing registry, so no server or network round-trip is needed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/UpRoot-Company/mcp-textedit/internal/registry"
	"github.com/UpRoot-Company/mcp-textedit/internal/tools"
	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Runner executes CLI commands against the tool registry.
type Runner struct {
	logger *logrus.Logger
	cache  *sync.Map
	output OutputFormat
}

// NewRunner creates a Runner that uses the given logger, cache, and output format.
func NewRunner(logger *logrus.Logger, cache *sync.Map, output OutputFormat) *Runner {
	return &Runner{logger: logger, cache: cache, output: output}
}

// ListTools prints all enabled tools. Each tool here is a multi-function
// surface, so the listing shows the functions beneath the tool name rather
// than a bare one-line-per-tool table.
func (r *Runner) ListTools() error {
	enabled := registry.GetEnabledTools()

	defs := make([]mcp.Tool, 0, len(enabled))
	for _, t := range enabled {
		defs = append(defs, t.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	if r.output == OutputJSON {
		type jsonEntry struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Functions   []string `json:"functions,omitempty"`
		}
		out := make([]jsonEntry, len(defs))
		for i, def := range defs {
			out[i] = jsonEntry{
				Name:        def.Name,
				Description: firstLine(def.Description),
				Functions:   functionNames(def),
			}
		}
		return writeJSON(os.Stdout, out)
	}

	return renderToolList(os.Stdout, defs)
}

// renderToolList writes the text-mode tool listing: name, summary, and the
// tool's function enum when it has one.
func renderToolList(w io.Writer, defs []mcp.Tool) error {
	for i, def := range defs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", def.Name, firstLine(def.Description))
		for _, fn := range functionNames(def) {
			fmt.Fprintf(w, "  %s %s\n", def.Name, fn)
		}
	}
	return nil
}

// HelpTool prints the schema, function list, and extended usage guidance
// for a single tool.
func (r *Runner) HelpTool(name string) error {
	resolved, found := resolveTool(name)
	if !found {
		return fmt.Errorf("unknown tool: %s", name)
	}
	tool, ok := registry.GetTool(resolved)
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}

	def := tool.Definition()
	var extended *tools.ExtendedHelp
	if provider, ok := tool.(tools.ExtendedHelpProvider); ok {
		extended = provider.ProvideExtendedInfo()
	}

	if r.output == OutputJSON {
		if extended != nil {
			return writeJSON(os.Stdout, struct {
				Definition mcp.Tool            `json:"definition"`
				Extended   *tools.ExtendedHelp `json:"extended"`
			}{def, extended})
		}
		return writeJSON(os.Stdout, def)
	}

	return renderToolHelp(os.Stdout, def, extended)
}

// renderToolHelp writes the text-mode help: description, functions,
// parameter table, then the extended guidance (examples, patterns,
// troubleshooting) when the tool provides it.
func renderToolHelp(w io.Writer, def mcp.Tool, extended *tools.ExtendedHelp) error {
	fmt.Fprintf(w, "Tool: %s\n\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(w, "%s\n\n", def.Description)
	}

	if fns := functionNames(def); len(fns) > 0 {
		fmt.Fprintf(w, "Functions: %s\n\n", strings.Join(fns, ", "))
	}

	if err := renderParameters(w, def); err != nil {
		return err
	}
	if extended != nil {
		renderExtendedHelp(w, extended)
	}
	return nil
}

// renderParameters writes the flag-style parameter table.
func renderParameters(w io.Writer, def mcp.Tool) error {
	props := def.InputSchema.Properties
	required := toSet(def.InputSchema.Required)

	if len(props) == 0 {
		fmt.Fprintln(w, "No parameters.")
		return nil
	}

	fmt.Fprintln(w, "Parameters:")

	// Sort parameter names for stable output
	names := make([]string, 0, len(props))
	for k := range props {
		names = append(names, k)
	}
	slices.Sort(names)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, pName := range names {
		pMap, ok := props[pName].(map[string]any)
		if !ok {
			continue
		}

		pType, _ := pMap["type"].(string)
		pDesc, _ := pMap["description"].(string)

		reqMark := ""
		if required[pName] {
			reqMark = " (required)"
		}

		fmt.Fprintf(tw, "  --%s\t%s\t%s%s%s\n", toFlagName(pName), pType, firstLine(pDesc), reqMark, formatEnum(pMap))
	}
	return tw.Flush()
}

// renderExtendedHelp writes the worked examples and troubleshooting
// sections. Example arguments are rendered as the JSON object form `cli run`
// accepts, so they can be copied straight back into a run invocation.
func renderExtendedHelp(w io.Writer, help *tools.ExtendedHelp) {
	if help.WhenToUse != "" {
		fmt.Fprintf(w, "\nWhen to use: %s\n", help.WhenToUse)
	}
	if help.WhenNotToUse != "" {
		fmt.Fprintf(w, "When not to use: %s\n", help.WhenNotToUse)
	}

	if len(help.Examples) > 0 {
		fmt.Fprintln(w, "\nExamples:")
		for _, example := range help.Examples {
			fmt.Fprintf(w, "  # %s\n", example.Description)
			if args, err := json.Marshal(example.Arguments); err == nil {
				fmt.Fprintf(w, "  '%s'\n", string(args))
			}
			if example.ExpectedResult != "" {
				fmt.Fprintf(w, "  => %s\n", example.ExpectedResult)
			}
		}
	}

	if len(help.CommonPatterns) > 0 {
		fmt.Fprintln(w, "\nCommon patterns:")
		for _, pattern := range help.CommonPatterns {
			fmt.Fprintf(w, "  - %s\n", pattern)
		}
	}

	if len(help.Troubleshooting) > 0 {
		fmt.Fprintln(w, "\nTroubleshooting:")
		for _, tip := range help.Troubleshooting {
			fmt.Fprintf(w, "  %s\n    %s\n", tip.Problem, tip.Solution)
		}
	}
}

// functionNames extracts the values of a tool's "function" enum parameter,
// the dispatch convention every tool in this server follows.
func functionNames(def mcp.Tool) []string {
	pMap, ok := def.InputSchema.Properties["function"].(map[string]any)
	if !ok {
		return nil
	}
	return enumValues(pMap)
}

// enumValues reads a property's enum list. In-process definitions hold
// []string; definitions that went through JSON hold []any.
func enumValues(pMap map[string]any) []string {
	switch arr := pMap["enum"].(type) {
	case []string:
		return arr
	case []any:
		vals := make([]string, 0, len(arr))
		for _, v := range arr {
			vals = append(vals, fmt.Sprint(v))
		}
		return vals
	default:
		return nil
	}
}

// RunTool executes a tool by name with the given arguments.
// args can be:
//   - A single JSON string: '{"key": "value"}'
//   - Flag-style arguments: --key=value --flag
//   - Mixed: --key=value '{"other": "json"}'  (flags take precedence)
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	resolved, found := resolveTool(name)
	if !found {
		return fmt.Errorf("unknown tool: %s (run 'mcp-textedit cli list' to see available tools)", name)
	}
	tool, ok := registry.GetTool(resolved)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'mcp-textedit cli list' to see available tools)", name)
	}

	def := tool.Definition()

	params, err := parseArgs(args, def)
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}

	return r.renderResult(result)
}

// parseArgs converts CLI arguments into a map[string]any suitable for tool.Execute().
// Supports JSON input, --key=value flags, and --flag (boolean true).
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)

	// Build schema lookups for type coercion and flag→param name resolution
	schema := buildSchemaInfo(def)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// JSON object argument
		if strings.HasPrefix(arg, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			// JSON values merge in (earlier flags take precedence)
			for k, v := range obj {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			continue
		}

		// Flag-style argument
		if strings.HasPrefix(arg, "--") {
			key, val, err := parseFlag(arg, args, &i, schema)
			if err != nil {
				return nil, err
			}
			params[key] = val
			continue
		}

		return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
	}

	return params, nil
}

// schemaInfo holds resolved schema information for argument parsing.
type schemaInfo struct {
	// typeMap maps actual parameter names to their JSON Schema types
	typeMap map[string]string
	// flagToParam maps kebab-case flag names to actual parameter names
	flagToParam map[string]string
}

// parseFlag parses a single --key=value or --key value or --flag (bool true).
func parseFlag(arg string, args []string, idx *int, schema schemaInfo) (string, any, error) {
	stripped := strings.TrimPrefix(arg, "--")

	// --key=value
	if flagName, rawVal, found := strings.Cut(stripped, "="); found {
		paramName := schema.resolveParam(flagName)
		return paramName, coerceValue(rawVal, schema.typeMap[paramName]), nil
	}

	// --flag (boolean shorthand) or --key value
	flagName := stripped
	paramName := schema.resolveParam(flagName)

	// If the schema says this is a boolean, treat bare --flag as true
	if schema.typeMap[paramName] == "boolean" {
		return paramName, true, nil
	}

	// Otherwise consume the next arg as the value
	*idx++
	if *idx >= len(args) {
		return "", nil, fmt.Errorf("flag --%s requires a value", flagName)
	}
	return paramName, coerceValue(args[*idx], schema.typeMap[paramName]), nil
}

// resolveParam converts a kebab-case flag name to the actual parameter name
// by checking against known schema property names. Falls back to snake_case.
func (s schemaInfo) resolveParam(flagName string) string {
	if actual, ok := s.flagToParam[flagName]; ok {
		return actual
	}
	// Fallback: kebab to snake_case
	return strings.ReplaceAll(flagName, "-", "_")
}

// buildSchemaInfo extracts parameter types and builds a flag→param name mapping
// from the tool definition. Handles both snake_case and camelCase parameter names.
func buildSchemaInfo(def mcp.Tool) schemaInfo {
	info := schemaInfo{
		typeMap:     make(map[string]string, len(def.InputSchema.Properties)),
		flagToParam: make(map[string]string, len(def.InputSchema.Properties)),
	}
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			if t, ok := pm["type"].(string); ok {
				info.typeMap[name] = t
			}
		}
		// Map the kebab-case version of this param name back to the original
		kebab := toFlagName(name)
		info.flagToParam[kebab] = name
	}
	return info
}

// coerceValue converts a string value to the appropriate Go type based on JSON Schema type.
func coerceValue(raw, schemaType string) any {
	switch schemaType {
	case "number", "integer":
		// Try integer first
		var i int64
		if _, err := fmt.Sscanf(raw, "%d", &i); err == nil && fmt.Sprintf("%d", i) == raw {
			return i
		}
		// Try float
		var f float64
		if _, err := fmt.Sscanf(raw, "%g", &f); err == nil && fmt.Sprintf("%g", f) == raw {
			return f
		}
		return raw
	case "boolean":
		switch strings.ToLower(raw) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
		return raw
	case "array":
		// Try JSON array
		var arr []any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			return arr
		}
		// Comma-separated fallback
		return strings.Split(raw, ",")
	case "object":
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			return obj
		}
		return raw
	default:
		return raw
	}
}

// renderResult formats a CallToolResult for terminal output.
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}

	if r.output == OutputJSON {
		return writeJSON(os.Stdout, result)
	}

	// Text mode: extract text content, colourising any embedded diff lines
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			fmt.Fprintln(os.Stdout, colouriseDiff(c.Text))
		default:
			// Non-text content: render as JSON
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stdout, "%+v\n", c)
			} else {
				fmt.Fprintln(os.Stdout, string(data))
			}
		}
	}

	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}
	return nil
}

// resolveTool looks up a tool by name, trying the name as-is first,
// then with hyphens converted to underscores (since CLI users naturally
// type kebab-case but tools are registered with snake_case names).
func resolveTool(name string) (string, bool) {
	if _, ok := registry.GetTool(name); ok {
		return name, true
	}
	// Try kebab → snake_case
	snakeName := strings.ReplaceAll(name, "-", "_")
	if snakeName != name {
		if _, ok := registry.GetTool(snakeName); ok {
			return snakeName, true
		}
	}
	return name, false
}

// colouriseDiff renders diff-marked lines in colour: additions green,
// removals red, file headers bold. Non-diff text passes through untouched,
// and colour is suppressed automatically when stdout is not a terminal.
func colouriseDiff(text string) string {
	if !strings.ContainsAny(text, "+-") {
		return text
	}
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.Bold)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ "):
			lines[i] = header.Sprint(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = added.Sprint(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removed.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}

// --- helpers ---

func writeJSON(w *os.File, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	if before, _, found := strings.Cut(s, "\n"); found {
		return before
	}
	return s
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

// toFlagName converts camelCase or snake_case to kebab-case for CLI flags.
func toFlagName(s string) string {
	s = strings.ReplaceAll(s, "_", "-")
	var out strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out.WriteByte('-')
			}
			out.WriteRune(r + 32) // toLower
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func formatEnum(pMap map[string]any) string {
	vals := enumValues(pMap)
	if len(vals) == 0 {
		return ""
	}
	return " [" + strings.Join(vals, "|") + "]"
}
