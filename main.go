package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/UpRoot-Company/mcp-textedit/internal/cli"
	"github.com/UpRoot-Company/mcp-textedit/internal/config"
	"github.com/UpRoot-Company/mcp-textedit/internal/registry"
	"github.com/UpRoot-Company/mcp-textedit/internal/telemetry"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
	ucli "github.com/urfave/cli/v3"

	// Import all tool packages to register them
	_ "github.com/UpRoot-Company/mcp-textedit/internal/imports"
)

// Version information (set during build)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Global resources that need cleanup
// Using atomic operations to prevent race conditions between signal handlers and cleanup
var (
	debugLogFile atomic.Pointer[os.File]
	isStdioMode  atomic.Bool
)

// parseLogLevel parses the LOG_LEVEL environment variable and returns the appropriate logrus level.
// Defaults to WarnLevel if not set or invalid.
func parseLogLevel() logrus.Level {
	logLevelStr := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	switch logLevelStr {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.WarnLevel
	}
}

func main() {
	// Create context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create a logger with default configuration
	// Initially discard output - will be reconfigured per command based on transport mode
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(parseLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	defer performCleanup()

	app := &ucli.Command{
		Name:    "mcp-textedit",
		Usage:   "MCP server for fuzzy-match text editing with transactional batches and undo",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "transport",
				Aliases: []string{"t"},
				Value:   "stdio",
				Usage:   "Transport type (stdio or http)",
			},
			&ucli.StringFlag{
				Name:  "port",
				Value: "18080",
				Usage: "Port to use for the HTTP transport",
			},
			&ucli.StringFlag{
				Name:    "workspace",
				Usage:   "Workspace root directory (default: current directory)",
				Sources: ucli.EnvVars("TEXTEDIT_WORKSPACE_ROOT"),
			},
			&ucli.StringFlag{
				Name:    "state-dir",
				Usage:   "State directory for backups, the transaction journal, logs, and limits.yaml (default: ~/.mcp-textedit)",
				Sources: ucli.EnvVars("TEXTEDIT_STATE_DIR"),
			},
			&ucli.StringFlag{
				Name:  "log-file",
				Usage: "Log file path (default: <state-dir>/logs/mcp-textedit.log)",
			},
			&ucli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					fmt.Printf("mcp-textedit version %s\n", Version)
					fmt.Printf("Commit: %s\n", Commit)
					fmt.Printf("Built: %s\n", BuildDate)
					return nil
				},
			},
			cliCommand(logger),
		},
		Action: func(cliCtx context.Context, cmd *ucli.Command) error {
			return runServer(cliCtx, cmd, logger)
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		// CRITICAL: In stdio mode we must NOT log to stdout or stderr as it
		// breaks the MCP protocol, even for initialisation errors.
		if !isStdioMode.Load() {
			logger.SetOutput(os.Stderr)
			logger.Fatalf("Error: %v", err)
		}
		os.Exit(1)
	}
}

// runServer configures logging, applies flag overrides, and serves MCP over
// the selected transport.
func runServer(ctx context.Context, cmd *ucli.Command, logger *logrus.Logger) error {
	transport := cmd.String("transport")

	// Track stdio mode for error handling (atomic to prevent races with signal handlers)
	isStdioMode.Store(transport == "stdio")

	applyOverrides(cmd)
	configureLogging(cmd, logger)

	// Initialise the registry after env overrides so DISABLED_FUNCTIONS is current
	registry.Init(logger)

	metricsShutdown, err := telemetry.InitMetrics(logger)
	if err != nil {
		logger.WithError(err).Warn("Metrics initialisation failed; continuing without metrics")
	}
	defer func() {
		if err := metricsShutdown(); err != nil {
			logger.WithError(err).Debug("Metrics shutdown failed")
		}
	}()

	if transport != "stdio" {
		logger.Infof("Starting mcp-textedit version %s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}

	logger.Debug("Creating MCP server")
	mcpSrv := mcpserver.NewMCPServer("mcp-textedit", Version)

	enabledTools := registry.GetEnabledTools()
	logger.WithField("tool_count", len(enabledTools)).Debug("MCP server created, registering tools")

	for toolName := range enabledTools {
		// Capture the name to avoid closure race condition
		name := toolName

		if transport != "stdio" {
			logger.Infof("Registering tool: %s", name)
		}

		mcpSrv.AddTool(enabledTools[name].Definition(), func(toolCtx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			// Get fresh reference from registry to ensure consistency
			currentTool, ok := registry.GetTool(name)
			if !ok {
				return nil, fmt.Errorf("tool not found: %s", name)
			}

			args, ok := request.Params.Arguments.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("invalid arguments type: expected map[string]interface{}, got %T", request.Params.Arguments)
			}

			result, err := currentTool.Execute(toolCtx, registry.GetLogger(), registry.GetCache(), args)
			if err != nil {
				if transport != "stdio" {
					logger.WithError(err).Errorf("Tool execution failed: %s", name)
				}
				return nil, fmt.Errorf("tool execution failed: %w", err)
			}
			return result, nil
		})
	}

	logger.WithField("transport", transport).Debug("Starting server")
	switch transport {
	case "stdio":
		return mcpserver.ServeStdio(mcpSrv)
	case "http":
		port := cmd.String("port")
		logger.WithField("port", port).Info("Starting Streamable HTTP server")
		httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
			mcpserver.WithHeartbeatInterval(30*time.Second),
			mcpserver.WithLogger(&logrusAdapter{logger: logger}),
		)
		return httpServer.Start(":" + port)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or http)", transport)
	}
}

// cliCommand runs tools in-process without an MCP server, for scripting and
// for debugging failed matches with the diagnose function.
func cliCommand(logger *logrus.Logger) *ucli.Command {
	return &ucli.Command{
		Name:  "cli",
		Usage: "Run tools directly without an MCP server",
		Flags: []ucli.Flag{
			&ucli.BoolFlag{
				Name:  "json",
				Usage: "Render results as JSON",
			},
			&ucli.StringFlag{
				Name:    "workspace",
				Usage:   "Workspace root directory (default: current directory)",
				Sources: ucli.EnvVars("TEXTEDIT_WORKSPACE_ROOT"),
			},
			&ucli.StringFlag{
				Name:    "state-dir",
				Usage:   "State directory override",
				Sources: ucli.EnvVars("TEXTEDIT_STATE_DIR"),
			},
			&ucli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging to stderr",
			},
		},
		Commands: []*ucli.Command{
			{
				Name:  "list",
				Usage: "List enabled tools",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					runner, err := newCLIRunner(cmd, logger)
					if err != nil {
						return err
					}
					return runner.ListTools()
				},
			},
			{
				Name:      "help",
				Usage:     "Show a tool's parameters",
				ArgsUsage: "<tool>",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("usage: mcp-textedit cli help <tool>")
					}
					runner, err := newCLIRunner(cmd, logger)
					if err != nil {
						return err
					}
					return runner.HelpTool(cmd.Args().First())
				},
			},
			{
				Name:      "run",
				Usage:     "Run a tool with --key=value flags or a JSON object",
				ArgsUsage: "<tool> [args...]",
				Action: func(ctx context.Context, cmd *ucli.Command) error {
					if cmd.Args().Len() < 1 {
						return fmt.Errorf("usage: mcp-textedit cli run <tool> [args...]")
					}
					runner, err := newCLIRunner(cmd, logger)
					if err != nil {
						return err
					}
					return runner.RunTool(ctx, cmd.Args().First(), cmd.Args().Tail())
				},
			},
		},
	}
}

// newCLIRunner wires the registry and logging for in-process tool runs.
// CLI mode logs to stderr, leaving stdout for results.
func newCLIRunner(cmd *ucli.Command, logger *logrus.Logger) (*cli.Runner, error) {
	applyOverrides(cmd)

	logger.SetOutput(os.Stderr)
	if cmd.Bool("debug") {
		logger.SetLevel(logrus.DebugLevel)
	}

	registry.Init(logger)

	output := cli.OutputText
	if cmd.Bool("json") {
		output = cli.OutputJSON
	}
	return cli.NewRunner(logger, registry.GetCache(), output), nil
}

// applyOverrides pushes flag values into the environment variables the
// lazily assembled engine reads.
func applyOverrides(cmd *ucli.Command) {
	if workspaceRoot := cmd.String("workspace"); workspaceRoot != "" {
		_ = os.Setenv("TEXTEDIT_WORKSPACE_ROOT", workspaceRoot)
	}
	if stateDir := cmd.String("state-dir"); stateDir != "" {
		_ = os.Setenv("TEXTEDIT_STATE_DIR", stateDir)
	}
}

// configureLogging sends all server logging to a file. Stdio transports own
// stdout and stderr, so file logging is mandatory there; failing that, logs
// are discarded rather than corrupting the protocol.
func configureLogging(cmd *ucli.Command, logger *logrus.Logger) {
	logLevel := parseLogLevel()
	if cmd.Bool("debug") {
		logLevel = logrus.DebugLevel
	}

	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = filepath.Join(config.LogsDir(), "mcp-textedit.log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err == nil {
		if file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			debugLogFile.Store(file)
			logger.SetOutput(file)
			logrus.SetOutput(file)
			logger.SetLevel(logLevel)
			logrus.SetLevel(logLevel)
			logger.WithField("level", logLevel.String()).Debug("Logging configured")
			return
		}
	}

	// Cannot open the log file: stdio mode discards, HTTP mode falls back
	// to stderr.
	if isStdioMode.Load() {
		logger.SetOutput(io.Discard)
		logrus.SetOutput(io.Discard)
	} else {
		logger.SetOutput(os.Stderr)
		logrus.SetOutput(os.Stderr)
	}
	logger.SetLevel(logLevel)
	logrus.SetLevel(logLevel)
}

// performCleanup handles cleanup of resources on shutdown
func performCleanup() {
	// Close the log file if it was opened (atomic load to prevent races).
	// Silently: in stdio mode no output is allowed, and elsewhere the logger
	// may be writing to this very file.
	if file := debugLogFile.Load(); file != nil {
		_ = file.Close()
	}
}

// logrusAdapter adapts logrus.Logger to the mcp-go util.Logger interface
type logrusAdapter struct {
	logger *logrus.Logger
}

func (l *logrusAdapter) Debugf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

func (l *logrusAdapter) Infof(format string, args ...any) {
	l.logger.Infof(format, args...)
}

func (l *logrusAdapter) Warnf(format string, args ...any) {
	l.logger.Warnf(format, args...)
}

func (l *logrusAdapter) Errorf(format string, args ...any) {
	l.logger.Errorf(format, args...)
}
