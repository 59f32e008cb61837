package imports

import (
	// Register tools via their package init functions
	_ "github.com/UpRoot-Company/mcp-textedit/internal/tools/textedit"
)
