package debug

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// saveAndRestoreState saves the debug package state and returns a cleanup function
func saveAndRestoreState() func() {
	originalDebug := EnableDebug
	originalMode := MCPMode
	originalOutput := debugOutput
	originalFile := debugFile
	return func() {
		EnableDebug = originalDebug
		MCPMode = originalMode
		debugOutput = originalOutput
		debugFile = originalFile
	}
}

func TestSetMCPMode(t *testing.T) {
	defer saveAndRestoreState()()

	SetMCPMode(true)
	assert.True(t, MCPMode)

	SetMCPMode(false)
	assert.False(t, MCPMode)
}

func TestIsDebugEnabled(t *testing.T) {
	defer saveAndRestoreState()()
	t.Setenv("DEBUG", "")

	EnableDebug = "false"
	MCPMode = false
	assert.False(t, IsDebugEnabled())

	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	// MCP mode suppresses output even with debug enabled: stdio carries
	// the protocol stream.
	MCPMode = true
	assert.False(t, IsDebugEnabled())

	EnableDebug = "invalid"
	MCPMode = false
	assert.False(t, IsDebugEnabled())
}

func TestIsDebugEnabledEnvOverride(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "false"
	MCPMode = false
	t.Setenv("DEBUG", "1")
	assert.True(t, IsDebugEnabled())
}

func TestComponentLoggers(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	MCPMode = false
	var buf bytes.Buffer
	SetDebugOutput(&buf)

	LogScan("scanned %s\n", "Player.cs")
	LogIndex("built %d symbols\n", 4)
	LogSafety("risk %s\n", "high")
	LogRefactor("applied %d files\n", 2)
	LogMCP("tool %s\n", "scan")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG:SCAN] scanned Player.cs")
	assert.Contains(t, out, "[DEBUG:INDEX] built 4 symbols")
	assert.Contains(t, out, "[DEBUG:SAFETY] risk high")
	assert.Contains(t, out, "[DEBUG:REFACTOR] applied 2 files")
	assert.Contains(t, out, "[DEBUG:MCP] tool scan")
}

func TestPrintfSuppressedWhenDisabled(t *testing.T) {
	defer saveAndRestoreState()()
	t.Setenv("DEBUG", "")

	EnableDebug = "false"
	MCPMode = false
	var buf bytes.Buffer
	SetDebugOutput(&buf)

	Printf("should not appear\n")
	assert.Empty(t, buf.String())
}

func TestInitDebugLogFile(t *testing.T) {
	defer saveAndRestoreState()()

	EnableDebug = "true"
	MCPMode = false

	logPath, err := InitDebugLogFile()
	require.NoError(t, err)
	defer os.Remove(logPath)

	assert.True(t, strings.Contains(logPath, "refx-debug-logs"))

	Printf("to file\n")
	require.NoError(t, CloseDebugLog())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[DEBUG] to file")
}
