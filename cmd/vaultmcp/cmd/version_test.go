package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noteworks/vaultmcp/pkg/version"
)

func TestVersionCommand_Default(t *testing.T) {
	// Given the version command
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	// When executed without flags
	err := cmd.Execute()

	// Then it prints the full version string
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "vaultmcp")
	assert.Contains(t, buf.String(), version.Version)
}

func TestVersionCommand_Short(t *testing.T) {
	// Given the version command with --short
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--short"})

	// When executed
	err := cmd.Execute()

	// Then only the version number is printed
	require.NoError(t, err)
	assert.Equal(t, version.Short()+"\n", buf.String())
}

func TestVersionCommand_JSON(t *testing.T) {
	// Given the version command with --json
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--json"})

	// When executed
	err := cmd.Execute()
	require.NoError(t, err)

	// Then the output decodes into build info
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &info))
	assert.Equal(t, version.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestExcerpt(t *testing.T) {
	// Given text longer than the display budget
	long := make([]rune, 0, 300)
	for i := 0; i < 300; i++ {
		long = append(long, 'x')
	}

	// When truncated
	got := excerpt(string(long), 100)

	// Then it ends with an ellipsis at the rune budget
	assert.Len(t, []rune(got), 103)
	assert.Equal(t, "...", got[len(got)-3:])

	// And short text passes through with newlines flattened
	assert.Equal(t, "a b", excerpt("a\nb\n", 100))
}
