package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLogFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0644))
	return path
}

func TestViewer_Tail(t *testing.T) {
	// Given a log file with three entries
	path := writeLogFile(t,
		`{"time":"2026-08-31T10:00:00Z","level":"INFO","msg":"scan started"}
{"time":"2026-08-31T10:00:01Z","level":"WARN","msg":"slow write","path":"a.md"}
{"time":"2026-08-31T10:00:02Z","level":"INFO","msg":"scan complete"}
`)

	// When tailing the last two lines
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 2)

	// Then only those lines are returned, parsed
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "slow write", entries[0].Msg)
	assert.Equal(t, "a.md", entries[0].Attrs["path"])
	assert.Equal(t, "scan complete", entries[1].Msg)
}

func TestViewer_LevelFilter(t *testing.T) {
	// Given mixed-level entries
	path := writeLogFile(t,
		`{"time":"2026-08-31T10:00:00Z","level":"DEBUG","msg":"noise"}
{"time":"2026-08-31T10:00:01Z","level":"ERROR","msg":"store write failed"}
`)

	// When filtering to warn and above
	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)

	// Then debug noise is dropped
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store write failed", entries[0].Msg)
}

func TestViewer_PatternFilter(t *testing.T) {
	path := writeLogFile(t,
		`{"time":"2026-08-31T10:00:00Z","level":"INFO","msg":"indexed","path":"notes/a.md"}
{"time":"2026-08-31T10:00:01Z","level":"INFO","msg":"indexed","path":"notes/b.md"}
`)

	v := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`a\.md`), NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)

	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestViewer_MalformedLinePassesThrough(t *testing.T) {
	// Given a non-JSON line in the log
	path := writeLogFile(t, "panic: something broke\n")

	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entries, err := v.Tail(path, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Then it is shown raw
	assert.False(t, entries[0].IsValid)
	assert.Equal(t, "panic: something broke", v.FormatEntry(entries[0]))
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})
	entry := v.parseLine(`{"time":"2026-08-31T10:00:00Z","level":"INFO","msg":"indexed","chunks":3}`)

	got := v.FormatEntry(entry)
	assert.Contains(t, got, "INFO")
	assert.Contains(t, got, "indexed")
	assert.Contains(t, got, "chunks=3")
}
