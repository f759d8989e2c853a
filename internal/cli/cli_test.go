package cli

import (
	"log/slog"
	"strings"
	"testing"

	goflags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	assert.NoError(t, err)
	assert.Equal(t, "archive_redirector test", strings.TrimSpace(out))
}

func TestSubcommandsRecognized(t *testing.T) {
	cases := [][]string{
		{"list"},
		{"list", "--sorted"},
		{"add", "example.com"},
		{"remove", "example.com"},
		{"clear", "--force"},
		{"skip-homepage", "off"},
		{"recommended", "--url", "http://127.0.0.1:1/list.json"},
		{"decide", "https://example.com/a"},
	}
	for _, args := range cases {
		parser, _, _ := buildParser("test")
		// Parse only; a nil-returning handler keeps commands from executing.
		parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
		_, err := parser.ParseArgs(args)
		assert.NoError(t, err, "args %v", args)
	}
}

func TestAddRequiresDomain(t *testing.T) {
	parser, _, _ := buildParser("test")
	_, err := parser.ParseArgs([]string{"add"})
	assert.Error(t, err)
}

func TestGlobalFlagsParsed(t *testing.T) {
	parser, globals, cmds := buildParser("test")
	parser.CommandHandler = func(goflags.Commander, []string) error { return nil }
	_, err := parser.ParseArgs([]string{"--db", "/tmp/x.db", "--json", "list", "--sorted"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", globals.DB)
	assert.True(t, globals.JSON)
	assert.True(t, cmds.List.Sorted)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestParseOnOff(t *testing.T) {
	on, err := parseOnOff("on")
	require.NoError(t, err)
	assert.True(t, on)

	off, err := parseOnOff("off")
	require.NoError(t, err)
	assert.False(t, off)

	_, err = parseOnOff("maybe")
	assert.Error(t, err)
}
