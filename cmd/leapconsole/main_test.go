package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/cli"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapconsole")
}

func TestHelpCommand(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"serve", "seed", "migrate", "web", "tui", "shell", "code", "tables", "rows", "files"} {
		assert.Contains(t, out, name)
	}
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			out, err := execute(t, "completion", shell)
			require.NoError(t, err)
			assert.NotEmpty(t, out)
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, err := execute(t, "unknown-command")
	assert.Error(t, err)
}
