package commands

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/cli/testutil"
	"github.com/leapstack-labs/leapconsole/internal/console"
	logutil "github.com/leapstack-labs/leapconsole/internal/testutil"
	"github.com/leapstack-labs/leapconsole/pkg/client"
)

func newTestShell(t *testing.T) (*shell, *testutil.TestRenderer, *testutil.Backend) {
	t.Helper()
	b := testutil.StartBackend(t)
	c, err := client.New(client.Config{BaseURL: b.URL, Logger: logutil.NewTestLogger(t)})
	require.NoError(t, err)
	tr := testutil.NewTestRendererMarkdown()
	con := console.New(c, console.Options{Logger: logutil.NewTestLogger(t)})
	return newShell(con, tr.Renderer, t.TempDir()), tr, b
}

// run executes lines and returns what they printed.
func run(t *testing.T, sh *shell, tr *testutil.TestRenderer, lines ...string) (string, string) {
	t.Helper()
	tr.Out.Reset()
	tr.ErrOut.Reset()
	for _, line := range lines {
		require.False(t, sh.exec(context.Background(), line), line)
	}
	return tr.Output(), tr.ErrorOutput()
}

func shellLogin(t *testing.T, sh *shell, tr *testutil.TestRenderer, b *testutil.Backend) {
	t.Helper()
	require.NoError(t, b.Store.StoreCode(context.Background(), "SHL123"))
	out, _ := run(t, sh, tr, ".login shl123")
	require.Contains(t, out, "Console unlocked")
}

func TestShell_Login(t *testing.T) {
	sh, tr, b := newTestShell(t)

	_, errOut := run(t, sh, tr, "hello")
	assert.Contains(t, errOut, "Unknown input")

	_, errOut = run(t, sh, tr, ".login")
	assert.Contains(t, errOut, "Usage: .login <code>")

	_, errOut = run(t, sh, tr, ".login abc")
	assert.Contains(t, errOut, "Error:")
	assert.False(t, sh.con.State().Authenticated)

	_, errOut = run(t, sh, tr, ".login zzz999")
	assert.NotEmpty(t, errOut)
	assert.False(t, sh.con.State().Authenticated)

	shellLogin(t, sh, tr, b)
	out, _ := run(t, sh, tr, ".tables")
	for _, name := range []string{"products", "tasks", "users"} {
		assert.Contains(t, out, name)
	}
	assert.Equal(t, "leapconsole> ", sh.prompt())

	out, _ = run(t, sh, tr, ".logout")
	assert.Contains(t, out, "Logged out")
	assert.Equal(t, console.ViewHome, sh.con.State().View)
}

func TestShell_TableRoundTrip(t *testing.T) {
	sh, tr, b := newTestShell(t)
	shellLogin(t, sh, tr, b)

	out, _ := run(t, sh, tr, ".open products")
	assert.Contains(t, out, "## products")
	assert.Contains(t, out, "Laptop")
	assert.Equal(t, "leapconsole:products> ", sh.prompt())
	require.Len(t, sh.con.State().Rows, 5)

	out, _ = run(t, sh, tr, ".new")
	assert.Contains(t, out, "(assigned by the database)")

	_, errOut := run(t, sh, tr, ".set id 7", ".set nope x")
	assert.Contains(t, errOut, "id is assigned by the database")
	assert.Contains(t, errOut, `Unknown field "nope"`)

	out, _ = run(t, sh, tr, ".set name Desk Lamp", ".set price 45", ".form")
	assert.Contains(t, out, "Desk Lamp")

	out, _ = run(t, sh, tr, ".save")
	assert.Contains(t, out, "Saved")
	rows := sh.con.State().Rows
	require.Len(t, rows, 6)

	n := 0
	for i, row := range rows {
		if row["name"] == "Desk Lamp" {
			n = i + 1
		}
	}
	require.NotZero(t, n)

	run(t, sh, tr, ".edit "+strconv.Itoa(n), ".set name Floor Lamp", ".save")
	assert.Equal(t, "Floor Lamp", sh.con.State().Rows[n-1]["name"])

	_, errOut = run(t, sh, tr, ".delete 99")
	assert.Contains(t, errOut, "No row 99")

	_, errOut = run(t, sh, tr, ".delete "+strconv.Itoa(n))
	assert.Contains(t, errOut, "Delete this row?")
	out, _ = run(t, sh, tr, ".yes")
	assert.Contains(t, out, "Deleted")
	assert.Len(t, sh.con.State().Rows, 5)

	_, errOut = run(t, sh, tr, ".yes")
	assert.Contains(t, errOut, "Nothing to confirm")

	_, errOut = run(t, sh, tr, ".form")
	assert.Contains(t, errOut, "No form open")
}

func TestShell_Files(t *testing.T) {
	sh, tr, b := newTestShell(t)
	shellLogin(t, sh, tr, b)

	_, errOut := run(t, sh, tr, ".upload nothing.txt")
	assert.Contains(t, errOut, "Open the file store first")

	out, _ := run(t, sh, tr, ".files")
	assert.Contains(t, out, "## /")

	run(t, sh, tr, ".mkdir docs", ".cd docs")
	assert.Equal(t, "/docs", sh.con.State().Folder)
	assert.Equal(t, "leapconsole:/docs> ", sh.prompt())

	local := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(local, []byte("remember the milk"), 0o600))
	out, _ = run(t, sh, tr, ".upload "+local)
	assert.Contains(t, out, "Uploaded notes.txt")
	assert.Contains(t, out, "notes.txt")

	saved := filepath.Join(t.TempDir(), "copy.txt")
	out, _ = run(t, sh, tr, ".get 1 "+saved)
	assert.Contains(t, out, "Saved "+saved)
	data, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, "remember the milk", string(data))

	_, errOut = run(t, sh, tr, ".get 5")
	assert.Contains(t, errOut, "No entry 5")

	out, _ = run(t, sh, tr, ".rm 1")
	assert.Contains(t, out, "Deleted notes.txt")
	assert.Empty(t, sh.con.State().Files)

	run(t, sh, tr, ".cd ..")
	assert.Equal(t, "/", sh.con.State().Folder)

	_, errOut = run(t, sh, tr, ".get 1")
	assert.Contains(t, errOut, "docs is a folder")
}

func TestShell_UnknownAndQuit(t *testing.T) {
	sh, tr, _ := newTestShell(t)

	_, errOut := run(t, sh, tr, ".bogus")
	assert.Contains(t, errOut, "Unknown command: .bogus")

	out, _ := run(t, sh, tr, ".help")
	assert.Contains(t, out, ".login <code>")

	assert.True(t, sh.exec(context.Background(), ".quit"))
	assert.True(t, sh.exec(context.Background(), ".EXIT"))
}
