package tui

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/internal/server"
	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/internal/testutil"
	"github.com/leapstack-labs/leapconsole/pkg/client"
)

// memSource is an in-memory persisted code.
type memSource struct{ code string }

func (m *memSource) Load(context.Context) (string, error) { return m.code, nil }
func (m *memSource) Clear(context.Context) error { m.code = ""; return nil }

func newTestApp(t *testing.T, cfg Config) (*App, *store.Store) {
	t.Helper()
	ctx := context.Background()
	logger := testutil.NewTestLogger(t)

	st, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:", Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(ctx))
	fixtures, err := store.SampleFixtures()
	require.NoError(t, err)
	_, err = st.Seed(ctx, fixtures, false)
	require.NoError(t, err)

	ts := httptest.NewServer(server.New(server.Config{
		Backend:        st,
		RequireSession: true,
		SessionSecret:  "tui-secret-tui-secret-tui-secret",
		Logger:         logger,
	}).Handler())
	t.Cleanup(ts.Close)

	c, err := client.New(client.Config{BaseURL: ts.URL + "/api", Logger: logger})
	require.NoError(t, err)
	cfg.Console = console.New(c, console.Options{Logger: logger})
	cfg.Logger = logger
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = t.TempDir()
	}
	return NewApp(ctx, cfg), st
}

// send feeds msg to the app and runs the resulting commands to completion.
func send(a *App, msg tea.Msg) {
	_, cmd := a.Update(msg)
	run(a, cmd)
}

func run(a *App, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		switch msg := msg.(type) {
		case nil, tea.QuitMsg:
			return
		case tea.BatchMsg:
			for _, c := range msg {
				run(a, c)
			}
			return
		default:
			_, cmd = a.Update(msg)
		}
	}
}

func keyPress(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typeText(a *App, s string) {
	for _, r := range s {
		send(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func login(t *testing.T, a *App, st *store.Store) {
	t.Helper()
	require.NoError(t, st.StoreCode(context.Background(), "TUI123"))
	send(a, keyPress(tea.KeyEnter))
	require.Equal(t, console.ViewLogin, a.state.View)
	typeText(a, "tui123")
	assert.Equal(t, "TUI123", a.input.Value())
	send(a, keyPress(tea.KeyEnter))
	require.True(t, a.state.Authenticated, a.state.CodeError)
	require.Equal(t, console.ViewFolders, a.state.View)
}

func TestApp_LoginRejectsShortCode(t *testing.T) {
	a, _ := newTestApp(t, Config{})

	send(a, keyPress(tea.KeyEnter))
	typeText(a, "abc")
	send(a, keyPress(tea.KeyEnter))

	assert.False(t, a.state.Authenticated)
	assert.Equal(t, console.ViewLogin, a.state.View)
	assert.Contains(t, a.View(), "ABC")

	send(a, keyPress(tea.KeyEsc))
	assert.Equal(t, console.ViewHome, a.state.View)
}

func TestApp_TableRoundTrip(t *testing.T) {
	a, st := newTestApp(t, Config{})
	login(t, a, st)
	assert.Contains(t, a.View(), "products")

	// products is the first table.
	send(a, keyPress(tea.KeyEnter))
	require.Equal(t, console.ViewTable, a.state.View)
	require.Equal(t, "products", a.state.Table)
	require.Len(t, a.state.Rows, 5)
	assert.Contains(t, a.View(), "Laptop")

	// New row: the key column is locked, focus starts on name.
	typeText(a, "n")
	require.Equal(t, console.ViewCreate, a.state.View)
	assert.Equal(t, 1, a.field)
	typeText(a, "X")
	assert.Equal(t, "New ItemX", a.state.Form["name"])
	send(a, keyPress(tea.KeyCtrlS))
	require.Equal(t, console.ViewTable, a.state.View, a.state.Error)
	require.Len(t, a.state.Rows, 6)

	idx := -1
	for i, row := range a.state.Rows {
		if row["name"] == "New ItemX" {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx)
	for range idx {
		send(a, keyPress(tea.KeyDown))
	}
	require.Equal(t, idx, a.cursor)

	typeText(a, "d")
	require.True(t, a.state.DeleteConfirm)
	assert.Contains(t, a.View(), "Delete this row?")
	typeText(a, "y")
	assert.False(t, a.state.DeleteConfirm)
	assert.Len(t, a.state.Rows, 5)

	send(a, keyPress(tea.KeyEsc))
	assert.Equal(t, console.ViewFolders, a.state.View)
}

func TestApp_Files(t *testing.T) {
	downloads := t.TempDir()
	a, st := newTestApp(t, Config{DownloadDir: downloads})
	login(t, a, st)

	// Files sits after the tables.
	for range len(a.state.Tables) {
		send(a, keyPress(tea.KeyDown))
	}
	send(a, keyPress(tea.KeyEnter))
	require.Equal(t, console.ViewFiles, a.state.View)
	assert.Contains(t, a.View(), "This folder is empty")

	typeText(a, "n")
	require.True(t, a.state.NewFolder)
	typeText(a, "docs")
	send(a, keyPress(tea.KeyEnter))
	require.False(t, a.state.NewFolder, a.state.Error)
	require.Len(t, a.state.Files, 1)

	local := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(local, []byte("hello, console"), 0o600))
	typeText(a, "u")
	require.Equal(t, promptUpload, a.prompt)
	typeText(a, local)
	send(a, keyPress(tea.KeyEnter))
	require.Len(t, a.state.Files, 2, a.state.Error)
	assert.Equal(t, "Uploaded hello.txt", a.state.Notice)

	// Folders sort first, so the file is second.
	send(a, keyPress(tea.KeyDown))
	send(a, keyPress(tea.KeyEnter))
	saved, err := os.ReadFile(filepath.Join(downloads, "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello, console", string(saved))

	typeText(a, "d")
	require.Equal(t, promptDeleteFile, a.prompt)
	typeText(a, "y")
	require.Len(t, a.state.Files, 1)

	send(a, keyPress(tea.KeyUp))
	send(a, keyPress(tea.KeyEnter))
	assert.Equal(t, "/docs", a.state.Folder)
	send(a, keyPress(tea.KeyBackspace))
	assert.Equal(t, "/", a.state.Folder)
}

func TestApp_AutoLoginFromSource(t *testing.T) {
	src := &memSource{code: "AUTO01"}
	a, _ := newTestApp(t, Config{AutoLogin: console.AutoLogin{Source: src, Delay: -1}})

	run(a, a.Init())

	assert.True(t, a.state.Authenticated)
	assert.Empty(t, src.code)
	assert.Equal(t, console.ViewFolders, a.state.View)
}

func TestApp_CodeDropped(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		launch bool
	}{
		{name: "fresh console", stored: "DROP01"},
		{name: "after launch auto-login found nothing", launch: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &memSource{code: tt.stored}
			a, _ := newTestApp(t, Config{AutoLogin: console.AutoLogin{Source: src, Delay: -1}})
			if tt.launch {
				run(a, a.Init())
				require.False(t, a.state.Authenticated)
			}

			send(a, CodeDroppedMsg{Code: "drop01"})

			assert.True(t, a.state.Authenticated)
			assert.Empty(t, src.code)

			// Once unlocked, further drops are ignored.
			_, cmd := a.Update(CodeDroppedMsg{Code: "OTHER1"})
			assert.Nil(t, cmd)
		})
	}
}

func TestApp_QuitKeys(t *testing.T) {
	a, _ := newTestApp(t, Config{})

	_, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	// q is text on the login screen.
	send(a, keyPress(tea.KeyEnter))
	send(a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, console.ViewLogin, a.state.View)
	assert.Equal(t, "Q", a.input.Value())
}
