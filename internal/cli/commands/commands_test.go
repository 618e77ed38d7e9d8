package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/cli/config"
	"github.com/leapstack-labs/leapconsole/internal/cli/testutil"
	"github.com/leapstack-labs/leapconsole/internal/codestore"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// runCommand loads cfgYAML as the current config and executes cmd.
func runCommand(t *testing.T, cfgYAML string, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig(testutil.WriteConfig(t, cfgYAML), nil)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// apiConfig points the CLI at b. extra must not set output.
func apiConfig(b *testutil.Backend, output, extra string) string {
	return fmt.Sprintf("api:\n  base_url: %s\noutput: %s\n%s", b.URL, output, extra)
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd  *cobra.Command
		use  string
		subs []string
	}{
		{NewTablesCommand(), "tables", []string{"list", "show"}},
		{NewRowsCommand(), "rows", []string{"create", "update", "delete"}},
		{NewFilesCommand(), "files", []string{"ls", "mkdir", "upload", "download", "cat", "rm"}},
		{NewCodeCommand(), "code", []string{"store", "verify", "pending", "clear"}},
		{NewServeCommand(), "serve", nil},
		{NewSeedCommand(), "seed", nil},
		{NewMigrateCommand(), "migrate", nil},
		{NewQueryCommand(), "query", []string{"tables", "schema"}},
		{NewWebCommand(), "web", nil},
		{NewTUICommand(), "tui", nil},
		{NewShellCommand(), "shell", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Name())
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, sub := range tt.subs {
				found, _, err := tt.cmd.Find([]string{sub})
				require.NoError(t, err)
				assert.Equal(t, sub, found.Name())
			}
		})
	}
}

func TestTablesCommand(t *testing.T) {
	b := testutil.StartBackend(t)

	out, err := runCommand(t, apiConfig(b, "markdown", ""), NewTablesCommand(), "list")
	require.NoError(t, err)
	for _, name := range []string{"products", "tasks", "users"} {
		assert.Contains(t, out, name)
	}
	testutil.AssertValidMarkdown(t, out)

	out, err = runCommand(t, apiConfig(b, "markdown", ""), NewTablesCommand(), "show", "products")
	require.NoError(t, err)
	assert.Contains(t, out, "## products")
	assert.Contains(t, out, "Laptop")
	testutil.AssertNoANSI(t, out)

	out, err = runCommand(t, apiConfig(b, "json", ""), NewTablesCommand(), "list")
	require.NoError(t, err)
	var listed map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	assert.Equal(t, []string{"products", "tasks", "users"}, listed["tables"])

	_, err = runCommand(t, apiConfig(b, "markdown", ""), NewTablesCommand(), "show", "nope")
	assert.Error(t, err)
}

func TestRowsCommand(t *testing.T) {
	b := testutil.StartBackend(t)
	ctx := context.Background()
	cfg := apiConfig(b, "markdown", "")

	out, err := runCommand(t, cfg, NewRowsCommand(), "create", "products",
		`{"name": "Lamp", "price": 12.5, "stock": 3, "category": "Home"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Row created in products")

	lampID := func() any {
		data, err := b.Store.GetTable(ctx, "products")
		require.NoError(t, err)
		for _, row := range data.Rows {
			if row["name"] == "Lamp" || row["name"] == "Lantern" {
				return row["id"]
			}
		}
		return nil
	}
	id := lampID()
	require.NotNil(t, id)
	key, err := json.Marshal(map[string]any{"id": id})
	require.NoError(t, err)
	updated, err := json.Marshal(map[string]any{"id": id, "name": "Lantern"})
	require.NoError(t, err)

	out, err = runCommand(t, cfg, NewRowsCommand(), "update", "products", string(key), string(updated))
	require.NoError(t, err)
	assert.Contains(t, out, "Row updated in products")

	out, err = runCommand(t, cfg, NewRowsCommand(), "delete", "products", string(key))
	require.NoError(t, err)
	assert.Contains(t, out, "Row deleted from products")
	assert.Nil(t, lampID())

	_, err = runCommand(t, cfg, NewRowsCommand(), "create", "products", `[1, 2]`)
	assert.ErrorContains(t, err, "expected a JSON object")
}

func TestFilesCommand(t *testing.T) {
	b := testutil.StartBackend(t)
	ctx := context.Background()
	dir := t.TempDir()
	cfg := apiConfig(b, "markdown", fmt.Sprintf("download_dir: %s\n", dir))

	out, err := runCommand(t, cfg, NewFilesCommand(), "mkdir", "reports")
	require.NoError(t, err)
	assert.Contains(t, out, "Created /reports")

	local := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(local, []byte("<h1>Quarterly</h1><p>All good.</p>"), 0o600))
	out, err = runCommand(t, cfg, NewFilesCommand(), "upload", local, "--folder", "/reports")
	require.NoError(t, err)
	assert.Contains(t, out, "Uploaded /reports/page.html")

	entries, err := b.Store.ListFiles(ctx, "/reports")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	file := entries[0]
	assert.Equal(t, "text/html; charset=utf-8", file.Mime())

	out, err = runCommand(t, cfg, NewFilesCommand(), "ls", "/reports")
	require.NoError(t, err)
	assert.Contains(t, out, "page.html")
	assert.Contains(t, out, file.ID)

	out, err = runCommand(t, cfg, NewFilesCommand(), "cat", file.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Quarterly")
	assert.Contains(t, out, "All good.")

	target := filepath.Join(dir, "copy.html")
	_, err = runCommand(t, cfg, NewFilesCommand(), "download", file.ID, "--out", target)
	require.NoError(t, err)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Quarterly</h1><p>All good.</p>", string(data))

	out, err = runCommand(t, cfg, NewFilesCommand(), "rm", file.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+file.ID)
	entries, err = b.Store.ListFiles(ctx, "/reports")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileText(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		mimeType string
		data     string
		want     string
		wantErr  bool
	}{
		{name: "plain", file: "a.txt", mimeType: "text/plain", data: "hello", want: "hello"},
		{name: "html converted", file: "a.html", mimeType: "text/html; charset=utf-8", data: "<p><strong>hi</strong></p>", want: "**hi**"},
		{name: "mime from name", file: "notes.md", data: "# notes", want: "# notes"},
		{name: "binary refused", file: "a.bin", mimeType: "application/octet-stream", data: "\x00\xff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileText(tt.file, tt.mimeType, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestCodeCommand(t *testing.T) {
	b := testutil.StartBackend(t)
	codePath := filepath.Join(t.TempDir(), "code")
	cfg := apiConfig(b, "markdown", fmt.Sprintf("auth:\n  code_path: %s\n", codePath))
	ctx := context.Background()
	saved := codestore.NewFileStore(codePath, nil)

	out, err := runCommand(t, cfg, NewCodeCommand(), "store", "k7p2qx", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "Code K7P2QX registered")
	code, err := saved.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "K7P2QX", code)

	out, err = runCommand(t, cfg, NewCodeCommand(), "verify", "K7P2QX")
	require.NoError(t, err)
	assert.Contains(t, out, "Code accepted")

	// A stored code is single use.
	_, err = runCommand(t, cfg, NewCodeCommand(), "verify", "K7P2QX")
	assert.Error(t, err)

	_, err = runCommand(t, cfg, NewCodeCommand(), "verify", "short")
	var lengthErr *core.CodeLengthError
	assert.ErrorAs(t, err, &lengthErr)

	out, err = runCommand(t, cfg, NewCodeCommand(), "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Persisted code cleared")
	code, err = saved.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestConnect_VerifiesConfiguredCode(t *testing.T) {
	b := testutil.StartBackend(t)

	_, err := runCommand(t, apiConfig(b, "markdown", "auth:\n  code: NOPE42\n"), NewTablesCommand(), "list")
	assert.Error(t, err)

	require.NoError(t, b.Store.StoreCode(context.Background(), "GOOD42"))
	out, err := runCommand(t, apiConfig(b, "markdown", "auth:\n  code: good42\n"), NewTablesCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "products")
}

func TestSeedAndMigrateCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "console.db")
	cfg := fmt.Sprintf("server:\n  database:\n    driver: sqlite\n    dsn: %s\noutput: markdown\n", dsn)

	out, err := runCommand(t, cfg, NewMigrateCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Schema at version")

	out, err = runCommand(t, cfg, NewSeedCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# Seed")
	assert.Contains(t, out, "**Total Tables:** 3")
	for _, name := range []string{"products", "tasks", "users"} {
		assert.Contains(t, out, name)
	}

	out, err = runCommand(t, cfg, NewSeedCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Skipped")

	out, err = runCommand(t, cfg, NewCodeCommand(), "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending codes")
}

func TestQueryCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "console.db")
	cfg := fmt.Sprintf("server:\n  database:\n    driver: sqlite\n    dsn: %s\noutput: markdown\n", dsn)
	_, err := runCommand(t, cfg, NewSeedCommand())
	require.NoError(t, err)

	out, err := runCommand(t, cfg, NewQueryCommand(), "SELECT name FROM products WHERE price > 100 ORDER BY name")
	require.NoError(t, err)
	assert.Contains(t, out, "| name")
	assert.Contains(t, out, "Laptop")
	assert.NotContains(t, out, "Mouse")

	out, err = runCommand(t, cfg, NewQueryCommand(), "SELECT id, username FROM users ORDER BY id", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "id,username\n1,alice\n"), out)

	// Writes are rolled back.
	_, err = runCommand(t, cfg, NewQueryCommand(), "DELETE FROM tasks")
	require.NoError(t, err)
	out, err = runCommand(t, cfg, NewQueryCommand(), "SELECT COUNT(*) AS n FROM tasks", "-f", "json")
	require.NoError(t, err)
	var counted struct {
		Rows []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &counted))
	require.Len(t, counted.Rows, 1)
	assert.NotEqual(t, float64(0), counted.Rows[0]["n"])

	out, err = runCommand(t, cfg, NewQueryCommand(), "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "products")
	assert.NotContains(t, out, "lc_files")

	out, err = runCommand(t, cfg, NewQueryCommand(), "schema", "products", "-f", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "category")
	assert.Contains(t, out, "true")

	_, err = runCommand(t, cfg, NewQueryCommand(), "SELECT * FROM nope")
	assert.Error(t, err)
}
