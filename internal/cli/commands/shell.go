package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapconsole/internal/cli/output"
	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// ShellOptions holds options for the shell command.
type ShellOptions struct {
	History string
}

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	opts := &ShellOptions{}

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive console shell",
		Long: `Start an interactive shell over the console.

The shell drives the same console as the terminal and web front ends:
log in with an access code, open tables, edit rows through forms and
browse the file store, all with dot-commands. A persisted code or --code
logs in automatically.`,
		Example: `  # Start the shell
  leapconsole shell

  # Log in straight away
  leapconsole shell --code K7P2QX`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.History, "history", "", "History file (default: ~/.leapconsole_history)")

	return cmd
}

func runShell(cmd *cobra.Command, opts *ShellOptions) error {
	ctx := cmd.Context()

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	con, err := cc.NewConsole()
	if err != nil {
		return err
	}
	sh := newShell(con, cc.Renderer, cc.Cfg.DownloadDir)

	historyFile := opts.History
	if historyFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			historyFile = filepath.Join(home, ".leapconsole_history")
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(),
		HistoryFile:     historyFile,
		AutoComplete:    sh.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapconsole shell (backend: %s)\n", cc.Cfg.API.BaseURL)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(cmd.OutOrStdout())

	if tried, err := con.RunAutoLogin(ctx, cc.AutoLogin()); tried {
		sh.report()
		if err == nil {
			sh.listTables()
		}
		rl.SetPrompt(sh.prompt())
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if sh.exec(ctx, line) {
			break
		}
		rl.SetPrompt(sh.prompt())
		_, _ = fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

// shell executes dot-commands against a console.
type shell struct {
	con         *console.Console
	r           *output.Renderer
	downloadDir string
}

func newShell(con *console.Console, r *output.Renderer, downloadDir string) *shell {
	if downloadDir == "" {
		downloadDir = "."
	}
	return &shell{con: con, r: r, downloadDir: downloadDir}
}

func (sh *shell) prompt() string {
	s := sh.con.State()
	switch s.View {
	case console.ViewTable:
		return "leapconsole:" + s.Table + "> "
	case console.ViewEdit, console.ViewCreate:
		return "leapconsole:" + s.Table + "[" + string(s.View) + "]> "
	case console.ViewFiles:
		return "leapconsole:" + s.Folder + "> "
	}
	return "leapconsole> "
}

func (sh *shell) completer() *readline.PrefixCompleter {
	tables := readline.PcItemDynamic(func(string) []string {
		names := make([]string, 0)
		for _, t := range sh.con.State().Tables {
			names = append(names, t.Name)
		}
		return names
	})
	columns := readline.PcItemDynamic(func(string) []string {
		return sh.con.State().Columns
	})
	folders := readline.PcItemDynamic(func(string) []string {
		names := []string{".."}
		for _, f := range sh.con.State().Files {
			if f.IsFolder() {
				names = append(names, f.Name)
			}
		}
		return names
	})

	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".login"),
		readline.PcItem(".logout"),
		readline.PcItem(".tables"),
		readline.PcItem(".open", tables),
		readline.PcItem(".rows"),
		readline.PcItem(".new"),
		readline.PcItem(".edit"),
		readline.PcItem(".set", columns),
		readline.PcItem(".form"),
		readline.PcItem(".save"),
		readline.PcItem(".cancel"),
		readline.PcItem(".delete"),
		readline.PcItem(".yes"),
		readline.PcItem(".no"),
		readline.PcItem(".files"),
		readline.PcItem(".cd", folders),
		readline.PcItem(".ls"),
		readline.PcItem(".mkdir"),
		readline.PcItem(".upload"),
		readline.PcItem(".get"),
		readline.PcItem(".rm"),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}

// exec runs one line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, ".") {
		sh.r.Error("Unknown input (type .help for commands)")
		return false
	}
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case ".quit", ".exit":
		return true

	case ".help":
		printShellHelp(sh.r.Writer())

	case ".clear":
		sh.r.Printf("\033[H\033[2J")

	case ".login":
		if len(args) != 1 {
			sh.usage(".login <code>")
			return false
		}
		sh.con.ShowLogin()
		sh.con.EditCode(args[0])
		if sh.con.SubmitCode(ctx, args[0]) == nil {
			sh.r.Success("Console unlocked")
			sh.listTables()
			return false
		}
		sh.report()

	case ".logout":
		sh.con.GoHome()
		sh.r.Success("Logged out")

	case ".tables":
		if sh.con.LoadTables(ctx) == nil {
			sh.listTables()
		}

	case ".open":
		if len(args) != 1 {
			sh.usage(".open <table>")
			return false
		}
		if sh.con.OpenTable(ctx, args[0]) == nil {
			sh.showTable()
		}

	case ".rows":
		if s := sh.con.State(); s.Table != "" {
			if sh.con.OpenTable(ctx, s.Table) == nil {
				sh.showTable()
			}
		} else {
			sh.r.Error("No table open (use .open <table>)")
		}

	case ".new":
		if sh.con.NewRow() == nil {
			sh.showForm()
		}

	case ".edit":
		row, ok := sh.rowArg(args, ".edit <row>")
		if ok && sh.con.EditRow(row) == nil {
			sh.showForm()
		}

	case ".set":
		sh.set(args)

	case ".form":
		sh.showForm()

	case ".save":
		if sh.con.Save(ctx) == nil {
			sh.r.Success("Saved")
			sh.showTable()
		}

	case ".cancel":
		sh.con.CancelForm()
		sh.showTable()

	case ".delete":
		if row, ok := sh.rowArg(args, ".delete <row>"); ok {
			sh.con.ConfirmDelete(row)
			sh.r.Warning("Delete this row? Type .yes to delete or .no to keep it")
		}

	case ".yes":
		if !sh.con.State().DeleteConfirm {
			sh.r.Error("Nothing to confirm")
			return false
		}
		if sh.con.Delete(ctx) == nil {
			sh.r.Success("Deleted")
			sh.showTable()
		}

	case ".no":
		sh.con.CancelDelete()

	case ".files":
		if sh.con.OpenFiles(ctx) == nil {
			sh.listFiles()
		}

	case ".cd":
		if len(args) != 1 {
			sh.usage(".cd <folder|..>")
			return false
		}
		var err error
		if args[0] == ".." {
			err = sh.con.FolderBack(ctx)
		} else {
			err = sh.con.OpenFolder(ctx, args[0])
		}
		if err == nil {
			sh.listFiles()
		}

	case ".ls":
		if sh.con.RefreshFiles(ctx) == nil {
			sh.listFiles()
		}

	case ".mkdir":
		if len(args) != 1 {
			sh.usage(".mkdir <name>")
			return false
		}
		if sh.con.CreateFolder(ctx, args[0]) == nil {
			sh.listFiles()
		}

	case ".upload":
		if len(args) != 1 {
			sh.usage(".upload <path>")
			return false
		}
		sh.upload(ctx, args[0])

	case ".get":
		entry, ok := sh.fileArg(args, ".get <n> [path]")
		if ok {
			dest := ""
			if len(args) > 1 {
				dest = args[1]
			}
			sh.download(ctx, entry, dest)
		}

	case ".rm":
		if entry, ok := sh.fileArg(args, ".rm <n>"); ok && sh.con.DeleteFile(ctx, entry.ID) == nil {
			sh.r.Success("Deleted " + entry.Name)
			sh.listFiles()
		}

	default:
		sh.r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", command))
		return false
	}

	sh.report()
	return false
}

// report prints and clears the banners the last call left in the state.
func (sh *shell) report() {
	s := sh.con.State()
	if s.View == console.ViewLogin && s.CodeError != "" {
		sh.r.Error(s.CodeError)
	}
	if s.Error != "" {
		sh.r.Error(s.Error)
	}
	if s.Notice != "" {
		sh.r.Success(s.Notice)
	}
	if s.Error != "" || s.Notice != "" {
		sh.con.Dispatch(console.DismissError{})
	}
}

func (sh *shell) usage(text string) {
	sh.r.Error("Usage: " + text)
}

func (sh *shell) listTables() {
	tables := sh.con.State().Tables
	rows := make([][]string, len(tables))
	for i, t := range tables {
		rows[i] = []string{t.Name}
	}
	sh.r.Table([]string{"Table"}, rows)
}

// showTable renders the open table with 1-based row numbers for .edit,
// .delete and friends.
func (sh *shell) showTable() {
	s := sh.con.State()
	if s.View != console.ViewTable {
		return
	}
	columns := console.VisibleColumns(s.Columns)
	headers := []string{"#"}
	for _, col := range columns {
		headers = append(headers, console.ColumnLabel(col))
	}
	rows := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		cells := []string{strconv.Itoa(i + 1)}
		for _, col := range columns {
			cells = append(cells, console.CellText(row[col]))
		}
		rows[i] = cells
	}
	sh.r.Header(2, s.Table)
	sh.r.Table(headers, rows)
	if hidden := len(s.Columns) - len(columns); hidden > 0 {
		sh.r.Muted(fmt.Sprintf("%d more columns in the form (.edit <row>)", hidden))
	}
	if s.Duplicates > 0 {
		sh.r.Warning(fmt.Sprintf("%d rows duplicate another row and have no primary key; editing one edits them all", s.Duplicates))
	}
}

func (sh *shell) showForm() {
	s := sh.con.State()
	if !s.View.IsForm() {
		sh.r.Error("No form open (use .new or .edit <row>)")
		return
	}
	rows := make([][]string, len(s.Columns))
	for i, col := range s.Columns {
		value := console.InputText(s.Form[col])
		if s.FieldLocked(col) {
			value = "(assigned by the database)"
		}
		rows[i] = []string{col, value}
	}
	sh.r.Table([]string{"Field", "Value"}, rows)
	sh.r.Muted("Use .set <field> <value>, then .save or .cancel")
}

func (sh *shell) set(args []string) {
	s := sh.con.State()
	if !s.View.IsForm() {
		sh.r.Error("No form open (use .new or .edit <row>)")
		return
	}
	if len(args) < 1 {
		sh.usage(".set <field> [value]")
		return
	}
	col := ""
	for _, c := range s.Columns {
		if strings.EqualFold(c, args[0]) {
			col = c
		}
	}
	switch {
	case col == "":
		sh.r.Error(fmt.Sprintf("Unknown field %q", args[0]))
	case s.FieldLocked(col):
		sh.r.Error(fmt.Sprintf("%s is assigned by the database", col))
	default:
		sh.con.SetFieldText(col, strings.Join(args[1:], " "))
	}
}

// rowArg resolves a 1-based row number against the open table.
func (sh *shell) rowArg(args []string, usage string) (core.Row, bool) {
	rows := sh.con.State().Rows
	if len(args) != 1 {
		sh.usage(usage)
		return nil, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(rows) {
		sh.r.Error(fmt.Sprintf("No row %s (the table shows %d rows)", args[0], len(rows)))
		return nil, false
	}
	return rows[n-1], true
}

func (sh *shell) listFiles() {
	s := sh.con.State()
	if s.View != console.ViewFiles {
		return
	}
	rows := make([][]string, len(s.Files))
	for i, f := range s.Files {
		name, size := f.Name+"/", ""
		if !f.IsFolder() {
			name = f.Name
			size = humanize.IBytes(uint64(max(f.Size(), 0)))
		}
		rows[i] = []string{strconv.Itoa(i + 1), name, size, f.Mime()}
	}
	sh.r.Header(2, s.Folder)
	sh.r.Table([]string{"#", "Name", "Size", "Mime Type"}, rows)
}

// fileArg resolves a 1-based entry number against the listed folder.
func (sh *shell) fileArg(args []string, usage string) (core.FileEntry, bool) {
	files := sh.con.State().Files
	if len(args) < 1 {
		sh.usage(usage)
		return core.FileEntry{}, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > len(files) {
		sh.r.Error(fmt.Sprintf("No entry %s (the folder lists %d)", args[0], len(files)))
		return core.FileEntry{}, false
	}
	return files[n-1], true
}

func (sh *shell) upload(ctx context.Context, path string) {
	if sh.con.State().View != console.ViewFiles {
		sh.r.Error("Open the file store first (.files)")
		return
	}
	data, err := os.ReadFile(path) //nolint:gosec // path typed by the user
	if err != nil {
		sh.r.Error(fmt.Sprintf("Cannot read %s: %v", path, err))
		return
	}
	name := filepath.Base(path)
	err = sh.con.Upload(ctx, core.Upload{Name: name, Data: data, MimeType: detectMimeType(name, data)})
	if err == nil {
		sh.report()
		sh.listFiles()
	}
}

func (sh *shell) download(ctx context.Context, entry core.FileEntry, dest string) {
	if entry.IsFolder() {
		sh.r.Error(entry.Name + " is a folder (use .cd)")
		return
	}
	dl, err := sh.con.Download(ctx, entry)
	if err != nil {
		return
	}
	if dest == "" {
		dest = filepath.Join(sh.downloadDir, filepath.Base(dl.Name))
	}
	if err := os.WriteFile(dest, dl.Data, 0o600); err != nil {
		sh.r.Error(fmt.Sprintf("Could not save %s: %v", dest, err))
		return
	}
	sh.r.Success(fmt.Sprintf("Saved %s (%s)", dest, humanize.IBytes(uint64(len(dl.Data)))))
}

func printShellHelp(w io.Writer) {
	help := `
Session:
  .login <code>          Unlock the console with an access code
  .logout                Return to the home screen
  .tables                List tables

Tables:
  .open <table>          Open a table
  .rows                  Reload the open table
  .new                   Open a form for a new row
  .edit <row>            Open a form for the numbered row
  .set <field> <value>   Change a form field
  .form                  Show the open form
  .save / .cancel        Save or discard the form
  .delete <row>          Delete the numbered row (confirm with .yes)

Files:
  .files                 Open the file store root
  .cd <folder|..>        Enter a folder or go up
  .ls                    Reload the current folder
  .mkdir <name>          Create a folder
  .upload <path>         Upload a local file here
  .get <n> [path]        Download the numbered file
  .rm <n>                Delete the numbered entry

  .clear                 Clear the screen
  .quit / .exit          Exit the shell
`
	_, _ = fmt.Fprintln(w, help)
}
