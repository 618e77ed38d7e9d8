package tui

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.ForceQuit) {
		return a, tea.Quit
	}
	if a.state.Loading {
		return a, nil
	}

	switch {
	case a.prompt != promptNone:
		return a.handlePrompt(msg)
	case a.state.DeleteConfirm:
		return a.handleDeleteConfirm(msg)
	case a.state.NewFolder:
		return a.handleNewFolder(msg)
	}

	if !a.typing() {
		if a.showHelp {
			a.showHelp = false
			return a, nil
		}
		switch {
		case key.Matches(msg, a.keys.Help):
			a.showHelp = true
			return a, nil
		case key.Matches(msg, a.keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, a.keys.Dismiss) && (a.state.Error != "" || a.state.Notice != ""):
			a.con.Dispatch(console.DismissError{})
			a.syncState()
			return a, nil
		}
	}

	switch a.state.View {
	case console.ViewHome:
		return a.handleHome(msg)
	case console.ViewLogin:
		return a.handleLogin(msg)
	case console.ViewFolders:
		return a.handleFolders(msg)
	case console.ViewTable:
		return a.handleTable(msg)
	case console.ViewEdit, console.ViewCreate:
		return a.handleForm(msg)
	case console.ViewFiles:
		return a.handleFiles(msg)
	}
	return a, nil
}

// typing reports whether keys go to the text input.
func (a *App) typing() bool {
	return a.state.View == console.ViewLogin || a.state.View.IsForm()
}

func (a *App) moveCursor(msg tea.KeyMsg) bool {
	switch {
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return true
	case key.Matches(msg, a.keys.Down):
		if a.cursor < a.listLen()-1 {
			a.cursor++
		}
		return true
	}
	return false
}

func (a *App) handleHome(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Enter) {
		a.con.ShowLogin()
		a.syncState()
	}
	return a, nil
}

func (a *App) handleLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.GoHome()
		a.syncState()
		return a, nil
	case key.Matches(msg, a.keys.Enter):
		if !a.state.CanSubmitCode() {
			return a, nil
		}
		code := a.input.Value()
		return a, a.op(func(ctx context.Context) error {
			return a.con.SubmitCode(ctx, code)
		})
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.con.EditCode(a.input.Value())
	a.syncState()
	return a, cmd
}

func (a *App) handleFolders(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.moveCursor(msg) {
		return a, nil
	}
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.GoHome()
		a.syncState()
	case key.Matches(msg, a.keys.Refresh):
		return a, a.op(a.con.LoadTables)
	case key.Matches(msg, a.keys.Enter):
		if a.cursor < len(a.state.Tables) {
			name := a.state.Tables[a.cursor].Name
			return a, a.op(func(ctx context.Context) error {
				return a.con.OpenTable(ctx, name)
			})
		}
		return a, a.op(a.con.OpenFiles)
	}
	return a, nil
}

func (a *App) selectedRow() (core.Row, bool) {
	if a.cursor < 0 || a.cursor >= len(a.state.Rows) {
		return nil, false
	}
	return a.state.Rows[a.cursor], true
}

func (a *App) handleTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.moveCursor(msg) {
		return a, nil
	}
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.ShowFolders()
	case key.Matches(msg, a.keys.Refresh):
		table := a.state.Table
		return a, a.op(func(ctx context.Context) error {
			return a.con.OpenTable(ctx, table)
		})
	case key.Matches(msg, a.keys.New):
		if err := a.con.NewRow(); err != nil {
			return a, nil
		}
	case key.Matches(msg, a.keys.Edit), key.Matches(msg, a.keys.Enter):
		if row, ok := a.selectedRow(); ok {
			_ = a.con.EditRow(row)
		}
	case key.Matches(msg, a.keys.Delete):
		if row, ok := a.selectedRow(); ok {
			a.con.ConfirmDelete(row)
		}
	}
	a.syncState()
	return a, nil
}

func (a *App) handleDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm), key.Matches(msg, a.keys.Enter):
		return a, a.op(a.con.Delete)
	case key.Matches(msg, a.keys.Back), msg.String() == "n":
		a.con.CancelDelete()
		a.syncState()
	}
	return a, nil
}

func (a *App) handleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.CancelForm()
		a.syncState()
		return a, nil
	case key.Matches(msg, a.keys.Save):
		return a, a.op(a.con.Save)
	case key.Matches(msg, a.keys.NextField):
		a.moveField(1)
		return a, nil
	case key.Matches(msg, a.keys.PrevField):
		a.moveField(-1)
		return a, nil
	}

	if len(a.state.Columns) == 0 {
		return a, nil
	}
	col := a.state.Columns[a.field]
	if a.state.FieldLocked(col) {
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.con.SetFieldText(col, a.input.Value())
	a.syncState()
	return a, cmd
}

func (a *App) selectedEntry() (core.FileEntry, bool) {
	if a.cursor < 0 || a.cursor >= len(a.state.Files) {
		return core.FileEntry{}, false
	}
	return a.state.Files[a.cursor], true
}

func (a *App) handleFiles(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.moveCursor(msg) {
		return a, nil
	}
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.ShowFolders()
		a.syncState()
	case key.Matches(msg, a.keys.Parent):
		if a.state.Folder != core.RootFolder {
			return a, a.op(a.con.FolderBack)
		}
	case key.Matches(msg, a.keys.Refresh):
		return a, a.op(a.con.RefreshFiles)
	case key.Matches(msg, a.keys.New):
		a.con.ShowNewFolder()
		a.syncState()
	case key.Matches(msg, a.keys.Upload):
		a.prompt = promptUpload
		a.focusInput("")
	case key.Matches(msg, a.keys.Delete):
		if entry, ok := a.selectedEntry(); ok {
			a.pendingFile = entry
			a.prompt = promptDeleteFile
		}
	case key.Matches(msg, a.keys.Enter):
		entry, ok := a.selectedEntry()
		if !ok {
			return a, nil
		}
		if entry.IsFolder() {
			return a, a.op(func(ctx context.Context) error {
				return a.con.OpenFolder(ctx, entry.Name)
			})
		}
		return a, a.download(entry)
	}
	return a, nil
}

func (a *App) handleNewFolder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Back):
		a.con.CancelNewFolder()
		a.input.Blur()
		a.syncState()
		return a, nil
	case key.Matches(msg, a.keys.Enter):
		a.input.Blur()
		return a, a.op(func(ctx context.Context) error {
			return a.con.CreateFolder(ctx, "")
		})
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.con.EditNewFolderName(a.input.Value())
	a.syncState()
	return a, cmd
}

func (a *App) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Back) {
		a.prompt = promptNone
		a.input.Blur()
		return a, nil
	}

	switch a.prompt {
	case promptDeleteFile:
		if key.Matches(msg, a.keys.Confirm) || key.Matches(msg, a.keys.Enter) {
			a.prompt = promptNone
			id := a.pendingFile.ID
			return a, a.op(func(ctx context.Context) error {
				return a.con.DeleteFile(ctx, id)
			})
		}
		if msg.String() == "n" {
			a.prompt = promptNone
		}
		return a, nil

	case promptUpload:
		if key.Matches(msg, a.keys.Enter) {
			a.prompt = promptNone
			a.input.Blur()
			return a, a.upload(strings.TrimSpace(a.input.Value()))
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

// download fetches a file and saves it under the download directory.
func (a *App) download(entry core.FileEntry) tea.Cmd {
	return a.op(func(ctx context.Context) error {
		dl, err := a.con.Download(ctx, entry)
		if err != nil {
			return err
		}
		path := filepath.Join(a.downloadDir, filepath.Base(dl.Name))
		if err := os.WriteFile(path, dl.Data, 0o600); err != nil {
			a.con.Dispatch(console.RequestFailed{Message: "Could not save " + dl.Name + ": " + err.Error()})
			return err
		}
		a.con.Dispatch(console.NoticeShown{Message: "Saved " + path})
		return nil
	})
}

// upload reads a local file into the current folder.
func (a *App) upload(path string) tea.Cmd {
	return a.op(func(ctx context.Context) error {
		data, err := os.ReadFile(path) //nolint:gosec // path typed by the user
		if err != nil {
			a.con.Dispatch(console.RequestFailed{Message: fmt.Sprintf("Cannot read %s: %v", path, err)})
			return err
		}
		name := filepath.Base(path)
		return a.con.Upload(ctx, core.Upload{
			Name:     name,
			Data:     data,
			MimeType: detectMimeType(name, data),
		})
	})
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}
