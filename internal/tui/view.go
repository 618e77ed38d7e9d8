package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("leapconsole"))
	b.WriteString(" ")
	b.WriteString(crumbStyle.Render(a.breadcrumb()))
	b.WriteString("\n\n")

	if a.state.Error != "" {
		b.WriteString(errorStyle.Render(a.state.Error))
		b.WriteString("\n\n")
	}
	if a.state.Notice != "" {
		b.WriteString(noticeStyle.Render(a.state.Notice))
		b.WriteString("\n\n")
	}

	switch a.state.View {
	case console.ViewHome:
		b.WriteString(a.viewHome())
	case console.ViewLogin:
		b.WriteString(a.viewLogin())
	case console.ViewFolders:
		b.WriteString(a.viewFolders())
	case console.ViewTable:
		b.WriteString(a.viewTable())
	case console.ViewEdit, console.ViewCreate:
		b.WriteString(a.viewForm())
	case console.ViewFiles:
		b.WriteString(a.viewFiles())
	}

	if overlay := a.viewOverlay(); overlay != "" {
		b.WriteString("\n")
		b.WriteString(overlayStyle.Render(overlay))
		b.WriteString("\n")
	}

	if a.state.Loading {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render("Working..."))
	}

	b.WriteString("\n")
	if a.showHelp {
		b.WriteString(a.help.FullHelpView([][]key.Binding{a.bindings()}))
	} else {
		b.WriteString(a.help.ShortHelpView(a.bindings()))
	}
	return b.String()
}

func (a *App) breadcrumb() string {
	switch a.state.View {
	case console.ViewLogin:
		return "Log in"
	case console.ViewFolders:
		return "Tables"
	case console.ViewTable:
		return "Tables / " + a.state.Table
	case console.ViewEdit:
		return "Tables / " + a.state.Table + " / Edit"
	case console.ViewCreate:
		return "Tables / " + a.state.Table + " / New"
	case console.ViewFiles:
		return "Files " + a.state.Folder
	default:
		return "Home"
	}
}

// bindings lists the keys that do something on the current screen.
func (a *App) bindings() []key.Binding {
	k := a.keys
	switch {
	case a.prompt != promptNone, a.state.DeleteConfirm:
		return []key.Binding{k.Confirm, k.Back}
	case a.state.NewFolder:
		return []key.Binding{k.Enter, k.Back}
	}
	switch a.state.View {
	case console.ViewHome:
		return []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in")), k.Quit}
	case console.ViewLogin:
		return []key.Binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")), k.Back}
	case console.ViewFolders:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Refresh, key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "log out")), k.Quit}
	case console.ViewTable:
		return []key.Binding{k.Up, k.Down, k.New, k.Edit, k.Delete, k.Refresh, k.Back, k.Dismiss, k.Quit}
	case console.ViewEdit, console.ViewCreate:
		return []key.Binding{k.NextField, k.PrevField, k.Save, k.Back}
	case console.ViewFiles:
		return []key.Binding{k.Up, k.Down, k.Enter, k.Parent, k.New, k.Upload, k.Delete, k.Back, k.Dismiss, k.Quit}
	}
	return nil
}

func (a *App) viewHome() string {
	return "Admin console for tables and files.\n" +
		mutedStyle.Render("Press enter to log in with an access code.") + "\n"
}

func (a *App) viewLogin() string {
	var b strings.Builder
	b.WriteString("Access code\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	if a.state.CodeError != "" {
		b.WriteString(errorStyle.Render(a.state.CodeError))
	} else {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d characters", core.CodeLength)))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) listItem(i int, text string) string {
	if i == a.cursor {
		return selectedStyle.Render("> "+text) + "\n"
	}
	return "  " + text + "\n"
}

func (a *App) viewFolders() string {
	var b strings.Builder
	if len(a.state.Tables) == 0 {
		b.WriteString(mutedStyle.Render("No tables") + "\n")
	}
	for i, t := range a.state.Tables {
		b.WriteString(a.listItem(i, t.Name))
	}
	b.WriteString("\n")
	b.WriteString(a.listItem(len(a.state.Tables), "Files"))
	return b.String()
}

func (a *App) viewTable() string {
	s := a.state
	columns := console.VisibleColumns(s.Columns)
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = console.ColumnLabel(col)
	}

	rows := make([][]string, len(s.Rows))
	for i, row := range s.Rows {
		cells := make([]string, len(columns))
		for j, col := range columns {
			cells[j] = console.CellText(row[col])
		}
		rows[i] = cells
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == a.cursor:
				return cellStyle.Inherit(selectedStyle)
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d rows", len(s.Rows))))
	if hidden := len(s.Columns) - len(columns); hidden > 0 {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(", %d more columns in the form", hidden)))
	}
	b.WriteString("\n")
	if s.Duplicates > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf(
			"%d rows duplicate another row and have no primary key; editing one edits them all", s.Duplicates)))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewForm() string {
	s := a.state
	var b strings.Builder
	for i, col := range s.Columns {
		label := labelStyle.Render(console.ColumnLabel(col))
		switch {
		case s.FieldLocked(col):
			b.WriteString(label + mutedStyle.Render("(assigned by the database)"))
		case i == a.field:
			b.WriteString(label + a.input.View())
		default:
			b.WriteString(label + "  " + console.InputText(s.Form[col]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) viewFiles() string {
	s := a.state
	var b strings.Builder
	if len(s.Files) == 0 {
		b.WriteString(mutedStyle.Render("This folder is empty") + "\n")
	}
	for i, f := range s.Files {
		line := f.Name + "/"
		if !f.IsFolder() {
			line = fmt.Sprintf("%-32s %10s  %s", f.Name, humanize.IBytes(uint64(max(f.Size(), 0))), f.Mime())
		}
		b.WriteString(a.listItem(i, line))
	}
	return b.String()
}

func (a *App) viewOverlay() string {
	switch {
	case a.prompt == promptUpload:
		return "Upload file into " + a.state.Folder + "\n" + a.input.View()
	case a.prompt == promptDeleteFile:
		what := "file"
		if a.pendingFile.IsFolder() {
			what = "folder and everything in it"
		}
		return fmt.Sprintf("Delete %s %q? (y/n)", what, a.pendingFile.Name)
	case a.state.DeleteConfirm:
		return "Delete this row? (y/n)"
	case a.state.NewFolder:
		return "New folder in " + a.state.Folder + "\n" + a.input.View()
	}
	return ""
}
