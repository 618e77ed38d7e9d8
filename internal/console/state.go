// Package console holds the view-state model of the admin console.
//
// State is a plain value reduced from typed actions (see Reduce). A Store
// owns the current State and notifies subscribers on every change. A
// Console drives the gateways (auth, tables, files) and dispatches the
// actions that keep State in sync with the backend. Front ends (terminal,
// browser, shell) render State and call Console methods in response to
// user input.
package console

import (
	"slices"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// View is one of the console's screens.
type View string

// Views.
const (
	ViewHome    View = "home"
	ViewLogin   View = "login"
	ViewFolders View = "folders"
	ViewTable   View = "table"
	ViewEdit    View = "edit"
	ViewCreate  View = "create"
	ViewFiles   View = "files"
)

// IsForm reports whether v is one of the row form views.
func (v View) IsForm() bool {
	return v == ViewEdit || v == ViewCreate
}

// State is everything a front end needs to render the console.
type State struct {
	View          View
	Authenticated bool
	Loading       bool

	// Error is the general banner; CodeError belongs to the login form.
	Error     string
	CodeError string
	CodeInput string

	Tables []core.TableRef

	// Table, Columns, Rows and PrimaryKey are only ever replaced together.
	Table      string
	Columns    []string
	Rows       []core.Row
	PrimaryKey []string
	Duplicates int

	// EditRow is the snapshot identifying the row under edit.
	EditRow core.Row
	Form    core.Row

	DeleteConfirm bool
	DeleteRow     core.Row

	// Folder always names the folder whose entries are in Files.
	Folder        string
	Files         []core.FileEntry
	NewFolder     bool
	NewFolderName string

	// Notice is a transient informational message (e.g. a saved download).
	Notice string

	// LaunchCode is an access code supplied by the launch URL. It is
	// cleared once auto-login succeeds.
	LaunchCode    string
	AutoLoginDone bool
}

// Initial returns the state a fresh console starts in.
func Initial() State {
	return State{View: ViewHome, Folder: core.RootFolder}
}

// Clone returns a copy of s that shares no mutable data with it.
func (s State) Clone() State {
	out := s
	out.Tables = slices.Clone(s.Tables)
	out.Columns = slices.Clone(s.Columns)
	out.PrimaryKey = slices.Clone(s.PrimaryKey)
	if s.Rows != nil {
		out.Rows = make([]core.Row, len(s.Rows))
		for i, r := range s.Rows {
			out.Rows[i] = r.Clone()
		}
	}
	out.EditRow = s.EditRow.Clone()
	out.Form = s.Form.Clone()
	out.DeleteRow = s.DeleteRow.Clone()
	out.Files = slices.Clone(s.Files)
	return out
}

// CanSubmitCode reports whether the login form may be submitted.
func (s State) CanSubmitCode() bool {
	if s.Loading {
		return false
	}
	_, err := core.ValidateCode(s.CodeInput)
	return err == nil
}

// FieldLocked reports whether a form field is read-only in the current view.
func (s State) FieldLocked(column string) bool {
	return s.View == ViewCreate && IsKeyColumn(column, s.PrimaryKey)
}
