package console

import "github.com/leapstack-labs/leapconsole/pkg/core"

// Action is a typed event applied to State by Reduce.
type Action interface {
	action()
}

// Navigation.
type (
	// GoHome returns to the home screen and ends the session.
	GoHome struct{}
	// ShowLogin opens the login form and ends the session.
	ShowLogin struct{}
	// ShowFolders returns to the table list.
	ShowFolders struct{}
	// ShowTable closes any form and returns to the current table.
	ShowTable struct{}
	// DismissError clears the general error banner and any notice.
	DismissError struct{}
)

// Auth gate.
type (
	// CodeEdited records the login input, upper-cased as typed.
	CodeEdited struct{ Code string }
	// LoginStarted marks a verification in flight.
	LoginStarted struct{}
	// LoginSucceeded authenticates the session.
	LoginSucceeded struct{}
	// LoginFailed leaves the session unauthenticated with a code error.
	LoginFailed struct{ Message string }
	// LaunchCodeSet records an access code taken from the launch URL.
	LaunchCodeSet struct{ Code string }
	// AutoLoginFinished marks the one-shot auto-login as spent. ResetURL
	// clears the launch code.
	AutoLoginFinished struct{ ResetURL bool }
)

// Gateway lifecycle.
type (
	// RequestStarted marks a gateway call in flight.
	RequestStarted struct{}
	// RequestFailed ends a gateway call with a banner message.
	RequestFailed struct{ Message string }
)

// Table data.
type (
	// TablesLoaded replaces the table list.
	TablesLoaded struct{ Tables []core.TableRef }
	// TableLoaded replaces columns and rows together and shows the table.
	TableLoaded struct{ Data *core.TableData }
	// CreateStarted opens the create form seeded with defaults.
	CreateStarted struct{ Form core.Row }
	// EditStarted opens the edit form for a row snapshot.
	EditStarted struct{ Row core.Row }
	// FieldChanged sets one form field.
	FieldChanged struct {
		Column string
		Value  any
	}
	// RowSaved closes the form after a successful create or update.
	RowSaved struct{}
	// DeleteRequested opens the delete confirmation for a row.
	DeleteRequested struct{ Row core.Row }
	// DeleteCancelled closes the delete confirmation.
	DeleteCancelled struct{}
	// RowDeleted closes the delete confirmation after a successful delete.
	RowDeleted struct{}
)

// File store.
type (
	// FilesLoaded replaces the folder and its entries together.
	FilesLoaded struct {
		Folder string
		Files  []core.FileEntry
	}
	// NewFolderRequested opens the new-folder overlay.
	NewFolderRequested struct{}
	// NewFolderNameEdited records the new-folder input.
	NewFolderNameEdited struct{ Name string }
	// NewFolderCancelled closes the new-folder overlay.
	NewFolderCancelled struct{}
	// FolderCreated closes the new-folder overlay after success.
	FolderCreated struct{}
	// NoticeShown sets the informational message.
	NoticeShown struct{ Message string }
)

func (GoHome) action()              {}
func (ShowLogin) action()           {}
func (ShowFolders) action()         {}
func (ShowTable) action()           {}
func (DismissError) action()        {}
func (CodeEdited) action()          {}
func (LoginStarted) action()        {}
func (LoginSucceeded) action()      {}
func (LoginFailed) action()         {}
func (LaunchCodeSet) action()       {}
func (AutoLoginFinished) action()   {}
func (RequestStarted) action()      {}
func (RequestFailed) action()       {}
func (TablesLoaded) action()        {}
func (TableLoaded) action()         {}
func (CreateStarted) action()       {}
func (EditStarted) action()         {}
func (FieldChanged) action()        {}
func (RowSaved) action()            {}
func (DeleteRequested) action()     {}
func (DeleteCancelled) action()     {}
func (RowDeleted) action()          {}
func (FilesLoaded) action()         {}
func (NewFolderRequested) action()  {}
func (NewFolderNameEdited) action() {}
func (NewFolderCancelled) action()  {}
func (FolderCreated) action()       {}
func (NoticeShown) action()         {}
