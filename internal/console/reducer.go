package console

import (
	"strings"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// DefaultCodeError is shown when the backend rejects a code without a message.
const DefaultCodeError = "Invalid code. Please try again."

// Reduce applies a to s and returns the next state. It never mutates s.
func Reduce(s State, a Action) State {
	next := s.Clone()

	switch act := a.(type) {
	case GoHome:
		next = endSession(next)
		next.View = ViewHome
	case ShowLogin:
		next = endSession(next)
		next.View = ViewLogin
	case ShowFolders:
		if next.Authenticated {
			next.View = ViewFolders
			next.Error = ""
			next.DeleteConfirm = false
			next.DeleteRow = nil
			next.NewFolder = false
		}
	case ShowTable:
		if next.Table != "" {
			next.View = ViewTable
			next.Form = nil
			next.EditRow = nil
			next.Error = ""
		}
	case DismissError:
		next.Error = ""
		next.Notice = ""

	case CodeEdited:
		next.CodeInput = strings.ToUpper(act.Code)
		next.CodeError = ""
	case LoginStarted:
		next.Loading = true
		next.CodeError = ""
	case LoginSucceeded:
		next.Loading = false
		next.Authenticated = true
		next.CodeError = ""
		next.CodeInput = ""
		next.View = ViewFolders
	case LoginFailed:
		next.Loading = false
		next.Authenticated = false
		next.View = ViewLogin
		next.CodeError = act.Message
		if next.CodeError == "" {
			next.CodeError = DefaultCodeError
		}
	case LaunchCodeSet:
		next.LaunchCode = act.Code
	case AutoLoginFinished:
		next.AutoLoginDone = true
		if act.ResetURL {
			next.LaunchCode = ""
		}

	case RequestStarted:
		next.Loading = true
	case RequestFailed:
		next.Loading = false
		next.Error = act.Message

	case TablesLoaded:
		next.Loading = false
		next.Tables = act.Tables
	case TableLoaded:
		next.Loading = false
		if act.Data != nil {
			next.Table = act.Data.Name
			next.Columns = act.Data.Columns
			next.Rows = act.Data.Rows
			next.PrimaryKey = act.Data.PrimaryKey
			next.Duplicates = 0
			if len(act.Data.PrimaryKey) == 0 {
				next.Duplicates = core.CountDuplicates(act.Data.Rows)
			}
		}
		if !next.View.IsForm() && !next.DeleteConfirm {
			next.View = ViewTable
		}
	case CreateStarted:
		next.View = ViewCreate
		next.EditRow = nil
		next.Form = act.Form
		next.Error = ""
	case EditStarted:
		next.View = ViewEdit
		next.EditRow = act.Row
		next.Form = act.Row.Clone()
		next.Error = ""
	case FieldChanged:
		if next.View.IsForm() {
			if next.Form == nil {
				next.Form = core.Row{}
			}
			next.Form[act.Column] = act.Value
		}
	case RowSaved:
		next.Loading = false
		next.View = ViewTable
		next.Form = nil
		next.EditRow = nil
		next.Error = ""
	case DeleteRequested:
		next.DeleteConfirm = true
		next.DeleteRow = act.Row
	case DeleteCancelled, RowDeleted:
		next.Loading = false
		next.DeleteConfirm = false
		next.DeleteRow = nil

	case FilesLoaded:
		next.Loading = false
		next.View = ViewFiles
		next.Folder = core.CleanFolder(act.Folder)
		next.Files = act.Files
	case NewFolderRequested:
		next.NewFolder = true
		next.NewFolderName = ""
	case NewFolderNameEdited:
		next.NewFolderName = act.Name
	case NewFolderCancelled, FolderCreated:
		next.Loading = false
		next.NewFolder = false
		next.NewFolderName = ""
	case NoticeShown:
		next.Loading = false
		next.Notice = act.Message
	}

	return next
}

// endSession drops authentication and everything fetched under it.
func endSession(s State) State {
	fresh := Initial()
	fresh.CodeInput = s.CodeInput
	fresh.LaunchCode = s.LaunchCode
	fresh.AutoLoginDone = s.AutoLoginDone
	return fresh
}
