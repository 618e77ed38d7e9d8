package web

//go:generate templ generate

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func breadcrumb(s console.State) string {
	switch s.View {
	case console.ViewLogin:
		return "Log in"
	case console.ViewFolders:
		return "Tables"
	case console.ViewTable:
		return "Tables / " + s.Table
	case console.ViewEdit:
		return "Tables / " + s.Table + " / Edit"
	case console.ViewCreate:
		return "Tables / " + s.Table + " / New"
	case console.ViewFiles:
		return "Files " + s.Folder
	default:
		return "Home"
	}
}

// post builds the datastar expression that posts an action.
func post(action string, query url.Values) string {
	target := "/actions/" + action
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return fmt.Sprintf("@post('%s')", target)
}

func rowQuery(i int) url.Values {
	return url.Values{"row": {strconv.Itoa(i)}}
}

func tableSummary(s console.State, visible int) string {
	summary := fmt.Sprintf("%d rows", len(s.Rows))
	if hidden := len(s.Columns) - visible; hidden > 0 {
		summary += fmt.Sprintf(", %d more columns in the form", hidden)
	}
	return summary
}

// formSignals seeds the form signal with the current field values.
func formSignals(s console.State) string {
	values := make(map[string]string, len(s.Columns))
	for _, col := range s.Columns {
		values[col] = console.InputText(s.Form[col])
	}
	initial, _ := json.Marshal(map[string]any{"form": values})
	return string(initial)
}

func downloadURL(f core.FileEntry) templ.SafeURL {
	return templ.SafeURL("/download/" + url.PathEscape(f.ID))
}
