package web

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func render(t *testing.T, s console.State) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, App(s).Render(context.Background(), &buf))
	return buf.String()
}

func TestApp_EscapesData(t *testing.T) {
	tests := []struct {
		name    string
		state   console.State
		want    []string
		notWant []string
	}{
		{
			name: "banner error",
			state: console.State{
				View:  console.ViewHome,
				Error: `<img src=x onerror="alert(1)">`,
			},
			want:    []string{`&lt;img src=x onerror=&#34;alert(1)&#34;&gt;`},
			notWant: []string{`<img src=x`},
		},
		{
			name: "table cells",
			state: console.State{
				View:    console.ViewTable,
				Table:   "notes",
				Columns: []string{"body"},
				Rows:    []core.Row{{"body": "<script>alert(1)</script>"}},
			},
			want:    []string{"&lt;script&gt;alert(1)&lt;/script&gt;", "1 rows"},
			notWant: []string{"<script>alert(1)"},
		},
		{
			name: "form values",
			state: console.State{
				View:    console.ViewEdit,
				Table:   "notes",
				Columns: []string{"body"},
				Form:    core.Row{"body": `say "hi"`},
			},
			want:    []string{`value="say &#34;hi&#34;"`, `data-bind="form.body"`},
			notWant: []string{`value="say "hi""`},
		},
		{
			name: "file names",
			state: console.State{
				View:   console.ViewFiles,
				Folder: "/",
				Files:  []core.FileEntry{{ID: "a b", Name: `x"><b>.txt`, Type: core.KindFile}},
			},
			want:    []string{`href="/download/a%20b"`, `x&#34;&gt;&lt;b&gt;.txt`},
			notWant: []string{`<b>.txt`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := render(t, tt.state)
			assert.Contains(t, html, `<main id="app">`)
			for _, s := range tt.want {
				assert.Contains(t, html, s)
			}
			for _, s := range tt.notWant {
				assert.NotContains(t, html, s)
			}
		})
	}
}

func TestApp_ActionButtons(t *testing.T) {
	html := render(t, console.State{View: console.ViewFolders, Tables: []core.TableRef{{Name: "a&b"}}})

	assert.Contains(t, html, `<button type="button" data-on:click="@post(&#39;/actions/table?name=a%26b&#39;)">a&amp;b</button>`)
	assert.Contains(t, html, `@post(&#39;/actions/home&#39;)">Log out</button>`)
}

func TestPage_Shell(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Page("<console>", App(console.State{})).Render(context.Background(), &buf))
	html := buf.String()

	assert.True(t, len(html) > 0 && html[:15] == "<!doctype html>", html)
	assert.Contains(t, html, "<title>&lt;console&gt;</title>")
	assert.Contains(t, html, `href="/static/console.css"`)
	assert.Contains(t, html, `data-init="@get('/updates')"`)
	assert.Contains(t, html, "Admin console for tables and files.")
}
