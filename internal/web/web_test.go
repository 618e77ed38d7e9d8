package web

import (
	"bufio"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/internal/server"
	"github.com/leapstack-labs/leapconsole/internal/store"
	"github.com/leapstack-labs/leapconsole/internal/testutil"
	"github.com/leapstack-labs/leapconsole/pkg/client"
)

type fixture struct {
	srv     *Server
	ts      *httptest.Server
	backend *store.Store
	http    *http.Client
}

func setup(t *testing.T) *fixture {
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

	api := httptest.NewServer(server.New(server.Config{
		Backend:        st,
		RequireSession: true,
		SessionSecret:  "api-secret-api-secret-api-secret",
		Logger:         logger,
	}).Handler())
	t.Cleanup(api.Close)

	srv := New(Config{
		NewConsole: func() (*console.Console, error) {
			c, err := client.New(client.Config{BaseURL: api.URL + "/api", Logger: logger})
			if err != nil {
				return nil, err
			}
			return console.New(c, console.Options{Logger: logger}), nil
		},
		SessionSecret:  "web-secret-web-secret-web-secret",
		AutoLoginDelay: -1,
		Logger:         logger,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{srv: srv, ts: ts, backend: st, http: newBrowser(t)}
}

func newBrowser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func (f *fixture) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := f.http.Get(f.ts.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// act posts an action with signals and returns the patch stream.
func (f *fixture) act(t *testing.T, path, signals string) string {
	t.Helper()
	if signals == "" {
		signals = "{}"
	}
	resp, err := f.http.Post(f.ts.URL+"/actions/"+path, "application/json", strings.NewReader(signals))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return string(body)
}

// session returns the only browser session.
func (f *fixture) session(t *testing.T) *browserSession {
	t.Helper()
	f.srv.consoles.mu.Lock()
	defer f.srv.consoles.mu.Unlock()
	require.Len(t, f.srv.consoles.sessions, 1)
	for _, b := range f.srv.consoles.sessions {
		return b
	}
	return nil
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.backend.StoreCode(context.Background(), "WEB123"))
	f.get(t, "/")
	f.act(t, "login", "")
	body := f.act(t, "submit", `{"code":"web123"}`)
	require.True(t, f.session(t).con.State().Authenticated, body)
}

func TestPage_StartsSession(t *testing.T) {
	f := setup(t)

	resp, body := f.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `<main id="app">`)
	assert.Contains(t, body, "@get('/updates')")
	assert.Contains(t, body, "Log in")
	assert.Equal(t, 1, f.srv.consoles.len())

	// The cookie brings the browser back to the same console.
	f.get(t, "/")
	assert.Equal(t, 1, f.srv.consoles.len())

	// A second browser gets its own.
	other := newBrowser(t)
	resp, err := other.Get(f.ts.URL + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 2, f.srv.consoles.len())
}

func TestActions_WithoutSession(t *testing.T) {
	f := setup(t)

	body := f.act(t, "login", "")
	assert.Contains(t, body, "no console session")

	_, body = f.get(t, "/updates")
	assert.Contains(t, body, "no console session")

	resp, _ := f.get(t, "/download/abc")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestActions_Login(t *testing.T) {
	f := setup(t)
	f.get(t, "/")

	body := f.act(t, "login", "")
	assert.Contains(t, body, "Access code")

	body = f.act(t, "submit", `{"code":"nope42"}`)
	assert.Contains(t, body, store.MsgInvalidCode)
	assert.False(t, f.session(t).con.State().Authenticated)

	require.NoError(t, f.backend.StoreCode(context.Background(), "WEB123"))
	body = f.act(t, "submit", `{"code":"web123"}`)
	for _, table := range []string{"products", "tasks", "users"} {
		assert.Contains(t, body, table)
	}
	assert.Equal(t, console.ViewFolders, f.session(t).con.State().View)

	body = f.act(t, "bogus", "")
	assert.Contains(t, body, `unknown action`)
}

func TestActions_TableCRUD(t *testing.T) {
	f := setup(t)
	f.login(t)

	body := f.act(t, "table?name=products", "")
	assert.Contains(t, body, "Laptop")
	assert.Contains(t, body, "5 rows")

	body = f.act(t, "new", "")
	assert.Contains(t, body, "assigned by the database")
	assert.Contains(t, body, "New Item")

	body = f.act(t, "save", `{"form":{"id":"99","name":"Lamp","price":"12.5","stock":"3","category":"Home"}}`)
	assert.Contains(t, body, "Lamp")
	s := f.session(t).con.State()
	require.Equal(t, console.ViewTable, s.View, s.Error)
	require.Len(t, s.Rows, 6)

	idx := -1
	for i, row := range s.Rows {
		if row["name"] == "Lamp" {
			idx = i
			assert.NotEqual(t, "99", console.InputText(row["id"]))
		}
	}
	require.NotEqual(t, -1, idx)

	q := "?row=" + strconv.Itoa(idx)
	body = f.act(t, "edit"+q, "")
	assert.Contains(t, body, `value="Lamp"`)
	f.act(t, "save", `{"form":{"name":"Lantern"}}`)
	s = f.session(t).con.State()
	require.Equal(t, console.ViewTable, s.View, s.Error)
	assert.Equal(t, "Lantern", s.Rows[idx]["name"])

	body = f.act(t, "delete"+q, "")
	assert.Contains(t, body, "Delete this row?")
	f.act(t, "confirm-delete", "")
	assert.Len(t, f.session(t).con.State().Rows, 5)

	body = f.act(t, "edit?row=42", "")
	assert.Contains(t, body, "no longer on screen")
	f.act(t, "dismiss", "")
	assert.Empty(t, f.session(t).con.State().Error)
}

func TestActions_Files(t *testing.T) {
	f := setup(t)
	f.login(t)

	body := f.act(t, "files", "")
	assert.Contains(t, body, "This folder is empty")

	f.act(t, "new-folder", "")
	body = f.act(t, "create-folder", `{"folder":"docs"}`)
	assert.Contains(t, body, "docs/")

	payload := base64.StdEncoding.EncodeToString([]byte("hi there"))
	body = f.act(t, "upload", `{"upload":[{"name":"a.txt","contents":"`+payload+`","mime":"text/plain"}]}`)
	assert.Contains(t, body, "Uploaded a.txt")

	files := f.session(t).con.State().Files
	require.Len(t, files, 2)
	file := files[1]
	assert.Equal(t, "a.txt", file.Name)

	resp, content := f.get(t, "/download/"+file.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hi there", content)
	assert.Equal(t, `attachment; filename=a.txt`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	f.act(t, "delete-file?id="+file.ID, "")
	assert.Len(t, f.session(t).con.State().Files, 1)

	body = f.act(t, "open-folder?name=docs", "")
	assert.Equal(t, "/docs", f.session(t).con.State().Folder)
	assert.Contains(t, body, "folder-back")
	f.act(t, "folder-back", "")
	assert.Equal(t, "/", f.session(t).con.State().Folder)

	body = f.act(t, "upload", `{"upload":[]}`)
	assert.Contains(t, body, "Choose a file to upload.")
}

func TestAutoLogin_LaunchCode(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.backend.StoreCode(context.Background(), "URL123"))

	f.get(t, "/?code=url123")
	b := f.session(t)
	require.Eventually(t, func() bool {
		s := b.con.State()
		return s.Authenticated && s.AutoLoginDone
	}, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, b.con.State().LaunchCode)

	// The update stream tells the browser to drop the code from its URL.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ts.URL+"/updates", nil)
	require.NoError(t, err)
	resp, err := f.http.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	found := false
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), "replaceState") {
			found = true
			cancel()
			break
		}
	}
	assert.True(t, found)
	assert.Empty(t, b.takeResetURL())

	// A reload without a code leaves the session alone.
	f.get(t, "/")
	assert.True(t, b.con.State().Authenticated)
}

func TestAutoLogin_EveryPageLoad(t *testing.T) {
	tests := []struct {
		name  string
		first string
		next  string
	}{
		{name: "fresh code after logout", first: "FIRST1", next: "FRESH2"},
		{name: "same code relaunched", first: "AGAIN1", next: "again1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			authenticated := func(b *browserSession) func() bool {
				return func() bool {
					s := b.con.State()
					return s.Authenticated && s.AutoLoginDone && s.LaunchCode == ""
				}
			}

			f.get(t, "/?code="+tt.first)
			b := f.session(t)
			require.Eventually(t, authenticated(b), 5*time.Second, 10*time.Millisecond)

			f.act(t, "home", "")
			require.False(t, b.con.State().Authenticated)

			f.get(t, "/?code="+tt.next)
			assert.Same(t, b, f.session(t))
			assert.Eventually(t, authenticated(b), 5*time.Second, 10*time.Millisecond)
		})
	}
}

func TestRegistry_DropIdle(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	g := newRegistry(func() (*console.Console, error) { return console.New(nil, console.Options{}), nil }, time.Hour)
	g.now = func() time.Time { return now }

	stale, err := g.create()
	require.NoError(t, err)
	now = now.Add(50 * time.Minute)
	fresh, err := g.create()
	require.NoError(t, err)

	assert.Equal(t, 1, g.dropIdle(now.Add(20*time.Minute)))
	_, ok := g.get(stale.id)
	assert.False(t, ok)
	_, ok = g.get(fresh.id)
	assert.True(t, ok)
}

func TestStripDataURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aGk=", "aGk="},
		{"data:text/plain;base64,aGk=", "aGk="},
		{"data:broken", "data:broken"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripDataURL(tt.in))
	}
}
