package console

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/internal/testutil"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

func newTestConsole(t *testing.T) (*Console, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	return New(gw, Options{Logger: testutil.NewTestLogger(t)}), gw
}

func unlocked(t *testing.T) (*Console, *fakeGateway) {
	t.Helper()
	c, gw := newTestConsole(t)
	gw.valid["ABC123"] = true
	require.NoError(t, c.SubmitCode(context.Background(), "abc123"))
	return c, gw
}

func TestSubmitCode_WrongLengthMakesNoCall(t *testing.T) {
	for _, code := range []string{"", "ABC", "ABC1234", "  AB  "} {
		t.Run(code, func(t *testing.T) {
			c, gw := newTestConsole(t)
			c.ShowLogin()

			err := c.SubmitCode(context.Background(), code)
			require.Error(t, err)
			var lenErr *core.CodeLengthError
			assert.ErrorAs(t, err, &lenErr)

			assert.Zero(t, gw.count("VerifyCode"))
			s := c.State()
			assert.False(t, s.Authenticated)
			assert.Equal(t, ViewLogin, s.View)
			assert.NotEmpty(t, s.CodeError)
		})
	}
}

func TestSubmitCode_AuthenticatedExactlyWhenValid(t *testing.T) {
	ctx := context.Background()

	c, gw := newTestConsole(t)
	require.NoError(t, gw.StoreCode(ctx, "XYZ789"))
	require.NoError(t, c.SubmitCode(ctx, " xyz789 "))

	s := c.State()
	assert.True(t, s.Authenticated)
	assert.Equal(t, ViewFolders, s.View)
	assert.Empty(t, s.CodeError)
	assert.Equal(t, []core.TableRef{{Name: "users"}}, s.Tables)

	c2, _ := newTestConsole(t)
	err := c2.SubmitCode(ctx, "NOPE00")
	require.Error(t, err)
	s = c2.State()
	assert.False(t, s.Authenticated)
	assert.Equal(t, ViewLogin, s.View)
	assert.Equal(t, "Unknown code", s.CodeError)
}

func TestSubmitCode_TransportErrorGoesToCodeSlot(t *testing.T) {
	c, gw := newTestConsole(t)
	gw.failNext = errors.New("connection refused")

	require.Error(t, c.SubmitCode(context.Background(), "ABC123"))
	s := c.State()
	assert.Equal(t, "connection refused", s.CodeError)
	assert.Empty(t, s.Error)
	assert.False(t, s.Loading)
}

func TestGatewaysRequireAuthentication(t *testing.T) {
	c, gw := newTestConsole(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.LoadTables(ctx), ErrNotAuthenticated)
	assert.ErrorIs(t, c.OpenTable(ctx, "users"), ErrNotAuthenticated)
	assert.ErrorIs(t, c.OpenFiles(ctx), ErrNotAuthenticated)
	assert.Zero(t, gw.count("ListTables"))
	assert.Zero(t, gw.count("GetTable"))
	assert.Zero(t, gw.count("ListFiles"))
}

func TestOpenTable_ColumnsAndRowsTogether(t *testing.T) {
	c, _ := unlocked(t)
	require.NoError(t, c.OpenTable(context.Background(), "users"))

	s := c.State()
	assert.Equal(t, ViewTable, s.View)
	assert.Equal(t, "users", s.Table)
	assert.Equal(t, []string{"id", "username", "email", "age"}, s.Columns)
	assert.Len(t, s.Rows, 2)

	err := c.OpenTable(context.Background(), "missing")
	require.Error(t, err)
	s = c.State()
	assert.Equal(t, "users", s.Table)
	assert.Len(t, s.Rows, 2)
	assert.Contains(t, s.Error, "Failed to load table missing")
}

func TestCreateRow_RowVisibleAfterRefetch(t *testing.T) {
	ctx := context.Background()
	c, gw := unlocked(t)
	require.NoError(t, c.OpenTable(ctx, "users"))

	require.NoError(t, c.NewRow())
	s := c.State()
	assert.Equal(t, ViewCreate, s.View)
	assert.Nil(t, s.Form["id"])
	assert.Equal(t, "New Item", s.Form["username"])
	assert.True(t, s.FieldLocked("id"))

	c.SetField("username", "carol")
	c.SetField("email", "carol@example.com")
	c.SetFieldText("age", "41")
	require.NoError(t, c.Save(ctx))

	s = c.State()
	assert.Equal(t, ViewTable, s.View)
	assert.Nil(t, s.Form)
	assert.Equal(t, 2, gw.count("GetTable"))
	found := false
	for _, r := range s.Rows {
		if r["username"] == "carol" {
			found = true
			assert.Equal(t, "carol@example.com", r["email"])
			assert.True(t, core.ValuesEqual(41, r["age"]))
		}
	}
	assert.True(t, found, "created row not in re-fetched table")
}

func TestUpdateRow_UsesEditedSnapshot(t *testing.T) {
	ctx := context.Background()
	c, _ := unlocked(t)
	require.NoError(t, c.OpenTable(ctx, "users"))

	original := c.State().Rows[1]
	require.NoError(t, c.EditRow(original))
	s := c.State()
	assert.Equal(t, ViewEdit, s.View)
	assert.False(t, s.FieldLocked("id"))

	c.SetFieldText("email", "robert@example.com")
	require.NoError(t, c.Save(ctx))

	s = c.State()
	assert.Equal(t, -1, core.IndexOf(s.Rows, original))
	assert.Equal(t, "robert@example.com", s.Rows[1]["email"])
}

func TestSave_FailureKeepsFormOpen(t *testing.T) {
	ctx := context.Background()
	c, gw := unlocked(t)
	require.NoError(t, c.OpenTable(ctx, "users"))
	require.NoError(t, c.EditRow(core.Row{"id": 99}))

	require.Error(t, c.Save(ctx))
	s := c.State()
	assert.Equal(t, ViewEdit, s.View)
	assert.Equal(t, "Save failed: Row not found", s.Error)
	assert.Equal(t, 1, gw.count("UpdateRow"))
}

func TestDeleteRow_SnapshotGoneAfterRefetch(t *testing.T) {
	ctx := context.Background()
	c, _ := unlocked(t)
	require.NoError(t, c.OpenTable(ctx, "users"))

	target := c.State().Rows[0]
	c.ConfirmDelete(target)
	s := c.State()
	assert.True(t, s.DeleteConfirm)
	assert.Equal(t, ViewTable, s.View)

	require.NoError(t, c.Delete(ctx))
	s = c.State()
	assert.False(t, s.DeleteConfirm)
	assert.Nil(t, s.DeleteRow)
	assert.Equal(t, -1, core.IndexOf(s.Rows, target))
	assert.Len(t, s.Rows, 1)
}

func TestCancelDelete(t *testing.T) {
	ctx := context.Background()
	c, gw := unlocked(t)
	require.NoError(t, c.OpenTable(ctx, "users"))

	c.ConfirmDelete(c.State().Rows[0])
	c.CancelDelete()
	assert.False(t, c.State().DeleteConfirm)
	assert.Error(t, c.Delete(ctx))
	assert.Zero(t, gw.count("DeleteRow"))
}

func TestUploadDownload_BytesIdentical(t *testing.T) {
	ctx := context.Background()
	c, _ := unlocked(t)
	require.NoError(t, c.OpenFiles(ctx))

	payload := bytes.Repeat([]byte{0x00, 0x7f, 0xff, 'x'}, 1000)
	require.NoError(t, c.Upload(ctx, core.Upload{Name: "blob.bin", Data: payload, MimeType: "application/octet-stream"}))

	s := c.State()
	require.Len(t, s.Files, 1)
	entry := s.Files[0]
	assert.Equal(t, int64(len(payload)), entry.Size())

	dl, err := c.Download(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, "blob.bin", dl.Name)
	assert.Equal(t, payload, dl.Data)
	assert.Equal(t, "Downloaded blob.bin", c.State().Notice)
}

func TestFolders_OpenThenBackRestoresPath(t *testing.T) {
	ctx := context.Background()
	c, _ := unlocked(t)
	require.NoError(t, c.OpenFiles(ctx))
	assert.Equal(t, "/", c.State().Folder)

	c.ShowNewFolder()
	c.EditNewFolderName("x")
	require.NoError(t, c.CreateFolder(ctx, ""))
	s := c.State()
	assert.False(t, s.NewFolder)
	require.Len(t, s.Files, 1)
	assert.True(t, s.Files[0].IsFolder())

	require.NoError(t, c.OpenFolder(ctx, "x"))
	assert.Equal(t, "/x", c.State().Folder)
	require.NoError(t, c.CreateFolder(ctx, "y"))
	require.NoError(t, c.OpenFolder(ctx, "y"))
	assert.Equal(t, "/x/y", c.State().Folder)

	require.NoError(t, c.FolderBack(ctx))
	assert.Equal(t, "/x", c.State().Folder)
	require.NoError(t, c.FolderBack(ctx))
	assert.Equal(t, "/", c.State().Folder)
	require.NoError(t, c.FolderBack(ctx))
	assert.Equal(t, "/", c.State().Folder)
}

func TestDeleteFile(t *testing.T) {
	ctx := context.Background()
	c, _ := unlocked(t)
	require.NoError(t, c.OpenFiles(ctx))
	require.NoError(t, c.Upload(ctx, core.Upload{Name: "a.txt", Data: []byte("a")}))

	id := c.State().Files[0].ID
	require.NoError(t, c.DeleteFile(ctx, id))
	assert.Empty(t, c.State().Files)

	require.Error(t, c.DeleteFile(ctx, id))
	assert.Equal(t, "Delete failed: File not found", c.State().Error)
}

func TestGoHomeEndsSession(t *testing.T) {
	c, gw := unlocked(t)
	c.GoHome()

	s := c.State()
	assert.Equal(t, ViewHome, s.View)
	assert.False(t, s.Authenticated)
	assert.Empty(t, s.Tables)
	assert.ErrorIs(t, c.LoadTables(context.Background()), ErrNotAuthenticated)
	assert.Equal(t, 1, gw.count("ListTables"))
}

func TestRunAutoLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("persisted code wins and is cleared", func(t *testing.T) {
		c, gw := newTestConsole(t)
		src := &memorySource{code: "pers01"}

		tried, err := c.RunAutoLogin(ctx, AutoLogin{Source: src, URLCode: "URL001", Delay: -1})
		require.NoError(t, err)
		assert.True(t, tried)
		assert.True(t, gw.stored["PERS01"])
		assert.False(t, gw.stored["URL001"])
		assert.True(t, src.cleared)

		s := c.State()
		assert.True(t, s.Authenticated)
		assert.Equal(t, ViewFolders, s.View)
		assert.Empty(t, s.LaunchCode)
		assert.True(t, s.AutoLoginDone)
	})

	t.Run("url code used when nothing persisted", func(t *testing.T) {
		c, gw := newTestConsole(t)
		tried, err := c.RunAutoLogin(ctx, AutoLogin{Source: &memorySource{}, URLCode: "url001", Delay: -1})
		require.NoError(t, err)
		assert.True(t, tried)
		assert.Equal(t, 1, gw.count("StoreCode"))
		assert.True(t, c.State().Authenticated)
	})

	t.Run("failure leaves login view with error", func(t *testing.T) {
		c, gw := newTestConsole(t)
		gw.failNext = errors.New("backend down")
		src := &memorySource{code: "PERS01"}

		tried, err := c.RunAutoLogin(ctx, AutoLogin{Source: src, Delay: -1})
		require.Error(t, err)
		assert.True(t, tried)
		assert.False(t, src.cleared)

		s := c.State()
		assert.False(t, s.Authenticated)
		assert.Equal(t, ViewLogin, s.View)
		assert.Contains(t, s.CodeError, "backend down")
	})

	t.Run("no code is a no-op", func(t *testing.T) {
		c, gw := newTestConsole(t)
		tried, err := c.RunAutoLogin(ctx, AutoLogin{Delay: -1})
		require.NoError(t, err)
		assert.False(t, tried)
		assert.Zero(t, gw.count("StoreCode"))
		assert.Equal(t, ViewHome, c.State().View)
	})

	t.Run("runs at most once", func(t *testing.T) {
		c, gw := newTestConsole(t)
		_, err := c.RunAutoLogin(ctx, AutoLogin{URLCode: "ABC123", Delay: -1})
		require.NoError(t, err)

		_, err = c.RunAutoLogin(ctx, AutoLogin{URLCode: "ABC123", Delay: -1})
		assert.ErrorIs(t, err, ErrAutoLoginSpent)
		assert.Equal(t, 1, gw.count("StoreCode"))
	})

	t.Run("rearmed after logout", func(t *testing.T) {
		c, gw := newTestConsole(t)
		_, err := c.RunAutoLogin(ctx, AutoLogin{URLCode: "FIRST1", Delay: -1})
		require.NoError(t, err)
		c.GoHome()
		require.False(t, c.State().Authenticated)

		c.RearmAutoLogin()
		tried, err := c.RunAutoLogin(ctx, AutoLogin{URLCode: "FRESH2", Delay: -1})
		require.NoError(t, err)
		assert.True(t, tried)
		assert.True(t, gw.stored["FRESH2"])
		assert.True(t, c.State().Authenticated)
		assert.Empty(t, c.State().LaunchCode)
	})

	t.Run("cancelled during delay", func(t *testing.T) {
		c, gw := newTestConsole(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.RunAutoLogin(cctx, AutoLogin{URLCode: "ABC123"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, gw.count("StoreCode"))
	})
}

func TestLaunchURL(t *testing.T) {
	u, err := url.Parse("http://localhost:8080/console?code=ABC123&tab=files")
	require.NoError(t, err)

	assert.Equal(t, "ABC123", LaunchCode(u.Query()))
	assert.Equal(t, "http://localhost:8080/console?tab=files", ResetLaunchURL(u).String())
	assert.Equal(t, "ABC123", LaunchCode(u.Query()), "original URL untouched")
}
