package console

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// Gateway is the REST backend as the console sees it. *client.Client
// satisfies it.
type Gateway interface {
	StoreCode(ctx context.Context, code string) error
	VerifyCode(ctx context.Context, code string) (*core.VerifyCodeResponse, error)

	ListTables(ctx context.Context) ([]core.TableRef, error)
	GetTable(ctx context.Context, name string) (*core.TableData, error)
	CreateRow(ctx context.Context, table string, fields core.Row) error
	UpdateRow(ctx context.Context, table string, old, updated core.Row) error
	DeleteRow(ctx context.Context, table string, row core.Row) error

	ListFiles(ctx context.Context, folder string) ([]core.FileEntry, error)
	CreateFolder(ctx context.Context, name, parent string) error
	UploadFile(ctx context.Context, up core.Upload) error
	DownloadFile(ctx context.Context, id string) (*core.Download, error)
	DeleteFile(ctx context.Context, id string) error
}

// Options configures a Console.
type Options struct {
	Logger *slog.Logger
	// Rules seed create forms. Nil uses DefaultRules.
	Rules []DefaultRule
}

// Console drives the gateways and keeps its Store in sync with the backend.
// Every method blocks until the gateway call completes; front ends run them
// off their UI loop. Overlapping calls of the same kind are not guarded.
type Console struct {
	gw     Gateway
	store  *Store
	rules  []DefaultRule
	logger *slog.Logger

	autoLoginMu    sync.Mutex
	autoLoginSpent bool
}

// New creates a console over gw.
func New(gw Gateway, opts Options) *Console {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules
	}
	return &Console{
		gw:     gw,
		store:  NewStore(),
		rules:  rules,
		logger: logger,
	}
}

// Store returns the console's state store.
func (c *Console) Store() *Store { return c.store }

// State returns a copy of the current state.
func (c *Console) State() State { return c.store.State() }

// Dispatch applies a purely local action.
func (c *Console) Dispatch(a Action) State { return c.store.Dispatch(a) }

// =============================================================================
// Navigation
// =============================================================================

// GoHome returns to the home screen and ends the session.
func (c *Console) GoHome() { c.store.Dispatch(GoHome{}) }

// ShowLogin opens the login form and ends the session.
func (c *Console) ShowLogin() { c.store.Dispatch(ShowLogin{}) }

// ShowFolders returns to the table list.
func (c *Console) ShowFolders() { c.store.Dispatch(ShowFolders{}) }

// CancelForm closes the row form without saving.
func (c *Console) CancelForm() { c.store.Dispatch(ShowTable{}) }

// =============================================================================
// Auth gate
// =============================================================================

// EditCode records the login input.
func (c *Console) EditCode(code string) { c.store.Dispatch(CodeEdited{Code: code}) }

// SubmitCode verifies code with the backend. A code that is not exactly
// CodeLength characters after normalization is rejected without a call.
// On success the session is authenticated and the table list is loaded.
func (c *Console) SubmitCode(ctx context.Context, code string) error {
	normalized, err := core.ValidateCode(code)
	if err != nil {
		c.store.Dispatch(LoginFailed{Message: ErrorMessage(err)})
		return err
	}
	return c.verify(ctx, normalized)
}

func (c *Console) verify(ctx context.Context, code string) error {
	c.store.Dispatch(LoginStarted{})

	res, err := c.gw.VerifyCode(ctx, code)
	if err != nil {
		c.logger.Debug("code verification failed", slog.String("error", err.Error()))
		c.store.Dispatch(LoginFailed{Message: ErrorMessage(err)})
		return err
	}
	if !res.Valid {
		c.store.Dispatch(LoginFailed{Message: res.Message})
		msg := res.Message
		if msg == "" {
			msg = DefaultCodeError
		}
		return errors.New(msg)
	}

	c.store.Dispatch(LoginSucceeded{})
	c.logger.Info("console unlocked")
	return c.LoadTables(ctx)
}

// =============================================================================
// Table data
// =============================================================================

// LoadTables refreshes the table list.
func (c *Console) LoadTables(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.store.Dispatch(RequestStarted{})
	tables, err := c.gw.ListTables(ctx)
	if err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Failed to load tables", err)})
		return err
	}
	c.store.Dispatch(TablesLoaded{Tables: tables})
	return nil
}

// OpenTable loads a table's columns and rows and shows it.
func (c *Console) OpenTable(ctx context.Context, name string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.store.Dispatch(RequestStarted{})
	return c.reloadTable(ctx, name)
}

func (c *Console) reloadTable(ctx context.Context, name string) error {
	data, err := c.gw.GetTable(ctx, name)
	if err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Failed to load table "+name, err)})
		return err
	}
	c.store.Dispatch(TableLoaded{Data: data})
	return nil
}

// NewRow opens the create form seeded with defaults for the open table.
func (c *Console) NewRow() error {
	s := c.store.State()
	if s.Table == "" {
		return ErrNoTable
	}
	c.store.Dispatch(CreateStarted{Form: Defaults(s.Columns, s.PrimaryKey, c.rules)})
	return nil
}

// EditRow opens the edit form for a row snapshot.
func (c *Console) EditRow(row core.Row) error {
	if c.store.State().Table == "" {
		return ErrNoTable
	}
	c.store.Dispatch(EditStarted{Row: row})
	return nil
}

// SetField sets a form field to a value.
func (c *Console) SetField(column string, value any) {
	c.store.Dispatch(FieldChanged{Column: column, Value: value})
}

// SetFieldText sets a form field from typed text, keeping the field's
// current type where the text allows.
func (c *Console) SetFieldText(column, raw string) {
	s := c.store.State()
	c.SetField(column, ParseInput(raw, s.Form[column]))
}

// Save submits the open form: an insert in create mode, an update keyed by
// the edited row's snapshot in edit mode. The table is re-fetched after
// success.
func (c *Console) Save(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	s := c.store.State()
	if !s.View.IsForm() {
		return errors.New("no form is open")
	}

	c.store.Dispatch(RequestStarted{})
	var err error
	if s.View == ViewCreate {
		err = c.gw.CreateRow(ctx, s.Table, s.Form)
	} else {
		err = c.gw.UpdateRow(ctx, s.Table, s.EditRow, s.Form)
	}
	if err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Save failed", err)})
		return err
	}

	c.logger.Debug("row saved", slog.String("table", s.Table), slog.String("mode", string(s.View)))
	c.store.Dispatch(RowSaved{})
	return c.reloadTable(ctx, s.Table)
}

// ConfirmDelete opens the delete confirmation for a row.
func (c *Console) ConfirmDelete(row core.Row) {
	c.store.Dispatch(DeleteRequested{Row: row})
}

// CancelDelete closes the delete confirmation.
func (c *Console) CancelDelete() { c.store.Dispatch(DeleteCancelled{}) }

// Delete removes the row awaiting confirmation and re-fetches the table.
func (c *Console) Delete(ctx context.Context) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	s := c.store.State()
	if !s.DeleteConfirm || s.DeleteRow == nil {
		return errors.New("no row is awaiting deletion")
	}

	c.store.Dispatch(RequestStarted{})
	if err := c.gw.DeleteRow(ctx, s.Table, s.DeleteRow); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Delete failed", err)})
		return err
	}
	c.store.Dispatch(RowDeleted{})
	return c.reloadTable(ctx, s.Table)
}

// =============================================================================
// File store
// =============================================================================

// OpenFiles lists the root folder.
func (c *Console) OpenFiles(ctx context.Context) error {
	return c.listFolder(ctx, core.RootFolder)
}

// OpenFolder enters the named child of the current folder.
func (c *Console) OpenFolder(ctx context.Context, name string) error {
	return c.listFolder(ctx, core.JoinFolder(c.store.State().Folder, name))
}

// FolderBack moves to the parent of the current folder.
func (c *Console) FolderBack(ctx context.Context) error {
	return c.listFolder(ctx, core.ParentFolder(c.store.State().Folder))
}

// RefreshFiles re-lists the current folder.
func (c *Console) RefreshFiles(ctx context.Context) error {
	return c.listFolder(ctx, c.store.State().Folder)
}

func (c *Console) listFolder(ctx context.Context, folder string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	folder = core.CleanFolder(folder)
	c.store.Dispatch(RequestStarted{})
	files, err := c.gw.ListFiles(ctx, folder)
	if err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Failed to load files", err)})
		return err
	}
	c.store.Dispatch(FilesLoaded{Folder: folder, Files: files})
	return nil
}

// ShowNewFolder opens the new-folder overlay.
func (c *Console) ShowNewFolder() { c.store.Dispatch(NewFolderRequested{}) }

// EditNewFolderName records the new-folder input.
func (c *Console) EditNewFolderName(name string) {
	c.store.Dispatch(NewFolderNameEdited{Name: name})
}

// CancelNewFolder closes the new-folder overlay.
func (c *Console) CancelNewFolder() { c.store.Dispatch(NewFolderCancelled{}) }

// CreateFolder creates a folder in the current folder and re-lists it. An
// empty name uses the new-folder input.
func (c *Console) CreateFolder(ctx context.Context, name string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	s := c.store.State()
	if name == "" {
		name = s.NewFolderName
	}
	name = strings.TrimSpace(name)
	if err := core.ValidateEntryName(name); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Cannot create folder", err)})
		return err
	}

	c.store.Dispatch(RequestStarted{})
	if err := c.gw.CreateFolder(ctx, name, s.Folder); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Failed to create folder", err)})
		return err
	}
	c.store.Dispatch(FolderCreated{})
	return c.listFolder(ctx, s.Folder)
}

// Upload stores data as a file in the current folder and re-lists it. A
// zero size is replaced by the payload length.
func (c *Console) Upload(ctx context.Context, up core.Upload) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	s := c.store.State()
	if up.ParentFolder == "" {
		up.ParentFolder = s.Folder
	}
	if up.Size == 0 {
		up.Size = int64(len(up.Data))
	}
	if err := core.ValidateEntryName(up.Name); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Cannot upload", err)})
		return err
	}

	c.store.Dispatch(RequestStarted{})
	if err := c.gw.UploadFile(ctx, up); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Upload failed", err)})
		return err
	}
	c.store.Dispatch(NoticeShown{Message: "Uploaded " + up.Name})
	return c.listFolder(ctx, up.ParentFolder)
}

// Download fetches a file's content. The caller saves it; name falls back
// to the listed entry name when the backend does not echo one.
func (c *Console) Download(ctx context.Context, entry core.FileEntry) (*core.Download, error) {
	if err := c.requireAuth(); err != nil {
		return nil, err
	}
	c.store.Dispatch(RequestStarted{})
	dl, err := c.gw.DownloadFile(ctx, entry.ID)
	if err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Download failed", err)})
		return nil, err
	}
	if dl.Name == "" {
		dl.Name = entry.Name
	}
	if dl.MimeType == "" {
		dl.MimeType = entry.Mime()
	}
	c.store.Dispatch(NoticeShown{Message: "Downloaded " + dl.Name})
	return dl, nil
}

// DeleteFile removes a file or folder and re-lists the current folder.
func (c *Console) DeleteFile(ctx context.Context, id string) error {
	if err := c.requireAuth(); err != nil {
		return err
	}
	c.store.Dispatch(RequestStarted{})
	if err := c.gw.DeleteFile(ctx, id); err != nil {
		c.store.Dispatch(RequestFailed{Message: failure("Delete failed", err)})
		return err
	}
	return c.listFolder(ctx, c.store.State().Folder)
}

func (c *Console) requireAuth() error {
	if !c.store.State().Authenticated {
		c.store.Dispatch(RequestFailed{Message: ErrorMessage(ErrNotAuthenticated)})
		return ErrNotAuthenticated
	}
	return nil
}
