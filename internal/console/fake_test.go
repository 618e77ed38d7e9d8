package console

import (
	"context"
	"fmt"
	"sync"

	"github.com/leapstack-labs/leapconsole/pkg/client"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// fakeGateway is an in-memory backend. Rows are identified by snapshot.
type fakeGateway struct {
	mu sync.Mutex

	stored   map[string]bool
	valid    map[string]bool
	calls    map[string]int
	failNext error

	columns map[string][]string
	rows    map[string][]core.Row

	files  map[string]core.FileEntry
	parent map[string]string
	data   map[string][]byte
	nextID int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		stored: map[string]bool{},
		valid:  map[string]bool{},
		calls:  map[string]int{},
		columns: map[string][]string{
			"users": {"id", "username", "email", "age"},
		},
		rows: map[string][]core.Row{
			"users": {
				{"id": 1, "username": "alice", "email": "alice@example.com", "age": 25},
				{"id": 2, "username": "bob", "email": "bob@example.com", "age": 30},
			},
		},
		files:  map[string]core.FileEntry{},
		parent: map[string]string{},
		data:   map[string][]byte{},
	}
}

func (f *fakeGateway) record(name string) error {
	f.calls[name]++
	if err := f.failNext; err != nil {
		f.failNext = nil
		return err
	}
	return nil
}

func (f *fakeGateway) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeGateway) StoreCode(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("StoreCode"); err != nil {
		return err
	}
	f.stored[code] = true
	return nil
}

func (f *fakeGateway) VerifyCode(_ context.Context, code string) (*core.VerifyCodeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("VerifyCode"); err != nil {
		return nil, err
	}
	if f.valid[code] || f.stored[code] {
		return &core.VerifyCodeResponse{Valid: true}, nil
	}
	return &core.VerifyCodeResponse{Valid: false, Message: "Unknown code"}, nil
}

func (f *fakeGateway) ListTables(context.Context) ([]core.TableRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListTables"); err != nil {
		return nil, err
	}
	var refs []core.TableRef
	for name := range f.columns {
		refs = append(refs, core.TableRef{Name: name})
	}
	return refs, nil
}

func (f *fakeGateway) GetTable(_ context.Context, name string) (*core.TableData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetTable"); err != nil {
		return nil, err
	}
	cols, ok := f.columns[name]
	if !ok {
		return nil, &client.APIError{Status: 500, Message: fmt.Sprintf("relation %q does not exist", name)}
	}
	rows := make([]core.Row, len(f.rows[name]))
	for i, r := range f.rows[name] {
		rows[i] = r.Clone()
	}
	return &core.TableData{Name: name, Columns: cols, Rows: rows}, nil
}

func (f *fakeGateway) CreateRow(_ context.Context, table string, fields core.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRow"); err != nil {
		return err
	}
	row := core.Row{}
	for k, v := range fields {
		if v != nil && v != "" {
			row[k] = v
		}
	}
	if len(row) == 0 {
		return &client.APIError{Status: 400, Message: "No data to insert"}
	}
	if _, ok := row["id"]; !ok {
		row["id"] = len(f.rows[table]) + 100
	}
	f.rows[table] = append(f.rows[table], row)
	return nil
}

func (f *fakeGateway) UpdateRow(_ context.Context, table string, old, updated core.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateRow"); err != nil {
		return err
	}
	i := core.IndexOf(f.rows[table], old)
	if i < 0 {
		return &client.APIError{Status: 404, Message: "Row not found"}
	}
	f.rows[table][i] = updated.Clone()
	return nil
}

func (f *fakeGateway) DeleteRow(_ context.Context, table string, row core.Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteRow"); err != nil {
		return err
	}
	i := core.IndexOf(f.rows[table], row)
	if i < 0 {
		return &client.APIError{Status: 404, Message: "Row not found"}
	}
	f.rows[table] = append(f.rows[table][:i], f.rows[table][i+1:]...)
	return nil
}

func (f *fakeGateway) ListFiles(_ context.Context, folder string) ([]core.FileEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ListFiles"); err != nil {
		return nil, err
	}
	out := []core.FileEntry{}
	for id, e := range f.files {
		if f.parent[id] == folder {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeGateway) add(entry core.FileEntry, parent string, data []byte) {
	f.nextID++
	entry.ID = fmt.Sprintf("f-%d", f.nextID)
	f.files[entry.ID] = entry
	f.parent[entry.ID] = parent
	if data != nil {
		f.data[entry.ID] = data
	}
}

func (f *fakeGateway) CreateFolder(_ context.Context, name, parent string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateFolder"); err != nil {
		return err
	}
	f.add(core.FileEntry{Name: name, Type: core.KindFolder}, parent, nil)
	return nil
}

func (f *fakeGateway) UploadFile(_ context.Context, up core.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UploadFile"); err != nil {
		return err
	}
	size, mime := up.Size, up.MimeType
	f.add(core.FileEntry{Name: up.Name, Type: core.KindFile, FileSize: &size, MimeType: &mime},
		up.ParentFolder, append([]byte(nil), up.Data...))
	return nil
}

func (f *fakeGateway) DownloadFile(_ context.Context, id string) (*core.Download, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DownloadFile"); err != nil {
		return nil, err
	}
	e, ok := f.files[id]
	if !ok {
		return nil, &client.APIError{Status: 404, Message: "File not found"}
	}
	return &core.Download{MimeType: e.Mime(), Data: append([]byte(nil), f.data[id]...)}, nil
}

func (f *fakeGateway) DeleteFile(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteFile"); err != nil {
		return err
	}
	if _, ok := f.files[id]; !ok {
		return &client.APIError{Status: 404, Message: "File not found"}
	}
	delete(f.files, id)
	delete(f.parent, id)
	delete(f.data, id)
	return nil
}

// memorySource is a CodeSource backed by a string.
type memorySource struct {
	code    string
	cleared bool
}

func (m *memorySource) Load(context.Context) (string, error) { return m.code, nil }

func (m *memorySource) Clear(context.Context) error {
	m.code = ""
	m.cleared = true
	return nil
}
