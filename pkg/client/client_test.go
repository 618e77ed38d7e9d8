package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// recorded captures the last request a fake backend received.
type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newFakeBackend(t *testing.T, status int, response any) (*Client, *recorded) {
	t.Helper()
	rec := &recorded{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.method = r.Method
		rec.path = r.URL.EscapedPath()
		rec.query = r.URL.RawQuery
		rec.body = nil
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &rec.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if response != nil {
			_ = json.NewEncoder(w).Encode(response)
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api"})
	require.NoError(t, err)
	return c, rec
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	c, err := New(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
}

func TestClient_Endpoints(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantPath   string
		wantQuery  string
		wantBody   map[string]any
	}{
		{
			name:       "store code",
			call:       func(c *Client) error { return c.StoreCode(ctx, "ABC123") },
			wantMethod: http.MethodPost,
			wantPath:   "/api/store-code",
			wantBody:   map[string]any{"code": "ABC123"},
		},
		{
			name:       "create row",
			call:       func(c *Client) error { return c.CreateRow(ctx, "users", core.Row{"username": "dave"}) },
			wantMethod: http.MethodPost,
			wantPath:   "/api/tables/users/rows",
			wantBody:   map[string]any{"username": "dave"},
		},
		{
			name: "update row",
			call: func(c *Client) error {
				return c.UpdateRow(ctx, "users", core.Row{"username": "dave"}, core.Row{"username": "eve"})
			},
			wantMethod: http.MethodPut,
			wantPath:   "/api/tables/users/rows",
			wantBody: map[string]any{
				"old": map[string]any{"username": "dave"},
				"new": map[string]any{"username": "eve"},
			},
		},
		{
			name:       "delete row carries the row as body",
			call:       func(c *Client) error { return c.DeleteRow(ctx, "users", core.Row{"username": "dave"}) },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/tables/users/rows",
			wantBody:   map[string]any{"username": "dave"},
		},
		{
			name:       "table names are path escaped",
			call:       func(c *Client) error { return c.DeleteRow(ctx, "odd name", core.Row{"a": 1}) },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/tables/odd%20name/rows",
			wantBody:   map[string]any{"a": float64(1)},
		},
		{
			name:       "create folder",
			call:       func(c *Client) error { return c.CreateFolder(ctx, "docs", "") },
			wantMethod: http.MethodPost,
			wantPath:   "/api/files/folder",
			wantBody:   map[string]any{"name": "docs", "parent_folder": "/"},
		},
		{
			name:       "delete file",
			call:       func(c *Client) error { return c.DeleteFile(ctx, "f-1") },
			wantMethod: http.MethodDelete,
			wantPath:   "/api/files/f-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newFakeBackend(t, http.StatusOK, map[string]any{"success": true})
			require.NoError(t, tt.call(c))
			assert.Equal(t, tt.wantMethod, rec.method)
			assert.Equal(t, tt.wantPath, rec.path)
			assert.Equal(t, tt.wantQuery, rec.query)
			assert.Equal(t, tt.wantBody, rec.body)
		})
	}
}

func TestClient_GetTableKeepsIntegerPrecision(t *testing.T) {
	c, rec := newFakeBackend(t, http.StatusOK, map[string]any{
		"columns":     []string{"id", "price"},
		"data":        []map[string]any{{"id": int64(9007199254740993), "price": 999.99}},
		"primary_key": []string{"id"},
	})

	data, err := c.GetTable(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, "/api/tables/products", rec.path)
	assert.Equal(t, []string{"id", "price"}, data.Columns)
	assert.Equal(t, []string{"id"}, data.PrimaryKey)
	require.Len(t, data.Rows, 1)
	assert.Equal(t, json.Number("9007199254740993"), data.Rows[0]["id"])
}

func TestClient_ListTables(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusOK, core.TablesResponse{Tables: []string{"products", "users"}})

	tables, err := c.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.TableRef{{Name: "products"}, {Name: "users"}}, tables)
}

func TestClient_ListFilesSendsFolderQuery(t *testing.T) {
	c, rec := newFakeBackend(t, http.StatusOK, map[string]any{"files": nil})

	files, err := c.ListFiles(context.Background(), "/docs/2024")
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
	assert.Equal(t, "folder=%2Fdocs%2F2024", rec.query)
}

func TestClient_UploadAndDownloadBase64(t *testing.T) {
	payload := []byte{0x00, 0xff, 0x10, 'h', 'i'}

	c, rec := newFakeBackend(t, http.StatusCreated, map[string]any{"success": true})
	err := c.UploadFile(context.Background(), core.Upload{
		Name: "blob.bin", ParentFolder: "/docs", Data: payload, MimeType: "application/octet-stream", Size: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(payload), rec.body["file_data"])
	assert.Equal(t, float64(5), rec.body["file_size"])
	assert.Equal(t, "/docs", rec.body["parent_folder"])

	c, _ = newFakeBackend(t, http.StatusOK, core.FileDataResponse{
		Name: "blob.bin", FileData: base64.StdEncoding.EncodeToString(payload), MimeType: "application/octet-stream",
	})
	dl, err := c.DownloadFile(context.Background(), "f-1")
	require.NoError(t, err)
	assert.Equal(t, payload, dl.Data)
	assert.Equal(t, "blob.bin", dl.Name)
}

func TestClient_DownloadRejectsBadBase64(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusOK, core.FileDataResponse{FileData: "not base64!"})
	_, err := c.DownloadFile(context.Background(), "f-1")
	assert.Error(t, err)
}

func TestClient_VerifyCode(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		response  any
		wantValid bool
		wantMsg   string
		wantErr   bool
	}{
		{name: "valid", status: http.StatusOK, response: core.VerifyCodeResponse{Valid: true}, wantValid: true},
		{
			name:     "rejected with message",
			status:   http.StatusUnauthorized,
			response: core.VerifyCodeResponse{Valid: false, Message: "Code expired"},
			wantMsg:  "Code expired",
		},
		{name: "server failure", status: http.StatusInternalServerError, response: core.ErrorResponse{Error: "boom"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newFakeBackend(t, tt.status, tt.response)
			res, err := c.VerifyCode(context.Background(), "ABC123")
			assert.Equal(t, "/api/verify-code", rec.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsStatus(err, tt.status))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.Valid)
			assert.Equal(t, tt.wantMsg, res.Message)
		})
	}
}

func TestClient_ErrorBodies(t *testing.T) {
	c, _ := newFakeBackend(t, http.StatusBadRequest, core.ErrorResponse{Error: "No data to insert"})
	err := c.CreateRow(context.Background(), "users", core.Row{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "No data to insert", apiErr.Error())

	c, _ = newFakeBackend(t, http.StatusNotFound, nil)
	err = c.DeleteFile(context.Background(), "missing")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "backend returned 404 Not Found", apiErr.Error())
}
