package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// ListFiles lists the entries of a folder. An empty folder means the root.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]core.FileEntry, error) {
	query := url.Values{"folder": {core.CleanFolder(folder)}}
	var out core.FilesResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(query, "files"), nil, &out); err != nil {
		return nil, err
	}
	if out.Files == nil {
		out.Files = []core.FileEntry{}
	}
	return out.Files, nil
}

// CreateFolder creates a folder named name inside parent.
func (c *Client) CreateFolder(ctx context.Context, name, parent string) error {
	body := core.CreateFolderRequest{Name: name, ParentFolder: core.CleanFolder(parent)}
	return c.do(ctx, http.MethodPost, c.endpoint(nil, "files", "folder"), body, nil)
}

// UploadFile sends a file base64-encoded. Size and mime type are passed
// through as given.
func (c *Client) UploadFile(ctx context.Context, up core.Upload) error {
	body := core.UploadFileRequest{
		Name:         up.Name,
		ParentFolder: core.CleanFolder(up.ParentFolder),
		FileData:     base64.StdEncoding.EncodeToString(up.Data),
		MimeType:     up.MimeType,
		FileSize:     up.Size,
	}
	return c.do(ctx, http.MethodPost, c.endpoint(nil, "files", "upload"), body, nil)
}

// DownloadFile fetches a file and decodes its base64 payload.
func (c *Client) DownloadFile(ctx context.Context, id string) (*core.Download, error) {
	var out core.FileDataResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "files", id), nil, &out); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(out.FileData)
	if err != nil {
		return nil, fmt.Errorf("file %s: invalid base64 payload: %w", id, err)
	}
	return &core.Download{Name: out.Name, MimeType: out.MimeType, Data: data}, nil
}

// DeleteFile deletes a file or folder by id.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(nil, "files", id), nil, nil)
}
