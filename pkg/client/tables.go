package client

import (
	"context"
	"net/http"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// ListTables returns the tables exposed by the backend.
func (c *Client) ListTables(ctx context.Context) ([]core.TableRef, error) {
	var out core.TablesResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "tables"), nil, &out); err != nil {
		return nil, err
	}
	refs := make([]core.TableRef, len(out.Tables))
	for i, name := range out.Tables {
		refs[i] = core.TableRef{Name: name}
	}
	return refs, nil
}

// GetTable fetches a table's columns and rows in one call.
func (c *Client) GetTable(ctx context.Context, name string) (*core.TableData, error) {
	var out core.TableDataResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "tables", name), nil, &out); err != nil {
		return nil, err
	}
	rows := out.Data
	if rows == nil {
		rows = []core.Row{}
	}
	return &core.TableData{
		Name:       name,
		Columns:    out.Columns,
		Rows:       rows,
		PrimaryKey: out.PrimaryKey,
	}, nil
}

// CreateRow inserts a row built from the given fields.
func (c *Client) CreateRow(ctx context.Context, table string, fields core.Row) error {
	return c.do(ctx, http.MethodPost, c.endpoint(nil, "tables", table, "rows"), fields, nil)
}

// UpdateRow replaces the row identified by old with the values in updated.
func (c *Client) UpdateRow(ctx context.Context, table string, old, updated core.Row) error {
	body := core.UpdateRowRequest{Old: old, New: updated}
	return c.do(ctx, http.MethodPut, c.endpoint(nil, "tables", table, "rows"), body, nil)
}

// DeleteRow deletes the row identified by its snapshot.
func (c *Client) DeleteRow(ctx context.Context, table string, row core.Row) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(nil, "tables", table, "rows"), row, nil)
}
