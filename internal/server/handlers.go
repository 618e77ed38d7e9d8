package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// =============================================================================
// Auth
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Ping(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) storeCode(w http.ResponseWriter, r *http.Request) {
	var req core.CodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.backend.StoreCode(r.Context(), req.Code); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.StoreCodeResponse{Success: true})
}

func (s *Server) verifyCode(w http.ResponseWriter, r *http.Request) {
	var req core.CodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	verdict, err := s.backend.VerifyCode(r.Context(), req.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !verdict.Valid {
		writeJSON(w, http.StatusUnauthorized, core.VerifyCodeResponse{Valid: false, Message: verdict.Message})
		return
	}
	if err := s.markAuthenticated(w, r); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.VerifyCodeResponse{Valid: true})
}

// =============================================================================
// Tables
// =============================================================================

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.backend.ListTables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, core.TablesResponse{Tables: tables})
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := s.backend.GetTable(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := data.Rows
	if rows == nil {
		rows = []core.Row{}
	}
	writeJSON(w, http.StatusOK, core.TableDataResponse{
		Columns:    data.Columns,
		Data:       rows,
		PrimaryKey: data.PrimaryKey,
	})
}

func (s *Server) createRow(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var row core.Row
	if err := decodeBody(r, &row); err != nil {
		s.fail(w, r, err)
		return
	}
	inserted, err := s.backend.CreateRow(r.Context(), name, row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.MutationResponse{Success: true, Data: inserted})
}

func (s *Server) updateRow(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req core.UpdateRowRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.backend.UpdateRow(r.Context(), name, req.Old, req.New)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.MutationResponse{Success: true, Affected: n})
}

func (s *Server) deleteRow(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var row core.Row
	if err := decodeBody(r, &row); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.backend.DeleteRow(r.Context(), name, row)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.MutationResponse{Success: true, Affected: n})
}

// =============================================================================
// Files
// =============================================================================

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.backend.ListFiles(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if files == nil {
		files = []core.FileEntry{}
	}
	writeJSON(w, http.StatusOK, core.FilesResponse{Files: files})
}

func (s *Server) createFolder(w http.ResponseWriter, r *http.Request) {
	var req core.CreateFolderRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.backend.CreateFolder(r.Context(), req.Name, req.ParentFolder)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.MutationResponse{Success: true, ID: entry.ID})
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	var req core.UploadFileRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := decodePayload(req.FileData)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.FileSize != 0 && req.FileSize != int64(len(data)) {
		s.logger.Debug("advisory file size differs from payload",
			"name", req.Name, "advisory", req.FileSize, "actual", len(data))
	}

	entry, err := s.backend.SaveFile(r.Context(), core.Upload{
		Name:         req.Name,
		ParentFolder: req.ParentFolder,
		Data:         data,
		MimeType:     req.MimeType,
		Size:         int64(len(data)),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, core.MutationResponse{Success: true, ID: entry.ID})
}

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dl, err := s.backend.GetFile(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.FileDataResponse{
		Name:     dl.Name,
		FileData: base64.StdEncoding.EncodeToString(dl.Data),
		MimeType: dl.MimeType,
	})
}

func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.backend.DeleteFile(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.MutationResponse{Success: true})
}

// decodePayload decodes base64 file data. Browser data URLs
// ("data:<mime>;base64,<data>") are accepted too.
func decodePayload(raw string) ([]byte, error) {
	if strings.HasPrefix(raw, "data:") {
		if i := strings.IndexByte(raw, ','); i >= 0 {
			raw = raw[i+1:]
		}
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, &bodyError{err: errors.New("file_data is not valid base64")}
	}
	return data, nil
}
