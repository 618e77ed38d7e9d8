package core

// =============================================================================
// REST wire types
// =============================================================================
//
// These types describe the JSON bodies exchanged with the backend. They are
// shared by pkg/client and internal/server so both sides agree on field names.

// CodeRequest is the body of POST /verify-code and POST /store-code.
type CodeRequest struct {
	Code string `json:"code"`
}

// VerifyCodeResponse is the body returned by POST /verify-code.
type VerifyCodeResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// StoreCodeResponse is the body returned by POST /store-code.
type StoreCodeResponse struct {
	Success bool `json:"success"`
}

// TablesResponse is the body returned by GET /tables.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// TableDataResponse is the body returned by GET /tables/{name}.
// PrimaryKey is optional; backends that know the table's key report it so
// clients can prefer key identity over snapshot identity.
type TableDataResponse struct {
	Columns    []string `json:"columns"`
	Data       []Row    `json:"data"`
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// UpdateRowRequest is the body of PUT /tables/{name}/rows.
type UpdateRowRequest struct {
	Old Row `json:"old"`
	New Row `json:"new"`
}

// MutationResponse is returned by row and file mutations.
type MutationResponse struct {
	Success  bool   `json:"success"`
	Data     Row    `json:"data,omitempty"`
	Affected int64  `json:"affected,omitempty"`
	ID       string `json:"id,omitempty"`
}

// FilesResponse is the body returned by GET /files.
type FilesResponse struct {
	Files []FileEntry `json:"files"`
}

// CreateFolderRequest is the body of POST /files/folder.
type CreateFolderRequest struct {
	Name         string `json:"name"`
	ParentFolder string `json:"parent_folder"`
}

// UploadFileRequest is the body of POST /files/upload. FileData is base64.
type UploadFileRequest struct {
	Name         string `json:"name"`
	ParentFolder string `json:"parent_folder"`
	FileData     string `json:"file_data"`
	MimeType     string `json:"mime_type"`
	FileSize     int64  `json:"file_size"`
}

// FileDataResponse is the body returned by GET /files/{id}. FileData is base64.
type FileDataResponse struct {
	Name     string `json:"name,omitempty"`
	FileData string `json:"file_data"`
	MimeType string `json:"mime_type"`
}

// ErrorResponse is the body of every non-2xx response except verify-code.
type ErrorResponse struct {
	Error string `json:"error"`
}
