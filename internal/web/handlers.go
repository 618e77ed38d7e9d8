package web

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// autoLoginTimeout bounds the launch-time login running behind a page load.
const autoLoginTimeout = 30 * time.Second

// Signals are the client-side values posted with every action.
type Signals struct {
	Code   string            `json:"code"`
	Form   map[string]string `json:"form"`
	Folder string            `json:"folder"`
	Upload []UploadSignal    `json:"upload"`
}

// UploadSignal is one file picked in a bound file input.
type UploadSignal struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
	Mime     string `json:"mime"`
}

type action func(ctx context.Context, b *browserSession, r *http.Request, sig Signals) error

func (s *Server) routes(r chi.Router) {
	r.Handle("/static/*", staticHandler())
	r.Get("/", s.handlePage)
	r.Get("/updates", s.handleUpdates)
	r.Get("/download/{id}", s.handleDownload)
	r.Post("/actions/{action}", s.handleAction)
}

// handlePage renders the console for the browser's session, starting one
// when needed. A launch code in the URL starts auto-login on every load.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	b, err := s.session(w, r, true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	code := console.LaunchCode(r.URL.Query())
	if code != "" || s.codeSource != nil {
		if code != "" {
			// Each page load carrying a code is a new launch.
			b.setResetURL(console.ResetLaunchURL(r.URL).String())
			b.con.RearmAutoLogin()
		}
		s.startAutoLogin(b, code)
	}

	if err := Page("leapconsole", App(b.con.State())).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) startAutoLogin(b *browserSession, code string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoLoginTimeout)
		defer cancel()

		tried, err := b.con.RunAutoLogin(ctx, console.AutoLogin{
			Source:  s.codeSource,
			URLCode: code,
			Delay:   s.autoLoginDelay,
		})
		switch {
		case errors.Is(err, console.ErrAutoLoginSpent):
		case err != nil:
			s.logger.Debug("auto-login failed", "session", b.id, "error", err)
		case tried:
			s.logger.Debug("auto-login succeeded", "session", b.id)
		}
	}()
}

// handleUpdates is the long-lived SSE endpoint. It re-renders the app
// whenever the session's console state changes.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	b, err := s.session(w, r, false)
	if err != nil {
		_ = sse.ConsoleError(errNoSession)
		return
	}

	updates := b.con.Store().Subscribe()
	defer b.con.Store().Unsubscribe(updates)

	// The page may be stale by the time the stream connects.
	if err := s.sendApp(sse, b); err != nil {
		_ = sse.ConsoleError(err)
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := s.sendApp(sse, b); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// sendApp patches the app container and, once auto-login has unlocked the
// console, drops the code from the browser's location.
func (s *Server) sendApp(sse *datastar.ServerSentEventGenerator, b *browserSession) error {
	state := b.con.State()
	if err := sse.PatchElementTempl(App(state)); err != nil {
		return err
	}
	if state.AutoLoginDone && state.Authenticated {
		if u := b.takeResetURL(); u != "" {
			return sse.ExecuteScript(fmt.Sprintf("window.history.replaceState(null, '', %s)", strconv.Quote(u)))
		}
	}
	return nil
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	// Read signals BEFORE creating SSE (SSE consumes the request body)
	var sig Signals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.ConsoleError(fmt.Errorf("failed to read signals: %w", err))
		return
	}
	sse := datastar.NewSSE(w, r)

	b, err := s.session(w, r, false)
	if err != nil {
		_ = sse.ConsoleError(errNoSession)
		return
	}

	name := chi.URLParam(r, "action")
	act, ok := actions[name]
	if !ok {
		_ = sse.ConsoleError(fmt.Errorf("unknown action %q", name))
		return
	}
	if err := act(r.Context(), b, r, sig); err != nil {
		s.logger.Debug("action failed", "action", name, "error", err)
	}

	if err := sse.PatchElementTempl(App(b.con.State())); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// handleDownload serves a file as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	b, err := s.session(w, r, false)
	if err != nil {
		http.Error(w, errNoSession.Error(), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	entry := core.FileEntry{ID: id, Name: id, Type: core.KindFile}
	for _, f := range b.con.State().Files {
		if f.ID == id {
			entry = f
		}
	}

	dl, err := b.con.Download(r.Context(), entry)
	if err != nil {
		http.Error(w, console.ErrorMessage(err), http.StatusBadGateway)
		return
	}

	contentType := dl.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	_, _ = w.Write(dl.Data)
}

var actions = map[string]action{
	"home": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.GoHome()
		return nil
	},
	"login": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.ShowLogin()
		return nil
	},
	"code": func(_ context.Context, b *browserSession, _ *http.Request, sig Signals) error {
		b.con.EditCode(sig.Code)
		return nil
	},
	"submit": func(ctx context.Context, b *browserSession, _ *http.Request, sig Signals) error {
		b.con.EditCode(sig.Code)
		return b.con.SubmitCode(ctx, sig.Code)
	},
	"folders": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.ShowFolders()
		return nil
	},
	"refresh-tables": func(ctx context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.LoadTables(ctx)
	},
	"table": func(ctx context.Context, b *browserSession, r *http.Request, _ Signals) error {
		return b.con.OpenTable(ctx, r.URL.Query().Get("name"))
	},
	"new": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.NewRow()
	},
	"edit": func(_ context.Context, b *browserSession, r *http.Request, _ Signals) error {
		row, err := rowParam(b, r)
		if err != nil {
			return err
		}
		return b.con.EditRow(row)
	},
	"save": func(ctx context.Context, b *browserSession, _ *http.Request, sig Signals) error {
		applyForm(b.con, sig.Form)
		return b.con.Save(ctx)
	},
	"cancel": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.CancelForm()
		return nil
	},
	"delete": func(_ context.Context, b *browserSession, r *http.Request, _ Signals) error {
		row, err := rowParam(b, r)
		if err != nil {
			return err
		}
		b.con.ConfirmDelete(row)
		return nil
	},
	"confirm-delete": func(ctx context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.Delete(ctx)
	},
	"cancel-delete": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.CancelDelete()
		return nil
	},
	"files": func(ctx context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.OpenFiles(ctx)
	},
	"open-folder": func(ctx context.Context, b *browserSession, r *http.Request, _ Signals) error {
		return b.con.OpenFolder(ctx, r.URL.Query().Get("name"))
	},
	"folder-back": func(ctx context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.FolderBack(ctx)
	},
	"refresh-files": func(ctx context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		return b.con.RefreshFiles(ctx)
	},
	"new-folder": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.ShowNewFolder()
		return nil
	},
	"create-folder": func(ctx context.Context, b *browserSession, _ *http.Request, sig Signals) error {
		b.con.EditNewFolderName(sig.Folder)
		return b.con.CreateFolder(ctx, sig.Folder)
	},
	"cancel-folder": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.CancelNewFolder()
		return nil
	},
	"upload": func(ctx context.Context, b *browserSession, _ *http.Request, sig Signals) error {
		return upload(ctx, b.con, sig.Upload)
	},
	"delete-file": func(ctx context.Context, b *browserSession, r *http.Request, _ Signals) error {
		return b.con.DeleteFile(ctx, r.URL.Query().Get("id"))
	},
	"dismiss": func(_ context.Context, b *browserSession, _ *http.Request, _ Signals) error {
		b.con.Dispatch(console.DismissError{})
		return nil
	},
}

// rowParam resolves the ?row= index against the rows on screen.
func rowParam(b *browserSession, r *http.Request) (core.Row, error) {
	rows := b.con.State().Rows
	i, err := strconv.Atoi(r.URL.Query().Get("row"))
	if err != nil || i < 0 || i >= len(rows) {
		msg := "That row is no longer on screen. Refresh the table and try again."
		b.con.Dispatch(console.RequestFailed{Message: msg})
		return nil, errors.New(msg)
	}
	return rows[i], nil
}

// applyForm copies edited inputs into the console form. Locked fields and
// unchanged text keep their typed values.
func applyForm(con *console.Console, form map[string]string) {
	s := con.State()
	for _, col := range s.Columns {
		raw, ok := form[col]
		if !ok || s.FieldLocked(col) || raw == console.InputText(s.Form[col]) {
			continue
		}
		con.SetFieldText(col, raw)
	}
}

// upload stores every picked file in the current folder.
func upload(ctx context.Context, con *console.Console, files []UploadSignal) error {
	if len(files) == 0 {
		con.Dispatch(console.RequestFailed{Message: "Choose a file to upload."})
		return errors.New("no file chosen")
	}
	for _, f := range files {
		data, err := base64.StdEncoding.DecodeString(stripDataURL(f.Contents))
		if err != nil {
			con.Dispatch(console.RequestFailed{Message: "Could not read " + f.Name})
			return fmt.Errorf("failed to decode %s: %w", f.Name, err)
		}
		if err := con.Upload(ctx, core.Upload{Name: f.Name, Data: data, MimeType: f.Mime}); err != nil {
			return err
		}
	}
	return nil
}

// stripDataURL drops a "data:<mime>;base64," prefix if present.
func stripDataURL(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
