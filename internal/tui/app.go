// Package tui is the terminal front end of the console.
//
// App renders console.State with bubbletea and turns key presses into
// console calls. Calls that reach the backend run as commands off the UI
// loop; the console store's change pings arrive as stateMsg.
package tui

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leapstack-labs/leapconsole/internal/console"
	"github.com/leapstack-labs/leapconsole/pkg/core"
)

// prompt is a local overlay not modelled in console.State.
type prompt int

const (
	promptNone prompt = iota
	promptUpload
	promptDeleteFile
)

// stateMsg reports that the console store changed.
type stateMsg struct{}

// opDoneMsg carries the result of a console call. Failures are already in
// console.State.
type opDoneMsg struct{ err error }

// autoLoginMsg reports the launch-time login attempt.
type autoLoginMsg struct {
	tried bool
	err   error
}

// CodeDroppedMsg delivers an access code written to the code store while
// the console runs.
type CodeDroppedMsg struct{ Code string }

// Config configures the terminal console.
type Config struct {
	Console   *console.Console
	AutoLogin console.AutoLogin
	// Watcher delivers codes dropped while the console runs. May be nil.
	Watcher     CodeWatcher
	DownloadDir string
	Logger      *slog.Logger
}

// CodeWatcher reports codes as they are persisted.
type CodeWatcher interface {
	Watch(ctx context.Context, onCode func(code string)) error
}

// App is the bubbletea model of the console.
type App struct {
	ctx         context.Context
	con         *console.Console
	autoLogin   console.AutoLogin
	downloadDir string
	logger      *slog.Logger

	state         console.State
	width, height int

	cursor      int
	field       int
	input       textinput.Model
	prompt      prompt
	pendingFile core.FileEntry
	showHelp    bool

	keys KeyMap
	help help.Model
}

// NewApp creates the model. ctx bounds every backend call it makes.
func NewApp(ctx context.Context, cfg Config) *App {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := cfg.DownloadDir
	if dir == "" {
		dir = "."
	}

	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = 256
	_ = input.Cursor.SetMode(cursor.CursorStatic)

	return &App{
		ctx:         ctx,
		con:         cfg.Console,
		autoLogin:   cfg.AutoLogin,
		downloadDir: dir,
		logger:      logger,
		state:       cfg.Console.State(),
		input:       input,
		keys:        DefaultKeyMap(),
		help:        help.New(),
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.runAutoLogin
}

func (a *App) runAutoLogin() tea.Msg {
	tried, err := a.con.RunAutoLogin(a.ctx, a.autoLogin)
	return autoLoginMsg{tried: tried, err: err}
}

// dropCode runs auto-login for a code that landed in the code store. The
// code is registered with the backend before it is verified.
func (a *App) dropCode(code string) tea.Cmd {
	return func() tea.Msg {
		tried, err := a.con.RunAutoLogin(a.ctx, console.AutoLogin{URLCode: code, Delay: -1})
		if err == nil && tried && a.autoLogin.Source != nil {
			err = a.autoLogin.Source.Clear(a.ctx)
		}
		return autoLoginMsg{tried: tried, err: err}
	}
}

// op runs a console call as a command.
func (a *App) op(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: fn(a.ctx)}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case stateMsg:
		a.syncState()
		return a, nil

	case opDoneMsg:
		if msg.err != nil {
			a.logger.Debug("console call failed", slog.String("error", msg.err.Error()))
		}
		a.syncState()
		return a, nil

	case autoLoginMsg:
		if msg.err != nil {
			a.logger.Debug("auto-login failed", slog.String("error", msg.err.Error()))
		}
		a.syncState()
		return a, nil

	case CodeDroppedMsg:
		if a.state.Authenticated || a.state.Loading {
			return a, nil
		}
		a.con.RearmAutoLogin()
		return a, a.dropCode(msg.Code)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

// syncState pulls the latest state and resets local selection when the
// screen changed underneath it.
func (a *App) syncState() {
	prev := a.state
	a.state = a.con.State()
	s := a.state

	if s.View != prev.View || s.Table != prev.Table || s.Folder != prev.Folder {
		a.cursor = 0
		a.prompt = promptNone
		a.input.Blur()
		switch {
		case s.View == console.ViewLogin:
			a.focusInput(s.CodeInput)
		case s.View.IsForm():
			a.field = a.firstEditable()
			a.loadField()
		}
	}
	if s.View == console.ViewLogin && a.input.Value() != s.CodeInput {
		a.input.SetValue(s.CodeInput)
	}
	if s.NewFolder && !prev.NewFolder {
		a.focusInput("")
	}

	if n := a.listLen(); a.cursor >= n {
		a.cursor = max(n-1, 0)
	}
}

func (a *App) focusInput(value string) {
	a.input.SetValue(value)
	a.input.CursorEnd()
	_ = a.input.Focus()
}

// listLen is the number of selectable items on the current screen.
func (a *App) listLen() int {
	switch a.state.View {
	case console.ViewFolders:
		return len(a.state.Tables) + 1
	case console.ViewTable:
		return len(a.state.Rows)
	case console.ViewFiles:
		return len(a.state.Files)
	default:
		return 0
	}
}

func (a *App) firstEditable() int {
	for i, col := range a.state.Columns {
		if !a.state.FieldLocked(col) {
			return i
		}
	}
	return 0
}

// loadField puts the focused form value into the text input.
func (a *App) loadField() {
	if len(a.state.Columns) == 0 {
		return
	}
	col := a.state.Columns[a.field]
	a.focusInput(console.InputText(a.state.Form[col]))
}

// moveField focuses the next editable field in direction dir.
func (a *App) moveField(dir int) {
	n := len(a.state.Columns)
	for i := 1; i <= n; i++ {
		next := (a.field + dir*i + n*i) % n
		if !a.state.FieldLocked(a.state.Columns[next]) {
			a.field = next
			a.loadField()
			return
		}
	}
}
