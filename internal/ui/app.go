package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/lector/internal/app"
	"github.com/five82/lector/internal/prefs"
	"github.com/five82/lector/internal/results"
	"github.com/five82/lector/internal/session"
	"github.com/five82/lector/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewResults View = iota
	ViewDetail
	ViewLogs
)

func (v View) String() string {
	switch v {
	case ViewDetail:
		return "Detail"
	case ViewLogs:
		return "Logs"
	default:
		return "Results"
	}
}

// inputMode is the modal input currently capturing keys, if any.
type inputMode int

const (
	modeNone inputMode = iota
	modeLogin
	modeUpload
	modeConfirmDelete
)

// Options configures the UI.
type Options struct {
	Context  context.Context
	Client   *app.Client
	PollTick time.Duration
	LogPath  string
	Prefs    prefs.Prefs
	// PrefsPath is where theme and username changes are saved. Empty uses
	// the default location.
	PrefsPath string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	client    *app.Client
	keys      keyMap
	help      help.Model
	prefs     prefs.Prefs
	prefsPath string
	logPath   string
	pollTick  time.Duration

	theme    Theme
	view     View
	width    int
	height   int
	ready    bool
	showHelp bool

	session  session.Snapshot
	results  results.Snapshot
	health   state.Snapshot
	endpoint string
	selected int
	notice   string

	detail   viewport.Model
	logs     viewport.Model
	logLines []string
	warnOnly bool

	mode          inputMode
	loginInputs   [2]textinput.Model // username, password
	loginFocus    int
	uploadInput   textinput.Model
	pendingDelete string
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		client:    opts.Client,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		prefs:     opts.Prefs,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		pollTick:  pollTick,
		theme:     GetTheme(opts.Prefs.Theme),
		view:      ViewResults,
	}
	m.initInputs()
	m.readSnapshots()
	if !m.session.Authenticated() {
		m.openLogin()
	}
	return m
}

func (m *Model) initInputs() {
	user := textinput.New()
	user.Placeholder = "username"
	user.Prompt = "Username: "
	user.CharLimit = 80
	user.SetValue(m.prefs.LastUsername)

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.Prompt = "Password: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	m.loginInputs = [2]textinput.Model{user, pass}

	upload := textinput.New()
	upload.Placeholder = "/path/to/scan.png"
	upload.Prompt = "File: "
	m.uploadInput = upload
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick), textinput.Blink}
	if m.session.Authenticated() {
		cmds = append(cmds, m.listCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeViewports()
		m.ready = true
		m.refreshDetail()
		m.refreshLogView()
		return m, nil

	case tickMsg:
		m.readSnapshots()
		m.refreshDetail()
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.view == ViewLogs {
			cmds = append(cmds, m.tailLogsCmd())
		}
		return m, tea.Batch(cmds...)

	case loginDoneMsg:
		m.readSnapshots()
		if msg.err != nil {
			m.loginInputs[1].SetValue("")
			return m, nil
		}
		m.closeInput()
		m.notice = "Logged in as " + m.session.Username()
		m.prefs.LastUsername = msg.username
		m.savePrefs()
		return m, m.listCmd()

	case logoutDoneMsg:
		m.readSnapshots()
		m.view = ViewResults
		m.selected = 0
		m.notice = "Logged out"
		m.openLogin()
		return m, nil

	case opDoneMsg:
		return m.handleOpDone(msg)

	case reconnectMsg:
		m.readSnapshots()
		m.endpoint = msg.endpoint
		m.notice = "Connected to " + msg.endpoint
		if !m.session.Authenticated() && m.mode == modeNone {
			m.openLogin()
		}
		return m, nil

	case logsMsg:
		if msg.err == nil {
			m.logLines = msg.lines
			m.refreshLogView()
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	m.readSnapshots()
	if msg.err != nil {
		if msg.localErr != "" {
			m.notice = msg.localErr
		}
		if !m.session.Authenticated() && m.mode == modeNone {
			m.openLogin()
		}
		return m, nil
	}
	switch msg.op {
	case opSubmit:
		m.closeInput()
		m.selected = 0
		m.view = ViewDetail
		m.notice = "Extracted text from " + msg.result.Filename
	case opFetch:
		m.view = ViewDetail
	case opDelete:
		m.notice = "Deleted result " + msg.id
		if m.view == ViewDetail {
			m.view = ViewResults
		}
	}
	m.clampSelection()
	m.refreshDetail()
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	switch m.mode {
	case modeLogin:
		return m.handleLoginKey(msg)
	case modeUpload:
		return m.handleUploadKey(msg)
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		m.view = (m.view + 1) % 3
		if m.view == ViewLogs {
			return m, m.tailLogsCmd()
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.view = ViewResults
		return m, nil
	case key.Matches(msg, m.keys.Reconnect):
		m.notice = "Reconnecting..."
		return m, m.reconnectCmd()
	case key.Matches(msg, m.keys.ClearError):
		m.client.Results.ClearError()
		m.client.Session.ClearError()
		m.notice = ""
		m.readSnapshots()
		return m, nil
	case key.Matches(msg, m.keys.Login):
		if !m.session.Authenticated() {
			m.openLogin()
			return m, m.loginInputs[m.loginFocus].Focus()
		}
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		if m.session.Authenticated() {
			return m, m.logoutCmd()
		}
		return m, nil
	}

	if !m.session.Authenticated() {
		return m, nil
	}

	switch m.view {
	case ViewResults:
		return m.handleResultsKey(msg)
	case ViewDetail:
		if key.Matches(msg, m.keys.Delete) {
			return m.askDelete()
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	case ViewLogs:
		if key.Matches(msg, m.keys.WarnOnly) {
			m.warnOnly = !m.warnOnly
			return m, m.tailLogsCmd()
		}
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleResultsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	count := len(m.results.Results)
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.listCmd()
	case key.Matches(msg, m.keys.Upload):
		m.mode = modeUpload
		m.uploadInput.SetValue("")
		return m, m.uploadInput.Focus()
	case key.Matches(msg, m.keys.Open):
		if r := m.selectedResult(); r != nil {
			return m, m.fetchCmd(r.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		return m.askDelete()
	case key.Matches(msg, m.keys.Down):
		if m.selected < count-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.Top):
		m.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		if count > 0 {
			m.selected = count - 1
		}
	}
	return m, nil
}

func (m Model) askDelete() (tea.Model, tea.Cmd) {
	id := ""
	if m.view == ViewDetail && m.results.Current != nil {
		id = m.results.Current.ID
	} else if r := m.selectedResult(); r != nil {
		id = r.ID
	}
	if id == "" {
		return m, nil
	}
	m.pendingDelete = id
	m.mode = modeConfirmDelete
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		id := m.pendingDelete
		m.closeInput()
		return m, m.deleteCmd(id)
	case key.Matches(msg, m.keys.Cancel):
		m.closeInput()
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.loginInputs[m.loginFocus].Blur()
		m.loginFocus = (m.loginFocus + 1) % len(m.loginInputs)
		return m, m.loginInputs[m.loginFocus].Focus()
	case "enter":
		if m.loginFocus == 0 {
			m.loginInputs[0].Blur()
			m.loginFocus = 1
			return m, m.loginInputs[1].Focus()
		}
		username := m.loginInputs[0].Value()
		password := m.loginInputs[1].Value()
		return m, m.loginCmd(username, password)
	}
	return m.updateInputs(msg)
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return m, nil
	case "enter":
		return m, m.submitCmd(m.uploadInput.Value())
	}
	return m.updateInputs(msg)
}

// updateInputs forwards msg to whichever text input is active.
func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case modeLogin:
		m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	case modeUpload:
		m.uploadInput, cmd = m.uploadInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) openLogin() {
	m.mode = modeLogin
	m.loginFocus = 0
	if m.loginInputs[0].Value() != "" {
		m.loginFocus = 1
	}
	m.loginInputs[0].Blur()
	m.loginInputs[1].Blur()
	m.loginInputs[1].SetValue("")
	m.loginInputs[m.loginFocus].Focus()
}

func (m *Model) closeInput() {
	m.mode = modeNone
	m.pendingDelete = ""
	m.loginInputs[0].Blur()
	m.loginInputs[1].Blur()
	m.loginInputs[1].SetValue("")
	m.uploadInput.Blur()
}

func (m *Model) readSnapshots() {
	if m.client == nil {
		return
	}
	m.session = m.client.Session.Snapshot()
	m.results = m.client.Results.Snapshot()
	m.health = m.client.Health.Snapshot()
	m.endpoint = m.client.Endpoint()
	m.clampSelection()
}

func (m *Model) clampSelection() {
	if n := len(m.results.Results); m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

func (m Model) selectedResult() *results.Result {
	if m.selected < 0 || m.selected >= len(m.results.Results) {
		return nil
	}
	r := m.results.Results[m.selected]
	return &r
}

func (m *Model) savePrefs() {
	_ = prefs.Save(m.prefsPath, m.prefs)
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
