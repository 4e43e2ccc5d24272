package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/MrAliAmani/bids-scraping/internal/appmon"
	"github.com/MrAliAmani/bids-scraping/internal/dispatch"
	"github.com/MrAliAmani/bids-scraping/internal/hooks"
	"github.com/MrAliAmani/bids-scraping/internal/logview"
	"github.com/MrAliAmani/bids-scraping/internal/models"
	"github.com/MrAliAmani/bids-scraping/internal/push"
	"github.com/MrAliAmani/bids-scraping/internal/status"
	"github.com/MrAliAmani/bids-scraping/internal/view"
)

// API is everything the dashboard asks of the backend.
type API interface {
	dispatch.API
	logview.API
	appmon.API
	Scripts(ctx context.Context) ([]models.Script, error)
	MasterStatus(ctx context.Context) (models.MasterStatus, error)
	MainLog(ctx context.Context) (string, error)
}

type Options struct {
	// Events is the push channel; nil runs on polling alone.
	Events <-chan push.Event
	// HookReload signals that the hook script changed on disk.
	HookReload <-chan struct{}
	Hooks      *hooks.Runtime
	// Journal, when set, receives every session log line and transition.
	Journal   Journal
	SessionID int64

	Logger          zerolog.Logger
	PollInterval    time.Duration
	AppPollInterval time.Duration
	StopConcurrency int
	Clipboard       func(string) error
	Now             func() time.Time
}

// App is the dashboard. All state lives here and changes only in Update.
type App struct {
	api        API
	store      *status.Store
	renderer   *view.Renderer
	viewer     *logview.Viewer
	dispatcher *dispatch.Dispatcher
	monitor    *appmon.Monitor
	session    *SessionLog
	hooks      *hooks.Runtime
	journal    *journalWriter
	events     <-chan push.Event
	hookReload <-chan struct{}
	logger     zerolog.Logger
	now        func() time.Time

	pollInterval    time.Duration
	appPollInterval time.Duration

	keys     keyMap
	help     help.Model
	master   models.MasterStatus
	fetchSeq uint64
	conn     connState
	selected int
	width    int
	height   int
	err      error
}

func NewApp(api API, opts Options) *App {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.AppPollInterval <= 0 {
		opts.AppPollInterval = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &App{
		api:             api,
		store:           status.NewStore(),
		renderer:        view.NewRenderer(),
		viewer:          logview.NewViewer(),
		dispatcher:      dispatch.New(api, opts.Logger, opts.StopConcurrency),
		monitor:         appmon.New(api, opts.Logger),
		session:         NewSessionLog(),
		hooks:           opts.Hooks,
		events:          opts.Events,
		hookReload:      opts.HookReload,
		logger:          opts.Logger,
		now:             opts.Now,
		pollInterval:    opts.PollInterval,
		appPollInterval: opts.AppPollInterval,
		keys:            newKeyMap(),
		help:            help.New(),
		conn:            connConnecting,
	}
	if opts.Clipboard != nil {
		a.viewer.WithClipboard(opts.Clipboard)
	}
	if opts.Journal != nil {
		a.journal = newJournalWriter(opts.Journal, opts.SessionID, opts.Logger)
	}
	if a.events == nil {
		a.conn = connOff
	}
	return a
}

// Close flushes the journal. Call it after the program exits.
func (a *App) Close() {
	if a.journal != nil {
		a.journal.close()
		a.journal = nil
	}
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.fetchSnapshot(),
		a.pollApp(),
		a.loadMainLog(),
		a.snapshotTick(),
		a.appTick(),
	}
	if a.events != nil {
		cmds = append(cmds, waitForEvents(a.events))
	}
	if a.hookReload != nil {
		cmds = append(cmds, waitForHookReload(a.hookReload))
	}
	return tea.Batch(cmds...)
}

type snapshotTickMsg time.Time

type appTickMsg time.Time

func (a *App) snapshotTick() tea.Cmd {
	return tea.Tick(a.pollInterval, func(t time.Time) tea.Msg {
		return snapshotTickMsg(t)
	})
}

func (a *App) appTick() tea.Cmd {
	return tea.Tick(a.appPollInterval, func(t time.Time) tea.Msg {
		return appTickMsg(t)
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case snapshotTickMsg:
		return a, tea.Batch(a.fetchSnapshot(), a.snapshotTick())

	case appTickMsg:
		return a, tea.Batch(a.pollApp(), a.appTick())

	case snapshotMsg:
		a.applySnapshot(msg)
		return a, nil

	case commandMsg:
		a.log(msg.lines...)
		if msg.refetch {
			return a, a.fetchSnapshot()
		}
		return a, nil

	case appResultMsg:
		a.monitor.Apply(msg.result)
		if msg.result.Line != "" {
			a.log(msg.result.Line)
		}
		if msg.result.Repoll {
			return a, a.pollApp()
		}
		return a, nil

	case logResultMsg:
		if msg.result.Err != nil {
			a.logger.Error().Err(msg.result.Err).Str("script", msg.result.Script).Msg("loading logs")
		}
		a.viewer.SetResult(msg.result)
		return a, nil

	case mainLogMsg:
		if msg.err != nil {
			a.logger.Warn().Err(msg.err).Msg("backfilling session log")
			return a, nil
		}
		a.session.Backfill(splitLines(msg.text))
		return a, nil

	case pushMsg:
		if !msg.ok {
			a.conn = connDown
			a.events = nil
			return a, nil
		}
		for _, ev := range msg.events {
			lines, changes := a.receive(ev)
			a.log(lines...)
			a.handleChanges(changes)
		}
		return a, waitForEvents(a.events)

	case hookReloadMsg:
		if !msg.ok {
			a.hookReload = nil
			return a, nil
		}
		a.reloadHooks()
		return a, waitForHookReload(a.hookReload)

	case spinner.TickMsg, logview.CopyResetMsg:
		return a, a.viewer.Update(msg)
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.help.Width = width

	logHeight := height / 4
	if logHeight < 3 {
		logHeight = 3
	}
	if logHeight > 12 {
		logHeight = 12
	}
	a.session.SetSize(width-2, logHeight)
	a.viewer.SetSize(width-4, height-8)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	if a.viewer.IsOpen() {
		return a.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, a.keys.quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.left):
		a.move(-1)

	case key.Matches(msg, a.keys.right):
		a.move(1)

	case key.Matches(msg, a.keys.up):
		a.move(-view.Columns(a.width))

	case key.Matches(msg, a.keys.down):
		a.move(view.Columns(a.width))

	case key.Matches(msg, a.keys.start):
		if rec, ok := a.selectedRecord(); ok && !view.NewCard(rec).StartDisabled {
			return a, a.startScript(rec.Name)
		}

	case key.Matches(msg, a.keys.stop):
		if rec, ok := a.selectedRecord(); ok && !view.NewCard(rec).StopDisabled {
			return a, a.stopScript(rec.Name)
		}

	case key.Matches(msg, a.keys.startAll):
		return a, a.startAll()

	case key.Matches(msg, a.keys.stopAll):
		return a, a.stopAll()

	case key.Matches(msg, a.keys.logs):
		if rec, ok := a.selectedRecord(); ok {
			return a, a.openLogs(rec.Name)
		}

	case key.Matches(msg, a.keys.appStart):
		return a, a.startApp()

	case key.Matches(msg, a.keys.appStop):
		return a, a.stopApp()

	case key.Matches(msg, a.keys.refresh):
		return a, a.fetchSnapshot()

	case key.Matches(msg, a.keys.help):
		a.help.ShowAll = !a.help.ShowAll
	}

	return a, nil
}

func (a *App) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.close):
		a.viewer.Close()
		return a, nil
	case key.Matches(msg, a.keys.copy):
		cmd := a.viewer.Copy()
		if err := a.viewer.CopyError(); err != nil {
			a.logger.Error().Err(err).Msg("copying logs")
		}
		return a, cmd
	}
	return a, a.viewer.Update(msg)
}

func (a *App) move(delta int) {
	n := a.store.Len()
	if n == 0 {
		a.selected = 0
		return
	}
	a.selected += delta
	if a.selected < 0 {
		a.selected = 0
	}
	if a.selected > n-1 {
		a.selected = n - 1
	}
}

func (a *App) selectedRecord() (models.Script, bool) {
	records := a.store.Records()
	if a.selected < 0 || a.selected >= len(records) {
		return models.Script{}, false
	}
	return records[a.selected], true
}

// log appends lines to the session panel and the journal.
func (a *App) log(lines ...string) {
	for _, line := range lines {
		if line == "" {
			continue
		}
		at := a.now()
		a.session.Append(at, line)
		if a.journal != nil {
			a.journal.add(journalEntry{at: at, message: line})
		}
	}
}

// handleChanges journals status transitions and runs the hook script on
// each of them.
func (a *App) handleChanges(changes []status.Change) {
	for _, c := range changes {
		a.logger.Debug().Str("script", c.Name).Str("field", c.Field).
			Str("from", c.From).Str("to", c.To).Msg("status changed")
		if a.journal != nil {
			a.journal.add(journalEntry{at: a.now(), transition: &models.Transition{
				Script: c.Name, Field: c.Field, From: c.From, To: c.To,
			}})
		}
		if a.hooks == nil {
			continue
		}
		lines, err := a.hooks.OnStatus(c)
		if err != nil {
			a.logger.Error().Err(err).Str("script", c.Name).Msg("status hook failed")
			a.log("Hook error: " + err.Error())
			continue
		}
		a.log(lines...)
	}
}

func (a *App) reloadHooks() {
	if a.hooks == nil {
		return
	}
	if err := a.hooks.Reload(); err != nil {
		a.logger.Error().Err(err).Str("path", a.hooks.Path()).Msg("reloading hooks")
		a.log("Hook reload failed: " + err.Error())
		return
	}
	a.logger.Info().Str("path", a.hooks.Path()).Msg("hooks reloaded")
	a.log("Reloaded hooks from " + a.hooks.Path())
}

func (a *App) applySnapshot(msg snapshotMsg) {
	if msg.err != nil {
		if msg.seq <= a.store.LastSeq() {
			return
		}
		a.err = msg.err
		a.logger.Error().Err(msg.err).Msg("fetching scripts")
		return
	}
	applied, changes := a.store.ReplaceAll(msg.seq, msg.scripts)
	if !applied {
		a.logger.Debug().Uint64("seq", msg.seq).Uint64("last", a.store.LastSeq()).Msg("dropping stale snapshot")
		return
	}
	a.err = nil
	if msg.masterErr != nil {
		a.logger.Warn().Err(msg.masterErr).Msg("fetching master status")
	} else {
		a.master = msg.master
	}
	a.move(0)
	a.handleChanges(changes)
}

func splitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	connLiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	connDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	connErrStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

func (a *App) connIndicator() string {
	switch a.conn {
	case connLive:
		return connLiveStyle.Render("◉ Live")
	case connDown:
		return connDownStyle.Render("○ Reconnecting")
	case connError:
		return connErrStyle.Render("✗ Push error")
	case connOff:
		return dimStyle.Render("○ Polling only")
	default:
		return dimStyle.Render("○ Connecting")
	}
}

func (a *App) View() string {
	if a.viewer.IsOpen() {
		return overlayStyle.Render(a.viewer.View()) + "\n" + a.help.View(overlayKeys{a.keys})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Bids Scraping Dashboard"))
	b.WriteString("  " + view.RenderAppIndicator(a.monitor.State()))
	b.WriteString("  " + a.connIndicator())
	b.WriteString("\n")
	b.WriteString(view.RenderStats(a.master, a.store.Len()))
	b.WriteString("\n\n")

	if a.err != nil {
		b.WriteString(errorStyle.Render("Backend unreachable: "+a.err.Error()) + "\n\n")
	}

	b.WriteString(a.renderer.Render(a.store.Records(), a.selected, a.width))
	b.WriteString("\n\n")
	b.WriteString(panelTitleStyle.Render("Session Log"))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(a.session.View()))
	b.WriteString("\n")
	b.WriteString(a.help.View(a.keys))
	return b.String()
}

// Messages

type snapshotMsg struct {
	seq       uint64
	scripts   []models.Script
	master    models.MasterStatus
	masterErr error
	err       error
}

type commandMsg struct {
	lines   []string
	refetch bool
}

type appResultMsg struct {
	result appmon.Result
}

type logResultMsg struct {
	result logview.Result
}

type mainLogMsg struct {
	text string
	err  error
}

type hookReloadMsg struct {
	ok bool
}

// Commands

// fetchSnapshot takes the next fetch sequence; it must be called from Init
// or Update.
func (a *App) fetchSnapshot() tea.Cmd {
	a.fetchSeq++
	seq := a.fetchSeq
	api := a.api
	return func() tea.Msg {
		ctx := context.Background()
		scripts, err := api.Scripts(ctx)
		if err != nil {
			return snapshotMsg{seq: seq, err: err}
		}
		master, merr := api.MasterStatus(ctx)
		return snapshotMsg{seq: seq, scripts: scripts, master: master, masterErr: merr}
	}
}

func (a *App) startScript(name string) tea.Cmd {
	d := a.dispatcher
	return func() tea.Msg {
		out := d.Start(context.Background(), name)
		return commandMsg{lines: []string{out.Line}, refetch: true}
	}
}

func (a *App) startAll() tea.Cmd {
	d := a.dispatcher
	return func() tea.Msg {
		out := d.StartAll(context.Background())
		return commandMsg{lines: []string{out.Line}, refetch: true}
	}
}

func (a *App) stopScript(name string) tea.Cmd {
	d := a.dispatcher
	return func() tea.Msg {
		out := d.Stop(context.Background(), name)
		return commandMsg{lines: []string{out.Line}, refetch: out.OK}
	}
}

// stopAll captures the running set now; the stop requests go out from the
// command goroutine.
func (a *App) stopAll() tea.Cmd {
	d := a.dispatcher
	running := a.store.Running()
	return func() tea.Msg {
		res := d.StopAll(context.Background(), running)
		return commandMsg{lines: res.Lines, refetch: res.Refetch}
	}
}

func (a *App) openLogs(name string) tea.Cmd {
	id, spin := a.viewer.Open(name, a.now())
	return tea.Batch(spin, a.fetchLog(id, name))
}

func (a *App) fetchLog(id int, name string) tea.Cmd {
	api := a.api
	now := a.now()
	return func() tea.Msg {
		return logResultMsg{result: logview.Fetch(context.Background(), api, id, name, now)}
	}
}

func (a *App) pollApp() tea.Cmd {
	m := a.monitor
	return func() tea.Msg {
		return appResultMsg{result: m.Poll(context.Background())}
	}
}

func (a *App) startApp() tea.Cmd {
	m := a.monitor
	return func() tea.Msg {
		return appResultMsg{result: m.Start(context.Background())}
	}
}

func (a *App) stopApp() tea.Cmd {
	m := a.monitor
	return func() tea.Msg {
		return appResultMsg{result: m.Stop(context.Background())}
	}
}

func (a *App) loadMainLog() tea.Cmd {
	api := a.api
	return func() tea.Msg {
		text, err := api.MainLog(context.Background())
		return mainLogMsg{text: text, err: err}
	}
}

func waitForHookReload(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-ch
		return hookReloadMsg{ok: ok}
	}
}
