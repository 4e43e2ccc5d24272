package logview

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CopiedFlash is how long the copy control shows its confirmation.
const CopiedFlash = 2000 * time.Millisecond

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	copyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
	copiedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true).Border(lipgloss.NormalBorder(), false, false, false, true).PaddingLeft(1)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Padding(1, 2)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Padding(1, 2)
	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEDF0")).
			Background(lipgloss.Color("#012456"))
)

// CopyResetMsg reverts the copy control. Gen ties it to one copy so an old
// timer cannot cut a newer confirmation short.
type CopyResetMsg struct {
	Gen int
}

// Viewer is the log overlay. There is only ever one; Open replaces whatever
// it was showing.
type Viewer struct {
	open    bool
	reqID   int
	result  Result
	vp      viewport.Model
	spin    spinner.Model
	copied  bool
	copyGen int
	copyErr error
	clip    func(string) error
}

func NewViewer() *Viewer {
	return &Viewer{
		vp:   viewport.New(80, 20),
		spin: spinner.New(spinner.WithSpinner(spinner.Dot)),
		clip: clipboard.WriteAll,
	}
}

// WithClipboard swaps the clipboard writer, mostly for tests and headless
// sessions.
func (v *Viewer) WithClipboard(write func(string) error) *Viewer {
	v.clip = write
	return v
}

// Open shows the loading placeholder for name and returns the request id the
// matching Result must carry.
func (v *Viewer) Open(name string, now time.Time) (int, tea.Cmd) {
	v.reqID++
	v.open = true
	v.copied = false
	v.copyErr = nil
	script := NormalizeName(name)
	v.result = Result{ID: v.reqID, Kind: KindLoading, Script: script, Path: CandidatePath(now, script)}
	v.vp.SetContent("")
	return v.reqID, v.spin.Tick
}

// SetResult applies a fetch result if it belongs to the current request.
func (v *Viewer) SetResult(res Result) bool {
	if !v.open || res.ID != v.reqID {
		return false
	}
	v.result = res
	if res.Kind == KindContent {
		v.vp.SetContent(res.Content)
		v.vp.GotoBottom()
	}
	return true
}

func (v *Viewer) Close() {
	v.open = false
	v.copied = false
}

func (v *Viewer) IsOpen() bool { return v.open }
func (v *Viewer) Result() Result { return v.result }
func (v *Viewer) Copied() bool { return v.copied }
func (v *Viewer) AtBottom() bool { return v.vp.AtBottom() }
func (v *Viewer) RequestID() int { return v.reqID }
func (v *Viewer) CopyError() error { return v.copyErr }

// Copy writes the log text to the clipboard and starts the confirmation
// timer. Nothing happens unless log content is on screen.
func (v *Viewer) Copy() tea.Cmd {
	if !v.open || v.result.Kind != KindContent {
		return nil
	}
	if err := v.clip(v.result.Content); err != nil {
		v.copyErr = fmt.Errorf("copy logs: %w", err)
		return nil
	}
	v.copyErr = nil
	v.copied = true
	v.copyGen++
	gen := v.copyGen
	return tea.Tick(CopiedFlash, func(time.Time) tea.Msg {
		return CopyResetMsg{Gen: gen}
	})
}

func (v *Viewer) SetSize(width, height int) {
	v.vp.Width = width
	if height < 3 {
		height = 3
	}
	v.vp.Height = height
}

func (v *Viewer) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CopyResetMsg:
		if msg.Gen == v.copyGen {
			v.copied = false
		}
		return nil
	case spinner.TickMsg:
		if v.result.Kind != KindLoading {
			return nil
		}
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd
	}
	if v.result.Kind == KindContent {
		var cmd tea.Cmd
		v.vp, cmd = v.vp.Update(msg)
		return cmd
	}
	return nil
}

func (v *Viewer) copyLabel() string {
	if v.copied {
		return copiedStyle.Render("✓ Copied!")
	}
	return copyStyle.Render("[c] Copy")
}

func (v *Viewer) View() string {
	if !v.open {
		return ""
	}
	res := v.result
	var b strings.Builder

	switch res.Kind {
	case KindLoading:
		b.WriteString(headerStyle.Render("Logs"))
		b.WriteString("\n\n")
		b.WriteString(infoStyle.Render(v.spin.View() + " Loading logs for " + res.Script + "..."))
	case KindContent:
		title := headerStyle.Render("Log file: ") + pathStyle.Render(res.Path)
		label := v.copyLabel()
		gap := v.vp.Width - lipgloss.Width(title) - lipgloss.Width(label)
		if gap < 1 {
			gap = 1
		}
		b.WriteString(title + strings.Repeat(" ", gap) + label)
		b.WriteString("\n")
		b.WriteString(contentStyle.Width(v.vp.Width).Render(v.vp.View()))
		if v.copyErr != nil {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(v.copyErr.Error()))
		}
	case KindPending:
		b.WriteString(headerStyle.Render("Logs") + " " + pathStyle.Render(res.Script))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("◷ " + res.Message))
	case KindInfo:
		b.WriteString(headerStyle.Render("Logs") + " " + pathStyle.Render(res.Script))
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("ⓘ " + res.Message))
	case KindError:
		b.WriteString(headerStyle.Render("Logs") + " " + pathStyle.Render(res.Script))
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ " + res.Message))
	}
	return b.String()
}
