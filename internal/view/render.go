package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

const (
	CardWidth = 36
	cardGap   = 1
)

var (
	statusRunning = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	statusSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	statusError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	statusPending = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238")).Strikethrough(true)
	enabledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	appRunningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)
	appStoppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("124")).
			Padding(0, 1)
	appUnknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Background(lipgloss.Color("238")).
			Padding(0, 1)
)

func classStyle(class string) lipgloss.Style {
	switch class {
	case ClassRunning:
		return statusRunning
	case ClassSuccess:
		return statusSuccess
	case ClassError:
		return statusError
	default:
		return statusPending
	}
}

func borderColor(card Card, selected bool) lipgloss.Color {
	switch {
	case selected:
		return lipgloss.Color("57")
	case card.Processing:
		return lipgloss.Color("220")
	default:
		return lipgloss.Color("240")
	}
}

// RenderCard draws one card. Bars are clamped for drawing only; the label
// shows the value exactly as received.
func RenderCard(card Card, selected bool) string {
	inner := CardWidth - 4

	badge := classStyle(card.StatusClass).Render(card.Status)
	title := titleStyle.Render(card.Title)
	gap := inner - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	header := title + strings.Repeat(" ", gap) + badge

	excelBadge := classStyle(card.ExcelClass).Render(card.ExcelLabel)
	excelPct := dimStyle.Render(fmt.Sprintf("%d%%", card.ExcelProgress))
	excelGap := inner - lipgloss.Width(excelBadge) - lipgloss.Width(excelPct)
	if excelGap < 1 {
		excelGap = 1
	}

	lines := []string{
		header,
		progressLine(card.Progress, inner),
		excelBadge + strings.Repeat(" ", excelGap) + excelPct,
		bar(card.ExcelProgress, inner),
		dimStyle.Render("Runtime: " + card.Runtime),
		controls(card),
	}
	if selected {
		lines = append(lines, dimStyle.Render(truncateTooltip(card.Tooltip, inner)))
	}

	return cardStyle.
		Width(CardWidth - 2).
		BorderForeground(borderColor(card, selected)).
		Render(strings.Join(lines, "\n"))
}

func progressLine(pct, width int) string {
	label := fmt.Sprintf(" %d%%", pct)
	return bar(pct, width-len(label)) + label
}

func bar(pct, width int) string {
	if width < 4 {
		width = 4
	}
	model := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return model.ViewAs(clampPercent(pct))
}

func clampPercent(pct int) float64 {
	switch {
	case pct <= 0:
		return 0
	case pct >= 100:
		return 1
	default:
		return float64(pct) / 100
	}
}

func controls(card Card) string {
	control := func(label string, disabled bool) string {
		if disabled {
			return disabledStyle.Render(label)
		}
		return enabledStyle.Render(label)
	}
	return strings.Join([]string{
		control("[s] Start", card.StartDisabled),
		control("[x] Stop", card.StopDisabled),
		control("[l] Logs", card.LogsDisabled),
	}, " ")
}

func truncateTooltip(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return "…" + string(runes[len(runes)-width+1:])
}

// RenderStats draws the aggregate counters. Total falls back to the number of
// known records when the backend reports none.
func RenderStats(master models.MasterStatus, known int) string {
	total := master.Total
	if total == 0 {
		total = known
	}
	parts := []string{
		statusRunning.Render(fmt.Sprintf("Running %d", master.Running)),
		statusPending.Render(fmt.Sprintf("Pending %d", master.Pending)),
		statusSuccess.Render(fmt.Sprintf("Completed %d", master.Completed)),
		statusError.Render(fmt.Sprintf("Failed %d", master.Failed)),
		enabledStyle.Render(fmt.Sprintf("Total %d", total)),
	}
	return strings.Join(parts, "  ")
}

func RenderAppIndicator(state models.AppState) string {
	switch state {
	case models.AppStateRunning:
		return appRunningStyle.Render("● App Running")
	case models.AppStateStopped:
		return appStoppedStyle.Render("● App Stopped")
	default:
		return appUnknownStyle.Render("● App ?")
	}
}
