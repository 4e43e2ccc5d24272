// Package view maps script records to what the dashboard draws. The Card
// layer is pure data and carries every decision (labels, classes, which
// controls are enabled); the render layer only turns cards into styled text.
package view

import (
	"path"
	"strings"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

const (
	maxNameLen   = 25
	truncatedLen = 22
	ellipsis     = "..."
)

// Status classes shared by both stages.
const (
	ClassRunning = "running"
	ClassSuccess = "success"
	ClassError   = "error"
	ClassPending = "pending"
)

// Card is the display descriptor for one script.
type Card struct {
	Key           string
	Title         string
	Tooltip       string
	Status        string
	StatusClass   string
	Progress      int
	ExcelLabel    string
	ExcelClass    string
	ExcelProgress int
	Runtime       string
	Processing    bool
	StartDisabled bool
	StopDisabled  bool
	LogsDisabled  bool
}

func NewCard(s models.Script) Card {
	title, tooltip := DisplayName(s.Name)
	excel := string(s.ExcelStatus)
	if strings.TrimSpace(excel) == "" {
		excel = string(models.ExcelStatusPending)
	}
	running := strings.EqualFold(string(s.Status), string(models.ScriptStatusRunning))
	excelRunning := strings.EqualFold(excel, string(models.ExcelStatusRunning))

	return Card{
		Key:           s.Name,
		Title:         title,
		Tooltip:       tooltip,
		Status:        string(s.Status),
		StatusClass:   StatusClass(string(s.Status)),
		Progress:      int(s.Progress),
		ExcelLabel:    "Excel: " + excel,
		ExcelClass:    ExcelStatusClass(excel),
		ExcelProgress: int(s.ExcelProgress),
		Runtime:       FormatRuntime(s.Runtime),
		Processing:    running || excelRunning,
		StartDisabled: running || excelRunning,
		StopDisabled:  !running,
	}
}

// DisplayName returns the card title and the full name used as its tooltip.
// The title is the basename without a trailing .py, cut to 22 characters
// plus an ellipsis when it is longer than 25.
func DisplayName(name string) (string, string) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, ".py")
	runes := []rune(base)
	if len(runes) > maxNameLen {
		return string(runes[:truncatedLen]) + ellipsis, name
	}
	return base, name
}

// FormatRuntime drops sub-second precision; "00:00:05.123456" becomes
// "00:00:05".
func FormatRuntime(runtime string) string {
	if runtime == "" {
		return "00:00:00"
	}
	if idx := strings.IndexByte(runtime, '.'); idx >= 0 {
		return runtime[:idx]
	}
	return runtime
}

func StatusClass(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "running":
		return ClassRunning
	case "success":
		return ClassSuccess
	case "error":
		return ClassError
	default:
		return ClassPending
	}
}

// ExcelStatusClass is StatusClass for the secondary stage: Done maps to the
// success style and there is no distinct error style.
func ExcelStatusClass(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "running":
		return ClassRunning
	case "done":
		return ClassSuccess
	default:
		return ClassPending
	}
}
