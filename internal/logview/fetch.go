// Package logview fetches a script's log from the backend and shows it in
// the dashboard's single log overlay.
package logview

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type Kind int

const (
	KindLoading Kind = iota
	KindContent
	KindPending
	KindInfo
	KindError
)

const (
	DefaultInfoMessage = "No logs available yet. Logs will appear here once the script starts running."
	ErrorMessage       = "Error loading logs. Please try again."
)

type API interface {
	Logs(ctx context.Context, script string) (models.LogResponse, error)
}

// Result is what the overlay shows for one request.
type Result struct {
	ID      int
	Kind    Kind
	Script  string
	Path    string
	Content string
	Message string
	Err     error
}

// NormalizeName turns Windows separators into forward slashes; the backend
// keys scripts by the path it was launched with.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

// CandidatePath is the dated log file the backend reads for a script:
// yesterday's folder and the script's base name. It is a label only; the
// fetch goes by the live identifier and the backend resolves the file.
func CandidatePath(now time.Time, name string) string {
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	base := strings.TrimSuffix(path.Base(NormalizeName(name)), ".py")
	return yesterday + "/" + base + ".log"
}

// Fetch loads and classifies the log for name.
func Fetch(ctx context.Context, api API, id int, name string, now time.Time) Result {
	script := NormalizeName(name)
	res := Result{ID: id, Script: script, Path: CandidatePath(now, script)}

	resp, err := api.Logs(ctx, script)
	if err != nil {
		res.Kind = KindError
		res.Message = ErrorMessage
		res.Err = err
		return res
	}

	switch {
	case resp.Status == "success" && resp.Content != "":
		res.Kind = KindContent
		res.Content = resp.Content
	case resp.Status == "pending":
		res.Kind = KindPending
		res.Message = messageOrDefault(resp.Message)
	default:
		res.Kind = KindInfo
		res.Message = messageOrDefault(resp.Message)
	}
	return res
}

func messageOrDefault(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return DefaultInfoMessage
	}
	return msg
}
