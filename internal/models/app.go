package models

type AppState string

const (
	AppStateUnknown AppState = ""
	AppStateRunning AppState = "running"
	AppStateStopped AppState = "stopped"
)

// CommandResult is the generic {status, message} envelope most control
// endpoints answer with.
type CommandResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r CommandResult) OK() bool {
	return r.Status == "success"
}

type LogResponse struct {
	Status  string `json:"status"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
	Format  string `json:"format,omitempty"`
}

type AppStatusResponse struct {
	Status  string `json:"status"`
	PID     int    `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
}

type MainLogResponse struct {
	Log string `json:"log"`
}
