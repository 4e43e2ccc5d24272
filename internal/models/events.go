package models

// Push event names delivered over the Socket.IO channel.
const (
	EventScriptOutput   = "script_output"
	EventProgressUpdate = "progress_update"
	EventScriptUpdate   = "script_update"
	EventMainLog        = "main_log"

	EventConnect      = "connect"
	EventConnectError = "connect_error"
	EventDisconnect   = "disconnect"
)

const ProgressTypeExcel = "excel_processing"

type ScriptOutputEvent struct {
	Script string `json:"script"`
	Output string `json:"output"`
}

type ProgressUpdateEvent struct {
	Script   string  `json:"script"`
	Type     string  `json:"type,omitempty"`
	Status   string  `json:"status,omitempty"`
	Progress Percent `json:"progress"`
	Message  string  `json:"message"`
}

// ScriptUpdateEvent is a full status refresh for one script. The Excel
// stage also sends the row progress and a message with it.
type ScriptUpdateEvent struct {
	Script        string   `json:"script"`
	Status        string   `json:"status"`
	ExcelStatus   string   `json:"excel_status"`
	ExcelProgress Percent  `json:"excel_progress"`
	Progress      *Percent `json:"progress,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type MainLogEvent struct {
	Message string `json:"message"`
}
