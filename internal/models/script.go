package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type ScriptStatus string

const (
	ScriptStatusPending ScriptStatus = "Pending"
	ScriptStatusRunning ScriptStatus = "Running"
	ScriptStatusSuccess ScriptStatus = "Success"
	ScriptStatusError   ScriptStatus = "Error"
)

type ExcelStatus string

const (
	ExcelStatusPending ExcelStatus = "Pending"
	ExcelStatusRunning ExcelStatus = "Running"
	ExcelStatusDone    ExcelStatus = "Done"
)

// ParseScriptStatus normalizes a wire status case-insensitively. Unknown
// values are kept verbatim so they still reach the screen.
func ParseScriptStatus(raw string) ScriptStatus {
	trimmed := strings.TrimSpace(raw)
	for _, s := range []ScriptStatus{ScriptStatusPending, ScriptStatusRunning, ScriptStatusSuccess, ScriptStatusError} {
		if strings.EqualFold(trimmed, string(s)) {
			return s
		}
	}
	return ScriptStatus(trimmed)
}

func ParseExcelStatus(raw string) ExcelStatus {
	trimmed := strings.TrimSpace(raw)
	for _, s := range []ExcelStatus{ExcelStatusPending, ExcelStatusRunning, ExcelStatusDone} {
		if strings.EqualFold(trimmed, string(s)) {
			return s
		}
	}
	return ExcelStatus(trimmed)
}

// Percent is a completion percentage. The backend sends both integers and
// floats (rich progress counters), so decoding accepts any JSON number and
// truncates. Values outside 0-100 are passed through untouched; values past
// the int32 range saturate.
type Percent int

func (p *Percent) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		*p = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		*p = 0
		return nil
	}
	*p = Percent(int(max(math.MinInt32, min(f, math.MaxInt32))))
	return nil
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(p))
}

// Script is the client-side state for one managed worker script. Logs are
// collected during the session only and never sent or stored.
type Script struct {
	Name          string       `json:"name"`
	Status        ScriptStatus `json:"status"`
	Progress      Percent      `json:"progress"`
	ExcelStatus   ExcelStatus  `json:"excel_status"`
	ExcelProgress Percent      `json:"excel_progress"`
	Runtime       string       `json:"runtime"`
	Logs          []string     `json:"-"`
}

func (s *Script) IsRunning() bool {
	return s.Status == ScriptStatusRunning
}

func (s *Script) IsProcessing() bool {
	return s.Status == ScriptStatusRunning || s.ExcelStatus == ExcelStatusRunning
}

// Normalize canonicalizes enum casing and fills the defaults for fields that
// older backends omit.
func (s *Script) Normalize() {
	if strings.TrimSpace(string(s.Status)) == "" {
		s.Status = ScriptStatusPending
	} else {
		s.Status = ParseScriptStatus(string(s.Status))
	}
	if strings.TrimSpace(string(s.ExcelStatus)) == "" {
		s.ExcelStatus = ExcelStatusPending
	} else {
		s.ExcelStatus = ParseExcelStatus(string(s.ExcelStatus))
	}
}

// MasterStatus carries the aggregate counts from /api/master/status.
type MasterStatus struct {
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
