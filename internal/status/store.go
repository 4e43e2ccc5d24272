// Package status holds the dashboard's view of the backend process table.
//
// A Store has exactly one writer: the TUI update loop. It is deliberately not
// synchronized; callers that need a copy for another goroutine take one with
// Records or Running.
package status

import (
	"github.com/MrAliAmani/bids-scraping/internal/models"
)

// Patch is a partial update for one record. Nil fields are left alone.
type Patch struct {
	Status        *models.ScriptStatus
	Progress      *models.Percent
	ExcelStatus   *models.ExcelStatus
	ExcelProgress *models.Percent
}

// Change records a status transition on an existing record.
type Change struct {
	Name  string
	Field string
	From  string
	To    string
}

const (
	FieldStatus      = "status"
	FieldExcelStatus = "excel_status"
)

type Store struct {
	scripts []*models.Script
	lastSeq uint64
}

func NewStore() *Store {
	return &Store{}
}

// ReplaceAll swaps the whole list for a snapshot fetched with sequence seq.
// Snapshots that are not newer than the last applied one are dropped, so a
// slow request cannot roll the view back. Session logs follow records whose
// name survives the swap.
func (s *Store) ReplaceAll(seq uint64, records []models.Script) (bool, []Change) {
	if seq <= s.lastSeq {
		return false, nil
	}
	s.lastSeq = seq

	previous := make(map[string]*models.Script, len(s.scripts))
	for _, script := range s.scripts {
		previous[script.Name] = script
	}

	var changes []Change
	next := make([]*models.Script, 0, len(records))
	for i := range records {
		record := records[i]
		record.Normalize()
		record.Logs = nil
		if old, ok := previous[record.Name]; ok {
			record.Logs = old.Logs
			changes = appendChanges(changes, old, &record)
		}
		next = append(next, &record)
	}
	s.scripts = next
	return true, changes
}

// PatchByName merges patch into the named record. Unknown names are ignored;
// a patch never creates a record.
func (s *Store) PatchByName(name string, patch Patch) ([]Change, bool) {
	script := s.find(name)
	if script == nil {
		return nil, false
	}
	before := *script

	if patch.Status != nil {
		script.Status = models.ParseScriptStatus(string(*patch.Status))
	}
	if patch.Progress != nil {
		script.Progress = *patch.Progress
	}
	if patch.ExcelStatus != nil {
		script.ExcelStatus = models.ParseExcelStatus(string(*patch.ExcelStatus))
	}
	if patch.ExcelProgress != nil {
		script.ExcelProgress = *patch.ExcelProgress
	}
	return appendChanges(nil, &before, script), true
}

// AppendLog adds a line to the named record's session log.
func (s *Store) AppendLog(name, line string) bool {
	script := s.find(name)
	if script == nil {
		return false
	}
	script.Logs = append(script.Logs, line)
	return true
}

// Running returns the names of records whose primary status is Running, in
// display order.
func (s *Store) Running() []string {
	var names []string
	for _, script := range s.scripts {
		if script.IsRunning() {
			names = append(names, script.Name)
		}
	}
	return names
}

// Records returns copies of all records in display order.
func (s *Store) Records() []models.Script {
	out := make([]models.Script, 0, len(s.scripts))
	for _, script := range s.scripts {
		cp := *script
		cp.Logs = append([]string(nil), script.Logs...)
		out = append(out, cp)
	}
	return out
}

func (s *Store) Get(name string) (models.Script, bool) {
	script := s.find(name)
	if script == nil {
		return models.Script{}, false
	}
	cp := *script
	cp.Logs = append([]string(nil), script.Logs...)
	return cp, true
}

func (s *Store) Len() int {
	return len(s.scripts)
}

func (s *Store) LastSeq() uint64 {
	return s.lastSeq
}

// find is a linear scan; the managed set is a couple dozen scripts at most.
func (s *Store) find(name string) *models.Script {
	for _, script := range s.scripts {
		if script.Name == name {
			return script
		}
	}
	return nil
}

func appendChanges(changes []Change, before, after *models.Script) []Change {
	if before.Status != after.Status {
		changes = append(changes, Change{
			Name:  after.Name,
			Field: FieldStatus,
			From:  string(before.Status),
			To:    string(after.Status),
		})
	}
	if before.ExcelStatus != after.ExcelStatus {
		changes = append(changes, Change{
			Name:  after.Name,
			Field: FieldExcelStatus,
			From:  string(before.ExcelStatus),
			To:    string(after.ExcelStatus),
		})
	}
	return changes
}
