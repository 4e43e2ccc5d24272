package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptDecodesBackendSnapshot(t *testing.T) {
	raw := `[
		{"name": "scrapers/03_TXSMartBuy.py", "status": "Running", "progress": 42.0,
		 "excel_status": null, "excel_progress": null, "runtime": "0:01:05.123456", "log": "ignored"},
		{"name": "scrapers/02_NYC.py", "status": "Pending", "progress": 0, "runtime": null}
	]`

	var scripts []Script
	require.NoError(t, json.Unmarshal([]byte(raw), &scripts))
	require.Len(t, scripts, 2)

	assert.Equal(t, Percent(42), scripts[0].Progress)
	assert.Equal(t, "0:01:05.123456", scripts[0].Runtime)
	assert.Equal(t, "", scripts[1].Runtime)

	scripts[0].Normalize()
	assert.Equal(t, ExcelStatusPending, scripts[0].ExcelStatus)
}

func TestNormalizeDefaultsMissingStatus(t *testing.T) {
	var s Script
	require.NoError(t, json.Unmarshal([]byte(`{"name": "a.py"}`), &s))
	s.Normalize()
	assert.Equal(t, ScriptStatusPending, s.Status)
	assert.Equal(t, ExcelStatusPending, s.ExcelStatus)

	blank := Script{Name: "b.py", Status: "  ", ExcelStatus: "done"}
	blank.Normalize()
	assert.Equal(t, ScriptStatusPending, blank.Status)
	assert.Equal(t, ExcelStatusDone, blank.ExcelStatus)
}

func TestPercentPassesOutOfRangeValues(t *testing.T) {
	var p Percent
	require.NoError(t, json.Unmarshal([]byte(`140.7`), &p))
	assert.Equal(t, Percent(140), p)
	require.NoError(t, json.Unmarshal([]byte(`-5`), &p))
	assert.Equal(t, Percent(-5), p)
}

func TestPercentSaturatesHugeValues(t *testing.T) {
	var p Percent
	require.NoError(t, json.Unmarshal([]byte(`1e300`), &p))
	assert.Equal(t, Percent(math.MaxInt32), p)
	require.NoError(t, json.Unmarshal([]byte(`-1e300`), &p))
	assert.Equal(t, Percent(math.MinInt32), p)
	require.NoError(t, json.Unmarshal([]byte(`"12.9"`), &p))
	assert.Equal(t, Percent(12), p)
}

func TestParseScriptStatusIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, ScriptStatusRunning, ParseScriptStatus("RUNNING"))
	assert.Equal(t, ScriptStatusSuccess, ParseScriptStatus(" success "))
	assert.Equal(t, ScriptStatus("Done"), ParseScriptStatus("Done"))
	assert.Equal(t, ExcelStatusDone, ParseExcelStatus("done"))
}

func TestIsProcessing(t *testing.T) {
	assert.True(t, (&Script{Status: ScriptStatusRunning}).IsProcessing())
	assert.True(t, (&Script{Status: ScriptStatusSuccess, ExcelStatus: ExcelStatusRunning}).IsProcessing())
	assert.False(t, (&Script{Status: ScriptStatusSuccess, ExcelStatus: ExcelStatusDone}).IsProcessing())
}
