package logview

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViewer(clip *[]string) *Viewer {
	return NewViewer().WithClipboard(func(s string) error {
		*clip = append(*clip, s)
		return nil
	})
}

func longLog(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "line"
	}
	return strings.Join(lines, "\n")
}

func TestViewerOpenShowsLoading(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	id, cmd := v.Open("scripts/a.py", day)
	assert.NotNil(t, cmd)
	assert.True(t, v.IsOpen())
	assert.Equal(t, KindLoading, v.Result().Kind)
	assert.Equal(t, id, v.Result().ID)
	assert.Contains(t, v.View(), "Loading logs for scripts/a.py")
}

func TestViewerIgnoresStaleResult(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	first, _ := v.Open("a.py", day)
	second, _ := v.Open("b.py", day)
	require.NotEqual(t, first, second)

	assert.False(t, v.SetResult(Result{ID: first, Kind: KindContent, Content: "old"}))
	assert.Equal(t, KindLoading, v.Result().Kind)

	assert.True(t, v.SetResult(Result{ID: second, Kind: KindInfo, Message: DefaultInfoMessage}))
	assert.Equal(t, KindInfo, v.Result().Kind)
}

func TestViewerIgnoresResultAfterClose(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	id, _ := v.Open("a.py", day)
	v.Close()
	assert.False(t, v.SetResult(Result{ID: id, Kind: KindContent, Content: "x"}))
	assert.Empty(t, v.View())
}

func TestViewerScrollsContentToBottom(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)
	v.SetSize(60, 5)

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindContent, Content: longLog(50), Path: "2024-02-29/a.log"})
	assert.True(t, v.AtBottom())
	assert.Contains(t, v.View(), "2024-02-29/a.log")
}

func TestViewerCopyRevertsOnMatchingReset(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindContent, Content: "hello"})

	cmd := v.Copy()
	require.NotNil(t, cmd)
	assert.Equal(t, []string{"hello"}, clip)
	assert.True(t, v.Copied())
	assert.Contains(t, v.View(), "Copied!")

	v.Update(CopyResetMsg{Gen: 1})
	assert.False(t, v.Copied())
	assert.Contains(t, v.View(), "[c] Copy")
}

func TestViewerCopyIgnoresOldReset(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindContent, Content: "hello"})

	v.Copy()
	v.Copy()
	v.Update(CopyResetMsg{Gen: 1})
	assert.True(t, v.Copied(), "the first timer must not cut the second confirmation short")

	v.Update(CopyResetMsg{Gen: 2})
	assert.False(t, v.Copied())
}

func TestViewerCopyNeedsContent(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	assert.Nil(t, v.Copy())

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindPending, Message: "queued"})
	assert.Nil(t, v.Copy())
	assert.Empty(t, clip)
}

func TestViewerCopyFailure(t *testing.T) {
	v := NewViewer().WithClipboard(func(string) error { return errors.New("no clipboard") })

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindContent, Content: "hello"})

	assert.Nil(t, v.Copy())
	assert.False(t, v.Copied())
	require.Error(t, v.CopyError())
	assert.Contains(t, v.View(), "no clipboard")
}

func TestCopiedFlashDuration(t *testing.T) {
	assert.Equal(t, 2000*time.Millisecond, CopiedFlash)
}

func TestViewerRendersMessages(t *testing.T) {
	var clip []string
	v := newTestViewer(&clip)

	id, _ := v.Open("a.py", day)
	v.SetResult(Result{ID: id, Kind: KindError, Script: "a.py", Message: ErrorMessage})
	assert.Contains(t, v.View(), ErrorMessage)
}
