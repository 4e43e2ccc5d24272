// Package hooks runs an optional user Lua script whenever a script or its
// Excel stage changes status. The script may write extra lines to the
// session log:
//
//	function on_status(name, field, from, to)
//	  if to == "Error" then
//	    return "check " .. name
//	  end
//	end
//
// on_status may return nothing, a string or a list of strings. log(msg)
// appends a line as well. Only the base, table, string and math libraries
// are available.
package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/MrAliAmani/bids-scraping/internal/status"
)

// CallTimeout bounds a single on_status call.
const CallTimeout = 250 * time.Millisecond

// Runtime holds one loaded hook script. It is not safe for concurrent use;
// the dashboard calls it from its update loop only.
type Runtime struct {
	path  string
	L     *lua.LState
	lines []string
	calls int
}

// Load reads and runs the script at path so its functions are defined.
func Load(path string) (*Runtime, error) {
	r := &Runtime{path: path}
	L, err := r.newState()
	if err != nil {
		return nil, err
	}
	r.L = L
	return r, nil
}

func (r *Runtime) Path() string {
	return r.path
}

// Calls is the number of on_status invocations so far.
func (r *Runtime) Calls() int {
	return r.calls
}

// Reload re-reads the script. On failure the previous version stays active.
func (r *Runtime) Reload() error {
	L, err := r.newState()
	if err != nil {
		return err
	}
	if r.L != nil {
		r.L.Close()
	}
	r.L = L
	return nil
}

func (r *Runtime) Close() {
	if r.L != nil {
		r.L.Close()
		r.L = nil
	}
}

func (r *Runtime) newState() (*lua.LState, error) {
	script, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hook script: %w", err)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	L.SetGlobal("log", L.NewFunction(r.luaLog))

	ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
	defer cancel()
	L.SetContext(ctx)
	err = L.DoString(string(script))
	L.RemoveContext()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to load hook script: %w", err)
	}
	return L, nil
}

// openSafeLibs loads the side-effect free standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)

	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("module", lua.LNil)
	L.SetGlobal("print", lua.LNil) // log() instead

	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// OnStatus calls on_status for one transition and returns the lines it
// produced. A script without on_status yields nothing.
func (r *Runtime) OnStatus(c status.Change) ([]string, error) {
	if r.L == nil {
		return nil, nil
	}
	fn := r.L.GetGlobal("on_status")
	if fn.Type() != lua.LTFunction {
		return nil, nil
	}
	r.calls++
	r.lines = r.lines[:0]

	ctx, cancel := context.WithTimeout(context.Background(), CallTimeout)
	defer cancel()
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	r.L.Push(fn)
	r.L.Push(lua.LString(c.Name))
	r.L.Push(lua.LString(c.Field))
	r.L.Push(lua.LString(c.From))
	r.L.Push(lua.LString(c.To))
	if err := r.L.PCall(4, 1, nil); err != nil {
		return nil, fmt.Errorf("on_status(%s) failed: %w", c.Name, err)
	}
	ret := r.L.Get(-1)
	r.L.Pop(1)

	out := append([]string(nil), r.lines...)
	switch v := ret.(type) {
	case lua.LString:
		out = append(out, string(v))
	case *lua.LTable:
		v.ForEach(func(_, item lua.LValue) {
			if s, ok := item.(lua.LString); ok {
				out = append(out, string(s))
			}
		})
	}
	return out, nil
}

func (r *Runtime) luaLog(L *lua.LState) int {
	message := L.CheckString(1)
	r.lines = append(r.lines, message)
	return 0
}

// IsHookFile reports whether path looks like a Lua hook script.
func IsHookFile(path string) bool {
	return filepath.Ext(path) == ".lua"
}
