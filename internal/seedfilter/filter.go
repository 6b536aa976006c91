// Package seedfilter evaluates a small sandboxed Lua predicate that decides
// whether a seed file takes part in a campaign.
//
// The predicate sees the globals name, stem, ext and size, e.g.
//
//	ext == ".js" and size < 4096
package seedfilter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	defaultTimeout      = 200 * time.Millisecond
	registrySize        = 256
	registryMaxSize     = 1024
	sandboxTimeoutError = "seed filter: sandbox timeout"
)

// Attrs are the seed attributes exposed to the predicate.
type Attrs struct {
	Name string
	Stem string
	Ext  string
	Size int64
}

// Filter is a compiled predicate. A nil *Filter matches every seed.
type Filter struct {
	code    string
	Timeout time.Duration
}

// Compile validates expr and returns a Filter. An empty expression yields nil.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	L := newSandboxState()
	defer L.Close()
	// A bare expression is wrapped; anything else must be a full chunk.
	code := "return (" + expr + ")"
	if _, err := L.LoadString(code); err != nil {
		code = expr
		if _, err := L.LoadString(code); err != nil {
			return nil, fmt.Errorf("seed filter: %v", err)
		}
	}
	return &Filter{code: code, Timeout: defaultTimeout}, nil
}

// Source returns the Lua chunk that is evaluated per seed.
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.code
}

// Match evaluates the predicate for one seed.
func (f *Filter) Match(a Attrs) (bool, error) {
	if f == nil {
		return true, nil
	}
	L := newSandboxState()
	defer L.Close()

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	L.SetContext(ctx)

	L.SetGlobal("name", lua.LString(a.Name))
	L.SetGlobal("stem", lua.LString(a.Stem))
	L.SetGlobal("ext", lua.LString(a.Ext))
	L.SetGlobal("size", lua.LNumber(float64(a.Size)))

	fn, err := L.LoadString(f.code)
	if err != nil {
		return false, fmt.Errorf("seed filter: %v", err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if isTimeoutError(err) {
			return false, errors.New(sandboxTimeoutError)
		}
		return false, fmt.Errorf("seed filter: %v", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	b, ok := ret.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("seed filter: expected boolean result, got %s", ret.Type().String())
	}
	return bool(b), nil
}

func newSandboxState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     registrySize,
		RegistryMaxSize:  registryMaxSize,
		RegistryGrowStep: 0,
	})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	openLib(lua.BaseLibName, lua.OpenBase)
	openLib(lua.StringLibName, lua.OpenString)
	openLib(lua.TabLibName, lua.OpenTable)
	openLib(lua.MathLibName, lua.OpenMath)
	return L
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}
