package scripting

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/firingrange/internal/input"
)

// inputHook is the Lua global an input script must define:
//
//	function input(tick, time) return { trigger = true } end
const inputHook = "input"

// WeaponInfo is a snapshot of the active weapon passed to Lua callbacks.
type WeaponInfo struct {
	ID       string
	Name     string
	State    string
	Clip     int
	ClipSize int
	Reserve  int
}

// InputScript is an input.Source backed by a sandboxed Lua VM.
//
// Poll is serialized; the VM itself is single-threaded.
type InputScript struct {
	mu     sync.Mutex
	L      *lua.LState
	cancel context.CancelFunc
	limit  int
	path   string
	logger *zap.Logger

	// Injected after construction. nil = the range.* query returns nil.
	QueryWeapon    func() *WeaponInfo
	QueryRemaining func() int
}

// LoadInputScript creates a sandboxed VM, registers the range.* module and
// executes the file at path.
//
// Precondition: path must be a readable Lua file; logger must be non-nil.
// Postcondition: Returns an InputScript whose VM defines input(), or an error
// on a Lua load failure or a missing input function.
func LoadInputScript(path string, instLimit int, logger *zap.Logger) (*InputScript, error) {
	if logger == nil {
		panic("scripting.LoadInputScript: logger must not be nil")
	}
	L, cancel := NewSandboxedState(instLimit)
	s := &InputScript{
		L:      L,
		cancel: cancel,
		limit:  instLimit,
		path:   path,
		logger: logger.With(zap.String("script", path)),
	}
	s.RegisterModules(L)

	if err := L.DoFile(path); err != nil {
		s.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	if fn, ok := L.GetGlobal(inputHook).(*lua.LFunction); !ok || fn == nil {
		s.Close()
		return nil, fmt.Errorf("scripting: %q does not define function %s(tick, time)", path, inputHook)
	}
	return s, nil
}

// Poll calls input(tick, time) and converts the returned table into a State.
// A nil return means no controls are held. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and yield the idle
// State; only a cancelled ctx is returned as an error.
func (s *InputScript) Poll(ctx context.Context, tick int, t float64) (input.State, error) {
	if err := ctx.Err(); err != nil {
		return input.State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.L == nil {
		return input.State{}, fmt.Errorf("scripting: %q is closed", s.path)
	}

	fn := s.L.GetGlobal(inputHook)
	if err := callWithBudget(ctx, s.L, s.limit, lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(tick), lua.LNumber(t)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return input.State{}, ctxErr
		}
		s.logger.Warn("scripting: Lua runtime error",
			zap.Int("tick", tick),
			zap.Error(err),
		)
		return input.State{}, nil
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	return s.toState(ret, tick), nil
}

func (s *InputScript) toState(v lua.LValue, tick int) input.State {
	switch tv := v.(type) {
	case *lua.LTable:
		return input.State{
			Trigger:    lua.LVAsBool(tv.RawGetString("trigger")),
			Jump:       lua.LVAsBool(tv.RawGetString("jump")),
			NextWeapon: lua.LVAsBool(tv.RawGetString("next_weapon")),
			Reload:     lua.LVAsBool(tv.RawGetString("reload")),
		}
	case *lua.LNilType:
		return input.State{}
	default:
		s.logger.Warn("scripting: input() must return a table or nil",
			zap.Int("tick", tick),
			zap.String("got", v.Type().String()),
		)
		return input.State{}
	}
}

// Close releases the VM. Poll after Close returns an error.
func (s *InputScript) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.L == nil {
		return
	}
	s.cancel()
	s.L.Close()
	s.L = nil
}
