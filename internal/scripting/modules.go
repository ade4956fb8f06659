package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the range.* Lua table into L:
//
//	range.log.debug|info|warn|error(msg)
//	range.weapon()    -> {id, name, state, clip, clip_size, reserve} or nil
//	range.remaining() -> targets still standing, or nil
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: range global is defined in L.
func (s *InputScript) RegisterModules(L *lua.LState) {
	mod := L.NewTable()

	logTbl := L.NewTable()
	for name, fn := range map[string]func(string, ...zap.Field){
		"debug": s.logger.Debug,
		"info":  s.logger.Info,
		"warn":  s.logger.Warn,
		"error": s.logger.Error,
	} {
		logFn := fn
		L.SetField(logTbl, name, L.NewFunction(func(L *lua.LState) int {
			logFn(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(mod, "log", logTbl)
	L.SetField(mod, "weapon", L.NewFunction(s.luaWeapon))
	L.SetField(mod, "remaining", L.NewFunction(s.luaRemaining))

	L.SetGlobal("range", mod)
}

func (s *InputScript) luaWeapon(L *lua.LState) int {
	if s.QueryWeapon == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := s.QueryWeapon()
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}
	tbl := L.NewTable()
	L.SetField(tbl, "id", lua.LString(info.ID))
	L.SetField(tbl, "name", lua.LString(info.Name))
	L.SetField(tbl, "state", lua.LString(info.State))
	L.SetField(tbl, "clip", lua.LNumber(info.Clip))
	L.SetField(tbl, "clip_size", lua.LNumber(info.ClipSize))
	L.SetField(tbl, "reserve", lua.LNumber(info.Reserve))
	L.Push(tbl)
	return 1
}

func (s *InputScript) luaRemaining(L *lua.LState) int {
	if s.QueryRemaining == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(s.QueryRemaining()))
	return 1
}
