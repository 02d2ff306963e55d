package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine Lua table into L:
//
//	engine.log(msg)            writes msg to the policy logger at Debug
//	engine.contains(list, v)   reports whether the array list holds v
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (p *Policy) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", L.NewFunction(p.luaLog))
	L.SetField(engine, "contains", L.NewFunction(luaContains))
	L.SetGlobal("engine", engine)
}

func (p *Policy) luaLog(L *lua.LState) int {
	p.logger.Debug("lua policy", zap.String("msg", L.CheckString(1)), zap.String("script", p.path))
	return 0
}

func luaContains(L *lua.LState) int {
	list := L.CheckTable(1)
	v := L.CheckAny(2)
	found := false
	list.ForEach(func(_, item lua.LValue) {
		if !found && lua.LVAsString(item) == lua.LVAsString(v) && item.Type() == v.Type() {
			found = true
		}
	})
	L.Push(lua.LBool(found))
	return 1
}
