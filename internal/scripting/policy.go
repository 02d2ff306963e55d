package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

// ChooseHook is the Lua global a policy script must define.
const ChooseHook = "choose_skill"

// Policy is a sim.Policy backed by a Lua script defining
// choose_skill(character, sim). The function returns a skill id, the string
// "trigger_equilibrium", or nil to wait.
//
// Policy is safe for concurrent use; calls are serialized on one LState.
type Policy struct {
	mu        sync.Mutex
	state     *lua.LState
	path      string
	instLimit int
	logger    *zap.Logger
}

// LoadPolicy creates a sandboxed VM, registers the engine module and runs
// the script at path.
//
// Precondition: logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a Policy or an error if the script cannot be loaded
// or does not define choose_skill.
func LoadPolicy(path string, instLimit int, logger *zap.Logger) (*Policy, error) {
	p := &Policy{path: path, instLimit: instLimit, logger: logger}
	L, release := NewSandboxedState(instLimit)
	defer release()
	p.RegisterModules(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
	}
	if L.GetGlobal(ChooseHook).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("scripting: %q does not define function %s", path, ChooseHook)
	}
	p.state = L
	logger.Info("lua policy loaded", zap.String("script", path))
	return p, nil
}

// Choose calls choose_skill with Lua views of c and s. Lua runtime errors and
// exhausted instruction budgets are logged at Warn and treated as a wait.
//
// Postcondition: err is non-nil only after Close; a non-string, non-nil
// result is a wait.
func (p *Policy) Choose(c sim.CharacterSnapshot, s sim.SimulationSnapshot) (skill.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	L := p.state
	if L == nil {
		return "", fmt.Errorf("scripting: policy %q is closed", p.path)
	}
	cancel := resetBudget(L, p.instLimit)
	defer cancel()

	if err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal(ChooseHook),
		NRet:    1,
		Protect: true,
	}, characterTable(L, c), simulationTable(L, s)); err != nil {
		L.SetTop(0)
		p.logger.Warn("scripting: Lua runtime error",
			zap.String("script", p.path),
			zap.String("hook", ChooseHook),
			zap.Error(err),
		)
		return "", nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	switch v := ret.(type) {
	case lua.LString:
		return skill.ID(v), nil
	case *lua.LNilType:
		return "", nil
	default:
		p.logger.Warn("scripting: choose_skill returned a non-string",
			zap.String("script", p.path),
			zap.String("type", ret.Type().String()),
		)
		return "", nil
	}
}

// Close releases the Lua VM.
func (p *Policy) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != nil {
		p.state.Close()
		p.state = nil
	}
}

func characterTable(L *lua.LState, c sim.CharacterSnapshot) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "state", lua.LString(c.State.String()))
	L.SetField(t, "next", lua.LString(c.Next.String()))
	L.SetField(t, "mode", lua.LString(c.Mode.String()))
	L.SetField(t, "pending_equilibrium", lua.LBool(c.PendingEquilibrium))
	L.SetField(t, "equilibrium_remaining", lua.LNumber(c.EquilibriumRemaining.Seconds()))
	L.SetField(t, "light", lua.LNumber(c.Light))
	L.SetField(t, "dark", lua.LNumber(c.Dark))
	L.SetField(t, "max_gauge", lua.LNumber(c.MaxGauge))
	L.SetField(t, "busy", lua.LBool(c.Busy))

	ready := L.NewTable()
	for _, id := range c.Ready {
		ready.Append(lua.LString(id))
	}
	L.SetField(t, "ready", ready)

	cooldowns := L.NewTable()
	for id, d := range c.Cooldowns {
		L.SetField(cooldowns, string(id), lua.LNumber(d.Seconds()))
	}
	L.SetField(t, "cooldowns", cooldowns)

	buffs := L.NewTable()
	for name, d := range c.Buffs {
		L.SetField(buffs, name, lua.LNumber(d.Seconds()))
	}
	L.SetField(t, "buffs", buffs)
	return t
}

func simulationTable(L *lua.LState, s sim.SimulationSnapshot) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "id", lua.LString(s.ID.String()))
	L.SetField(t, "time", lua.LNumber(s.Time.Seconds()))
	L.SetField(t, "duration", lua.LNumber(s.Duration.Seconds()))
	L.SetField(t, "target_hp", lua.LNumber(s.TargetHP))
	L.SetField(t, "target_max_hp", lua.LNumber(s.TargetMaxHP))
	L.SetField(t, "total_damage", lua.LNumber(s.TotalDamage))
	return t
}
