package datamodel

import (
	"fmt"
	"sync"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// Action is a process-wide registered callable: (args, global_state) ->
// (Data, error), invoked from the script engine and from the null model's
// built-ins (spec §4.4 "Action registry"). Actions see the session's
// global state read-only except where individually documented.
type Action func(args []scxmlfsm.Data, g *scxmlfsm.GlobalSessionState) (scxmlfsm.Data, error)

// ActionRegistry maps action name to Action. One registry is shared by
// every session in a process, mirroring the teacher's action-runner
// registry pattern.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewActionRegistry builds an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]Action)}
}

// Register adds or replaces the action named name.
func (r *ActionRegistry) Register(name string, fn Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[name] = fn
}

// Lookup returns the action registered under name, if any.
func (r *ActionRegistry) Lookup(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.actions[name]
	return fn, ok
}

// Names returns every registered action name.
func (r *ActionRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for n := range r.actions {
		out = append(out, n)
	}
	return out
}

// Invoke calls the named action, producing a descriptive error if it is
// not registered.
func (r *ActionRegistry) Invoke(name string, args []scxmlfsm.Data, g *scxmlfsm.GlobalSessionState) (scxmlfsm.Data, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return scxmlfsm.NullData(), fmt.Errorf("datamodel: action %q is not registered", name)
	}
	return fn(args, g)
}
