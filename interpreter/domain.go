package interpreter

import scxmlfsm "github.com/comalice/scxmlfsm"

// effectiveTargets resolves every target of t through history pseudo-states
// (spec §4.2 "Effective targets").
func (ip *Interpreter) effectiveTargets(t *scxmlfsm.Transition) []scxmlfsm.StateId {
	var out []scxmlfsm.StateId
	for _, target := range t.Targets {
		out = append(out, ip.effectiveTargetsOf(target)...)
	}
	return out
}

func (ip *Interpreter) effectiveTargetsOf(id scxmlfsm.StateId) []scxmlfsm.StateId {
	s := ip.Fsm.State(id)
	if !s.IsHistory() {
		return []scxmlfsm.StateId{id}
	}
	if snapshot, ok := ip.Global.HistoryFor(id); ok {
		return snapshot
	}
	if len(s.Transitions) == 0 {
		return nil
	}
	defTrans := ip.Fsm.Transition(s.Transitions[0])
	var out []scxmlfsm.StateId
	for _, target := range defTrans.Targets {
		out = append(out, ip.effectiveTargetsOf(target)...)
	}
	return out
}

// findLCCA returns the least common compound ancestor of states (spec
// GLOSSARY "LCCA"). The pseudo-root is always a valid fallback since it is
// compound and an ancestor of everything.
func (ip *Interpreter) findLCCA(states []scxmlfsm.StateId) scxmlfsm.StateId {
	if len(states) == 0 {
		return ip.Fsm.PseudoRoot
	}
	head, tail := states[0], states[1:]
	for _, anc := range ip.Fsm.Ancestors(head) {
		if !ip.Fsm.State(anc).IsCompound() {
			continue
		}
		ok := true
		for _, s := range tail {
			if !ip.Fsm.IsOrDescendant(s, anc) {
				ok = false
				break
			}
		}
		if ok {
			return anc
		}
	}
	return ip.Fsm.PseudoRoot
}

// transitionDomain computes t's transition domain (spec §4.2).
func (ip *Interpreter) transitionDomain(t *scxmlfsm.Transition) scxmlfsm.StateId {
	if t.IsTargetless() {
		return 0
	}
	targets := ip.effectiveTargets(t)
	if t.Type == scxmlfsm.TransitionInternal && ip.Fsm.State(t.Source).IsCompound() {
		allDescendants := true
		for _, tg := range targets {
			if !ip.Fsm.IsOrDescendant(tg, t.Source) {
				allDescendants = false
				break
			}
		}
		if allDescendants {
			return t.Source
		}
	}
	return ip.findLCCA(append([]scxmlfsm.StateId{t.Source}, targets...))
}

// exitSetForTransition returns the states in the current configuration
// that are proper descendants of t's transition domain.
func (ip *Interpreter) exitSetForTransition(tid scxmlfsm.TransitionId) map[scxmlfsm.StateId]bool {
	t := ip.Fsm.Transition(tid)
	domain := ip.transitionDomain(t)
	result := make(map[scxmlfsm.StateId]bool)
	if domain == 0 {
		return result
	}
	for _, sid := range ip.Global.ConfigurationSnapshot() {
		if ip.Fsm.IsDescendant(sid, domain) {
			result[sid] = true
		}
	}
	return result
}

func exitSetsIntersect(a, b map[scxmlfsm.StateId]bool) bool {
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if large[id] {
			return true
		}
	}
	return false
}

// properAncestorsUntil returns state's proper ancestors, innermost first,
// stopping before (excluding) boundary.
func (ip *Interpreter) properAncestorsUntil(state, boundary scxmlfsm.StateId) []scxmlfsm.StateId {
	var out []scxmlfsm.StateId
	cur := ip.Fsm.State(state).Parent
	for cur != 0 && cur != boundary {
		out = append(out, cur)
		cur = ip.Fsm.State(cur).Parent
	}
	return out
}
