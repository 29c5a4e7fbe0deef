package interpreter

import scxmlfsm "github.com/comalice/scxmlfsm"

// entryBuilder accumulates the states to enter for one microstep, plus the
// bookkeeping needed to run default-initial and default-history content
// after onentry (spec §4.2 "Entry set").
type entryBuilder struct {
	ip             *Interpreter
	order          []scxmlfsm.StateId
	seen           map[scxmlfsm.StateId]bool
	defaultEntry   map[scxmlfsm.StateId]bool
	historyContent map[scxmlfsm.StateId]scxmlfsm.TransitionId // keyed by history's parent state id
}

func newEntryBuilder(ip *Interpreter) *entryBuilder {
	return &entryBuilder{
		ip:             ip,
		seen:           make(map[scxmlfsm.StateId]bool),
		defaultEntry:   make(map[scxmlfsm.StateId]bool),
		historyContent: make(map[scxmlfsm.StateId]scxmlfsm.TransitionId),
	}
}

func (b *entryBuilder) add(id scxmlfsm.StateId) {
	if !b.seen[id] {
		b.seen[id] = true
		b.order = append(b.order, id)
	}
}

// coversChild reports whether some already-planned state is child or a
// descendant of child, i.e. child's subtree is already being entered.
func (b *entryBuilder) coversChild(child scxmlfsm.StateId) bool {
	for id := range b.seen {
		if b.ip.Fsm.IsOrDescendant(id, child) {
			return true
		}
	}
	return false
}

func (b *entryBuilder) addDescendantStatesToEnter(state scxmlfsm.StateId) {
	s := b.ip.Fsm.State(state)
	if s.IsHistory() {
		if snapshot, ok := b.ip.Global.HistoryFor(state); ok {
			for _, t := range snapshot {
				b.addDescendantStatesToEnter(t)
			}
			for _, t := range snapshot {
				b.addAncestorStatesToEnter(t, s.Parent)
			}
			return
		}
		if len(s.Transitions) == 0 {
			return
		}
		defTrans := b.ip.Fsm.Transition(s.Transitions[0])
		b.historyContent[s.Parent] = defTrans.Id
		for _, t := range defTrans.Targets {
			b.addDescendantStatesToEnter(t)
		}
		for _, t := range defTrans.Targets {
			b.addAncestorStatesToEnter(t, s.Parent)
		}
		return
	}

	b.add(state)
	switch {
	case s.IsParallel:
		for _, child := range s.Children {
			if !b.coversChild(child) {
				b.addDescendantStatesToEnter(child)
			}
		}
	case s.IsCompound():
		b.defaultEntry[state] = true
		initTrans := b.ip.Fsm.Transition(s.Initial)
		for _, t := range initTrans.Targets {
			b.addDescendantStatesToEnter(t)
		}
		for _, t := range initTrans.Targets {
			b.addAncestorStatesToEnter(t, state)
		}
	}
}

func (b *entryBuilder) addAncestorStatesToEnter(state, boundary scxmlfsm.StateId) {
	for _, anc := range b.ip.properAncestorsUntil(state, boundary) {
		b.add(anc)
		ancState := b.ip.Fsm.State(anc)
		if ancState.IsParallel {
			for _, child := range ancState.Children {
				if !b.coversChild(child) {
					b.addDescendantStatesToEnter(child)
				}
			}
		}
	}
}

// computeEntrySet implements spec §4.2's entry-set algorithm for a set of
// selected transitions.
func (ip *Interpreter) computeEntrySet(transitions []scxmlfsm.TransitionId) *entryBuilder {
	b := newEntryBuilder(ip)
	for _, tid := range transitions {
		t := ip.Fsm.Transition(tid)
		if t.IsTargetless() {
			continue
		}
		for _, target := range t.Targets {
			b.addDescendantStatesToEnter(target)
		}
		domain := ip.transitionDomain(t)
		for _, s := range ip.effectiveTargets(t) {
			b.addAncestorStatesToEnter(s, domain)
		}
	}
	return b
}

func sortByDocIdAsc(fsm *scxmlfsm.Fsm, ids []scxmlfsm.StateId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && fsm.State(ids[j-1]).DocId > fsm.State(ids[j]).DocId; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func sortByDocIdDesc(fsm *scxmlfsm.Fsm, ids []scxmlfsm.StateId) {
	sortByDocIdAsc(fsm, ids)
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
}
