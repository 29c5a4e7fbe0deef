package scxmlfsm

// StateId indexes into Fsm.States; it equals the state's table position + 1,
// so 0 is never a valid state and can mean "none" (spec §3).
type StateId uint32

// TransitionId keys Fsm.Transitions; 0 means "none".
type TransitionId uint32

// ExecutableContentId keys Fsm.ExecutableContent; 0 means "no content".
type ExecutableContentId uint32

// HistoryKind distinguishes plain states from shallow/deep history
// pseudo-states.
type HistoryKind int

const (
	HistoryNone HistoryKind = iota
	HistoryShallow
	HistoryDeep
)

// TransitionType distinguishes SCXML's two transition kinds, which affect
// exit-set computation (spec §4.2 "Transition domain").
type TransitionType int

const (
	TransitionExternal TransitionType = iota
	TransitionInternal
)

// DataDecl is one <data id="..." expr="..."/> declaration local to a state.
type DataDecl struct {
	Id   string `json:"id" yaml:"id"`
	Expr string `json:"expr,omitempty" yaml:"expr,omitempty"`
}

// DoneData is the <donedata> payload evaluated when a final state is
// entered, or when an invoked session terminates.
type DoneData struct {
	Content CommonContent `json:"content,omitempty" yaml:"content,omitempty"`
	Params  []Param       `json:"params,omitempty" yaml:"params,omitempty"`
}

// CommonContent models a <content> element: at most one of Literal/Expr is
// populated (spec §3).
type CommonContent struct {
	Literal    string `json:"literal,omitempty" yaml:"literal,omitempty"`
	HasLiteral bool   `json:"hasLiteral,omitempty" yaml:"hasLiteral,omitempty"`
	Expr       string `json:"expr,omitempty" yaml:"expr,omitempty"`
	HasExpr    bool   `json:"hasExpr,omitempty" yaml:"hasExpr,omitempty"`
}

// Param models a <param name="..." expr="..."/> or <param name="..."
// location="..."/>; Expr and Location are mutually exclusive per W3C.
type Param struct {
	Name     string `json:"name" yaml:"name"`
	Expr     string `json:"expr,omitempty" yaml:"expr,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// Invoke models a <invoke> element. Exactly one of InvokeId/IdLocation may
// be non-empty at load time; the interpreter generates the runtime id into
// whichever was requested (spec §3, SPEC_FULL §C.4).
type Invoke struct {
	DocId       int      `json:"docId" yaml:"docId"`
	InvokeId    string   `json:"invokeId,omitempty" yaml:"invokeId,omitempty"`
	IdLocation  string   `json:"idLocation,omitempty" yaml:"idLocation,omitempty"`
	Type        string   `json:"type,omitempty" yaml:"type,omitempty"`
	TypeExpr    string   `json:"typeExpr,omitempty" yaml:"typeExpr,omitempty"`
	Src         string   `json:"src,omitempty" yaml:"src,omitempty"`
	SrcExpr     string   `json:"srcExpr,omitempty" yaml:"srcExpr,omitempty"`
	Namelist    []string `json:"namelist,omitempty" yaml:"namelist,omitempty"`
	Autoforward bool     `json:"autoforward,omitempty" yaml:"autoforward,omitempty"`
	Finalize    ExecutableContentId `json:"finalize,omitempty" yaml:"finalize,omitempty"`
	Params      []Param  `json:"params,omitempty" yaml:"params,omitempty"`
	Content     *CommonContent `json:"content,omitempty" yaml:"content,omitempty"`
	ParentState StateId  `json:"parentState" yaml:"parentState"`
}

// Transition models one <transition> element (spec §3).
type Transition struct {
	Id      TransitionId        `json:"id" yaml:"id"`
	DocId   int                 `json:"docId" yaml:"docId"`
	Source  StateId             `json:"source" yaml:"source"`
	Targets []StateId           `json:"targets,omitempty" yaml:"targets,omitempty"`
	Events  []string            `json:"events,omitempty" yaml:"events,omitempty"`
	Wildcard bool               `json:"wildcard,omitempty" yaml:"wildcard,omitempty"`
	Cond    string              `json:"cond,omitempty" yaml:"cond,omitempty"`
	HasCond bool                `json:"hasCond,omitempty" yaml:"hasCond,omitempty"`
	Type    TransitionType      `json:"type" yaml:"type"`
	Content ExecutableContentId `json:"content,omitempty" yaml:"content,omitempty"`
}

// IsEventless reports whether t fires without a triggering event.
func (t Transition) IsEventless() bool { return len(t.Events) == 0 }

// IsTargetless reports whether t has no targets (an action-only transition
// that never contributes to an exit set).
func (t Transition) IsTargetless() bool { return len(t.Targets) == 0 }

// MatchesEvent reports whether t fires for event name.
func (t Transition) MatchesEvent(name string) bool {
	return NameMatches(t.Events, t.Wildcard, name)
}

// State models one SCXML state (spec §3); the pseudo-root that represents
// the <scxml> document element is itself a State.
type State struct {
	Id          StateId        `json:"id" yaml:"id"`
	DocId       int            `json:"docId" yaml:"docId"`
	Name        string         `json:"name" yaml:"name"`
	Parent      StateId        `json:"parent,omitempty" yaml:"parent,omitempty"`
	Initial     TransitionId   `json:"initial,omitempty" yaml:"initial,omitempty"`
	Children    []StateId      `json:"children,omitempty" yaml:"children,omitempty"`
	IsParallel  bool           `json:"isParallel,omitempty" yaml:"isParallel,omitempty"`
	IsFinal     bool           `json:"isFinal,omitempty" yaml:"isFinal,omitempty"`
	HistoryKind HistoryKind    `json:"historyKind" yaml:"historyKind"`
	OnEntry     ExecutableContentId `json:"onEntry,omitempty" yaml:"onEntry,omitempty"`
	OnExit      ExecutableContentId `json:"onExit,omitempty" yaml:"onExit,omitempty"`
	Transitions []TransitionId `json:"transitions,omitempty" yaml:"transitions,omitempty"`
	Invokes     []int          `json:"invokes,omitempty" yaml:"invokes,omitempty"` // indices into Fsm.Invokes
	History     []StateId      `json:"history,omitempty" yaml:"history,omitempty"`
	Data        []DataDecl     `json:"data,omitempty" yaml:"data,omitempty"`
	DoneData    *DoneData      `json:"doneData,omitempty" yaml:"doneData,omitempty"`
}

// IsAtomic reports whether s has no compound/parallel/final children, i.e.
// it is a leaf of the state hierarchy (history pseudo-states are excluded:
// they are never part of a live configuration's leaves).
func (s State) IsAtomic() bool {
	return len(s.Children) == len(s.History)
}

// IsCompound reports whether s has at least one non-history child.
func (s State) IsCompound() bool {
	return len(s.Children) > len(s.History)
}

// IsHistory reports whether s is itself a history pseudo-state.
func (s State) IsHistory() bool { return s.HistoryKind != HistoryNone }

// Fsm is the compiled, immutable-after-load description of one state
// machine (spec §3). States are stored densely: States[i].Id == StateId(i+1).
type Fsm struct {
	Name              string                           `json:"name,omitempty" yaml:"name,omitempty"`
	PseudoRoot        StateId                           `json:"pseudoRoot" yaml:"pseudoRoot"`
	States            []State                           `json:"states" yaml:"states"`
	Transitions       map[TransitionId]Transition       `json:"transitions" yaml:"transitions"`
	ExecutableContent map[ExecutableContentId][]ExecElement `json:"executableContent" yaml:"executableContent"`
	Invokes           []Invoke                          `json:"invokes,omitempty" yaml:"invokes,omitempty"`
	Datamodel         string                            `json:"datamodel" yaml:"datamodel"`
	Binding           string                            `json:"binding" yaml:"binding"` // "early" | "late"
	Version           string                            `json:"version,omitempty" yaml:"version,omitempty"`
	GlobalScript      ExecutableContentId                `json:"globalScript,omitempty" yaml:"globalScript,omitempty"`
}

// State looks up a state by id; it panics on an out-of-range id, since every
// StateId in a validated Fsm is guaranteed to be a valid table index (spec
// §3 invariant) and a bad id anywhere else is a loader bug, not a runtime
// condition to recover from.
func (f *Fsm) State(id StateId) *State {
	return &f.States[id-1]
}

// StateByName finds a state by its declared name, or nil.
func (f *Fsm) StateByName(name string) *State {
	for i := range f.States {
		if f.States[i].Name == name {
			return &f.States[i]
		}
	}
	return nil
}

// Transition looks up a transition by id.
func (f *Fsm) Transition(id TransitionId) *Transition {
	t := f.Transitions[id]
	return &t
}

// IsDescendant reports whether s is a proper descendant of ancestor.
func (f *Fsm) IsDescendant(s, ancestor StateId) bool {
	cur := f.State(s).Parent
	for cur != 0 {
		if cur == ancestor {
			return true
		}
		cur = f.State(cur).Parent
	}
	return false
}

// IsOrDescendant reports whether s equals ancestor or is a proper descendant
// of it.
func (f *Fsm) IsOrDescendant(s, ancestor StateId) bool {
	return s == ancestor || f.IsDescendant(s, ancestor)
}

// Ancestors returns s's proper ancestors, innermost first, up to and
// including the pseudo-root.
func (f *Fsm) Ancestors(s StateId) []StateId {
	var out []StateId
	cur := f.State(s).Parent
	for cur != 0 {
		out = append(out, cur)
		cur = f.State(cur).Parent
	}
	return out
}

// DocumentOrder returns every state id ordered by DocId ascending (entry
// order). Used by the tracer for diagnostic dumps (SPEC_FULL §C.7); the
// interpreter sorts its entry/exit sets with its own helpers.
func (f *Fsm) DocumentOrder() []StateId {
	ids := make([]StateId, len(f.States))
	for i := range f.States {
		ids[i] = f.States[i].Id
	}
	// A loader assigns strictly increasing DocIds, but sort defensively so
	// any Fsm assembled by hand is still well ordered.
	sortByDocId(f, ids)
	return ids
}

// Validate checks the structural invariants the interpreter relies on
// without re-checking them on every microstep (spec §4.2 "Validity checks
// before running"): the pseudo-root, every state's Parent and Children,
// every transition's Source and Targets, and every invoke's ParentState are
// in range; the state table is densely indexed; every id in a state's
// Transitions list resolves; a history pseudo-state has at most one
// transition; and no invoke sets both InvokeId and IdLocation. State.Initial
// and State.History are not checked: an Initial id that does not resolve,
// or whose targets are not descendants of the state, is accepted.
func (f *Fsm) Validate() error {
	n := StateId(len(f.States))
	inRange := func(id StateId) bool { return id >= 1 && id <= n }

	if !inRange(f.PseudoRoot) {
		return &ValidationError{Msg: "pseudo-root state id out of range"}
	}
	for i := range f.States {
		s := &f.States[i]
		if s.Id != StateId(i+1) {
			return &ValidationError{Msg: "state table is not densely indexed", State: s.Name}
		}
		if s.Parent != 0 && !inRange(s.Parent) {
			return &ValidationError{Msg: "parent state id out of range", State: s.Name}
		}
		for _, c := range s.Children {
			if !inRange(c) {
				return &ValidationError{Msg: "child state id out of range", State: s.Name}
			}
		}
		for _, tid := range s.Transitions {
			if _, ok := f.Transitions[tid]; !ok {
				return &ValidationError{Msg: "transition id does not resolve", State: s.Name}
			}
		}
		if s.IsHistory() && len(s.Transitions) > 1 {
			return &ValidationError{Msg: "history pseudo-state has more than one default transition", State: s.Name}
		}
	}
	for id, t := range f.Transitions {
		if t.Id != id {
			return &ValidationError{Msg: "transition map key does not match Transition.Id"}
		}
		if !inRange(t.Source) {
			return &ValidationError{Msg: "transition source state id out of range"}
		}
		for _, target := range t.Targets {
			if !inRange(target) {
				return &ValidationError{Msg: "transition target state id out of range"}
			}
		}
	}
	for i, inv := range f.Invokes {
		if inv.InvokeId != "" && inv.IdLocation != "" {
			return &ValidationError{Msg: "invoke declares both id and idlocation", InvokeIndex: i}
		}
		if !inRange(inv.ParentState) {
			return &ValidationError{Msg: "invoke parent state id out of range", InvokeIndex: i}
		}
	}
	return nil
}

// ValidationError reports a structural problem found by Fsm.Validate.
type ValidationError struct {
	Msg         string
	State       string
	InvokeIndex int
}

func (e *ValidationError) Error() string {
	if e.State != "" {
		return "scxmlfsm: invalid fsm: " + e.Msg + " (state " + e.State + ")"
	}
	return "scxmlfsm: invalid fsm: " + e.Msg
}

func sortByDocId(f *Fsm, ids []StateId) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && f.State(ids[j-1]).DocId > f.State(ids[j]).DocId; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}
