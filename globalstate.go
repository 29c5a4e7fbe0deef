package scxmlfsm

import (
	"sync"

	"github.com/comalice/scxmlfsm/containers"
)

// FinishMode controls what happens to an invoked child session's state once
// it reaches a top-level final state (spec §4.5, SPEC_FULL §C.6).
type FinishMode int

const (
	// FinishDispose tears the child session down entirely once it reports
	// done (the default for an <invoke> without special handling).
	FinishDispose FinishMode = iota
	// FinishKeepConfiguration leaves the child's final configuration
	// inspectable after it stops processing events.
	FinishKeepConfiguration
	// FinishNothing leaves the session exactly as rFSM's fsm_executor.rs
	// "Nothing" branch does: no cleanup action is taken by the framework.
	FinishNothing
)

// ChildSessionRef tracks one <invoke>-spawned child session from its
// parent's point of view.
type ChildSessionRef struct {
	InvokeId    string
	SessionId   string
	ParentState StateId
	InvokeIndex int // index into Fsm.Invokes, for finalize lookup
	Autoforward bool
}

// GlobalSessionState is the mutable runtime state of one running
// interpretation session (spec §3 "Global session state"). An Fsm is
// immutable and may be shared across many concurrently-running sessions;
// everything that changes while interpreting lives here instead.
//
// Deviation from spec.md: spec.md lists "first_entry" as a field of State
// itself. Since State lives on the shared, immutable Fsm and many sessions
// can run the same Fsm concurrently, first-entry/late-binding tracking is
// kept here, per session, in EnteredFirstTime — see DESIGN.md.
type GlobalSessionState struct {
	mu sync.RWMutex

	SessionId       string
	ParentSessionId string
	CallerInvokeId  string

	Configuration  *containers.OrderedSet[StateId]
	StatesToInvoke *containers.OrderedSet[StateId]
	HistoryValue   map[StateId][]StateId

	InternalQueue *containers.Queue[Event]
	ExternalQueue *containers.BlockingQueue[Event]

	ChildSessions map[string]ChildSessionRef // keyed by invoke id
	Running       bool

	EnteredFirstTime map[StateId]bool

	FinalConfiguration []StateId // snapshot taken once Running becomes false
}

// NewGlobalSessionState builds a fresh, empty session state for sessionId.
func NewGlobalSessionState(sessionId string) *GlobalSessionState {
	return &GlobalSessionState{
		SessionId:        sessionId,
		Configuration:    containers.NewOrderedSet[StateId](),
		StatesToInvoke:   containers.NewOrderedSet[StateId](),
		HistoryValue:     make(map[StateId][]StateId),
		InternalQueue:    containers.NewQueue[Event](),
		ExternalQueue:    containers.NewBlockingQueue[Event](),
		ChildSessions:    make(map[string]ChildSessionRef),
		EnteredFirstTime: make(map[StateId]bool),
		Running:          true,
	}
}

// EnterState adds id to the active configuration.
func (g *GlobalSessionState) EnterState(id StateId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Configuration.Add(id)
}

// ExitState removes id from the active configuration.
func (g *GlobalSessionState) ExitState(id StateId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Configuration.Delete(id)
}

// InConfiguration reports whether id is in the active configuration; this
// backs the datamodel's In() predicate (spec §4.4).
func (g *GlobalSessionState) InConfiguration(id StateId) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Configuration.IsMember(id)
}

// ConfigurationSnapshot returns a point-in-time copy of the active
// configuration's members.
func (g *GlobalSessionState) ConfigurationSnapshot() []StateId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Configuration.ToList()
}

// MarkEnteredOnce records that id has now been entered for the first time,
// returning true the first time it is called for id (late-binding
// triggers, spec §4.4 binding="late").
func (g *GlobalSessionState) MarkEnteredOnce(id StateId) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.EnteredFirstTime[id] {
		return false
	}
	g.EnteredFirstTime[id] = true
	return true
}

// EnqueueInternal pushes ev onto the internal event queue (raised by
// <raise>, <send target="_internal">, done events, and error events). A
// wake sentinel is also pushed onto the external queue so a worker
// currently blocked in the external wait (e.g. while a delayed <send>'s
// timer goroutine posts error.communication) notices the new internal
// work without waiting for the next real external event (spec §4.1
// BlockingQueue, §5 "Suspension points").
func (g *GlobalSessionState) EnqueueInternal(ev Event) {
	g.mu.Lock()
	g.InternalQueue.Enqueue(ev)
	g.mu.Unlock()
	g.ExternalQueue.Enqueue(InternalWakeEvent())
}

// HistoryValuesSnapshot returns a point-in-time copy of every recorded
// history entry, keyed by history pseudo-state id (used by package
// persistence to capture a session snapshot).
func (g *GlobalSessionState) HistoryValuesSnapshot() map[StateId][]StateId {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[StateId][]StateId, len(g.HistoryValue))
	for k, v := range g.HistoryValue {
		out[k] = append([]StateId(nil), v...)
	}
	return out
}

// DequeueInternal pops the next internal event, if any.
func (g *GlobalSessionState) DequeueInternal() (Event, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.InternalQueue.Dequeue()
}

// EnqueueExternal pushes ev onto the external event queue.
func (g *GlobalSessionState) EnqueueExternal(ev Event) {
	g.ExternalQueue.Enqueue(ev)
}

// DequeueExternalBlocking blocks until an external event is available or
// the queue is closed; this is the single suspension point of the whole
// session (spec §5).
func (g *GlobalSessionState) DequeueExternalBlocking() (Event, bool) {
	return g.ExternalQueue.Dequeue()
}

// RecordHistory stores the snapshot of states to restore the next time the
// given history pseudo-state's parent is entered via that history node.
func (g *GlobalSessionState) RecordHistory(historyStateId StateId, snapshot []StateId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.HistoryValue[historyStateId] = snapshot
}

// HistoryFor returns the recorded snapshot for a history pseudo-state, if
// any has been recorded yet.
func (g *GlobalSessionState) HistoryFor(historyStateId StateId) ([]StateId, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.HistoryValue[historyStateId]
	return v, ok
}

// AddInvokeChild records a spawned child session.
func (g *GlobalSessionState) AddInvokeChild(ref ChildSessionRef) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ChildSessions[ref.InvokeId] = ref
}

// RemoveInvokeChild forgets a child session, e.g. once it reports done or is
// cancelled by re-entering its invoking state.
func (g *GlobalSessionState) RemoveInvokeChild(invokeId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ChildSessions, invokeId)
}

// ChildSessionID looks up the session id for a still-running invoke.
func (g *GlobalSessionState) ChildSessionID(invokeId string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ref, ok := g.ChildSessions[invokeId]
	if !ok {
		return "", false
	}
	return ref.SessionId, true
}

// ChildrenOfState returns every still-tracked invoke child whose invoking
// state is parent, e.g. to cancel them all when parent is exited.
func (g *GlobalSessionState) ChildrenOfState(parent StateId) []ChildSessionRef {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []ChildSessionRef
	for _, ref := range g.ChildSessions {
		if ref.ParentState == parent {
			out = append(out, ref)
		}
	}
	return out
}

// Stop marks the session as no longer running and freezes the final
// configuration for inspection (FinishKeepConfiguration, spec §4.5).
func (g *GlobalSessionState) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Running = false
	g.FinalConfiguration = g.Configuration.ToList()
	g.ExternalQueue.Close()
}

// IsRunning reports whether the session's main loop is still active.
func (g *GlobalSessionState) IsRunning() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.Running
}
