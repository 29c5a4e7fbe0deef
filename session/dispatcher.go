package session

import (
	"sync"
	"time"

	scxmlfsm "github.com/comalice/scxmlfsm"
	"github.com/comalice/scxmlfsm/execcontent"
)

// dispatcher is the per-session execcontent.SendDispatcher: it resolves
// the built-in SCXML processor and any Manager-registered external
// processors by type, and owns the single delayed-send timer for its
// session, keyed by send id for cancellation (spec §4.5 "Timers").
type dispatcher struct {
	mgr   *Manager
	proc  *scxmlProcessor

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDispatcher(mgr *Manager, sessionId string, g *scxmlfsm.GlobalSessionState, parentSessionId string) *dispatcher {
	return &dispatcher{
		mgr:    mgr,
		proc:   &scxmlProcessor{mgr: mgr, sessionId: sessionId, self: g, parentSessionId: parentSessionId},
		timers: make(map[string]*time.Timer),
	}
}

func (d *dispatcher) ResolveProcessor(processorType string) (execcontent.Processor, bool) {
	if processorType == "scxml" || processorType == scxmlfsm.SCXMLProcessorType {
		return d.proc, true
	}
	return d.mgr.resolveExternal(processorType)
}

// ScheduleDelayed arranges fn to run after delay on its own goroutine,
// removing the timer entry first so a racing CancelDelayed sees a clean
// "already fired" state (spec §9 "cancellation arriving after dispatch is
// silently ignored").
func (d *dispatcher) ScheduleDelayed(sendId string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timers[sendId] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, sendId)
		d.mu.Unlock()
		fn()
	})
}

func (d *dispatcher) CancelDelayed(sendId string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.timers[sendId]
	if !ok {
		return false
	}
	delete(d.timers, sendId)
	return t.Stop()
}

// Processors lists every type this session can resolve a send against,
// type -> processor location, for the data model's _ioprocessors system
// variable (spec §6 "System variables").
func (d *dispatcher) Processors() map[string]string {
	out := map[string]string{
		"scxml":                     d.proc.Location(),
		scxmlfsm.SCXMLProcessorType: d.proc.Location(),
	}
	for _, p := range d.mgr.externalProcessors() {
		for _, t := range p.Types() {
			out[t] = p.Location()
		}
	}
	return out
}

// stopAll cancels every still-pending delayed send for this session, e.g.
// when its interpret loop returns (spec §4.2 "Exit": invokes are
// cancelled; the session's own pending timers have no further owner to
// deliver to either).
func (d *dispatcher) stopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, t := range d.timers {
		t.Stop()
		delete(d.timers, id)
	}
}
