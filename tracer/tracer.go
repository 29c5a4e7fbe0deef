// Package tracer provides optional, non-blocking observation hooks into
// the interpreter's run-to-completion loop. Tracers must never block or
// mutate interpreter state; they exist for diagnostics and testing.
package tracer

import (
	"log"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// Tracer observes interpreter lifecycle events.
type Tracer interface {
	OnStateEntered(sessionId string, id scxmlfsm.StateId, name string)
	OnStateExited(sessionId string, id scxmlfsm.StateId, name string)
	OnTransitionSelected(sessionId string, id scxmlfsm.TransitionId)
	OnEventReceived(sessionId string, ev scxmlfsm.Event)
	OnEventSent(sessionId string, ev scxmlfsm.Event)
}

// Noop implements Tracer with no-ops; it is the default when a caller
// supplies no tracer.
type Noop struct{}

func (Noop) OnStateEntered(string, scxmlfsm.StateId, string)    {}
func (Noop) OnStateExited(string, scxmlfsm.StateId, string)     {}
func (Noop) OnTransitionSelected(string, scxmlfsm.TransitionId) {}
func (Noop) OnEventReceived(string, scxmlfsm.Event)             {}
func (Noop) OnEventSent(string, scxmlfsm.Event)                 {}

// Logging wraps an inner Tracer and logs every call through the stdlib log
// package, mirroring the teacher's LoggingActionRunner wrapper style.
type Logging struct {
	Inner Tracer
}

// NewLogging wraps inner; if inner is nil, Noop{} is used.
func NewLogging(inner Tracer) *Logging {
	if inner == nil {
		inner = Noop{}
	}
	return &Logging{Inner: inner}
}

func (l *Logging) OnStateEntered(sessionId string, id scxmlfsm.StateId, name string) {
	log.Printf("TRACE[%s]: enter state %s (%d)", sessionId, name, id)
	l.Inner.OnStateEntered(sessionId, id, name)
}

func (l *Logging) OnStateExited(sessionId string, id scxmlfsm.StateId, name string) {
	log.Printf("TRACE[%s]: exit state %s (%d)", sessionId, name, id)
	l.Inner.OnStateExited(sessionId, id, name)
}

func (l *Logging) OnTransitionSelected(sessionId string, id scxmlfsm.TransitionId) {
	log.Printf("TRACE[%s]: transition %d selected", sessionId, id)
	l.Inner.OnTransitionSelected(sessionId, id)
}

func (l *Logging) OnEventReceived(sessionId string, ev scxmlfsm.Event) {
	log.Printf("TRACE[%s]: event received %s", sessionId, ev.Name)
	l.Inner.OnEventReceived(sessionId, ev)
}

func (l *Logging) OnEventSent(sessionId string, ev scxmlfsm.Event) {
	log.Printf("TRACE[%s]: event sent %s", sessionId, ev.Name)
	l.Inner.OnEventSent(sessionId, ev)
}

// DumpConfiguration renders a session's active configuration in document
// order, for debugging (SPEC_FULL §C.7, modeled on rFSM's Debug impl).
func DumpConfiguration(fsm *scxmlfsm.Fsm, g *scxmlfsm.GlobalSessionState) []string {
	active := make(map[scxmlfsm.StateId]bool)
	for _, id := range g.ConfigurationSnapshot() {
		active[id] = true
	}
	var out []string
	for _, id := range fsm.DocumentOrder() {
		if active[id] {
			out = append(out, fsm.State(id).Name)
		}
	}
	return out
}
