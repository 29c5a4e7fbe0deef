package execcontent

import (
	"context"
	"time"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// LogSink receives <log label="..." expr="..."/> output. The teacher's
// LoggingActionRunner wraps the stdlib log package the same way.
type LogSink interface {
	Log(label, value string)
}

// Processor is one registered I/O processor (the SCXML processor, and
// optionally an HTTP processor per spec §6 — this package only depends on
// the interface, never on a concrete transport).
type Processor interface {
	// Send dispatches ev to target. Implementations report delivery
	// failure, which the executor routes to error.communication.
	Send(ctx context.Context, target string, ev scxmlfsm.Event) error
	// Location is this processor's address, exposed via _ioprocessors.
	Location() string
}

// SendDispatcher resolves I/O processors by type and manages the delayed
// send timer (spec §4.5 "Timers": single timer per session, keyed removal).
type SendDispatcher interface {
	ResolveProcessor(processorType string) (Processor, bool)
	// ScheduleDelayed arranges for fn to run after delay, associated with
	// sendId so a later CancelDelayed(sendId) can suppress it.
	ScheduleDelayed(sendId string, delay time.Duration, fn func())
	// CancelDelayed cancels a still-pending delayed send; returns false if
	// none was pending (already fired, unknown id, or already cancelled),
	// which per spec is a silent no-op, not an error.
	CancelDelayed(sendId string) bool
	// Processors lists every registered processor's type -> location, for
	// the data model's _ioprocessors system variable.
	Processors() map[string]string
}

// InvokeActivator spawns and tears down <invoke>-declared child sessions.
// It is also the interpreter's route for autoforwarding an external event
// into a still-running child session (spec §4.2 step 4).
type InvokeActivator interface {
	// ActivateInvoke spawns a child session and returns its session id.
	ActivateInvoke(ctx context.Context, parent scxmlfsm.StateId, inv scxmlfsm.Invoke, invokeId string, params map[string]scxmlfsm.Data, content scxmlfsm.Data, hasContent bool) (sessionId string, err error)
	CancelInvoke(invokeId string) error
	ForwardEvent(ctx context.Context, childSessionId string, ev scxmlfsm.Event) error
}
