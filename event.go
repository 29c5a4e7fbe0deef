package scxmlfsm

// EventKind distinguishes how an Event entered the system (spec §3 Event).
type EventKind int

const (
	KindPlatformEvent EventKind = iota
	KindInternalEvent
	KindExternalEvent
)

// Reserved event names (spec §7 error taxonomy, §4.2 cancellation, §4.3 done
// events). Grounded on original_source/src/fsm.rs's reserved-name constants.
const (
	EventErrorExecution      = "error.execution"
	EventErrorCommunication  = "error.communication"
	EventErrorPlatformCancel = "error.platform.cancel"
	EventInternalWake        = "event.internal"

	DoneStatePrefix  = "done.state."
	DoneInvokePrefix = "done.invoke."
)

// SCXMLProcessorType is the formal type URI every <send>/<invoke> resolves
// to when no type is given (spec §4.3 step 4, §4.5 EventIOProcessor
// contract). The short alias "scxml" always resolves to the same
// processor.
const SCXMLProcessorType = "http://www.w3.org/TR/scxml/#SCXMLEventProcessor"

// Event is the immutable event primitive threaded through queues, _event
// bindings and I/O processors.
type Event struct {
	Name           string          `json:"name" yaml:"name"`
	Kind           EventKind       `json:"kind" yaml:"kind"`
	SendId         string          `json:"sendid,omitempty" yaml:"sendid,omitempty"`
	Origin         string          `json:"origin,omitempty" yaml:"origin,omitempty"`
	OriginType     string          `json:"origintype,omitempty" yaml:"origintype,omitempty"`
	InvokeId       string          `json:"invokeid,omitempty" yaml:"invokeid,omitempty"`
	ParamValues    map[string]Data `json:"paramValues,omitempty" yaml:"paramValues,omitempty"`
	HasParamValues bool            `json:"hasParamValues,omitempty" yaml:"hasParamValues,omitempty"`
	Content        string          `json:"content,omitempty" yaml:"content,omitempty"`
	HasContent     bool            `json:"hasContent,omitempty" yaml:"hasContent,omitempty"`
}

// NewInternalEvent builds a bare internal event, as <raise> does.
func NewInternalEvent(name string) Event {
	return Event{Name: name, Kind: KindInternalEvent}
}

// NewExternalEvent builds a bare external event, as an I/O processor does on
// inbound delivery.
func NewExternalEvent(name string) Event {
	return Event{Name: name, Kind: KindExternalEvent}
}

// NewPlatformEvent builds one of the reserved platform events.
func NewPlatformEvent(name string) Event {
	return Event{Name: name, Kind: KindPlatformEvent}
}

// ErrExecutionEvent builds the internal error.execution event.
func ErrExecutionEvent() Event { return NewInternalEvent(EventErrorExecution) }

// ErrCommunicationEvent builds the internal error.communication event.
func ErrCommunicationEvent() Event { return NewInternalEvent(EventErrorCommunication) }

// CancelEvent builds the reserved cancellation sentinel pushed to a
// session's external queue to stop it (spec §4.2, §5).
func CancelEvent() Event { return NewPlatformEvent(EventErrorPlatformCancel) }

// InternalWakeEvent builds the reserved sentinel enqueued on the external
// queue purely to unblock a waiting dequeue (spec §4.1 BlockingQueue).
func InternalWakeEvent() Event { return NewPlatformEvent(EventInternalWake) }

// DoneStateEvent builds the done.state.<name> event raised when a compound
// state's final child is entered.
func DoneStateEvent(parentName string, donedata Data, hasDoneData bool) Event {
	ev := NewInternalEvent(DoneStatePrefix + parentName)
	if hasDoneData {
		ev.HasContent = true
		ev.Content = donedata.String()
	}
	return ev
}

// DoneInvokeEvent builds the done.invoke.<id> event posted to a parent
// session's external queue when an invoked child terminates.
func DoneInvokeEvent(invokeId string, donedata Data, hasDoneData bool) Event {
	ev := NewExternalEvent(DoneInvokePrefix + invokeId)
	ev.InvokeId = invokeId
	if hasDoneData {
		ev.HasContent = true
		ev.Content = donedata.String()
	}
	return ev
}

// NameMatches implements spec §4.2's name-matching rule: tokens are
// whitespace separated; a token matches name if equal, a strict dot-prefix
// of it, or the wildcard "*".
func NameMatches(tokens []string, wildcard bool, name string) bool {
	if wildcard {
		return true
	}
	for _, tok := range tokens {
		if tok == name {
			return true
		}
		if len(name) > len(tok) && name[:len(tok)] == tok && name[len(tok)] == '.' {
			return true
		}
	}
	return false
}
