package tracer

import (
	"testing"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

type recordingTracer struct {
	entered []string
}

func (r *recordingTracer) OnStateEntered(sessionId string, id scxmlfsm.StateId, name string) {
	r.entered = append(r.entered, name)
}
func (r *recordingTracer) OnStateExited(string, scxmlfsm.StateId, string)     {}
func (r *recordingTracer) OnTransitionSelected(string, scxmlfsm.TransitionId) {}
func (r *recordingTracer) OnEventReceived(string, scxmlfsm.Event)            {}
func (r *recordingTracer) OnEventSent(string, scxmlfsm.Event)                {}

func TestLoggingWrapsInner(t *testing.T) {
	inner := &recordingTracer{}
	l := NewLogging(inner)
	l.OnStateEntered("s1", 2, "a")
	if len(inner.entered) != 1 || inner.entered[0] != "a" {
		t.Fatalf("inner tracer did not receive forwarded call: %v", inner.entered)
	}
}

func TestLoggingDefaultsToNoopWhenInnerNil(t *testing.T) {
	l := NewLogging(nil)
	// Should not panic.
	l.OnStateEntered("s1", 1, "root")
}

func TestDumpConfigurationOrdersByDocId(t *testing.T) {
	fsm := &scxmlfsm.Fsm{
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2, 3}},
			{Id: 2, DocId: 2, Name: "b", Parent: 1},
			{Id: 3, DocId: 1, Name: "a", Parent: 1},
		},
		PseudoRoot: 1,
	}
	g := scxmlfsm.NewGlobalSessionState("s1")
	g.EnterState(2)
	g.EnterState(3)
	out := DumpConfiguration(fsm, g)
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("DumpConfiguration() = %v, want [a b]", out)
	}
}
