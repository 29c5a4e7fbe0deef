package interpreter

import (
	"context"
	"testing"
	"time"

	scxmlfsm "github.com/comalice/scxmlfsm"
	"github.com/comalice/scxmlfsm/datamodel"
	"github.com/comalice/scxmlfsm/execcontent"
)

// loopbackProcessor delivers every dispatched event straight back onto the
// owning session's own external queue, which is all these single-session
// tests need from an I/O processor.
type loopbackProcessor struct {
	g *scxmlfsm.GlobalSessionState
}

func (p *loopbackProcessor) Send(ctx context.Context, target string, ev scxmlfsm.Event) error {
	p.g.EnqueueExternal(ev)
	return nil
}

func (p *loopbackProcessor) Location() string { return "loopback:" }

// timerDispatcher schedules delayed sends with a real time.AfterFunc timer,
// mirroring the single-timer-per-session design of spec §4.5.
type timerDispatcher struct {
	proc    *loopbackProcessor
	timers  map[string]*time.Timer
}

func newTimerDispatcher(g *scxmlfsm.GlobalSessionState) *timerDispatcher {
	return &timerDispatcher{proc: &loopbackProcessor{g: g}, timers: make(map[string]*time.Timer)}
}

func (d *timerDispatcher) ResolveProcessor(processorType string) (execcontent.Processor, bool) {
	return d.proc, true
}

func (d *timerDispatcher) ScheduleDelayed(sendId string, delay time.Duration, fn func()) {
	d.timers[sendId] = time.AfterFunc(delay, fn)
}

func (d *timerDispatcher) CancelDelayed(sendId string) bool {
	t, ok := d.timers[sendId]
	if !ok {
		return false
	}
	delete(d.timers, sendId)
	return t.Stop()
}

func (d *timerDispatcher) Processors() map[string]string {
	return map[string]string{"http://www.w3.org/TR/scxml/#SCXMLEventProcessor": d.proc.Location()}
}

type recordingLog struct {
	entries []string
}

func (l *recordingLog) Log(label, value string) {
	l.entries = append(l.entries, value)
}

// s1Fsm builds scenario S1 (spec §8): top-level Start --go--> final End,
// with onentry <log expr="'hi'"/> on Start.
func s1Fsm() *scxmlfsm.Fsm {
	f := &scxmlfsm.Fsm{
		Datamodel: "ecmascript",
		Binding:   "early",
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2, 3}, Initial: 1},
			{Id: 2, DocId: 1, Name: "Start", Parent: 1, OnEntry: 1, Transitions: []scxmlfsm.TransitionId{2}},
			{Id: 3, DocId: 2, Name: "End", Parent: 1, IsFinal: true},
		},
		PseudoRoot: 1,
		Transitions: map[scxmlfsm.TransitionId]scxmlfsm.Transition{
			1: {Id: 1, Source: 1, Targets: []scxmlfsm.StateId{2}},
			2: {Id: 2, Source: 2, Targets: []scxmlfsm.StateId{3}, Events: []string{"go"}},
		},
		ExecutableContent: map[scxmlfsm.ExecutableContentId][]scxmlfsm.ExecElement{
			1: {scxmlfsm.LogElement{Label: "", Expr: "'hi'"}},
		},
	}
	return f
}

func newHarness(t *testing.T, fsm *scxmlfsm.Fsm) (*Interpreter, *scxmlfsm.GlobalSessionState, *recordingLog, *timerDispatcher) {
	t.Helper()
	g := scxmlfsm.NewGlobalSessionState("s1")
	model := datamodel.NewScript(nil)
	if err := model.Initialize(fsm, g, nil); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	disp := newTimerDispatcher(g)
	logSink := &recordingLog{}
	exec := execcontent.NewExecutor(model, g, disp, nil, logSink, "s1")
	ip := New(fsm, model, g, exec, nil, "s1")
	return ip, g, logSink, disp
}

func TestScenarioS1SimpleTransitionToFinal(t *testing.T) {
	fsm := s1Fsm()
	ip, g, logSink, _ := newHarness(t, fsm)
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("go"))

	if err := ip.Interpret(context.Background()); err != nil {
		t.Fatalf("Interpret() = %v", err)
	}
	if g.IsRunning() {
		t.Fatalf("session should have terminated")
	}
	if len(logSink.entries) != 1 || logSink.entries[0] != "hi" {
		t.Fatalf("log entries = %v, want [hi]", logSink.entries)
	}
	final := g.FinalConfiguration
	if len(final) != 1 || fsm.State(final[0]).Name != "End" {
		t.Fatalf("final configuration = %v, want [End]", final)
	}
}

// s6Fsm builds scenario S6 (spec §8): <assign> to an invalid location in
// onentry routes to error.execution, which transitions to final E.
func s6Fsm() *scxmlfsm.Fsm {
	f := &scxmlfsm.Fsm{
		Datamodel: "ecmascript",
		Binding:   "early",
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2, 3}, Initial: 1},
			{
				Id: 2, DocId: 1, Name: "Start", Parent: 1, OnEntry: 1,
				Transitions: []scxmlfsm.TransitionId{2},
			},
			{Id: 3, DocId: 2, Name: "E", Parent: 1, IsFinal: true},
		},
		PseudoRoot: 1,
		Transitions: map[scxmlfsm.TransitionId]scxmlfsm.Transition{
			1: {Id: 1, Source: 1, Targets: []scxmlfsm.StateId{2}},
			2: {Id: 2, Source: 2, Targets: []scxmlfsm.StateId{3}, Events: []string{scxmlfsm.EventErrorExecution}},
		},
		ExecutableContent: map[scxmlfsm.ExecutableContentId][]scxmlfsm.ExecElement{
			1: {scxmlfsm.AssignElement{Location: "nope.deep", Expr: "1"}},
		},
	}
	return f
}

func TestScenarioS6ErrorRoutingToFinal(t *testing.T) {
	fsm := s6Fsm()
	ip, g, _, _ := newHarness(t, fsm)
	done := make(chan error, 1)
	go func() { done <- ip.Interpret(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Interpret() = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Interpret never returned")
	}
	if g.IsRunning() {
		t.Fatalf("session should have terminated")
	}
	if len(g.FinalConfiguration) != 1 || fsm.State(g.FinalConfiguration[0]).Name != "E" {
		t.Fatalf("final configuration = %v, want [E]", g.FinalConfiguration)
	}
}

// s5Fsm builds scenario S5 (spec §8): a delayed <send> in onentry, firing
// after 30ms, transitions to final F.
func s5Fsm() *scxmlfsm.Fsm {
	f := &scxmlfsm.Fsm{
		Datamodel: "ecmascript",
		Binding:   "early",
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2, 3}, Initial: 1},
			{Id: 2, DocId: 1, Name: "Start", Parent: 1, OnEntry: 1, Transitions: []scxmlfsm.TransitionId{2}},
			{Id: 3, DocId: 2, Name: "F", Parent: 1, IsFinal: true},
		},
		PseudoRoot: 1,
		Transitions: map[scxmlfsm.TransitionId]scxmlfsm.Transition{
			1: {Id: 1, Source: 1, Targets: []scxmlfsm.StateId{2}},
			2: {Id: 2, Source: 2, Targets: []scxmlfsm.StateId{3}, Events: []string{"t"}},
		},
		ExecutableContent: map[scxmlfsm.ExecutableContentId][]scxmlfsm.ExecElement{
			1: {scxmlfsm.SendElement{Event: "t", Delay: "30ms", Id: "timer1"}},
		},
	}
	return f
}

func TestScenarioS5DelayedSend(t *testing.T) {
	fsm := s5Fsm()
	ip, g, _, _ := newHarness(t, fsm)

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- ip.Interpret(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Interpret() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interpret never returned")
	}
	elapsed := time.Since(start)
	if elapsed < 25*time.Millisecond {
		t.Fatalf("transition fired too early: %v", elapsed)
	}
	if len(g.FinalConfiguration) != 1 || fsm.State(g.FinalConfiguration[0]).Name != "F" {
		t.Fatalf("final configuration = %v, want [F]", g.FinalConfiguration)
	}
}

// s3Fsm builds scenario S3 (spec §8): compound S with children S1/S2 and a
// shallow-history pseudo-state Sh defaulting to S1; a sibling Outside
// receives the "out"/"in" transitions.
func s3Fsm() *scxmlfsm.Fsm {
	f := &scxmlfsm.Fsm{
		Datamodel: "ecmascript",
		Binding:   "early",
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2, 5}, Initial: 1},
			{
				Id: 2, DocId: 1, Name: "S", Parent: 1, Children: []scxmlfsm.StateId{3, 4, 6},
				History: []scxmlfsm.StateId{6}, Initial: 2,
				Transitions: []scxmlfsm.TransitionId{3},
			},
			{Id: 3, DocId: 2, Name: "S1", Parent: 2, Transitions: []scxmlfsm.TransitionId{4}},
			{Id: 4, DocId: 3, Name: "S2", Parent: 2},
			{Id: 5, DocId: 5, Name: "Outside", Parent: 1, Transitions: []scxmlfsm.TransitionId{5}},
			{Id: 6, DocId: 4, Name: "Sh", Parent: 2, HistoryKind: scxmlfsm.HistoryShallow, Transitions: []scxmlfsm.TransitionId{6}},
		},
		PseudoRoot: 1,
		Transitions: map[scxmlfsm.TransitionId]scxmlfsm.Transition{
			1: {Id: 1, Source: 1, Targets: []scxmlfsm.StateId{2}},
			2: {Id: 2, Source: 2, Targets: []scxmlfsm.StateId{3}},
			3: {Id: 3, Source: 2, Targets: []scxmlfsm.StateId{5}, Events: []string{"out"}},
			4: {Id: 4, Source: 3, Targets: []scxmlfsm.StateId{4}, Events: []string{"gotoS2"}},
			5: {Id: 5, Source: 5, Targets: []scxmlfsm.StateId{6}, Events: []string{"in"}},
			6: {Id: 6, Source: 6, Targets: []scxmlfsm.StateId{3}},
		},
		ExecutableContent: map[scxmlfsm.ExecutableContentId][]scxmlfsm.ExecElement{},
	}
	return f
}

func TestScenarioS3ShallowHistoryRoundTrip(t *testing.T) {
	fsm := s3Fsm()
	ip, g, _, _ := newHarness(t, fsm)
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("gotoS2"))
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("out"))
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("in"))
	g.EnqueueExternal(scxmlfsm.CancelEvent())

	if err := ip.Interpret(context.Background()); err != nil {
		t.Fatalf("Interpret() = %v", err)
	}
	var sawS2, sawS1 bool
	for _, sid := range g.FinalConfiguration {
		switch fsm.State(sid).Name {
		case "S2":
			sawS2 = true
		case "S1":
			sawS1 = true
		}
	}
	if !sawS2 {
		t.Fatalf("expected S2 active after history re-entry, final configuration = %v", g.FinalConfiguration)
	}
	if sawS1 {
		t.Fatalf("S1 should not be active; history should have restored S2")
	}
}

// s2Fsm builds scenario S2 (spec §8): parallel P with regions A (containing
// Aactive/Af) and B (containing Bactive/Bf).
func s2Fsm() *scxmlfsm.Fsm {
	f := &scxmlfsm.Fsm{
		Datamodel: "ecmascript",
		Binding:   "early",
		States: []scxmlfsm.State{
			{Id: 1, DocId: 0, Name: "root", Children: []scxmlfsm.StateId{2}, Initial: 1},
			{Id: 2, DocId: 1, Name: "P", Parent: 1, IsParallel: true, Children: []scxmlfsm.StateId{3, 6}},
			{Id: 3, DocId: 2, Name: "A", Parent: 2, Children: []scxmlfsm.StateId{4, 5}, Initial: 2},
			{Id: 4, DocId: 3, Name: "Aactive", Parent: 3, Transitions: []scxmlfsm.TransitionId{3}},
			{Id: 5, DocId: 4, Name: "Af", Parent: 3, IsFinal: true},
			{Id: 6, DocId: 5, Name: "B", Parent: 2, Children: []scxmlfsm.StateId{7, 8}, Initial: 4},
			{Id: 7, DocId: 6, Name: "Bactive", Parent: 6, Transitions: []scxmlfsm.TransitionId{5}},
			{Id: 8, DocId: 7, Name: "Bf", Parent: 6, IsFinal: true},
		},
		PseudoRoot: 1,
		Transitions: map[scxmlfsm.TransitionId]scxmlfsm.Transition{
			1: {Id: 1, Source: 1, Targets: []scxmlfsm.StateId{2}},
			2: {Id: 2, Source: 3, Targets: []scxmlfsm.StateId{4}},
			3: {Id: 3, Source: 4, Targets: []scxmlfsm.StateId{5}, Events: []string{"x"}},
			4: {Id: 4, Source: 6, Targets: []scxmlfsm.StateId{7}},
			5: {Id: 5, Source: 7, Targets: []scxmlfsm.StateId{8}, Events: []string{"y"}},
		},
		ExecutableContent: map[scxmlfsm.ExecutableContentId][]scxmlfsm.ExecElement{},
	}
	return f
}

func TestScenarioS2ParallelDoneStatePropagation(t *testing.T) {
	fsm := s2Fsm()
	ip, g, _, _ := newHarness(t, fsm)
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("x"))
	g.EnqueueExternal(scxmlfsm.NewExternalEvent("y"))

	// P itself is parallel, not final, so reaching done.state.P never stops
	// the top-level session by itself; cancel once both regions' final
	// substates should be active.
	done := make(chan error, 1)
	go func() { done <- ip.Interpret(context.Background()) }()

	var config []scxmlfsm.StateId
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		config = g.ConfigurationSnapshot()
		namesContain := func(name string) bool {
			for _, sid := range config {
				if fsm.State(sid).Name == name {
					return true
				}
			}
			return false
		}
		if namesContain("Af") && namesContain("Bf") {
			break
		}
		time.Sleep(time.Millisecond)
	}
	g.EnqueueExternal(scxmlfsm.CancelEvent())

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Interpret() = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Interpret never returned")
	}

	var sawAf, sawBf bool
	for _, sid := range g.FinalConfiguration {
		switch fsm.State(sid).Name {
		case "Af":
			sawAf = true
		case "Bf":
			sawBf = true
		}
	}
	if !sawAf || !sawBf {
		t.Fatalf("expected both Af and Bf active, final configuration = %v", g.FinalConfiguration)
	}
}
