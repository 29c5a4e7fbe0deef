package scxmlfsm

import (
	"testing"
	"time"
)

func TestGlobalSessionStateConfiguration(t *testing.T) {
	g := NewGlobalSessionState("s1")
	g.EnterState(2)
	g.EnterState(3)
	if !g.InConfiguration(2) || !g.InConfiguration(3) {
		t.Fatalf("expected 2 and 3 in configuration")
	}
	g.ExitState(2)
	if g.InConfiguration(2) {
		t.Errorf("2 should have been removed")
	}
	snap := g.ConfigurationSnapshot()
	if len(snap) != 1 || snap[0] != 3 {
		t.Fatalf("ConfigurationSnapshot() = %v, want [3]", snap)
	}
}

func TestGlobalSessionStateMarkEnteredOnce(t *testing.T) {
	g := NewGlobalSessionState("s1")
	if !g.MarkEnteredOnce(5) {
		t.Fatalf("first MarkEnteredOnce should return true")
	}
	if g.MarkEnteredOnce(5) {
		t.Fatalf("second MarkEnteredOnce should return false")
	}
}

func TestGlobalSessionStateInternalQueueFIFO(t *testing.T) {
	g := NewGlobalSessionState("s1")
	g.EnqueueInternal(NewInternalEvent("a"))
	g.EnqueueInternal(NewInternalEvent("b"))
	ev, ok := g.DequeueInternal()
	if !ok || ev.Name != "a" {
		t.Fatalf("DequeueInternal() = %v, %v, want a, true", ev, ok)
	}
}

func TestGlobalSessionStateExternalQueueBlocks(t *testing.T) {
	g := NewGlobalSessionState("s1")
	result := make(chan Event, 1)
	go func() {
		ev, ok := g.DequeueExternalBlocking()
		if ok {
			result <- ev
		}
	}()
	g.EnqueueExternal(NewExternalEvent("ping"))
	select {
	case ev := <-result:
		if ev.Name != "ping" {
			t.Errorf("got event %q, want ping", ev.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("external dequeue never unblocked")
	}
}

func TestGlobalSessionStateHistory(t *testing.T) {
	g := NewGlobalSessionState("s1")
	if _, ok := g.HistoryFor(10); ok {
		t.Fatalf("expected no recorded history yet")
	}
	g.RecordHistory(10, []StateId{2, 4})
	got, ok := g.HistoryFor(10)
	if !ok || len(got) != 2 {
		t.Fatalf("HistoryFor(10) = %v, %v", got, ok)
	}
}

func TestGlobalSessionStateChildSessions(t *testing.T) {
	g := NewGlobalSessionState("parent")
	g.AddInvokeChild(ChildSessionRef{InvokeId: "inv1", SessionId: "child1", ParentState: 2})
	id, ok := g.ChildSessionID("inv1")
	if !ok || id != "child1" {
		t.Fatalf("ChildSessionID(inv1) = %v, %v", id, ok)
	}
	kids := g.ChildrenOfState(2)
	if len(kids) != 1 {
		t.Fatalf("ChildrenOfState(2) = %v, want 1 entry", kids)
	}
	g.RemoveInvokeChild("inv1")
	if _, ok := g.ChildSessionID("inv1"); ok {
		t.Errorf("expected inv1 removed")
	}
}

func TestGlobalSessionStateStop(t *testing.T) {
	g := NewGlobalSessionState("s1")
	g.EnterState(2)
	if !g.IsRunning() {
		t.Fatalf("new session should be running")
	}
	g.Stop()
	if g.IsRunning() {
		t.Errorf("session should no longer be running")
	}
	if len(g.FinalConfiguration) != 1 || g.FinalConfiguration[0] != 2 {
		t.Errorf("FinalConfiguration = %v, want [2]", g.FinalConfiguration)
	}
	if _, ok := g.DequeueExternalBlocking(); ok {
		t.Errorf("external dequeue after Stop should report closed")
	}
}
