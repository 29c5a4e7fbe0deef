package persistence

import (
	"testing"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

func TestCaptureAndRestoreRoundTrip(t *testing.T) {
	g := scxmlfsm.NewGlobalSessionState("s1")
	g.ParentSessionId = "parent1"
	g.CallerInvokeId = "inv1"
	g.EnterState(2)
	g.EnterState(4)
	g.StatesToInvoke.Add(2)
	g.RecordHistory(9, []scxmlfsm.StateId{2, 4})

	snap := Capture(g)
	if snap.SessionId != "s1" || snap.ParentSessionId != "parent1" || snap.CallerInvokeId != "inv1" {
		t.Fatalf("unexpected snapshot identity: %+v", snap)
	}
	if len(snap.Configuration) != 2 {
		t.Fatalf("Configuration = %v, want 2 entries", snap.Configuration)
	}
	if got, ok := snap.HistoryValues["9"]; !ok || len(got) != 2 {
		t.Fatalf("HistoryValues[9] = %v, %v", got, ok)
	}

	restored := Restore(snap)
	if !restored.InConfiguration(2) || !restored.InConfiguration(4) {
		t.Errorf("restored configuration missing entries: %v", restored.ConfigurationSnapshot())
	}
	hist, ok := restored.HistoryFor(9)
	if !ok || len(hist) != 2 {
		t.Errorf("restored history = %v, %v", hist, ok)
	}
	if !restored.IsRunning() {
		t.Errorf("restored session captured while running should still report running")
	}
}

func TestCaptureAndRestoreStoppedSession(t *testing.T) {
	g := scxmlfsm.NewGlobalSessionState("s2")
	g.EnterState(3)
	g.Stop()

	snap := Capture(g)
	if snap.Running {
		t.Fatalf("expected Running=false after Stop")
	}
	if len(snap.FinalConfiguration) != 1 || snap.FinalConfiguration[0] != 3 {
		t.Fatalf("FinalConfiguration = %v", snap.FinalConfiguration)
	}

	restored := Restore(snap)
	if restored.IsRunning() {
		t.Errorf("restored stopped session should not be running")
	}
	if len(restored.FinalConfiguration) != 1 || restored.FinalConfiguration[0] != 3 {
		t.Errorf("restored FinalConfiguration = %v", restored.FinalConfiguration)
	}
}

func TestYAMLPersisterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewYAMLPersister(dir)
	if err != nil {
		t.Fatalf("NewYAMLPersister: %v", err)
	}
	snap := Snapshot{SessionId: "sess-yaml", Running: true, Configuration: []scxmlfsm.StateId{2, 3}}
	if err := p.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load("sess-yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Configuration) != 2 {
		t.Fatalf("Load().Configuration = %v", got.Configuration)
	}

	if _, err := p.Load("missing"); err == nil {
		t.Errorf("expected error loading missing session")
	}
}

func TestJSONPersisterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewJSONPersister(dir)
	if err != nil {
		t.Fatalf("NewJSONPersister: %v", err)
	}
	snap := Snapshot{SessionId: "sess-json", Running: false, FinalConfiguration: []scxmlfsm.StateId{5}}
	if err := p.Save(snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := p.Load("sess-json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Running || len(got.FinalConfiguration) != 1 || got.FinalConfiguration[0] != 5 {
		t.Fatalf("Load() = %+v", got)
	}
}
