package datamodel

import (
	"testing"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

func TestScriptSetGetRoundTrip(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	if err := s.Initialize(fsm, g, nil); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	if err := s.Set("x", scxmlfsm.IntData(42)); err != nil {
		t.Fatalf("Set() = %v", err)
	}
	got, ok := s.Get("x")
	if !ok || got.I != 42 {
		t.Fatalf("Get(x) = %v, %v, want 42, true", got, ok)
	}
}

func TestScriptAssignAndExecute(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	_ = s.Initialize(fsm, g, nil)
	_ = s.Set("counter", scxmlfsm.IntData(1))
	if !s.Assign("counter", "counter + 1") {
		t.Fatalf("Assign should succeed")
	}
	out, err := s.Execute("counter")
	if err != nil || out != "2" {
		t.Fatalf("Execute(counter) = %q, %v, want 2, nil", out, err)
	}
}

func TestScriptInPredicate(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	_ = s.Initialize(fsm, g, nil)
	g.EnterState(2)
	ok, err := s.ExecuteCondition("In('a')")
	if err != nil || !ok {
		t.Fatalf("ExecuteCondition(In('a')) = %v, %v", ok, err)
	}
}

func TestScriptExecuteConditionFalseOnError(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	_ = s.Initialize(fsm, g, nil)
	ok, err := s.ExecuteCondition("this is not js ((")
	if err == nil {
		t.Fatalf("expected an evaluation error")
	}
	if ok {
		t.Fatalf("expected a failed condition to evaluate false")
	}
	ev, ok := g.DequeueInternal()
	if !ok || ev.Name != scxmlfsm.EventErrorExecution {
		t.Fatalf("expected error.execution to be enqueued, got %v %v", ev, ok)
	}
}

func TestScriptForeach(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	_ = s.Initialize(fsm, g, nil)
	_ = s.Set("items", scxmlfsm.ArrayData([]scxmlfsm.Data{
		scxmlfsm.IntData(10), scxmlfsm.IntData(20), scxmlfsm.IntData(30),
	}))
	var sum int64
	err := s.ExecuteForeach("items", "it", "idx", func() error {
		v, _ := s.Get("it")
		sum += v.I
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteForeach() = %v", err)
	}
	if sum != 60 {
		t.Errorf("sum = %d, want 60", sum)
	}
}

func TestScriptActionRegistryExposedAsCallable(t *testing.T) {
	reg := NewActionRegistry()
	reg.Register("double", func(args []scxmlfsm.Data, g *scxmlfsm.GlobalSessionState) (scxmlfsm.Data, error) {
		return scxmlfsm.IntData(args[0].I * 2), nil
	})
	fsm, g := smallFsmAndSession()
	s := NewScript(reg)
	if err := s.Initialize(fsm, g, nil); err != nil {
		t.Fatalf("Initialize() = %v", err)
	}
	out, err := s.Execute("double(21)")
	if err != nil || out != "42" {
		t.Fatalf("Execute(double(21)) = %q, %v, want 42, nil", out, err)
	}
}

func TestScriptEvaluateParams(t *testing.T) {
	fsm, g := smallFsmAndSession()
	s := NewScript(nil)
	_ = s.Initialize(fsm, g, nil)
	_ = s.Set("y", scxmlfsm.IntData(7))
	out := make(map[string]scxmlfsm.Data)
	errs := s.EvaluateParams([]scxmlfsm.Param{
		{Name: "p1", Expr: "y + 1"},
		{Name: "bad", Expr: "("},
	}, out)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error for the bad param, got %v", errs)
	}
	if out["p1"].I != 8 {
		t.Errorf("p1 = %v, want 8", out["p1"])
	}
	if _, ok := out["bad"]; ok {
		t.Errorf("bad param should have been discarded, not stored")
	}
}
