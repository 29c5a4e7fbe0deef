package session

import (
	"context"
	"fmt"
	"strings"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// scxmlProcessor is the always-present SCXML event I/O processor (spec
// §4.5 "at minimum the SCXML processor and its short alias 'scxml'"). One
// instance is created per session; it knows that session's own global
// state and how to ask the Manager to reach any other session.
type scxmlProcessor struct {
	mgr             *Manager
	sessionId       string
	self            *scxmlfsm.GlobalSessionState
	parentSessionId string
}

func (p *scxmlProcessor) Location() string {
	return "scxml:session:" + p.sessionId
}

// Send implements the target grammar of spec §4.5 "EventIOProcessor
// contract": "_internal" the current session's internal queue (delay
// already rejected upstream by the executor), "" the current session's
// external queue, "#_parent" the parent session's external queue,
// "#_<invoke_id>" a named child session's external queue, anything else
// a processor-specific address this processor does not know how to reach.
func (p *scxmlProcessor) Send(ctx context.Context, target string, ev scxmlfsm.Event) error {
	switch {
	case target == "_internal":
		p.self.EnqueueInternal(ev)
		return nil
	case target == "":
		p.self.EnqueueExternal(ev)
		return nil
	case target == "#_parent":
		if p.parentSessionId == "" {
			return fmt.Errorf("session: %q has no parent session to target #_parent", p.sessionId)
		}
		return p.mgr.Route(p.parentSessionId, ev)
	case strings.HasPrefix(target, "#_"):
		invokeId := strings.TrimPrefix(target, "#_")
		childId, ok := p.self.ChildSessionID(invokeId)
		if !ok {
			return fmt.Errorf("session: no active child invoke %q", invokeId)
		}
		return p.mgr.Route(childId, ev)
	default:
		return fmt.Errorf("session: scxml processor cannot resolve target %q", target)
	}
}
