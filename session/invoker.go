package session

import (
	"context"
	"fmt"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// sessionInvoker implements execcontent.InvokeActivator by spawning child
// sessions through the owning Manager (spec §4.2 "Invoke phase", §4.5
// "Spawn sessions").
type sessionInvoker struct {
	mgr             *Manager
	parentSessionId string
	parentGlobal    *scxmlfsm.GlobalSessionState
}

// ActivateInvoke resolves inv to a child Fsm + data model via the
// Manager's InvokeResolver and spawns it, handing it namelist/param/content
// values as its initial data (spec §3 Invoke, SPEC_FULL §C.5). Resolution
// failures surface as a plain error, which the interpreter routes to
// error.communication (spec §7).
func (iv *sessionInvoker) ActivateInvoke(ctx context.Context, parent scxmlfsm.StateId, inv scxmlfsm.Invoke, invokeId string, params map[string]scxmlfsm.Data, content scxmlfsm.Data, hasContent bool) (string, error) {
	if iv.mgr.resolver == nil {
		return "", fmt.Errorf("session: no invoke resolver configured for type %q src %q", inv.Type, inv.Src)
	}
	childFsm, childModel, err := iv.mgr.resolver(ctx, inv)
	if err != nil {
		return "", fmt.Errorf("session: resolving invoke: %w", err)
	}

	initial := make(map[string]scxmlfsm.Data, len(params)+1)
	for k, v := range params {
		initial[k] = v
	}
	if hasContent {
		initial["_content"] = content
	}

	h, err := iv.mgr.Spawn(ctx, LaunchOptions{
		Fsm:             childFsm,
		DataModel:       childModel,
		InitialData:     initial,
		ParentSessionId: iv.parentSessionId,
		InvokeId:        invokeId,
		FinishMode:      scxmlfsm.FinishDispose,
	})
	if err != nil {
		return "", fmt.Errorf("session: spawning invoked child: %w", err)
	}
	return h.SessionId, nil
}

// CancelInvoke cancels the child session behind invokeId, if it is still
// tracked; an already-finished or unknown invoke id is a silent no-op
// (spec §3 "Child sessions ... removed when the parent cancels them").
func (iv *sessionInvoker) CancelInvoke(invokeId string) error {
	childId, ok := iv.parentGlobal.ChildSessionID(invokeId)
	if !ok {
		return nil
	}
	return iv.mgr.Cancel(childId)
}

// ForwardEvent delivers ev to childSessionId's external queue unchanged,
// preserving every field (spec §5 "Send idempotence for autoforward").
func (iv *sessionInvoker) ForwardEvent(ctx context.Context, childSessionId string, ev scxmlfsm.Event) error {
	return iv.mgr.Route(childSessionId, ev)
}
