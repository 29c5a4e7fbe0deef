package interpreter

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	scxmlfsm "github.com/comalice/scxmlfsm"
	"github.com/comalice/scxmlfsm/datamodel"
	"github.com/comalice/scxmlfsm/execcontent"
	"github.com/comalice/scxmlfsm/tracer"
)

// PostFunc delivers a final done.invoke event to a parent session's
// external queue (spec §4.2 "Exit").
type PostFunc func(ev scxmlfsm.Event)

// Option configures an Interpreter at construction time.
type Option func(*Interpreter)

// WithTracer installs a diagnostic tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(ip *Interpreter) { ip.Tracer = t }
}

// WithParent marks this session as invoked by invokeId, and posts its
// eventual done.invoke event through post.
func WithParent(invokeId string, post PostFunc) Option {
	return func(ip *Interpreter) {
		ip.ParentInvokeId = invokeId
		ip.PostToParent = post
	}
}

// Interpreter runs one session's macrostep/microstep loop (spec §4.2).
type Interpreter struct {
	Fsm       *scxmlfsm.Fsm
	Model     datamodel.DataModel
	Global    *scxmlfsm.GlobalSessionState
	Exec      *execcontent.Executor
	Invoker   execcontent.InvokeActivator
	Tracer    tracer.Tracer
	SessionId string

	ParentInvokeId string
	PostToParent   PostFunc
}

// New builds an Interpreter. exec must already be wired to model/global so
// that executable content and data-model calls agree on the same session.
func New(fsm *scxmlfsm.Fsm, model datamodel.DataModel, g *scxmlfsm.GlobalSessionState, exec *execcontent.Executor, invoker execcontent.InvokeActivator, sessionId string, opts ...Option) *Interpreter {
	ip := &Interpreter{
		Fsm:       fsm,
		Model:     model,
		Global:    g,
		Exec:      exec,
		Invoker:   invoker,
		Tracer:    tracer.Noop{},
		SessionId: sessionId,
	}
	for _, opt := range opts {
		opt(ip)
	}
	return ip
}

// EnqueueExternal pushes ev onto this session's external queue.
func (ip *Interpreter) EnqueueExternal(ev scxmlfsm.Event) {
	ip.Global.EnqueueExternal(ev)
}

// Cancel requests the session stop by pushing the reserved cancellation
// event (spec §4.2 "cancel()").
func (ip *Interpreter) Cancel() {
	ip.Global.EnqueueExternal(scxmlfsm.CancelEvent())
}

// Interpret runs interpret+mainEventLoop to completion (spec §4.2 "Public
// contract"). It returns once the session is no longer running.
func (ip *Interpreter) Interpret(ctx context.Context) error {
	if err := ip.Fsm.Validate(); err != nil {
		return fmt.Errorf("interpreter: %w", err)
	}
	if err := ip.initializeAllStateData(); err != nil {
		return err
	}
	if ip.Fsm.GlobalScript != 0 {
		if err := ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[ip.Fsm.GlobalScript]); err != nil {
			return err
		}
	}

	root := ip.Fsm.State(ip.Fsm.PseudoRoot)
	initTrans := ip.Fsm.Transition(root.Initial)
	ip.microstep(ctx, []scxmlfsm.TransitionId{initTrans.Id})

	ip.mainEventLoop(ctx)
	ip.exitInterpreter(ctx)
	return nil
}

func (ip *Interpreter) initializeAllStateData() error {
	reallyBind := ip.Fsm.Binding != "late"
	for i := range ip.Fsm.States {
		if err := ip.Model.InitializeStateData(&ip.Fsm.States[i], reallyBind); err != nil {
			return err
		}
	}
	return nil
}

func (ip *Interpreter) mainEventLoop(ctx context.Context) {
	for ip.Global.IsRunning() {
		ip.eventlessPhase(ctx)
		if !ip.Global.IsRunning() {
			return
		}
		generatedInternal := ip.invokePhase(ctx)
		if generatedInternal {
			continue
		}

		ev, ok := ip.Global.DequeueExternalBlocking()
		if !ok {
			ip.Global.Stop()
			return
		}
		ip.Tracer.OnEventReceived(ip.SessionId, ev)
		if ev.Name == scxmlfsm.EventErrorPlatformCancel {
			ip.Global.Stop()
			return
		}
		if ev.Name == scxmlfsm.EventInternalWake {
			continue
		}

		ip.Model.SetEvent(ev)
		ip.autoforwardFinalize(ctx, ev)
		transitions := ip.selectTransitions(ev.Name, false)
		ip.microstep(ctx, transitions)
	}
}

// eventlessPhase repeatedly takes eventless microsteps, falling back to
// draining the internal queue one event at a time when no eventless
// transition is enabled (spec §4.2 step 1).
func (ip *Interpreter) eventlessPhase(ctx context.Context) {
	for {
		if !ip.Global.IsRunning() {
			return
		}
		transitions := ip.selectTransitions("", true)
		if len(transitions) > 0 {
			ip.microstep(ctx, transitions)
			continue
		}
		ev, ok := ip.Global.DequeueInternal()
		if !ok {
			return
		}
		ip.Tracer.OnEventReceived(ip.SessionId, ev)
		ip.Model.SetEvent(ev)
		transitions = ip.selectTransitions(ev.Name, false)
		if len(transitions) > 0 {
			ip.microstep(ctx, transitions)
		}
	}
}

// selectTransitions implements spec §4.2 "Transition selection" plus
// conflict resolution. When eventless is true, only transitions with no
// event attribute are considered and eventName is ignored.
func (ip *Interpreter) selectTransitions(eventName string, eventless bool) []scxmlfsm.TransitionId {
	var candidates []scxmlfsm.TransitionId
	seen := make(map[scxmlfsm.TransitionId]bool)
	for _, sid := range ip.atomicStatesInConfigDocOrder() {
		cur := sid
		for cur != 0 {
			state := ip.Fsm.State(cur)
			found := ip.firstMatchingTransition(state, eventName, eventless)
			if found != 0 {
				// Two atomic states in different parallel regions can walk
				// up to the very same ancestor transition; enabledTransitions
				// is a set in spec §4.2, so a second arrival is a no-op.
				if !seen[found] {
					seen[found] = true
					candidates = append(candidates, found)
				}
				break
			}
			cur = state.Parent
		}
	}
	return ip.removeConflictingTransitions(candidates)
}

func (ip *Interpreter) firstMatchingTransition(state *scxmlfsm.State, eventName string, eventless bool) scxmlfsm.TransitionId {
	for _, tid := range state.Transitions {
		t := ip.Fsm.Transition(tid)
		if eventless {
			if !t.IsEventless() {
				continue
			}
		} else {
			if t.IsEventless() || !t.MatchesEvent(eventName) {
				continue
			}
		}
		if t.HasCond {
			ok, err := ip.Model.ExecuteCondition(t.Cond)
			if err != nil || !ok {
				continue
			}
		}
		return tid
	}
	return 0
}

func (ip *Interpreter) atomicStatesInConfigDocOrder() []scxmlfsm.StateId {
	snapshot := ip.Global.ConfigurationSnapshot()
	var atomic []scxmlfsm.StateId
	for _, sid := range snapshot {
		if ip.Fsm.State(sid).IsAtomic() {
			atomic = append(atomic, sid)
		}
	}
	sortByDocIdAsc(ip.Fsm, atomic)
	return atomic
}

// removeConflictingTransitions implements spec §4.2's preemption rule.
func (ip *Interpreter) removeConflictingTransitions(candidates []scxmlfsm.TransitionId) []scxmlfsm.TransitionId {
	var filtered []scxmlfsm.TransitionId
	for _, t1 := range candidates {
		exit1 := ip.exitSetForTransition(t1)
		preempted := false
		var toRemove []int
		for i, t2 := range filtered {
			exit2 := ip.exitSetForTransition(t2)
			if !exitSetsIntersect(exit1, exit2) {
				continue
			}
			src1 := ip.Fsm.Transition(t1).Source
			src2 := ip.Fsm.Transition(t2).Source
			if ip.Fsm.IsDescendant(src1, src2) {
				toRemove = append(toRemove, i)
			} else {
				preempted = true
				break
			}
		}
		if preempted {
			continue
		}
		for i := len(toRemove) - 1; i >= 0; i-- {
			idx := toRemove[i]
			filtered = append(filtered[:idx], filtered[idx+1:]...)
		}
		filtered = append(filtered, t1)
	}
	return filtered
}

// microstep runs one exit/transition-content/entry cycle for a conflict-
// free set of transitions (spec §4.2 "Microstep").
func (ip *Interpreter) microstep(ctx context.Context, transitions []scxmlfsm.TransitionId) {
	if len(transitions) == 0 {
		return
	}

	exitOrder := ip.computeExitSet(transitions)
	// History must be recorded for every exited state from the
	// configuration as it stood before any of them are exited, in a
	// separate pass: a parent's shallow/deep history needs to see its
	// child still active even though the child is exited first.
	for _, sid := range exitOrder {
		ip.recordHistoryFor(ip.Fsm.State(sid))
	}
	for _, sid := range exitOrder {
		s := ip.Fsm.State(sid)
		_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[s.OnExit])
		for _, ref := range ip.Global.ChildrenOfState(sid) {
			if ip.Invoker != nil {
				_ = ip.Invoker.CancelInvoke(ref.InvokeId)
			}
			ip.Global.RemoveInvokeChild(ref.InvokeId)
		}
		ip.Global.ExitState(sid)
		ip.Tracer.OnStateExited(ip.SessionId, sid, s.Name)
	}

	for _, tid := range transitions {
		ip.Tracer.OnTransitionSelected(ip.SessionId, tid)
		t := ip.Fsm.Transition(tid)
		_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[t.Content])
	}

	builder := ip.computeEntrySet(transitions)
	entryOrder := append([]scxmlfsm.StateId(nil), builder.order...)
	sortByDocIdAsc(ip.Fsm, entryOrder)

	for _, sid := range entryOrder {
		s := ip.Fsm.State(sid)
		ip.Global.EnterState(sid)
		ip.Global.StatesToInvoke.Add(sid)

		if ip.Fsm.Binding == "late" && ip.Global.MarkEnteredOnce(sid) {
			_ = ip.Model.InitializeStateData(s, true)
		}

		_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[s.OnEntry])

		if builder.defaultEntry[sid] {
			initTrans := ip.Fsm.Transition(s.Initial)
			_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[initTrans.Content])
		}
		if tid, ok := builder.historyContent[sid]; ok {
			t := ip.Fsm.Transition(tid)
			_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[t.Content])
		}

		ip.Tracer.OnStateEntered(ip.SessionId, sid, s.Name)

		if s.IsFinal {
			ip.handleFinalStateEntered(ctx, s)
		}
	}
}

func (ip *Interpreter) computeExitSet(transitions []scxmlfsm.TransitionId) []scxmlfsm.StateId {
	union := make(map[scxmlfsm.StateId]bool)
	for _, tid := range transitions {
		for sid := range ip.exitSetForTransition(tid) {
			union[sid] = true
		}
	}
	out := make([]scxmlfsm.StateId, 0, len(union))
	for sid := range union {
		out = append(out, sid)
	}
	sortByDocIdDesc(ip.Fsm, out)
	return out
}

// recordHistoryFor snapshots configuration members for s's history
// pseudo-state children, immediately before s is exited (spec §4.2
// "Microstep" step 1).
func (ip *Interpreter) recordHistoryFor(s *scxmlfsm.State) {
	for _, hid := range s.History {
		h := ip.Fsm.State(hid)
		var snapshot []scxmlfsm.StateId
		for _, sid := range ip.Global.ConfigurationSnapshot() {
			if h.HistoryKind == scxmlfsm.HistoryDeep {
				if ip.Fsm.State(sid).IsAtomic() && ip.Fsm.IsDescendant(sid, s.Id) {
					snapshot = append(snapshot, sid)
				}
			} else if ip.Fsm.State(sid).Parent == s.Id {
				snapshot = append(snapshot, sid)
			}
		}
		ip.Global.RecordHistory(hid, snapshot)
	}
}

// handleFinalStateEntered implements spec §4.2's done-event cascade.
func (ip *Interpreter) handleFinalStateEntered(ctx context.Context, s *scxmlfsm.State) {
	parent := s.Parent
	if parent == 0 || parent == ip.Fsm.PseudoRoot {
		ip.Global.Stop()
		if ip.ParentInvokeId != "" && ip.PostToParent != nil {
			donedata, hasDoneData := ip.evaluateDoneData(s.DoneData)
			ip.PostToParent(scxmlfsm.DoneInvokeEvent(ip.ParentInvokeId, donedata, hasDoneData))
		}
		return
	}

	parentState := ip.Fsm.State(parent)
	donedata, hasDoneData := ip.evaluateDoneData(s.DoneData)
	ip.Global.EnqueueInternal(scxmlfsm.DoneStateEvent(parentState.Name, donedata, hasDoneData))

	grandparent := parentState.Parent
	if grandparent == 0 {
		return
	}
	gp := ip.Fsm.State(grandparent)
	if gp.IsParallel && ip.allParallelChildrenFinal(gp) {
		ip.Global.EnqueueInternal(scxmlfsm.DoneStateEvent(gp.Name, scxmlfsm.NullData(), false))
	}
}

// allParallelChildrenFinal reports whether every non-history child region
// of gp currently has an active final substate (spec §9 "Open questions":
// history pseudo-state children are not counted as real children).
func (ip *Interpreter) allParallelChildrenFinal(gp *scxmlfsm.State) bool {
	config := ip.Global.ConfigurationSnapshot()
	historySet := make(map[scxmlfsm.StateId]bool, len(gp.History))
	for _, h := range gp.History {
		historySet[h] = true
	}
	for _, child := range gp.Children {
		if historySet[child] {
			continue
		}
		found := false
		for _, sid := range config {
			s := ip.Fsm.State(sid)
			if s.Parent == child && s.IsFinal {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (ip *Interpreter) evaluateDoneData(dd *scxmlfsm.DoneData) (scxmlfsm.Data, bool) {
	if dd == nil {
		return scxmlfsm.NullData(), false
	}
	if dd.Content.HasLiteral || dd.Content.HasExpr {
		v, err := ip.Model.EvaluateContent(&dd.Content)
		if err != nil {
			return scxmlfsm.NullData(), false
		}
		return v, true
	}
	if len(dd.Params) > 0 {
		out := make(map[string]scxmlfsm.Data)
		ip.Model.EvaluateParams(dd.Params, out)
		return scxmlfsm.MapData(out), true
	}
	return scxmlfsm.NullData(), false
}

// invokePhase activates every <invoke> of every state entered since the
// last invoke phase, in entry order (spec §4.2 step 2). It reports whether
// any invoke generated internal events, in which case the caller restarts
// the eventless phase without blocking.
func (ip *Interpreter) invokePhase(ctx context.Context) bool {
	toInvoke := ip.Global.StatesToInvoke.ToList()
	ip.Global.StatesToInvoke.Clear()
	if len(toInvoke) == 0 || ip.Invoker == nil {
		return false
	}
	generated := false
	for _, sid := range toInvoke {
		s := ip.Fsm.State(sid)
		for _, idx := range s.Invokes {
			inv := ip.Fsm.Invokes[idx]
			if ip.activateInvoke(ctx, sid, idx, inv) {
				generated = true
			}
		}
	}
	return generated
}

func (ip *Interpreter) activateInvoke(ctx context.Context, parent scxmlfsm.StateId, invokeIndex int, inv scxmlfsm.Invoke) bool {
	invokeId := inv.InvokeId
	if invokeId == "" {
		invokeId = uuid.NewString()
		if inv.IdLocation != "" {
			ip.Model.Assign(inv.IdLocation, fmt.Sprintf("%q", invokeId))
		}
	}

	params := make(map[string]scxmlfsm.Data)
	ip.Model.EvaluateParams(inv.Params, params)
	for _, name := range inv.Namelist {
		if v, ok := ip.Model.Get(name); ok {
			params[name] = v
		}
	}
	var content scxmlfsm.Data
	var hasContent bool
	if inv.Content != nil {
		c, err := ip.Model.EvaluateContent(inv.Content)
		if err == nil {
			content, hasContent = c, true
		}
	}

	sessionId, err := ip.Invoker.ActivateInvoke(ctx, parent, inv, invokeId, params, content, hasContent)
	if err != nil {
		ip.Global.EnqueueInternal(scxmlfsm.ErrCommunicationEvent())
		return true
	}
	ip.Global.AddInvokeChild(scxmlfsm.ChildSessionRef{
		InvokeId:    invokeId,
		SessionId:   sessionId,
		ParentState: parent,
		InvokeIndex: invokeIndex,
		Autoforward: inv.Autoforward,
	})
	return false
}

// autoforwardFinalize implements spec §4.2 step 4: finalize blocks for
// invokes whose invoke_id matches the just-received event, and autoforward
// to every active invoke that requests it.
func (ip *Interpreter) autoforwardFinalize(ctx context.Context, ev scxmlfsm.Event) {
	for _, sid := range ip.Global.ConfigurationSnapshot() {
		for _, ref := range ip.Global.ChildrenOfState(sid) {
			if ev.InvokeId != "" && ref.InvokeId == ev.InvokeId {
				inv := ip.Fsm.Invokes[ref.InvokeIndex]
				if inv.Finalize != 0 {
					_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[inv.Finalize])
				}
			}
			if ref.Autoforward {
				_ = ip.Invoker.ForwardEvent(ctx, ref.SessionId, ev)
			}
		}
	}
}

// exitInterpreter exits every active state in reverse document order,
// running onexit and cancelling invokes, per spec §4.2 "Exit".
func (ip *Interpreter) exitInterpreter(ctx context.Context) {
	config := ip.Global.ConfigurationSnapshot()
	sortByDocIdDesc(ip.Fsm, config)
	for _, sid := range config {
		s := ip.Fsm.State(sid)
		_ = ip.Exec.Execute(ctx, ip.Fsm.ExecutableContent[s.OnExit])
		for _, ref := range ip.Global.ChildrenOfState(sid) {
			if ip.Invoker != nil {
				_ = ip.Invoker.CancelInvoke(ref.InvokeId)
			}
			ip.Global.RemoveInvokeChild(ref.InvokeId)
		}
		ip.Global.ExitState(sid)
	}
}
