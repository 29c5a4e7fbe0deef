package execcontent

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	scxmlfsm "github.com/comalice/scxmlfsm"
	"github.com/comalice/scxmlfsm/datamodel"
	"github.com/comalice/scxmlfsm/tracer"
)

// delayPattern implements spec §4.3's send-delay grammar:
// ^\d*(\.\d+)?(ms|s|m|h|d)$, case-insensitive.
var delayPattern = regexp.MustCompile(`(?i)^(\d*(?:\.\d+)?)(ms|s|m|h|d)$`)

// Executor runs executable-content sequences against one session's data
// model, routing <send>/<cancel>/<invoke> through the injected interfaces
// so this package stays free of any concrete transport or session
// dependency.
type Executor struct {
	Model      datamodel.DataModel
	Global     *scxmlfsm.GlobalSessionState
	Dispatcher SendDispatcher
	Invoker    InvokeActivator
	Log        LogSink
	SessionId  string
	Tracer     tracer.Tracer
}

// Option configures an Executor at construction time.
type Option func(*Executor)

// WithTracer installs a diagnostic tracer notified on <send> dispatch.
func WithTracer(t tracer.Tracer) Option {
	return func(e *Executor) { e.Tracer = t }
}

// NewExecutor builds an Executor wired to the given collaborators.
func NewExecutor(model datamodel.DataModel, g *scxmlfsm.GlobalSessionState, dispatcher SendDispatcher, invoker InvokeActivator, sink LogSink, sessionId string, opts ...Option) *Executor {
	e := &Executor{Model: model, Global: g, Dispatcher: dispatcher, Invoker: invoker, Log: sink, SessionId: sessionId, Tracer: tracer.Noop{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a sequence of executable content top to bottom. A failing
// element raises its error internally and execution continues with the
// next element in the same sequence, per spec §4.3.
func (e *Executor) Execute(ctx context.Context, elements []scxmlfsm.ExecElement) error {
	for _, el := range elements {
		if err := e.executeOne(ctx, el); err != nil {
			// Errors are already routed to the internal queue as SCXML
			// events by the individual element handlers; nothing further
			// propagates to the caller except a genuine Go-level failure
			// (e.g. a nil collaborator), which we surface here.
			return err
		}
	}
	return nil
}

func (e *Executor) executeOne(ctx context.Context, el scxmlfsm.ExecElement) error {
	switch v := el.(type) {
	case scxmlfsm.AssignElement:
		if !e.Model.Assign(v.Location, v.Expr) {
			e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		}
		return nil
	case scxmlfsm.RaiseElement:
		e.Global.EnqueueInternal(scxmlfsm.NewInternalEvent(v.Event))
		return nil
	case scxmlfsm.LogElement:
		value, err := e.Model.Execute(v.Expr)
		if err != nil {
			return nil
		}
		if e.Log != nil {
			e.Log.Log(v.Label, value)
		}
		return nil
	case scxmlfsm.ScriptElement:
		if _, err := e.Model.Execute(v.Body); err != nil {
			// Execute() already enqueues error.execution.
			return nil
		}
		return nil
	case scxmlfsm.IfElement:
		return e.executeIf(ctx, v)
	case scxmlfsm.ForEachElement:
		return e.executeForEach(ctx, v)
	case scxmlfsm.SendElement:
		return e.executeSend(ctx, v)
	case scxmlfsm.CancelElement:
		return e.executeCancel(v)
	default:
		return fmt.Errorf("execcontent: unknown executable content element %T", el)
	}
}

func (e *Executor) executeIf(ctx context.Context, v scxmlfsm.IfElement) error {
	for _, branch := range v.Branches {
		if !branch.HasCond {
			return e.Execute(ctx, branch.Body)
		}
		ok, err := e.Model.ExecuteCondition(branch.Cond)
		if err != nil {
			// ExecuteCondition already enqueued error.execution; a failed
			// condition is falsy and we move to the next branch.
			continue
		}
		if ok {
			return e.Execute(ctx, branch.Body)
		}
	}
	return nil
}

func (e *Executor) executeForEach(ctx context.Context, v scxmlfsm.ForEachElement) error {
	index := v.Index
	if index == "" {
		index = syntheticIndexName(v.Item)
	}
	return e.Model.ExecuteForeach(v.Array, v.Item, index, func() error {
		return e.Execute(ctx, v.Body)
	})
}

func syntheticIndexName(item string) string {
	return "__" + item + "_index"
}

func (e *Executor) executeCancel(v scxmlfsm.CancelElement) error {
	sendId := v.SendId
	if sendId == "" && v.SendIdExpr != "" {
		resolved, err := e.Model.Execute(v.SendIdExpr)
		if err != nil {
			return nil
		}
		sendId = resolved
	}
	if sendId == "" || e.Dispatcher == nil {
		return nil
	}
	e.Dispatcher.CancelDelayed(sendId)
	return nil
}

// resolveLiteralOrExpr implements spec §4.3's "literal wins if non-empty,
// else evaluate expression" rule shared by every *_expr attribute pair.
func (e *Executor) resolveLiteralOrExpr(literal, expr string) (string, bool) {
	if literal != "" {
		return literal, true
	}
	if expr == "" {
		return "", true
	}
	v, err := e.Model.Execute(expr)
	if err != nil {
		return "", false
	}
	return v, true
}

func (e *Executor) executeSend(ctx context.Context, v scxmlfsm.SendElement) error {
	event, ok := e.resolveLiteralOrExpr(v.Event, v.EventExpr)
	if !ok {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}
	target, ok := e.resolveLiteralOrExpr(v.Target, v.TargetExpr)
	if !ok {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}
	typ, ok := e.resolveLiteralOrExpr(v.Type, v.TypeExpr)
	if !ok {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}
	delayStr, ok := e.resolveLiteralOrExpr(v.Delay, v.DelayExpr)
	if !ok {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}

	delay, err := parseDelay(delayStr)
	if err != nil {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}

	if delay > 0 && target == "_internal" {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}

	if typ == "" {
		typ = "http://www.w3.org/TR/scxml/#SCXMLEventProcessor"
	}
	proc, found := e.Dispatcher.ResolveProcessor(typ)
	if !found {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}

	sendId, err := e.resolveSendId(v)
	if err != nil {
		e.Global.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return nil
	}

	params := make(map[string]scxmlfsm.Data)
	for _, errItem := range e.Model.EvaluateParams(v.Params, params) {
		_ = errItem // already routed to error.execution; failing pairs are discarded
	}
	for _, name := range v.Namelist {
		if val, ok := e.Model.Get(name); ok {
			params[name] = val
		}
	}
	var content scxmlfsm.Data
	var hasContent bool
	if v.Content != nil {
		c, err := e.Model.EvaluateContent(v.Content)
		if err == nil {
			content, hasContent = c, true
		}
	}

	outEvent := scxmlfsm.NewExternalEvent(event)
	outEvent.SendId = sendId
	outEvent.Origin = e.SessionId
	outEvent.OriginType = typ
	if len(params) > 0 {
		outEvent.HasParamValues = true
		outEvent.ParamValues = params
	}
	if hasContent {
		outEvent.HasContent = true
		outEvent.Content = content.String()
	}

	dispatch := func() {
		e.Tracer.OnEventSent(e.SessionId, outEvent)
		if err := proc.Send(ctx, target, outEvent); err != nil {
			e.Global.EnqueueInternal(scxmlfsm.ErrCommunicationEvent())
		}
	}

	if delay <= 0 {
		dispatch()
		return nil
	}
	e.Dispatcher.ScheduleDelayed(sendId, delay, dispatch)
	return nil
}

// resolveSendId implements spec §9's preserved ambiguity: id and
// idlocation together is an error, not a guess (SPEC_FULL §D). When
// neither is given, a uuid is generated; when idlocation is given, the
// generated id is additionally assigned into that location.
func (e *Executor) resolveSendId(v scxmlfsm.SendElement) (string, error) {
	if v.Id != "" && v.IdLocation != "" {
		return "", fmt.Errorf("execcontent: send declares both id and idlocation")
	}
	if v.Id != "" {
		return v.Id, nil
	}
	generated := uuid.NewString()
	if v.IdLocation != "" {
		if !e.Model.Assign(v.IdLocation, fmt.Sprintf("%q", generated)) {
			return "", fmt.Errorf("execcontent: could not bind generated send id into %q", v.IdLocation)
		}
	}
	return generated, nil
}

// parseDelay implements spec §4.3's duration grammar:
// ^\d*(\.\d+)?(ms|s|m|h|d)$, case-insensitive, rounded to milliseconds.
// An empty string means no delay.
func parseDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	m := delayPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("execcontent: invalid delay %q", s)
	}
	numStr, unit := m[1], strings.ToLower(m[2])
	if numStr == "" {
		numStr = "0"
	}
	n, err := strconv.ParseFloat(numStr, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("execcontent: invalid delay %q", s)
	}
	var ms float64
	switch unit {
	case "ms":
		ms = n
	case "s":
		ms = n * 1000
	case "m":
		ms = n * 60 * 1000
	case "h":
		ms = n * 60 * 60 * 1000
	case "d":
		ms = n * 24 * 60 * 60 * 1000
	}
	return time.Duration(math.Round(ms)) * time.Millisecond, nil
}
