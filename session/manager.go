package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	scxmlfsm "github.com/comalice/scxmlfsm"
	"github.com/comalice/scxmlfsm/datamodel"
	"github.com/comalice/scxmlfsm/execcontent"
	"github.com/comalice/scxmlfsm/interpreter"
	"github.com/comalice/scxmlfsm/tracer"
)

// EventIOProcessor is the full contract of spec §4.5: beyond the narrow
// execcontent.Processor a <send> dispatch needs, a registered processor
// also advertises its accepted type URIs and gets lifecycle callbacks as
// sessions come and go.
type EventIOProcessor interface {
	execcontent.Processor
	// Types returns every `type` attribute value this processor accepts
	// on <send>/<invoke>. "scxml" is always additionally accepted for the
	// built-in SCXML processor; external processors list their own URIs.
	Types() []string
	AddSession(fsm *scxmlfsm.Fsm, dm datamodel.DataModel) error
	Shutdown() error
}

// InvokeResolver turns an <invoke> declaration into the child Fsm (and the
// data model it should run against) to spawn. Resolving invoke `src`/`type`
// into a document is the XML loader's job (spec §1 "out of scope"); a host
// supplies this hook to bridge the two.
type InvokeResolver func(ctx context.Context, inv scxmlfsm.Invoke) (*scxmlfsm.Fsm, datamodel.DataModel, error)

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithIncludePaths stores include paths for loaders to consult; the
// Manager never interprets them itself (spec §4.5 "pure pass-through; no
// logic beyond storage").
func WithIncludePaths(paths []string) Option {
	return func(m *Manager) { m.includePaths = append([]string(nil), paths...) }
}

// WithProcessor registers an additional EventIOProcessor (e.g. an HTTP
// processor) under every type it advertises.
func WithProcessor(p EventIOProcessor) Option {
	return func(m *Manager) {
		for _, t := range p.Types() {
			m.processors[t] = p
		}
	}
}

// WithInvokeResolver installs the hook used to activate <invoke> elements.
func WithInvokeResolver(r InvokeResolver) Option {
	return func(m *Manager) { m.resolver = r }
}

// WithTracer installs a default tracer for every session Spawn creates,
// unless overridden per-launch via LaunchOptions.Tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(m *Manager) { m.defaultTracer = t }
}

// Manager is the Session Manager / Executor of spec §4.5: it owns I/O
// processors, spawns and tracks sessions, routes inter-session events, and
// is the single place a delayed-send timer or an autoforward call reaches
// across session boundaries.
type Manager struct {
	mu           sync.RWMutex
	sessions     map[string]*Handle
	processors   map[string]EventIOProcessor // keyed by accepted type
	includePaths []string
	resolver     InvokeResolver
	defaultTracer tracer.Tracer
}

// NewManager builds a Manager with no sessions and no registered external
// processors; the built-in SCXML processor is always available under
// "scxml" and scxmlfsm.SCXMLProcessorType.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:      make(map[string]*Handle),
		processors:    make(map[string]EventIOProcessor),
		defaultTracer: tracer.Noop{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IncludePaths returns the paths given via WithIncludePaths.
func (m *Manager) IncludePaths() []string {
	return append([]string(nil), m.includePaths...)
}

// sessionIdCounter is shared by every Manager in the process.
var sessionIdCounter uint64

// nextSessionId mints a process-unique session id (spec §3
// "session_id: process-unique u32").
func (m *Manager) nextSessionId() string {
	id := atomic.AddUint64(&sessionIdCounter, 1)
	return strconv.FormatUint(id, 10)
}

// Handle is what a caller (or a parent session's invoke activation) gets
// back from Spawn: the session id, a way to reach its external queue, and
// a shared reference to its global state for inspection once it has
// stopped running (spec §4.5 "Returns a session handle with...").
type Handle struct {
	SessionId string
	Global    *scxmlfsm.GlobalSessionState
	Fsm       *scxmlfsm.Fsm

	done chan struct{}
}

// Wait blocks until the session's worker goroutine has returned.
func (h *Handle) Wait() {
	<-h.done
}

// LaunchOptions parameterizes one Spawn call (spec §4.5 "Spawn sessions").
type LaunchOptions struct {
	Fsm             *scxmlfsm.Fsm
	DataModel       datamodel.DataModel // required; built by the caller (Null, Script, ...)
	InitialData     map[string]scxmlfsm.Data
	ParentSessionId string
	InvokeId        string
	FinishMode      scxmlfsm.FinishMode
	Tracer          tracer.Tracer
}

// Spawn creates a session, wires its interpreter, data model, executor and
// I/O dispatcher together, and starts its worker goroutine (spec §4.5,
// §3 "A session is created ... enters its interpret routine on its own
// worker thread").
func (m *Manager) Spawn(ctx context.Context, opts LaunchOptions) (*Handle, error) {
	if opts.Fsm == nil {
		return nil, fmt.Errorf("session: LaunchOptions.Fsm is required")
	}
	if opts.DataModel == nil {
		return nil, fmt.Errorf("session: LaunchOptions.DataModel is required")
	}

	sessionId := m.nextSessionId()
	g := scxmlfsm.NewGlobalSessionState(sessionId)
	g.ParentSessionId = opts.ParentSessionId
	g.CallerInvokeId = opts.InvokeId

	t := opts.Tracer
	if t == nil {
		t = m.defaultTracer
	}

	dispatcher := newDispatcher(m, sessionId, g, opts.ParentSessionId)
	invoker := &sessionInvoker{mgr: m, parentSessionId: sessionId, parentGlobal: g}

	if err := opts.DataModel.Initialize(opts.Fsm, g, dispatcher.Processors()); err != nil {
		return nil, fmt.Errorf("session: data model initialize: %w", err)
	}
	if err := opts.DataModel.BindReadOnly("_sessionid", scxmlfsm.StringData(sessionId)); err != nil {
		return nil, fmt.Errorf("session: bind _sessionid: %w", err)
	}
	if err := opts.DataModel.BindReadOnly("_name", scxmlfsm.StringData(opts.Fsm.Name)); err != nil {
		return nil, fmt.Errorf("session: bind _name: %w", err)
	}
	ioprocessors := make(map[string]scxmlfsm.Data, len(dispatcher.Processors()))
	for typ, loc := range dispatcher.Processors() {
		ioprocessors[typ] = scxmlfsm.MapData(map[string]scxmlfsm.Data{"location": scxmlfsm.StringData(loc)})
	}
	if err := opts.DataModel.BindReadOnly("_ioprocessors", scxmlfsm.MapData(ioprocessors)); err != nil {
		return nil, fmt.Errorf("session: bind _ioprocessors: %w", err)
	}
	for name, v := range opts.InitialData {
		if err := opts.DataModel.Set(name, v); err != nil {
			return nil, fmt.Errorf("session: set initial datum %q: %w", name, err)
		}
	}

	for _, p := range m.externalProcessors() {
		if err := p.AddSession(opts.Fsm, opts.DataModel); err != nil {
			return nil, fmt.Errorf("session: processor AddSession: %w", err)
		}
	}

	exec := execcontent.NewExecutor(opts.DataModel, g, dispatcher, invoker, stdLogSink{sessionId: sessionId}, sessionId, execcontent.WithTracer(t))

	var ipOpts []interpreter.Option
	ipOpts = append(ipOpts, interpreter.WithTracer(t))
	if opts.InvokeId != "" {
		ipOpts = append(ipOpts, interpreter.WithParent(opts.InvokeId, func(ev scxmlfsm.Event) {
			_ = m.Route(opts.ParentSessionId, ev)
		}))
	}
	ip := interpreter.New(opts.Fsm, opts.DataModel, g, exec, invoker, sessionId, ipOpts...)

	h := &Handle{SessionId: sessionId, Global: g, Fsm: opts.Fsm, done: make(chan struct{})}

	m.mu.Lock()
	m.sessions[sessionId] = h
	m.mu.Unlock()

	go func() {
		defer close(h.done)
		_ = ip.Interpret(ctx)
		dispatcher.stopAll()
		if opts.FinishMode == scxmlfsm.FinishDispose {
			m.mu.Lock()
			delete(m.sessions, sessionId)
			m.mu.Unlock()
		}
		if opts.ParentSessionId != "" {
			if parent, ok := m.lookup(opts.ParentSessionId); ok {
				parent.Global.RemoveInvokeChild(opts.InvokeId)
			}
		}
	}()

	return h, nil
}

func (m *Manager) lookup(sessionId string) (*Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.sessions[sessionId]
	return h, ok
}

// Route delivers ev to sessionId's external queue (spec §4.5 "Route
// inter-session sends").
func (m *Manager) Route(sessionId string, ev scxmlfsm.Event) error {
	h, ok := m.lookup(sessionId)
	if !ok {
		return fmt.Errorf("session: no such session %q", sessionId)
	}
	h.Global.EnqueueExternal(ev)
	return nil
}

// Cancel pushes the reserved cancellation event to sessionId's external
// queue (spec §5 "Cancellation").
func (m *Manager) Cancel(sessionId string) error {
	h, ok := m.lookup(sessionId)
	if !ok {
		return fmt.Errorf("session: no such session %q", sessionId)
	}
	h.Global.EnqueueExternal(scxmlfsm.CancelEvent())
	return nil
}

// Handle looks up a tracked session by id.
func (m *Manager) Handle(sessionId string) (*Handle, bool) {
	return m.lookup(sessionId)
}

func (m *Manager) externalProcessors() []EventIOProcessor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[EventIOProcessor]bool)
	var out []EventIOProcessor
	for _, p := range m.processors {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func (m *Manager) resolveExternal(typ string) (EventIOProcessor, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.processors[typ]
	return p, ok
}

// Shutdown cancels every tracked session by broadcasting the reserved
// cancel event, waits for each to stop, and tears down every registered
// external processor (spec §4.5 "Shutdown"). Sessions are cancelled
// concurrently via errgroup, mirroring the bounded fan-out the teacher
// pack uses for multi-session teardown.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	handles := make([]*Handle, 0, len(m.sessions))
	for _, h := range m.sessions {
		handles = append(handles, h)
	}
	m.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for _, h := range handles {
		h := h
		g.Go(func() error {
			h.Global.EnqueueExternal(scxmlfsm.CancelEvent())
			h.Wait()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, p := range m.externalProcessors() {
		if err := p.Shutdown(); err != nil {
			return fmt.Errorf("session: processor shutdown: %w", err)
		}
	}
	return nil
}

// stdLogSink adapts the stdlib log package to execcontent.LogSink, exactly
// the role the teacher's LoggingActionRunner plays for actions.
type stdLogSink struct {
	sessionId string
}

func (s stdLogSink) Log(label, value string) {
	if label != "" {
		log.Printf("[%s] %s: %s", s.sessionId, label, value)
		return
	}
	log.Printf("[%s] %s", s.sessionId, value)
}
