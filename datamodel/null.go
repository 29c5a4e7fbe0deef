package datamodel

import (
	"strings"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// Null is the spec's null data model (§4.4): <data> declarations are
// no-ops, expressions cannot be evaluated, and the only supported
// predicate is In(name), matched textually against a name table built at
// Initialize time. Any SCXML document that uses no expressions must run
// against this implementation unmodified.
type Null struct {
	g        *scxmlfsm.GlobalSessionState
	nameToId map[string]scxmlfsm.StateId
}

// NewNull constructs an empty Null data model.
func NewNull() *Null {
	return &Null{nameToId: make(map[string]scxmlfsm.StateId)}
}

func (n *Null) Initialize(fsm *scxmlfsm.Fsm, g *scxmlfsm.GlobalSessionState, processors map[string]string) error {
	n.g = g
	for i := range fsm.States {
		s := &fsm.States[i]
		n.nameToId[s.Name] = s.Id
	}
	return nil
}

// InitializeStateData is a no-op: the null data model has nowhere to store
// values, so <data> declarations are accepted but never populated.
func (n *Null) InitializeStateData(state *scxmlfsm.State, reallyBind bool) error {
	return nil
}

// BindReadOnly is a no-op for the same reason as InitializeStateData.
func (n *Null) BindReadOnly(name string, value scxmlfsm.Data) error {
	return nil
}

func (n *Null) Set(name string, value scxmlfsm.Data) error {
	return ErrNotSupported
}

func (n *Null) Get(name string) (scxmlfsm.Data, bool) {
	return scxmlfsm.NullData(), false
}

func (n *Null) GetByLocation(path string) (scxmlfsm.Data, bool) {
	return scxmlfsm.NullData(), false
}

func (n *Null) Assign(location, expr string) bool {
	return false
}

func (n *Null) SetEvent(ev scxmlfsm.Event) {}

func (n *Null) Execute(script string) (string, error) {
	return "", ErrNotSupported
}

// stripSingleQuotes implements the spec's preserved quirk: In('x') accepts
// single-quoted names only, never double-quoted.
func stripSingleQuotes(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

// ExecuteCondition returns true iff script is exactly In(<name>) (single
// quotes required around the name) and the named state is active. Any
// other expression shape is unsupported.
func (n *Null) ExecuteCondition(script string) (bool, error) {
	script = strings.TrimSpace(script)
	const prefix = "In("
	if !strings.HasPrefix(script, prefix) || !strings.HasSuffix(script, ")") {
		return false, ErrNotSupported
	}
	inner := script[len(prefix) : len(script)-1]
	name, quoted := stripSingleQuotes(inner)
	if !quoted {
		return false, ErrNotSupported
	}
	return n.In(name), nil
}

func (n *Null) ExecuteForeach(arrayExpr, item, index string, body func() error) error {
	return ErrNotSupported
}

func (n *Null) EvaluateContent(content *scxmlfsm.CommonContent) (scxmlfsm.Data, error) {
	if content != nil && content.HasLiteral {
		return scxmlfsm.StringData(content.Literal), nil
	}
	return scxmlfsm.NullData(), ErrNotSupported
}

func (n *Null) EvaluateParams(params []scxmlfsm.Param, out map[string]scxmlfsm.Data) []error {
	var errs []error
	for _, p := range params {
		if p.Expr != "" || p.Location != "" {
			n.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
			errs = append(errs, ErrNotSupported)
			continue
		}
	}
	return errs
}

// In implements the null model's sole predicate: name must match a known
// state name exactly (quote stripping is only meaningful inside
// ExecuteCondition's In(...) parsing).
func (n *Null) In(nameOrId string) bool {
	id, ok := n.nameToId[nameOrId]
	if !ok {
		return false
	}
	return n.g.InConfiguration(id)
}
