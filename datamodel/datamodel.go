package datamodel

import (
	"errors"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// ErrNotSupported is returned by variants (chiefly Null) that cannot
// evaluate expressions at all.
var ErrNotSupported = errors.New("datamodel: expression evaluation not supported by this data model")

// DataModel is the contract every SCXML data-model flavor implements (spec
// §4.4). All methods operate against one session's GlobalSessionState.
type DataModel interface {
	// Initialize installs runtime bindings needed by fsm: the In(state)
	// predicate, optionally log, and the _ioprocessors system variable.
	Initialize(fsm *scxmlfsm.Fsm, g *scxmlfsm.GlobalSessionState, processors map[string]string) error

	// InitializeStateData processes a state's <data> declarations. When
	// reallyBind is false (late-binding, pre-entry), names are declared
	// without values; when true, initial expressions are evaluated and a
	// failure produces an empty binding plus an error.execution event.
	InitializeStateData(state *scxmlfsm.State, reallyBind bool) error

	// BindReadOnly installs a non-writable system variable such as
	// _sessionid, _name or _ioprocessors.
	BindReadOnly(name string, value scxmlfsm.Data) error

	Set(name string, value scxmlfsm.Data) error
	Get(name string) (scxmlfsm.Data, bool)
	GetByLocation(path string) (scxmlfsm.Data, bool)

	// Assign evaluates expr and stores it at location, returning whether
	// the assignment succeeded.
	Assign(location, expr string) bool

	// SetEvent rebinds _event; _event is read-only to scripts and this is
	// the only way to change it.
	SetEvent(ev scxmlfsm.Event)

	// Execute evaluates an expression/script and returns its string
	// representation (empty for undefined).
	Execute(script string) (string, error)

	// ExecuteCondition evaluates script in boolean context, following the
	// engine's truthiness rules.
	ExecuteCondition(script string) (bool, error)

	// ExecuteForeach evaluates arrayExpr, then invokes body once per
	// element with item (and, if index != "", index) bound in scope.
	ExecuteForeach(arrayExpr, item, index string, body func() error) error

	// EvaluateContent evaluates a <content> element to a Data value.
	EvaluateContent(content *scxmlfsm.CommonContent) (scxmlfsm.Data, error)

	// EvaluateParams evaluates a list of <param> elements into out,
	// raising error.execution and discarding any single failing
	// name/value pair rather than aborting the whole list.
	EvaluateParams(params []scxmlfsm.Param, out map[string]scxmlfsm.Data) []error

	// In reports whether the state with the given name is in the active
	// configuration.
	In(nameOrId string) bool
}
