package datamodel

import (
	"fmt"
	"log"
	"sort"

	"github.com/dop251/goja"

	scxmlfsm "github.com/comalice/scxmlfsm"
)

// Script is the goja-backed scripting data model (spec §4.4 "Scripting
// data model", SPEC_FULL §B): a full ECMAScript-subset expression
// language, with In/log exposed as native functions and every registered
// action exposed as a callable.
type Script struct {
	vm       *goja.Runtime
	g        *scxmlfsm.GlobalSessionState
	fsm      *scxmlfsm.Fsm
	registry *ActionRegistry
	readOnly map[string]bool
}

// NewScript constructs a Script data model bound to registry; registry may
// be shared across sessions, vm may not.
func NewScript(registry *ActionRegistry) *Script {
	s := &Script{
		vm:       goja.New(),
		registry: registry,
		readOnly: make(map[string]bool),
	}
	return s
}

func (s *Script) Initialize(fsm *scxmlfsm.Fsm, g *scxmlfsm.GlobalSessionState, processors map[string]string) error {
	s.fsm = fsm
	s.g = g

	if err := s.vm.Set("In", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		return s.vm.ToValue(s.In(name))
	}); err != nil {
		return err
	}
	if err := s.vm.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]interface{}, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		log.Println(parts...)
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if s.registry != nil {
		for _, name := range s.registry.Names() {
			actionName := name
			if err := s.vm.Set(actionName, func(call goja.FunctionCall) goja.Value {
				args := make([]scxmlfsm.Data, len(call.Arguments))
				for i, a := range call.Arguments {
					args[i] = goValueToData(a)
				}
				result, err := s.registry.Invoke(actionName, args, s.g)
				if err != nil {
					panic(s.vm.ToValue(err.Error()))
				}
				return dataToGoValue(s.vm, result)
			}); err != nil {
				return err
			}
		}
	}

	procs := make(map[string]scxmlfsm.Data, len(processors))
	for name, location := range processors {
		procs[name] = scxmlfsm.MapData(map[string]scxmlfsm.Data{
			"location": scxmlfsm.StringData(location),
		})
	}
	return s.BindReadOnly("_ioprocessors", scxmlfsm.MapData(procs))
}

func (s *Script) InitializeStateData(state *scxmlfsm.State, reallyBind bool) error {
	for _, d := range state.Data {
		if !reallyBind {
			if err := s.vm.Set(d.Id, goja.Undefined()); err != nil {
				return err
			}
			continue
		}
		if d.Expr == "" {
			if err := s.vm.Set(d.Id, goja.Undefined()); err != nil {
				return err
			}
			continue
		}
		v, err := s.vm.RunString(d.Expr)
		if err != nil {
			s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
			if err := s.vm.Set(d.Id, goja.Undefined()); err != nil {
				return err
			}
			continue
		}
		if err := s.vm.Set(d.Id, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) BindReadOnly(name string, value scxmlfsm.Data) error {
	s.readOnly[name] = true
	return s.vm.Set(name, dataToGoValue(s.vm, value))
}

func (s *Script) Set(name string, value scxmlfsm.Data) error {
	if s.readOnly[name] {
		return fmt.Errorf("datamodel: %q is read-only", name)
	}
	return s.vm.Set(name, dataToGoValue(s.vm, value))
}

func (s *Script) Get(name string) (scxmlfsm.Data, bool) {
	v := s.vm.Get(name)
	if v == nil {
		return scxmlfsm.NullData(), false
	}
	return goValueToData(v), true
}

func (s *Script) GetByLocation(path string) (scxmlfsm.Data, bool) {
	v, err := s.vm.RunString(path)
	if err != nil {
		return scxmlfsm.NullData(), false
	}
	return goValueToData(v), true
}

// Assign evaluates expr, then stores the result at location by binding it
// through a temporary global and running location as an lvalue assignment
// expression — this lets location be any assignable expression (a bare
// name, a.b.c, a[0]), not just a top-level identifier.
func (s *Script) Assign(location, expr string) bool {
	if s.readOnly[location] {
		return false
	}
	v, err := s.vm.RunString(expr)
	if err != nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return false
	}
	if err := s.vm.Set("__scxml_assign_tmp", v); err != nil {
		return false
	}
	if _, err := s.vm.RunString(location + " = __scxml_assign_tmp;"); err != nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return false
	}
	return true
}

func (s *Script) SetEvent(ev scxmlfsm.Event) {
	data := scxmlfsm.NullData()
	if ev.HasParamValues {
		data = scxmlfsm.MapData(ev.ParamValues)
	} else if ev.HasContent {
		data = scxmlfsm.StringData(ev.Content)
	}
	eventObj := scxmlfsm.MapData(map[string]scxmlfsm.Data{
		"name":       scxmlfsm.StringData(ev.Name),
		"type":       scxmlfsm.StringData(eventTypeLabel(ev.Kind)),
		"sendid":     scxmlfsm.StringData(ev.SendId),
		"origin":     scxmlfsm.StringData(ev.Origin),
		"origintype": scxmlfsm.StringData(ev.OriginType),
		"invokeid":   scxmlfsm.StringData(ev.InvokeId),
		"data":       data,
	})
	s.readOnly["_event"] = false
	_ = s.vm.Set("_event", dataToGoValue(s.vm, eventObj))
	s.readOnly["_event"] = true
}

func eventTypeLabel(k scxmlfsm.EventKind) string {
	switch k {
	case scxmlfsm.KindPlatformEvent:
		return "platform"
	case scxmlfsm.KindInternalEvent:
		return "internal"
	default:
		return "external"
	}
}

func (s *Script) Execute(script string) (string, error) {
	v, err := s.vm.RunString(script)
	if err != nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return "", err
	}
	if goja.IsUndefined(v) || v == nil {
		return "", nil
	}
	return v.String(), nil
}

func (s *Script) ExecuteCondition(script string) (bool, error) {
	v, err := s.vm.RunString(script)
	if err != nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return false, err
	}
	return v.ToBoolean(), nil
}

func (s *Script) ExecuteForeach(arrayExpr, item, index string, body func() error) error {
	v, err := s.vm.RunString(arrayExpr)
	if err != nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return err
	}
	obj := v.ToObject(s.vm)
	if obj == nil {
		s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
		return fmt.Errorf("datamodel: foreach array expression did not yield an object")
	}
	length := int64(0)
	if lv := obj.Get("length"); lv != nil {
		length = lv.ToInteger()
	}
	for i := int64(0); i < length; i++ {
		elem := obj.Get(fmt.Sprintf("%d", i))
		if err := s.vm.Set(item, elem); err != nil {
			return err
		}
		if index != "" {
			// 1-based per spec.
			if err := s.vm.Set(index, s.vm.ToValue(i+1)); err != nil {
				return err
			}
		}
		if err := body(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) EvaluateContent(content *scxmlfsm.CommonContent) (scxmlfsm.Data, error) {
	if content == nil {
		return scxmlfsm.NullData(), nil
	}
	if content.HasLiteral {
		return scxmlfsm.StringData(content.Literal), nil
	}
	if content.HasExpr {
		v, err := s.vm.RunString(content.Expr)
		if err != nil {
			s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
			return scxmlfsm.NullData(), err
		}
		return goValueToData(v), nil
	}
	return scxmlfsm.NullData(), nil
}

func (s *Script) EvaluateParams(params []scxmlfsm.Param, out map[string]scxmlfsm.Data) []error {
	var errs []error
	for _, p := range params {
		var v scxmlfsm.Data
		var err error
		switch {
		case p.Expr != "":
			var gv goja.Value
			gv, err = s.vm.RunString(p.Expr)
			if err == nil {
				v = goValueToData(gv)
			}
		case p.Location != "":
			var ok bool
			v, ok = s.GetByLocation(p.Location)
			if !ok {
				err = fmt.Errorf("datamodel: param %q location %q did not resolve", p.Name, p.Location)
			}
		default:
			err = fmt.Errorf("datamodel: param %q has neither expr nor location", p.Name)
		}
		if err != nil {
			s.g.EnqueueInternal(scxmlfsm.ErrExecutionEvent())
			errs = append(errs, err)
			continue
		}
		out[p.Name] = v
	}
	return errs
}

func (s *Script) In(nameOrId string) bool {
	st := s.fsm.StateByName(nameOrId)
	if st == nil {
		return false
	}
	return s.g.InConfiguration(st.Id)
}

// dataToGoValue marshals a Data into the VM's value space (spec §4.4:
// strings<->strings, booleans, i64<->big-int/number, doubles, null, arrays,
// objects).
func dataToGoValue(vm *goja.Runtime, d scxmlfsm.Data) goja.Value {
	switch d.Kind {
	case scxmlfsm.KindNull:
		return goja.Null()
	case scxmlfsm.KindBool:
		return vm.ToValue(d.B)
	case scxmlfsm.KindInt:
		return vm.ToValue(d.I)
	case scxmlfsm.KindDouble:
		return vm.ToValue(d.F)
	case scxmlfsm.KindString:
		return vm.ToValue(d.S)
	case scxmlfsm.KindArray:
		arr := make([]interface{}, len(d.Arr))
		for i, elem := range d.Arr {
			arr[i] = dataToGoValue(vm, elem)
		}
		return vm.ToValue(arr)
	case scxmlfsm.KindMap:
		keys := make([]string, 0, len(d.Map))
		for k := range d.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := vm.NewObject()
		for _, k := range keys {
			_ = obj.Set(k, dataToGoValue(vm, d.Map[k]))
		}
		return obj
	}
	return goja.Undefined()
}

// goValueToData marshals a VM value back into a Data variant.
func goValueToData(v goja.Value) scxmlfsm.Data {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return scxmlfsm.NullData()
	}
	export := v.Export()
	return exportToData(export)
}

func exportToData(export interface{}) scxmlfsm.Data {
	switch val := export.(type) {
	case bool:
		return scxmlfsm.BoolData(val)
	case int64:
		return scxmlfsm.IntData(val)
	case int:
		return scxmlfsm.IntData(int64(val))
	case float64:
		return scxmlfsm.DoubleData(val)
	case string:
		return scxmlfsm.StringData(val)
	case []interface{}:
		arr := make([]scxmlfsm.Data, len(val))
		for i, e := range val {
			arr[i] = exportToData(e)
		}
		return scxmlfsm.ArrayData(arr)
	case map[string]interface{}:
		m := make(map[string]scxmlfsm.Data, len(val))
		for k, e := range val {
			m[k] = exportToData(e)
		}
		return scxmlfsm.MapData(m)
	default:
		return scxmlfsm.NullData()
	}
}
