package scxmlfsm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DataKind tags the variant held by a Data value (spec §3: "Data (value
// variant)").
type DataKind int

const (
	KindNull DataKind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindMap
)

// Data is the engine's value type: every expression, every <param>, every
// piece of event content is eventually a Data. It carries its own JSON/YAML
// tags so session snapshots (see package persistence) can round-trip it.
type Data struct {
	Kind DataKind        `json:"kind" yaml:"kind"`
	B    bool            `json:"b,omitempty" yaml:"b,omitempty"`
	I    int64           `json:"i,omitempty" yaml:"i,omitempty"`
	F    float64         `json:"f,omitempty" yaml:"f,omitempty"`
	S    string          `json:"s,omitempty" yaml:"s,omitempty"`
	Arr  []Data          `json:"arr,omitempty" yaml:"arr,omitempty"`
	Map  map[string]Data `json:"map,omitempty" yaml:"map,omitempty"`
}

func NullData() Data           { return Data{Kind: KindNull} }
func BoolData(v bool) Data     { return Data{Kind: KindBool, B: v} }
func IntData(v int64) Data     { return Data{Kind: KindInt, I: v} }
func DoubleData(v float64) Data { return Data{Kind: KindDouble, F: v} }
func StringData(v string) Data { return Data{Kind: KindString, S: v} }
func ArrayData(v []Data) Data  { return Data{Kind: KindArray, Arr: v} }
func MapData(v map[string]Data) Data { return Data{Kind: KindMap, Map: v} }

// IsNull reports whether d holds the null variant.
func (d Data) IsNull() bool { return d.Kind == KindNull }

// Truthy implements the truthiness the null data model and executable
// content error paths fall back on when no scripting engine is present.
func (d Data) Truthy() bool {
	switch d.Kind {
	case KindNull:
		return false
	case KindBool:
		return d.B
	case KindInt:
		return d.I != 0
	case KindDouble:
		return d.F != 0
	case KindString:
		return d.S != ""
	case KindArray:
		return len(d.Arr) > 0
	case KindMap:
		return len(d.Map) > 0
	}
	return false
}

// String renders d the way <log> writes it: empty for null, otherwise a
// readable scalar/collection representation.
func (d Data) String() string {
	switch d.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(d.B)
	case KindInt:
		return strconv.FormatInt(d.I, 10)
	case KindDouble:
		return strconv.FormatFloat(d.F, 'g', -1, 64)
	case KindString:
		return d.S
	case KindArray:
		parts := make([]string, len(d.Arr))
		for i, v := range d.Arr {
			parts[i] = v.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KindMap:
		keys := make([]string, 0, len(d.Map))
		for k := range d.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s:%s", k, d.Map[k].String())
		}
		return "{" + strings.Join(parts, ",") + "}"
	}
	return ""
}
