// Package scxmlfsm is a conformant interpretation engine for the W3C SCXML
// 1.0 "Algorithm for SCXML Interpretation": hierarchical, event-driven state
// machines with strict run-to-completion semantics, a pluggable data model
// and pluggable event I/O processors.
//
// This package holds the model (§3 of the specification this module
// implements): the compiled Fsm, its States, Transitions, Invokes and
// executable-content arena, plus the per-session GlobalSessionState. The
// sibling packages build on top of it:
//
//   - containers:   the OrderedSet/List/Queue/BlockingQueue/HashTable library
//     the interpretation algorithm is written against.
//   - datamodel:    the pluggable variable-storage/expression-evaluator
//     abstraction (null and goja-scripting variants).
//   - execcontent:  the executable-content executor (<if>/<foreach>/<send>/...).
//   - interpreter:  the microstep/macrostep algorithm itself.
//   - session:      the session manager/executor, I/O processors and timers
//     that host one or more running interpreters.
//   - tracer:       optional non-blocking observation hooks.
//   - persistence:  session-snapshot read/write.
//
// There is no Fsm builder or XML front end; an Fsm is assembled as a plain
// struct literal.
//
// The core does not parse SCXML XML, does not implement XPath/XQuery, and
// does not provide a graphical tool; sessions are in-process, not
// distributed.
package scxmlfsm
