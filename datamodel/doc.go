// Package datamodel implements the pluggable data-model abstraction of
// spec §4.4: variable storage, expression evaluation, the In(state)
// predicate, content/param evaluation and _event binding. It is the only
// layer allowed to know about a scripting language; everything above it
// (package execcontent, package interpreter) consumes the DataModel
// interface only.
//
// Two concrete variants are provided: Null (no expression evaluation,
// In(name) only) and Script (a goja-hosted ECMAScript subset).
package datamodel
