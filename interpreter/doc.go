// Package interpreter implements the W3C "Algorithm for SCXML
// Interpretation" (spec §4.2): the macrostep/microstep run-to-completion
// loop, transition selection and conflict resolution, transition-domain
// and entry/exit set computation, and history recording.
//
// An Interpreter depends only on package scxmlfsm (the model),
// package datamodel (expression evaluation), package execcontent
// (executable-content execution plus the narrow SendDispatcher/
// InvokeActivator interfaces) and package tracer (observation hooks),
// plus google/uuid for invoke ids; it never imports package session, so no
// import cycle can form between the two.
package interpreter
