// Package session implements the Session Manager / Executor (spec §4.5):
// it owns the set of registered EventIOProcessors, spawns sessions each on
// their own worker goroutine, routes inter-session sends, and owns the
// per-session delayed-event timer. The interpreter and execcontent
// packages never import this package; they depend only on the narrow
// collaborator interfaces they declare (execcontent.Processor,
// execcontent.SendDispatcher, execcontent.InvokeActivator,
// interpreter.PostFunc), which the types here implement.
package session
