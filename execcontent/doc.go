// Package execcontent interprets the executable-content element sequences
// that hang off states, transitions and invokes: <if>/<foreach>/<raise>/
// <log>/<assign>/<script>/<send>/<cancel> (spec §4.3). It depends on
// package datamodel for expression evaluation and on three small,
// consumer-defined interfaces (SendDispatcher, InvokeActivator, LogSink)
// that package session satisfies structurally, so this package never
// imports session and no import cycle can form.
package execcontent
