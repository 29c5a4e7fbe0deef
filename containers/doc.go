// Package containers provides the small library of semantic containers the
// W3C SCXML algorithm references literally: OrderedSet, List, Queue,
// BlockingQueue and HashTable (see spec §4.1). All are stdlib-only and safe
// for the single-owner-plus-lock usage pattern the interpreter applies to
// them. OrderedSet, List and Queue do no locking of their own; BlockingQueue
// (touched concurrently by event senders) and HashTable manage their own
// synchronization.
package containers
