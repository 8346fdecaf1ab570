// Package cache provides the content-addressed cache that enforces
// at-most-once external cost per unique request payload.
//
// Keys are SHA-256 digests of the exact request bytes; only byte-exact
// payloads hit. A Keyed front combines a Store with single-flight
// semantics so two concurrent runs requesting the identical payload pay
// for exactly one external call.
//
// Two Store implementations exist: Memory for session-scoped caching and
// Badger for persistence across sessions. Stores are injected into
// components rather than held as package-level singletons, which keeps
// per-run and per-session scoping testable.
package cache
