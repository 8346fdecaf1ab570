// Package types defines the core data model for the matching engine:
// target programs, candidate organizations, embedding records, per-run
// score records, and the LLM interchange types shared by the refiner.
//
// Entities are treated as immutable by the engine. A Program is created by
// the ingestion layer and never mutated here; an Organization is mutated
// only by ingestion. Score records carry optional phase terms as pointers
// so that "phase skipped" is distinguishable from a genuine score of zero.
package types
