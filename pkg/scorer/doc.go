// Package scorer implements the deterministic, rule-based scoring phase.
//
// Score is a pure function over a (program, organization) pair: no I/O, no
// external calls, bit-identical results for identical inputs. Every
// candidate receives a score, possibly negative; the scorer never excludes
// anyone; truncation is the job of the retrieval and refinement phases.
package scorer
