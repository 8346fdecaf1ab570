// Package matchengine ranks candidate organizations against funding
// programs with a three-phase hybrid pipeline: semantic retrieval over a
// vector index, deterministic rule-based scoring, and generative
// re-ranking by a language model. The three opinions are fused into a
// single combined score per candidate.
//
// The pipeline degrades rather than fails: when the embedding provider is
// unreachable the semantic phase is skipped and scoring runs over the full
// candidate pool; when the language model is unreachable or unparseable
// the deterministic ranking stands. Each MatchRun carries flags saying
// which phases were skipped so callers can judge confidence.
//
// External calls are content-addressed: identical text is embedded at most
// once per cache lifetime, and every call lands in a cost ledger that can
// report spend, cache hit rate, and estimated savings.
package matchengine
