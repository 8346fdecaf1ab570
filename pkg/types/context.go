package types

// ContextKey is the type for values the engine threads through contexts.
type ContextKey string

const (
	// ContextKeyRunID carries the match run identifier.
	ContextKeyRunID ContextKey = "run_id"
	// ContextKeyTargetID carries the target program identifier.
	ContextKeyTargetID ContextKey = "target_id"
)
