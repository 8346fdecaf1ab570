// Package embedder provides text embedding clients for the semantic
// retrieval phase.
//
// The Client interface abstracts the provider; OpenAIEmbedder talks to the
// OpenAI embeddings API (or any compatible endpoint), and CachingClient
// decorates a Client with content-addressed caching and cost accounting so
// identical text is never embedded twice.
package embedder
