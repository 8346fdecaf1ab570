// Package llm provides chat completion clients for the generative
// refinement phase. The concrete client talks to OpenAI or any
// OpenAI-compatible endpoint; decorators add retry and circuit breaking.
package llm
