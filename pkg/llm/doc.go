// Package llm provides chat completion clients for OpenAI-compatible and
// Anthropic endpoints, a circuit breaker wrapper, and helpers for digging
// JSON out of model output.
package llm
