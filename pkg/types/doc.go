// Package types defines the core data structures for graphweave: entities,
// relationships and triples in the knowledge graph, the interchange shapes
// used during extraction and inference, and the chat message types exchanged
// with LLM providers.
//
// Identity in the graph is keyed by normalized names scoped to a tenant:
// entities by (normalized name, entity type, tenant), relationships by
// (normalized name, tenant), and triples by their (subject, predicate,
// object, tenant) reference tuple. Normalization is case folding plus
// whitespace trimming, via NormalizeName.
package types
