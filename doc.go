// Package graphweave provides a knowledge graph extraction and integration
// engine for Go.
//
// GraphWeave extracts subject-predicate-object knowledge triples from free
// text and conversations, deduplicates them into a tenant-scoped knowledge
// store, mirrors them into a graph database, and weaves newly learned
// entities into the existing graph through several inference strategies.
//
// # Basic Usage
//
// Create a new Client with the required components:
//
//	// Create the knowledge store
//	knowledgeStore, err := store.NewBadgerStore("./graphweave_db")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer knowledgeStore.Close()
//
//	// Create the graph driver (optional, nil degrades to a no-op mirror)
//	graphDriver, err := driver.NewNeo4jDriver("bolt://localhost:7687", "neo4j", "password", "neo4j")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer graphDriver.Close(ctx)
//
//	// Create the LLM client (optional, nil falls back to rule-based extraction)
//	llmClient := llm.NewOpenAIClient(&llm.Config{APIKey: "your-api-key", Model: "gpt-4o-mini"})
//
//	client, err := graphweave.NewClient(knowledgeStore, graphDriver, llmClient, nil, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Extracting Knowledge
//
// Extraction persists triples and immediately integrates the new knowledge:
//
//	triples, err := client.ExtractFromText(ctx, "Marie Curie discovered radium.", "doc-1", "tenant-1")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("extracted %d triples\n", len(triples))
//
// Conversations are flattened to role-tagged text first:
//
//	messages := []types.Message{
//		{Role: types.RoleUser, Content: "Where does Alice work?"},
//		{Role: types.RoleAssistant, Content: "Alice works for Acme."},
//	}
//	triples, err = client.ExtractFromConversation(ctx, messages, "conv-7", "tenant-1")
//
// # Integration
//
// New knowledge is connected to the existing graph through four strategies,
// applied in order: name similarity, shared entity type, two-hop graph
// structure, and LLM inference. Triples additionally produce transitive
// chains and symmetric reverses for known predicates. A full-graph
// reconciliation is available as well:
//
//	created, err := client.IntegrateAll(ctx, "tenant-1")
//
// # Multi-tenancy
//
// Every entity, relationship and triple is owned by a tenant. Operations
// never cross tenant boundaries, and identity keys (normalized entity name
// plus type, normalized predicate name, subject-predicate-object) are scoped
// per tenant.
//
// # Architecture
//
//   - pkg/store: deduplicating knowledge store (memory and Badger backends)
//   - pkg/driver: graph database mirror (Neo4j and no-op)
//   - pkg/llm: chat completion clients (OpenAI, Anthropic) with circuit breaking
//   - pkg/server: HTTP surface
//   - pkg/types: core type definitions
//
// This design allows easy extension with additional store backends, graph
// databases and LLM providers.
package graphweave
