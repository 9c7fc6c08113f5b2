package graphweave

import (
	"errors"
	"log/slog"

	"github.com/graphweave/graphweave/pkg/driver"
	"github.com/graphweave/graphweave/pkg/llm"
	"github.com/graphweave/graphweave/pkg/store"
)

var (
	// ErrNoStore is returned by NewClient when no knowledge store is given.
	ErrNoStore = errors.New("knowledge store is required")

	// ErrQueueFull is returned by Dispatcher.Enqueue when the task queue is
	// at capacity.
	ErrQueueFull = errors.New("task queue is full")

	// ErrDispatcherClosed is returned by Dispatcher.Enqueue after Close.
	ErrDispatcherClosed = errors.New("dispatcher is closed")
)

// PredicatePair names two predicates whose chaining implies a transitive
// relationship: if A p1 B and B p2 C then A (transitive_p1_p2) C.
type PredicatePair struct {
	First  string
	Second string
}

// PredicateTable drives rule-based inference. Both tables hold normalized
// predicate names.
type PredicateTable struct {
	// TransitivePairs lists predicate chains that imply a transitive triple.
	TransitivePairs []PredicatePair
	// SymmetricPredicates lists predicates whose triples imply the reverse
	// triple.
	SymmetricPredicates []string
}

// DefaultPredicateTable returns the built-in transitivity and symmetry rules.
func DefaultPredicateTable() PredicateTable {
	return PredicateTable{
		TransitivePairs: []PredicatePair{
			{"part of", "part of"},
			{"located in", "located in"},
			{"subclass of", "subclass of"},
			{"is a", "is a"},
			{"owned by", "owned by"},
			{"member of", "subset of"},
		},
		SymmetricPredicates: []string{
			"similar to",
			"related to",
			"connected to",
			"married to",
			"friend of",
			"colleague of",
			"sibling of",
			"same as",
			"equivalent to",
			"same type as",
		},
	}
}

func (t PredicateTable) isTransitivePair(first, second string) bool {
	for _, pair := range t.TransitivePairs {
		if pair.First == first && pair.Second == second {
			return true
		}
	}
	return false
}

func (t PredicateTable) isSymmetric(predicate string) bool {
	for _, p := range t.SymmetricPredicates {
		if p == predicate {
			return true
		}
	}
	return false
}

// Config holds tunables for the engine. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Predicates drives transitive and symmetric inference.
	Predicates PredicateTable

	// NameMatchLimit caps similar-name candidates per integrated entity.
	NameMatchLimit int
	// TypeMatchLimit caps same-type candidates per integrated entity.
	TypeMatchLimit int
	// LLMSampleLimit caps entities offered to the LLM for pairwise inference.
	LLMSampleLimit int
	// PairSampleLimit caps entities offered to the LLM when suggesting pairs
	// for a new relationship.
	PairSampleLimit int
	// IntegrationBatchSize is the page size for full-graph integration.
	IntegrationBatchSize int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Predicates:           DefaultPredicateTable(),
		NameMatchLimit:       10,
		TypeMatchLimit:       5,
		LLMSampleLimit:       10,
		PairSampleLimit:      20,
		IntegrationBatchSize: 100,
	}
}

// Client is the extraction and integration engine. It owns no global state;
// every dependency is injected.
type Client struct {
	store  store.KnowledgeStore
	driver driver.GraphDriver
	llm    llm.Client
	config *Config
	logger *slog.Logger
}

// NewClient wires the engine together. The store is required. A nil graph
// driver degrades to a no-op mirror, and a nil LLM client disables the LLM
// extraction path and LLM inference strategies (rule-based behavior remains).
func NewClient(knowledgeStore store.KnowledgeStore, graphDriver driver.GraphDriver, llmClient llm.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if knowledgeStore == nil {
		return nil, ErrNoStore
	}
	if graphDriver == nil {
		graphDriver = driver.NewNoopDriver()
	}
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		store:  knowledgeStore,
		driver: graphDriver,
		llm:    llmClient,
		config: config,
		logger: logger,
	}, nil
}

// Store returns the knowledge store.
func (c *Client) Store() store.KnowledgeStore {
	return c.store
}

// Driver returns the graph driver.
func (c *Client) Driver() driver.GraphDriver {
	return c.driver
}

// LLM returns the completion client, or nil when none is configured.
func (c *Client) LLM() llm.Client {
	return c.llm
}
