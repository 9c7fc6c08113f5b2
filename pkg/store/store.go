package store

import (
	"context"
	"errors"

	"github.com/graphweave/graphweave/pkg/types"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// EntityFilter selects entities. Zero-value fields are ignored, except
// EntityType which distinguishes "any type" (nil) from "exactly this type"
// (pointer, possibly to the empty string for untyped entities).
type EntityFilter struct {
	Tenant         string
	NormalizedName string
	// NameContains matches entities whose normalized name contains the given
	// substring (case-insensitive).
	NameContains string
	EntityType   *string
	ExcludeID    string
	Limit        int
}

// RelationshipFilter selects relationships.
type RelationshipFilter struct {
	Tenant         string
	NormalizedName string
	ExcludeID      string
	Limit          int
}

// TripleFilter selects triples. Empty id fields match any value.
type TripleFilter struct {
	Tenant      string
	SubjectID   string
	PredicateID string
	ObjectID    string
	Limit       int
}

// KnowledgeStore provides CRUD and predicate-filter access to entities,
// relationships and triples, scoped by an owning tenant.
//
// GetOrCreate operations are atomic on the record's identity key: concurrent
// callers racing on the same key observe exactly one created record. This is
// the store-level insert-or-fetch-on-conflict that keeps get-or-create safe
// without caller-side locking.
type KnowledgeStore interface {
	// CreateEntity persists a new entity, assigning its id and timestamps.
	CreateEntity(ctx context.Context, entity *types.Entity) error
	// GetEntity retrieves an entity by id, or ErrNotFound.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)
	// UpdateEntity persists changed fields of an existing entity.
	UpdateEntity(ctx context.Context, entity *types.Entity) error
	// FilterEntities returns entities matching the filter.
	FilterEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error)
	// ListEntities pages through a tenant's entities in a stable order.
	ListEntities(ctx context.Context, tenant string, offset, limit int) ([]*types.Entity, error)
	// CountEntities returns the number of entities owned by the tenant.
	CountEntities(ctx context.Context, tenant string) (int, error)
	// GetOrCreateEntity resolves the entity identified by
	// (normalized name, entityType, tenant), creating it when absent.
	// When the entity already exists and has no context, the provided context
	// is backfilled. The returned flag reports whether a new record was
	// created.
	GetOrCreateEntity(ctx context.Context, name, entityType, context_, tenant string) (*types.Entity, bool, error)

	// CreateRelationship persists a new relationship definition.
	CreateRelationship(ctx context.Context, rel *types.Relationship) error
	// GetRelationship retrieves a relationship by id, or ErrNotFound.
	GetRelationship(ctx context.Context, id string) (*types.Relationship, error)
	// UpdateRelationship persists changed fields of an existing relationship.
	UpdateRelationship(ctx context.Context, rel *types.Relationship) error
	// FilterRelationships returns relationships matching the filter.
	FilterRelationships(ctx context.Context, filter RelationshipFilter) ([]*types.Relationship, error)
	// GetOrCreateRelationship resolves the relationship identified by
	// (normalized name, tenant), creating it when absent and backfilling an
	// empty context.
	GetOrCreateRelationship(ctx context.Context, name, context_, tenant string) (*types.Relationship, bool, error)

	// CreateTriple persists a new triple, assigning its id and timestamps.
	CreateTriple(ctx context.Context, triple *types.Triple) error
	// GetTriple retrieves a triple by id, or ErrNotFound.
	GetTriple(ctx context.Context, id string) (*types.Triple, error)
	// UpdateTriple persists changed fields of an existing triple.
	UpdateTriple(ctx context.Context, triple *types.Triple) error
	// FilterTriples returns triples matching the filter.
	FilterTriples(ctx context.Context, filter TripleFilter) ([]*types.Triple, error)
	// UpsertTriple inserts the triple or, when one already exists for the same
	// (subject, predicate, object, tenant), merges confidence monotonically:
	// the stored confidence only ever rises. Returns the stored triple and
	// whether a new record was created.
	UpsertTriple(ctx context.Context, triple *types.Triple) (*types.Triple, bool, error)

	// Close releases store resources.
	Close() error
}
