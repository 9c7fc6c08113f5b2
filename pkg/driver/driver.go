package driver

import (
	"context"

	"github.com/graphweave/graphweave/pkg/types"
)

// Connection is a two-hop candidate surfaced by the graph store: an entity
// that is not directly connected to the queried entity but shares at least
// two neighbors with it.
type Connection struct {
	CandidateID         string   `json:"candidate_id"`
	CandidateName       string   `json:"candidate_name"`
	CandidateType       string   `json:"candidate_type"`
	SharedNeighborCount int      `json:"shared_neighbor_count"`
	SharedNeighborNames []string `json:"shared_neighbor_names"`
}

// PathSegment is one relationship hop on a path between two entities.
type PathSegment struct {
	FromID           string  `json:"from_id"`
	FromName         string  `json:"from_name"`
	ToID             string  `json:"to_id"`
	ToName           string  `json:"to_name"`
	RelationshipID   string  `json:"relationship_id"`
	RelationshipName string  `json:"relationship_name"`
	Confidence       float64 `json:"confidence"`
}

// GraphDriver mirrors the knowledge store into a graph database. All sync
// operations are idempotent merges keyed on record id, so replaying a sync
// never duplicates nodes or edges.
type GraphDriver interface {
	// SyncEntity upserts the entity as an Entity node.
	SyncEntity(ctx context.Context, entity *types.Entity) error

	// SyncRelationship upserts the relationship as a RelationshipType node.
	SyncRelationship(ctx context.Context, rel *types.Relationship) error

	// SyncTriple upserts a RELATES edge between the triple's subject and
	// object. The subject, predicate and object records must be provided so
	// the endpoints can be merged first.
	SyncTriple(ctx context.Context, triple *types.Triple, subject, object *types.Entity, predicate *types.Relationship) error

	// NeighborsWithinTwoHops returns candidates that share at least two
	// neighbors with the entity but are not directly connected to it,
	// strongest first, at most five.
	NeighborsWithinTwoHops(ctx context.Context, entityID, tenant string) ([]Connection, error)

	// PathBetween returns the shortest path between two entities up to
	// maxDepth hops, or an empty slice when none exists.
	PathBetween(ctx context.Context, startID, endID, tenant string, maxDepth int) ([]PathSegment, error)

	// SearchEntities finds entity nodes whose name contains the query.
	SearchEntities(ctx context.Context, query, tenant string, limit int) ([]*types.Entity, error)

	// CreateIndices ensures the id and name indices exist.
	CreateIndices(ctx context.Context) error

	// Close releases driver resources.
	Close(ctx context.Context) error
}
