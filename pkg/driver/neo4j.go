package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/graphweave/graphweave/pkg/types"
)

// Neo4jDriver implements GraphDriver against a Neo4j (or Bolt-compatible)
// database.
type Neo4jDriver struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jDriver connects to the database at uri with basic auth.
func NewNeo4jDriver(uri, username, password, database string) (*Neo4jDriver, error) {
	client, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}

	return &Neo4jDriver{
		client:   client,
		database: database,
	}, nil
}

var _ GraphDriver = (*Neo4jDriver)(nil)

func (d *Neo4jDriver) session(ctx context.Context) neo4j.SessionWithContext {
	return d.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: d.database})
}

// SyncEntity merges the entity node keyed on id and refreshes its properties.
func (d *Neo4jDriver) SyncEntity(ctx context.Context, entity *types.Entity) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (e:Entity {id: $id})
			SET e.name = $name,
			    e.normalized_name = $normalized_name,
			    e.entity_type = $entity_type,
			    e.context = $context,
			    e.tenant = $tenant,
			    e.created_at = $created_at,
			    e.updated_at = $updated_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":              entity.ID,
			"name":            entity.Name,
			"normalized_name": entity.NormalizedName,
			"entity_type":     entity.EntityType,
			"context":         entity.Context,
			"tenant":          entity.Tenant,
			"created_at":      entity.CreatedAt.Format(time.RFC3339),
			"updated_at":      entity.UpdatedAt.Format(time.RFC3339),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to sync entity %s: %w", entity.ID, err)
	}
	return nil
}

// SyncRelationship merges the relationship definition as its own node so
// edges can carry just the normalized predicate name.
func (d *Neo4jDriver) SyncRelationship(ctx context.Context, rel *types.Relationship) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (r:RelationshipType {id: $id})
			SET r.name = $name,
			    r.normalized_name = $normalized_name,
			    r.context = $context,
			    r.tenant = $tenant,
			    r.created_at = $created_at,
			    r.updated_at = $updated_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":              rel.ID,
			"name":            rel.Name,
			"normalized_name": rel.NormalizedName,
			"context":         rel.Context,
			"tenant":          rel.Tenant,
			"created_at":      rel.CreatedAt.Format(time.RFC3339),
			"updated_at":      rel.UpdatedAt.Format(time.RFC3339),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to sync relationship %s: %w", rel.ID, err)
	}
	return nil
}

// SyncTriple merges the endpoints and predicate first, then the RELATES edge
// between them.
func (d *Neo4jDriver) SyncTriple(ctx context.Context, triple *types.Triple, subject, object *types.Entity, predicate *types.Relationship) error {
	if err := d.SyncEntity(ctx, subject); err != nil {
		return err
	}
	if err := d.SyncEntity(ctx, object); err != nil {
		return err
	}
	if err := d.SyncRelationship(ctx, predicate); err != nil {
		return err
	}

	session := d.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (s:Entity {id: $subject_id})
			MATCH (o:Entity {id: $object_id})
			MATCH (r:RelationshipType {id: $predicate_id})
			MERGE (s)-[rel:RELATES {id: $id, type: r.normalized_name}]->(o)
			SET rel.confidence = $confidence,
			    rel.source_text = $source_text,
			    rel.tenant = $tenant,
			    rel.extracted_from = $extracted_from,
			    rel.created_at = $created_at,
			    rel.updated_at = $updated_at
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":             triple.ID,
			"subject_id":     triple.SubjectID,
			"object_id":      triple.ObjectID,
			"predicate_id":   triple.PredicateID,
			"confidence":     triple.Confidence,
			"source_text":    triple.SourceText,
			"tenant":         triple.Tenant,
			"extracted_from": triple.ExtractedFrom,
			"created_at":     triple.CreatedAt.Format(time.RFC3339),
			"updated_at":     triple.UpdatedAt.Format(time.RFC3339),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to sync triple %s: %w", triple.ID, err)
	}
	return nil
}

// NeighborsWithinTwoHops finds entities reachable through shared neighbors.
// Direct connections are excluded and at least two shared neighbors are
// required, so the results are genuine inference candidates rather than
// restatements of existing edges.
func (d *Neo4jDriver) NeighborsWithinTwoHops(ctx context.Context, entityID, tenant string) ([]Connection, error) {
	session := d.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity {id: $entity_id, tenant: $tenant})-[:RELATES]-(n:Entity)-[:RELATES]-(other:Entity {tenant: $tenant})
			WHERE other.id <> $entity_id
			AND NOT (e)-[:RELATES]-(other)
			WITH other, count(DISTINCT n) AS common_neighbors, collect(DISTINCT n.name) AS shared_neighbors
			WHERE common_neighbors >= 2
			RETURN other.id AS id, other.name AS name, other.entity_type AS entity_type,
			       common_neighbors, shared_neighbors
			ORDER BY common_neighbors DESC
			LIMIT 5
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"entity_id": entityID,
			"tenant":    tenant,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query two-hop neighbors for %s: %w", entityID, err)
	}

	records := result.([]*db.Record)
	connections := make([]Connection, 0, len(records))
	for _, record := range records {
		conn := Connection{
			CandidateID:         stringValue(record, "id"),
			CandidateName:       stringValue(record, "name"),
			CandidateType:       stringValue(record, "entity_type"),
			SharedNeighborCount: intValue(record, "common_neighbors"),
		}
		if raw, found := record.Get("shared_neighbors"); found {
			if list, ok := raw.([]any); ok {
				for _, item := range list {
					if s, ok := item.(string); ok {
						conn.SharedNeighborNames = append(conn.SharedNeighborNames, s)
					}
				}
			}
		}
		connections = append(connections, conn)
	}
	return connections, nil
}

// PathBetween finds the shortest RELATES path between two entities. The hop
// bound is inlined because Cypher does not allow parameters in variable
// length patterns.
func (d *Neo4jDriver) PathBetween(ctx context.Context, startID, endID, tenant string, maxDepth int) ([]PathSegment, error) {
	if maxDepth <= 0 {
		maxDepth = 4
	}

	session := d.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(`
			MATCH path = shortestPath((s:Entity {id: $start_id, tenant: $tenant})-[:RELATES*1..%d]-(e:Entity {id: $end_id, tenant: $tenant}))
			UNWIND relationships(path) AS rel
			RETURN rel.id AS relationship_id, rel.type AS relationship_name,
			       rel.confidence AS confidence,
			       startNode(rel).id AS from_id, startNode(rel).name AS from_name,
			       endNode(rel).id AS to_id, endNode(rel).name AS to_name
		`, maxDepth)
		res, err := tx.Run(ctx, query, map[string]any{
			"start_id": startID,
			"end_id":   endID,
			"tenant":   tenant,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query path %s -> %s: %w", startID, endID, err)
	}

	records := result.([]*db.Record)
	segments := make([]PathSegment, 0, len(records))
	for _, record := range records {
		segments = append(segments, PathSegment{
			FromID:           stringValue(record, "from_id"),
			FromName:         stringValue(record, "from_name"),
			ToID:             stringValue(record, "to_id"),
			ToName:           stringValue(record, "to_name"),
			RelationshipID:   stringValue(record, "relationship_id"),
			RelationshipName: stringValue(record, "relationship_name"),
			Confidence:       floatValue(record, "confidence"),
		})
	}
	return segments, nil
}

// SearchEntities matches entity nodes by substring on the normalized name.
func (d *Neo4jDriver) SearchEntities(ctx context.Context, query, tenant string, limit int) ([]*types.Entity, error) {
	if limit <= 0 {
		limit = 10
	}

	session := d.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `
			MATCH (e:Entity {tenant: $tenant})
			WHERE e.name CONTAINS $query OR e.normalized_name CONTAINS $query_lower
			RETURN e.id AS id, e.name AS name, e.normalized_name AS normalized_name,
			       e.entity_type AS entity_type, e.context AS context
			LIMIT $limit
		`
		res, err := tx.Run(ctx, cypher, map[string]any{
			"query":       query,
			"query_lower": types.NormalizeName(query),
			"tenant":      tenant,
			"limit":       limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search entities: %w", err)
	}

	records := result.([]*db.Record)
	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		entities = append(entities, &types.Entity{
			ID:             stringValue(record, "id"),
			Name:           stringValue(record, "name"),
			NormalizedName: stringValue(record, "normalized_name"),
			EntityType:     stringValue(record, "entity_type"),
			Context:        stringValue(record, "context"),
			Tenant:         tenant,
		})
	}
	return entities, nil
}

// CreateIndices creates the id and name lookup indices.
func (d *Neo4jDriver) CreateIndices(ctx context.Context) error {
	session := d.session(ctx)
	defer session.Close(ctx)

	statements := []string{
		"CREATE INDEX entity_id IF NOT EXISTS FOR (e:Entity) ON (e.id)",
		"CREATE INDEX entity_tenant IF NOT EXISTS FOR (e:Entity) ON (e.tenant)",
		"CREATE INDEX entity_normalized_name IF NOT EXISTS FOR (e:Entity) ON (e.normalized_name)",
		"CREATE INDEX relationship_type_id IF NOT EXISTS FOR (r:RelationshipType) ON (r.id)",
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range statements {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	return nil
}

// Close shuts down the underlying connection pool.
func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.client.Close(ctx)
}

func stringValue(record *db.Record, key string) string {
	raw, found := record.Get(key)
	if !found || raw == nil {
		return ""
	}
	s, _ := raw.(string)
	return s
}

func intValue(record *db.Record, key string) int {
	raw, found := record.Get(key)
	if !found || raw == nil {
		return 0
	}
	switch v := raw.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func floatValue(record *db.Record, key string) float64 {
	raw, found := record.Get(key)
	if !found || raw == nil {
		return 0
	}
	switch v := raw.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}
