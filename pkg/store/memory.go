package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/graphweave/graphweave/pkg/types"
)

// MemoryStore is a mutex-guarded in-memory KnowledgeStore. It backs tests and
// the degraded mode where no persistent backend is configured.
type MemoryStore struct {
	mu sync.Mutex

	entities      map[string]*types.Entity
	relationships map[string]*types.Relationship
	triples       map[string]*types.Triple

	// identity-key indexes, id-valued
	entityKeys   map[string]string
	relKeys      map[string]string
	tripleKeys   map[string]string
	entityOrder  []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:      make(map[string]*types.Entity),
		relationships: make(map[string]*types.Relationship),
		triples:       make(map[string]*types.Triple),
		entityKeys:    make(map[string]string),
		relKeys:       make(map[string]string),
		tripleKeys:    make(map[string]string),
	}
}

func entityKey(tenant, entityType, normalizedName string) string {
	return tenant + "\x00" + entityType + "\x00" + normalizedName
}

func relKey(tenant, normalizedName string) string {
	return tenant + "\x00" + normalizedName
}

func tripleKey(tenant, subjectID, predicateID, objectID string) string {
	return tenant + "\x00" + subjectID + "\x00" + predicateID + "\x00" + objectID
}

// CreateEntity persists a new entity, assigning id and timestamps.
func (s *MemoryStore) CreateEntity(ctx context.Context, entity *types.Entity) error {
	if entity.NormalizedName == "" {
		entity.NormalizedName = types.NormalizeName(entity.Name)
	}
	if err := entity.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createEntityLocked(entity)
}

func (s *MemoryStore) createEntityLocked(entity *types.Entity) error {
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	cp := *entity
	s.entities[entity.ID] = &cp
	s.entityKeys[entityKey(entity.Tenant, entity.EntityType, entity.NormalizedName)] = entity.ID
	s.entityOrder = append(s.entityOrder, entity.ID)
	return nil
}

// GetEntity retrieves an entity by id.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// UpdateEntity persists changed fields of an existing entity.
func (s *MemoryStore) UpdateEntity(ctx context.Context, entity *types.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.entities[entity.ID]
	if !ok {
		return ErrNotFound
	}
	entity.CreatedAt = old.CreatedAt
	entity.UpdatedAt = time.Now().UTC()
	cp := *entity
	s.entities[entity.ID] = &cp
	return nil
}

// FilterEntities returns entities matching the filter.
func (s *MemoryStore) FilterEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Entity
	for _, id := range s.entityOrder {
		e, ok := s.entities[id]
		if !ok {
			continue
		}
		if !matchEntity(e, filter) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matchEntity(e *types.Entity, f EntityFilter) bool {
	if f.Tenant != "" && e.Tenant != f.Tenant {
		return false
	}
	if f.NormalizedName != "" && e.NormalizedName != f.NormalizedName {
		return false
	}
	if f.NameContains != "" && !strings.Contains(e.NormalizedName, strings.ToLower(f.NameContains)) {
		return false
	}
	if f.EntityType != nil && e.EntityType != *f.EntityType {
		return false
	}
	if f.ExcludeID != "" && e.ID == f.ExcludeID {
		return false
	}
	return true
}

// ListEntities pages through a tenant's entities in insertion order.
func (s *MemoryStore) ListEntities(ctx context.Context, tenant string, offset, limit int) ([]*types.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Entity
	skipped := 0
	for _, id := range s.entityOrder {
		e, ok := s.entities[id]
		if !ok || e.Tenant != tenant {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		cp := *e
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// CountEntities returns the number of entities owned by the tenant.
func (s *MemoryStore) CountEntities(ctx context.Context, tenant string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, e := range s.entities {
		if e.Tenant == tenant {
			count++
		}
	}
	return count, nil
}

// GetOrCreateEntity resolves the entity identified by
// (normalized name, entityType, tenant), creating it when absent.
func (s *MemoryStore) GetOrCreateEntity(ctx context.Context, name, entityType, context_, tenant string) (*types.Entity, bool, error) {
	normalized := types.NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entityKeys[entityKey(tenant, entityType, normalized)]; ok {
		e := s.entities[id]
		if e.Context == "" && context_ != "" {
			e.Context = context_
			e.UpdatedAt = time.Now().UTC()
		}
		cp := *e
		return &cp, false, nil
	}

	entity := &types.Entity{
		Name:           name,
		NormalizedName: normalized,
		EntityType:     entityType,
		Context:        context_,
		Tenant:         tenant,
	}
	if err := s.createEntityLocked(entity); err != nil {
		return nil, false, err
	}
	cp := *entity
	return &cp, true, nil
}

// CreateRelationship persists a new relationship definition.
func (s *MemoryStore) CreateRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel.NormalizedName == "" {
		rel.NormalizedName = types.NormalizeName(rel.Name)
	}
	if err := rel.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createRelationshipLocked(rel)
}

func (s *MemoryStore) createRelationshipLocked(rel *types.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rel.CreatedAt = now
	rel.UpdatedAt = now

	cp := *rel
	s.relationships[rel.ID] = &cp
	s.relKeys[relKey(rel.Tenant, rel.NormalizedName)] = rel.ID
	return nil
}

// GetRelationship retrieves a relationship by id.
func (s *MemoryStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.relationships[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// UpdateRelationship persists changed fields of an existing relationship.
func (s *MemoryStore) UpdateRelationship(ctx context.Context, rel *types.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.relationships[rel.ID]
	if !ok {
		return ErrNotFound
	}
	rel.CreatedAt = old.CreatedAt
	rel.UpdatedAt = time.Now().UTC()
	cp := *rel
	s.relationships[rel.ID] = &cp
	return nil
}

// FilterRelationships returns relationships matching the filter.
func (s *MemoryStore) FilterRelationships(ctx context.Context, filter RelationshipFilter) ([]*types.Relationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Relationship
	for _, r := range s.relationships {
		if filter.Tenant != "" && r.Tenant != filter.Tenant {
			continue
		}
		if filter.NormalizedName != "" && r.NormalizedName != filter.NormalizedName {
			continue
		}
		if filter.ExcludeID != "" && r.ID == filter.ExcludeID {
			continue
		}
		cp := *r
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// GetOrCreateRelationship resolves the relationship identified by
// (normalized name, tenant), creating it when absent.
func (s *MemoryStore) GetOrCreateRelationship(ctx context.Context, name, context_, tenant string) (*types.Relationship, bool, error) {
	normalized := types.NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.relKeys[relKey(tenant, normalized)]; ok {
		r := s.relationships[id]
		if r.Context == "" && context_ != "" {
			r.Context = context_
			r.UpdatedAt = time.Now().UTC()
		}
		cp := *r
		return &cp, false, nil
	}

	rel := &types.Relationship{
		Name:           name,
		NormalizedName: normalized,
		Context:        context_,
		Tenant:         tenant,
	}
	if err := s.createRelationshipLocked(rel); err != nil {
		return nil, false, err
	}
	cp := *rel
	return &cp, true, nil
}

// CreateTriple persists a new triple, assigning id and timestamps.
func (s *MemoryStore) CreateTriple(ctx context.Context, triple *types.Triple) error {
	if err := triple.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.createTripleLocked(triple)
	return nil
}

func (s *MemoryStore) createTripleLocked(triple *types.Triple) {
	if triple.ID == "" {
		triple.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	triple.CreatedAt = now
	triple.UpdatedAt = now

	cp := *triple
	s.triples[triple.ID] = &cp
	s.tripleKeys[tripleKey(triple.Tenant, triple.SubjectID, triple.PredicateID, triple.ObjectID)] = triple.ID
}

// GetTriple retrieves a triple by id.
func (s *MemoryStore) GetTriple(ctx context.Context, id string) (*types.Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.triples[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// UpdateTriple persists changed fields of an existing triple.
func (s *MemoryStore) UpdateTriple(ctx context.Context, triple *types.Triple) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.triples[triple.ID]
	if !ok {
		return ErrNotFound
	}
	triple.CreatedAt = old.CreatedAt
	triple.UpdatedAt = time.Now().UTC()
	cp := *triple
	s.triples[triple.ID] = &cp
	return nil
}

// FilterTriples returns triples matching the filter.
func (s *MemoryStore) FilterTriples(ctx context.Context, filter TripleFilter) ([]*types.Triple, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*types.Triple
	for _, t := range s.triples {
		if filter.Tenant != "" && t.Tenant != filter.Tenant {
			continue
		}
		if filter.SubjectID != "" && t.SubjectID != filter.SubjectID {
			continue
		}
		if filter.PredicateID != "" && t.PredicateID != filter.PredicateID {
			continue
		}
		if filter.ObjectID != "" && t.ObjectID != filter.ObjectID {
			continue
		}
		cp := *t
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

// UpsertTriple inserts the triple or max-merges confidence into the existing
// record for the same (subject, predicate, object, tenant).
func (s *MemoryStore) UpsertTriple(ctx context.Context, triple *types.Triple) (*types.Triple, bool, error) {
	if err := triple.Validate(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := tripleKey(triple.Tenant, triple.SubjectID, triple.PredicateID, triple.ObjectID)
	if id, ok := s.tripleKeys[key]; ok {
		existing := s.triples[id]
		if triple.Confidence > existing.Confidence {
			existing.Confidence = triple.Confidence
			existing.UpdatedAt = time.Now().UTC()
		}
		cp := *existing
		return &cp, false, nil
	}

	s.createTripleLocked(triple)
	cp := *triple
	return &cp, true, nil
}

// Close releases store resources.
func (s *MemoryStore) Close() error {
	return nil
}

var _ KnowledgeStore = (*MemoryStore)(nil)
