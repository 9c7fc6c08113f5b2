package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/graphweave/graphweave/pkg/types"
)

// Key layout. Records are JSON under a primary key; identity keys map the
// record's identity tuple to its id; tenant index keys make per-tenant scans
// cheap. Parts are joined with NUL so names containing separators stay safe.
const (
	entityPrefix    = "e"
	entityKeyPrefix = "ek"
	entityIdxPrefix = "ei"
	relPrefix       = "r"
	relKeyPrefix    = "rk"
	relIdxPrefix    = "ri"
	triplePrefix    = "t"
	tripleKeyPrefix = "tk"
	tripleIdxPrefix = "ti"
)

const upsertRetries = 5

// BadgerStore is a KnowledgeStore backed by BadgerDB. Get-or-create
// operations run inside serializable transactions; commit conflicts are
// retried, so racing callers converge on a single record per identity key.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a Badger database at path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func bkey(parts ...string) []byte {
	out := []byte{}
	for i, p := range parts {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, p...)
	}
	return out
}

func putJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// update retries serializable-transaction conflicts; this is what makes
// get-or-create an atomic insert-or-fetch.
func (s *BadgerStore) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < upsertRetries; attempt++ {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

// CreateEntity persists a new entity, assigning id and timestamps.
func (s *BadgerStore) CreateEntity(ctx context.Context, entity *types.Entity) error {
	if entity.NormalizedName == "" {
		entity.NormalizedName = types.NormalizeName(entity.Name)
	}
	if err := entity.Validate(); err != nil {
		return err
	}
	if entity.ID == "" {
		entity.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entity.CreatedAt = now
	entity.UpdatedAt = now

	return s.update(func(txn *badger.Txn) error {
		return writeEntity(txn, entity)
	})
}

func writeEntity(txn *badger.Txn, entity *types.Entity) error {
	if err := putJSON(txn, bkey(entityPrefix, entity.ID), entity); err != nil {
		return err
	}
	if err := txn.Set(bkey(entityKeyPrefix, entity.Tenant, entity.EntityType, entity.NormalizedName), []byte(entity.ID)); err != nil {
		return err
	}
	return txn.Set(bkey(entityIdxPrefix, entity.Tenant, entity.ID), nil)
}

// GetEntity retrieves an entity by id.
func (s *BadgerStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	var entity types.Entity
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, bkey(entityPrefix, id), &entity)
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// UpdateEntity persists changed fields of an existing entity.
func (s *BadgerStore) UpdateEntity(ctx context.Context, entity *types.Entity) error {
	return s.update(func(txn *badger.Txn) error {
		var old types.Entity
		if err := getJSON(txn, bkey(entityPrefix, entity.ID), &old); err != nil {
			return err
		}
		entity.CreatedAt = old.CreatedAt
		entity.UpdatedAt = time.Now().UTC()
		return writeEntity(txn, entity)
	})
}

func (s *BadgerStore) scanEntities(tenant string, visit func(e *types.Entity) (done bool)) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bkey(entityIdxPrefix, tenant, "")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			id := string(key[len(opts.Prefix):])
			var entity types.Entity
			if err := getJSON(txn, bkey(entityPrefix, id), &entity); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if visit(&entity) {
				return nil
			}
		}
		return nil
	})
}

// FilterEntities returns entities matching the filter. Filters run as a
// per-tenant prefix scan with the predicates applied in process.
func (s *BadgerStore) FilterEntities(ctx context.Context, filter EntityFilter) ([]*types.Entity, error) {
	var out []*types.Entity
	err := s.scanEntities(filter.Tenant, func(e *types.Entity) bool {
		if !matchEntity(e, filter) {
			return false
		}
		out = append(out, e)
		return filter.Limit > 0 && len(out) >= filter.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListEntities pages through a tenant's entities in key order.
func (s *BadgerStore) ListEntities(ctx context.Context, tenant string, offset, limit int) ([]*types.Entity, error) {
	var out []*types.Entity
	skipped := 0
	err := s.scanEntities(tenant, func(e *types.Entity) bool {
		if skipped < offset {
			skipped++
			return false
		}
		out = append(out, e)
		return limit > 0 && len(out) >= limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountEntities returns the number of entities owned by the tenant.
func (s *BadgerStore) CountEntities(ctx context.Context, tenant string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bkey(entityIdxPrefix, tenant, "")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// GetOrCreateEntity resolves the entity identified by
// (normalized name, entityType, tenant), creating it when absent.
func (s *BadgerStore) GetOrCreateEntity(ctx context.Context, name, entityType, context_, tenant string) (*types.Entity, bool, error) {
	normalized := types.NormalizeName(name)
	var result *types.Entity
	created := false

	err := s.update(func(txn *badger.Txn) error {
		result = nil
		created = false

		item, err := txn.Get(bkey(entityKeyPrefix, tenant, entityType, normalized))
		if err == nil {
			id, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			var entity types.Entity
			if err := getJSON(txn, bkey(entityPrefix, string(id)), &entity); err != nil {
				return err
			}
			if entity.Context == "" && context_ != "" {
				entity.Context = context_
				entity.UpdatedAt = time.Now().UTC()
				if err := putJSON(txn, bkey(entityPrefix, entity.ID), &entity); err != nil {
					return err
				}
			}
			result = &entity
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		entity := &types.Entity{
			ID:             uuid.NewString(),
			Name:           name,
			NormalizedName: normalized,
			EntityType:     entityType,
			Context:        context_,
			Tenant:         tenant,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := entity.Validate(); err != nil {
			return err
		}
		if err := writeEntity(txn, entity); err != nil {
			return err
		}
		result = entity
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// CreateRelationship persists a new relationship definition.
func (s *BadgerStore) CreateRelationship(ctx context.Context, rel *types.Relationship) error {
	if rel.NormalizedName == "" {
		rel.NormalizedName = types.NormalizeName(rel.Name)
	}
	if err := rel.Validate(); err != nil {
		return err
	}
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rel.CreatedAt = now
	rel.UpdatedAt = now

	return s.update(func(txn *badger.Txn) error {
		return writeRelationship(txn, rel)
	})
}

func writeRelationship(txn *badger.Txn, rel *types.Relationship) error {
	if err := putJSON(txn, bkey(relPrefix, rel.ID), rel); err != nil {
		return err
	}
	if err := txn.Set(bkey(relKeyPrefix, rel.Tenant, rel.NormalizedName), []byte(rel.ID)); err != nil {
		return err
	}
	return txn.Set(bkey(relIdxPrefix, rel.Tenant, rel.ID), nil)
}

// GetRelationship retrieves a relationship by id.
func (s *BadgerStore) GetRelationship(ctx context.Context, id string) (*types.Relationship, error) {
	var rel types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, bkey(relPrefix, id), &rel)
	})
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// UpdateRelationship persists changed fields of an existing relationship.
func (s *BadgerStore) UpdateRelationship(ctx context.Context, rel *types.Relationship) error {
	return s.update(func(txn *badger.Txn) error {
		var old types.Relationship
		if err := getJSON(txn, bkey(relPrefix, rel.ID), &old); err != nil {
			return err
		}
		rel.CreatedAt = old.CreatedAt
		rel.UpdatedAt = time.Now().UTC()
		return writeRelationship(txn, rel)
	})
}

// FilterRelationships returns relationships matching the filter.
func (s *BadgerStore) FilterRelationships(ctx context.Context, filter RelationshipFilter) ([]*types.Relationship, error) {
	var out []*types.Relationship
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bkey(relIdxPrefix, filter.Tenant, "")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(opts.Prefix):])
			var rel types.Relationship
			if err := getJSON(txn, bkey(relPrefix, id), &rel); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if filter.NormalizedName != "" && rel.NormalizedName != filter.NormalizedName {
				continue
			}
			if filter.ExcludeID != "" && rel.ID == filter.ExcludeID {
				continue
			}
			out = append(out, &rel)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrCreateRelationship resolves the relationship identified by
// (normalized name, tenant), creating it when absent.
func (s *BadgerStore) GetOrCreateRelationship(ctx context.Context, name, context_, tenant string) (*types.Relationship, bool, error) {
	normalized := types.NormalizeName(name)
	var result *types.Relationship
	created := false

	err := s.update(func(txn *badger.Txn) error {
		result = nil
		created = false

		item, err := txn.Get(bkey(relKeyPrefix, tenant, normalized))
		if err == nil {
			id, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			var rel types.Relationship
			if err := getJSON(txn, bkey(relPrefix, string(id)), &rel); err != nil {
				return err
			}
			if rel.Context == "" && context_ != "" {
				rel.Context = context_
				rel.UpdatedAt = time.Now().UTC()
				if err := putJSON(txn, bkey(relPrefix, rel.ID), &rel); err != nil {
					return err
				}
			}
			result = &rel
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		rel := &types.Relationship{
			ID:             uuid.NewString(),
			Name:           name,
			NormalizedName: normalized,
			Context:        context_,
			Tenant:         tenant,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := rel.Validate(); err != nil {
			return err
		}
		if err := writeRelationship(txn, rel); err != nil {
			return err
		}
		result = rel
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, created, nil
}

// CreateTriple persists a new triple, assigning id and timestamps.
func (s *BadgerStore) CreateTriple(ctx context.Context, triple *types.Triple) error {
	if err := triple.Validate(); err != nil {
		return err
	}
	if triple.ID == "" {
		triple.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	triple.CreatedAt = now
	triple.UpdatedAt = now

	return s.update(func(txn *badger.Txn) error {
		return writeTriple(txn, triple)
	})
}

func writeTriple(txn *badger.Txn, triple *types.Triple) error {
	if err := putJSON(txn, bkey(triplePrefix, triple.ID), triple); err != nil {
		return err
	}
	if err := txn.Set(bkey(tripleKeyPrefix, triple.Tenant, triple.SubjectID, triple.PredicateID, triple.ObjectID), []byte(triple.ID)); err != nil {
		return err
	}
	return txn.Set(bkey(tripleIdxPrefix, triple.Tenant, triple.ID), nil)
}

// GetTriple retrieves a triple by id.
func (s *BadgerStore) GetTriple(ctx context.Context, id string) (*types.Triple, error) {
	var triple types.Triple
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, bkey(triplePrefix, id), &triple)
	})
	if err != nil {
		return nil, err
	}
	return &triple, nil
}

// UpdateTriple persists changed fields of an existing triple.
func (s *BadgerStore) UpdateTriple(ctx context.Context, triple *types.Triple) error {
	return s.update(func(txn *badger.Txn) error {
		var old types.Triple
		if err := getJSON(txn, bkey(triplePrefix, triple.ID), &old); err != nil {
			return err
		}
		triple.CreatedAt = old.CreatedAt
		triple.UpdatedAt = time.Now().UTC()
		return writeTriple(txn, triple)
	})
}

// FilterTriples returns triples matching the filter.
func (s *BadgerStore) FilterTriples(ctx context.Context, filter TripleFilter) ([]*types.Triple, error) {
	var out []*types.Triple
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = bkey(tripleIdxPrefix, filter.Tenant, "")
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(opts.Prefix):])
			var triple types.Triple
			if err := getJSON(txn, bkey(triplePrefix, id), &triple); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			if filter.SubjectID != "" && triple.SubjectID != filter.SubjectID {
				continue
			}
			if filter.PredicateID != "" && triple.PredicateID != filter.PredicateID {
				continue
			}
			if filter.ObjectID != "" && triple.ObjectID != filter.ObjectID {
				continue
			}
			out = append(out, &triple)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertTriple inserts the triple or max-merges confidence into the existing
// record for the same (subject, predicate, object, tenant).
func (s *BadgerStore) UpsertTriple(ctx context.Context, triple *types.Triple) (*types.Triple, bool, error) {
	if err := triple.Validate(); err != nil {
		return nil, false, err
	}

	var result *types.Triple
	created := false
	err := s.update(func(txn *badger.Txn) error {
		result = nil
		created = false

		item, err := txn.Get(bkey(tripleKeyPrefix, triple.Tenant, triple.SubjectID, triple.PredicateID, triple.ObjectID))
		if err == nil {
			id, verr := item.ValueCopy(nil)
			if verr != nil {
				return verr
			}
			var existing types.Triple
			if err := getJSON(txn, bkey(triplePrefix, string(id)), &existing); err != nil {
				return err
			}
			if triple.Confidence > existing.Confidence {
				existing.Confidence = triple.Confidence
				existing.UpdatedAt = time.Now().UTC()
				if err := putJSON(txn, bkey(triplePrefix, existing.ID), &existing); err != nil {
					return err
				}
			}
			result = &existing
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		now := time.Now().UTC()
		fresh := *triple
		fresh.ID = uuid.NewString()
		fresh.CreatedAt = now
		fresh.UpdatedAt = now
		if err := writeTriple(txn, &fresh); err != nil {
			return err
		}
		result = &fresh
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	*triple = *result
	return result, created, nil
}

// Close closes the underlying Badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ KnowledgeStore = (*BadgerStore)(nil)
