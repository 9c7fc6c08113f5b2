package store

import (
	"context"
	"testing"

	"github.com/graphweave/graphweave/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]KnowledgeStore {
	t.Helper()

	badgerStore, err := NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })

	return map[string]KnowledgeStore{
		"memory": NewMemoryStore(),
		"badger": badgerStore,
	}
}

func TestGetOrCreateEntityIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			first, created, err := s.GetOrCreateEntity(ctx, "Paris", "city", "Paris is a city.", "tenant-1")
			require.NoError(t, err)
			assert.True(t, created)
			assert.Equal(t, "paris", first.NormalizedName)

			second, created, err := s.GetOrCreateEntity(ctx, " paris ", "city", "other context", "tenant-1")
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.ID, second.ID)
			// Context is only backfilled when empty.
			assert.Equal(t, "Paris is a city.", second.Context)

			count, err := s.CountEntities(ctx, "tenant-1")
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestGetOrCreateEntityDistinctKeys(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, created, err := s.GetOrCreateEntity(ctx, "Mercury", "planet", "", "tenant-1")
			require.NoError(t, err)
			assert.True(t, created)

			// Same name, different type: different identity key.
			_, created, err = s.GetOrCreateEntity(ctx, "Mercury", "element", "", "tenant-1")
			require.NoError(t, err)
			assert.True(t, created)

			// Same name and type, different tenant.
			_, created, err = s.GetOrCreateEntity(ctx, "Mercury", "planet", "", "tenant-2")
			require.NoError(t, err)
			assert.True(t, created)
		})
	}
}

func TestEntityContextBackfill(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			first, _, err := s.GetOrCreateEntity(ctx, "Tesla", "organization", "", "tenant-1")
			require.NoError(t, err)
			assert.Empty(t, first.Context)

			second, created, err := s.GetOrCreateEntity(ctx, "Tesla", "organization", "Tesla builds cars.", "tenant-1")
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, "Tesla builds cars.", second.Context)
		})
	}
}

func TestFilterEntities(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			a, _, err := s.GetOrCreateEntity(ctx, "New York City", "location", "", "tenant-1")
			require.NoError(t, err)
			_, _, err = s.GetOrCreateEntity(ctx, "New York State", "location", "", "tenant-1")
			require.NoError(t, err)
			_, _, err = s.GetOrCreateEntity(ctx, "Boston", "location", "", "tenant-1")
			require.NoError(t, err)
			_, _, err = s.GetOrCreateEntity(ctx, "New Orleans", "location", "", "tenant-2")
			require.NoError(t, err)

			matches, err := s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", NameContains: "new york"})
			require.NoError(t, err)
			assert.Len(t, matches, 2)

			matches, err = s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", NameContains: "new york", ExcludeID: a.ID})
			require.NoError(t, err)
			assert.Len(t, matches, 1)

			locType := "location"
			matches, err = s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", EntityType: &locType})
			require.NoError(t, err)
			assert.Len(t, matches, 3)

			matches, err = s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", EntityType: &locType, Limit: 2})
			require.NoError(t, err)
			assert.Len(t, matches, 2)
		})
	}
}

func TestUntypedEntityFilter(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.GetOrCreateEntity(ctx, "Widget", "", "", "tenant-1")
			require.NoError(t, err)
			_, _, err = s.GetOrCreateEntity(ctx, "Widget", "product", "", "tenant-1")
			require.NoError(t, err)

			untyped := ""
			matches, err := s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", NormalizedName: "widget", EntityType: &untyped})
			require.NoError(t, err)
			assert.Len(t, matches, 1)

			// nil EntityType matches any type.
			matches, err = s.FilterEntities(ctx, EntityFilter{Tenant: "tenant-1", NormalizedName: "widget"})
			require.NoError(t, err)
			assert.Len(t, matches, 2)
		})
	}
}

func TestUpsertTripleMaxMerge(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			subj, _, err := s.GetOrCreateEntity(ctx, "Paris", "city", "", "tenant-1")
			require.NoError(t, err)
			obj, _, err := s.GetOrCreateEntity(ctx, "France", "country", "", "tenant-1")
			require.NoError(t, err)
			pred, _, err := s.GetOrCreateRelationship(ctx, "located in", "", "tenant-1")
			require.NoError(t, err)

			first, created, err := s.UpsertTriple(ctx, &types.Triple{
				SubjectID: subj.ID, PredicateID: pred.ID, ObjectID: obj.ID,
				Confidence: 0.6, Tenant: "tenant-1",
			})
			require.NoError(t, err)
			assert.True(t, created)

			// Lower confidence leaves the stored value unchanged.
			merged, created, err := s.UpsertTriple(ctx, &types.Triple{
				SubjectID: subj.ID, PredicateID: pred.ID, ObjectID: obj.ID,
				Confidence: 0.3, Tenant: "tenant-1",
			})
			require.NoError(t, err)
			assert.False(t, created)
			assert.Equal(t, first.ID, merged.ID)
			assert.InDelta(t, 0.6, merged.Confidence, 1e-9)

			// Higher confidence raises it.
			merged, created, err = s.UpsertTriple(ctx, &types.Triple{
				SubjectID: subj.ID, PredicateID: pred.ID, ObjectID: obj.ID,
				Confidence: 0.9, Tenant: "tenant-1",
			})
			require.NoError(t, err)
			assert.False(t, created)
			assert.InDelta(t, 0.9, merged.Confidence, 1e-9)

			all, err := s.FilterTriples(ctx, TripleFilter{Tenant: "tenant-1"})
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}
}

func TestFilterTriples(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			a, _, _ := s.GetOrCreateEntity(ctx, "A", "", "", "tenant-1")
			b, _, _ := s.GetOrCreateEntity(ctx, "B", "", "", "tenant-1")
			c, _, _ := s.GetOrCreateEntity(ctx, "C", "", "", "tenant-1")
			p, _, _ := s.GetOrCreateRelationship(ctx, "part of", "", "tenant-1")

			for _, pair := range [][2]string{{a.ID, b.ID}, {b.ID, c.ID}} {
				_, _, err := s.UpsertTriple(ctx, &types.Triple{
					SubjectID: pair[0], PredicateID: p.ID, ObjectID: pair[1],
					Confidence: 0.8, Tenant: "tenant-1",
				})
				require.NoError(t, err)
			}

			fromB, err := s.FilterTriples(ctx, TripleFilter{Tenant: "tenant-1", SubjectID: b.ID})
			require.NoError(t, err)
			require.Len(t, fromB, 1)
			assert.Equal(t, c.ID, fromB[0].ObjectID)

			toB, err := s.FilterTriples(ctx, TripleFilter{Tenant: "tenant-1", ObjectID: b.ID})
			require.NoError(t, err)
			require.Len(t, toB, 1)
			assert.Equal(t, a.ID, toB[0].SubjectID)
		})
	}
}

func TestListEntitiesPagination(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			names := []string{"Alpha", "Beta", "Gamma", "Delta", "Epsilon"}
			for _, n := range names {
				_, _, err := s.GetOrCreateEntity(ctx, n, "", "", "tenant-1")
				require.NoError(t, err)
			}

			var seen []string
			for offset := 0; ; offset += 2 {
				page, err := s.ListEntities(ctx, "tenant-1", offset, 2)
				require.NoError(t, err)
				if len(page) == 0 {
					break
				}
				for _, e := range page {
					seen = append(seen, e.Name)
				}
			}
			assert.Len(t, seen, len(names))
			assert.ElementsMatch(t, names, seen)
		})
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetEntity(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetRelationship(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = s.GetTriple(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}
