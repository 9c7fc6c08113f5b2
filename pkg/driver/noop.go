package driver

import (
	"context"

	"github.com/graphweave/graphweave/pkg/types"
)

// NoopDriver is a GraphDriver that discards all writes and returns empty
// results. It keeps the engine running when no graph database is configured:
// extraction and name, type and LLM based integration still work, only the
// graph inference strategy degrades to finding nothing.
type NoopDriver struct{}

// NewNoopDriver returns a driver that does nothing.
func NewNoopDriver() *NoopDriver {
	return &NoopDriver{}
}

var _ GraphDriver = (*NoopDriver)(nil)

func (*NoopDriver) SyncEntity(context.Context, *types.Entity) error             { return nil }
func (*NoopDriver) SyncRelationship(context.Context, *types.Relationship) error { return nil }

func (*NoopDriver) SyncTriple(context.Context, *types.Triple, *types.Entity, *types.Entity, *types.Relationship) error {
	return nil
}

func (*NoopDriver) NeighborsWithinTwoHops(context.Context, string, string) ([]Connection, error) {
	return nil, nil
}

func (*NoopDriver) PathBetween(context.Context, string, string, string, int) ([]PathSegment, error) {
	return nil, nil
}

func (*NoopDriver) SearchEntities(context.Context, string, string, int) ([]*types.Entity, error) {
	return nil, nil
}

func (*NoopDriver) CreateIndices(context.Context) error { return nil }
func (*NoopDriver) Close(context.Context) error         { return nil }
