package graphweave_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/driver"
	"github.com/graphweave/graphweave/pkg/llm"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

const testTenant = "tenant-1"

// stubLLM replays canned responses, then answers "[]" forever. Integration
// strategies issue follow-up calls after extraction, so the empty-list tail
// keeps them quiet.
type stubLLM struct {
	responses []string
	err       error
	calls     int
}

func (s *stubLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	content := "[]"
	if len(s.responses) > 0 {
		content = s.responses[0]
		s.responses = s.responses[1:]
	}
	return &types.Response{Content: content}, nil
}

func (s *stubLLM) Close() error { return nil }

// recordingDriver captures mirrored triples and serves canned two-hop
// connections.
type recordingDriver struct {
	driver.NoopDriver
	connections []driver.Connection
	synced      []*types.Triple
}

func (d *recordingDriver) SyncTriple(ctx context.Context, triple *types.Triple, subject, object *types.Entity, predicate *types.Relationship) error {
	d.synced = append(d.synced, triple)
	return nil
}

func (d *recordingDriver) NeighborsWithinTwoHops(ctx context.Context, entityID, tenant string) ([]driver.Connection, error) {
	return d.connections, nil
}

func newTestClient(t *testing.T, llmClient llm.Client, graphDriver driver.GraphDriver) *graphweave.Client {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := graphweave.NewClient(s, graphDriver, llmClient, nil, logger)
	require.NoError(t, err)
	return client
}

func entityByName(t *testing.T, client *graphweave.Client, name string) *types.Entity {
	t.Helper()
	matches, err := client.Store().FilterEntities(context.Background(), store.EntityFilter{
		Tenant:         testTenant,
		NormalizedName: types.NormalizeName(name),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one entity named %q", name)
	return matches[0]
}

func relationshipByName(t *testing.T, client *graphweave.Client, name string) *types.Relationship {
	t.Helper()
	matches, err := client.Store().FilterRelationships(context.Background(), store.RelationshipFilter{
		Tenant:         testTenant,
		NormalizedName: types.NormalizeName(name),
	})
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one relationship named %q", name)
	return matches[0]
}

func allTriples(t *testing.T, client *graphweave.Client) []*types.Triple {
	t.Helper()
	triples, err := client.Store().FilterTriples(context.Background(), store.TripleFilter{Tenant: testTenant})
	require.NoError(t, err)
	return triples
}

func TestExtractRuleIsA(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Paris is a city.", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 0.7, saved[0].Confidence, 1e-9)

	subject := entityByName(t, client, "Paris")
	assert.Equal(t, "city", subject.EntityType)

	object := entityByName(t, client, "city")
	assert.Equal(t, "type", object.EntityType)

	predicate := relationshipByName(t, client, "is a")
	assert.Equal(t, subject.ID, saved[0].SubjectID)
	assert.Equal(t, predicate.ID, saved[0].PredicateID)
	assert.Equal(t, object.ID, saved[0].ObjectID)
}

func TestExtractRuleVerb(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Alice knows Bob", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 0.6, saved[0].Confidence, 1e-9)

	predicate := relationshipByName(t, client, "knows")
	assert.Equal(t, predicate.ID, saved[0].PredicateID)
	assert.Equal(t, "Alice knows Bob", saved[0].SourceText)
}

func TestExtractRulePossessive(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Alice's father is Bob", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 0.65, saved[0].Confidence, 1e-9)

	predicate := relationshipByName(t, client, "has father")
	assert.Equal(t, predicate.ID, saved[0].PredicateID)
	assert.Equal(t, entityByName(t, client, "Alice").ID, saved[0].SubjectID)
	assert.Equal(t, entityByName(t, client, "Bob").ID, saved[0].ObjectID)
}

func TestExtractFromConversation(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	messages := []types.Message{
		{Role: types.RoleUser, Content: "Paris is a city."},
		{Role: types.RoleAssistant, Content: ""},
	}
	saved, err := client.ExtractFromConversation(ctx, messages, "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	predicate := relationshipByName(t, client, "is a")
	assert.Equal(t, predicate.ID, saved[0].PredicateID)
}

func TestExtractIdempotent(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	_, err := client.ExtractFromText(ctx, "Alice knows Bob", "", testTenant)
	require.NoError(t, err)
	_, err = client.ExtractFromText(ctx, "Alice knows Bob", "", testTenant)
	require.NoError(t, err)

	triples := allTriples(t, client)
	require.Len(t, triples, 1)
	assert.InDelta(t, 0.6, triples[0].Confidence, 1e-9)
}

func TestExtractSymmetricReverse(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Alice married to Bob", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	triples := allTriples(t, client)
	require.Len(t, triples, 2)

	alice := entityByName(t, client, "Alice")
	bob := entityByName(t, client, "Bob")
	predicate := relationshipByName(t, client, "married to")

	reverse, err := client.Store().FilterTriples(ctx, store.TripleFilter{
		Tenant:      testTenant,
		SubjectID:   bob.ID,
		PredicateID: predicate.ID,
		ObjectID:    alice.ID,
	})
	require.NoError(t, err)
	require.Len(t, reverse, 1)
	assert.InDelta(t, saved[0].Confidence, reverse[0].Confidence, 1e-9)

	// Re-extraction must not duplicate the reverse triple.
	_, err = client.ExtractFromText(ctx, "Alice married to Bob", "", testTenant)
	require.NoError(t, err)
	assert.Len(t, allTriples(t, client), 2)
}

func TestExtractTransitiveChain(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	_, err := client.ExtractFromText(ctx, "Paris located in France. France located in Europe.", "", testTenant)
	require.NoError(t, err)

	triples := allTriples(t, client)
	require.Len(t, triples, 3)

	transitive := relationshipByName(t, client, "transitive_located in_located in")
	paris := entityByName(t, client, "Paris")
	europe := entityByName(t, client, "Europe")

	inferred, err := client.Store().FilterTriples(ctx, store.TripleFilter{
		Tenant:      testTenant,
		SubjectID:   paris.ID,
		PredicateID: transitive.ID,
		ObjectID:    europe.ID,
	})
	require.NoError(t, err)
	require.Len(t, inferred, 1)
	assert.InDelta(t, 0.54, inferred[0].Confidence, 1e-9)

	// Running the same text again must not add anything.
	_, err = client.ExtractFromText(ctx, "Paris located in France. France located in Europe.", "", testTenant)
	require.NoError(t, err)
	assert.Len(t, allTriples(t, client), 3)
}

func TestExtractWithLLM(t *testing.T) {
	mock := &stubLLM{responses: []string{
		`[{"subject": "Marie Curie", "subject_type": "person", "predicate": "discovered", "object": "Radium", "object_type": "element", "confidence": 0.95, "source_text": "Marie Curie discovered radium."}]`,
	}}
	client := newTestClient(t, mock, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Marie Curie discovered radium.", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 0.95, saved[0].Confidence, 1e-9)

	subject := entityByName(t, client, "Marie Curie")
	assert.Equal(t, "person", subject.EntityType)
	object := entityByName(t, client, "Radium")
	assert.Equal(t, "element", object.EntityType)

	assert.Len(t, allTriples(t, client), 1)
	assert.Greater(t, mock.calls, 0)
}

func TestExtractLLMFailureFallsBackToRules(t *testing.T) {
	mock := &stubLLM{err: errors.New("provider unavailable")}
	client := newTestClient(t, mock, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Paris is a city.", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.InDelta(t, 0.7, saved[0].Confidence, 1e-9)
}

func TestExtractLLMGarbageFallsBackToRules(t *testing.T) {
	mock := &stubLLM{responses: []string{"I could not find any structured data, sorry."}}
	client := newTestClient(t, mock, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Paris is a city.", "", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	predicate := relationshipByName(t, client, "is a")
	assert.Equal(t, predicate.ID, saved[0].PredicateID)
}

func TestExtractProvenanceRemap(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	saved, err := client.ExtractFromText(ctx, "Alice knows Bob", "conversation-42", testTenant)
	require.NoError(t, err)
	require.Len(t, saved, 1)

	assert.Equal(t, types.NormalizeProvenanceID("conversation-42"), saved[0].ExtractedFrom)
	_, err = uuid.Parse(saved[0].ExtractedFrom)
	assert.NoError(t, err)
}

func TestExtractMirrorsToGraphDriver(t *testing.T) {
	rec := &recordingDriver{}
	client := newTestClient(t, nil, rec)
	ctx := context.Background()

	_, err := client.ExtractFromText(ctx, "Alice married to Bob", "", testTenant)
	require.NoError(t, err)

	// One extracted triple plus its symmetric reverse.
	assert.Len(t, rec.synced, 2)
}
