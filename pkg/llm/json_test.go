package llm

import (
	"testing"

	"github.com/graphweave/graphweave/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArrayBare(t *testing.T) {
	content := `[{"subject": "Paris", "predicate": "located in", "object": "France", "confidence": 0.9}]`

	var triples []types.CandidateTriple
	require.NoError(t, ExtractJSONArray(content, &triples))
	require.Len(t, triples, 1)
	assert.Equal(t, "Paris", triples[0].Subject)
	assert.Equal(t, "located in", triples[0].Predicate)
	assert.InDelta(t, 0.9, triples[0].Confidence, 1e-9)
}

func TestExtractJSONArrayEmbeddedInProse(t *testing.T) {
	content := `Here are the extracted triples:

[
  {"subject": "Marie Curie", "predicate": "won", "object": "Nobel Prize", "confidence": 0.95},
  {"subject": "Marie Curie", "predicate": "born in", "object": "Warsaw", "confidence": 0.9}
]

Let me know if you need anything else.`

	var triples []types.CandidateTriple
	require.NoError(t, ExtractJSONArray(content, &triples))
	assert.Len(t, triples, 2)
}

func TestExtractJSONArrayMarkdownFence(t *testing.T) {
	content := "```json\n[{\"subject\": \"A\", \"predicate\": \"p\", \"object\": \"B\", \"confidence\": 0.5}]\n```"

	var triples []types.CandidateTriple
	require.NoError(t, ExtractJSONArray(content, &triples))
	assert.Len(t, triples, 1)
}

func TestExtractJSONArraySalvagesTrailingComma(t *testing.T) {
	content := `[{"subject": "A", "predicate": "p", "object": "B", "confidence": 0.5,}]`

	var triples []types.CandidateTriple
	require.NoError(t, ExtractJSONArray(content, &triples))
	assert.Len(t, triples, 1)
}

func TestExtractJSONArrayNoJSON(t *testing.T) {
	var triples []types.CandidateTriple
	err := ExtractJSONArray("I could not find any triples in that text.", &triples)
	assert.Error(t, err)
}

func TestExtractJSONArrayEmptyList(t *testing.T) {
	var triples []types.CandidateTriple
	require.NoError(t, ExtractJSONArray("[]", &triples))
	assert.Empty(t, triples)
}
