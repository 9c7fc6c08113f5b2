package graphweave

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/graphweave/graphweave/pkg/llm"
	"github.com/graphweave/graphweave/pkg/types"
)

const extractionSystemPrompt = `You are a knowledge triple extraction system. Your task is to extract factual knowledge triples (subject-predicate-object) from the given text.

Guidelines:
1. Focus on extracting factual statements only
2. Subject and object should be specific entities, concepts, or things
3. Predicate should describe the relationship between subject and object
4. Assign entity types where possible (person, organization, location, concept, etc.)
5. Assign a confidence score based on how explicitly stated the triple is (1.0 for directly stated, lower for inferred)
6. Include the specific text where this knowledge was found

Return your response as a JSON list of triples in this format:
[
    {
        "subject": "entity name",
        "subject_type": "entity type",
        "predicate": "relationship name",
        "object": "entity name",
        "object_type": "entity type",
        "confidence": 0.95,
        "source_text": "text snippet containing this knowledge"
    }
]

If no triples can be extracted, return an empty list: []`

// Rule-based extraction patterns. Capitalized phrases are treated as entity
// mentions; the middle groups capture the relationship wording.
var (
	// Cap-phrase, short lowercase verb phrase, Cap-phrase.
	ruleVerbPattern = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+([a-z]+(?:\s+[a-z]+){0,2})\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)

	// Cap-phrase "is a/an" lowercase noun phrase.
	ruleIsAPattern = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+is\s+(?:a|an)\s+([a-z]+(?:\s+[a-z]+)*)`)

	// Possessive: Cap-phrase's lowercase phrase is Cap-phrase.
	rulePossessivePattern = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)('s|s')\s+([a-z]+(?:\s+[a-z]+)*)\s+is\s+([A-Z][a-z]+(?:\s+[a-z]+)*)`)
)

// ExtractFromConversation extracts triples from a role-tagged conversation.
// Messages are flattened to "ROLE: content" lines joined by blank lines, in
// order, then processed as plain text.
func (c *Client) ExtractFromConversation(ctx context.Context, messages []types.Message, provenanceID, tenant string) ([]*types.Triple, error) {
	var combined []string
	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		combined = append(combined, fmt.Sprintf("%s: %s", strings.ToUpper(string(msg.Role)), msg.Content))
	}
	return c.ExtractFromText(ctx, strings.Join(combined, "\n\n"), provenanceID, tenant)
}

// ExtractFromText extracts triples from text, persists them, and integrates
// the new knowledge. The LLM path is tried first when a client is configured;
// any provider or parse failure falls back to rule-based extraction.
func (c *Client) ExtractFromText(ctx context.Context, text, provenanceID, tenant string) ([]*types.Triple, error) {
	if c.llm != nil {
		return c.extractWithLLM(ctx, text, provenanceID, tenant)
	}
	return c.extractWithRules(ctx, text, provenanceID, tenant)
}

func (c *Client) extractWithLLM(ctx context.Context, text, provenanceID, tenant string) ([]*types.Triple, error) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: extractionSystemPrompt},
		{Role: types.RoleUser, Content: text},
	}

	resp, err := c.llm.Chat(ctx, messages)
	if err != nil {
		c.logger.Warn("LLM extraction failed, falling back to rule-based extraction", "error", err)
		return c.extractWithRules(ctx, text, provenanceID, tenant)
	}

	var candidates []types.CandidateTriple
	if err := llm.ExtractJSONArray(resp.Content, &candidates); err != nil {
		c.logger.Warn("could not parse triples from LLM response, falling back to rule-based extraction", "error", err)
		return c.extractWithRules(ctx, text, provenanceID, tenant)
	}

	return c.saveCandidates(ctx, candidates, provenanceID, tenant)
}

// extractWithRules applies the regex patterns. Every match is collected;
// deduplication happens at the store layer.
func (c *Client) extractWithRules(ctx context.Context, text, provenanceID, tenant string) ([]*types.Triple, error) {
	var candidates []types.CandidateTriple

	for _, m := range ruleVerbPattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, types.CandidateTriple{
			Subject:    strings.TrimSpace(m[1]),
			Predicate:  strings.TrimSpace(m[2]),
			Object:     strings.TrimSpace(m[3]),
			Confidence: 0.6,
			SourceText: m[0],
		})
	}

	for _, m := range ruleIsAPattern.FindAllStringSubmatch(text, -1) {
		entityType := strings.TrimSpace(m[2])
		candidates = append(candidates, types.CandidateTriple{
			Subject:     strings.TrimSpace(m[1]),
			SubjectType: entityType,
			Predicate:   "is a",
			Object:      entityType,
			ObjectType:  "type",
			Confidence:  0.7,
			SourceText:  m[0],
		})
	}

	for _, m := range rulePossessivePattern.FindAllStringSubmatch(text, -1) {
		candidates = append(candidates, types.CandidateTriple{
			Subject:    strings.TrimSpace(m[1]),
			Predicate:  "has " + strings.TrimSpace(m[3]),
			Object:     strings.TrimSpace(m[4]),
			Confidence: 0.65,
			SourceText: m[0],
		})
	}

	return c.saveCandidates(ctx, candidates, provenanceID, tenant)
}

// saveCandidates resolves candidates against the store and integrates the
// new knowledge. A failing candidate is logged and skipped; it never aborts
// the batch.
func (c *Client) saveCandidates(ctx context.Context, candidates []types.CandidateTriple, provenanceID, tenant string) ([]*types.Triple, error) {
	var (
		saved            []*types.Triple
		newEntities      []*types.Entity
		newRelationships []*types.Relationship
	)

	provenance := types.NormalizeProvenanceID(provenanceID)

	for _, cand := range candidates {
		if cand.Subject == "" || cand.Predicate == "" || cand.Object == "" {
			continue
		}

		subject, created, err := c.store.GetOrCreateEntity(ctx, cand.Subject, cand.SubjectType, cand.SourceText, tenant)
		if err != nil {
			c.logger.Error("failed to resolve subject entity", "subject", cand.Subject, "error", err)
			continue
		}
		if created {
			newEntities = append(newEntities, subject)
		}

		object, created, err := c.store.GetOrCreateEntity(ctx, cand.Object, cand.ObjectType, cand.SourceText, tenant)
		if err != nil {
			c.logger.Error("failed to resolve object entity", "object", cand.Object, "error", err)
			continue
		}
		if created {
			newEntities = append(newEntities, object)
		}

		predicate, created, err := c.store.GetOrCreateRelationship(ctx, cand.Predicate, cand.SourceText, tenant)
		if err != nil {
			c.logger.Error("failed to resolve predicate", "predicate", cand.Predicate, "error", err)
			continue
		}
		if created {
			newRelationships = append(newRelationships, predicate)
		}

		confidence := cand.Confidence
		if confidence <= 0 {
			confidence = 1.0
		}

		triple := &types.Triple{
			SubjectID:     subject.ID,
			PredicateID:   predicate.ID,
			ObjectID:      object.ID,
			Confidence:    confidence,
			SourceText:    cand.SourceText,
			ExtractedFrom: provenance,
			Tenant:        tenant,
		}

		stored, _, err := c.store.UpsertTriple(ctx, triple)
		if err != nil {
			c.logger.Error("failed to persist triple", "subject", cand.Subject, "predicate", cand.Predicate, "object", cand.Object, "error", err)
			continue
		}
		saved = append(saved, stored)

		if err := c.driver.SyncTriple(ctx, stored, subject, object, predicate); err != nil {
			c.logger.Error("failed to mirror triple to graph store", "triple", stored.ID, "error", err)
		}
	}

	if len(saved) > 0 {
		c.integrateExtracted(ctx, newEntities, newRelationships, saved)
	}

	return saved, nil
}

// integrateExtracted runs integration over a just-persisted batch. Failures
// are logged; the extracted triples are already durable at this point.
func (c *Client) integrateExtracted(ctx context.Context, entities []*types.Entity, relationships []*types.Relationship, triples []*types.Triple) {
	for _, entity := range entities {
		if _, err := c.IntegrateNewEntity(ctx, entity); err != nil {
			c.logger.Error("entity integration failed", "entity", entity.Name, "error", err)
		}
	}
	for _, rel := range relationships {
		if _, err := c.IntegrateNewRelationship(ctx, rel); err != nil {
			c.logger.Error("relationship integration failed", "relationship", rel.Name, "error", err)
		}
	}
	for _, triple := range triples {
		if _, err := c.IntegrateNewTriple(ctx, triple); err != nil {
			c.logger.Error("triple integration failed", "triple", triple.ID, "error", err)
		}
	}
	c.logger.Info("integrated extracted triples", "count", len(triples))
}
