package graphweave

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/llm"
	"github.com/graphweave/graphweave/pkg/store"
	"github.com/graphweave/graphweave/pkg/types"
)

const inferRelationsSystemPrompt = `You are a knowledge graph relationship inference system. Your task is to infer potential relationships between entities.

I will provide you with a new entity and a list of existing entities in our knowledge graph. For each existing entity, if you can infer a meaningful relationship with the new entity, provide it in the specified format.

Return your response as a JSON list of inferred relationships in this format:
[
    {
        "subject": "new entity name",
        "predicate": "relationship name",
        "object": "existing entity name",
        "confidence": 0.8,
        "explanation": "brief explanation of why this relationship exists"
    },
    {
        "subject": "existing entity name",
        "predicate": "relationship name",
        "object": "new entity name",
        "confidence": 0.7,
        "explanation": "brief explanation of why this relationship exists"
    }
]

If no relationships can be inferred, return an empty list: []

Only include relationships that are reasonably likely to be true. Assign lower confidence scores (0.5-0.7) for relationships that are more speculative.`

const suggestPairsSystemPrompt = `You are a knowledge graph relationship suggestion system. Your task is to suggest entity pairs that might be connected by a given relationship.

I will provide you with a relationship type and a list of entities in our knowledge graph.
Suggest pairs of entities that might be connected by this relationship.

Return your response as a JSON list of suggested entity pairs in this format:
[
    {
        "subject": "entity name",
        "object": "entity name",
        "confidence": 0.7,
        "explanation": "brief explanation of why this relationship exists"
    }
]

If no pairs can be suggested, return an empty list: []

Only include pairs that are reasonably likely to be connected by the given relationship.
Assign lower confidence scores (0.5-0.7) for pairs that are more speculative.`

const inferTriplesSystemPrompt = `You are a knowledge graph inference system. Your task is to infer new knowledge triples based on an existing triple.

I will provide you with an existing triple (subject-predicate-object) from our knowledge graph.
Based on this triple, infer additional triples that are likely to be true.

Return your response as a JSON list of inferred triples in this format:
[
    {
        "subject": "entity name",
        "predicate": "relationship name",
        "object": "entity name",
        "confidence": 0.7,
        "explanation": "brief explanation of why this relationship exists"
    }
]

If no additional triples can be inferred, return an empty list: []

Only include triples that are reasonably likely to be true. Assign lower confidence scores (0.5-0.7) for triples that are more speculative.`

// IntegrateNewEntity connects a new entity to the existing graph using name
// similarity, shared entity type, two-hop graph structure, and LLM inference,
// in that order. Each strategy is independent; a failing strategy is logged
// and contributes nothing. Returns the triples it created.
func (c *Client) IntegrateNewEntity(ctx context.Context, entity *types.Entity) ([]*types.Triple, error) {
	c.logger.Info("integrating new entity", "entity", entity.Name, "id", entity.ID)

	var created []*types.Triple

	created = append(created, c.findConnectionsByName(ctx, entity)...)
	created = append(created, c.findConnectionsByType(ctx, entity)...)
	created = append(created, c.findConnectionsByGraph(ctx, entity)...)

	if c.llm != nil {
		created = append(created, c.inferEntityRelationships(ctx, entity)...)
	}

	c.logger.Info("entity integration complete", "entity", entity.Name, "new_triples", len(created))
	return created, nil
}

// IntegrateNewRelationship finds entity pairs plausibly connected by a new
// relationship. Without an LLM client it creates nothing.
func (c *Client) IntegrateNewRelationship(ctx context.Context, rel *types.Relationship) ([]*types.Triple, error) {
	c.logger.Info("integrating new relationship", "relationship", rel.Name, "id", rel.ID)

	var created []*types.Triple
	if c.llm != nil {
		created = c.suggestPairsForRelationship(ctx, rel)
	}

	c.logger.Info("relationship integration complete", "relationship", rel.Name, "new_triples", len(created))
	return created, nil
}

// IntegrateNewTriple derives follow-on triples from a new triple: transitive
// chains in both directions, the symmetric reverse, and LLM inference.
func (c *Client) IntegrateNewTriple(ctx context.Context, triple *types.Triple) ([]*types.Triple, error) {
	var created []*types.Triple

	created = append(created, c.findTransitiveRelationships(ctx, triple)...)
	created = append(created, c.findSymmetricRelationships(ctx, triple)...)

	if c.llm != nil {
		created = append(created, c.inferTriplesFromTriple(ctx, triple)...)
	}

	return created, nil
}

// IntegrateBatch integrates entities, relationships, and triples in order,
// then runs a restricted LLM pairwise search over the entities touched by the
// newly created triples.
func (c *Client) IntegrateBatch(ctx context.Context, entities []*types.Entity, relationships []*types.Relationship, triples []*types.Triple) ([]*types.Triple, error) {
	var created []*types.Triple

	for _, entity := range entities {
		entityTriples, err := c.IntegrateNewEntity(ctx, entity)
		if err != nil {
			c.logger.Error("batch entity integration failed", "entity", entity.Name, "error", err)
			continue
		}
		created = append(created, entityTriples...)
	}

	for _, rel := range relationships {
		relTriples, err := c.IntegrateNewRelationship(ctx, rel)
		if err != nil {
			c.logger.Error("batch relationship integration failed", "relationship", rel.Name, "error", err)
			continue
		}
		created = append(created, relTriples...)
	}

	for _, triple := range triples {
		tripleTriples, err := c.IntegrateNewTriple(ctx, triple)
		if err != nil {
			c.logger.Error("batch triple integration failed", "triple", triple.ID, "error", err)
			continue
		}
		created = append(created, tripleTriples...)
	}

	if len(created) > 0 {
		touched := make(map[string]struct{})
		for _, triple := range created {
			touched[triple.SubjectID] = struct{}{}
			touched[triple.ObjectID] = struct{}{}
		}

		for entityID := range touched {
			entity, err := c.store.GetEntity(ctx, entityID)
			if err != nil {
				c.logger.Error("failed to load touched entity", "id", entityID, "error", err)
				continue
			}
			created = append(created, c.findConnectionsWithinSet(ctx, entity, touched)...)
		}
	}

	return created, nil
}

// IntegrateAll reconciles the whole graph for a tenant: every entity is run
// through entity integration, paged to bound memory. Returns the number of
// triples created.
func (c *Client) IntegrateAll(ctx context.Context, tenant string) (int, error) {
	c.logger.Info("starting full knowledge graph integration", "tenant", tenant)

	batchSize := c.config.IntegrationBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	count := 0
	for offset := 0; ; offset += batchSize {
		batch, err := c.store.ListEntities(ctx, tenant, offset, batchSize)
		if err != nil {
			return count, fmt.Errorf("failed to list entities: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, entity := range batch {
			entityTriples, err := c.IntegrateNewEntity(ctx, entity)
			if err != nil {
				c.logger.Error("entity integration failed", "entity", entity.Name, "error", err)
				continue
			}
			count += len(entityTriples)
		}
	}

	c.logger.Info("full integration complete", "tenant", tenant, "new_triples", count)
	return count, nil
}

// findConnectionsByName links the entity to entities with overlapping names
// via "related to".
func (c *Client) findConnectionsByName(ctx context.Context, entity *types.Entity) []*types.Triple {
	name := entity.NormalizedName
	if name == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var similar []*types.Entity

	collect := func(substr string) {
		matches, err := c.store.FilterEntities(ctx, store.EntityFilter{
			Tenant:       entity.Tenant,
			NameContains: substr,
			ExcludeID:    entity.ID,
		})
		if err != nil {
			c.logger.Error("name similarity lookup failed", "substring", substr, "error", err)
			return
		}
		for _, m := range matches {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
			similar = append(similar, m)
		}
	}

	collect(name)
	for _, word := range strings.Fields(name) {
		if len(word) > 3 {
			collect(word)
		}
	}

	if len(similar) > c.config.NameMatchLimit {
		similar = similar[:c.config.NameMatchLimit]
	}
	if len(similar) == 0 {
		return nil
	}

	relatedTo, _, err := c.store.GetOrCreateRelationship(ctx, "related to", "", entity.Tenant)
	if err != nil {
		c.logger.Error("failed to resolve related to relationship", "error", err)
		return nil
	}

	var created []*types.Triple
	for _, other := range similar {
		if c.tripleExistsBetween(ctx, entity.Tenant, entity.ID, other.ID) {
			continue
		}
		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   entity.ID,
			PredicateID: relatedTo.ID,
			ObjectID:    other.ID,
			Confidence:  0.6,
			SourceText:  fmt.Sprintf("Name similarity between %s and %s", entity.Name, other.Name),
			Tenant:      entity.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// findConnectionsByType links the entity to entities of the same type via
// "same type as". Untyped entities are skipped.
func (c *Client) findConnectionsByType(ctx context.Context, entity *types.Entity) []*types.Triple {
	if entity.EntityType == "" {
		return nil
	}

	entityType := entity.EntityType
	sameType, err := c.store.FilterEntities(ctx, store.EntityFilter{
		Tenant:     entity.Tenant,
		EntityType: &entityType,
		ExcludeID:  entity.ID,
		Limit:      c.config.TypeMatchLimit,
	})
	if err != nil {
		c.logger.Error("type similarity lookup failed", "type", entityType, "error", err)
		return nil
	}
	if len(sameType) == 0 {
		return nil
	}

	sameTypeAs, _, err := c.store.GetOrCreateRelationship(ctx, "same type as", "", entity.Tenant)
	if err != nil {
		c.logger.Error("failed to resolve same type as relationship", "error", err)
		return nil
	}

	var created []*types.Triple
	for _, other := range sameType {
		if c.tripleExistsBetween(ctx, entity.Tenant, entity.ID, other.ID) {
			continue
		}
		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   entity.ID,
			PredicateID: sameTypeAs.ID,
			ObjectID:    other.ID,
			Confidence:  0.7,
			SourceText:  fmt.Sprintf("Both entities are of type: %s", entityType),
			Tenant:      entity.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// findConnectionsByGraph links the entity to two-hop candidates sharing at
// least two neighbors, via "connected through". Confidence grows with the
// shared neighbor count and is capped at 0.9.
func (c *Client) findConnectionsByGraph(ctx context.Context, entity *types.Entity) []*types.Triple {
	if entity.ID == "" {
		return nil
	}

	// An entity with no triples has no neighborhood to analyze.
	asSubject, err := c.store.FilterTriples(ctx, store.TripleFilter{Tenant: entity.Tenant, SubjectID: entity.ID, Limit: 1})
	if err != nil {
		c.logger.Error("triple lookup failed", "entity", entity.ID, "error", err)
		return nil
	}
	asObject, err := c.store.FilterTriples(ctx, store.TripleFilter{Tenant: entity.Tenant, ObjectID: entity.ID, Limit: 1})
	if err != nil {
		c.logger.Error("triple lookup failed", "entity", entity.ID, "error", err)
		return nil
	}
	if len(asSubject) == 0 && len(asObject) == 0 {
		return nil
	}

	connections, err := c.driver.NeighborsWithinTwoHops(ctx, entity.ID, entity.Tenant)
	if err != nil {
		c.logger.Error("two-hop neighbor query failed", "entity", entity.ID, "error", err)
		return nil
	}
	if len(connections) == 0 {
		return nil
	}

	connectedThrough, _, err := c.store.GetOrCreateRelationship(ctx, "connected through", "", entity.Tenant)
	if err != nil {
		c.logger.Error("failed to resolve connected through relationship", "error", err)
		return nil
	}

	var created []*types.Triple
	for _, conn := range connections {
		if conn.CandidateID == "" {
			continue
		}
		if _, err := c.store.GetEntity(ctx, conn.CandidateID); err != nil {
			c.logger.Warn("two-hop candidate missing from store", "id", conn.CandidateID, "error", err)
			continue
		}
		if c.tripleExistsBetween(ctx, entity.Tenant, entity.ID, conn.CandidateID) {
			continue
		}

		confidence := 0.5 + float64(conn.SharedNeighborCount)*0.1
		if confidence > 0.9 {
			confidence = 0.9
		}

		sharedText := "common entities"
		if len(conn.SharedNeighborNames) > 0 {
			names := conn.SharedNeighborNames
			if len(names) > 3 {
				names = names[:3]
			}
			sharedText = strings.Join(names, ", ")
		}

		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   entity.ID,
			PredicateID: connectedThrough.ID,
			ObjectID:    conn.CandidateID,
			Confidence:  confidence,
			SourceText:  fmt.Sprintf("Connected through common entities: %s", sharedText),
			Tenant:      entity.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// findTransitiveRelationships chains the triple with adjacent triples whose
// predicates form a known transitive pair, in both directions. The derived
// relationship is named after the pair and the confidence is discounted.
func (c *Client) findTransitiveRelationships(ctx context.Context, triple *types.Triple) []*types.Triple {
	predicate, err := c.store.GetRelationship(ctx, triple.PredicateID)
	if err != nil {
		c.logger.Error("failed to load predicate", "id", triple.PredicateID, "error", err)
		return nil
	}

	var created []*types.Triple

	// A -> B chained with B -> C.
	following, err := c.store.FilterTriples(ctx, store.TripleFilter{Tenant: triple.Tenant, SubjectID: triple.ObjectID})
	if err != nil {
		c.logger.Error("transitive lookup failed", "error", err)
		return nil
	}
	for _, next := range following {
		if c.tripleExistsBetween(ctx, triple.Tenant, triple.SubjectID, next.ObjectID) {
			continue
		}
		nextPredicate, err := c.store.GetRelationship(ctx, next.PredicateID)
		if err != nil {
			c.logger.Error("failed to load predicate", "id", next.PredicateID, "error", err)
			continue
		}
		if !c.config.Predicates.isTransitivePair(predicate.NormalizedName, nextPredicate.NormalizedName) {
			continue
		}
		if t := c.createTransitiveTriple(ctx, triple.SubjectID, triple.ObjectID, next.ObjectID, predicate, nextPredicate, triple.Confidence, next.Confidence, triple.Tenant); t != nil {
			created = append(created, t)
		}
	}

	// X -> A chained with A -> B.
	preceding, err := c.store.FilterTriples(ctx, store.TripleFilter{Tenant: triple.Tenant, ObjectID: triple.SubjectID})
	if err != nil {
		c.logger.Error("transitive lookup failed", "error", err)
		return created
	}
	for _, prev := range preceding {
		if c.tripleExistsBetween(ctx, triple.Tenant, prev.SubjectID, triple.ObjectID) {
			continue
		}
		prevPredicate, err := c.store.GetRelationship(ctx, prev.PredicateID)
		if err != nil {
			c.logger.Error("failed to load predicate", "id", prev.PredicateID, "error", err)
			continue
		}
		if !c.config.Predicates.isTransitivePair(prevPredicate.NormalizedName, predicate.NormalizedName) {
			continue
		}
		if t := c.createTransitiveTriple(ctx, prev.SubjectID, triple.SubjectID, triple.ObjectID, prevPredicate, predicate, prev.Confidence, triple.Confidence, triple.Tenant); t != nil {
			created = append(created, t)
		}
	}

	return created
}

// createTransitiveTriple materializes subject -> (transitive_p1_p2) -> object
// through the intermediate entity.
func (c *Client) createTransitiveTriple(ctx context.Context, subjectID, intermediateID, objectID string, p1, p2 *types.Relationship, c1, c2 float64, tenant string) *types.Triple {
	transitiveName := fmt.Sprintf("transitive_%s_%s", p1.Name, p2.Name)
	transitiveRel, _, err := c.store.GetOrCreateRelationship(ctx, transitiveName, "", tenant)
	if err != nil {
		c.logger.Error("failed to resolve transitive relationship", "name", transitiveName, "error", err)
		return nil
	}

	confidence := c1
	if c2 < confidence {
		confidence = c2
	}
	confidence *= 0.9

	sourceText := "Inferred from transitive relationship"
	subject, serr := c.store.GetEntity(ctx, subjectID)
	intermediate, ierr := c.store.GetEntity(ctx, intermediateID)
	object, oerr := c.store.GetEntity(ctx, objectID)
	if serr == nil && ierr == nil && oerr == nil {
		sourceText = fmt.Sprintf("Inferred from: %s %s %s and %s %s %s",
			subject.Name, p1.Name, intermediate.Name,
			intermediate.Name, p2.Name, object.Name)
	}

	return c.createInferredTriple(ctx, &types.Triple{
		SubjectID:   subjectID,
		PredicateID: transitiveRel.ID,
		ObjectID:    objectID,
		Confidence:  confidence,
		SourceText:  sourceText,
		Tenant:      tenant,
	})
}

// findSymmetricRelationships creates the reverse triple for symmetric
// predicates at equal confidence.
func (c *Client) findSymmetricRelationships(ctx context.Context, triple *types.Triple) []*types.Triple {
	predicate, err := c.store.GetRelationship(ctx, triple.PredicateID)
	if err != nil {
		c.logger.Error("failed to load predicate", "id", triple.PredicateID, "error", err)
		return nil
	}
	if !c.config.Predicates.isSymmetric(predicate.NormalizedName) {
		return nil
	}

	existing, err := c.store.FilterTriples(ctx, store.TripleFilter{
		Tenant:      triple.Tenant,
		SubjectID:   triple.ObjectID,
		PredicateID: triple.PredicateID,
		ObjectID:    triple.SubjectID,
		Limit:       1,
	})
	if err != nil {
		c.logger.Error("symmetric lookup failed", "error", err)
		return nil
	}
	if len(existing) > 0 {
		return nil
	}

	sourceText := "Symmetric relationship"
	subject, serr := c.store.GetEntity(ctx, triple.SubjectID)
	object, oerr := c.store.GetEntity(ctx, triple.ObjectID)
	if serr == nil && oerr == nil {
		sourceText = fmt.Sprintf("Symmetric relationship of: %s %s %s", subject.Name, predicate.Name, object.Name)
	}

	reversed := c.createInferredTriple(ctx, &types.Triple{
		SubjectID:   triple.ObjectID,
		PredicateID: triple.PredicateID,
		ObjectID:    triple.SubjectID,
		Confidence:  triple.Confidence,
		SourceText:  sourceText,
		Tenant:      triple.Tenant,
	})
	if reversed == nil {
		return nil
	}
	return []*types.Triple{reversed}
}

// inferEntityRelationships asks the LLM to relate the entity to a sample of
// existing entities. Only items where exactly one side names the new entity
// are used.
func (c *Client) inferEntityRelationships(ctx context.Context, entity *types.Entity) []*types.Triple {
	sample, err := c.store.FilterEntities(ctx, store.EntityFilter{
		Tenant:    entity.Tenant,
		ExcludeID: entity.ID,
		Limit:     c.config.LLMSampleLimit,
	})
	if err != nil {
		c.logger.Error("entity sampling failed", "error", err)
		return nil
	}
	if len(sample) == 0 {
		return nil
	}

	userPrompt := fmt.Sprintf("New entity: %s (Type: %s)\n\nExisting entities:\n%s\n\nInfer potential relationships between the new entity and the existing entities.",
		entity.Name, typeOrUnknown(entity.EntityType), describeEntities(sample))

	relations, ok := c.askForJSON(ctx, inferRelationsSystemPrompt, userPrompt)
	if !ok {
		return nil
	}

	var created []*types.Triple
	for _, rel := range relations {
		var subjectID, objectID string
		switch {
		case rel.Subject == entity.Name:
			other := findEntityByName(sample, rel.Object, false)
			if other == nil {
				continue
			}
			subjectID, objectID = entity.ID, other.ID
		case rel.Object == entity.Name:
			other := findEntityByName(sample, rel.Subject, false)
			if other == nil {
				continue
			}
			subjectID, objectID = other.ID, entity.ID
		default:
			continue
		}

		explanation := rel.Explanation
		if explanation == "" {
			explanation = fmt.Sprintf("Inferred relationship between %s and %s", rel.Subject, rel.Object)
		}

		predicate, _, err := c.store.GetOrCreateRelationship(ctx, rel.Predicate, explanation, entity.Tenant)
		if err != nil {
			c.logger.Error("failed to resolve inferred predicate", "predicate", rel.Predicate, "error", err)
			continue
		}

		if c.exactTripleExists(ctx, entity.Tenant, subjectID, predicate.ID, objectID) {
			continue
		}

		confidence := rel.Confidence
		if confidence <= 0 {
			confidence = 0.6
		}

		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   subjectID,
			PredicateID: predicate.ID,
			ObjectID:    objectID,
			Confidence:  confidence,
			SourceText:  explanation,
			Tenant:      entity.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// suggestPairsForRelationship asks the LLM for entity pairs plausibly joined
// by the relationship, matching names case-insensitively against the sample.
func (c *Client) suggestPairsForRelationship(ctx context.Context, rel *types.Relationship) []*types.Triple {
	sample, err := c.store.FilterEntities(ctx, store.EntityFilter{
		Tenant: rel.Tenant,
		Limit:  c.config.PairSampleLimit,
	})
	if err != nil {
		c.logger.Error("entity sampling failed", "error", err)
		return nil
	}
	if len(sample) < 2 {
		return nil
	}

	userPrompt := fmt.Sprintf("Relationship: %s\n\nEntities:\n%s\n\nSuggest pairs of entities that might be connected by the relationship %q.",
		rel.Name, describeEntities(sample), rel.Name)

	messages := []types.Message{
		{Role: types.RoleSystem, Content: suggestPairsSystemPrompt},
		{Role: types.RoleUser, Content: userPrompt},
	}
	resp, err := c.llm.Chat(ctx, messages)
	if err != nil {
		c.logger.Warn("pair suggestion failed", "relationship", rel.Name, "error", err)
		return nil
	}

	var pairs []types.EntityPair
	if err := llm.ExtractJSONArray(resp.Content, &pairs); err != nil {
		c.logger.Warn("could not parse pair suggestions", "error", err)
		return nil
	}

	var created []*types.Triple
	for _, pair := range pairs {
		subject := findEntityByName(sample, pair.Subject, true)
		object := findEntityByName(sample, pair.Object, true)
		if subject == nil || object == nil {
			continue
		}
		if c.exactTripleExists(ctx, rel.Tenant, subject.ID, rel.ID, object.ID) {
			continue
		}

		confidence := pair.Confidence
		if confidence <= 0 {
			confidence = 0.6
		}
		explanation := pair.Explanation
		if explanation == "" {
			explanation = fmt.Sprintf("Suggested relationship between %s and %s", pair.Subject, pair.Object)
		}

		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   subject.ID,
			PredicateID: rel.ID,
			ObjectID:    object.ID,
			Confidence:  confidence,
			SourceText:  explanation,
			Tenant:      rel.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// inferTriplesFromTriple asks the LLM for follow-on triples, resolving or
// creating every referenced entity and relationship by name.
func (c *Client) inferTriplesFromTriple(ctx context.Context, triple *types.Triple) []*types.Triple {
	subject, err := c.store.GetEntity(ctx, triple.SubjectID)
	if err != nil {
		c.logger.Error("failed to load triple subject", "id", triple.SubjectID, "error", err)
		return nil
	}
	predicate, err := c.store.GetRelationship(ctx, triple.PredicateID)
	if err != nil {
		c.logger.Error("failed to load triple predicate", "id", triple.PredicateID, "error", err)
		return nil
	}
	object, err := c.store.GetEntity(ctx, triple.ObjectID)
	if err != nil {
		c.logger.Error("failed to load triple object", "id", triple.ObjectID, "error", err)
		return nil
	}

	userPrompt := fmt.Sprintf("Existing triple:\nSubject: %s (Type: %s)\nPredicate: %s\nObject: %s (Type: %s)\n\nInfer additional triples based on this information.",
		subject.Name, typeOrUnknown(subject.EntityType),
		predicate.Name,
		object.Name, typeOrUnknown(object.EntityType))

	inferred, ok := c.askForJSON(ctx, inferTriplesSystemPrompt, userPrompt)
	if !ok {
		return nil
	}

	var created []*types.Triple
	for _, rel := range inferred {
		if rel.Subject == "" || rel.Predicate == "" || rel.Object == "" {
			continue
		}

		inferredSubject, err := c.resolveEntityByName(ctx, rel.Subject, triple.Tenant)
		if err != nil {
			c.logger.Error("failed to resolve inferred subject", "subject", rel.Subject, "error", err)
			continue
		}
		inferredObject, err := c.resolveEntityByName(ctx, rel.Object, triple.Tenant)
		if err != nil {
			c.logger.Error("failed to resolve inferred object", "object", rel.Object, "error", err)
			continue
		}
		inferredPredicate, _, err := c.store.GetOrCreateRelationship(ctx, rel.Predicate, "", triple.Tenant)
		if err != nil {
			c.logger.Error("failed to resolve inferred predicate", "predicate", rel.Predicate, "error", err)
			continue
		}

		if c.exactTripleExists(ctx, triple.Tenant, inferredSubject.ID, inferredPredicate.ID, inferredObject.ID) {
			continue
		}

		confidence := rel.Confidence
		if confidence <= 0 {
			confidence = 0.6
		}
		explanation := rel.Explanation
		if explanation == "" {
			explanation = fmt.Sprintf("Inferred from triple: %s %s %s", rel.Subject, rel.Predicate, rel.Object)
		}

		t := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   inferredSubject.ID,
			PredicateID: inferredPredicate.ID,
			ObjectID:    inferredObject.ID,
			Confidence:  confidence,
			SourceText:  explanation,
			Tenant:      triple.Tenant,
		})
		if t != nil {
			created = append(created, t)
		}
	}
	return created
}

// findConnectionsWithinSet runs LLM pairwise inference restricted to a set of
// touched entities.
func (c *Client) findConnectionsWithinSet(ctx context.Context, entity *types.Entity, ids map[string]struct{}) []*types.Triple {
	if c.llm == nil {
		return nil
	}

	var others []*types.Entity
	for id := range ids {
		if id == entity.ID {
			continue
		}
		other, err := c.store.GetEntity(ctx, id)
		if err != nil {
			c.logger.Error("failed to load set entity", "id", id, "error", err)
			continue
		}
		others = append(others, other)
	}
	if len(others) == 0 {
		return nil
	}

	userPrompt := fmt.Sprintf("Main entity: %s (Type: %s)\n\nOther entities:\n%s\n\nInfer potential relationships between the main entity and the other entities.",
		entity.Name, typeOrUnknown(entity.EntityType), describeEntities(others))

	relations, ok := c.askForJSON(ctx, inferRelationsSystemPrompt, userPrompt)
	if !ok {
		return nil
	}

	var created []*types.Triple
	for _, rel := range relations {
		var subjectID, objectID string
		switch {
		case rel.Subject == entity.Name:
			other := findEntityByName(others, rel.Object, false)
			if other == nil {
				continue
			}
			subjectID, objectID = entity.ID, other.ID
		case rel.Object == entity.Name:
			other := findEntityByName(others, rel.Subject, false)
			if other == nil {
				continue
			}
			subjectID, objectID = other.ID, entity.ID
		default:
			continue
		}

		predicate, _, err := c.store.GetOrCreateRelationship(ctx, rel.Predicate, "", entity.Tenant)
		if err != nil {
			c.logger.Error("failed to resolve inferred predicate", "predicate", rel.Predicate, "error", err)
			continue
		}
		if c.exactTripleExists(ctx, entity.Tenant, subjectID, predicate.ID, objectID) {
			continue
		}

		confidence := rel.Confidence
		if confidence <= 0 {
			confidence = 0.6
		}
		explanation := rel.Explanation
		if explanation == "" {
			explanation = fmt.Sprintf("Inferred relationship between %s and %s", rel.Subject, rel.Object)
		}

		triple := c.createInferredTriple(ctx, &types.Triple{
			SubjectID:   subjectID,
			PredicateID: predicate.ID,
			ObjectID:    objectID,
			Confidence:  confidence,
			SourceText:  explanation,
			Tenant:      entity.Tenant,
		})
		if triple != nil {
			created = append(created, triple)
		}
	}
	return created
}

// resolveEntityByName finds an entity by normalized name regardless of its
// type, creating an untyped one when absent. Entity identity in the store
// includes the type, so a plain get-or-create would duplicate typed entities
// the LLM refers to by bare name.
func (c *Client) resolveEntityByName(ctx context.Context, name, tenant string) (*types.Entity, error) {
	matches, err := c.store.FilterEntities(ctx, store.EntityFilter{
		Tenant:         tenant,
		NormalizedName: types.NormalizeName(name),
		Limit:          1,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return matches[0], nil
	}

	entity, _, err := c.store.GetOrCreateEntity(ctx, name, "", "", tenant)
	return entity, err
}

// askForJSON runs a chat exchange and parses an InferredRelation array out of
// the reply. Returns false when the provider or the parse fails.
func (c *Client) askForJSON(ctx context.Context, systemPrompt, userPrompt string) ([]types.InferredRelation, bool) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: systemPrompt},
		{Role: types.RoleUser, Content: userPrompt},
	}
	resp, err := c.llm.Chat(ctx, messages)
	if err != nil {
		c.logger.Warn("LLM inference call failed", "error", err)
		return nil, false
	}

	var relations []types.InferredRelation
	if err := llm.ExtractJSONArray(resp.Content, &relations); err != nil {
		c.logger.Warn("could not parse inferred relations", "error", err)
		return nil, false
	}
	return relations, true
}

// createInferredTriple persists an inferred triple and mirrors it to the
// graph store. Returns nil when persistence fails.
func (c *Client) createInferredTriple(ctx context.Context, triple *types.Triple) *types.Triple {
	if err := c.store.CreateTriple(ctx, triple); err != nil {
		c.logger.Error("failed to persist inferred triple", "error", err)
		return nil
	}
	c.syncTriple(ctx, triple)
	return triple
}

// syncTriple mirrors a stored triple to the graph store, loading its
// endpoint records. Mirror failures are logged and never propagate.
func (c *Client) syncTriple(ctx context.Context, triple *types.Triple) {
	subject, err := c.store.GetEntity(ctx, triple.SubjectID)
	if err != nil {
		c.logger.Error("failed to load subject for graph sync", "id", triple.SubjectID, "error", err)
		return
	}
	object, err := c.store.GetEntity(ctx, triple.ObjectID)
	if err != nil {
		c.logger.Error("failed to load object for graph sync", "id", triple.ObjectID, "error", err)
		return
	}
	predicate, err := c.store.GetRelationship(ctx, triple.PredicateID)
	if err != nil {
		c.logger.Error("failed to load predicate for graph sync", "id", triple.PredicateID, "error", err)
		return
	}
	if err := c.driver.SyncTriple(ctx, triple, subject, object, predicate); err != nil {
		c.logger.Error("failed to mirror triple to graph store", "triple", triple.ID, "error", err)
	}
}

// tripleExistsBetween reports whether any triple connects subject to object,
// regardless of predicate.
func (c *Client) tripleExistsBetween(ctx context.Context, tenant, subjectID, objectID string) bool {
	existing, err := c.store.FilterTriples(ctx, store.TripleFilter{
		Tenant:    tenant,
		SubjectID: subjectID,
		ObjectID:  objectID,
		Limit:     1,
	})
	if err != nil {
		c.logger.Error("triple existence check failed", "error", err)
		return true
	}
	return len(existing) > 0
}

// exactTripleExists reports whether the exact (subject, predicate, object)
// triple exists.
func (c *Client) exactTripleExists(ctx context.Context, tenant, subjectID, predicateID, objectID string) bool {
	existing, err := c.store.FilterTriples(ctx, store.TripleFilter{
		Tenant:      tenant,
		SubjectID:   subjectID,
		PredicateID: predicateID,
		ObjectID:    objectID,
		Limit:       1,
	})
	if err != nil {
		c.logger.Error("triple existence check failed", "error", err)
		return true
	}
	return len(existing) > 0
}

func typeOrUnknown(entityType string) string {
	if entityType == "" {
		return "Unknown"
	}
	return entityType
}

func describeEntities(entities []*types.Entity) string {
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		parts = append(parts, fmt.Sprintf("%s (Type: %s)", e.Name, typeOrUnknown(e.EntityType)))
	}
	return strings.Join(parts, ", ")
}

func findEntityByName(entities []*types.Entity, name string, foldCase bool) *types.Entity {
	for _, e := range entities {
		if e.Name == name {
			return e
		}
		if foldCase && strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}
