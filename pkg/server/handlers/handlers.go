package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/graphweave/graphweave"
	"github.com/graphweave/graphweave/pkg/server/dto"
	"github.com/graphweave/graphweave/pkg/types"
)

// TenantKey is the gin context key the tenant middleware stores the resolved
// tenant under.
const TenantKey = "tenant"

// DefaultTenant is used when a request carries no X-API-Key header.
const DefaultTenant = "default"

func tenantFrom(c *gin.Context) string {
	if tenant := c.GetString(TenantKey); tenant != "" {
		return tenant
	}
	return DefaultTenant
}

// generateProcessID generates a unique process ID for tracking async operations
func generateProcessID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random generation fails
		return fmt.Sprintf("proc_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("proc_%s", hex.EncodeToString(bytes))
}

func writeError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, dto.ErrorResponse{Error: errCode, Message: message})
}

// tripleViews resolves triple endpoints to names. Triples whose endpoints
// cannot be loaded are skipped rather than failing the whole listing.
func tripleViews(ctx context.Context, engine *graphweave.Client, triples []*types.Triple) []dto.TripleView {
	views := make([]dto.TripleView, 0, len(triples))
	for _, t := range triples {
		subject, err := engine.Store().GetEntity(ctx, t.SubjectID)
		if err != nil {
			continue
		}
		object, err := engine.Store().GetEntity(ctx, t.ObjectID)
		if err != nil {
			continue
		}
		predicate, err := engine.Store().GetRelationship(ctx, t.PredicateID)
		if err != nil {
			continue
		}
		views = append(views, dto.TripleView{
			ID:         t.ID,
			Subject:    subject.Name,
			Predicate:  predicate.Name,
			Object:     object.Name,
			Confidence: t.Confidence,
			SourceText: t.SourceText,
		})
	}
	return views
}
