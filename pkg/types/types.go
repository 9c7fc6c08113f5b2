package types

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation errors
var (
	ErrEmptyName      = errors.New("name cannot be empty")
	ErrEmptyTenant    = errors.New("tenant cannot be empty")
	ErrEmptyID        = errors.New("id cannot be empty")
	ErrEmptySubject   = errors.New("subject id cannot be empty")
	ErrEmptyPredicate = errors.New("predicate id cannot be empty")
	ErrEmptyObject    = errors.New("object id cannot be empty")
	ErrBadConfidence  = errors.New("confidence must be between 0 and 1")
)

// Entity is a deduplicated named thing in the knowledge graph. Its identity
// key is (NormalizedName, EntityType, Tenant); at most one Entity exists per
// key.
type Entity struct {
	ID             string                 `json:"id" mapstructure:"id"`
	Name           string                 `json:"name" mapstructure:"name"`
	NormalizedName string                 `json:"normalized_name" mapstructure:"normalized_name"`
	EntityType     string                 `json:"entity_type,omitempty" mapstructure:"entity_type"`
	Context        string                 `json:"context,omitempty" mapstructure:"context"`
	Properties     map[string]interface{} `json:"properties,omitempty" mapstructure:"properties"`
	Tenant         string                 `json:"tenant" mapstructure:"tenant"`
	CreatedAt      time.Time              `json:"created_at" mapstructure:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Entity has all required fields set.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return ErrEmptyName
	}
	if e.Tenant == "" {
		return ErrEmptyTenant
	}
	return nil
}

// Relationship is a deduplicated predicate (edge type) definition. Its
// identity key is (NormalizedName, Tenant).
type Relationship struct {
	ID             string                 `json:"id" mapstructure:"id"`
	Name           string                 `json:"name" mapstructure:"name"`
	NormalizedName string                 `json:"normalized_name" mapstructure:"normalized_name"`
	Context        string                 `json:"context,omitempty" mapstructure:"context"`
	Properties     map[string]interface{} `json:"properties,omitempty" mapstructure:"properties"`
	Tenant         string                 `json:"tenant" mapstructure:"tenant"`
	CreatedAt      time.Time              `json:"created_at" mapstructure:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Relationship has all required fields set.
func (r *Relationship) Validate() error {
	if r.Name == "" {
		return ErrEmptyName
	}
	if r.Tenant == "" {
		return ErrEmptyTenant
	}
	return nil
}

// Triple is a directed, typed edge between two entities. Subject, predicate
// and object are referenced by id, never embedded. At most one Triple exists
// per (SubjectID, PredicateID, ObjectID, Tenant); re-insertion with a higher
// confidence raises the stored confidence, never lowers it.
type Triple struct {
	ID            string    `json:"id" mapstructure:"id"`
	SubjectID     string    `json:"subject_id" mapstructure:"subject_id"`
	PredicateID   string    `json:"predicate_id" mapstructure:"predicate_id"`
	ObjectID      string    `json:"object_id" mapstructure:"object_id"`
	Confidence    float64   `json:"confidence" mapstructure:"confidence"`
	SourceText    string    `json:"source_text,omitempty" mapstructure:"source_text"`
	ExtractedFrom string    `json:"extracted_from,omitempty" mapstructure:"extracted_from"`
	Tenant        string    `json:"tenant" mapstructure:"tenant"`
	CreatedAt     time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Triple has all required fields set.
func (t *Triple) Validate() error {
	if t.SubjectID == "" {
		return ErrEmptySubject
	}
	if t.PredicateID == "" {
		return ErrEmptyPredicate
	}
	if t.ObjectID == "" {
		return ErrEmptyObject
	}
	if t.Confidence < 0 || t.Confidence > 1 {
		return ErrBadConfidence
	}
	if t.Tenant == "" {
		return ErrEmptyTenant
	}
	return nil
}

// NormalizeName returns the case-folded, trimmed form of a name. It is the
// normalization used for all identity keys.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// provenanceNamespace is the namespace for name-based provenance ids. Fixed so
// remapping is stable across processes.
var provenanceNamespace = uuid.NameSpaceDNS

// NormalizeProvenanceID returns id unchanged when it is a valid UUID, and
// otherwise derives a stable name-based UUID from it so provenance is always
// addressable. Empty input stays empty.
func NormalizeProvenanceID(id string) string {
	if id == "" {
		return ""
	}
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(provenanceNamespace, []byte(id)).String()
}
