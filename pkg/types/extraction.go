package types

// CandidateTriple is the interchange shape for triples coming out of
// extraction, before entities and relationships are resolved against the
// store. Field names match the JSON the LLM is instructed to produce.
type CandidateTriple struct {
	Subject     string  `json:"subject"`
	SubjectType string  `json:"subject_type,omitempty"`
	Predicate   string  `json:"predicate"`
	Object      string  `json:"object"`
	ObjectType  string  `json:"object_type,omitempty"`
	Confidence  float64 `json:"confidence"`
	SourceText  string  `json:"source_text,omitempty"`
}

// InferredRelation is a relationship proposed by the LLM between two named
// entities.
type InferredRelation struct {
	Subject     string  `json:"subject"`
	Predicate   string  `json:"predicate"`
	Object      string  `json:"object"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// EntityPair is a subject/object pair proposed by the LLM for a given
// relationship.
type EntityPair struct {
	Subject     string  `json:"subject"`
	Object      string  `json:"object"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message in an LLM exchange.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is a single LLM completion.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model,omitempty"`
	FinishReason string      `json:"finish_reason,omitempty"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// TokenUsage reports token accounting for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
