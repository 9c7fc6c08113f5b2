package dto

import (
	"errors"
	"strings"
)

// ExtractRequest asks for triple extraction from either free text or a
// conversation. Exactly one of Text and Messages must be set.
type ExtractRequest struct {
	Text     string    `json:"text,omitempty"`
	Messages []Message `json:"messages,omitempty"`
	// SourceID tags extracted triples with their provenance. Non-UUID values
	// are remapped to a stable UUID.
	SourceID string `json:"source_id,omitempty"`
}

// Validate performs validation on ExtractRequest
func (r *ExtractRequest) Validate() error {
	hasText := strings.TrimSpace(r.Text) != ""
	hasMessages := len(r.Messages) > 0
	if hasText == hasMessages {
		return errors.New("exactly one of text and messages must be provided")
	}
	if len(r.Text) > MaxContentLength {
		return ErrContentTooLong
	}
	for i := range r.Messages {
		if err := r.Messages[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExtractAccepted is the response to an asynchronous extraction request.
type ExtractAccepted struct {
	Success   bool   `json:"success"`
	ProcessID string `json:"process_id"`
	Message   string `json:"message"`
}

// TripleView is a triple with its endpoints resolved to names.
type TripleView struct {
	ID         string  `json:"id"`
	Subject    string  `json:"subject"`
	Predicate  string  `json:"predicate"`
	Object     string  `json:"object"`
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"source_text,omitempty"`
}

// ExtractResult is the response to a synchronous extraction request.
type ExtractResult struct {
	Success bool         `json:"success"`
	Count   int          `json:"count"`
	Triples []TripleView `json:"triples"`
}

// IntegrateResult reports a full-graph integration run.
type IntegrateResult struct {
	Success bool `json:"success"`
	Created int  `json:"created"`
}

// TriplesResult is the response to a triple listing request.
type TriplesResult struct {
	Count   int          `json:"count"`
	Triples []TripleView `json:"triples"`
}
