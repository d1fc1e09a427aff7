package audit

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operation codes. Error and not-found outcomes carry a suffix on the
// operation name.
const (
	OpCreate      = "CREATE"
	OpCreateError = "CREATE_ERROR"

	OpReadList      = "READ_LIST"
	OpReadListError = "READ_LIST_ERROR"

	OpUpdate         = "UPDATE"
	OpUpdateNotFound = "UPDATE_NOT_FOUND"
	OpUpdateError    = "UPDATE_ERROR"

	OpDelete         = "DELETE"
	OpDeleteNotFound = "DELETE_NOT_FOUND"
	OpDeleteError    = "DELETE_ERROR"
)

const (
	suffixError    = "_ERROR"
	suffixNotFound = "_NOT_FOUND"
)

// Details is the typed payload of an audit entry. The concrete type is
// determined by the entry's op code.
type Details interface {
	kind() string
}

// CreateDetails records a successful create
type CreateDetails struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body,omitempty"`
}

// ListDetails records a successful list
type ListDetails struct {
	Query map[string]string `json:"query"`
	Count int               `json:"count"`
	Total int64             `json:"total"`
}

// RecordDetails names the reading an update or delete targeted
type RecordDetails struct {
	ID string `json:"id"`
}

// ErrorDetails records a failed operation
type ErrorDetails struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// RawDetails preserves a payload whose op code has no typed variant
type RawDetails json.RawMessage

// MarshalJSON emits the stored payload unchanged
func (d RawDetails) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return json.RawMessage(d).MarshalJSON()
}

func (CreateDetails) kind() string { return "create" }
func (ListDetails) kind() string   { return "list" }
func (RecordDetails) kind() string { return "record" }
func (ErrorDetails) kind() string  { return "error" }
func (RawDetails) kind() string    { return "raw" }

// EncodeDetails serializes details for storage. Nil details encode to nil.
func EncodeDetails(details Details) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}

// DecodeDetails parses a stored payload into the variant implied by op.
// A nil payload decodes to nil details.
func DecodeDetails(op string, raw []byte) (Details, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var target Details
	switch {
	case op == OpCreate:
		target = &CreateDetails{}
	case op == OpReadList:
		target = &ListDetails{}
	case op == OpUpdate, op == OpDelete, strings.HasSuffix(op, suffixNotFound):
		target = &RecordDetails{}
	case strings.HasSuffix(op, suffixError):
		target = &ErrorDetails{}
	default:
		return RawDetails(append([]byte(nil), raw...)), nil
	}

	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("failed to decode %s details: %w", op, err)
	}

	switch d := target.(type) {
	case *CreateDetails:
		return *d, nil
	case *ListDetails:
		return *d, nil
	case *RecordDetails:
		return *d, nil
	case *ErrorDetails:
		return *d, nil
	}
	return target, nil
}
