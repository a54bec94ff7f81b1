package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field names shared by the serialized form of an Event and by Fields input.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldStartTime   = "start_time"
	FieldEndTime     = "end_time"
	FieldRecurrence  = "recurrence"
	FieldEmail       = "email"
)

// Event is a scheduled item persisted by the event store.
// Start and end times are kept verbatim as supplied (ISO-8601 expected); the
// recurrence rule and notification email are opaque and optional.
type Event struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description" yaml:"description"`
	StartTime   string  `json:"start_time" yaml:"start_time"`
	EndTime     string  `json:"end_time" yaml:"end_time"`
	Recurrence  *string `json:"recurrence" yaml:"recurrence"`
	Email       *string `json:"email" yaml:"email"`
}

// Fields is the input of create and update operations. A key that is present
// with a nil value is an explicit null; an absent key means "not supplied".
type Fields map[string]*string

// UnmarshalJSON reads an object whose values are strings or null. A
// recurrence may be any JSON value; a structured rule is kept as its compact
// JSON text.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	out := make(Fields, len(raw))
	for key, value := range raw {
		v, err := decodeField(key, value)
		if err != nil {
			return err
		}
		out[key] = v
	}
	*f = out
	return nil
}

func decodeField(key string, value json.RawMessage) (*string, error) {
	var s *string
	if err := json.Unmarshal(value, &s); err == nil {
		return s, nil
	}
	if key != FieldRecurrence {
		return nil, fmt.Errorf("field %s: expected string or null", key)
	}
	return compactRule(value)
}

func compactRule(value []byte) (*string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err != nil {
		return nil, fmt.Errorf("field %s: %w", FieldRecurrence, err)
	}
	rule := buf.String()
	return &rule, nil
}

// ContentFields lists the mutable fields in the order they are applied.
var ContentFields = []string{
	FieldTitle,
	FieldDescription,
	FieldStartTime,
	FieldEndTime,
	FieldRecurrence,
	FieldEmail,
}

// String returns a pointer to s, for building Fields literals.
func String(s string) *string {
	return &s
}

// Lookup reports the value for key and whether the key was supplied at all.
func (f Fields) Lookup(key string) (*string, bool) {
	v, ok := f[key]
	return v, ok
}

// ToMap converts the event into a plain mapping. Absent optional fields are
// present with a nil value.
func (e Event) ToMap() map[string]any {
	return map[string]any{
		FieldID:          e.ID,
		FieldTitle:       e.Title,
		FieldDescription: e.Description,
		FieldStartTime:   e.StartTime,
		FieldEndTime:     e.EndTime,
		FieldRecurrence:  optional(e.Recurrence),
		FieldEmail:       optional(e.Email),
	}
}

// Fields returns the content of the event as a full input mapping.
func (e Event) Fields() Fields {
	return Fields{
		FieldTitle:       String(e.Title),
		FieldDescription: String(e.Description),
		FieldStartTime:   String(e.StartTime),
		FieldEndTime:     String(e.EndTime),
		FieldRecurrence:  copyString(e.Recurrence),
		FieldEmail:       copyString(e.Email),
	}
}

// Get returns the current value of a content field.
func (e Event) Get(field string) *string {
	switch field {
	case FieldTitle:
		return String(e.Title)
	case FieldDescription:
		return String(e.Description)
	case FieldStartTime:
		return String(e.StartTime)
	case FieldEndTime:
		return String(e.EndTime)
	case FieldRecurrence:
		return copyString(e.Recurrence)
	case FieldEmail:
		return copyString(e.Email)
	}
	return nil
}

// Set overwrites a content field. A nil value clears optional fields and
// empties required ones. Unknown field names are ignored.
func (e *Event) Set(field string, value *string) {
	switch field {
	case FieldTitle:
		e.Title = deref(value)
	case FieldDescription:
		e.Description = deref(value)
	case FieldStartTime:
		e.StartTime = deref(value)
	case FieldEndTime:
		e.EndTime = deref(value)
	case FieldRecurrence:
		e.Recurrence = copyString(value)
	case FieldEmail:
		e.Email = copyString(value)
	}
}

// HasEmail reports whether a notification address is set.
func (e Event) HasEmail() bool {
	return e.Email != nil && *e.Email != ""
}

// EventFromMap parses the plain mapping produced by ToMap.
func EventFromMap(m map[string]any) (Event, error) {
	var e Event
	var err error
	if e.ID, err = requiredString(m, FieldID); err != nil {
		return Event{}, err
	}
	if e.Title, err = requiredString(m, FieldTitle); err != nil {
		return Event{}, err
	}
	if e.Description, err = requiredString(m, FieldDescription); err != nil {
		return Event{}, err
	}
	if e.StartTime, err = requiredString(m, FieldStartTime); err != nil {
		return Event{}, err
	}
	if e.EndTime, err = requiredString(m, FieldEndTime); err != nil {
		return Event{}, err
	}
	if e.Recurrence, err = optionalRule(m); err != nil {
		return Event{}, err
	}
	if e.Email, err = optionalString(m, FieldEmail); err != nil {
		return Event{}, err
	}
	return e, nil
}

func requiredString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, v)
	}
	return s, nil
}

func optionalString(m map[string]any, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch s := v.(type) {
	case string:
		return &s, nil
	case *string:
		return copyString(s), nil
	}
	return nil, fmt.Errorf("field %s: expected string, got %T", key, v)
}

// optionalRule accepts any recurrence value, keeping non-string rules as
// their JSON text.
func optionalRule(m map[string]any) (*string, error) {
	v, ok := m[FieldRecurrence]
	if !ok || v == nil {
		return nil, nil
	}
	switch v.(type) {
	case string, *string:
		return optionalString(m, FieldRecurrence)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", FieldRecurrence, err)
	}
	return compactRule(b)
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
