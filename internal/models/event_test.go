package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_ToMapKeepsNullOptionals(t *testing.T) {
	e := Event{ID: "e1", Title: "Standup", Description: "daily sync", StartTime: "2024-01-02T09:00", EndTime: "2024-01-02T09:15"}

	m := e.ToMap()

	assert.Equal(t, "Standup", m[FieldTitle])
	v, ok := m[FieldRecurrence]
	assert.True(t, ok)
	assert.Nil(t, v)
	v, ok = m[FieldEmail]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestEventFromMap_RoundTrip(t *testing.T) {
	e := Event{
		ID:          "e1",
		Title:       "Review",
		Description: "weekly",
		StartTime:   "2024-01-05T10:00",
		EndTime:     "2024-01-05T11:00",
		Recurrence:  String("FREQ=WEEKLY"),
		Email:       String("team@example.com"),
	}

	got, err := EventFromMap(e.ToMap())
	require.NoError(t, err)
	assert.Equal(t, e, got)
}

func TestEventFromMap_RejectsWrongTypes(t *testing.T) {
	_, err := EventFromMap(map[string]any{FieldID: "x", FieldTitle: 42})
	assert.ErrorContains(t, err, "title")

	_, err = EventFromMap(map[string]any{FieldID: "x", FieldEmail: true})
	assert.ErrorContains(t, err, "email")
}

func TestEvent_SetNilClearsField(t *testing.T) {
	e := Event{Title: "a", Email: String("x@example.com")}

	e.Set(FieldEmail, nil)
	e.Set(FieldTitle, nil)
	e.Set("location", String("ignored"))

	assert.Nil(t, e.Email)
	assert.Equal(t, "", e.Title)
	assert.False(t, e.HasEmail())
}

func TestEvent_FieldsDoesNotAlias(t *testing.T) {
	e := Event{Title: "a", Recurrence: String("FREQ=DAILY")}
	f := e.Fields()

	*f[FieldRecurrence] = "changed"

	assert.Equal(t, "FREQ=DAILY", *e.Recurrence)
	assert.Len(t, f, len(ContentFields))
}

func TestEventFromMap_StructuredRecurrence(t *testing.T) {
	e, err := EventFromMap(map[string]any{
		FieldID:         "x",
		FieldRecurrence: map[string]any{"freq": "weekly", "interval": 1},
	})
	require.NoError(t, err)
	require.NotNil(t, e.Recurrence)
	assert.Equal(t, `{"freq":"weekly","interval":1}`, *e.Recurrence)
}

func TestFields_UnmarshalJSON(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{
		"title": "Standup",
		"email": null,
		"recurrence": {"freq": "weekly", "byday": ["MO", "WE"]}
	}`), &f)
	require.NoError(t, err)

	assert.Equal(t, "Standup", *f[FieldTitle])
	email, ok := f.Lookup(FieldEmail)
	assert.True(t, ok)
	assert.Nil(t, email)
	assert.Equal(t, `{"freq":"weekly","byday":["MO","WE"]}`, *f[FieldRecurrence])
	_, ok = f.Lookup(FieldDescription)
	assert.False(t, ok)
}

func TestFields_UnmarshalJSONRejectsStructuredText(t *testing.T) {
	var f Fields
	err := json.Unmarshal([]byte(`{"title": {"text": "Standup"}}`), &f)
	assert.ErrorContains(t, err, "field title")

	err = json.Unmarshal([]byte(`[]`), &f)
	assert.Error(t, err)
}
