package entities

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func persons(t *testing.T, text string) []string {
	t.Helper()
	ents, err := NewRuleBased().ExtractEntities(context.Background(), text)
	require.NoError(t, err)
	var names []string
	for _, e := range ents {
		if e.IsPerson() {
			names = append(names, e.Text)
		}
	}
	return names
}

func TestRuleBased_Persons(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{name: "full name", text: "Sarah Chen will own the rollout.", want: []string{"Sarah Chen"}},
		{name: "addressed", text: "John, can you send the report?", want: []string{"John"}},
		{name: "assigned", text: "This was assigned to Marcus yesterday.", want: []string{"Marcus"}},
		{name: "will", text: "Emily will update the deck.", want: []string{"Emily"}},
		{name: "pronoun is not a name", text: "We will update the deck.", want: nil},
		{name: "leading article dropped", text: "The Salesforce contact is out.", want: []string{"Salesforce"}},
		{name: "weekday is not a name", text: "Friday will be tight.", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, persons(t, tt.text))
		})
	}
}

func TestRuleBased_Roles(t *testing.T) {
	ents, err := NewRuleBased().ExtractEntities(context.Background(), "Our account manager and the CTO agreed.")
	require.NoError(t, err)

	var roles []string
	for _, e := range ents {
		if e.Type == TypeRole {
			roles = append(roles, e.Text)
		}
	}
	assert.Equal(t, []string{"manager", "CTO"}, roles)
}

func TestEntity_IsPerson(t *testing.T) {
	assert.True(t, Entity{Type: "PER"}.IsPerson())
	assert.True(t, Entity{Type: "person"}.IsPerson())
	assert.False(t, Entity{Type: "ORG"}.IsPerson())
}
