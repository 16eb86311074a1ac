package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderingClause(t *testing.T) {
	allowed := map[string]string{
		"name":       "s.name",
		"created_at": "s.created_at",
	}
	dflt := "s.created_at DESC"

	tests := []struct {
		name      string
		orderings []DBOrdering
		want      string
	}{
		{name: "none", want: " ORDER BY s.created_at DESC"},
		{name: "unknown field", orderings: []DBOrdering{{Field: "password_hash"}}, want: " ORDER BY s.created_at DESC"},
		{name: "ascending", orderings: []DBOrdering{{Field: "name", Ascending: true}}, want: " ORDER BY s.name ASC"},
		{
			name:      "unknown fields are skipped",
			orderings: []DBOrdering{{Field: "lol", Ascending: true}, {Field: "name"}, {Field: "created_at", Ascending: true}},
			want:      " ORDER BY s.name DESC, s.created_at ASC",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrderingClause(tt.orderings, allowed, dflt))
		})
	}
}
