package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercase words",
			in:   "cache key lookup",
			want: []string{"cache", "key", "lookup"},
		},
		{
			name: "discards short tokens",
			in:   "a I of it the map",
			want: []string{"of", "it", "the", "map"},
		},
		{
			name: "camel case expands to sub words plus whole",
			in:   "getUserName",
			want: []string{"getusername", "get", "user", "name"},
		},
		{
			name: "leading acronym run splits per upper-case transition",
			in:   "LRUCache",
			want: []string{"lrucache", "cache"},
		},
		{
			name: "snake and kebab case split on outer boundary already",
			in:   "max_retry-count",
			want: []string{"max", "retry", "count"},
		},
		{
			name: "punctuation splits segments",
			in:   "fsync() before rename()",
			want: []string{"fsync", "before", "rename"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "filters stop words",
			in:   "this cache with LRU eviction",
			want: []string{"cache", "lru", "eviction"},
		},
		{
			name: "dedups preserving first occurrence order",
			in:   "cache cache miss cache",
			want: []string{"cache", "miss"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QueryTerms(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "he", Truncate("hello", 2))
	assert.Equal(t, "", Truncate("hello", 0))

	multibyte := "héllo"
	got := Truncate(multibyte, 2)
	assert.LessOrEqual(t, len(got), 2)
}
