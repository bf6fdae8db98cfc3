package sanitize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var collectionPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func TestIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"meetextract_segments", "meetextract_segments"},
		{"BAAI/bge-small-en-v1.5", "baai_bge_small_en_v1_5"},
		{"sentence-transformers/all-MiniLM-L6-v2", "sentence_transformers_all_minilm_l6_v2"},
		{"__leading__and__trailing__", "leading_and_trailing"},
		{"", DefaultIdentifier},
		{"!!!", DefaultIdentifier},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Identifier(tt.input))
		})
	}
}

func TestIdentifier_LengthLimit(t *testing.T) {
	a := Identifier(strings.Repeat("a", 100) + "x")
	b := Identifier(strings.Repeat("a", 100) + "y")

	assert.LessOrEqual(t, len(a), MaxIdentifierLength)
	assert.Regexp(t, collectionPattern, a)
	assert.NotEqual(t, a, b, "hash suffix keeps truncated identifiers distinct")

	exact := strings.Repeat("b", MaxIdentifierLength)
	assert.Equal(t, exact, Identifier(exact))
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "meetextract_segments", CollectionName("meetextract_segments", ""))
	assert.Equal(t, "meetextract_segments_baai_bge_small_en_v1_5",
		CollectionName("meetextract_segments", "BAAI/bge-small-en-v1.5"))

	long := CollectionName(strings.Repeat("segments_", 6), "intfloat/multilingual-e5-large-instruct")
	assert.LessOrEqual(t, len(long), MaxIdentifierLength)
	assert.Regexp(t, collectionPattern, long)
}
