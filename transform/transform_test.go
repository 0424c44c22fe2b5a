package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListFieldVariants(t *testing.T) {
	assert.Equal(t, []string{}, ParseListField(nil))
	assert.Equal(t, []string{}, ParseListField("   "))
	assert.Equal(t, []string{"x", "y"}, ParseListField(`["x","y","x"]`))
	assert.Equal(t, []string{"x", "y", "z"}, ParseListField("x, y ; z|x"))
	assert.Equal(t, []string{"A", "B"}, ParseListField([]string{"A", "a", "B"}))
	assert.Equal(t, []string{"42"}, ParseListField(int64(42)))
	assert.Equal(t, []string{"Python", "ML"}, ParseListField([]byte(`["Python","ML"]`)))
}

func TestParseListFieldIdempotent(t *testing.T) {
	inputs := []any{
		`["x","y","x"]`,
		"a, b ; c|a",
		[]string{"AI", "ml", "ML"},
		nil,
	}
	for _, in := range inputs {
		first := ParseListField(in)
		assert.Equal(t, first, ParseListField(first))
	}
}

func TestMergeUnique(t *testing.T) {
	a := []string{"AI", "ML", "ai"}
	b := []string{"Data", "ml", "NLP"}
	assert.Equal(t, []string{"AI", "ML", "Data", "NLP"}, MergeUnique(a, b))
	assert.Equal(t, []string{}, MergeUnique())
	assert.Equal(t, []string{"x"}, MergeUnique(nil, []string{" x "}))
}

func TestNormalizeLevel(t *testing.T) {
	assert.Equal(t, "beginner", NormalizeLevel("Beginner"))
	assert.Equal(t, "beginner", NormalizeLevel("Introductory"))
	assert.Equal(t, "intermediate", NormalizeLevel("Middle level"))
	assert.Equal(t, "advanced", NormalizeLevel("ADVANCED track"))
	// Ohne Keyword-Treffer bleibt die Original-Schreibweise erhalten
	assert.Equal(t, "Something else", NormalizeLevel("  Something else "))
	assert.Equal(t, "", NormalizeLevel(""))
}

func TestParseWeeks(t *testing.T) {
	cases := []struct {
		in   any
		want *int
	}{
		{6, intPtr(6)},
		{int64(6), intPtr(6)},
		{7.6, intPtr(8)},
		{"6 weeks", intPtr(6)},
		{"Approx. 8 Weeks", intPtr(8)},
		{"2-4 weeks", intPtr(4)},
		{"8W", intPtr(8)},
		{"N/A", nil},
		{nil, nil},
		{"", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ParseWeeks(c.in), "input %v", c.in)
	}
}
