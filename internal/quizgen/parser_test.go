package quizgen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidJSONMatchesStrictParse(t *testing.T) {
	inputs := []string{
		`[{"question":"Q?","type":"single","options":["a","b"],"correctAnswers":[0]}]`,
		`[]`,
		`{"title":"not a quiz"}`,
		`"a [string] with {braces}"`,
		`42`,
	}
	for _, in := range inputs {
		var want any
		require.NoError(t, json.Unmarshal([]byte(in), &want))

		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseKeepsQuestionsObject(t *testing.T) {
	got, err := Parse(`{"questions":[{"question":"Q?"}]}`)
	require.NoError(t, err)
	_, isObject := got.(map[string]any)
	assert.True(t, isObject)

	items, ok := UnwrapQuestions(got).([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)

	assert.Equal(t, map[string]any{"quiz": []any{}}, UnwrapQuestions(map[string]any{"quiz": []any{}}))
	assert.Equal(t, []any{1.0}, UnwrapQuestions([]any{1.0}))
}

func TestParseRepairs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"trailing commas", `[{"question":"Q?","options":["a","b",],},]`, 1},
		{"code fence", "```json\n[{\"question\":\"Q?\"}]\n```", 1},
		{"surrounding prose", "Here is your quiz:\n[{\"question\":\"Q?\"},{\"question\":\"R?\"}]\nEnjoy!", 2},
		{"brackets in trailing prose", `Here you go: [{"question":"Q?","options":["a","b"],"correctAnswers":[0]}] Hope it helps [1]`, 1},
		{"brackets inside strings", `Sure: [{"question":"Is ] a bracket?","options":["[","]"]}] see [ref]`, 1},
		{"truncated inside a string", `[{"question":"What is the capital`, 1},
		{"truncated after a value", `[{"question":"Q?","options":["a","b"]},{"question":"R?"`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			require.NoError(t, err)
			items, ok := got.([]any)
			require.True(t, ok, "expected an array, got %T", got)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestParseClosesStringAtEndOfInput(t *testing.T) {
	got, err := Parse(`[{"question":"What is the capital`)
	require.NoError(t, err)
	q := got.([]any)[0].(map[string]any)
	assert.Equal(t, "What is the capital", q["question"])
}

func TestParseGivesUpOnGarbage(t *testing.T) {
	_, err := Parse("I'm sorry, I cannot help with that.")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestRepairRulesAreIndividuallyPure(t *testing.T) {
	assert.Equal(t, `[1,2]`, stripTrailingCommas(`[1,2,]`, nil))
	assert.Equal(t, `{"a":[1]}`, stripTrailingCommas(`{"a":[1,],}`, nil))
	assert.Equal(t, `[{"a":1}]`, closeOpenBrackets(`[{"a":1},`, nil))
	assert.Equal(t, `[1]`, closeOpenBrackets(`[1]`, nil))
	assert.Equal(t, `["abc"`, closeUnterminatedString(`["abc`, nil))
	assert.Equal(t, `["abc"]`, closeUnterminatedString(`["abc"]`, nil))
	assert.Equal(t, `[1]`, extractJSONBody("```\n[1]\n```", nil))
	assert.Equal(t, `[[1],[2]]`, extractJSONBody("x [[1],[2]] y [3]", nil))
	assert.Equal(t, `[1,2,]`, extractJSONBody("x [1,2,] then [3]", nil))
}
