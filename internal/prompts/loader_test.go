package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get(AnalysisFile, "match-analysis")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Home}} vs {{.Away}}")
	assert.Contains(t, prompt, "key_factors")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get(ResearchFile, "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestRender_ResearchPrompt(t *testing.T) {
	prompt, err := Render(ResearchFile, "match-research", map[string]string{
		"Home": "Arsenal",
		"Away": "Chelsea",
		"Date": "2025-08-16",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Arsenal vs Chelsea match on 2025-08-16")
	assert.NotContains(t, prompt, "{{.")
}

func TestFormat(t *testing.T) {
	result := Format("{{.Home}} host {{.Away}}, {{.Home}} favoured", map[string]string{
		"Home": "Arsenal",
		"Away": "Chelsea",
	})
	assert.Equal(t, "Arsenal host Chelsea, Arsenal favoured", result)
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	result := Format("{{.A}}", map[string]string{"A": "{{.B}}", "B": "x"})
	assert.Equal(t, "{{.B}}", result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"
	assert.Equal(t, template, Format(template, nil))
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List(AnalysisFile)
	require.NoError(t, err)
	assert.Contains(t, keys, "match-analysis")
	assert.IsIncreasing(t, keys)
}

func TestEveryPromptFileParses(t *testing.T) {
	ClearCache()
	for _, f := range []string{ResearchFile, AnalysisFile} {
		keys, err := List(f)
		require.NoError(t, err, f)
		assert.NotEmpty(t, keys, f)
	}
}
