package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkcards/spark/internal/errors"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Greater(t, c.Len(), 0)

	r, ok := c.Lookup("Dance your stretches")
	require.True(t, ok)
	assert.Equal(t, []string{"restriction"}, r.Tags)
	assert.Equal(t, "", r.Type)

	assert.Contains(t, c.Types(), "pole")
	assert.Contains(t, c.Tags(), "restriction")
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
- text: A
  type: pole
  tags: [music]
- text: B
  type: floor
- text: C
  tags: [restriction, music]
`)
	c, err := Parse(data, "test")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	records := c.Records()
	assert.Equal(t, "A", records[0].Text)
	assert.Equal(t, "B", records[1].Text)
	assert.Equal(t, []string{}, records[1].Tags)
	assert.Equal(t, 2, c.Position("C"))
	assert.Equal(t, -1, c.Position("Z"))
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`[{"text":"A","type":"pole"},{"text":"B","tags":["fun"],"creditUrl":"https://x"}]`)
	c, err := Parse(data, "test.json")
	require.NoError(t, err)

	b, ok := c.Lookup("B")
	require.True(t, ok)
	assert.Equal(t, "https://x", b.CreditURL)
	assert.Equal(t, []string{"fun"}, b.Tags)
}

func TestParse_DuplicateText(t *testing.T) {
	data := []byte(`[{"text":"A"},{"text":"B"},{"text":"A"}]`)
	_, err := Parse(data, "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDuplicatePrompt))
}

func TestParse_MissingText(t *testing.T) {
	_, err := Parse([]byte(`[{"type":"pole"}]`), "test")
	assert.True(t, errors.Is(err, errors.ErrInvalidCatalog))

	_, err = Parse([]byte(`["just a string"]`), "test")
	assert.True(t, errors.Is(err, errors.ErrInvalidCatalog))
}

func TestParse_NotASequence(t *testing.T) {
	_, err := Parse([]byte(`text: A`), "test")
	assert.True(t, errors.Is(err, errors.ErrInvalidCatalog))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- text: Only one\n"), 0600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	c, err = Load("")
	require.NoError(t, err)
	assert.Greater(t, c.Len(), 1)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.Is(err, errors.ErrInvalidCatalog))
}

func TestCatalog_Facets(t *testing.T) {
	c, err := FromEntries([]Entry{
		{"text": "A", "type": "pole", "tags": []any{"tempo", "music"}},
		{"text": "B", "type": "floor", "tags": []any{"music"}},
		{"text": "C", "type": " "},
		{"text": "D", "type": "pole"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"floor", "pole"}, c.Types())
	assert.Equal(t, []string{"music", "tempo"}, c.Tags())
}

func TestCatalog_RecordsIsCopy(t *testing.T) {
	c, err := FromEntries([]Entry{{"text": "A"}, {"text": "B"}})
	require.NoError(t, err)

	records := c.Records()
	records[0], records[1] = records[1], records[0]

	assert.Equal(t, "A", c.Records()[0].Text)
}
