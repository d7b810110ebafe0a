package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "claude-3-7-sonnet-latest"))
	require.NoError(t, store.Set("retrieval.top_k", 5))
	require.NoError(t, store.Set("chat.temperature", 0.2))
	require.NoError(t, store.Set("pipeline.force", true))

	// A fresh store reads the persisted file.
	store2, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-7-sonnet-latest", store2.GetString("llm.model"))
	assert.Equal(t, 5, store2.GetInt("retrieval.top_k"))
	assert.Equal(t, 0.2, store2.GetFloat("chat.temperature"))
	assert.True(t, store2.GetBool("pipeline.force"))
}

func TestConfigStoreFlattensNestedTables(t *testing.T) {
	dir := t.TempDir()
	content := "[vector]\nurl = \"http://localhost:6333\"\ncollection = \"studio_manuals\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:6333", store.GetString("vector.url"))
	assert.Equal(t, "studio_manuals", store.GetString("vector.collection"))
}

func TestConfigStoreMissingKeys(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
	assert.Equal(t, 0.0, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStoreStringSlice(t *testing.T) {
	dir := t.TempDir()
	content := "skip = [\"a.pdf\", \"b.pdf\"]\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, store.GetStringSlice("skip"))
}
