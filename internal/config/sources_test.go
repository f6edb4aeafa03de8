package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSources_MissingFileReturnsEmpty(t *testing.T) {
	sources, err := LoadSources(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestLoadSources_ParsesRSSAndHTMLEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	yamlDoc := `
sources:
  - id: blog-a
    name: Blog A
    kind: blog
    transport: rss
    url: https://example.com/feed.xml
  - id: listing-b
    name: Listing B
    kind: blog
    transport: html
    url: https://example.com/posts
    config:
      item_selector: ".post"
      title_selector: ".post h2"
      url_selector: ".post a"
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "blog-a", sources[0].ID)
	assert.True(t, sources[0].Enabled)
	assert.Equal(t, "listing-b", sources[1].ID)
	require.NotNil(t, sources[1].Config)
	assert.Equal(t, ".post", sources[1].Config.ItemSelector)
}

func TestLoadSources_DisabledFlagRespected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	yamlDoc := `
sources:
  - id: blog-a
    kind: blog
    transport: rss
    url: https://example.com/feed.xml
    enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.False(t, sources[0].Enabled)
}

func TestLoadSources_InvalidSourceErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sources.yaml")
	yamlDoc := `
sources:
  - id: bad
    kind: blog
    transport: html
    url: https://example.com/posts
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	_, err := LoadSources(path)
	assert.Error(t, err)
}
