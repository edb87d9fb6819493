package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	corpus, err := loadCorpus("")
	require.NoError(t, err)

	cfg := &Config{}
	reg := newRegistry()
	assert.Empty(t, reg.list())

	first := reg.create(cfg, corpus, gameSettings{PlayerWordLength: 5})
	second := reg.create(cfg, corpus, gameSettings{PlayerWordLength: 3})
	require.NotEqual(t, first.id, second.id)

	assert.Equal(t, []string{first.id, second.id}, reg.list(), "ids listed in creation order")

	got, err := reg.get(first.id)
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.Equal(t, 5, got.settings.PlayerWordLength)
	assert.Equal(t, phaseLobby, got.phase.kind)
	assert.Equal(t, 64, got.supply.size, "new games start with a full supply")

	require.NoError(t, reg.delete(first.id))
	assert.Equal(t, []string{second.id}, reg.list())

	_, err = reg.get(first.id)
	assert.ErrorIs(t, err, errNotFound)
	assert.ErrorIs(t, reg.delete(first.id), errNotFound)
}

func TestNewSlug(t *testing.T) {
	for i := 0; i < 50; i++ {
		slug := newSlug()
		parts := strings.Split(slug, "-")
		require.Len(t, parts, 3)
		assert.Equal(t, strings.ToLower(slug), slug)
	}
}

func TestPlayerNameSuggestion(t *testing.T) {
	name := playerNameSuggestion()
	parts := strings.Split(name, " ")
	require.Len(t, parts, 2)
	for _, part := range parts {
		assert.Equal(t, strings.ToUpper(part[:1]), part[:1], "words are capitalized")
	}
}
