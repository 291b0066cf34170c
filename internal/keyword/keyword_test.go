package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDedupesLowercasesAndDropsStopWords(t *testing.T) {
	got := Extract("Build a TypeScript API for the API, and build it again!")
	assert.Equal(t, []string{"build", "typescript", "api", "again"}, got)
}

func TestExtractDropsShortTokens(t *testing.T) {
	got := Extract("a I ok go")
	assert.Equal(t, []string{"ok", "go"}, got)
}

func TestExtractEmptyInput(t *testing.T) {
	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("   "))
	assert.Empty(t, Extract("the a an of"))
}

func TestExtractNonAlphanumericBoundaries(t *testing.T) {
	got := Extract("async/await --flag foo_bar co-worker")
	assert.Equal(t, []string{"async", "await", "--flag", "foo", "bar", "co-worker"}, got)
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("THE"))
	assert.False(t, IsStopWord("typescript"))
}
