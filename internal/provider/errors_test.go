package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageIncludesProviderAndKind(t *testing.T) {
	err := NewNotFound("local", "resource missing")
	assert.Contains(t, err.Error(), "local")
	assert.Contains(t, err.Error(), string(KindNotFound))
}

func TestIsKindMatchesConstructedErrors(t *testing.T) {
	err := NewRateLimit("community-catalog", "bucket empty", 1500)
	assert.True(t, IsKind(err, KindRateLimit))
	assert.False(t, IsKind(err, KindNotFound))
	assert.Equal(t, int64(1500), err.RetryAfter)
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewProviderError("source-control", "bad status", 500, cause)
	assert.ErrorIs(t, err, cause)
}

func TestIsKindFalseForNonProviderError(t *testing.T) {
	assert.False(t, IsKind(errors.New("plain"), KindTimeout))
}
