package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("supersecret", 4)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "supersecret", hash)

	assert.True(t, CheckPassword("supersecret", hash))
	assert.False(t, CheckPassword("wrongpassword", hash))
}

func TestHashPassword_DistinctSalts(t *testing.T) {
	h1, err := HashPassword("samepassword", 4)
	require.NoError(t, err)
	h2, err := HashPassword("samepassword", 4)
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestMimeTypeByName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"photo.png", "image/png"},
		{"report.pdf", "application/pdf"},
		{"noextension", "application/octet-stream"},
		{"archive.unknownext", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MimeTypeByName(tt.name))
		})
	}
}
