package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("password")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password", hash)
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := HashPassword("password")
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash("password", hash))
	assert.False(t, CheckPasswordHash("Password", hash))
	assert.False(t, CheckPasswordHash("password", "not-a-hash"))
}
