package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestEmailHelpers(t *testing.T) {
	assert.Equal(t, "a@b.org", NormalizeEmail("  A@B.org "))
	assert.True(t, IsValidEmail("sec@nhsf.org.uk"))
	assert.False(t, IsValidEmail("not-an-email"))
	assert.False(t, IsValidEmail("Name <a@b.org>"))
}
