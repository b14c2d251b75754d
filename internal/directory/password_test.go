package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePasswordLengthAndClasses(t *testing.T) {
	password, err := GeneratePassword()
	require.NoError(t, err)

	assert.Len(t, password, passwordLength)
	assert.True(t, containsAny(password, lowerChars), "expected a lowercase letter")
	assert.True(t, containsAny(password, upperChars), "expected an uppercase letter")
	assert.True(t, containsAny(password, digitChars), "expected a digit")
	assert.True(t, containsAny(password, symbolChars), "expected a symbol")
}

func TestGeneratePasswordIsNotRepeated(t *testing.T) {
	first, err := GeneratePassword()
	require.NoError(t, err)

	second, err := GeneratePassword()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
