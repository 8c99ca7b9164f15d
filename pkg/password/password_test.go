package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := Hash("hunter2")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, Check("hunter2", hash))
	assert.False(t, Check("hunter3", hash))
}

func TestEqualPlain(t *testing.T) {
	assert.True(t, EqualPlain("secret", "secret"))
	assert.False(t, EqualPlain("secret", "Secret"))
	assert.False(t, EqualPlain("secret", ""))
}
