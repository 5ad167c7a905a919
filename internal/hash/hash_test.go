package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hashed, err := Password("secret1")
	require.NoError(t, err)
	require.NotEqual(t, "secret1", hashed)

	require.True(t, CheckPassword(hashed, "secret1"))
	require.False(t, CheckPassword(hashed, "secret2"))
	require.False(t, CheckPassword("not a hash", "secret1"))
}
