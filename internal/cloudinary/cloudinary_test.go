package cloudinary

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignature(t *testing.T) {
	c := NewClient("demo", "key", "secret")

	params := url.Values{}
	params.Set("folder", "products")
	params.Set("timestamp", "1700000000")

	require.Equal(t, "bc9e22e54c1e184171f38e2dca41c66ea461866d", c.signature(params))
}

func TestSignatureExcludesNothingItSigns(t *testing.T) {
	c := NewClient("demo", "key", "secret")

	a := url.Values{}
	a.Set("folder", "products")
	a.Set("timestamp", "1700000000")

	b := url.Values{}
	b.Set("timestamp", "1700000000")
	b.Set("folder", "products")

	// insertion order must not matter
	require.Equal(t, c.signature(a), c.signature(b))
}
