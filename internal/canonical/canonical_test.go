package canonical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CidQueiroz/Caca-Preco/internal/canonical"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	t.Run("strips query and fragment", func(t *testing.T) {
		t.Parallel()
		got, err := canonical.Canonicalize("https://x.com/p?ref=abc#foo")
		require.NoError(t, err)
		assert.Equal(t, "https://x.com/p", got)
	})

	t.Run("equal for tracking variants", func(t *testing.T) {
		t.Parallel()
		a, err := canonical.Canonicalize("https://retailer.example/item/42?utm=x")
		require.NoError(t, err)
		b, err := canonical.Canonicalize("https://retailer.example/item/42")
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()
		urls := []string{
			"https://x.com/p?ref=abc#foo",
			"http://shop.example.com.br/produto/123",
			"https://a.b.c/path/deep?x=1&y=2",
		}
		for _, u := range urls {
			once, err := canonical.Canonicalize(u)
			require.NoError(t, err)
			twice, err := canonical.Canonicalize(once)
			require.NoError(t, err)
			assert.Equal(t, once, twice, "canonicalize should be idempotent for %s", u)
		}
	})

	t.Run("rejects malformed input", func(t *testing.T) {
		t.Parallel()
		for _, u := range []string{"", "not a url", "ftp://x.com/file", "https://", "//missing-scheme.com"} {
			_, err := canonical.Canonicalize(u)
			assert.ErrorIs(t, err, canonical.ErrInvalidURL, "input %q", u)
		}
	})
}

func TestHash(t *testing.T) {
	t.Parallel()

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		u, err := canonical.Canonicalize("https://x.com/p?ref=abc")
		require.NoError(t, err)
		assert.Equal(t, canonical.Hash(u), canonical.Hash(u))
	})

	t.Run("equal canonical urls hash equal", func(t *testing.T) {
		t.Parallel()
		a, _ := canonical.Canonicalize("https://x.com/p?a=1")
		b, _ := canonical.Canonicalize("https://x.com/p#frag")
		assert.Equal(t, canonical.Hash(a), canonical.Hash(b))
	})

	t.Run("is a hex sha-256 digest", func(t *testing.T) {
		t.Parallel()
		assert.Len(t, canonical.Hash("https://x.com/p"), 64)
	})
}

func TestHostCandidates(t *testing.T) {
	t.Parallel()

	t.Run("most specific first", func(t *testing.T) {
		t.Parallel()
		got := canonical.HostCandidates("m.americanas.com.br")
		assert.Equal(t, []string{"m.americanas.com.br", "americanas.com.br", "com.br"}, got)
	})

	t.Run("bare domain", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"kabum.com.br", "com.br"}, canonical.HostCandidates("kabum.com.br"))
	})

	t.Run("single label host", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"localhost"}, canonical.HostCandidates("localhost"))
	})

	t.Run("empty host", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, canonical.HostCandidates(""))
	})
}
