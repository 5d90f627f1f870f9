package redirect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustRule(t *testing.T, from, to string) Rule {
	r, err := NewRule(from, to)
	require.NoError(t, err)
	return r
}

func TestEmptyRuleListIsIdentity(t *testing.T) {
	e := New()
	got, changed := e.Apply("/any/path")
	require.False(t, changed)
	require.Equal(t, "/any/path", got)
}

func TestCumulativeFold(t *testing.T) {
	// chained rewrites.
	r1 := mustRule(t, "/old/([^/]*)", "/new/$1")
	r2 := mustRule(t, "/new/(.*)", "/v2/$1")
	e := New(r1, r2)

	got, changed := e.Apply("/old/alpha")
	require.True(t, changed)
	require.Equal(t, "/v2/alpha", got)
}

func TestNoMatchIsUnchanged(t *testing.T) {
	r1 := mustRule(t, "/old/([^/]*)", "/new/$1")
	e := New(r1)
	got, changed := e.Apply("/other/path")
	require.False(t, changed)
	require.Equal(t, "/other/path", got)
}

func TestPurity(t *testing.T) {
	r1 := mustRule(t, "/a", "/b")
	e := New(r1)
	g1, c1 := e.Apply("/a")
	g2, c2 := e.Apply("/a")
	require.Equal(t, g1, g2)
	require.Equal(t, c1, c2)
}
