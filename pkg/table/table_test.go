package table

import (
	"testing"

	"github.com/gloxlang/glox/pkg/value"
	"github.com/stretchr/testify/require"
)

func strObj(s string) *value.Obj {
	return value.NewStringObj(s, value.HashString(s))
}

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New()
	key := strObj("x")
	require.True(t, tbl.Set(key, value.Number(42)))

	v, ok := tbl.Get(key)
	require.True(t, ok)
	require.Equal(t, 42.0, v.AsNumber())

	require.False(t, tbl.Set(key, value.Number(43)), "re-setting an existing key reports not-new")
	v, _ = tbl.Get(key)
	require.Equal(t, 43.0, v.AsNumber())
}

func TestDeleteAndTombstoneProbing(t *testing.T) {
	tbl := New()
	// "a" and "i" both hash to slot 4 of the initial 8-slot table, so b
	// is stored one slot past a.
	a, b := strObj("a"), strObj("i")
	tbl.Set(a, value.Bool(true))
	tbl.Set(b, value.Bool(false))

	require.True(t, tbl.Delete(a))
	_, ok := tbl.Get(a)
	require.False(t, ok)

	// b must still be reachable even though a tombstone now sits in its
	// probe chain.
	v, ok := tbl.Get(b)
	require.True(t, ok)
	require.False(t, v.AsBool())
}

func TestGrowRehashesLiveEntriesOnly(t *testing.T) {
	tbl := New()
	keys := make([]*value.Obj, 0, 20)
	for i := 0; i < 20; i++ {
		k := strObj(string(rune('a' + i)))
		keys = append(keys, k)
		tbl.Set(k, value.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, float64(i), v.AsNumber())
	}
	require.Equal(t, 20, tbl.Count())
}

func TestFindString(t *testing.T) {
	tbl := New()
	hello := strObj("hello")
	tbl.Set(hello, value.Bool(true))

	found := tbl.FindString("hello", value.HashString("hello"))
	require.Same(t, hello, found)

	require.Nil(t, tbl.FindString("nope", value.HashString("nope")))
}

func TestRemoveUnmarked(t *testing.T) {
	tbl := New()
	live, dead := strObj("live"), strObj("dead")
	tbl.Set(live, value.Bool(true))
	tbl.Set(dead, value.Bool(true))

	tbl.RemoveUnmarked(func(key *value.Obj) bool { return key == dead })

	_, ok := tbl.Get(dead)
	require.False(t, ok)
	_, ok = tbl.Get(live)
	require.True(t, ok)
}

func TestAddAll(t *testing.T) {
	src := New()
	src.Set(strObj("k1"), value.Number(1))
	src.Set(strObj("k2"), value.Number(2))

	dst := New()
	dst.AddAll(src)
	require.Equal(t, 2, dst.Count())
}
