package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFalsey(t *testing.T) {
	require.True(t, Nil().IsFalsey())
	require.True(t, Bool(false).IsFalsey())
	require.False(t, Bool(true).IsFalsey())
	require.False(t, Number(0).IsFalsey(), "glox falsiness is nil/false only, not zero-is-falsey")
}

func TestEqual(t *testing.T) {
	require.True(t, Equal(Number(1), Number(1)))
	require.False(t, Equal(Number(1), Number(2)))
	require.True(t, Equal(Nil(), Nil()))
	require.False(t, Equal(Nil(), Bool(false)))

	a := NewStringObj("hi", HashString("hi"))
	b := NewStringObj("hi", HashString("hi"))
	require.False(t, Equal(FromObj(a), FromObj(b)), "distinct Objs are not equal without interning")
	require.True(t, Equal(FromObj(a), FromObj(a)))
}

func TestValueString(t *testing.T) {
	require.Equal(t, "nil", Nil().String())
	require.Equal(t, "true", Bool(true).String())
	require.Equal(t, "3", Number(3).String())
	require.Equal(t, "3.5", Number(3.5).String())
}

func TestFunctionStringUnnamed(t *testing.T) {
	fn := &ObjFunction{}
	require.Equal(t, "<script>", fn.String())
}
