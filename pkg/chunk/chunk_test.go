package chunk

import (
	"testing"

	"github.com/gloxlang/glox/pkg/value"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLineAt(t *testing.T) {
	c := New()
	c.WriteOp(OpNil, 1)
	c.WriteOp(OpReturn, 2)

	require.Equal(t, []byte{byte(OpNil), byte(OpReturn)}, c.Code)
	require.Equal(t, 1, c.LineAt(0))
	require.Equal(t, 2, c.LineAt(1))
	require.Equal(t, -1, c.LineAt(99))
}

func TestAddConstant(t *testing.T) {
	c := New()
	idx, err := c.AddConstant(value.Number(1))
	require.NoError(t, err)
	require.Equal(t, 0, idx)
	require.Equal(t, 1.0, c.Constant(idx).AsNumber())
}

func TestAddConstantOverflow(t *testing.T) {
	c := New()
	for i := 0; i < MaxConstants; i++ {
		_, err := c.AddConstant(value.Number(float64(i)))
		require.NoError(t, err)
	}
	_, err := c.AddConstant(value.Number(999))
	require.Error(t, err)
}

func TestOpCodeString(t *testing.T) {
	require.Equal(t, "OP_RETURN", OpReturn.String())
	require.Equal(t, "OP_UNKNOWN", OpCode(250).String())
}
