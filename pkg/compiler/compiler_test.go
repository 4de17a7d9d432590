package compiler

import (
	"testing"

	"github.com/gloxlang/glox/pkg/gc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCompileValidProgram(t *testing.T) {
	g := gc.New(zerolog.Nop())
	fn, err := Compile(`
		var x = 1;
		fun f(a, b) { return a + b; }
		print f(x, 2);
	`, g)
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestCompileReportsMultipleErrorsAndTerminates(t *testing.T) {
	g := gc.New(zerolog.Nop())
	_, err := Compile(`
		var = 1;
		print ;
	`, g)
	require.Error(t, err)

	ce, ok := err.(*CompileError)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(ce.Errors), 2)
}

func TestTooManyLocalsIsCompileError(t *testing.T) {
	var src string
	src += "{\n"
	for i := 0; i < maxLocals+1; i++ {
		src += "var v" + itoa(i) + " = 0;\n"
	}
	src += "}\n"

	g := gc.New(zerolog.Nop())
	_, err := Compile(src, g)
	require.Error(t, err)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestThisOutsideClassIsCompileError(t *testing.T) {
	g := gc.New(zerolog.Nop())
	_, err := Compile(`print this;`, g)
	require.Error(t, err)
}

func TestReturnAtTopLevelIsCompileError(t *testing.T) {
	g := gc.New(zerolog.Nop())
	_, err := Compile(`return 1;`, g)
	require.Error(t, err)
}
