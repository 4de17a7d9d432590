package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gloxlang/glox/pkg/gc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string, stress bool) (string, error) {
	t.Helper()
	var out bytes.Buffer
	g := gc.New(zerolog.Nop())
	v := New(g, Options{StressGC: stress, Stdout: &out})
	err := v.Interpret(src)
	return out.String(), err
}

func TestArithmeticAndPrecedence(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`, false)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenationInterns(t *testing.T) {
	out, err := run(t, `
		var a = "foo";
		var b = "bar";
		print a + b;
	`, false)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestGlobalAndLocalVariables(t *testing.T) {
	out, err := run(t, `
		var x = 10;
		{
			var x = 20;
			print x;
		}
		print x;
	`, false)
	require.NoError(t, err)
	require.Equal(t, "20\n10\n", out)
}

func TestIfElse(t *testing.T) {
	out, err := run(t, `
		if (1 < 2) { print "yes"; } else { print "no"; }
		if (false) { print "yes"; } else { print "no"; }
	`, false)
	require.NoError(t, err)
	require.Equal(t, "yes\nno\n", out)
}

func TestWhileAndForLoops(t *testing.T) {
	out, err := run(t, `
		var i = 0;
		while (i < 3) {
			print i;
			i = i + 1;
		}
		for (var j = 0; j < 3; j = j + 1) {
			print j;
		}
	`, false)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n0\n1\n2\n", out)
}

func TestLogicalAndOr(t *testing.T) {
	out, err := run(t, `
		print false and 1;
		print true and 2;
		print false or 3;
		print nil or 4;
	`, false)
	require.NoError(t, err)
	require.Equal(t, "false\n2\n3\n4\n", out)
}

func TestClosuresShareUpvalue(t *testing.T) {
	out, err := run(t, `
		fun makeCounter() {
			var count = 0;
			fun increment() {
				count = count + 1;
				return count;
			}
			return increment;
		}
		var counter = makeCounter();
		print counter();
		print counter();
		print counter();
	`, false)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n3\n", out)
}

func TestClassesMethodsAndThis(t *testing.T) {
	out, err := run(t, `
		class Counter {
			init(start) {
				this.value = start;
			}
			bump() {
				this.value = this.value + 1;
				return this.value;
			}
		}
		var c = Counter(10);
		print c.bump();
		print c.bump();
	`, false)
	require.NoError(t, err)
	require.Equal(t, "11\n12\n", out)
}

func TestBoundMethodRetainsReceiver(t *testing.T) {
	out, err := run(t, `
		class Greeter {
			init(name) {
				this.name = name;
			}
			greet() {
				return "hi " + this.name;
			}
		}
		var g = Greeter("ada");
		var m = g.greet;
		print m();
	`, false)
	require.NoError(t, err)
	require.Equal(t, "hi ada\n", out)
}

func TestArityMismatchIsRuntimeError(t *testing.T) {
	_, err := run(t, `
		fun needsTwo(a, b) { return a + b; }
		needsTwo(1);
	`, false)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Expected 2 arguments but got 1"))
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	_, err := run(t, `print undefinedThing;`, false)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Undefined variable"))
}

func TestTypeErrorOnBadOperands(t *testing.T) {
	_, err := run(t, `print "x" - 1;`, false)
	require.Error(t, err)
}

// TestStressGCPreservesCorrectness re-runs a closure/allocation-heavy
// program with every allocation preceded by a full collection
// (gc.GC.StressMode), matching clox's stress-test build; any missing
// root would corrupt output or crash rather than just run slower.
func TestStressGCPreservesCorrectness(t *testing.T) {
	out, err := run(t, `
		class Box {
			init(v) { this.v = v; }
			get() { return this.v; }
		}
		var total = 0;
		for (var i = 0; i < 50; i = i + 1) {
			var b = Box(i);
			total = total + b.get();
		}
		print total;
	`, true)
	require.NoError(t, err)
	require.Equal(t, "1225\n", out)
}

func TestReplPreservesGlobalsAcrossInterpretCalls(t *testing.T) {
	var out bytes.Buffer
	g := gc.New(zerolog.Nop())
	v := New(g, Options{Stdout: &out})

	require.NoError(t, v.Interpret(`var x = 1;`))
	require.NoError(t, v.Interpret(`x = x + 1; print x;`))
	require.Equal(t, "2\n", out.String())
}
