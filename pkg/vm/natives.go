package vm

import (
	"time"

	"github.com/gloxlang/glox/pkg/value"
)

// processStart is the reference point clock measures from.
var processStart = time.Now()

// nativeFns is the native function library installed into every fresh
// VM's globals. It holds a single native, clock, which returns the
// seconds elapsed since the process started.
var nativeFns = map[string]value.NativeFn{
	"clock": func(args []value.Value) value.Value {
		return value.Number(time.Since(processStart).Seconds())
	},
}
