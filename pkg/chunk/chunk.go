// Package chunk implements the bytecode buffer the compiler emits into
// and the VM executes from.
//
// A Chunk is three parallel pieces of state:
//
//   Code:      the instruction stream, one byte per opcode/operand byte
//   Lines:     source line number for Code[i], same length as Code
//   constants: the constant pool, indexed by a one-byte operand so a
//              chunk can hold at most 256 constants
//
// It never decides what an opcode means — that's pkg/vm's job — it only
// grows, in lockstep, as the compiler writes.
package chunk

import "github.com/gloxlang/glox/pkg/value"

const MaxConstants = 256

// Chunk is a single function's or the top-level script's compiled code.
type Chunk struct {
	Code  []byte
	Lines []int
	pool  []value.Value
}

func New() *Chunk { return &Chunk{} }

// Write appends one raw byte (an opcode or an operand byte) tagged with
// the source line it came from.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp is a typed convenience over Write for opcodes.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends v to the constant pool and returns its index, or
// an error if the pool is already at its 256-entry, one-byte-operand
// limit (spec.md §4.4/§4.6).
func (c *Chunk) AddConstant(v value.Value) (int, error) {
	if len(c.pool) >= MaxConstants {
		return 0, errTooManyConstants
	}
	c.pool = append(c.pool, v)
	return len(c.pool) - 1, nil
}

// Constants exposes the constant pool for GC root marking and for the
// VM's READ_CONSTANT. Satisfies value.Chunk.
func (c *Chunk) Constants() []value.Value { return c.pool }

// Constant returns the pool entry at index idx.
func (c *Chunk) Constant(idx int) value.Value { return c.pool[idx] }

// ConstantCount reports how many entries are in the pool.
func (c *Chunk) ConstantCount() int { return len(c.pool) }

// LineAt returns the source line recorded for instruction index ip.
// Satisfies value.Chunk for the VM's stack-trace rendering.
func (c *Chunk) LineAt(ip int) int {
	if ip < 0 || ip >= len(c.Lines) {
		return -1
	}
	return c.Lines[ip]
}

type chunkError string

func (e chunkError) Error() string { return string(e) }

const errTooManyConstants = chunkError("Too many constants in one chunk.")
