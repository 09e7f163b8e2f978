package testutil

import (
	"bytes"
)

// Value types.
const (
	I32 byte = 0x7F
	I64 byte = 0x7E
)

// ModuleBuilder assembles small WebAssembly binaries for tests that need a
// real guest without a compiler toolchain. Imports must be declared before
// functions so that function indices stay stable.
type ModuleBuilder struct {
	types    [][]byte
	imports  [][]byte
	funcs    []wasmFunc
	globals  [][]byte
	exports  [][]byte
	data     [][]byte
	memPages uint32
	hasMem   bool
	nImports uint32
}

type wasmFunc struct {
	body    []byte
	typeIdx uint32
}

// NewModuleBuilder returns an empty builder.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{}
}

// Memory declares one linear memory of pages 64 KiB pages, exported as
// "memory".
func (b *ModuleBuilder) Memory(pages uint32) *ModuleBuilder {
	b.memPages = pages
	b.hasMem = true
	b.exports = append(b.exports, concat(name("memory"), []byte{0x02}, uleb(0)))
	return b
}

// Import declares an imported function and returns its index.
func (b *ModuleBuilder) Import(module, field string, params, results []byte) uint32 {
	if len(b.funcs) > 0 {
		panic("testutil: imports must precede functions")
	}
	t := b.typeIndex(params, results)
	b.imports = append(b.imports, concat(name(module), name(field), []byte{0x00}, uleb(uint64(t))))
	b.nImports++
	return b.nImports - 1
}

// Global declares a mutable i32 global and returns its index.
func (b *ModuleBuilder) Global(init int32) uint32 {
	b.globals = append(b.globals, concat([]byte{I32, 0x01}, I32Const(init), []byte{0x0B}))
	return uint32(len(b.globals) - 1)
}

// Func defines a function from instruction sequences and returns its index.
// A non-empty export name exports it.
func (b *ModuleBuilder) Func(export string, params, results []byte, code ...[]byte) uint32 {
	t := b.typeIndex(params, results)
	body := concat(uleb(0), concat(code...), []byte{0x0B})
	b.funcs = append(b.funcs, wasmFunc{typeIdx: t, body: body})

	idx := b.nImports + uint32(len(b.funcs)) - 1
	if export != "" {
		b.exports = append(b.exports, concat(name(export), []byte{0x00}, uleb(uint64(idx))))
	}
	return idx
}

// Data places bytes at offset in memory 0 when the module is instantiated.
func (b *ModuleBuilder) Data(offset uint32, data []byte) *ModuleBuilder {
	b.data = append(b.data, concat([]byte{0x00}, I32Const(int32(offset)), []byte{0x0B}, uleb(uint64(len(data))), data))
	return b
}

// Build encodes the module.
func (b *ModuleBuilder) Build() []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00})

	writeSection(&out, 1, vec(b.types))
	writeSection(&out, 2, vec(b.imports))

	fidx := make([][]byte, len(b.funcs))
	for i, f := range b.funcs {
		fidx[i] = uleb(uint64(f.typeIdx))
	}
	writeSection(&out, 3, vec(fidx))

	if b.hasMem {
		writeSection(&out, 5, vec([][]byte{concat([]byte{0x00}, uleb(uint64(b.memPages)))}))
	}
	writeSection(&out, 6, vec(b.globals))
	writeSection(&out, 7, vec(b.exports))

	code := make([][]byte, len(b.funcs))
	for i, f := range b.funcs {
		code[i] = concat(uleb(uint64(len(f.body))), f.body)
	}
	writeSection(&out, 10, vec(code))
	writeSection(&out, 11, vec(b.data))

	return out.Bytes()
}

func (b *ModuleBuilder) typeIndex(params, results []byte) uint32 {
	enc := concat([]byte{0x60}, uleb(uint64(len(params))), params, uleb(uint64(len(results))), results)
	for i, t := range b.types {
		if bytes.Equal(t, enc) {
			return uint32(i)
		}
	}
	b.types = append(b.types, enc)
	return uint32(len(b.types) - 1)
}

// Instructions.

// I32Const pushes v.
func I32Const(v int32) []byte { return concat([]byte{0x41}, sleb(int64(v))) }

// I64Const pushes v.
func I64Const(v int64) []byte { return concat([]byte{0x42}, sleb(v)) }

// LocalGet pushes local i.
func LocalGet(i uint32) []byte { return concat([]byte{0x20}, uleb(uint64(i))) }

// GlobalGet pushes global i.
func GlobalGet(i uint32) []byte { return concat([]byte{0x23}, uleb(uint64(i))) }

// GlobalSet pops into global i.
func GlobalSet(i uint32) []byte { return concat([]byte{0x24}, uleb(uint64(i))) }

// Call calls function idx.
func Call(idx uint32) []byte { return concat([]byte{0x10}, uleb(uint64(idx))) }

// I32Add adds the two topmost i32 values.
func I32Add() []byte { return []byte{0x6A} }

// I32Store stores an i32 at the popped address plus offset.
func I32Store(offset uint32) []byte { return concat([]byte{0x36, 0x02}, uleb(uint64(offset))) }

// Drop discards the top of the stack.
func Drop() []byte { return []byte{0x1A} }

// Unreachable traps.
func Unreachable() []byte { return []byte{0x00} }

func writeSection(out *bytes.Buffer, id byte, content []byte) {
	if len(content) == 1 && content[0] == 0 {
		return
	}
	out.WriteByte(id)
	out.Write(uleb(uint64(len(content))))
	out.Write(content)
}

func vec(items [][]byte) []byte {
	return concat(uleb(uint64(len(items))), concat(items...))
}

func name(s string) []byte {
	return concat(uleb(uint64(len(s))), []byte(s))
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		c := byte(v & 0x7F)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		out = append(out, c)
		if done {
			return out
		}
	}
}
