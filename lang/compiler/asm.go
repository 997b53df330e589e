package compiler

import (
	"bytes"
	"fmt"
)

// Dasm renders a compiled Program to a human-readable textual form, one
// function at a time, for use in compiler tests and debugging. Unlike the
// teacher's asm/dasm pair this is disassembly only: nothing in this module
// authors bytecode by hand from text, so there is no matching Asm parser to
// keep in sync with the fixed 4-byte operand encoding.
func Dasm(p *Program) (string, error) {
	d := &dasm{p: p, buf: new(bytes.Buffer)}
	if len(p.Names) > 0 {
		d.write("names:\n")
		for i, n := range p.Names {
			d.writef("\t%03d %s\n", i, n)
		}
	}
	if len(p.Constants) > 0 {
		d.write("constants:\n")
		for i, c := range p.Constants {
			d.writef("\t%03d %s\n", i, c.String())
		}
	}
	if p.Toplevel != nil {
		d.function(p.Toplevel)
	}
	for _, fn := range p.Functions {
		if fn == p.Toplevel {
			continue
		}
		d.write("\n")
		d.function(fn)
	}
	return d.buf.String(), d.err
}

type dasm struct {
	p   *Program
	buf *bytes.Buffer
	err error
}

func (d *dasm) function(fn *Funcode) {
	if d.err != nil {
		return
	}
	d.writef("function %s stack=%d locals=%d\n", fn.Name, fn.MaxStack, len(fn.Locals))
	for i, l := range fn.Locals {
		cell := ""
		for _, c := range fn.Cells {
			if c == i {
				cell = " (cell)"
			}
		}
		d.writef("\tlocal %03d %s%s\n", i, l.Name, cell)
	}
	for i, fv := range fn.Freevars {
		d.writef("\tfreevar %03d %s\n", i, fv.Name)
	}

	code := fn.Code
	for pc := 0; pc < len(code); {
		op := Opcode(code[pc])
		if op >= OpcodeArgMin {
			if pc+1+argSize > len(code) {
				d.err = fmt.Errorf("function %s: truncated operand at pc %d", fn.Name, pc)
				return
			}
			arg := decodeArg(code[pc+1:])
			d.writef("\t%04d %s %d\n", pc, op, arg)
			pc += 1 + argSize
		} else {
			d.writef("\t%04d %s\n", pc, op)
			pc++
		}
	}
}

func decodeArg(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (d *dasm) writef(s string, args ...any) {
	d.write(fmt.Sprintf(s, args...))
}

func (d *dasm) write(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.buf.WriteString(s)
}
