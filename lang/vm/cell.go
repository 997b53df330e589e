package vm

import "github.com/jactl-lang/jactl/lang/types"

// cell boxes one captured local, mirroring the teacher's own machine.cell.
// A Funcode's Cells-listed slots hold a *cell instead of a raw Value once
// the frame starts running, and GETFREECELL/SETFREECELL dereference the
// matching entry of a Function's Captured slice, which is populated from
// these same boxes by MAKECLOSURE.
//
// cell implements types.Value only so it can ride on the operand stack and
// in a locals slot between the GETLOCAL that relays a captured local's raw
// box (pushCapturedCell, lang/compiler) and the MAKECLOSURE that consumes
// it; no opcode ever inspects a cell's Tag/String/Truth for real.
type cell struct{ v types.Value }

func (c *cell) Tag() types.Tag  { return types.ANY }
func (c *cell) String() string  { return "cell(" + c.v.String() + ")" }
func (c *cell) Truth() bool     { return true }

var _ types.Value = (*cell)(nil)
