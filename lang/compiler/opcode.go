package compiler

import "fmt"

// Version is bumped whenever the bytecode format changes, forcing any saved
// checkpoint encoded against an older Version to fail restore with
// RESTORE_ERROR rather than silently misinterpreting bytes (§4.7).
const Version = 1

// Opcode identifies one bytecode instruction. Every opcode at or above
// OpcodeArgMin is followed by a fixed 4-byte little-endian operand; this
// trades the teacher's compact varint encoding for a fixed width, which
// removes an entire class of encode/decode bugs at the cost of some code
// size — a reasonable trade for a bytecode format that is never hand-edited
// and rarely serialized to disk outside of a checkpoint.
type Opcode uint8

const ( //nolint:revive
	NOP Opcode = iota

	// stack shuffling
	DUP
	DUP2 // duplicates the top two stack values as a pair, preserving order
	POP
	SWAP

	// comparisons (structural equality for EQL/NEQ, per §3.4; ordering via
	// the Ordered interface for LT/LE/GT/GE; CMP yields the <=> result)
	LT
	LE
	GT
	GE
	EQL
	NEQ
	CMP
	TEQL // type-strict equality: used only for switch pattern matching (§4.5),
	// where 1L must not match case 1 even though plain EQL would consider
	// them equal across the numeric tower

	// arithmetic (lang/vm maps each to its token.Token through opcodeToken)
	ADD
	SUB
	MUL
	DIV
	INTDIV
	MOD    // % : modulus, sign follows the right operand (§3.3)
	MODPCT // %% : true remainder, sign follows the left operand (§3.3)
	POW
	BITAND
	BITOR
	BITXOR
	SHL
	SHR  // >> : arithmetic (sign-extending)
	USHR // >>> : logical (zero-filling) — distinct opcode since the sign bit
	// can't be recovered once the operand is on the stack as a plain Value

	// unary
	UPLUS
	UMINUS
	BITNOT
	NOT

	NIL
	TRUE
	FALSE

	// --- opcodes with a 4-byte operand go below this line ---

	JMP      //  - JMP<addr>       -           unconditional
	JMPFALSE //  x JMPFALSE<addr>  -           pop, jump if falsy
	JMPTRUE  //  x JMPTRUE<addr>   -           pop, jump if truthy

	CONST     //  - CONST<idx>          value
	MAKELIST  //  x1..xn MAKELIST<n>    list
	MAKEMAP   //  - MAKEMAP<n>          map          (n unused; entries are added by SETMAPENTRY)
	SETMAPENTRY // map key value SETMAPENTRY<n> -  (n unused, kept 4-byte uniform;
	// mutates map in place and pushes nothing back, since every call site
	// keeps its own reference to map further down the stack and DUPs it
	// again before the next entry)
	APPEND    //  list elem APPEND<n>   -            (n unused)

	MAKECLOSURE // cell1..celln MAKECLOSURE<funcidx> fn   (n = the function's free-variable count)

	GETLOCAL
	SETLOCAL
	GETCELL     //  - GETCELL<local>     value   (read through a captured local's cell)
	SETCELL     //  value SETCELL<local> -       (write through a captured local's cell)
	GETFREE
	GETFREECELL
	SETFREECELL

	GETPREDECLARED
	GETUNIVERSAL

	GETATTR  //  recv GETATTR<name>      value
	SETATTR  //  recv value SETATTR<name> -
	GETINDEX //  recv idx GETINDEX<n>    value    (n unused)
	SETINDEX //  recv idx value SETINDEX<n> -     (n unused)
	SLICE    //  recv from to SLICE<n>   value    (n unused)

	NEWPOS   //  className arg1..argn NEWPOS<nargs>   instance
	NEWNAMED //  className namedMap NEWNAMED<n>      instance  (n unused)

	ITERPUSH //  iterable ITERPUSH<n>  -     (n unused; pushes onto the iterator stack)
	ITERJMP  //  - ITERJMP<addr>       elem  (fallthrough) or jumps to addr when exhausted
	ITERPOP  //  - ITERPOP<n>          -     (n unused)

	REGEXMATCH //  subject pattern REGEXMATCH<mods>   matched
	REGEXSUBST //  subject pattern repl REGEXSUBST<mods> result

	CALL //  fn arg1..argn CALL<n>   result   (n = positional arg count on stack)

	SAVEPOINT //  - SAVEPOINT<id>  -   marks a resumable point just before an async call

	RETURN //  value RETURN<n>  -   (n unused)

	DIE //  value DIE<n>  -   (n unused) raises a USER_DIE RuntimeError

	OpcodeArgMin = JMP
	OpcodeMax    = DIE
)

var opcodeNames = [...]string{
	ADD:            "add",
	APPEND:         "append",
	BITAND:         "bitand",
	BITNOT:         "bitnot",
	BITOR:          "bitor",
	BITXOR:         "bitxor",
	CALL:           "call",
	CMP:            "cmp",
	CONST:          "const",
	DIE:            "die",
	DIV:            "div",
	DUP:            "dup",
	DUP2:           "dup2",
	EQL:            "eql",
	FALSE:          "false",
	GE:             "ge",
	GETATTR:        "getattr",
	GETCELL:        "getcell",
	GETFREE:        "getfree",
	GETFREECELL:    "getfreecell",
	GETINDEX:       "getindex",
	GETLOCAL:       "getlocal",
	GETPREDECLARED: "getpredeclared",
	GETUNIVERSAL:   "getuniversal",
	GT:             "gt",
	INTDIV:         "intdiv",
	ITERJMP:        "iterjmp",
	ITERPOP:        "iterpop",
	ITERPUSH:       "iterpush",
	JMP:            "jmp",
	JMPFALSE:       "jmpfalse",
	JMPTRUE:        "jmptrue",
	LE:             "le",
	LT:             "lt",
	MAKECLOSURE:    "makeclosure",
	MAKELIST:       "makelist",
	MAKEMAP:        "makemap",
	MOD:            "mod",
	MODPCT:         "modpct",
	MUL:            "mul",
	NEQ:            "neq",
	NEWNAMED:       "newnamed",
	NEWPOS:         "newpos",
	NIL:            "nil",
	NOP:            "nop",
	NOT:            "not",
	POP:            "pop",
	POW:            "pow",
	REGEXMATCH:     "regexmatch",
	REGEXSUBST:     "regexsubst",
	RETURN:         "return",
	SAVEPOINT:      "savepoint",
	SETATTR:        "setattr",
	SETCELL:        "setcell",
	SETFREECELL:    "setfreecell",
	SETINDEX:       "setindex",
	SETLOCAL:       "setlocal",
	SETMAPENTRY:    "setmapentry",
	SHL:            "shl",
	SHR:            "shr",
	SLICE:          "slice",
	SUB:            "sub",
	SWAP:           "swap",
	TEQL:           "teql",
	TRUE:           "true",
	USHR:           "ushr",
	UMINUS:         "uminus",
	UPLUS:          "uplus",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}

// argSize is the fixed operand width, in bytes, for any opcode >= OpcodeArgMin.
const argSize = 4

func encodedSize(op Opcode) int {
	if op >= OpcodeArgMin {
		return 1 + argSize
	}
	return 1
}
