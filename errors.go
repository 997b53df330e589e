package jactl

import (
	"github.com/jactl-lang/jactl/lang/token"
	"github.com/jactl-lang/jactl/lang/vm"
)

// CompileError is the positioned diagnostic produced by CompileScript/
// CompileClass (§6 `CompileError{message, source_name, line, column,
// offset}`). It is token.Error rather than a new type defined in this
// package: lang/token already builds the "list of positioned errors,
// sortable, with a combined Unwrap() []error" shape this needs
// (ErrorList/errorListErr), the same way the teacher's own
// scanner.Error/scanner.ErrorList double as its compile-time diagnostic
// type. A failed CompileScript/CompileClass returns that wrapped error
// directly; use errors.As or the Unwrap() []error it exposes to recover
// the individual token.Error values.
type CompileError = token.Error

// RuntimeError is the error surfaced by CompiledScript.RunSync/RunAsync
// (§6 `RuntimeError{kind, message, source_name, offset, cause}`), defined
// in lang/vm since that is where every runtime failure is classified and
// constructed.
type RuntimeError = vm.RuntimeError

// ErrorKind re-exports lang/vm's runtime error taxonomy (§6) under the
// embedding package so a host never needs to import lang/vm directly.
type ErrorKind = vm.ErrorKind

const (
	NullDeref         = vm.NullDeref
	TypeError         = vm.TypeError
	ArityError        = vm.ArityError
	DivByZero         = vm.DivByZero
	IndexOutOfBounds  = vm.IndexOutOfBounds
	UnknownField      = vm.UnknownField
	ImmutableField    = vm.ImmutableField
	IteratorExhausted = vm.IteratorExhausted
	Timeout           = vm.Timeout
	Cancelled         = vm.Cancelled
	CheckpointError   = vm.CheckpointError
	RestoreError      = vm.RestoreError
	UserDie           = vm.UserDie
	Custom            = vm.Custom
)
