package types

// NullType is the single value of the null type; Null is its only instance.
type NullType struct{}

// Null is the canonical null value; there is exactly one, so identity
// comparison (===) between two nulls is always true.
var Null = NullType{}

func (NullType) Tag() Tag      { return NULL }
func (NullType) String() string { return "null" }
func (NullType) Truth() bool   { return false }
