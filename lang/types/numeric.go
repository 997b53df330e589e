package types

import (
	"fmt"
	"math"

	"github.com/jactl-lang/jactl/lang/token"
	"github.com/shopspring/decimal"
)

// Byte, Int, Long and Double are the concrete numeric value types; Decimal
// wraps shopspring/decimal for arbitrary-precision arithmetic (§3.3).
type (
	Byte   uint8
	Int    int32
	Long   int64
	Double float64
	Decimal struct{ D decimal.Decimal }
)

// DefaultMinScale is the minimum scale (§3.3) added to the larger operand's
// scale on Decimal division when a CompilationContext does not override it.
const DefaultMinScale = 10

func (Byte) Tag() Tag    { return BYTE }
func (Int) Tag() Tag     { return INT }
func (Long) Tag() Tag    { return LONG }
func (Double) Tag() Tag  { return DOUBLE }
func (Decimal) Tag() Tag { return DECIMAL }

func (b Byte) String() string   { return fmt.Sprintf("%d", uint8(b)) }
func (i Int) String() string    { return fmt.Sprintf("%d", int32(i)) }
func (l Long) String() string   { return fmt.Sprintf("%d", int64(l)) }
func (d Double) String() string { return fmt.Sprintf("%g", float64(d)) }
func (d Decimal) String() string { return d.D.String() }

func (b Byte) Truth() bool   { return b != 0 }
func (i Int) Truth() bool    { return i != 0 }
func (l Long) Truth() bool   { return l != 0 }
func (d Double) Truth() bool { return d != 0 }
func (d Decimal) Truth() bool { return !d.D.IsZero() }

// asFloat64/asDecimal/asInt64 widen a numeric Value for arithmetic purposes.

func asInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case Byte:
		return int64(n), true
	case Int:
		return int64(n), true
	case Long:
		return int64(n), true
	}
	return 0, false
}

func asFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case Byte:
		return float64(n), true
	case Int:
		return float64(n), true
	case Long:
		return float64(n), true
	case Double:
		return float64(n), true
	}
	return 0, false
}

func asDecimal(v Value) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case Byte:
		return decimal.NewFromInt(int64(n)), true
	case Int:
		return decimal.NewFromInt(int64(n)), true
	case Long:
		return decimal.NewFromInt(int64(n)), true
	case Decimal:
		return n.D, true
	}
	return decimal.Decimal{}, false
}

func typeMismatch(op string, x, y Value) error {
	return fmt.Errorf("type error: cannot apply %s to %s and %s", op, x.Tag(), y.Tag())
}

// numericRank orders the numeric tower for widening: INT < LONG < DECIMAL,
// INT < LONG < DOUBLE; DECIMAL and DOUBLE are incomparable (§3.3) and that
// case is rejected explicitly before rank is consulted.
func numericRank(t Tag) int {
	switch t {
	case BYTE:
		return 0
	case INT:
		return 1
	case LONG:
		return 2
	case DOUBLE, DECIMAL:
		return 3
	default:
		return -1
	}
}

// Binary implements the numeric tower's arithmetic/bitwise/shift/comparison
// operators across any pair of numeric operands, widening to the larger
// type. minScale configures Decimal division (§3.3); pass DefaultMinScale
// when the CompilationContext has not overridden it.
func Binary(op token.Token, x, y Value, minScale int) (Value, error) {
	xt, yt := x.Tag(), y.Tag()
	if !xt.IsNumeric() || !yt.IsNumeric() {
		return nil, typeMismatch(op.String(), x, y)
	}
	if (xt == DECIMAL && yt == DOUBLE) || (xt == DOUBLE && yt == DECIMAL) {
		return nil, fmt.Errorf("type error: Decimal and double are incomparable")
	}

	switch op {
	case token.LSHIFT, token.RSHIFT, token.URSHIFT, token.AMP, token.PIPE, token.CARET:
		return intBinary(op, x, y)
	}

	target := xt
	if numericRank(yt) > numericRank(xt) {
		target = yt
	}

	switch target {
	case BYTE, INT, LONG:
		xi, _ := asInt64(x)
		yi, _ := asInt64(y)
		return intArith(op, xi, yi, target)
	case DOUBLE:
		xf, _ := asFloat64(x)
		yf, _ := asFloat64(y)
		return doubleArith(op, xf, yf)
	case DECIMAL:
		xd, _ := asDecimal(x)
		yd, _ := asDecimal(y)
		return decimalArith(op, xd, yd, minScale)
	}
	return nil, typeMismatch(op.String(), x, y)
}

func narrow(target Tag, v int64) Value {
	switch target {
	case BYTE:
		return Byte(uint8(v))
	case INT:
		return Int(int32(v))
	default:
		return Long(v)
	}
}

func intBinary(op token.Token, x, y Value) (Value, error) {
	xi, ok1 := asInt64(x)
	yi, ok2 := asInt64(y)
	if !ok1 || !ok2 {
		return nil, typeMismatch(op.String(), x, y)
	}
	target := x.Tag()
	if numericRank(y.Tag()) > numericRank(x.Tag()) {
		target = y.Tag()
	}
	switch op {
	case token.AMP:
		return narrow(target, xi&yi), nil
	case token.PIPE:
		return narrow(target, xi|yi), nil
	case token.CARET:
		return narrow(target, xi^yi), nil
	case token.LSHIFT:
		return narrow(target, xi<<uint(yi)), nil
	case token.RSHIFT:
		return narrow(target, xi>>uint(yi)), nil
	case token.URSHIFT:
		return narrow(target, int64(uint64(xi)>>uint(yi))), nil
	}
	return nil, typeMismatch(op.String(), x, y)
}

// jmod implements the spec's modulus ("%"): sign follows b.
func jmod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r, nil
}

// jrem implements the spec's true remainder ("%%"): sign follows a.
func jrem(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a % b, nil
}

func intArith(op token.Token, x, y int64, target Tag) (Value, error) {
	switch op {
	case token.PLUS:
		return narrow(target, x+y), nil
	case token.MINUS:
		return narrow(target, x-y), nil
	case token.STAR:
		return narrow(target, x*y), nil
	case token.SLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return narrow(target, x/y), nil
	case token.PERCENT:
		r, err := jmod(x, y)
		if err != nil {
			return nil, err
		}
		return narrow(target, r), nil
	case token.PERCENTPCT:
		r, err := jrem(x, y)
		if err != nil {
			return nil, err
		}
		return narrow(target, r), nil
	case token.STARSTAR:
		return narrow(target, ipow(x, y)), nil
	case token.LT:
		return Bool(x < y), nil
	case token.GT:
		return Bool(x > y), nil
	case token.LE:
		return Bool(x <= y), nil
	case token.GE:
		return Bool(x >= y), nil
	case token.EQEQ:
		return Bool(x == y), nil
	case token.NEQ:
		return Bool(x != y), nil
	}
	return nil, fmt.Errorf("unsupported integer operator %s", op)
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func doubleArith(op token.Token, x, y float64) (Value, error) {
	switch op {
	case token.PLUS:
		return Double(x + y), nil
	case token.MINUS:
		return Double(x - y), nil
	case token.STAR:
		return Double(x * y), nil
	case token.SLASH:
		if y == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return Double(x / y), nil
	case token.PERCENT:
		return Double(math.Mod(math.Mod(x, y)+y, y)), nil
	case token.PERCENTPCT:
		return Double(math.Mod(x, y)), nil
	case token.STARSTAR:
		return Double(math.Pow(x, y)), nil
	case token.LT:
		return Bool(x < y), nil
	case token.GT:
		return Bool(x > y), nil
	case token.LE:
		return Bool(x <= y), nil
	case token.GE:
		return Bool(x >= y), nil
	case token.EQEQ:
		return Bool(x == y), nil
	case token.NEQ:
		return Bool(x != y), nil
	}
	return nil, fmt.Errorf("unsupported double operator %s", op)
}

func decimalArith(op token.Token, x, y decimal.Decimal, minScale int) (Value, error) {
	switch op {
	case token.PLUS:
		return Decimal{x.Add(y)}, nil
	case token.MINUS:
		return Decimal{x.Sub(y)}, nil
	case token.STAR:
		return Decimal{x.Mul(y)}, nil
	case token.SLASH:
		if y.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		scale := x.Exponent()
		if y.Exponent() < scale {
			scale = y.Exponent()
		}
		div := int32(minScale) - scale
		if div < int32(minScale) {
			div = int32(minScale)
		}
		return Decimal{x.DivRound(y, div)}, nil
	case token.PERCENT:
		if y.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		r := x.Mod(y)
		if !r.IsZero() && (r.Sign() < 0) != (y.Sign() < 0) {
			r = r.Add(y)
		}
		return Decimal{r}, nil
	case token.PERCENTPCT:
		if y.IsZero() {
			return nil, fmt.Errorf("division by zero")
		}
		return Decimal{x.Mod(y)}, nil
	case token.LT:
		return Bool(x.Cmp(y) < 0), nil
	case token.GT:
		return Bool(x.Cmp(y) > 0), nil
	case token.LE:
		return Bool(x.Cmp(y) <= 0), nil
	case token.GE:
		return Bool(x.Cmp(y) >= 0), nil
	case token.EQEQ:
		return Bool(x.Equal(y)), nil
	case token.NEQ:
		return Bool(!x.Equal(y)), nil
	}
	return nil, fmt.Errorf("unsupported Decimal operator %s", op)
}

// Unary implements unary +, -, ~ over a numeric operand.
func Unary(op token.Token, x Value) (Value, error) {
	switch n := x.(type) {
	case Byte:
		switch op {
		case token.MINUS:
			return Int(-int32(n)), nil
		case token.PLUS:
			return n, nil
		case token.TILDE:
			return Int(^int32(n)), nil
		}
	case Int:
		switch op {
		case token.MINUS:
			return Int(-n), nil
		case token.PLUS:
			return n, nil
		case token.TILDE:
			return Int(^n), nil
		}
	case Long:
		switch op {
		case token.MINUS:
			return Long(-n), nil
		case token.PLUS:
			return n, nil
		case token.TILDE:
			return Long(^n), nil
		}
	case Double:
		switch op {
		case token.MINUS:
			return Double(-n), nil
		case token.PLUS:
			return n, nil
		}
	case Decimal:
		switch op {
		case token.MINUS:
			return Decimal{n.D.Neg()}, nil
		case token.PLUS:
			return n, nil
		}
	}
	return nil, typeMismatch(op.String(), x, x)
}

// Cmp implements Ordered for the numeric types, by delegating to Binary's
// comparison path after widening.
func (b Byte) Cmp(y Value, depth int) (int, error)   { return numCmp(b, y) }
func (i Int) Cmp(y Value, depth int) (int, error)     { return numCmp(i, y) }
func (l Long) Cmp(y Value, depth int) (int, error)    { return numCmp(l, y) }
func (d Double) Cmp(y Value, depth int) (int, error)  { return numCmp(d, y) }
func (d Decimal) Cmp(y Value, depth int) (int, error) { return numCmp(d, y) }

func numCmp(x, y Value) (int, error) {
	if !y.Tag().IsNumeric() {
		return 0, typeMismatch("<=>", x, y)
	}
	lt, err := Binary(token.LT, x, y, DefaultMinScale)
	if err != nil {
		return 0, err
	}
	if bool(lt.(Bool)) {
		return -1, nil
	}
	gt, err := Binary(token.GT, x, y, DefaultMinScale)
	if err != nil {
		return 0, err
	}
	if bool(gt.(Bool)) {
		return 1, nil
	}
	return 0, nil
}
