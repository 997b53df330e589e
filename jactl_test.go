package jactl_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jactl-lang/jactl"
	"github.com/jactl-lang/jactl/env"
	"github.com/jactl-lang/jactl/lang/types"
)

// sleepFunc is the demonstration async host function named in SPEC_FULL.md
// §6: `sleep(ms, v)` suspends for ms milliseconds then resumes with v,
// registered only by tests that need an async host boundary to exercise
// suspension transparency (never part of the library's own Universal
// table).
func sleepFunc() *types.Function {
	return types.NewAsyncNative("sleep", func(args []types.Value) (types.Value, *types.AsyncRequest, error) {
		if len(args) != 2 {
			return nil, nil, fmt.Errorf("sleep expects (ms, value)")
		}
		ms, err := asInt64(args[0])
		if err != nil {
			return nil, nil, err
		}
		value := args[1]
		req := &types.AsyncRequest{NonBlocking: &types.NonBlockingCall{
			Starter: func(resumer func(types.Value, error)) {
				time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
					resumer(value, nil)
				})
			},
		}}
		return nil, req, nil
	})
}

func asInt64(v types.Value) (int64, error) {
	switch x := v.(type) {
	case types.Int:
		return int64(x), nil
	case types.Long:
		return int64(x), nil
	case types.Byte:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("sleep: ms must be a number, got %s", v.Tag())
	}
}

// capturingEnv wraps env.Inline and records the bytes of the most recent
// checkpoint it was asked to save, so a test can decode them the way a
// real host would read back what it persisted (env.Inline itself discards
// a checkpoint as soon as the run that created it terminates).
type capturingEnv struct {
	*env.Inline
	mu    sync.Mutex
	bytes []byte
}

func newCapturingEnv() *capturingEnv {
	return &capturingEnv{Inline: env.NewInline()}
}

func (e *capturingEnv) SaveCheckpoint(id string, cpid uint32, data []byte, source string, offset int, result types.Value, resumer func(types.Value, error)) {
	e.mu.Lock()
	e.bytes = data
	e.mu.Unlock()
	e.Inline.SaveCheckpoint(id, cpid, data, source, offset, result, resumer)
}

func (e *capturingEnv) lastBytes() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bytes
}

var _ env.Environment = (*capturingEnv)(nil)

func compileScript(t *testing.T, ctx *jactl.CompilationContext, name, src string) *jactl.CompiledScript {
	t.Helper()
	cs, err := jactl.CompileScript(ctx, name, src)
	require.NoError(t, err)
	return cs
}

// TestFibonacciTyped is scenario S1.
func TestFibonacciTyped(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "s1", `int fib(int x){ x<=2?1:fib(x-1)+fib(x-2) } fib(10)`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.EqualValues(t, 55, jactl.FromValue(result))
}

// TestRegexCaptureNModifier is scenario S2.
func TestRegexCaptureNModifier(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "s2", `'rate=-1234' =~ /(\w+)=([\d-]+)/n; [$1,$2,$2 instanceof long]`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	got, ok := jactl.FromValue(result).([]any)
	require.True(t, ok, "expected a list result, got %T", jactl.FromValue(result))
	require.Len(t, got, 3)
	assert.Equal(t, "rate", got[0])
	assert.EqualValues(t, -1234, got[1])
	assert.Equal(t, true, got[2])
}

// TestSwitchDestructuring is scenario S3.
func TestSwitchDestructuring(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "s3", `def x=[1,[2,3]]; switch(x){ [a,[b,${a+2}]] -> a+b; default -> 0 }`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.EqualValues(t, 3, jactl.FromValue(result))
}

// TestAsyncTransparency is scenario S4: a synchronously- and
// asynchronously-resolved host function must be indistinguishable from
// the script's point of view (§8 testable property 3).
func TestAsyncTransparency(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	ctx.RegisterFunction("sleep", sleepFunc())
	cs := compileScript(t, ctx, "s4", `[1,2,3].map{ sleep(1, it*it) }.filter{ it != 4 }.sum()`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.EqualValues(t, 10, jactl.FromValue(result))
}

// TestCheckpointResume is scenario S5.
func TestCheckpointResume(t *testing.T) {
	ce := newCapturingEnv()
	ctx := jactl.NewContext(jactl.Config{}, ce)
	cs := compileScript(t, ctx, "s5", `def r = checkpoint(commit:{false}, recover:{true}); r ? 'r' : 's'`)

	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.Equal(t, "s", jactl.FromValue(result))

	data := ce.lastBytes()
	require.NotEmpty(t, data, "expected a checkpoint to have been saved")

	committed, rerr := cs.Resume(data, types.Bool(false))
	require.Nil(t, rerr)
	assert.Equal(t, "s", jactl.FromValue(committed))

	recovered, rerr := cs.Resume(data, types.Bool(true))
	require.Nil(t, rerr)
	assert.Equal(t, "r", jactl.FromValue(recovered))
}

// TestModulusSemantics is scenario S6.
func TestModulusSemantics(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "s6", `[-2 % 5, -2 %% 5]`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	got, ok := jactl.FromValue(result).([]any)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.EqualValues(t, 3, got[0])
	assert.EqualValues(t, -2, got[1])
}

// TestEvaluationDeterminism is §8 testable property 1.
func TestEvaluationDeterminism(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "determinism", `def acc=0; for(int i=0;i<5;i++){ acc+=i } acc`)

	r1, rerr1 := cs.RunSync(nil)
	require.Nil(t, rerr1)
	r2, rerr2 := cs.RunSync(nil)
	require.Nil(t, rerr2)
	assert.Equal(t, jactl.FromValue(r1), jactl.FromValue(r2))
}

// TestAutoVivification is §8 testable property 5.
func TestAutoVivification(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "vivify", `def x=[:]; x.a.b[2].c = 7; x`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	got, ok := jactl.FromValue(result).(map[string]any)
	require.True(t, ok)
	a, ok := got["a"].(map[string]any)
	require.True(t, ok)
	b, ok := a["b"].([]any)
	require.True(t, ok)
	require.Len(t, b, 3)
	assert.Nil(t, b[0])
	assert.Nil(t, b[1])
	elem, ok := b[2].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 7, elem["c"])
}

// TestSwitchTypeStrictness is §8 testable property 6.
func TestSwitchTypeStrictness(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "strict", `switch (1L) { 1 -> 'a'; default -> 'b' }`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.Equal(t, "b", jactl.FromValue(result))
}

// TestGlobalsRoundTrip exercises Globals/ToValue/FromValue with an int and
// a map global (two of the types in §6's "Globals value space").
func TestGlobalsRoundTrip(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	cs := compileScript(t, ctx, "globals", `n + m.count`)

	g := jactl.NewGlobals().
		Set("n", 3).
		Set("m", map[string]any{"count": 4})
	result, rerr := cs.RunSync(g)
	require.Nil(t, rerr)
	assert.EqualValues(t, 7, jactl.FromValue(result))
}

// TestRegisterMethod exercises a host-registered method extending a
// built-in Tag (§6 register_method).
func TestRegisterMethod(t *testing.T) {
	ctx := jactl.NewContext(jactl.Config{}, env.NewInline())
	ctx.RegisterMethod(types.STRING, "shout", types.NewNative("shout", func(args []types.Value) (types.Value, error) {
		s, ok := args[0].(types.String)
		if !ok {
			return nil, fmt.Errorf("type error: shout receiver must be a string")
		}
		return types.String(string(s) + "!"), nil
	}))
	cs := compileScript(t, ctx, "shout", `'hi'.shout()`)
	result, rerr := cs.RunSync(nil)
	require.Nil(t, rerr)
	assert.Equal(t, "hi!", jactl.FromValue(result))
}
