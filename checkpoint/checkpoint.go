// Package checkpoint implements the binary encoder/decoder of spec §4.7:
// serializing a continuation chain plus the live script globals into an
// opaque payload an env.Environment can persist and later hand back to
// resume a script instance. The wire format is TLV, byte-oriented, in the
// same spirit as lang/compiler's own fixed-width instruction encoding —
// applied here to continuation chains instead of bytecode.
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"

	"github.com/google/uuid"
	"github.com/jactl-lang/jactl/continuation"
	"github.com/jactl-lang/jactl/lang/types"
	"github.com/shopspring/decimal"
)

const (
	magic          = "JCK0"
	currentVersion = 1
)

// valueTag identifies one encoded types.Value on the wire; distinct from
// types.Tag so the wire format is decoupled from in-memory Tag numbering.
type valueTag byte

const (
	tagNull valueTag = iota
	tagBool
	tagByte
	tagInt
	tagLong
	tagDouble
	tagDecimal
	tagString
	tagList
	tagMap
	tagInstance
	tagFunctionRef
)

// ClassResolver looks up a class definition by its fully-qualified id, used
// to rehydrate INSTANCE values and to verify a restored instance's class
// hasn't drifted (VersionDigest mismatch is a RESTORE_ERROR).
type ClassResolver func(fqid string) (*types.ClassDef, bool)

// Chain is the decoded form of a checkpoint payload: enough for lang/vm to
// reconstruct a continuation.Node chain and the script's globals.
type Chain struct {
	InstanceID         uuid.UUID
	Sequence           uint32
	ContextID          string
	ClassVersionDigest string
	Globals            *types.Map
	Root               *continuation.Node // outermost frame first, via Child chaining inward
}

// Encode serializes chain's frames (outermost first) plus globals into the
// wire format described in spec §4.7. Cyclic values are rejected with an
// error rather than silently looping, per §9's "forbid cycles" resolution.
func Encode(instanceID uuid.UUID, seq uint32, contextID, classVersionDigest string, globals *types.Map, frames []*continuation.Node) ([]byte, error) {
	var body bytes.Buffer

	if err := writeValue(&body, globals, make(map[types.Value]bool)); err != nil {
		return nil, fmt.Errorf("checkpoint: encoding globals: %w", err)
	}
	writeString(&body, contextID)
	writeString(&body, classVersionDigest)

	binary.Write(&body, binary.BigEndian, uint32(len(frames))) //nolint:errcheck
	for _, fr := range frames {
		writeString(&body, fr.FunctionFQID)
		binary.Write(&body, binary.BigEndian, fr.MethodLocation) //nolint:errcheck

		binary.Write(&body, binary.BigEndian, uint32(len(fr.Locals))) //nolint:errcheck
		visited := make(map[types.Value]bool)
		for _, v := range fr.Locals {
			if err := writeValue(&body, v, visited); err != nil {
				return nil, fmt.Errorf("checkpoint: encoding frame %s locals: %w", fr.FunctionFQID, err)
			}
		}

		binary.Write(&body, binary.BigEndian, uint32(len(fr.Stack))) //nolint:errcheck
		for _, v := range fr.Stack {
			if err := writeValue(&body, v, visited); err != nil {
				return nil, fmt.Errorf("checkpoint: encoding frame %s stack: %w", fr.FunctionFQID, err)
			}
		}
	}

	var out bytes.Buffer
	out.WriteString(magic)
	binary.Write(&out, binary.BigEndian, uint16(currentVersion)) //nolint:errcheck
	idBytes, _ := instanceID.MarshalBinary()
	out.Write(idBytes)
	binary.Write(&out, binary.BigEndian, seq) //nolint:errcheck
	out.Write(body.Bytes())

	sum := crc32.ChecksumIEEE(out.Bytes())
	binary.Write(&out, binary.BigEndian, sum) //nolint:errcheck
	return out.Bytes(), nil
}

// Decode parses a checkpoint payload produced by Encode. classes resolves
// the class of each INSTANCE value; an unknown class, or a class whose
// VersionDigest differs from the one recorded for that instance, is
// reported here as a RESTORE_ERROR, alongside structural/CRC failures. The
// chain-level ClassVersionDigest is returned in Chain as read and is not
// compared against anything.
func Decode(data []byte, classes ClassResolver) (*Chain, error) {
	if len(data) < len(magic)+2+16+4+4 {
		return nil, fmt.Errorf("checkpoint: truncated payload")
	}
	want := crc32.ChecksumIEEE(data[:len(data)-4])
	got := binary.BigEndian.Uint32(data[len(data)-4:])
	if want != got {
		return nil, fmt.Errorf("checkpoint: CRC mismatch (corrupt payload)")
	}
	payload := data[:len(data)-4]

	r := bytes.NewReader(payload)
	var hdr [4]byte
	if _, err := r.Read(hdr[:]); err != nil || string(hdr[:]) != magic {
		return nil, fmt.Errorf("checkpoint: bad magic")
	}
	var version uint16
	binary.Read(r, binary.BigEndian, &version) //nolint:errcheck
	if version != currentVersion {
		return nil, fmt.Errorf("checkpoint: unsupported version %d", version)
	}
	var idBytes [16]byte
	if _, err := r.Read(idBytes[:]); err != nil {
		return nil, fmt.Errorf("checkpoint: truncated instance id")
	}
	instanceID, err := uuid.FromBytes(idBytes[:])
	if err != nil {
		return nil, fmt.Errorf("checkpoint: invalid instance id: %w", err)
	}
	var seq uint32
	binary.Read(r, binary.BigEndian, &seq) //nolint:errcheck

	globalsV, err := readValue(r, classes)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: decoding globals: %w", err)
	}
	globals, ok := globalsV.(*types.Map)
	if !ok {
		return nil, fmt.Errorf("checkpoint: globals payload is not a Map")
	}
	contextID, err := readString(r)
	if err != nil {
		return nil, err
	}
	digest, err := readString(r)
	if err != nil {
		return nil, err
	}

	var nframes uint32
	binary.Read(r, binary.BigEndian, &nframes) //nolint:errcheck

	nodes := make([]*continuation.Node, nframes)
	for i := range nodes {
		fqid, err := readString(r)
		if err != nil {
			return nil, err
		}
		var loc uint32
		binary.Read(r, binary.BigEndian, &loc) //nolint:errcheck

		var nlocals uint32
		binary.Read(r, binary.BigEndian, &nlocals) //nolint:errcheck
		locals := make([]types.Value, nlocals)
		for j := range locals {
			v, err := readValue(r, classes)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: decoding frame %s locals: %w", fqid, err)
			}
			locals[j] = v
		}

		var nstack uint32
		binary.Read(r, binary.BigEndian, &nstack) //nolint:errcheck
		stack := make([]types.Value, nstack)
		for j := range stack {
			v, err := readValue(r, classes)
			if err != nil {
				return nil, fmt.Errorf("checkpoint: decoding frame %s stack: %w", fqid, err)
			}
			stack[j] = v
		}

		nodes[i] = &continuation.Node{FunctionFQID: fqid, MethodLocation: loc, Locals: locals, Stack: stack}
	}
	// outer-most first on the wire; link Child inward to match
	// continuation.Node's own innermost-via-Child convention.
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].Child = nodes[i+1]
	}
	var root *continuation.Node
	if len(nodes) > 0 {
		root = nodes[0]
	}

	return &Chain{
		InstanceID:         instanceID,
		Sequence:           seq,
		ContextID:          contextID,
		ClassVersionDigest: digest,
		Globals:            globals,
		Root:               root,
	}, nil
}

func writeString(w *bytes.Buffer, s string) {
	binary.Write(w, binary.BigEndian, uint32(len(s))) //nolint:errcheck
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", fmt.Errorf("checkpoint: truncated string length")
	}
	buf := make([]byte, n)
	if _, err := r.Read(buf); err != nil {
		return "", fmt.Errorf("checkpoint: truncated string")
	}
	return string(buf), nil
}

func writeValue(w *bytes.Buffer, v types.Value, visited map[types.Value]bool) error {
	switch x := v.(type) {
	case types.NullType:
		w.WriteByte(byte(tagNull))
	case types.Bool:
		w.WriteByte(byte(tagBool))
		if x {
			w.WriteByte(1)
		} else {
			w.WriteByte(0)
		}
	case types.Byte:
		w.WriteByte(byte(tagByte))
		w.WriteByte(byte(x))
	case types.Int:
		w.WriteByte(byte(tagInt))
		binary.Write(w, binary.BigEndian, int32(x)) //nolint:errcheck
	case types.Long:
		w.WriteByte(byte(tagLong))
		binary.Write(w, binary.BigEndian, int64(x)) //nolint:errcheck
	case types.Double:
		w.WriteByte(byte(tagDouble))
		binary.Write(w, binary.BigEndian, float64(x)) //nolint:errcheck
	case types.Decimal:
		w.WriteByte(byte(tagDecimal))
		writeString(w, x.String())
	case types.String:
		w.WriteByte(byte(tagString))
		writeString(w, string(x))
	case *types.List:
		if visited[v] {
			return fmt.Errorf("cyclic value cannot be checkpointed")
		}
		visited[v] = true
		w.WriteByte(byte(tagList))
		elems := x.Elems()
		binary.Write(w, binary.BigEndian, uint32(len(elems))) //nolint:errcheck
		for _, e := range elems {
			if err := writeValue(w, e, visited); err != nil {
				return err
			}
		}
		delete(visited, v)
	case *types.Map:
		if visited[v] {
			return fmt.Errorf("cyclic value cannot be checkpointed")
		}
		visited[v] = true
		w.WriteByte(byte(tagMap))
		items := x.Items()
		binary.Write(w, binary.BigEndian, uint32(len(items))) //nolint:errcheck
		for _, kv := range items {
			if err := writeValue(w, kv.Key, visited); err != nil {
				return err
			}
			if err := writeValue(w, kv.Value, visited); err != nil {
				return err
			}
		}
		delete(visited, v)
	case *types.Instance:
		if visited[v] {
			return fmt.Errorf("cyclic value cannot be checkpointed")
		}
		visited[v] = true
		w.WriteByte(byte(tagInstance))
		writeString(w, x.Class.ID)
		writeString(w, x.Class.VersionDigest)
		names := make([]string, 0, len(x.Values))
		for name := range x.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		binary.Write(w, binary.BigEndian, uint32(len(names))) //nolint:errcheck
		for _, name := range names {
			writeString(w, name)
			if err := writeValue(w, x.Values[name], visited); err != nil {
				return err
			}
		}
		delete(visited, v)
	case *types.Function:
		w.WriteByte(byte(tagFunctionRef))
		writeString(w, x.Name())
		binary.Write(w, binary.BigEndian, uint32(len(x.Captured))) //nolint:errcheck
		for _, c := range x.Captured {
			if err := writeValue(w, c, visited); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("checkpoint: unsupported value type %T", v)
	}
	return nil
}

func readValue(r *bytes.Reader, classes ClassResolver) (types.Value, error) {
	tb, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("checkpoint: truncated value tag")
	}
	switch valueTag(tb) {
	case tagNull:
		return types.Null, nil
	case tagBool:
		b, _ := r.ReadByte()
		return types.Bool(b != 0), nil
	case tagByte:
		b, _ := r.ReadByte()
		return types.Byte(b), nil
	case tagInt:
		var i int32
		binary.Read(r, binary.BigEndian, &i) //nolint:errcheck
		return types.Int(i), nil
	case tagLong:
		var i int64
		binary.Read(r, binary.BigEndian, &i) //nolint:errcheck
		return types.Long(i), nil
	case tagDouble:
		var f float64
		binary.Read(r, binary.BigEndian, &f) //nolint:errcheck
		return types.Double(f), nil
	case tagDecimal:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("checkpoint: invalid decimal %q: %w", s, err)
		}
		return types.Decimal{D: d}, nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return types.String(s), nil
	case tagList:
		var n uint32
		binary.Read(r, binary.BigEndian, &n) //nolint:errcheck
		elems := make([]types.Value, n)
		for i := range elems {
			v, err := readValue(r, classes)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return types.NewList(elems), nil
	case tagMap:
		var n uint32
		binary.Read(r, binary.BigEndian, &n) //nolint:errcheck
		m := types.NewMap(int(n))
		for i := uint32(0); i < n; i++ {
			k, err := readValue(r, classes)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r, classes)
			if err != nil {
				return nil, err
			}
			m.SetKey(k, v) //nolint:errcheck
		}
		return m, nil
	case tagInstance:
		fqid, err := readString(r)
		if err != nil {
			return nil, err
		}
		digest, err := readString(r)
		if err != nil {
			return nil, err
		}
		var n uint32
		binary.Read(r, binary.BigEndian, &n) //nolint:errcheck
		named := make(map[string]types.Value, n)
		for i := uint32(0); i < n; i++ {
			name, err := readString(r)
			if err != nil {
				return nil, err
			}
			v, err := readValue(r, classes)
			if err != nil {
				return nil, err
			}
			named[name] = v
		}
		cd, ok := classes(fqid)
		if !ok {
			return nil, fmt.Errorf("checkpoint: unknown class %q (RESTORE_ERROR)", fqid)
		}
		if cd.VersionDigest != digest {
			return nil, fmt.Errorf("checkpoint: class %q version digest mismatch (RESTORE_ERROR)", fqid)
		}
		return types.NewNamed(cd, named)
	case tagFunctionRef:
		name, err := readString(r)
		if err != nil {
			return nil, err
		}
		var n uint32
		binary.Read(r, binary.BigEndian, &n) //nolint:errcheck
		captured := make([]types.Value, n)
		for i := range captured {
			v, err := readValue(r, classes)
			if err != nil {
				return nil, err
			}
			captured[i] = v
		}
		// The resolved Proto is wired back up by the VM layer, which knows
		// the live Program; here we return a stub carrying just the name and
		// captures, replaced by lang/vm's resume path before use.
		return types.NewClosure(stubProto(name), captured), nil
	default:
		return nil, fmt.Errorf("checkpoint: unknown value tag %d", tb)
	}
}

type stubProto string

func (s stubProto) Name() string  { return string(s) }
func (s stubProto) IsAsync() bool { return false }
