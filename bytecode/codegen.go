package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Codegen assembles one bytecode program (a think/action body or a named
// function) and resolves its internal jump/state-label references once the
// surrounding layout is known (spec §4.C "label fixups").
//
// Two kinds of forward reference are tracked separately, matching §4.C:
//   - labelRefs: JRC targets, patched as a PC-relative i32 once the target
//     label (local to this program) is known.
//   - stateLabelRefs: LOADI_I32 operands that will later be consumed by
//     GOSTATE, patched as an absolute state-record offset once the
//     enclosing state block's local label map is supplied.
type Codegen struct {
	code           []byte
	labels         map[string]int
	stateLabels    map[string]int32
	labelRefs      []labelRef
	stateLabelRefs []labelRef
	annotations    map[string]string
	autolabel      int
}

type labelRef struct {
	name string
	pos  int
}

// NewCodegen returns an empty Codegen.
func NewCodegen() *Codegen {
	return &Codegen{
		labels:      make(map[string]int),
		annotations: make(map[string]string),
	}
}

// Clone returns a deep-enough copy suitable for injecting a different
// enclosing block's local label map (spec §4.C pass 2: "resolve its
// think/action function names to Codegen objects, clone them").
func (c *Codegen) Clone() *Codegen {
	clone := &Codegen{
		code:        append([]byte(nil), c.code...),
		labels:      copyStringIntMap(c.labels),
		stateLabels: copyStringI32Map(c.stateLabels),
		annotations: copyStringStringMap(c.annotations),
		autolabel:   c.autolabel,
	}
	clone.labelRefs = append([]labelRef(nil), c.labelRefs...)
	clone.stateLabelRefs = append([]labelRef(nil), c.stateLabelRefs...)
	return clone
}

func copyStringIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringI32Map(m map[string]int32) map[string]int32 {
	out := make(map[string]int32, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FunctionCall emits PUSH_U8 fnID; CALL — the lowering of the DSL's `call`
// word when invoked immediately after pushing a callback id.
func (c *Codegen) FunctionCall(fnID uint8) *Codegen {
	c.code = append(c.code, byte(OpPushU8), fnID, byte(OpCall))
	return c
}

// LoadI32 emits LOADI_I32 v.
func (c *Codegen) LoadI32(v int32) *Codegen {
	c.code = append(c.code, byte(OpLoadI32))
	c.code = appendI32(c.code, v)
	return c
}

// LoadU8 emits PUSH_U8 v.
func (c *Codegen) LoadU8(v uint8) *Codegen {
	c.code = append(c.code, byte(OpPushU8), v)
	return c
}

// Trap emits TRAP.
func (c *Codegen) Trap() *Codegen {
	c.code = append(c.code, byte(OpTrap))
	return c
}

// Add emits ADD.
func (c *Codegen) Add() *Codegen {
	c.code = append(c.code, byte(OpAdd))
	return c
}

// Ceq emits CEQ.
func (c *Codegen) Ceq() *Codegen {
	c.code = append(c.code, byte(OpCeq))
	return c
}

// Not emits NOT, with a peephole rule: two NOTs in a row cancel (spec §4.B
// "double-NOT collapses", §8 property 7).
func (c *Codegen) Not() *Codegen {
	if len(c.code) > 0 && c.code[len(c.code)-1] == byte(OpNot) {
		c.code = c.code[:len(c.code)-1]
	} else {
		c.code = append(c.code, byte(OpNot))
	}
	return c
}

// Call emits a bare CALL (used when the fn-id was pushed by other means).
func (c *Codegen) Call() *Codegen {
	c.code = append(c.code, byte(OpCall))
	return c
}

// Dup emits DUP.
func (c *Codegen) Dup() *Codegen {
	c.code = append(c.code, byte(OpDup))
	return c
}

// Stop emits STOP, unless the program already ends with one (spec §4.B: "a
// trailing STOP is inserted only if not already present").
func (c *Codegen) Stop() *Codegen {
	if len(c.code) == 0 || c.code[len(c.code)-1] != byte(OpStop) {
		c.code = append(c.code, byte(OpStop))
	}
	return c
}

// Jrc emits JRC with a literal relative offset, already measured from the
// position right after the 4-byte operand (spec §4.B: "JRC offsets are
// relative to the PC after the operand has been consumed").
func (c *Codegen) Jrc(offset int32) *Codegen {
	c.code = append(c.code, byte(OpJrc))
	c.code = appendI32(c.code, offset)
	return c
}

// JrcLabel emits JRC with a placeholder operand, recording a local-jump
// fixup to be resolved by Finalize.
func (c *Codegen) JrcLabel(name string) *Codegen {
	c.code = append(c.code, byte(OpJrc))
	c.labelRefs = append(c.labelRefs, labelRef{name, len(c.code)})
	c.code = appendI32(c.code, 0)
	return c
}

// Label records name at the current code position.
func (c *Codegen) Label(name string) *Codegen {
	if c.labels == nil {
		c.labels = make(map[string]int)
	}
	c.labels[name] = len(c.code)
	return c
}

// LoadStateLabel emits LOADI_I32 with a placeholder operand, recording a
// state-label fixup: the `@label` word (spec §4.D) pushes a state-record
// offset for a later GOSTATE to consume.
func (c *Codegen) LoadStateLabel(name string) *Codegen {
	c.code = append(c.code, byte(OpLoadI32))
	c.stateLabelRefs = append(c.stateLabelRefs, labelRef{name, len(c.code)})
	c.code = appendI32(c.code, 0)
	return c
}

// GoState emits GOSTATE.
func (c *Codegen) GoState() *Codegen {
	c.code = append(c.code, byte(OpGoState))
	return c
}

// WithStateLabelPointers supplies the enclosing state block's local label
// map (block-scoped "label -> offset", spec §4.C pass 1), used to resolve
// @label pushes injected via LoadStateLabel.
func (c *Codegen) WithStateLabelPointers(ptrs map[string]int32) *Codegen {
	c.stateLabels = ptrs
	return c
}

// WithAnnotation attaches debug metadata (used for the .map sidecar, spec
// §4.C "per-program annotations").
func (c *Codegen) WithAnnotation(key, value string) *Codegen {
	c.annotations[key] = value
	return c
}

// Annotation retrieves previously attached debug metadata.
func (c *Codegen) Annotation(key string) (string, bool) {
	v, ok := c.annotations[key]
	return v, ok
}

// Len returns the current encoded length in bytes.
func (c *Codegen) Len() int { return len(c.code) }

// NextAutolabel returns a fresh, unique label name for synthesized jump
// targets (e.g. the `if` word's end-of-block label).
func (c *Codegen) NextAutolabel() string {
	name := fmt.Sprintf("autolabel%d", c.autolabel)
	c.autolabel++
	return name
}

// Finalize resolves every recorded label/state-label reference and returns
// the final byte sequence. It panics on an unresolved label, matching the
// original compiler's behavior (internal bug, never silently succeeds).
func (c *Codegen) Finalize() []byte {
	code := append([]byte(nil), c.code...)
	for _, ref := range c.labelRefs {
		target, ok := c.labels[ref.name]
		if !ok {
			panic(fmt.Sprintf("could not find label %s", ref.name))
		}
		offs := int32(target - ref.pos - 4)
		binary.LittleEndian.PutUint32(code[ref.pos:ref.pos+4], uint32(offs))
	}
	for _, ref := range c.stateLabelRefs {
		target, ok := c.stateLabels[ref.name]
		if !ok {
			panic(fmt.Sprintf("could not find state label %s", ref.name))
		}
		binary.LittleEndian.PutUint32(code[ref.pos:ref.pos+4], uint32(target))
	}
	return code
}

func appendI32(b []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(b, tmp[:]...)
}
