// Package runtime implements the actor-facing half of the virtual machine:
// ExecCtx (one actor's live position inside a shared Image) and the Host
// callback contract the bytecode executor yields events to (spec §4.E).
package runtime

import (
	"fmt"

	"github.com/xyproto/wolfstate/bytecode"
	"github.com/xyproto/wolfstate/image"
)

// ExecCtx is a reference to a loaded image plus a mutable copy of the
// actor's current StateRecord (spec §3 "Actor execution context"). Many
// ExecCtx values can share one *image.Image; each actor owns its own copy
// of the state.
type ExecCtx struct {
	Image *image.Image
	State image.StateRecord

	// InstrLimit caps the number of opcodes one bytecode.Exec call may
	// step through before it reports a runaway-loop error. The count
	// starts over after every yielded Call or Trap event, so a program
	// that yields inside a loop is not bounded by it. Zero means
	// bytecode.DefaultInstructionLimit.
	InstrLimit int
}

// New starts an actor at a named state (spec §4.E "ExecCtx::new").
func New(img *image.Image, initialLabel string) (*ExecCtx, error) {
	ctx := &ExecCtx{Image: img}
	if err := ctx.JumpLabel(initialLabel); err != nil {
		return nil, err
	}
	return ctx, nil
}

// instrLimit returns the configured per-Exec-call instruction ceiling,
// falling back to bytecode.DefaultInstructionLimit when unset.
func (ctx *ExecCtx) instrLimit() int {
	if ctx.InstrLimit > 0 {
		return ctx.InstrLimit
	}
	return bytecode.DefaultInstructionLimit
}

// Jump moves the actor to the state record at the given byte offset (spec
// §4.E "ExecCtx::jump").
func (ctx *ExecCtx) Jump(offset int32) error {
	state, err := ctx.Image.ReadState(offset)
	if err != nil {
		return fmt.Errorf("jump to offset %d: %w", offset, err)
	}
	ctx.State = state
	return nil
}

// JumpLabel moves the actor to the state a qualified label names (spec
// §4.E "ExecCtx::jump_label").
func (ctx *ExecCtx) JumpLabel(label string) error {
	offset, err := ctx.Image.FindState(label)
	if err != nil {
		return err
	}
	return ctx.Jump(offset)
}

// Save serializes only the current StateRecord (spec §4.E "Save/restore":
// "an ExecCtx is serialised by writing only its current StateRecord bytes
// ... the stack is always empty between ticks").
func (ctx *ExecCtx) Save() ([]byte, error) {
	var buf []byte
	w := &byteSliceWriter{buf: &buf}
	if err := ctx.State.WriteTo(w); err != nil {
		return nil, err
	}
	return buf, nil
}

// Restore replaces the current StateRecord from previously Saved bytes.
// The image pointer is untouched; reload happens against the
// already-loaded, process-wide image.
func (ctx *ExecCtx) Restore(data []byte) error {
	state, err := image.ReadStateRecord(data)
	if err != nil {
		return err
	}
	ctx.State = state
	return nil
}

type byteSliceWriter struct{ buf *[]byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// newProgramEnv returns a throwaway operand stack used for one think/action
// run; it is kept across the run's yields and dropped when the run ends
// (spec §4.B).
func newProgramEnv() *bytecode.Env { return &bytecode.Env{} }
