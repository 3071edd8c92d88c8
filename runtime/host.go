package runtime

import "github.com/xyproto/wolfstate/bytecode"

// Host is the event-dispatch contract the executor's events are delivered
// to (spec §4.E "Event dispatch protocol"). Execution never resumes until
// the called method returns — there is no concurrent suspension.
type Host interface {
	// OnCall handles a Call event: the program popped fnID and is waiting
	// for the host's side effect before continuing.
	OnCall(fnID uint8, ctx *ExecCtx)
	// OnTrap handles a Trap event: the runtime pops the stack top (None if
	// the stack is empty) and passes it in; the returned value is pushed as
	// the trap's result.
	OnTrap(stackTop bytecode.Value, ctx *ExecCtx) bytecode.Value
	// OnGoState handles a GoState event: the runtime pops the stack top
	// (None if the stack is empty) and passes it in; the host performs the
	// jump to the I32 state offset it carries.
	OnGoState(stackTop bytecode.Value, ctx *ExecCtx)
}
