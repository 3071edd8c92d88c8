package runtime

import (
	"fmt"

	"github.com/xyproto/wolfstate/bytecode"
)

// Tick is the central step function (spec §4.E "ExecCtx::tick"):
//  1. If state.ticks <= 0, jump to state.next (reload the record).
//  2. Decrement state.ticks.
//  3. Run the think program until STOP or GOSTATE, delivering events to
//     host.
//  4. Run the action program the same way. If the think program's GOSTATE
//     moved the actor, this is the action program of the new state.
func (ctx *ExecCtx) Tick(host Host) error {
	if ctx.State.Ticks <= 0 {
		if err := ctx.Jump(ctx.State.Next); err != nil {
			return fmt.Errorf("tick: reloading next state: %w", err)
		}
	}
	ctx.State.Ticks--

	if err := ctx.runProgram(ctx.State.ThinkOffs, host); err != nil {
		return fmt.Errorf("tick: think program: %w", err)
	}
	if err := ctx.runProgram(ctx.State.ActionOffs, host); err != nil {
		return fmt.Errorf("tick: action program: %w", err)
	}
	return nil
}

// runProgram executes one think/action program until STOP or GOSTATE,
// dispatching every yielded event to host (spec §5 "the suspension is
// synchronous").
func (ctx *ExecCtx) runProgram(offset int32, host Host) error {
	code, err := ctx.Image.Bytecode(offset)
	if err != nil {
		return err
	}
	env := newProgramEnv()
	pc := 0
	for {
		ev, newPC, err := bytecode.Exec(code, pc, env, ctx.instrLimit())
		if err != nil {
			return err
		}
		pc = newPC

		switch ev.Kind {
		case bytecode.EventStop:
			return nil

		case bytecode.EventCall:
			host.OnCall(ev.FnID, ctx)

		case bytecode.EventTrap:
			top, ok := env.Pop()
			if !ok {
				top = bytecode.None
			}
			result := host.OnTrap(top, ctx)
			env.Push(result)

		case bytecode.EventGoState:
			top, ok := env.Pop()
			if !ok {
				top = bytecode.None
			}
			host.OnGoState(top, ctx)
			// A state transition ends this program's run for the tick; any
			// code after the GOSTATE is not executed.
			return nil

		default:
			return fmt.Errorf("unhandled event kind %v", ev.Kind)
		}
	}
}
