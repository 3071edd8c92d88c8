package bytecode

import "testing"

func TestCodegenFunctionCallThenStop(t *testing.T) {
	code := NewCodegen().FunctionCall(5).Stop().Finalize()
	want := []byte{0x1, 0x5, 0x2, 0xff}
	if len(code) != len(want) {
		t.Fatalf("got %v, want %v", code, want)
	}
	for i := range want {
		if code[i] != want[i] {
			t.Fatalf("got %v, want %v", code, want)
		}
	}
}

func TestExecFunctionCallThenStop(t *testing.T) {
	code := []byte{0x1, 0x5, 0x2, 0xff}
	env := &Env{}

	ev, pc, err := Exec(code, 0, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventCall || ev.FnID != 5 {
		t.Fatalf("got %+v, want Call(5)", ev)
	}

	ev, _, err = Exec(code, pc, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventStop {
		t.Fatalf("got %+v, want Stop", ev)
	}
}

// TestS1StackArithmetic grounds spec §8 scenario S1.
func TestS1StackArithmetic(t *testing.T) {
	code := NewCodegen().LoadI32(2).LoadI32(3).Add().Trap().Stop().Finalize()
	env := &Env{}

	ev, pc, err := Exec(code, 0, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventTrap {
		t.Fatalf("got %+v, want Trap", ev)
	}
	top, ok := env.top()
	if !ok || top.Kind != KindI32 || top.I32 != 5 {
		t.Fatalf("stack top = %+v, want I32(5)", top)
	}

	ev, _, err = Exec(code, pc, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventStop {
		t.Fatalf("got %+v, want Stop", ev)
	}
}

// TestS2ConditionalJump grounds spec §8 scenario S2: CEQ true skips the
// LOADI_I32, leaving the stack empty.
func TestS2ConditionalJump(t *testing.T) {
	cg := NewCodegen().
		LoadU8(7).
		LoadU8(7).
		Ceq().
		JrcLabel("after").
		LoadI32(4711).
		Label("after").
		Stop()
	code := cg.Finalize()

	env := &Env{}
	ev, _, err := Exec(code, 0, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventStop {
		t.Fatalf("got %+v, want Stop", ev)
	}
	if len(env.Stack) != 0 {
		t.Fatalf("stack = %v, want empty (jump should have skipped the LOADI_I32)", env.Stack)
	}
}

// TestS3CountedLoop grounds spec §8 scenario S3 / the original test_loop.
func TestS3CountedLoop(t *testing.T) {
	cg := NewCodegen().
		LoadI32(5).
		Label("loop").
		Dup().
		LoadI32(4711).
		Add().
		Trap().
		LoadI32(-1).
		Add().
		Dup().
		LoadI32(0).
		Ceq().
		Not().
		JrcLabel("loop").
		Stop()
	code := cg.Finalize()

	env := &Env{}
	pc := 0
	want := []int32{4716, 4715, 4714, 4713, 4712}
	for i, w := range want {
		ev, newPC, err := Exec(code, pc, env, DefaultInstructionLimit)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if ev.Kind != EventTrap {
			t.Fatalf("iteration %d: got %+v, want Trap", i, ev)
		}
		top, ok := env.Pop()
		if !ok || top.Kind != KindI32 || top.I32 != w {
			t.Fatalf("iteration %d: top = %+v, want I32(%d)", i, top, w)
		}
		pc = newPC
	}

	ev, _, err := Exec(code, pc, env, DefaultInstructionLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Kind != EventStop {
		t.Fatalf("got %+v, want Stop", ev)
	}
}

// TestBooleanPolarity grounds spec §8 property 7: `false NOT` yields true
// and `true NOT` yields false. CEQ is used to manufacture each boolean
// since there is no boolean literal opcode.
func TestBooleanPolarity(t *testing.T) {
	falseCode := NewCodegen().LoadU8(1).LoadU8(2).Ceq().Not().Trap().Stop().Finalize()
	env := &Env{}
	ev, _, err := Exec(falseCode, 0, env, DefaultInstructionLimit)
	if err != nil || ev.Kind != EventTrap {
		t.Fatalf("exec failed: ev=%+v err=%v", ev, err)
	}
	top, _ := env.top()
	if !top.Bool {
		t.Fatalf("false NOT should yield true, got %+v", top)
	}

	trueCode := NewCodegen().LoadU8(1).LoadU8(1).Ceq().Not().Trap().Stop().Finalize()
	env2 := &Env{}
	ev, _, err = Exec(trueCode, 0, env2, DefaultInstructionLimit)
	if err != nil || ev.Kind != EventTrap {
		t.Fatalf("exec failed: ev=%+v err=%v", ev, err)
	}
	top, _ = env2.top()
	if top.Bool {
		t.Fatalf("true NOT should yield false, got %+v", top)
	}
}

// TestNotElision checks the peephole NOT-NOT collapse directly on the
// builder, independent of exec.
func TestNotElision(t *testing.T) {
	cg := NewCodegen().Not().Not()
	if cg.Len() != 0 {
		t.Fatalf("NOT NOT should elide to zero bytes, got %d", cg.Len())
	}
	cg2 := NewCodegen().Not()
	if cg2.Len() != 1 {
		t.Fatalf("single NOT should emit one byte, got %d", cg2.Len())
	}
}

func TestStopNotDuplicated(t *testing.T) {
	cg := NewCodegen().Trap().Stop().Stop()
	code := cg.Finalize()
	if len(code) != 2 {
		t.Fatalf("expected TRAP;STOP (2 bytes), got %d: %v", len(code), code)
	}
}

func TestStackUnderflow(t *testing.T) {
	code := NewCodegen().Add().Stop().Finalize()
	_, _, err := Exec(code, 0, &Env{}, DefaultInstructionLimit)
	if err == nil {
		t.Fatal("expected stack underflow error")
	}
}

func TestInstructionLimitExceeded(t *testing.T) {
	// An infinite loop: push true, JRC back to self.
	cg := NewCodegen().Label("loop")
	cg.code = append(cg.code, byte(OpLoadI32))
	cg.code = appendI32(cg.code, 1)
	cg.code = append(cg.code, byte(OpLoadI32))
	cg.code = appendI32(cg.code, 1)
	cg.Ceq()
	cg.JrcLabel("loop")
	code := cg.Finalize()

	_, _, err := Exec(code, 0, &Env{}, 16)
	if err == nil {
		t.Fatal("expected instruction-limit error on a runaway loop")
	}
}
