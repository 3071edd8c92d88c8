package runtime

import (
	"testing"

	"github.com/xyproto/wolfstate/bytecode"
	"github.com/xyproto/wolfstate/image"
)

// recordingHost captures every event it is asked to dispatch, for assertions.
type recordingHost struct {
	calls    []uint8
	traps    []bytecode.Value
	trapResp bytecode.Value
	goStates []bytecode.Value
}

func (h *recordingHost) OnCall(fnID uint8, ctx *ExecCtx) {
	h.calls = append(h.calls, fnID)
}

func (h *recordingHost) OnTrap(stackTop bytecode.Value, ctx *ExecCtx) bytecode.Value {
	h.traps = append(h.traps, stackTop)
	return h.trapResp
}

func (h *recordingHost) OnGoState(stackTop bytecode.Value, ctx *ExecCtx) {
	h.goStates = append(h.goStates, stackTop)
	if stackTop.Kind == bytecode.KindI32 {
		_ = ctx.Jump(stackTop.I32)
	}
}

// buildStopImage assembles a minimal two-state image: "a" at offset 0,
// "b" at offset StateSize, both sharing one think/action program that is
// a bare STOP, and next pointers forming a 2-cycle (spec §8 S5).
func buildStopImage(t *testing.T, ticksA, ticksB int32) *image.Image {
	t.Helper()
	stop := bytecode.NewCodegen().Stop().Finalize()

	// Program offsets count from the start of the state-record region; the
	// bytecode begins right after the two records.
	codeBase := int32(2 * image.StateSize)
	states := []image.StateRecord{
		{ID: 1, Ticks: ticksA, ThinkOffs: codeBase, ActionOffs: codeBase, Next: image.StateSize},
		{ID: 2, Ticks: ticksB, ThinkOffs: codeBase, ActionOffs: codeBase, Next: 0},
	}
	asm := image.Assembled{
		Labels:   []image.LabelEntry{{Name: "a", StateOffset: 0}, {Name: "b", StateOffset: image.StateSize}},
		States:   states,
		Bytecode: stop,
	}
	buf, err := asm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return img
}

func TestTickCountdownStaysUntilNext(t *testing.T) {
	img := buildStopImage(t, 3, 1)
	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host := &recordingHost{}

	for i := 0; i < 3; i++ {
		if err := ctx.Tick(host); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		if ctx.State.ID != 1 {
			t.Fatalf("tick %d: expected to remain on state a (id 1), got id %d", i, ctx.State.ID)
		}
	}

	if err := ctx.Tick(host); err != nil {
		t.Fatalf("transition tick: %v", err)
	}
	if ctx.State.ID != 2 {
		t.Fatalf("expected transition to state b (id 2), got id %d", ctx.State.ID)
	}
}

func TestTransitionViaNextTwoStateCycle(t *testing.T) {
	img := buildStopImage(t, 1, 1)
	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host := &recordingHost{}

	if err := ctx.Tick(host); err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if ctx.State.ID != 2 {
		t.Fatalf("after tick 1 expected state b (id 2), got %d", ctx.State.ID)
	}
	if err := ctx.Tick(host); err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if ctx.State.ID != 1 {
		t.Fatalf("after tick 2 expected back to state a (id 1), got %d", ctx.State.ID)
	}

	// 10 ticks total form a deterministic 5-cycle, ending back on state a.
	ctx2, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := make([]int32, 0, 10)
	for i := 0; i < 10; i++ {
		if err := ctx2.Tick(host); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		seen = append(seen, ctx2.State.ID)
	}
	want := []int32{2, 1, 2, 1, 2, 1, 2, 1, 2, 1}
	for i, id := range seen {
		if id != want[i] {
			t.Fatalf("tick %d: got id %d, want %d (full sequence %v)", i, id, want[i], seen)
		}
	}
	if ctx2.State.ID != 1 {
		t.Fatalf("after 10 ticks expected to land back on state a, got id %d", ctx2.State.ID)
	}
}

func TestCallAndTrapDispatch(t *testing.T) {
	call := bytecode.NewCodegen().FunctionCall(9).Stop().Finalize()
	trap := bytecode.NewCodegen().LoadI32(5).Trap().Stop().Finalize()

	region := &image.BytecodeRegionBuilder{}
	callOffs := region.Append(call)
	trapOffs := region.Append(trap)

	states := []image.StateRecord{
		// ticks=2 so this single tick never reaches the next-state reload;
		// it isolates the Call/Trap dispatch from transition behaviour.
		// Program offsets count from the start of the state-record region.
		{ID: 1, Ticks: 2, ThinkOffs: image.StateSize + callOffs, ActionOffs: image.StateSize + trapOffs, Next: 0},
	}
	asm := image.Assembled{
		Labels:   []image.LabelEntry{{Name: "a", StateOffset: 0}},
		States:   states,
		Bytecode: region.Bytes(),
	}
	buf, err := asm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host := &recordingHost{trapResp: bytecode.BoolValue(true)}

	if err := ctx.Tick(host); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(host.calls) != 1 || host.calls[0] != 9 {
		t.Fatalf("expected one Call(9), got %v", host.calls)
	}
	if len(host.traps) != 1 || host.traps[0].Kind != bytecode.KindI32 || host.traps[0].I32 != 5 {
		t.Fatalf("expected one Trap(I32 5), got %v", host.traps)
	}
	if ctx.State.ID != 1 {
		t.Fatalf("expected still on state a, got id %d", ctx.State.ID)
	}
}

func TestGoStateDispatchJumpsImmediately(t *testing.T) {
	stop := bytecode.NewCodegen().Stop().Finalize()
	goState := bytecode.NewCodegen().LoadI32(image.StateSize).GoState().Finalize()

	region := &image.BytecodeRegionBuilder{}
	stopOffs := region.Append(stop)
	goStateOffs := region.Append(goState)

	// ticks are kept high on both states so the ticks-exhaustion reload
	// never fires; the only transition observed is the explicit GOSTATE.
	// Program offsets count from the start of the state-record region.
	codeBase := int32(2 * image.StateSize)
	states := []image.StateRecord{
		{ID: 1, Ticks: 99, ThinkOffs: codeBase + goStateOffs, ActionOffs: codeBase + stopOffs, Next: 0},
		{ID: 2, Ticks: 99, ThinkOffs: codeBase + stopOffs, ActionOffs: codeBase + stopOffs, Next: 0},
	}
	asm := image.Assembled{
		Labels:   []image.LabelEntry{{Name: "a", StateOffset: 0}, {Name: "b", StateOffset: image.StateSize}},
		States:   states,
		Bytecode: region.Bytes(),
	}
	buf, err := asm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host := &recordingHost{}

	if err := ctx.Tick(host); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(host.goStates) != 1 || host.goStates[0].Kind != bytecode.KindI32 || host.goStates[0].I32 != image.StateSize {
		t.Fatalf("expected one GoState(I32 %d), got %v", image.StateSize, host.goStates)
	}
	if ctx.State.ID != 2 {
		t.Fatalf("expected GOSTATE to jump to state b, got id %d", ctx.State.ID)
	}
}

// TestInstrLimitCapsRunawayProgram grounds WOLFSTATE_INSTR_LIMIT's effect on
// the runtime: a think program that loops forever must be stopped by
// ctx.InstrLimit rather than running unbounded.
func TestInstrLimitCapsRunawayProgram(t *testing.T) {
	runaway := bytecode.NewCodegen().
		Label("loop").
		LoadU8(1).LoadU8(1).Ceq().
		JrcLabel("loop").
		Finalize()
	stop := bytecode.NewCodegen().Stop().Finalize()

	region := &image.BytecodeRegionBuilder{}
	runawayOffs := region.Append(runaway)
	stopOffs := region.Append(stop)

	states := []image.StateRecord{
		// Program offsets count from the start of the state-record region.
		{ID: 1, Ticks: 2, ThinkOffs: image.StateSize + runawayOffs, ActionOffs: image.StateSize + stopOffs, Next: 0},
	}
	asm := image.Assembled{
		Labels:   []image.LabelEntry{{Name: "a", StateOffset: 0}},
		States:   states,
		Bytecode: region.Bytes(),
	}
	buf, err := asm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx.InstrLimit = 16
	host := &recordingHost{}

	if err := ctx.Tick(host); err == nil {
		t.Fatal("expected instruction-limit error from a capped runaway think program")
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	img := buildStopImage(t, 3, 1)
	ctx, err := New(img, "a")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	host := &recordingHost{}
	if err := ctx.Tick(host); err != nil {
		t.Fatalf("tick: %v", err)
	}

	saved, err := ctx.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored := &ExecCtx{Image: img}
	if err := restored.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.State != ctx.State {
		t.Fatalf("restored state %+v does not match saved state %+v", restored.State, ctx.State)
	}
}
