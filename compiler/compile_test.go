package compiler

import (
	"strings"
	"testing"

	"github.com/xyproto/wolfstate/image"
)

const s4Source = `
enum id { A, B }
function F { id::A u8  stop }
states blk { s: state id::B, false, 3, F, F, next }
spawn blk { undirectional 5, s, ammo }
`

func TestCompileS4Scenario(t *testing.T) {
	result, err := Compile(s4Source, Options{Filename: "s4.st"})
	if err != nil {
		t.Fatalf("Compile: %v (diagnostics: %v)", err, result.Diagnostics.Report(false))
	}
	asm := result.Assembled

	if len(asm.Labels) != 1 || asm.Labels[0].Name != "blk::s" {
		t.Fatalf("expected exactly one label blk::s, got %v", asm.Labels)
	}

	if len(asm.Spawns) != 1 {
		t.Fatalf("expected exactly one spawn entry, got %d", len(asm.Spawns))
	}
	sp := asm.Spawns[0]
	if sp.ID != 5 {
		t.Fatalf("expected spawn id 5, got %d", sp.ID)
	}
	if sp.StateLabel != "blk::s" {
		t.Fatalf("expected spawn state label blk::s, got %q", sp.StateLabel)
	}
	if !sp.HasSpawnOnDeath() || sp.SpawnOnDeath != 49 {
		t.Fatalf("expected spawn_on_death Some(49), got %d (has=%v)", sp.SpawnOnDeath, sp.HasSpawnOnDeath())
	}

	if len(asm.States) != 1 {
		t.Fatalf("expected exactly one state record, got %d", len(asm.States))
	}
	st := asm.States[0]
	if st.ID != 1 { // id::B == index 1
		t.Fatalf("expected state sprite id 1 (id::B), got %d", st.ID)
	}
	if st.Ticks != 3 || st.Directional {
		t.Fatalf("unexpected state fields: %+v", st)
	}
	if st.ThinkOffs != st.ActionOffs {
		t.Fatalf("think and action share identical bytecode (F used for both) and must share one offset: think=%d action=%d", st.ThinkOffs, st.ActionOffs)
	}

	// Encode/Load round trip must still resolve the label.
	buf, err := asm.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img, err := image.Load(buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	off, err := img.FindState("blk::s")
	if err != nil {
		t.Fatalf("FindState: %v", err)
	}
	if _, err := img.ReadState(off); err != nil {
		t.Fatalf("ReadState: %v", err)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	r1, err := Compile(s4Source, Options{Filename: "s4.st"})
	if err != nil {
		t.Fatalf("Compile 1: %v", err)
	}
	r2, err := Compile(s4Source, Options{Filename: "s4.st"})
	if err != nil {
		t.Fatalf("Compile 2: %v", err)
	}
	b1, err := r1.Assembled.Encode()
	if err != nil {
		t.Fatalf("Encode 1: %v", err)
	}
	b2, err := r2.Assembled.Encode()
	if err != nil {
		t.Fatalf("Encode 2: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("compiling the same source twice produced different images")
	}
}

const s6Source = `
enum id { Alpha, B }
function F { id::Q  stop }
states blk { s: state id::Alpha, false, 1, F, F, next }
`

func TestCompileS6UnknownIdentifierDiagnostic(t *testing.T) {
	result, err := Compile(s6Source, Options{Filename: "s6.st"})
	if err == nil {
		t.Fatalf("expected compilation to fail on undefined identifier id::Q")
	}
	if !result.Diagnostics.HasErrors() {
		t.Fatalf("expected at least one diagnostic error")
	}
	report := result.Diagnostics.Report(false)
	if !strings.Contains(report, "undefined") {
		t.Fatalf("expected diagnostic to mention 'undefined', got: %s", report)
	}
	if !strings.Contains(report, "B") {
		t.Fatalf("expected diagnostic to suggest the closest existing value 'B', got: %s", report)
	}
}
