package compiler

import (
	"fmt"
	"sort"

	"github.com/xyproto/wolfstate/bytecode"
	"github.com/xyproto/wolfstate/diag"
	"github.com/xyproto/wolfstate/image"
	"github.com/xyproto/wolfstate/spawnpolicy"
	"github.com/xyproto/wolfstate/stlang"
	"github.com/xyproto/wolfstate/symtab"
)

// resolvedNames is the think/action body name a state ultimately refers
// to, after inline-body synthesis and identifier checking (compile.go's
// processStates pass, run before assembly).
type resolvedNames struct {
	think  string
	action string
}

// stateSlot is one state element together with the block it belongs to and
// the local label map that block resolves @label pushes against (spec
// §4.C pass 1/2).
type stateSlot struct {
	block     string
	state     *stlang.State
	localLabs map[string]int32
	names     resolvedNames
}

// assembler drives spec §4.C's two passes plus the bytecode-deduplicating
// writer, producing a ready-to-serialize image.Assembled.
type assembler struct {
	decls  *declarations
	policy spawnpolicy.Policy
	coll   *diag.Collector
}

func newAssembler(decls *declarations, policy spawnpolicy.Policy, coll *diag.Collector) *assembler {
	return &assembler{decls: decls, policy: policy, coll: coll}
}

// run assembles the whole image. resolved maps each *stlang.State to the
// think/action function names already resolved during semantic pass 2.
func (a *assembler) run(prog *stlang.Program, resolved map[*stlang.State]resolvedNames) image.Assembled {
	globalLabels := make(map[string]int32)
	var slots []stateSlot

	// Pass 1: layout states, recording every label both globally
	// (block::label) and locally (scoped to the enclosing block).
	var ip int32
	for _, block := range prog.States {
		local := make(map[string]int32)
		for _, el := range block.Elements {
			switch e := el.(type) {
			case *stlang.Label:
				globalLabels[block.Name+"::"+e.Name] = ip
				local[e.Name] = ip
			case *stlang.State:
				slots = append(slots, stateSlot{block: block.Name, state: e, localLabs: local, names: resolved[e]})
				ip += image.StateSize
			}
		}
	}

	// Lower every named function once; inline bodies were already added to
	// decls.functionNames/functionBodies under their synthesised name during
	// state processing.
	names := a.decls.functionList()
	functionCode := make(map[string]*bytecode.Codegen, len(names))
	for _, name := range names {
		body, _ := a.decls.functionBody(name)
		cg := bytecode.NewCodegen()
		lowerWords(cg, body, a.decls.enums, a.decls.known, a.coll)
		cg.WithAnnotation("source", name)
		functionCode[name] = cg
	}

	// Pass 2: encode each state's think/action programs against their
	// enclosing block's local label map, and resolve `next`.
	states := make([]image.StateRecord, len(slots))
	var progs []progEntry
	var nextIP int32
	for i, slot := range slots {
		st := slot.state
		id, ok := a.decls.enums.Get(st.SpriteEnum)
		if !ok {
			a.coll.Add(diag.UndefinedReference(st.SpriteEnum, toLocation(st.Pos), a.decls.known))
		}

		nextPtr := a.resolveNext(st, slot, globalLabels, nextIP)

		states[i] = image.StateRecord{
			ID:          id,
			Ticks:       int32(st.Ticks),
			Directional: st.Directional,
			Next:        nextPtr,
		}

		thinkCode := a.finalizeFor(functionCode, slot.names.think, slot.localLabs)
		actionCode := a.finalizeFor(functionCode, slot.names.action, slot.localLabs)

		progs = append(progs,
			progEntry{stateIdx: i, isThink: true, code: thinkCode, src: slot.names.think},
			progEntry{stateIdx: i, isThink: false, code: actionCode, src: slot.names.action},
		)
		nextIP += image.StateSize
	}

	// Bytecode deduplication: place longest-first into one shared region.
	// Program offsets count from the start of the state-record region, so
	// positions inside the bytecode region are shifted past the records.
	region := &image.BytecodeRegionBuilder{}
	sort.SliceStable(progs, func(i, j int) bool { return len(progs[i].code) > len(progs[j].code) })
	codeBase := int32(len(states)) * image.StateSize

	var annotations []image.Annotation
	for _, p := range progs {
		offset := codeBase + region.Append(p.code)
		if p.isThink {
			states[p.stateIdx].ThinkOffs = offset
		} else {
			states[p.stateIdx].ActionOffs = offset
		}
		annotations = append(annotations, image.Annotation{
			Start: offset,
			End:   offset + int32(len(p.code)),
			Text:  p.src,
		})
	}

	return image.Assembled{
		Labels:      labelEntries(globalLabels),
		Spawns:      a.buildSpawns(prog),
		States:      states,
		Bytecode:    region.Bytes(),
		Annotations: annotations,
		Enums:       enumsMap(a.decls.enums),
	}
}

// enumsMap snapshots the compiler's internal enum symbol table into the
// plain map image.Assembled serializes.
func enumsMap(t *symtab.Table) map[string]int32 {
	keys := t.Keys()
	out := make(map[string]int32, len(keys))
	for _, k := range keys {
		v, _ := t.Get(k)
		out[k] = v
	}
	return out
}

type progEntry struct {
	stateIdx int
	isThink  bool
	code     []byte
	src      string
}

// resolveNext implements the "next" field per the original codegen: the
// literal keyword `next` means the position immediately following this
// state in the layout; any other identifier names a label, checked first
// in the enclosing block's local scope, then as a qualified global label.
func (a *assembler) resolveNext(st *stlang.State, slot stateSlot, globalLabels map[string]int32, ip int32) int32 {
	if st.Next == "next" {
		return ip + image.StateSize
	}
	if off, ok := slot.localLabs[st.Next]; ok {
		return off
	}
	qualified := slot.block + "::" + st.Next
	if off, ok := globalLabels[qualified]; ok {
		return off
	}
	a.coll.Add(diag.UndefinedReference(st.Next, toLocation(st.Pos), a.decls.known))
	return 0
}

func (a *assembler) finalizeFor(functionCode map[string]*bytecode.Codegen, name string, localLabs map[string]int32) []byte {
	cg, ok := functionCode[name]
	if !ok {
		a.coll.Add(diag.UndefinedReference(name, diag.Location{}, a.decls.known))
		return []byte{0xFF} // a single STOP, keeping the pipeline alive
	}
	clone := cg.Clone().WithStateLabelPointers(localLabs)
	return clone.Finalize()
}

func labelEntries(labels map[string]int32) []image.LabelEntry {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]image.LabelEntry, len(names))
	for i, name := range names {
		out[i] = image.LabelEntry{Name: name, StateOffset: labels[name]}
	}
	return out
}

func (a *assembler) buildSpawns(prog *stlang.Program) []image.SpawnInfo {
	var out []image.SpawnInfo
	for _, block := range prog.Spawns {
		for _, entry := range block.Entries {
			death := int32(-1)
			if entry.SpawnOnDeath != "" {
				if v, ok := a.policy.Lookup(entry.SpawnOnDeath); ok {
					death = v
				} else {
					a.coll.Add(diag.UndefinedReference(entry.SpawnOnDeath, toLocation(entry.Pos), a.decls.known))
				}
			}
			qualifiedLabel := fmt.Sprintf("%s::%s", block.Name, entry.StateLabel)
			if entry.Directional {
				out = append(out, image.ExpandDirectional(int32(entry.ID), qualifiedLabel, death)...)
			} else {
				out = append(out, image.SpawnInfo{
					ID:           int32(entry.ID),
					Direction:    0,
					StateLabel:   qualifiedLabel,
					SpawnOnDeath: death,
				})
			}
		}
	}
	return out
}
