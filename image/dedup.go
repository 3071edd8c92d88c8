package image

import "bytes"

// BytecodeRegionBuilder accumulates encoded programs into one shared byte
// buffer, deduplicating by exact subsequence match (spec §4.C "Bytecode
// deduplication"). Callers must append longest-first for the described
// "descending length" placement order; the builder itself only performs
// the subsequence search and append.
type BytecodeRegionBuilder struct {
	code []byte
}

// Append places code into the region, returning the byte offset it was
// placed (or found) at. If an identical byte run already exists in the
// region, no bytes are appended and the existing offset is returned
// (first match wins, per spec).
func (r *BytecodeRegionBuilder) Append(code []byte) int32 {
	if len(code) > 0 && len(r.code) >= len(code) {
		if idx := bytes.Index(r.code, code); idx >= 0 {
			return int32(idx)
		}
	}
	pos := int32(len(r.code))
	r.code = append(r.code, code...)
	return pos
}

// Bytes returns the accumulated region contents.
func (r *BytecodeRegionBuilder) Bytes() []byte { return r.code }

// Len returns the current region size in bytes.
func (r *BytecodeRegionBuilder) Len() int { return len(r.code) }

// Program is one named bytecode block queued for placement into a
// BytecodeRegionBuilder.
type Program struct {
	Name string
	Code []byte
}

// PlacePrograms sorts progs by descending length and appends each into the
// region (deduplicating as it goes), returning a name -> offset map (spec
// §4.C: "sorted by descending length, and appended to a shared bytecode
// region one at a time").
func PlacePrograms(region *BytecodeRegionBuilder, progs []Program) map[string]int32 {
	ordered := make([]Program, len(progs))
	copy(ordered, progs)
	// stable descending-length sort; ties keep original relative order so
	// placement is deterministic across compiler runs.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && len(ordered[j].Code) > len(ordered[j-1].Code); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	offsets := make(map[string]int32, len(ordered))
	for _, p := range ordered {
		offsets[p.Name] = region.Append(p.Code)
	}
	return offsets
}
