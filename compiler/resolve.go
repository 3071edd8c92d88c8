package compiler

import (
	"fmt"

	"github.com/xyproto/wolfstate/diag"
	"github.com/xyproto/wolfstate/stlang"
	"github.com/xyproto/wolfstate/symtab"
)

// declarations is the result of semantic pass 1 ("collect declarations",
// spec §4.D): the global enum table and the function table, the latter
// growing further in pass 2 as inline bodies are synthesised.
//
// enums maps a qualified enum::member name straight to its ordinal, a
// natural fit for symtab.Table's string->int32 shape. functions can't fit
// directly (bodies are word lists, not int32s), so functionNames maps a
// function name to an index into functionBodies instead.
type declarations struct {
	enums          *symtab.Table
	functionNames  *symtab.Table
	functionBodies [][]stlang.Word
	known          map[string]struct{}
	inlineSeq      int
}

func newDeclarations() *declarations {
	d := &declarations{
		enums:         symtab.New(16),
		functionNames: symtab.New(16),
		known:         make(map[string]struct{}),
	}
	d.known["None"] = struct{}{}
	return d
}

// defineFunction registers a function body under name, overwriting any
// earlier body of the same name; a redeclaration is not reported.
func (d *declarations) defineFunction(name string, body []stlang.Word) {
	idx := int32(len(d.functionBodies))
	d.functionBodies = append(d.functionBodies, body)
	d.functionNames.Set(name, idx)
	d.known[name] = struct{}{}
}

// functionBody looks up a previously defined function's word list by name.
func (d *declarations) functionBody(name string) ([]stlang.Word, bool) {
	idx, ok := d.functionNames.Get(name)
	if !ok {
		return nil, false
	}
	return d.functionBodies[idx], true
}

// functionList returns every defined function name, in no particular order.
func (d *declarations) functionList() []string {
	return d.functionNames.Keys()
}

// collect fills the enum and function tables from the program's top-level
// declarations (pass 1).
func (d *declarations) collect(prog *stlang.Program) {
	for _, e := range prog.Enums {
		for i, member := range e.Elements {
			qualified := e.Name + "::" + member
			d.enums.Set(qualified, int32(i))
			d.known[qualified] = struct{}{}
		}
	}
	for _, f := range prog.Functions {
		d.defineFunction(f.Name, f.Body)
	}
}

// nextInlineName synthesises a unique name for an inline think/action body,
// sharing one counter across the whole compile unit (spec §4.D: "for each
// inline fn_ref, synthesise a function with a unique name").
func (d *declarations) nextInlineName(kind string) string {
	name := fmt.Sprintf("Inline%s%d", kind, d.inlineSeq)
	d.inlineSeq++
	return name
}

// resolveFunctionRef returns the body name to record in a StateBc's
// think/action slot: either the referenced name (checked against known
// identifiers) or a freshly synthesised one for an inline body.
func (d *declarations) resolveFunctionRef(ref stlang.FunctionRef, kind string, coll *diag.Collector) string {
	if ref.IsInline() {
		name := d.nextInlineName(kind)
		d.defineFunction(name, ref.Inline)
		return name
	}
	if _, ok := d.known[ref.Name]; !ok {
		coll.Add(diag.UndefinedReference(ref.Name, toLocation(ref.Pos), d.known))
	}
	return ref.Name
}

func toLocation(p stlang.Position) diag.Location {
	return diag.Location{Line: p.Line, Column: p.Column}
}
