// Package compiler ties the states-DSL front end (stlang), the bytecode
// assembler (bytecode, image) and the injectable spawn_on_death policy
// (spawnpolicy) into one compilation pipeline (spec §4.D "Semantic
// phases").
package compiler

import (
	"fmt"

	"github.com/xyproto/wolfstate/diag"
	"github.com/xyproto/wolfstate/image"
	"github.com/xyproto/wolfstate/spawnpolicy"
	"github.com/xyproto/wolfstate/stlang"
)

// Options configures one Compile call.
type Options struct {
	Filename    string
	MaxErrors   int
	SpawnPolicy spawnpolicy.Policy
}

// Result is everything a successful (or partially successful) compile
// produces: the assembled image plus every diagnostic recorded along the
// way.
type Result struct {
	Assembled   image.Assembled
	Diagnostics *diag.Collector
}

// Compile runs the full pipeline over src: lex, parse, collect
// declarations, resolve identifiers (synthesising inline function names as
// it goes), lower functions to bytecode, and assemble the final image
// (spec §4.D phases 1-4). It returns as much of Result as could be built
// even when diagnostics were recorded, so callers can still print a
// partial .map for debugging; check Diagnostics.HasErrors() before trusting
// the Assembled value.
func Compile(src string, opts Options) (*Result, error) {
	policy := opts.SpawnPolicy
	if policy == nil {
		policy = spawnpolicy.Default()
	}
	coll := diag.NewCollector(opts.MaxErrors)
	coll.SetSource(src)

	toks, err := stlang.Tokenize(src)
	if err != nil {
		if lexErr, ok := err.(*stlang.LexError); ok {
			coll.Add(diag.LexError(lexErr.Message, diag.Location{
				File: opts.Filename, Line: lexErr.Pos.Line, Column: lexErr.Pos.Column,
			}))
		} else {
			coll.Add(diag.LexError(err.Error(), diag.Location{File: opts.Filename}))
		}
		return &Result{Diagnostics: coll}, fmt.Errorf("lexing failed")
	}

	prog, err := stlang.Parse(toks)
	if err != nil {
		if parseErr, ok := err.(*stlang.ParseError); ok {
			coll.Add(diag.SyntaxError(parseErr.Message, diag.Location{
				File: opts.Filename, Line: parseErr.Pos.Line, Column: parseErr.Pos.Column,
			}))
		} else {
			coll.Add(diag.SyntaxError(err.Error(), diag.Location{File: opts.Filename}))
		}
		return &Result{Diagnostics: coll}, fmt.Errorf("parsing failed")
	}

	decls := newDeclarations()
	decls.collect(prog)

	resolved := processStates(prog, decls, coll)

	asm := newAssembler(decls, policy, coll)
	assembled := asm.run(prog, resolved)

	result := &Result{Assembled: assembled, Diagnostics: coll}
	if coll.HasErrors() {
		return result, fmt.Errorf("compilation failed: %d error(s)", coll.ErrorCount())
	}
	return result, nil
}

// processStates is semantic pass 2 (spec §4.D): for each state, resolve
// its think/action slot (checking a named reference or synthesising a
// name for an inline body) and return the per-state result for the
// assembler to consume.
func processStates(prog *stlang.Program, decls *declarations, coll *diag.Collector) map[*stlang.State]resolvedNames {
	out := make(map[*stlang.State]resolvedNames)
	for _, block := range prog.States {
		for _, el := range block.Elements {
			st, ok := el.(*stlang.State)
			if !ok {
				continue
			}
			out[st] = resolvedNames{
				think:  decls.resolveFunctionRef(st.Think, "Think", coll),
				action: decls.resolveFunctionRef(st.Action, "Action", coll),
			}
		}
	}
	return out
}
