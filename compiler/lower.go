package compiler

import (
	"fmt"

	"github.com/xyproto/wolfstate/bytecode"
	"github.com/xyproto/wolfstate/diag"
	"github.com/xyproto/wolfstate/stlang"
	"github.com/xyproto/wolfstate/symtab"
)

// lowerWords lowers a word list to a Codegen program per spec §4.D's
// "Word -> opcode lowering" table. Unknown enum references are reported
// through coll but do not stop lowering (the rest of the program is still
// emitted so later errors can surface too).
func lowerWords(cg *bytecode.Codegen, words []stlang.Word, enums *symtab.Table, known map[string]struct{}, coll *diag.Collector) {
	for _, w := range words {
		lowerWord(cg, w, enums, known, coll)
	}
}

func lowerWord(cg *bytecode.Codegen, w stlang.Word, enums *symtab.Table, known map[string]struct{}, coll *diag.Collector) {
	switch w.Kind {
	case stlang.WordPushInt:
		if w.IntSuffix == "u8" {
			cg.LoadU8(uint8(w.IntValue))
		} else {
			cg.LoadI32(int32(w.IntValue))
		}

	case stlang.WordPushEnum:
		v, ok := enums.Get(w.EnumRef)
		if !ok {
			coll.Add(diag.UndefinedReference(w.EnumRef, toLocation(w.Pos), known))
			v = 0
		}
		cg.LoadU8(uint8(v))

	case stlang.WordPushStateLabel:
		cg.LoadStateLabel(w.LabelName)

	case stlang.WordTrap:
		cg.Trap()
	case stlang.WordNot:
		cg.Not()
	case stlang.WordAdd:
		cg.Add()
	case stlang.WordCall:
		cg.Call()
	case stlang.WordGostate:
		cg.GoState()
	case stlang.WordStop:
		cg.Stop()

	case stlang.WordIf:
		// if { body } => NOT; JRC end; <body>; end:
		endLabel := cg.NextAutolabel()
		cg.Not()
		cg.JrcLabel(endLabel)
		lowerWords(cg, w.IfBody, enums, known, coll)
		cg.Label(endLabel)

	case stlang.WordList:
		// [ body ] => <body>; PUSH_U8 (length of body in words)
		lowerWords(cg, w.ListBody, enums, known, coll)
		cg.LoadU8(uint8(len(w.ListBody)))

	default:
		panic(fmt.Sprintf("unhandled word kind %d", w.Kind))
	}
}
