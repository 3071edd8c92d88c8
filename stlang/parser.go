// Completion: 100% - Recursive descent over the full toplevel grammar
package stlang

import "fmt"

// Parser consumes a token stream produced by the Lexer and builds a
// Program (spec §4.D grammar).
type Parser struct {
	toks []Token
	pos  int
}

// NewParser wraps a pre-tokenized stream (see Tokenize).
func NewParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

// ParseError reports a malformed-syntax failure at a source position.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEOF() bool { return p.cur().Type == TokEOF }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	if p.cur().Type != tt {
		return Token{}, &ParseError{Pos: p.cur().Pos, Message: fmt.Sprintf("expected %s, got %s %q", tt, p.cur().Type, p.cur().Text)}
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent() (Token, error) {
	return p.expect(TokIdent)
}

// Parse builds a Program from the whole token stream (spec §4.D
// "program := toplevel+").
func Parse(toks []Token) (*Program, error) {
	p := NewParser(toks)
	prog := &Program{}
	for !p.atEOF() {
		switch p.cur().Type {
		case TokEnum:
			decl, err := p.parseEnumDecl()
			if err != nil {
				return nil, err
			}
			prog.Enums = append(prog.Enums, decl)
		case TokStates:
			block, err := p.parseStatesBlock()
			if err != nil {
				return nil, err
			}
			prog.States = append(prog.States, block)
		case TokSpawn:
			block, err := p.parseSpawnBlock()
			if err != nil {
				return nil, err
			}
			prog.Spawns = append(prog.Spawns, block)
		case TokFunction:
			decl, err := p.parseFunctionDecl()
			if err != nil {
				return nil, err
			}
			prog.Functions = append(prog.Functions, decl)
		default:
			return nil, &ParseError{Pos: p.cur().Pos, Message: fmt.Sprintf("expected enum, states, spawn, or function declaration, got %q", p.cur().Text)}
		}
	}
	return prog, nil
}

func (p *Parser) parseEnumDecl() (*EnumDecl, error) {
	pos := p.cur().Pos
	if _, err := p.expect(TokEnum); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	decl := &EnumDecl{Name: name.Text, Pos: pos}
	for {
		member, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		decl.Elements = append(decl.Elements, member.Text)
		if p.cur().Type == TokComma {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseQualifiedRef() (string, error) {
	left, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	if _, err := p.expect(TokColonColon); err != nil {
		return "", err
	}
	right, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	return left.Text + "::" + right.Text, nil
}

func (p *Parser) parseStatesBlock() (*StatesBlock, error) {
	pos := p.cur().Pos
	if _, err := p.expect(TokStates); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	block := &StatesBlock{Name: name.Text, Pos: pos}
	for p.cur().Type != TokRBrace {
		if p.cur().Type == TokIdent && p.peekIsColon() {
			labelTok := p.advance()
			if _, err := p.expect(TokColon); err != nil {
				return nil, err
			}
			block.Elements = append(block.Elements, &Label{Name: labelTok.Text, Pos: labelTok.Pos})
			continue
		}
		state, err := p.parseState()
		if err != nil {
			return nil, err
		}
		block.Elements = append(block.Elements, state)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) peekIsColon() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Type == TokColon
}

func (p *Parser) parseState() (*State, error) {
	pos := p.cur().Pos
	if _, err := p.expect(TokState); err != nil {
		return nil, err
	}
	spriteEnum, err := p.parseQualifiedRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	directional, err := p.parseBool()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	ticksTok, err := p.expect(TokInt)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	think, err := p.parseFunctionRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	action, err := p.parseFunctionRef()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return nil, err
	}
	next, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return &State{
		SpriteEnum:  spriteEnum,
		Directional: directional,
		Ticks:       ticksTok.IntV,
		Think:       think,
		Action:      action,
		Next:        next.Text,
		Pos:         pos,
	}, nil
}

func (p *Parser) parseBool() (bool, error) {
	switch p.cur().Type {
	case TokTrue:
		p.advance()
		return true, nil
	case TokFalse:
		p.advance()
		return false, nil
	default:
		return false, &ParseError{Pos: p.cur().Pos, Message: fmt.Sprintf("expected true or false, got %q", p.cur().Text)}
	}
}

func (p *Parser) parseFunctionRef() (FunctionRef, error) {
	pos := p.cur().Pos
	if p.cur().Type == TokLBrace {
		p.advance()
		body, err := p.parseWordsUntil(TokRBrace)
		if err != nil {
			return FunctionRef{}, err
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return FunctionRef{}, err
		}
		return FunctionRef{Inline: body, Pos: pos}, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return FunctionRef{}, err
	}
	return FunctionRef{Name: name.Text, Pos: pos}, nil
}

func (p *Parser) parseFunctionDecl() (*FunctionDecl, error) {
	pos := p.cur().Pos
	if _, err := p.expect(TokFunction); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	body, err := p.parseWordsUntil(TokRBrace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return &FunctionDecl{Name: name.Text, Body: body, Pos: pos}, nil
}

func (p *Parser) parseSpawnBlock() (*SpawnBlock, error) {
	pos := p.cur().Pos
	if _, err := p.expect(TokSpawn); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLBrace); err != nil {
		return nil, err
	}
	block := &SpawnBlock{Name: name.Text, Pos: pos}
	for p.cur().Type != TokRBrace {
		entry, err := p.parseSpawnEntry()
		if err != nil {
			return nil, err
		}
		block.Entries = append(block.Entries, entry)
	}
	if _, err := p.expect(TokRBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseSpawnEntry() (SpawnEntry, error) {
	pos := p.cur().Pos
	var directional bool
	switch p.cur().Type {
	case TokDirectional:
		directional = true
		p.advance()
	case TokUndirectional:
		directional = false
		p.advance()
	default:
		return SpawnEntry{}, &ParseError{Pos: pos, Message: fmt.Sprintf("expected 'directional' or 'undirectional', got %q", p.cur().Text)}
	}
	idTok, err := p.expect(TokInt)
	if err != nil {
		return SpawnEntry{}, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return SpawnEntry{}, err
	}
	label, err := p.expectIdent()
	if err != nil {
		return SpawnEntry{}, err
	}
	if _, err := p.expect(TokComma); err != nil {
		return SpawnEntry{}, err
	}
	deathTok, err := p.expectIdent()
	if err != nil {
		return SpawnEntry{}, err
	}
	spawnOnDeath := deathTok.Text
	if spawnOnDeath == "None" {
		spawnOnDeath = ""
	}
	return SpawnEntry{
		Directional:  directional,
		ID:           idTok.IntV,
		StateLabel:   label.Text,
		SpawnOnDeath: spawnOnDeath,
		Pos:          pos,
	}, nil
}

// parseWordsUntil parses a word* sequence terminated by (but not
// consuming) end.
func (p *Parser) parseWordsUntil(end TokenType) ([]Word, error) {
	var words []Word
	for p.cur().Type != end {
		w, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

func (p *Parser) parseWord() (Word, error) {
	pos := p.cur().Pos
	switch p.cur().Type {
	case TokInt:
		tok := p.advance()
		suffix := "i32"
		if p.cur().Type == TokI32Suffix || p.cur().Type == TokU8Suffix {
			suffix = p.advance().Text
		}
		return Word{Kind: WordPushInt, Pos: pos, IntValue: tok.IntV, IntSuffix: suffix}, nil

	case TokIdent:
		ref, err := p.parseQualifiedRef()
		if err != nil {
			return Word{}, err
		}
		// An enum push always lowers to PUSH_U8 (spec §4.D lowering table);
		// a trailing "u8"/"i32" here is a tolerated, no-op type annotation.
		if p.cur().Type == TokU8Suffix || p.cur().Type == TokI32Suffix {
			p.advance()
		}
		return Word{Kind: WordPushEnum, Pos: pos, EnumRef: ref}, nil

	case TokAt:
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return Word{}, err
		}
		return Word{Kind: WordPushStateLabel, Pos: pos, LabelName: name.Text}, nil

	case TokTrap:
		p.advance()
		return Word{Kind: WordTrap, Pos: pos}, nil
	case TokNot:
		p.advance()
		return Word{Kind: WordNot, Pos: pos}, nil
	case TokAdd:
		p.advance()
		return Word{Kind: WordAdd, Pos: pos}, nil
	case TokCall:
		p.advance()
		return Word{Kind: WordCall, Pos: pos}, nil
	case TokGostate:
		p.advance()
		return Word{Kind: WordGostate, Pos: pos}, nil
	case TokStop:
		p.advance()
		return Word{Kind: WordStop, Pos: pos}, nil

	case TokIf:
		p.advance()
		if _, err := p.expect(TokLBrace); err != nil {
			return Word{}, err
		}
		body, err := p.parseWordsUntil(TokRBrace)
		if err != nil {
			return Word{}, err
		}
		if _, err := p.expect(TokRBrace); err != nil {
			return Word{}, err
		}
		return Word{Kind: WordIf, Pos: pos, IfBody: body}, nil

	case TokLBracket:
		p.advance()
		body, err := p.parseWordsUntil(TokRBracket)
		if err != nil {
			return Word{}, err
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return Word{}, err
		}
		return Word{Kind: WordList, Pos: pos, ListBody: body}, nil

	default:
		return Word{}, &ParseError{Pos: pos, Message: fmt.Sprintf("unexpected token %q in word list", p.cur().Text)}
	}
}
