package config

import (
	"fmt"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// ParseError reports a syntax or schema error in configuration text.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// ParseText parses hierarchical configuration text (the Format output)
// into a new tree, validating every name and value against the schema.
func ParseText(ctx *schema.Context, text string) (*ConfigTree, error) {
	p := &textParser{ctx: ctx, lex: NewLexer(text), tree: New()}
	if err := p.parseBlock(nil, schema.Node{}); err != nil {
		return nil, err
	}
	return p.tree, nil
}

type textParser struct {
	ctx  *schema.Context
	lex  *Lexer
	tree *ConfigTree
}

func (p *textParser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *textParser) parseBlock(path []Step, parent schema.Node) error {
	for {
		tok := p.lex.Next()
		switch tok.Type {
		case TokenEOF:
			if len(path) > 0 {
				return p.errorf(tok, "missing '}' for %s", PathString(path))
			}
			return nil
		case TokenRBrace:
			if len(path) == 0 {
				return p.errorf(tok, "unexpected '}'")
			}
			return nil
		case TokenError:
			return p.errorf(tok, "%s", tok.Value)
		case TokenWord:
		default:
			return p.errorf(tok, "expected name, got %s", tok)
		}

		var (
			sn schema.Node
			ok bool
		)
		if parent.IsZero() {
			sn, ok = p.ctx.Root(tok.Value)
		} else {
			sn, ok = parent.Child(tok.Value)
		}
		if !ok || !sn.Config() || sn.IsKey() {
			return p.errorf(tok, "unknown configuration node %q", tok.Value)
		}

		if err := p.parseStatement(path, sn, tok); err != nil {
			return err
		}
	}
}

func (p *textParser) parseStatement(path []Step, sn schema.Node, name Token) error {
	switch sn.Kind() {
	case schema.KindLeaf, schema.KindLeafList:
		value := ""
		if !sn.EmptyType() {
			tok := p.lex.Next()
			if tok.Type != TokenWord && tok.Type != TokenString {
				return p.errorf(tok, "%s: expected value, got %s", sn.Name(), tok)
			}
			value = tok.Value
		}
		if err := sn.ValidateValue(value); err != nil {
			return p.errorf(name, "%s: %v", sn.Name(), err)
		}
		if tok := p.lex.Next(); tok.Type != TokenSemicolon {
			return p.errorf(tok, "expected ';', got %s", tok)
		}
		_, err := p.tree.Set(append(path, Step{Node: sn}), value)
		return err

	case schema.KindContainer, schema.KindList:
		step := Step{Node: sn}
		for _, key := range sn.Keys() {
			tok := p.lex.Next()
			if tok.Type != TokenWord && tok.Type != TokenString {
				return p.errorf(tok, "%s: expected %s, got %s", sn.Name(), key, tok)
			}
			if kn, ok := sn.Child(key); ok {
				if err := kn.ValidateValue(tok.Value); err != nil {
					return p.errorf(tok, "%s: %v", key, err)
				}
			}
			step.Keys = append(step.Keys, tok.Value)
		}
		if tok := p.lex.Next(); tok.Type != TokenLBrace {
			return p.errorf(tok, "expected '{', got %s", tok)
		}
		sub := append(path[:len(path):len(path)], step)
		if _, err := p.tree.Set(sub, ""); err != nil {
			return err
		}
		return p.parseBlock(sub, sn)
	}
	return p.errorf(name, "unsupported node %q", sn.Name())
}
