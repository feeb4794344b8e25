package parser

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/token"
)

// parseTypeExpr parses a syntactic type: a named type (byte, word, bool,
// string, void, callback, or a user alias/enum name) or an array type
// `T[N]`. Structs/unions/signed types are not part of this grammar at all;
// source naming one fails as an ordinary parse or undefined-type error.
// E_UNSUPPORTED_LANGUAGE_FEATURE is defined in internal/source, but no pass
// reports it.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	start := p.peek().Span
	var name string
	switch p.peek().Kind {
	case token.KwByte, token.KwWord, token.KwVoid, token.KwBool,
		token.KwString, token.KwCallback:
		name = p.next().Kind.String()
	case token.Identifier:
		name = p.next().Literal.Symbol
	default:
		t := p.peek()
		name = t.Kind.String()
		p.expect(token.Identifier, "a type name")
	}

	base := ast.TypeExpr(&ast.NamedType{Base: ast.NewBase(start), Name: name})

	if _, ok := p.accept(token.LBracket); ok {
		size := p.parseExpr(precAssign)
		end := p.expect(token.RBracket, "']'").Span
		return &ast.ArrayType{Base: ast.NewBase(start.Join(end)), Elem: base, Size: size}
	}
	return base
}
