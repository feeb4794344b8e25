package parser

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/token"
)

// parseMapDecl parses the four @map forms:
//
//	@map NAME at ADDR : TYPE ;                          (simple)
//	@map NAME from ADDR to ADDR : TYPE ;                (range)
//	@map NAME type { FIELD: TYPE; ... } end @map ;      (sequential struct)
//	@map NAME layout { FIELD (at ADDR|from A to B): TYPE; ... } end @map ;  (layout struct)
func (p *Parser) parseMapDecl() ast.Decl {
	start := p.next().Span // '@map'
	name := p.expectIdent("mapped symbol name")

	switch p.peek().Kind {
	case token.KwAt:
		p.next()
		at := p.parseExpr(precAssign)
		p.expect(token.Colon, "':'")
		ty := p.parseTypeExpr()
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.MapDecl{
			Base: ast.NewBase(start.Join(end)), Name: name, Form: ast.MapSimple, Type: ty,
			Address: &ast.MapAddress{Form: ast.MapSimple, At: at},
		}
	case token.KwFrom:
		p.next()
		from := p.parseExpr(precAssign)
		p.expect(token.KwTo, "'to'")
		to := p.parseExpr(precAssign)
		p.expect(token.Colon, "':'")
		ty := p.parseTypeExpr()
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.MapDecl{
			Base: ast.NewBase(start.Join(end)), Name: name, Form: ast.MapRange, Type: ty,
			Address: &ast.MapAddress{Form: ast.MapRange, From: from, To: to},
		}
	case token.KwType:
		p.next()
		p.expect(token.LBrace, "'{'")
		var fields []*ast.MapField
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			fStart := p.peek().Span
			fname := p.expectIdent("field name")
			p.expect(token.Colon, "':'")
			fty := p.parseTypeExpr()
			p.expect(token.Semicolon, "';'")
			fields = append(fields, &ast.MapField{Base: ast.NewBase(fStart.Join(fty.Span())), Name: fname, Type: fty})
		}
		p.expect(token.RBrace, "'}'")
		p.expect(token.KwEnd, "'end'")
		p.expect(token.AtMap, "'@map'")
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.MapDecl{Base: ast.NewBase(start.Join(end)), Name: name, Form: ast.MapSequentialStruct, Fields: fields}
	case token.KwLayout:
		p.next()
		p.expect(token.LBrace, "'{'")
		var fields []*ast.MapField
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			fStart := p.peek().Span
			fname := p.expectIdent("field name")
			var addr *ast.MapAddress
			switch p.peek().Kind {
			case token.KwAt:
				p.next()
				at := p.parseExpr(precAssign)
				addr = &ast.MapAddress{Form: ast.MapSimple, At: at}
			case token.KwFrom:
				p.next()
				from := p.parseExpr(precAssign)
				p.expect(token.KwTo, "'to'")
				to := p.parseExpr(precAssign)
				addr = &ast.MapAddress{Form: ast.MapRange, From: from, To: to}
			default:
				t := p.peek()
				p.errorf(t.Span, source.ErrUnexpectedTopLevel, "layout field requires 'at ADDR' or 'from ADDR to ADDR'")
			}
			p.expect(token.Colon, "':'")
			fty := p.parseTypeExpr()
			p.expect(token.Semicolon, "';'")
			fields = append(fields, &ast.MapField{Base: ast.NewBase(fStart.Join(fty.Span())), Name: fname, Type: fty, Address: addr})
		}
		p.expect(token.RBrace, "'}'")
		p.expect(token.KwEnd, "'end'")
		p.expect(token.AtMap, "'@map'")
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.MapDecl{Base: ast.NewBase(start.Join(end)), Name: name, Form: ast.MapLayoutStruct, Fields: fields}
	default:
		t := p.peek()
		p.errorf(t.Span, source.ErrUnexpectedTopLevel, "@map requires 'at', 'from', 'type', or 'layout'")
		p.synchronize(topLevelKeywords...)
		return nil
	}
}
