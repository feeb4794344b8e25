package parser

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/token"
)

var stmtSyncKinds = []token.Kind{
	token.Semicolon, token.RBrace, token.KwIf, token.KwWhile, token.KwFor,
	token.KwReturn, token.KwBreak, token.KwContinue, token.KwSwitch,
}

func (p *Parser) parseBlock() *ast.Block {
	start := p.expect(token.LBrace, "'{'").Span
	b := &ast.Block{}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		s := p.parseStmt()
		if s != nil {
			b.Stmts = append(b.Stmts, s)
		}
	}
	end := p.expect(token.RBrace, "'}'").Span
	b.Base = ast.NewBase(start.Join(end))
	return b
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peek().Kind {
	case token.LBrace:
		return p.parseBlock()
	case token.KwLet:
		return p.parseVarDeclStmt()
	case token.KwConst:
		c := p.parseConst().(*ast.Const)
		return &ast.ConstDeclStmt{Base: ast.NewBase(c.Span()), Decl: c}
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwDo:
		return p.parseDoWhile()
	case token.KwFor:
		return p.parseFor()
	case token.KwSwitch:
		return p.parseSwitch()
	case token.KwReturn:
		return p.parseReturn()
	case token.KwBreak:
		t := p.next()
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.Break{Base: ast.NewBase(t.Span.Join(end))}
	case token.KwContinue:
		t := p.next()
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.Continue{Base: ast.NewBase(t.Span.Join(end))}
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseVarDeclStmt() ast.Stmt {
	v := p.parseVariable(ast.StorageDefault).(*ast.Variable)
	return &ast.VarDeclStmt{Base: ast.NewBase(v.Span()), Decl: v}
}

// parseExprOrAssignStmt parses either a bare expression statement or an
// assignment: `LHS = RHS ;` / `LHS += RHS ;` etc. The LHS must be an
// lvalue, but that check belongs to the type checker, not the parser, so
// it can be reported with full type context.
func (p *Parser) parseExprOrAssignStmt() ast.Stmt {
	start := p.peek().Span
	lhs := p.parseExpr(precAssign + 1) // stop just above assignment so '=' is visible here
	if op, ok := assignOp[p.peek().Kind]; ok {
		p.next()
		rhs := p.parseExpr(precAssign)
		end := p.expect(token.Semicolon, "';'").Span
		return &ast.Assign{Base: ast.NewBase(start.Join(end)), Op: op, LHS: lhs, RHS: rhs}
	}
	end := p.expect(token.Semicolon, "';'").Span
	return &ast.ExprStmt{Base: ast.NewBase(start.Join(end)), X: lhs}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.next().Span // 'if'
	p.expect(token.LParen, "'('")
	cond := p.parseExpr(precAssign)
	p.expect(token.RParen, "')'")
	then := p.parseBlock()

	n := &ast.If{Cond: cond, Then: then}
	end := then.Span()
	if _, ok := p.accept(token.KwElse); ok {
		if p.at(token.KwIf) {
			n.Else = p.parseIf()
		} else {
			n.Else = p.parseBlock()
		}
		end = n.Else.Span()
	}
	n.Base = ast.NewBase(start.Join(end))
	return n
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.next().Span // 'while'
	p.expect(token.LParen, "'('")
	cond := p.parseExpr(precAssign)
	p.expect(token.RParen, "')'")
	body := p.parseBlock()
	return &ast.While{Base: ast.NewBase(start.Join(body.Span())), Cond: cond, Body: body}
}

// parseDoWhile enforces the documented termination rule: a do-while
// statement requires a trailing ';' after its condition, unlike every
// other block statement in this grammar.
func (p *Parser) parseDoWhile() ast.Stmt {
	start := p.next().Span // 'do'
	body := p.parseBlock()
	p.expect(token.KwWhile, "'while'")
	p.expect(token.LParen, "'('")
	cond := p.parseExpr(precAssign)
	p.expect(token.RParen, "')'")
	end := p.expect(token.Semicolon, "';'").Span
	return &ast.DoWhile{Base: ast.NewBase(start.Join(end)), Body: body, Cond: cond}
}

// parseFor parses `for i = A to|downto B [step S] { ... }`, desugared
// later by the IL generator.
func (p *Parser) parseFor() ast.Stmt {
	start := p.next().Span // 'for'
	varName := p.expectIdent("loop variable name")
	p.expect(token.Assign, "'='")
	from := p.parseExpr(precAssign)

	var dir ast.ForDirection
	switch p.peek().Kind {
	case token.KwTo:
		p.next()
		dir = ast.ForTo
	case token.KwDownto:
		p.next()
		dir = ast.ForDownto
	default:
		t := p.peek()
		p.errorf(t.Span, source.ErrUnexpectedTopLevel, "expected 'to' or 'downto', found %s", t.Kind)
	}
	limit := p.parseExpr(precAssign)

	var step ast.Expr
	if _, ok := p.accept(token.KwStep); ok {
		step = p.parseExpr(precAssign)
	}
	body := p.parseBlock()
	return &ast.For{
		Base: ast.NewBase(start.Join(body.Span())), Var: varName, From: from,
		Dir: dir, Limit: limit, Step: step, Body: body,
	}
}

func (p *Parser) parseSwitch() ast.Stmt {
	start := p.next().Span // 'switch'
	p.expect(token.LParen, "'('")
	subject := p.parseExpr(precAssign)
	p.expect(token.RParen, "')'")
	p.expect(token.LBrace, "'{'")

	sw := &ast.Switch{Subject: subject}
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		clause := &ast.CaseClause{}
		switch p.peek().Kind {
		case token.KwCase:
			p.next()
			for {
				clause.Values = append(clause.Values, p.parseExpr(precAssign))
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			p.expect(token.Colon, "':'")
		case token.KwDefault:
			p.next()
			p.expect(token.Colon, "':'")
		default:
			t := p.next()
			p.errorf(t.Span, source.ErrUnexpectedTopLevel, "expected 'case' or 'default', found %s", t.Kind)
			p.synchronize(token.KwCase, token.KwDefault, token.RBrace)
			continue
		}
		for !p.at(token.KwCase) && !p.at(token.KwDefault) && !p.at(token.RBrace) && !p.at(token.EOF) {
			s := p.parseStmt()
			if s != nil {
				clause.Body = append(clause.Body, s)
			}
		}
		sw.Cases = append(sw.Cases, clause)
	}
	end := p.expect(token.RBrace, "'}'").Span
	sw.Base = ast.NewBase(start.Join(end))
	return sw
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.next().Span // 'return'
	r := &ast.Return{}
	if !p.at(token.Semicolon) {
		r.Value = p.parseExpr(precAssign)
	}
	end := p.expect(token.Semicolon, "';'").Span
	r.Base = ast.NewBase(start.Join(end))
	return r
}
