package parser

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/token"
)

// precedence levels, low to high, mirroring the language's 13-level table:
// grouping > unary > * / % > + - > shifts > relational > equality > & > ^
// > | > && > || > ternary > assignment. Grouping and unary are handled by
// parsePrimary/parseUnary directly rather than as binding powers, so the
// numeric levels below cover assignment through multiplicative.
const (
	precNone       = iota
	precAssign     // right-assoc: =, +=, -=, *=, /=
	precTernary    // right-assoc: ?:
	precLogicalOr  // ||
	precLogicalAnd // &&
	precBitOr      // |
	precBitXor     // ^
	precBitAnd     // &
	precEquality   // == !=
	precRelational // < <= > >=
	precShift      // << >>
	precAdditive   // + -
	precMultiplicative // * / %
	precUnary
	precCall // (), [], .
)

var binaryPrec = map[token.Kind]int{
	token.PipePipe: precLogicalOr,
	token.AmpAmp:   precLogicalAnd,
	token.Pipe:     precBitOr,
	token.Caret:    precBitXor,
	token.Amp:      precBitAnd,
	token.Eq:       precEquality, token.Ne: precEquality,
	token.Lt: precRelational, token.Le: precRelational,
	token.Gt: precRelational, token.Ge: precRelational,
	token.Shl: precShift, token.Shr: precShift,
	token.Plus: precAdditive, token.Minus: precAdditive,
	token.Star: precMultiplicative, token.Slash: precMultiplicative, token.Percent: precMultiplicative,
}

var binaryOp = map[token.Kind]ast.BinaryOp{
	token.Plus: ast.BinAdd, token.Minus: ast.BinSub,
	token.Star: ast.BinMul, token.Slash: ast.BinDiv, token.Percent: ast.BinMod,
	token.Shl: ast.BinShl, token.Shr: ast.BinShr,
	token.Amp: ast.BinBitAnd, token.Pipe: ast.BinBitOr, token.Caret: ast.BinBitXor,
	token.AmpAmp: ast.BinAnd, token.PipePipe: ast.BinOr,
	token.Eq: ast.BinEq, token.Ne: ast.BinNe,
	token.Lt: ast.BinLt, token.Le: ast.BinLe, token.Gt: ast.BinGt, token.Ge: ast.BinGe,
}

var assignOp = map[token.Kind]ast.AssignOp{
	token.Assign:      ast.AssignPlain,
	token.PlusAssign:  ast.AssignAdd,
	token.MinusAssign: ast.AssignSub,
	token.StarAssign:  ast.AssignMul,
	token.SlashAssign: ast.AssignDiv,
}

// parseExpr parses an expression with minimum binding power minPrec, using
// Pratt's algorithm: parse a unary/primary left-hand side, then
// repeatedly fold in binary/ternary/assignment operators whose precedence
// is >= minPrec.
func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()

	for {
		k := p.peek().Kind
		if _, ok := assignOp[k]; ok && minPrec <= precAssign {
			// Assignment is right-associative and lowest precedence; it is
			// parsed here only when the caller allows it (statement-level
			// assignment goes through parseAssignStmt instead, which
			// handles the LHS-is-lvalue check). Expression-position
			// assignment is not part of this grammar, so treat it as the
			// end of the expression and let the statement parser consume
			// the '=' itself. We still need to not mis-parse `a = b` as
			// two expressions, so we simply stop here.
			break
		}
		if k == token.Question && minPrec <= precTernary {
			p.next()
			then := p.parseExpr(precTernary) // right-assoc: allow nested ternary on both arms
			p.expect(token.Colon, "':'")
			els := p.parseExpr(precTernary)
			te := &ast.Ternary{ExprBase: ast.NewExprBase(left.Span().Join(els.Span())), Cond: left, Then: then, Else: els}
			left = te
			continue
		}
		prec, ok := binaryPrec[k]
		if !ok || prec < minPrec {
			break
		}
		opTok := p.next()
		// All binary operators here are left-associative, so the
		// recursive call uses prec+1 as its minimum.
		right := p.parseExpr(prec + 1)
		be := &ast.Binary{
			ExprBase: ast.NewExprBase(left.Span().Join(right.Span())),
			Op:       binaryOp[opTok.Kind],
			LHS:      left,
			RHS:      right,
		}
		left = be
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.peek()
	switch start.Kind {
	case token.Minus:
		p.next()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.NewExprBase(start.Span.Join(x.Span())), Op: ast.UnaryNeg, X: x}
	case token.Bang:
		p.next()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.NewExprBase(start.Span.Join(x.Span())), Op: ast.UnaryNot, X: x}
	case token.Tilde:
		p.next()
		x := p.parseUnary()
		return &ast.Unary{ExprBase: ast.NewExprBase(start.Span.Join(x.Span())), Op: ast.UnaryBitNot, X: x}
	case token.AtSign:
		p.next()
		x := p.parseUnary()
		return &ast.AddressOf{ExprBase: ast.NewExprBase(start.Span.Join(x.Span())), Operand: x}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

// parsePostfix handles call/index/member chains, which bind tighter than
// any other operator: `f().x[0]` must chain left to right.
func (p *Parser) parsePostfix(x ast.Expr) ast.Expr {
	for {
		switch p.peek().Kind {
		case token.LParen:
			p.next()
			var args []ast.Expr
			for !p.at(token.RParen) && !p.at(token.EOF) {
				args = append(args, p.parseExpr(precAssign))
				if _, ok := p.accept(token.Comma); !ok {
					break
				}
			}
			end := p.expect(token.RParen, "')'").Span
			x = &ast.Call{ExprBase: ast.NewExprBase(x.Span().Join(end)), Callee: x, Args: args}
		case token.LBracket:
			p.next()
			idx := p.parseExpr(precAssign)
			end := p.expect(token.RBracket, "']'").Span
			x = &ast.Index{ExprBase: ast.NewExprBase(x.Span().Join(end)), Base: x, Index: idx}
		case token.Dot:
			p.next()
			nameTok := p.expect(token.Identifier, "a member name")
			x = &ast.Member{ExprBase: ast.NewExprBase(x.Span().Join(nameTok.Span)), Base: x, Name: nameTok.Literal.Symbol}
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	t := p.peek()
	switch t.Kind {
	case token.IntLiteral:
		p.next()
		return &ast.Literal{ExprBase: ast.NewExprBase(t.Span), Kind: ast.LitInt, Int: t.Literal.IntValue}
	case token.StringLiteral:
		p.next()
		return &ast.Literal{ExprBase: ast.NewExprBase(t.Span), Kind: ast.LitString, Str: t.Literal.StringValue}
	case token.KwTrue:
		p.next()
		return &ast.Literal{ExprBase: ast.NewExprBase(t.Span), Kind: ast.LitBool, Bool: true}
	case token.KwFalse:
		p.next()
		return &ast.Literal{ExprBase: ast.NewExprBase(t.Span), Kind: ast.LitBool, Bool: false}
	case token.Identifier:
		p.next()
		return &ast.Identifier{ExprBase: ast.NewExprBase(t.Span), Name: t.Literal.Symbol}
	case token.KwByte, token.KwWord:
		// Explicit cast syntax: byte(x) / word(x). Parsed as a call whose
		// callee is a bare cast-keyword identifier; the type checker
		// recognizes these names specially.
		p.next()
		name := t.Kind.String()
		callee := &ast.Identifier{ExprBase: ast.NewExprBase(t.Span), Name: name}
		return p.parsePostfix(callee)
	case token.LParen:
		p.next()
		inner := p.parseExpr(precAssign)
		end := p.expect(token.RParen, "')'").Span
		inner.SetSpan(t.Span.Join(end))
		return inner
	case token.LBracket:
		p.next()
		var elems []ast.Expr
		for !p.at(token.RBracket) && !p.at(token.EOF) {
			elems = append(elems, p.parseExpr(precAssign))
			if _, ok := p.accept(token.Comma); !ok {
				break
			}
		}
		end := p.expect(token.RBracket, "']'").Span
		return &ast.ArrayLiteral{ExprBase: ast.NewExprBase(t.Span.Join(end)), Elems: elems}
	default:
		p.next()
		p.errorf(t.Span, source.ErrUnexpectedTopLevel, "unexpected token %s in expression", t.Kind)
		return &ast.Literal{ExprBase: ast.NewExprBase(t.Span), Kind: ast.LitInt, Int: 0}
	}
}
