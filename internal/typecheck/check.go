// Package typecheck assigns and checks types over an already
// name-resolved AST: variable/const initializer assignability, assignment
// lvalue rules, call argument matching, return obligations, index/member
// resolution, ternary unification, address-of rules, and the fixed
// intrinsic signatures.
//
// The single-walk-with-a-type-stack shape follows
// ajroetker-goat's operand-width checking in x86_simd_types.go/
// neon_types.go — both validate an operand's width against an
// instruction's expected width in one pass over already-parsed operands,
// exactly the shape this checker needs over already-parsed expressions.
package typecheck

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/types"
)

// Checker walks one module's AST, stamping ast.ResolvedType onto every
// Expr and reporting type diagnostics into sink.
type Checker struct {
	types *types.Table
	sink  *source.Sink
	scope *symbols.Scope

	// currentReturn is the resolved return type of the function body
	// currently being checked, used to validate `return` statements.
	currentReturn types.ID
}

// New creates a Checker sharing the program's type table.
func New(t *types.Table, sink *source.Sink) *Checker {
	return &Checker{types: t, sink: sink}
}

// CheckModule walks every function body in mod, using global as the
// module-level scope produced by the resolver.
func (c *Checker) CheckModule(mod *ast.Module, global *symbols.Scope) {
	c.scope = global
	for _, d := range mod.Decls {
		c.checkDecl(d)
	}
}

func (c *Checker) checkDecl(d ast.Decl) {
	switch n := d.(type) {
	case *ast.Export:
		c.checkDecl(n.Inner)
	case *ast.Variable:
		c.checkVariable(n)
	case *ast.Const:
		c.checkConst(n)
	case *ast.Function:
		c.checkFunction(n)
	}
}

func (c *Checker) checkVariable(n *ast.Variable) {
	declared := c.resolveTypeName(n.Type)
	if n.Init == nil {
		return
	}
	initTy := c.checkExpr(n.Init)
	c.requireAssignable(initTy, declared, n.Init.Span(), n.Name)
}

func (c *Checker) checkConst(n *ast.Const) {
	declared := c.resolveTypeName(n.Type)
	if n.Init == nil {
		return
	}
	initTy := c.checkExpr(n.Init)
	c.requireAssignable(initTy, declared, n.Init.Span(), n.Name)
}

func (c *Checker) checkFunction(n *ast.Function) {
	if n.Body == nil {
		return
	}
	prevReturn := c.currentReturn
	if n.ReturnType != nil {
		c.currentReturn = c.resolveTypeName(n.ReturnType)
	} else {
		c.currentReturn = c.types.Void()
	}
	c.checkBlock(n.Body)
	c.currentReturn = prevReturn
}

func (c *Checker) checkBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *Checker) checkStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		c.checkBlock(n)
	case *ast.VarDeclStmt:
		c.checkVariable(n.Decl)
	case *ast.ConstDeclStmt:
		c.checkConst(n.Decl)
	case *ast.ExprStmt:
		c.checkExpr(n.X)
	case *ast.Assign:
		c.checkAssign(n)
	case *ast.If:
		c.requireBool(n.Cond)
		c.checkBlock(n.Then)
		if n.Else != nil {
			c.checkStmt(n.Else)
		}
	case *ast.While:
		c.requireBool(n.Cond)
		c.checkBlock(n.Body)
	case *ast.DoWhile:
		c.checkBlock(n.Body)
		c.requireBool(n.Cond)
	case *ast.For:
		c.checkExpr(n.From)
		c.checkExpr(n.Limit)
		if n.Step != nil {
			c.checkExpr(n.Step)
		}
		c.checkBlock(n.Body)
	case *ast.Switch:
		c.checkExpr(n.Subject)
		for _, cl := range n.Cases {
			for _, v := range cl.Values {
				c.checkExpr(v)
			}
			for _, cs := range cl.Body {
				c.checkStmt(cs)
			}
		}
	case *ast.Return:
		c.checkReturn(n)
	}
}

func (c *Checker) checkReturn(n *ast.Return) {
	if n.Value == nil {
		if c.currentReturn != c.types.Void() {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(),
				"missing return value for a non-void function"))
		}
		return
	}
	ty := c.checkExpr(n.Value)
	c.requireAssignable(ty, c.currentReturn, n.Value.Span(), "return value")
}

// checkAssign validates both the lvalue shape of the LHS (Identifier,
// Index, or Member only) and type assignability of RHS into LHS.
func (c *Checker) checkAssign(n *ast.Assign) {
	switch n.LHS.(type) {
	case *ast.Identifier, *ast.Index, *ast.Member:
		// lvalue-shaped; proceed.
	default:
		c.sink.Add(source.New(source.Error, source.ErrNonLvalue, n.LHS.Span(),
			"left-hand side of an assignment must be a variable, index, or field"))
	}
	lhsTy := c.checkExpr(n.LHS)
	rhsTy := c.checkExpr(n.RHS)

	if n.Op != ast.AssignPlain && !c.types.IsNumeric(lhsTy) {
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(),
			"compound assignment operators require a numeric left-hand side"))
		return
	}
	c.requireAssignable(rhsTy, lhsTy, n.RHS.Span(), "assignment")
}

func (c *Checker) requireBool(e ast.Expr) {
	ty := c.checkExpr(e)
	if !c.types.IsBool(ty) {
		c.sink.Add(source.New(source.Error, source.ErrNonBoolCondition, e.Span(),
			"condition must be a bool expression"))
	}
}

// requireAssignable checks from-into-to assignability, accepting
// Identical/AssignableDirect silently and emitting E_TYPE_MISMATCH for both
// Incompatible and RequiresExplicitCast: the checker never auto-inserts a
// cast, so an implicit widening or narrowing at an assignment site (not a
// byte()/word() call) is always an error — those coercions only exist as
// cast-call syntax. W_CAST_LOSES_DATA comes from checkCast, for an
// explicit narrowing.
func (c *Checker) requireAssignable(from, to types.ID, span source.Span, what string) {
	switch c.types.AssignabilityOf(from, to) {
	case types.Identical, types.AssignableDirect:
		return
	case types.RequiresExplicitCast, types.Incompatible:
		fromTy, toTy := c.types.Get(c.types.Resolve(from)), c.types.Get(c.types.Resolve(to))
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, span,
			fmt.Sprintf("%s: cannot use a value of type %s where %s is expected", what, fromTy, toTy)).
			WithRemedy("insert an explicit byte(...)/word(...) cast if this narrowing is intended"))
	}
}

func (c *Checker) resolveTypeName(te ast.TypeExpr) types.ID {
	switch t := te.(type) {
	case *ast.NamedType:
		switch t.Name {
		case "byte":
			return c.types.Byte()
		case "word":
			return c.types.Word()
		case "bool":
			return c.types.Bool()
		case "void":
			return c.types.Void()
		case "address":
			return c.types.Address()
		default:
			if sym, ok := c.scope.Lookup(t.Name); ok {
				return sym.TypeID
			}
			return c.types.Void()
		}
	case *ast.ArrayType:
		elem := c.resolveTypeName(t.Elem)
		size := 0
		if lit, ok := t.Size.(*ast.Literal); ok && lit.Kind == ast.LitInt {
			size = int(lit.Int)
		}
		return c.types.Array(elem, size)
	default:
		return c.types.Void()
	}
}
