package typecheck

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/types"
)

// intrinsicArgCount gives the fixed argument count of each intrinsic it
// lists; checkIntrinsic derives each one's result type. sizeof, length, lo
// and hi are not in this table, so a call to one of them goes down the
// ordinary-call path.
var intrinsicArgCount = map[string]int{
	"peek": 1, "poke": 2, "peekw": 1, "pokew": 2,
	"sei": 0, "cli": 0, "nop": 0, "brk": 0,
	"pha": 0, "pla": 0, "php": 0, "plp": 0,
	"barrier": 0, "volatile_read": 1, "volatile_write": 2,
}

// checkExpr type-checks e, stamps its resolved type onto the node, and
// returns that type's ID for the caller to use in its own checks.
func (c *Checker) checkExpr(e ast.Expr) types.ID {
	id := c.inferExpr(e)
	e.SetExprType(&ast.ResolvedType{TypeID: int(id), Name: c.typeName(id)})
	return id
}

func (c *Checker) typeName(id types.ID) string {
	if ty := c.types.Get(id); ty != nil {
		return ty.String()
	}
	return "?"
}

func (c *Checker) inferExpr(e ast.Expr) types.ID {
	switch n := e.(type) {
	case *ast.Literal:
		return c.inferLiteral(n)
	case *ast.Identifier:
		return c.inferIdentifier(n)
	case *ast.Call:
		return c.inferCall(n)
	case *ast.Index:
		return c.inferIndex(n)
	case *ast.Member:
		return c.inferMember(n)
	case *ast.Unary:
		return c.inferUnary(n)
	case *ast.Binary:
		return c.inferBinary(n)
	case *ast.Ternary:
		return c.inferTernary(n)
	case *ast.ArrayLiteral:
		return c.inferArrayLiteral(n)
	case *ast.AddressOf:
		return c.inferAddressOf(n)
	default:
		return c.types.Void()
	}
}

func (c *Checker) inferLiteral(n *ast.Literal) types.ID {
	switch n.Kind {
	case ast.LitBool:
		return c.types.Bool()
	case ast.LitString:
		return c.types.String(len(n.Str))
	default: // LitInt
		if n.Int > 0xFF {
			return c.types.Word()
		}
		return c.types.Byte()
	}
}

func (c *Checker) inferIdentifier(n *ast.Identifier) types.ID {
	sym, ok := c.scope.Lookup(n.Name)
	if !ok {
		// The resolver already reported E_UNDEFINED_IDENTIFIER; don't
		// double-report.
		return c.types.Void()
	}
	return sym.TypeID
}

// inferCall distinguishes three callee shapes: the two cast-call
// pseudo-functions byte(x)/word(x), a fixed-signature intrinsic, or an
// ordinary function/callback value.
func (c *Checker) inferCall(n *ast.Call) types.ID {
	if ident, ok := n.Callee.(*ast.Identifier); ok {
		switch ident.Name {
		case "byte":
			return c.checkCast(n, c.types.Byte())
		case "word":
			return c.checkCast(n, c.types.Word())
		}
		if argc, isIntrinsic := intrinsicArgCount[ident.Name]; isIntrinsic {
			return c.checkIntrinsic(n, ident.Name, argc)
		}
	}

	calleeTy := c.checkExpr(n.Callee)
	resolved := c.types.Get(c.types.Resolve(calleeTy))
	if resolved == nil || resolved.Kind != types.KindFunction {
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Callee.Span(),
			"callee is not callable"))
		for _, a := range n.Args {
			c.checkExpr(a)
		}
		return c.types.Void()
	}

	if len(n.Args) != len(resolved.Params) {
		c.sink.Add(source.New(source.Error, source.ErrArgCountMismatch, n.Span(),
			fmt.Sprintf("expected %d argument(s), got %d", len(resolved.Params), len(n.Args))))
	}
	for i, a := range n.Args {
		argTy := c.checkExpr(a)
		if i < len(resolved.Params) {
			c.requireAssignable(argTy, resolved.Params[i], a.Span(), fmt.Sprintf("argument %d", i+1))
		}
	}
	return resolved.Return
}

func (c *Checker) checkCast(n *ast.Call, target types.ID) types.ID {
	if len(n.Args) != 1 {
		c.sink.Add(source.New(source.Error, source.ErrArgCountMismatch, n.Span(), "a cast takes exactly one argument"))
		return target
	}
	argTy := c.checkExpr(n.Args[0])
	if !c.types.IsNumeric(argTy) {
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Args[0].Span(), "cast operand must be byte or word"))
		return target
	}
	argResolved := c.types.Get(c.types.Resolve(argTy))
	targetResolved := c.types.Get(target)
	if argResolved.Kind == types.KindWord && targetResolved.Kind == types.KindByte {
		c.sink.Add(source.New(source.Warning, source.WarnCastLosesData, n.Span(),
			"narrowing word to byte may discard the high byte"))
	}
	return target
}

func (c *Checker) checkIntrinsic(n *ast.Call, name string, argc int) types.ID {
	if len(n.Args) != argc {
		c.sink.Add(source.New(source.Error, source.ErrArgCountMismatch, n.Span(),
			fmt.Sprintf("%s expects %d argument(s), got %d", name, argc, len(n.Args))))
	}
	for _, a := range n.Args {
		c.checkExpr(a)
	}
	switch name {
	case "peek", "volatile_read":
		return c.types.Byte()
	case "peekw":
		return c.types.Word()
	default:
		return c.types.Void()
	}
}

func (c *Checker) inferIndex(n *ast.Index) types.ID {
	baseTy := c.checkExpr(n.Base)
	idxTy := c.checkExpr(n.Index)
	if !c.types.IsNumeric(idxTy) {
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Index.Span(), "array index must be numeric"))
	}
	resolved := c.types.Get(c.types.Resolve(baseTy))
	if resolved == nil || resolved.Kind != types.KindArray {
		c.sink.Add(source.New(source.Error, source.ErrIndexNonArray, n.Base.Span(), "indexed expression is not an array"))
		return c.types.Void()
	}
	return resolved.Elem
}

// inferMember resolves `@map` struct field access and `Enum.Member`
// access. Free-standing structs are out of scope — no struct types exist
// beyond @map layouts — so the only aggregates a Member can project out of
// are a map group symbol or an enum type, both declared by the resolver
// under the dotted "Group.Field" / "Enum.Member" name.
func (c *Checker) inferMember(n *ast.Member) types.ID {
	groupName := ""
	if ident, ok := n.Base.(*ast.Identifier); ok {
		groupName = ident.Name
	} else {
		c.checkExpr(n.Base)
		c.sink.Add(source.New(source.Error, source.ErrMemberNonAggregate, n.Span(), "member access requires a @map struct or enum name"))
		return c.types.Void()
	}
	fieldSym, ok := c.scope.Lookup(groupName + "." + n.Name)
	if !ok || (fieldSym.Kind != symbols.KindMapField && fieldSym.Kind != symbols.KindEnumMember) {
		c.sink.Add(source.New(source.Error, source.ErrMemberNonAggregate, n.Span(),
			fmt.Sprintf("%q has no field %q", groupName, n.Name)))
		return c.types.Void()
	}
	return fieldSym.TypeID
}

func (c *Checker) inferUnary(n *ast.Unary) types.ID {
	xTy := c.checkExpr(n.X)
	switch n.Op {
	case ast.UnaryNeg:
		if !c.types.IsNumeric(xTy) {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "unary '-' requires a numeric operand"))
		}
		return xTy
	case ast.UnaryNot:
		if !c.types.IsBool(xTy) {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "'!' requires a bool operand"))
		}
		return c.types.Bool()
	case ast.UnaryBitNot:
		if !c.types.IsNumeric(xTy) {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "'~' requires a numeric operand"))
		}
		return xTy
	default:
		return xTy
	}
}

func (c *Checker) inferBinary(n *ast.Binary) types.ID {
	lhsTy := c.checkExpr(n.LHS)
	rhsTy := c.checkExpr(n.RHS)

	switch n.Op {
	case ast.BinAnd, ast.BinOr:
		if !c.types.IsBool(lhsTy) || !c.types.IsBool(rhsTy) {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "'&&'/'||' require bool operands"))
		}
		return c.types.Bool()
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		if c.types.IsNumeric(lhsTy) && c.types.IsNumeric(rhsTy) {
			return c.types.Bool()
		}
		if c.types.AssignabilityOf(lhsTy, rhsTy) == types.Identical {
			return c.types.Bool()
		}
		c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "comparison operands must share a comparable type"))
		return c.types.Bool()
	default: // arithmetic / bitwise / shift
		if !c.types.IsNumeric(lhsTy) || !c.types.IsNumeric(rhsTy) {
			c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "arithmetic operands must be numeric"))
			return c.types.Byte()
		}
		return c.types.Widen(lhsTy, rhsTy)
	}
}

func (c *Checker) inferTernary(n *ast.Ternary) types.ID {
	c.requireBool(n.Cond)
	thenTy := c.checkExpr(n.Then)
	elseTy := c.checkExpr(n.Else)
	if thenTy == elseTy {
		return thenTy
	}
	if c.types.IsNumeric(thenTy) && c.types.IsNumeric(elseTy) {
		return c.types.Widen(thenTy, elseTy)
	}
	c.sink.Add(source.New(source.Error, source.ErrTypeMismatch, n.Span(), "ternary branches must unify to one type"))
	return thenTy
}

func (c *Checker) inferArrayLiteral(n *ast.ArrayLiteral) types.ID {
	if len(n.Elems) == 0 {
		return c.types.Array(c.types.Byte(), 0)
	}
	elemTy := c.checkExpr(n.Elems[0])
	for _, el := range n.Elems[1:] {
		ty := c.checkExpr(el)
		c.requireAssignable(ty, elemTy, el.Span(), "array element")
	}
	return c.types.Array(elemTy, len(n.Elems))
}

// inferAddressOf returns Address for an lvalue operand (`@` on an lvalue
// yields its Address); non-lvalue operands are an error.
func (c *Checker) inferAddressOf(n *ast.AddressOf) types.ID {
	switch n.Operand.(type) {
	case *ast.Identifier, *ast.Index, *ast.Member:
		c.checkExpr(n.Operand)
		return c.types.Address()
	default:
		c.sink.Add(source.New(source.Error, source.ErrNonLvalue, n.Operand.Span(), "'@' requires an addressable operand"))
		return c.types.Address()
	}
}
