package dataflow

import (
	"github.com/blendsdk/blend65/internal/ast"
)

// ConstantFold walks every expression in mod and marks MetaIsConstant /
// MetaConstValue on subtrees built entirely from literals and constant
// folding rules for binary/unary arithmetic. Neither the IL builder nor the
// optimizer reads these marks; the optimizer folds constants on the IL
// itself.
//
// This only folds the literal-only case, not identifiers that happen to
// name a `const` declaration: that requires knowing the const's own
// folded value, which belongs to the symbol table and type checker;
// wiring that through is this package's one open seam with the symbol
// table, left for the IL generator to complete once it has both metadata
// sources in hand.
func ConstantFold(mod *ast.Module) {
	walkFunctions(mod, func(fn *ast.Function) {
		foldBlock(fn.Body)
	})
}

func foldBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		foldStmt(s)
	}
}

func foldStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		foldBlock(n)
	case *ast.VarDeclStmt:
		if n.Decl.Init != nil {
			foldExpr(n.Decl.Init)
		}
	case *ast.ConstDeclStmt:
		if n.Decl.Init != nil {
			foldExpr(n.Decl.Init)
		}
	case *ast.ExprStmt:
		foldExpr(n.X)
	case *ast.Assign:
		foldExpr(n.LHS)
		foldExpr(n.RHS)
	case *ast.If:
		foldExpr(n.Cond)
		foldBlock(n.Then)
		if n.Else != nil {
			foldStmt(n.Else)
		}
	case *ast.While:
		foldExpr(n.Cond)
		foldBlock(n.Body)
	case *ast.DoWhile:
		foldBlock(n.Body)
		foldExpr(n.Cond)
	case *ast.For:
		foldExpr(n.From)
		foldExpr(n.Limit)
		if n.Step != nil {
			foldExpr(n.Step)
		}
		foldBlock(n.Body)
	case *ast.Switch:
		foldExpr(n.Subject)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				foldExpr(v)
			}
			for _, cs := range c.Body {
				foldStmt(cs)
			}
		}
	case *ast.Return:
		if n.Value != nil {
			foldExpr(n.Value)
		}
	}
}

// foldExpr returns the folded constant value and whether e is constant,
// recording both onto e's metadata as a side effect.
func foldExpr(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		if n.Kind == ast.LitInt {
			markConst(n, int64(n.Int))
			return int64(n.Int), true
		}
		if n.Kind == ast.LitBool {
			v := int64(0)
			if n.Bool {
				v = 1
			}
			markConst(n, v)
			return v, true
		}
		return 0, false
	case *ast.Unary:
		v, ok := foldExpr(n.X)
		if !ok {
			return 0, false
		}
		var out int64
		switch n.Op {
		case ast.UnaryNeg:
			out = -v
		case ast.UnaryBitNot:
			out = ^v
		case ast.UnaryNot:
			if v == 0 {
				out = 1
			}
		default:
			return 0, false
		}
		markConst(n, out)
		return out, true
	case *ast.Binary:
		l, lok := foldExpr(n.LHS)
		r, rok := foldExpr(n.RHS)
		if !lok || !rok {
			return 0, false
		}
		out, ok := foldBinary(n.Op, l, r)
		if !ok {
			return 0, false
		}
		markConst(n, out)
		return out, true
	case *ast.Ternary:
		// Recurse for metadata on sub-expressions even though a ternary
		// itself is never folded (its condition is rarely known at this
		// stage; the IL generator handles true constant-condition
		// branches once it has full symbol context).
		foldExpr(n.Cond)
		foldExpr(n.Then)
		foldExpr(n.Else)
		return 0, false
	case *ast.Call:
		foldExpr(n.Callee)
		for _, a := range n.Args {
			foldExpr(a)
		}
		return 0, false
	case *ast.Index:
		foldExpr(n.Base)
		foldExpr(n.Index)
		return 0, false
	case *ast.Member:
		foldExpr(n.Base)
		return 0, false
	case *ast.ArrayLiteral:
		for _, el := range n.Elems {
			foldExpr(el)
		}
		return 0, false
	case *ast.AddressOf:
		foldExpr(n.Operand)
		return 0, false
	default:
		return 0, false
	}
}

func foldBinary(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.BinAdd:
		return l + r, true
	case ast.BinSub:
		return l - r, true
	case ast.BinMul:
		return l * r, true
	case ast.BinDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.BinMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.BinShl:
		return l << uint(r), true
	case ast.BinShr:
		return l >> uint(r), true
	case ast.BinBitAnd:
		return l & r, true
	case ast.BinBitOr:
		return l | r, true
	case ast.BinBitXor:
		return l ^ r, true
	case ast.BinEq:
		return boolVal(l == r), true
	case ast.BinNe:
		return boolVal(l != r), true
	case ast.BinLt:
		return boolVal(l < r), true
	case ast.BinLe:
		return boolVal(l <= r), true
	case ast.BinGt:
		return boolVal(l > r), true
	case ast.BinGe:
		return boolVal(l >= r), true
	case ast.BinAnd:
		return boolVal(l != 0 && r != 0), true
	case ast.BinOr:
		return boolVal(l != 0 || r != 0), true
	default:
		return 0, false
	}
}

func boolVal(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func markConst(e ast.Expr, v int64) {
	e.Metadata().Set(ast.MetaIsConstant, true)
	e.Metadata().Set(ast.MetaConstValue, v)
}
