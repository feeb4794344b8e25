package ast

// Visitor receives a callback per node kind group; any nil func is skipped
// for that group. Walk dispatches by match-on-tag (a type switch) rather
// than a double-dispatch Accept method on every node: one exhaustive
// switch, not N Accept methods.
type Visitor struct {
	Decl func(Decl)
	Stmt func(Stmt)
	Expr func(Expr)
}

// WalkModule visits every declaration, statement, and expression reachable
// from a Module, depth first, pre-order.
func WalkModule(m *Module, v Visitor) {
	for _, d := range m.Decls {
		WalkDecl(d, v)
	}
}

func WalkDecl(d Decl, v Visitor) {
	if d == nil {
		return
	}
	if v.Decl != nil {
		v.Decl(d)
	}
	switch n := d.(type) {
	case *Export:
		WalkDecl(n.Inner, v)
	case *Variable:
		if n.Init != nil {
			WalkExpr(n.Init, v)
		}
	case *Const:
		WalkExpr(n.Init, v)
	case *Function:
		if n.Body != nil {
			WalkStmt(n.Body, v)
		}
	case *Enum:
		for _, mem := range n.Members {
			if mem.Value != nil {
				WalkExpr(mem.Value, v)
			}
		}
	case *MapDecl:
		walkMapAddress(n.Address, v)
		for _, f := range n.Fields {
			walkMapAddress(f.Address, v)
		}
	case *Import, *TypeAlias:
		// no nested decl/stmt/expr children
	}
}

func walkMapAddress(a *MapAddress, v Visitor) {
	if a == nil {
		return
	}
	for _, e := range []Expr{a.At, a.From, a.To} {
		if e != nil {
			WalkExpr(e, v)
		}
	}
}

func WalkStmt(s Stmt, v Visitor) {
	if s == nil {
		return
	}
	if v.Stmt != nil {
		v.Stmt(s)
	}
	switch n := s.(type) {
	case *Block:
		for _, inner := range n.Stmts {
			WalkStmt(inner, v)
		}
	case *ExprStmt:
		WalkExpr(n.X, v)
	case *Assign:
		WalkExpr(n.LHS, v)
		WalkExpr(n.RHS, v)
	case *VarDeclStmt:
		WalkDecl(n.Decl, v)
	case *ConstDeclStmt:
		WalkDecl(n.Decl, v)
	case *If:
		WalkExpr(n.Cond, v)
		WalkStmt(n.Then, v)
		WalkStmt(n.Else, v)
	case *While:
		WalkExpr(n.Cond, v)
		WalkStmt(n.Body, v)
	case *DoWhile:
		WalkStmt(n.Body, v)
		WalkExpr(n.Cond, v)
	case *For:
		WalkExpr(n.From, v)
		WalkExpr(n.Limit, v)
		if n.Step != nil {
			WalkExpr(n.Step, v)
		}
		WalkStmt(n.Body, v)
	case *Switch:
		WalkExpr(n.Subject, v)
		for _, c := range n.Cases {
			for _, val := range c.Values {
				WalkExpr(val, v)
			}
			for _, body := range c.Body {
				WalkStmt(body, v)
			}
		}
	case *Return:
		if n.Value != nil {
			WalkExpr(n.Value, v)
		}
	case *Break, *Continue, *InlineAsm:
		// leaves
	}
}

func WalkExpr(e Expr, v Visitor) {
	if e == nil {
		return
	}
	if v.Expr != nil {
		v.Expr(e)
	}
	switch n := e.(type) {
	case *Literal, *Identifier:
		// leaves
	case *Call:
		WalkExpr(n.Callee, v)
		for _, a := range n.Args {
			WalkExpr(a, v)
		}
	case *Index:
		WalkExpr(n.Base, v)
		WalkExpr(n.Index, v)
	case *Member:
		WalkExpr(n.Base, v)
	case *Unary:
		WalkExpr(n.X, v)
	case *Binary:
		WalkExpr(n.LHS, v)
		WalkExpr(n.RHS, v)
	case *Ternary:
		WalkExpr(n.Cond, v)
		WalkExpr(n.Then, v)
		WalkExpr(n.Else, v)
	case *ArrayLiteral:
		for _, el := range n.Elems {
			WalkExpr(el, v)
		}
	case *AddressOf:
		WalkExpr(n.Operand, v)
	}
}
