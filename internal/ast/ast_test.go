package ast

import (
	"testing"

	"github.com/blendsdk/blend65/internal/source"
)

func TestMetadataGetSetOnZeroValue(t *testing.T) {
	var m Metadata
	if _, ok := m.Get(MetaIsConstant); ok {
		t.Fatalf("expected nil Metadata to report absent")
	}
	m.Set(MetaIsConstant, true)
	v, ok := m.Get(MetaIsConstant)
	if !ok || v != true {
		t.Fatalf("got %v, %v; want true, true", v, ok)
	}
}

func TestMetadataBoolAndIntDefaults(t *testing.T) {
	var m Metadata
	if m.Bool(MetaIsHotPath) {
		t.Fatalf("expected false default for absent bool key")
	}
	if m.Int(MetaReadCount) != 0 {
		t.Fatalf("expected 0 default for absent int key")
	}
	m.Set(MetaIsHotPath, true)
	m.Set(MetaReadCount, 3)
	if !m.Bool(MetaIsHotPath) {
		t.Fatalf("expected true after Set")
	}
	if m.Int(MetaReadCount) != 3 {
		t.Fatalf("expected 3 after Set, got %d", m.Int(MetaReadCount))
	}
}

func TestBaseSpanAndSetSpan(t *testing.T) {
	b := NewBase(source.Span{Offset: 0, Length: 4})
	if b.Span().Length != 4 {
		t.Fatalf("got length %d, want 4", b.Span().Length)
	}
	b.SetSpan(source.Span{Offset: 10, Length: 2})
	if b.Span().Offset != 10 || b.Span().Length != 2 {
		t.Fatalf("got span %+v after SetSpan", b.Span())
	}
}

func TestExprBaseTypeSlot(t *testing.T) {
	e := NewExprBase(source.Span{})
	if e.ExprType() != nil {
		t.Fatalf("expected nil ExprType before resolution")
	}
	rt := &ResolvedType{TypeID: 1, Name: "byte"}
	e.SetExprType(rt)
	if e.ExprType() != rt {
		t.Fatalf("expected ExprType to return the set pointer")
	}
}

// buildSampleModule returns a module exercising every Decl/Stmt/Expr kind
// Walk dispatches over: a mapped struct, a variable, a function whose body
// touches every statement and expression kind.
func buildSampleModule() *Module {
	lit := func(v uint32) Expr { return &Literal{Kind: LitInt, Int: v} }

	ifStmt := &If{
		Cond: &Binary{Op: BinEq, LHS: &Identifier{Name: "x"}, RHS: lit(1)},
		Then: &Block{Stmts: []Stmt{
			&Assign{Op: AssignPlain, LHS: &Identifier{Name: "x"}, RHS: lit(2)},
		}},
		Else: &Block{Stmts: []Stmt{&Break{}}},
	}
	forStmt := &For{
		Var: "i", From: lit(0), Dir: ForTo, Limit: lit(10),
		Body: &Block{Stmts: []Stmt{&Continue{}}},
	}
	whileStmt := &While{Cond: &Unary{Op: UnaryNot, X: &Identifier{Name: "done"}}, Body: &Block{}}
	doWhile := &DoWhile{Body: &Block{}, Cond: lit(1)}
	sw := &Switch{
		Subject: &Identifier{Name: "x"},
		Cases: []*CaseClause{
			{Values: []Expr{lit(1)}, Body: []Stmt{&Return{Value: &Call{Callee: &Identifier{Name: "f"}, Args: []Expr{lit(1)}}}}},
			{Body: []Stmt{&ExprStmt{X: &Index{Base: &Identifier{Name: "arr"}, Index: lit(0)}}}},
		},
	}
	ternary := &Ternary{Cond: lit(1), Then: lit(2), Else: lit(3)}
	member := &Member{Base: &Identifier{Name: "s"}, Name: "field"}
	arrLit := &ArrayLiteral{Elems: []Expr{lit(1), lit(2)}}
	addrOf := &AddressOf{Operand: &Identifier{Name: "x"}}

	fn := &Function{
		Name: "main",
		Body: &Block{Stmts: []Stmt{
			ifStmt, forStmt, whileStmt, doWhile, sw,
			&ExprStmt{X: ternary},
			&ExprStmt{X: member},
			&ExprStmt{X: arrLit},
			&ExprStmt{X: addrOf},
			&VarDeclStmt{Decl: &Variable{Name: "v", Init: lit(1)}},
			&ConstDeclStmt{Decl: &Const{Name: "c", Init: lit(1)}},
			&InlineAsm{Text: "nop"},
		}},
	}

	md := &MapDecl{
		Name: "sprite", Form: MapSequentialStruct,
		Fields: []*MapField{{Name: "x"}, {Name: "y"}},
	}
	enum := &Enum{Name: "Color", Members: []*EnumMember{{Name: "Red", Value: lit(0)}, {Name: "Blue"}}}

	return &Module{
		Name: "m",
		Decls: []Decl{
			&Import{Name: "f", Module: "other"},
			&Export{Inner: fn},
			&Variable{Name: "g", Init: lit(1)},
			&Const{Name: "k", Init: lit(1)},
			&TypeAlias{Name: "t", Type: &NamedType{Name: "byte"}},
			enum,
			md,
		},
	}
}

func TestWalkModuleVisitsEveryDeclStmtExprKind(t *testing.T) {
	mod := buildSampleModule()

	var declCount, stmtCount, exprCount int
	WalkModule(mod, Visitor{
		Decl: func(Decl) { declCount++ },
		Stmt: func(Stmt) { stmtCount++ },
		Expr: func(Expr) { exprCount++ },
	})

	if declCount == 0 || stmtCount == 0 || exprCount == 0 {
		t.Fatalf("expected every category to be visited, got decls=%d stmts=%d exprs=%d",
			declCount, stmtCount, exprCount)
	}
}

func TestWalkHandlesNilSubtrees(t *testing.T) {
	mod := &Module{Decls: []Decl{
		&Import{Name: "a", Module: "b"},
		&TypeAlias{Name: "t"},
		&Variable{Name: "v"}, // nil Init
	}}
	// Must not panic on a nil TypeAlias Type or a nil Variable Init.
	WalkModule(mod, Visitor{})
}
