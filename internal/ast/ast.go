// Package ast defines Blend65's abstract syntax tree: tagged-variant node
// types for declarations, statements, and expressions, each carrying a
// source span and a metadata slot that later passes (the type checker,
// the dataflow suite) annotate in place.
//
// Node shapes follow the enum/tag style nevermosby-ebpf/types.go uses for
// MapType — a closed set of concrete Go types implementing a marker
// interface, switched over exhaustively rather than matched through a
// single polymorphic struct.
package ast

import (
	"github.com/blendsdk/blend65/internal/source"
)

// Node is implemented by every AST node. Metadata returns the mutable
// annotation slot the dataflow suite writes analysis results into.
type Node interface {
	Span() source.Span
	Metadata() *Metadata
	SetSpan(source.Span)
}

// Base is embedded by every node. Exported so other packages (the parser)
// can build node literals as ast.Module{Base: ast.NewBase(span), ...}.
type Base struct {
	span source.Span
	meta Metadata
}

// NewBase constructs a Base carrying the given span and empty metadata.
func NewBase(span source.Span) Base { return Base{span: span} }

func (b *Base) Span() source.Span   { return b.span }
func (b *Base) Metadata() *Metadata { return &b.meta }

// SetSpan lets the parser stamp the final span onto a node once all of its
// tokens have been consumed, so every expression node records its span
// from first to last consumed token. Promoted to every concrete node type
// through embedding of Base (directly or via ExprBase).
func (b *Base) SetSpan(span source.Span) { b.span = span }

// Decl is the marker interface for top-level and nested declarations.
type Decl interface {
	Node
	declNode()
}

// Stmt is the marker interface for statements.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the marker interface for expressions.
type Expr interface {
	Node
	exprNode()
	// ExprType is populated by the type checker; nil before that.
	ExprType() *ResolvedType
	SetExprType(*ResolvedType)
}

// ExprBase is embedded by every expression node; adds the resolved-type
// slot to Base.
type ExprBase struct {
	Base
	typ *ResolvedType
}

// NewExprBase constructs an ExprBase carrying the given span.
func NewExprBase(span source.Span) ExprBase { return ExprBase{Base: NewBase(span)} }

func (e *ExprBase) ExprType() *ResolvedType     { return e.typ }
func (e *ExprBase) SetExprType(t *ResolvedType) { e.typ = t }

// ResolvedType is an opaque handle the type checker fills in; internal/ast
// does not depend on internal/types to avoid an import cycle (internal/types
// depends on nothing, the type checker depends on both and bridges them).
// TypeID is the interned type identity from internal/types.
type ResolvedType struct {
	TypeID int
	Name   string
}

// ---- Declarations ----

type Module struct {
	Base
	Name     string
	Decls    []Decl
	Implicit bool // true when the parser synthesized this module
}

func (*Module) declNode() {}

type Import struct {
	Base
	Name   string
	Module string
}

func (*Import) declNode() {}

type Export struct {
	Base
	Inner Decl
}

func (*Export) declNode() {}

type Variable struct {
	Base
	Name       string
	Type       TypeExpr
	Init       Expr // nil if uninitialized
	Storage    StorageClass
	MapAddress *MapAddress // non-nil only for Storage == StorageMap
}

func (*Variable) declNode() {}

type Const struct {
	Base
	Name string
	Type TypeExpr
	Init Expr // required — a const must always be initialized
}

func (*Const) declNode() {}

type Param struct {
	Base
	Name string
	Type TypeExpr
}

type Function struct {
	Base
	Name       string
	Params     []*Param
	ReturnType TypeExpr // nil means void
	Body       *Block   // nil for forward declarations ("stub functions with ; body")
	IsCallback bool
}

func (*Function) declNode() {}

type TypeAlias struct {
	Base
	Name string
	Type TypeExpr
}

func (*TypeAlias) declNode() {}

type EnumMember struct {
	Base
	Name  string
	Value Expr // nil = auto-assigned
}

type Enum struct {
	Base
	Name    string
	Members []*EnumMember
}

func (*Enum) declNode() {}

// MapForm distinguishes the four @map declaration shapes.
type MapForm int

const (
	MapSimple MapForm = iota
	MapRange
	MapSequentialStruct
	MapLayoutStruct
)

type MapAddress struct {
	Form MapForm
	At   Expr // MapSimple, MapSequentialStruct/Layout field "at"
	From Expr // MapRange / field "from"
	To   Expr // MapRange / field "from...to"
}

type MapField struct {
	Base
	Name    string
	Type    TypeExpr
	Address *MapAddress // nil for MapSequentialStruct fields (auto-laid-out)
}

type MapDecl struct {
	Base
	Name    string
	Form    MapForm
	Type    TypeExpr // element type for Simple/Range forms
	Address *MapAddress
	Fields  []*MapField // struct forms only
}

func (*MapDecl) declNode() {}

// ---- Type expressions (syntactic, pre-resolution) ----

type TypeExpr interface {
	Node
	typeExprNode()
}

type NamedType struct {
	Base
	Name string
}

func (*NamedType) typeExprNode() {}

type ArrayType struct {
	Base
	Elem TypeExpr
	Size Expr // compile-time constant
}

func (*ArrayType) typeExprNode() {}

// StorageClass selects a variable's memory region.
type StorageClass int

const (
	StorageDefault StorageClass = iota
	StorageZP
	StorageRAM
	StorageData
	StorageMap
)

// ---- Statements ----

type Block struct {
	Base
	Stmts []Stmt
}

func (*Block) stmtNode() {}

type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// AssignOp distinguishes plain '=' from the compound forms; the IL builder
// desugars compound assignment to op+store.
type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

type Assign struct {
	Base
	Op  AssignOp
	LHS Expr
	RHS Expr
}

func (*Assign) stmtNode() {}

type VarDeclStmt struct {
	Base
	Decl *Variable
}

func (*VarDeclStmt) stmtNode() {}

type ConstDeclStmt struct {
	Base
	Decl *Const
}

func (*ConstDeclStmt) stmtNode() {}

type If struct {
	Base
	Cond Expr
	Then *Block
	Else Stmt // *Block or *If (else-if chain) or nil
}

func (*If) stmtNode() {}

type While struct {
	Base
	Cond Expr
	Body *Block
}

func (*While) stmtNode() {}

type DoWhile struct {
	Base
	Body *Block
	Cond Expr
}

func (*DoWhile) stmtNode() {}

// ForDirection distinguishes "to" (ascending) from "downto" (descending);
// the IL builder desugars a for loop differently for each.
type ForDirection int

const (
	ForTo ForDirection = iota
	ForDownto
)

type For struct {
	Base
	Var   string
	From  Expr
	Dir   ForDirection
	Limit Expr
	Step  Expr // nil => literal 1
	Body  *Block
}

func (*For) stmtNode() {}

type CaseClause struct {
	Values []Expr // empty => default
	Body   []Stmt
}

type Switch struct {
	Base
	Subject Expr
	Cases   []*CaseClause
}

func (*Switch) stmtNode() {}

type Return struct {
	Base
	Value Expr // nil for void return
}

func (*Return) stmtNode() {}

type Break struct{ Base }

func (*Break) stmtNode() {}

type Continue struct{ Base }

func (*Continue) stmtNode() {}

type InlineAsm struct {
	Base
	Text string
}

func (*InlineAsm) stmtNode() {}

// ---- Expressions ----

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitString
	LitBool
)

type Literal struct {
	ExprBase
	Kind LiteralKind
	Int  uint32
	Str  string
	Bool bool
}

func (*Literal) exprNode() {}

type Identifier struct {
	ExprBase
	Name string
}

func (*Identifier) exprNode() {}

type Call struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

func (*Call) exprNode() {}

type Index struct {
	ExprBase
	Base  Expr
	Index Expr
}

func (*Index) exprNode() {}

type Member struct {
	ExprBase
	Base Expr
	Name string
}

func (*Member) exprNode() {}

type UnaryOp int

const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryBitNot
	UnaryAddrOf
)

type Unary struct {
	ExprBase
	Op UnaryOp
	X  Expr
}

func (*Unary) exprNode() {}

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinShl
	BinShr
	BinBitAnd
	BinBitOr
	BinBitXor
	BinAnd
	BinOr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

type Binary struct {
	ExprBase
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

func (*Binary) exprNode() {}

type Ternary struct {
	ExprBase
	Cond Expr
	Then Expr
	Else Expr
}

func (*Ternary) exprNode() {}

type ArrayLiteral struct {
	ExprBase
	Elems []Expr
}

func (*ArrayLiteral) exprNode() {}

type AddressOf struct {
	ExprBase
	Operand Expr
}

func (*AddressOf) exprNode() {}
